package queue

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWatcherEmitsCreatedJSONFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	events := make(chan string, 8)
	w, err := NewWatcher(dir, func(path string) { events <- path }, zap.NewNop())
	require.NoError(t, err)
	defer w.Close() //nolint:errcheck // best-effort close

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	path := filepath.Join(dir, "1700000000000.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o640))

	select {
	case got := <-events:
		require.Equal(t, path, got)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher never reported the created file")
	}
}

func TestWatcherIgnoresNonJSONFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	events := make(chan string, 8)
	w, err := NewWatcher(dir, func(path string) { events <- path }, zap.NewNop())
	require.NoError(t, err)
	defer w.Close() //nolint:errcheck // best-effort close

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o640))
	jsonPath := filepath.Join(dir, "1700000000001.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte("{}"), 0o640))

	select {
	case got := <-events:
		require.Equal(t, jsonPath, got, "only json files should be reported")
	case <-time.After(2 * time.Second):
		t.Fatal("watcher never reported the json file")
	}
}

func TestWatcherMissingDirectory(t *testing.T) {
	t.Parallel()

	_, err := NewWatcher(filepath.Join(t.TempDir(), "absent"), func(string) {}, zap.NewNop())
	require.Error(t, err)
}
