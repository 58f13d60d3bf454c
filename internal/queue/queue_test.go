package queue

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/doveops/dovescraper/internal/scraper"
)

func testSubmission(caseNumber string) scraper.Submission {
	return scraper.Submission{
		CaseNumber: caseNumber,
		MemberData: []scraper.MemberRecord{{
			MemberID:  "M-1",
			SSN:       "123456789",
			FirstName: "JANE",
			LastName:  "DOE",
			DOB:       "19800115",
		}},
	}
}

func TestPutAndRead(t *testing.T) {
	t.Parallel()

	q := New(t.TempDir())
	path, err := q.Put(testSubmission("C-1"))
	require.NoError(t, err)
	require.FileExists(t, path)
	require.Equal(t, ".json", filepath.Ext(path))

	sub, err := q.Read(path)
	require.NoError(t, err)
	require.Equal(t, "C-1", sub.CaseNumber)
	require.Len(t, sub.MemberData, 1)
	require.Equal(t, "JANE", sub.MemberData[0].FirstName)
}

// Queue file names must be strictly increasing even for writes within the
// same millisecond, so lexical order stays FIFO.
func TestPutIDsMonotonic(t *testing.T) {
	t.Parallel()

	q := New(t.TempDir())
	var paths []string
	for i := 0; i < 10; i++ {
		path, err := q.Put(testSubmission("C-1"))
		require.NoError(t, err)
		paths = append(paths, path)
	}

	seen := map[string]bool{}
	for _, p := range paths {
		require.False(t, seen[p], "duplicate queue file name %s", p)
		seen[p] = true
	}

	oldest, err := q.Oldest()
	require.NoError(t, err)
	require.Equal(t, paths, oldest)
}

func TestOldestSkipsNonQueueEntries(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	q := New(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o640))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o750))

	path, err := q.Put(testSubmission("C-2"))
	require.NoError(t, err)

	files, err := q.Oldest()
	require.NoError(t, err)
	require.Equal(t, []string{path}, files)
	require.Equal(t, 1, q.Depth())
}

func TestReadMalformedFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	q := New(dir)
	path := filepath.Join(dir, "1000.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o640))

	_, err := q.Read(path)
	require.Error(t, err)
}

func TestMoveTo(t *testing.T) {
	t.Parallel()

	q := New(t.TempDir())
	path, err := q.Put(testSubmission("C-3"))
	require.NoError(t, err)

	dest := t.TempDir()
	require.NoError(t, MoveTo(path, dest))
	require.NoFileExists(t, path)
	require.FileExists(t, filepath.Join(dest, filepath.Base(path)))
	require.Equal(t, 0, q.Depth())
}
