// Package queue manages the incoming-directory file queue. Entries are JSON
// files named by a monotonically increasing timestamp-derived identifier, so
// lexical order is FIFO-by-creation and no central sequence service is needed.
package queue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/doveops/dovescraper/internal/scraper"
)

// Queue is the file-backed submission queue over a single directory.
type Queue struct {
	dir string

	mu     sync.Mutex
	lastID int64
}

// New creates a Queue over dir. The directory must already exist.
func New(dir string) *Queue {
	return &Queue{dir: dir}
}

// Dir returns the queue directory.
func (q *Queue) Dir() string {
	return q.dir
}

// Put writes a submission as a timestamp-named JSON file and returns its
// path. IDs are strictly increasing even for writes within one millisecond.
func (q *Queue) Put(sub scraper.Submission) (string, error) {
	q.mu.Lock()
	id := time.Now().UnixMilli()
	if id <= q.lastID {
		id = q.lastID + 1
	}
	q.lastID = id
	q.mu.Unlock()

	data, err := json.Marshal(sub)
	if err != nil {
		return "", fmt.Errorf("marshal submission: %w", err)
	}
	path := filepath.Join(q.dir, fmt.Sprintf("%d.json", id))
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", fmt.Errorf("write queue file: %w", err)
	}
	return path, nil
}

// Read loads the submission stored in a queue file.
func (q *Queue) Read(path string) (scraper.Submission, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return scraper.Submission{}, fmt.Errorf("read queue file: %w", err)
	}
	var sub scraper.Submission
	if err := json.Unmarshal(data, &sub); err != nil {
		return scraper.Submission{}, fmt.Errorf("parse queue file: %w", err)
	}
	return sub, nil
}

// Oldest returns the queued file paths sorted oldest-first.
func (q *Queue) Oldest() ([]string, error) {
	entries, err := os.ReadDir(q.dir)
	if err != nil {
		return nil, fmt.Errorf("read queue directory: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		files = append(files, filepath.Join(q.dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// Depth counts the files currently queued.
func (q *Queue) Depth() int {
	files, err := q.Oldest()
	if err != nil {
		return 0
	}
	return len(files)
}

// MoveTo relocates a queue file into destDir, keeping its name.
func MoveTo(path, destDir string) error {
	dest := filepath.Join(destDir, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		return fmt.Errorf("move %s to %s: %w", path, destDir, err)
	}
	return nil
}
