package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileSink is a zapcore.WriteSyncer over the current log file that supports
// the daily rotation trigger: writes are disabled while the file is renamed
// to a date-stamped name and a fresh one is created.
type FileSink struct {
	mu      sync.Mutex
	dir     string
	name    string
	enabled bool
	file    *os.File
}

// NewFileSink opens (or creates) the current log file in append mode.
func NewFileSink(dir, name string, enabled bool) (*FileSink, error) {
	s := &FileSink{dir: dir, name: name, enabled: enabled}
	if !enabled {
		return s, nil
	}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileSink) open() error {
	f, err := os.OpenFile(filepath.Join(s.dir, s.name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	s.file = f
	return nil
}

// Write appends to the current log file. Writes while rotation holds the
// lock block until the fresh file exists; writes while disabled are dropped.
func (s *FileSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled || s.file == nil {
		return len(p), nil
	}
	n, err := s.file.Write(p)
	if err != nil {
		return n, fmt.Errorf("write log file: %w", err)
	}
	return n, nil
}

// Sync flushes the current log file.
func (s *FileSink) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled || s.file == nil {
		return nil
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("sync log file: %w", err)
	}
	return nil
}

// Rotate disables logging, renames the current file to a date-stamped name
// covering the previous day, creates a fresh empty log, and re-enables
// logging. Safe to call from the scheduler.
func (s *FileSink) Rotate(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled || s.file == nil {
		return nil
	}
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("close log file: %w", err)
	}
	s.file = nil

	yesterday := now.AddDate(0, 0, -1)
	base := strings.TrimSuffix(s.name, filepath.Ext(s.name))
	stamped := fmt.Sprintf("%s-%d-%d-%d.log", base, int(yesterday.Month()), yesterday.Day(), yesterday.Year())
	if err := os.Rename(filepath.Join(s.dir, s.name), filepath.Join(s.dir, stamped)); err != nil {
		return fmt.Errorf("rename log file: %w", err)
	}
	return s.open()
}

// Close closes the underlying file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("close log file: %w", err)
	}
	s.file = nil
	return nil
}
