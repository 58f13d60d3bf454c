// Package logging includes tests for the zap logger helpers.
package logging

import (
	"testing"
)

// TestNewDevelopmentLogger confirms the development logger builds and logs.
func TestNewDevelopmentLogger(t *testing.T) {
	t.Parallel()

	logger := New(true, nil)
	if logger == nil {
		t.Fatal("expected logger to be non-nil")
	}
	logger.Info("development logger ready")
}

// TestNewProductionLogger ensures the production logger configuration succeeds.
func TestNewProductionLogger(t *testing.T) {
	t.Parallel()

	logger := New(false, nil)
	if logger == nil {
		t.Fatal("expected logger to be non-nil")
	}
	logger.Info("production logger ready")
}

// TestNewLoggerWritesToSink verifies log lines reach the file sink.
func TestNewLoggerWritesToSink(t *testing.T) {
	t.Parallel()

	sink, err := NewFileSink(t.TempDir(), "scraper.log", true)
	if err != nil {
		t.Fatalf("NewFileSink() error = %v", err)
	}
	defer sink.Close() //nolint:errcheck // best-effort close

	logger := New(false, sink)
	logger.Info("hello sink")
	if err := sink.Sync(); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
}
