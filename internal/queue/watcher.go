package queue

import (
	"context"
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher emits the path of every JSON file created in the queue directory.
type Watcher struct {
	fw      *fsnotify.Watcher
	handler func(path string)
	logger  *zap.Logger
}

// NewWatcher starts watching dir and routes created-file events to handler.
func NewWatcher(dir string, handler func(path string), logger *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		if closeErr := fw.Close(); closeErr != nil {
			logger.Warn("close watcher after failed add", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	logger.Info("file watcher initialized", zap.String("dir", dir))
	return &Watcher{fw: fw, handler: handler, logger: logger}, nil
}

// Run blocks, routing events until the context finishes or the watcher closes.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) || !strings.HasSuffix(event.Name, ".json") {
				continue
			}
			w.logger.Info("new file detected", zap.String("file", event.Name))
			w.handler(event.Name)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", zap.Error(err))
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	if err := w.fw.Close(); err != nil {
		return fmt.Errorf("close watcher: %w", err)
	}
	return nil
}
