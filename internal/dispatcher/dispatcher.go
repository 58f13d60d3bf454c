// Package dispatcher gates submission admission on the daily window and the
// concurrency ceiling, and drains queue backlog.
package dispatcher

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/doveops/dovescraper/internal/metrics"
	"github.com/doveops/dovescraper/internal/queue"
	"github.com/doveops/dovescraper/internal/scraper"
)

// Dispatcher is the single coordinating path for the shared active flag,
// in-flight set, and concurrency counter. All admission decisions go through
// it so file-system events and scheduled drains cannot double-admit a file.
type Dispatcher struct {
	queue       *queue.Queue
	engine      scraper.Engine
	ceiling     int
	fatalErrors bool
	logger      *zap.Logger

	mu       sync.Mutex
	active   bool
	inFlight map[string]bool
	count    int
}

// New creates a Dispatcher with the configured concurrency ceiling.
func New(q *queue.Queue, engine scraper.Engine, ceiling int, fatalErrors bool, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		queue:       q,
		engine:      engine,
		ceiling:     ceiling,
		fatalErrors: fatalErrors,
		logger:      logger,
		inFlight:    make(map[string]bool),
	}
}

// SetActive flips the processing window flag. Deactivating never interrupts
// submissions already in flight.
func (d *Dispatcher) SetActive(active bool) {
	d.mu.Lock()
	d.active = active
	d.mu.Unlock()
	if active {
		d.logger.Info("processing window open")
	} else {
		d.logger.Info("processing window closed")
	}
}

// Active reports whether the processing window is open.
func (d *Dispatcher) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// InFlight reports the number of submissions currently being processed.
func (d *Dispatcher) InFlight() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count
}

// HandleFile admits a newly created queue file if the window is open and the
// ceiling allows. Rejected files stay queued for the next drain.
func (d *Dispatcher) HandleFile(ctx context.Context, path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch {
	case !d.active:
		d.logger.Info("window closed, file stays queued", zap.String("file", path))
	case d.count >= d.ceiling:
		d.logger.Info("at concurrency ceiling, file stays queued", zap.String("file", path))
	case d.inFlight[path]:
		d.logger.Info("file already in flight, skipping", zap.String("file", path))
	default:
		d.admitLocked(ctx, path)
	}
}

// Drain pops queued files oldest-first and admits them until the directory
// is empty or the ceiling is reached. Invoked on window-open and after every
// submission completes.
func (d *Dispatcher) Drain(ctx context.Context) {
	files, err := d.queue.Oldest()
	if err != nil {
		d.logger.Error("drain failed to list queue", zap.Error(err))
		return
	}
	metrics.SetQueueDepth(len(files))

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.active {
		return
	}
	for _, path := range files {
		if d.count >= d.ceiling {
			return
		}
		if d.inFlight[path] {
			continue
		}
		d.admitLocked(ctx, path)
	}
}

// admitLocked marks the file in flight and starts its processing task.
// Caller holds d.mu.
func (d *Dispatcher) admitLocked(ctx context.Context, path string) {
	d.inFlight[path] = true
	d.count++
	metrics.IncInFlight()
	d.logger.Info("submission admitted",
		zap.String("file", path),
		zap.Int("in_flight", d.count),
	)
	go d.run(ctx, path)
}

func (d *Dispatcher) run(ctx context.Context, path string) {
	defer d.complete(ctx, path)
	defer func() {
		if rec := recover(); rec != nil {
			if d.fatalErrors {
				d.logger.Fatal("uncaught processing panic", zap.String("file", path), zap.Any("panic", rec))
			}
			d.logger.Error("processing panic recovered", zap.String("file", path), zap.Any("panic", rec))
		}
	}()
	if err := d.engine.Process(ctx, path); err != nil {
		d.logger.Error("submission failed", zap.String("file", path), zap.Error(err))
		return
	}
	d.logger.Info("submission completed", zap.String("file", path))
}

// complete releases the in-flight slot exactly once and triggers another
// drain so backlog keeps flowing.
func (d *Dispatcher) complete(ctx context.Context, path string) {
	d.mu.Lock()
	delete(d.inFlight, path)
	d.count--
	d.mu.Unlock()
	metrics.DecInFlight()
	d.Drain(ctx)
}
