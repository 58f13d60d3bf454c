// Package window schedules the daily processing window and log rotation.
package window

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/doveops/dovescraper/internal/scraper"
)

// Hooks are the callbacks the scheduler drives. OnOpen runs after the active
// flag flips true and should flush anything that queued while inactive.
type Hooks struct {
	SetActive func(bool)
	OnOpen    func()
	Rotate    func(now time.Time) error
}

// Manager runs the open, close, and log-rotation triggers on the configured
// timezone. Trigger failures are logged and never crash the process.
type Manager struct {
	cron      *cron.Cron
	openExpr  string
	closeExpr string
	logsExpr  string
	clock     scraper.Clock
	hooks     Hooks
	logger    *zap.Logger
}

// New creates a Manager. Start must be called to arm the triggers.
func New(openExpr, closeExpr, logsExpr string, loc *time.Location, clock scraper.Clock, hooks Hooks, logger *zap.Logger) *Manager {
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cronLogger{logger: logger})),
	)
	return &Manager{
		cron:      c,
		openExpr:  openExpr,
		closeExpr: closeExpr,
		logsExpr:  logsExpr,
		clock:     clock,
		hooks:     hooks,
		logger:    logger,
	}
}

// Start computes the initial active flag from the current local time, so a
// process restart mid-window resumes correctly, then arms the three triggers.
func (m *Manager) Start() error {
	m.hooks.SetActive(m.ActiveAt(m.clock.Now()))

	if _, err := m.cron.AddFunc(m.openExpr, m.open); err != nil {
		return fmt.Errorf("schedule window-open %q: %w", m.openExpr, err)
	}
	if _, err := m.cron.AddFunc(m.closeExpr, m.close); err != nil {
		return fmt.Errorf("schedule window-close %q: %w", m.closeExpr, err)
	}
	if _, err := m.cron.AddFunc(m.logsExpr, m.rotate); err != nil {
		return fmt.Errorf("schedule log rotation %q: %w", m.logsExpr, err)
	}
	m.cron.Start()
	m.logger.Info("window triggers armed",
		zap.String("open", m.openExpr),
		zap.String("close", m.closeExpr),
		zap.String("logs", m.logsExpr),
	)
	return nil
}

// Stop halts the scheduler without touching in-flight work.
func (m *Manager) Stop() {
	m.cron.Stop()
}

func (m *Manager) open() {
	m.logger.Info("window-open trigger fired")
	m.hooks.SetActive(true)
	if m.hooks.OnOpen != nil {
		m.hooks.OnOpen()
	}
}

func (m *Manager) close() {
	m.logger.Info("window-close trigger fired")
	m.hooks.SetActive(false)
}

func (m *Manager) rotate() {
	if m.hooks.Rotate == nil {
		return
	}
	if err := m.hooks.Rotate(m.clock.Now()); err != nil {
		m.logger.Error("log rotation failed", zap.Error(err))
		return
	}
	m.logger.Info("log rotated")
}

// ActiveAt reports whether now falls inside the daily window, derived from
// the hour fields of the open and close expressions. Malformed expressions
// yield inactive.
func (m *Manager) ActiveAt(now time.Time) bool {
	openHour, ok := hourField(m.openExpr)
	if !ok {
		m.logger.Warn("unparsable open expression, assuming inactive", zap.String("expr", m.openExpr))
		return false
	}
	closeHour, ok := hourField(m.closeExpr)
	if !ok {
		m.logger.Warn("unparsable close expression, assuming inactive", zap.String("expr", m.closeExpr))
		return false
	}
	hour := now.Hour()
	return hour >= openHour && hour < closeHour
}

// hourField extracts the hour component of a five-field cron expression.
func hourField(expr string) (int, bool) {
	fields := strings.Fields(expr)
	if len(fields) < 2 {
		return 0, false
	}
	hour, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, false
	}
	return hour, true
}

// cronLogger adapts zap to the cron.Logger interface used by the recovery
// chain.
type cronLogger struct {
	logger *zap.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.logger.Sugar().Infow(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
