// Package session drives the stateful automation run that amortizes one
// authenticated portal session across all records of a submission.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/doveops/dovescraper/internal/metrics"
	"github.com/doveops/dovescraper/internal/parser"
	"github.com/doveops/dovescraper/internal/queue"
	"github.com/doveops/dovescraper/internal/scraper"
)

// Engine executes the per-submission state machine:
// OPEN_SESSION → PROCESS_RECORD* → CLOSE_SESSION → DELIVER, with recovery
// reachable from any point.
type Engine struct {
	queue     *queue.Queue
	factory   scraper.PortalFactory
	deliverer scraper.Deliverer
	clock     scraper.Clock
	failedDir string
	debug     bool
	debugDir  string
	logger    *zap.Logger
}

// New creates an Engine.
func New(
	q *queue.Queue,
	factory scraper.PortalFactory,
	deliverer scraper.Deliverer,
	clock scraper.Clock,
	failedDir string,
	debug bool,
	debugDir string,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		queue:     q,
		factory:   factory,
		deliverer: deliverer,
		clock:     clock,
		failedDir: failedDir,
		debug:     debug,
		debugDir:  debugDir,
		logger:    logger,
	}
}

// Process runs one queued submission file end to end. On any automation
// failure the file is quarantined, the session restarted, and the remaining
// records abandoned; no partial payload is delivered.
func (e *Engine) Process(ctx context.Context, file string) error {
	sub, err := e.queue.Read(file)
	if err != nil {
		return e.recover(ctx, file, nil, err)
	}

	debugID := fmt.Sprintf("%d-%s", e.clock.Now().UnixMilli(), sub.CaseNumber)
	if e.debug {
		e.dumpRaw(debugID, sub)
	}

	payload := scraper.ResultPayload{
		CaseNumber: sub.CaseNumber,
		MemberData: []scraper.ExtractedRecord{},
	}

	var portal scraper.Portal
	n := len(sub.MemberData)
	for i, rec := range sub.MemberData {
		phase := scraper.PhaseFor(i, n)
		e.logger.Info("processing record",
			zap.String("case", sub.CaseNumber),
			zap.Int("index", i),
			zap.Int("total", n),
			zap.Stringer("phase", phase),
		)

		if phase.OpensSession() {
			portal, err = e.factory.Open(ctx, debugID)
			if err != nil {
				return e.recover(ctx, file, portal, err)
			}
		}
		if phase.ProcessesRecord() {
			if err := e.processRecord(ctx, portal, rec, &payload, debugID); err != nil {
				return e.recover(ctx, file, portal, err)
			}
		}
		if phase.ClosesSession() {
			if err := portal.Logout(ctx); err != nil {
				return e.recover(ctx, file, portal, err)
			}
		}
	}

	if err := e.deliverer.Deliver(ctx, file, payload, debugID); err != nil {
		return fmt.Errorf("deliver %s: %w", sub.CaseNumber, err)
	}
	metrics.ObserveSubmission("delivered")
	return nil
}

// processRecord runs the fill/submit/extract cycle for one member. A missing
// data marker is a graceful skip: the record contributes nothing and the
// session continues.
func (e *Engine) processRecord(
	ctx context.Context,
	portal scraper.Portal,
	rec scraper.MemberRecord,
	payload *scraper.ResultPayload,
	debugID string,
) error {
	rec.DOB = formatDOB(rec.DOB)

	if err := portal.Search(ctx, rec); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	text, err := portal.DetailText(ctx)
	if err != nil {
		return fmt.Errorf("detail view: %w", err)
	}

	result := parser.Parse(text, rec)
	if !result.Found {
		e.logger.Warn("no wage data found, skipping record", zap.String("member", rec.MemberID))
		metrics.ObserveRecord("skipped")
		return nil
	}
	payload.MemberData = append(payload.MemberData, result.Records...)
	metrics.ObserveRecord("extracted")

	if e.debug {
		e.dumpPayload(debugID, payload)
	}
	return nil
}

// recover quarantines the source file, forcibly tears down the broken
// session, and resets the portal login. An aborted session can stay logged
// in server-side; a fresh login/logout clears that before the next
// submission is admitted.
func (e *Engine) recover(ctx context.Context, file string, portal scraper.Portal, cause error) error {
	e.logger.Error("automation failure, quarantining submission",
		zap.String("file", file),
		zap.Error(cause),
	)

	if err := queue.MoveTo(file, e.failedDir); err != nil {
		e.logger.Error("quarantine move failed", zap.String("file", file), zap.Error(err))
	}

	if portal != nil {
		e.logger.Info("restarting session", zap.Stringer("phase", scraper.PhaseRecoverClose))
		portal.ForceClose()
	}

	e.logger.Info("resetting portal login", zap.Stringer("phase", scraper.PhaseReopen))
	fresh, err := e.factory.Open(ctx, "")
	if err != nil {
		e.logger.Warn("session reset failed", zap.Error(err))
	} else if err := fresh.Logout(ctx); err != nil {
		e.logger.Warn("session reset logout failed", zap.Error(err))
		fresh.ForceClose()
	}

	metrics.ObserveSubmission("quarantined")
	return fmt.Errorf("automation failure: %w", cause)
}

func (e *Engine) dumpRaw(debugID string, sub scraper.Submission) {
	dir := filepath.Join(e.debugDir, debugID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		e.logger.Warn("create debug dir failed", zap.Error(err))
		return
	}
	data, err := json.MarshalIndent(sub, "", "    ")
	if err != nil {
		return
	}
	name := fmt.Sprintf("%d-raw.json", e.clock.Now().UnixMilli())
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o640); err != nil {
		e.logger.Warn("write debug raw failed", zap.Error(err))
	}
}

func (e *Engine) dumpPayload(debugID string, payload *scraper.ResultPayload) {
	dir := filepath.Join(e.debugDir, debugID)
	data, err := json.MarshalIndent(payload, "", "    ")
	if err != nil {
		return
	}
	name := fmt.Sprintf("%d-data.json", e.clock.Now().UnixMilli())
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o640); err != nil {
		e.logger.Warn("write debug data failed", zap.Error(err))
	}
}

// formatDOB turns the queued YYYYMMDD form into the portal's MM/DD/YYYY.
// Intake validation guarantees eight characters.
func formatDOB(dob string) string {
	if len(dob) != 8 {
		return dob
	}
	return fmt.Sprintf("%s/%s/%s", dob[4:6], dob[6:8], dob[0:4])
}
