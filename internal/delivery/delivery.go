// Package delivery archives finished payloads and posts them downstream.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/doveops/dovescraper/internal/metrics"
	"github.com/doveops/dovescraper/internal/queue"
	"github.com/doveops/dovescraper/internal/scraper"
)

// Deliverer writes the extracted payload to the posted store, POSTs it to the
// downstream consumer, and archives the source file. A downstream failure is
// logged and counted but never blocks archival; the posted copy is the record
// of truth.
type Deliverer struct {
	client       *http.Client
	url          string
	headers      map[string]string
	postedDir    string
	processedDir string
	debug        bool
	debugDir     string
	logger       *zap.Logger
}

// New creates a Deliverer posting to url with the given static headers.
func New(url string, headers map[string]string, postedDir, processedDir string, debug bool, debugDir string, logger *zap.Logger) *Deliverer {
	return &Deliverer{
		client:       &http.Client{Timeout: 30 * time.Second},
		url:          url,
		headers:      headers,
		postedDir:    postedDir,
		processedDir: processedDir,
		debug:        debug,
		debugDir:     debugDir,
		logger:       logger,
	}
}

// Deliver finalizes one submission. If the source file is already gone the
// submission was quarantined mid-flight and delivery is skipped entirely.
func (d *Deliverer) Deliver(ctx context.Context, sourceFile string, payload scraper.ResultPayload, debugID string) error {
	if _, err := os.Stat(sourceFile); os.IsNotExist(err) {
		d.logger.Warn("source file gone, skipping delivery", zap.String("file", sourceFile))
		return nil
	}

	data, err := json.MarshalIndent(payload, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(sourceFile), filepath.Ext(sourceFile))
	postedPath := filepath.Join(d.postedDir, base+".json")
	if err := os.WriteFile(postedPath, data, 0o640); err != nil {
		return fmt.Errorf("write posted payload: %w", err)
	}
	d.logger.Info("payload written",
		zap.String("case", payload.CaseNumber),
		zap.String("file", postedPath),
		zap.Int("records", len(payload.MemberData)),
	)

	d.post(ctx, data, payload.CaseNumber, debugID)

	if _, err := os.Stat(sourceFile); err == nil {
		if err := queue.MoveTo(sourceFile, d.processedDir); err != nil {
			return fmt.Errorf("archive source file: %w", err)
		}
	}
	return nil
}

// post sends the payload downstream. Failures are terminal for the attempt
// but not for the submission; there is no retry.
func (d *Deliverer) post(ctx context.Context, data []byte, caseNumber, debugID string) {
	if d.url == "" {
		d.logger.Warn("no downstream url configured, payload not posted", zap.String("case", caseNumber))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(data))
	if err != nil {
		d.logger.Error("build downstream request failed", zap.String("case", caseNumber), zap.Error(err))
		metrics.ObserveDeliveryFailure()
		return
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range d.headers {
		req.Header.Set(k, v)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Error("downstream post failed", zap.String("case", caseNumber), zap.Error(err))
		metrics.ObserveDeliveryFailure()
		return
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			d.logger.Warn("close downstream response body", zap.Error(err))
		}
	}()

	if d.debug && debugID != "" {
		d.dumpResponse(resp, debugID)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		d.logger.Error("downstream rejected payload",
			zap.String("case", caseNumber),
			zap.Int("status", resp.StatusCode),
		)
		metrics.ObserveDeliveryFailure()
		return
	}
	d.logger.Info("payload posted downstream",
		zap.String("case", caseNumber),
		zap.Int("status", resp.StatusCode),
	)
}

func (d *Deliverer) dumpResponse(resp *http.Response, debugID string) {
	dir := filepath.Join(d.debugDir, debugID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		d.logger.Warn("create debug dir failed", zap.Error(err))
		return
	}
	dump := map[string]any{
		"status":  resp.StatusCode,
		"headers": resp.Header,
	}
	data, err := json.MarshalIndent(dump, "", "    ")
	if err != nil {
		return
	}
	name := fmt.Sprintf("%d-response.json", time.Now().UnixMilli())
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o640); err != nil {
		d.logger.Warn("write debug response failed", zap.Error(err))
	}
}
