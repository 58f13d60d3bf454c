package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/doveops/dovescraper/internal/scraper"
)

// Portal UI selector contract. Field positions and control selectors are
// fixed assumptions about the one known portal layout.
const (
	loginButtonSel  = ".button"
	submitButtonSel = "#SubmitButton"
	logoutSel       = "input"
	detailOpenSel   = "div:last-child table:last-child tr:last-child td:last-child input"
	backSel         = "div:last-child table:last-child tr:first-child td:last-child input"
)

// PortalConfig controls the chromedp-backed portal session.
type PortalConfig struct {
	LoginURL   string
	Username   string
	Password   string
	Headless   bool
	SettleWait time.Duration
	NavTimeout time.Duration
	Debug      bool
	DebugDir   string
}

// Factory opens chromedp-backed portal sessions, one browser per submission.
type Factory struct {
	cfg    PortalConfig
	logger *zap.Logger
}

// NewFactory creates a Factory.
func NewFactory(cfg PortalConfig, logger *zap.Logger) *Factory {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 45 * time.Second
	}
	return &Factory{cfg: cfg, logger: logger}
}

// Open launches a browser, navigates to the login page, fills credentials,
// and submits, returning an authenticated Portal.
func (f *Factory) Open(ctx context.Context, debugID string) (scraper.Portal, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", f.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)

	p := &chromePortal{
		ctx:     taskCtx,
		cancels: []context.CancelFunc{taskCancel, allocCancel},
		cfg:     f.cfg,
		debugID: debugID,
		logger:  f.logger,
	}

	fillLogin := fmt.Sprintf(
		`(() => { const input = document.querySelectorAll('input'); input[0].value = %q; input[1].value = %q; })()`,
		f.cfg.Username, f.cfg.Password,
	)
	err := p.run(
		chromedp.Navigate(f.cfg.LoginURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		p.snapshot("open"),
		chromedp.Evaluate(fillLogin, nil),
		p.snapshot("info"),
		chromedp.Click(loginButtonSel, chromedp.ByQuery),
		chromedp.Sleep(f.cfg.SettleWait),
		p.snapshot("login"),
	)
	if err != nil {
		p.ForceClose()
		return nil, fmt.Errorf("open session: %w", err)
	}
	f.logger.Info("session opened")
	return p, nil
}

// chromePortal implements scraper.Portal over one chromedp browser context.
type chromePortal struct {
	ctx     context.Context
	cancels []context.CancelFunc
	cfg     PortalConfig
	debugID string
	logger  *zap.Logger
}

// Search fills the member search form positionally and submits it.
func (p *chromePortal) Search(ctx context.Context, rec scraper.MemberRecord) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("search canceled: %w", err)
	}
	fill := fmt.Sprintf(
		`(() => {
			const input = document.querySelectorAll('input');
			input[3].value = %q;
			input[4].click();
			input[5].click();
			input[6].click();
			input[7].value = %q;
			input[9].value = %q;
			input[13].value = %q;
		})()`,
		rec.SSN, rec.FirstName, rec.LastName, rec.DOB,
	)
	err := p.run(
		chromedp.Evaluate(fill, nil),
		p.snapshot("populate"),
		chromedp.Click(submitButtonSel, chromedp.ByQuery),
		chromedp.Sleep(p.cfg.SettleWait),
	)
	if err != nil {
		return fmt.Errorf("submit search form: %w", err)
	}
	return nil
}

// DetailText opens the detail view in its new window, reads the full visible
// text, closes the window, and returns to the main results view.
func (p *chromePortal) DetailText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("detail view canceled: %w", err)
	}

	ch := chromedp.WaitNewTarget(p.ctx, func(info *target.Info) bool {
		return info.Type == "page"
	})
	if err := p.run(chromedp.Click(detailOpenSel, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("open detail view: %w", err)
	}

	var targetID target.ID
	select {
	case targetID = <-ch:
	case <-time.After(p.cfg.NavTimeout):
		return "", fmt.Errorf("detail window did not appear within %s", p.cfg.NavTimeout)
	}

	detailCtx, cancel := chromedp.NewContext(p.ctx, chromedp.WithTargetID(targetID))
	defer cancel()

	var text string
	err := chromedp.Run(detailCtx,
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(`document.body.innerText`, &text),
		p.snapshot("full"),
		page.Close(),
	)
	if err != nil {
		return "", fmt.Errorf("read detail view: %w", err)
	}

	err = p.run(
		chromedp.Click(backSel, chromedp.ByQuery),
		chromedp.Sleep(p.cfg.SettleWait),
	)
	if err != nil {
		return "", fmt.Errorf("return to main view: %w", err)
	}
	return text, nil
}

// Logout clicks the logout control and terminates the browser.
func (p *chromePortal) Logout(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("logout canceled: %w", err)
	}
	err := p.run(
		chromedp.Click(logoutSel, chromedp.ByQuery),
		chromedp.Sleep(p.cfg.SettleWait),
		p.snapshot("logout"),
	)
	p.ForceClose()
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	p.logger.Info("session closed")
	return nil
}

// ForceClose terminates the browser without logging out.
func (p *chromePortal) ForceClose() {
	for _, cancel := range p.cancels {
		cancel()
	}
}

func (p *chromePortal) run(actions ...chromedp.Action) error {
	runCtx := p.ctx
	if p.cfg.NavTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(p.ctx, p.cfg.NavTimeout)
		defer cancel()
	}
	if err := chromedp.Run(runCtx, actions...); err != nil {
		return fmt.Errorf("chromedp run: %w", err)
	}
	return nil
}

// snapshot captures a checkpoint screenshot when diagnostics mode is on.
func (p *chromePortal) snapshot(tag string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if !p.cfg.Debug || p.debugID == "" {
			return nil
		}
		var buf []byte
		if err := chromedp.CaptureScreenshot(&buf).Do(ctx); err != nil {
			return fmt.Errorf("capture screenshot: %w", err)
		}
		dir := filepath.Join(p.cfg.DebugDir, p.debugID)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create debug dir: %w", err)
		}
		name := fmt.Sprintf("%d-%s.png", time.Now().UnixMilli(), tag)
		if err := os.WriteFile(filepath.Join(dir, name), buf, 0o640); err != nil {
			return fmt.Errorf("write screenshot: %w", err)
		}
		return nil
	})
}
