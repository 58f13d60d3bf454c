package scraper

import (
	"context"
	"time"
)

// Portal is one authenticated automation session against the external
// portal. A Portal is owned exclusively by the task processing a single
// submission and is never shared across tasks.
type Portal interface {
	// Search fills the member search form and submits it, waiting for the
	// page to settle.
	Search(ctx context.Context, rec MemberRecord) error
	// DetailText opens the detail view in a new window, reads its full
	// visible text, closes the window, and returns to the main view.
	DetailText(ctx context.Context) (string, error)
	// Logout clicks the logout control and terminates the browser.
	Logout(ctx context.Context) error
	// ForceClose terminates the browser without logging out. Used on the
	// recovery path where the page state is unknown.
	ForceClose()
}

// PortalFactory opens a fresh authenticated session. debugID names the
// per-submission diagnostics directory when diagnostics mode is enabled.
type PortalFactory interface {
	Open(ctx context.Context, debugID string) (Portal, error)
}

// Deliverer persists a completed payload, forwards it downstream, and
// archives the source queue file.
type Deliverer interface {
	Deliver(ctx context.Context, sourceFile string, payload ResultPayload, debugID string) error
}

// Engine processes one queued submission file end to end.
type Engine interface {
	Process(ctx context.Context, file string) error
}

// Clock returns the current time in the configured schedule timezone.
type Clock interface {
	Now() time.Time
}
