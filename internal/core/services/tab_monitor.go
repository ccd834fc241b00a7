package services

import (
	"context"
	"time"

	"github.com/custodia-labs/linkdeck/internal/core/ports/driven"
)

// TabMonitor polls a spawned tab until it closes.
type TabMonitor struct {
	interval time.Duration
}

// NewTabMonitor creates a monitor polling at interval.
func NewTabMonitor(interval time.Duration) *TabMonitor {
	return &TabMonitor{interval: interval}
}

// Watch blocks until the tab is closed or ctx is done.
// onClosed runs once if the tab was seen closed first.
func (m *TabMonitor) Watch(ctx context.Context, tab driven.Tab, onClosed func()) {
	if poll(ctx, m.interval, tab.Closed) {
		onClosed()
	}
}

// RedirectGuard detects the original page being navigated away while a flow is pending.
type RedirectGuard struct {
	interval time.Duration
}

// NewRedirectGuard creates a guard polling at interval.
func NewRedirectGuard(interval time.Duration) *RedirectGuard {
	return &RedirectGuard{interval: interval}
}

// Watch blocks until location counts more redirects than since, or ctx is done.
// Redirects that happened before since was read never fire.
// onRedirect receives the address the page was sent to.
func (g *RedirectGuard) Watch(ctx context.Context, location driven.Location, since uint64, onRedirect func(href string)) {
	redirected := func() bool {
		return location.Redirects() > since
	}
	if poll(ctx, g.interval, redirected) {
		onRedirect(location.Href())
	}
}

// poll checks cond every interval. Returns true once cond holds,
// false if ctx ends first.
func poll(ctx context.Context, interval time.Duration, cond func() bool) bool {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if ctx.Err() != nil {
				return false
			}
			if cond() {
				return true
			}
		}
	}
}
