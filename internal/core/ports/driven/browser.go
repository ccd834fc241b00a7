package driven

import "context"

// Tab is a handle on a browser tab spawned for an authorization.
type Tab interface {
	// Closed reports whether the tab has been closed.
	// A tab that has not reported in yet is considered open.
	Closed() bool

	// Close asks the tab to close. Closing a closed tab is a no-op.
	Close() error
}

// TabOpener opens new browser tabs.
type TabOpener interface {
	// Open opens rawURL in a new tab named windowName.
	// Returns ErrTabBlocked if the browser refused to open it.
	Open(ctx context.Context, rawURL, windowName string) (Tab, error)
}

// Location exposes the address of the page that started a flow.
// A redirect while a flow is pending means the authorization returned to
// the original page instead of the new tab.
type Location interface {
	// Href returns the current address, including query parameters.
	Href() string

	// Redirects counts authorization returns that navigated the page.
	// It only grows, so a flow compares against the value it saw at start.
	Redirects() uint64
}
