package driving

import "context"

// Session owns the per-login state: the account cache and security token.
type Session interface {
	// Init populates the session from the backend.
	// A failed fetch leaves the session usable with an empty snapshot.
	Init(ctx context.Context) error

	// Teardown clears all session state.
	Teardown()
}
