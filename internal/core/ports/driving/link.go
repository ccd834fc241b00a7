package driving

import (
	"context"

	"github.com/custodia-labs/linkdeck/internal/core/domain"
)

// PendingFlow is a connect attempt that has started but may not have settled.
type PendingFlow interface {
	// ID identifies the flow in logs and the flow journal.
	ID() string

	// Provider is the provider being linked.
	Provider() domain.Provider

	// Done is closed once the flow has settled.
	Done() <-chan struct{}

	// Wait blocks until the flow settles and returns its result.
	// Every call returns the same result.
	Wait() domain.FlowResult
}

// LinkService links and unlinks third-party accounts.
// Expected failures are reported through FlowResult, never as errors.
type LinkService interface {
	// Begin starts a connect flow and returns without waiting for it.
	Begin(ctx context.Context, provider domain.Provider) PendingFlow

	// Connect links a provider and blocks until the flow settles.
	Connect(ctx context.Context, provider domain.Provider) domain.FlowResult

	// Disconnect unlinks a provider.
	Disconnect(ctx context.Context, provider domain.Provider) domain.FlowResult

	// RefreshConnectedProviders re-reads the connected accounts from the backend.
	// On failure the previous snapshot is kept and the error returned.
	RefreshConnectedProviders(ctx context.Context) error

	// ConnectedProviders returns the last known snapshot, sorted.
	ConnectedProviders() []domain.Provider

	// AccountDetails returns the backend's record for a linked provider.
	AccountDetails(ctx context.Context, provider domain.Provider) (*domain.ConnectedAccount, error)

	// RefreshProviderTokens asks the backend to refresh a provider's OAuth tokens.
	RefreshProviderTokens(ctx context.Context, provider domain.Provider) domain.FlowResult
}
