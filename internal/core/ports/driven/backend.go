package driven

import (
	"context"

	"github.com/custodia-labs/linkdeck/internal/core/domain"
)

// LinkBackend is the backend-of-record for linked accounts.
// It is the only source of truth for connection state; the client never
// infers state without asking it.
type LinkBackend interface {
	// Origin returns the scheme://host[:port] that authorization tabs post from.
	Origin() string

	// AuthorizationURL builds the URL the new tab is opened at.
	// returnURL is where the backend sends the original page if it redirects.
	AuthorizationURL(provider domain.Provider, returnURL string) string

	// ListConnectedAccounts returns the backend's current snapshot.
	// Returns ErrBackendRejected for HTTP errors or success:false responses.
	ListConnectedAccounts(ctx context.Context) ([]domain.ConnectedAccount, error)

	// FetchSecurityToken retrieves a fresh anti-forgery token.
	FetchSecurityToken(ctx context.Context) (string, error)

	// Disconnect unlinks a provider. token is sent in the security token header.
	Disconnect(ctx context.Context, provider domain.Provider, token string) error

	// AccountDetails returns the linked account for a provider.
	// Returns ErrNotFound if the provider is not linked.
	AccountDetails(ctx context.Context, provider domain.Provider) (*domain.ConnectedAccount, error)

	// RefreshProviderTokens asks the backend to refresh the provider's OAuth tokens.
	RefreshProviderTokens(ctx context.Context, provider domain.Provider, token string) error
}
