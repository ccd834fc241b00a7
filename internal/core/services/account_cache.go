package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/linkdeck/internal/core/domain"
	"github.com/custodia-labs/linkdeck/internal/core/ports/driven"
	"github.com/custodia-labs/linkdeck/internal/logger"
)

// accountSnapshot is replaced wholesale on every successful fetch.
type accountSnapshot struct {
	providers domain.ProviderSet
	accounts  []domain.ConnectedAccount
	fetchedAt time.Time
}

var emptySnapshot = &accountSnapshot{providers: domain.NewProviderSet()}

// AccountCache mirrors which providers the backend reports as actively linked.
// The snapshot is only ever the result of the last successful fetch.
type AccountCache struct {
	backend driven.LinkBackend

	// refreshMu serialises fetches so an older response never overwrites a newer one.
	refreshMu sync.Mutex
	current   atomic.Pointer[accountSnapshot]
}

// NewAccountCache creates an empty cache.
func NewAccountCache(backend driven.LinkBackend) *AccountCache {
	c := &AccountCache{backend: backend}
	c.current.Store(emptySnapshot)
	return c
}

// Refresh re-reads the connected accounts from the backend.
// On failure the previous snapshot is kept and returned together with the error.
func (c *AccountCache) Refresh(ctx context.Context) (domain.ProviderSet, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	accounts, err := c.backend.ListConnectedAccounts(ctx)
	if err != nil {
		prev := c.current.Load()
		logger.Warn("connected accounts refresh failed, keeping %d cached providers: %v", prev.providers.Len(), err)
		return prev.providers, err
	}

	next := &accountSnapshot{
		providers: domain.ActiveProviders(accounts),
		accounts:  append([]domain.ConnectedAccount(nil), accounts...),
		fetchedAt: time.Now(),
	}
	c.current.Store(next)
	logger.Debug("connected providers: %v", next.providers.Slice())
	return next.providers, nil
}

// Current returns the last known snapshot.
func (c *AccountCache) Current() domain.ProviderSet {
	return c.current.Load().providers
}

// Accounts returns a copy of the accounts from the last successful fetch.
func (c *AccountCache) Accounts() []domain.ConnectedAccount {
	return append([]domain.ConnectedAccount(nil), c.current.Load().accounts...)
}

// FetchedAt returns when the snapshot was fetched. Zero if never.
func (c *AccountCache) FetchedAt() time.Time {
	return c.current.Load().fetchedAt
}

// Clear drops the snapshot.
func (c *AccountCache) Clear() {
	c.current.Store(emptySnapshot)
}
