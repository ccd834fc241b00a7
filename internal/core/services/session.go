package services

import (
	"context"

	"github.com/custodia-labs/linkdeck/internal/core/ports/driven"
	"github.com/custodia-labs/linkdeck/internal/core/ports/driving"
	"github.com/custodia-labs/linkdeck/internal/logger"
)

// Ensure Session implements the interface.
var _ driving.Session = (*Session)(nil)

// Session owns the state of one signed-in user: the account cache and the
// security token. It is created once and passed to whatever needs it.
type Session struct {
	cache  *AccountCache
	tokens *TokenStore
}

// NewSession creates an uninitialised session against backend.
func NewSession(backend driven.LinkBackend) *Session {
	return &Session{
		cache:  NewAccountCache(backend),
		tokens: NewTokenStore(backend),
	}
}

// Cache returns the account state cache.
func (s *Session) Cache() *AccountCache {
	return s.cache
}

// Tokens returns the security token store.
func (s *Session) Tokens() *TokenStore {
	return s.tokens
}

// Init fetches the security token and the connected accounts.
// A token failure is not fatal: mutating calls fetch one on demand.
// The returned error is the account fetch failure, if any.
func (s *Session) Init(ctx context.Context) error {
	logger.Section("Session")
	if _, err := s.tokens.Refresh(ctx); err != nil {
		logger.Warn("session started without a security token: %v", err)
	}
	_, err := s.cache.Refresh(ctx)
	return err
}

// Teardown clears the cache and the token.
func (s *Session) Teardown() {
	s.cache.Clear()
	s.tokens.Clear()
	logger.Debug("session torn down")
}
