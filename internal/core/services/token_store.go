package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/linkdeck/internal/core/domain"
	"github.com/custodia-labs/linkdeck/internal/core/ports/driven"
	"github.com/custodia-labs/linkdeck/internal/logger"
)

// TokenState is the lifecycle state of the security token.
type TokenState int

// Token states.
const (
	TokenUninitialized TokenState = iota
	TokenFetching
	TokenValid
	TokenUnavailable
)

// String returns the string representation.
func (s TokenState) String() string {
	switch s {
	case TokenUninitialized:
		return "uninitialized"
	case TokenFetching:
		return "fetching"
	case TokenValid:
		return "valid"
	case TokenUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// TokenStore holds the per-session anti-forgery token.
// Every mutating backend call carries the token it hands out.
type TokenStore struct {
	backend driven.LinkBackend

	mu    sync.Mutex
	state TokenState
	token string
}

// NewTokenStore creates an empty token store.
func NewTokenStore(backend driven.LinkBackend) *TokenStore {
	return &TokenStore{backend: backend}
}

// Token returns the cached token. The boolean is false unless the state is TokenValid.
func (s *TokenStore) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != TokenValid {
		return "", false
	}
	return s.token, true
}

// State returns the current token state.
func (s *TokenStore) State() TokenState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Refresh always fetches a new token from the backend.
// On failure the store moves to TokenUnavailable and ErrTokenUnavailable is returned.
func (s *TokenStore) Refresh(ctx context.Context) (string, error) {
	s.mu.Lock()
	s.state = TokenFetching
	s.mu.Unlock()

	token, err := s.backend.FetchSecurityToken(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil || token == "" {
		s.state = TokenUnavailable
		s.token = ""
		if err == nil {
			err = domain.ErrMalformedResponse
		}
		logger.Warn("security token fetch failed: %v", err)
		return "", fmt.Errorf("%w: %w", domain.ErrTokenUnavailable, err)
	}
	s.state = TokenValid
	s.token = token
	logger.Debug("security token refreshed")
	return token, nil
}

// Ensure returns the cached token or performs exactly one Refresh.
// It never retries beyond that single attempt.
func (s *TokenStore) Ensure(ctx context.Context) (string, error) {
	if token, ok := s.Token(); ok {
		return token, nil
	}
	return s.Refresh(ctx)
}

// Invalidate marks the token unusable after the backend rejected a mutating call.
// The next Ensure fetches a new one.
func (s *TokenStore) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.state = TokenUnavailable
}

// Clear resets the store to its initial state.
func (s *TokenStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.state = TokenUninitialized
}
