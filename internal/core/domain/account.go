package domain

import (
	"strings"
	"time"
)

// ConnectedAccount is the backend-of-record view of a linked third-party account.
// The client never mutates it; it only reads snapshots.
type ConnectedAccount struct {
	// Provider is the platform identifier as reported by the backend.
	// Use CanonicalProvider before comparing.
	Provider string `json:"provider"`
	// Username on the platform, when the backend knows it.
	Username string `json:"username,omitempty"`
	// Email associated with the linked account, when the backend knows it.
	Email string `json:"email,omitempty"`
	// ConnectedAt is when the account was linked.
	ConnectedAt time.Time `json:"connectedAt"`
	// IsActive reports whether the link is currently usable.
	IsActive bool `json:"isActive"`
}

// CanonicalProvider returns the account's provider in canonical form.
// The boolean is false when the backend sent something unusable.
func (a *ConnectedAccount) CanonicalProvider() (Provider, bool) {
	p, err := ParseProvider(a.Provider)
	if err != nil {
		return "", false
	}
	return p, true
}

// Identifier returns the best human-readable identifier for the account.
func (a *ConnectedAccount) Identifier() string {
	if a.Username != "" {
		return a.Username
	}
	return strings.TrimSpace(a.Email)
}

// ActiveProviders filters a backend snapshot to the canonical providers with IsActive set.
// Entries whose provider cannot be canonicalised are skipped.
func ActiveProviders(accounts []ConnectedAccount) ProviderSet {
	providers := make([]Provider, 0, len(accounts))
	for i := range accounts {
		if !accounts[i].IsActive {
			continue
		}
		if p, ok := accounts[i].CanonicalProvider(); ok {
			providers = append(providers, p)
		}
	}
	return NewProviderSet(providers...)
}
