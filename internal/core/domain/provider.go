package domain

import (
	"sort"
	"strings"
)

// Provider identifies a third-party platform a user can link.
// Values are always in canonical (lowercase) form.
type Provider string

// Well-known providers.
const (
	ProviderLinkedIn Provider = "linkedin"
	ProviderYouTube  Provider = "youtube"
	ProviderSpotify  Provider = "spotify"
	ProviderX        Provider = "x"
)

// KnownProviders returns the providers offered in the account views.
func KnownProviders() []Provider {
	return []Provider{ProviderLinkedIn, ProviderYouTube, ProviderSpotify, ProviderX}
}

// ParseProvider canonicalises user or backend input into a Provider.
// Input is trimmed and lowercased; anything outside [a-z0-9_-] is rejected.
func ParseProvider(s string) (Provider, error) {
	p := strings.ToLower(strings.TrimSpace(s))
	if p == "" {
		return "", ErrInvalidProvider
	}
	for _, r := range p {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' && r != '_' {
			return "", ErrInvalidProvider
		}
	}
	return Provider(p), nil
}

// String returns the string representation.
func (p Provider) String() string {
	return string(p)
}

// DisplayName returns a human-readable name for the provider.
func (p Provider) DisplayName() string {
	switch p {
	case ProviderLinkedIn:
		return "LinkedIn"
	case ProviderYouTube:
		return "YouTube"
	case ProviderSpotify:
		return "Spotify"
	case ProviderX:
		return "X"
	default:
		if p == "" {
			return unknownDescription
		}
		return strings.ToUpper(string(p[:1])) + string(p[1:])
	}
}

// WindowName is the browser window name used for the provider's authorization tab.
func (p Provider) WindowName() string {
	return string(p) + "-auth"
}

// ProviderSet is an immutable set of canonical providers.
// A nil or zero ProviderSet is empty. Create one with NewProviderSet.
type ProviderSet struct {
	members map[Provider]struct{}
}

// NewProviderSet builds a set from the given providers.
func NewProviderSet(providers ...Provider) ProviderSet {
	members := make(map[Provider]struct{}, len(providers))
	for _, p := range providers {
		members[p] = struct{}{}
	}
	return ProviderSet{members: members}
}

// Has reports whether p is in the set.
func (s ProviderSet) Has(p Provider) bool {
	_, ok := s.members[p]
	return ok
}

// Len returns the number of providers in the set.
func (s ProviderSet) Len() int {
	return len(s.members)
}

// Slice returns the providers sorted alphabetically.
func (s ProviderSet) Slice() []Provider {
	out := make([]Provider, 0, len(s.members))
	for p := range s.members {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Equal reports whether both sets contain the same providers.
func (s ProviderSet) Equal(other ProviderSet) bool {
	if s.Len() != other.Len() {
		return false
	}
	for p := range s.members {
		if !other.Has(p) {
			return false
		}
	}
	return true
}
