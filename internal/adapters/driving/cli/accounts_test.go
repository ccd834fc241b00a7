package cli

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/linkdeck/internal/core/domain"
)

func TestAccountsCmd_ListsKnownProviders(t *testing.T) {
	link := &mockLinkService{connected: []domain.Provider{domain.ProviderSpotify}}
	setupServices(t, Services{Link: link})

	out, err := execute(t, context.Background(), "accounts")

	require.NoError(t, err)
	assert.Contains(t, out, "PROVIDER")
	assert.Regexp(t, `Spotify\s+connected`, out)
	assert.Regexp(t, `LinkedIn\s+not connected`, out)
	assert.Regexp(t, `X\s+not connected`, out)
	assert.Empty(t, link.Calls(), "no refresh without --refresh")
}

func TestAccountsCmd_IncludesUnknownConnectedProviders(t *testing.T) {
	link := &mockLinkService{connected: []domain.Provider{"github"}}
	setupServices(t, Services{Link: link})

	out, err := execute(t, context.Background(), "accounts")

	require.NoError(t, err)
	assert.Regexp(t, `Github\s+connected`, out)
}

func TestAccountsCmd_Refresh(t *testing.T) {
	link := &mockLinkService{refreshErr: errors.New("timeout")}
	setupServices(t, Services{Link: link})

	out, err := execute(t, context.Background(), "accounts", "--refresh")

	require.NoError(t, err)
	assert.Equal(t, []string{"refresh"}, link.Calls())
	assert.Contains(t, out, "Warning: showing last known accounts: timeout")
}

func TestAccountCmd_Details(t *testing.T) {
	link := &mockLinkService{account: &domain.ConnectedAccount{
		Provider:    string(domain.ProviderLinkedIn),
		Username:    "ada",
		ConnectedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		IsActive:    true,
	}}
	setupServices(t, Services{Link: link})

	out, err := execute(t, context.Background(), "account", "linkedin")

	require.NoError(t, err)
	assert.Contains(t, out, "Provider:   LinkedIn")
	assert.Contains(t, out, "Username:   ada")
	assert.Contains(t, out, "Email:      -")
	assert.Contains(t, out, "Connected:  2025-03-0")
	assert.Contains(t, out, "Active:     true")
}

func TestAccountCmd_NotLinked(t *testing.T) {
	link := &mockLinkService{accountErr: domain.ErrNotFound}
	setupServices(t, Services{Link: link})

	out, err := execute(t, context.Background(), "account", "youtube")

	require.NoError(t, err)
	assert.Contains(t, out, "YouTube is not linked.")
}

func TestAccountCmd_BackendError(t *testing.T) {
	link := &mockLinkService{accountErr: errors.New("502 bad gateway")}
	setupServices(t, Services{Link: link})

	_, err := execute(t, context.Background(), "account", "youtube")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetching youtube account")
}

func TestValueOrDash(t *testing.T) {
	assert.Equal(t, "-", valueOrDash(""))
	assert.Equal(t, "a", valueOrDash("a"))
}
