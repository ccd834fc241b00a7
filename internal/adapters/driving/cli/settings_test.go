package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Empty", input: "", expected: "****"},
		{name: "Short", input: "abc123", expected: "****"},
		{name: "Exactly 8 chars", input: "12345678", expected: "****"},
		{name: "Session ID", input: "k8s2lq0z9x7w6v5u", expected: "k8s2...6v5u"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, maskSecret(tt.input))
		})
	}
}

func TestSettingsShow_Defaults(t *testing.T) {
	setupServices(t, Services{Settings: newSettingsService()})

	out, err := execute(t, context.Background(), "settings", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "[Backend]")
	assert.Contains(t, out, "URL: http://localhost:8000")
	assert.Contains(t, out, "Session ID: (not set)")
	assert.Contains(t, out, "Timeout: 5m0s")
	assert.Contains(t, out, "Poll interval: 500ms")
	assert.Contains(t, out, "Port: auto")
	assert.Contains(t, out, "account-reconcile: enabled, every 15m0s")
	assert.Contains(t, out, "token-refresh: enabled, every 45m0s")
}

func TestSettingsCmd_DefaultsToShow(t *testing.T) {
	setupServices(t, Services{Settings: newSettingsService()})

	out, err := execute(t, context.Background(), "settings")

	require.NoError(t, err)
	assert.Contains(t, out, "Current Settings")
}

func TestSettingsSet(t *testing.T) {
	settings := newSettingsService()
	setupServices(t, Services{Settings: settings})

	out, err := execute(t, context.Background(), "settings", "set", "flow.timeout", "2m")
	require.NoError(t, err)
	assert.Contains(t, out, "flow.timeout = 2m")

	out, err = execute(t, context.Background(), "settings", "set", "backend.session_id", "0123456789abcdef")
	require.NoError(t, err)
	assert.Contains(t, out, "backend.session_id = 0123...cdef")

	out, err = execute(t, context.Background(), "settings", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Timeout: 2m0s")
	assert.Contains(t, out, "Session ID: 0123...cdef")
}

func TestSettingsSet_InvalidListsKeys(t *testing.T) {
	setupServices(t, Services{Settings: newSettingsService()})

	_, err := execute(t, context.Background(), "settings", "set", "search.mode", "hybrid")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "valid keys:")
	assert.Contains(t, err.Error(), "flow.poll_interval")
}

func TestSettings_NotConfigured(t *testing.T) {
	setupServices(t, Services{})

	_, err := execute(t, context.Background(), "settings", "show")
	assert.ErrorIs(t, err, errSettingsNotConfigured)

	_, err = execute(t, context.Background(), "settings", "set", "a", "b")
	assert.ErrorIs(t, err, errSettingsNotConfigured)
}
