package keymap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultKeyMap(t *testing.T) {
	km := DefaultKeyMap()

	require.NotNil(t, km)
	assert.Equal(t, []string{"q", "ctrl+c"}, km.Quit.Keys())
	assert.Equal(t, []string{"c"}, km.Connect.Keys())
	assert.Equal(t, []string{"d", "delete"}, km.Disconnect.Keys())
	assert.Equal(t, "refresh tokens", km.RefreshTokens.Help().Desc)
}

func TestMatches(t *testing.T) {
	km := DefaultKeyMap()

	tests := []struct {
		key     string
		binding string
		want    bool
	}{
		{"c", "connect", true},
		{"delete", "disconnect", true},
		{"x", "cancel", true},
		{"k", "up", true},
		{"j", "up", false},
		{"esc", "deny", true},
		{"y", "deny", false},
	}

	for _, tt := range tests {
		t.Run(tt.key+"->"+tt.binding, func(t *testing.T) {
			b := map[string]bool{
				"connect":    Matches(tt.key, km.Connect),
				"disconnect": Matches(tt.key, km.Disconnect),
				"cancel":     Matches(tt.key, km.CancelFlow),
				"up":         Matches(tt.key, km.Up),
				"deny":       Matches(tt.key, km.Deny),
			}
			assert.Equal(t, tt.want, b[tt.binding])
		})
	}
}

func TestHelpGroups(t *testing.T) {
	km := DefaultKeyMap()

	assert.Len(t, km.ShortHelp(), 2)
	assert.Contains(t, km.AccountsHelp(), km.Connect)

	total := 0
	for _, group := range km.FullHelp() {
		total += len(group)
	}
	assert.Equal(t, 11, total)
}
