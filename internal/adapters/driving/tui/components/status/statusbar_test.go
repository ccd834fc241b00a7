package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/linkdeck/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/linkdeck/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/linkdeck/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/linkdeck/internal/core/domain"
)

func TestNewBar(t *testing.T) {
	bar := NewBar(styles.DefaultStyles(), keymap.DefaultKeyMap())

	require.NotNil(t, bar)
	assert.Equal(t, StateReady, bar.State())
	assert.Empty(t, bar.Message())
	assert.Zero(t, bar.Pending())
	assert.Nil(t, bar.Init())
}

func TestNewBar_NilStyles(t *testing.T) {
	bar := NewBar(nil, nil)

	require.NotNil(t, bar)
	assert.NotNil(t, bar.styles)
	assert.NotNil(t, bar.keymap)
}

func TestBar_ViewStates(t *testing.T) {
	tests := []struct {
		name  string
		setup func(b *Bar)
		want  string
	}{
		{name: "ready", setup: func(*Bar) {}, want: "Ready"},
		{name: "loading", setup: func(b *Bar) { b.SetState(StateLoading) }, want: "Loading..."},
		{name: "error", setup: func(b *Bar) {
			b.SetState(StateError)
			b.SetMessage("backend down")
		}, want: "Error: backend down"},
		{name: "pending", setup: func(b *Bar) { b.SetPending(2) }, want: "2 flow(s) waiting"},
		{name: "message", setup: func(b *Bar) { b.SetMessage("Disconnected X") }, want: "Disconnected X"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := NewBar(nil, nil)
			bar.SetWidth(200)
			tt.setup(bar)
			assert.Contains(t, bar.View(), tt.want)
		})
	}
}

func TestBar_SetPendingReturnsToReady(t *testing.T) {
	bar := NewBar(nil, nil)

	bar.SetPending(1)
	assert.Equal(t, StatePending, bar.State())

	bar.SetPending(0)
	assert.Equal(t, StateReady, bar.State())

	bar.SetState(StateError)
	bar.SetPending(0)
	assert.Equal(t, StateError, bar.State(), "an error is not cleared by pending changes")
}

func TestBar_LastFlow(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetWidth(200)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	bar.now = func() time.Time { return now }

	older := domain.NewFlowResult("f1", domain.ProviderX, domain.FlowConnect, domain.OutcomeTimeout, now.Add(-time.Hour))
	older.FinishedAt = now.Add(-30 * time.Minute)
	bar.Update(messages.HistoryLoaded{Flows: []domain.FlowResult{older}})
	require.NotNil(t, bar.LastFlow())
	assert.Contains(t, bar.View(), "Last: X connect, connection timed out (30m0s ago)")

	latest := domain.NewFlowResult("f2", domain.ProviderSpotify, domain.FlowConnect, domain.OutcomeConnected, now)
	latest.FinishedAt = now
	bar.Update(messages.FlowSettled{Result: latest})
	assert.Equal(t, "f2", bar.LastFlow().FlowID)
	assert.Contains(t, bar.View(), "Spotify connect, connected (just now)")

	bar.Update(messages.HistoryLoaded{Flows: []domain.FlowResult{older}})
	assert.Equal(t, "f2", bar.LastFlow().FlowID, "history does not replace a newer flow")
}

func TestBar_Hints(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetWidth(300)

	assert.Contains(t, bar.View(), "q: quit")
	assert.NotContains(t, bar.View(), "c: connect")

	bar.ShowAccountHints(true)
	assert.Contains(t, bar.View(), "c: connect")
}

func TestBar_ClearAndWidth(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetState(StateError)
	bar.SetMessage("oops")
	bar.SetWidth(120)

	bar.Clear()

	assert.Equal(t, StateReady, bar.State())
	assert.Empty(t, bar.Message())
	assert.Equal(t, 120, bar.Width())
}
