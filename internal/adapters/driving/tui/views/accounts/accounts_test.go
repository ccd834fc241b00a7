package accounts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/linkdeck/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/linkdeck/internal/core/domain"
	"github.com/custodia-labs/linkdeck/internal/core/ports/driving"
)

// fakeFlow settles when its context is cancelled or when settle is called.
type fakeFlow struct {
	id       string
	provider domain.Provider
	done     chan struct{}
	once     sync.Once
	result   domain.FlowResult
}

func (f *fakeFlow) ID() string                { return f.id }
func (f *fakeFlow) Provider() domain.Provider { return f.provider }
func (f *fakeFlow) Done() <-chan struct{}     { return f.done }
func (f *fakeFlow) Wait() domain.FlowResult {
	<-f.done
	return f.result
}

func (f *fakeFlow) settle(outcome domain.Outcome) {
	f.once.Do(func() {
		f.result = domain.NewFlowResult(f.id, f.provider, domain.FlowConnect, outcome, time.Now())
		close(f.done)
	})
}

type fakeLink struct {
	mu         sync.Mutex
	connected  []domain.Provider
	refreshErr error
	flows      []*fakeFlow
	calls      []string
	account    *domain.ConnectedAccount
	accountErr error
}

var _ driving.LinkService = (*fakeLink)(nil)

func (f *fakeLink) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeLink) Begin(ctx context.Context, p domain.Provider) driving.PendingFlow {
	f.record("begin:" + string(p))
	flow := &fakeFlow{id: "flow-" + string(p), provider: p, done: make(chan struct{})}
	go func() {
		<-ctx.Done()
		flow.settle(domain.OutcomeCancelled)
	}()
	f.mu.Lock()
	f.flows = append(f.flows, flow)
	f.mu.Unlock()
	return flow
}

func (f *fakeLink) Connect(ctx context.Context, p domain.Provider) domain.FlowResult {
	return f.Begin(ctx, p).Wait()
}

func (f *fakeLink) Disconnect(_ context.Context, p domain.Provider) domain.FlowResult {
	f.record("disconnect:" + string(p))
	return domain.NewFlowResult("", p, domain.FlowDisconnect, domain.OutcomeDisconnected, time.Now())
}

func (f *fakeLink) RefreshConnectedProviders(_ context.Context) error {
	f.record("refresh")
	return f.refreshErr
}

func (f *fakeLink) ConnectedProviders() []domain.Provider {
	return f.connected
}

func (f *fakeLink) AccountDetails(_ context.Context, p domain.Provider) (*domain.ConnectedAccount, error) {
	f.record("details:" + string(p))
	return f.account, f.accountErr
}

func (f *fakeLink) RefreshProviderTokens(_ context.Context, p domain.Provider) domain.FlowResult {
	f.record("tokens:" + string(p))
	return domain.NewFlowResult("", p, domain.FlowTokenRefresh, domain.OutcomeRefreshed, time.Now())
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

// collect runs cmd and flattens batches into their messages.
func collect(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(t, c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func find[T tea.Msg](msgs []tea.Msg) (T, bool) {
	for _, m := range msgs {
		if typed, ok := m.(T); ok {
			return typed, true
		}
	}
	var zero T
	return zero, false
}

func TestNewView_ListsKnownProviders(t *testing.T) {
	view := NewView(nil, nil, &fakeLink{})

	assert.Equal(t, domain.KnownProviders(), view.Providers())
	p, ok := view.SelectedProvider()
	require.True(t, ok)
	assert.Equal(t, domain.ProviderLinkedIn, p)
}

func TestView_InitRefreshesAccounts(t *testing.T) {
	link := &fakeLink{connected: []domain.Provider{domain.ProviderX, "mastodon"}}
	view := NewView(nil, nil, link)

	cmd := view.Init()
	assert.Contains(t, view.View(), "Checking linked accounts...")

	loaded, ok := find[messages.AccountsLoaded](collectWithoutTick(t, cmd))
	require.True(t, ok)
	view.Update(loaded)

	assert.True(t, view.Connected(domain.ProviderX))
	assert.False(t, view.Connected(domain.ProviderSpotify))
	assert.Equal(t, domain.Provider("mastodon"), view.Providers()[len(view.Providers())-1])
	assert.Equal(t, []string{"refresh"}, link.calls)
	assert.Contains(t, view.View(), "connected")
	assert.NotContains(t, view.View(), "Checking linked accounts...")
}

// collectWithoutTick runs the batch from Init but skips the spinner tick,
// which would block for the tick interval.
func collectWithoutTick(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok)
	return collect(t, batch[0])
}

func TestView_RefreshFailureKeepsSnapshot(t *testing.T) {
	link := &fakeLink{connected: []domain.Provider{domain.ProviderX}, refreshErr: errors.New("backend down")}
	view := NewView(nil, nil, link)

	_, cmd := view.Update(keyMsg("r"))
	msgs := collect(t, cmd)
	view.Update(msgs[0])

	assert.True(t, view.Connected(domain.ProviderX))
	assert.EqualError(t, view.Err(), "backend down")
	assert.Contains(t, view.View(), "Showing last known accounts")
}

func TestView_ConnectAndCancel(t *testing.T) {
	link := &fakeLink{}
	view := NewView(nil, nil, link)

	_, cmd := view.Update(keyMsg("c"))
	require.NotNil(t, cmd)
	assert.Equal(t, 1, view.PendingCount())
	assert.Contains(t, view.View(), "waiting for browser")

	// A second connect for the same provider is ignored while pending.
	_, again := view.Update(keyMsg("c"))
	assert.Nil(t, again)

	// Cancel settles the flow; the batch then yields both messages.
	view.Update(keyMsg("x"))
	msgs := collect(t, cmd)

	started, ok := find[messages.FlowStarted](msgs)
	require.True(t, ok)
	assert.Equal(t, "flow-linkedin", started.FlowID)

	settled, ok := find[messages.FlowSettled](msgs)
	require.True(t, ok)
	assert.Equal(t, domain.OutcomeCancelled, settled.Result.Outcome)

	view.Update(settled)
	assert.Zero(t, view.PendingCount())
	last, ok := view.LastResult(domain.ProviderLinkedIn)
	require.True(t, ok)
	assert.Equal(t, domain.OutcomeCancelled, last.Outcome)
	assert.Contains(t, view.View(), "Connection cancelled")
}

func TestView_ConcurrentFlowsForDifferentProviders(t *testing.T) {
	link := &fakeLink{}
	view := NewView(nil, nil, link)

	view.Update(keyMsg("c"))
	view.Update(keyMsg("j"))
	view.Update(keyMsg("c"))

	assert.Equal(t, 2, view.PendingCount())
	require.Len(t, link.flows, 2)

	link.flows[1].settle(domain.OutcomeConnected)
	view.Update(messages.FlowSettled{Result: link.flows[1].Wait()})

	assert.Equal(t, 1, view.PendingCount(), "the other provider's flow is untouched")
	link.flows[0].settle(domain.OutcomeTimeout)
}

func TestView_DisconnectNeedsConfirmation(t *testing.T) {
	link := &fakeLink{connected: []domain.Provider{domain.ProviderLinkedIn}}
	view := NewView(nil, nil, link)
	view.Update(messages.AccountsLoaded{Providers: link.connected})

	_, cmd := view.Update(keyMsg("d"))
	assert.Nil(t, cmd)
	assert.Contains(t, view.View(), "Disconnect LinkedIn?")

	_, cmd = view.Update(keyMsg("n"))
	assert.Nil(t, cmd)
	assert.NotContains(t, view.View(), "Disconnect LinkedIn?")
	assert.Empty(t, link.calls)

	view.Update(keyMsg("d"))
	_, cmd = view.Update(keyMsg("y"))
	require.NotNil(t, cmd)
	assert.Contains(t, view.View(), "working")

	msgs := collect(t, cmd)
	view.Update(msgs[0])
	assert.Equal(t, []string{"disconnect:linkedin"}, link.calls)
	assert.Contains(t, view.View(), "Disconnected")
}

func TestView_RefreshTokens(t *testing.T) {
	link := &fakeLink{}
	view := NewView(nil, nil, link)

	_, cmd := view.Update(keyMsg("t"))
	msgs := collect(t, cmd)
	settled, ok := find[messages.FlowSettled](msgs)
	require.True(t, ok)
	assert.Equal(t, domain.OutcomeRefreshed, settled.Result.Outcome)
}

func TestView_Details(t *testing.T) {
	link := &fakeLink{account: &domain.ConnectedAccount{
		Provider: "linkedin", Username: "ada", Email: "ada@example.com", IsActive: true,
	}}
	view := NewView(nil, nil, link)

	_, cmd := view.Update(keyMsg("enter"))
	assert.Contains(t, view.View(), "Loading...")

	view.Update(collect(t, cmd)[0])
	output := view.View()
	assert.Contains(t, output, "Username:  ada")
	assert.Contains(t, output, "ada@example.com")

	// Esc closes the details before leaving the view.
	_, cmd = view.Update(keyMsg("esc"))
	assert.Nil(t, cmd)
	assert.NotContains(t, view.View(), "Username:")

	_, cmd = view.Update(keyMsg("esc"))
	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewMenu}, cmd())
}

func TestView_DetailsNotLinked(t *testing.T) {
	view := NewView(nil, nil, &fakeLink{accountErr: domain.ErrNotFound})

	_, cmd := view.Update(keyMsg("enter"))
	view.Update(collect(t, cmd)[0])

	assert.Contains(t, view.View(), "Not linked.")
}

func TestView_NavigationBounds(t *testing.T) {
	view := NewView(nil, nil, &fakeLink{})

	view.Update(keyMsg("k"))
	p, _ := view.SelectedProvider()
	assert.Equal(t, domain.ProviderLinkedIn, p)

	for i := 0; i < 10; i++ {
		view.Update(keyMsg("j"))
	}
	p, _ = view.SelectedProvider()
	assert.Equal(t, domain.ProviderX, p)
}
