// Package accounts provides the linked accounts view for the TUI.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/linkdeck/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/linkdeck/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/linkdeck/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/linkdeck/internal/core/domain"
	"github.com/custodia-labs/linkdeck/internal/core/ports/driving"
)

// pendingConnect is a connect flow waiting on the browser.
type pendingConnect struct {
	id     string
	cancel context.CancelFunc
}

// View lists providers with their link state and drives flows for them.
type View struct {
	styles *styles.Styles
	keymap *keymap.KeyMap
	link   driving.LinkService
	ctx    context.Context

	providers []domain.Provider
	connected domain.ProviderSet
	pending   map[domain.Provider]*pendingConnect
	busy      map[domain.Provider]bool
	results   map[domain.Provider]domain.FlowResult

	confirm    domain.Provider
	details    *domain.ConnectedAccount
	detailsFor domain.Provider
	detailsErr error

	spinner  spinner.Model
	selected int
	width    int
	height   int
	loading  bool
	err      error
}

// NewView creates a new accounts view.
func NewView(s *styles.Styles, km *keymap.KeyMap, link driving.LinkService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = s.Pending

	v := &View{
		styles:  s,
		keymap:  km,
		link:    link,
		ctx:     context.Background(),
		pending: make(map[domain.Provider]*pendingConnect),
		busy:    make(map[domain.Provider]bool),
		results: make(map[domain.Provider]domain.FlowResult),
		spinner: sp,
		width:   80,
		height:  24,
	}
	v.setConnected(nil)
	return v
}

// SetContext sets the context flows are started with.
func (v *View) SetContext(ctx context.Context) {
	v.ctx = ctx
}

// Init re-reads the connected accounts and starts the spinner.
func (v *View) Init() tea.Cmd {
	v.loading = true
	return tea.Batch(v.loadAccounts(true), v.spinner.Tick)
}

// loadAccounts returns a command that reads the connected providers.
// With refresh set the backend is asked first; on failure the last snapshot is kept.
func (v *View) loadAccounts(refresh bool) tea.Cmd {
	ctx := v.ctx
	return func() tea.Msg {
		var err error
		if refresh {
			err = v.link.RefreshConnectedProviders(ctx)
		}
		return messages.AccountsLoaded{Providers: v.link.ConnectedProviders(), Err: err}
	}
}

// Update handles messages for the accounts view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case messages.AccountsLoaded:
		v.loading = false
		v.err = msg.Err
		v.setConnected(msg.Providers)
		return v, nil

	case messages.FlowSettled:
		p := msg.Result.Provider
		if pc, ok := v.pending[p]; ok && (msg.Result.FlowID == "" || pc.id == msg.Result.FlowID) {
			pc.cancel()
			delete(v.pending, p)
		}
		delete(v.busy, p)
		v.results[p] = msg.Result
		return v, v.loadAccounts(false)

	case messages.AccountDetailsLoaded:
		if msg.Provider == v.detailsFor {
			v.details = msg.Account
			v.detailsErr = msg.Err
		}
		return v, nil
	}

	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	keyStr := msg.String()

	if v.confirm != "" {
		p := v.confirm
		switch {
		case keymap.Matches(keyStr, v.keymap.Confirm):
			v.confirm = ""
			return v, v.disconnect(p)
		case keymap.Matches(keyStr, v.keymap.Deny):
			v.confirm = ""
		}
		return v, nil
	}

	switch {
	case keymap.Matches(keyStr, v.keymap.Back):
		if v.detailsFor != "" {
			v.closeDetails()
			return v, nil
		}
		return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewMenu} }
	case keymap.Matches(keyStr, v.keymap.Up):
		if v.selected > 0 {
			v.selected--
			v.closeDetails()
		}
	case keymap.Matches(keyStr, v.keymap.Down):
		if v.selected < len(v.providers)-1 {
			v.selected++
			v.closeDetails()
		}
	case keymap.Matches(keyStr, v.keymap.Reload):
		v.loading = true
		return v, v.loadAccounts(true)
	}

	p, ok := v.SelectedProvider()
	if !ok {
		return v, nil
	}

	switch {
	case keymap.Matches(keyStr, v.keymap.Connect):
		return v, v.connect(p)
	case keymap.Matches(keyStr, v.keymap.Disconnect):
		if !v.isBusy(p) {
			v.confirm = p
		}
	case keymap.Matches(keyStr, v.keymap.CancelFlow):
		if pc, ok := v.pending[p]; ok {
			pc.cancel()
		}
	case keymap.Matches(keyStr, v.keymap.RefreshTokens):
		return v, v.refreshTokens(p)
	case keymap.Matches(keyStr, v.keymap.Select):
		return v, v.loadDetails(p)
	}

	return v, nil
}

// connect starts a connect flow and returns a command that waits for it.
func (v *View) connect(p domain.Provider) tea.Cmd {
	if v.isBusy(p) {
		return nil
	}

	ctx, cancel := context.WithCancel(v.ctx)
	flow := v.link.Begin(ctx, p)
	v.pending[p] = &pendingConnect{id: flow.ID(), cancel: cancel}

	started := func() tea.Msg { return messages.FlowStarted{Provider: p, FlowID: flow.ID()} }
	wait := func() tea.Msg { return messages.FlowSettled{Result: flow.Wait()} }
	return tea.Batch(started, wait)
}

func (v *View) disconnect(p domain.Provider) tea.Cmd {
	if v.isBusy(p) {
		return nil
	}
	v.busy[p] = true
	ctx := v.ctx
	return func() tea.Msg {
		return messages.FlowSettled{Result: v.link.Disconnect(ctx, p)}
	}
}

func (v *View) refreshTokens(p domain.Provider) tea.Cmd {
	if v.isBusy(p) {
		return nil
	}
	v.busy[p] = true
	ctx := v.ctx
	return func() tea.Msg {
		return messages.FlowSettled{Result: v.link.RefreshProviderTokens(ctx, p)}
	}
}

func (v *View) loadDetails(p domain.Provider) tea.Cmd {
	v.detailsFor = p
	v.details = nil
	v.detailsErr = nil
	ctx := v.ctx
	return func() tea.Msg {
		account, err := v.link.AccountDetails(ctx, p)
		return messages.AccountDetailsLoaded{Provider: p, Account: account, Err: err}
	}
}

func (v *View) closeDetails() {
	v.detailsFor = ""
	v.details = nil
	v.detailsErr = nil
}

func (v *View) isBusy(p domain.Provider) bool {
	_, pending := v.pending[p]
	return pending || v.busy[p]
}

// setConnected replaces the snapshot. The list always shows the known
// providers, followed by any other provider the backend reports.
func (v *View) setConnected(providers []domain.Provider) {
	v.connected = domain.NewProviderSet(providers...)

	list := domain.KnownProviders()
	known := domain.NewProviderSet(list...)
	for _, p := range v.connected.Slice() {
		if !known.Has(p) {
			list = append(list, p)
		}
	}
	v.providers = list
	if v.selected >= len(v.providers) {
		v.selected = len(v.providers) - 1
	}
}

// View renders the accounts view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Accounts"))
	b.WriteString("\n\n")

	if v.loading {
		b.WriteString(v.styles.Muted.Render("Checking linked accounts..."))
		b.WriteString("\n\n")
	} else if v.err != nil {
		b.WriteString(v.styles.Warning.Render(fmt.Sprintf("Showing last known accounts: %v", v.err)))
		b.WriteString("\n\n")
	}

	for i, p := range v.providers {
		b.WriteString(v.renderRow(i, p))
		b.WriteString("\n")
	}

	if v.confirm != "" {
		b.WriteString("\n")
		b.WriteString(v.styles.Warning.Render(
			fmt.Sprintf("Disconnect %s? [y] yes  [n] no", v.confirm.DisplayName())))
		b.WriteString("\n")
	}

	if v.detailsFor != "" {
		b.WriteString("\n")
		b.WriteString(v.renderDetails())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render(
		"[c] connect  [d] disconnect  [x] cancel  [t] refresh tokens  [enter] details  [r] reload  [esc] back"))

	return b.String()
}

func (v *View) renderRow(index int, p domain.Provider) string {
	cursor := "  "
	name := v.styles.Normal.Render(fmt.Sprintf("%-10s", p.DisplayName()))
	if index == v.selected {
		cursor = "> "
		name = v.styles.Subtitle.Render(fmt.Sprintf("%-10s", p.DisplayName()))
	}

	var state string
	switch {
	case v.pending[p] != nil:
		state = v.spinner.View() + v.styles.Pending.Render("waiting for browser")
	case v.busy[p]:
		state = v.spinner.View() + v.styles.Pending.Render("working")
	case v.connected.Has(p):
		state = v.styles.Connected.Render("connected")
	default:
		state = v.styles.Disconnected.Render("not connected")
	}

	line := cursor + name + " " + state
	if r, ok := v.results[p]; ok && !v.isBusy(p) {
		text := r.Outcome.Description()
		if r.Detail != "" {
			text += ": " + r.Detail
		}
		line += "  " + v.styles.Outcome(r.Outcome).Render(text)
	}
	return line
}

func (v *View) renderDetails() string {
	var b strings.Builder
	b.WriteString(v.styles.Subtitle.Render(v.detailsFor.DisplayName()))
	b.WriteString("\n")

	switch {
	case errors.Is(v.detailsErr, domain.ErrNotFound):
		b.WriteString(v.styles.Muted.Render("  Not linked."))
	case v.detailsErr != nil:
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("  Error: %v", v.detailsErr)))
	case v.details == nil:
		b.WriteString(v.styles.Muted.Render("  Loading..."))
	default:
		a := v.details
		if a.Username != "" {
			b.WriteString(fmt.Sprintf("  Username:  %s\n", a.Username))
		}
		if a.Email != "" {
			b.WriteString(fmt.Sprintf("  Email:     %s\n", a.Email))
		}
		if !a.ConnectedAt.IsZero() {
			b.WriteString(fmt.Sprintf("  Linked:    %s\n", a.ConnectedAt.Local().Format(time.DateTime)))
		}
		b.WriteString(fmt.Sprintf("  Active:    %t", a.IsActive))
	}
	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
}

// SelectedProvider returns the provider under the cursor.
func (v *View) SelectedProvider() (domain.Provider, bool) {
	if v.selected < 0 || v.selected >= len(v.providers) {
		return "", false
	}
	return v.providers[v.selected], true
}

// Providers returns the providers listed, in display order.
func (v *View) Providers() []domain.Provider {
	return v.providers
}

// Connected reports whether the last snapshot lists p.
func (v *View) Connected(p domain.Provider) bool {
	return v.connected.Has(p)
}

// PendingCount returns the number of flows waiting on the browser.
func (v *View) PendingCount() int {
	return len(v.pending)
}

// LastResult returns the last settled flow for p.
func (v *View) LastResult(p domain.Provider) (domain.FlowResult, bool) {
	r, ok := v.results[p]
	return r, ok
}

// Err returns the last refresh error.
func (v *View) Err() error {
	return v.err
}
