// Package status provides status bar components for the TUI.
package status

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/linkdeck/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/linkdeck/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/linkdeck/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/linkdeck/internal/core/domain"
)

// State represents the current application state for display.
type State string

const (
	StateReady   State = "ready"
	StateLoading State = "loading"
	StateError   State = "error"
	StatePending State = "pending"
)

// Bar displays application status, the last settled flow and keybinding hints.
type Bar struct {
	styles   *styles.Styles
	keymap   *keymap.KeyMap
	state    State
	message  string
	pending  int
	lastFlow *domain.FlowResult
	accounts bool
	width    int
	now      func() time.Time
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles: s,
		keymap: km,
		state:  StateReady,
		width:  80,
		now:    time.Now,
	}
}

// Init initialises the status bar.
func (s *Bar) Init() tea.Cmd {
	return nil
}

// Update records settled flows so the bar can show the latest one.
func (s *Bar) Update(msg tea.Msg) (*Bar, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.FlowSettled:
		result := msg.Result
		s.lastFlow = &result
	case messages.HistoryLoaded:
		if msg.Err == nil && len(msg.Flows) > 0 && s.lastFlow == nil {
			result := msg.Flows[0]
			s.lastFlow = &result
		}
	}
	return s, nil
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	padding := s.width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}

	return s.styles.StatusBar.Width(s.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

// renderLeft renders the state and, when idle, the last settled flow.
func (s *Bar) renderLeft() string {
	switch s.state {
	case StateLoading:
		return s.styles.Muted.Render("Loading...")
	case StateError:
		if s.message != "" {
			return s.styles.Error.Render(fmt.Sprintf("Error: %s", s.message))
		}
		return s.styles.Error.Render("Error")
	case StatePending:
		return s.styles.Warning.Render(fmt.Sprintf("%d flow(s) waiting for the browser", s.pending))
	case StateReady:
	}

	if s.message != "" {
		return s.styles.Normal.Render(s.message)
	}
	if s.lastFlow != nil {
		return s.renderLastFlow()
	}
	return s.styles.Muted.Render("Ready")
}

func (s *Bar) renderLastFlow() string {
	r := s.lastFlow
	when := "just now"
	if !r.FinishedAt.IsZero() {
		if ago := s.now().Sub(r.FinishedAt).Truncate(time.Second); ago >= time.Second {
			when = ago.String() + " ago"
		}
	}
	text := fmt.Sprintf("Last: %s %s, %s (%s)",
		r.Provider.DisplayName(), r.Kind, strings.ToLower(r.Outcome.Description()), when)
	return s.styles.Outcome(r.Outcome).Render(text)
}

// renderRight renders keybinding hints.
func (s *Bar) renderRight() string {
	var bindings []key.Binding
	if s.accounts {
		bindings = s.keymap.AccountsHelp()
	} else {
		bindings = s.keymap.ShortHelp()
	}

	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState sets the current state.
func (s *Bar) SetState(state State) {
	s.state = state
}

// State returns the current state.
func (s *Bar) State() State {
	return s.state
}

// SetMessage sets a custom message.
func (s *Bar) SetMessage(message string) {
	s.message = message
}

// Message returns the current message.
func (s *Bar) Message() string {
	return s.message
}

// SetPending sets the number of pending flows and switches state accordingly.
func (s *Bar) SetPending(n int) {
	s.pending = n
	switch {
	case n > 0:
		s.state = StatePending
	case s.state == StatePending:
		s.state = StateReady
	}
}

// Pending returns the number of pending flows.
func (s *Bar) Pending() int {
	return s.pending
}

// LastFlow returns the most recent settled flow the bar knows about.
func (s *Bar) LastFlow() *domain.FlowResult {
	return s.lastFlow
}

// ShowAccountHints switches the hints to the accounts view bindings.
func (s *Bar) ShowAccountHints(on bool) {
	s.accounts = on
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Width returns the current width.
func (s *Bar) Width() int {
	return s.width
}

// Clear resets the status bar to default state.
func (s *Bar) Clear() {
	s.state = StateReady
	s.message = ""
}
