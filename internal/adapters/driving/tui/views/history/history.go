// Package history provides the flow history view for the TUI.
package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/linkdeck/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/linkdeck/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/linkdeck/internal/core/domain"
	"github.com/custodia-labs/linkdeck/internal/core/ports/driving"
)

// Limit is how many flows the view loads.
const Limit = 50

// View lists recent settled flows, most recent first.
type View struct {
	styles  *styles.Styles
	history driving.HistoryService
	ctx     context.Context

	flows   []domain.FlowResult
	offset  int
	width   int
	height  int
	loading bool
	err     error
}

// NewView creates a new history view. history may be nil.
func NewView(s *styles.Styles, history driving.HistoryService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:  s,
		history: history,
		ctx:     context.Background(),
		width:   80,
		height:  24,
	}
}

// SetContext sets the context history is read with.
func (v *View) SetContext(ctx context.Context) {
	v.ctx = ctx
}

// Init loads the history.
func (v *View) Init() tea.Cmd {
	if v.history == nil {
		return nil
	}
	v.loading = true
	return v.Load()
}

// Load returns a command that reads recent flows.
func (v *View) Load() tea.Cmd {
	if v.history == nil {
		return nil
	}
	ctx := v.ctx
	return func() tea.Msg {
		flows, err := v.history.Recent(ctx, Limit)
		return messages.HistoryLoaded{Flows: flows, Err: err}
	}
}

// Update handles messages for the history view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)

	case messages.HistoryLoaded:
		v.loading = false
		v.err = msg.Err
		if msg.Err == nil {
			v.flows = msg.Flows
			v.offset = 0
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewMenu} }
		case "up", "k":
			if v.offset > 0 {
				v.offset--
			}
		case "down", "j":
			if v.offset < len(v.flows)-v.visibleRows() {
				v.offset++
			}
		case "r":
			v.loading = v.history != nil
			return v, v.Load()
		}
	}
	return v, nil
}

// visibleRows is how many flow lines fit under the title and footer.
func (v *View) visibleRows() int {
	rows := v.height - 8
	if rows < 3 {
		rows = 3
	}
	return rows
}

// View renders the history view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("History"))
	b.WriteString("\n\n")

	switch {
	case v.history == nil:
		b.WriteString(v.styles.Muted.Render("Flow history is not available."))
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading history..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %v", v.err)))
	case len(v.flows) == 0:
		b.WriteString(v.styles.Muted.Render("No flows yet."))
	default:
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("%-19s  %-10s  %-13s  %-8s  %s",
			"FINISHED", "PROVIDER", "KIND", "TOOK", "OUTCOME")))
		b.WriteString("\n")
		end := v.offset + v.visibleRows()
		if end > len(v.flows) {
			end = len(v.flows)
		}
		for i := v.offset; i < end; i++ {
			b.WriteString(v.renderFlow(&v.flows[i]))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render("[j/k] scroll  [r] reload  [esc] back"))
	return b.String()
}

func (v *View) renderFlow(r *domain.FlowResult) string {
	finished := "-"
	if !r.FinishedAt.IsZero() {
		finished = r.FinishedAt.Local().Format(time.DateTime)
	}
	took := r.Duration().Round(100 * time.Millisecond).String()

	outcome := r.Outcome.Description()
	if r.Detail != "" {
		outcome += ": " + r.Detail
	}

	return fmt.Sprintf("%-19s  %-10s  %-13s  %-8s  ", finished, r.Provider.DisplayName(), r.Kind, took) +
		v.styles.Outcome(r.Outcome).Render(outcome)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
}

// Flows returns the loaded flows.
func (v *View) Flows() []domain.FlowResult {
	return v.flows
}

// Err returns the last load error.
func (v *View) Err() error {
	return v.err
}
