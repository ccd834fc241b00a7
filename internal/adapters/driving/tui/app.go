package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/linkdeck/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/linkdeck/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/linkdeck/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/linkdeck/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/linkdeck/internal/adapters/driving/tui/views/accounts"
	"github.com/custodia-labs/linkdeck/internal/adapters/driving/tui/views/history"
	"github.com/custodia-labs/linkdeck/internal/adapters/driving/tui/views/menu"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap
	help   help.Model

	menuView     *menu.View
	accountsView *accounts.View
	historyView  *history.View
	statusBar    *status.Bar

	currentView messages.ViewType
	err         error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		ports:        ports,
		ctx:          context.Background(),
		styles:       s,
		keymap:       km,
		help:         help.New(),
		menuView:     menu.NewView(s),
		accountsView: accounts.NewView(s, km, ports.Link),
		historyView:  history.NewView(s, ports.History),
		statusBar:    status.NewBar(s, km),
		currentView:  messages.ViewMenu,
	}, nil
}

// WithContext sets the context flows and reads run with.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.accountsView.SetContext(ctx)
	a.historyView.SetContext(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("linkdeck"),
		a.historyView.Load(),
	)
}

// Update implements tea.Model.
//
//nolint:gocyclo // central message handler
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		return a.handleKey(msg)

	case messages.ViewChanged:
		a.currentView = msg.View
		a.statusBar.ShowAccountHints(msg.View == messages.ViewAccounts)
		switch msg.View {
		case messages.ViewAccounts:
			return a, a.accountsView.Init()
		case messages.ViewHistory:
			return a, a.historyView.Init()
		case messages.ViewMenu, messages.ViewHelp:
		}
		return a, nil

	case messages.FlowStarted:
		a.statusBar.SetPending(a.accountsView.PendingCount())
		a.statusBar.SetMessage(fmt.Sprintf("Opening %s in your browser...", msg.Provider.DisplayName()))
		return a, nil

	case messages.FlowSettled:
		// Flows outlive view switches, so results always reach the accounts view.
		a.accountsView, cmd = a.accountsView.Update(msg)
		a.statusBar.Update(msg)
		a.statusBar.SetMessage("")
		a.statusBar.SetPending(a.accountsView.PendingCount())
		return a, tea.Batch(cmd, a.historyView.Load())

	case messages.AccountsLoaded, messages.AccountDetailsLoaded, spinner.TickMsg:
		a.accountsView, cmd = a.accountsView.Update(msg)
		return a, cmd

	case messages.HistoryLoaded:
		a.statusBar.Update(msg)
		a.historyView, cmd = a.historyView.Update(msg)
		return a, cmd

	case messages.ErrorOccurred:
		a.err = msg.Err
		a.statusBar.SetState(status.StateError)
		a.statusBar.SetMessage(msg.Err.Error())
		return a, nil

	case messages.Quit:
		return a, tea.Quit
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	if a.statusBar.State() == status.StateError {
		a.statusBar.Clear()
		a.statusBar.SetPending(a.accountsView.PendingCount())
	}

	switch a.currentView {
	case messages.ViewMenu:
		if keymap.Matches(msg.String(), a.keymap.Help) {
			a.currentView = messages.ViewHelp
			return a, nil
		}
		a.menuView, cmd = a.menuView.Update(msg)
	case messages.ViewAccounts:
		a.accountsView, cmd = a.accountsView.Update(msg)
	case messages.ViewHistory:
		a.historyView, cmd = a.historyView.Update(msg)
	case messages.ViewHelp:
		if keymap.Matches(msg.String(), a.keymap.Back) || keymap.Matches(msg.String(), a.keymap.Help) {
			a.currentView = messages.ViewMenu
		}
	}
	return a, cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	var body string
	switch a.currentView {
	case messages.ViewAccounts:
		body = a.accountsView.View()
	case messages.ViewHistory:
		body = a.historyView.View()
	case messages.ViewHelp:
		body = a.viewHelp()
	default:
		body = a.menuView.View()
	}

	// Keep the status bar on the last line.
	lines := strings.Count(body, "\n") + 1
	if pad := a.height - lines - 1; pad > 0 {
		body += strings.Repeat("\n", pad)
	}
	return body + "\n" + a.statusBar.View()
}

// viewHelp renders the help view.
func (a *App) viewHelp() string {
	return a.styles.Title.Render("Help") + "\n\n" +
		a.help.FullHelpView(a.keymap.FullHelp()) + "\n\n" +
		a.styles.Help.Render("[esc] back to menu")
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.help.Width = width
	a.menuView.SetDimensions(width, height)
	a.accountsView.SetDimensions(width, height)
	a.historyView.SetDimensions(width, height)
	a.statusBar.SetWidth(width)
}
