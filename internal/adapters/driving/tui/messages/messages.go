// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/linkdeck/internal/core/domain"
)

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewAccounts lists providers and their link state.
	ViewAccounts
	// ViewHistory lists settled flows.
	ViewHistory
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewAccounts:
		return "accounts"
	case ViewHistory:
		return "history"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

// AccountsLoaded carries the connected providers.
// Err is set when a refresh failed; Providers is then the last known snapshot.
type AccountsLoaded struct {
	Providers []domain.Provider
	Err       error
}

// FlowStarted signals a connect flow is pending.
type FlowStarted struct {
	Provider domain.Provider
	FlowID   string
}

// FlowSettled carries the result of a connect, disconnect or token refresh.
type FlowSettled struct {
	Result domain.FlowResult
}

// AccountDetailsLoaded carries one provider's account record.
type AccountDetailsLoaded struct {
	Provider domain.Provider
	Account  *domain.ConnectedAccount
	Err      error
}

// HistoryLoaded carries recent settled flows.
type HistoryLoaded struct {
	Flows []domain.FlowResult
	Err   error
}
