// Package tui provides an interactive terminal user interface for linkdeck.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/linkdeck/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Link connects and disconnects accounts.
	Link driving.LinkService

	// History reads settled flows. Optional; the history view and the
	// status bar's last-flow line are empty without it.
	History driving.HistoryService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Link == nil {
		return ErrMissingLinkService
	}
	return nil
}
