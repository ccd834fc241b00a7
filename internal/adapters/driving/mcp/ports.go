package mcp

import (
	"github.com/custodia-labs/linkdeck/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Link connects and disconnects accounts.
	Link driving.LinkService

	// History reads settled flows. Optional.
	History driving.HistoryService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Link == nil {
		return ErrMissingLinkService
	}
	return nil
}
