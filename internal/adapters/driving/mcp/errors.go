// Package mcp provides an MCP (Model Context Protocol) server adapter for linkdeck.
// It lets AI assistants list, link and unlink the user's third-party accounts.
package mcp

import "errors"

// ErrMissingLinkService is returned when the link service is not provided.
var ErrMissingLinkService = errors.New("mcp: link service is required")
