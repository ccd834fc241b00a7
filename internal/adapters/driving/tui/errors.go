package tui

import "errors"

// ErrMissingLinkService is returned when the link service is not provided.
var ErrMissingLinkService = errors.New("tui: link service is required")

// ErrInvalidPorts is returned when ports validation fails.
var ErrInvalidPorts = errors.New("tui: invalid ports configuration")
