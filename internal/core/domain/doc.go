// Package domain defines the core business entities for linkdeck.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Provider: A canonical third-party platform identifier
//   - ConnectedAccount: The backend's record of a linked account
//   - WindowMessage: A raw message posted by an authorization tab
//   - FlowResult: The settled outcome of a connect or disconnect attempt
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
