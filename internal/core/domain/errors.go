package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidProvider indicates a provider identifier could not be canonicalised.
	ErrInvalidProvider = errors.New("invalid provider")

	// Flow Errors.

	// ErrAlreadyConnected indicates connect was called for a provider already in the cache.
	ErrAlreadyConnected = errors.New("provider already connected")

	// ErrNotConnected indicates disconnect was called for a provider missing from the cache.
	ErrNotConnected = errors.New("provider not connected")

	// ErrTabBlocked indicates the browser refused to open a new tab.
	ErrTabBlocked = errors.New("browser tab blocked")

	// ErrProviderError indicates the spawned tab reported an authorization error.
	ErrProviderError = errors.New("provider reported an error")

	// ErrCancelled indicates the spawned tab reported that the user cancelled.
	ErrCancelled = errors.New("connection cancelled")

	// ErrTabClosed indicates the tab was closed before any definitive message arrived.
	ErrTabClosed = errors.New("tab closed before completion")

	// ErrTimeout indicates no definitive message arrived before the flow deadline.
	ErrTimeout = errors.New("connection timed out")

	// ErrRedirected indicates the authorization redirected the original page instead of the new tab.
	ErrRedirected = errors.New("authorization redirected the original page")

	// ErrFlowFailed indicates an unexpected failure inside a flow.
	ErrFlowFailed = errors.New("flow failed")

	// Message Errors.
	// These never fail a flow; the message is ignored.

	// ErrOriginMismatch indicates a message came from an origin other than the backend.
	ErrOriginMismatch = errors.New("message origin mismatch")

	// ErrProviderMismatch indicates a structured message was tagged for another provider.
	ErrProviderMismatch = errors.New("message provider mismatch")

	// ErrUnrecognisedMessage indicates a message did not match any known shape.
	ErrUnrecognisedMessage = errors.New("unrecognised message")

	// Backend Errors.

	// ErrBackendRejected indicates an HTTP error or a success:false response.
	ErrBackendRejected = errors.New("backend rejected request")

	// ErrTokenUnavailable indicates no security token could be obtained.
	ErrTokenUnavailable = errors.New("security token unavailable")

	// ErrMalformedResponse indicates the backend returned a body that could not be decoded.
	ErrMalformedResponse = errors.New("malformed backend response")
)
