package domain

import "time"

// FlowKind distinguishes connect and disconnect attempts.
type FlowKind string

// Flow kinds.
const (
	FlowConnect      FlowKind = "connect"
	FlowDisconnect   FlowKind = "disconnect"
	FlowTokenRefresh FlowKind = "token_refresh"
)

// Outcome is the terminal state of a flow.
type Outcome string

// Flow outcomes. Only OutcomeConnected, OutcomeDisconnected and OutcomeRefreshed are successes.
const (
	OutcomeConnected        Outcome = "connected"
	OutcomeDisconnected     Outcome = "disconnected"
	OutcomeRefreshed        Outcome = "refreshed"
	OutcomeAlreadyConnected Outcome = "already_connected"
	OutcomeNotConnected     Outcome = "not_connected"
	OutcomeBlocked          Outcome = "blocked"
	OutcomeProviderError    Outcome = "provider_error"
	OutcomeCancelled        Outcome = "cancelled"
	OutcomeTabClosed        Outcome = "tab_closed"
	OutcomeTimeout          Outcome = "timeout"
	OutcomeRedirected       Outcome = "redirected"
	OutcomeTokenUnavailable Outcome = "token_unavailable"
	OutcomeRejected         Outcome = "rejected"
	OutcomeFailed           Outcome = "failed"
)

// IsSuccess reports whether the outcome represents a successful flow.
func (o Outcome) IsSuccess() bool {
	switch o {
	case OutcomeConnected, OutcomeDisconnected, OutcomeRefreshed:
		return true
	default:
		return false
	}
}

// Err maps the outcome to its sentinel error. Successful outcomes return nil.
func (o Outcome) Err() error {
	switch o {
	case OutcomeConnected, OutcomeDisconnected, OutcomeRefreshed:
		return nil
	case OutcomeAlreadyConnected:
		return ErrAlreadyConnected
	case OutcomeNotConnected:
		return ErrNotConnected
	case OutcomeBlocked:
		return ErrTabBlocked
	case OutcomeProviderError:
		return ErrProviderError
	case OutcomeCancelled:
		return ErrCancelled
	case OutcomeTabClosed:
		return ErrTabClosed
	case OutcomeTimeout:
		return ErrTimeout
	case OutcomeRedirected:
		return ErrRedirected
	case OutcomeTokenUnavailable:
		return ErrTokenUnavailable
	case OutcomeRejected:
		return ErrBackendRejected
	default:
		return ErrFlowFailed
	}
}

// Description returns a short user-facing phrase for the outcome.
func (o Outcome) Description() string {
	switch o {
	case OutcomeConnected:
		return "Connected"
	case OutcomeDisconnected:
		return "Disconnected"
	case OutcomeRefreshed:
		return "Tokens refreshed"
	case OutcomeAlreadyConnected:
		return "Already connected"
	case OutcomeNotConnected:
		return "Not connected"
	case OutcomeBlocked:
		return "Browser blocked the new tab"
	case OutcomeProviderError:
		return "Provider reported an error"
	case OutcomeCancelled, OutcomeTabClosed:
		return "Connection cancelled"
	case OutcomeTimeout:
		return "Connection timed out"
	case OutcomeRedirected:
		return "Authorization opened in the wrong tab"
	case OutcomeTokenUnavailable:
		return "Security token unavailable"
	case OutcomeRejected:
		return "Backend rejected the request"
	default:
		return "Connection failed"
	}
}

// FlowResult is the settled result of one connect, disconnect or token refresh attempt.
type FlowResult struct {
	// FlowID identifies the attempt. Empty for short-circuited attempts.
	FlowID string
	// Provider is the canonical provider the flow targeted.
	Provider Provider
	// Kind is the flow type.
	Kind FlowKind
	// Outcome is the terminal state.
	Outcome Outcome
	// OK is the boolean the UI renders.
	OK bool
	// Detail carries diagnostic text (backend message, provider error).
	Detail string
	// StartedAt is when the attempt began.
	StartedAt time.Time
	// FinishedAt is when the attempt settled.
	FinishedAt time.Time
}

// NewFlowResult builds a result whose OK flag follows the outcome.
func NewFlowResult(id string, p Provider, kind FlowKind, outcome Outcome, started time.Time) FlowResult {
	return FlowResult{
		FlowID:     id,
		Provider:   p,
		Kind:       kind,
		Outcome:    outcome,
		OK:         outcome.IsSuccess(),
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
}

// Err returns the sentinel error for a failed result, or nil.
func (r FlowResult) Err() error {
	return r.Outcome.Err()
}

// Duration returns how long the flow took to settle.
func (r FlowResult) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
