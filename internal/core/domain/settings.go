package domain

import "time"

const unknownDescription = "Unknown"

// Flow timing bounds.
const (
	// DefaultFlowTimeout is the hard ceiling for a connect flow.
	DefaultFlowTimeout = 5 * time.Minute

	// DefaultPollInterval is how often the tab and location are polled.
	DefaultPollInterval = 500 * time.Millisecond

	// MinPollInterval and MaxPollInterval bound the configurable poll interval.
	MinPollInterval = 250 * time.Millisecond
	MaxPollInterval = 1000 * time.Millisecond
)

// BackendSettings configures how the client reaches the backend-of-record.
type BackendSettings struct {
	// URL is the backend base URL, e.g. http://localhost:8000.
	URL string
	// CSRFHeader is the header carrying the security token on mutating requests.
	CSRFHeader string
	// SessionCookie is the name of the backend's session cookie.
	SessionCookie string
	// SessionID seeds the session cookie when set.
	SessionID string
	// RateLimit caps requests per second to the backend. Zero disables throttling.
	RateLimit float64
}

// Origin returns the backend origin that cross-window messages must match.
func (b BackendSettings) Origin() string {
	return OriginOf(b.URL)
}

// FlowSettings configures connect flows.
type FlowSettings struct {
	// Timeout is the hard ceiling after which a flow fails.
	Timeout time.Duration
	// PollInterval is how often tab closure and location changes are checked.
	PollInterval time.Duration
}

// Normalised returns settings with defaults applied and the poll interval clamped.
func (f FlowSettings) Normalised() FlowSettings {
	if f.Timeout <= 0 {
		f.Timeout = DefaultFlowTimeout
	}
	switch {
	case f.PollInterval <= 0:
		f.PollInterval = DefaultPollInterval
	case f.PollInterval < MinPollInterval:
		f.PollInterval = MinPollInterval
	case f.PollInterval > MaxPollInterval:
		f.PollInterval = MaxPollInterval
	}
	return f
}

// RelaySettings configures the loopback relay that receives tab messages.
type RelaySettings struct {
	// Port to listen on. Zero picks a free port.
	Port int
}

// AppSettings is the complete application configuration.
type AppSettings struct {
	Backend   BackendSettings
	Flow      FlowSettings
	Relay     RelaySettings
	Scheduler SchedulerConfig
}

// DefaultAppSettings returns settings with sensible defaults.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Backend: BackendSettings{
			URL:           "http://localhost:8000",
			CSRFHeader:    "X-CSRFToken",
			SessionCookie: "sessionid",
			RateLimit:     5,
		},
		Flow: FlowSettings{
			Timeout:      DefaultFlowTimeout,
			PollInterval: DefaultPollInterval,
		},
		Scheduler: DefaultSchedulerConfig(),
	}
}
