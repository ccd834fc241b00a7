package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/linkdeck/internal/core/domain"
	"github.com/custodia-labs/linkdeck/internal/core/ports/driven"
	"github.com/custodia-labs/linkdeck/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	keyBackendURL           = "backend.url"
	keyBackendCSRFHeader    = "backend.csrf_header"
	keyBackendSessionCookie = "backend.session_cookie"
	keyBackendSessionID     = "backend.session_id"
	keyBackendRateLimit     = "backend.rate_limit"
	keyFlowTimeout          = "flow.timeout"
	keyFlowPollInterval     = "flow.poll_interval"
	keyRelayPort            = "relay.port"
	keySchedulerEnabled     = "scheduler.enabled"
)

// Map from task ID to config key (underscore version for TOML).
var taskKeys = map[string]string{
	domain.TaskIDAccountReconcile: "account_reconcile",
	domain.TaskIDTokenRefresh:     "token_refresh",
}

type setting struct {
	key   string
	value any
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Backend: domain.BackendSettings{
			URL:           s.getString(keyBackendURL, defaults.Backend.URL),
			CSRFHeader:    s.getString(keyBackendCSRFHeader, defaults.Backend.CSRFHeader),
			SessionCookie: s.getString(keyBackendSessionCookie, defaults.Backend.SessionCookie),
			SessionID:     s.configStore.GetString(keyBackendSessionID),
			RateLimit:     s.getFloat(keyBackendRateLimit, defaults.Backend.RateLimit),
		},
		Flow: domain.FlowSettings{
			Timeout:      s.getDuration(keyFlowTimeout, defaults.Flow.Timeout),
			PollInterval: s.getDuration(keyFlowPollInterval, defaults.Flow.PollInterval),
		}.Normalised(),
		Relay: domain.RelaySettings{
			Port: s.getInt(keyRelayPort, defaults.Relay.Port),
		},
		Scheduler: s.GetSchedulerConfig(),
	}

	if domain.OriginOf(settings.Backend.URL) == "" {
		return nil, fmt.Errorf("%w: %s must be an absolute URL, got %q",
			domain.ErrInvalidInput, keyBackendURL, settings.Backend.URL)
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []setting{
		{keyBackendURL, settings.Backend.URL},
		{keyBackendCSRFHeader, settings.Backend.CSRFHeader},
		{keyBackendSessionCookie, settings.Backend.SessionCookie},
		{keyBackendRateLimit, settings.Backend.RateLimit},
		{keyFlowTimeout, settings.Flow.Timeout.String()},
		{keyFlowPollInterval, settings.Flow.PollInterval.String()},
		{keyRelayPort, settings.Relay.Port},
		{keySchedulerEnabled, settings.Scheduler.Enabled},
	}
	if settings.Backend.SessionID != "" {
		values = append(values, setting{keyBackendSessionID, settings.Backend.SessionID})
	}
	for taskID, configKey := range taskKeys {
		cfg := settings.Scheduler.GetTaskConfig(taskID)
		prefix := "scheduler." + configKey + "."
		values = append(values,
			setting{prefix + "enabled", cfg.Enabled},
			setting{prefix + "interval", cfg.Interval.String()},
		)
	}

	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}

// Set updates a single setting from its string form.
func (s *SettingsService) Set(key, value string) error {
	value = strings.TrimSpace(value)

	var parsed any
	switch kind := settingKind(key); kind {
	case "string":
		if key == keyBackendURL && domain.OriginOf(value) == "" {
			return fmt.Errorf("%w: %s must be an absolute URL", domain.ErrInvalidInput, key)
		}
		parsed = value
	case "duration":
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return fmt.Errorf("%w: %s must be a positive duration like 45m", domain.ErrInvalidInput, key)
		}
		parsed = d.String()
	case "int":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 || n > 65535 {
			return fmt.Errorf("%w: %s must be a port number", domain.ErrInvalidInput, key)
		}
		parsed = n
	case "float":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("%w: %s must be a non-negative number", domain.ErrInvalidInput, key)
		}
		parsed = f
	case "bool":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be true or false", domain.ErrInvalidInput, key)
		}
		parsed = b
	default:
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	return s.configStore.Set(key, parsed)
}

// Keys lists the settings Set accepts, sorted.
func (s *SettingsService) Keys() []string {
	keys := []string{
		keyBackendURL, keyBackendCSRFHeader, keyBackendSessionCookie, keyBackendSessionID,
		keyBackendRateLimit, keyFlowTimeout, keyFlowPollInterval, keyRelayPort, keySchedulerEnabled,
	}
	for _, configKey := range taskKeys {
		keys = append(keys, "scheduler."+configKey+".enabled", "scheduler."+configKey+".interval")
	}
	sort.Strings(keys)
	return keys
}

func settingKind(key string) string {
	switch key {
	case keyBackendURL, keyBackendCSRFHeader, keyBackendSessionCookie, keyBackendSessionID:
		return "string"
	case keyFlowTimeout, keyFlowPollInterval:
		return "duration"
	case keyRelayPort:
		return "int"
	case keyBackendRateLimit:
		return "float"
	case keySchedulerEnabled:
		return "bool"
	}
	for _, configKey := range taskKeys {
		switch key {
		case "scheduler." + configKey + ".enabled":
			return "bool"
		case "scheduler." + configKey + ".interval":
			return "duration"
		}
	}
	return ""
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// GetSchedulerConfig returns the scheduler configuration.
// Returns default configuration if nothing is configured.
func (s *SettingsService) GetSchedulerConfig() domain.SchedulerConfig {
	defaults := domain.DefaultSchedulerConfig()

	// Master switch
	defaults.Enabled = s.getBool(keySchedulerEnabled, defaults.Enabled)

	for taskID, configKey := range taskKeys {
		prefix := "scheduler." + configKey + "."

		taskCfg := defaults.TaskConfigs[taskID]
		taskCfg.Enabled = s.getBool(prefix+"enabled", taskCfg.Enabled)
		taskCfg.Interval = s.getDuration(prefix+"interval", taskCfg.Interval)

		defaults.TaskConfigs[taskID] = taskCfg
	}

	return defaults
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

// getFloat accepts both TOML floats and integers.
func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val, exists := s.configStore.Get(key)
	if !exists {
		return defaultVal
	}
	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// getDuration parses a duration string like "45m" or "1h".
func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	str := s.configStore.GetString(key)
	if str == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(str)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
