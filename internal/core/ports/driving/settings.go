package driving

import "github.com/custodia-labs/linkdeck/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// Set updates a single setting from its string form.
	// Returns ErrInvalidInput for unknown keys or unparsable values.
	Set(key, value string) error

	// Keys lists the settings Set accepts.
	Keys() []string

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings
}
