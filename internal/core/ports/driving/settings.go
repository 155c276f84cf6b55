package driving

import "github.com/custodia-labs/sercha-indexer/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get returns the current settings with defaults applied.
	Get() (domain.Settings, error)

	// Set updates one setting by key and persists it.
	Set(key, value string) error

	// Keys returns the recognised setting keys.
	Keys() []string
}
