package driving

import "github.com/custodia-labs/workorder-assistant/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings, defaults applied.
	Get() (*domain.Settings, error)

	// SetLLMProvider configures the LLM provider.
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error

	// SetSessionBackend selects where sessions are stored.
	SetSessionBackend(backend domain.SessionBackend) error

	// Validate checks that current settings are usable.
	Validate() error

	// ValidateLLMConfig contacts the configured LLM provider.
	ValidateLLMConfig() error

	// GetDefaults returns default settings.
	GetDefaults() domain.Settings
}
