package driven

import "github.com/custodia-labs/workorder-assistant/internal/core/domain"

// AIConfigValidator checks LLM provider settings by contacting the provider.
type AIConfigValidator interface {
	// ValidateLLM pings the configured provider.
	// Returns nil if the configuration is valid or no provider is configured.
	ValidateLLM(config *domain.LLMSettings) error
}
