package services

import (
	"github.com/custodia-labs/workorder-assistant/internal/core/ports/driven"
	"github.com/custodia-labs/workorder-assistant/internal/logger"
)

// loadPrompt loads a prompt from the store, falling back to the built-in default.
func loadPrompt(store driven.PromptStore, name string) string {
	if store != nil {
		prompt, err := store.Load(name)
		if err == nil && prompt != "" {
			return prompt
		}
		logger.Debug("Prompt %q unavailable, using default: %v", name, err)
	}
	return driven.DefaultPrompts[name]
}
