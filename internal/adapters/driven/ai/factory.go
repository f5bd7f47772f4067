// Package ai provides factory functions for creating LLM service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	anthropicllm "github.com/custodia-labs/workorder-assistant/internal/adapters/driven/llm/anthropic"
	"github.com/custodia-labs/workorder-assistant/internal/adapters/driven/llm/guard"
	ollamallm "github.com/custodia-labs/workorder-assistant/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/workorder-assistant/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/workorder-assistant/internal/core/domain"
	"github.com/custodia-labs/workorder-assistant/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateAndValidateLLMService creates a guarded LLM service and checks
// connectivity. A nil service and nil error mean no provider is configured.
func CreateAndValidateLLMService(
	settings *domain.LLMSettings, metrics driven.MetricsRecorder,
) (driven.LLMService, error) {
	svc, err := CreateLLMService(settings, metrics)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'workorder config llm' to fix",
			domain.ErrLLMUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'workorder config llm' to fix",
			domain.ErrLLMUnavailable, err)
	}
	return svc, nil
}

// ValidateLLMConfig creates a provider and pings it. Used before
// settings are saved.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	svc, err := createProvider(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateLLMService creates the provider adapter for settings wrapped in
// the retry, timeout and rate-limit guard. Returns nil if the provider is
// not configured.
func CreateLLMService(settings *domain.LLMSettings, metrics driven.MetricsRecorder) (driven.LLMService, error) {
	svc, err := createProvider(settings)
	if err != nil || svc == nil {
		return nil, err
	}
	return guard.New(svc, guard.Config{
		Timeout:           settings.Timeout,
		RetryBackoff:      settings.RetryBackoff,
		RequestsPerSecond: settings.RequestsPerSecond,
	}, metrics), nil
}

func createProvider(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("%w: LLM provider %s", domain.ErrUnsupportedType, settings.Provider)
	}
}
