package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an LLM service provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if the provider runs on the local machine.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// AllAIProviders returns the supported providers in menu order.
func AllAIProviders() []AIProvider {
	return []AIProvider{AIProviderOpenAI, AIProviderAnthropic, AIProviderOllama}
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or compatible APIs).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string

	// Timeout bounds a single completion attempt.
	Timeout time.Duration

	// RetryBackoff is the pause before the single retry.
	RetryBackoff time.Duration

	// RequestsPerSecond limits outbound calls. Zero disables limiting.
	RequestsPerSecond float64
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// SessionBackend selects where sessions are kept.
type SessionBackend string

// Available session backends.
const (
	SessionBackendMemory SessionBackend = "memory"
	SessionBackendRedis  SessionBackend = "redis"
)

// IsValid returns true if the backend is recognised.
func (b SessionBackend) IsValid() bool {
	return b == SessionBackendMemory || b == SessionBackendRedis
}

// SessionSettings holds session lifecycle configuration.
type SessionSettings struct {
	Backend     SessionBackend
	MaxIdle     time.Duration
	HistorySize int
}

// RedisSettings holds the external key-value store configuration.
type RedisSettings struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// AssistantSettings holds the tunable thresholds of the pipeline.
type AssistantSettings struct {
	// NormalizeThreshold is the lexical similarity accepted without the model.
	NormalizeThreshold float64

	// BonusThreshold is the per-field similarity all four fields must exceed for the bonus.
	BonusThreshold float64

	// CompleteMatchBonus is added to the score of a complete match.
	CompleteMatchBonus float64

	// NoiseFloor discards candidates scoring at or below it.
	NoiseFloor float64

	// BatchSize is the number of recommendations shown at once.
	BatchSize int

	// MaxCandidates is the largest set that is still ranked.
	MaxCandidates int

	// DisambiguationCandidates is the number of lexical candidates offered to the model.
	DisambiguationCandidates int

	// ShortInputRunes is the length at or below which a turn may continue context.
	ShortInputRunes int

	// HistoryWindow is the number of prior messages embedded in the extraction prompt.
	HistoryWindow int
}

// ServerSettings holds HTTP transport configuration.
type ServerSettings struct {
	Addr string
}

// ReferenceSettings holds reference data loading configuration.
type ReferenceSettings struct {
	// SeedFile is a YAML file with vocabulary and records. Empty uses the built-in seed.
	SeedFile string

	// Watch reloads the seed file when it changes.
	Watch bool
}

// Settings holds all application settings.
type Settings struct {
	LLM       LLMSettings
	Session   SessionSettings
	Redis     RedisSettings
	Assistant AssistantSettings
	Server    ServerSettings
	Scheduler SchedulerConfig
	Reference ReferenceSettings
	DataDir   string
}

// DefaultAssistantSettings returns the standard pipeline thresholds.
func DefaultAssistantSettings() AssistantSettings {
	return AssistantSettings{
		NormalizeThreshold:       0.85,
		BonusThreshold:           0.9,
		CompleteMatchBonus:       0.1,
		NoiseFloor:               0.2,
		BatchSize:                5,
		MaxCandidates:            15,
		DisambiguationCandidates: 5,
		ShortInputRunes:          20,
		HistoryWindow:            3,
	}
}

// DefaultSettings returns settings with sensible defaults.
// The LLM provider is left unconfigured until an API key is supplied.
func DefaultSettings() Settings {
	return Settings{
		LLM: LLMSettings{
			Provider:          AIProviderOpenAI,
			Timeout:           30 * time.Second,
			RetryBackoff:      250 * time.Millisecond,
			RequestsPerSecond: 5,
		},
		Session: SessionSettings{
			Backend:     SessionBackendMemory,
			MaxIdle:     30 * time.Minute,
			HistorySize: 10,
		},
		Redis: RedisSettings{
			Addr:      "localhost:6379",
			KeyPrefix: "workorder:session:",
		},
		Assistant: DefaultAssistantSettings(),
		Server: ServerSettings{
			Addr: ":8080",
		},
		Scheduler: DefaultSchedulerConfig(),
	}
}

// DefaultLLMModels returns the model used when none is configured.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-haiku-latest",
	}
}
