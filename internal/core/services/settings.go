package services

import (
	"fmt"
	"os"
	"time"

	"github.com/custodia-labs/workorder-assistant/internal/core/domain"
	"github.com/custodia-labs/workorder-assistant/internal/core/ports/driven"
	"github.com/custodia-labs/workorder-assistant/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyLLMProvider      = "llm.provider"
	keyLLMModel         = "llm.model"
	keyLLMBaseURL       = "llm.base_url"
	keyLLMAPIKey        = "llm.api_key"
	keyLLMTimeout       = "llm.timeout_seconds"
	keyLLMRetryBackoff  = "llm.retry_backoff_ms"
	keyLLMRPS           = "llm.requests_per_second"
	keySessionBackend   = "session.backend"
	keySessionMaxIdle   = "session.max_idle_minutes"
	keySessionHistory   = "session.history_size"
	keyRedisAddr        = "redis.addr"
	keyRedisPassword    = "redis.password"
	keyRedisDB          = "redis.db"
	keyRedisPrefix      = "redis.key_prefix"
	keyNormalize        = "assistant.normalize_threshold"
	keyBonus            = "assistant.bonus_threshold"
	keyNoiseFloor       = "assistant.noise_floor"
	keyBatchSize        = "assistant.batch_size"
	keyMaxCandidates    = "assistant.max_candidates"
	keyDisambiguation   = "assistant.disambiguation_candidates"
	keyShortInputRunes  = "assistant.short_input_runes"
	keyServerAddr       = "server.addr"
	keySchedulerEnabled = "scheduler.enabled"
	keyExpiryMinutes    = "scheduler.session_expiry_minutes"
	keyDataDir          = "data.dir"
	keySeedFile         = "reference.seed_file"
	keySeedWatch        = "reference.watch"
)

// Environment variables that override the config file.
//
//nolint:gosec // G101: These are variable names, not actual credentials.
const (
	EnvLLMAPIKey       = "WORKORDER_LLM_API_KEY"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	validator   driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		getenv:      os.Getenv,
	}
}

// SetAIValidator sets the validator used by ValidateLLMConfig.
func (s *SettingsService) SetAIValidator(v driven.AIConfigValidator) {
	s.validator = v
}

// Get retrieves current application settings with defaults applied
// and environment overrides on top.
func (s *SettingsService) Get() (*domain.Settings, error) {
	defaults := domain.DefaultSettings()
	provider := s.getProvider(defaults.LLM.Provider)

	settings := &domain.Settings{
		LLM: domain.LLMSettings{
			Provider:          provider,
			Model:             s.getString(keyLLMModel, domain.DefaultLLMModels()[provider]),
			BaseURL:           s.configStore.GetString(keyLLMBaseURL), // Empty is valid for cloud providers
			APIKey:            s.apiKey(provider),
			Timeout:           s.getDuration(keyLLMTimeout, time.Second, defaults.LLM.Timeout),
			RetryBackoff:      s.getDuration(keyLLMRetryBackoff, time.Millisecond, defaults.LLM.RetryBackoff),
			RequestsPerSecond: s.getFloat(keyLLMRPS, defaults.LLM.RequestsPerSecond),
		},
		Session: domain.SessionSettings{
			Backend:     s.getBackend(defaults.Session.Backend),
			MaxIdle:     s.getDuration(keySessionMaxIdle, time.Minute, defaults.Session.MaxIdle),
			HistorySize: s.getInt(keySessionHistory, defaults.Session.HistorySize),
		},
		Redis: domain.RedisSettings{
			Addr:      s.getString(keyRedisAddr, defaults.Redis.Addr),
			Password:  s.configStore.GetString(keyRedisPassword),
			DB:        s.configStore.GetInt(keyRedisDB),
			KeyPrefix: s.getString(keyRedisPrefix, defaults.Redis.KeyPrefix),
		},
		Assistant: domain.AssistantSettings{
			NormalizeThreshold:       s.getFloat(keyNormalize, defaults.Assistant.NormalizeThreshold),
			BonusThreshold:           s.getFloat(keyBonus, defaults.Assistant.BonusThreshold),
			CompleteMatchBonus:       defaults.Assistant.CompleteMatchBonus,
			NoiseFloor:               s.getFloat(keyNoiseFloor, defaults.Assistant.NoiseFloor),
			BatchSize:                s.getInt(keyBatchSize, defaults.Assistant.BatchSize),
			MaxCandidates:            s.getInt(keyMaxCandidates, defaults.Assistant.MaxCandidates),
			DisambiguationCandidates: s.getInt(keyDisambiguation, defaults.Assistant.DisambiguationCandidates),
			ShortInputRunes:          s.getInt(keyShortInputRunes, defaults.Assistant.ShortInputRunes),
			HistoryWindow:            defaults.Assistant.HistoryWindow,
		},
		Server: domain.ServerSettings{
			Addr: s.getString(keyServerAddr, defaults.Server.Addr),
		},
		Scheduler: domain.SchedulerConfig{
			Enabled: s.getBool(keySchedulerEnabled, defaults.Scheduler.Enabled),
			TaskConfigs: map[string]domain.TaskConfig{
				domain.TaskIDSessionExpiry: {
					Enabled: true,
					Interval: s.getDuration(keyExpiryMinutes, time.Minute,
						defaults.Scheduler.GetTaskConfig(domain.TaskIDSessionExpiry).Interval),
				},
			},
		},
		Reference: domain.ReferenceSettings{
			SeedFile: s.configStore.GetString(keySeedFile),
			Watch:    s.getBool(keySeedWatch, defaults.Reference.Watch),
		},
		DataDir: s.configStore.GetString(keyDataDir),
	}

	return settings, nil
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" && s.envAPIKey(provider) == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	if model == "" {
		model = domain.DefaultLLMModels()[provider]
	}

	baseURL := ""
	if provider.IsLocal() {
		baseURL = s.getString(keyLLMBaseURL, "http://localhost:11434")
	}

	if err := s.configStore.Set(keyLLMProvider, provider.String()); err != nil {
		return fmt.Errorf("save llm provider: %w", err)
	}
	if err := s.configStore.Set(keyLLMModel, model); err != nil {
		return fmt.Errorf("save llm model: %w", err)
	}
	if err := s.configStore.Set(keyLLMBaseURL, baseURL); err != nil {
		return fmt.Errorf("save llm base_url: %w", err)
	}
	if apiKey != "" {
		if err := s.configStore.Set(keyLLMAPIKey, apiKey); err != nil {
			return fmt.Errorf("save llm api_key: %w", err)
		}
	}
	return nil
}

// SetSessionBackend selects where sessions are stored.
func (s *SettingsService) SetSessionBackend(backend domain.SessionBackend) error {
	if !backend.IsValid() {
		return fmt.Errorf("invalid session backend: %s", backend)
	}
	if err := s.configStore.Set(keySessionBackend, string(backend)); err != nil {
		return fmt.Errorf("save session backend: %w", err)
	}
	return nil
}

// Validate checks that current settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	a := settings.Assistant
	if a.NormalizeThreshold <= 0 || a.NormalizeThreshold > 1 {
		return fmt.Errorf("%s must be in (0,1]: %v", keyNormalize, a.NormalizeThreshold)
	}
	if a.NoiseFloor < 0 || a.NoiseFloor >= 1 {
		return fmt.Errorf("%s must be in [0,1): %v", keyNoiseFloor, a.NoiseFloor)
	}
	if a.BatchSize <= 0 || a.MaxCandidates < a.BatchSize {
		return fmt.Errorf("%s (%d) must be positive and not exceed %s (%d)",
			keyBatchSize, a.BatchSize, keyMaxCandidates, a.MaxCandidates)
	}
	if settings.Session.Backend == domain.SessionBackendRedis && settings.Redis.Addr == "" {
		return fmt.Errorf("session backend redis requires %s", keyRedisAddr)
	}
	return nil
}

// ValidateLLMConfig contacts the configured LLM provider.
// Without a validator only the static settings are checked.
func (s *SettingsService) ValidateLLMConfig() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if !settings.LLM.IsConfigured() {
		return fmt.Errorf("LLM provider %s is not configured: %w", settings.LLM.Provider, domain.ErrLLMUnavailable)
	}
	if s.validator == nil {
		return nil
	}
	if err := s.validator.ValidateLLM(&settings.LLM); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.Settings {
	return domain.DefaultSettings()
}

// apiKey resolves the API key: environment first, then the config file.
func (s *SettingsService) apiKey(provider domain.AIProvider) string {
	if key := s.envAPIKey(provider); key != "" {
		return key
	}
	return s.configStore.GetString(keyLLMAPIKey)
}

func (s *SettingsService) envAPIKey(provider domain.AIProvider) string {
	if key := s.getenv(EnvLLMAPIKey); key != "" {
		return key
	}
	switch provider {
	case domain.AIProviderOpenAI:
		return s.getenv(EnvOpenAIAPIKey)
	case domain.AIProviderAnthropic:
		return s.getenv(EnvAnthropicAPIKey)
	default:
		return ""
	}
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

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, unit, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return time.Duration(val) * unit
}

func (s *SettingsService) getProvider(defaultVal domain.AIProvider) domain.AIProvider {
	provider := domain.AIProvider(s.configStore.GetString(keyLLMProvider))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.SessionBackend) domain.SessionBackend {
	backend := domain.SessionBackend(s.configStore.GetString(keySessionBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}
