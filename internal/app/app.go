// Package app is the composition root. It reads settings, opens the stores
// they select and wires the core services onto them.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/workorder-assistant/internal/adapters/driven/ai"
	"github.com/custodia-labs/workorder-assistant/internal/adapters/driven/config/file"
	"github.com/custodia-labs/workorder-assistant/internal/adapters/driven/metrics/prometheus"
	"github.com/custodia-labs/workorder-assistant/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/workorder-assistant/internal/adapters/driven/storage/redis"
	"github.com/custodia-labs/workorder-assistant/internal/adapters/driven/storage/seed"
	"github.com/custodia-labs/workorder-assistant/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/workorder-assistant/internal/core/domain"
	"github.com/custodia-labs/workorder-assistant/internal/core/ports/driven"
	"github.com/custodia-labs/workorder-assistant/internal/core/services"
	"github.com/custodia-labs/workorder-assistant/internal/logger"
)

// Options control where the application keeps its files.
type Options struct {
	// ConfigDir holds config.toml and prompts/. Empty means ~/.workorder.
	ConfigDir string

	// SkipLLM leaves the model unconfigured even when settings name one.
	SkipLLM bool

	// InMemory keeps reference data, work orders and task state in memory
	// instead of the SQLite database.
	InMemory bool
}

// referenceStore is the reference data backend: readable by the core and
// replaceable by the seed loader.
type referenceStore interface {
	driven.TermStore
	driven.RecordStore
	driven.ReferenceLoader
	Counts(ctx context.Context) (terms, records int, err error)
}

// App holds the wired services and the resources that must be released.
type App struct {
	Settings        *domain.Settings
	SettingsService *services.SettingsService
	Assistant       *services.Assistant
	WorkOrders      *services.WorkOrderService
	Scheduler       *services.Scheduler
	Metrics         *prometheus.Recorder
	Prompts         *file.PromptStore

	reference  referenceStore
	normalizer *services.TermNormalizer
	llm        driven.LLMService
	closers    []func() error
}

// Open builds the application. The returned App must be closed.
func Open(ctx context.Context, opts Options) (*App, error) {
	settingsService, err := OpenSettings(opts.ConfigDir)
	if err != nil {
		return nil, err
	}

	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	if err := settingsService.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	a := &App{
		Settings:        settings,
		SettingsService: settingsService,
		Metrics:         prometheus.NewRecorder(),
	}
	if err := a.wire(ctx, opts); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// OpenSettings returns the settings service over the config file in
// configDir without opening any store.
func OpenSettings(configDir string) (*services.SettingsService, error) {
	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore)
	settingsService.SetAIValidator(ai.NewConfigValidator())
	return settingsService, nil
}

func (a *App) wire(ctx context.Context, opts Options) error {
	settings := a.Settings

	var (
		workOrders driven.WorkOrderStore
		tasks      driven.SchedulerStore
	)
	if opts.InMemory {
		a.reference = memory.NewReferenceStore()
		workOrders = memory.NewWorkOrderStore()
		tasks = memory.NewSchedulerStore()
		logger.Debug("database: in memory")
	} else {
		dataDir := settings.DataDir
		if dataDir == "" && opts.ConfigDir != "" {
			dataDir = filepath.Join(opts.ConfigDir, "data")
		}
		store, err := sqlite.NewStore(dataDir)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		a.reference = store.ReferenceStore()
		workOrders = store.WorkOrderStore()
		tasks = store.SchedulerStore()
		logger.Debug("database: %s", store.Path())
	}

	if err := a.ensureReference(ctx); err != nil {
		return err
	}

	sessionStore, locker, err := a.openSessionStore(ctx)
	if err != nil {
		return err
	}

	promptDir := ""
	if opts.ConfigDir != "" {
		promptDir = filepath.Join(opts.ConfigDir, "prompts")
	}
	prompts, err := file.NewPromptStore(promptDir)
	if err != nil {
		return fmt.Errorf("opening prompts: %w", err)
	}
	a.Prompts = prompts

	if !opts.SkipLLM {
		llm, err := ai.CreateAndValidateLLMService(&settings.LLM, a.Metrics)
		switch {
		case err != nil:
			logger.Warn("%v; continuing with keyword matching only", err)
		case llm == nil:
			logger.Warn("No LLM provider configured; continuing with keyword matching only")
		default:
			a.llm = llm
			a.closers = append(a.closers, llm.Close)
			logger.Info("LLM: %s", llm.ModelName())
		}
	}

	cfg := settings.Assistant
	sessions := services.NewSessionService(sessionStore, settings.Session, a.Metrics)
	if locker != nil {
		sessions.SetLocker(locker)
	}
	a.normalizer = services.NewTermNormalizer(a.reference, a.llm, cfg)
	a.normalizer.SetPromptStore(prompts)
	parser := services.NewInputParser(a.reference, a.normalizer, a.llm, cfg)
	parser.SetPromptStore(prompts)
	parser.SetRecordStore(a.reference)
	recommender := services.NewRecommendationEngine(a.reference, a.reference, a.Metrics, cfg)

	a.Assistant = services.NewAssistant(
		sessions, parser, recommender, services.NewResponseComposer(),
		a.reference, a.Metrics, settings.Session.MaxIdle,
	)
	a.WorkOrders = services.NewWorkOrderService(sessions, recommender, workOrders, a.llm)
	a.WorkOrders.SetPromptStore(prompts)
	a.Scheduler = services.NewScheduler(settings.Scheduler, tasks, a.Assistant)
	return nil
}

// openSessionStore returns the configured session store. A shared store
// also returns a locker; the in-memory store needs none.
func (a *App) openSessionStore(ctx context.Context) (driven.SessionStore, driven.SessionLocker, error) {
	switch a.Settings.Session.Backend {
	case domain.SessionBackendRedis:
		store, err := redis.Connect(ctx, a.Settings.Redis, a.Settings.Session.MaxIdle)
		if err != nil {
			return nil, nil, fmt.Errorf("opening session store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		logger.Info("Sessions: redis at %s", a.Settings.Redis.Addr)
		return store, store.Locker(redis.DefaultLockTTL), nil
	default:
		return memory.NewSessionStore(), nil, nil
	}
}

// ensureReference loads the configured seed into an empty database.
func (a *App) ensureReference(ctx context.Context) error {
	terms, records, err := a.reference.Counts(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrReferenceData, err)
	}
	if terms > 0 || records > 0 {
		return nil
	}
	data, err := seed.Apply(ctx, a.reference, a.Settings.Reference.SeedFile)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrReferenceData, err)
	}
	logger.Info("Loaded reference data: %d records", len(data.Records))
	return nil
}

// Reseed replaces the reference data with the seed at path (empty means
// the built-in seed) and drops cached normalizations.
func (a *App) Reseed(ctx context.Context, path string) (driven.ReferenceData, error) {
	data, err := seed.Apply(ctx, a.reference, path)
	if err != nil {
		return driven.ReferenceData{}, err
	}
	a.normalizer.Invalidate()
	return data, nil
}

// Watch reloads prompts and, when enabled, the seed file on change.
// It blocks until ctx is cancelled.
func (a *App) Watch(ctx context.Context) error {
	// Loading a prompt creates the prompt directory with its defaults.
	if _, err := a.Prompts.Load(driven.PromptExtraction); err != nil {
		logger.Warn("prompts unavailable: %v", err)
	}

	seedFile := a.Settings.Reference.SeedFile
	paths := []string{a.Prompts.Dir()}
	if a.Settings.Reference.Watch && seedFile != "" {
		paths = append(paths, seedFile)
	}

	w, err := file.NewWatcher(func(path string) {
		if path == filepath.Clean(seedFile) {
			if _, err := a.Reseed(ctx, seedFile); err != nil {
				logger.Error(err, "reloading %s", seedFile)
			}
			return
		}
		a.Prompts.Reload()
		a.normalizer.Invalidate()
	}, paths...)
	if err != nil {
		return err
	}
	w.Run(ctx)
	return nil
}

// LLMEnabled reports whether a model is wired in.
func (a *App) LLMEnabled() bool {
	return a.llm != nil
}

// Close releases every opened resource in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
