package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/workorder-assistant/internal/app"
	"github.com/custodia-labs/workorder-assistant/internal/core/domain"
	"github.com/custodia-labs/workorder-assistant/internal/core/ports/driving"
)

// openSettings opens only the settings service. Config commands do not
// open the stores.
var openSettings = func(dir string) (driving.SettingsService, error) {
	return app.OpenSettings(dir)
}

var configAnnotations = map[string]string{annotationNoApp: "true"}

var configCmd = &cobra.Command{
	Use:         "config",
	Short:       "Manage application settings",
	Long:        `View and configure the LLM provider, session backend and other options.`,
	Annotations: configAnnotations,
	RunE:        runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:         "show",
	Short:       "Show current settings",
	Annotations: configAnnotations,
	RunE:        runConfigShow,
}

var configLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long: `Configure the LLM provider used for slot extraction, term
disambiguation and work detail drafting. Without a provider the assistant
falls back to keyword matching.`,
	Annotations: configAnnotations,
	RunE:        runConfigLLM,
}

var configSessionCmd = &cobra.Command{
	Use:   "session [memory|redis]",
	Short: "Select the session backend",
	Long: `Select where conversation sessions are kept.

  memory - in-process, lost on restart (default)
  redis  - shared Redis server, see [redis] in config.toml`,
	Args:        cobra.MaximumNArgs(1),
	Annotations: configAnnotations,
	RunE:        runConfigSession,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configLLMCmd)
	configCmd.AddCommand(configSessionCmd)
	rootCmd.AddCommand(configCmd)
}

func configSettings() (driving.SettingsService, error) {
	if settingsService != nil {
		return settingsService, nil
	}
	return openSettings(configDir)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	svc, err := configSettings()
	if err != nil {
		return err
	}

	settings, err := svc.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[LLM]")
	cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.LLM.Model)
	if settings.LLM.Provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
	}
	if settings.LLM.Provider.RequiresAPIKey() {
		if settings.LLM.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(settings.LLM.APIKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	status := "configured"
	if !settings.LLM.IsConfigured() {
		status = "not configured (keyword matching only)"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	cmd.Println("[Session]")
	cmd.Printf("  Backend: %s\n", settings.Session.Backend)
	cmd.Printf("  Max idle: %s\n", settings.Session.MaxIdle)
	cmd.Printf("  History size: %d\n", settings.Session.HistorySize)
	if settings.Session.Backend == domain.SessionBackendRedis {
		cmd.Printf("  Redis: %s (db %d, prefix %q)\n", settings.Redis.Addr, settings.Redis.DB, settings.Redis.KeyPrefix)
	}
	cmd.Println()

	a := settings.Assistant
	cmd.Println("[Assistant]")
	cmd.Printf("  Normalize threshold: %.2f\n", a.NormalizeThreshold)
	cmd.Printf("  Noise floor: %.2f\n", a.NoiseFloor)
	cmd.Printf("  Batch size: %d (max candidates %d)\n", a.BatchSize, a.MaxCandidates)
	cmd.Println()

	cmd.Println("[Reference]")
	if settings.Reference.SeedFile != "" {
		cmd.Printf("  Seed file: %s (watch: %t)\n", settings.Reference.SeedFile, settings.Reference.Watch)
	} else {
		cmd.Println("  Seed file: (built-in)")
	}
	cmd.Println()

	cmd.Println("[Server]")
	cmd.Printf("  Address: %s\n", settings.Server.Addr)
	cmd.Printf("  Scheduler: %t\n", settings.Scheduler.Enabled)
	cmd.Println()

	if err := svc.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Edit config.toml or run 'workorder config' subcommands to fix it.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runConfigLLM(cmd *cobra.Command, _ []string) error {
	svc, err := configSettings()
	if err != nil {
		return err
	}

	in := cmd.InOrStdin()
	return configureLLMProvider(cmd, svc, in, bufio.NewReader(in))
}

func runConfigSession(cmd *cobra.Command, args []string) error {
	svc, err := configSettings()
	if err != nil {
		return err
	}

	backends := []domain.SessionBackend{domain.SessionBackendMemory, domain.SessionBackendRedis}
	var backend domain.SessionBackend
	if len(args) > 0 {
		backend = domain.SessionBackend(args[0])
	} else {
		cmd.Println("Select Session Backend")
		for i, b := range backends {
			cmd.Printf("  %d. %s\n", i+1, b)
		}
		cmd.Print("\nEnter choice [1]: ")
		idx := parseChoice(readLine(bufio.NewReader(cmd.InOrStdin())), len(backends), 1)
		backend = backends[idx-1]
	}

	if err := svc.SetSessionBackend(backend); err != nil {
		return fmt.Errorf("failed to set session backend: %w", err)
	}
	cmd.Printf("Session backend set to: %s\n", backend)
	return nil
}

func configureLLMProvider(cmd *cobra.Command, svc driving.SettingsService, in io.Reader, reader *bufio.Reader) error {
	cmd.Println("Select LLM Provider")
	providers := domain.AllAIProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(providers), 1)
	selectedProvider := providers[idx-1]

	defaultModel := domain.DefaultLLMModels()[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	// An empty key keeps whatever the environment provides.
	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key (empty to use the environment): ")
		apiKey = readPassword(in, reader)
		cmd.Println()
	}

	if err := svc.SetLLMProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	cmd.Print("Validating configuration... ")
	if err := svc.ValidateLLMConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("LLM provider configured: %s (%s)\n\n", selectedProvider.Description(), model)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo from a terminal and falls back to a
// plain line otherwise.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return string(password)
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
