package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lpernett/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/workorder-assistant/internal/app"
	"github.com/custodia-labs/workorder-assistant/internal/core/ports/driven"
	"github.com/custodia-labs/workorder-assistant/internal/core/ports/driving"
	"github.com/custodia-labs/workorder-assistant/internal/logger"
)

// version is set at build time.
var version = "dev"

// Persistent flags.
var (
	verbose   bool
	logLevel  string
	configDir string
	envFile   string
	inMemory  bool
)

// Services used by the commands. They are filled from the application when a
// command runs, unless already set.
var (
	assistantService driving.AssistantService
	workOrderService driving.WorkOrderService
	settingsService  driving.SettingsService
	referenceService reseeder
	application      *app.App
)

// reseeder replaces the reference data from a seed file.
type reseeder interface {
	Reseed(ctx context.Context, path string) (driven.ReferenceData, error)
}

// openApp builds the application for commands that need it.
var openApp = app.Open

// annotationNoApp marks commands that never open the application.
const annotationNoApp = "workorder.no-app"

var rootCmd = &cobra.Command{
	Use:   "workorder",
	Short: "Conversational work order assistant",
	Long: `workorder turns free-text maintenance requests into structured work orders.

It extracts location, equipment type, symptom and priority from each message,
normalizes them to the plant vocabulary and recommends similar historical
work items. Run 'workorder chat' for an interactive session or
'workorder serve' for the HTTP API.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.workorder)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "environment file loaded before the configuration")
	rootCmd.PersistentFlags().BoolVar(&inMemory, "in-memory", false, "keep reference data and work orders in memory only")
}

// SetVersion sets the version reported by 'workorder version'.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command until it finishes or an interrupt arrives.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err := rootCmd.ExecuteContext(ctx)
	// Post-run hooks are skipped when a command fails.
	return errors.Join(err, closeApp())
}

func setup(cmd *cobra.Command, _ []string) error {
	if err := logger.SetLevel(logLevel); err != nil {
		return err
	}
	logger.SetVerbose(verbose)

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	if cmd.Annotations[annotationNoApp] != "" || assistantService != nil {
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx, app.Options{ConfigDir: configDir, InMemory: inMemory})
	if err != nil {
		return err
	}
	application = a
	assistantService = a.Assistant
	workOrderService = a.WorkOrders
	settingsService = a.SettingsService
	referenceService = a
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	return closeApp()
}

func closeApp() error {
	if application == nil {
		return nil
	}
	err := application.Close()
	application = nil
	assistantService = nil
	workOrderService = nil
	settingsService = nil
	referenceService = nil
	return err
}

// commandContext returns the command's context, or a background one when
// the command is invoked directly.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
