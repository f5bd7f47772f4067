package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/workorder-assistant/internal/app"
)

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "workorder", rootCmd.Use)
}

func TestRootCmd_HasCommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"serve", "chat", "lookup", "session", "seed", "workorder", "mcp", "version", "config"} {
		assert.True(t, names[want], want)
	}
}

func TestSetVersion(t *testing.T) {
	original := version
	defer func() { version = original }()

	SetVersion("1.2.3")

	assert.Equal(t, "1.2.3", version)
}

func TestRootCmd_InvalidLogLevel(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := runCommand(t, "", "--log-level", "loud", "version")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "log level")
}

func TestRootCmd_LoadsEnvFile(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	const key = "WORKORDER_CLI_TEST_VALUE"
	envPath := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envPath, []byte(key+"=from-env-file\n"), 0600))
	defer os.Unsetenv(key)

	_, err := runCommand(t, "", "--env-file", envPath, "version")

	require.NoError(t, err)
	assert.Equal(t, "from-env-file", os.Getenv(key))
}

func TestRootCmd_MissingEnvFileIsIgnored(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := runCommand(t, "", "--env-file", filepath.Join(t.TempDir(), "absent.env"), "version")

	assert.NoError(t, err)
}

func TestRootCmd_OpenFailure(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	assistantService = nil

	_, err := runCommand(t, "", "lookup", "PE-SE1304B")

	assert.ErrorIs(t, err, errAppOpened)
}

func TestRootCmd_OpensApplication(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	assistantService = nil
	workOrderService = nil
	settingsService = nil
	referenceService = nil
	openApp = func(ctx context.Context, opts app.Options) (*app.App, error) {
		opts.SkipLLM = true
		return app.Open(ctx, opts)
	}

	out, err := runCommand(t, "", "--config-dir", t.TempDir(), "lookup", "pe-se1304b")

	require.NoError(t, err)
	assert.Contains(t, out, "ITEMNO:         PE-SE1304B")
	assert.Contains(t, out, "Equipment type: Pressure Vessel")
	assert.Nil(t, application, "application is closed after the command")
	assert.Nil(t, assistantService)
}

func TestRootCmd_PassesOptions(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	assistantService = nil
	var got app.Options
	openApp = func(_ context.Context, opts app.Options) (*app.App, error) {
		got = opts
		return nil, errAppOpened
	}

	_, err := runCommand(t, "", "--config-dir", "/srv/workorder", "--in-memory", "session", "stats")

	require.ErrorIs(t, err, errAppOpened)
	assert.Equal(t, app.Options{ConfigDir: "/srv/workorder", InMemory: true}, got)
}
