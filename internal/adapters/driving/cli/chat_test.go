package cli

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/workorder-assistant/internal/core/domain"
)

func TestChatCmd_Conversation(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	input := strings.Join([]string{
		"No.1 PE 압력베젤 고장",
		"",
		"긴급",
		"/session",
		"/finalize PE-SE1304B",
		"/quit",
		"never sent",
	}, "\n")

	out, err := runCommand(t, input, "chat")

	require.NoError(t, err)
	assert.Contains(t, out, "welcome")
	assert.Contains(t, out, "reply to No.1 PE 압력베젤 고장")
	assert.Contains(t, out, "reply to 긴급")
	assert.Contains(t, out, "session-1\n")
	assert.Contains(t, out, "Work order wo-1 created.")
	assert.NotContains(t, out, "> ", "no prompt without a terminal")

	assert.Equal(t, []string{"No.1 PE 압력베젤 고장", "긴급"}, ts.assistant.messages)
	assert.Equal(t, []string{"", "session-1"}, ts.assistant.sessions, "the session carries over")
}

func TestChatCmd_ContinuesSession(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	_, err := runCommand(t, "누설\n", "chat", "--session", "existing")

	require.NoError(t, err)
	assert.Equal(t, []string{"existing"}, ts.assistant.sessions)
}

func TestChatCmd_Reset(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := runCommand(t, "펌프 누설\n/reset\nRFCC\n", "chat")

	require.NoError(t, err)
	assert.Contains(t, out, "Started a new session.")
	assert.Equal(t, []string{"", "session-2"}, ts.assistant.sessions)
}

func TestChatCmd_FinalizeBeforeFirstMessage(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := runCommand(t, "/finalize PE-SE1304B\n", "chat")

	require.NoError(t, err)
	assert.Contains(t, out, "Error: usage: /finalize ITEMNO")
}

func TestChatCmd_TurnError(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.assistant.HandleTurnFunc = func(context.Context, string, string) (*domain.TurnResult, error) {
		return nil, domain.ErrReferenceData
	}

	_, err := runCommand(t, "펌프 누설\n", "chat")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrReferenceData)
	assert.Contains(t, err.Error(), "turn failed")
}

func TestIsTerminal_NonFile(t *testing.T) {
	assert.False(t, isTerminal(strings.NewReader("")))
}
