package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/workorder-assistant/internal/core/domain"
)

var sessionJSON bool

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect and manage conversation sessions",
	Long: `Sessions hold the slots collected across turns. With the memory backend
they only live as long as the process; use the redis backend to inspect
sessions of a running server.`,
}

var sessionGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Show a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionGet,
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionDelete,
}

var sessionResetCmd = &cobra.Command{
	Use:   "reset [id]",
	Short: "Discard a session and start a fresh one",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSessionReset,
}

var sessionStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise live sessions",
	RunE:  runSessionStats,
}

var sessionExpireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Remove idle sessions now",
	RunE:  runSessionExpire,
}

func init() {
	sessionGetCmd.Flags().BoolVar(&sessionJSON, "json", false, "output the session as JSON")
	sessionCmd.AddCommand(sessionGetCmd)
	sessionCmd.AddCommand(sessionDeleteCmd)
	sessionCmd.AddCommand(sessionResetCmd)
	sessionCmd.AddCommand(sessionStatsCmd)
	sessionCmd.AddCommand(sessionExpireCmd)
	rootCmd.AddCommand(sessionCmd)
}

func runSessionGet(cmd *cobra.Command, args []string) error {
	if assistantService == nil {
		return errors.New("assistant service not configured")
	}

	session, err := assistantService.GetSession(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	if sessionJSON {
		return outputJSON(cmd, session)
	}

	cmd.Printf("Session:       %s\n", session.ID)
	cmd.Printf("State:         %s\n", session.State)
	cmd.Printf("Turns:         %d\n", session.TurnCount)
	cmd.Printf("Last activity: %s\n", session.LastActivityAt.Format(time.RFC3339))
	if session.SelectedItemID != "" {
		cmd.Printf("Selected:      %s\n", session.SelectedItemID)
	}
	if session.HasSlots() {
		cmd.Println()
		cmd.Println("Slots:")
		for _, c := range domain.AllCategories {
			if v, ok := session.Slot(c); ok {
				cmd.Printf("  %-15s %s (%.2f)\n", c, v.Value, v.Confidence)
			}
		}
	}
	return nil
}

func runSessionDelete(cmd *cobra.Command, args []string) error {
	if assistantService == nil {
		return errors.New("assistant service not configured")
	}

	if err := assistantService.DeleteSession(commandContext(cmd), args[0]); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	cmd.Printf("Deleted session %s\n", args[0])
	return nil
}

func runSessionReset(cmd *cobra.Command, args []string) error {
	if assistantService == nil {
		return errors.New("assistant service not configured")
	}

	var id string
	if len(args) > 0 {
		id = args[0]
	}
	session, err := assistantService.ResetSession(commandContext(cmd), id)
	if err != nil {
		return fmt.Errorf("failed to reset session: %w", err)
	}
	cmd.Printf("New session %s\n", session.ID)
	return nil
}

func runSessionStats(cmd *cobra.Command, _ []string) error {
	if assistantService == nil {
		return errors.New("assistant service not configured")
	}

	stats, err := assistantService.SessionStats(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to get session stats: %w", err)
	}

	cmd.Printf("Live sessions: %d\n", stats.Total)
	for _, state := range []domain.SessionState{
		domain.StateCollectingInfo, domain.StateRecommending, domain.StateFinalizing,
	} {
		cmd.Printf("  %-16s %d\n", state, stats.ByState[state])
	}
	cmd.Printf("Average turns: %.1f\n", stats.AverageTurns)
	return nil
}

func runSessionExpire(cmd *cobra.Command, _ []string) error {
	if assistantService == nil {
		return errors.New("assistant service not configured")
	}

	removed, err := assistantService.ExpireSessions(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to expire sessions: %w", err)
	}
	cmd.Printf("Expired %d idle session(s)\n", removed)
	return nil
}
