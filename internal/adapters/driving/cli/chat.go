package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var chatSessionID string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Describe the problem in your own words, one message per line.
The assistant asks for missing details and recommends similar work items.

Commands:
  /reset             start a new session
  /finalize ITEMNO   create a work order from a recommendation
  /session           print the current session ID
  /quit              leave the conversation`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatSessionID, "session", "", "continue an existing session")
	rootCmd.AddCommand(chatCmd)
}

// welcomer is implemented by assistants that greet new conversations.
type welcomer interface {
	Welcome() string
}

func runChat(cmd *cobra.Command, _ []string) error {
	if assistantService == nil {
		return errors.New("assistant service not configured")
	}

	ctx := commandContext(cmd)
	in := cmd.InOrStdin()
	interactive := isTerminal(in)

	if w, ok := assistantService.(welcomer); ok {
		cmd.Println(w.Welcome())
		cmd.Println()
	}

	sessionID := chatSessionID
	scanner := bufio.NewScanner(in)
	for {
		if interactive {
			cmd.Print("> ")
		}
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		command, arg, _ := strings.Cut(line, " ")
		switch command {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/session":
			cmd.Println(sessionID)
			continue
		case "/reset":
			session, err := assistantService.ResetSession(ctx, sessionID)
			if err != nil {
				return fmt.Errorf("reset failed: %w", err)
			}
			sessionID = session.ID
			cmd.Println("Started a new session.")
			continue
		case "/finalize":
			if err := finalizeFromChat(cmd, sessionID, strings.TrimSpace(arg)); err != nil {
				cmd.Printf("Error: %v\n", err)
			}
			continue
		}

		result, err := assistantService.HandleTurn(ctx, line, sessionID)
		if err != nil {
			return fmt.Errorf("turn failed: %w", err)
		}
		sessionID = result.SessionID
		cmd.Println(result.Message)
		cmd.Println()
	}
	return scanner.Err()
}

func finalizeFromChat(cmd *cobra.Command, sessionID, itemID string) error {
	if workOrderService == nil {
		return errors.New("work order service not configured")
	}
	if sessionID == "" || itemID == "" {
		return errors.New("usage: /finalize ITEMNO after at least one message")
	}
	order, err := workOrderService.Finalize(commandContext(cmd), sessionID, itemID, "", "")
	if err != nil {
		return err
	}
	cmd.Printf("Work order %s created.\n", order.ID)
	printWorkOrder(cmd, order)
	return nil
}

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
