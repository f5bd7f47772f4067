package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/workorder-assistant/internal/core/domain"
)

var lookupJSON bool

var lookupCmd = &cobra.Command{
	Use:   "lookup [itemno]",
	Short: "Show a historical work item",
	Long: `Looks up a historical work item by its identifier (ITEMNO).
A leading "ITEMNO" keyword is accepted and case is ignored.`,
	Args: cobra.ExactArgs(1),
	RunE: runLookup,
}

func init() {
	lookupCmd.Flags().BoolVar(&lookupJSON, "json", false, "output the record as JSON")
	rootCmd.AddCommand(lookupCmd)
}

func runLookup(cmd *cobra.Command, args []string) error {
	if assistantService == nil {
		return errors.New("assistant service not configured")
	}

	record, err := assistantService.LookupByIdentifier(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("lookup failed: %w", err)
	}

	if lookupJSON {
		return outputJSON(cmd, record)
	}
	printRecord(cmd, record)
	return nil
}

func printRecord(cmd *cobra.Command, r *domain.HistoricalRecord) {
	cmd.Printf("ITEMNO:         %s\n", r.ItemID)
	if r.CostCenter != "" {
		cmd.Printf("Cost center:    %s\n", r.CostCenter)
	}
	if r.Process != "" {
		cmd.Printf("Process:        %s\n", r.Process)
	}
	cmd.Printf("Location:       %s\n", r.Location)
	cmd.Printf("Equipment type: %s\n", r.EquipmentType)
	cmd.Printf("Status code:    %s\n", r.StatusCode)
	cmd.Printf("Priority:       %s\n", r.Priority)
	if r.WorkTitle != "" {
		cmd.Printf("Work title:     %s\n", r.WorkTitle)
	}
	if r.WorkDetails != "" {
		cmd.Printf("Work details:   %s\n", r.WorkDetails)
	}
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
