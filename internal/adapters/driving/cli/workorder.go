package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/workorder-assistant/internal/core/domain"
)

var (
	workOrderTitle   string
	workOrderDetails string
	workOrderJSON    bool
)

var workOrderCmd = &cobra.Command{
	Use:   "workorder",
	Short: "Draft, create and view work orders",
}

var workOrderDetailsCmd = &cobra.Command{
	Use:   "details [session-id] [itemno]",
	Short: "Draft a work title and details for a recommendation",
	Args:  cobra.ExactArgs(2),
	RunE:  runWorkOrderDetails,
}

var workOrderFinalizeCmd = &cobra.Command{
	Use:   "finalize [session-id] [itemno]",
	Short: "Create a work order from a recommendation",
	Long: `Creates a work order from the selected historical item. Slots collected
in the session take precedence over the item's own fields. Without --title or
--details the item's text is used.`,
	Args: cobra.ExactArgs(2),
	RunE: runWorkOrderFinalize,
}

var workOrderShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a work order",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkOrderShow,
}

var workOrderListCmd = &cobra.Command{
	Use:   "list",
	Short: "List work orders, newest first",
	RunE:  runWorkOrderList,
}

func init() {
	workOrderFinalizeCmd.Flags().StringVar(&workOrderTitle, "title", "", "work title")
	workOrderFinalizeCmd.Flags().StringVar(&workOrderDetails, "details", "", "work details")
	workOrderShowCmd.Flags().BoolVar(&workOrderJSON, "json", false, "output as JSON")
	workOrderListCmd.Flags().BoolVar(&workOrderJSON, "json", false, "output as JSON")

	workOrderCmd.AddCommand(workOrderDetailsCmd)
	workOrderCmd.AddCommand(workOrderFinalizeCmd)
	workOrderCmd.AddCommand(workOrderShowCmd)
	workOrderCmd.AddCommand(workOrderListCmd)
	rootCmd.AddCommand(workOrderCmd)
}

func runWorkOrderDetails(cmd *cobra.Command, args []string) error {
	if workOrderService == nil {
		return errors.New("work order service not configured")
	}

	details, err := workOrderService.GenerateDetails(commandContext(cmd), args[0], args[1])
	if err != nil {
		return fmt.Errorf("failed to draft details: %w", err)
	}

	cmd.Printf("Work title:   %s\n", details.WorkTitle)
	cmd.Printf("Work details: %s\n", details.WorkDetails)
	if !details.Generated {
		cmd.Println("(copied from the historical item)")
	}
	return nil
}

func runWorkOrderFinalize(cmd *cobra.Command, args []string) error {
	if workOrderService == nil {
		return errors.New("work order service not configured")
	}

	order, err := workOrderService.Finalize(commandContext(cmd), args[0], args[1], workOrderTitle, workOrderDetails)
	if err != nil {
		return fmt.Errorf("failed to create work order: %w", err)
	}

	cmd.Printf("Work order %s created.\n", order.ID)
	printWorkOrder(cmd, order)
	return nil
}

func runWorkOrderShow(cmd *cobra.Command, args []string) error {
	if workOrderService == nil {
		return errors.New("work order service not configured")
	}

	order, err := workOrderService.Get(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to get work order: %w", err)
	}

	if workOrderJSON {
		return outputJSON(cmd, order)
	}
	cmd.Printf("ID:             %s\n", order.ID)
	printWorkOrder(cmd, order)
	return nil
}

func runWorkOrderList(cmd *cobra.Command, _ []string) error {
	if workOrderService == nil {
		return errors.New("work order service not configured")
	}

	orders, err := workOrderService.List(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to list work orders: %w", err)
	}

	if workOrderJSON {
		if orders == nil {
			orders = []domain.WorkOrder{}
		}
		return outputJSON(cmd, orders)
	}
	if len(orders) == 0 {
		cmd.Println("No work orders.")
		return nil
	}
	for i := range orders {
		o := &orders[i]
		cmd.Printf("%s  %s  [%s] %s\n", o.CreatedAt.Format(time.DateTime), o.ID, o.ItemID, o.WorkTitle)
	}
	return nil
}

func printWorkOrder(cmd *cobra.Command, o *domain.WorkOrder) {
	cmd.Printf("ITEMNO:         %s\n", o.ItemID)
	cmd.Printf("Location:       %s\n", o.Location)
	cmd.Printf("Equipment type: %s\n", o.EquipmentType)
	cmd.Printf("Status code:    %s\n", o.StatusCode)
	cmd.Printf("Priority:       %s\n", o.Priority)
	cmd.Printf("Work title:     %s\n", o.WorkTitle)
	cmd.Printf("Work details:   %s\n", o.WorkDetails)
}
