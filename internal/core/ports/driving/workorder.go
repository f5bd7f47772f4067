package driving

import (
	"context"

	"github.com/custodia-labs/workorder-assistant/internal/core/domain"
)

// WorkDetails is a drafted title and body for a work order.
type WorkDetails struct {
	WorkTitle   string `json:"work_title"`
	WorkDetails string `json:"work_details"`

	// Generated is false when the record's own text was used as a fallback.
	Generated bool `json:"generated"`
}

// WorkOrderService turns a selected recommendation into a work order.
type WorkOrderService interface {
	// GenerateDetails drafts work details for a record in the context of a session.
	GenerateDetails(ctx context.Context, sessionID, itemID string) (*WorkDetails, error)

	// Finalize creates the work order and moves the session to finalizing.
	// Empty title or details fall back to the record's own text.
	Finalize(ctx context.Context, sessionID, itemID, title, details string) (*domain.WorkOrder, error)

	// Get retrieves a work order by ID.
	Get(ctx context.Context, id string) (*domain.WorkOrder, error)

	// List returns all work orders, newest first.
	List(ctx context.Context) ([]domain.WorkOrder, error)
}
