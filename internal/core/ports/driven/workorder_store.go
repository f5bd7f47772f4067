package driven

import (
	"context"

	"github.com/custodia-labs/workorder-assistant/internal/core/domain"
)

// WorkOrderStore persists finalised work orders.
type WorkOrderStore interface {
	// Save stores a work order.
	Save(ctx context.Context, order *domain.WorkOrder) error

	// Get retrieves a work order by ID.
	// Returns domain.ErrNotFound if it does not exist.
	Get(ctx context.Context, id string) (*domain.WorkOrder, error)

	// List returns all work orders, newest first.
	List(ctx context.Context) ([]domain.WorkOrder, error)
}
