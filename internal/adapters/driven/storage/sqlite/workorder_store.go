package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/workorder-assistant/internal/core/domain"
	"github.com/custodia-labs/workorder-assistant/internal/core/ports/driven"
)

// workOrderStore implements driven.WorkOrderStore.
type workOrderStore struct {
	store *Store
}

var _ driven.WorkOrderStore = (*workOrderStore)(nil)

const workOrderColumns = `id, session_id, item_id, location, equipment_type, status_code,
	priority, work_title, work_details, created_at`

// Save stores a work order.
func (s *workOrderStore) Save(ctx context.Context, order *domain.WorkOrder) error {
	if order == nil || order.ID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO work_orders (`+workOrderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			work_title = excluded.work_title,
			work_details = excluded.work_details
	`, order.ID, order.SessionID, order.ItemID, order.Location, order.EquipmentType,
		order.StatusCode, order.Priority, order.WorkTitle, order.WorkDetails,
		formatTime(order.CreatedAt))
	if err != nil {
		return fmt.Errorf("saving work order: %w", err)
	}
	return nil
}

// Get retrieves a work order by ID.
func (s *workOrderStore) Get(ctx context.Context, id string) (*domain.WorkOrder, error) {
	row := s.store.db.QueryRowContext(ctx, "SELECT "+workOrderColumns+" FROM work_orders WHERE id = ?", id)
	order, err := scanWorkOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return order, err
}

// List returns all work orders, newest first.
func (s *workOrderStore) List(ctx context.Context) ([]domain.WorkOrder, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT "+workOrderColumns+" FROM work_orders ORDER BY created_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("querying work orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.WorkOrder //nolint:prealloc // size unknown from query
	for rows.Next() {
		order, err := scanWorkOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating work orders: %w", err)
	}
	return orders, nil
}

func scanWorkOrder(row rowScanner) (*domain.WorkOrder, error) {
	var o domain.WorkOrder
	var createdAt string
	if err := row.Scan(&o.ID, &o.SessionID, &o.ItemID, &o.Location, &o.EquipmentType,
		&o.StatusCode, &o.Priority, &o.WorkTitle, &o.WorkDetails, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning work order: %w", err)
	}
	o.CreatedAt = parseTime(createdAt)
	return &o, nil
}
