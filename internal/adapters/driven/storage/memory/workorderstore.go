package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/workorder-assistant/internal/core/domain"
	"github.com/custodia-labs/workorder-assistant/internal/core/ports/driven"
)

// Ensure WorkOrderStore implements the interface.
var _ driven.WorkOrderStore = (*WorkOrderStore)(nil)

// WorkOrderStore is an in-memory implementation of driven.WorkOrderStore.
type WorkOrderStore struct {
	mu     sync.RWMutex
	orders map[string]domain.WorkOrder
}

// NewWorkOrderStore creates a new in-memory work order store.
func NewWorkOrderStore() *WorkOrderStore {
	return &WorkOrderStore{
		orders: make(map[string]domain.WorkOrder),
	}
}

// Save stores a work order.
func (s *WorkOrderStore) Save(_ context.Context, order *domain.WorkOrder) error {
	if order == nil || order.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.ID] = *order
	return nil
}

// Get retrieves a work order by ID.
func (s *WorkOrderStore) Get(_ context.Context, id string) (*domain.WorkOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &order, nil
}

// List returns all work orders, newest first.
func (s *WorkOrderStore) List(_ context.Context) ([]domain.WorkOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.WorkOrder, 0, len(s.orders))
	for _, order := range s.orders {
		result = append(result, order)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}
