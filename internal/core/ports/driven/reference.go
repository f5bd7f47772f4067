package driven

import (
	"context"

	"github.com/custodia-labs/workorder-assistant/internal/core/domain"
)

// TermStore holds the standard vocabulary for each slot category.
// It is read-only to the core.
type TermStore interface {
	// Terms returns the vocabulary for a category in load order.
	Terms(ctx context.Context, category domain.Category) ([]domain.Term, error)
}

// RecordStore provides read-only access to historical work orders.
type RecordStore interface {
	// List returns all records in insertion order.
	List(ctx context.Context) ([]domain.HistoricalRecord, error)

	// Get retrieves a record by item ID.
	// Returns domain.ErrNotFound if no record matches.
	Get(ctx context.Context, itemID string) (*domain.HistoricalRecord, error)
}

// ReferenceData is the full vocabulary and record set supplied by a loader.
type ReferenceData struct {
	Terms   map[domain.Category][]domain.Term
	Records []domain.HistoricalRecord
}

// ReferenceLoader replaces the stored reference data in one step.
// Implemented by stores that can be reseeded.
type ReferenceLoader interface {
	Replace(ctx context.Context, data ReferenceData) error
}
