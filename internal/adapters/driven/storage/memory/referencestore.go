package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/workorder-assistant/internal/core/domain"
	"github.com/custodia-labs/workorder-assistant/internal/core/ports/driven"
)

// Ensure ReferenceStore implements the interfaces.
var (
	_ driven.TermStore       = (*ReferenceStore)(nil)
	_ driven.RecordStore     = (*ReferenceStore)(nil)
	_ driven.ReferenceLoader = (*ReferenceStore)(nil)
)

// ReferenceStore holds vocabulary and historical records in memory.
// Records keep their load order, which the recommender uses for tie-breaks.
type ReferenceStore struct {
	mu      sync.RWMutex
	terms   map[domain.Category][]domain.Term
	records []domain.HistoricalRecord
	byID    map[string]int
}

// NewReferenceStore creates an empty reference store.
func NewReferenceStore() *ReferenceStore {
	return &ReferenceStore{
		terms: make(map[domain.Category][]domain.Term),
		byID:  make(map[string]int),
	}
}

// Terms returns the vocabulary for a category in load order.
func (s *ReferenceStore) Terms(_ context.Context, category domain.Category) ([]domain.Term, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	terms := s.terms[category]
	result := make([]domain.Term, len(terms))
	copy(result, terms)
	return result, nil
}

// List returns all records in load order.
func (s *ReferenceStore) List(_ context.Context) ([]domain.HistoricalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.HistoricalRecord, len(s.records))
	copy(result, s.records)
	return result, nil
}

// Get retrieves a record by item ID.
func (s *ReferenceStore) Get(_ context.Context, itemID string) (*domain.HistoricalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[itemID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	record := s.records[i]
	return &record, nil
}

// Counts returns the number of stored terms and records.
func (s *ReferenceStore) Counts(_ context.Context) (terms, records int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ts := range s.terms {
		terms += len(ts)
	}
	return terms, len(s.records), nil
}

// Replace swaps in a new vocabulary and record set.
func (s *ReferenceStore) Replace(_ context.Context, data driven.ReferenceData) error {
	terms := make(map[domain.Category][]domain.Term, len(data.Terms))
	for c, ts := range data.Terms {
		terms[c] = append([]domain.Term(nil), ts...)
	}
	records := append([]domain.HistoricalRecord(nil), data.Records...)
	byID := make(map[string]int, len(records))
	for i, r := range records {
		if _, dup := byID[r.ItemID]; !dup {
			byID[r.ItemID] = i
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.terms = terms
	s.records = records
	s.byID = byID
	return nil
}
