package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/workorder-assistant/internal/core/domain"
	"github.com/custodia-labs/workorder-assistant/internal/core/ports/driven"
)

// ReferenceStore serves vocabulary and historical records from SQLite.
// Records are listed in insertion order, which the recommender relies on
// to break score ties.
type ReferenceStore struct {
	store *Store
}

var (
	_ driven.TermStore       = (*ReferenceStore)(nil)
	_ driven.RecordStore     = (*ReferenceStore)(nil)
	_ driven.ReferenceLoader = (*ReferenceStore)(nil)
)

const recordColumns = `item_id, process, cost_center, location, equipment_type,
	status_code, priority, work_title, work_details`

// Terms returns the vocabulary for a category in load order.
func (s *ReferenceStore) Terms(ctx context.Context, category domain.Category) ([]domain.Term, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT value, aliases FROM terms WHERE category = ? ORDER BY id", string(category))
	if err != nil {
		return nil, fmt.Errorf("querying terms: %w", err)
	}
	defer rows.Close()

	var terms []domain.Term //nolint:prealloc // size unknown from query
	for rows.Next() {
		var term domain.Term
		var aliases string
		if err := rows.Scan(&term.Value, &aliases); err != nil {
			return nil, fmt.Errorf("scanning term: %w", err)
		}
		if err := json.Unmarshal([]byte(aliases), &term.Aliases); err != nil {
			return nil, fmt.Errorf("unmarshalling aliases for %q: %w", term.Value, err)
		}
		terms = append(terms, term)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating terms: %w", err)
	}
	return terms, nil
}

// List returns all records in insertion order.
func (s *ReferenceStore) List(ctx context.Context) ([]domain.HistoricalRecord, error) {
	rows, err := s.store.db.QueryContext(ctx, "SELECT "+recordColumns+" FROM records ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []domain.HistoricalRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return records, nil
}

// Get retrieves a record by item ID.
func (s *ReferenceStore) Get(ctx context.Context, itemID string) (*domain.HistoricalRecord, error) {
	row := s.store.db.QueryRowContext(ctx, "SELECT "+recordColumns+" FROM records WHERE item_id = ?", itemID)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return record, err
}

// Replace swaps in a new vocabulary and record set in one transaction.
// Readers see either the old or the new data, never a mix.
func (s *ReferenceStore) Replace(ctx context.Context, data driven.ReferenceData) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{"DELETE FROM terms", "DELETE FROM records"} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clearing reference data: %w", err)
		}
	}

	for _, category := range domain.AllCategories {
		for _, term := range data.Terms[category] {
			aliases := term.Aliases
			if aliases == nil {
				aliases = []string{}
			}
			aliasJSON, err := json.Marshal(aliases)
			if err != nil {
				return fmt.Errorf("marshalling aliases: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO terms (category, value, aliases) VALUES (?, ?, ?)",
				string(category), term.Value, string(aliasJSON)); err != nil {
				return fmt.Errorf("inserting term %q: %w", term.Value, err)
			}
		}
	}

	for _, r := range data.Records {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO records (`+recordColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, r.ItemID, r.Process, r.CostCenter, r.Location, r.EquipmentType,
			r.StatusCode, r.Priority, r.WorkTitle, r.WorkDetails); err != nil {
			return fmt.Errorf("inserting record %q: %w", r.ItemID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing reference data: %w", err)
	}
	return nil
}

// Counts returns the number of terms and records stored.
func (s *ReferenceStore) Counts(ctx context.Context) (terms, records int, err error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT (SELECT COUNT(*) FROM terms), (SELECT COUNT(*) FROM records)")
	if err := row.Scan(&terms, &records); err != nil {
		return 0, 0, fmt.Errorf("counting reference data: %w", err)
	}
	return terms, records, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.HistoricalRecord, error) {
	var r domain.HistoricalRecord
	if err := row.Scan(&r.ItemID, &r.Process, &r.CostCenter, &r.Location, &r.EquipmentType,
		&r.StatusCode, &r.Priority, &r.WorkTitle, &r.WorkDetails); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning record: %w", err)
	}
	return &r, nil
}
