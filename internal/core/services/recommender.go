package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/workorder-assistant/internal/core/domain"
	"github.com/custodia-labs/workorder-assistant/internal/core/ports/driven"
	"github.com/custodia-labs/workorder-assistant/internal/logger"
)

// Field weights of the recommendation score. They sum to 1.
const (
	weightEquipmentType = 0.35
	weightLocation      = 0.35
	weightStatusCode    = 0.20
	weightPriority      = 0.10
)

// MaxSuggestions caps autocomplete results.
const MaxSuggestions = 7

var itemPrefix = regexp.MustCompile(`(?i)^\s*ITEMNO\s*[:#]?\s*`)

// RecommendationEngine ranks historical records against accumulated slots.
type RecommendationEngine struct {
	records driven.RecordStore
	terms   driven.TermStore
	metrics driven.MetricsRecorder
	cfg     domain.AssistantSettings
}

// NewRecommendationEngine creates an engine. terms is only used by Suggest
// and may be nil.
func NewRecommendationEngine(
	records driven.RecordStore,
	terms driven.TermStore,
	metrics driven.MetricsRecorder,
	cfg domain.AssistantSettings,
) *RecommendationEngine {
	if metrics == nil {
		metrics = driven.NopMetrics{}
	}
	return &RecommendationEngine{
		records: records,
		terms:   terms,
		metrics: metrics,
		cfg:     cfg,
	}
}

// fieldSimilarity compares a query value with a record field.
// Blank query values count as absent.
func fieldSimilarity(query, field string) float64 {
	query = strings.TrimSpace(query)
	if query == "" {
		return 0
	}
	return Similarity(query, field)
}

// Score computes the weighted similarity of record to the query slots.
func (e *RecommendationEngine) Score(slots map[domain.Category]string, record *domain.HistoricalRecord) float64 {
	equipment := fieldSimilarity(slots[domain.CategoryEquipmentType], record.EquipmentType)
	location := fieldSimilarity(slots[domain.CategoryLocation], record.Location)
	status := fieldSimilarity(slots[domain.CategoryStatusCode], record.StatusCode)
	priority := fieldSimilarity(slots[domain.CategoryPriority], record.Priority)

	score := weightEquipmentType*equipment +
		weightLocation*location +
		weightStatusCode*status +
		weightPriority*priority

	b := e.cfg.BonusThreshold
	if equipment > b && location > b && status > b && priority > b {
		score += e.cfg.CompleteMatchBonus
	}
	return min(score, 1.0)
}

// Recommend ranks every record against slots and shapes the result by
// candidate count. resultLimit caps the list; zero or less means the batch size.
func (e *RecommendationEngine) Recommend(
	ctx context.Context, slots map[domain.Category]string, resultLimit int,
) (domain.RecommendationBatch, error) {
	logger.Section("Recommend")

	records, err := e.records.List(ctx)
	if err != nil {
		return domain.RecommendationBatch{}, fmt.Errorf("%w: listing records: %w", domain.ErrReferenceData, err)
	}

	var candidates []domain.Recommendation
	for i := range records {
		score := e.Score(slots, &records[i])
		if score <= e.cfg.NoiseFloor {
			continue
		}
		candidates = append(candidates, domain.Recommendation{
			ItemID: records[i].ItemID,
			Record: records[i],
			Score:  score,
		})
	}

	// Stable sort keeps store order among equal scores.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	batch := e.shape(candidates, resultLimit)
	e.metrics.Recommendations(batch.TotalCandidates)
	if reason := batch.Outcome(); reason != nil {
		logger.Debug("Nothing to show: %v (%d candidates)", reason, batch.TotalCandidates)
	} else {
		logger.Debug("Candidates: %d, shown: %d, more: %v",
			batch.TotalCandidates, len(batch.Recommendations), batch.MoreAvailable)
	}
	return batch, nil
}

// shape applies the batching policy to sorted candidates.
func (e *RecommendationEngine) shape(candidates []domain.Recommendation, resultLimit int) domain.RecommendationBatch {
	n := len(candidates)
	batch := domain.RecommendationBatch{TotalCandidates: n}

	limit := e.cfg.BatchSize
	if resultLimit > 0 && resultLimit < limit {
		limit = resultLimit
	}

	switch {
	case n == 0:
		batch.Recommendations = []domain.Recommendation{}
	case n <= e.cfg.BatchSize:
		batch.Recommendations = candidates[:min(n, limit)]
		batch.MoreAvailable = n > limit
	case n <= e.cfg.MaxCandidates:
		batch.Recommendations = candidates[:limit]
		batch.MoreAvailable = true
	default:
		batch.Recommendations = []domain.Recommendation{}
		batch.NeedsIdentifier = true
	}
	return batch
}

// LookupByIdentifier finds a record by item ID: exact first, then ignoring case.
// An "ITEMNO" prefix is accepted.
func (e *RecommendationEngine) LookupByIdentifier(ctx context.Context, identifier string) (*domain.HistoricalRecord, error) {
	id := strings.TrimSpace(itemPrefix.ReplaceAllString(identifier, ""))
	if id == "" {
		return nil, fmt.Errorf("lookup: empty identifier: %w", domain.ErrInvalidInput)
	}

	record, err := e.records.Get(ctx, id)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: lookup %s: %w", domain.ErrReferenceData, id, err)
	}

	records, err := e.records.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing records: %w", domain.ErrReferenceData, err)
	}
	for i := range records {
		if strings.EqualFold(records[i].ItemID, id) {
			found := records[i]
			return &found, nil
		}
	}
	return nil, fmt.Errorf("item %s: %w", id, domain.ErrRecordNotFound)
}

// Suggest returns up to limit completions for partial input, drawn from
// the equipment vocabulary and record item IDs, closest first.
func (e *RecommendationEngine) Suggest(ctx context.Context, input string, limit int) ([]string, error) {
	input = strings.TrimSpace(input)
	if utf8.RuneCountInString(input) < 2 {
		return []string{}, nil
	}
	if limit <= 0 || limit > MaxSuggestions {
		limit = MaxSuggestions
	}
	needle := strings.ToLower(input)

	seen := make(map[string]bool)
	var pool []string
	add := func(v string) {
		if v == "" || seen[v] || !strings.Contains(strings.ToLower(v), needle) {
			return
		}
		seen[v] = true
		pool = append(pool, v)
	}

	if e.terms != nil {
		terms, err := e.terms.Terms(ctx, domain.CategoryEquipmentType)
		if err != nil {
			return nil, fmt.Errorf("%w: loading terms: %w", domain.ErrReferenceData, err)
		}
		for _, t := range terms {
			add(t.Value)
			for _, a := range t.Aliases {
				add(a)
			}
		}
	}

	records, err := e.records.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing records: %w", domain.ErrReferenceData, err)
	}
	for i := range records {
		add(records[i].ItemID)
	}

	sort.SliceStable(pool, func(i, j int) bool {
		return Similarity(input, pool[i]) > Similarity(input, pool[j])
	})
	if len(pool) > limit {
		pool = pool[:limit]
	}
	if pool == nil {
		pool = []string{}
	}
	return pool, nil
}
