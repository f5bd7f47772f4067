package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/workorder-assistant/internal/core/domain"
	"github.com/custodia-labs/workorder-assistant/internal/core/ports/driven"
	"github.com/custodia-labs/workorder-assistant/internal/core/ports/driving"
	"github.com/custodia-labs/workorder-assistant/internal/logger"
)

// Ensure Assistant implements the interface.
var _ driving.AssistantService = (*Assistant)(nil)

// Assistant orchestrates one conversational turn:
// parse, recommend or look up, compose, then update the session.
type Assistant struct {
	sessions    *SessionService
	parser      *InputParser
	recommender *RecommendationEngine
	composer    *ResponseComposer
	terms       driven.TermStore
	metrics     driven.MetricsRecorder
	maxIdle     time.Duration
	now         func() time.Time
}

// NewAssistant wires the turn pipeline.
func NewAssistant(
	sessions *SessionService,
	parser *InputParser,
	recommender *RecommendationEngine,
	composer *ResponseComposer,
	terms driven.TermStore,
	metrics driven.MetricsRecorder,
	maxIdle time.Duration,
) *Assistant {
	if metrics == nil {
		metrics = driven.NopMetrics{}
	}
	return &Assistant{
		sessions:    sessions,
		parser:      parser,
		recommender: recommender,
		composer:    composer,
		terms:       terms,
		metrics:     metrics,
		maxIdle:     maxIdle,
		now:         time.Now,
	}
}

// HandleTurn processes one user message. Only reference data and session
// store failures are returned as errors; model failures degrade the reply.
func (a *Assistant) HandleTurn(ctx context.Context, message, sessionID string) (*domain.TurnResult, error) {
	start := a.now()
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("message: %w", domain.ErrInvalidInput)
	}

	session, err := a.sessionFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	result, err := a.lockedTurn(ctx, message, session.ID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		// Expired or deleted between the lookup and taking the lock.
		logger.Debug("Session %s vanished before the turn, starting a new one", session.ID)
		if session, err = a.sessions.Create(ctx); err != nil {
			return nil, err
		}
		result, err = a.lockedTurn(ctx, message, session.ID)
	}
	if err != nil {
		return nil, err
	}

	a.metrics.TurnHandled(string(result.Parsed.Scenario), string(result.State), a.now().Sub(start))
	return result, nil
}

// sessionFor returns the referenced session, creating one when the ID is
// empty, unknown or expired.
func (a *Assistant) sessionFor(ctx context.Context, sessionID string) (*domain.Session, error) {
	if sessionID != "" {
		session, err := a.sessions.Get(ctx, sessionID)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return nil, err
		}
		logger.Debug("Session %s not found, starting a new one", sessionID)
	}
	return a.sessions.Create(ctx)
}

// lockedTurn re-reads the session under its lock, so a concurrent turn's
// update is visible, and runs the pipeline on it.
func (a *Assistant) lockedTurn(ctx context.Context, message, id string) (*domain.TurnResult, error) {
	var result *domain.TurnResult
	err := a.sessions.WithLock(ctx, id, func() error {
		current, err := a.sessions.Get(ctx, id)
		if err != nil {
			return err
		}
		result, err = a.turn(ctx, message, current)
		return err
	})
	return result, err
}

// turn runs the pipeline for one message. The caller holds the session lock.
func (a *Assistant) turn(ctx context.Context, message string, session *domain.Session) (*domain.TurnResult, error) {
	parsed, err := a.parser.Parse(ctx, message, session.History, session)
	if err != nil {
		return nil, err
	}

	preview := session.Clone()
	MergeSlots(preview, parsed)
	preview.TurnCount++

	result := &domain.TurnResult{
		SessionID: session.ID,
		Parsed:    parsed,
	}

	if parsed.Scenario == domain.ScenarioIdentifierLookup {
		if err := a.lookupTurn(ctx, parsed, preview, result); err != nil {
			return nil, err
		}
	} else {
		batch, err := a.recommender.Recommend(ctx, preview.SlotValues(), 0)
		if err != nil {
			return nil, err
		}
		comp := a.composer.Compose(parsed, preview, batch)
		result.Message = comp.Message
		result.State = comp.State
		result.Recommendations = batch.Recommendations
		result.MissingFields = comp.MissingFields
		result.NeedsMoreInput = comp.NeedsMoreInput
		result.MoreAvailable = batch.MoreAvailable
		result.NeedsIdentifier = batch.NeedsIdentifier
	}

	now := a.now()
	history := []domain.Message{
		{Role: domain.RoleUser, Content: message, Timestamp: now},
		{Role: domain.RoleAssistant, Content: result.Message, Timestamp: now},
	}
	_, err = a.sessions.update(ctx, session.ID, true, func(s *domain.Session) {
		MergeSlots(s, parsed)
		s.State = result.State
		s.History = append(s.History, history...)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// lookupTurn answers an identifier lookup. A hit becomes a single
// full-score recommendation.
func (a *Assistant) lookupTurn(
	ctx context.Context, parsed domain.ParsedInput, preview *domain.Session, result *domain.TurnResult,
) error {
	record, err := a.recommender.LookupByIdentifier(ctx, parsed.Identifier)
	switch {
	case err == nil:
		result.Record = record
		result.Recommendations = []domain.Recommendation{{
			ItemID: record.ItemID,
			Record: *record,
			Score:  1.0,
		}}
		result.Message = a.composer.ComposeLookup(parsed.Identifier, record)
		result.State = nextState(preview, true, true)
	case errors.Is(err, domain.ErrRecordNotFound):
		result.Recommendations = []domain.Recommendation{}
		result.Message = a.composer.ComposeLookup(parsed.Identifier, nil)
		result.State = nextState(preview, false, len(preview.MissingCritical()) == 0)
		result.NeedsMoreInput = true
	default:
		return err
	}

	result.MissingFields = preview.MissingCritical()
	if result.MissingFields == nil {
		result.MissingFields = []domain.Category{}
	}
	return nil
}

// Welcome returns the greeting shown when a conversation starts.
func (a *Assistant) Welcome() string {
	return a.composer.Welcome()
}

// LookupByIdentifier returns the historical record with the given item ID.
func (a *Assistant) LookupByIdentifier(ctx context.Context, identifier string) (*domain.HistoricalRecord, error) {
	return a.recommender.LookupByIdentifier(ctx, identifier)
}

// GetSession returns a copy of the session state.
func (a *Assistant) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	return a.sessions.Get(ctx, sessionID)
}

// DeleteSession removes a session. Unknown sessions report ErrSessionNotFound.
func (a *Assistant) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := a.sessions.Get(ctx, sessionID); err != nil {
		return err
	}
	return a.sessions.Delete(ctx, sessionID)
}

// ResetSession discards a session (if any) and starts a fresh one.
func (a *Assistant) ResetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	return a.sessions.Reset(ctx, sessionID)
}

// SessionStats summarises the live sessions.
func (a *Assistant) SessionStats(ctx context.Context) (domain.SessionStats, error) {
	return a.sessions.Stats(ctx)
}

// ExpireSessions removes sessions idle past the configured timeout.
func (a *Assistant) ExpireSessions(ctx context.Context) (int, error) {
	return a.sessions.Expire(ctx, a.maxIdle)
}

// Suggest returns autocomplete suggestions for partial input.
func (a *Assistant) Suggest(ctx context.Context, input string) ([]string, error) {
	return a.recommender.Suggest(ctx, input, MaxSuggestions)
}

// Vocabulary returns the standard terms for a category.
func (a *Assistant) Vocabulary(ctx context.Context, category domain.Category) ([]domain.Term, error) {
	if !category.IsValid() {
		return nil, fmt.Errorf("category %q: %w", category, domain.ErrInvalidInput)
	}
	terms, err := a.terms.Terms(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("%w: loading %s terms: %w", domain.ErrReferenceData, category, err)
	}
	return terms, nil
}
