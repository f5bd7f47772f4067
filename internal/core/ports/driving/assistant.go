package driving

import (
	"context"

	"github.com/custodia-labs/workorder-assistant/internal/core/domain"
)

// AssistantService is the conversational entry point used by every transport.
type AssistantService interface {
	// HandleTurn processes one user message. An empty or unknown sessionID
	// starts a new session; the returned result carries the session ID to reuse.
	HandleTurn(ctx context.Context, message, sessionID string) (*domain.TurnResult, error)

	// LookupByIdentifier returns the historical record with the given item ID.
	LookupByIdentifier(ctx context.Context, identifier string) (*domain.HistoricalRecord, error)

	// GetSession returns a copy of the session state.
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)

	// DeleteSession removes a session.
	DeleteSession(ctx context.Context, sessionID string) error

	// ResetSession discards a session (if any) and starts a fresh one.
	ResetSession(ctx context.Context, sessionID string) (*domain.Session, error)

	// SessionStats summarises the live sessions.
	SessionStats(ctx context.Context) (domain.SessionStats, error)

	// ExpireSessions removes sessions idle for longer than the configured timeout.
	ExpireSessions(ctx context.Context) (int, error)

	// Suggest returns autocomplete suggestions for partial input.
	Suggest(ctx context.Context, input string) ([]string, error)

	// Vocabulary returns the standard terms for a category.
	Vocabulary(ctx context.Context, category domain.Category) ([]domain.Term, error)
}
