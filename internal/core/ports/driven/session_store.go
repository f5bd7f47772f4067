package driven

import (
	"context"

	"github.com/custodia-labs/workorder-assistant/internal/core/domain"
)

// SessionStore is the backing store for conversation sessions.
// Implementations may be an in-process map or an external key-value cache.
// Serialisation of updates per session is the SessionService's job,
// not the store's.
type SessionStore interface {
	// Get retrieves a session by ID.
	// Returns domain.ErrNotFound if it does not exist.
	Get(ctx context.Context, id string) (*domain.Session, error)

	// Save creates or replaces a session.
	Save(ctx context.Context, session *domain.Session) error

	// Delete removes a session. Deleting an unknown ID is not an error.
	Delete(ctx context.Context, id string) error

	// List returns all stored sessions.
	List(ctx context.Context) ([]domain.Session, error)
}
