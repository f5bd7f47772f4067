package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/workorder-assistant/internal/core/domain"
	"github.com/custodia-labs/workorder-assistant/internal/core/ports/driven"
	"github.com/custodia-labs/workorder-assistant/internal/logger"
)

// sessionLock serialises work on one session. refs counts holders and
// waiters so the entry can be dropped when nobody needs it.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// SessionService owns conversation sessions. Updates to the same session
// are serialised; different sessions never block each other. With a
// SessionLocker the serialisation also holds across processes.
type SessionService struct {
	store   driven.SessionStore
	locker  driven.SessionLocker
	cfg     domain.SessionSettings
	metrics driven.MetricsRecorder
	now     func() time.Time

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// NewSessionService creates a session service backed by store.
func NewSessionService(
	store driven.SessionStore,
	cfg domain.SessionSettings,
	metrics driven.MetricsRecorder,
) *SessionService {
	if metrics == nil {
		metrics = driven.NopMetrics{}
	}
	return &SessionService{
		store:   store,
		cfg:     cfg,
		metrics: metrics,
		now:     time.Now,
		locks:   make(map[string]*sessionLock),
	}
}

// SetLocker adds a cross-process lock taken after the in-process one.
func (s *SessionService) SetLocker(locker driven.SessionLocker) {
	s.locker = locker
}

// Create starts an empty session in the collecting state.
func (s *SessionService) Create(ctx context.Context) (*domain.Session, error) {
	now := s.now()
	session := &domain.Session{
		ID:               uuid.New().String(),
		State:            domain.StateCollectingInfo,
		AccumulatedSlots: make(map[domain.Category]domain.SlotValue),
		CreatedAt:        now,
		LastActivityAt:   now,
	}
	if err := s.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	logger.Debug("Created session %s", session.ID)
	return session.Clone(), nil
}

// Get returns a copy of a session. Sessions idle past the configured
// timeout are removed on access and reported as not found.
func (s *SessionService) Get(ctx context.Context, id string) (*domain.Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrSessionNotFound
	}
	session, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("session %s: %w", id, domain.ErrSessionNotFound)
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if s.cfg.MaxIdle > 0 && session.IdleSince(s.now(), s.cfg.MaxIdle) {
		logger.Debug("Session %s expired on access", id)
		if err := s.store.Delete(ctx, id); err != nil {
			logger.Warn("Failed to delete expired session %s: %v", id, err)
		}
		s.metrics.SessionsExpired(1)
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrSessionNotFound)
	}
	return session, nil
}

// Update merges parsed into the session, sets its state and counts the turn.
func (s *SessionService) Update(
	ctx context.Context, id string, parsed domain.ParsedInput, state domain.SessionState,
) (*domain.Session, error) {
	var out *domain.Session
	err := s.WithLock(ctx, id, func() error {
		var err error
		out, err = s.update(ctx, id, true, func(session *domain.Session) {
			MergeSlots(session, parsed)
			session.State = state
		})
		return err
	})
	return out, err
}

// AppendHistory adds messages to the session history, keeping the most recent.
func (s *SessionService) AppendHistory(ctx context.Context, id string, messages ...domain.Message) error {
	return s.WithLock(ctx, id, func() error {
		_, err := s.update(ctx, id, false, func(session *domain.Session) {
			session.History = append(session.History, messages...)
		})
		return err
	})
}

// update applies mutate to the stored session and refreshes its activity
// time. The caller must hold the session lock.
func (s *SessionService) update(
	ctx context.Context, id string, countTurn bool, mutate func(*domain.Session),
) (*domain.Session, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	mutate(session)
	if countTurn {
		session.TurnCount++
	}
	session.LastActivityAt = s.now()
	if s.cfg.HistorySize > 0 && len(session.History) > s.cfg.HistorySize {
		session.History = session.History[len(session.History)-s.cfg.HistorySize:]
	}

	if err := s.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return session.Clone(), nil
}

// Delete removes a session. Unknown IDs are not an error.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	return s.WithLock(ctx, id, func() error {
		if err := s.store.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		return nil
	})
}

// Reset deletes the session (if any) and starts a new one.
func (s *SessionService) Reset(ctx context.Context, id string) (*domain.Session, error) {
	if id != "" {
		if err := s.Delete(ctx, id); err != nil {
			return nil, err
		}
	}
	return s.Create(ctx)
}

// finalize records the selected record and moves the session to
// finalizing. The caller must hold the session lock.
func (s *SessionService) finalize(ctx context.Context, id, itemID string) (*domain.Session, error) {
	return s.update(ctx, id, false, func(session *domain.Session) {
		session.SelectedItemID = itemID
		session.State = domain.StateFinalizing
	})
}

// Stats summarises the live, unexpired sessions.
func (s *SessionService) Stats(ctx context.Context) (domain.SessionStats, error) {
	sessions, err := s.store.List(ctx)
	if err != nil {
		return domain.SessionStats{}, fmt.Errorf("list sessions: %w", err)
	}

	stats := domain.SessionStats{ByState: make(map[domain.SessionState]int)}
	now := s.now()
	var turns int
	for i := range sessions {
		if s.cfg.MaxIdle > 0 && sessions[i].IdleSince(now, s.cfg.MaxIdle) {
			continue
		}
		stats.Total++
		stats.ByState[sessions[i].State]++
		turns += sessions[i].TurnCount
	}
	if stats.Total > 0 {
		stats.AverageTurns = float64(turns) / float64(stats.Total)
	}
	return stats, nil
}

// Expire removes sessions idle for at least maxIdle. Sessions with a turn
// in progress are skipped and picked up by a later sweep.
func (s *SessionService) Expire(ctx context.Context, maxIdle time.Duration) (int, error) {
	if maxIdle <= 0 {
		return 0, nil
	}
	sessions, err := s.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}

	now := s.now()
	removed := 0
	for i := range sessions {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if !sessions[i].IdleSince(now, maxIdle) {
			continue
		}
		id := sessions[i].ID
		unlock, ok, err := s.tryLock(ctx, id)
		if err != nil {
			return removed, fmt.Errorf("expire session %s: %w", id, err)
		}
		if !ok {
			logger.Debug("Session %s busy, skipping expiry", id)
			continue
		}
		deleted, err := s.expireOne(ctx, id, now, maxIdle)
		unlock()
		if err != nil {
			return removed, fmt.Errorf("expire session %s: %w", id, err)
		}
		if deleted {
			removed++
		}
	}

	if removed > 0 {
		logger.Info("Expired %d idle session(s)", removed)
		s.metrics.SessionsExpired(removed)
	}
	return removed, nil
}

// expireOne deletes the session if it is still idle. The listing may be
// stale by the time the lock is taken.
func (s *SessionService) expireOne(ctx context.Context, id string, now time.Time, maxIdle time.Duration) (bool, error) {
	current, err := s.store.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !current.IdleSince(now, maxIdle) {
		return false, nil
	}
	return true, s.store.Delete(ctx, id)
}

// WithLock runs fn while holding the lock for session id.
func (s *SessionService) WithLock(ctx context.Context, id string, fn func() error) error {
	s.acquire(id)
	defer s.release(id)
	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, id)
		if err != nil {
			return fmt.Errorf("lock session %s: %w", id, err)
		}
		defer unlock()
	}
	return fn()
}

// tryLock takes both locks for session id without waiting.
func (s *SessionService) tryLock(ctx context.Context, id string) (func(), bool, error) {
	if !s.tryAcquire(id) {
		return nil, false, nil
	}
	if s.locker == nil {
		return func() { s.release(id) }, true, nil
	}
	unlock, ok, err := s.locker.TryLock(ctx, id)
	if err != nil || !ok {
		s.release(id)
		return nil, false, err
	}
	return func() {
		unlock()
		s.release(id)
	}, true, nil
}

func (s *SessionService) acquire(id string) {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sessionLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
}

// tryAcquire takes the lock only if nobody holds or waits for it.
func (s *SessionService) tryAcquire(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.locks[id]; busy {
		return false
	}
	l := &sessionLock{refs: 1}
	l.mu.Lock()
	s.locks[id] = l
	return true
}

func (s *SessionService) release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.locks[id]
	l.refs--
	if l.refs == 0 {
		delete(s.locks, id)
	}
	l.mu.Unlock()
}

// MergeSlots overwrites the session's slots with every non-null slot of
// parsed. Slots parsed leaves null are kept unchanged.
func MergeSlots(session *domain.Session, parsed domain.ParsedInput) {
	if session.AccumulatedSlots == nil {
		session.AccumulatedSlots = make(map[domain.Category]domain.SlotValue)
	}
	for _, c := range domain.AllCategories {
		v := parsed.Get(c)
		if v == nil || *v == "" {
			continue
		}
		confidence := parsed.Confidence
		if detail, ok := parsed.Slots[c]; ok {
			confidence = detail.Confidence
		} else if prev, ok := session.AccumulatedSlots[c]; ok && prev.Value == *v {
			confidence = prev.Confidence
		}
		session.AccumulatedSlots[c] = domain.SlotValue{Value: *v, Confidence: confidence}
	}
}
