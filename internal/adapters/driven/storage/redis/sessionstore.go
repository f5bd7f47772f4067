// Package redis keeps conversation sessions in Redis so several assistant
// processes can share them. Each session is one JSON string key whose TTL
// is refreshed on every save.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/custodia-labs/workorder-assistant/internal/core/domain"
	"github.com/custodia-labs/workorder-assistant/internal/core/ports/driven"
)

// scanBatch is the COUNT hint for SCAN and the MGET chunk size.
const scanBatch = 100

// Ensure SessionStore implements the interface.
var _ driven.SessionStore = (*SessionStore)(nil)

// SessionStore is a Redis-backed implementation of driven.SessionStore.
type SessionStore struct {
	client goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewSessionStore wraps an existing client. A zero ttl stores keys without expiry.
func NewSessionStore(client goredis.UniversalClient, prefix string, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, prefix: prefix, ttl: ttl}
}

// Connect dials Redis from settings and verifies the connection.
func Connect(ctx context.Context, cfg domain.RedisSettings, ttl time.Duration) (*SessionStore, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: connect %s: %w", cfg.Addr, err)
	}
	return NewSessionStore(client, cfg.KeyPrefix, ttl), nil
}

func (s *SessionStore) key(id string) string {
	return s.prefix + id
}

// Get retrieves a session by ID.
func (s *SessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get session: %w", err)
	}
	return decodeSession(data)
}

// Save creates or replaces a session and refreshes its TTL.
func (s *SessionStore) Save(ctx context.Context, session *domain.Session) error {
	if session == nil || session.ID == "" {
		return domain.ErrInvalidInput
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("redis: marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(session.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis: save session: %w", err)
	}
	return nil
}

// Delete removes a session.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("redis: delete session: %w", err)
	}
	return nil
}

// List returns every session under the key prefix.
// Keys that expire between SCAN and MGET are skipped.
func (s *SessionStore) List(ctx context.Context) ([]domain.Session, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis: scan sessions: %w", err)
	}

	sessions := make([]domain.Session, 0, len(keys))
	for start := 0; start < len(keys); start += scanBatch {
		end := min(start+scanBatch, len(keys))
		values, err := s.client.MGet(ctx, keys[start:end]...).Result()
		if err != nil {
			return nil, fmt.Errorf("redis: load sessions: %w", err)
		}
		for _, v := range values {
			str, ok := v.(string)
			if !ok {
				continue
			}
			session, err := decodeSession([]byte(str))
			if err != nil {
				return nil, err
			}
			sessions = append(sessions, *session)
		}
	}
	return sessions, nil
}

// Close releases the client.
func (s *SessionStore) Close() error {
	return s.client.Close()
}

func decodeSession(data []byte) (*domain.Session, error) {
	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("redis: decode session: %w", err)
	}
	if session.AccumulatedSlots == nil {
		session.AccumulatedSlots = make(map[domain.Category]domain.SlotValue)
	}
	return &session, nil
}
