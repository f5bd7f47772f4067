package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/workorder-assistant/internal/core/domain"
)

const testPrefix = "workorder:session:"

func newTestStore(t *testing.T, ttl time.Duration) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, testPrefix, ttl)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func testSession(id string) *domain.Session {
	at := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	return &domain.Session{
		ID:    id,
		State: domain.StateRecommending,
		AccumulatedSlots: map[domain.Category]domain.SlotValue{
			domain.CategoryLocation:      {Value: "No.1 PE", Confidence: 1},
			domain.CategoryEquipmentType: {Value: "Pressure Vessel", Confidence: 0.95},
		},
		TurnCount:      2,
		History:        []domain.Message{{Role: domain.RoleUser, Content: "No.1 PE 압력베젤", Timestamp: at}},
		CreatedAt:      at,
		LastActivityAt: at.Add(time.Minute),
	}
}

func TestSessionStore_SaveAndGet(t *testing.T) {
	store, mr := newTestStore(t, 30*time.Minute)
	ctx := context.Background()
	session := testSession("s-1")

	require.NoError(t, store.Save(ctx, session))

	got, err := store.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, session, got)

	assert.True(t, mr.Exists(testPrefix+"s-1"))
	assert.Equal(t, 30*time.Minute, mr.TTL(testPrefix+"s-1"))
}

func TestSessionStore_Get_NotFound(t *testing.T) {
	store, _ := newTestStore(t, time.Minute)

	_, err := store.Get(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionStore_Get_Corrupt(t *testing.T) {
	store, mr := newTestStore(t, time.Minute)
	require.NoError(t, mr.Set(testPrefix+"bad", "{not json"))

	_, err := store.Get(context.Background(), "bad")

	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionStore_TTLExpiry(t *testing.T) {
	store, mr := newTestStore(t, 30*time.Minute)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, testSession("s-1")))

	mr.FastForward(20 * time.Minute)
	require.NoError(t, store.Save(ctx, testSession("s-1")))
	mr.FastForward(20 * time.Minute)

	_, err := store.Get(ctx, "s-1")
	require.NoError(t, err, "save refreshes the TTL")

	mr.FastForward(11 * time.Minute)
	_, err = store.Get(ctx, "s-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionStore_ZeroTTL(t *testing.T) {
	store, mr := newTestStore(t, 0)
	require.NoError(t, store.Save(context.Background(), testSession("s-1")))

	assert.Zero(t, mr.TTL(testPrefix+"s-1"))
}

func TestSessionStore_Delete(t *testing.T) {
	store, mr := newTestStore(t, time.Minute)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, testSession("s-1")))

	require.NoError(t, store.Delete(ctx, "s-1"))
	require.NoError(t, store.Delete(ctx, "s-1"))

	assert.False(t, mr.Exists(testPrefix+"s-1"))
}

func TestSessionStore_List(t *testing.T) {
	store, mr := newTestStore(t, time.Minute)
	ctx := context.Background()

	const n = 130
	for i := 0; i < n; i++ {
		require.NoError(t, store.Save(ctx, testSession(fmt.Sprintf("s-%03d", i))))
	}
	require.NoError(t, mr.Set("other:key", "ignored"))

	sessions, err := store.List(ctx)

	require.NoError(t, err)
	assert.Len(t, sessions, n)
	for _, s := range sessions {
		assert.Equal(t, "No.1 PE", s.AccumulatedSlots[domain.CategoryLocation].Value)
	}
}

func TestSessionStore_Save_Invalid(t *testing.T) {
	store, _ := newTestStore(t, time.Minute)

	assert.ErrorIs(t, store.Save(context.Background(), nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, store.Save(context.Background(), &domain.Session{}), domain.ErrInvalidInput)
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := Connect(context.Background(), domain.RedisSettings{Addr: mr.Addr(), KeyPrefix: "wo:"}, time.Minute)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(context.Background(), testSession("s-1")))
	assert.True(t, mr.Exists("wo:s-1"))
}

func TestConnect_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := Connect(ctx, domain.RedisSettings{Addr: addr}, time.Minute)
	assert.Error(t, err)
}
