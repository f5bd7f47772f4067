package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/workorder-assistant/internal/core/domain"
	"github.com/custodia-labs/workorder-assistant/internal/core/ports/driven"
	"github.com/custodia-labs/workorder-assistant/internal/core/services"
)

func TestSessionLocker_TryLock(t *testing.T) {
	store, mr := newTestStore(t, time.Minute)
	locker := store.Locker(10 * time.Second)
	ctx := context.Background()

	unlock, ok, err := locker.TryLock(ctx, "s-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists("lock:"+testPrefix+"s-1"))
	assert.Equal(t, 10*time.Second, mr.TTL("lock:"+testPrefix+"s-1"))

	_, ok, err = locker.TryLock(ctx, "s-1")
	require.NoError(t, err)
	assert.False(t, ok, "held lock is not granted twice")

	_, ok, err = locker.TryLock(ctx, "s-2")
	require.NoError(t, err)
	assert.True(t, ok, "other sessions are independent")

	unlock()
	assert.False(t, mr.Exists("lock:"+testPrefix+"s-1"))
}

func TestSessionLocker_UnlockKeepsForeignLock(t *testing.T) {
	store, mr := newTestStore(t, time.Minute)
	locker := store.Locker(time.Second)
	ctx := context.Background()

	unlock, ok, err := locker.TryLock(ctx, "s-1")
	require.NoError(t, err)
	require.True(t, ok)

	// The lease runs out and another holder takes the lock.
	mr.FastForward(2 * time.Second)
	_, ok, err = locker.TryLock(ctx, "s-1")
	require.NoError(t, err)
	require.True(t, ok)

	unlock()
	assert.True(t, mr.Exists("lock:"+testPrefix+"s-1"), "a stale holder must not release the new lock")
}

func TestSessionLocker_LockWaitsForRelease(t *testing.T) {
	store, _ := newTestStore(t, time.Minute)
	locker := store.Locker(10 * time.Second)
	ctx := context.Background()

	unlock, ok, err := locker.TryLock(ctx, "s-1")
	require.NoError(t, err)
	require.True(t, ok)

	acquired := make(chan struct{})
	go func() {
		second, err := locker.Lock(ctx, "s-1")
		if assert.NoError(t, err) {
			second()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("lock granted while held")
	case <-time.After(60 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock not granted after release")
	}
}

func TestSessionLocker_LockHonoursContext(t *testing.T) {
	store, _ := newTestStore(t, time.Minute)
	locker := store.Locker(10 * time.Second)

	_, ok, err := locker.TryLock(context.Background(), "s-1")
	require.NoError(t, err)
	require.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "s-1")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSessionLocker_LockKeysNotListed(t *testing.T) {
	store, _ := newTestStore(t, time.Minute)
	locker := store.Locker(0)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, testSession("s-1")))

	unlock, ok, err := locker.TryLock(ctx, "s-1")
	require.NoError(t, err)
	require.True(t, ok)
	defer unlock()

	sessions, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

// slowGetStore delays reads to widen the gap between read and write.
type slowGetStore struct {
	driven.SessionStore
	delay time.Duration
}

func (s *slowGetStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	time.Sleep(s.delay)
	return s.SessionStore.Get(ctx, id)
}

func TestSessionLocker_SerialisesServicesSharingStore(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)
	cfg := domain.SessionSettings{
		Backend:     domain.SessionBackendRedis,
		MaxIdle:     time.Hour,
		HistorySize: 20,
	}
	slow := &slowGetStore{SessionStore: store, delay: 50 * time.Millisecond}

	// Two services stand in for two processes: no shared in-process locks.
	first := services.NewSessionService(slow, cfg, nil)
	first.SetLocker(store.Locker(0))
	second := services.NewSessionService(slow, cfg, nil)
	second.SetLocker(store.Locker(0))

	ctx := context.Background()
	session, err := first.Create(ctx)
	require.NoError(t, err)

	location, equipment := "No.1 PE", "Pressure Vessel"
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := first.Update(ctx, session.ID, domain.ParsedInput{Location: &location, Confidence: 1},
			domain.StateCollectingInfo)
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		_, err := second.Update(ctx, session.ID, domain.ParsedInput{EquipmentType: &equipment, Confidence: 1},
			domain.StateCollectingInfo)
		assert.NoError(t, err)
	}()
	wg.Wait()

	got, err := first.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TurnCount, "no turn is lost")
	assert.Equal(t, map[domain.Category]string{
		domain.CategoryLocation:      location,
		domain.CategoryEquipmentType: equipment,
	}, got.SlotValues())
}
