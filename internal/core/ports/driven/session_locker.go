package driven

import "context"

// SessionLocker serialises work on one session across processes that
// share a session store. The SessionService already serialises work
// within a process; a locker is only needed for shared stores.
type SessionLocker interface {
	// Lock blocks until the lock for session id is held or ctx is done.
	// The returned function releases the lock.
	Lock(ctx context.Context, id string) (unlock func(), err error)

	// TryLock takes the lock only if it is free. ok is false when another
	// holder has it.
	TryLock(ctx context.Context, id string) (unlock func(), ok bool, err error)
}
