package async

import "context"

// A Lock is a mutual exclusion lock whose acquisition can be abandoned.
type Lock struct {
	held chan struct{}
}

// NewLock creates an unlocked Lock.
func NewLock() *Lock {
	return &Lock{held: make(chan struct{}, 1)}
}

// Lock acquires the lock or returns the context error.
func (l *Lock) Lock(ctx context.Context) error {
	select {
	case l.held <- struct{}{}:
		return nil
	default:
	}

	select {
	case l.held <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryLock acquires the lock if it is free.
func (l *Lock) TryLock() bool {
	select {
	case l.held <- struct{}{}:
		return true
	default:
		return false
	}
}

// Unlock releases the lock. Unlocking a free lock panics.
func (l *Lock) Unlock() {
	select {
	case <-l.held:
	default:
		panic("unlock of unlocked lock")
	}
}
