package async

import (
	"context"
	"sync"
)

// A Latch is a one-shot signal. Once set, it stays set.
type Latch struct {
	once sync.Once
	done chan struct{}
}

// NewLatch creates an unset latch.
func NewLatch() *Latch {
	return &Latch{done: make(chan struct{})}
}

// Set releases all current and future waiters.
func (l *Latch) Set() {
	l.once.Do(func() { close(l.done) })
}

// IsSet tells if the latch has been set.
func (l *Latch) IsSet() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// Done returns a channel that is closed when the latch is set.
func (l *Latch) Done() <-chan struct{} {
	return l.done
}

// Wait blocks until the latch is set or the context is done.
func (l *Latch) Wait(ctx context.Context) error {
	select {
	case <-l.done:
		return nil
	default:
	}

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// An AutoResetLatch releases a single waiter per Set. A Set with nobody
// waiting is remembered until the next Wait. Multiple Sets without a Wait in
// between collapse into one.
type AutoResetLatch struct {
	signal chan struct{}
}

// NewAutoResetLatch creates an unset AutoResetLatch.
func NewAutoResetLatch() *AutoResetLatch {
	return &AutoResetLatch{signal: make(chan struct{}, 1)}
}

// Set signals the latch.
func (l *AutoResetLatch) Set() {
	select {
	case l.signal <- struct{}{}:
	default:
	}
}

// Wait consumes the signal, waiting for it if necessary.
func (l *AutoResetLatch) Wait(ctx context.Context) error {
	select {
	case <-l.signal:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
