package async

import (
	"context"
	"sync"
)

// A Box holds the result of an operation that completes exactly once.
type Box[T any] struct {
	lock   sync.Mutex
	latch  *Latch
	result T
	err    error
}

// NewBox creates an empty Box.
func NewBox[T any]() *Box[T] {
	return &Box[T]{latch: NewLatch()}
}

// SetResult completes the box with a value. It returns false if the box was
// already completed.
func (b *Box[T]) SetResult(v T) bool {
	return b.complete(v, nil)
}

// SetError completes the box with an error. It returns false if the box was
// already completed.
func (b *Box[T]) SetError(err error) bool {
	var zero T
	return b.complete(zero, err)
}

func (b *Box[T]) complete(v T, err error) bool {
	b.lock.Lock()
	defer b.lock.Unlock()

	if b.latch.IsSet() {
		return false
	}

	b.result = v
	b.err = err
	b.latch.Set()

	return true
}

// Done tells if the box has been completed.
func (b *Box[T]) Done() bool {
	return b.latch.IsSet()
}

// Wait blocks until the box completes and returns its content. If the context
// ends first, the context error is returned and the box is left untouched.
func (b *Box[T]) Wait(ctx context.Context) (T, error) {
	if err := b.latch.Wait(ctx); err != nil {
		var zero T
		return zero, err
	}

	b.lock.Lock()
	defer b.lock.Unlock()

	return b.result, b.err
}
