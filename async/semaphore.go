package async

import (
	"container/list"
	"context"
	"sync"
)

// A Semaphore is a counting semaphore. Waiters are served in FIFO order.
type Semaphore struct {
	lock    sync.Mutex
	count   int
	waiters list.List
}

// NewSemaphore creates a semaphore that holds the given number of tokens.
func NewSemaphore(count int) *Semaphore {
	if count < 0 {
		panic("semaphore count cannot be negative")
	}

	return &Semaphore{count: count}
}

// Count returns the number of tokens that can be taken without waiting.
func (s *Semaphore) Count() int {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.count
}

// Release returns one token. If there is a waiter, the token is handed to the
// waiter directly.
func (s *Semaphore) Release() {
	s.lock.Lock()
	defer s.lock.Unlock()

	front := s.waiters.Front()
	if front == nil {
		s.count++
		return
	}

	s.waiters.Remove(front)
	close(front.Value.(chan struct{}))
}

// TryTake takes a token if one is available.
func (s *Semaphore) TryTake() bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.count == 0 {
		return false
	}

	s.count--

	return true
}

// Wait takes a token, waiting until one is released or the context is done.
// A cancelled Wait never holds a token.
func (s *Semaphore) Wait(ctx context.Context) error {
	s.lock.Lock()
	if s.count > 0 {
		s.count--
		s.lock.Unlock()

		return nil
	}

	if err := ctx.Err(); err != nil {
		s.lock.Unlock()
		return err
	}

	granted := make(chan struct{})
	elem := s.waiters.PushBack(granted)
	s.lock.Unlock()

	select {
	case <-granted:
		return nil
	case <-ctx.Done():
	}

	s.lock.Lock()
	select {
	case <-granted:
		s.lock.Unlock()

		// The token arrived together with the cancellation. Give it to the
		// next waiter.
		s.Release()
	default:
		s.waiters.Remove(elem)
		s.lock.Unlock()
	}

	return ctx.Err()
}
