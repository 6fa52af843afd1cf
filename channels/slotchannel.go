package channels

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/campfirenet/meshsim/async"
)

type slotState = int32

const (
	statePending slotState = iota
	stateCompleting
	stateCompleted
	stateCancelled
)

// A writerSlot carries a single written value until exactly one reader
// claims it or the writer cancels it.
type writerSlot[T any] struct {
	state           atomic.Int32
	value           T
	completion      *async.Latch
	completingFreed *async.AutoResetLatch
}

func newWriterSlot[T any](v T) *writerSlot[T] {
	return &writerSlot[T]{
		value:           v,
		completion:      async.NewLatch(),
		completingFreed: async.NewAutoResetLatch(),
	}
}

// claim moves a pending slot into the completing state.
func (s *writerSlot[T]) claim() (slotState, bool) {
	if s.state.CompareAndSwap(statePending, stateCompleting) {
		return stateCompleting, true
	}

	return s.state.Load(), false
}

func (s *writerSlot[T]) complete() {
	s.state.Store(stateCompleted)
	s.completingFreed.Set()
	s.completion.Set()
}

func (s *writerSlot[T]) release() {
	s.state.Store(statePending)
	s.completingFreed.Set()
}

// A SlotChannel is a FIFO channel in which every write is claimed by exactly
// one reader or cancelled by its writer.
type SlotChannel[T any] struct {
	waitForReader bool

	queueLock sync.Mutex
	queue     []*writerSlot[T]
	available *async.Semaphore
}

// NewBlocking creates a channel whose writes return only after a reader
// claims the value.
func NewBlocking[T any]() *SlotChannel[T] {
	return &SlotChannel[T]{
		waitForReader: true,
		available:     async.NewSemaphore(0),
	}
}

// NewNonblocking creates a channel whose writes return as soon as the value
// is queued.
func NewNonblocking[T any]() *SlotChannel[T] {
	return &SlotChannel[T]{
		available: async.NewSemaphore(0),
	}
}

// Count returns the number of queued values that are still claimable.
func (c *SlotChannel[T]) Count() int {
	c.queueLock.Lock()
	defer c.queueLock.Unlock()

	n := 0
	for _, s := range c.queue {
		if s.state.Load() == statePending {
			n++
		}
	}

	return n
}

func (c *SlotChannel[T]) enqueue(s *writerSlot[T]) {
	c.queueLock.Lock()
	c.queue = append(c.queue, s)
	c.queueLock.Unlock()

	c.available.Release()
}

func (c *SlotChannel[T]) dequeue() (*writerSlot[T], bool) {
	c.queueLock.Lock()
	defer c.queueLock.Unlock()

	if len(c.queue) == 0 {
		return nil, false
	}

	s := c.queue[0]
	c.queue[0] = nil
	c.queue = c.queue[1:]

	return s, true
}

// Write queues a value. A blocking channel waits until the value is claimed.
// If the context ends first and the writer wins the race against readers,
// the value is withdrawn and the context error returned. A value that a
// reader already claimed counts as written.
func (c *SlotChannel[T]) Write(ctx context.Context, v T) error {
	s := newWriterSlot(v)
	c.enqueue(s)

	if !c.waitForReader {
		return nil
	}

	err := s.completion.Wait(ctx)
	if err == nil {
		return nil
	}

	for {
		if s.state.CompareAndSwap(statePending, stateCancelled) {
			return err
		}

		switch s.state.Load() {
		case stateCompleting:
			_ = s.completingFreed.Wait(context.Background())
		case stateCompleted:
			return nil
		case stateCancelled:
			return ErrInvalidState
		}
	}
}

// Read returns the first value, in arrival order, that passes the acceptance
// test. Rejected values go back to the end of the queue.
func (c *SlotChannel[T]) Read(
	ctx context.Context,
	accept func(T) bool,
) (T, error) {
	var zero T

	for {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		if err := c.available.Wait(ctx); err != nil {
			return zero, err
		}

		s, ok := c.dequeue()
		if !ok {
			return zero, ErrInvalidState
		}

		state, claimed := s.claim()
		if !claimed {
			if state == stateCancelled {
				continue
			}

			return zero, ErrInvalidState
		}

		if accept(s.value) {
			s.complete()
			return s.value, nil
		}

		s.release()
		c.enqueue(s)
		runtime.Gosched()
	}
}

// TryRead claims the value at the head of the queue if there is one.
func (c *SlotChannel[T]) TryRead() (T, bool, error) {
	var zero T

	for {
		if !c.available.TryTake() {
			return zero, false, nil
		}

		s, ok := c.dequeue()
		if !ok {
			return zero, false, ErrInvalidState
		}

		state, claimed := s.claim()
		if claimed {
			s.complete()
			return s.value, true, nil
		}

		if state != stateCancelled {
			return zero, false, ErrInvalidState
		}
	}
}
