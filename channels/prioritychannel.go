package channels

import (
	"context"
	"runtime"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/campfirenet/meshsim/async"
)

// A PriorityChannel releases each value at its own release time. Among
// released values, readers see the earliest release time first and ties in
// arrival order.
//
// A nonblocking bool channel works as a doorbell. It is rung once for every
// value whose release time has passed.
type PriorityChannel[T any] struct {
	clock       clock.Clock
	releaseTime func(T) time.Time

	lock     *async.Lock
	queue    *timedQueue[T]
	doorbell *SlotChannel[bool]
}

// NewPriorityChannel creates a PriorityChannel. The releaseTime function
// tells when a value becomes visible to readers.
func NewPriorityChannel[T any](
	clk clock.Clock,
	releaseTime func(T) time.Time,
) *PriorityChannel[T] {
	return &PriorityChannel[T]{
		clock:       clk,
		releaseTime: releaseTime,
		lock:        async.NewLock(),
		queue:       newTimedQueue[T](),
		doorbell:    NewNonblocking[bool](),
	}
}

// Len returns the number of queued values, released or not.
func (c *PriorityChannel[T]) Len() int {
	_ = c.lock.Lock(context.Background())
	defer c.lock.Unlock()

	return c.queue.len()
}

// Count returns the number of released values that have not been read.
func (c *PriorityChannel[T]) Count() int {
	return c.doorbell.Count()
}

// Write queues a value and arms its release. It does not wait for a reader.
func (c *PriorityChannel[T]) Write(ctx context.Context, v T) error {
	if err := c.lock.Lock(ctx); err != nil {
		return err
	}

	release := c.releaseTime(v)
	c.queue.push(v, release)
	c.lock.Unlock()

	delay := release.Sub(c.clock.Now())
	if delay <= 0 {
		c.ring()
		return nil
	}

	c.clock.AfterFunc(delay, c.ring)

	return nil
}

func (c *PriorityChannel[T]) ring() {
	_ = c.doorbell.Write(context.Background(), true)
}

// Read waits for a released value and returns the earliest one if it passes
// the acceptance test. Otherwise, the doorbell is rung again so that other
// readers get a chance, and the read starts over.
func (c *PriorityChannel[T]) Read(
	ctx context.Context,
	accept func(T) bool,
) (T, error) {
	var zero T

	for {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		if _, err := c.doorbell.Read(ctx, AcceptAll[bool]); err != nil {
			return zero, err
		}

		_ = c.lock.Lock(context.Background())

		item, ok := c.queue.peek()
		if !ok {
			c.lock.Unlock()
			return zero, ErrInvalidState
		}

		if accept(item.value) {
			c.queue.pop()
			c.lock.Unlock()

			return item.value, nil
		}

		c.lock.Unlock()
		c.ring()
		runtime.Gosched()
	}
}

// TryRead returns the earliest released value, if any.
func (c *PriorityChannel[T]) TryRead() (T, bool, error) {
	var zero T

	_, found, err := c.doorbell.TryRead()
	if err != nil || !found {
		return zero, false, err
	}

	_ = c.lock.Lock(context.Background())
	defer c.lock.Unlock()

	if c.queue.len() == 0 {
		return zero, false, ErrInvalidState
	}

	return c.queue.pop().value, true, nil
}
