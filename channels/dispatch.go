package channels

import (
	"context"
	"errors"
	"math"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/campfirenet/meshsim/async"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// TimesInfinite is the dispatch budget that never runs out.
const TimesInfinite = math.MinInt64

// A Dispatch waits on many channels at once. Each registered case runs its
// own driver that reads from the case's channel and calls the case handler.
// All cases share one budget of handler invocations. When the budget is used
// up, the dispatch cancels the remaining drivers and completes.
type Dispatch struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	remaining  atomic.Int64
	completion *async.Latch
	completed  atomic.Bool

	// Handlers granted a fire hold a read lock until they return.
	firing   sync.RWMutex
	drivers  sync.WaitGroup
	errsLock sync.Mutex
	errs     error
}

// A DispatchOption configures a Dispatch.
type DispatchOption func(*Dispatch)

// WithLogger sets the logger that reports failing handlers.
func WithLogger(logger *zap.Logger) DispatchOption {
	return func(d *Dispatch) {
		d.logger = logger
	}
}

// NewDispatch creates a Dispatch that calls handlers at most times times in
// total, or forever if times is TimesInfinite.
func NewDispatch(times int64, opts ...DispatchOption) *Dispatch {
	if times < 0 && times != TimesInfinite {
		panic("dispatch budget cannot be negative")
	}

	d := &Dispatch{
		logger:     zap.NewNop(),
		completion: async.NewLatch(),
	}
	d.ctx, d.cancel = context.WithCancel(context.Background())
	d.remaining.Store(times)

	for _, opt := range opts {
		opt(d)
	}

	if times == 0 {
		d.finish()
	}

	return d
}

// Case registers a channel and the handler that receives its values. Case
// returns the dispatch so that registrations can be chained.
func Case[T any](
	d *Dispatch,
	ch ReadableChannel[T],
	handler func(T) error,
) *Dispatch {
	d.drivers.Add(1)

	go func() {
		defer d.drivers.Done()

		err := runCase(d, ch, handler)
		if err != nil {
			d.logger.Error("dispatch case terminated", zap.Error(err))
			d.recordErr(err)
		}
	}()

	return d
}

func runCase[T any](
	d *Dispatch,
	ch ReadableChannel[T],
	handler func(T) error,
) error {
	for d.ctx.Err() == nil {
		taken, isFinal := false, false

		v, err := ch.Read(d.ctx, func(T) bool {
			// Some channels call accept under their own lock, so it must not
			// block. The lock is only contended once the budget is spent.
			if !d.firing.TryRLock() {
				return false
			}

			taken, isFinal = d.take()
			if !taken {
				d.firing.RUnlock()
			}

			return taken
		})
		if err != nil {
			if taken {
				d.firing.RUnlock()
				if isFinal {
					d.settle()
				}
			}

			if isCancellation(err) {
				return nil
			}

			return err
		}

		if !isFinal {
			err := handler(v)
			d.firing.RUnlock()

			if err != nil {
				return err
			}

			continue
		}

		d.cancel()
		err = handler(v)
		d.firing.RUnlock()
		d.settle()

		return err
	}

	return nil
}

// take consumes one unit of budget. It reports whether the dispatch may fire
// and whether this is the last permitted fire.
func (d *Dispatch) take() (ok, final bool) {
	for {
		current := d.remaining.Load()
		if current == TimesInfinite {
			return true, false
		}

		next := current - 1
		if next < 0 {
			return false, false
		}

		if d.remaining.CompareAndSwap(current, next) {
			return true, next == 0
		}

		runtime.Gosched()
	}
}

// settle completes the dispatch once every handler that was granted a fire
// has returned.
func (d *Dispatch) settle() {
	d.firing.Lock()
	defer d.firing.Unlock()

	d.finish()
}

func (d *Dispatch) finish() {
	d.cancel()
	d.completed.Store(true)
	d.completion.Set()
}

func (d *Dispatch) recordErr(err error) {
	d.errsLock.Lock()
	defer d.errsLock.Unlock()

	d.errs = multierr.Append(d.errs, err)
}

// IsCompleted tells if the dispatch has used up its budget and every fired
// handler has returned, or if it has been shut down.
func (d *Dispatch) IsCompleted() bool {
	return d.completed.Load()
}

// Remaining returns the budget left. It returns TimesInfinite for unbounded
// dispatches.
func (d *Dispatch) Remaining() int64 {
	return d.remaining.Load()
}

// Wait blocks until the dispatch completes or the context ends. A budgeted
// dispatch completes only after all of its fired handlers have returned.
func (d *Dispatch) Wait(ctx context.Context) error {
	return d.completion.Wait(ctx)
}

// Shutdown stops all drivers regardless of the remaining budget and waits for
// them to exit. It returns the errors of handlers that failed.
func (d *Dispatch) Shutdown() error {
	d.finish()
	d.drivers.Wait()

	d.errsLock.Lock()
	defer d.errsLock.Unlock()

	return d.errs
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
