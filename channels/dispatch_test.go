package channels

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Dispatch", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("should fire exactly the budgeted number of times", func() {
		const budget = 10

		channels := []*SlotChannel[int]{
			NewNonblocking[int](),
			NewNonblocking[int](),
			NewNonblocking[int](),
		}
		for _, ch := range channels {
			for i := 0; i < budget; i++ {
				Expect(ch.Write(ctx, i)).To(Succeed())
			}
		}

		var fired atomic.Int32
		d := NewDispatch(budget)
		for _, ch := range channels {
			Case(d, ch, func(int) error {
				fired.Add(1)
				return nil
			})
		}

		Expect(d.Wait(ctx)).To(Succeed())
		Expect(d.Shutdown()).To(Succeed())
		Expect(d.IsCompleted()).To(BeTrue())
		Expect(fired.Load()).To(BeEquivalentTo(budget))
		Expect(d.Remaining()).To(BeEquivalentTo(0))

		left := 0
		for _, ch := range channels {
			left += ch.Count()
		}
		Expect(left).To(Equal(3*budget - budget))
	})

	It("should keep dispatching until shut down", func() {
		ch := NewNonblocking[int]()
		var fired atomic.Int32

		d := Case(NewDispatch(TimesInfinite), ch, func(int) error {
			fired.Add(1)
			return nil
		})

		for i := 0; i < 5; i++ {
			Expect(ch.Write(ctx, i)).To(Succeed())
		}
		Eventually(fired.Load).Should(BeEquivalentTo(5))
		Expect(d.IsCompleted()).To(BeFalse())
		Expect(d.Remaining()).To(BeEquivalentTo(TimesInfinite))

		Expect(d.Shutdown()).To(Succeed())
		Expect(d.Wait(ctx)).To(Succeed())
		Expect(d.IsCompleted()).To(BeTrue())

		Expect(ch.Write(ctx, 6)).To(Succeed())
		Consistently(fired.Load, 20*time.Millisecond).
			Should(BeEquivalentTo(5))
		Expect(ch.Count()).To(Equal(1))
	})

	It("should complete only after every fired handler returns", func() {
		slow := NewNonblocking[int]()
		fast := NewNonblocking[int]()
		started := make(chan struct{})
		release := make(chan struct{})
		var fired atomic.Int32

		d := NewDispatch(2)
		Case(d, slow, func(int) error {
			close(started)
			<-release
			fired.Add(1)

			return nil
		})
		Case(d, fast, func(int) error {
			fired.Add(1)
			return nil
		})

		Expect(slow.Write(ctx, 1)).To(Succeed())
		Eventually(started).Should(BeClosed())
		Expect(fast.Write(ctx, 2)).To(Succeed())

		Eventually(fired.Load).Should(BeEquivalentTo(1))
		Consistently(d.IsCompleted, 50*time.Millisecond).Should(BeFalse())

		waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		Expect(d.Wait(waitCtx)).To(MatchError(context.DeadlineExceeded))

		close(release)
		Expect(d.Wait(ctx)).To(Succeed())
		Expect(d.IsCompleted()).To(BeTrue())
		Expect(fired.Load()).To(BeEquivalentTo(2))
		Expect(d.Shutdown()).To(Succeed())
	})

	It("should complete immediately with a zero budget", func() {
		d := NewDispatch(0)

		Expect(d.IsCompleted()).To(BeTrue())
		Expect(d.Wait(ctx)).To(Succeed())
	})

	It("should panic on a negative budget", func() {
		Expect(func() { NewDispatch(-1) }).To(Panic())
	})

	It("should time out waiting", func() {
		d := Case(NewDispatch(1), NewNonblocking[int](), func(int) error {
			return nil
		})

		waitCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()

		Expect(d.Wait(waitCtx)).To(MatchError(context.DeadlineExceeded))
		Expect(d.Shutdown()).To(Succeed())
	})

	It("should report failing handlers on shutdown", func() {
		failure := errors.New("handler failed")
		failing := NewNonblocking[int]()
		healthy := NewNonblocking[int]()
		var healthyFired atomic.Int32

		d := NewDispatch(TimesInfinite)
		Case(d, failing, func(int) error { return failure })
		Case(d, healthy, func(int) error {
			healthyFired.Add(1)
			return nil
		})

		Expect(failing.Write(ctx, 1)).To(Succeed())
		Expect(healthy.Write(ctx, 1)).To(Succeed())
		Expect(healthy.Write(ctx, 2)).To(Succeed())

		Eventually(healthyFired.Load).Should(BeEquivalentTo(2))
		Expect(d.Shutdown()).To(MatchError(failure))
	})

	It("should dispatch from a priority channel", func() {
		ch := NewPriorityChannel(clock.NewMock(), func(int) time.Time {
			return time.Time{}
		})
		Expect(ch.Write(ctx, 1)).To(Succeed())
		Expect(ch.Write(ctx, 2)).To(Succeed())

		var sum atomic.Int32
		d := Case(NewDispatch(2), ch, func(v int) error {
			sum.Add(int32(v))
			return nil
		})

		Expect(d.Wait(ctx)).To(Succeed())
		Expect(d.Shutdown()).To(Succeed())
		Expect(sum.Load()).To(BeEquivalentTo(3))
	})
})

var _ = Describe("Select", func() {
	It("should run exactly one case", func() {
		ctx := context.Background()
		a := NewNonblocking[string]()
		b := NewNonblocking[int]()
		Expect(a.Write(ctx, "x")).To(Succeed())
		Expect(b.Write(ctx, 1)).To(Succeed())

		var fired atomic.Int32
		err := Select(ctx,
			On[string](a, func(string) error { fired.Add(1); return nil }),
			On[int](b, func(int) error { fired.Add(1); return nil }),
		)

		Expect(err).NotTo(HaveOccurred())
		Expect(fired.Load()).To(BeEquivalentTo(1))
		Expect(a.Count() + b.Count()).To(Equal(1))
	})

	It("should give up when the context ends", func() {
		ctx, cancel := context.WithTimeout(context.Background(),
			10*time.Millisecond)
		defer cancel()

		err := Select(ctx, On[int](NewNonblocking[int](), func(int) error {
			return nil
		}))

		Expect(err).To(MatchError(context.DeadlineExceeded))
	})
})
