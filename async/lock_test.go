package async

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Lock", func() {
	It("should be exclusive", func() {
		lock := NewLock()

		Expect(lock.Lock(context.Background())).To(Succeed())
		Expect(lock.TryLock()).To(BeFalse())

		ctx, cancel := context.WithTimeout(
			context.Background(), 10*time.Millisecond)
		defer cancel()
		Expect(lock.Lock(ctx)).To(MatchError(context.DeadlineExceeded))

		lock.Unlock()
		Expect(lock.TryLock()).To(BeTrue())
		lock.Unlock()
	})

	It("should hand the lock to a waiter", func() {
		lock := NewLock()
		Expect(lock.Lock(context.Background())).To(Succeed())

		acquired := make(chan error)
		go func() { acquired <- lock.Lock(context.Background()) }()

		Consistently(acquired, 20*time.Millisecond).ShouldNot(Receive())
		lock.Unlock()
		Eventually(acquired).Should(Receive(BeNil()))
	})

	It("should panic when unlocking a free lock", func() {
		Expect(func() { NewLock().Unlock() }).To(Panic())
	})
})
