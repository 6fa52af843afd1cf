package async

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Box", func() {
	It("should deliver the first result only", func() {
		box := NewBox[int]()

		Expect(box.Done()).To(BeFalse())
		Expect(box.SetResult(1)).To(BeTrue())
		Expect(box.SetResult(2)).To(BeFalse())
		Expect(box.SetError(errors.New("late"))).To(BeFalse())

		v, err := box.Wait(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(1))
		Expect(box.Done()).To(BeTrue())
	})

	It("should deliver errors", func() {
		box := NewBox[bool]()
		failure := errors.New("failure")

		go func() {
			time.Sleep(5 * time.Millisecond)
			box.SetError(failure)
		}()

		_, err := box.Wait(context.Background())
		Expect(err).To(MatchError(failure))
	})

	It("should abandon the wait on cancellation", func() {
		box := NewBox[bool]()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := box.Wait(ctx)
		Expect(err).To(MatchError(context.Canceled))
		Expect(box.Done()).To(BeFalse())
	})
})
