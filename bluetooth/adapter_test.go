package bluetooth

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("SimulatedAdapter", func() {
	var (
		mockCtrl   *gomock.Controller
		visibility *MockVisibility
		locator    *MockLocator
		adapter    *SimulatedAdapter
		config     Config
		links      []*ConnectionContext
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		visibility = NewMockVisibility(mockCtrl)
		locator = NewMockLocator(mockCtrl)
		config = DefaultConfig()
		adapter = NewSimulatedAdapter("self", config, visibility)

		builder := MakeBuilder().
			WithClock(clock.NewMock()).
			WithLocator(locator)
		links = []*ConnectionContext{
			builder.Build("self", "near"),
			builder.Build("far", "self"),
		}
		for _, l := range links {
			adapter.AddNeighbor(l)
		}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should start without tokens", func() {
		Expect(adapter.Tokens()).To(Equal(0))
	})

	It("should grant a token per full interval", func() {
		adapter.Permit(600 * time.Millisecond)
		Expect(adapter.Tokens()).To(Equal(0))

		adapter.Permit(400 * time.Millisecond)
		Expect(adapter.Tokens()).To(Equal(1))

		adapter.Permit(2 * time.Second)
		Expect(adapter.Tokens()).To(Equal(3))
	})

	It("should never bank more than the maximum", func() {
		for i := 0; i < 10; i++ {
			adapter.Permit(config.DiscoveryTokenInterval)
		}

		Expect(adapter.Tokens()).To(Equal(config.MaxDiscoveryTokens))
	})

	It("should list neighbors ordered by ID", func() {
		neighbors := adapter.Neighbors()

		Expect(neighbors).To(HaveLen(2))
		Expect(neighbors[0].ID()).To(Equal(AdapterID("far")))
		Expect(neighbors[1].ID()).To(Equal(AdapterID("near")))

		n, ok := adapter.Neighbor("near")
		Expect(ok).To(BeTrue())
		Expect(n.Link()).To(BeIdenticalTo(links[0]))
	})

	It("should discover only fully visible neighbors", func() {
		visibility.EXPECT().Connectedness(AdapterID("self"), AdapterID("far")).
			Return(0.7)
		visibility.EXPECT().Connectedness(AdapterID("self"), AdapterID("near")).
			Return(1.0)

		adapter.Permit(config.DiscoveryTokenInterval)
		found, err := adapter.Discover(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(HaveLen(1))
		Expect(found[0].ID()).To(Equal(AdapterID("near")))
		Expect(adapter.Tokens()).To(Equal(0))
	})

	It("should wait for a token before discovering", func() {
		visibility.EXPECT().Connectedness(gomock.Any(), gomock.Any()).
			Return(0.0).Times(2)

		done := make(chan []Neighbor, 1)
		go func() {
			defer GinkgoRecover()

			found, err := adapter.Discover(context.Background())
			Expect(err).NotTo(HaveOccurred())
			done <- found
		}()

		Consistently(done, 20*time.Millisecond).ShouldNot(Receive())

		adapter.Permit(config.DiscoveryTokenInterval)
		Eventually(done).Should(Receive(BeEmpty()))
		Expect(adapter.Tokens()).To(Equal(0))
	})

	It("should give up discovering when the context ends", func() {
		ctx, cancel := context.WithTimeout(context.Background(),
			10*time.Millisecond)
		defer cancel()

		_, err := adapter.Discover(ctx)
		Expect(err).To(MatchError(context.DeadlineExceeded))
	})
})
