package bluetooth

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Connectivity", func() {
	config := DefaultConfig()

	It("should have full quality at the same spot", func() {
		c := ComputeConnectivity(Vec2{3, 4}, Vec2{3, 4}, config)

		Expect(c.InRange).To(BeTrue())
		Expect(c.IsSufficientQuality).To(BeTrue())
		Expect(c.SignalQuality).To(BeNumerically("==", 1))
	})

	It("should fall off with the squared distance", func() {
		c := ComputeConnectivity(Vec2{0, 0}, Vec2{50, 50}, config)

		Expect(c.InRange).To(BeTrue())
		Expect(c.SignalQuality).To(BeNumerically("~", 0.5, 1e-9))
	})

	It("should tell weak links apart", func() {
		c := ComputeConnectivity(Vec2{0, 0}, Vec2{90, 0}, config)

		Expect(c.InRange).To(BeTrue())
		Expect(c.IsSufficientQuality).To(BeFalse())
		Expect(c.SignalQuality).To(BeNumerically("~", 0.19, 1e-9))
	})

	It("should be out of range beyond the range", func() {
		c := ComputeConnectivity(Vec2{0, 0}, Vec2{0, 100}, config)

		Expect(c.InRange).To(BeFalse())
		Expect(c.IsSufficientQuality).To(BeFalse())
		Expect(c.SignalQuality).To(BeZero())
		Expect(Quality(Vec2{0, 0}, Vec2{0, 200}, config)).
			To(BeNumerically("==", -3))
	})
})

var _ = Describe("Config", func() {
	It("should accept the default constants", func() {
		Expect(DefaultConfig().Validate()).To(Succeed())
	})

	DescribeTable("should reject constants that cannot drive a link",
		func(mutate func(*Config)) {
			config := DefaultConfig()
			mutate(&config)

			Expect(config.Validate()).NotTo(Succeed())
			Expect(func() {
				NewSimulatedAdapter("self", config, nil)
			}).To(Panic())
			Expect(func() {
				MakeBuilder().
					WithConfig(config).
					WithLocator(NewMockLocator(nil)).
					Build("a", "b")
			}).To(Panic())
		},
		Entry("zero range", func(c *Config) { c.Range = 0 }),
		Entry("quality of one", func(c *Config) { c.MinViableSignalQuality = 1 }),
		Entry("negative delay", func(c *Config) { c.BaseHandshakeDelay = -1 }),
		Entry("zero timeout", func(c *Config) { c.HandshakeTimeout = 0 }),
		Entry("zero send tick", func(c *Config) { c.SendTickInterval = 0 }),
		Entry("zero rate", func(c *Config) { c.MaxOutboundBytesPerSecond = 0 }),
		Entry("no tokens", func(c *Config) { c.MaxDiscoveryTokens = 0 }),
		Entry("zero token interval",
			func(c *Config) { c.DiscoveryTokenInterval = 0 }),
	)
})
