package id

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Generators", func() {
	It("should generate sequential IDs", func() {
		g := NewSequentialGenerator("agent-")

		Expect(g.Generate()).To(Equal("agent-1"))
		Expect(g.Generate()).To(Equal("agent-2"))
	})

	It("should generate unique IDs in parallel", func() {
		for _, g := range []Generator{
			NewSequentialGenerator(""),
			NewParallelGenerator(),
		} {
			var lock sync.Mutex
			var wg sync.WaitGroup
			seen := make(map[string]bool)

			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < 100; j++ {
						id := g.Generate()
						lock.Lock()
						seen[id] = true
						lock.Unlock()
					}
				}()
			}
			wg.Wait()

			Expect(seen).To(HaveLen(1600))
		}
	})
})
