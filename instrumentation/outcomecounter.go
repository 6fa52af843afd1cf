package instrumentation

import (
	"sort"
	"sync"

	"github.com/campfirenet/meshsim/bluetooth"
	"github.com/campfirenet/meshsim/hooking"
)

// OutcomeCounter counts how often each outcome of link events happens.
type OutcomeCounter struct {
	lock   sync.Mutex
	counts map[bluetooth.Outcome]uint64
	bytes  uint64
}

// NewOutcomeCounter creates a new OutcomeCounter.
func NewOutcomeCounter() *OutcomeCounter {
	return &OutcomeCounter{
		counts: make(map[bluetooth.Outcome]uint64),
	}
}

// Func counts the outcome of the handled adapter event.
func (c *OutcomeCounter) Func(ctx hooking.HookCtx) {
	_, evt, outcome, ok := linkEvent(ctx)
	if !ok {
		return
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	c.counts[outcome]++
	c.bytes += uint64(deliveredBytes(evt, outcome))
}

// Count returns the number of events that had the outcome.
func (c *OutcomeCounter) Count(outcome bluetooth.Outcome) uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.counts[outcome]
}

// Outcomes returns the outcomes seen so far, sorted.
func (c *OutcomeCounter) Outcomes() []bluetooth.Outcome {
	c.lock.Lock()
	defer c.lock.Unlock()

	outcomes := make([]bluetooth.Outcome, 0, len(c.counts))
	for o := range c.counts {
		outcomes = append(outcomes, o)
	}

	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i] < outcomes[j]
	})

	return outcomes
}

// BytesDelivered returns the payload bytes of all completed transfers.
func (c *OutcomeCounter) BytesDelivered() uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.bytes
}
