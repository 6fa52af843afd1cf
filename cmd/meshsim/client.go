package main

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/campfirenet/meshsim/bluetooth"
	"github.com/campfirenet/meshsim/channels"
	"github.com/campfirenet/meshsim/objectstore"
	"go.uber.org/zap"
)

// GreetingNamespace is where received greetings are stored.
const GreetingNamespace = "greetings"

// A Greeting is what a probing client sends to its neighbors.
type Greeting struct {
	From  bluetooth.AdapterID `json:"from"`
	Epoch int                 `json:"epoch"`
}

// ClientStats counts what a probing client did.
type ClientStats struct {
	Handshakes int
	Sent       int
	Received   int
}

// A probingClient exercises one adapter. Every discovery round bumps its
// epoch and greets each visible neighbor. Greetings received from neighbors
// are kept in the object store.
type probingClient struct {
	adapter bluetooth.Adapter
	store   objectstore.Store
	logger  *zap.Logger

	lock    sync.Mutex
	epoch   int
	busy    map[bluetooth.AdapterID]bool
	reading map[bluetooth.AdapterID]bool
	heard   map[bluetooth.AdapterID]int
	stats   ClientStats

	wg sync.WaitGroup
}

func newProbingClient(
	adapter bluetooth.Adapter,
	store objectstore.Store,
	logger *zap.Logger,
) *probingClient {
	return &probingClient{
		adapter: adapter,
		store:   store,
		logger:  logger.With(zap.String("agent", string(adapter.ID()))),
		busy:    make(map[bluetooth.AdapterID]bool),
		reading: make(map[bluetooth.AdapterID]bool),
		heard:   make(map[bluetooth.AdapterID]int),
	}
}

// Run probes the neighborhood until the context ends.
func (c *probingClient) Run(ctx context.Context) error {
	defer c.wg.Wait()

	for {
		neighbors, err := c.adapter.Discover(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			return err
		}

		c.lock.Lock()
		c.epoch++
		c.lock.Unlock()

		for _, n := range neighbors {
			c.startReading(ctx, n)
			c.startVisit(ctx, n)
		}
	}
}

// Stats returns a copy of the counters.
func (c *probingClient) Stats() ClientStats {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.stats
}

// Heard returns the latest epoch received from a neighbor.
func (c *probingClient) Heard(id bluetooth.AdapterID) (int, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	epoch, ok := c.heard[id]

	return epoch, ok
}

func (c *probingClient) startReading(
	ctx context.Context,
	n bluetooth.Neighbor,
) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.reading[n.ID()] {
		return
	}

	c.reading[n.ID()] = true
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()
		c.readLoop(ctx, n)
	}()
}

func (c *probingClient) readLoop(ctx context.Context, n bluetooth.Neighbor) {
	for {
		payload, err := channels.Read(ctx, n.InboundChannel())
		if err != nil {
			return
		}

		c.receive(n.ID(), payload)
	}
}

func (c *probingClient) receive(from bluetooth.AdapterID, payload []byte) {
	var greeting Greeting
	if err := json.Unmarshal(payload, &greeting); err != nil {
		c.logger.Warn("dropping malformed greeting",
			zap.String("from", string(from)), zap.Error(err))
		return
	}

	hash, err := c.store.Put(GreetingNamespace, payload)
	if err != nil {
		c.logger.Error("cannot store greeting", zap.Error(err))
		return
	}

	c.lock.Lock()
	c.heard[from] = max(c.heard[from], greeting.Epoch)
	c.stats.Received++
	c.lock.Unlock()

	c.logger.Debug("greeting received",
		zap.String("from", string(from)),
		zap.Int("epoch", greeting.Epoch),
		zap.String("hash", hash))
}

func (c *probingClient) startVisit(ctx context.Context, n bluetooth.Neighbor) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.busy[n.ID()] {
		return
	}

	c.busy[n.ID()] = true
	epoch := c.epoch
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()
		defer func() {
			c.lock.Lock()
			delete(c.busy, n.ID())
			c.lock.Unlock()
		}()

		c.visit(ctx, n, epoch)
	}()
}

func (c *probingClient) visit(
	ctx context.Context,
	n bluetooth.Neighbor,
	epoch int,
) {
	if !n.IsConnected() {
		ok, err := n.TryHandshake(ctx)
		if err != nil || !ok {
			return
		}

		c.lock.Lock()
		c.stats.Handshakes++
		c.lock.Unlock()
	}

	payload, err := json.Marshal(Greeting{From: c.adapter.ID(), Epoch: epoch})
	if err != nil {
		panic(err)
	}

	err = n.TrySend(ctx, payload)
	switch {
	case err == nil:
		c.lock.Lock()
		c.stats.Sent++
		c.lock.Unlock()
	case errors.Is(err, bluetooth.ErrNotConnected):
		c.logger.Debug("neighbor lost",
			zap.String("neighbor", string(n.ID())))
	case ctx.Err() == nil:
		c.logger.Warn("cannot greet neighbor",
			zap.String("neighbor", string(n.ID())), zap.Error(err))
	}
}
