package bluetooth

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/campfirenet/meshsim/async"
	"github.com/campfirenet/meshsim/channels"
	"github.com/campfirenet/meshsim/hooking"
	"github.com/campfirenet/meshsim/id"
	"go.uber.org/zap"
)

// A Locator tells where an adapter currently is.
type Locator interface {
	Locate(id AdapterID) Vec2
}

// LinkState is the state of a link.
type LinkState int

// Link states.
const (
	Disconnected LinkState = iota
	HandshakePending
	Connected
)

func (s LinkState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case HandshakePending:
		return "handshake_pending"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// A ConnectionContext simulates the link between two adapters. A single
// driver consumes the link's adapter events in release-time order and is the
// only writer of the link state.
type ConnectionContext struct {
	hooking.HookableBase

	name      string
	endpoints [2]AdapterID
	locator   Locator
	clock     clock.Clock
	config    Config
	logger    *zap.Logger
	idGen     id.Generator

	events    *channels.PriorityChannel[AdapterEvent]
	inbound   [2]*channels.SlotChannel[[]byte]
	lifecycle sync.Mutex
	dispatch  *channels.Dispatch

	connected        [2]atomic.Bool
	handshakePending atomic.Bool

	// Owned by the driver.
	pending *BeginConnect
}

// Name returns the name of the link.
func (c *ConnectionContext) Name() string {
	return c.name
}

// Endpoints returns the two adapters of the link.
func (c *ConnectionContext) Endpoints() (AdapterID, AdapterID) {
	return c.endpoints[0], c.endpoints[1]
}

// Start launches the driver. Starting twice has no effect.
func (c *ConnectionContext) Start() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.dispatch != nil {
		return
	}

	c.dispatch = channels.NewDispatch(
		channels.TimesInfinite,
		channels.WithLogger(c.logger),
	)
	channels.Case(c.dispatch, c.events, c.handle)
}

// Shutdown stops the driver and waits for it to exit. Operations still in
// flight are never completed.
func (c *ConnectionContext) Shutdown() error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.dispatch == nil {
		return nil
	}

	return c.dispatch.Shutdown()
}

// PendingEvents returns the number of queued adapter events.
func (c *ConnectionContext) PendingEvents() int {
	return c.events.Len()
}

// State returns the state of the link.
func (c *ConnectionContext) State() LinkState {
	if c.connected[0].Load() || c.connected[1].Load() {
		return Connected
	}

	if c.handshakePending.Load() {
		return HandshakePending
	}

	return Disconnected
}

// IsConnected tells if the adapter sees the link as connected.
func (c *ConnectionContext) IsConnected(self AdapterID) bool {
	return c.connected[c.sideOf(self)].Load()
}

// InboundChannel returns the payloads received by the adapter.
func (c *ConnectionContext) InboundChannel(
	self AdapterID,
) channels.ReadableChannel[[]byte] {
	return c.inbound[c.sideOf(self)]
}

// Other returns the adapter at the other end of the link.
func (c *ConnectionContext) Other(self AdapterID) AdapterID {
	return c.endpoints[1-c.sideOf(self)]
}

func (c *ConnectionContext) sideOf(self AdapterID) int {
	switch self {
	case c.endpoints[0]:
		return 0
	case c.endpoints[1]:
		return 1
	default:
		panic(fmt.Sprintf("adapter %s is not an endpoint of link %s",
			self, c.name))
	}
}

func (c *ConnectionContext) newEventBase(t time.Time) eventBase {
	return eventBase{id: c.idGen.Generate(), time: t}
}

// Connect requests a connection on behalf of self. It returns nil once the
// peer has also requested a connection, or an ErrHandshakeTimeout error. A
// request whose caller gives up still runs until its timeout.
func (c *ConnectionContext) Connect(ctx context.Context, self AdapterID) error {
	c.sideOf(self)

	if err := ctx.Err(); err != nil {
		return err
	}

	now := c.clock.Now()
	begin := &BeginConnect{
		eventBase: c.newEventBase(now.Add(c.config.BaseHandshakeDelay)),
		Initiator: self,
		Result:    async.NewBox[bool](),
	}

	timeout := &TimeoutConnect{
		eventBase: c.newEventBase(now.Add(c.config.HandshakeTimeout)),
		Begin:     begin,
	}

	// A request is never queued without its timeout.
	for _, evt := range []AdapterEvent{begin, timeout} {
		if err := c.events.Write(context.Background(), evt); err != nil {
			return err
		}
	}

	_, err := begin.Result.Wait(ctx)

	return err
}

// Send transfers data to the other end of the link. It returns once the whole
// payload is delivered, or an ErrNotConnected error.
func (c *ConnectionContext) Send(
	ctx context.Context,
	self AdapterID,
	data []byte,
) error {
	c.sideOf(self)

	interval := c.config.SendTickInterval
	send := &Send{
		eventBase: c.newEventBase(c.clock.Now().Add(interval)),
		Interval:  interval,
		Initiator: self,
		Result:    async.NewBox[bool](),
		Payload:   append([]byte(nil), data...),
	}

	if err := c.events.Write(ctx, send); err != nil {
		return err
	}

	_, err := send.Result.Wait(ctx)

	return err
}

func (c *ConnectionContext) handle(evt AdapterEvent) error {
	if c.NumHooks() > 0 {
		c.InvokeHook(hooking.HookCtx{
			Domain: c,
			Pos:    HookPosBeforeEvent,
			Item:   evt,
		})
	}

	var outcome Outcome

	switch e := evt.(type) {
	case *BeginConnect:
		outcome = c.handleBeginConnect(e)
	case *TimeoutConnect:
		outcome = c.handleTimeoutConnect(e)
	case *Send:
		outcome = c.handleSend(e)
	default:
		err := fmt.Errorf("%w: unexpected adapter event %T on link %s",
			channels.ErrInvalidState, evt, c.name)
		c.logger.Error("link driver stopped", zap.Error(err))

		return err
	}

	c.logger.Debug("adapter event handled",
		zap.String("link", c.name),
		zap.String("event", EventKind(evt)),
		zap.String("outcome", string(outcome)))

	if c.NumHooks() > 0 {
		c.InvokeHook(hooking.HookCtx{
			Domain: c,
			Pos:    HookPosAfterEvent,
			Item:   evt,
			Detail: outcome,
		})
	}

	return nil
}

func (c *ConnectionContext) connectivity() Connectivity {
	return ComputeConnectivity(
		c.locator.Locate(c.endpoints[0]),
		c.locator.Locate(c.endpoints[1]),
		c.config,
	)
}

func (c *ConnectionContext) handleBeginConnect(e *BeginConnect) Outcome {
	if !c.connectivity().InRange {
		return OutcomeUnheard
	}

	if c.pending == nil {
		c.setPending(e)
		return OutcomeHandshakePending
	}

	if c.pending.Initiator == e.Initiator {
		c.pending.Result.SetError(
			handshakeTimeout(e.Initiator, c.Other(e.Initiator)))
		c.setPending(e)

		return OutcomeSuperseded
	}

	c.pending.Result.SetResult(true)
	e.Result.SetResult(true)
	c.setPending(nil)

	c.connected[0].Store(true)
	c.connected[1].Store(true)

	return OutcomeConnected
}

func (c *ConnectionContext) handleTimeoutConnect(e *TimeoutConnect) Outcome {
	if e.Begin == c.pending {
		c.setPending(nil)
	}

	// Requests that were never heard also expire here.
	if !e.Begin.Result.SetError(
		handshakeTimeout(e.Begin.Initiator, c.Other(e.Begin.Initiator))) {
		return OutcomeStale
	}

	return OutcomeTimedOut
}

func (c *ConnectionContext) setPending(e *BeginConnect) {
	c.pending = e
	c.handshakePending.Store(e != nil)
}

func (c *ConnectionContext) handleSend(e *Send) Outcome {
	self := c.sideOf(e.Initiator)
	peer := c.endpoints[1-self]

	if !c.connected[self].Load() {
		e.Result.SetError(notConnected(e.Initiator, peer))
		return OutcomeRejected
	}

	conn := c.connectivity()
	if !conn.InRange {
		c.connected[0].Store(false)
		c.connected[1].Store(false)
		e.Result.SetError(notConnected(e.Initiator, peer))

		return OutcomeDisconnected
	}

	delta := int(math.Ceil(conn.SignalQuality * e.Interval.Seconds() *
		float64(c.config.MaxOutboundBytesPerSecond)))
	bytesSent := e.BytesSent + delta

	if bytesSent >= len(e.Payload) {
		_ = c.inbound[1-self].Write(context.Background(), e.Payload)
		e.Result.SetResult(true)

		return OutcomeDelivered
	}

	next := &Send{
		eventBase: c.newEventBase(e.Time().Add(e.Interval)),
		Interval:  e.Interval,
		Initiator: e.Initiator,
		Result:    e.Result,
		Payload:   e.Payload,
		BytesSent: bytesSent,
	}
	_ = c.events.Write(context.Background(), next)

	return OutcomeInProgress
}
