package bluetooth

import (
	"context"
	"errors"

	"github.com/campfirenet/meshsim/channels"
)

// A Neighbor is another device that an adapter can talk to.
type Neighbor interface {
	// ID returns the adapter ID of the neighbor.
	ID() AdapterID

	// IsConnected tells if the link to the neighbor is up.
	IsConnected() bool

	// InboundChannel returns the payloads the neighbor sent to us.
	InboundChannel() channels.ReadableChannel[[]byte]

	// Handshake connects to the neighbor. It fails with ErrHandshakeTimeout
	// if the neighbor does not handshake back in time.
	Handshake(ctx context.Context) error

	// TryHandshake connects to the neighbor and reports if it succeeded. A
	// timeout is not an error.
	TryHandshake(ctx context.Context) (bool, error)

	// TrySend transfers a payload to the neighbor. It fails with
	// ErrNotConnected if the link is down or breaks during the transfer.
	TrySend(ctx context.Context, data []byte) error
}

// A SimulatedNeighbor is the neighbor as seen through a simulated link.
type SimulatedNeighbor struct {
	self AdapterID
	link *ConnectionContext
}

// NewSimulatedNeighbor returns the neighbor at the other end of link, seen
// from self.
func NewSimulatedNeighbor(
	self AdapterID,
	link *ConnectionContext,
) *SimulatedNeighbor {
	link.sideOf(self)

	return &SimulatedNeighbor{self: self, link: link}
}

// ID returns the adapter ID of the neighbor.
func (n *SimulatedNeighbor) ID() AdapterID {
	return n.link.Other(n.self)
}

// Link returns the simulated link.
func (n *SimulatedNeighbor) Link() *ConnectionContext {
	return n.link
}

// IsConnected tells if the link to the neighbor is up.
func (n *SimulatedNeighbor) IsConnected() bool {
	return n.link.IsConnected(n.self)
}

// InboundChannel returns the payloads the neighbor sent to us.
func (n *SimulatedNeighbor) InboundChannel() channels.ReadableChannel[[]byte] {
	return n.link.InboundChannel(n.self)
}

// OutboundChannel injects payloads straight into the neighbor's inbound
// channel, bypassing the radio.
func (n *SimulatedNeighbor) OutboundChannel() channels.WritableChannel[[]byte] {
	return n.link.inbound[1-n.link.sideOf(n.self)]
}

// Handshake connects to the neighbor.
func (n *SimulatedNeighbor) Handshake(ctx context.Context) error {
	return n.link.Connect(ctx, n.self)
}

// TryHandshake connects to the neighbor and reports if it succeeded.
func (n *SimulatedNeighbor) TryHandshake(ctx context.Context) (bool, error) {
	err := n.Handshake(ctx)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrHandshakeTimeout):
		return false, nil
	default:
		return false, err
	}
}

// TrySend transfers a payload to the neighbor.
func (n *SimulatedNeighbor) TrySend(ctx context.Context, data []byte) error {
	return n.link.Send(ctx, n.self, data)
}
