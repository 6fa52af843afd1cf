// Package bluetooth simulates point-to-point Bluetooth links between mobile
// devices. A link is a state machine driven by time-ordered adapter events.
// It handles handshakes, throttled transfers, timeouts and disconnections.
package bluetooth

import (
	"errors"
	"time"
)

// AdapterID identifies a Bluetooth adapter.
type AdapterID string

// Config holds the physical constants of the simulated radio.
type Config struct {
	// Range is the distance at which the signal quality drops to zero.
	Range float64

	// MinViableSignalQuality is the quality above which a link is considered
	// good.
	MinViableSignalQuality float64

	// BaseHandshakeDelay is how long a connect request takes to reach the
	// peer.
	BaseHandshakeDelay time.Duration

	// HandshakeTimeout is how long a connect request waits for the peer's
	// own request.
	HandshakeTimeout time.Duration

	// SendTickInterval is the period at which transfers make progress.
	SendTickInterval time.Duration

	// MaxOutboundBytesPerSecond is the transfer rate at full signal quality.
	MaxOutboundBytesPerSecond int

	// MaxDiscoveryTokens caps the discovery requests that can be banked.
	MaxDiscoveryTokens int

	// DiscoveryTokenInterval is the simulated time needed to earn one
	// discovery token.
	DiscoveryTokenInterval time.Duration
}

// DefaultConfig returns the radio constants used by the simulator.
func DefaultConfig() Config {
	return Config{
		Range:                     100,
		MinViableSignalQuality:    0.2,
		BaseHandshakeDelay:        300 * time.Millisecond,
		HandshakeTimeout:          5000 * time.Millisecond,
		SendTickInterval:          300 * time.Millisecond,
		MaxOutboundBytesPerSecond: 3 * 1024 * 1024,
		MaxDiscoveryTokens:        3,
		DiscoveryTokenInterval:    time.Second,
	}
}

// RangeSquared returns the square of the range.
func (c Config) RangeSquared() float64 {
	return c.Range * c.Range
}

// Validate reports the first constant that cannot drive a link or a
// discovery limiter.
func (c Config) Validate() error {
	switch {
	case !(c.Range > 0):
		return errors.New("bluetooth: range must be positive")
	case c.MinViableSignalQuality < 0 || c.MinViableSignalQuality >= 1:
		return errors.New("bluetooth: min viable signal quality must be in [0, 1)")
	case c.BaseHandshakeDelay < 0:
		return errors.New("bluetooth: handshake delay cannot be negative")
	case c.HandshakeTimeout <= 0:
		return errors.New("bluetooth: handshake timeout must be positive")
	case c.SendTickInterval <= 0:
		return errors.New("bluetooth: send tick interval must be positive")
	case c.MaxOutboundBytesPerSecond <= 0:
		return errors.New("bluetooth: outbound rate must be positive")
	case c.MaxDiscoveryTokens <= 0:
		return errors.New("bluetooth: at least one discovery token is needed")
	case c.DiscoveryTokenInterval <= 0:
		return errors.New("bluetooth: discovery token interval must be positive")
	}

	return nil
}
