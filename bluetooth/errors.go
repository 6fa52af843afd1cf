package bluetooth

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned when sending over a link that was never
	// established or that broke. The caller needs to handshake again.
	ErrNotConnected = errors.New("bluetooth: not connected")

	// ErrHandshakeTimeout is returned when the peer does not answer a
	// handshake in time.
	ErrHandshakeTimeout = errors.New("bluetooth: handshake timed out")
)

func notConnected(from, to AdapterID) error {
	return fmt.Errorf("%w: %s -> %s", ErrNotConnected, from, to)
}

func handshakeTimeout(from, to AdapterID) error {
	return fmt.Errorf("%w: %s -> %s", ErrHandshakeTimeout, from, to)
}
