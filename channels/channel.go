// Package channels provides cancellable message channels, a release-time
// ordered channel and a select-like dispatcher that multiplexes channels.
package channels

import (
	"context"
	"errors"
)

// ErrInvalidState reports a broken channel invariant, such as a claimed slot
// showing up in the queue again. It indicates a bug, not a runtime condition.
var ErrInvalidState = errors.New("channels: invalid state")

// A ReadableChannel can be read from.
type ReadableChannel[T any] interface {
	// Read waits for the first value that passes the acceptance test.
	Read(ctx context.Context, accept func(T) bool) (T, error)

	// TryRead reads a value if one is ready. It never blocks.
	TryRead() (T, bool, error)

	// Count returns the number of values ready to be read.
	Count() int
}

// A WritableChannel can be written to.
type WritableChannel[T any] interface {
	Write(ctx context.Context, v T) error
}

// A Channel can be both written to and read from.
type Channel[T any] interface {
	ReadableChannel[T]
	WritableChannel[T]
}

// AcceptAll is an acceptance test that takes any value.
func AcceptAll[T any](T) bool {
	return true
}

// Read reads the next value from the channel.
func Read[T any](ctx context.Context, ch ReadableChannel[T]) (T, error) {
	return ch.Read(ctx, AcceptAll[T])
}

// Write writes a value into the channel.
func Write[T any](ctx context.Context, ch WritableChannel[T], v T) error {
	return ch.Write(ctx, v)
}
