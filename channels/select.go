package channels

import "context"

// A SelectCase is a case that can be registered on a Dispatch.
type SelectCase interface {
	register(d *Dispatch)
}

type selectCase[T any] struct {
	ch      ReadableChannel[T]
	handler func(T) error
}

func (c selectCase[T]) register(d *Dispatch) {
	Case(d, c.ch, c.handler)
}

// On creates a SelectCase for Select.
func On[T any](ch ReadableChannel[T], handler func(T) error) SelectCase {
	return selectCase[T]{ch: ch, handler: handler}
}

// Select waits until exactly one of the cases fires and runs its handler.
func Select(ctx context.Context, cases ...SelectCase) error {
	d := NewDispatch(1)
	for _, c := range cases {
		c.register(d)
	}

	waitErr := d.Wait(ctx)
	shutdownErr := d.Shutdown()

	if waitErr != nil {
		return waitErr
	}

	return shutdownErr
}
