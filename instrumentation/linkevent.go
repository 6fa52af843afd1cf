package instrumentation

import (
	"github.com/campfirenet/meshsim/bluetooth"
	"github.com/campfirenet/meshsim/hooking"
)

// linkEvent extracts a handled adapter event from a hook context.
func linkEvent(ctx hooking.HookCtx) (
	link *bluetooth.ConnectionContext,
	evt bluetooth.AdapterEvent,
	outcome bluetooth.Outcome,
	ok bool,
) {
	if ctx.Pos != bluetooth.HookPosAfterEvent {
		return nil, nil, "", false
	}

	link, ok = ctx.Domain.(*bluetooth.ConnectionContext)
	if !ok {
		return nil, nil, "", false
	}

	evt, ok = ctx.Item.(bluetooth.AdapterEvent)
	if !ok {
		return nil, nil, "", false
	}

	outcome, ok = ctx.Detail.(bluetooth.Outcome)

	return link, evt, outcome, ok
}

// initiator returns the adapter that caused the event.
func initiator(evt bluetooth.AdapterEvent) bluetooth.AdapterID {
	switch e := evt.(type) {
	case *bluetooth.BeginConnect:
		return e.Initiator
	case *bluetooth.TimeoutConnect:
		return e.Begin.Initiator
	case *bluetooth.Send:
		return e.Initiator
	default:
		return ""
	}
}

// deliveredBytes returns the payload size of a completed transfer.
func deliveredBytes(
	evt bluetooth.AdapterEvent,
	outcome bluetooth.Outcome,
) int {
	send, ok := evt.(*bluetooth.Send)
	if !ok || outcome != bluetooth.OutcomeDelivered {
		return 0
	}

	return len(send.Payload)
}
