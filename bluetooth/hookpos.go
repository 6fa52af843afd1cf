package bluetooth

import "github.com/campfirenet/meshsim/hooking"

// HookPosBeforeEvent marks when a link starts handling an adapter event.
var HookPosBeforeEvent = &hooking.HookPos{Name: "Link Before Event"}

// HookPosAfterEvent marks when a link finished handling an adapter event. The
// hook detail is the Outcome.
var HookPosAfterEvent = &hooking.HookPos{Name: "Link After Event"}

// Outcome describes what handling an adapter event did to a link.
type Outcome string

// Outcomes of adapter events.
const (
	OutcomeHandshakePending Outcome = "handshake_pending"
	OutcomeUnheard          Outcome = "unheard"
	OutcomeSuperseded       Outcome = "superseded"
	OutcomeConnected        Outcome = "connected"
	OutcomeTimedOut         Outcome = "timed_out"
	OutcomeStale            Outcome = "stale"
	OutcomeRejected         Outcome = "rejected"
	OutcomeDisconnected     Outcome = "disconnected"
	OutcomeInProgress       Outcome = "in_progress"
	OutcomeDelivered        Outcome = "delivered"
)

// EventKind names the kind of an adapter event.
func EventKind(e AdapterEvent) string {
	switch e.(type) {
	case *BeginConnect:
		return "begin_connect"
	case *TimeoutConnect:
		return "timeout_connect"
	case *Send:
		return "send"
	default:
		return "unknown"
	}
}
