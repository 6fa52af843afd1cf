package instrumentation

import (
	"github.com/campfirenet/meshsim/bluetooth"
	"github.com/campfirenet/meshsim/datarecording"
	"github.com/campfirenet/meshsim/hooking"
)

// LinkEventsTable is the table written by RecordingHook.
const LinkEventsTable = "link_events"

// LinkEventEntry is a row of the link events table.
type LinkEventEntry struct {
	ID        string
	Link      string
	Kind      string
	Initiator string
	Outcome   string
	Release   float64
	Bytes     int
}

// RecordingHook writes one row per handled link event into a data recorder.
type RecordingHook struct {
	recorder datarecording.DataRecorder
	start    float64
}

// NewRecordingHook creates the link events table in the recorder. Release
// times are stored in seconds after epoch.
func NewRecordingHook(
	recorder datarecording.DataRecorder,
	epochSeconds float64,
) *RecordingHook {
	recorder.CreateTable(LinkEventsTable, LinkEventEntry{})

	return &RecordingHook{recorder: recorder, start: epochSeconds}
}

// Func records the handled adapter event.
func (h *RecordingHook) Func(ctx hooking.HookCtx) {
	link, evt, outcome, ok := linkEvent(ctx)
	if !ok {
		return
	}

	release := float64(evt.Time().UnixNano())/1e9 - h.start

	h.recorder.InsertData(LinkEventsTable, LinkEventEntry{
		ID:        evt.ID(),
		Link:      link.Name(),
		Kind:      bluetooth.EventKind(evt),
		Initiator: string(initiator(evt)),
		Outcome:   string(outcome),
		Release:   release,
		Bytes:     deliveredBytes(evt, outcome),
	})
}
