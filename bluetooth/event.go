package bluetooth

import (
	"time"

	"github.com/campfirenet/meshsim/async"
)

// An AdapterEvent is something that happens on a link at a given time. The
// only implementations are *BeginConnect, *TimeoutConnect and *Send.
type AdapterEvent interface {
	// ID returns the unique ID of the event.
	ID() string

	// Time returns when the event is released to the link.
	Time() time.Time

	adapterEvent()
}

type eventBase struct {
	id   string
	time time.Time
}

func (e eventBase) ID() string {
	return e.id
}

func (e eventBase) Time() time.Time {
	return e.time
}

func (eventBase) adapterEvent() {}

// BeginConnect is a connect request arriving at the link.
type BeginConnect struct {
	eventBase

	Initiator AdapterID
	Result    *async.Box[bool]
}

// TimeoutConnect expires a connect request.
type TimeoutConnect struct {
	eventBase

	Begin *BeginConnect
}

// Send is one tick of a transfer. BytesSent counts the bytes already on the
// air before this tick.
type Send struct {
	eventBase

	Interval  time.Duration
	Initiator AdapterID
	Result    *async.Box[bool]
	Payload   []byte
	BytesSent int
}

func eventReleaseTime(e AdapterEvent) time.Time {
	return e.Time()
}
