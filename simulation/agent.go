package simulation

import "github.com/campfirenet/meshsim/bluetooth"

// An Agent is a device moving on the field.
type Agent struct {
	ID       bluetooth.AdapterID `json:"id"`
	Position bluetooth.Vec2      `json:"position"`
	Velocity bluetooth.Vec2      `json:"velocity"`
}

// PairState is what the field knows about two agents.
type PairState struct {
	Quality       float64 `json:"quality"`
	Connectedness float64 `json:"connectedness"`
}

// NeighborState is a pair state as seen from one of the agents.
type NeighborState struct {
	ID          bluetooth.AdapterID `json:"id"`
	IsConnected bool                `json:"is_connected"`
	PairState
}

// AgentState is an agent and its view of the other agents.
type AgentState struct {
	Agent
	Neighbors []NeighborState `json:"neighbors"`
}

// LinkState describes a link between two agents.
type LinkState struct {
	Name          string              `json:"name"`
	First         bluetooth.AdapterID `json:"first"`
	Second        bluetooth.AdapterID `json:"second"`
	State         string              `json:"state"`
	PendingEvents int                 `json:"pending_events"`
	PairState
}

// A Snapshot is a copy of the simulation at one moment.
type Snapshot struct {
	ElapsedSeconds float64      `json:"elapsed_seconds"`
	FieldWidth     float64      `json:"field_width"`
	FieldHeight    float64      `json:"field_height"`
	Agents         []AgentState `json:"agents"`
	Links          []LinkState  `json:"links"`
}
