// Package simulation moves devices on a field and connects them with
// simulated Bluetooth links.
package simulation

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/campfirenet/meshsim/bluetooth"
	"github.com/campfirenet/meshsim/hooking"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// HookPosTick marks the end of a simulation step. The hook item is the step
// duration.
var HookPosTick = &hooking.HookPos{Name: "Simulation Tick"}

// Epoch is the simulated time at which every simulation starts.
var Epoch = time.Unix(0, 0).UTC()

// A Simulation owns the agents, their adapters and the links between every
// pair of agents. Links are timed by a simulated clock that only moves in
// Advance.
type Simulation struct {
	hooking.HookableBase

	id       string
	clock    *clock.Mock
	config   Config
	btConfig bluetooth.Config
	logger   *zap.Logger

	lock    sync.RWMutex
	agents  []Agent
	index   map[bluetooth.AdapterID]int
	pairs   [][]PairState
	elapsed time.Duration

	adapters []*bluetooth.SimulatedAdapter
	links    [][]*bluetooth.ConnectionContext
}

// ID returns the unique ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// Elapsed returns the simulated time that has passed.
func (s *Simulation) Elapsed() time.Duration {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.elapsed
}

// Clock returns the simulated clock that times the links. It is only
// advanced by Advance.
func (s *Simulation) Clock() clock.Clock {
	return s.clock
}

// Now returns the simulated time, starting from Epoch.
func (s *Simulation) Now() time.Time {
	return s.clock.Now()
}

// NumAgents returns the number of agents.
func (s *Simulation) NumAgents() int {
	return len(s.adapters)
}

func (s *Simulation) mustFind(id bluetooth.AdapterID) int {
	i, ok := s.index[id]
	if !ok {
		panic(fmt.Sprintf("agent %s is not in the simulation", id))
	}

	return i
}

// Locate returns the position of an agent.
func (s *Simulation) Locate(id bluetooth.AdapterID) bluetooth.Vec2 {
	i := s.mustFind(id)

	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.agents[i].Position
}

// Connectedness returns how well two agents see each other.
func (s *Simulation) Connectedness(a, b bluetooth.AdapterID) float64 {
	i, j := s.mustFind(a), s.mustFind(b)

	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.pairs[i][j].Connectedness
}

// Adapter returns the adapter of an agent.
func (s *Simulation) Adapter(id bluetooth.AdapterID) *bluetooth.SimulatedAdapter {
	return s.adapters[s.mustFind(id)]
}

// Adapters returns the adapters of all agents.
func (s *Simulation) Adapters() []*bluetooth.SimulatedAdapter {
	list := make([]*bluetooth.SimulatedAdapter, len(s.adapters))
	copy(list, s.adapters)

	return list
}

// Link returns the link between two agents.
func (s *Simulation) Link(a, b bluetooth.AdapterID) *bluetooth.ConnectionContext {
	i, j := s.mustFind(a), s.mustFind(b)
	if i == j {
		panic("an agent has no link to itself")
	}

	return s.links[i][j]
}

// Links returns every link once.
func (s *Simulation) Links() []*bluetooth.ConnectionContext {
	var list []*bluetooth.ConnectionContext

	for i := range s.links {
		for j := i + 1; j < len(s.links); j++ {
			list = append(list, s.links[i][j])
		}
	}

	return list
}

// Start lets all links process adapter events.
func (s *Simulation) Start() {
	for _, l := range s.Links() {
		l.Start()
	}

	s.logger.Info("simulation started",
		zap.String("id", s.id),
		zap.Int("agents", len(s.adapters)))
}

// Close shuts down all links.
func (s *Simulation) Close() error {
	var g errgroup.Group

	for _, l := range s.Links() {
		g.Go(l.Shutdown)
	}

	err := g.Wait()
	if err != nil {
		s.logger.Error("link failed", zap.Error(err))
	}

	s.logger.Info("simulation closed", zap.String("id", s.id))

	return err
}

// Advance moves the simulation dt forward. Agents move first, then adapters
// earn discovery tokens, and then the link clock releases the adapter events
// that fall due within dt.
func (s *Simulation) Advance(dt time.Duration) {
	s.lock.Lock()
	s.moveAgents(dt.Seconds())
	s.updatePairs(dt.Seconds())
	s.elapsed += dt
	s.lock.Unlock()

	for _, a := range s.adapters {
		a.Permit(dt)
	}

	s.clock.Add(dt)

	if s.NumHooks() > 0 {
		s.InvokeHook(hooking.HookCtx{
			Domain: s,
			Pos:    HookPosTick,
			Item:   dt,
		})
	}
}

func (s *Simulation) moveAgents(dt float64) {
	minX, maxX := s.config.AgentRadius, s.config.FieldWidth-s.config.AgentRadius
	minY, maxY := s.config.AgentRadius, s.config.FieldHeight-s.config.AgentRadius

	for i := range s.agents {
		a := &s.agents[i]
		a.Position = a.Position.Add(a.Velocity.Scale(dt))

		if a.Position.X < minX {
			a.Velocity.X = math.Abs(a.Velocity.X)
		}

		if a.Position.X > maxX {
			a.Velocity.X = -math.Abs(a.Velocity.X)
		}

		if a.Position.Y < minY {
			a.Velocity.Y = math.Abs(a.Velocity.Y)
		}

		if a.Position.Y > maxY {
			a.Velocity.Y = -math.Abs(a.Velocity.Y)
		}
	}
}

func (s *Simulation) updatePairs(dt float64) {
	gain := s.config.ConnectednessGain * dt
	decay := -s.config.ConnectednessDecay * dt

	for i := 0; i < len(s.agents)-1; i++ {
		for j := i + 1; j < len(s.agents); j++ {
			conn := bluetooth.ComputeConnectivity(
				s.agents[i].Position, s.agents[j].Position, s.btConfig)
			quality := bluetooth.Quality(
				s.agents[i].Position, s.agents[j].Position, s.btConfig)

			delta := decay
			if conn.InRange {
				delta = quality * gain
			}

			state := PairState{
				Quality: quality,
				Connectedness: min(max(
					s.pairs[i][j].Connectedness+delta, 0), 1),
			}
			s.pairs[i][j] = state
			s.pairs[j][i] = state
		}
	}
}

// Agents returns a copy of all agents.
func (s *Simulation) Agents() []Agent {
	s.lock.RLock()
	defer s.lock.RUnlock()

	list := make([]Agent, len(s.agents))
	copy(list, s.agents)

	return list
}

// AgentState returns an agent and its view of the others.
func (s *Simulation) AgentState(id bluetooth.AdapterID) (AgentState, bool) {
	i, ok := s.index[id]
	if !ok {
		return AgentState{}, false
	}

	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.agentState(i), true
}

func (s *Simulation) agentState(i int) AgentState {
	state := AgentState{
		Agent:     s.agents[i],
		Neighbors: make([]NeighborState, 0, len(s.agents)-1),
	}

	for j := range s.agents {
		if i == j {
			continue
		}

		state.Neighbors = append(state.Neighbors, NeighborState{
			ID:          s.agents[j].ID,
			IsConnected: s.links[i][j].IsConnected(s.agents[i].ID),
			PairState:   s.pairs[i][j],
		})
	}

	return state
}

// Snapshot copies the state of the simulation.
func (s *Simulation) Snapshot() Snapshot {
	s.lock.RLock()
	defer s.lock.RUnlock()

	snapshot := Snapshot{
		ElapsedSeconds: s.elapsed.Seconds(),
		FieldWidth:     s.config.FieldWidth,
		FieldHeight:    s.config.FieldHeight,
		Agents:         make([]AgentState, len(s.agents)),
	}

	for i := range s.agents {
		snapshot.Agents[i] = s.agentState(i)

		for j := i + 1; j < len(s.agents); j++ {
			l := s.links[i][j]
			first, second := l.Endpoints()

			snapshot.Links = append(snapshot.Links, LinkState{
				Name:          l.Name(),
				First:         first,
				Second:        second,
				State:         l.State().String(),
				PendingEvents: l.PendingEvents(),
				PairState:     s.pairs[i][j],
			})
		}
	}

	return snapshot
}
