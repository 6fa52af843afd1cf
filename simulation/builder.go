package simulation

import (
	"fmt"
	"math/rand"

	"github.com/benbjohnson/clock"
	"github.com/campfirenet/meshsim/bluetooth"
	"github.com/campfirenet/meshsim/hooking"
	"github.com/campfirenet/meshsim/id"
	"github.com/rs/xid"
	"go.uber.org/zap"
)

// Builder can be used to build a simulation.
type Builder struct {
	config    Config
	btConfig  bluetooth.Config
	logger    *zap.Logger
	agents    []Agent
	numRandom int
	rand      *rand.Rand
	linkHooks []hooking.Hook
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		config:   DefaultConfig(),
		btConfig: bluetooth.DefaultConfig(),
		logger:   zap.NewNop(),
	}
}

// WithConfig sets the physics of the field.
func (b Builder) WithConfig(config Config) Builder {
	b.config = config
	return b
}

// WithBluetoothConfig sets the radio constants.
func (b Builder) WithBluetoothConfig(config bluetooth.Config) Builder {
	b.btConfig = config
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(logger *zap.Logger) Builder {
	b.logger = logger
	return b
}

// WithAgents adds agents at known places.
func (b Builder) WithAgents(agents ...Agent) Builder {
	b.agents = append(append([]Agent(nil), b.agents...), agents...)
	return b
}

// WithRandomAgents adds n agents at random places, moving in random
// directions.
func (b Builder) WithRandomAgents(n int, rng *rand.Rand) Builder {
	b.numRandom = n
	b.rand = rng
	return b
}

// WithLinkHook registers a hook on every link.
func (b Builder) WithLinkHook(hook hooking.Hook) Builder {
	b.linkHooks = append(append([]hooking.Hook(nil), b.linkHooks...), hook)
	return b
}

func (b Builder) parametersMustBeValid() {
	if err := b.btConfig.Validate(); err != nil {
		panic(err)
	}

	if b.config.ConnectednessGain < 0 || b.config.ConnectednessDecay < 0 {
		panic("connectedness rates cannot be negative")
	}

	if b.config.MaxSpeed < 0 {
		panic("max speed cannot be negative")
	}

	if b.config.FieldWidth <= 2*b.config.AgentRadius ||
		b.config.FieldHeight <= 2*b.config.AgentRadius {
		panic("field is too small for the agents")
	}

	if b.numRandom > 0 && b.rand == nil {
		panic("random agents need a random source")
	}
}

func (b Builder) randomAgents() []Agent {
	agents := make([]Agent, 0, b.numRandom)
	names := id.NewSequentialGenerator("agent-")
	r := b.config.AgentRadius

	for i := 0; i < b.numRandom; i++ {
		agents = append(agents, Agent{
			ID: bluetooth.AdapterID(names.Generate()),
			Position: bluetooth.Vec2{
				X: r + b.rand.Float64()*(b.config.FieldWidth-2*r),
				Y: r + b.rand.Float64()*(b.config.FieldHeight-2*r),
			},
			Velocity: bluetooth.Vec2{
				X: (2*b.rand.Float64() - 1) * b.config.MaxSpeed,
				Y: (2*b.rand.Float64() - 1) * b.config.MaxSpeed,
			},
		})
	}

	return agents
}

// Build builds the simulation.
func (b Builder) Build() *Simulation {
	b.parametersMustBeValid()

	agents := append(append([]Agent(nil), b.agents...), b.randomAgents()...)

	linkClock := clock.NewMock()
	linkClock.Set(Epoch)

	s := &Simulation{
		id:       xid.New().String(),
		clock:    linkClock,
		config:   b.config,
		btConfig: b.btConfig,
		logger:   b.logger,
		agents:   agents,
		index:    make(map[bluetooth.AdapterID]int, len(agents)),
	}

	for i, a := range agents {
		if _, found := s.index[a.ID]; found {
			panic(fmt.Sprintf("agent %s already registered", a.ID))
		}

		s.index[a.ID] = i
		s.adapters = append(s.adapters,
			bluetooth.NewSimulatedAdapter(a.ID, b.btConfig, s))
	}

	b.buildLinks(s)
	b.initPairs(s)

	return s
}

func (b Builder) buildLinks(s *Simulation) {
	linkBuilder := bluetooth.MakeBuilder().
		WithClock(s.clock).
		WithConfig(b.btConfig).
		WithLocator(s).
		WithLogger(b.logger).
		WithIDGenerator(id.NewSequentialGenerator("evt-"))

	n := len(s.agents)
	s.links = make([][]*bluetooth.ConnectionContext, n)
	for i := range s.links {
		s.links[i] = make([]*bluetooth.ConnectionContext, n)
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			l := linkBuilder.Build(s.agents[i].ID, s.agents[j].ID)
			for _, h := range b.linkHooks {
				l.AcceptHook(h)
			}

			s.links[i][j] = l
			s.links[j][i] = l
			s.adapters[i].AddNeighbor(l)
			s.adapters[j].AddNeighbor(l)
		}
	}
}

func (b Builder) initPairs(s *Simulation) {
	n := len(s.agents)
	s.pairs = make([][]PairState, n)

	for i := range s.pairs {
		s.pairs[i] = make([]PairState, n)
		for j := range s.pairs[i] {
			s.pairs[i][j].Quality = bluetooth.Quality(
				s.agents[i].Position, s.agents[j].Position, b.btConfig)
		}
	}
}
