package bluetooth

import (
	"github.com/benbjohnson/clock"
	"github.com/campfirenet/meshsim/channels"
	"github.com/campfirenet/meshsim/id"
	"go.uber.org/zap"
)

// A Builder can build ConnectionContexts.
type Builder struct {
	clock   clock.Clock
	config  Config
	locator Locator
	logger  *zap.Logger
	idGen   id.Generator
}

// MakeBuilder creates a builder with the default configuration and the wall
// clock.
func MakeBuilder() Builder {
	return Builder{
		clock:  clock.New(),
		config: DefaultConfig(),
		logger: zap.NewNop(),
		idGen:  id.NewSequentialGenerator("evt-"),
	}
}

// WithClock sets the clock that times adapter events.
func (b Builder) WithClock(clk clock.Clock) Builder {
	b.clock = clk
	return b
}

// WithConfig sets the radio constants.
func (b Builder) WithConfig(config Config) Builder {
	b.config = config
	return b
}

// WithLocator sets where the positions of the adapters come from.
func (b Builder) WithLocator(locator Locator) Builder {
	b.locator = locator
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(logger *zap.Logger) Builder {
	b.logger = logger
	return b
}

// WithIDGenerator sets the generator of event IDs.
func (b Builder) WithIDGenerator(g id.Generator) Builder {
	b.idGen = g
	return b
}

// Build creates the link between the two adapters. The link does not run
// until it is started.
func (b Builder) Build(first, second AdapterID) *ConnectionContext {
	if b.locator == nil {
		panic("a locator is required to build a link")
	}

	if first == second {
		panic("cannot link an adapter with itself")
	}

	if err := b.config.Validate(); err != nil {
		panic(err)
	}

	c := &ConnectionContext{
		name:      string(first) + "<->" + string(second),
		endpoints: [2]AdapterID{first, second},
		locator:   b.locator,
		clock:     b.clock,
		config:    b.config,
		logger:    b.logger,
		idGen:     b.idGen,
		events: channels.NewPriorityChannel(
			b.clock, eventReleaseTime),
		inbound: [2]*channels.SlotChannel[[]byte]{
			channels.NewNonblocking[[]byte](),
			channels.NewNonblocking[[]byte](),
		},
	}

	return c
}
