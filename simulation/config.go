package simulation

// Config holds the physics of the simulated field.
type Config struct {
	// FieldWidth and FieldHeight bound the area agents move in.
	FieldWidth  float64
	FieldHeight float64

	// AgentRadius is how close to a wall the center of an agent can get.
	AgentRadius float64

	// ConnectednessGain is the rate, per second at full signal quality, at
	// which two agents in range become visible to each other.
	ConnectednessGain float64

	// ConnectednessDecay is the rate, per second, at which two agents out of
	// range lose sight of each other.
	ConnectednessDecay float64

	// MaxSpeed bounds the speed of randomly placed agents.
	MaxSpeed float64
}

// DefaultConfig returns the field used by the simulator.
func DefaultConfig() Config {
	return Config{
		FieldWidth:         1000,
		FieldHeight:        1000,
		AgentRadius:        10,
		ConnectednessGain:  5,
		ConnectednessDecay: 50,
		MaxSpeed:           20,
	}
}
