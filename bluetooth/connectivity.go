package bluetooth

// Vec2 is a position or velocity on the simulation field.
type Vec2 struct {
	X, Y float64
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{v.X + o.X, v.Y + o.Y}
}

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{v.X - o.X, v.Y - o.Y}
}

// Scale returns v * s.
func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{v.X * s, v.Y * s}
}

// LengthSquared returns the squared length of v.
func (v Vec2) LengthSquared() float64 {
	return v.X*v.X + v.Y*v.Y
}

// Connectivity describes the radio link between two positions.
type Connectivity struct {
	InRange             bool
	IsSufficientQuality bool
	SignalQuality       float64
}

// Quality returns the raw signal quality between two positions. It is 1 when
// the positions coincide and negative beyond the range.
func Quality(a, b Vec2, config Config) float64 {
	return 1 - a.Sub(b).LengthSquared()/config.RangeSquared()
}

// ComputeConnectivity evaluates the link between two positions.
func ComputeConnectivity(a, b Vec2, config Config) Connectivity {
	quality := Quality(a, b, config)

	c := Connectivity{
		InRange:             quality > 0,
		IsSufficientQuality: quality > config.MinViableSignalQuality,
	}

	if quality > 0 {
		c.SignalQuality = quality
	}

	return c
}
