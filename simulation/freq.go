package simulation

import (
	"log"
	"math"
	"time"
)

// Freq defines the type of frequency
type Freq float64

// Defines the unit of frequency
const (
	Hz  Freq = 1
	KHz Freq = 1e3
)

// Period returns the time between two consecutive ticks
func (f Freq) Period() time.Duration {
	if f <= 0 {
		log.Panic("frequency must be positive")
	}

	return time.Duration(float64(time.Second) / float64(f))
}

// Cycle converts a duration to the number of ticks that fit in it.
func (f Freq) Cycle(d time.Duration) uint64 {
	return uint64(math.Round(d.Seconds() * float64(f)))
}
