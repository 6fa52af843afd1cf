package simulation

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// A Runner advances a simulation at a fixed frequency of the clock.
type Runner struct {
	sim    *Simulation
	clock  clock.Clock
	freq   Freq
	speed  float64
	logger *zap.Logger

	isPaused     bool
	isPausedLock sync.Mutex
	pauseLock    sync.Mutex

	singleRunLock sync.Mutex
}

// NewRunner creates a runner that advances sim freq times per second of the
// clock. Each step moves the simulation speed times the clock period.
func NewRunner(
	sim *Simulation,
	clk clock.Clock,
	freq Freq,
	speed float64,
) *Runner {
	if speed <= 0 {
		panic("speed must be positive")
	}

	freq.Period()

	return &Runner{
		sim:    sim,
		clock:  clk,
		freq:   freq,
		speed:  speed,
		logger: sim.logger,
	}
}

// Step returns the simulated duration of one tick.
func (r *Runner) Step() time.Duration {
	return time.Duration(float64(r.freq.Period()) * r.speed)
}

// Now returns the simulated time.
func (r *Runner) Now() time.Duration {
	return r.sim.Elapsed()
}

// Run advances the simulation until the context ends. Ticks that arrive
// while paused are dropped.
func (r *Runner) Run(ctx context.Context) error {
	r.singleRunLock.Lock()
	defer r.singleRunLock.Unlock()

	ticker := r.clock.Ticker(r.freq.Period())
	defer ticker.Stop()

	step := r.Step()
	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("runner stopped",
				zap.Duration("simulated", r.Now()))
			return nil
		case <-ticker.C:
		}

		if !r.pauseLock.TryLock() {
			continue
		}

		r.sim.Advance(step)
		r.pauseLock.Unlock()
	}
}

// Pause stops advancing the simulation. It returns after the tick in
// progress, if any, is done.
func (r *Runner) Pause() {
	r.isPausedLock.Lock()
	defer r.isPausedLock.Unlock()

	if r.isPaused {
		return
	}

	r.pauseLock.Lock()
	r.isPaused = true
}

// Continue resumes advancing the simulation.
func (r *Runner) Continue() {
	r.isPausedLock.Lock()
	defer r.isPausedLock.Unlock()

	if !r.isPaused {
		return
	}

	r.pauseLock.Unlock()
	r.isPaused = false
}

// IsPaused tells if the runner is paused.
func (r *Runner) IsPaused() bool {
	r.isPausedLock.Lock()
	defer r.isPausedLock.Unlock()

	return r.isPaused
}
