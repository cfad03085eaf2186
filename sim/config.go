package sim

import (
	"math"

	"github.com/pthm-cable/stellarforge/simerr"
)

// Config is the stepper's scalar parameter bag. It is fixed once the
// stepper is built.
type Config struct {
	MaxDT          float64 // upper bound on a single step
	GravityEnabled bool
	// CollisionsEnabled is accepted for forward compatibility and has no effect.
	CollisionsEnabled bool
	Softening         float64 // softening length ε
	MaxSpeed          float64 // speeds above this are rescaled; <= 0 disables
	G                 float64
	// PairwiseThreshold is the largest particle count that uses direct
	// pairwise attraction. Larger sets pull each particle toward the centre
	// of mass of the others.
	PairwiseThreshold int
	WorldBound        float64 // repaired positions are clamped to ±WorldBound; <= 0 disables
	// ParallelThreshold is the particle count at which the force sweep is
	// split across workers.
	ParallelThreshold int
	Workers           int // <= 1 keeps the sweep on the calling goroutine
}

// DefaultConfig returns the stock stepper settings.
func DefaultConfig() Config {
	return Config{
		MaxDT:             0.1,
		GravityEnabled:    true,
		Softening:         0.5,
		MaxSpeed:          50,
		G:                 0.01,
		PairwiseThreshold: 64,
		WorldBound:        500,
		ParallelThreshold: 2048,
		Workers:           1,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch {
	case !(c.MaxDT > 0) || math.IsInf(c.MaxDT, 0):
		return simerr.InvalidParameterf("max dt=%g must be finite and > 0", c.MaxDT)
	case math.IsNaN(c.Softening) || math.IsInf(c.Softening, 0) || c.Softening < 0:
		return simerr.InvalidParameterf("softening=%g must be finite and >= 0", c.Softening)
	case math.IsNaN(c.MaxSpeed) || math.IsInf(c.MaxSpeed, 0):
		return simerr.InvalidParameterf("max speed=%g must be finite", c.MaxSpeed)
	case math.IsNaN(c.G) || math.IsInf(c.G, 0) || c.G < 0:
		return simerr.InvalidParameterf("G=%g must be finite and >= 0", c.G)
	case c.PairwiseThreshold < 0:
		return simerr.InvalidParameterf("pairwise threshold=%d must be >= 0", c.PairwiseThreshold)
	case math.IsNaN(c.WorldBound) || math.IsInf(c.WorldBound, 0):
		return simerr.InvalidParameterf("world bound=%g must be finite", c.WorldBound)
	case c.ParallelThreshold < 0:
		return simerr.InvalidParameterf("parallel threshold=%d must be >= 0", c.ParallelThreshold)
	}
	return nil
}
