// Package placement turns candidate density cells into separated galaxy anchors.
package placement

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/pthm-cable/stellarforge/simerr"
)

// Shape is the morphology of a galaxy.
type Shape uint8

const (
	Spiral Shape = iota
	Elliptical
	Irregular
	NumShapes
)

var shapeNames = [NumShapes]string{"spiral", "elliptical", "irregular"}

func (s Shape) String() string {
	if s < NumShapes {
		return shapeNames[s]
	}
	return fmt.Sprintf("shape(%d)", uint8(s))
}

// ParseShape resolves a shape from its lowercase name.
func ParseShape(name string) (Shape, error) {
	for i, n := range shapeNames {
		if n == name {
			return Shape(i), nil
		}
	}
	return 0, simerr.InvalidParameterf("unknown galaxy shape %q", name)
}

// ShapeWeights are the relative draw weights, indexed by Shape.
type ShapeWeights [NumShapes]float64

// UniformWeights gives every shape the same probability.
func UniformWeights() ShapeWeights {
	return ShapeWeights{1, 1, 1}
}

// Order selects how candidates are visited.
type Order string

const (
	OrderDensity Order = "density" // insertion order, expected highest density first
	OrderRandom  Order = "random"  // seeded shuffle
)

// Candidate is a potential galaxy site in world space.
type Candidate struct {
	Center  r3.Vec
	Density float64
}

// Anchor is an accepted galaxy site with its shape parameters.
type Anchor struct {
	Center        r3.Vec
	Shape         Shape
	Radius        float64
	Rotation      quat.Number // unit quaternion
	ParticleCount int
	Seed          uint64
}

// Params configures Place.
type Params struct {
	Count         int
	MinSeparation float64
	RadiusMin     float64
	RadiusMax     float64
	Weights       ShapeWeights
	Order         Order
	// MinDensity skips candidates whose density is below it.
	MinDensity   float64
	ParticlesMin int
	ParticlesMax int
}

// Validate checks the placement parameters.
func (p Params) Validate() error {
	if p.Count < 0 {
		return simerr.InvalidParameterf("galaxy count %d must be >= 0", p.Count)
	}
	if math.IsNaN(p.MinSeparation) || math.IsInf(p.MinSeparation, 0) || p.MinSeparation < 0 {
		return simerr.InvalidParameterf("min separation %g must be finite and >= 0", p.MinSeparation)
	}
	if !(p.RadiusMin > 0) || !(p.RadiusMax >= p.RadiusMin) || math.IsInf(p.RadiusMax, 0) {
		return simerr.InvalidParameterf("radius range [%g, %g] invalid", p.RadiusMin, p.RadiusMax)
	}
	var sum float64
	for _, w := range p.Weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return simerr.InvalidParameterf("shape weights %v must be finite and >= 0", p.Weights)
		}
		sum += w
	}
	if sum <= 0 {
		return simerr.InvalidParameterf("shape weights %v must not all be zero", p.Weights)
	}
	if p.Order != OrderDensity && p.Order != OrderRandom {
		return simerr.InvalidParameterf("unknown candidate order %q", p.Order)
	}
	if math.IsNaN(p.MinDensity) {
		return simerr.InvalidParameterf("min density is NaN")
	}
	if p.ParticlesMin < 0 || p.ParticlesMax < p.ParticlesMin {
		return simerr.InvalidParameterf("particles per galaxy range [%d, %d] invalid", p.ParticlesMin, p.ParticlesMax)
	}
	return nil
}

// Place greedily accepts candidates whose distance to every accepted anchor
// is at least MinSeparation, stopping at Count anchors or when candidates run
// out. A short result is not an error. The same rng stream and candidate
// order always produce the same anchors.
func Place(cands []Candidate, p Params, rng *rand.Rand) ([]Anchor, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, simerr.InvalidParameterf("nil random source")
	}
	if p.Count == 0 || len(cands) == 0 {
		return nil, nil
	}

	order := make([]int, len(cands))
	for i := range order {
		order[i] = i
	}
	if p.Order == OrderRandom {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	maxDensity := math.Inf(-1)
	for _, c := range cands {
		maxDensity = math.Max(maxDensity, c.Density)
	}

	shapes := distuv.NewCategorical(p.Weights[:], rng)
	minSep2 := p.MinSeparation * p.MinSeparation

	anchors := make([]Anchor, 0, p.Count)
	for _, idx := range order {
		if len(anchors) == p.Count {
			break
		}
		c := cands[idx]
		if c.Density < p.MinDensity {
			continue
		}
		if !separated(c.Center, anchors, minSep2) {
			continue
		}

		anchors = append(anchors, Anchor{
			Center:        c.Center,
			Shape:         Shape(shapes.Rand()),
			Radius:        drawRadius(p, c.Density, maxDensity, rng),
			Rotation:      RandomRotation(rng),
			ParticleCount: p.ParticlesMin + rng.IntN(p.ParticlesMax-p.ParticlesMin+1),
			Seed:          rng.Uint64(),
		})
	}
	return anchors, nil
}

func separated(c r3.Vec, anchors []Anchor, minSep2 float64) bool {
	for _, a := range anchors {
		d := r3.Sub(c, a.Center)
		if r3.Dot(d, d) < minSep2 {
			return false
		}
	}
	return true
}

// drawRadius picks a radius in the configured range, scaled by local density
// relative to the densest candidate.
func drawRadius(p Params, density, maxDensity float64, rng *rand.Rand) float64 {
	r := p.RadiusMin + rng.Float64()*(p.RadiusMax-p.RadiusMin)
	if maxDensity > 0 && density > 0 {
		r *= 0.5 + 0.5*math.Min(density/maxDensity, 1)
	} else {
		r *= 0.5
	}
	return r
}

// RandomRotation returns a uniformly distributed unit quaternion.
func RandomRotation(rng *rand.Rand) quat.Number {
	u1, u2, u3 := rng.Float64(), rng.Float64(), rng.Float64()
	a, b := math.Sqrt(1-u1), math.Sqrt(u1)
	s2, c2 := math.Sincos(2 * math.Pi * u2)
	s3, c3 := math.Sincos(2 * math.Pi * u3)
	return quat.Number{Real: b * c3, Imag: a * s2, Jmag: a * c2, Kmag: b * s3}
}

// MinPairDistance returns the smallest distance between any two anchors,
// or +Inf for fewer than two.
func MinPairDistance(anchors []Anchor) float64 {
	d := math.Inf(1)
	for i := range anchors {
		for j := i + 1; j < len(anchors); j++ {
			d = math.Min(d, r3.Norm(r3.Sub(anchors[i].Center, anchors[j].Center)))
		}
	}
	return d
}

// ShapeCounts tallies anchors per shape.
func ShapeCounts(anchors []Anchor) ShapeWeights {
	var counts ShapeWeights
	for _, a := range anchors {
		counts[a.Shape]++
	}
	return counts
}

// Fraction normalises weights to sum to 1.
func (w ShapeWeights) Fraction() ShapeWeights {
	out := w
	if s := floats.Sum(w[:]); s > 0 {
		floats.Scale(1/s, out[:])
	}
	return out
}
