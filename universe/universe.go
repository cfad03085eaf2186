// Package universe orchestrates density sampling, galaxy placement and
// particle synthesis into one initial particle set.
package universe

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/stellarforge/density"
	"github.com/pthm-cable/stellarforge/particles"
	"github.com/pthm-cable/stellarforge/placement"
	"github.com/pthm-cable/stellarforge/simerr"
	"github.com/pthm-cable/stellarforge/synth"
)

// Range is an inclusive integer range.
type Range struct {
	Min, Max int
}

// Params are the generator inputs.
type Params struct {
	Seed               uint64
	Volume             density.Size
	NumGalaxies        int
	ParticlesPerGalaxy Range
	WorldScale         float64

	Noise      density.Params // Seed is overridden by Params.Seed
	Percentile float64

	MinSeparation float64
	RadiusMin     float64
	RadiusMax     float64
	ShapeWeights  placement.ShapeWeights
	Order         placement.Order
	MinDensity    float64

	FallbackRadius float64
	FallbackShape  placement.Shape

	Synthesis synth.Params
}

// DefaultParams mirrors the embedded config defaults.
func DefaultParams() Params {
	return Params{
		Seed:               42,
		Volume:             density.Size{NX: 32, NY: 32, NZ: 32},
		NumGalaxies:        5,
		ParticlesPerGalaxy: Range{Min: 200, Max: 400},
		WorldScale:         100,
		Noise: density.Params{
			Kind:          density.KindPerlin,
			Octaves:       4,
			Persistence:   0.5,
			Lacunarity:    2,
			Frequency:     0.05,
			CenterFalloff: 0.4,
		},
		Percentile:     5,
		MinSeparation:  15,
		RadiusMin:      4,
		RadiusMax:      10,
		ShapeWeights:   placement.ShapeWeights{0.6, 0.3, 0.1},
		Order:          placement.OrderDensity,
		MinDensity:     0.3,
		FallbackRadius: 10,
		FallbackShape:  placement.Elliptical,
		Synthesis:      synth.DefaultParams(),
	}
}

// Validate fails fast on out-of-range inputs.
func (p Params) Validate() error {
	if err := p.Volume.Validate(); err != nil {
		return err
	}
	if p.NumGalaxies < 0 {
		return simerr.InvalidParameterf("num galaxies=%d must be >= 0", p.NumGalaxies)
	}
	if p.ParticlesPerGalaxy.Min < 0 || p.ParticlesPerGalaxy.Max < p.ParticlesPerGalaxy.Min {
		return simerr.InvalidParameterf("particles per galaxy range [%d, %d] invalid",
			p.ParticlesPerGalaxy.Min, p.ParticlesPerGalaxy.Max)
	}
	if !(p.WorldScale > 0) || math.IsInf(p.WorldScale, 0) {
		return simerr.InvalidParameterf("world scale=%g must be finite and > 0", p.WorldScale)
	}
	if !(p.FallbackRadius > 0) || math.IsInf(p.FallbackRadius, 0) {
		return simerr.InvalidParameterf("fallback radius=%g must be finite and > 0", p.FallbackRadius)
	}
	if math.IsNaN(p.Percentile) || p.Percentile <= 0 || p.Percentile > 100 {
		return simerr.InvalidParameterf("percentile=%g must be in (0, 100]", p.Percentile)
	}
	if p.FallbackShape >= placement.NumShapes {
		return simerr.InvalidParameterf("invalid fallback shape %d", p.FallbackShape)
	}
	noise := p.Noise
	noise.Seed = p.Seed
	if err := noise.Validate(); err != nil {
		return err
	}
	if err := p.placementParams().Validate(); err != nil {
		return err
	}
	return p.Synthesis.Validate()
}

func (p Params) placementParams() placement.Params {
	return placement.Params{
		Count:         p.NumGalaxies,
		MinSeparation: p.MinSeparation,
		RadiusMin:     p.RadiusMin,
		RadiusMax:     p.RadiusMax,
		Weights:       p.ShapeWeights,
		Order:         p.Order,
		MinDensity:    p.MinDensity,
		ParticlesMin:  p.ParticlesPerGalaxy.Min,
		ParticlesMax:  p.ParticlesPerGalaxy.Max,
	}
}

// Result is a generated universe.
type Result struct {
	Set        *particles.Set
	Anchors    []placement.Anchor
	Candidates int  // cells that passed the threshold filter
	Fallback   bool // true when the single fallback anchor was used
	Params     Params
}

// Generate builds the full initial particle set. It either succeeds
// completely or returns an error and no partial result. Identical params
// give bit-identical output.
func Generate(p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	res := &Result{Set: particles.New(0), Params: p}
	if p.NumGalaxies == 0 {
		return res, nil
	}

	noise := p.Noise
	noise.Seed = p.Seed
	grid, err := density.Sample(p.Volume, noise)
	if err != nil {
		return nil, fmt.Errorf("sampling density: %w", err)
	}
	cells, err := density.ThresholdFilter(grid, p.Percentile)
	if err != nil {
		return nil, fmt.Errorf("filtering density: %w", err)
	}
	res.Candidates = len(cells)

	cands := make([]placement.Candidate, len(cells))
	for i, c := range cells {
		cands[i] = placement.Candidate{
			Center:  density.GridToWorld(c, p.Volume, p.WorldScale),
			Density: grid.Values[c],
		}
	}

	rng := rand.New(rand.NewPCG(p.Seed, p.Seed^0x6a09e667f3bcc909))
	anchors, err := placement.Place(cands, p.placementParams(), rng)
	if err != nil {
		return nil, fmt.Errorf("placing galaxies: %w", err)
	}

	// Anchors whose counts all came out zero are as empty as no anchors.
	total := 0
	for _, a := range anchors {
		total += a.ParticleCount
	}
	if total == 0 && p.ParticlesPerGalaxy.Max > 0 {
		fb := fallbackAnchor(p, rng)
		anchors = []placement.Anchor{fb}
		total = fb.ParticleCount
		res.Fallback = true
	}
	res.Anchors = anchors

	set := particles.New(total)
	for i, a := range anchors {
		batch, err := synth.Synthesize(a, p.Synthesis)
		if err != nil {
			return nil, fmt.Errorf("synthesizing galaxy %d: %w", i, err)
		}
		set.Append(batch)
	}
	res.Set = set
	return res, nil
}

// fallbackAnchor is a single galaxy at the origin carrying the whole
// particle budget.
func fallbackAnchor(p Params, rng *rand.Rand) placement.Anchor {
	return placement.Anchor{
		Center:        r3.Vec{},
		Shape:         p.FallbackShape,
		Radius:        p.FallbackRadius,
		Rotation:      quat.Number{Real: 1},
		ParticleCount: p.NumGalaxies * p.ParticlesPerGalaxy.Max,
		Seed:          rng.Uint64(),
	}
}
