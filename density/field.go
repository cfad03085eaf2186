// Package density samples layered coherent noise over a 3D grid and selects
// the high-density cells used as galaxy candidates.
package density

import (
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/stellarforge/simerr"
)

// Kind selects the coherent noise basis.
type Kind string

const (
	KindPerlin  Kind = "perlin"
	KindSimplex Kind = "simplex"
)

// Size is the grid resolution along each axis.
type Size struct {
	NX, NY, NZ int
}

// Cells returns the total number of grid cells.
func (s Size) Cells() int {
	return s.NX * s.NY * s.NZ
}

// Max returns the largest dimension.
func (s Size) Max() int {
	return max(s.NX, s.NY, s.NZ)
}

// Validate fails on any zero or negative dimension.
func (s Size) Validate() error {
	if s.NX <= 0 || s.NY <= 0 || s.NZ <= 0 {
		return simerr.InvalidParameterf("volume size (%d,%d,%d) must be positive in every dimension", s.NX, s.NY, s.NZ)
	}
	return nil
}

// Params configures FBM sampling.
type Params struct {
	Kind        Kind
	Seed        uint64
	Octaves     int
	Persistence float64 // amplitude multiplier per octave
	Lacunarity  float64 // frequency multiplier per octave
	Frequency   float64 // base frequency in cycles per cell
	// CenterFalloff is the sigma, as a fraction of the volume, of a Gaussian
	// that weights density toward the centre. 0 disables it.
	CenterFalloff float64
}

// Validate checks the noise parameters.
func (p Params) Validate() error {
	if p.Kind != KindPerlin && p.Kind != KindSimplex {
		return simerr.InvalidParameterf("unknown noise kind %q", p.Kind)
	}
	if p.Octaves <= 0 {
		return simerr.InvalidParameterf("octaves=%d must be > 0", p.Octaves)
	}
	if !positiveFinite(p.Persistence) {
		return simerr.InvalidParameterf("persistence=%g must be finite and > 0", p.Persistence)
	}
	if !positiveFinite(p.Lacunarity) {
		return simerr.InvalidParameterf("lacunarity=%g must be finite and > 0", p.Lacunarity)
	}
	if !positiveFinite(p.Frequency) {
		return simerr.InvalidParameterf("frequency=%g must be finite and > 0", p.Frequency)
	}
	if math.IsNaN(p.CenterFalloff) || math.IsInf(p.CenterFalloff, 0) || p.CenterFalloff < 0 {
		return simerr.InvalidParameterf("center falloff=%g must be finite and >= 0", p.CenterFalloff)
	}
	return nil
}

// Grid holds scalar density values over the volume.
// Values are laid out as (x*NY+y)*NZ+z.
type Grid struct {
	Size   Size
	Values []float64
}

// Index returns the flat index of cell (x, y, z).
func (g *Grid) Index(x, y, z int) int {
	return (x*g.Size.NY+y)*g.Size.NZ + z
}

// Coords is the inverse of Index.
func (g *Grid) Coords(index int) (x, y, z int) {
	return cellCoords(index, g.Size)
}

// At returns the density of cell (x, y, z).
func (g *Grid) At(x, y, z int) float64 {
	return g.Values[g.Index(x, y, z)]
}

// Sample fills a grid with fractal noise. Octave i contributes at frequency
// Frequency*Lacunarity^i with amplitude Persistence^i. The weighted sum is
// normalised to 0.5+0.5*sum/Σamplitude. Identical inputs give bit-identical grids.
func Sample(size Size, p Params) (*Grid, error) {
	if err := size.Validate(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	field := newFBM(p)
	g := &Grid{Size: size, Values: make([]float64, size.Cells())}
	idx := 0
	for x := 0; x < size.NX; x++ {
		for y := 0; y < size.NY; y++ {
			for z := 0; z < size.NZ; z++ {
				g.Values[idx] = field.Eval3(float64(x)+0.5, float64(y)+0.5, float64(z)+0.5)
				idx++
			}
		}
	}

	if p.CenterFalloff > 0 {
		applyCenterFalloff(g, p.CenterFalloff)
	}
	return g, nil
}

// applyCenterFalloff multiplies each cell by exp(-d²/2σ²), where d is the
// cell centre's distance from the volume centre in volume-fraction units.
func applyCenterFalloff(g *Grid, sigma float64) {
	s := g.Size
	denom := 2 * sigma * sigma
	for i := range g.Values {
		x, y, z := cellCoords(i, s)
		dx := (float64(x)+0.5)/float64(s.NX) - 0.5
		dy := (float64(y)+0.5)/float64(s.NY) - 0.5
		dz := (float64(z)+0.5)/float64(s.NZ) - 0.5
		g.Values[i] *= math.Exp(-(dx*dx + dy*dy + dz*dz) / denom)
	}
}

// ThresholdFilter selects the top-percentile cells, ordered by density
// descending with ties in ascending index order. A percentile that selects
// nothing (flat noise) yields the single global-maximum cell.
func ThresholdFilter(g *Grid, percentile float64) ([]int, error) {
	if math.IsNaN(percentile) || percentile <= 0 || percentile > 100 {
		return nil, simerr.InvalidParameterf("percentile=%g must be in (0, 100]", percentile)
	}
	if g == nil || len(g.Values) == 0 {
		return nil, simerr.InvalidParameterf("empty density grid")
	}

	var cells []int
	if percentile >= 100 {
		cells = make([]int, len(g.Values))
		for i := range cells {
			cells[i] = i
		}
	} else {
		sorted := slices.Clone(g.Values)
		slices.Sort(sorted)
		threshold := stat.Quantile(1-percentile/100, stat.Empirical, sorted, nil)
		for i, v := range g.Values {
			if v > threshold {
				cells = append(cells, i)
			}
		}
	}

	if len(cells) == 0 {
		return []int{floats.MaxIdx(g.Values)}, nil
	}

	sort.SliceStable(cells, func(a, b int) bool {
		return g.Values[cells[a]] > g.Values[cells[b]]
	})
	return cells, nil
}

// GridToWorld maps a flat cell index to world space centred on the origin.
// The largest grid dimension spans worldScale.
func GridToWorld(index int, size Size, worldScale float64) r3.Vec {
	x, y, z := cellCoords(index, size)
	scale := worldScale / float64(size.Max())
	return r3.Vec{
		X: (float64(x) + 0.5 - float64(size.NX)/2) * scale,
		Y: (float64(y) + 0.5 - float64(size.NY)/2) * scale,
		Z: (float64(z) + 0.5 - float64(size.NZ)/2) * scale,
	}
}

func cellCoords(index int, s Size) (x, y, z int) {
	z = index % s.NZ
	y = (index / s.NZ) % s.NY
	x = index / (s.NY * s.NZ)
	return x, y, z
}

func positiveFinite(f float64) bool {
	return f > 0 && !math.IsInf(f, 0) && !math.IsNaN(f)
}
