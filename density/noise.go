package density

import (
	"math"
	"math/rand/v2"

	"github.com/ojrac/opensimplex-go"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

type evaluator interface {
	Eval3(x, y, z float64) float64
}

func newBasis(kind Kind, seed uint64) evaluator {
	if kind == KindSimplex {
		return opensimplex.New(int64(seed))
	}
	return newLattice(seed)
}

// gradients are the twelve cube-edge directions used at lattice corners.
var gradients = [12]r3.Vec{
	{X: 1, Y: 1}, {X: -1, Y: 1}, {X: 1, Y: -1}, {X: -1, Y: -1},
	{X: 1, Z: 1}, {X: -1, Z: 1}, {X: 1, Z: -1}, {X: -1, Z: -1},
	{Y: 1, Z: 1}, {Y: -1, Z: 1}, {Y: 1, Z: -1}, {Y: -1, Z: -1},
}

// lattice is Perlin gradient noise with a seeded 256-entry hash. It repeats
// every 256 units and is zero on integer points.
type lattice struct {
	perm [256]uint8
}

func newLattice(seed uint64) *lattice {
	l := &lattice{}
	for i := range l.perm {
		l.perm[i] = uint8(i)
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	rng.Shuffle(len(l.perm), func(i, j int) {
		l.perm[i], l.perm[j] = l.perm[j], l.perm[i]
	})
	return l
}

// gradient hashes a lattice corner. uint8 arithmetic wraps, so no doubled
// table is needed.
func (l *lattice) gradient(ix, iy, iz int) r3.Vec {
	h := l.perm[uint8(ix)]
	h = l.perm[h+uint8(iy)]
	h = l.perm[h+uint8(iz)]
	return gradients[h%12]
}

// Eval3 returns noise in roughly [-1, 1].
func (l *lattice) Eval3(x, y, z float64) float64 {
	fx, fy, fz := math.Floor(x), math.Floor(y), math.Floor(z)
	ix, iy, iz := int(fx), int(fy), int(fz)
	local := r3.Vec{X: x - fx, Y: y - fy, Z: z - fz}

	// Corner i sits at offset (i&1, i>>1&1, i>>2&1)
	var c [8]float64
	for i := range c {
		ox, oy, oz := i&1, i>>1&1, i>>2&1
		corner := r3.Vec{X: float64(ox), Y: float64(oy), Z: float64(oz)}
		c[i] = r3.Dot(l.gradient(ix+ox, iy+oy, iz+oz), r3.Sub(local, corner))
	}

	u, v, w := smoother(local.X), smoother(local.Y), smoother(local.Z)
	near := mix(v, mix(u, c[0], c[1]), mix(u, c[2], c[3]))
	far := mix(v, mix(u, c[4], c[5]), mix(u, c[6], c[7]))
	return mix(w, near, far)
}

// smoother is the quintic 6t⁵-15t⁴+10t³ easing curve.
func smoother(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func mix(t, a, b float64) float64 {
	return a + t*(b-a)
}

// octave is one FBM layer over the shared basis.
type octave struct {
	offset    r3.Vec
	frequency float64
	amplitude float64
}

// fbm sums octaves of a basis and maps the result to 0.5+0.5*sum/Σamplitude.
// Each octave gets a seeded offset so layers do not share a lattice origin.
type fbm struct {
	basis   evaluator
	octaves []octave
	ampSum  float64
}

func newFBM(p Params) *fbm {
	f := &fbm{basis: newBasis(p.Kind, p.Seed), octaves: make([]octave, p.Octaves)}
	rng := rand.New(rand.NewPCG(p.Seed, ^p.Seed))
	amps := make([]float64, p.Octaves)
	freq, amp := p.Frequency, 1.0
	for i := range f.octaves {
		f.octaves[i] = octave{
			offset:    r3.Scale(256, r3.Vec{X: rng.Float64(), Y: rng.Float64(), Z: rng.Float64()}),
			frequency: freq,
			amplitude: amp,
		}
		amps[i] = amp
		freq *= p.Lacunarity
		amp *= p.Persistence
	}
	f.ampSum = floats.Sum(amps)
	return f
}

// Eval3 samples the layered field at a point in cell units.
func (f *fbm) Eval3(x, y, z float64) float64 {
	pt := r3.Vec{X: x, Y: y, Z: z}
	var sum float64
	for _, o := range f.octaves {
		q := r3.Add(r3.Scale(o.frequency, pt), o.offset)
		sum += o.amplitude * f.basis.Eval3(q.X, q.Y, q.Z)
	}
	return 0.5 + 0.5*sum/f.ampSum
}
