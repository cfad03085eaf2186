// Package synth expands a galaxy anchor into a batch of typed particles.
package synth

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/pthm-cable/stellarforge/particles"
	"github.com/pthm-cable/stellarforge/placement"
	"github.com/pthm-cable/stellarforge/simerr"
)

// Params configures particle synthesis. Lengths marked "fraction" are
// relative to the anchor radius.
type Params struct {
	G float64 // gravitational scale shared with the stepper

	SpiralArms    int
	PitchAngleDeg float64
	ArmScatter    float64 // fraction, perpendicular Gaussian sigma
	BulgeFraction float64 // share of spiral particles in the central bulge
	BulgeRadius   float64 // fraction, bulge Gaussian sigma
	CoreRadius    float64 // fraction, softens the enclosed-mass profile
	DiskThickness float64 // fraction, vertical Gaussian sigma

	EllipticalAxisRatio  float64 // z scale in (0, 1]
	EllipticalDispersion float64 // fraction of the characteristic speed

	IrregularDispersion float64 // fraction of the characteristic speed
	IrregularClumpsMin  int
	IrregularClumpsMax  int

	TypeWeights      [particles.NumTypes]float64
	LuminosityJitter float64 // colour scale varies by up to ±this
}

// DefaultParams returns the stock synthesis settings.
func DefaultParams() Params {
	return Params{
		G:                    0.01,
		SpiralArms:           2,
		PitchAngleDeg:        14,
		ArmScatter:           0.06,
		BulgeFraction:        0.3,
		BulgeRadius:          0.12,
		CoreRadius:           0.2,
		DiskThickness:        0.04,
		EllipticalAxisRatio:  0.7,
		EllipticalDispersion: 0.2,
		IrregularDispersion:  0.3,
		IrregularClumpsMin:   2,
		IrregularClumpsMax:   4,
		TypeWeights:          [particles.NumTypes]float64{0.85, 0.14, 0.01},
		LuminosityJitter:     0.15,
	}
}

// Validate checks the synthesis parameters.
func (p Params) Validate() error {
	switch {
	case !nonNegative(p.G):
		return simerr.InvalidParameterf("G=%g must be finite and >= 0", p.G)
	case p.SpiralArms < 1:
		return simerr.InvalidParameterf("spiral arms=%d must be >= 1", p.SpiralArms)
	case !(p.PitchAngleDeg > 0 && p.PitchAngleDeg < 90):
		return simerr.InvalidParameterf("pitch angle=%g must be in (0, 90)", p.PitchAngleDeg)
	case !nonNegative(p.ArmScatter), !nonNegative(p.DiskThickness), !nonNegative(p.BulgeRadius):
		return simerr.InvalidParameterf("arm scatter, disk thickness and bulge radius must be finite and >= 0")
	case !(p.BulgeFraction >= 0 && p.BulgeFraction <= 1):
		return simerr.InvalidParameterf("bulge fraction=%g must be in [0, 1]", p.BulgeFraction)
	case !(p.CoreRadius > 0) || math.IsInf(p.CoreRadius, 0):
		return simerr.InvalidParameterf("core radius=%g must be finite and > 0", p.CoreRadius)
	case !(p.EllipticalAxisRatio > 0 && p.EllipticalAxisRatio <= 1):
		return simerr.InvalidParameterf("elliptical axis ratio=%g must be in (0, 1]", p.EllipticalAxisRatio)
	case !nonNegative(p.EllipticalDispersion), !nonNegative(p.IrregularDispersion):
		return simerr.InvalidParameterf("velocity dispersions must be finite and >= 0")
	case p.IrregularClumpsMin < 1 || p.IrregularClumpsMax < p.IrregularClumpsMin:
		return simerr.InvalidParameterf("irregular clump range [%d, %d] invalid", p.IrregularClumpsMin, p.IrregularClumpsMax)
	case !(p.LuminosityJitter >= 0 && p.LuminosityJitter < 1):
		return simerr.InvalidParameterf("luminosity jitter=%g must be in [0, 1)", p.LuminosityJitter)
	}
	for _, w := range p.TypeWeights {
		if !nonNegative(w) {
			return simerr.InvalidParameterf("type weights %v must be finite and >= 0", p.TypeWeights)
		}
	}
	if floats.Sum(p.TypeWeights[:]) <= 0 {
		return simerr.InvalidParameterf("type weights must not all be zero")
	}
	return nil
}

// Synthesize builds anchor.ParticleCount particles distributed by the
// anchor's shape, rotated by its orientation and centred on it. All
// randomness comes from anchor.Seed, so the batch is reproducible.
func Synthesize(a placement.Anchor, p Params) (*particles.Set, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if a.ParticleCount < 0 {
		return nil, simerr.InvalidParameterf("particle count %d must be >= 0", a.ParticleCount)
	}
	if !(a.Radius > 0) || math.IsInf(a.Radius, 0) {
		return nil, simerr.InvalidParameterf("anchor radius %g must be finite and > 0", a.Radius)
	}
	if a.Shape >= placement.NumShapes {
		return nil, simerr.InvalidParameterf("invalid anchor shape %d", a.Shape)
	}
	if !particles.FiniteVec(a.Center) {
		return nil, simerr.InvalidParameterf("non-finite anchor center %v", a.Center)
	}

	n := a.ParticleCount
	set := particles.New(n)
	if n == 0 {
		return set, nil
	}

	rng := rand.New(rand.NewPCG(a.Seed, a.Seed^0xda3e39cb94b95bdb))

	types, masses := drawTypes(n, p, rng)
	totalMass := floats.Sum(masses)

	b := &batch{
		p:      p,
		rng:    rng,
		radius: a.Radius,
		mass:   totalMass,
		pos:    make([]r3.Vec, n),
		vel:    make([]r3.Vec, n),
	}
	switch a.Shape {
	case placement.Spiral:
		b.spiral()
	case placement.Elliptical:
		b.elliptical()
	case placement.Irregular:
		b.irregular()
	}

	rot := r3.Rotation(a.Rotation)
	for i := 0; i < n; i++ {
		pos := r3.Add(a.Center, rot.Rotate(b.pos[i]))
		vel := rot.Rotate(b.vel[i])
		color := jitterColor(types[i].Info().Color, p.LuminosityJitter, rng)
		if _, err := set.AddColored(pos, vel, masses[i], types[i], color); err != nil {
			return nil, simerr.WrapInvalidParameter("synthesized particle rejected", err)
		}
	}
	return set, nil
}

// drawTypes assigns each particle a type by weighted draw and a mass
// log-uniform in that type's range.
func drawTypes(n int, p Params, rng *rand.Rand) ([]particles.Type, []float64) {
	cat := distuv.NewCategorical(p.TypeWeights[:], rng)
	types := make([]particles.Type, n)
	masses := make([]float64, n)
	for i := range types {
		t := particles.Type(cat.Rand())
		info := t.Info()
		lo, hi := math.Log(info.MassMin), math.Log(info.MassMax)
		types[i] = t
		masses[i] = math.Exp(lo + rng.Float64()*(hi-lo))
	}
	return types, masses
}

// batch holds the local-frame state for one anchor.
type batch struct {
	p      Params
	rng    *rand.Rand
	radius float64
	mass   float64
	pos    []r3.Vec
	vel    []r3.Vec
}

// characteristicSpeed is the circular speed at the anchor edge.
func (b *batch) characteristicSpeed() float64 {
	return math.Sqrt(b.p.G * b.mass / b.radius)
}

func (b *batch) gaussian(sigma float64) float64 {
	return distuv.Normal{Mu: 0, Sigma: sigma, Src: b.rng}.Rand()
}

func (b *batch) gaussianVec(sigma float64) r3.Vec {
	if sigma == 0 {
		return r3.Vec{}
	}
	n := distuv.Normal{Mu: 0, Sigma: sigma, Src: b.rng}
	return r3.Vec{X: n.Rand(), Y: n.Rand(), Z: n.Rand()}
}

// direction returns a uniformly distributed unit vector.
func (b *batch) direction() r3.Vec {
	for {
		v := b.gaussianVec(1)
		if r3.Norm(v) > 1e-12 {
			return r3.Unit(v)
		}
	}
}

// exponentialRadius draws from an exponential profile with the given scale
// length, redrawing a few times before clamping to the anchor radius.
func (b *batch) exponentialRadius(scale float64) float64 {
	exp := distuv.Exponential{Rate: 1 / scale, Src: b.rng}
	for range 8 {
		if r := exp.Rand(); r <= b.radius {
			return r
		}
	}
	return b.radius * b.rng.Float64()
}

func (b *batch) clamp(v r3.Vec) r3.Vec {
	if d := r3.Norm(v); d > b.radius {
		return r3.Scale(b.radius/d, v)
	}
	return v
}

// enclosedMass approximates the mass within planar radius r.
func (b *batch) enclosedMass(r float64) float64 {
	f := r / b.radius
	c2 := b.p.CoreRadius * b.p.CoreRadius
	return b.mass * f * f / (f*f + c2) * (1 + c2)
}

// orbitalVelocity is the circular velocity about the local z axis.
func (b *batch) orbitalVelocity(pos r3.Vec) r3.Vec {
	r := math.Hypot(pos.X, pos.Y)
	if r < 1e-9 {
		return r3.Vec{}
	}
	v := math.Sqrt(b.p.G * b.enclosedMass(r) / r)
	return r3.Vec{X: -pos.Y / r * v, Y: pos.X / r * v}
}

// spiral places a bulge plus logarithmic arms in the local xy plane.
func (b *batch) spiral() {
	R := b.radius
	arms := b.p.SpiralArms
	tanPitch := math.Tan(b.p.PitchAngleDeg * math.Pi / 180)
	r0 := 0.05 * R
	armPhase := 2 * math.Pi / float64(arms)
	vChar := b.characteristicSpeed()

	for i := range b.pos {
		if b.rng.Float64() < b.p.BulgeFraction {
			pos := b.clamp(b.gaussianVec(b.p.BulgeRadius * R))
			b.pos[i] = pos
			vel := r3.Scale(0.5, b.orbitalVelocity(pos))
			b.vel[i] = r3.Add(vel, b.gaussianVec(0.3*b.p.EllipticalDispersion*vChar))
			continue
		}

		r := math.Max(b.exponentialRadius(R/3), r0)
		theta := float64(i%arms)*armPhase + math.Log(r/r0)/tanPitch
		sin, cos := math.Sincos(theta)

		// Tangent of the arm at r, and its in-plane normal
		tangent := r3.Unit(r3.Vec{X: cos - sin/tanPitch, Y: sin + cos/tanPitch})
		normal := r3.Vec{X: -tangent.Y, Y: tangent.X}

		pos := r3.Vec{X: r * cos, Y: r * sin}
		pos = r3.Add(pos, r3.Scale(b.gaussian(b.p.ArmScatter*R), normal))
		pos.Z = b.gaussian(b.p.DiskThickness * R)
		pos = b.clamp(pos)

		b.pos[i] = pos
		b.vel[i] = b.orbitalVelocity(pos)
	}
}

// elliptical places a flattened exponential profile with random,
// zero-mean velocities.
func (b *batch) elliptical() {
	R := b.radius
	sigma := b.p.EllipticalDispersion * b.characteristicSpeed()
	for i := range b.pos {
		pos := r3.Scale(b.exponentialRadius(R/4), b.direction())
		pos.Z *= b.p.EllipticalAxisRatio
		b.pos[i] = b.clamp(pos)
		b.vel[i] = b.gaussianVec(sigma)
	}
	removeMean(b.vel)
}

// irregular places Gaussian clumps over a uniform background.
func (b *batch) irregular() {
	R := b.radius
	k := b.p.IrregularClumpsMin + b.rng.IntN(b.p.IrregularClumpsMax-b.p.IrregularClumpsMin+1)
	clumps := make([]r3.Vec, k)
	for c := range clumps {
		clumps[c] = r3.Scale(0.6*R*math.Cbrt(b.rng.Float64()), b.direction())
	}

	sigma := b.p.IrregularDispersion * b.characteristicSpeed()
	for i := range b.pos {
		var pos r3.Vec
		if b.rng.Float64() < 0.8 {
			c := clumps[b.rng.IntN(k)]
			pos = r3.Add(c, b.gaussianVec(0.2*R))
		} else {
			pos = r3.Scale(R*math.Cbrt(b.rng.Float64()), b.direction())
		}
		b.pos[i] = b.clamp(pos)
		b.vel[i] = b.gaussianVec(sigma)
	}
}

func removeMean(vs []r3.Vec) {
	if len(vs) == 0 {
		return
	}
	var mean r3.Vec
	for _, v := range vs {
		mean = r3.Add(mean, v)
	}
	mean = r3.Scale(1/float64(len(vs)), mean)
	for i := range vs {
		vs[i] = r3.Sub(vs[i], mean)
	}
}

func jitterColor(base [3]float32, jitter float64, rng *rand.Rand) [3]float32 {
	if jitter == 0 {
		return base
	}
	scale := float32(1 + jitter*(2*rng.Float64()-1))
	var out [3]float32
	for i, c := range base {
		out[i] = min(max(c*scale, 0), 1)
	}
	return out
}

func nonNegative(f float64) bool {
	return f >= 0 && !math.IsInf(f, 0)
}
