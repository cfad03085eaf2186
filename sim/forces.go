package sim

import "math"

// ForceModel identifies how accelerations are computed for a tick.
type ForceModel uint8

const (
	ForceNone ForceModel = iota
	ForcePairwise
	ForceCentroid
)

func (m ForceModel) String() string {
	switch m {
	case ForcePairwise:
		return "pairwise"
	case ForceCentroid:
		return "centroid"
	default:
		return "none"
	}
}

// ModelFor returns the force model used for a set of n particles.
func (c Config) ModelFor(n int) ForceModel {
	switch {
	case !c.GravityEnabled || n < 2:
		return ForceNone
	case n <= c.PairwiseThreshold:
		return ForcePairwise
	default:
		return ForceCentroid
	}
}

// centroidSums holds the mass moments used by the centroid model.
type centroidSums struct {
	mass       float64
	mx, my, mz float64
}

func (s *Stepper) prepareCentroid() {
	var c centroidSums
	pos, m := s.set.Positions, s.set.Masses
	for i, mi := range m {
		c.mass += mi
		c.mx += mi * pos[3*i]
		c.my += mi * pos[3*i+1]
		c.mz += mi * pos[3*i+2]
	}
	s.centroid = c
}

// accelerateRange writes accelerations for particles [i0, i1) into s.acc.
// It only reads positions and masses, so disjoint ranges may run concurrently.
func (s *Stepper) accelerateRange(i0, i1 int) {
	switch s.model {
	case ForcePairwise:
		s.pairwiseRange(i0, i1)
	case ForceCentroid:
		s.centroidRange(i0, i1)
	default:
		clear(s.acc[3*i0 : 3*i1])
	}
}

// pairwiseRange applies a = G*m_j/(r²+ε²) toward every other particle j.
func (s *Stepper) pairwiseRange(i0, i1 int) {
	pos, m, acc := s.set.Positions, s.set.Masses, s.acc
	g := s.cfg.G
	eps2 := s.cfg.Softening * s.cfg.Softening
	n := len(m)

	for i := i0; i < i1; i++ {
		px, py, pz := pos[3*i], pos[3*i+1], pos[3*i+2]
		var ax, ay, az float64
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			dx := pos[3*j] - px
			dy := pos[3*j+1] - py
			dz := pos[3*j+2] - pz
			r2 := dx*dx + dy*dy + dz*dz
			if r2 == 0 {
				continue
			}
			r := math.Sqrt(r2)
			f := g * m[j] / ((r2 + eps2) * r)
			ax += f * dx
			ay += f * dy
			az += f * dz
		}
		acc[3*i], acc[3*i+1], acc[3*i+2] = ax, ay, az
	}
}

// centroidRange pulls each particle toward the centre of mass of all other
// particles with a = G*(M-m_i)/(r²+ε²).
func (s *Stepper) centroidRange(i0, i1 int) {
	pos, m, acc := s.set.Positions, s.set.Masses, s.acc
	g := s.cfg.G
	eps2 := s.cfg.Softening * s.cfg.Softening
	c := s.centroid

	for i := i0; i < i1; i++ {
		acc[3*i], acc[3*i+1], acc[3*i+2] = 0, 0, 0

		mi := m[i]
		other := c.mass - mi
		if other <= 0 {
			continue
		}
		px, py, pz := pos[3*i], pos[3*i+1], pos[3*i+2]
		dx := (c.mx-mi*px)/other - px
		dy := (c.my-mi*py)/other - py
		dz := (c.mz-mi*pz)/other - pz
		r2 := dx*dx + dy*dy + dz*dz
		if r2 == 0 {
			continue
		}
		r := math.Sqrt(r2)
		f := g * other / ((r2 + eps2) * r)
		acc[3*i], acc[3*i+1], acc[3*i+2] = f*dx, f*dy, f*dz
	}
}
