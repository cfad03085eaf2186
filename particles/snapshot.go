package particles

import "math"

// RenderSnapshot is a read-only copy of the data a renderer needs.
// It shares no memory with the Set it was taken from.
type RenderSnapshot struct {
	Positions []float32 // 3N
	Colors    []float32 // 3N
	Sizes     []float32 // N
}

// Len returns the number of particles in the snapshot.
func (r *RenderSnapshot) Len() int {
	return len(r.Sizes)
}

// Snapshot copies positions, colours, and derived sizes out of the set.
// dst is reused when it has enough capacity.
func (s *Set) Snapshot(dst *RenderSnapshot) *RenderSnapshot {
	if dst == nil {
		dst = &RenderSnapshot{}
	}
	n := s.Len()
	dst.Positions = growFloat32(dst.Positions, 3*n)
	dst.Colors = growFloat32(dst.Colors, 3*n)
	dst.Sizes = growFloat32(dst.Sizes, n)

	for i, v := range s.Positions {
		dst.Positions[i] = float32(v)
	}
	copy(dst.Colors, s.Colors)
	for i := 0; i < n; i++ {
		dst.Sizes[i] = SizeFor(s.Types[i], s.Masses[i])
	}
	return dst
}

// SizeFor returns the render size of a particle: the type's base size scaled
// by the cube root of its mass relative to the type minimum, capped at 3x.
func SizeFor(t Type, mass float64) float32 {
	if !t.Valid() {
		return 0
	}
	info := typeTable[t]
	scale := math.Cbrt(mass / info.MassMin)
	if scale < 1 || math.IsNaN(scale) {
		scale = 1
	}
	if scale > 3 {
		scale = 3
	}
	return info.Size * float32(scale)
}

func growFloat32(s []float32, n int) []float32 {
	if cap(s) < n {
		return make([]float32, n)
	}
	return s[:n]
}
