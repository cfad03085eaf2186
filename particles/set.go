package particles

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/stellarforge/simerr"
)

// Set holds simulation state as parallel flat arrays.
// Vector quantities are stored as 3 consecutive values per particle.
// All arrays describe the same N particles at every method boundary.
type Set struct {
	Positions  []float64 // 3N
	Velocities []float64 // 3N
	Masses     []float64 // N
	Types      []Type    // N
	Colors     []float32 // 3N, RGB in [0,1]
}

// New creates an empty set with room for capacity particles.
func New(capacity int) *Set {
	return &Set{
		Positions:  make([]float64, 0, capacity*3),
		Velocities: make([]float64, 0, capacity*3),
		Masses:     make([]float64, 0, capacity),
		Types:      make([]Type, 0, capacity),
		Colors:     make([]float32, 0, capacity*3),
	}
}

// Len returns the number of particles.
func (s *Set) Len() int {
	return len(s.Masses)
}

// Pos returns the position of particle i.
func (s *Set) Pos(i int) r3.Vec {
	return r3.Vec{X: s.Positions[3*i], Y: s.Positions[3*i+1], Z: s.Positions[3*i+2]}
}

// SetPos sets the position of particle i.
func (s *Set) SetPos(i int, v r3.Vec) {
	s.Positions[3*i], s.Positions[3*i+1], s.Positions[3*i+2] = v.X, v.Y, v.Z
}

// Vel returns the velocity of particle i.
func (s *Set) Vel(i int) r3.Vec {
	return r3.Vec{X: s.Velocities[3*i], Y: s.Velocities[3*i+1], Z: s.Velocities[3*i+2]}
}

// SetVel sets the velocity of particle i.
func (s *Set) SetVel(i int, v r3.Vec) {
	s.Velocities[3*i], s.Velocities[3*i+1], s.Velocities[3*i+2] = v.X, v.Y, v.Z
}

// Color returns the RGB colour of particle i.
func (s *Set) Color(i int) [3]float32 {
	return [3]float32{s.Colors[3*i], s.Colors[3*i+1], s.Colors[3*i+2]}
}

// Check verifies array lengths agree and every numeric entry is finite.
func (s *Set) Check() error {
	n := len(s.Masses)
	if len(s.Positions) != 3*n || len(s.Velocities) != 3*n || len(s.Types) != n || len(s.Colors) != 3*n {
		return simerr.InvalidParameterf("inconsistent array lengths: positions=%d velocities=%d masses=%d types=%d colors=%d",
			len(s.Positions), len(s.Velocities), len(s.Masses), len(s.Types), len(s.Colors))
	}
	for i := 0; i < n; i++ {
		if !s.Types[i].Valid() {
			return simerr.InvalidParameterf("particle %d: invalid type %d", i, s.Types[i])
		}
		if !isFinite(s.Masses[i]) || s.Masses[i] <= 0 {
			return simerr.InvalidParameterf("particle %d: mass %g must be finite and positive", i, s.Masses[i])
		}
		if !FiniteVec(s.Pos(i)) || !FiniteVec(s.Vel(i)) {
			return simerr.InvalidParameterf("particle %d: non-finite position or velocity", i)
		}
	}
	return nil
}

// Add appends one particle coloured with its type's base colour.
// Returns the new particle's index. Nothing is appended on error.
func (s *Set) Add(pos, vel r3.Vec, mass float64, t Type) (int, error) {
	return s.AddColored(pos, vel, mass, t, t.colorOrZero())
}

// AddColored is like Add with an explicit colour.
func (s *Set) AddColored(pos, vel r3.Vec, mass float64, t Type, color [3]float32) (int, error) {
	if !t.Valid() {
		return -1, simerr.InvalidParameterf("invalid particle type %d", t)
	}
	if !FiniteVec(pos) || !FiniteVec(vel) {
		return -1, simerr.InvalidParameterf("non-finite position %v or velocity %v", pos, vel)
	}
	if !isFinite(mass) || mass <= 0 {
		return -1, simerr.InvalidParameterf("mass %g must be finite and positive", mass)
	}

	s.Positions = append(s.Positions, pos.X, pos.Y, pos.Z)
	s.Velocities = append(s.Velocities, vel.X, vel.Y, vel.Z)
	s.Masses = append(s.Masses, mass)
	s.Types = append(s.Types, t)
	s.Colors = append(s.Colors, color[0], color[1], color[2])
	return s.Len() - 1, nil
}

// Remove deletes particle i, preserving the order of the rest.
func (s *Set) Remove(i int) error {
	n := s.Len()
	if i < 0 || i >= n {
		return simerr.IndexOutOfRange(i, n)
	}
	s.Positions = slices.Delete(s.Positions, 3*i, 3*i+3)
	s.Velocities = slices.Delete(s.Velocities, 3*i, 3*i+3)
	s.Masses = slices.Delete(s.Masses, i, i+1)
	s.Types = slices.Delete(s.Types, i, i+1)
	s.Colors = slices.Delete(s.Colors, 3*i, 3*i+3)
	return nil
}

// Append concatenates other onto s.
func (s *Set) Append(other *Set) {
	s.Positions = append(s.Positions, other.Positions...)
	s.Velocities = append(s.Velocities, other.Velocities...)
	s.Masses = append(s.Masses, other.Masses...)
	s.Types = append(s.Types, other.Types...)
	s.Colors = append(s.Colors, other.Colors...)
}

// Clone returns a deep copy.
func (s *Set) Clone() *Set {
	return &Set{
		Positions:  slices.Clone(s.Positions),
		Velocities: slices.Clone(s.Velocities),
		Masses:     slices.Clone(s.Masses),
		Types:      slices.Clone(s.Types),
		Colors:     slices.Clone(s.Colors),
	}
}

// Equal reports whether both sets hold bit-identical data.
func (s *Set) Equal(o *Set) bool {
	return bitsEqual(s.Positions, o.Positions) &&
		bitsEqual(s.Velocities, o.Velocities) &&
		bitsEqual(s.Masses, o.Masses) &&
		slices.Equal(s.Types, o.Types) &&
		slices.Equal(s.Colors, o.Colors)
}

// TotalMass returns the summed mass of all particles.
func (s *Set) TotalMass() float64 {
	return floats.Sum(s.Masses)
}

// CountByType returns the number of particles of each type.
func (s *Set) CountByType() [NumTypes]int {
	var counts [NumTypes]int
	for _, t := range s.Types {
		if t.Valid() {
			counts[t]++
		}
	}
	return counts
}

// FiniteVec reports whether every component of v is finite.
func FiniteVec(v r3.Vec) bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func bitsEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Float64bits(a[i]) != math.Float64bits(b[i]) {
			return false
		}
	}
	return true
}

func (t Type) colorOrZero() [3]float32 {
	if !t.Valid() {
		return [3]float32{}
	}
	return typeTable[t].Color
}
