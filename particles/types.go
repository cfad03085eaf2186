// Package particles defines the particle set shared by the generator, the
// stepper, and the renderer/persistence collaborators.
package particles

import (
	"fmt"

	"github.com/pthm-cable/stellarforge/simerr"
)

// Type identifies the kind of body a particle represents.
type Type uint8

const (
	Star Type = iota
	Planet
	BlackHole

	NumTypes = 3
)

// TypeInfo holds per-type constants.
type TypeInfo struct {
	Name    string
	MassMin float64
	MassMax float64
	Color   [3]float32 // base RGB in [0,1]
	Size    float32    // base render size in world units
}

// typeTable is indexed by Type. Masses keep BLACK_HOLE >> STAR >> PLANET.
var typeTable = [NumTypes]TypeInfo{
	Star: {
		Name:    "star",
		MassMin: 0.5,
		MassMax: 5,
		Color:   [3]float32{1.0, 0.95, 0.75},
		Size:    0.25,
	},
	Planet: {
		Name:    "planet",
		MassMin: 0.001,
		MassMax: 0.01,
		Color:   [3]float32{0.35, 0.5, 0.75},
		Size:    0.12,
	},
	BlackHole: {
		Name:    "black_hole",
		MassMin: 1e3,
		MassMax: 1e4,
		Color:   [3]float32{0.8, 0.2, 0.8},
		Size:    0.6,
	},
}

// Valid reports whether t is one of the defined types.
func (t Type) Valid() bool {
	return t < NumTypes
}

// Info returns the constants for t. Panics on an invalid type.
func (t Type) Info() TypeInfo {
	return typeTable[t]
}

func (t Type) String() string {
	if !t.Valid() {
		return fmt.Sprintf("type(%d)", uint8(t))
	}
	return typeTable[t].Name
}

// ParseType converts a type name back to a Type.
func ParseType(name string) (Type, error) {
	for i, info := range typeTable {
		if info.Name == name {
			return Type(i), nil
		}
	}
	return 0, simerr.InvalidParameterf("unknown particle type %q", name)
}
