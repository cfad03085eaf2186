package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/stellarforge/camera"
	"github.com/pthm-cable/stellarforge/particles"
)

// ParticleRenderer draws a render snapshot as points and low-poly spheres.
type ParticleRenderer struct {
	// SpherePixels is the projected radius above which a particle is drawn
	// as a sphere instead of a point.
	SpherePixels float64

	// Drawn and Culled count particles handled by the last Draw.
	Drawn, Culled int
}

// NewParticleRenderer creates a new particle renderer.
func NewParticleRenderer() *ParticleRenderer {
	return &ParticleRenderer{SpherePixels: 1.5}
}

// Draw renders all particles in snap. Must be called between
// BeginMode3D/EndMode3D with a camera built from cam.
func (r *ParticleRenderer) Draw(cam *camera.Camera, snap *particles.RenderSnapshot) {
	r.Drawn, r.Culled = 0, 0
	if snap == nil {
		return
	}

	for i := 0; i < snap.Len(); i++ {
		pos := r3.Vec{
			X: float64(snap.Positions[3*i]),
			Y: float64(snap.Positions[3*i+1]),
			Z: float64(snap.Positions[3*i+2]),
		}
		size := snap.Sizes[i]
		if !cam.IsVisible(pos, float64(size)) {
			r.Culled++
			continue
		}
		r.Drawn++

		color := toColor(snap.Colors[3*i:3*i+3], 255)
		center := rl.NewVector3(snap.Positions[3*i], snap.Positions[3*i+1], snap.Positions[3*i+2])

		px := cam.ProjectedRadius(pos, float64(size))
		switch {
		case px < r.SpherePixels:
			rl.DrawPoint3D(center, color)
		case px < 6:
			rl.DrawSphereEx(center, size, 4, 4, color)
		default:
			rl.DrawSphereEx(center, size, 8, 8, color)
		}
	}
}

// toColor converts an RGB triple in [0,1] to a raylib colour.
func toColor(rgb []float32, alpha uint8) rl.Color {
	return rl.Color{
		R: channel(rgb[0]),
		G: channel(rgb[1]),
		B: channel(rgb[2]),
		A: alpha,
	}
}

func channel(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
