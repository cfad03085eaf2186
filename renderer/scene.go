// Package renderer draws the particle universe with raylib.
package renderer

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/stellarforge/camera"
	"github.com/pthm-cable/stellarforge/placement"
)

// Camera3D builds the raylib camera matching cam.
func Camera3D(cam *camera.Camera) rl.Camera3D {
	eye := cam.Position()
	return rl.Camera3D{
		Position:   rl.NewVector3(float32(eye.X), float32(eye.Y), float32(eye.Z)),
		Target:     rl.NewVector3(float32(cam.Target.X), float32(cam.Target.Y), float32(cam.Target.Z)),
		Up:         rl.NewVector3(0, 1, 0),
		Fovy:       float32(cam.FovY * 180 / math.Pi),
		Projection: rl.CameraPerspective,
	}
}

// shapeColors tints galaxy markers by shape.
var shapeColors = [placement.NumShapes]rl.Color{
	placement.Spiral:     {R: 90, G: 160, B: 255, A: 120},
	placement.Elliptical: {R: 255, G: 200, B: 90, A: 120},
	placement.Irregular:  {R: 140, G: 255, B: 140, A: 120},
}

// SceneRenderer draws the world frame and optional galaxy markers.
type SceneRenderer struct {
	WorldBound  float32
	ShowBounds  bool
	ShowAnchors bool
	ShowGrid    bool
}

// NewSceneRenderer creates a scene renderer for a cube of half-size bound.
func NewSceneRenderer(bound float64) *SceneRenderer {
	return &SceneRenderer{
		WorldBound: float32(bound),
		ShowBounds: true,
	}
}

// Draw renders overlays. Must be called inside BeginMode3D.
func (s *SceneRenderer) Draw(anchors []placement.Anchor) {
	if s.ShowGrid {
		spacing := max(s.WorldBound/10, 1)
		rl.DrawGrid(20, spacing)
	}
	if s.ShowBounds && s.WorldBound > 0 {
		side := 2 * s.WorldBound
		rl.DrawCubeWires(rl.NewVector3(0, 0, 0), side, side, side, rl.Color{R: 60, G: 70, B: 80, A: 255})
	}
	if s.ShowAnchors {
		for _, a := range anchors {
			color := rl.Gray
			if a.Shape < placement.NumShapes {
				color = shapeColors[a.Shape]
			}
			center := rl.NewVector3(float32(a.Center.X), float32(a.Center.Y), float32(a.Center.Z))
			rl.DrawSphereWires(center, float32(a.Radius), 6, 12, color)
		}
	}
}
