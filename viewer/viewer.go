// Package viewer drives an app.App from a raylib window: orbit camera,
// 3D particle rendering, keyboard/mouse input and a raygui control panel.
package viewer

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/stellarforge/app"
	"github.com/pthm-cable/stellarforge/camera"
	"github.com/pthm-cable/stellarforge/particles"
	"github.com/pthm-cable/stellarforge/renderer"
)

// messageFrames is how long status messages stay on screen.
const messageFrames = 180

// Viewer holds the graphical state around an App.
type Viewer struct {
	app *app.App

	camera           *camera.Camera
	particleRenderer *renderer.ParticleRenderer
	sceneRenderer    *renderer.SceneRenderer
	snapshot         *particles.RenderSnapshot

	screenW, screenH float64

	showHUD  bool
	showHelp bool

	message       string
	messageFrames int
}

// New creates a viewer for a. The raylib window must already be open.
func New(a *app.App) *Viewer {
	w := float64(rl.GetScreenWidth())
	h := float64(rl.GetScreenHeight())
	extent := a.Config().Generation.WorldScale / 2

	v := &Viewer{
		app:              a,
		camera:           camera.New(w, h, extent),
		particleRenderer: renderer.NewParticleRenderer(),
		sceneRenderer:    renderer.NewSceneRenderer(a.Config().Derived.WorldBound),
		screenW:          w,
		screenH:          h,
		showHUD:          true,
	}
	v.sceneRenderer.ShowBounds = false
	v.frameUniverse()
	return v
}

// frameUniverse points the camera at the particles' centre of mass.
func (v *Viewer) frameUniverse() {
	set := v.app.Particles()
	if set.Len() == 0 {
		v.camera.Frame(r3.Vec{}, v.app.Config().Generation.WorldScale/2)
		return
	}

	var center r3.Vec
	total := set.TotalMass()
	for i := 0; i < set.Len(); i++ {
		center = r3.Add(center, r3.Scale(set.Masses[i]/total, set.Pos(i)))
	}
	var radius float64
	for i := 0; i < set.Len(); i++ {
		radius = math.Max(radius, r3.Norm(r3.Sub(set.Pos(i), center)))
	}
	v.camera.Frame(center, math.Max(radius, 1))
}

// Update processes input and advances the simulation.
func (v *Viewer) Update() {
	v.handleInput()

	if err := v.app.UpdateHeadless(); err != nil {
		v.notify("Simulation stopped: " + err.Error())
	}
	if v.messageFrames > 0 {
		v.messageFrames--
	}
}

// Draw renders one frame.
func (v *Viewer) Draw() {
	v.app.RecordFrame()
	v.snapshot = v.app.Stepper().Snapshot(v.snapshot)

	rl.BeginDrawing()
	rl.ClearBackground(rl.Color{R: 4, G: 5, B: 12, A: 255})

	rl.BeginMode3D(renderer.Camera3D(v.camera))
	v.sceneRenderer.Draw(v.app.Anchors())
	v.particleRenderer.Draw(v.camera, v.snapshot)
	rl.EndMode3D()

	if v.showHUD {
		v.drawHUD()
		v.drawControlPanel()
	}
	if v.showHelp {
		v.drawHelp()
	}
	if v.messageFrames > 0 {
		rl.DrawText(v.message, 10, int32(v.screenH)-50, 16, rl.Yellow)
	}

	rl.EndDrawing()
}

// notify shows a transient status line.
func (v *Viewer) notify(msg string) {
	v.message = msg
	v.messageFrames = messageFrames
}
