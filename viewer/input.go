package viewer

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/stellarforge/particles"
	"github.com/pthm-cable/stellarforge/scenario"
)

// handleInput processes keyboard input.
func (v *Viewer) handleInput() {
	v.handleResize()

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}

	if rl.IsKeyPressed(rl.KeySpace) {
		v.app.TogglePause()
	}
	// Single step while paused
	if rl.IsKeyPressed(rl.KeyS) && v.app.Paused() && v.app.Err() == nil {
		v.app.Step()
	}

	// Steps-per-update control with < > keys (comma and period)
	if rl.IsKeyPressed(rl.KeyComma) {
		v.app.SetStepsPerUpdate(v.app.StepsPerUpdate() - 1)
	}
	if rl.IsKeyPressed(rl.KeyPeriod) {
		v.app.SetStepsPerUpdate(v.app.StepsPerUpdate() + 1)
	}

	if rl.IsKeyPressed(rl.KeyR) {
		v.reset()
	}
	if rl.IsKeyPressed(rl.KeyG) {
		v.regenerate(uint64(time.Now().UnixNano()))
	}
	if rl.IsKeyPressed(rl.KeyF5) {
		v.save()
	}
	if rl.IsKeyPressed(rl.KeyF9) {
		v.loadLatest()
	}

	if rl.IsKeyPressed(rl.KeyN) {
		v.spawnStar()
	}
	if rl.IsKeyPressed(rl.KeyX) {
		v.removeLast()
	}
	if rl.IsKeyPressed(rl.KeyBackspace) {
		v.rewind()
	}

	// Overlay toggles
	if rl.IsKeyPressed(rl.KeyB) {
		v.sceneRenderer.ShowBounds = !v.sceneRenderer.ShowBounds
	}
	if rl.IsKeyPressed(rl.KeyA) {
		v.sceneRenderer.ShowAnchors = !v.sceneRenderer.ShowAnchors
	}
	if rl.IsKeyPressed(rl.KeyH) {
		v.showHUD = !v.showHUD
	}
	if rl.IsKeyPressed(rl.KeyF1) {
		v.showHelp = !v.showHelp
	}

	v.handleCameraInput()
}

// handleResize checks for window resize and propagates new dimensions.
func (v *Viewer) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := float64(rl.GetScreenWidth())
	h := float64(rl.GetScreenHeight())
	if w == v.screenW && h == v.screenH {
		return
	}
	v.screenW, v.screenH = w, h
	v.camera.Resize(w, h)
}

// handleCameraInput processes orbit, pan and zoom controls.
func (v *Viewer) handleCameraInput() {
	const orbitSpeed = 0.005
	const keyOrbit = 0.03

	delta := rl.GetMouseDelta()
	switch {
	case rl.IsMouseButtonDown(rl.MouseButtonRight):
		v.camera.Orbit(-float64(delta.X)*orbitSpeed, float64(delta.Y)*orbitSpeed)
	case rl.IsMouseButtonDown(rl.MouseButtonMiddle),
		rl.IsMouseButtonDown(rl.MouseButtonLeft) && rl.IsKeyDown(rl.KeyLeftShift):
		v.camera.Pan(float64(delta.X), float64(delta.Y))
	}

	if rl.IsKeyDown(rl.KeyRight) {
		v.camera.Orbit(keyOrbit, 0)
	}
	if rl.IsKeyDown(rl.KeyLeft) {
		v.camera.Orbit(-keyOrbit, 0)
	}
	if rl.IsKeyDown(rl.KeyUp) {
		v.camera.Orbit(0, keyOrbit)
	}
	if rl.IsKeyDown(rl.KeyDown) {
		v.camera.Orbit(0, -keyOrbit)
	}

	// Zoom controls: mouse wheel or +/- keys
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		v.camera.ZoomBy(1 + float64(wheel)*0.1)
	}
	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		v.camera.ZoomBy(1.25)
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		v.camera.ZoomBy(0.8)
	}

	if rl.IsKeyPressed(rl.KeyHome) {
		v.camera.Reset()
	}
}

func (v *Viewer) reset() {
	if err := v.app.Reset(); err != nil {
		slog.Error("reset failed", "error", err)
		v.notify("Reset failed: " + err.Error())
		return
	}
	v.notify("Reset to initial conditions")
}

func (v *Viewer) regenerate(seed uint64) {
	if err := v.app.Regenerate(seed); err != nil {
		slog.Error("regenerate failed", "seed", seed, "error", err)
		v.notify("Regenerate failed: " + err.Error())
		return
	}
	v.frameUniverse()
	v.notify(fmt.Sprintf("Generated universe with seed %d", seed))
}

func (v *Viewer) save() {
	v.app.SetCameraState(scenario.CameraState{
		Target:   [3]float64{v.camera.Target.X, v.camera.Target.Y, v.camera.Target.Z},
		Yaw:      v.camera.Yaw,
		Pitch:    v.camera.Pitch,
		Distance: v.camera.Distance,
	})
	name, err := v.app.SaveScenario("")
	if err != nil {
		slog.Error("save failed", "error", err)
		v.notify("Save failed: " + err.Error())
		return
	}
	v.notify("Saved " + name)
}

// loadLatest loads the most recently saved scenario and restores its
// camera pose, or frames the particles when none was stored.
func (v *Viewer) loadLatest() {
	name, err := v.app.LatestScenario()
	if errors.Is(err, fs.ErrNotExist) {
		v.notify("No saved scenarios")
		return
	} else if err != nil {
		slog.Error("find latest scenario failed", "error", err)
		v.notify("Load failed: " + err.Error())
		return
	}
	if err := v.app.LoadScenario(name); err != nil {
		slog.Error("load failed", "name", name, "error", err)
		v.notify("Load failed: " + err.Error())
		return
	}
	if cs, ok := v.app.CameraState(); ok {
		v.camera.Target = r3.Vec{X: cs.Target[0], Y: cs.Target[1], Z: cs.Target[2]}
		v.camera.Yaw, v.camera.Pitch = cs.Yaw, cs.Pitch
		v.camera.SetDistance(cs.Distance)
	} else {
		v.frameUniverse()
	}
	v.notify("Loaded " + name)
}

// rewind restores the newest timeline snapshot older than the current tick.
func (v *Viewer) rewind() {
	snaps := v.app.Snapshots()
	i := len(snaps) - 1
	if i >= 0 && snaps[i].Tick >= v.app.Tick() {
		i--
	}
	if i < 0 {
		v.notify("No earlier snapshot")
		return
	}
	if err := v.app.RestoreSnapshot(i); err != nil {
		slog.Error("rewind failed", "index", i, "error", err)
		v.notify("Rewind failed: " + err.Error())
		return
	}
	v.notify(fmt.Sprintf("Rewound to tick %d", snaps[i].Tick))
}

// removeLast deletes the most recently added particle.
func (v *Viewer) removeLast() {
	n := v.app.Particles().Len()
	if n == 0 {
		return
	}
	if err := v.app.RemoveParticle(n - 1); err != nil {
		slog.Error("remove failed", "index", n-1, "error", err)
		v.notify("Remove failed: " + err.Error())
	}
}

// spawnStar drops a star at rest at the camera target.
func (v *Viewer) spawnStar() {
	mass := particles.Star.Info().MassMax
	if _, err := v.app.AddParticle(v.camera.Target, r3.Vec{}, mass, particles.Star); err != nil {
		slog.Error("spawn failed", "error", err)
		v.notify("Spawn failed: " + err.Error())
	}
}
