package viewer

import (
	"fmt"
	"time"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/stellarforge/particles"
)

const panelWidth = 220

// drawHUD renders simulation counters in the top-left corner.
func (v *Viewer) drawHUD() {
	set := v.app.Particles()
	counts := set.CountByType()
	status := v.app.LastStatus()
	perf := v.app.PerfStats()

	rl.DrawText(fmt.Sprintf("Tick: %d  Time: %.2f", v.app.Tick(), v.app.Stepper().Time()), 10, 10, 20, rl.White)
	rl.DrawText(fmt.Sprintf("Particles: %d  (stars %d, planets %d, black holes %d)",
		set.Len(), counts[particles.Star], counts[particles.Planet], counts[particles.BlackHole]),
		10, 35, 16, rl.LightGray)
	rl.DrawText(fmt.Sprintf("Speed: %dx  [</>]  Model: %s  Seed: %d",
		v.app.StepsPerUpdate(), status.Model, v.app.Params().Seed),
		10, 55, 16, rl.LightGray)
	rl.DrawText(fmt.Sprintf("FPS: %.0f  Tick: %s  Drawn: %d  Culled: %d  Snapshots: %d",
		perf.FPS, perf.AvgTickDuration.Round(time.Microsecond), v.particleRenderer.Drawn, v.particleRenderer.Culled,
		len(v.app.Snapshots())),
		10, 75, 16, rl.Gray)

	switch {
	case v.app.Err() != nil:
		rl.DrawText("FAULTED  [R] reset", 10, 95, 20, rl.Red)
	case v.app.Paused():
		rl.DrawText("PAUSED", 10, 95, 20, rl.Yellow)
	}

	rl.DrawText("[F1] help", 10, int32(v.screenH)-25, 14, rl.Gray)
}

// drawControlPanel renders raygui controls along the right edge.
func (v *Viewer) drawControlPanel() {
	x := float32(v.screenW) - panelWidth - 10
	y := float32(10)
	w := float32(panelWidth)

	rl.DrawRectangle(int32(x)-8, int32(y)-6, panelWidth+16, 290, rl.Color{R: 0, G: 0, B: 0, A: 160})

	label := "Pause"
	if v.app.Paused() {
		label = "Resume"
	}
	if gui.Button(rl.Rectangle{X: x, Y: y, Width: w/2 - 5, Height: 28}, label) {
		v.app.TogglePause()
	}
	if gui.Button(rl.Rectangle{X: x + w/2 + 5, Y: y, Width: w/2 - 5, Height: 28}, "Reset") {
		v.reset()
	}
	y += 38

	if gui.Button(rl.Rectangle{X: x, Y: y, Width: w, Height: 28}, "Regenerate (new seed)") {
		v.regenerate(uint64(time.Now().UnixNano()))
	}
	y += 38

	if gui.Button(rl.Rectangle{X: x, Y: y, Width: w/2 - 5, Height: 28}, "Save") {
		v.save()
	}
	if gui.Button(rl.Rectangle{X: x + w/2 + 5, Y: y, Width: w/2 - 5, Height: 28}, "Load latest") {
		v.loadLatest()
	}
	y += 44

	rl.DrawText("Speed (steps per frame)", int32(x), int32(y), 14, rl.LightGray)
	y += 18
	speed := gui.SliderBar(
		rl.Rectangle{X: x + 10, Y: y, Width: w - 50, Height: 20},
		"1", fmt.Sprint(v.app.StepsPerUpdate()),
		float32(v.app.StepsPerUpdate()), 1, 10,
	)
	if int(speed+0.5) != v.app.StepsPerUpdate() {
		v.app.SetStepsPerUpdate(int(speed + 0.5))
	}
	y += 36

	v.sceneRenderer.ShowAnchors = gui.CheckBox(rl.Rectangle{X: x, Y: y, Width: 18, Height: 18}, "Galaxy markers [A]", v.sceneRenderer.ShowAnchors)
	y += 26
	v.sceneRenderer.ShowBounds = gui.CheckBox(rl.Rectangle{X: x, Y: y, Width: 18, Height: 18}, "World bounds [B]", v.sceneRenderer.ShowBounds)
	y += 26
	v.sceneRenderer.ShowGrid = gui.CheckBox(rl.Rectangle{X: x, Y: y, Width: 18, Height: 18}, "Grid", v.sceneRenderer.ShowGrid)
	y += 30

	if gui.Button(rl.Rectangle{X: x, Y: y, Width: w, Height: 28}, "Frame universe [Home]") {
		v.frameUniverse()
	}
}

var helpLines = []string{
	"Space      pause / resume",
	"S          single step while paused",
	", .        slower / faster",
	"R          reset to initial conditions",
	"G          regenerate with a new seed",
	"F5 / F9    save / load most recent save",
	"Backspace  rewind to previous snapshot",
	"N / X      add star at target / remove last particle",
	"A B H      galaxy markers, bounds, HUD",
	"RMB drag   orbit      MMB or Shift+LMB drag   pan",
	"Wheel +/-  zoom       Home   reset camera",
}

// drawHelp renders the key legend.
func (v *Viewer) drawHelp() {
	const lineH = 18
	h := int32(len(helpLines)*lineH + 20)
	x := int32(v.screenW/2) - 240
	y := int32(v.screenH/2) - h/2

	rl.DrawRectangle(x, y, 480, h, rl.Color{R: 10, G: 12, B: 20, A: 230})
	rl.DrawRectangleLines(x, y, 480, h, rl.Color{R: 60, G: 70, B: 80, A: 255})
	for i, line := range helpLines {
		rl.DrawText(line, x+12, y+10+int32(i*lineH), 14, rl.LightGray)
	}
}
