// Density field preview tool - interactive z-slice view of the galaxy
// density grid with the candidate threshold overlaid.
//
// Usage: go run ./cmd/densitypreview [-config path]
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/stellarforge/config"
	"github.com/pthm-cable/stellarforge/density"
	"github.com/pthm-cable/stellarforge/universe"
)

const (
	windowWidth  = 1000
	windowHeight = 720
	previewSize  = 512
	panelWidth   = windowWidth - previewSize - 30
)

// previewState is everything the panel edits.
type previewState struct {
	size       density.Size
	noise      density.Params
	percentile float64
	slice      int
}

// panel lays out labelled sliders top to bottom.
type panel struct {
	x, y float32
}

func (p *panel) slider(label, format string, value, lo, hi float64) float64 {
	rl.DrawText(label, int32(p.x), int32(p.y), 14, rl.Gray)
	p.y += 18
	v := gui.SliderBar(
		rl.Rectangle{X: p.x, Y: p.y, Width: float32(panelWidth - 80), Height: 20},
		fmt.Sprint(lo), fmt.Sprint(hi),
		float32(value), float32(lo), float32(hi),
	)
	rl.DrawText(fmt.Sprintf(format, value), int32(p.x+float32(panelWidth-70)), int32(p.y+2), 16, rl.DarkGray)
	p.y += 35
	return float64(v)
}

func main() {
	configPath := flag.String("config", "", "Config YAML file (empty = use defaults)")
	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	params, err := universe.ParamsFromConfig(config.Cfg())
	if err != nil {
		log.Fatalf("invalid generation config: %v", err)
	}

	initial := previewState{
		size:       params.Volume,
		noise:      params.Noise,
		percentile: params.Percentile,
		slice:      params.Volume.NZ / 2,
	}
	initial.noise.Seed = params.Seed
	state := initial

	rl.InitWindow(windowWidth, windowHeight, "Density Field Preview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(30)

	img := rl.GenImageColor(state.size.NX, state.size.NY, rl.Black)
	texture := rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)
	defer rl.UnloadTexture(texture)

	var grid *density.Grid
	var selected map[int]bool
	var sampleErr error
	needsSample := true
	needsTexture := true

	for !rl.WindowShouldClose() {
		if needsSample {
			grid, selected, sampleErr = sample(state)
			needsSample = false
			needsTexture = true
		}
		if needsTexture && grid != nil {
			updateTexture(texture, grid, selected, state.slice)
			needsTexture = false
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.RayWhite)

		rl.DrawTexturePro(
			texture,
			rl.Rectangle{X: 0, Y: 0, Width: float32(state.size.NX), Height: float32(state.size.NY)},
			rl.Rectangle{X: 10, Y: 10, Width: previewSize, Height: previewSize},
			rl.Vector2{},
			0,
			rl.White,
		)
		rl.DrawRectangleLines(10, 10, previewSize, previewSize, rl.DarkGray)

		statsY := int32(previewSize + 25)
		if sampleErr != nil {
			rl.DrawText(sampleErr.Error(), 15, statsY, 16, rl.Red)
		} else if grid != nil {
			lo, hi, mean := sliceStats(grid, state.slice)
			rl.DrawText(fmt.Sprintf("Slice z=%d  Min: %.3f  Max: %.3f  Avg: %.3f", state.slice, lo, hi, mean), 15, statsY, 16, rl.DarkGray)
			rl.DrawText(fmt.Sprintf("Candidates: %d of %d cells (top %.1f%%)", len(selected), state.size.Cells(), state.percentile), 15, statsY+20, 16, rl.DarkGray)
		}

		p := panel{x: float32(previewSize + 20), y: 10}
		rl.DrawText("Density Parameters", int32(p.x), int32(p.y), 20, rl.DarkGray)
		p.y += 35

		prev := state
		state.noise.Octaves = int(p.slider("Octaves", "%.0f", float64(state.noise.Octaves), 1, 8) + 0.5)
		state.noise.Persistence = p.slider("Persistence (amplitude per octave)", "%.2f", state.noise.Persistence, 0.1, 0.9)
		state.noise.Lacunarity = p.slider("Lacunarity (frequency per octave)", "%.2f", state.noise.Lacunarity, 1.2, 4)
		state.noise.Frequency = p.slider("Frequency (cycles per cell)", "%.3f", state.noise.Frequency, 0.005, 0.3)
		state.noise.CenterFalloff = p.slider("Centre falloff (0 = off)", "%.2f", state.noise.CenterFalloff, 0, 1)
		state.noise.Seed = uint64(p.slider("Seed", "%.0f", float64(state.noise.Seed), 0, 99999))
		state.percentile = p.slider("Candidate percentile", "%.1f", state.percentile, 0.5, 50)
		if state != prev {
			needsSample = true
		}

		slice := int(p.slider("Z slice", "%.0f", float64(state.slice), 0, float64(state.size.NZ-1)) + 0.5)
		if slice != state.slice {
			state.slice = slice
			needsTexture = true
		}
		p.y += 10

		kindLabel := "Noise: Perlin"
		if state.noise.Kind == density.KindSimplex {
			kindLabel = "Noise: Simplex"
		}
		if gui.Button(rl.Rectangle{X: p.x, Y: p.y, Width: 120, Height: 30}, kindLabel) {
			if state.noise.Kind == density.KindSimplex {
				state.noise.Kind = density.KindPerlin
			} else {
				state.noise.Kind = density.KindSimplex
			}
			needsSample = true
		}
		if gui.Button(rl.Rectangle{X: p.x + 130, Y: p.y, Width: 120, Height: 30}, "Reset All") {
			state = initial
			needsSample = true
		}
		p.y += 50

		rl.DrawText("YAML Config:", int32(p.x), int32(p.y), 16, rl.DarkGray)
		p.y += 25
		yaml := yamlSnippet(state)
		for _, line := range yaml {
			rl.DrawText(line, int32(p.x), int32(p.y), 14, rl.Gray)
			p.y += 16
		}

		rl.DrawText("Press C to copy YAML to clipboard", int32(p.x), int32(windowHeight-30), 12, rl.LightGray)
		if rl.IsKeyPressed(rl.KeyC) {
			var text string
			for _, line := range yaml {
				text += line + "\n"
			}
			rl.SetClipboardText(text)
		}

		rl.EndDrawing()
	}
}

// sample regenerates the grid and the set of candidate cells.
func sample(s previewState) (*density.Grid, map[int]bool, error) {
	grid, err := density.Sample(s.size, s.noise)
	if err != nil {
		return nil, nil, err
	}
	cells, err := density.ThresholdFilter(grid, s.percentile)
	if err != nil {
		return grid, nil, err
	}
	selected := make(map[int]bool, len(cells))
	for _, c := range cells {
		selected[c] = true
	}
	return grid, selected, nil
}

func sliceStats(g *density.Grid, z int) (lo, hi, mean float64) {
	lo, hi = 1, 0
	for x := 0; x < g.Size.NX; x++ {
		for y := 0; y < g.Size.NY; y++ {
			v := g.At(x, y, z)
			lo = min(lo, v)
			hi = max(hi, v)
			mean += v
		}
	}
	return lo, hi, mean / float64(g.Size.NX*g.Size.NY)
}

func yamlSnippet(s previewState) []string {
	return []string{
		"generation:",
		fmt.Sprintf("  seed: %d", s.noise.Seed),
		fmt.Sprintf("  percentile: %.1f", s.percentile),
		"noise:",
		fmt.Sprintf("  kind: %s", s.noise.Kind),
		fmt.Sprintf("  octaves: %d", s.noise.Octaves),
		fmt.Sprintf("  persistence: %.2f", s.noise.Persistence),
		fmt.Sprintf("  lacunarity: %.2f", s.noise.Lacunarity),
		fmt.Sprintf("  frequency: %.3f", s.noise.Frequency),
		fmt.Sprintf("  center_falloff: %.2f", s.noise.CenterFalloff),
	}
}

// updateTexture paints slice z of the grid. Candidate cells are tinted orange.
func updateTexture(texture rl.Texture2D, g *density.Grid, selected map[int]bool, z int) {
	nx, ny := g.Size.NX, g.Size.NY
	pixels := make([]color.RGBA, nx*ny)
	for x := 0; x < nx; x++ {
		for y := 0; y < ny; y++ {
			idx := g.Index(x, y, z)
			v := float32(min(max(g.Values[idx], 0), 1))
			px := color.RGBA{R: uint8(10 + v*150), G: uint8(15 + v*170), B: uint8(40 + v*215), A: 255}
			if selected[idx] {
				px = color.RGBA{R: 255, G: uint8(120 + v*100), B: 30, A: 255}
			}
			pixels[y*nx+x] = px
		}
	}
	rl.UpdateTexture(texture, pixels)
}
