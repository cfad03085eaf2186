package camera

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestNew(t *testing.T) {
	cam := New(1280, 720, 100)

	if cam.Target != (r3.Vec{}) {
		t.Errorf("expected target at origin, got %v", cam.Target)
	}
	if cam.Distance < cam.MinDistance || cam.Distance > cam.MaxDistance {
		t.Errorf("distance %v outside [%v, %v]", cam.Distance, cam.MinDistance, cam.MaxDistance)
	}
	for _, corner := range []r3.Vec{{X: 100, Y: 100, Z: 100}, {X: -100, Y: -100, Z: -100}} {
		if _, _, ok := cam.WorldToScreen(corner); !ok {
			t.Errorf("world corner %v behind camera", corner)
		}
	}
}

func TestWorldToScreenCentered(t *testing.T) {
	cam := New(1280, 720, 100)

	sx, sy, ok := cam.WorldToScreen(cam.Target)
	if !ok || math.Abs(sx-640) > 1e-6 || math.Abs(sy-360) > 1e-6 {
		t.Errorf("expected screen center (640, 360), got (%f, %f, %v)", sx, sy, ok)
	}
}

func TestWorldToScreenOrientation(t *testing.T) {
	cam := New(1280, 720, 100)
	_, right, up := cam.Basis()

	sx, _, _ := cam.WorldToScreen(r3.Scale(10, right))
	if sx <= 640 {
		t.Errorf("point to the right projected at x=%f", sx)
	}
	_, sy, _ := cam.WorldToScreen(r3.Scale(10, up))
	if sy >= 360 {
		t.Errorf("point above projected at y=%f", sy)
	}

	behind := r3.Add(cam.Position(), r3.Sub(cam.Position(), cam.Target))
	if _, _, ok := cam.WorldToScreen(behind); ok {
		t.Error("point behind the eye should not project")
	}
}

func TestIsVisible(t *testing.T) {
	cam := New(1280, 720, 100)
	forward, right, _ := cam.Basis()

	tests := []struct {
		name   string
		p      r3.Vec
		radius float64
		want   bool
	}{
		{"target", cam.Target, 0, true},
		{"far off to the side", r3.Scale(1e5, right), 1, false},
		{"behind eye", r3.Sub(cam.Position(), r3.Scale(50, forward)), 1, false},
		{"large sphere straddling eye", cam.Position(), 5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cam.IsVisible(tt.p, tt.radius); got != tt.want {
				t.Errorf("IsVisible = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProjectedRadius(t *testing.T) {
	cam := New(1280, 720, 100)

	near := cam.ProjectedRadius(cam.Target, 1)
	if near <= 0 {
		t.Fatalf("expected positive radius at target, got %v", near)
	}
	cam.SetDistance(cam.Distance * 2)
	if far := cam.ProjectedRadius(cam.Target, 1); math.Abs(far-near/2) > 1e-9*near {
		t.Errorf("doubling distance should halve radius: %v -> %v", near, far)
	}
	if r := cam.ProjectedRadius(cam.Position(), 1); r != 0 {
		t.Errorf("expected 0 at the eye, got %v", r)
	}
}

func TestOrbitClampsPitch(t *testing.T) {
	cam := New(800, 600, 10)
	d := r3.Norm(r3.Sub(cam.Position(), cam.Target))

	cam.Orbit(0.5, 10)
	if cam.Pitch >= math.Pi/2 {
		t.Errorf("pitch %v reached the pole", cam.Pitch)
	}
	cam.Orbit(0, -20)
	if cam.Pitch <= -math.Pi/2 {
		t.Errorf("pitch %v reached the pole", cam.Pitch)
	}
	if got := r3.Norm(r3.Sub(cam.Position(), cam.Target)); math.Abs(got-d) > 1e-9 {
		t.Errorf("orbit changed distance %v -> %v", d, got)
	}
}

func TestZoomLimits(t *testing.T) {
	cam := New(800, 600, 10)

	cam.ZoomBy(1e9)
	if cam.Distance != cam.MinDistance {
		t.Errorf("expected distance clamped to %v, got %v", cam.MinDistance, cam.Distance)
	}
	cam.ZoomBy(1e-9)
	if cam.Distance != cam.MaxDistance {
		t.Errorf("expected distance clamped to %v, got %v", cam.MaxDistance, cam.Distance)
	}
	before := cam.Distance
	cam.ZoomBy(0)
	if cam.Distance != before {
		t.Error("non-positive zoom factor should be ignored")
	}
}

func TestPanFollowsCursor(t *testing.T) {
	cam := New(1280, 720, 100)
	p := r3.Vec{}
	sx0, sy0, _ := cam.WorldToScreen(p)

	cam.Pan(50, -20)

	sx1, sy1, _ := cam.WorldToScreen(p)
	if math.Abs((sx1-sx0)-50) > 1e-6 || math.Abs((sy1-sy0)+20) > 1e-6 {
		t.Errorf("expected point to move by (50, -20), moved by (%f, %f)", sx1-sx0, sy1-sy0)
	}
}

func TestFrameAndReset(t *testing.T) {
	cam := New(1280, 720, 100)
	center := r3.Vec{X: 30, Y: -5, Z: 12}
	cam.Frame(center, 8)

	_, right, up := cam.Basis()
	for _, edge := range []r3.Vec{r3.Add(center, r3.Scale(8, right)), r3.Add(center, r3.Scale(8, up))} {
		sx, sy, ok := cam.WorldToScreen(edge)
		if !ok || sx < 0 || sx > 1280 || sy < 0 || sy > 720 {
			t.Errorf("framed sphere edge %v off screen at (%f, %f)", edge, sx, sy)
		}
	}

	cam.Orbit(1, 0.3)
	cam.Pan(100, 100)
	cam.ZoomBy(3)
	cam.Reset()
	if cam.Target != center {
		t.Errorf("reset target %v, want %v", cam.Target, center)
	}
}
