package placement

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/stellarforge/simerr"
)

func baseParams() Params {
	return Params{
		Count:         3,
		MinSeparation: 5,
		RadiusMin:     2,
		RadiusMax:     4,
		Weights:       UniformWeights(),
		Order:         OrderDensity,
		ParticlesMin:  10,
		ParticlesMax:  20,
	}
}

func lineCandidates(n int, spacing float64) []Candidate {
	cands := make([]Candidate, n)
	for i := range cands {
		cands[i] = Candidate{
			Center:  r3.Vec{X: float64(i) * spacing},
			Density: 1 - float64(i)*0.01,
		}
	}
	return cands
}

func TestPlaceSeparationInvariant(t *testing.T) {
	cands := lineCandidates(50, 1)
	for _, order := range []Order{OrderDensity, OrderRandom} {
		t.Run(string(order), func(t *testing.T) {
			p := baseParams()
			p.Count = 6
			p.Order = order
			anchors, err := Place(cands, p, rand.New(rand.NewPCG(1, 2)))
			if err != nil {
				t.Fatalf("Place failed: %v", err)
			}
			if len(anchors) != 6 {
				t.Fatalf("expected 6 anchors, got %d", len(anchors))
			}
			if d := MinPairDistance(anchors); d < p.MinSeparation {
				t.Errorf("anchors %v apart, want >= %v", d, p.MinSeparation)
			}
		})
	}
}

func TestPlaceGreedyDensityOrder(t *testing.T) {
	cands := lineCandidates(12, 1)
	anchors, err := Place(cands, baseParams(), rand.New(rand.NewPCG(1, 2)))
	if err != nil {
		t.Fatalf("Place failed: %v", err)
	}
	wantX := []float64{0, 5, 10}
	for i, a := range anchors {
		if a.Center.X != wantX[i] {
			t.Errorf("anchor %d at X=%v, want %v", i, a.Center.X, wantX[i])
		}
	}
}

func TestPlacePartialResult(t *testing.T) {
	// All candidates within one separation radius: only the first can be accepted
	cands := lineCandidates(10, 0.1)
	p := baseParams()
	p.Count = 5
	anchors, err := Place(cands, p, rand.New(rand.NewPCG(3, 4)))
	if err != nil {
		t.Fatalf("expected partial result without error, got %v", err)
	}
	if len(anchors) != 1 {
		t.Errorf("expected 1 anchor, got %d", len(anchors))
	}
}

func TestPlaceMinDensitySkips(t *testing.T) {
	cands := lineCandidates(20, 10)
	p := baseParams()
	p.MinDensity = 2
	anchors, err := Place(cands, p, rand.New(rand.NewPCG(5, 6)))
	if err != nil {
		t.Fatalf("Place failed: %v", err)
	}
	if len(anchors) != 0 {
		t.Errorf("expected no anchors above min density, got %d", len(anchors))
	}
}

func TestPlaceDeterministic(t *testing.T) {
	cands := lineCandidates(40, 2)
	p := baseParams()
	p.Order = OrderRandom
	p.Count = 4

	a, _ := Place(cands, p, rand.New(rand.NewPCG(9, 9)))
	b, _ := Place(cands, p, rand.New(rand.NewPCG(9, 9)))
	if len(a) != len(b) {
		t.Fatalf("length mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("anchor %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestPlaceAnchorAttributes(t *testing.T) {
	cands := lineCandidates(100, 6)
	p := baseParams()
	p.Count = 50
	anchors, err := Place(cands, p, rand.New(rand.NewPCG(11, 12)))
	if err != nil {
		t.Fatalf("Place failed: %v", err)
	}

	for i, a := range anchors {
		if a.Radius < p.RadiusMin*0.5 || a.Radius > p.RadiusMax {
			t.Errorf("anchor %d radius %v outside [%v, %v]", i, a.Radius, p.RadiusMin*0.5, p.RadiusMax)
		}
		if a.ParticleCount < p.ParticlesMin || a.ParticleCount > p.ParticlesMax {
			t.Errorf("anchor %d particle count %d outside range", i, a.ParticleCount)
		}
		if n := quat.Abs(a.Rotation); math.Abs(n-1) > 1e-9 {
			t.Errorf("anchor %d rotation not unit: |q|=%v", i, n)
		}
		if a.Shape >= NumShapes {
			t.Errorf("anchor %d has invalid shape %d", i, a.Shape)
		}
	}

	counts := ShapeCounts(anchors)
	for s, c := range counts {
		if c == 0 {
			t.Errorf("expected some %s anchors across 50 uniform draws", Shape(s))
		}
	}
}

func TestPlaceWeightedShapes(t *testing.T) {
	cands := lineCandidates(30, 6)
	p := baseParams()
	p.Count = 30
	p.Weights = ShapeWeights{0, 1, 0}
	anchors, err := Place(cands, p, rand.New(rand.NewPCG(13, 14)))
	if err != nil {
		t.Fatalf("Place failed: %v", err)
	}
	for i, a := range anchors {
		if a.Shape != Elliptical {
			t.Errorf("anchor %d: expected elliptical, got %s", i, a.Shape)
		}
	}
}

func TestPlaceInvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"negative count", func(p *Params) { p.Count = -1 }},
		{"negative separation", func(p *Params) { p.MinSeparation = -1 }},
		{"nan separation", func(p *Params) { p.MinSeparation = math.NaN() }},
		{"zero radius", func(p *Params) { p.RadiusMin = 0 }},
		{"inverted radius", func(p *Params) { p.RadiusMax = 1 }},
		{"zero weights", func(p *Params) { p.Weights = ShapeWeights{} }},
		{"negative weight", func(p *Params) { p.Weights[1] = -1 }},
		{"bad order", func(p *Params) { p.Order = "sideways" }},
		{"inverted particles", func(p *Params) { p.ParticlesMax = 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := baseParams()
			tt.mutate(&p)
			_, err := Place(lineCandidates(5, 10), p, rand.New(rand.NewPCG(1, 1)))
			if !errors.Is(err, simerr.ErrInvalidParameter) {
				t.Errorf("expected invalid parameter error, got %v", err)
			}
		})
	}
}

func TestParseShape(t *testing.T) {
	for s := Shape(0); s < NumShapes; s++ {
		got, err := ParseShape(s.String())
		if err != nil || got != s {
			t.Errorf("ParseShape(%q) = %v, %v", s.String(), got, err)
		}
	}
	if _, err := ParseShape("lenticular"); err == nil {
		t.Error("expected error for unknown shape")
	}
}
