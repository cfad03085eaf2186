package universe

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/stellarforge/config"
	"github.com/pthm-cable/stellarforge/density"
	"github.com/pthm-cable/stellarforge/placement"
	"github.com/pthm-cable/stellarforge/simerr"
)

func scenarioParams() Params {
	p := DefaultParams()
	p.Seed = 42
	p.Volume = density.Size{NX: 32, NY: 32, NZ: 32}
	p.NumGalaxies = 3
	p.ParticlesPerGalaxy = Range{Min: 100, Max: 100}
	p.WorldScale = 50
	p.MinSeparation = 5
	p.RadiusMin, p.RadiusMax = 2, 4
	return p
}

func TestGenerateScenario(t *testing.T) {
	p := scenarioParams()
	res, err := Generate(p)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if res.Fallback {
		t.Fatal("expected regular placement, got fallback")
	}
	if n := res.Set.Len(); n != 300 {
		t.Errorf("expected 300 particles, got %d", n)
	}
	if len(res.Anchors) != 3 {
		t.Fatalf("expected 3 anchors, got %d", len(res.Anchors))
	}
	if d := placement.MinPairDistance(res.Anchors); d < p.MinSeparation {
		t.Errorf("anchors %v apart, want >= %v", d, p.MinSeparation)
	}
	if err := res.Set.Check(); err != nil {
		t.Errorf("generated set invalid: %v", err)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	p := DefaultParams()
	a, err := Generate(p)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	b, err := Generate(p)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !a.Set.Equal(b.Set) {
		t.Error("identical params produced different particle sets")
	}

	p.Seed = 43
	c, _ := Generate(p)
	if a.Set.Equal(c.Set) {
		t.Error("different seeds produced identical sets")
	}
}

func TestGenerateFallback(t *testing.T) {
	t.Run("no dense cells", func(t *testing.T) {
		p := scenarioParams()
		p.MinDensity = 10
		res, err := Generate(p)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if !res.Fallback || len(res.Anchors) != 1 {
			t.Fatalf("expected single fallback anchor, got fallback=%v anchors=%d", res.Fallback, len(res.Anchors))
		}
		a := res.Anchors[0]
		if a.Center != (r3.Vec{}) || a.Radius != p.FallbackRadius || a.Shape != p.FallbackShape {
			t.Errorf("unexpected fallback anchor %+v", a)
		}
		if n := res.Set.Len(); n != p.NumGalaxies*p.ParticlesPerGalaxy.Max {
			t.Errorf("expected full budget %d, got %d", p.NumGalaxies*p.ParticlesPerGalaxy.Max, n)
		}
	})

	t.Run("single cell huge separation", func(t *testing.T) {
		p := DefaultParams()
		p.Volume = density.Size{NX: 1, NY: 1, NZ: 1}
		p.NumGalaxies = 5
		p.MinSeparation = 1e12
		res, err := Generate(p)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if res.Set.Len() == 0 {
			t.Error("expected non-empty set")
		}
		if len(res.Anchors) != 1 {
			t.Errorf("expected one anchor, got %d", len(res.Anchors))
		}
	})
}

func TestGenerateNeverEmpty(t *testing.T) {
	for _, galaxies := range []int{1, 3} {
		for seed := uint64(1); seed <= 50; seed++ {
			p := scenarioParams()
			p.Seed = seed
			p.NumGalaxies = galaxies
			p.ParticlesPerGalaxy = Range{Min: 0, Max: 1}
			res, err := Generate(p)
			if err != nil {
				t.Fatalf("seed %d: Generate failed: %v", seed, err)
			}
			if res.Set.Len() == 0 {
				t.Fatalf("seed %d, %d galaxies: empty set with a positive particle bound", seed, galaxies)
			}
			if res.Fallback && res.Set.Len() != galaxies {
				t.Errorf("seed %d: fallback carried %d particles, want %d", seed, res.Set.Len(), galaxies)
			}
		}
	}

	p := scenarioParams()
	p.ParticlesPerGalaxy = Range{Min: 0, Max: 0}
	res, err := Generate(p)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if res.Set.Len() != 0 || res.Fallback {
		t.Errorf("zero particle budget should stay empty, got %d (fallback=%v)", res.Set.Len(), res.Fallback)
	}
}

func TestGenerateZeroGalaxies(t *testing.T) {
	p := DefaultParams()
	p.NumGalaxies = 0
	res, err := Generate(p)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if res.Set.Len() != 0 || len(res.Anchors) != 0 {
		t.Errorf("expected empty result, got %d particles", res.Set.Len())
	}
}

func TestGenerateInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"zero volume", func(p *Params) { p.Volume.NZ = 0 }},
		{"zero octaves", func(p *Params) { p.Noise.Octaves = 0 }},
		{"zero world scale", func(p *Params) { p.WorldScale = 0 }},
		{"negative galaxies", func(p *Params) { p.NumGalaxies = -1 }},
		{"inverted range", func(p *Params) { p.ParticlesPerGalaxy = Range{Min: 10, Max: 5} }},
		{"bad percentile", func(p *Params) { p.Percentile = 0 }},
		{"bad fallback radius", func(p *Params) { p.FallbackRadius = -1 }},
		{"bad synthesis", func(p *Params) { p.Synthesis.SpiralArms = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			res, err := Generate(p)
			if !errors.Is(err, simerr.ErrInvalidParameter) {
				t.Errorf("expected invalid parameter, got %v", err)
			}
			if res != nil {
				t.Error("expected no partial result")
			}
		})
	}
}

func TestParamsFromConfig(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load failed: %v", err)
	}
	p, err := ParamsFromConfig(cfg)
	if err != nil {
		t.Fatalf("ParamsFromConfig failed: %v", err)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("default config produced invalid params: %v", err)
	}
	if p.Synthesis.G != cfg.Physics.G {
		t.Errorf("synthesis G %v does not match physics G %v", p.Synthesis.G, cfg.Physics.G)
	}

	def := DefaultParams()
	if p.MinDensity != def.MinDensity || p.MinSeparation != def.MinSeparation ||
		p.RadiusMin != def.RadiusMin || p.RadiusMax != def.RadiusMax ||
		p.ShapeWeights != def.ShapeWeights || p.Order != def.Order ||
		p.Percentile != def.Percentile || p.Noise != def.Noise {
		t.Errorf("DefaultParams drifted from config defaults:\n got %+v\nwant %+v", def, p)
	}

	cfg.Generation.FallbackShape = "lenticular"
	if _, err := ParamsFromConfig(cfg); !errors.Is(err, simerr.ErrInvalidParameter) {
		t.Errorf("expected invalid parameter for unknown shape, got %v", err)
	}
}
