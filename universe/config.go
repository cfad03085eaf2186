package universe

import (
	"fmt"

	"github.com/pthm-cable/stellarforge/config"
	"github.com/pthm-cable/stellarforge/density"
	"github.com/pthm-cable/stellarforge/particles"
	"github.com/pthm-cable/stellarforge/placement"
	"github.com/pthm-cable/stellarforge/synth"
)

// ParamsFromConfig maps the loaded configuration onto generator inputs.
// Synthesis shares G with the stepper so spawned orbits match the physics.
func ParamsFromConfig(cfg *config.Config) (Params, error) {
	gen := cfg.Generation

	fallback, err := placement.ParseShape(gen.FallbackShape)
	if err != nil {
		return Params{}, fmt.Errorf("generation.fallback_shape: %w", err)
	}

	sc := cfg.Synthesis
	tw := sc.TypeWeights
	sw := cfg.Placement.ShapeWeights

	return Params{
		Seed:               gen.Seed,
		Volume:             density.Size{NX: gen.Volume.NX, NY: gen.Volume.NY, NZ: gen.Volume.NZ},
		NumGalaxies:        gen.NumGalaxies,
		ParticlesPerGalaxy: Range{Min: gen.ParticlesMin, Max: gen.ParticlesMax},
		WorldScale:         gen.WorldScale,
		Noise: density.Params{
			Kind:          density.Kind(cfg.Noise.Kind),
			Octaves:       cfg.Noise.Octaves,
			Persistence:   cfg.Noise.Persistence,
			Lacunarity:    cfg.Noise.Lacunarity,
			Frequency:     cfg.Noise.Frequency,
			CenterFalloff: cfg.Noise.CenterFalloff,
		},
		Percentile:     gen.Percentile,
		MinSeparation:  cfg.Derived.MinSeparation,
		RadiusMin:      cfg.Placement.RadiusMin,
		RadiusMax:      cfg.Placement.RadiusMax,
		ShapeWeights:   placement.ShapeWeights{sw.Spiral, sw.Elliptical, sw.Irregular},
		Order:          placement.Order(cfg.Placement.Order),
		MinDensity:     cfg.Placement.MinDensity,
		FallbackRadius: gen.FallbackRadius,
		FallbackShape:  fallback,
		Synthesis: synth.Params{
			G:                    cfg.Physics.G,
			SpiralArms:           sc.SpiralArms,
			PitchAngleDeg:        sc.PitchAngleDeg,
			ArmScatter:           sc.ArmScatter,
			BulgeFraction:        sc.BulgeFraction,
			BulgeRadius:          sc.BulgeRadius,
			CoreRadius:           sc.CoreRadius,
			DiskThickness:        sc.DiskThickness,
			EllipticalAxisRatio:  sc.EllipticalAxisRatio,
			EllipticalDispersion: sc.EllipticalDispersion,
			IrregularDispersion:  sc.IrregularDispersion,
			IrregularClumpsMin:   sc.IrregularClumpsMin,
			IrregularClumpsMax:   sc.IrregularClumpsMax,
			TypeWeights:          [particles.NumTypes]float64{tw.Star, tw.Planet, tw.BlackHole},
			LuminosityJitter:     sc.LuminosityJitter,
		},
	}, nil
}
