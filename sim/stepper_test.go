package sim

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/stellarforge/particles"
	"github.com/pthm-cable/stellarforge/simerr"
)

func newStepper(t *testing.T, cfg Config, set *particles.Set) *Stepper {
	t.Helper()
	s, err := New(cfg, set)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func randomSet(t *testing.T, n int, seed uint64) *particles.Set {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed))
	set := particles.New(n)
	for i := 0; i < n; i++ {
		pos := r3.Vec{X: rng.Float64()*40 - 20, Y: rng.Float64()*40 - 20, Z: rng.Float64()*10 - 5}
		vel := r3.Vec{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()}
		typ := particles.Type(rng.IntN(int(particles.NumTypes)))
		if _, err := set.Add(pos, vel, typ.Info().MassMin, typ); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	return set
}

func assertFinite(t *testing.T, set *particles.Set) {
	t.Helper()
	for i, v := range set.Positions {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("position component %d is %v", i, v)
		}
	}
	for i, v := range set.Velocities {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("velocity component %d is %v", i, v)
		}
	}
}

func TestStepRejectsBadTimestep(t *testing.T) {
	s := newStepper(t, DefaultConfig(), randomSet(t, 4, 1))
	before := s.Particles().Clone()

	for _, dt := range []float64{0, -1, math.NaN(), math.Inf(1), DefaultConfig().MaxDT * 2} {
		_, err := s.Step(dt)
		if !errors.Is(err, simerr.ErrInvalidTimestep) {
			t.Errorf("Step(%v): expected invalid timestep, got %v", dt, err)
		}
	}
	if !s.Particles().Equal(before) {
		t.Error("rejected steps mutated the set")
	}
	if s.Tick() != 0 || s.State() != StateReady {
		t.Errorf("expected tick 0 and READY, got %d %s", s.Tick(), s.State())
	}
}

func TestBlackHoleAttractsStar(t *testing.T) {
	set := particles.New(2)
	set.Add(r3.Vec{}, r3.Vec{}, 1e6, particles.BlackHole)
	star, _ := set.Add(r3.Vec{X: 10}, r3.Vec{}, 1, particles.Star)

	s := newStepper(t, DefaultConfig(), set)
	before := r3.Norm(set.Vel(star))

	status, err := s.Step(0.016)
	if err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	if status.Model != ForcePairwise {
		t.Errorf("expected pairwise model for 2 particles, got %s", status.Model)
	}

	v := set.Vel(star)
	if r3.Norm(v) <= before {
		t.Errorf("expected star speed to increase, got %v", r3.Norm(v))
	}
	if v.X >= 0 {
		t.Errorf("expected star to accelerate toward the black hole, vel %v", v)
	}
	if set.Pos(star).X >= 10 {
		t.Errorf("expected star to move toward the black hole, pos %v", set.Pos(star))
	}
}

func TestCentroidModelPullsInward(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PairwiseThreshold = 2
	cfg.MaxSpeed = 0

	set := particles.New(4)
	for _, p := range []r3.Vec{{X: 10}, {X: -10}, {Y: 10}, {Y: -10}} {
		set.Add(p, r3.Vec{}, 100, particles.Star)
	}
	s := newStepper(t, cfg, set)

	status, err := s.Step(0.05)
	if err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	if status.Model != ForceCentroid {
		t.Fatalf("expected centroid model, got %s", status.Model)
	}
	for i := 0; i < set.Len(); i++ {
		if d := r3.Norm(set.Pos(i)); d >= 10 {
			t.Errorf("particle %d did not move inward: distance %v", i, d)
		}
	}
}

func TestGravityDisabledIsInertial(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GravityEnabled = false
	set := randomSet(t, 8, 2)
	s := newStepper(t, cfg, set)
	before := set.Clone()

	if _, err := s.Step(0.1); err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	for i := 0; i < set.Len(); i++ {
		want := r3.Add(before.Pos(i), r3.Scale(0.1, before.Vel(i)))
		if r3.Norm(r3.Sub(set.Pos(i), want)) > 1e-12 {
			t.Errorf("particle %d at %v, want %v", i, set.Pos(i), want)
		}
		if set.Vel(i) != before.Vel(i) {
			t.Errorf("particle %d velocity changed without gravity", i)
		}
	}
}

func TestStepKeepsStateFinite(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Softening = 0
	set := randomSet(t, 200, 3)
	// Coincident pair exercises the zero-distance guard
	set.Add(r3.Vec{X: 1}, r3.Vec{}, 1, particles.Star)
	set.Add(r3.Vec{X: 1}, r3.Vec{}, 1, particles.Star)
	s := newStepper(t, cfg, set)

	for i := 0; i < 50; i++ {
		if _, err := s.Step(0.016); err != nil {
			t.Fatalf("step %d failed: %v", i, err)
		}
		assertFinite(t, set)
	}
	if s.Tick() != 50 {
		t.Errorf("expected 50 ticks, got %d", s.Tick())
	}
}

func TestStepRepairsNonFiniteParticle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WorldBound = 5
	set := randomSet(t, 3, 4)
	set.SetPos(1, r3.Vec{X: 8, Y: -9, Z: 1})
	s := newStepper(t, cfg, set)

	set.Velocities[3] = math.NaN()
	status, err := s.Step(0.016)
	if err != nil {
		t.Fatalf("expected repair, got %v", err)
	}
	if status.Corrected != 1 {
		t.Errorf("expected 1 corrected particle, got %d", status.Corrected)
	}
	assertFinite(t, set)
	if got := set.Pos(1); got != (r3.Vec{X: 5, Y: -5, Z: 1}) {
		t.Errorf("expected clamped previous position, got %v", got)
	}
	if got := set.Vel(1); got != (r3.Vec{}) {
		t.Errorf("expected zero velocity, got %v", got)
	}
}

func TestStepFaultsWithoutGoodState(t *testing.T) {
	set := randomSet(t, 3, 5)
	s := newStepper(t, DefaultConfig(), set)

	set.Positions[0] = math.Inf(1)
	before := set.Clone()

	_, err := s.Step(0.016)
	if !errors.Is(err, simerr.ErrSimulationDiverged) {
		t.Fatalf("expected diverged error, got %v", err)
	}
	if s.State() != StateFaulted {
		t.Errorf("expected FAULTED, got %s", s.State())
	}
	if !set.Equal(before) {
		t.Error("faulted step mutated state")
	}

	if _, err := s.Step(0.016); !errors.Is(err, simerr.ErrSimulationDiverged) {
		t.Errorf("expected FAULTED to persist, got %v", err)
	}

	if err := s.Reset(randomSet(t, 3, 6)); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if s.State() != StateReady || s.Tick() != 0 {
		t.Errorf("expected READY at tick 0 after reset, got %s %d", s.State(), s.Tick())
	}
	if _, err := s.Step(0.016); err != nil {
		t.Errorf("step after reset failed: %v", err)
	}
}

func TestSpeedClamp(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GravityEnabled = false
	cfg.MaxSpeed = 2

	set := particles.New(2)
	set.Add(r3.Vec{}, r3.Vec{X: 30, Y: 40}, 1, particles.Star)
	set.Add(r3.Vec{X: 5}, r3.Vec{X: 1}, 1, particles.Star)
	s := newStepper(t, cfg, set)

	status, err := s.Step(0.1)
	if err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	if status.Clamped != 1 {
		t.Errorf("expected 1 clamped particle, got %d", status.Clamped)
	}
	v := set.Vel(0)
	if math.Abs(r3.Norm(v)-2) > 1e-12 {
		t.Errorf("expected speed 2, got %v", r3.Norm(v))
	}
	if math.Abs(v.X/v.Y-0.75) > 1e-12 {
		t.Errorf("clamp changed direction: %v", v)
	}
	if set.Vel(1).X != 1 {
		t.Errorf("slow particle was altered: %v", set.Vel(1))
	}
}

func TestAddRemoveThroughStepper(t *testing.T) {
	s := newStepper(t, DefaultConfig(), randomSet(t, 5, 7))
	before := s.Particles().Clone()

	idx, err := s.AddParticle(r3.Vec{}, r3.Vec{}, 1, particles.Star)
	if err != nil {
		t.Fatalf("AddParticle failed: %v", err)
	}
	if err := s.RemoveParticle(idx); err != nil {
		t.Fatalf("RemoveParticle failed: %v", err)
	}
	if !s.Particles().Equal(before) {
		t.Error("add+remove did not restore the set")
	}

	if err := s.RemoveParticle(99); !errors.Is(err, simerr.ErrIndexOutOfRange) {
		t.Errorf("expected index error, got %v", err)
	}
	if _, err := s.AddParticle(r3.Vec{X: math.NaN()}, r3.Vec{}, 1, particles.Star); !errors.Is(err, simerr.ErrInvalidParameter) {
		t.Errorf("expected invalid parameter, got %v", err)
	}
}

func TestParallelMatchesSerial(t *testing.T) {
	for _, pairwise := range []int{0, 1000} {
		serialCfg := DefaultConfig()
		serialCfg.PairwiseThreshold = pairwise
		parallelCfg := serialCfg
		parallelCfg.Workers = 4
		parallelCfg.ParallelThreshold = 16

		serial := newStepper(t, serialCfg, randomSet(t, 300, 8))
		parallel := newStepper(t, parallelCfg, randomSet(t, 300, 8))

		for i := 0; i < 5; i++ {
			if _, err := serial.Step(0.016); err != nil {
				t.Fatalf("serial step failed: %v", err)
			}
			if _, err := parallel.Step(0.016); err != nil {
				t.Fatalf("parallel step failed: %v", err)
			}
		}
		if !serial.Particles().Equal(parallel.Particles()) {
			t.Errorf("pairwise threshold %d: parallel sweep diverged from serial", pairwise)
		}
	}
}

func TestEmptySetSteps(t *testing.T) {
	s := newStepper(t, DefaultConfig(), nil)
	status, err := s.Step(0.01)
	if err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	if status.Tick != 1 || status.Model != ForceNone {
		t.Errorf("unexpected status %+v", status)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero max dt", func(c *Config) { c.MaxDT = 0 }},
		{"negative softening", func(c *Config) { c.Softening = -1 }},
		{"nan max speed", func(c *Config) { c.MaxSpeed = math.NaN() }},
		{"negative G", func(c *Config) { c.G = -1 }},
		{"negative pairwise threshold", func(c *Config) { c.PairwiseThreshold = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if _, err := New(cfg, nil); !errors.Is(err, simerr.ErrInvalidParameter) {
				t.Errorf("expected invalid parameter, got %v", err)
			}
		})
	}
}
