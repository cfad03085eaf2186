package telemetry

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/stellarforge/particles"
	"github.com/pthm-cable/stellarforge/sim"
)

func TestComputeDistribution(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		if d := ComputeDistribution(nil); d != (Distribution{}) {
			t.Errorf("expected zero distribution, got %+v", d)
		}
	})

	t.Run("single", func(t *testing.T) {
		d := ComputeDistribution([]float64{3})
		if d.Mean != 3 || d.Std != 0 || d.P50 != 3 || d.Max != 3 {
			t.Errorf("unexpected distribution %+v", d)
		}
	})

	t.Run("unsorted input", func(t *testing.T) {
		values := []float64{10, 1, 9, 2, 8, 3, 7, 4, 6, 5}
		d := ComputeDistribution(values)
		if math.Abs(d.Mean-5.5) > 1e-12 {
			t.Errorf("mean = %v, want 5.5", d.Mean)
		}
		if d.Max != 10 {
			t.Errorf("max = %v, want 10", d.Max)
		}
		if d.P50 < 5 || d.P50 > 6 {
			t.Errorf("p50 = %v, want within [5, 6]", d.P50)
		}
		if !(d.P10 <= d.P50 && d.P50 <= d.P90 && d.P90 <= d.Max) {
			t.Errorf("percentiles out of order: %+v", d)
		}
		if values[0] != 10 {
			t.Error("input slice was reordered")
		}
	})
}

func TestMeasureSet(t *testing.T) {
	set := particles.New(2)
	set.Add(r3.Vec{X: -1}, r3.Vec{Y: 1}, 1, particles.Star)
	set.Add(r3.Vec{X: 1}, r3.Vec{Y: -1}, 1, particles.Star)

	var s WindowStats
	s.measureSet(set)

	if s.Particles != 2 || s.Stars != 2 || s.Planets != 0 {
		t.Errorf("unexpected population %+v", s)
	}
	if s.ComX != 0 || s.ComY != 0 || s.ComZ != 0 {
		t.Errorf("centre of mass = (%v,%v,%v), want origin", s.ComX, s.ComY, s.ComZ)
	}
	if math.Abs(s.KineticEnergy-1) > 1e-12 {
		t.Errorf("kinetic energy = %v, want 1", s.KineticEnergy)
	}
	if s.SpeedMax != 1 || s.RadiusP50 != 1 {
		t.Errorf("speed max %v radius p50 %v, want 1 and 1", s.SpeedMax, s.RadiusP50)
	}
}

func TestCollectorWindow(t *testing.T) {
	c := NewCollector(1, 0.1)
	if c.WindowDurationTicks() != 10 {
		t.Fatalf("window = %d ticks, want 10", c.WindowDurationTicks())
	}

	set := particles.New(1)
	set.Add(r3.Vec{}, r3.Vec{}, 1, particles.Planet)

	for tick := int64(1); tick <= 10; tick++ {
		c.RecordStep(sim.Status{Tick: tick, Model: sim.ForcePairwise, Clamped: 1})
		if tick < 10 && c.ShouldFlush(tick) {
			t.Fatalf("flush requested early at tick %d", tick)
		}
	}
	c.RecordAdd()
	c.RecordRemove()
	if !c.ShouldFlush(10) {
		t.Fatal("expected flush at tick 10")
	}

	s := c.Flush(10, 1.0, set)
	if s.WindowStartTick != 0 || s.WindowEndTick != 10 {
		t.Errorf("window [%d, %d], want [0, 10]", s.WindowStartTick, s.WindowEndTick)
	}
	if s.Steps != 10 || s.Clamped != 10 || s.Added != 1 || s.Removed != 1 {
		t.Errorf("unexpected counters %+v", s)
	}
	if s.ForceModel != sim.ForcePairwise.String() || s.Planets != 1 {
		t.Errorf("unexpected model %q or population %d", s.ForceModel, s.Planets)
	}

	next := c.Flush(20, 2.0, set)
	if next.Steps != 0 || next.Clamped != 0 || next.WindowStartTick != 10 {
		t.Errorf("counters not reset after flush: %+v", next)
	}
}

func TestCollectorReset(t *testing.T) {
	c := NewCollector(1, 0.1)
	c.RecordStep(sim.Status{Corrected: 3})
	c.Reset(100)
	if c.ShouldFlush(105) {
		t.Error("window should restart at reset tick")
	}
	s := c.Flush(110, 11, particles.New(0))
	if s.Corrected != 0 || s.WindowStartTick != 100 {
		t.Errorf("reset did not clear window: %+v", s)
	}
}
