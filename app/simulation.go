package app

import (
	"errors"
	"log/slog"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/stellarforge/particles"
	"github.com/pthm-cable/stellarforge/simerr"
	"github.com/pthm-cable/stellarforge/telemetry"
)

// Step advances one tick and runs telemetry. A diverged simulation pauses
// the App; the error is kept until Reset, Regenerate or LoadScenario.
func (a *App) Step() error {
	a.perfCollector.StartTick()
	status, err := a.stepper.Step(a.dt)
	a.lastStatus = status
	if err != nil {
		a.perfCollector.EndTick()
		a.paused = true
		a.lastErr = err
		if errors.Is(err, simerr.ErrSimulationDiverged) {
			slog.Error("simulation diverged", "tick", status.Tick, "error", err)
		}
		return err
	}
	a.collector.RecordStep(status)
	a.timeline.observe(a.stepper.Tick(), a.stepper.Time(), a.stepper.Particles())

	a.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	a.flushTelemetry()
	a.perfCollector.EndTick()
	return nil
}

// UpdateHeadless runs one update's worth of steps unless paused.
func (a *App) UpdateHeadless() error {
	if a.paused {
		return a.lastErr
	}
	for i := 0; i < a.stepsPerUpdate; i++ {
		if err := a.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Reset restores the initial conditions of the current universe and clears
// the snapshot timeline.
func (a *App) Reset() error {
	if err := a.install(a.initial.Clone(), a.anchors, a.fallback); err != nil {
		return err
	}
	slog.Info("simulation reset", "particles", a.initial.Len())
	return nil
}

// Regenerate builds a new universe from seed, keeping other parameters.
func (a *App) Regenerate(seed uint64) error {
	prev := a.params.Seed
	a.params.Seed = seed
	if err := a.generate(); err != nil {
		a.params.Seed = prev
		return err
	}
	return nil
}

// AddParticle inserts a particle into the running simulation.
func (a *App) AddParticle(pos, vel r3.Vec, mass float64, t particles.Type) (int, error) {
	i, err := a.stepper.AddParticle(pos, vel, mass, t)
	if err != nil {
		return -1, err
	}
	a.collector.RecordAdd()
	return i, nil
}

// RemoveParticle deletes a particle from the running simulation.
func (a *App) RemoveParticle(index int) error {
	if err := a.stepper.RemoveParticle(index); err != nil {
		return err
	}
	a.collector.RecordRemove()
	return nil
}
