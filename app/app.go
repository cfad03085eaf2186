// Package app wires generation, stepping, telemetry and persistence into one
// driver. It has no graphics dependencies; the viewer package drives an App
// from a raylib window.
package app

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/stellarforge/config"
	"github.com/pthm-cable/stellarforge/particles"
	"github.com/pthm-cable/stellarforge/placement"
	"github.com/pthm-cable/stellarforge/scenario"
	"github.com/pthm-cable/stellarforge/sim"
	"github.com/pthm-cable/stellarforge/simerr"
	"github.com/pthm-cable/stellarforge/telemetry"
	"github.com/pthm-cable/stellarforge/universe"
)

// MaxStepsPerUpdate caps the speed multiplier.
const MaxStepsPerUpdate = 10

// Options configures an App beyond what config.Config carries.
type Options struct {
	Seed           uint64  // 0 keeps generation.seed from config
	LogStats       bool    // log window and perf stats via slog
	StatsWindowSec float64 // 0 uses telemetry.stats_window
	OutputDir      string  // empty disables CSV output
	ScenarioDir    string  // empty uses scenario.dir
	StepsPerUpdate int     // 0 uses physics.steps_per_frame
	Scenario       string  // load this saved scenario instead of generating

	// SnapshotInterval overrides scenario.snapshot_interval when non-zero;
	// negative disables the timeline.
	SnapshotInterval float64

	// StatsCallback, if set, receives every flushed window.
	StatsCallback func(telemetry.WindowStats)
}

// App owns the simulation and its collaborators.
type App struct {
	cfg    *config.Config
	params universe.Params
	dt     float64

	stepper  *sim.Stepper
	initial  *particles.Set
	anchors  []placement.Anchor
	fallback bool

	paused         bool
	stepsPerUpdate int
	lastStatus     sim.Status
	lastErr        error

	// Telemetry
	collector        *telemetry.Collector
	perfCollector    *telemetry.PerfCollector
	bookmarkDetector *telemetry.BookmarkDetector
	outputManager    *telemetry.OutputManager
	logStats         bool
	statsCallback    func(telemetry.WindowStats)

	scenarios *scenario.Manager
	timeline  timeline
	camera    *scenario.CameraState
}

// SimConfig maps the physics section onto the stepper configuration.
func SimConfig(cfg *config.Config) sim.Config {
	p := cfg.Physics
	return sim.Config{
		MaxDT:             p.MaxDT,
		GravityEnabled:    p.Gravity,
		CollisionsEnabled: p.Collisions,
		Softening:         p.Softening,
		MaxSpeed:          p.MaxSpeed,
		G:                 p.G,
		PairwiseThreshold: p.PairwiseThreshold,
		WorldBound:        cfg.Derived.WorldBound,
		ParallelThreshold: p.ParallelThreshold,
		Workers:           cfg.Derived.Workers,
	}
}

// New builds an App from cfg: it generates (or loads) the initial particle
// set and prepares telemetry output.
func New(cfg *config.Config, opts Options) (*App, error) {
	params, err := universe.ParamsFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("generation params: %w", err)
	}
	if opts.Seed != 0 {
		params.Seed = opts.Seed
	}

	dt := cfg.Physics.DT
	if !(dt > 0) || dt > cfg.Physics.MaxDT {
		return nil, simerr.InvalidTimestep(dt, cfg.Physics.MaxDT)
	}

	statsWindow := cfg.Telemetry.StatsWindow
	if opts.StatsWindowSec > 0 {
		statsWindow = opts.StatsWindowSec
	}
	steps := opts.StepsPerUpdate
	if steps <= 0 {
		steps = cfg.Physics.StepsPerFrame
	}

	a := &App{
		cfg:              cfg,
		params:           params,
		dt:               dt,
		stepsPerUpdate:   clampSteps(steps),
		collector:        telemetry.NewCollector(statsWindow, dt),
		perfCollector:    telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		bookmarkDetector: telemetry.NewBookmarkDetector(10),
		logStats:         opts.LogStats,
		statsCallback:    opts.StatsCallback,
		timeline: timeline{
			interval: cfg.Scenario.SnapshotInterval,
			max:      cfg.Scenario.MaxSnapshots,
		},
	}
	if opts.SnapshotInterval != 0 {
		a.timeline.interval = opts.SnapshotInterval
	}

	scenarioDir := opts.ScenarioDir
	if scenarioDir == "" {
		scenarioDir = cfg.Scenario.Dir
	}
	if scenarioDir != "" {
		a.scenarios, err = scenario.NewManager(scenarioDir)
		if err != nil {
			return nil, err
		}
	}

	a.stepper, err = sim.New(SimConfig(cfg), particles.New(0))
	if err != nil {
		return nil, fmt.Errorf("stepper: %w", err)
	}
	a.stepper.SetTimer(a.perfCollector)

	a.outputManager, err = telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		a.stepper.Close()
		return nil, err
	}
	if err := a.outputManager.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config", "error", err)
	}

	if opts.Scenario != "" {
		err = a.LoadScenario(opts.Scenario)
	} else {
		err = a.generate()
	}
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// generate runs the universe generator with a.params and installs the result.
func (a *App) generate() error {
	res, err := universe.Generate(a.params)
	if err != nil {
		return fmt.Errorf("generate universe: %w", err)
	}
	if err := a.install(res.Set, res.Anchors, res.Fallback); err != nil {
		return err
	}

	slog.Info("universe generated",
		"seed", a.params.Seed,
		"galaxies", len(res.Anchors),
		"particles", res.Set.Len(),
		"fallback", res.Fallback,
	)
	if err := a.outputManager.WriteGalaxies(res.Anchors, res.Fallback); err != nil {
		slog.Error("failed to write galaxies", "error", err)
	}
	return nil
}

// install makes set the new initial state and hands a copy to the stepper.
func (a *App) install(set *particles.Set, anchors []placement.Anchor, fallback bool) error {
	if err := a.stepper.Reset(set.Clone()); err != nil {
		return err
	}
	a.initial = set
	a.anchors = anchors
	a.fallback = fallback
	a.lastErr = nil
	a.lastStatus = sim.Status{}
	a.timeline.clear(0)
	a.resetTelemetry()
	return nil
}

func clampSteps(n int) int {
	return min(max(n, 1), MaxStepsPerUpdate)
}

// Config returns the configuration the App was built from.
func (a *App) Config() *config.Config { return a.cfg }

// Params returns the current generation parameters.
func (a *App) Params() universe.Params { return a.params }

// Stepper exposes the simulation for read-only use between updates.
func (a *App) Stepper() *sim.Stepper { return a.stepper }

// Particles returns the live particle set.
func (a *App) Particles() *particles.Set { return a.stepper.Particles() }

// Anchors returns the galaxy anchors of the current universe. Loaded
// scenarios have none.
func (a *App) Anchors() []placement.Anchor { return a.anchors }

// Fallback reports whether the current universe used the fallback anchor.
func (a *App) Fallback() bool { return a.fallback }

// Tick returns the stepper tick.
func (a *App) Tick() int64 { return a.stepper.Tick() }

// DT returns the fixed timestep.
func (a *App) DT() float64 { return a.dt }

// LastStatus returns the status of the most recent step.
func (a *App) LastStatus() sim.Status { return a.lastStatus }

// Err returns the error that stopped the simulation, if any.
func (a *App) Err() error { return a.lastErr }

// Paused reports whether updates are suspended.
func (a *App) Paused() bool { return a.paused }

// SetPaused suspends or resumes updates.
func (a *App) SetPaused(p bool) { a.paused = p }

// TogglePause flips the pause state.
func (a *App) TogglePause() { a.paused = !a.paused }

// StepsPerUpdate returns the speed multiplier.
func (a *App) StepsPerUpdate() int { return a.stepsPerUpdate }

// SetStepsPerUpdate sets the speed multiplier, clamped to [1, MaxStepsPerUpdate].
func (a *App) SetStepsPerUpdate(n int) { a.stepsPerUpdate = clampSteps(n) }

// PerfStats returns the rolling performance statistics.
func (a *App) PerfStats() telemetry.PerfStats { return a.perfCollector.Stats() }

// RecordFrame records frame timing for graphics mode.
func (a *App) RecordFrame() { a.perfCollector.RecordFrame() }

// Close flushes output and stops worker goroutines.
func (a *App) Close() {
	a.stepper.Close()
	if err := a.outputManager.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
	}
}
