package app

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/stellarforge/config"
	"github.com/pthm-cable/stellarforge/particles"
	"github.com/pthm-cable/stellarforge/scenario"
	"github.com/pthm-cable/stellarforge/simerr"
	"github.com/pthm-cable/stellarforge/telemetry"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load failed: %v", err)
	}
	cfg.Generation.Volume = config.VolumeConfig{NX: 8, NY: 8, NZ: 8}
	cfg.Generation.NumGalaxies = 2
	cfg.Generation.ParticlesMin = 20
	cfg.Generation.ParticlesMax = 30
	cfg.Physics.Workers = 1
	cfg.Telemetry.StatsWindow = 10 * cfg.Physics.DT
	cfg.Scenario.Dir = filepath.Join(t.TempDir(), "scenarios")
	cfg.Recompute()
	return cfg
}

func newApp(t *testing.T, cfg *config.Config, opts Options) *App {
	t.Helper()
	a, err := New(cfg, opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

func TestNewHeadless(t *testing.T) {
	out := t.TempDir()
	a := newApp(t, testConfig(t), Options{OutputDir: out})

	if a.Particles().Len() == 0 {
		t.Fatal("expected generated particles")
	}
	if a.Tick() != 0 {
		t.Errorf("expected tick 0, got %d", a.Tick())
	}
	if len(a.Anchors()) == 0 {
		t.Error("expected at least one galaxy anchor")
	}
	for _, name := range []string{"config.yaml", "galaxies.csv", "telemetry.csv"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}

func TestNewInvalidTimestep(t *testing.T) {
	cfg := testConfig(t)
	cfg.Physics.DT = 1
	if _, err := New(cfg, Options{}); !errors.Is(err, simerr.ErrInvalidTimestep) {
		t.Errorf("expected invalid timestep, got %v", err)
	}
}

func TestUpdateHeadless(t *testing.T) {
	a := newApp(t, testConfig(t), Options{StepsPerUpdate: 3})

	if err := a.UpdateHeadless(); err != nil {
		t.Fatalf("UpdateHeadless failed: %v", err)
	}
	if a.Tick() != 3 {
		t.Errorf("expected tick 3, got %d", a.Tick())
	}

	a.SetPaused(true)
	if err := a.UpdateHeadless(); err != nil {
		t.Fatalf("UpdateHeadless while paused failed: %v", err)
	}
	if a.Tick() != 3 {
		t.Errorf("paused update advanced to tick %d", a.Tick())
	}
	a.TogglePause()
	if a.Paused() {
		t.Error("TogglePause should resume")
	}
}

func TestStepsPerUpdateClamp(t *testing.T) {
	a := newApp(t, testConfig(t), Options{StepsPerUpdate: 50})
	if a.StepsPerUpdate() != MaxStepsPerUpdate {
		t.Errorf("expected %d, got %d", MaxStepsPerUpdate, a.StepsPerUpdate())
	}
	a.SetStepsPerUpdate(0)
	if a.StepsPerUpdate() != 1 {
		t.Errorf("expected 1, got %d", a.StepsPerUpdate())
	}
}

func TestStatsCallback(t *testing.T) {
	var windows []telemetry.WindowStats
	a := newApp(t, testConfig(t), Options{
		StatsCallback: func(s telemetry.WindowStats) { windows = append(windows, s) },
	})

	for i := 0; i < 25; i++ {
		if err := a.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	if len(windows) != 2 {
		t.Fatalf("expected 2 flushed windows, got %d", len(windows))
	}
	if windows[0].WindowEndTick != 10 || windows[1].WindowEndTick != 20 {
		t.Errorf("unexpected window ends %d, %d", windows[0].WindowEndTick, windows[1].WindowEndTick)
	}
	if windows[1].Steps != 10 || windows[1].Particles != a.Particles().Len() {
		t.Errorf("unexpected window contents %+v", windows[1])
	}
}

func TestResetAndRegenerate(t *testing.T) {
	cfg := testConfig(t)
	a := newApp(t, cfg, Options{})
	initial := a.Particles().Clone()

	for i := 0; i < 5; i++ {
		a.Step()
	}
	if a.Particles().Equal(initial) {
		t.Fatal("stepping did not change the set")
	}

	if err := a.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if a.Tick() != 0 || !a.Particles().Equal(initial) {
		t.Error("reset did not restore initial conditions")
	}

	if err := a.Regenerate(7); err != nil {
		t.Fatalf("Regenerate failed: %v", err)
	}
	if a.Params().Seed != 7 {
		t.Errorf("seed = %d, want 7", a.Params().Seed)
	}
	if a.Particles().Equal(initial) {
		t.Error("new seed produced the same universe")
	}

	if err := a.Regenerate(cfg.Generation.Seed); err != nil {
		t.Fatalf("Regenerate failed: %v", err)
	}
	if !a.Particles().Equal(initial) {
		t.Error("regenerating the original seed is not deterministic")
	}
}

func TestAddRemoveParticle(t *testing.T) {
	a := newApp(t, testConfig(t), Options{})
	n := a.Particles().Len()

	i, err := a.AddParticle(r3.Vec{X: 1}, r3.Vec{}, 1, particles.Star)
	if err != nil || i != n {
		t.Fatalf("AddParticle = %d, %v; want %d, nil", i, err, n)
	}
	if err := a.RemoveParticle(n + 5); !errors.Is(err, simerr.ErrIndexOutOfRange) {
		t.Errorf("expected index out of range, got %v", err)
	}
	if err := a.RemoveParticle(0); err != nil {
		t.Fatalf("RemoveParticle failed: %v", err)
	}
	if a.Particles().Len() != n {
		t.Errorf("expected %d particles, got %d", n, a.Particles().Len())
	}
}

func TestScenarioRoundTrip(t *testing.T) {
	a := newApp(t, testConfig(t), Options{})
	for i := 0; i < 7; i++ {
		a.Step()
	}
	saved := a.Particles().Clone()

	name, err := a.SaveScenario("checkpoint")
	if err != nil {
		t.Fatalf("SaveScenario failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		a.Step()
	}

	if err := a.LoadScenario(name); err != nil {
		t.Fatalf("LoadScenario failed: %v", err)
	}
	if a.Tick() != 7 {
		t.Errorf("expected tick 7 after load, got %d", a.Tick())
	}
	if !a.Particles().Equal(saved) {
		t.Error("loaded particles differ from saved state")
	}

	// Reset now returns to the loaded state.
	a.Step()
	if err := a.Reset(); err != nil {
		t.Fatal(err)
	}
	if !a.Particles().Equal(saved) {
		t.Error("reset after load should restore the loaded particles")
	}

	names, err := a.ListScenarios()
	if err != nil || !slices.Contains(names, name) {
		t.Errorf("ListScenarios = %v, %v", names, err)
	}
	if ok, err := a.DeleteScenario(name); !ok || err != nil {
		t.Errorf("DeleteScenario = %v, %v", ok, err)
	}
}

func TestNewFromScenario(t *testing.T) {
	cfg := testConfig(t)
	a := newApp(t, cfg, Options{})
	a.Step()
	if _, err := a.SaveScenario("start"); err != nil {
		t.Fatal(err)
	}

	b := newApp(t, cfg, Options{Scenario: "start"})
	if b.Tick() != 1 || !b.Particles().Equal(a.Particles()) {
		t.Error("App built from scenario does not match saved state")
	}

	if _, err := New(cfg, Options{Scenario: "missing"}); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestScenarioDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scenario.Dir = ""
	a := newApp(t, cfg, Options{})
	if _, err := a.SaveScenario("x"); !errors.Is(err, simerr.ErrInvalidParameter) {
		t.Errorf("expected invalid parameter, got %v", err)
	}
}

func TestScenarioCameraState(t *testing.T) {
	cfg := testConfig(t)
	a := newApp(t, cfg, Options{})
	if _, ok := a.CameraState(); ok {
		t.Error("fresh App should have no camera state")
	}

	want := scenario.CameraState{Target: [3]float64{2, 0, -1}, Yaw: 1.2, Pitch: 0.3, Distance: 80}
	a.SetCameraState(want)
	if _, err := a.SaveScenario("view"); err != nil {
		t.Fatal(err)
	}

	b := newApp(t, cfg, Options{Scenario: "view"})
	got, ok := b.CameraState()
	if !ok || got != want {
		t.Errorf("CameraState = %+v, %v; want %+v", got, ok, want)
	}
}

func TestLatestAndExportScenario(t *testing.T) {
	a := newApp(t, testConfig(t), Options{})
	if _, err := a.LatestScenario(); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}

	name, err := a.SaveScenario("")
	if err != nil {
		t.Fatal(err)
	}
	if latest, err := a.LatestScenario(); err != nil || latest != name {
		t.Errorf("LatestScenario = %q, %v; want %q", latest, err, name)
	}

	path := filepath.Join(t.TempDir(), "export.json")
	included, err := a.ExportScenario(name, path)
	if err != nil {
		t.Fatalf("ExportScenario failed: %v", err)
	}
	if !included {
		t.Error("small scenario should inline its particles")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("export file missing: %v", err)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
