package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"github.com/pthm-cable/stellarforge/app"
	"github.com/pthm-cable/stellarforge/config"
	"github.com/pthm-cable/stellarforge/scenario"
	"github.com/pthm-cable/stellarforge/viewer"
)

func main() {
	// Optional .env supplies defaults for the flags below
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env", "error", err)
	}

	// CLI flags
	configPath := flag.String("config", os.Getenv("STELLAR_CONFIG"), "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	outputDir := flag.String("output-dir", os.Getenv("STELLAR_OUTPUT_DIR"), "Output directory for CSV logs and config snapshot")
	scenarioDir := flag.String("scenario-dir", "", "Directory for saved scenarios (empty = use config)")
	load := flag.String("load", "", "Start from a saved scenario instead of generating")
	seed := flag.Uint64("seed", envUint("STELLAR_SEED"), "Generation seed (0 = use config)")
	maxTicks := flag.Int64("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	stepsPerUpdate := flag.Int("steps-per-update", 0, "Simulation ticks per update call (0 = use config)")
	realtime := flag.Bool("realtime", false, "Pace headless updates to simulated time")
	export := flag.String("export", "", "Export a saved scenario to a single JSON file and exit")
	exportPath := flag.String("export-path", "", "Destination for -export (empty = <name>.json)")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	app.SetupLogging(cfg.Logging, os.Stdout)

	if *export != "" {
		if err := exportScenario(cfg, *scenarioDir, *export, *exportPath); err != nil {
			slog.Error("export failed", "name", *export, "error", err)
			os.Exit(1)
		}
		return
	}

	opts := app.Options{
		Seed:           *seed,
		LogStats:       *logStats,
		StatsWindowSec: *statsWindow,
		OutputDir:      *outputDir,
		ScenarioDir:    *scenarioDir,
		StepsPerUpdate: *stepsPerUpdate,
		Scenario:       *load,
	}

	if *headless {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := runHeadless(ctx, cfg, opts, *maxTicks, *realtime); err != nil {
			slog.Error("simulation failed", "error", err)
			os.Exit(1)
		}
		return
	}

	// Graphical mode
	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagMsaa4xHint)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Stellarforge")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	a, err := app.New(cfg, opts)
	if err != nil {
		slog.Error("failed to start", "error", err)
		return
	}
	defer a.Close()

	v := viewer.New(a)
	for !rl.WindowShouldClose() {
		v.Update()
		v.Draw()

		if *maxTicks > 0 && a.Tick() >= *maxTicks {
			break
		}
	}
}

// runHeadless steps until maxTicks, a simulation error, or ctx is done.
// With realtime set, updates are rate limited so simulated time tracks
// wall-clock time.
func runHeadless(ctx context.Context, cfg *config.Config, opts app.Options, maxTicks int64, realtime bool) error {
	a, err := app.New(cfg, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	var limiter *rate.Limiter
	if realtime {
		perUpdate := time.Duration(a.DT() * float64(a.StepsPerUpdate()) * float64(time.Second))
		limiter = rate.NewLimiter(rate.Every(perUpdate), 1)
	}

	slog.Info("starting headless simulation",
		"seed", a.Params().Seed,
		"particles", a.Particles().Len(),
		"max_ticks", maxTicks,
		"steps_per_update", a.StepsPerUpdate(),
		"realtime", realtime,
	)

	for {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				break
			}
		} else if ctx.Err() != nil {
			break
		}

		if err := a.UpdateHeadless(); err != nil {
			return err
		}
		if maxTicks > 0 && a.Tick() >= maxTicks {
			slog.Info("max ticks reached", "tick", a.Tick())
			return nil
		}
	}

	slog.Info("interrupted", "tick", a.Tick())
	return nil
}

func envUint(key string) uint64 {
	v, err := strconv.ParseUint(os.Getenv(key), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// exportScenario writes one saved scenario as JSON without starting a
// simulation.
func exportScenario(cfg *config.Config, dir, name, path string) error {
	if dir == "" {
		dir = cfg.Scenario.Dir
	}
	if path == "" {
		path = name + ".json"
	}
	m, err := scenario.NewManager(dir)
	if err != nil {
		return err
	}
	included, err := m.Export(name, path, cfg.Scenario.ExportLimit)
	if err != nil {
		return err
	}
	slog.Info("scenario exported", "name", name, "path", path, "particles", included)
	return nil
}
