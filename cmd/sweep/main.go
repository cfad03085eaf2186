// Package main sweeps generation seeds, optionally runs each universe for a
// number of ticks, and writes one summary row per seed for comparison.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/stellarforge/app"
	"github.com/pthm-cable/stellarforge/config"
	"github.com/pthm-cable/stellarforge/particles"
	"github.com/pthm-cable/stellarforge/placement"
	"github.com/pthm-cable/stellarforge/telemetry"
)

// SeedResult is one row of sweep.csv.
type SeedResult struct {
	Seed          uint64  `csv:"seed"`
	Galaxies      int     `csv:"galaxies"`
	Fallback      bool    `csv:"fallback"`
	Spirals       int     `csv:"spirals"`
	Ellipticals   int     `csv:"ellipticals"`
	Irregulars    int     `csv:"irregulars"`
	MinSeparation float64 `csv:"min_separation"`
	Particles     int     `csv:"particles"`
	Stars         int     `csv:"stars"`
	Planets       int     `csv:"planets"`
	BlackHoles    int     `csv:"black_holes"`
	TotalMass     float64 `csv:"total_mass"`

	// Filled when ticks > 0
	TicksRun      int64   `csv:"ticks_run"`
	Failed        string  `csv:"failed"`
	Corrected     int     `csv:"corrected"`
	Clamped       int     `csv:"clamped"`
	KineticEnergy float64 `csv:"kinetic_energy"`
	RadiusP50     float64 `csv:"radius_p50"`
	RadiusP90     float64 `csv:"radius_p90"`
	Bookmarks     int     `csv:"bookmarks"`
}

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func main() {
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	startSeed := flag.Uint64("start-seed", 1, "First seed to generate")
	count := flag.Int("seeds", 20, "Number of consecutive seeds")
	ticks := flag.Int64("ticks", 0, "Ticks to simulate per seed (0 = generation only)")
	parallel := flag.Int("parallel", runtime.NumCPU(), "Seeds evaluated concurrently")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	if *outputDir == "" {
		log.Fatal("--output is required")
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	// Seeds already run in parallel, so each stepper stays single-threaded.
	cfg := *config.Cfg()
	cfg.Physics.Workers = 1
	cfg.Recompute()

	fmt.Printf("Sweeping %d seeds from %d, %d ticks each, %d in parallel\n",
		*count, *startSeed, *ticks, *parallel)

	results := make([]SeedResult, *count)
	startTime := time.Now()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)
	sem := make(chan struct{}, max(*parallel, 1))
	for i := range results {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			seed := *startSeed + uint64(i)
			res, err := runSeed(&cfg, seed, *ticks)
			if err != nil {
				log.Printf("seed %d: %v", seed, err)
			}
			results[i] = res

			mu.Lock()
			done++
			elapsed := time.Since(startTime)
			remaining := time.Duration(*count-done) * (elapsed / time.Duration(done))
			fmt.Printf("Seed %d (%d/%d): galaxies=%d particles=%d fallback=%v | elapsed: %s, ETA: %s\n",
				seed, done, *count, res.Galaxies, res.Particles, res.Fallback,
				formatDuration(elapsed), formatDuration(remaining))
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	outPath := filepath.Join(*outputDir, "sweep.csv")
	f, err := os.Create(outPath)
	if err != nil {
		log.Fatalf("failed to create %s: %v", outPath, err)
	}
	defer f.Close()
	if err := gocsv.MarshalFile(&results, f); err != nil {
		log.Fatalf("failed to write results: %v", err)
	}

	fmt.Printf("\nSweep complete in %s\n", formatDuration(time.Since(startTime)))
	fmt.Printf("Results saved to: %s\n", outPath)
}

// runSeed generates the universe for seed and, when ticks > 0, steps it
// headless. A simulation failure is recorded in the row, not returned.
func runSeed(cfg *config.Config, seed uint64, ticks int64) (SeedResult, error) {
	res := SeedResult{Seed: seed}

	var last telemetry.WindowStats
	bookmarks := telemetry.NewBookmarkDetector(10)
	a, err := app.New(cfg, app.Options{
		Seed: seed,
		StatsCallback: func(s telemetry.WindowStats) {
			last = s
			res.Corrected += s.Corrected
			res.Clamped += s.Clamped
			res.Bookmarks += len(bookmarks.Check(s))
		},
	})
	if err != nil {
		return res, err
	}
	defer a.Close()

	anchors := a.Anchors()
	shapes := placement.ShapeCounts(anchors)
	set := a.Particles()
	counts := set.CountByType()

	res.Galaxies = len(anchors)
	res.Fallback = a.Fallback()
	res.Spirals = int(shapes[placement.Spiral])
	res.Ellipticals = int(shapes[placement.Elliptical])
	res.Irregulars = int(shapes[placement.Irregular])
	res.MinSeparation = placement.MinPairDistance(anchors)
	res.Particles = set.Len()
	res.Stars = counts[particles.Star]
	res.Planets = counts[particles.Planet]
	res.BlackHoles = counts[particles.BlackHole]
	res.TotalMass = set.TotalMass()

	for a.Tick() < ticks {
		if err := a.Step(); err != nil {
			res.Failed = err.Error()
			break
		}
	}
	res.TicksRun = a.Tick()
	res.KineticEnergy = last.KineticEnergy
	res.RadiusP50 = last.RadiusP50
	res.RadiusP90 = last.RadiusP90
	return res, nil
}
