package telemetry

import (
	"log/slog"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/stellarforge/sim"
)

// Phase names for the simulation tick. The first three are reported by the
// stepper itself.
const (
	PhaseForces    = sim.PhaseForces
	PhaseIntegrate = sim.PhaseIntegrate
	PhaseValidate  = sim.PhaseValidate
	PhaseTelemetry = "telemetry"
)

var phaseOrder = [...]string{PhaseForces, PhaseIntegrate, PhaseValidate, PhaseTelemetry}

const numPhases = len(phaseOrder)

func phaseIndex(name string) int {
	for i, p := range phaseOrder {
		if p == name {
			return i
		}
	}
	return -1
}

// tickSample is one timed tick. Phases are indexed by phaseOrder.
type tickSample struct {
	total  time.Duration
	phases [numPhases]time.Duration
}

// PerfCollector keeps the last N tick timings in a ring and the latest
// render frame interval. Unknown phase names are timed into the tick total
// only.
type PerfCollector struct {
	ring  []tickSample
	next  int
	count int

	cur        tickSample
	tickStart  time.Time
	phaseStart time.Time
	phase      int

	lastFrame time.Time
	frameDur  time.Duration
	fps       float64 // exponentially smoothed
}

// NewPerfCollector creates a collector averaging over windowSize ticks.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{ring: make([]tickSample, windowSize), phase: -1}
}

// StartTick begins timing a new simulation tick.
func (p *PerfCollector) StartTick() {
	p.tickStart = time.Now()
	p.cur = tickSample{}
	p.phase = -1
	p.phaseStart = p.tickStart
}

// StartPhase closes the running phase and opens the named one.
// It satisfies sim.PhaseTimer.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	p.closePhase(now)
	p.phase = phaseIndex(phase)
	p.phaseStart = now
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.phase >= 0 {
		p.cur.phases[p.phase] += now.Sub(p.phaseStart)
	}
}

// EndTick records the current tick into the ring.
func (p *PerfCollector) EndTick() {
	now := time.Now()
	p.closePhase(now)
	p.phase = -1
	p.cur.total = now.Sub(p.tickStart)

	p.ring[p.next] = p.cur
	p.next = (p.next + 1) % len(p.ring)
	p.count = min(p.count+1, len(p.ring))
}

// RecordFrame marks the end of a rendered frame.
func (p *PerfCollector) RecordFrame() {
	now := time.Now()
	if !p.lastFrame.IsZero() {
		p.frameDur = now.Sub(p.lastFrame)
		if p.frameDur > 0 {
			instant := float64(time.Second) / float64(p.frameDur)
			if p.fps == 0 {
				p.fps = instant
			} else {
				p.fps += 0.1 * (instant - p.fps)
			}
		}
	}
	p.lastFrame = now
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration
	P95TickDuration time.Duration

	// Average duration and share of tick time per phase
	PhaseAvg map[string]time.Duration
	PhasePct map[string]float64

	TicksPerSecond float64

	FrameDuration time.Duration
	FPS           float64
}

// Stats aggregates the ticks currently in the ring.
func (p *PerfCollector) Stats() PerfStats {
	s := PerfStats{
		PhaseAvg:      make(map[string]time.Duration, numPhases),
		PhasePct:      make(map[string]float64, numPhases),
		FrameDuration: p.frameDur,
		FPS:           p.fps,
	}
	if p.count == 0 {
		return s
	}

	totals := make([]float64, p.count)
	var phaseSum [numPhases]time.Duration
	for i, sample := range p.ring[:p.count] {
		totals[i] = float64(sample.total)
		for j, d := range sample.phases {
			phaseSum[j] += d
		}
	}
	slices.Sort(totals)

	n := time.Duration(p.count)
	s.AvgTickDuration = time.Duration(stat.Mean(totals, nil))
	s.MinTickDuration = time.Duration(totals[0])
	s.MaxTickDuration = time.Duration(totals[len(totals)-1])
	s.P95TickDuration = time.Duration(stat.Quantile(0.95, stat.Empirical, totals, nil))
	if s.AvgTickDuration > 0 {
		s.TicksPerSecond = float64(time.Second) / float64(s.AvgTickDuration)
	}

	for j, sum := range phaseSum {
		if sum == 0 {
			continue
		}
		avg := sum / n
		s.PhaseAvg[phaseOrder[j]] = avg
		if s.AvgTickDuration > 0 {
			s.PhasePct[phaseOrder[j]] = 100 * float64(avg) / float64(s.AvgTickDuration)
		}
	}
	return s
}

// LogValue implements slog.LogValuer.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_tick_us", s.AvgTickDuration.Microseconds()),
		slog.Int64("p95_tick_us", s.P95TickDuration.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTickDuration.Microseconds()),
		slog.Float64("ticks_per_sec", s.TicksPerSecond),
	}
	if s.FPS > 0 {
		attrs = append(attrs, slog.Float64("fps", s.FPS))
	}
	for _, phase := range phaseOrder {
		if pct := s.PhasePct[phase]; pct > 0.1 {
			attrs = append(attrs, slog.Float64(phase+"_pct", pct))
		}
	}
	return slog.GroupValue(attrs...)
}

// LogStats logs performance statistics.
func (s PerfStats) LogStats() {
	slog.Info("perf", "stats", s)
}

// PerfStatsCSV is one row of perf.csv.
type PerfStatsCSV struct {
	WindowEnd    int64   `csv:"window_end"`
	AvgTickUS    int64   `csv:"avg_tick_us"`
	MinTickUS    int64   `csv:"min_tick_us"`
	MaxTickUS    int64   `csv:"max_tick_us"`
	P95TickUS    int64   `csv:"p95_tick_us"`
	TicksPerSec  float64 `csv:"ticks_per_sec"`
	FPS          float64 `csv:"fps"`
	ForcesPct    float64 `csv:"forces_pct"`
	IntegratePct float64 `csv:"integrate_pct"`
	ValidatePct  float64 `csv:"validate_pct"`
	TelemetryPct float64 `csv:"telemetry_pct"`
}

// ToCSV flattens s for the perf stream.
func (s PerfStats) ToCSV(windowEnd int64) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:    windowEnd,
		AvgTickUS:    s.AvgTickDuration.Microseconds(),
		MinTickUS:    s.MinTickDuration.Microseconds(),
		MaxTickUS:    s.MaxTickDuration.Microseconds(),
		P95TickUS:    s.P95TickDuration.Microseconds(),
		TicksPerSec:  s.TicksPerSecond,
		FPS:          s.FPS,
		ForcesPct:    s.PhasePct[PhaseForces],
		IntegratePct: s.PhasePct[PhaseIntegrate],
		ValidatePct:  s.PhasePct[PhaseValidate],
		TelemetryPct: s.PhasePct[PhaseTelemetry],
	}
}
