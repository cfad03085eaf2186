package telemetry

import (
	"math"

	"github.com/pthm-cable/stellarforge/particles"
	"github.com/pthm-cable/stellarforge/sim"
)

// Collector accumulates step outcomes within time windows and produces WindowStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int64
	dt                  float64

	// Current window tracking
	windowStartTick int64

	// Event counters for current window
	steps     int
	corrected int
	clamped   int
	added     int
	removed   int
	model     sim.ForceModel
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec, dt float64) *Collector {
	ticksPerWindow := int64(1)
	if dt > 0 {
		ticksPerWindow = max(int64(math.Round(windowDurationSec/dt)), 1)
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
	}
}

// RecordStep folds one step's status into the current window.
func (c *Collector) RecordStep(st sim.Status) {
	c.steps++
	c.corrected += st.Corrected
	c.clamped += st.Clamped
	c.model = st.Model
}

// RecordAdd records a spawned particle.
func (c *Collector) RecordAdd() {
	c.added++
}

// RecordRemove records a removed particle.
func (c *Collector) RecordRemove() {
	c.removed++
}

// ShouldFlush reports whether the window ending at currentTick is complete.
func (c *Collector) ShouldFlush(currentTick int64) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush measures set, combines it with the window counters and starts a
// new window at currentTick.
func (c *Collector) Flush(currentTick int64, simTime float64, set *particles.Set) WindowStats {
	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      simTime,
		ForceModel:      c.model.String(),
		Steps:           c.steps,
		Corrected:       c.corrected,
		Clamped:         c.clamped,
		Added:           c.added,
		Removed:         c.removed,
	}
	stats.measureSet(set)

	c.windowStartTick = currentTick
	c.steps, c.corrected, c.clamped, c.added, c.removed = 0, 0, 0, 0, 0
	return stats
}

// Reset restarts windowing at tick, discarding partial counts.
func (c *Collector) Reset(tick int64) {
	c.windowStartTick = tick
	c.steps, c.corrected, c.clamped, c.added, c.removed = 0, 0, 0, 0, 0
}

// WindowDurationTicks returns the window length in ticks.
func (c *Collector) WindowDurationTicks() int64 {
	return c.windowDurationTicks
}
