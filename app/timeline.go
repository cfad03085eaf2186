package app

import (
	"log/slog"
	"slices"

	"github.com/pthm-cable/stellarforge/particles"
	"github.com/pthm-cable/stellarforge/sim"
	"github.com/pthm-cable/stellarforge/simerr"
)

// Snapshot is an in-memory copy of the particle set at one tick.
type Snapshot struct {
	Tick int64
	Time float64
	Set  *particles.Set
}

// timeline records a snapshot every interval simulated seconds, keeping at
// most max of them (oldest dropped first). A non-positive interval disables
// recording; a non-positive max keeps everything.
type timeline struct {
	interval float64
	max      int

	last  float64
	snaps []Snapshot
}

func (tl *timeline) clear(now float64) {
	tl.snaps = tl.snaps[:0]
	tl.last = now
}

// observe takes a snapshot if interval has elapsed since the last one.
func (tl *timeline) observe(tick int64, now float64, set *particles.Set) bool {
	if tl.interval <= 0 || now-tl.last < tl.interval {
		return false
	}
	if tl.max > 0 && len(tl.snaps) >= tl.max {
		tl.snaps = slices.Delete(tl.snaps, 0, len(tl.snaps)-tl.max+1)
	}
	tl.snaps = append(tl.snaps, Snapshot{Tick: tick, Time: now, Set: set.Clone()})
	tl.last = now
	return true
}

// Snapshots returns the timeline recorded since the last Reset, Regenerate
// or LoadScenario, oldest first. The sets are shared and must not be
// modified.
func (a *App) Snapshots() []Snapshot {
	return slices.Clone(a.timeline.snaps)
}

// RestoreSnapshot rewinds the simulation to snapshot i. Later snapshots
// are discarded; the initial conditions used by Reset are unchanged.
func (a *App) RestoreSnapshot(i int) error {
	if i < 0 || i >= len(a.timeline.snaps) {
		return simerr.InvalidParameterf("snapshot index %d out of range [0, %d)", i, len(a.timeline.snaps))
	}
	snap := a.timeline.snaps[i]
	if err := a.stepper.Reset(snap.Set.Clone()); err != nil {
		return err
	}
	a.stepper.Restore(snap.Tick, snap.Time)
	a.timeline.snaps = a.timeline.snaps[:i+1]
	a.timeline.last = snap.Time
	a.lastErr = nil
	a.lastStatus = sim.Status{}
	a.resetTelemetry()

	slog.Info("snapshot restored", "tick", snap.Tick, "time", snap.Time, "particles", snap.Set.Len())
	return nil
}
