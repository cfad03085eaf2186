package app

import "log/slog"

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (a *App) flushTelemetry() {
	tick := a.stepper.Tick()
	if !a.collector.ShouldFlush(tick) {
		return
	}

	stats := a.collector.Flush(tick, a.stepper.Time(), a.stepper.Particles())
	perfStats := a.perfCollector.Stats()

	if a.statsCallback != nil {
		a.statsCallback(stats)
	}

	if a.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if err := a.outputManager.WriteTelemetry(stats); err != nil {
		slog.Error("failed to write telemetry", "error", err)
	}
	if err := a.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
		slog.Error("failed to write perf", "error", err)
	}

	for _, bm := range a.bookmarkDetector.Check(stats) {
		if a.logStats {
			bm.LogBookmark()
		}
		if err := a.outputManager.WriteBookmark(bm); err != nil {
			slog.Error("failed to write bookmark", "error", err)
		}
	}
}

// resetTelemetry starts a fresh window at the current tick.
func (a *App) resetTelemetry() {
	a.collector.Reset(a.stepper.Tick())
	a.bookmarkDetector.Reset()
}
