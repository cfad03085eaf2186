package telemetry

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/stat"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkRepair      BookmarkType = "repair"
	BookmarkSaturation  BookmarkType = "speed_saturation"
	BookmarkCollapse    BookmarkType = "collapse"
	BookmarkDispersal   BookmarkType = "dispersal"
	BookmarkEquilibrium BookmarkType = "equilibrium"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Tick        int64        `csv:"tick"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector flags windows where the run changed character. Spread
// and equilibrium checks compare a window against the ones before it, so
// they stay silent until three windows have been seen.
type BookmarkDetector struct {
	recent []WindowStats // oldest first, at most size entries
	size   int

	inEquilibrium bool
}

// NewBookmarkDetector keeps up to historySize windows (at least 5).
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	historySize = max(historySize, 5)
	return &BookmarkDetector{
		recent: make([]WindowStats, 0, historySize),
		size:   historySize,
	}
}

// Check returns the bookmarks raised by stats, then records it.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var out []Bookmark
	emit := func(typ BookmarkType, format string, args ...any) {
		out = append(out, Bookmark{
			Type:        typ,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf(format, args...),
		})
	}

	if stats.Corrected > 0 {
		emit(BookmarkRepair, "%d non-finite particle states repaired", stats.Corrected)
	}
	if samples := stats.Steps * stats.Particles; samples > 0 {
		if frac := float64(stats.Clamped) / float64(samples); frac > 0.05 {
			emit(BookmarkSaturation, "%.1f%% of particle steps speed-clamped", frac*100)
		}
	}

	if len(bd.recent) >= 3 {
		radii := make([]float64, len(bd.recent))
		for i, h := range bd.recent {
			radii[i] = h.RadiusP50
		}
		if avg := stat.Mean(radii, nil); avg > 0 {
			switch ratio := stats.RadiusP50 / avg; {
			case ratio < 0.7:
				emit(BookmarkCollapse, "Median radius %.2f fell to %.0f%% of average (%.2f)", stats.RadiusP50, ratio*100, avg)
			case ratio > 1.5:
				emit(BookmarkDispersal, "Median radius %.2f grew to %.1fx average (%.2f)", stats.RadiusP50, ratio, avg)
			}
		}

		steady, mean := bd.energySteady(stats)
		if steady && !bd.inEquilibrium {
			emit(BookmarkEquilibrium, "Kinetic energy steady near %.3g over 4 windows", mean)
		}
		bd.inEquilibrium = steady
	}

	bd.push(stats)
	return out
}

// energySteady reports whether the last four recorded windows have a
// kinetic-energy coefficient of variation below 5%.
func (bd *BookmarkDetector) energySteady(stats WindowStats) (bool, float64) {
	if len(bd.recent) < 4 || stats.KineticEnergy == 0 {
		return false, 0
	}
	ke := make([]float64, 4)
	for i, h := range bd.recent[len(bd.recent)-4:] {
		ke[i] = h.KineticEnergy
	}
	mean, std := stat.MeanStdDev(ke, nil)
	if mean == 0 {
		return false, 0
	}
	return std/math.Abs(mean) < 0.05, mean
}

func (bd *BookmarkDetector) push(stats WindowStats) {
	if len(bd.recent) == bd.size {
		copy(bd.recent, bd.recent[1:])
		bd.recent = bd.recent[:bd.size-1]
	}
	bd.recent = append(bd.recent, stats)
}

// Reset clears history, e.g. after the particle set is replaced.
func (bd *BookmarkDetector) Reset() {
	bd.recent = bd.recent[:0]
	bd.inEquilibrium = false
}
