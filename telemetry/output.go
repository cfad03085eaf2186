package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/stellarforge/config"
	"github.com/pthm-cable/stellarforge/placement"
)

// csvStream appends records to one CSV file, writing the header once.
type csvStream struct {
	name   string
	file   *os.File
	header bool
}

func openStream(dir, name string) (*csvStream, error) {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", name, err)
	}
	return &csvStream{name: name, file: f}, nil
}

func (s *csvStream) write(records any) error {
	var err error
	if !s.header {
		err = gocsv.Marshal(records, s.file)
		s.header = err == nil
	} else {
		err = gocsv.MarshalWithoutHeaders(records, s.file)
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", s.name, err)
	}
	return nil
}

// OutputManager writes run artefacts into a single directory: the effective
// config, the generated galaxies, and per-window telemetry, perf and
// bookmark streams.
type OutputManager struct {
	dir       string
	telemetry *csvStream
	perf      *csvStream
	bookmarks *csvStream
}

// NewOutputManager creates dir and opens the streaming CSV files.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}
	for _, s := range []struct {
		dst  **csvStream
		name string
	}{
		{&om.telemetry, "telemetry.csv"},
		{&om.perf, "perf.csv"},
		{&om.bookmarks, "bookmarks.csv"},
	} {
		stream, err := openStream(dir, s.name)
		if err != nil {
			om.Close()
			return nil, err
		}
		*s.dst = stream
	}
	return om, nil
}

// WriteConfig saves the effective configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// GalaxyRecord is one row of galaxies.csv.
type GalaxyRecord struct {
	Index     int     `csv:"index"`
	Shape     string  `csv:"shape"`
	X         float64 `csv:"x"`
	Y         float64 `csv:"y"`
	Z         float64 `csv:"z"`
	Radius    float64 `csv:"radius"`
	Particles int     `csv:"particles"`
	Seed      uint64  `csv:"seed"`
	Fallback  bool    `csv:"fallback"`
}

// GalaxyRecords flattens anchors into CSV rows.
func GalaxyRecords(anchors []placement.Anchor, fallback bool) []GalaxyRecord {
	rows := make([]GalaxyRecord, len(anchors))
	for i, a := range anchors {
		rows[i] = GalaxyRecord{
			Index:     i,
			Shape:     a.Shape.String(),
			X:         a.Center.X,
			Y:         a.Center.Y,
			Z:         a.Center.Z,
			Radius:    a.Radius,
			Particles: a.ParticleCount,
			Seed:      a.Seed,
			Fallback:  fallback,
		}
	}
	return rows
}

// WriteGalaxies replaces galaxies.csv with the given anchors.
func (om *OutputManager) WriteGalaxies(anchors []placement.Anchor, fallback bool) error {
	if om == nil {
		return nil
	}
	f, err := os.Create(filepath.Join(om.dir, "galaxies.csv"))
	if err != nil {
		return fmt.Errorf("creating galaxies.csv: %w", err)
	}
	defer f.Close()

	rows := GalaxyRecords(anchors, fallback)
	if err := gocsv.Marshal(rows, f); err != nil {
		return fmt.Errorf("writing galaxies.csv: %w", err)
	}
	return nil
}

// WriteTelemetry appends a window stats record to telemetry.csv.
func (om *OutputManager) WriteTelemetry(stats WindowStats) error {
	if om == nil {
		return nil
	}
	return om.telemetry.write([]WindowStats{stats})
}

// WritePerf appends a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd int64) error {
	if om == nil {
		return nil
	}
	return om.perf.write([]PerfStatsCSV{stats.ToCSV(windowEnd)})
}

// WriteBookmark appends a bookmark record to bookmarks.csv.
func (om *OutputManager) WriteBookmark(b Bookmark) error {
	if om == nil {
		return nil
	}
	return om.bookmarks.write([]Bookmark{b})
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close closes all output files, returning the first error.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	var firstErr error
	for _, s := range []*csvStream{om.telemetry, om.perf, om.bookmarks} {
		if s == nil {
			continue
		}
		if err := s.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
