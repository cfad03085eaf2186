// Package scenario saves and restores simulation states as a pair of files
// per scenario: <name>_settings.json holding metadata and generation
// parameters, and <name>_particles.csv holding the particle arrays.
package scenario

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/stellarforge/particles"
	"github.com/pthm-cable/stellarforge/simerr"
	"github.com/pthm-cable/stellarforge/universe"
)

// Version is bumped when the on-disk layout changes.
const Version = 1

const (
	settingsSuffix  = "_settings.json"
	particlesSuffix = "_particles.csv"
)

// DefaultExportLimit is the largest particle count Export inlines when the
// caller passes no limit.
const DefaultExportLimit = 10000

// Settings is the JSON metadata file.
type Settings struct {
	Version       int       `json:"version"`
	Name          string    `json:"name"`
	SavedAt       time.Time `json:"saved_at"`
	Tick          int64     `json:"tick"`
	Time          float64   `json:"time"`
	ParticleCount int       `json:"particle_count"`

	// Generation is nil for scenarios not produced by the generator.
	Generation *universe.Params `json:"generation,omitempty"`

	// Camera is the viewer's orbit pose at save time, if one was recorded.
	Camera *CameraState `json:"camera,omitempty"`
}

// CameraState is an orbit camera pose.
type CameraState struct {
	Target   [3]float64 `json:"target"`
	Yaw      float64    `json:"yaw"`
	Pitch    float64    `json:"pitch"`
	Distance float64    `json:"distance"`
}

// ParticleRecord is one row of the particle CSV.
type ParticleRecord struct {
	X    float64 `csv:"x" json:"x"`
	Y    float64 `csv:"y" json:"y"`
	Z    float64 `csv:"z" json:"z"`
	VX   float64 `csv:"vx" json:"vx"`
	VY   float64 `csv:"vy" json:"vy"`
	VZ   float64 `csv:"vz" json:"vz"`
	Mass float64 `csv:"mass" json:"mass"`
	Type string  `csv:"type" json:"type"`
	R    float32 `csv:"r" json:"r"`
	G    float32 `csv:"g" json:"g"`
	B    float32 `csv:"b" json:"b"`
}

// Scenario is a loaded or to-be-saved state.
type Scenario struct {
	Settings
	Set *particles.Set
}

// Manager stores scenarios in one directory.
type Manager struct {
	dir string
	now func() time.Time
}

// NewManager creates dir if needed.
func NewManager(dir string) (*Manager, error) {
	if dir == "" {
		return nil, simerr.InvalidParameterf("scenario directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create scenario dir: %w", err)
	}
	return &Manager{dir: dir, now: time.Now}, nil
}

// Dir returns the storage directory.
func (m *Manager) Dir() string { return m.dir }

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return simerr.InvalidParameterf("invalid scenario name %q", name)
	}
	return nil
}

func (m *Manager) paths(name string) (settings, parts string) {
	return filepath.Join(m.dir, name+settingsSuffix), filepath.Join(m.dir, name+particlesSuffix)
}

// Save writes sc under name, or under a timestamped name when name is empty.
// Existing files of the same name are replaced. Returns the name used.
func (m *Manager) Save(name string, sc *Scenario) (string, error) {
	if name == "" {
		name = "scenario_" + m.now().Format("20060102_150405")
	}
	if err := validName(name); err != nil {
		return "", err
	}
	set := sc.Set
	if set == nil {
		set = particles.New(0)
	}
	if err := set.Check(); err != nil {
		return "", fmt.Errorf("save scenario %s: %w", name, err)
	}

	settings := sc.Settings
	settings.Version = Version
	settings.Name = name
	settings.SavedAt = m.now().UTC()
	settings.ParticleCount = set.Len()

	settingsPath, particlesPath := m.paths(name)

	if err := writeParticles(particlesPath, set); err != nil {
		return "", fmt.Errorf("save scenario %s: %w", name, err)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.WriteFile(settingsPath, data, 0644); err != nil {
		return "", fmt.Errorf("write settings: %w", err)
	}
	return name, nil
}

// Load reads the scenario saved under name. A missing settings file yields
// an error matching fs.ErrNotExist; a missing particle file yields an empty
// set.
func (m *Manager) Load(name string) (*Scenario, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	settingsPath, particlesPath := m.paths(name)

	var sc Scenario
	var err error
	sc.Settings, err = readSettings(settingsPath)
	if err != nil {
		return nil, err
	}
	if sc.Version > Version {
		return nil, simerr.InvalidParameterf("scenario %s has version %d, newest supported is %d", name, sc.Version, Version)
	}

	sc.Set, err = readParticles(particlesPath)
	if errors.Is(err, fs.ErrNotExist) {
		sc.Set = particles.New(0)
	} else if err != nil {
		return nil, fmt.Errorf("load scenario %s: %w", name, err)
	}

	if sc.Set.Len() != sc.ParticleCount {
		return nil, simerr.InvalidParameterf("scenario %s: settings list %d particles, data has %d",
			name, sc.ParticleCount, sc.Set.Len())
	}
	return &sc, nil
}

// List returns the names of saved scenarios in lexical order.
func (m *Manager) List() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(m.dir, "*"+settingsSuffix))
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	names := make([]string, 0, len(matches))
	for _, p := range matches {
		names = append(names, strings.TrimSuffix(filepath.Base(p), settingsSuffix))
	}
	slices.Sort(names)
	return names, nil
}

// Latest returns the most recently saved scenario by its SavedAt stamp,
// breaking ties by name. It returns fs.ErrNotExist when nothing is saved.
func (m *Manager) Latest() (string, error) {
	names, err := m.List()
	if err != nil {
		return "", err
	}
	var (
		best   string
		bestAt time.Time
	)
	for _, name := range names {
		settingsPath, _ := m.paths(name)
		s, err := readSettings(settingsPath)
		if err != nil {
			slog.Warn("skipping unreadable scenario", "name", name, "error", err)
			continue
		}
		if best == "" || !s.SavedAt.Before(bestAt) {
			best, bestAt = name, s.SavedAt
		}
	}
	if best == "" {
		return "", fmt.Errorf("latest scenario in %s: %w", m.dir, fs.ErrNotExist)
	}
	return best, nil
}

// exportFile is the single-file JSON form written by Export.
type exportFile struct {
	Settings
	Particles []ParticleRecord `json:"particles,omitempty"`
}

// Export writes the scenario saved under name to path as one JSON document.
// Particles are inlined only when there are fewer than limit of them
// (DefaultExportLimit when limit <= 0); larger scenarios export settings
// alone. It reports whether particles were included.
func (m *Manager) Export(name, path string, limit int) (bool, error) {
	if limit <= 0 {
		limit = DefaultExportLimit
	}
	sc, err := m.Load(name)
	if err != nil {
		return false, err
	}
	out := exportFile{Settings: sc.Settings}
	if sc.Set.Len() < limit {
		out.Particles = Records(sc.Set)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return false, fmt.Errorf("marshal export: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return false, fmt.Errorf("export scenario %s: %w", name, err)
	}
	return out.Particles != nil, nil
}

// Delete removes both files of a scenario. It reports whether anything was
// removed.
func (m *Manager) Delete(name string) (bool, error) {
	if err := validName(name); err != nil {
		return false, err
	}
	var deleted bool
	settingsPath, particlesPath := m.paths(name)
	for _, p := range []string{settingsPath, particlesPath} {
		err := os.Remove(p)
		switch {
		case err == nil:
			deleted = true
		case !errors.Is(err, fs.ErrNotExist):
			return deleted, fmt.Errorf("delete scenario %s: %w", name, err)
		}
	}
	return deleted, nil
}

// Records flattens a set into CSV rows.
func Records(set *particles.Set) []ParticleRecord {
	rows := make([]ParticleRecord, set.Len())
	for i := range rows {
		p, v, c := set.Pos(i), set.Vel(i), set.Color(i)
		rows[i] = ParticleRecord{
			X: p.X, Y: p.Y, Z: p.Z,
			VX: v.X, VY: v.Y, VZ: v.Z,
			Mass: set.Masses[i],
			Type: set.Types[i].String(),
			R:    c[0], G: c[1], B: c[2],
		}
	}
	return rows
}

// FromRecords rebuilds a set, rejecting rows that violate the set's
// invariants.
func FromRecords(rows []ParticleRecord) (*particles.Set, error) {
	set := particles.New(len(rows))
	for i, r := range rows {
		t, err := particles.ParseType(r.Type)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		_, err = set.AddColored(
			r3.Vec{X: r.X, Y: r.Y, Z: r.Z},
			r3.Vec{X: r.VX, Y: r.VY, Z: r.VZ},
			r.Mass, t, [3]float32{r.R, r.G, r.B},
		)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return set, nil
}

func readSettings(path string) (Settings, error) {
	var s Settings
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read settings: %w", err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("unmarshal settings: %w", err)
	}
	return s, nil
}

func writeParticles(path string, set *particles.Set) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create particles file: %w", err)
	}
	if err := gocsv.MarshalFile(Records(set), f); err != nil {
		f.Close()
		return fmt.Errorf("write particles: %w", err)
	}
	return f.Close()
}

func readParticles(path string) (*particles.Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []ParticleRecord
	if err := gocsv.UnmarshalFile(f, &rows); err != nil && !errors.Is(err, gocsv.ErrEmptyCSVFile) {
		return nil, fmt.Errorf("read particles: %w", err)
	}
	return FromRecords(rows)
}
