package telemetry

import (
	"log/slog"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/stellarforge/particles"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int64   `csv:"-"`
	WindowEndTick   int64   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`
	ForceModel      string  `csv:"force_model"`

	// Population at window end
	Particles  int     `csv:"particles"`
	Stars      int     `csv:"stars"`
	Planets    int     `csv:"planets"`
	BlackHoles int     `csv:"black_holes"`
	TotalMass  float64 `csv:"total_mass"`

	// Events during window
	Steps     int `csv:"steps"`
	Corrected int `csv:"corrected"`
	Clamped   int `csv:"clamped"`
	Added     int `csv:"added"`
	Removed   int `csv:"removed"`

	// Kinematics at window end
	KineticEnergy float64 `csv:"kinetic_energy"`
	SpeedMean     float64 `csv:"speed_mean"`
	SpeedP50      float64 `csv:"speed_p50"`
	SpeedP90      float64 `csv:"speed_p90"`
	SpeedMax      float64 `csv:"speed_max"`

	// Spatial spread around the centre of mass
	ComX       float64 `csv:"com_x"`
	ComY       float64 `csv:"com_y"`
	ComZ       float64 `csv:"com_z"`
	RadiusMean float64 `csv:"radius_mean"`
	RadiusStd  float64 `csv:"radius_std"`
	RadiusP10  float64 `csv:"radius_p10"`
	RadiusP50  float64 `csv:"radius_p50"`
	RadiusP90  float64 `csv:"radius_p90"`
}

// Distribution summarises a sample.
type Distribution struct {
	Mean, Std     float64
	P10, P50, P90 float64
	Max           float64
}

// ComputeDistribution returns mean, standard deviation, empirical
// percentiles and maximum of values. Empty input gives the zero value.
func ComputeDistribution(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	var d Distribution
	if len(sorted) > 1 {
		d.Mean, d.Std = stat.MeanStdDev(sorted, nil)
	} else {
		d.Mean = sorted[0]
	}
	d.P10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	d.P50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	d.P90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)
	d.Max = sorted[len(sorted)-1]
	return d
}

// measureSet fills the population, kinematic and spatial fields from set.
func (s *WindowStats) measureSet(set *particles.Set) {
	n := set.Len()
	counts := set.CountByType()
	s.Particles = n
	s.Stars = counts[particles.Star]
	s.Planets = counts[particles.Planet]
	s.BlackHoles = counts[particles.BlackHole]
	s.TotalMass = set.TotalMass()
	if n == 0 {
		return
	}

	speeds := make([]float64, n)
	energy := make([]float64, n)
	var cx, cy, cz float64
	for i := 0; i < n; i++ {
		v := set.Velocities[3*i : 3*i+3]
		v2 := v[0]*v[0] + v[1]*v[1] + v[2]*v[2]
		speeds[i] = math.Sqrt(v2)
		energy[i] = 0.5 * set.Masses[i] * v2

		m := set.Masses[i]
		cx += m * set.Positions[3*i]
		cy += m * set.Positions[3*i+1]
		cz += m * set.Positions[3*i+2]
	}
	if s.TotalMass > 0 {
		cx, cy, cz = cx/s.TotalMass, cy/s.TotalMass, cz/s.TotalMass
	}
	s.ComX, s.ComY, s.ComZ = cx, cy, cz
	s.KineticEnergy = floats.Sum(energy)

	radii := make([]float64, n)
	for i := 0; i < n; i++ {
		dx := set.Positions[3*i] - cx
		dy := set.Positions[3*i+1] - cy
		dz := set.Positions[3*i+2] - cz
		radii[i] = math.Sqrt(dx*dx + dy*dy + dz*dz)
	}

	sd := ComputeDistribution(speeds)
	s.SpeedMean, s.SpeedP50, s.SpeedP90, s.SpeedMax = sd.Mean, sd.P50, sd.P90, sd.Max

	rd := ComputeDistribution(radii)
	s.RadiusMean, s.RadiusStd = rd.Mean, rd.Std
	s.RadiusP10, s.RadiusP50, s.RadiusP90 = rd.P10, rd.P50, rd.P90
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_start", s.WindowStartTick),
		slog.Int64("window_end", s.WindowEndTick),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.String("force_model", s.ForceModel),
		slog.Int("particles", s.Particles),
		slog.Int("stars", s.Stars),
		slog.Int("planets", s.Planets),
		slog.Int("black_holes", s.BlackHoles),
		slog.Int("steps", s.Steps),
		slog.Int("corrected", s.Corrected),
		slog.Int("clamped", s.Clamped),
		slog.Int("added", s.Added),
		slog.Int("removed", s.Removed),
		slog.Float64("kinetic_energy", s.KineticEnergy),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_p90", s.SpeedP90),
		slog.Float64("speed_max", s.SpeedMax),
		slog.Float64("radius_p50", s.RadiusP50),
		slog.Float64("radius_p90", s.RadiusP90),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats", "window", s)
}
