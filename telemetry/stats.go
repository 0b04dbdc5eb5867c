package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/fluid/particles"
)

// WindowStats is a snapshot of the fluid state at the end of a window.
type WindowStats struct {
	WindowStartStep int     `csv:"-"`
	WindowEndStep   int     `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	FluidParticles    int `csv:"fluid"`
	BoundaryParticles int `csv:"boundary"`

	// Density relative to the body's rest density.
	DensityMean float64 `csv:"density_mean"`
	DensityStd  float64 `csv:"density_std"`
	DensityP10  float64 `csv:"density_p10"`
	DensityP50  float64 `csv:"density_p50"`
	DensityP90  float64 `csv:"density_p90"`

	PressureMax float64 `csv:"pressure_max"`

	SpeedMean     float64 `csv:"speed_mean"`
	SpeedMax      float64 `csv:"speed_max"`
	KineticEnergy float64 `csv:"kinetic_energy"`

	CentroidY float64 `csv:"centroid_y"`
	MinY      float64 `csv:"min_y"`

	// Particles whose position went NaN or infinite.
	Invalid int `csv:"invalid"`
}

// Distribution summarises values as mean, standard deviation and the
// empirical 10th, 50th and 90th percentiles. values is sorted in place.
func Distribution(values []float64) (mean, std, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0, 0
	}
	sort.Float64s(values)
	if len(values) == 1 {
		mean = values[0]
	} else {
		mean, std = stat.MeanStdDev(values, nil)
	}
	p10 = stat.Quantile(0.1, stat.Empirical, values, nil)
	p50 = stat.Quantile(0.5, stat.Empirical, values, nil)
	p90 = stat.Quantile(0.9, stat.Empirical, values, nil)
	return mean, std, p10, p50, p90
}

// ComputeStats samples body at the end of a window.
func ComputeStats(body *particles.FluidBody, boundary *particles.FluidBoundary, start, end int, simTime float64) WindowStats {
	s := WindowStats{
		WindowStartStep: start,
		WindowEndStep:   end,
		SimTimeSec:      simTime,
	}
	if boundary != nil && !boundary.Disposed() {
		s.BoundaryParticles = boundary.NumParticles
	}
	if body == nil || body.Disposed() {
		return s
	}
	s.FluidParticles = body.NumParticles

	n := body.NumParticles
	rel := make([]float64, 0, n)
	speeds := make([]float64, 0, n)
	var centroid float64
	s.MinY = math.Inf(1)

	for i := 0; i < n; i++ {
		p := body.Positions[i]
		if math.IsNaN(p.X+p.Y+p.Z) || math.IsInf(p.X+p.Y+p.Z, 0) {
			s.Invalid++
			continue
		}
		centroid += p.Y
		s.MinY = math.Min(s.MinY, p.Y)

		rel = append(rel, body.Densities[i]/body.Density)
		s.PressureMax = math.Max(s.PressureMax, body.Pressures[i])

		v := r3.Norm(body.Velocity(i))
		speeds = append(speeds, v)
		s.SpeedMax = math.Max(s.SpeedMax, v)
		s.KineticEnergy += 0.5 * body.ParticleMass * v * v
	}

	valid := len(speeds)
	if valid == 0 {
		s.MinY = 0
		return s
	}
	s.CentroidY = centroid / float64(valid)
	s.SpeedMean = stat.Mean(speeds, nil)
	s.DensityMean, s.DensityStd, s.DensityP10, s.DensityP50, s.DensityP90 = Distribution(rel)
	return s
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", s.WindowStartStep),
		slog.Int("window_end", s.WindowEndStep),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("fluid", s.FluidParticles),
		slog.Int("boundary", s.BoundaryParticles),
		slog.Float64("density_mean", s.DensityMean),
		slog.Float64("density_std", s.DensityStd),
		slog.Float64("density_p10", s.DensityP10),
		slog.Float64("density_p50", s.DensityP50),
		slog.Float64("density_p90", s.DensityP90),
		slog.Float64("pressure_max", s.PressureMax),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_max", s.SpeedMax),
		slog.Float64("kinetic_energy", s.KineticEnergy),
		slog.Float64("centroid_y", s.CentroidY),
		slog.Float64("min_y", s.MinY),
		slog.Int("invalid", s.Invalid),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats", "stats", s)
}
