package telemetry

import (
	"log/slog"

	"gonum.org/v1/gonum/stat"
)

// RunResult is one row of a benchmark sweep.
type RunResult struct {
	Label             string  `csv:"label"`
	Type              string  `csv:"type"`
	ParticleRadius    float64 `csv:"radius"`
	FluidParticles    int     `csv:"fluid_particles"`
	BoundaryParticles int     `csv:"boundary_particles"`
	TimeStep          float64 `csv:"time_step"`
	Duration          float64 `csv:"duration"`
	Frames            int     `csv:"frames"`
	AvgFPS            float64 `csv:"avg_fps"`
	AvgFrameTimeMS    float64 `csv:"avg_frame_time_ms"`
}

// LogValue implements slog.LogValuer for structured logging.
func (r RunResult) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("label", r.Label),
		slog.String("type", r.Type),
		slog.Float64("radius", r.ParticleRadius),
		slog.Int("fluid_particles", r.FluidParticles),
		slog.Int("boundary_particles", r.BoundaryParticles),
		slog.Float64("time_step", r.TimeStep),
		slog.Float64("duration", r.Duration),
		slog.Int("frames", r.Frames),
		slog.Float64("avg_fps", r.AvgFPS),
		slog.Float64("avg_frame_time_ms", r.AvgFrameTimeMS),
	)
}

// AverageRuns folds repeated runs of one configuration into a single row.
// With more than two runs the first and last are treated as warm-up and
// cool-down and left out. Counts and settings are taken from the first run.
func AverageRuns(label string, runs []RunResult) RunResult {
	if len(runs) == 0 {
		return RunResult{Label: label}
	}

	out := runs[0]
	out.Label = label

	kept := runs
	if len(runs) > 2 {
		kept = runs[1 : len(runs)-1]
	}

	fps := make([]float64, len(kept))
	frameMS := make([]float64, len(kept))
	duration := make([]float64, len(kept))
	frames := make([]float64, len(kept))
	for i, r := range kept {
		fps[i] = r.AvgFPS
		frameMS[i] = r.AvgFrameTimeMS
		duration[i] = r.Duration
		frames[i] = float64(r.Frames)
	}

	out.AvgFPS = stat.Mean(fps, nil)
	out.AvgFrameTimeMS = stat.Mean(frameMS, nil)
	out.Duration = stat.Mean(duration, nil)
	out.Frames = int(stat.Mean(frames, nil) + 0.5)
	return out
}
