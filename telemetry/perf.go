package telemetry

import (
	"log/slog"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Phase names reported by the solvers and the simulation loop.
const (
	PhaseSpatialHash = "spatial_hash"
	PhaseDensity     = "density"
	PhaseForces      = "forces"
	PhaseIntegrate   = "integrate"
	PhasePredict     = "predict"
	PhaseConstraint  = "constraint"
	PhaseCollision   = "collision"
	PhaseVelocity    = "velocity"
	PhaseViscosity   = "viscosity"
	PhaseVolume      = "volume"
	PhaseTelemetry   = "telemetry"
)

// Phases lists every phase in pipeline order.
var Phases = []string{
	PhaseSpatialHash, PhasePredict, PhaseDensity, PhaseConstraint,
	PhaseForces, PhaseCollision, PhaseVelocity, PhaseViscosity,
	PhaseIntegrate, PhaseVolume, PhaseTelemetry,
}

// PerfSample holds timing data for a single step.
type PerfSample struct {
	StepDuration time.Duration
	Phases       map[string]time.Duration
}

// PerfCollector tracks step and phase timing over a rolling window. It
// satisfies solver.PhaseTimer.
type PerfCollector struct {
	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
	stepStart     time.Time
	phaseStart    time.Time
	lastPhase     string

	lastFrameTime time.Time
	frameDuration time.Duration
}

// NewPerfCollector creates a collector averaging over windowSize steps.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
	}
}

// StartStep begins timing a simulation step.
func (p *PerfCollector) StartStep() {
	p.stepStart = time.Now()
	p.currentPhases = make(map[string]time.Duration)
	p.lastPhase = ""
}

// StartPhase closes the running phase, if any, and opens the next one.
// A phase entered several times in one step accumulates.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndStep closes the last phase and records the sample.
func (p *PerfCollector) EndStep() {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}

	p.samples[p.writeIndex] = PerfSample{
		StepDuration: now.Sub(p.stepStart),
		Phases:       p.currentPhases,
	}
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
	p.lastPhase = ""
}

// RecordFrame records wall time between rendered frames.
func (p *PerfCollector) RecordFrame() {
	now := time.Now()
	if !p.lastFrameTime.IsZero() {
		p.frameDuration = now.Sub(p.lastFrameTime)
	}
	p.lastFrameTime = now
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	AvgStepDuration time.Duration
	MinStepDuration time.Duration
	MaxStepDuration time.Duration
	P95StepDuration time.Duration

	PhaseAvg map[string]time.Duration
	PhasePct map[string]float64

	StepsPerSecond float64

	FrameDuration time.Duration
	FPS           float64
}

// Stats aggregates the current window.
func (p *PerfCollector) Stats() PerfStats {
	var fps float64
	if p.frameDuration > 0 {
		fps = float64(time.Second) / float64(p.frameDuration)
	}

	out := PerfStats{
		PhaseAvg:      make(map[string]time.Duration),
		PhasePct:      make(map[string]float64),
		FrameDuration: p.frameDuration,
		FPS:           fps,
	}
	if p.sampleCount == 0 {
		return out
	}

	steps := make([]float64, p.sampleCount)
	phaseSum := make(map[string]time.Duration)
	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		steps[i] = float64(s.StepDuration)
		for phase, dur := range s.Phases {
			phaseSum[phase] += dur
		}
	}
	sort.Float64s(steps)

	mean := stat.Mean(steps, nil)
	out.AvgStepDuration = time.Duration(mean)
	out.MinStepDuration = time.Duration(steps[0])
	out.MaxStepDuration = time.Duration(steps[len(steps)-1])
	out.P95StepDuration = time.Duration(stat.Quantile(0.95, stat.Empirical, steps, nil))

	for phase, sum := range phaseSum {
		avg := sum / time.Duration(p.sampleCount)
		out.PhaseAvg[phase] = avg
		if mean > 0 {
			out.PhasePct[phase] = float64(avg) / mean * 100
		}
	}
	if mean > 0 {
		out.StepsPerSecond = float64(time.Second) / mean
	}
	return out
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_step_us", s.AvgStepDuration.Microseconds()),
		slog.Int64("min_step_us", s.MinStepDuration.Microseconds()),
		slog.Int64("max_step_us", s.MaxStepDuration.Microseconds()),
		slog.Int64("p95_step_us", s.P95StepDuration.Microseconds()),
		slog.Float64("steps_per_sec", s.StepsPerSecond),
	}
	if s.FPS > 0 {
		attrs = append(attrs, slog.Float64("fps", s.FPS))
	}
	for _, phase := range Phases {
		if pct, ok := s.PhasePct[phase]; ok && pct > 0.1 {
			attrs = append(attrs, slog.Float64(phase+"_pct", float64(int(pct*10))/10))
		}
	}
	return slog.GroupValue(attrs...)
}

// LogStats logs the stats under the "perf" message.
func (s PerfStats) LogStats() {
	slog.Info("perf", "perf", s)
}

// PerfStatsCSV is a flat record for perf.csv.
type PerfStatsCSV struct {
	WindowEnd      int     `csv:"window_end"`
	AvgStepUS      int64   `csv:"avg_step_us"`
	MinStepUS      int64   `csv:"min_step_us"`
	MaxStepUS      int64   `csv:"max_step_us"`
	P95StepUS      int64   `csv:"p95_step_us"`
	StepsPerSec    float64 `csv:"steps_per_sec"`
	FPS            float64 `csv:"fps"`
	SpatialHashPct float64 `csv:"spatial_hash_pct"`
	PredictPct     float64 `csv:"predict_pct"`
	DensityPct     float64 `csv:"density_pct"`
	ConstraintPct  float64 `csv:"constraint_pct"`
	ForcesPct      float64 `csv:"forces_pct"`
	CollisionPct   float64 `csv:"collision_pct"`
	VelocityPct    float64 `csv:"velocity_pct"`
	ViscosityPct   float64 `csv:"viscosity_pct"`
	IntegratePct   float64 `csv:"integrate_pct"`
	VolumePct      float64 `csv:"volume_pct"`
	TelemetryPct   float64 `csv:"telemetry_pct"`
}

// ToCSV flattens the stats for CSV export.
func (s PerfStats) ToCSV(windowEnd int) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:      windowEnd,
		AvgStepUS:      s.AvgStepDuration.Microseconds(),
		MinStepUS:      s.MinStepDuration.Microseconds(),
		MaxStepUS:      s.MaxStepDuration.Microseconds(),
		P95StepUS:      s.P95StepDuration.Microseconds(),
		StepsPerSec:    s.StepsPerSecond,
		FPS:            s.FPS,
		SpatialHashPct: s.PhasePct[PhaseSpatialHash],
		PredictPct:     s.PhasePct[PhasePredict],
		DensityPct:     s.PhasePct[PhaseDensity],
		ConstraintPct:  s.PhasePct[PhaseConstraint],
		ForcesPct:      s.PhasePct[PhaseForces],
		CollisionPct:   s.PhasePct[PhaseCollision],
		VelocityPct:    s.PhasePct[PhaseVelocity],
		ViscosityPct:   s.PhasePct[PhaseViscosity],
		IntegratePct:   s.PhasePct[PhaseIntegrate],
		VolumePct:      s.PhasePct[PhaseVolume],
		TelemetryPct:   s.PhasePct[PhaseTelemetry],
	}
}
