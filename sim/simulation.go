// Package sim wires a scene, its particle sets, a solver and the density
// volume into a steppable simulation with telemetry.
package sim

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pthm-cable/fluid/config"
	"github.com/pthm-cable/fluid/parallel"
	"github.com/pthm-cable/fluid/particles"
	"github.com/pthm-cable/fluid/scene"
	"github.com/pthm-cable/fluid/simerr"
	"github.com/pthm-cable/fluid/solver"
	"github.com/pthm-cable/fluid/telemetry"
	"github.com/pthm-cable/fluid/volume"
)

// Stats windows of history for bookmark detection.
const bookmarkHistory = 10

// Options configures a simulation run.
type Options struct {
	LogStats       bool
	OutputDir      string
	StepsPerUpdate int
	Label          string // RunResult label

	// SnapshotDir, if set, receives a particle snapshot on every bookmark.
	SnapshotDir string

	// StatsCallback, if set, receives every stats window.
	StatsCallback func(telemetry.WindowStats)
}

// Simulation owns everything needed to advance one fluid scene.
type Simulation struct {
	cfg   *config.Config
	scene *scene.Scene
	pool  *parallel.Pool

	body     *particles.FluidBody
	boundary *particles.FluidBoundary
	solver   solver.FluidSolver
	volume   *volume.Volume

	perf      *telemetry.PerfCollector
	output    *telemetry.OutputManager
	collector *telemetry.Collector
	bookmarks *telemetry.BookmarkDetector

	logStats       bool
	statsCallback  func(telemetry.WindowStats)
	stepsPerUpdate int
	label          string
	snapshotDir    string

	timeStep config.TimeStep
	dt       float64
	paused   bool

	frames  int
	started time.Time

	lastStats telemetry.WindowStats
	hasStats  bool

	unloaded bool
}

// New builds a simulation from cfg. The scene comes from cfg.Scene.
func New(cfg *config.Config, opts Options) (*Simulation, error) {
	return NewWithScene(cfg, scene.FromConfig(cfg.Scene), opts)
}

// NewWithScene builds a simulation over an existing scene.
func NewWithScene(cfg *config.Config, sc *scene.Scene, opts Options) (*Simulation, error) {
	if cfg == nil || sc == nil {
		return nil, fmt.Errorf("simulation without config or scene: %w", simerr.ErrInvalidConfiguration)
	}

	steps := opts.StepsPerUpdate
	if steps < 1 {
		steps = 1
	}

	s := &Simulation{
		cfg:            cfg,
		scene:          sc,
		pool:           parallel.NewPool(cfg.Parallel.Workers),
		perf:           telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		collector:      telemetry.NewCollector(cfg.Telemetry.StatsWindow),
		logStats:       opts.LogStats,
		statsCallback:  opts.StatsCallback,
		stepsPerUpdate: steps,
		label:          opts.Label,
		snapshotDir:    opts.SnapshotDir,
	}

	ts, err := config.ParseTimeStep(string(cfg.Fluid.TimeStep))
	if err != nil {
		s.pool.Close()
		return nil, err
	}
	s.timeStep = ts

	if err := s.build(); err != nil {
		s.pool.Close()
		return nil, err
	}

	output, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		s.teardown()
		s.pool.Close()
		return nil, err
	}
	s.output = output
	if err := s.output.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config", "error", err)
	}

	return s, nil
}

// build creates particle sets, solver and volume from the scene and config.
func (s *Simulation) build() error {
	body, bnd, err := s.scene.Build(scene.MaterialFromConfig(s.cfg))
	if err != nil {
		return fmt.Errorf("building scene: %w", err)
	}

	sv, err := solver.New(body, bnd, s.solverOptions())
	if err != nil {
		body.Dispose()
		bnd.Dispose()
		return fmt.Errorf("creating %v solver: %w", body.Type, err)
	}

	var vol *volume.Volume
	if s.cfg.Volume.Enabled {
		vol, err = volume.New(sv.Hash().Bounds(), s.cfg.Fluid.ParticleRadius*s.cfg.Volume.VoxelScale)
		if err != nil {
			sv.Dispose()
			body.Dispose()
			bnd.Dispose()
			return fmt.Errorf("creating density volume: %w", err)
		}
		vol.SetPool(s.pool)
		vol.SetBatch(s.cfg.Parallel.VolumeBatch)
	}

	s.body, s.boundary, s.solver, s.volume = body, bnd, sv, vol
	s.dt = s.cfg.Derived.BaseDT / s.timeStep.Factor()
	s.collector.Reset()
	s.frames = 0
	s.lastStats, s.hasStats = telemetry.WindowStats{}, false
	s.bookmarks = telemetry.NewBookmarkDetector(bookmarkHistory)
	s.started = time.Now()

	slog.Info("scene built",
		"type", body.Type.String(),
		"radius", body.ParticleRadius,
		"fluid", body.NumParticles,
		"boundary", bnd.NumParticles,
		"cells", sv.Hash().NumCells(),
		"dt", s.dt,
	)
	return nil
}

func (s *Simulation) solverOptions() solver.Options {
	opts := solver.DefaultOptions()
	opts.Pool = s.pool
	opts.Timer = s.perf
	opts.Gravity = s.cfg.Derived.Gravity
	opts.Batch = s.cfg.Parallel.ParticleBatch

	sc := s.cfg.Solver
	opts.WCSPH = solver.SPHParams{
		GasConstant:      sc.WCSPH.GasConstant,
		RestDensityScale: sc.WCSPH.RestDensityScale,
		Viscosity:        sc.WCSPH.Viscosity,
	}
	opts.CSPH = solver.SPHParams{
		GasConstant:      sc.CSPH.GasConstant,
		RestDensityScale: sc.CSPH.RestDensityScale,
		Viscosity:        sc.CSPH.Viscosity,
	}
	opts.PBD = solver.PBDParams{
		SolverIterations:     sc.PBD.SolverIterations,
		ConstraintIterations: sc.PBD.ConstraintIterations,
		LambdaEpsilon:        sc.PBD.LambdaEpsilon,
		CollisionPush:        sc.PBD.CollisionPush,
	}
	return opts
}

func (s *Simulation) teardown() {
	if s.volume != nil {
		s.volume.Dispose()
		s.volume = nil
	}
	if s.solver != nil {
		s.solver.Dispose()
	}
	s.body.Dispose()
	s.boundary.Dispose()
}

// Rebuild discards the particle state and rebuilds the scene with the
// current config, e.g. after the fluid type or radius changed.
func (s *Simulation) Rebuild() error {
	if s.unloaded {
		return fmt.Errorf("rebuild after unload: %w", simerr.ErrDisposed)
	}
	if err := s.cfg.Finalize(); err != nil {
		return err
	}
	s.teardown()
	return s.build()
}

// SetFluidType switches solver family and rebuilds. Density and dt keep
// following the per-type defaults unless set explicitly.
func (s *Simulation) SetFluidType(t particles.FluidType) error {
	if !t.Valid() {
		return fmt.Errorf("fluid type %v: %w", t, simerr.ErrInvalidConfiguration)
	}
	s.cfg.Fluid.Type = t
	return s.Rebuild()
}

// SetRadius changes the particle radius and rebuilds.
func (s *Simulation) SetRadius(r float64) error {
	s.cfg.Fluid.ParticleRadius = r
	return s.Rebuild()
}

// SetTimeStep changes the dt divisor without rebuilding.
func (s *Simulation) SetTimeStep(ts config.TimeStep) {
	s.timeStep = ts
	s.cfg.Fluid.TimeStep = ts
	s.dt = s.cfg.Derived.BaseDT / ts.Factor()
}

// Step advances one solver step, refreshes the density volume and flushes
// telemetry at window boundaries.
func (s *Simulation) Step() error {
	if s.unloaded {
		return fmt.Errorf("step after unload: %w", simerr.ErrDisposed)
	}

	s.perf.StartStep()
	if err := s.solver.StepPhysics(s.dt); err != nil {
		s.perf.EndStep()
		return fmt.Errorf("step %d: %w", s.collector.Steps(), err)
	}

	if s.volume != nil {
		s.perf.StartPhase(telemetry.PhaseVolume)
		// The solver hashed positions from before its last pass.
		hash := s.solver.Hash()
		err := hash.Process(s.body.Positions, s.boundary.Positions)
		if err == nil {
			err = s.volume.Fill(hash, s.body.Positions, s.solver.Kernel(), s.body.ParticleVolume)
		}
		if err != nil {
			s.perf.EndStep()
			return fmt.Errorf("step %d: %w", s.collector.Steps(), err)
		}
	}

	s.collector.RecordStep(s.dt)

	s.perf.StartPhase(telemetry.PhaseTelemetry)
	s.flushTelemetry()
	s.perf.EndStep()
	return nil
}

// Update runs StepsPerUpdate steps unless paused and counts one frame.
func (s *Simulation) Update() error {
	s.frames++
	s.perf.RecordFrame()
	if s.paused {
		return nil
	}
	for i := 0; i < s.stepsPerUpdate; i++ {
		if err := s.Step(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulation) flushTelemetry() {
	if !s.collector.ShouldFlush() {
		return
	}

	stats := s.collector.Flush(s.body, s.boundary)
	perfStats := s.perf.Stats()
	s.lastStats, s.hasStats = stats, true

	if s.statsCallback != nil {
		s.statsCallback(stats)
	}
	if s.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}
	for _, bm := range s.bookmarks.Check(stats) {
		bm.LogBookmark()
		if s.snapshotDir != "" {
			snap := telemetry.TakeSnapshot(s.body, s.Steps(), s.SimTime())
			snap.Bookmark = &bm
			if _, err := telemetry.SaveSnapshot(snap, s.snapshotDir); err != nil {
				slog.Error("failed to save snapshot", "error", err)
			}
		}
	}
	if err := s.output.WriteTelemetry(stats); err != nil {
		slog.Error("failed to write telemetry", "error", err)
	}
	if err := s.output.WritePerf(perfStats, stats.WindowEndStep); err != nil {
		slog.Error("failed to write perf", "error", err)
	}
}

// SaveSnapshot writes the current particle state to dir and returns the
// file path.
func (s *Simulation) SaveSnapshot(dir string) (string, error) {
	snap := telemetry.TakeSnapshot(s.body, s.Steps(), s.SimTime())
	if snap == nil {
		return "", fmt.Errorf("snapshot after unload: %w", simerr.ErrDisposed)
	}
	return telemetry.SaveSnapshot(snap, dir)
}

// Result summarises the run since the last build.
func (s *Simulation) Result() telemetry.RunResult {
	elapsed := time.Since(s.started).Seconds()
	r := telemetry.RunResult{
		Label:          s.label,
		Type:           s.cfg.Fluid.Type.String(),
		ParticleRadius: s.cfg.Fluid.ParticleRadius,
		TimeStep:       s.dt,
		Duration:       elapsed,
		Frames:         s.frames,
	}
	if s.body != nil && !s.body.Disposed() {
		r.FluidParticles = s.body.NumParticles
	}
	if s.boundary != nil && !s.boundary.Disposed() {
		r.BoundaryParticles = s.boundary.NumParticles
	}
	if s.frames > 0 && elapsed > 0 {
		r.AvgFPS = float64(s.frames) / elapsed
		r.AvgFrameTimeMS = elapsed * 1000 / float64(s.frames)
	}
	return r
}

// Unload writes the run result, closes output and releases every buffer.
// Safe to call more than once.
func (s *Simulation) Unload() error {
	if s == nil || s.unloaded {
		return nil
	}

	result := s.Result()
	slog.Info("run complete", "result", result)
	err := s.output.WriteResults(result)

	s.unloaded = true
	s.teardown()
	s.pool.Close()
	return errors.Join(err, s.output.Close())
}

// LastStats returns the most recent stats window, if one has completed
// since the last build.
func (s *Simulation) LastStats() (telemetry.WindowStats, bool) {
	return s.lastStats, s.hasStats
}

// Config returns the live configuration.
func (s *Simulation) Config() *config.Config { return s.cfg }

// Scene returns the scene layout.
func (s *Simulation) Scene() *scene.Scene { return s.scene }

// Body returns the fluid particle set.
func (s *Simulation) Body() *particles.FluidBody { return s.body }

// Boundary returns the boundary particle set.
func (s *Simulation) Boundary() *particles.FluidBoundary { return s.boundary }

// Solver returns the active solver.
func (s *Simulation) Solver() solver.FluidSolver { return s.solver }

// Volume returns the density volume, or nil when disabled.
func (s *Simulation) Volume() *volume.Volume { return s.volume }

// Perf returns the phase timing collector.
func (s *Simulation) Perf() *telemetry.PerfCollector { return s.perf }

// Steps returns the number of steps since the last build.
func (s *Simulation) Steps() int { return s.collector.Steps() }

// SimTime returns simulated seconds since the last build.
func (s *Simulation) SimTime() float64 { return s.collector.SimTime() }

// DT returns the dt of one step.
func (s *Simulation) DT() float64 { return s.dt }

// TimeStep returns the current dt divisor setting.
func (s *Simulation) TimeStep() config.TimeStep { return s.timeStep }

// Paused reports whether Update skips stepping.
func (s *Simulation) Paused() bool { return s.paused }

// SetPaused pauses or resumes Update.
func (s *Simulation) SetPaused(p bool) { s.paused = p }

// TogglePause flips the paused state.
func (s *Simulation) TogglePause() { s.paused = !s.paused }
