// Package solver advances a fluid body one timestep at a time.
//
// Every variant shares the same wiring: the body and boundary particle sets,
// a smoothing kernel with h = 4r, and a spatial hash grid over the union of
// both sets' bounds. They differ only in the passes run per step. Each pass
// is a parallel batch over fluid particles followed by a full barrier.
package solver

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fluid/grid"
	"github.com/pthm-cable/fluid/kernel"
	"github.com/pthm-cable/fluid/parallel"
	"github.com/pthm-cable/fluid/particles"
	"github.com/pthm-cable/fluid/simerr"
)

// FluidSolver is the stepping contract shared by all variants.
type FluidSolver interface {
	// StepPhysics advances the simulation by dt seconds. dt <= 0 is a
	// no-op. A non-nil error leaves the particle state undefined.
	StepPhysics(dt float64) error

	Body() *particles.FluidBody
	Boundary() *particles.FluidBoundary
	Kernel() kernel.Kernel
	Hash() *grid.Grid

	// Dispose releases solver-owned buffers. Safe to call more than once.
	Dispose()
}

// PhaseTimer receives phase boundaries for per-pass timing.
type PhaseTimer interface {
	StartPhase(phase string)
}

// SPHParams tunes the CSPH and WCSPH equation of state.
type SPHParams struct {
	GasConstant      float64
	RestDensityScale float64 // rest density = body density * scale
	Viscosity        float64 // negative: use the body's viscosity
}

// PBDParams tunes the position-based solver.
type PBDParams struct {
	SolverIterations     int
	ConstraintIterations int
	LambdaEpsilon        float64
	CollisionPush        float64 // fraction of boundary penetration removed per step
}

// Options configures solver construction. Zero values are not defaults;
// start from DefaultOptions.
type Options struct {
	Pool    *parallel.Pool
	Timer   PhaseTimer
	Gravity r3.Vec
	Batch   int // particles per dispatch group; 0 = parallel.ParticleThreads

	WCSPH SPHParams
	CSPH  SPHParams
	PBD   PBDParams
}

// DefaultOptions returns the tuning used by the reference scenes.
func DefaultOptions() Options {
	return Options{
		Gravity: r3.Vec{Y: -9.81},
		WCSPH: SPHParams{
			GasConstant:      1000,
			RestDensityScale: 0.5,
			Viscosity:        0.25,
		},
		CSPH: SPHParams{
			GasConstant:      1000,
			RestDensityScale: 1,
			Viscosity:        -1,
		},
		PBD: PBDParams{
			SolverIterations:     2,
			ConstraintIterations: 2,
			LambdaEpsilon:        1e-6,
			CollisionPush:        1,
		},
	}
}

// New builds the solver matching body.Type.
func New(body *particles.FluidBody, boundary *particles.FluidBoundary, opts Options) (FluidSolver, error) {
	if body == nil {
		return nil, fmt.Errorf("solver without fluid body: %w", simerr.ErrInvalidConfiguration)
	}
	switch body.Type {
	case particles.WCSPH:
		return NewWCSPH(body, boundary, opts)
	case particles.CSPH:
		return NewCSPH(body, boundary, opts)
	case particles.PBD:
		return NewPBD(body, boundary, opts)
	default:
		return nil, fmt.Errorf("solver for fluid type %v: %w", body.Type, simerr.ErrInvalidConfiguration)
	}
}

// Base holds the wiring every variant shares.
type Base struct {
	body     *particles.FluidBody
	boundary *particles.FluidBoundary
	kern     kernel.Kernel
	hash     *grid.Grid
	pool     *parallel.Pool
	timer    PhaseTimer
	gravity  r3.Vec

	batch       int
	groups      int
	boundaryPSI float64
	disposed    bool
}

func newBase(body *particles.FluidBody, boundary *particles.FluidBoundary, opts Options) (Base, error) {
	if body == nil || body.Disposed() {
		return Base{}, fmt.Errorf("solver without fluid body: %w", simerr.ErrInvalidConfiguration)
	}
	if boundary == nil {
		var err error
		if boundary, err = particles.NewFluidBoundary(nil, body.ParticleRadius, body.Density); err != nil {
			return Base{}, err
		}
	}
	if boundary.Disposed() {
		return Base{}, fmt.Errorf("solver with disposed boundary: %w", simerr.ErrInvalidConfiguration)
	}

	radius := body.ParticleRadius
	kern, err := kernel.ForParticle(radius)
	if err != nil {
		return Base{}, err
	}

	total := body.NumParticles + boundary.NumParticles
	bounds := body.Bounds.Union(boundary.Bounds)
	hash, err := grid.New(bounds, total, radius*kernel.RadiusScale)
	if err != nil {
		return Base{}, fmt.Errorf("building hash grid: %w", err)
	}
	hash.SetPool(opts.Pool)

	batch := opts.Batch
	if batch <= 0 {
		batch = parallel.ParticleThreads
	}

	return Base{
		body:        body,
		boundary:    boundary,
		kern:        kern,
		hash:        hash,
		pool:        opts.Pool,
		timer:       opts.Timer,
		gravity:     opts.Gravity,
		batch:       batch,
		groups:      parallel.Groups(body.NumParticles, batch),
		boundaryPSI: boundary.Density * boundary.Density / kern.Poly6Norm(),
	}, nil
}

// Body returns the fluid particle set.
func (b *Base) Body() *particles.FluidBody { return b.body }

// Boundary returns the boundary particle set.
func (b *Base) Boundary() *particles.FluidBoundary { return b.boundary }

// Kernel returns the smoothing kernel.
func (b *Base) Kernel() kernel.Kernel { return b.kern }

// Hash returns the spatial hash grid.
func (b *Base) Hash() *grid.Grid { return b.hash }

// Groups returns the dispatch group count for particle passes.
func (b *Base) Groups() int { return b.groups }

// BoundaryPSI returns the weight of a boundary particle in density sums.
func (b *Base) BoundaryPSI() float64 { return b.boundaryPSI }

// Dispose releases the hash grid. The particle sets belong to the caller.
func (b *Base) Dispose() {
	if b.disposed {
		return
	}
	b.disposed = true
	b.hash.Dispose()
}

func (b *Base) phase(name string) {
	if b.timer != nil {
		b.timer.StartPhase(name)
	}
}

// ready reports whether a step with dt should run.
func (b *Base) ready(dt float64) (bool, error) {
	if !(dt > 0) {
		return false, nil
	}
	if b.disposed || b.body.Disposed() || b.boundary.Disposed() {
		return false, fmt.Errorf("step after dispose: %w", simerr.ErrDisposed)
	}
	return true, nil
}

// run dispatches fn over every fluid particle and waits for it.
func (b *Base) run(pass string, fn func(start, end int)) error {
	if err := b.pool.For(b.body.NumParticles, b.batch, fn); err != nil {
		return fmt.Errorf("%s pass: %w", pass, err)
	}
	return nil
}

// rebuild re-buckets the given fluid positions together with the boundary.
func (b *Base) rebuild(fluid []r3.Vec) error {
	if err := b.hash.Process(fluid, b.boundary.Positions); err != nil {
		return fmt.Errorf("rebuilding hash: %w", err)
	}
	return nil
}

// neighbor returns the position of global index j, taking fluid positions
// from fluid rather than from the slice the hash was built with.
func (b *Base) neighbor(fluid []r3.Vec, j int) r3.Vec {
	if n := b.body.NumParticles; j >= n {
		return b.boundary.Positions[j-n]
	}
	return fluid[j]
}
