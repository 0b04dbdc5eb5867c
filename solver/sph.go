package solver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fluid/particles"
	"github.com/pthm-cable/fluid/simerr"
	"github.com/pthm-cable/fluid/telemetry"
)

// SPH runs the force-based density → force → integrate pipeline. WCSPH and
// CSPH differ only in the equation of state.
type SPH struct {
	Base

	GasConstant float64
	RestDensity float64
	Viscosity   float64

	// clampPressure drops negative pressures (WCSPH).
	clampPressure bool
}

// NewWCSPH builds a weakly compressible SPH solver: p = k·max(0, ρ-ρ0).
func NewWCSPH(body *particles.FluidBody, boundary *particles.FluidBoundary, opts Options) (*SPH, error) {
	return newSPH(body, boundary, opts, opts.WCSPH, true)
}

// NewCSPH builds a plain SPH solver with the unclamped state p = k·(ρ-ρ0).
func NewCSPH(body *particles.FluidBody, boundary *particles.FluidBoundary, opts Options) (*SPH, error) {
	return newSPH(body, boundary, opts, opts.CSPH, false)
}

func newSPH(body *particles.FluidBody, boundary *particles.FluidBoundary, opts Options, p SPHParams, clamp bool) (*SPH, error) {
	if body != nil && !body.Type.IsSPH() {
		return nil, fmt.Errorf("SPH solver for %v body: %w", body.Type, simerr.ErrInvalidConfiguration)
	}
	if !(p.GasConstant >= 0) || !(p.RestDensityScale > 0) {
		return nil, fmt.Errorf("SPH gas constant %v, rest density scale %v: %w",
			p.GasConstant, p.RestDensityScale, simerr.ErrInvalidConfiguration)
	}

	base, err := newBase(body, boundary, opts)
	if err != nil {
		return nil, err
	}

	visc := p.Viscosity
	if visc < 0 {
		visc = body.Viscosity
	}

	return &SPH{
		Base:          base,
		GasConstant:   p.GasConstant,
		RestDensity:   body.Density * p.RestDensityScale,
		Viscosity:     visc,
		clampPressure: clamp,
	}, nil
}

// StepPhysics rebuilds the hash and runs the density, force and
// integration passes.
func (s *SPH) StepPhysics(dt float64) error {
	if ok, err := s.ready(dt); !ok {
		return err
	}

	s.phase(telemetry.PhaseSpatialHash)
	if err := s.rebuild(s.body.Positions); err != nil {
		return err
	}

	s.phase(telemetry.PhaseDensity)
	if err := s.run("density", s.computeDensity); err != nil {
		return err
	}

	s.phase(telemetry.PhaseForces)
	if err := s.run("force", s.computeForces); err != nil {
		return err
	}

	s.phase(telemetry.PhaseIntegrate)
	return s.run("integrate", func(start, end int) { s.integrate(start, end, dt) })
}

// Pressure evaluates the equation of state.
func (s *SPH) Pressure(density float64) float64 {
	d := density - s.RestDensity
	if s.clampPressure && d < 0 {
		d = 0
	}
	return s.GasConstant * d
}

func (s *SPH) computeDensity(start, end int) {
	body := s.body
	k := s.kern
	mass := body.ParticleMass
	psi := s.boundaryPSI

	for i := start; i < end; i++ {
		pi := body.Positions[i]
		var density float64

		s.hash.ForEachCandidate(pi, func(j int) {
			d2 := r3.Norm2(r3.Sub(pi, s.neighbor(body.Positions, j)))
			if d2 > k.Radius2 {
				return
			}
			if s.hash.IsBoundary(j) {
				density += psi * k.WDist2(d2)
			} else {
				density += mass * k.WDist2(d2)
			}
		})

		body.Densities[i] = density
		body.Pressures[i] = s.Pressure(density)
	}
}

// computeForces sums pressure and viscosity as force densities and scales
// them by the particle's volume m/ρ, so Forces holds a force that integrate
// divides by mass. ρ is never below m·poly6(0), so the division is safe.
func (s *SPH) computeForces(start, end int) {
	body := s.body
	k := s.kern
	mass := body.ParticleMass
	psi := s.boundaryPSI
	gravity := r3.Scale(mass, s.gravity)

	for i := start; i < end; i++ {
		pi := body.Positions[i]
		vi := body.VelocitiesSPH[i]
		rhoI := body.Densities[i]
		presI := body.Pressures[i]
		// Walls only push, even when CSPH pressure goes negative.
		wallPres := math.Max(presI, 0)

		var pressure, viscosity r3.Vec

		s.hash.ForEachCandidate(pi, func(j int) {
			if j == i {
				return
			}
			d := r3.Sub(pi, s.neighbor(body.Positions, j))
			d2 := r3.Norm2(d)
			if d2 > k.Radius2 {
				return
			}
			grad := k.GradSpiky(d)

			if s.hash.IsBoundary(j) {
				// The wall mirrors the particle's own pressure and density.
				pressure = r3.Sub(pressure, r3.Scale(psi*wallPres/rhoI, grad))
				return
			}

			rhoJ := body.Densities[j]
			presJ := body.Pressures[j]
			pressure = r3.Sub(pressure, r3.Scale(mass*(presI+presJ)/(2*rhoJ), grad))

			dv := r3.Sub(body.VelocitiesSPH[j], vi)
			lap := k.LapVisc(math.Sqrt(d2))
			viscosity = r3.Add(viscosity, r3.Scale(mass*lap/rhoJ, dv))
		})

		internal := r3.Add(pressure, r3.Scale(s.Viscosity, viscosity))
		body.Forces[i] = r3.Add(gravity, r3.Scale(mass/rhoI, internal))
	}
}

// integrate advances velocity with the damped force, v' = (v + dt·F/m)·damp,
// then moves by the average of the old and new velocity (trapezoidal, not
// the plain semi-implicit x += dt·v') so one step from rest falls exactly
// ½·g·dt².
func (s *SPH) integrate(start, end int, dt float64) {
	body := s.body
	invMass := 1 / body.ParticleMass
	damp := math.Max(0, 1-body.Dampning*dt)

	for i := start; i < end; i++ {
		v0 := body.VelocitiesSPH[i]
		a := r3.Scale(invMass, body.Forces[i])
		v1 := r3.Scale(damp, r3.Add(v0, r3.Scale(dt, a)))

		body.VelocitiesSPH[i] = v1
		body.Positions[i] = r3.Add(body.Positions[i], r3.Scale(0.5*dt, r3.Add(v0, v1)))
	}
}
