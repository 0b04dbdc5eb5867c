package solver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fluid/particles"
	"github.com/pthm-cable/fluid/simerr"
	"github.com/pthm-cable/fluid/telemetry"
)

// PBD is a position-based fluid solver. Predicted positions and velocities
// live in READ/WRITE buffer pairs on the body: every pass reads the READ
// half for all neighbours, writes its own slot of the WRITE half, and the
// roles are swapped once the pass has finished.
//
// Densities hold the constraint density and Pressures the Lagrange
// multiplier of the last constraint iteration. Boundary particles weigh in
// with the mass of a boundary particle at boundary density.
type PBD struct {
	Base
	PBDParams

	RestDensity  float64
	BoundaryMass float64

	// Particle centres are kept inside domain when clamp is set, i.e. when
	// there is a boundary to stay within.
	domain r3.Box
	clamp  bool
}

// NewPBD builds a position-based solver for a PBD body.
func NewPBD(body *particles.FluidBody, boundary *particles.FluidBoundary, opts Options) (*PBD, error) {
	if body != nil && body.Type != particles.PBD {
		return nil, fmt.Errorf("PBD solver for %v body: %w", body.Type, simerr.ErrInvalidConfiguration)
	}
	p := opts.PBD
	if p.SolverIterations <= 0 || p.ConstraintIterations <= 0 || p.LambdaEpsilon < 0 || p.CollisionPush < 0 {
		return nil, fmt.Errorf("PBD iterations %d/%d, epsilon %v, push %v: %w",
			p.SolverIterations, p.ConstraintIterations, p.LambdaEpsilon, p.CollisionPush,
			simerr.ErrInvalidConfiguration)
	}

	base, err := newBase(body, boundary, opts)
	if err != nil {
		return nil, err
	}

	domain := particles.Grow(base.boundary.Bounds, -body.ParticleRadius)
	return &PBD{
		Base:         base,
		PBDParams:    p,
		RestDensity:  body.Density,
		BoundaryMass: base.boundary.Density * particles.ParticleVolume(base.boundary.ParticleRadius),
		domain:       domain,
		clamp:        base.boundary.NumParticles > 0 && !domain.Empty(),
	}, nil
}

// StepPhysics splits dt over SolverIterations predict/project/correct
// cycles.
func (s *PBD) StepPhysics(dt float64) error {
	if ok, err := s.ready(dt); !ok {
		return err
	}

	sub := dt / float64(s.SolverIterations)
	for it := 0; it < s.SolverIterations; it++ {
		if err := s.substep(sub); err != nil {
			return fmt.Errorf("PBD iteration %d: %w", it, err)
		}
	}
	return nil
}

func (s *PBD) substep(dt float64) error {
	body := s.body

	s.phase(telemetry.PhasePredict)
	if err := s.run("predict", func(start, end int) { s.predict(start, end, dt) }); err != nil {
		return err
	}
	body.Predicted.Swap()
	body.Velocities.Swap()

	s.phase(telemetry.PhaseSpatialHash)
	if err := s.rebuild(body.Predicted.Read()); err != nil {
		return err
	}

	s.phase(telemetry.PhaseConstraint)
	for c := 0; c < s.ConstraintIterations; c++ {
		if err := s.run("density", s.computeLambda); err != nil {
			return err
		}
		if err := s.run("constraint", s.solveConstraint); err != nil {
			return err
		}
		body.Predicted.Swap()
	}

	s.phase(telemetry.PhaseCollision)
	if err := s.run("collision", s.collide); err != nil {
		return err
	}
	body.Predicted.Swap()

	s.phase(telemetry.PhaseVelocity)
	if err := s.run("velocity", func(start, end int) { s.updateVelocities(start, end, dt) }); err != nil {
		return err
	}
	body.Velocities.Swap()

	s.phase(telemetry.PhaseViscosity)
	if err := s.run("viscosity", s.solveViscosity); err != nil {
		return err
	}
	body.Velocities.Swap()

	s.phase(telemetry.PhaseIntegrate)
	return s.run("positions", s.updatePositions)
}

func (s *PBD) predict(start, end int, dt float64) {
	body := s.body
	vRead, vWrite := body.Velocities.Read(), body.Velocities.Write()
	pWrite := body.Predicted.Write()

	for i := start; i < end; i++ {
		v := vRead[i]
		v = r3.Sub(v, r3.Scale(body.Dampning*dt, v))
		v = r3.Add(v, r3.Scale(dt, s.gravity))

		vWrite[i] = v
		pWrite[i] = r3.Add(body.Positions[i], r3.Scale(dt, v))
	}
}

// computeLambda evaluates the density constraint C = ρ/ρ0 - 1 at the READ
// predicted positions and its multiplier λ = -C / (Σ|∇C|² + ε). Only
// compression is corrected.
func (s *PBD) computeLambda(start, end int) {
	body := s.body
	k := s.kern
	pred := body.Predicted.Read()
	mass := body.ParticleMass
	bmass := s.BoundaryMass
	invRest := 1 / s.RestDensity

	for i := start; i < end; i++ {
		pi := pred[i]
		var density, sumGrad2 float64
		var gradI r3.Vec

		s.hash.ForEachCandidate(pi, func(j int) {
			d := r3.Sub(pi, s.neighbor(pred, j))
			d2 := r3.Norm2(d)
			if d2 > k.Radius2 {
				return
			}
			w := mass
			if s.hash.IsBoundary(j) {
				w = bmass
			}
			density += w * k.WDist2(d2)
			if j == i {
				return
			}

			grad := r3.Scale(w*invRest, k.GradSpiky(d))
			gradI = r3.Add(gradI, grad)
			if !s.hash.IsBoundary(j) {
				sumGrad2 += r3.Norm2(grad)
			}
		})
		sumGrad2 += r3.Norm2(gradI)

		c := math.Max(density*invRest-1, 0)
		body.Densities[i] = density
		body.Pressures[i] = -c / (sumGrad2 + s.LambdaEpsilon)
	}
}

// solveConstraint writes READ + Δp into the WRITE predicted buffer.
func (s *PBD) solveConstraint(start, end int) {
	body := s.body
	k := s.kern
	read, write := body.Predicted.Read(), body.Predicted.Write()
	lambda := body.Pressures
	mass := body.ParticleMass
	bmass := s.BoundaryMass
	invRest := 1 / s.RestDensity

	for i := start; i < end; i++ {
		pi := read[i]
		li := lambda[i]
		var delta r3.Vec

		s.hash.ForEachCandidate(pi, func(j int) {
			if j == i {
				return
			}
			d := r3.Sub(pi, s.neighbor(read, j))
			if r3.Norm2(d) > k.Radius2 {
				return
			}
			grad := k.GradSpiky(d)
			if s.hash.IsBoundary(j) {
				delta = r3.Add(delta, r3.Scale(bmass*invRest*li, grad))
				return
			}
			delta = r3.Add(delta, r3.Scale(mass*invRest*(li+lambda[j]), grad))
		})

		write[i] = r3.Add(pi, delta)
	}
}

// collide pushes predicted positions out of boundary particles closer than
// one particle diameter and clamps them into the boundary's bounds.
func (s *PBD) collide(start, end int) {
	body := s.body
	read, write := body.Predicted.Read(), body.Predicted.Write()
	diam := body.ParticleDiameter()
	diam2 := diam * diam

	for i := start; i < end; i++ {
		pi := read[i]
		var push r3.Vec

		s.hash.ForEachCandidate(pi, func(j int) {
			if !s.hash.IsBoundary(j) {
				return
			}
			d := r3.Sub(pi, s.neighbor(read, j))
			d2 := r3.Norm2(d)
			if d2 >= diam2 || d2 == 0 {
				return
			}
			dist := math.Sqrt(d2)
			push = r3.Add(push, r3.Scale((diam-dist)/dist, d))
		})

		p := r3.Add(pi, r3.Scale(s.CollisionPush, push))
		if s.clamp {
			p = clampBox(p, s.domain)
		}
		write[i] = p
	}
}

func clampBox(p r3.Vec, b r3.Box) r3.Vec {
	return r3.Vec{
		X: math.Min(math.Max(p.X, b.Min.X), b.Max.X),
		Y: math.Min(math.Max(p.Y, b.Min.Y), b.Max.Y),
		Z: math.Min(math.Max(p.Z, b.Min.Z), b.Max.Z),
	}
}

func (s *PBD) updateVelocities(start, end int, dt float64) {
	body := s.body
	pred := body.Predicted.Read()
	vWrite := body.Velocities.Write()
	inv := 1 / dt

	for i := start; i < end; i++ {
		vWrite[i] = r3.Scale(inv, r3.Sub(pred[i], body.Positions[i]))
	}
}

// solveViscosity applies XSPH smoothing: v += c·Σ (m/ρj)(vj - vi)·W.
func (s *PBD) solveViscosity(start, end int) {
	body := s.body
	k := s.kern
	pred := body.Predicted.Read()
	vRead, vWrite := body.Velocities.Read(), body.Velocities.Write()
	mass := body.ParticleMass

	for i := start; i < end; i++ {
		pi := pred[i]
		vi := vRead[i]
		var sum r3.Vec

		s.hash.ForEachCandidate(pi, func(j int) {
			if j == i || s.hash.IsBoundary(j) {
				return
			}
			d2 := r3.Norm2(r3.Sub(pi, s.neighbor(pred, j)))
			if d2 > k.Radius2 {
				return
			}
			rhoJ := body.Densities[j]
			if rhoJ <= 0 {
				return
			}
			sum = r3.Add(sum, r3.Scale(mass/rhoJ*k.WDist2(d2), r3.Sub(vRead[j], vi)))
		})

		vWrite[i] = r3.Add(vi, r3.Scale(body.Viscosity, sum))
	}
}

func (s *PBD) updatePositions(start, end int) {
	body := s.body
	pred := body.Predicted.Read()
	copy(body.Positions[start:end], pred[start:end])
}
