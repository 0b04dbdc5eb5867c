package particles

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fluid/simerr"
)

// MaxParticles caps the size of a single particle set.
const MaxParticles = 1 << 24

// Default material parameters for a new fluid body.
const (
	DefaultViscosity = 0.002
	DefaultDampning  = 0.0
)

// FluidBody is the moving particle set. Counts are fixed at construction
// and indices are stable for its lifetime.
type FluidBody struct {
	NumParticles int
	Bounds       r3.Box
	Type         FluidType

	Density   float64
	Viscosity float64
	Dampning  float64

	ParticleRadius float64
	ParticleMass   float64
	ParticleVolume float64

	Positions []r3.Vec
	Densities []float64
	Pressures []float64

	// PBD only.
	Predicted  Buffers[r3.Vec]
	Velocities Buffers[r3.Vec]

	// CSPH and WCSPH only.
	VelocitiesSPH []r3.Vec
	Forces        []r3.Vec

	disposed bool
}

// NewFluidBody copies positions into a new fluid set. Mass and volume are
// derived once from radius and rest density.
func NewFluidBody(positions []r3.Vec, radius, density float64, t FluidType) (*FluidBody, error) {
	if err := validate(len(positions), radius, density); err != nil {
		return nil, fmt.Errorf("fluid body: %w", err)
	}
	if len(positions) == 0 {
		return nil, fmt.Errorf("fluid body has no particles: %w", simerr.ErrInvalidConfiguration)
	}
	if !t.Valid() {
		return nil, fmt.Errorf("fluid body type %v: %w", t, simerr.ErrInvalidConfiguration)
	}

	bounds, err := paddedBounds(positions, radius)
	if err != nil {
		return nil, fmt.Errorf("fluid body: %w", err)
	}

	n := len(positions)
	volume := ParticleVolume(radius)
	b := &FluidBody{
		NumParticles:   n,
		Bounds:         bounds,
		Type:           t,
		Density:        density,
		Viscosity:      DefaultViscosity,
		Dampning:       DefaultDampning,
		ParticleRadius: radius,
		ParticleVolume: volume,
		ParticleMass:   volume * density,
		Positions:      append([]r3.Vec(nil), positions...),
		Densities:      make([]float64, n),
		Pressures:      make([]float64, n),
	}

	if t == PBD {
		b.Predicted = NewBuffers(b.Positions)
		b.Velocities = NewBuffers(make([]r3.Vec, n))
	} else {
		b.VelocitiesSPH = make([]r3.Vec, n)
		b.Forces = make([]r3.Vec, n)
	}
	return b, nil
}

// ParticleDiameter is twice the radius.
func (b *FluidBody) ParticleDiameter() float64 { return 2 * b.ParticleRadius }

// Velocity returns the current velocity of particle i for either solver
// family.
func (b *FluidBody) Velocity(i int) r3.Vec {
	if b.Type == PBD {
		return b.Velocities.Read()[i]
	}
	return b.VelocitiesSPH[i]
}

// Dispose releases every buffer. It is safe to call more than once.
func (b *FluidBody) Dispose() {
	if b == nil || b.disposed {
		return
	}
	b.disposed = true
	b.Positions = nil
	b.Densities = nil
	b.Pressures = nil
	b.Predicted.release()
	b.Velocities.release()
	b.VelocitiesSPH = nil
	b.Forces = nil
}

// Disposed reports whether Dispose has been called.
func (b *FluidBody) Disposed() bool { return b.disposed }

// FluidBoundary is the static particle set representing walls and
// obstacles. Its positions are never written after construction.
type FluidBoundary struct {
	NumParticles   int
	Bounds         r3.Box
	ParticleRadius float64
	Density        float64

	Positions []r3.Vec

	disposed bool
}

// NewFluidBoundary copies positions into a new boundary set. An empty set is
// allowed and has empty bounds.
func NewFluidBoundary(positions []r3.Vec, radius, density float64) (*FluidBoundary, error) {
	if err := validate(len(positions), radius, density); err != nil {
		return nil, fmt.Errorf("fluid boundary: %w", err)
	}

	var bounds r3.Box
	if len(positions) > 0 {
		var err error
		if bounds, err = paddedBounds(positions, radius); err != nil {
			return nil, fmt.Errorf("fluid boundary: %w", err)
		}
	}

	return &FluidBoundary{
		NumParticles:   len(positions),
		Bounds:         bounds,
		ParticleRadius: radius,
		Density:        density,
		Positions:      append([]r3.Vec(nil), positions...),
	}, nil
}

// ParticleDiameter is twice the radius.
func (b *FluidBoundary) ParticleDiameter() float64 { return 2 * b.ParticleRadius }

// Dispose releases the position buffer. It is safe to call more than once.
func (b *FluidBoundary) Dispose() {
	if b == nil || b.disposed {
		return
	}
	b.disposed = true
	b.Positions = nil
}

// Disposed reports whether Dispose has been called.
func (b *FluidBoundary) Disposed() bool { return b.disposed }

// ParticleVolume is the volume of a sphere of the given radius.
func ParticleVolume(radius float64) float64 {
	return 4.0 / 3.0 * math.Pi * radius * radius * radius
}

func validate(n int, radius, density float64) error {
	if !(radius > 0) || math.IsInf(radius, 0) {
		return fmt.Errorf("particle radius %v: %w", radius, simerr.ErrInvalidConfiguration)
	}
	if !(density > 0) || math.IsInf(density, 0) {
		return fmt.Errorf("density %v: %w", density, simerr.ErrInvalidConfiguration)
	}
	if n > MaxParticles {
		return fmt.Errorf("%d particles exceeds %d: %w", n, MaxParticles, simerr.ErrResourceExhaustion)
	}
	return nil
}

// paddedBounds is the min/max box of positions grown by radius.
func paddedBounds(positions []r3.Vec, radius float64) (r3.Box, error) {
	inf := math.Inf(1)
	lo := r3.Vec{X: inf, Y: inf, Z: inf}
	hi := r3.Vec{X: -inf, Y: -inf, Z: -inf}

	for i, p := range positions {
		if math.IsNaN(p.X+p.Y+p.Z) || math.IsInf(p.X+p.Y+p.Z, 0) {
			return r3.Box{}, fmt.Errorf("position %d is %v: %w", i, p, simerr.ErrInvalidConfiguration)
		}
		lo.X = math.Min(lo.X, p.X)
		lo.Y = math.Min(lo.Y, p.Y)
		lo.Z = math.Min(lo.Z, p.Z)
		hi.X = math.Max(hi.X, p.X)
		hi.Y = math.Max(hi.Y, p.Y)
		hi.Z = math.Max(hi.Z, p.Z)
	}

	pad := r3.Vec{X: radius, Y: radius, Z: radius}
	return r3.Box{Min: r3.Sub(lo, pad), Max: r3.Add(hi, pad)}, nil
}
