// Package kernel provides the SPH smoothing kernels shared by every solver.
package kernel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fluid/simerr"
)

// RadiusScale converts a particle radius into the kernel support radius.
const RadiusScale = 4.0

// Kernel holds the support radius and the precomputed normalisation
// constants of the poly6, spiky and viscosity kernels. It is a value type
// with no mutable state and may be shared between goroutines.
type Kernel struct {
	Radius  float64 // h
	Radius2 float64 // h²
	Radius3 float64 // h³

	Poly6     float64 // 315 / (64π h⁹)
	SpikyGrad float64 // -45 / (π h⁶)
	ViscLap   float64 // 45 / (π h⁶)
}

// New builds the kernel for support radius h.
func New(h float64) (Kernel, error) {
	if !(h > 0) || math.IsInf(h, 0) {
		return Kernel{}, fmt.Errorf("kernel radius %v: %w", h, simerr.ErrInvalidConfiguration)
	}

	h2 := h * h
	h3 := h2 * h
	h6 := h3 * h3
	h9 := h6 * h3

	return Kernel{
		Radius:    h,
		Radius2:   h2,
		Radius3:   h3,
		Poly6:     315.0 / (64.0 * math.Pi * h9),
		SpikyGrad: -45.0 / (math.Pi * h6),
		ViscLap:   45.0 / (math.Pi * h6),
	}, nil
}

// ForParticle builds the kernel for a particle radius, using h = 4r.
func ForParticle(particleRadius float64) (Kernel, error) {
	return New(particleRadius * RadiusScale)
}

// Poly6Zero is poly6 at the origin, the weight of a particle on itself.
func (k Kernel) Poly6Zero() float64 {
	return k.Poly6 * k.Radius2 * k.Radius2 * k.Radius2
}

// Poly6Norm is the poly6 normalisation evaluated with h³ in place of h⁹,
// used to scale the boundary contribution.
func (k Kernel) Poly6Norm() float64 {
	return 315.0 / (64.0 * math.Pi * k.Radius3)
}

// W evaluates poly6 for displacement r.
func (k Kernel) W(r r3.Vec) float64 {
	return k.WDist2(r3.Norm2(r))
}

// WDist2 evaluates poly6 for a squared distance.
func (k Kernel) WDist2(d2 float64) float64 {
	if d2 > k.Radius2 {
		return 0
	}
	x := k.Radius2 - d2
	return k.Poly6 * x * x * x
}

// GradSpiky returns SPIKY_GRAD·(h-|r|)²·r̂. It is zero outside the support
// and at r = 0, where the direction is undefined.
func (k Kernel) GradSpiky(r r3.Vec) r3.Vec {
	d2 := r3.Norm2(r)
	if d2 > k.Radius2 || d2 == 0 {
		return r3.Vec{}
	}
	d := math.Sqrt(d2)
	x := k.Radius - d
	return r3.Scale(k.SpikyGrad*x*x/d, r)
}

// LapVisc returns VISC_LAP·(h-d) for distance d, zero outside the support.
func (k Kernel) LapVisc(d float64) float64 {
	if d > k.Radius {
		return 0
	}
	return k.ViscLap * (k.Radius - d)
}

// Contains reports whether displacement r lies inside the support.
func (k Kernel) Contains(r r3.Vec) bool {
	return r3.Norm2(r) <= k.Radius2
}
