// Package components defines ECS components for scene volumes.
package components

import "gonum.org/v1/gonum/spatial/r3"

// Kind says what a scene volume turns into when the scene is built.
type Kind uint8

const (
	KindDomain   Kind = iota // walled simulation bounds
	KindFluid                // fluid spawn box
	KindObstacle             // solid box filled with boundary particles
)

func (k Kind) String() string {
	switch k {
	case KindDomain:
		return "domain"
	case KindFluid:
		return "fluid"
	case KindObstacle:
		return "obstacle"
	default:
		return "unknown"
	}
}

// Volume is an axis-aligned box in world space.
type Volume struct {
	Box r3.Box
}

// Role tags a volume with its kind.
type Role struct {
	Kind Kind
}

// Lattice holds particle placement factors, as multiples of the particle
// radius.
type Lattice struct {
	Spacing   float64
	Thickness float64 // domain walls only: how far the shell reaches out
}
