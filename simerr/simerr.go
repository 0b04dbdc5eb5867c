// Package simerr defines the error kinds shared by the fluid core.
//
// Constructors and solvers wrap one of these sentinels so callers can
// branch with errors.Is. A non-positive timestep is not an error: steps
// with dt <= 0 are skipped silently.
package simerr

import "errors"

var (
	// ErrInvalidConfiguration reports a non-positive radius, cell size,
	// density or timestep factor, or degenerate bounds at construction.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrResourceExhaustion reports a grid or particle buffer that could
	// not be allocated, or a failed parallel pass that left buffers in an
	// undefined state.
	ErrResourceExhaustion = errors.New("resource exhaustion")
)

// ErrDisposed reports use of a solver, grid or particle set after Dispose.
var ErrDisposed = errors.New("use after dispose")
