package particles

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// CenteredBox returns the box of the given full size around center.
// Negative size components are treated as zero.
func CenteredBox(center, size r3.Vec) r3.Box {
	half := r3.Scale(0.5, r3.Vec{X: math.Max(size.X, 0), Y: math.Max(size.Y, 0), Z: math.Max(size.Z, 0)})
	return r3.Box{Min: r3.Sub(center, half), Max: r3.Add(center, half)}
}

// Grow expands box by d on every side. Negative d shrinks it.
func Grow(box r3.Box, d float64) r3.Box {
	off := r3.Vec{X: d, Y: d, Z: d}
	return r3.Box{Min: r3.Sub(box.Min, off), Max: r3.Add(box.Max, off)}
}

func latticeCounts(size r3.Vec, spacing float64, extra int) (nx, ny, nz int) {
	count := func(extent float64) int {
		n := int(math.Floor(extent/spacing)) + extra
		if n < 0 {
			return 0
		}
		return n
	}
	return count(size.X), count(size.Y), count(size.Z)
}

// Lattice fills box with particles on a regular grid of the given spacing,
// each sitting at the centre of its lattice cell.
func Lattice(spacing float64, box r3.Box) []r3.Vec {
	if !(spacing > 0) || box.Empty() {
		return nil
	}
	nx, ny, nz := latticeCounts(box.Size(), spacing, 0)
	return fill(spacing, box.Min, nx, ny, nz, nil)
}

// Shell fills box like Lattice with one extra layer per axis, skipping
// points that fall inside exclusion. With box slightly larger than
// exclusion it produces a wall of particles around it.
func Shell(spacing float64, box, exclusion r3.Box) []r3.Vec {
	if !(spacing > 0) || box.Empty() {
		return nil
	}
	nx, ny, nz := latticeCounts(box.Size(), spacing, 1)
	return fill(spacing, box.Min, nx, ny, nz, func(p r3.Vec) bool {
		return !exclusion.Contains(p)
	})
}

func fill(spacing float64, origin r3.Vec, nx, ny, nz int, keep func(r3.Vec) bool) []r3.Vec {
	out := make([]r3.Vec, 0, nx*ny*nz)
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				p := r3.Vec{
					X: origin.X + (float64(x)+0.5)*spacing,
					Y: origin.Y + (float64(y)+0.5)*spacing,
					Z: origin.Z + (float64(z)+0.5)*spacing,
				}
				if keep == nil || keep(p) {
					out = append(out, p)
				}
			}
		}
	}
	return out
}
