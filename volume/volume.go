// Package volume samples fluid density onto a voxel grid for rendering.
package volume

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fluid/grid"
	"github.com/pthm-cable/fluid/kernel"
	"github.com/pthm-cable/fluid/parallel"
	"github.com/pthm-cable/fluid/simerr"
)

// MaxVoxels caps the voxel count of a volume.
const MaxVoxels = 1 << 24

// Volume is a dense voxel grid holding Σ V·W(x - xj) over fluid particles.
type Volume struct {
	bounds r3.Box
	voxel  float64
	dims   [3]int
	data   []float64

	pool     *parallel.Pool
	block    int
	disposed bool
}

// New allocates a volume over bounds with cubic voxels of edge voxel. Each
// axis gets at least one voxel.
func New(bounds r3.Box, voxel float64) (*Volume, error) {
	if !(voxel > 0) || math.IsInf(voxel, 0) {
		return nil, fmt.Errorf("voxel size %v: %w", voxel, simerr.ErrInvalidConfiguration)
	}
	if bounds.Empty() {
		return nil, fmt.Errorf("volume bounds %v: %w", bounds, simerr.ErrInvalidConfiguration)
	}

	size := bounds.Size()
	var dims [3]int
	count := 1.0
	for i, extent := range [3]float64{size.X, size.Y, size.Z} {
		n := math.Max(1, math.Ceil(extent/voxel))
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, fmt.Errorf("volume bounds %v: %w", bounds, simerr.ErrInvalidConfiguration)
		}
		count *= n
		if count > MaxVoxels {
			return nil, fmt.Errorf("volume of %.0f+ voxels exceeds %d: %w", count, MaxVoxels, simerr.ErrResourceExhaustion)
		}
		dims[i] = int(n)
	}

	return &Volume{
		bounds: bounds,
		voxel:  voxel,
		dims:   dims,
		data:   make([]float64, dims[0]*dims[1]*dims[2]),
		block:  parallel.VolumeThreads,
	}, nil
}

// SetPool sets the worker pool used by Fill. nil runs inline.
func (v *Volume) SetPool(p *parallel.Pool) { v.pool = p }

// SetBatch sets the per-axis voxel block edge Fill dispatches. n <= 0
// restores parallel.VolumeThreads.
func (v *Volume) SetBatch(n int) {
	if n <= 0 {
		n = parallel.VolumeThreads
	}
	v.block = n
}

// Bounds returns the box the voxels start from.
func (v *Volume) Bounds() r3.Box { return v.bounds }

// VoxelSize returns the voxel edge length.
func (v *Volume) VoxelSize() float64 { return v.voxel }

// Dims returns the voxel count along each axis.
func (v *Volume) Dims() [3]int { return v.dims }

// Data returns the voxel values, x fastest then y then z.
func (v *Volume) Data() []float64 { return v.data }

// Index flattens voxel coordinates.
func (v *Volume) Index(x, y, z int) int {
	return x + v.dims[0]*(y+v.dims[1]*z)
}

// At returns the value of one voxel.
func (v *Volume) At(x, y, z int) float64 { return v.data[v.Index(x, y, z)] }

// Center returns the world-space centre of a voxel.
func (v *Volume) Center(x, y, z int) r3.Vec {
	return r3.Vec{
		X: v.bounds.Min.X + (float64(x)+0.5)*v.voxel,
		Y: v.bounds.Min.Y + (float64(y)+0.5)*v.voxel,
		Z: v.bounds.Min.Z + (float64(z)+0.5)*v.voxel,
	}
}

// Max returns the largest voxel value.
func (v *Volume) Max() float64 {
	var m float64
	for _, d := range v.data {
		m = math.Max(m, d)
	}
	return m
}

// Fill recomputes every voxel from the fluid neighbours found in hash,
// which must have been processed with fluid. particleVolume is the volume
// of one fluid particle. Voxels are dispatched in cubic blocks whose edge
// is set by SetBatch.
func (v *Volume) Fill(hash *grid.Grid, fluid []r3.Vec, k kernel.Kernel, particleVolume float64) error {
	if v.disposed {
		return fmt.Errorf("fill volume: %w", simerr.ErrDisposed)
	}
	if hash == nil || hash.Disposed() {
		return fmt.Errorf("fill volume without hash grid: %w", simerr.ErrInvalidConfiguration)
	}
	nFluid := hash.NumFluid()
	if nFluid > len(fluid) {
		return fmt.Errorf("hash holds %d fluid particles, got %d positions: %w",
			nFluid, len(fluid), simerr.ErrInvalidConfiguration)
	}

	block := v.block
	bx := parallel.Groups(v.dims[0], block)
	by := parallel.Groups(v.dims[1], block)
	bz := parallel.Groups(v.dims[2], block)

	return v.pool.Run(bx*by*bz, func(g int) {
		x0 := (g % bx) * block
		y0 := (g / bx % by) * block
		z0 := (g / (bx * by)) * block

		for z := z0; z < min(z0+block, v.dims[2]); z++ {
			for y := y0; y < min(y0+block, v.dims[1]); y++ {
				for x := x0; x < min(x0+block, v.dims[0]); x++ {
					c := v.Center(x, y, z)
					var sum float64
					hash.ForEachCandidate(c, func(j int) {
						if j >= nFluid {
							return
						}
						sum += k.WDist2(r3.Norm2(r3.Sub(c, fluid[j])))
					})
					v.data[v.Index(x, y, z)] = particleVolume * sum
				}
			}
		}
	})
}

// Dispose releases the voxel buffer. Safe to call more than once.
func (v *Volume) Dispose() {
	if v == nil || v.disposed {
		return
	}
	v.disposed = true
	v.data = nil
}

// Disposed reports whether Dispose has been called.
func (v *Volume) Disposed() bool { return v.disposed }
