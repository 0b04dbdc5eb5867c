// Package grid provides the uniform spatial hash used for neighbour search.
//
// Each call to Process buckets every fluid and boundary particle into a
// fixed-resolution cell grid with a counting sort. Fluid particles use
// global indices [0, nFluid) and boundary particles [nFluid, total).
package grid

import (
	"fmt"
	"math"
	"sync/atomic"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fluid/parallel"
	"github.com/pthm-cable/fluid/simerr"
)

// MaxCells caps the cell table size.
const MaxCells = 1 << 26

// Bucket is one cell's slice of the index map.
type Bucket struct {
	Offset int32
	Count  int32
}

// Grid is a uniform cell grid over fixed bounds. The cell table and index
// map are rebuilt in place on every Process call.
type Grid struct {
	bounds      r3.Box // world-space, snapped to whole cells
	cellSize    float64
	invCellSize float64
	dims        [3]int
	strideY     int
	strideZ     int

	total    int
	numFluid int

	fluid    []r3.Vec
	boundary []r3.Vec

	cellOf   []int32  // cell of each particle, by global index
	cursor   []int32  // scatter cursors, one per cell
	table    []Bucket // (offset, count) per cell
	indexMap []int32  // global particle indices grouped by cell

	pool     *parallel.Pool
	disposed bool
}

// New allocates a grid covering bounds with cubic cells of cellSize, sized
// for total particles.
func New(bounds r3.Box, total int, cellSize float64) (*Grid, error) {
	if !(cellSize > 0) || math.IsInf(cellSize, 0) {
		return nil, fmt.Errorf("grid cell size %v: %w", cellSize, simerr.ErrInvalidConfiguration)
	}
	if !finite(bounds.Min) || !finite(bounds.Max) || bounds.Empty() {
		return nil, fmt.Errorf("grid bounds %v: %w", bounds, simerr.ErrInvalidConfiguration)
	}
	if total <= 0 {
		return nil, fmt.Errorf("grid for %d particles: %w", total, simerr.ErrResourceExhaustion)
	}

	inv := 1 / cellSize
	size := bounds.Size()
	var dims [3]int
	cells := 1.0
	for i, extent := range [3]float64{size.X, size.Y, size.Z} {
		n := math.Ceil(extent * inv)
		if n < 1 {
			n = 1
		}
		cells *= n
		if cells > MaxCells {
			return nil, fmt.Errorf("grid of %.0f+ cells exceeds %d: %w", cells, MaxCells, simerr.ErrResourceExhaustion)
		}
		dims[i] = int(n)
	}
	numCells := dims[0] * dims[1] * dims[2]

	g := &Grid{
		bounds: r3.Box{
			Min: bounds.Min,
			Max: r3.Add(bounds.Min, r3.Scale(cellSize, r3.Vec{X: float64(dims[0]), Y: float64(dims[1]), Z: float64(dims[2])})),
		},
		cellSize:    cellSize,
		invCellSize: inv,
		dims:        dims,
		strideY:     dims[0],
		strideZ:     dims[0] * dims[1],
		total:       total,
		cellOf:      make([]int32, total),
		cursor:      make([]int32, numCells),
		table:       make([]Bucket, numCells),
		indexMap:    make([]int32, total),
	}
	return g, nil
}

func finite(v r3.Vec) bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// SetPool sets the worker pool used by Process. nil runs inline.
func (g *Grid) SetPool(p *parallel.Pool) { g.pool = p }

// Bounds returns the world-space box covered by the cells.
func (g *Grid) Bounds() r3.Box { return g.bounds }

// CellSize returns the edge length of a cell.
func (g *Grid) CellSize() float64 { return g.cellSize }

// InvCellSize returns 1 / CellSize.
func (g *Grid) InvCellSize() float64 { return g.invCellSize }

// Dims returns the cell count along each axis.
func (g *Grid) Dims() [3]int { return g.dims }

// NumCells returns the total cell count.
func (g *Grid) NumCells() int { return len(g.table) }

// Total returns the particle capacity (fluid + boundary).
func (g *Grid) Total() int { return g.total }

// NumFluid returns the fluid count of the last Process call. Global indices
// below it are fluid particles.
func (g *Grid) NumFluid() int { return g.numFluid }

// Table returns the per-cell buckets from the last Process call.
func (g *Grid) Table() []Bucket { return g.table }

// IndexMap returns the particle indices grouped by cell.
func (g *Grid) IndexMap() []int32 { return g.indexMap }

// Position returns the position of a global particle index as seen by the
// last Process call.
func (g *Grid) Position(j int) r3.Vec {
	if j < g.numFluid {
		return g.fluid[j]
	}
	return g.boundary[j-g.numFluid]
}

// IsBoundary reports whether global index j is a boundary particle.
func (g *Grid) IsBoundary(j int) bool { return j >= g.numFluid }

// CellCoord returns the integer cell of p, clamped into the grid.
func (g *Grid) CellCoord(p r3.Vec) [3]int {
	return [3]int{
		clampCell((p.X-g.bounds.Min.X)*g.invCellSize, g.dims[0]),
		clampCell((p.Y-g.bounds.Min.Y)*g.invCellSize, g.dims[1]),
		clampCell((p.Z-g.bounds.Min.Z)*g.invCellSize, g.dims[2]),
	}
}

func clampCell(f float64, n int) int {
	// NaN falls through both comparisons and lands in cell 0.
	if !(f >= 0) {
		return 0
	}
	if f >= float64(n) {
		return n - 1
	}
	return int(f)
}

// CellIndex flattens a cell coordinate.
func (g *Grid) CellIndex(c [3]int) int {
	return c[0] + c[1]*g.strideY + c[2]*g.strideZ
}

// Hash returns the flat cell index of p.
func (g *Grid) Hash(p r3.Vec) int {
	return g.CellIndex(g.CellCoord(p))
}

// Cell returns the global particle indices stored in flat cell idx.
func (g *Grid) Cell(idx int) []int32 {
	b := g.table[idx]
	return g.indexMap[b.Offset : b.Offset+b.Count]
}

// Process rebuilds the cell table and index map from the given positions.
// The slices are retained until the next call for Position lookups.
func (g *Grid) Process(fluid, boundary []r3.Vec) error {
	if g.disposed {
		return fmt.Errorf("process on disposed grid: %w", simerr.ErrDisposed)
	}
	if n := len(fluid) + len(boundary); n != g.total {
		return fmt.Errorf("grid sized for %d particles, got %d: %w", g.total, n, simerr.ErrInvalidConfiguration)
	}

	g.fluid = fluid
	g.boundary = boundary
	g.numFluid = len(fluid)

	for i := range g.cursor {
		g.cursor[i] = 0
	}

	// Count.
	err := g.pool.For(g.total, parallel.ParticleThreads, func(start, end int) {
		for i := start; i < end; i++ {
			c := int32(g.Hash(g.Position(i)))
			g.cellOf[i] = c
			atomic.AddInt32(&g.cursor[c], 1)
		}
	})
	if err != nil {
		return fmt.Errorf("counting cells: %w", err)
	}

	// Prefix sum; cursor becomes the write position of each cell.
	var offset int32
	for c := range g.table {
		count := g.cursor[c]
		g.table[c] = Bucket{Offset: offset, Count: count}
		g.cursor[c] = offset
		offset += count
	}

	// Scatter.
	err = g.pool.For(g.total, parallel.ParticleThreads, func(start, end int) {
		for i := start; i < end; i++ {
			slot := atomic.AddInt32(&g.cursor[g.cellOf[i]], 1) - 1
			g.indexMap[slot] = int32(i)
		}
	})
	if err != nil {
		return fmt.Errorf("scattering cells: %w", err)
	}
	return nil
}

// ForEachInBlock calls fn for every particle stored in the 3×3×3 block of
// cells centred on c. Candidates are not distance-filtered.
func (g *Grid) ForEachInBlock(c [3]int, fn func(j int)) {
	x0, x1 := blockRange(c[0], g.dims[0])
	y0, y1 := blockRange(c[1], g.dims[1])
	z0, z1 := blockRange(c[2], g.dims[2])

	for z := z0; z <= z1; z++ {
		for y := y0; y <= y1; y++ {
			row := y*g.strideY + z*g.strideZ
			for x := x0; x <= x1; x++ {
				b := g.table[row+x]
				for _, j := range g.indexMap[b.Offset : b.Offset+b.Count] {
					fn(int(j))
				}
			}
		}
	}
}

func blockRange(c, n int) (int, int) {
	lo, hi := c-1, c+1
	if lo < 0 {
		lo = 0
	}
	if hi > n-1 {
		hi = n - 1
	}
	return lo, hi
}

// ForEachCandidate calls fn for every particle in the cell block around p.
func (g *Grid) ForEachCandidate(p r3.Vec, fn func(j int)) {
	g.ForEachInBlock(g.CellCoord(p), fn)
}

// Neighbor is a particle found by QueryRadiusInto.
type Neighbor struct {
	Index int
	D     r3.Vec  // query point minus neighbour position
	Dist2 float64 // squared distance
}

// QueryRadiusInto appends every particle within radius of p to dst. radius
// must not exceed the cell size. Reuse dst across calls to avoid
// allocations.
func (g *Grid) QueryRadiusInto(dst []Neighbor, p r3.Vec, radius float64) []Neighbor {
	r2 := radius * radius
	g.ForEachCandidate(p, func(j int) {
		d := r3.Sub(p, g.Position(j))
		if d2 := r3.Norm2(d); d2 <= r2 {
			dst = append(dst, Neighbor{Index: j, D: d, Dist2: d2})
		}
	})
	return dst
}

// Dispose releases the cell table and index map. It is safe to call more
// than once.
func (g *Grid) Dispose() {
	if g == nil || g.disposed {
		return
	}
	g.disposed = true
	g.cellOf = nil
	g.cursor = nil
	g.table = nil
	g.indexMap = nil
	g.fluid = nil
	g.boundary = nil
}

// Disposed reports whether Dispose has been called.
func (g *Grid) Disposed() bool { return g.disposed }
