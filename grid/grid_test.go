package grid

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fluid/parallel"
	"github.com/pthm-cable/fluid/simerr"
)

func randomPositions(rng *rand.Rand, n int, box r3.Box) []r3.Vec {
	size := box.Size()
	out := make([]r3.Vec, n)
	for i := range out {
		out[i] = r3.Vec{
			X: box.Min.X + rng.Float64()*size.X,
			Y: box.Min.Y + rng.Float64()*size.Y,
			Z: box.Min.Z + rng.Float64()*size.Z,
		}
	}
	return out
}

func TestNewValidation(t *testing.T) {
	unit := r3.Box{Max: r3.Vec{X: 1, Y: 1, Z: 1}}

	tests := []struct {
		name     string
		bounds   r3.Box
		total    int
		cellSize float64
		want     error
	}{
		{"zero cell", unit, 10, 0, simerr.ErrInvalidConfiguration},
		{"negative cell", unit, 10, -0.1, simerr.ErrInvalidConfiguration},
		{"nan cell", unit, 10, math.NaN(), simerr.ErrInvalidConfiguration},
		{"empty bounds", r3.Box{}, 10, 0.1, simerr.ErrInvalidConfiguration},
		{"flat bounds", r3.Box{Max: r3.Vec{X: 1, Y: 1}}, 10, 0.1, simerr.ErrInvalidConfiguration},
		{"inverted bounds", r3.Box{Min: r3.Vec{X: 1, Y: 1, Z: 1}}, 10, 0.1, simerr.ErrInvalidConfiguration},
		{"inf bounds", r3.Box{Max: r3.Vec{X: math.Inf(1), Y: 1, Z: 1}}, 10, 0.1, simerr.ErrInvalidConfiguration},
		{"no particles", unit, 0, 0.1, simerr.ErrResourceExhaustion},
		{"too many cells", r3.Box{Max: r3.Vec{X: 1e6, Y: 1e6, Z: 1e6}}, 10, 0.1, simerr.ErrResourceExhaustion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := New(tt.bounds, tt.total, tt.cellSize)
			require.ErrorIs(t, err, tt.want)
			assert.Nil(t, g)
		})
	}
}

func TestDims(t *testing.T) {
	g, err := New(r3.Box{Min: r3.Vec{X: -1}, Max: r3.Vec{X: 1, Y: 0.5, Z: 0.05}}, 1, 0.4)
	require.NoError(t, err)

	assert.Equal(t, [3]int{5, 2, 1}, g.Dims())
	assert.Equal(t, 10, g.NumCells())
	assert.InDelta(t, 2.5, g.InvCellSize(), 1e-12)
	assert.InDelta(t, 1.0, g.Bounds().Max.X, 1e-12)
	assert.InDelta(t, 0.8, g.Bounds().Max.Y, 1e-12)
}

func TestCellCoordClamps(t *testing.T) {
	g, err := New(r3.Box{Max: r3.Vec{X: 1, Y: 1, Z: 1}}, 1, 0.25)
	require.NoError(t, err)

	tests := []struct {
		name string
		p    r3.Vec
		want [3]int
	}{
		{"origin", r3.Vec{}, [3]int{0, 0, 0}},
		{"interior", r3.Vec{X: 0.3, Y: 0.6, Z: 0.99}, [3]int{1, 2, 3}},
		{"below", r3.Vec{X: -5, Y: -0.1, Z: -1e9}, [3]int{0, 0, 0}},
		{"above", r3.Vec{X: 5, Y: 1, Z: 1e9}, [3]int{3, 3, 3}},
		{"nan", r3.Vec{X: math.NaN(), Y: 0.5, Z: 0.5}, [3]int{0, 2, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.CellCoord(tt.p); got != tt.want {
				t.Errorf("CellCoord(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func checkPartition(t *testing.T, g *Grid) {
	t.Helper()

	seen := make([]bool, g.Total())
	var next int32
	for c, b := range g.Table() {
		if b.Offset != next {
			t.Fatalf("cell %d offset %d, want %d", c, b.Offset, next)
		}
		next += b.Count
		for _, j := range g.Cell(c) {
			if seen[j] {
				t.Fatalf("index %d appears twice", j)
			}
			seen[j] = true
			if h := g.Hash(g.Position(int(j))); h != c {
				t.Fatalf("index %d stored in cell %d, hashes to %d", j, c, h)
			}
		}
	}
	if int(next) != g.Total() {
		t.Fatalf("table covers %d entries, want %d", next, g.Total())
	}
	for i, ok := range seen {
		if !ok {
			t.Fatalf("index %d missing", i)
		}
	}
}

func TestProcessPartition(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	box := r3.Box{Min: r3.Vec{X: -2, Y: 0, Z: -1}, Max: r3.Vec{X: 2, Y: 3, Z: 1}}
	// Some particles stray outside the grid and must be clamped, not dropped.
	wide := r3.Box{Min: r3.Vec{X: -3, Y: -1, Z: -2}, Max: r3.Vec{X: 3, Y: 4, Z: 2}}
	fluid := randomPositions(rng, 700, wide)
	boundary := randomPositions(rng, 300, box)

	pool := parallel.NewPool(4)
	defer pool.Close()

	for _, p := range []*parallel.Pool{nil, pool} {
		g, err := New(box, len(fluid)+len(boundary), 0.4)
		require.NoError(t, err)
		g.SetPool(p)

		require.NoError(t, g.Process(fluid, boundary))
		checkPartition(t, g)
		assert.Equal(t, 700, g.NumFluid())
		assert.False(t, g.IsBoundary(699))
		assert.True(t, g.IsBoundary(700))

		// Rebuilding after motion keeps the permutation invariant.
		for i := range fluid {
			fluid[i].Y -= 0.37
		}
		require.NoError(t, g.Process(fluid, boundary))
		checkPartition(t, g)
	}
}

func TestProcessOrderIndependentBuckets(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	box := r3.Box{Max: r3.Vec{X: 2, Y: 2, Z: 2}}
	pos := randomPositions(rng, 200, box)

	a, err := New(box, len(pos), 0.5)
	require.NoError(t, err)
	require.NoError(t, a.Process(pos, nil))

	// Same positions, reversed input order.
	rev := make([]r3.Vec, len(pos))
	for i := range pos {
		rev[len(pos)-1-i] = pos[i]
	}
	b, err := New(box, len(rev), 0.5)
	require.NoError(t, err)
	require.NoError(t, b.Process(rev, nil))

	for c := range a.Table() {
		require.Equal(t, a.Table()[c].Count, b.Table()[c].Count, "cell %d", c)
		got := map[r3.Vec]bool{}
		for _, j := range b.Cell(c) {
			got[b.Position(int(j))] = true
		}
		for _, j := range a.Cell(c) {
			assert.True(t, got[a.Position(int(j))], "cell %d missing %v", c, a.Position(int(j)))
		}
	}
}

func checkCompleteness(t *testing.T, g *Grid, pos []r3.Vec, radius float64) {
	t.Helper()

	r2 := radius * radius
	for i, p := range pos {
		found := map[int]bool{}
		g.ForEachCandidate(p, func(j int) { found[j] = true })
		for j, q := range pos {
			if r3.Norm2(r3.Sub(p, q)) <= r2 && !found[j] {
				t.Fatalf("neighbour %d of %d (distance %v) not visited", j, i, r3.Norm(r3.Sub(p, q)))
			}
		}
	}
}

func TestNeighborCompleteness(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	box := r3.Box{Max: r3.Vec{X: 3, Y: 2, Z: 1.5}}
	pos := randomPositions(rng, 600, box)
	const h = 0.3

	for _, cell := range []float64{h, 2 * h} {
		g, err := New(box, len(pos), cell)
		require.NoError(t, err)
		require.NoError(t, g.Process(pos, nil))
		checkCompleteness(t, g, pos, h)
	}
}

func TestQueryRadiusInto(t *testing.T) {
	box := r3.Box{Max: r3.Vec{X: 1, Y: 1, Z: 1}}
	fluid := []r3.Vec{{X: 0.5, Y: 0.5, Z: 0.5}, {X: 0.6, Y: 0.5, Z: 0.5}, {X: 0.9, Y: 0.9, Z: 0.9}}
	boundary := []r3.Vec{{X: 0.5, Y: 0.3, Z: 0.5}}

	g, err := New(box, 4, 0.25)
	require.NoError(t, err)
	require.NoError(t, g.Process(fluid, boundary))

	got := g.QueryRadiusInto(nil, fluid[0], 0.25)
	idx := map[int]bool{}
	for _, n := range got {
		idx[n.Index] = true
		assert.InDelta(t, r3.Norm2(n.D), n.Dist2, 1e-12)
	}
	assert.Equal(t, map[int]bool{0: true, 1: true, 3: true}, idx)
}

func TestProcessErrors(t *testing.T) {
	g, err := New(r3.Box{Max: r3.Vec{X: 1, Y: 1, Z: 1}}, 2, 0.5)
	require.NoError(t, err)

	err = g.Process([]r3.Vec{{}}, nil)
	require.ErrorIs(t, err, simerr.ErrInvalidConfiguration)

	g.Dispose()
	g.Dispose()
	assert.True(t, g.Disposed())
	require.ErrorIs(t, g.Process([]r3.Vec{{}, {}}, nil), simerr.ErrDisposed)
}
