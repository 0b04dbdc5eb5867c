package volume

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fluid/grid"
	"github.com/pthm-cable/fluid/kernel"
	"github.com/pthm-cable/fluid/parallel"
	"github.com/pthm-cable/fluid/simerr"
)

func TestNewValidation(t *testing.T) {
	unit := r3.Box{Max: r3.Vec{X: 1, Y: 1, Z: 1}}

	tests := []struct {
		name   string
		bounds r3.Box
		voxel  float64
		want   error
	}{
		{"zero voxel", unit, 0, simerr.ErrInvalidConfiguration},
		{"nan voxel", unit, math.NaN(), simerr.ErrInvalidConfiguration},
		{"empty bounds", r3.Box{}, 0.1, simerr.ErrInvalidConfiguration},
		{"too many voxels", r3.Box{Max: r3.Vec{X: 100, Y: 100, Z: 100}}, 0.01, simerr.ErrResourceExhaustion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := New(tt.bounds, tt.voxel)
			require.ErrorIs(t, err, tt.want)
			assert.Nil(t, v)
		})
	}
}

func TestDimsAndCenters(t *testing.T) {
	v, err := New(r3.Box{Min: r3.Vec{X: -1}, Max: r3.Vec{X: 1, Y: 0.25, Z: 0.01}}, 0.1)
	require.NoError(t, err)

	assert.Equal(t, [3]int{20, 3, 1}, v.Dims())
	assert.Len(t, v.Data(), 60)
	c := v.Center(0, 2, 0)
	assert.InDelta(t, -0.95, c.X, 1e-12)
	assert.InDelta(t, 0.25, c.Y, 1e-12)
	assert.Equal(t, 1+20*2, v.Index(1, 2, 0))
}

func TestFill(t *testing.T) {
	const r = 0.1
	k, err := kernel.ForParticle(r)
	require.NoError(t, err)

	fluid := []r3.Vec{{X: 0.5, Y: 0.5, Z: 0.5}, {X: 0.55, Y: 0.5, Z: 0.5}}
	boundary := []r3.Vec{{X: 0.5, Y: 0.45, Z: 0.5}}
	bounds := r3.Box{Max: r3.Vec{X: 1.2, Y: 1.2, Z: 1.2}}

	hash, err := grid.New(bounds, len(fluid)+len(boundary), k.Radius)
	require.NoError(t, err)
	require.NoError(t, hash.Process(fluid, boundary))

	pool := parallel.NewPool(3)
	defer pool.Close()

	for _, p := range []*parallel.Pool{nil, pool} {
		v, err := New(hash.Bounds(), r)
		require.NoError(t, err)
		v.SetPool(p)

		const pv = 2.0
		require.NoError(t, v.Fill(hash, fluid, k, pv))

		dims := v.Dims()
		for z := 0; z < dims[2]; z++ {
			for y := 0; y < dims[1]; y++ {
				for x := 0; x < dims[0]; x++ {
					c := v.Center(x, y, z)
					want := pv * (k.W(r3.Sub(c, fluid[0])) + k.W(r3.Sub(c, fluid[1])))
					if got := v.At(x, y, z); math.Abs(got-want) > 1e-9 {
						t.Fatalf("voxel (%d,%d,%d) = %v, want %v", x, y, z, got, want)
					}
				}
			}
		}
		assert.Greater(t, v.Max(), 0.0)
	}
}

func TestFillBatch(t *testing.T) {
	const r = 0.05
	k, err := kernel.ForParticle(r)
	require.NoError(t, err)

	var fluid []r3.Vec
	for i := 0; i < 40; i++ {
		f := float64(i)
		fluid = append(fluid, r3.Vec{X: 0.1 + 0.02*f, Y: 0.2 + 0.015*f, Z: 0.5 - 0.01*f})
	}
	hash, err := grid.New(r3.Box{Max: r3.Vec{X: 1, Y: 1, Z: 1}}, len(fluid), k.Radius)
	require.NoError(t, err)
	require.NoError(t, hash.Process(fluid, nil))

	pool := parallel.NewPool(4)
	defer pool.Close()

	fill := func(batch int) []float64 {
		v, err := New(hash.Bounds(), r)
		require.NoError(t, err)
		v.SetPool(pool)
		v.SetBatch(batch)
		require.NoError(t, v.Fill(hash, fluid, k, 1))
		return v.Data()
	}

	want := fill(0)
	for _, batch := range []int{1, 3, 8, 1000} {
		assert.Equal(t, want, fill(batch), "batch %d", batch)
	}
}

func TestFillErrors(t *testing.T) {
	k, err := kernel.ForParticle(0.1)
	require.NoError(t, err)
	bounds := r3.Box{Max: r3.Vec{X: 1, Y: 1, Z: 1}}

	hash, err := grid.New(bounds, 2, k.Radius)
	require.NoError(t, err)
	require.NoError(t, hash.Process([]r3.Vec{{}, {X: 0.5}}, nil))

	v, err := New(bounds, 0.25)
	require.NoError(t, err)

	require.ErrorIs(t, v.Fill(nil, nil, k, 1), simerr.ErrInvalidConfiguration)
	require.ErrorIs(t, v.Fill(hash, []r3.Vec{{}}, k, 1), simerr.ErrInvalidConfiguration)

	v.Dispose()
	v.Dispose()
	assert.True(t, v.Disposed())
	require.ErrorIs(t, v.Fill(hash, []r3.Vec{{}, {X: 0.5}}, k, 1), simerr.ErrDisposed)
}
