package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroups(t *testing.T) {
	tests := []struct {
		name       string
		n, threads int
		want       int
	}{
		{"empty", 0, 128, 0},
		{"negative", -5, 128, 0},
		{"one", 1, 128, 1},
		{"exact", 256, 128, 2},
		{"remainder", 257, 128, 3},
		{"zero threads", 5, 0, 5},
		{"volume axis", 17, 8, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Groups(tt.n, tt.threads); got != tt.want {
				t.Errorf("Groups(%d, %d) = %d, want %d", tt.n, tt.threads, got, tt.want)
			}
		})
	}
}

func TestForCoversEveryIndexOnce(t *testing.T) {
	pools := map[string]*Pool{
		"nil":    nil,
		"single": NewPool(1),
		"multi":  NewPool(4),
	}
	defer func() {
		for _, p := range pools {
			p.Close()
		}
	}()

	for name, p := range pools {
		t.Run(name, func(t *testing.T) {
			const n = 1000
			hits := make([]int32, n)
			err := p.For(n, ParticleThreads, func(start, end int) {
				for i := start; i < end; i++ {
					atomic.AddInt32(&hits[i], 1)
				}
			})
			require.NoError(t, err)
			for i, h := range hits {
				if h != 1 {
					t.Fatalf("index %d visited %d times", i, h)
				}
			}
		})
	}
}

func TestRunIsBarrier(t *testing.T) {
	p := NewPool(4)
	defer p.Close()

	const n = 4096
	a := make([]int, n)
	b := make([]int, n)

	require.NoError(t, p.For(n, 64, func(start, end int) {
		for i := start; i < end; i++ {
			a[i] = i
		}
	}))
	// Second pass reads a neighbour written by another batch.
	require.NoError(t, p.For(n, 64, func(start, end int) {
		for i := start; i < end; i++ {
			b[i] = a[(i+n/2)%n]
		}
	}))

	for i := range b {
		if b[i] != (i+n/2)%n {
			t.Fatalf("b[%d] = %d, want %d", i, b[i], (i+n/2)%n)
		}
	}
}

func TestRunRecoversPanic(t *testing.T) {
	p := NewPool(2)
	defer p.Close()

	var ran int32
	err := p.Run(8, func(g int) {
		atomic.AddInt32(&ran, 1)
		if g == 3 {
			panic("boom")
		}
	})
	require.ErrorIs(t, err, ErrPanic)
	assert.Equal(t, int32(8), atomic.LoadInt32(&ran))

	// Pool still usable afterwards.
	require.NoError(t, p.Run(8, func(int) {}))
}

func TestCloseIdempotent(t *testing.T) {
	p := NewPool(2)
	p.Close()
	p.Close()

	var nilPool *Pool
	nilPool.Close()
	assert.Equal(t, 1, nilPool.Workers())
}
