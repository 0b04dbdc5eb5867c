package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fluid/particles"
)

func TestCollectorWindows(t *testing.T) {
	body, err := particles.NewFluidBody([]r3.Vec{{Y: 1}}, 0.1, 1, particles.CSPH)
	require.NoError(t, err)
	defer body.Dispose()

	c := NewCollector(3)
	var windows []WindowStats
	for i := 0; i < 7; i++ {
		c.RecordStep(0.01)
		if c.ShouldFlush() {
			windows = append(windows, c.Flush(body, nil))
		}
	}

	require.Len(t, windows, 2)
	assert.Equal(t, 0, windows[0].WindowStartStep)
	assert.Equal(t, 3, windows[0].WindowEndStep)
	assert.Equal(t, 3, windows[1].WindowStartStep)
	assert.Equal(t, 6, windows[1].WindowEndStep)
	assert.InDelta(t, 0.06, windows[1].SimTimeSec, 1e-12)
	assert.Equal(t, 7, c.Steps())

	c.Reset()
	assert.Zero(t, c.Steps())
	assert.Zero(t, c.SimTime())
	c.RecordStep(0.01)
	assert.False(t, c.ShouldFlush())
}

func TestCollectorDisabled(t *testing.T) {
	c := NewCollector(0)
	for i := 0; i < 10; i++ {
		c.RecordStep(1)
		assert.False(t, c.ShouldFlush())
	}
}
