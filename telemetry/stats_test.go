package telemetry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fluid/particles"
)

func TestDistribution(t *testing.T) {
	values := []float64{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}
	mean, std, p10, p50, p90 := Distribution(values)

	assert.InDelta(t, 5.5, mean, 1e-9)
	assert.InDelta(t, math.Sqrt(55.0/6.0), std, 1e-9) // sample std of 1..10
	assert.Equal(t, 1.0, p10)
	assert.Equal(t, 5.0, p50)
	assert.LessOrEqual(t, p50, p90)
	assert.True(t, values[0] < values[9], "values are sorted in place")
}

func TestDistributionEdgeCases(t *testing.T) {
	mean, std, p10, p50, p90 := Distribution(nil)
	assert.Zero(t, mean+std+p10+p50+p90)

	mean, std, _, p50, _ = Distribution([]float64{4})
	assert.Equal(t, 4.0, mean)
	assert.Zero(t, std)
	assert.Equal(t, 4.0, p50)
}

func TestComputeStats(t *testing.T) {
	pos := []r3.Vec{{Y: 1}, {X: 1, Y: 3}}
	body, err := particles.NewFluidBody(pos, 0.1, 1000, particles.WCSPH)
	require.NoError(t, err)
	body.Densities[0] = 1000
	body.Densities[1] = 500
	body.Pressures[1] = 42
	body.VelocitiesSPH[1] = r3.Vec{Y: -2}

	bnd, err := particles.NewFluidBoundary([]r3.Vec{{}, {X: 1}, {X: 2}}, 0.1, 1000)
	require.NoError(t, err)

	s := ComputeStats(body, bnd, 0, 60, 0.5)

	assert.Equal(t, 2, s.FluidParticles)
	assert.Equal(t, 3, s.BoundaryParticles)
	assert.Equal(t, 60, s.WindowEndStep)
	assert.InDelta(t, 0.75, s.DensityMean, 1e-12)
	assert.Equal(t, 42.0, s.PressureMax)
	assert.InDelta(t, 2.0, s.SpeedMax, 1e-12)
	assert.InDelta(t, 1.0, s.SpeedMean, 1e-12)
	assert.InDelta(t, 0.5*body.ParticleMass*4, s.KineticEnergy, 1e-12)
	assert.InDelta(t, 2.0, s.CentroidY, 1e-12)
	assert.InDelta(t, 1.0, s.MinY, 1e-12)
	assert.Zero(t, s.Invalid)
}

func TestComputeStatsCountsInvalid(t *testing.T) {
	body, err := particles.NewFluidBody([]r3.Vec{{}, {Y: 2}}, 0.1, 1, particles.CSPH)
	require.NoError(t, err)
	body.Positions[0] = r3.Vec{X: math.NaN()}

	s := ComputeStats(body, nil, 0, 1, 0)
	assert.Equal(t, 1, s.Invalid)
	assert.InDelta(t, 2.0, s.CentroidY, 1e-12)
}

func TestComputeStatsDisposed(t *testing.T) {
	body, err := particles.NewFluidBody([]r3.Vec{{}}, 0.1, 1, particles.PBD)
	require.NoError(t, err)
	body.Dispose()

	s := ComputeStats(body, nil, 0, 1, 0)
	assert.Zero(t, s.FluidParticles)
}

func TestAverageRuns(t *testing.T) {
	runs := []RunResult{
		{Type: "PBD", FluidParticles: 100, AvgFPS: 10, Frames: 10, Duration: 1},
		{Type: "PBD", FluidParticles: 100, AvgFPS: 60, Frames: 60, Duration: 1},
		{Type: "PBD", FluidParticles: 100, AvgFPS: 40, Frames: 40, Duration: 1},
		{Type: "PBD", FluidParticles: 100, AvgFPS: 1000, Frames: 1000, Duration: 1},
	}

	avg := AverageRuns("r=0.1", runs)
	assert.Equal(t, "r=0.1", avg.Label)
	assert.Equal(t, 100, avg.FluidParticles)
	assert.InDelta(t, 50.0, avg.AvgFPS, 1e-12)
	assert.Equal(t, 50, avg.Frames)

	two := AverageRuns("two", runs[:2])
	assert.InDelta(t, 35.0, two.AvgFPS, 1e-12)

	assert.Equal(t, RunResult{Label: "none"}, AverageRuns("none", nil))
}
