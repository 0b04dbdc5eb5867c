package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/fluid/particles"
)

func TestExampleConfigParses(t *testing.T) {
	plan, err := ParsePlan(ExampleConfig)
	require.NoError(t, err)

	assert.Equal(t, 0.2, plan.StartRadius)
	assert.Equal(t, 300, plan.Frames)
	assert.Equal(t, 1, plan.Runs)
	assert.Equal(t, "sweep", plan.Label)
	assert.Equal(t, "sweep_out", plan.Output)

	types, err := plan.FluidTypes()
	require.NoError(t, err)
	assert.Equal(t, []particles.FluidType{particles.PBD, particles.CSPH, particles.WCSPH}, types)

	assert.Equal(t, []float64{0.2, 0.175, 0.15, 0.125, 0.1, 0.075, 0.05}, plan.Radii())
}

func TestParsePlanOverrides(t *testing.T) {
	plan, err := ParsePlan(`[Sweep]
StartRadius = 0.1
MinRadius = 0.1
RadiusStep = 0.01
Frames = 10
Runs = 5
Type = wcsph
Type = PBD
MinFPS = 30
Output = out`)
	require.NoError(t, err)

	types, err := plan.FluidTypes()
	require.NoError(t, err)
	assert.Equal(t, []particles.FluidType{particles.WCSPH, particles.PBD}, types)
	assert.Equal(t, []float64{0.1}, plan.Radii())
	assert.Equal(t, 5, plan.Runs)
	assert.Equal(t, 30.0, plan.MinFPS)
	assert.Equal(t, "out", plan.Output)
}

func TestParsePlanInvalid(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"no frames", "[Sweep]\nStartRadius = 0.1\nMinRadius = 0.05\nRadiusStep = 0.01"},
		{"min above start", "[Sweep]\nStartRadius = 0.1\nMinRadius = 0.2\nRadiusStep = 0.01\nFrames = 1"},
		{"zero step", "[Sweep]\nStartRadius = 0.1\nMinRadius = 0.05\nFrames = 1"},
		{"bad type", "[Sweep]\nStartRadius = 0.1\nMinRadius = 0.05\nRadiusStep = 0.01\nFrames = 1\nType = FLIP"},
		{"zero runs", "[Sweep]\nStartRadius = 0.1\nMinRadius = 0.05\nRadiusStep = 0.01\nFrames = 1\nRuns = 0"},
		{"unknown variable", "[Sweep]\nStartRadius = 0.1\nMinRadius = 0.05\nRadiusStep = 0.01\nFrames = 1\nSeed = 4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePlan(tt.text)
			assert.Error(t, err)
		})
	}
}

func TestRunSweepSmall(t *testing.T) {
	plan, err := ParsePlan(`[Sweep]
StartRadius = 0.2
MinRadius = 0.15
RadiusStep = 0.05
Frames = 3
Runs = 3
Type = CSPH`)
	require.NoError(t, err)

	results, err := runSweep(plan)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "sweep_CSPH_r0.2", results[0].Label)
	assert.Equal(t, "CSPH", results[0].Type)
	assert.Equal(t, 3, results[0].Frames)
	assert.Equal(t, 0.15, results[1].ParticleRadius)
	assert.Greater(t, results[1].FluidParticles, results[0].FluidParticles)
}
