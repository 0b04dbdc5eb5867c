package sim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fluid/config"
	"github.com/pthm-cable/fluid/particles"
	"github.com/pthm-cable/fluid/scene"
	"github.com/pthm-cable/fluid/simerr"
	"github.com/pthm-cable/fluid/telemetry"
)

// smallConfig is a 1 m box with a small block of fluid.
func smallConfig(t *testing.T, ft particles.FluidType) (*config.Config, *scene.Scene) {
	t.Helper()
	cfg := config.Default()
	cfg.Fluid.Type = ft
	cfg.Parallel.Workers = 2
	cfg.Telemetry.StatsWindow = 5
	cfg.Telemetry.PerfWindow = 10
	require.NoError(t, cfg.Finalize())

	sc := scene.New()
	sc.AddDomain(r3.Box{Max: r3.Vec{X: 1, Y: 1, Z: 1}}, scene.DefaultShellThickness, scene.DefaultBoundarySpacing)
	sc.AddFluid(r3.Box{Min: r3.Vec{X: 0.1, Y: 0.1, Z: 0.1}, Max: r3.Vec{X: 0.7, Y: 0.7, Z: 0.7}}, scene.DefaultFluidSpacing)
	return cfg, sc
}

func TestStepAndStats(t *testing.T) {
	for _, ft := range []particles.FluidType{particles.PBD, particles.WCSPH, particles.CSPH} {
		t.Run(ft.String(), func(t *testing.T) {
			cfg, sc := smallConfig(t, ft)

			var windows []telemetry.WindowStats
			s, err := NewWithScene(cfg, sc, Options{
				StepsPerUpdate: 2,
				StatsCallback:  func(w telemetry.WindowStats) { windows = append(windows, w) },
			})
			require.NoError(t, err)
			defer s.Unload()

			for i := 0; i < 5; i++ {
				require.NoError(t, s.Update())
			}

			assert.Equal(t, 10, s.Steps())
			assert.InDelta(t, 10*config.DefaultDT(ft), s.SimTime(), 1e-12)
			require.Len(t, windows, 2)
			assert.Equal(t, 5, windows[0].WindowEndStep)
			assert.Equal(t, 10, windows[1].WindowEndStep)
			assert.Equal(t, s.Body().NumParticles, windows[1].FluidParticles)
			assert.Zero(t, windows[1].Invalid)

			last, ok := s.LastStats()
			require.True(t, ok)
			assert.Equal(t, windows[1], last)

			perf := s.Perf().Stats()
			assert.Contains(t, perf.PhaseAvg, telemetry.PhaseSpatialHash)
			assert.Contains(t, perf.PhaseAvg, telemetry.PhaseIntegrate)
		})
	}
}

func TestPauseAndTimeStep(t *testing.T) {
	cfg, sc := smallConfig(t, particles.WCSPH)
	s, err := NewWithScene(cfg, sc, Options{})
	require.NoError(t, err)
	defer s.Unload()

	s.SetPaused(true)
	require.NoError(t, s.Update())
	assert.Zero(t, s.Steps())

	s.TogglePause()
	assert.False(t, s.Paused())

	s.SetTimeStep(config.VerySlow)
	assert.InDelta(t, 0.0008/8, s.DT(), 1e-15)
	require.NoError(t, s.Update())
	assert.InDelta(t, 0.0008/8, s.SimTime(), 1e-15)

	r := s.Result()
	assert.Equal(t, 2, r.Frames)
	assert.Equal(t, "WCSPH", r.Type)
	assert.Equal(t, s.Body().NumParticles, r.FluidParticles)
}

func TestSetFluidTypeRebuilds(t *testing.T) {
	cfg, sc := smallConfig(t, particles.WCSPH)
	s, err := NewWithScene(cfg, sc, Options{})
	require.NoError(t, err)
	defer s.Unload()

	require.NoError(t, s.Step())
	old := s.Body()

	require.NoError(t, s.SetFluidType(particles.PBD))
	assert.True(t, old.Disposed())
	_, ok := s.LastStats()
	assert.False(t, ok)
	assert.Equal(t, particles.PBD, s.Body().Type)
	assert.Equal(t, 1000.0, s.Body().Density)
	assert.Zero(t, s.Steps())
	require.NoError(t, s.Step())

	require.ErrorIs(t, s.SetFluidType(particles.FluidType(9)), simerr.ErrInvalidConfiguration)
}

func TestVolumeEnabled(t *testing.T) {
	cfg, sc := smallConfig(t, particles.PBD)
	cfg.Volume.Enabled = true
	cfg.Volume.VoxelScale = 2
	require.NoError(t, cfg.Finalize())

	s, err := NewWithScene(cfg, sc, Options{})
	require.NoError(t, err)
	defer s.Unload()

	require.NotNil(t, s.Volume())
	require.NoError(t, s.Step())
	assert.Greater(t, s.Volume().Max(), 0.0)
}

func TestOutputAndUnload(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	cfg, sc := smallConfig(t, particles.CSPH)

	s, err := NewWithScene(cfg, sc, Options{OutputDir: dir, Label: "unit"})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Update())
	}

	require.NoError(t, s.Unload())
	require.NoError(t, s.Unload())
	assert.True(t, s.Body().Disposed())
	require.ErrorIs(t, s.Step(), simerr.ErrDisposed)

	for _, name := range []string{"config.yaml", "telemetry.csv", "perf.csv", "results.csv"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.NotEmpty(t, data, name)
	}
	results, err := os.ReadFile(filepath.Join(dir, "results.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(results), "unit,CSPH")
}

func TestNewErrors(t *testing.T) {
	_, err := NewWithScene(nil, scene.New(), Options{})
	require.ErrorIs(t, err, simerr.ErrInvalidConfiguration)

	cfg, _ := smallConfig(t, particles.PBD)
	_, err = NewWithScene(cfg, scene.New(), Options{})
	require.ErrorIs(t, err, simerr.ErrInvalidConfiguration)
}

func TestSaveSnapshot(t *testing.T) {
	cfg, sc := smallConfig(t, particles.PBD)
	s, err := NewWithScene(cfg, sc, Options{})
	require.NoError(t, err)

	require.NoError(t, s.Update())
	path, err := s.SaveSnapshot(t.TempDir())
	require.NoError(t, err)

	snap, err := telemetry.LoadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Step)
	assert.Equal(t, particles.PBD, snap.Type)
	assert.Len(t, snap.Particles, s.Body().NumParticles)
	assert.Equal(t, s.Body().Positions[0].Y, snap.Particles[0].Position[1])

	require.NoError(t, s.Unload())
	_, err = s.SaveSnapshot(t.TempDir())
	require.ErrorIs(t, err, simerr.ErrDisposed)
}
