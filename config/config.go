// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/fluid/kernel"
	"github.com/pthm-cable/fluid/particles"
	"github.com/pthm-cable/fluid/simerr"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	Fluid     FluidConfig     `yaml:"fluid"`
	Solver    SolverConfig    `yaml:"solver"`
	Parallel  ParallelConfig  `yaml:"parallel"`
	Scene     SceneConfig     `yaml:"scene"`
	Volume    VolumeConfig    `yaml:"volume"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// FluidConfig describes the fluid body.
type FluidConfig struct {
	Type            particles.FluidType `yaml:"type"`
	ParticleRadius  float64             `yaml:"particle_radius"`
	Density         float64             `yaml:"density"`          // 0 = per-type default
	BoundaryDensity float64             `yaml:"boundary_density"` // 0 = fluid density
	Viscosity       float64             `yaml:"viscosity"`
	Dampning        float64             `yaml:"dampning"`
	TimeStep        TimeStep            `yaml:"time_step"`
	DT              float64             `yaml:"dt"` // 0 = per-type default
}

// SPHConfig tunes one of the force-based solvers.
type SPHConfig struct {
	GasConstant      float64 `yaml:"gas_constant"`
	RestDensityScale float64 `yaml:"rest_density_scale"`
	Viscosity        float64 `yaml:"viscosity"` // negative = fluid viscosity
}

// PBDConfig tunes the position-based solver.
type PBDConfig struct {
	SolverIterations     int     `yaml:"solver_iterations"`
	ConstraintIterations int     `yaml:"constraint_iterations"`
	LambdaEpsilon        float64 `yaml:"lambda_epsilon"`
	CollisionPush        float64 `yaml:"collision_push"`
}

// SolverConfig holds per-solver tuning.
type SolverConfig struct {
	Gravity []float64 `yaml:"gravity"`
	WCSPH   SPHConfig `yaml:"wcsph"`
	CSPH    SPHConfig `yaml:"csph"`
	PBD     PBDConfig `yaml:"pbd"`
}

// ParallelConfig sizes the worker pool and dispatch batches.
type ParallelConfig struct {
	Workers       int `yaml:"workers"` // 0 = GOMAXPROCS
	ParticleBatch int `yaml:"particle_batch"`
	VolumeBatch   int `yaml:"volume_batch"`
}

// BoxConfig is an axis-aligned box given by centre and full size.
type BoxConfig struct {
	Center []float64 `yaml:"center"`
	Size   []float64 `yaml:"size"`
}

// Box converts the config into an r3.Box.
func (b BoxConfig) Box() r3.Box {
	return particles.CenteredBox(vec(b.Center), vec(b.Size))
}

// SceneConfig lays out the simulation domain, fluid spawn volumes and
// obstacles. Spacing and thickness factors are multiples of the particle
// radius.
type SceneConfig struct {
	Bounds          BoxConfig   `yaml:"bounds"`
	Fluid           []BoxConfig `yaml:"fluid"`
	Obstacles       []BoxConfig `yaml:"obstacles"`
	ShellThickness  float64     `yaml:"shell_thickness"`
	BoundarySpacing float64     `yaml:"boundary_spacing"`
	FluidSpacing    float64     `yaml:"fluid_spacing"`
	ObstacleSpacing float64     `yaml:"obstacle_spacing"`
}

// VolumeConfig controls the density voxel volume.
type VolumeConfig struct {
	Enabled    bool    `yaml:"enabled"`
	VoxelScale float64 `yaml:"voxel_scale"` // voxel size = radius * scale
	IsoLevel   float64 `yaml:"iso_level"`
}

// TelemetryConfig holds telemetry and logging parameters.
type TelemetryConfig struct {
	StatsWindow int `yaml:"stats_window"` // steps per stats record
	PerfWindow  int `yaml:"perf_window"`  // steps in the perf rolling window
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Density         float64 // effective fluid rest density
	BoundaryDensity float64
	KernelRadius    float64 // h = 4r
	CellSize        float64
	BaseDT          float64 // effective dt before the time step factor
	StepDT          float64 // dt advanced per simulation step
	Gravity         r3.Vec
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load reads a YAML file over the embedded defaults. Fields missing from
// the file keep their default. If path is empty only the defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the embedded defaults. It panics if they do not parse.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// Finalize validates the config and recomputes derived values. Call it
// after changing fields by hand.
func (c *Config) Finalize() error {
	if err := c.validate(); err != nil {
		return err
	}
	c.computeDerived()
	return nil
}

func (c *Config) validate() error {
	f := c.Fluid
	switch {
	case !f.Type.Valid():
		return fmt.Errorf("fluid.type %v: %w", f.Type, simerr.ErrInvalidConfiguration)
	case !(f.ParticleRadius > 0):
		return fmt.Errorf("fluid.particle_radius %v: %w", f.ParticleRadius, simerr.ErrInvalidConfiguration)
	case f.Density < 0 || f.BoundaryDensity < 0 || f.DT < 0:
		return fmt.Errorf("fluid density, boundary_density and dt must not be negative: %w", simerr.ErrInvalidConfiguration)
	}
	if _, err := ParseTimeStep(string(f.TimeStep)); err != nil {
		return err
	}
	if n := len(c.Solver.Gravity); n != 0 && n != 3 {
		return fmt.Errorf("solver.gravity has %d components: %w", n, simerr.ErrInvalidConfiguration)
	}
	if c.Volume.Enabled && !(c.Volume.VoxelScale > 0) {
		return fmt.Errorf("volume.voxel_scale %v: %w", c.Volume.VoxelScale, simerr.ErrInvalidConfiguration)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	f := c.Fluid

	c.Derived.Density = f.Density
	if c.Derived.Density == 0 {
		c.Derived.Density = DefaultDensity(f.Type)
	}
	c.Derived.BoundaryDensity = f.BoundaryDensity
	if c.Derived.BoundaryDensity == 0 {
		c.Derived.BoundaryDensity = c.Derived.Density
	}

	c.Derived.KernelRadius = f.ParticleRadius * kernel.RadiusScale
	c.Derived.CellSize = c.Derived.KernelRadius

	c.Derived.BaseDT = f.DT
	if c.Derived.BaseDT == 0 {
		c.Derived.BaseDT = DefaultDT(f.Type)
	}
	step, _ := ParseTimeStep(string(f.TimeStep))
	c.Derived.StepDT = c.Derived.BaseDT / step.Factor()

	c.Derived.Gravity = vec(c.Solver.Gravity)
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// DefaultDensity is the rest density used when fluid.density is 0.
func DefaultDensity(t particles.FluidType) float64 {
	if t == particles.PBD {
		return 1000
	}
	return 1
}

// DefaultDT is the timestep used when fluid.dt is 0.
func DefaultDT(t particles.FluidType) float64 {
	if t == particles.PBD {
		return 0.005
	}
	return 0.0008
}

// TimeStep slows the simulation down by dividing dt.
type TimeStep string

const (
	Fast     TimeStep = "fast"
	Medium   TimeStep = "medium"
	Slow     TimeStep = "slow"
	VerySlow TimeStep = "very_slow"
)

// TimeSteps lists the selectable steps from fastest to slowest.
var TimeSteps = []TimeStep{Fast, Medium, Slow, VerySlow}

// ParseTimeStep accepts a time step name; empty means Fast.
func ParseTimeStep(s string) (TimeStep, error) {
	if s == "" {
		return Fast, nil
	}
	ts := TimeStep(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range TimeSteps {
		if ts == known {
			return ts, nil
		}
	}
	return "", fmt.Errorf("unknown time step %q: %w", s, simerr.ErrInvalidConfiguration)
}

// Factor is the dt divisor: 1, 2, 4 or 8.
func (t TimeStep) Factor() float64 {
	switch t {
	case Medium:
		return 2
	case Slow:
		return 4
	case VerySlow:
		return 8
	default:
		return 1
	}
}

func vec(v []float64) r3.Vec {
	var out r3.Vec
	if len(v) > 0 {
		out.X = v[0]
	}
	if len(v) > 1 {
		out.Y = v[1]
	}
	if len(v) > 2 {
		out.Z = v[2]
	}
	return out
}
