package main

import (
	"fmt"
	"math"
	"strings"

	"gopkg.in/gcfg.v1"

	"github.com/pthm-cable/fluid/particles"
)

// ExampleConfig is printed by -example.
const ExampleConfig = `[Sweep]

#######################
# Required Parameters #
#######################

# Radii run from StartRadius down to MinRadius in RadiusStep decrements.
StartRadius = 0.2
MinRadius   = 0.05
RadiusStep  = 0.025

# Frames (simulation updates) per run.
Frames = 300

#######################
# Optional Parameters #
#######################

# One line per solver family. All three when omitted.
# Type = PBD
# Type = CSPH
# Type = WCSPH

# Repeated runs per point, averaged with the first and last dropped.
# Runs = 3

# StepsPerFrame = 1

# Stop shrinking the radius for a type once its average FPS falls below this.
# MinFPS = 5

# Base YAML config; embedded defaults when empty.
# Config = config.yaml

# Directory for results.csv.
# Output = sweep_out
# Label = sweep`

// SweepConfig is the [Sweep] section of a plan file.
type SweepConfig struct {
	// Required
	StartRadius, MinRadius, RadiusStep float64
	Frames                             int

	// Optional
	Type          []string
	Runs          int
	StepsPerFrame int
	MinFPS        float64
	Config        string
	Output        string
	Label         string
}

// SweepWrapper mirrors the plan file's section layout.
type SweepWrapper struct {
	Sweep SweepConfig
}

// DefaultSweepWrapper holds the optional parameters' defaults.
func DefaultSweepWrapper() *SweepWrapper {
	con := SweepConfig{}
	con.Runs = 1
	con.StepsPerFrame = 1
	con.Output = "sweep_out"
	con.Label = "sweep"
	return &SweepWrapper{con}
}

func (con *SweepConfig) ValidRadii() bool {
	return con.StartRadius > 0 && con.MinRadius > 0 &&
		con.MinRadius <= con.StartRadius && con.RadiusStep > 0
}
func (con *SweepConfig) ValidFrames() bool {
	return con.Frames > 0
}
func (con *SweepConfig) ValidRuns() bool {
	return con.Runs > 0
}
func (con *SweepConfig) ValidStepsPerFrame() bool {
	return con.StepsPerFrame > 0
}

// Validate reports the first invalid parameter.
func (con *SweepConfig) Validate() error {
	switch {
	case !con.ValidRadii():
		return fmt.Errorf("need 0 < MinRadius <= StartRadius and RadiusStep > 0, got %g, %g, %g",
			con.MinRadius, con.StartRadius, con.RadiusStep)
	case !con.ValidFrames():
		return fmt.Errorf("invalid/non-existent 'Frames' value %d", con.Frames)
	case !con.ValidRuns():
		return fmt.Errorf("invalid 'Runs' value %d", con.Runs)
	case !con.ValidStepsPerFrame():
		return fmt.Errorf("invalid 'StepsPerFrame' value %d", con.StepsPerFrame)
	}
	_, err := con.FluidTypes()
	return err
}

// FluidTypes parses the Type lines, defaulting to every solver family.
func (con *SweepConfig) FluidTypes() ([]particles.FluidType, error) {
	if len(con.Type) == 0 {
		return []particles.FluidType{particles.PBD, particles.CSPH, particles.WCSPH}, nil
	}
	out := make([]particles.FluidType, 0, len(con.Type))
	for _, s := range con.Type {
		t, err := particles.ParseFluidType(strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Radii returns the radius series from StartRadius down to MinRadius.
func (con *SweepConfig) Radii() []float64 {
	if !con.ValidRadii() {
		return nil
	}
	var out []float64
	for i := 0; ; i++ {
		r := con.StartRadius - float64(i)*con.RadiusStep
		if r < con.MinRadius-1e-9 {
			return out
		}
		out = append(out, math.Round(r*1e9)/1e9)
	}
}

// ReadPlan loads and validates a plan file.
func ReadPlan(path string) (*SweepConfig, error) {
	wrap := DefaultSweepWrapper()
	if err := gcfg.ReadFileInto(wrap, path); err != nil {
		return nil, err
	}
	return &wrap.Sweep, wrap.Sweep.Validate()
}

// ParsePlan is ReadPlan for plan text.
func ParsePlan(text string) (*SweepConfig, error) {
	wrap := DefaultSweepWrapper()
	if err := gcfg.ReadStringInto(wrap, text); err != nil {
		return nil, err
	}
	return &wrap.Sweep, wrap.Sweep.Validate()
}
