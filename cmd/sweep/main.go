// Sweep runs every solver family over a series of particle radii without a
// window and records averaged frame timings to results.csv.
//
// Usage: go run ./cmd/sweep -plan sweep.ini
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/pthm-cable/fluid/config"
	"github.com/pthm-cable/fluid/particles"
	"github.com/pthm-cable/fluid/sim"
	"github.com/pthm-cable/fluid/telemetry"
)

func main() {
	planPath := flag.String("plan", "", "Sweep plan file (gcfg/INI)")
	example := flag.Bool("example", false, "Print an example plan to stdout")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if *example {
		fmt.Println(ExampleConfig)
		return
	}
	if *planPath == "" {
		slog.Error("missing -plan (see -example)")
		os.Exit(2)
	}

	plan, err := ReadPlan(*planPath)
	if err != nil {
		slog.Error("invalid plan", "path", *planPath, "error", err)
		os.Exit(1)
	}

	results, err := runSweep(plan)
	if err != nil {
		slog.Error("sweep failed", "error", err)
	}

	out, oerr := telemetry.NewOutputManager(plan.Output)
	if oerr == nil {
		oerr = errors.Join(out.WriteResults(results...), out.Close())
	}
	if oerr != nil {
		slog.Error("failed to write results", "error", oerr)
	}
	if err != nil || oerr != nil {
		os.Exit(1)
	}
}

// runSweep returns one averaged result per (type, radius) point. A type
// stops early once it drops below MinFPS.
func runSweep(plan *SweepConfig) ([]telemetry.RunResult, error) {
	types, err := plan.FluidTypes()
	if err != nil {
		return nil, err
	}

	var results []telemetry.RunResult
	for _, t := range types {
		for _, radius := range plan.Radii() {
			label := fmt.Sprintf("%s_%s_r%g", plan.Label, t, radius)

			runs := make([]telemetry.RunResult, 0, plan.Runs)
			for i := 0; i < plan.Runs; i++ {
				r, err := runOnce(plan, t, radius, label)
				if err != nil {
					return results, fmt.Errorf("%s run %d: %w", label, i, err)
				}
				runs = append(runs, r)
			}

			avg := telemetry.AverageRuns(label, runs)
			slog.Info("sweep point", "result", avg)
			results = append(results, avg)

			if plan.MinFPS > 0 && avg.AvgFPS < plan.MinFPS {
				slog.Info("below min fps, next type", "type", t.String(), "radius", radius, "fps", avg.AvgFPS)
				break
			}
		}
	}
	return results, nil
}

func runOnce(plan *SweepConfig, t particles.FluidType, radius float64, label string) (telemetry.RunResult, error) {
	cfg, err := config.Load(plan.Config)
	if err != nil {
		return telemetry.RunResult{}, err
	}
	cfg.Fluid.Type = t
	cfg.Fluid.ParticleRadius = radius
	if err := cfg.Finalize(); err != nil {
		return telemetry.RunResult{}, err
	}

	s, err := sim.New(cfg, sim.Options{StepsPerUpdate: plan.StepsPerFrame, Label: label})
	if err != nil {
		return telemetry.RunResult{}, err
	}
	defer s.Unload()

	for f := 0; f < plan.Frames; f++ {
		if err := s.Update(); err != nil {
			return telemetry.RunResult{}, err
		}
	}
	return s.Result(), nil
}
