package main

import (
	"flag"
	"log/slog"
	"os"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fluid/config"
	"github.com/pthm-cable/fluid/particles"
	"github.com/pthm-cable/fluid/renderer"
	"github.com/pthm-cable/fluid/sim"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Int("stats-window", 0, "Stats window size in steps (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for particle snapshots taken at bookmarks")
	maxSteps := flag.Int("max-steps", 0, "Stop after N solver steps (0 = unlimited)")
	stepsPerUpdate := flag.Int("steps-per-update", 1, "Solver steps per update call")
	fluidType := flag.String("type", "", "Solver family: PBD, CSPH or WCSPH (empty = use config)")
	radius := flag.Float64("radius", 0, "Particle radius (0 = use config)")
	timeStep := flag.String("time-step", "", "dt divisor: fast, medium, slow or very_slow (empty = use config)")
	label := flag.String("label", "", "Label for the run result")
	verbose := flag.Bool("v", false, "Debug logging")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// CLI overrides
	if *fluidType != "" {
		t, err := particles.ParseFluidType(*fluidType)
		if err != nil {
			slog.Error("invalid -type", "error", err)
			os.Exit(1)
		}
		cfg.Fluid.Type = t
	}
	if *radius > 0 {
		cfg.Fluid.ParticleRadius = *radius
	}
	if *timeStep != "" {
		cfg.Fluid.TimeStep = config.TimeStep(*timeStep)
	}
	if *statsWindow > 0 {
		cfg.Telemetry.StatsWindow = *statsWindow
	}
	if err := cfg.Finalize(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	opts := sim.Options{
		LogStats:       *logStats,
		OutputDir:      *outputDir,
		SnapshotDir:    *snapshotDir,
		StepsPerUpdate: *stepsPerUpdate,
		Label:          *label,
	}

	if *headless {
		os.Exit(runHeadless(cfg, opts, *maxSteps))
	}
	os.Exit(runWindowed(cfg, opts, *maxSteps))
}

// runHeadless steps on the CPU without raylib and returns the exit code.
func runHeadless(cfg *config.Config, opts sim.Options, maxSteps int) int {
	s, err := sim.New(cfg, opts)
	if err != nil {
		slog.Error("failed to create simulation", "error", err)
		return 1
	}
	defer s.Unload()

	slog.Info("starting headless simulation",
		"type", cfg.Fluid.Type.String(),
		"radius", cfg.Fluid.ParticleRadius,
		"max_steps", maxSteps,
		"steps_per_update", opts.StepsPerUpdate,
	)

	for {
		if err := s.Update(); err != nil {
			slog.Error("simulation failed", "error", err, "step", s.Steps())
			return 1
		}
		if maxSteps > 0 && s.Steps() >= maxSteps {
			slog.Info("max steps reached", "steps", s.Steps(), "sim_time", s.SimTime())
			return 0
		}
	}
}

func runWindowed(cfg *config.Config, opts sim.Options, maxSteps int) int {
	rl.SetConfigFlags(rl.FlagMsaa4xHint | rl.FlagWindowResizable)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Fluid")
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))
	// Esc clears the particle selection.
	rl.SetExitKey(rl.KeyQ)

	s, err := sim.New(cfg, opts)
	if err != nil {
		slog.Error("failed to create simulation", "error", err)
		return 1
	}
	defer s.Unload()

	if err := renderer.NewViewer(s).Run(maxSteps); err != nil {
		slog.Error("simulation failed", "error", err, "step", s.Steps())
		return 1
	}
	return 0
}
