package renderer

import (
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fluid/camera"
	"github.com/pthm-cable/fluid/components"
	"github.com/pthm-cable/fluid/inspector"
	"github.com/pthm-cable/fluid/sim"
	"github.com/pthm-cable/fluid/ui"
)

// Mouse sensitivities.
const (
	orbitSpeed = 0.005 // radians per pixel
	panSpeed   = 0.0015
	zoomStep   = 1.1

	// A left press and release closer than this, in pixels, is a click.
	clickSlop = 3
)

const legend = "[Space] pause  [Right] step  [R] reset  [C] camera  [P] snapshot  [Tab] panel  [Q] quit  LMB orbit/select  RMB pan  wheel zoom"

// Where [P] writes snapshots.
const snapshotDir = "snapshots"

// Viewer runs a simulation inside a raylib window: camera input, the
// controls panel and all drawing. The window must already be open.
type Viewer struct {
	sim      *sim.Simulation
	cam      *camera.Camera
	fluid    *FluidRenderer
	overlays *ui.OverlayRegistry
	controls *ui.ControlsPanel
	hud      *ui.HUD
	perf     *ui.PerfPanel

	inspector *inspector.Inspector
	inspect   *ui.InspectorPanel

	// Clicked during the last Draw, applied on the next Update.
	pending ui.ControlActions

	dragging bool
	pressAt  rl.Vector2
}

// NewViewer creates a viewer for s with the camera framing its domain.
func NewViewer(s *sim.Simulation) *Viewer {
	return &Viewer{
		sim:      s,
		cam:      camera.New(viewBounds(s)),
		fluid:    NewFluidRenderer(),
		overlays: ui.NewOverlayRegistry(),
		controls: ui.NewControlsPanel(10, 10, 240),
		hud:      ui.NewHUD(),
		perf:     ui.NewPerfPanel(),

		inspector: inspector.New(),
		inspect:   ui.NewInspectorPanel(),
	}
}

// viewBounds is the scene domain, or the hash bounds of a scene without
// walls.
func viewBounds(s *sim.Simulation) r3.Box {
	if d := s.Scene().Domain(); d != (r3.Box{}) {
		return d
	}
	return s.Solver().Hash().Bounds()
}

// Camera returns the viewer's camera.
func (v *Viewer) Camera() *camera.Camera { return v.cam }

// Overlays returns the overlay registry.
func (v *Viewer) Overlays() *ui.OverlayRegistry { return v.overlays }

// Update handles input, applies panel actions and advances the simulation.
func (v *Viewer) Update() error {
	v.handleInput()

	act := v.pending
	v.pending = ui.ControlActions{}
	if err := v.apply(act); err != nil {
		return err
	}
	return v.sim.Update()
}

func (v *Viewer) handleInput() {
	var act ui.ControlActions
	if rl.IsKeyPressed(rl.KeySpace) {
		act.TogglePause = true
	}
	if rl.IsKeyPressed(rl.KeyRight) && v.sim.Paused() {
		act.Step = true
	}
	if rl.IsKeyPressed(rl.KeyR) {
		act.Reset = true
	}
	if rl.IsKeyPressed(rl.KeyC) {
		act.ResetCamera = true
	}
	if rl.IsKeyPressed(rl.KeyEscape) {
		v.inspector.Deselect()
	}
	if rl.IsKeyPressed(rl.KeyTab) {
		v.controls.Toggle()
	}
	if rl.IsKeyPressed(rl.KeyP) {
		if path, err := v.sim.SaveSnapshot(snapshotDir); err != nil {
			slog.Error("failed to save snapshot", "error", err)
		} else {
			slog.Info("snapshot saved", "path", path)
		}
	}
	for _, key := range v.overlays.Keys() {
		if rl.IsKeyPressed(key) {
			if id, on, ok := v.overlays.HandleKeyPress(key); ok {
				slog.Debug("overlay toggled", "overlay", id, "enabled", on)
			}
		}
	}
	v.pending = merge(v.pending, act)

	v.handleCameraInput()
	v.handleSelection()
}

// handleSelection picks a particle on a left click that did not drag.
func (v *Viewer) handleSelection() {
	mouse := rl.GetMousePosition()
	if rl.IsMouseButtonPressed(rl.MouseButtonLeft) {
		v.pressAt = mouse
	}
	if !rl.IsMouseButtonReleased(rl.MouseButtonLeft) || rl.Vector2Distance(mouse, v.pressAt) > clickSlop {
		return
	}
	if v.controls.Contains(mouse, v.controlState(), v.overlays) {
		return
	}
	w, h := float64(rl.GetScreenWidth()), float64(rl.GetScreenHeight())
	if v.inspector.Pick(v.cam, v.sim.Body(), float64(mouse.X), float64(mouse.Y), w, h) {
		i, _ := v.inspector.Selected()
		slog.Debug("particle selected", "index", i)
	}
}

func (v *Viewer) handleCameraInput() {
	mouse := rl.GetMousePosition()
	anyDown := rl.IsMouseButtonDown(rl.MouseButtonLeft) || rl.IsMouseButtonDown(rl.MouseButtonRight)
	if !anyDown {
		v.dragging = false
	} else if !v.dragging && !v.controls.Contains(mouse, v.controlState(), v.overlays) {
		v.dragging = true
	}

	if v.dragging {
		d := rl.GetMouseDelta()
		if rl.IsMouseButtonDown(rl.MouseButtonLeft) {
			v.cam.Orbit(-float64(d.X)*orbitSpeed, float64(d.Y)*orbitSpeed)
		} else {
			scale := panSpeed * v.cam.Distance
			v.cam.Pan(-float64(d.X)*scale, float64(d.Y)*scale)
		}
	}

	if wheel := rl.GetMouseWheelMove(); wheel != 0 && !v.controls.Contains(mouse, v.controlState(), v.overlays) {
		if wheel > 0 {
			v.cam.ZoomBy(zoomStep)
		} else {
			v.cam.ZoomBy(1 / zoomStep)
		}
	}
}

// apply carries out panel and key actions.
func (v *Viewer) apply(act ui.ControlActions) error {
	if !act.Any() {
		return nil
	}
	s := v.sim

	if act.TogglePause {
		s.TogglePause()
	}
	if act.ResetCamera {
		v.cam.Reset()
	}
	if act.TimeStep != "" {
		s.SetTimeStep(act.TimeStep)
		slog.Info("time step changed", "time_step", act.TimeStep, "dt", s.DT())
	}
	if act.SetIso {
		s.Config().Volume.IsoLevel = act.IsoLevel
	}

	var err error
	switch {
	case act.SetType:
		err = s.SetFluidType(act.Type)
	case act.Radius > 0:
		err = s.SetRadius(act.Radius)
		v.controls.SyncRadius(s.Config().Fluid.ParticleRadius)
	case act.Reset:
		err = s.Rebuild()
	}
	if err != nil {
		return err
	}

	if act.Step && s.Paused() {
		return s.Step()
	}
	return nil
}

func (v *Viewer) controlState() ui.ControlState {
	cfg := v.sim.Config()
	return ui.ControlState{
		Paused:        v.sim.Paused(),
		Type:          cfg.Fluid.Type,
		TimeStep:      v.sim.TimeStep(),
		Radius:        cfg.Fluid.ParticleRadius,
		VolumeEnabled: v.sim.Volume() != nil,
		IsoLevel:      cfg.Volume.IsoLevel,
	}
}

// Draw renders one frame.
func (v *Viewer) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(rl.Color{R: 14, G: 16, B: 20, A: 255})

	sample, selected := v.inspector.Sample(v.sim.Body())

	rl.BeginMode3D(v.camera3D())
	v.drawWorld()
	if selected {
		v.fluid.DrawSelection(sample.Position, v.sim.Body().ParticleRadius)
	}
	rl.EndMode3D()

	v.drawPanels()
	if selected {
		v.inspect.Draw(sample)
	}
	rl.EndDrawing()
}

func (v *Viewer) drawWorld() {
	s := v.sim
	o := v.overlays

	if o.IsEnabled(ui.OverlayFloor) {
		rl.DrawGrid(20, 0.5)
	}
	if o.IsEnabled(ui.OverlayBounds) {
		if d := s.Scene().Domain(); d != (r3.Box{}) {
			v.fluid.DrawBounds(d)
		}
	}
	if o.IsEnabled(ui.OverlayObstacles) {
		v.fluid.DrawObstacles(s.Scene().Volumes(components.KindObstacle))
	}
	if o.IsEnabled(ui.OverlayBoundary) {
		v.fluid.DrawBoundary(s.Boundary(), v.cam)
	}
	if o.IsEnabled(ui.OverlayGrid) {
		v.fluid.DrawOccupiedCells(s.Solver().Hash())
	}
	if o.IsEnabled(ui.OverlayFluid) {
		v.fluid.DrawFluid(s.Body(), v.colorMode(), v.cam)
	}
	if o.IsEnabled(ui.OverlayVolume) {
		v.fluid.DrawVolume(s.Volume(), s.Config().Volume.IsoLevel)
	}
}

func (v *Viewer) drawPanels() {
	s := v.sim

	if v.overlays.IsEnabled(ui.OverlayHUD) {
		stats, ok := s.LastStats()
		body := s.Body()
		v.hud.Draw(ui.HUDData{
			Type:     body.Type.String(),
			Fluid:    body.NumParticles,
			Boundary: s.Boundary().NumParticles,
			Steps:    s.Steps(),
			SimTime:  s.SimTime(),
			DT:       s.DT(),
			FPS:      float64(rl.GetFPS()),
			Paused:   s.Paused(),
			Stats:    stats,
			HasStats: ok,
		})
	}
	if v.overlays.IsEnabled(ui.OverlayPerf) {
		v.perf.Draw(s.Perf().Stats())
	}

	v.pending = merge(v.pending, v.controls.Draw(v.controlState(), v.overlays))
	v.hud.DrawControls(legend)
}

func (v *Viewer) colorMode() ColorMode {
	id, ok := v.overlays.ActiveInGroup(ui.GroupFluidColor)
	if !ok {
		return ColorFlat
	}
	switch id {
	case ui.OverlayDensityColors:
		return ColorDensity
	case ui.OverlayPressureColors:
		return ColorPressure
	default:
		return ColorSpeed
	}
}

func (v *Viewer) camera3D() rl.Camera3D {
	return rl.Camera3D{
		Position:   vec3(v.cam.Position()),
		Target:     vec3(v.cam.Target),
		Up:         vec3(v.cam.Up()),
		Fovy:       float32(v.cam.FovY),
		Projection: rl.CameraPerspective,
	}
}

// Run loops until the window closes or maxSteps steps have run (0 for no
// limit).
func (v *Viewer) Run(maxSteps int) error {
	for !rl.WindowShouldClose() {
		if err := v.Update(); err != nil {
			return err
		}
		v.Draw()

		if maxSteps > 0 && v.sim.Steps() >= maxSteps {
			slog.Info("max steps reached", "steps", v.sim.Steps())
			return nil
		}
	}
	return nil
}

// merge combines two frames' worth of actions; later non-zero requests win.
func merge(a, b ui.ControlActions) ui.ControlActions {
	a.TogglePause = a.TogglePause != b.TogglePause
	a.Step = a.Step || b.Step
	a.Reset = a.Reset || b.Reset
	a.ResetCamera = a.ResetCamera || b.ResetCamera
	if b.SetType {
		a.Type, a.SetType = b.Type, true
	}
	if b.TimeStep != "" {
		a.TimeStep = b.TimeStep
	}
	if b.Radius > 0 {
		a.Radius = b.Radius
	}
	if b.SetIso {
		a.IsoLevel, a.SetIso = b.IsoLevel, true
	}
	return a
}
