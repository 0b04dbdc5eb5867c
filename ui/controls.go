package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fluid/config"
	"github.com/pthm-cable/fluid/particles"
)

// Radius slider range in world units.
const (
	MinRadius = 0.02
	MaxRadius = 0.3
)

// ControlState is what the panel displays.
type ControlState struct {
	Paused        bool
	Type          particles.FluidType
	TimeStep      config.TimeStep
	Radius        float64
	VolumeEnabled bool
	IsoLevel      float64
}

// ControlActions is what the user asked for this frame. Zero means no
// request.
type ControlActions struct {
	TogglePause bool
	Step        bool
	Reset       bool
	ResetCamera bool

	Type     particles.FluidType
	SetType  bool
	TimeStep config.TimeStep
	Radius   float64
	IsoLevel float64
	SetIso   bool
}

// Any reports whether any action was requested.
func (a ControlActions) Any() bool {
	return a.TogglePause || a.Step || a.Reset || a.ResetCamera || a.SetType ||
		a.TimeStep != "" || a.Radius > 0 || a.SetIso
}

// ControlsPanel renders the left-side panel: run controls, solver and dt
// selection, the radius slider and the overlay toggles.
type ControlsPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
	visible  bool

	// Radius chosen on the slider, applied on demand since it rebuilds
	// the scene.
	pendingRadius float64
}

// NewControlsPanel creates a visible controls panel.
func NewControlsPanel(x, y, width int32) *ControlsPanel {
	return &ControlsPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
		visible:  true,
	}
}

// IsVisible returns whether the panel is shown.
func (c *ControlsPanel) IsVisible() bool {
	return c.visible
}

// Toggle switches panel visibility.
func (c *ControlsPanel) Toggle() bool {
	c.visible = !c.visible
	return c.visible
}

// Contains reports whether a screen point lies on the panel, so camera
// drags can ignore it.
func (c *ControlsPanel) Contains(p rl.Vector2, state ControlState, overlays *OverlayRegistry) bool {
	if !c.visible {
		return false
	}
	return rl.CheckCollisionPointRec(p, rl.Rectangle{
		X:      float32(c.x),
		Y:      float32(c.y),
		Width:  float32(c.width),
		Height: float32(c.height(state, overlays)),
	})
}

func (c *ControlsPanel) height(state ControlState, overlays *OverlayRegistry) int32 {
	t := c.renderer.Theme
	row := t.ButtonHeight + 6

	h := t.Padding*2 + t.LineHeight + 4
	h += 4*t.LineHeight + 5*row // run, solver, time step, radius (slider + apply)
	if state.VolumeEnabled {
		h += t.LineHeight + row
	}
	for _, cat := range overlays.Categories() {
		h += t.LineHeight + int32(len(overlays.ByCategory(cat)))*t.LineHeight + 4
	}
	return h
}

// Draw renders the panel and returns the actions clicked this frame.
func (c *ControlsPanel) Draw(state ControlState, overlays *OverlayRegistry) ControlActions {
	var act ControlActions
	if !c.visible {
		return act
	}
	if c.pendingRadius <= 0 {
		c.pendingRadius = state.Radius
	}

	r := c.renderer
	t := r.Theme
	r.DrawPanel(c.x, c.y, c.width, c.height(state, overlays))

	x := c.x + t.Padding
	inner := c.width - 2*t.Padding
	y := r.DrawTitle(x, c.y+t.Padding, "Fluid")

	// Run controls
	y = r.DrawSectionHeader(x, y, "Simulation")
	cols := c.columns(x, y, inner, 4)
	if gui.Button(cols[0], pick(state.Paused, "Run", "Pause")) {
		act.TogglePause = true
	}
	if gui.Button(cols[1], "Step") {
		act.Step = true
	}
	if gui.Button(cols[2], "Reset") {
		act.Reset = true
	}
	if gui.Button(cols[3], "View") {
		act.ResetCamera = true
	}
	y += t.ButtonHeight + 6

	// Solver family
	y = r.DrawSectionHeader(x, y, "Solver")
	types := []particles.FluidType{particles.PBD, particles.CSPH, particles.WCSPH}
	cols = c.columns(x, y, inner, len(types))
	for i, ft := range types {
		if gui.Button(cols[i], selected(ft.String(), ft == state.Type)) && ft != state.Type {
			act.Type, act.SetType = ft, true
		}
	}
	y += t.ButtonHeight + 6

	// dt divisor
	y = r.DrawSectionHeader(x, y, "Time Step")
	cols = c.columns(x, y, inner, len(config.TimeSteps))
	for i, ts := range config.TimeSteps {
		label := fmt.Sprintf("1/%g", ts.Factor())
		if gui.Button(cols[i], selected(label, ts == state.TimeStep)) && ts != state.TimeStep {
			act.TimeStep = ts
		}
	}
	y += t.ButtonHeight + 6

	// Particle radius
	y = r.DrawSectionHeader(x, y, fmt.Sprintf("Radius %.3f", c.pendingRadius))
	c.pendingRadius = float64(gui.SliderBar(
		rl.Rectangle{X: float32(x + 30), Y: float32(y), Width: float32(inner - 70), Height: float32(t.ButtonHeight - 4)},
		fmt.Sprintf("%.2f", MinRadius), fmt.Sprintf("%.2f", MaxRadius),
		float32(c.pendingRadius), MinRadius, MaxRadius,
	))
	y += t.ButtonHeight + 6
	if gui.Button(rl.Rectangle{X: float32(x), Y: float32(y), Width: float32(inner), Height: float32(t.ButtonHeight)}, "Apply Radius") &&
		float32(c.pendingRadius) != float32(state.Radius) {
		act.Radius = c.pendingRadius
	}
	y += t.ButtonHeight + 6

	// Density volume threshold
	if state.VolumeEnabled {
		y = r.DrawSectionHeader(x, y, fmt.Sprintf("Iso Level %.2f", state.IsoLevel))
		iso := gui.SliderBar(
			rl.Rectangle{X: float32(x + 30), Y: float32(y), Width: float32(inner - 70), Height: float32(t.ButtonHeight - 4)},
			"0", "1",
			float32(state.IsoLevel), 0, 1,
		)
		// Compare at slider precision so an untouched slider is quiet.
		if iso != float32(state.IsoLevel) {
			act.IsoLevel, act.SetIso = float64(iso), true
		}
		y += t.ButtonHeight + 6
	}

	// Overlays, toggled from the keyboard
	for _, cat := range overlays.Categories() {
		y = r.DrawSectionHeader(x, y, categoryLabel(cat))
		for _, d := range overlays.ByCategory(cat) {
			y = r.DrawToggle(x, y, d.Name, d.KeyLabel, overlays.IsEnabled(d.ID), inner)
		}
		y += 4
	}

	return act
}

// SyncRadius resets the slider to the applied radius.
func (c *ControlsPanel) SyncRadius(r float64) {
	c.pendingRadius = r
}

// columns splits one button row into n equal rectangles.
func (c *ControlsPanel) columns(x, y, width int32, n int) []rl.Rectangle {
	const gap = 4
	w := (float32(width) - gap*float32(n-1)) / float32(n)
	out := make([]rl.Rectangle, n)
	for i := range out {
		out[i] = rl.Rectangle{
			X:      float32(x) + float32(i)*(w+gap),
			Y:      float32(y),
			Width:  w,
			Height: float32(c.renderer.Theme.ButtonHeight),
		}
	}
	return out
}

func selected(label string, on bool) string {
	if on {
		return "> " + label
	}
	return label
}

func pick(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}
