package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fluid/telemetry"
)

// HUDData holds what the stats panel shows.
type HUDData struct {
	Type     string
	Fluid    int
	Boundary int
	Steps    int
	SimTime  float64
	DT       float64
	FPS      float64
	Paused   bool

	// Last completed stats window; ignored while HasStats is false.
	Stats    telemetry.WindowStats
	HasStats bool
}

// HUD renders the stats panel and the key legend.
type HUD struct {
	renderer *Renderer
	width    int32
	anchor   PanelAnchor
}

// NewHUD creates a HUD anchored top-right.
func NewHUD() *HUD {
	return &HUD{renderer: NewRenderer(), width: 230, anchor: AnchorTopRight}
}

// Draw renders the stats panel.
func (h *HUD) Draw(data HUDData) {
	r := h.renderer
	t := r.Theme

	lines := int32(7)
	if data.HasStats {
		lines += 8
	}
	height := t.Padding*2 + t.LineHeight + 4 + lines*t.LineHeight
	x, y := h.anchor.Place(int32(rl.GetScreenWidth()), int32(rl.GetScreenHeight()), h.width, height, 10)
	r.DrawPanel(x, y, h.width, height)

	x += t.Padding
	title := data.Type
	if data.Paused {
		title += "  PAUSED"
	}
	y = r.DrawTitle(x, y+t.Padding, title)

	y = r.DrawLabelValue(x, y, "Fluid", fmt.Sprintf("%d", data.Fluid))
	y = r.DrawLabelValue(x, y, "Boundary", fmt.Sprintf("%d", data.Boundary))
	y = r.DrawLabelValue(x, y, "Steps", fmt.Sprintf("%d", data.Steps))
	y = r.DrawLabelValue(x, y, "Sim Time", fmt.Sprintf("%.3f s", data.SimTime))
	y = r.DrawLabelValue(x, y, "dt", fmt.Sprintf("%.2e s", data.DT))
	y = r.DrawLabelValue(x, y, "FPS", fmt.Sprintf("%.0f", data.FPS))
	y += t.LineHeight

	if !data.HasStats {
		return
	}
	s := data.Stats
	y = r.DrawSectionHeader(x, y, fmt.Sprintf("Window %d", s.WindowEndStep))
	y = r.DrawLabelValue(x, y, "Density", fmt.Sprintf("%.3f ± %.3f", s.DensityMean, s.DensityStd))
	y = r.DrawLabelValue(x, y, "P10/P90", fmt.Sprintf("%.3f / %.3f", s.DensityP10, s.DensityP90))
	y = r.DrawLabelValue(x, y, "Pressure", fmt.Sprintf("%.3g", s.PressureMax))
	y = r.DrawLabelValue(x, y, "Speed", fmt.Sprintf("%.2f (max %.2f)", s.SpeedMean, s.SpeedMax))
	y = r.DrawLabelValue(x, y, "Kinetic", fmt.Sprintf("%.3g", s.KineticEnergy))
	y = r.DrawLabelValue(x, y, "Centroid Y", fmt.Sprintf("%.3f", s.CentroidY))
	if s.Invalid > 0 {
		rl.DrawText(fmt.Sprintf("%d invalid particles", s.Invalid), x, y, t.FontSize, t.Warning)
	}
}

// DrawControls renders the key legend along the bottom edge.
func (h *HUD) DrawControls(legend string) {
	rl.DrawText(legend, 10, int32(rl.GetScreenHeight())-22, 14, rl.Gray)
}

// PerfPanel renders the per-phase step timing.
type PerfPanel struct {
	renderer *Renderer
	width    int32
	anchor   PanelAnchor
}

// NewPerfPanel creates a timing panel anchored bottom-right.
func NewPerfPanel() *PerfPanel {
	return &PerfPanel{renderer: NewRenderer(), width: 260, anchor: AnchorBottomRight}
}

// Draw renders phase shares for the phases that ran this window.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	r := p.renderer
	t := r.Theme

	var phases []string
	for _, ph := range telemetry.Phases {
		if _, ok := stats.PhaseAvg[ph]; ok {
			phases = append(phases, ph)
		}
	}

	height := t.Padding*2 + t.LineHeight + 4 + 2*t.LineHeight + int32(len(phases))*(t.LineHeight+2)
	x, y := p.anchor.Place(int32(rl.GetScreenWidth()), int32(rl.GetScreenHeight()), p.width, height, 30)
	r.DrawPanel(x, y, p.width, height)

	x += t.Padding
	y = r.DrawTitle(x, y+t.Padding, "Step Timing")
	y = r.DrawLabelValue(x, y, "Step", fmt.Sprintf("%s (p95 %s)",
		stats.AvgStepDuration.Round(time.Microsecond), stats.P95StepDuration.Round(time.Microsecond)))
	y = r.DrawLabelValue(x, y, "Steps/s", fmt.Sprintf("%.1f", stats.StepsPerSecond))

	for _, ph := range phases {
		y = r.DrawBar(x, y, ph, stats.PhasePct[ph]/100, 0.4, p.width-2*t.Padding)
	}
}
