package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fluid/inspector"
)

// InspectorPanel shows the selected particle in the bottom-left corner.
type InspectorPanel struct {
	renderer *Renderer
	width    int32
}

// NewInspectorPanel creates an inspector panel.
func NewInspectorPanel() *InspectorPanel {
	return &InspectorPanel{renderer: NewRenderer(), width: 280}
}

// Draw renders the sample's fields.
func (p *InspectorPanel) Draw(s inspector.Sample) {
	r := p.renderer
	t := r.Theme
	fields := s.Fields()

	height := t.Padding*2 + t.LineHeight + 4 + int32(len(fields))*(t.LineHeight+2)
	x, y := AnchorBottomLeft.Place(int32(rl.GetScreenWidth()), int32(rl.GetScreenHeight()), p.width, height, 30)
	r.DrawPanel(x, y, p.width, height)

	x += t.Padding
	y = r.DrawTitle(x, y+t.Padding, fmt.Sprintf("Particle %d (%s)", s.Index, s.Type))
	inner := p.width - 2*t.Padding

	for _, f := range fields {
		if f.Name == "Index" {
			continue
		}
		if f.Widget == inspector.WidgetBar {
			if frac, ok := f.Fraction(); ok {
				y = r.DrawBar(x, y, f.Label(), frac, f.Warn(), inner)
				continue
			}
		}
		y = r.DrawLabelValue(x, y, f.Label(), f.Format())
	}

	rl.DrawText("[Esc] deselect", x+inner-rl.MeasureText("[Esc] deselect", t.FontSize), y, t.FontSize, t.KeyColor)
}
