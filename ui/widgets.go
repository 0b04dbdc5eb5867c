package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Renderer draws themed primitives. Every Draw* returns the next line's Y.
type Renderer struct {
	Theme Theme
}

// NewRenderer creates a renderer with the default theme.
func NewRenderer() *Renderer {
	return &Renderer{Theme: DefaultTheme()}
}

// DrawPanel draws a panel background with border.
func (r *Renderer) DrawPanel(x, y, width, height int32) {
	rl.DrawRectangle(x, y, width, height, r.Theme.PanelBg)
	rl.DrawRectangleLines(x, y, width, height, r.Theme.PanelBorder)
}

// DrawTitle draws a panel title.
func (r *Renderer) DrawTitle(x, y int32, title string) int32 {
	rl.DrawText(title, x, y, r.Theme.TitleFontSize, r.Theme.Title)
	return y + r.Theme.LineHeight + 4
}

// DrawSectionHeader draws a section header.
func (r *Renderer) DrawSectionHeader(x, y int32, title string) int32 {
	rl.DrawText(title, x, y, r.Theme.HeaderFontSize, r.Theme.SectionHeader)
	return y + r.Theme.LineHeight
}

// DrawLabelValue draws "label: value" on one line.
func (r *Renderer) DrawLabelValue(x, y int32, label, value string) int32 {
	rl.DrawText(label+":", x, y, r.Theme.FontSize, r.Theme.LabelColor)
	rl.DrawText(value, x+r.Theme.LabelWidth, y, r.Theme.FontSize, r.Theme.ValueColor)
	return y + r.Theme.LineHeight
}

// DrawBar draws a labelled bar for a [0, 1] fraction with its value as a
// percentage. Fractions above warn use the warning fill.
func (r *Renderer) DrawBar(x, y int32, label string, frac, warn float64, width int32) int32 {
	frac = clamp01(frac)

	barX := x + r.Theme.LabelWidth
	barWidth := width - r.Theme.LabelWidth - 44
	if barWidth < 10 {
		barWidth = 10
	}

	rl.DrawText(label+":", x, y, r.Theme.FontSize, r.Theme.LabelColor)
	rl.DrawRectangle(barX, y+2, barWidth, r.Theme.BarHeight, r.Theme.BarBg)

	fill := r.Theme.BarFill
	if warn > 0 && frac > warn {
		fill = r.Theme.BarFillHi
	}
	rl.DrawRectangle(barX, y+2, int32(float64(barWidth)*frac), r.Theme.BarHeight, fill)

	rl.DrawText(fmt.Sprintf("%4.1f%%", frac*100), barX+barWidth+5, y, r.Theme.FontSize, r.Theme.ValueColor)
	return y + r.Theme.LineHeight + 2
}

// DrawToggle draws an on/off indicator, a name and a right-aligned key
// hint.
func (r *Renderer) DrawToggle(x, y int32, name, key string, on bool, width int32) int32 {
	status, text := r.Theme.ToggleOff, r.Theme.LabelColor
	if on {
		status, text = r.Theme.ToggleOn, rl.White
	}
	rl.DrawRectangle(x, y+2, 8, 8, status)
	rl.DrawText(name, x+14, y, r.Theme.FontSize, text)

	if key != "" {
		hint := "[" + key + "]"
		w := rl.MeasureText(hint, r.Theme.FontSize)
		rl.DrawText(hint, x+width-w, y, r.Theme.FontSize, r.Theme.KeyColor)
	}
	return y + r.Theme.LineHeight
}

func clamp01(v float64) float64 {
	if !(v > 0) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
