// Package ui draws the viewer's panels and keeps the overlay toggle state.
package ui

import rl "github.com/gen2brain/raylib-go/raylib"

// PanelAnchor specifies which screen corner a panel hangs from.
type PanelAnchor int

const (
	AnchorTopLeft PanelAnchor = iota
	AnchorTopRight
	AnchorBottomLeft
	AnchorBottomRight
)

// Place returns the top-left corner of a w×h panel anchored inside a
// screen of sw×sh with the given margin.
func (a PanelAnchor) Place(sw, sh, w, h, margin int32) (x, y int32) {
	switch a {
	case AnchorTopRight:
		return sw - w - margin, margin
	case AnchorBottomLeft:
		return margin, sh - h - margin
	case AnchorBottomRight:
		return sw - w - margin, sh - h - margin
	default:
		return margin, margin
	}
}

// Theme holds UI styling constants.
type Theme struct {
	PanelBg       rl.Color
	PanelBorder   rl.Color
	Title         rl.Color
	SectionHeader rl.Color
	LabelColor    rl.Color
	ValueColor    rl.Color
	KeyColor      rl.Color
	Warning       rl.Color

	BarBg     rl.Color
	BarFill   rl.Color
	BarFillHi rl.Color // fill above the warning threshold

	ToggleOn  rl.Color
	ToggleOff rl.Color

	Padding        int32
	LineHeight     int32
	LabelWidth     int32
	BarHeight      int32
	FontSize       int32
	HeaderFontSize int32
	TitleFontSize  int32
	ButtonHeight   int32
}

// DefaultTheme returns the default UI theme.
func DefaultTheme() Theme {
	return Theme{
		PanelBg:       rl.Color{R: 18, G: 22, B: 28, A: 230},
		PanelBorder:   rl.Color{R: 60, G: 70, B: 80, A: 255},
		Title:         rl.White,
		SectionHeader: rl.Color{R: 120, G: 190, B: 255, A: 255},
		LabelColor:    rl.LightGray,
		ValueColor:    rl.RayWhite,
		KeyColor:      rl.Color{R: 150, G: 150, B: 150, A: 255},
		Warning:       rl.Color{R: 255, G: 170, B: 60, A: 255},

		BarBg:     rl.Color{R: 40, G: 40, B: 40, A: 255},
		BarFill:   rl.Color{R: 90, G: 150, B: 210, A: 255},
		BarFillHi: rl.Color{R: 210, G: 110, B: 90, A: 255},

		ToggleOn:  rl.Color{R: 100, G: 200, B: 100, A: 255},
		ToggleOff: rl.Color{R: 80, G: 80, B: 80, A: 255},

		Padding:        10,
		LineHeight:     16,
		LabelWidth:     96,
		BarHeight:      10,
		FontSize:       12,
		HeaderFontSize: 14,
		TitleFontSize:  16,
		ButtonHeight:   24,
	}
}
