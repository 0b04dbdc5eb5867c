package ui

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// OverlayID names a toggleable layer of the viewer.
type OverlayID string

const (
	OverlayFluid     OverlayID = "fluid"
	OverlayBoundary  OverlayID = "boundary"
	OverlayBounds    OverlayID = "bounds"
	OverlayObstacles OverlayID = "obstacles"
	OverlayVolume    OverlayID = "volume"
	OverlayGrid      OverlayID = "grid"
	OverlayFloor     OverlayID = "floor"

	// Fluid colouring; at most one is active.
	OverlaySpeedColors    OverlayID = "speed_colors"
	OverlayDensityColors  OverlayID = "density_colors"
	OverlayPressureColors OverlayID = "pressure_colors"

	OverlayHUD  OverlayID = "hud"
	OverlayPerf OverlayID = "perf"
)

// Overlay categories, in display order.
const (
	CategoryScene  = "scene"
	CategoryColor  = "color"
	CategoryDebug  = "debug"
	CategoryPanels = "panels"
)

// GroupFluidColor holds the mutually exclusive fluid colourings.
const GroupFluidColor = "fluid_color"

// OverlayDescriptor describes one overlay and how it is toggled.
type OverlayDescriptor struct {
	ID       OverlayID
	Name     string
	Key      int32 // raylib key code, 0 for none
	KeyLabel string
	Category string

	// Overlays sharing a non-empty Group are mutually exclusive.
	Group string

	// Enabled at startup.
	Default bool
}

// OverlayRegistry tracks which overlays are on.
type OverlayRegistry struct {
	order   []OverlayID
	byID    map[OverlayID]OverlayDescriptor
	enabled map[OverlayID]bool
}

// NewOverlayRegistry returns a registry holding the viewer's overlays with
// their default states.
func NewOverlayRegistry() *OverlayRegistry {
	r := &OverlayRegistry{
		byID:    make(map[OverlayID]OverlayDescriptor),
		enabled: make(map[OverlayID]bool),
	}

	for _, d := range []OverlayDescriptor{
		{ID: OverlayFluid, Name: "Fluid", Key: rl.KeyF, KeyLabel: "F", Category: CategoryScene, Default: true},
		{ID: OverlayBoundary, Name: "Boundary Particles", Key: rl.KeyN, KeyLabel: "N", Category: CategoryScene},
		{ID: OverlayBounds, Name: "Domain Bounds", Key: rl.KeyB, KeyLabel: "B", Category: CategoryScene, Default: true},
		{ID: OverlayObstacles, Name: "Obstacles", Key: rl.KeyO, KeyLabel: "O", Category: CategoryScene, Default: true},
		{ID: OverlayVolume, Name: "Density Volume", Key: rl.KeyV, KeyLabel: "V", Category: CategoryScene},

		{ID: OverlaySpeedColors, Name: "Speed", Key: rl.KeyOne, KeyLabel: "1", Category: CategoryColor, Group: GroupFluidColor, Default: true},
		{ID: OverlayDensityColors, Name: "Density", Key: rl.KeyTwo, KeyLabel: "2", Category: CategoryColor, Group: GroupFluidColor},
		{ID: OverlayPressureColors, Name: "Pressure", Key: rl.KeyThree, KeyLabel: "3", Category: CategoryColor, Group: GroupFluidColor},

		{ID: OverlayGrid, Name: "Hash Cells", Key: rl.KeyG, KeyLabel: "G", Category: CategoryDebug},
		{ID: OverlayFloor, Name: "Floor Grid", Key: rl.KeyL, KeyLabel: "L", Category: CategoryDebug, Default: true},

		{ID: OverlayHUD, Name: "Stats", Key: rl.KeyH, KeyLabel: "H", Category: CategoryPanels, Default: true},
		{ID: OverlayPerf, Name: "Phase Timing", Key: rl.KeyT, KeyLabel: "T", Category: CategoryPanels},
	} {
		r.Register(d)
	}
	return r
}

// Register adds an overlay. Re-registering an ID replaces its descriptor.
func (r *OverlayRegistry) Register(d OverlayDescriptor) {
	if _, ok := r.byID[d.ID]; !ok {
		r.order = append(r.order, d.ID)
	}
	r.byID[d.ID] = d
	r.SetEnabled(d.ID, d.Default)
}

// SetEnabled sets an overlay's state. Enabling turns off the rest of its
// group.
func (r *OverlayRegistry) SetEnabled(id OverlayID, on bool) {
	d, ok := r.byID[id]
	if !ok {
		return
	}
	if on && d.Group != "" {
		for _, other := range r.order {
			if other != id && r.byID[other].Group == d.Group {
				r.enabled[other] = false
			}
		}
	}
	r.enabled[id] = on
}

// Toggle flips an overlay and returns its new state.
func (r *OverlayRegistry) Toggle(id OverlayID) bool {
	if _, ok := r.byID[id]; !ok {
		return false
	}
	r.SetEnabled(id, !r.enabled[id])
	return r.enabled[id]
}

// IsEnabled reports whether an overlay is on.
func (r *OverlayRegistry) IsEnabled(id OverlayID) bool {
	return r.enabled[id]
}

// Get returns the descriptor for id.
func (r *OverlayRegistry) Get(id OverlayID) (OverlayDescriptor, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// All returns every descriptor in registration order.
func (r *OverlayRegistry) All() []OverlayDescriptor {
	out := make([]OverlayDescriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// ByCategory returns the descriptors of one category.
func (r *OverlayRegistry) ByCategory(category string) []OverlayDescriptor {
	var out []OverlayDescriptor
	for _, id := range r.order {
		if d := r.byID[id]; d.Category == category {
			out = append(out, d)
		}
	}
	return out
}

// Categories returns the distinct categories in registration order.
func (r *OverlayRegistry) Categories() []string {
	var cats []string
	seen := make(map[string]bool)
	for _, id := range r.order {
		c := r.byID[id].Category
		if !seen[c] {
			seen[c] = true
			cats = append(cats, c)
		}
	}
	return cats
}

// HandleKeyPress toggles the overlay bound to key. ok is false when no
// overlay uses that key.
func (r *OverlayRegistry) HandleKeyPress(key int32) (id OverlayID, on, ok bool) {
	if key == 0 {
		return "", false, false
	}
	for _, oid := range r.order {
		if r.byID[oid].Key == key {
			return oid, r.Toggle(oid), true
		}
	}
	return "", false, false
}

// Keys returns every bound key, for polling input once per frame.
func (r *OverlayRegistry) Keys() []int32 {
	var keys []int32
	for _, id := range r.order {
		if k := r.byID[id].Key; k != 0 {
			keys = append(keys, k)
		}
	}
	return keys
}

// ActiveInGroup returns the enabled overlay of a group, if any.
func (r *OverlayRegistry) ActiveInGroup(group string) (OverlayID, bool) {
	for _, id := range r.order {
		if r.byID[id].Group == group && r.enabled[id] {
			return id, true
		}
	}
	return "", false
}

// EnabledOverlays lists the enabled overlays in registration order.
func (r *OverlayRegistry) EnabledOverlays() []OverlayID {
	var out []OverlayID
	for _, id := range r.order {
		if r.enabled[id] {
			out = append(out, id)
		}
	}
	return out
}

func categoryLabel(cat string) string {
	switch cat {
	case CategoryScene:
		return "Scene"
	case CategoryColor:
		return "Fluid Color"
	case CategoryDebug:
		return "Debug"
	case CategoryPanels:
		return "Panels"
	default:
		return cat
	}
}
