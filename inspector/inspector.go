// Package inspector tracks the selected fluid particle and describes it as
// a list of display fields.
package inspector

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fluid/camera"
	"github.com/pthm-cable/fluid/particles"
)

// A click hits a particle within this many radii of the ray.
const pickTolerance = 1.5

// Sample is the inspected state of one particle.
type Sample struct {
	Type        string     `inspect:"skip"`
	Index       int        `inspect:"label"`
	Position    [3]float64 `inspect:"vec,fmt:%.3f"`
	Velocity    [3]float64 `inspect:"vec,fmt:%.2f"`
	Speed       float64    `inspect:"label,fmt:%.3f"`
	Density     float64    `inspect:"label,fmt:%.1f"`
	Compression float64    `inspect:"bar,max:2,warn:0.55,label:Rho/Rho0"`
	Pressure    float64    `inspect:"label,fmt:%.2f"`
}

// NewSample reads particle i of body. ok is false when the body is gone or
// i is out of range.
func NewSample(body *particles.FluidBody, i int) (Sample, bool) {
	if body == nil || body.Disposed() || i < 0 || i >= body.NumParticles {
		return Sample{}, false
	}

	p := body.Positions[i]
	v := body.Velocity(i)
	s := Sample{
		Type:     body.Type.String(),
		Index:    i,
		Position: [3]float64{p.X, p.Y, p.Z},
		Velocity: [3]float64{v.X, v.Y, v.Z},
		Speed:    r3.Norm(v),
	}
	if i < len(body.Densities) {
		s.Density = body.Densities[i]
		if body.Density > 0 {
			s.Compression = s.Density / body.Density
		}
	}
	if i < len(body.Pressures) {
		s.Pressure = body.Pressures[i]
	}
	return s, true
}

// Fields lists the sample for display.
func (s Sample) Fields() []Field {
	return ExtractFields(s)
}

// Inspector holds the current particle selection.
type Inspector struct {
	selected    int
	hasSelected bool
}

// New creates an inspector with nothing selected.
func New() *Inspector {
	return &Inspector{}
}

// Pick selects the nearest fluid particle under screen point (x, y) of a
// width×height viewport. It returns false, leaving the selection as it
// was, when the ray misses.
func (ins *Inspector) Pick(cam *camera.Camera, body *particles.FluidBody, x, y, width, height float64) bool {
	if body == nil || body.Disposed() {
		return false
	}
	origin, dir := cam.Ray(x, y, width, height)
	i, ok := camera.Pick(origin, dir, body.Positions[:body.NumParticles], pickTolerance*body.ParticleRadius)
	if ok {
		ins.Select(i)
	}
	return ok
}

// Select selects particle i.
func (ins *Inspector) Select(i int) {
	ins.selected = i
	ins.hasSelected = true
}

// Deselect clears the selection.
func (ins *Inspector) Deselect() {
	ins.hasSelected = false
}

// Selected returns the selected particle index.
func (ins *Inspector) Selected() (int, bool) {
	return ins.selected, ins.hasSelected
}

// Sample reads the selected particle, deselecting when the body no longer
// holds it (after a rebuild with fewer particles, say).
func (ins *Inspector) Sample(body *particles.FluidBody) (Sample, bool) {
	if !ins.hasSelected {
		return Sample{}, false
	}
	s, ok := NewSample(body, ins.selected)
	if !ok {
		ins.Deselect()
	}
	return s, ok
}
