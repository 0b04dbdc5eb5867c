// Package camera provides an orbit camera around the simulation bounds.
package camera

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// maxPitch keeps the camera off the poles where the up vector degenerates.
const maxPitch = math.Pi/2 - 0.05

// Camera orbits a target point at a distance. Yaw is measured around +Y
// from +Z, pitch upwards from the XZ plane.
type Camera struct {
	Target   r3.Vec
	Distance float64
	Yaw      float64
	Pitch    float64
	FovY     float64 // degrees

	// Zoom constraints
	MinDistance, MaxDistance float64

	home struct {
		target              r3.Vec
		distance, yaw, pitch float64
	}
}

// New creates a camera framing bounds from slightly above and in front.
func New(bounds r3.Box) *Camera {
	c := &Camera{FovY: 45}
	c.Frame(bounds)
	return c
}

// Frame points the camera at the centre of bounds from a distance that
// fits the whole box, and makes that the Reset pose.
func (c *Camera) Frame(bounds r3.Box) {
	size := bounds.Size()
	extent := math.Max(size.X, math.Max(size.Y, size.Z))
	if !(extent > 0) {
		extent = 1
	}

	c.Target = bounds.Center()
	c.Distance = 1.2 * extent / math.Tan(c.FovY*math.Pi/360)
	c.Yaw = 0
	c.Pitch = 0.35
	c.MinDistance = 0.05 * extent
	c.MaxDistance = 20 * extent

	c.home.target = c.Target
	c.home.distance = c.Distance
	c.home.yaw = c.Yaw
	c.home.pitch = c.Pitch
}

// Position returns the eye position in world space.
func (c *Camera) Position() r3.Vec {
	return r3.Add(c.Target, r3.Scale(-c.Distance, c.Forward()))
}

// Forward returns the unit view direction.
func (c *Camera) Forward() r3.Vec {
	cp := math.Cos(c.Pitch)
	return r3.Vec{
		X: -cp * math.Sin(c.Yaw),
		Y: -math.Sin(c.Pitch),
		Z: -cp * math.Cos(c.Yaw),
	}
}

// Right returns the unit vector pointing to the right of the view.
func (c *Camera) Right() r3.Vec {
	return r3.Vec{X: math.Cos(c.Yaw), Z: -math.Sin(c.Yaw)}
}

// Up returns the camera's unit up vector.
func (c *Camera) Up() r3.Vec {
	return r3.Cross(c.Right(), c.Forward())
}

// Orbit rotates around the target by the given angles in radians.
func (c *Camera) Orbit(dYaw, dPitch float64) {
	c.Yaw = math.Remainder(c.Yaw+dYaw, 2*math.Pi)
	c.Pitch = clamp(c.Pitch+dPitch, -maxPitch, maxPitch)
}

// Pan moves the target in the view plane by world units.
func (c *Camera) Pan(right, up float64) {
	c.Target = r3.Add(c.Target, r3.Add(r3.Scale(right, c.Right()), r3.Scale(up, c.Up())))
}

// SetDistance sets the orbit distance, clamped to min/max.
func (c *Camera) SetDistance(d float64) {
	c.Distance = clamp(d, c.MinDistance, c.MaxDistance)
}

// ZoomBy divides the distance by factor; factors above one move closer.
func (c *Camera) ZoomBy(factor float64) {
	if factor > 0 {
		c.SetDistance(c.Distance / factor)
	}
}

// Reset returns to the pose set by the last Frame.
func (c *Camera) Reset() {
	c.Target = c.home.target
	c.Distance = c.home.distance
	c.Yaw = c.home.yaw
	c.Pitch = c.home.pitch
}

// IsVisible reports whether a sphere could be in front of the camera. It
// only culls what is behind the eye.
func (c *Camera) IsVisible(p r3.Vec, radius float64) bool {
	return r3.Dot(r3.Sub(p, c.Position()), c.Forward()) > -radius
}

// Ray returns the eye position and unit direction through screen pixel
// (x, y) of a width×height viewport.
func (c *Camera) Ray(x, y, width, height float64) (origin, dir r3.Vec) {
	if width <= 0 || height <= 0 {
		return c.Position(), c.Forward()
	}
	tanHalf := math.Tan(c.FovY * math.Pi / 360)
	nx := (2*x/width - 1) * tanHalf * width / height
	ny := (1 - 2*y/height) * tanHalf

	dir = r3.Add(c.Forward(), r3.Add(r3.Scale(nx, c.Right()), r3.Scale(ny, c.Up())))
	return c.Position(), r3.Unit(dir)
}

// Pick returns the index of the point closest to origin among those within
// radius of the ray. dir must be unit length.
func Pick(origin, dir r3.Vec, points []r3.Vec, radius float64) (int, bool) {
	best, bestT := -1, math.Inf(1)
	r2 := radius * radius
	for i, p := range points {
		op := r3.Sub(p, origin)
		t := r3.Dot(op, dir)
		if t < 0 || t >= bestT {
			continue
		}
		if r3.Norm2(op)-t*t <= r2 {
			best, bestT = i, t
		}
	}
	return best, best >= 0
}

func clamp(x, lo, hi float64) float64 {
	return math.Min(math.Max(x, lo), hi)
}
