package renderer

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fluid/camera"
	"github.com/pthm-cable/fluid/grid"
	"github.com/pthm-cable/fluid/particles"
	"github.com/pthm-cable/fluid/volume"
)

// ColorMode picks the per-particle quantity mapped onto the colour ramp.
type ColorMode int

const (
	ColorSpeed ColorMode = iota
	ColorDensity
	ColorPressure
	ColorFlat
)

// Above this many particles fluid is drawn as points instead of spheres.
const maxSpheres = 20000

var (
	boundaryColor = rl.Color{R: 110, G: 110, B: 120, A: 120}
	boundsColor   = rl.Color{R: 200, G: 200, B: 210, A: 255}
	obstacleColor = rl.Color{R: 220, G: 140, B: 60, A: 255}
	cellColor     = rl.Color{R: 90, G: 200, B: 120, A: 90}
	flatColor     = rl.Color{R: 60, G: 140, B: 230, A: 255}

	// Colour ramp from slow/sparse to fast/dense.
	rampStops = []rl.Color{
		{R: 20, G: 60, B: 170, A: 255},
		{R: 40, G: 150, B: 230, A: 255},
		{R: 120, G: 220, B: 235, A: 255},
		{R: 250, G: 250, B: 250, A: 255},
	}
)

// FluidRenderer draws particle sets and debug geometry in 3D. Call its
// Draw methods between rl.BeginMode3D and rl.EndMode3D.
type FluidRenderer struct {
	// Speed mapped to the top of the ramp; adapts to the running maximum.
	speedScale float64
}

// NewFluidRenderer creates a fluid renderer.
func NewFluidRenderer() *FluidRenderer {
	return &FluidRenderer{speedScale: 1}
}

// DrawFluid renders the fluid body coloured by mode. Particles behind the
// camera are skipped.
func (r *FluidRenderer) DrawFluid(body *particles.FluidBody, mode ColorMode, cam *camera.Camera) {
	if body == nil || body.Disposed() {
		return
	}

	var maxPressure, maxSpeed float64
	if mode == ColorPressure {
		for _, p := range body.Pressures[:body.NumParticles] {
			maxPressure = math.Max(maxPressure, math.Abs(p))
		}
	}

	radius := float32(body.ParticleRadius)
	spheres := body.NumParticles <= maxSpheres
	for i := 0; i < body.NumParticles; i++ {
		p := body.Positions[i]
		if !cam.IsVisible(p, body.ParticleRadius) {
			continue
		}

		var c rl.Color
		switch mode {
		case ColorSpeed:
			s := r3.Norm(body.Velocity(i))
			maxSpeed = math.Max(maxSpeed, s)
			c = ramp(s / r.speedScale)
		case ColorDensity:
			// Rest density sits mid-ramp.
			c = ramp(body.Densities[i] / body.Density / 2)
		case ColorPressure:
			if maxPressure > 0 {
				c = ramp(math.Abs(body.Pressures[i]) / maxPressure)
			} else {
				c = ramp(0)
			}
		default:
			c = flatColor
		}

		if spheres {
			rl.DrawSphereEx(vec3(p), radius, 4, 6, c)
		} else {
			rl.DrawPoint3D(vec3(p), c)
		}
	}

	if mode == ColorSpeed {
		// Ease towards the observed maximum so colours don't flicker.
		r.speedScale = math.Max(0.1, 0.9*r.speedScale+0.1*maxSpeed)
	}
}

// DrawBoundary renders boundary particles as points.
func (r *FluidRenderer) DrawBoundary(b *particles.FluidBoundary, cam *camera.Camera) {
	if b == nil || b.Disposed() {
		return
	}
	for _, p := range b.Positions {
		if cam.IsVisible(p, b.ParticleRadius) {
			rl.DrawPoint3D(vec3(p), boundaryColor)
		}
	}
}

// DrawBox outlines a box.
func (r *FluidRenderer) DrawBox(box r3.Box, c rl.Color) {
	rl.DrawCubeWiresV(vec3(box.Center()), vec3(box.Size()), c)
}

// DrawBounds outlines the simulation domain.
func (r *FluidRenderer) DrawBounds(box r3.Box) {
	r.DrawBox(box, boundsColor)
}

// DrawObstacles outlines each obstacle box.
func (r *FluidRenderer) DrawObstacles(boxes []r3.Box) {
	for _, b := range boxes {
		r.DrawBox(b, obstacleColor)
	}
}

// DrawOccupiedCells outlines every hash cell holding at least one fluid
// particle.
func (r *FluidRenderer) DrawOccupiedCells(g *grid.Grid) {
	if g == nil || g.Disposed() {
		return
	}
	size := g.CellSize()
	dims := g.Dims()
	origin := g.Bounds().Min
	cube := rl.Vector3{X: float32(size), Y: float32(size), Z: float32(size)}

	for z := 0; z < dims[2]; z++ {
		for y := 0; y < dims[1]; y++ {
			for x := 0; x < dims[0]; x++ {
				if !hasFluid(g, g.Cell(g.CellIndex([3]int{x, y, z}))) {
					continue
				}
				center := r3.Vec{
					X: origin.X + (float64(x)+0.5)*size,
					Y: origin.Y + (float64(y)+0.5)*size,
					Z: origin.Z + (float64(z)+0.5)*size,
				}
				rl.DrawCubeWiresV(vec3(center), cube, cellColor)
			}
		}
	}
}

func hasFluid(g *grid.Grid, cell []int32) bool {
	for _, j := range cell {
		if !g.IsBoundary(int(j)) {
			return true
		}
	}
	return false
}

// DrawVolume renders voxels whose density, relative to the volume's
// maximum, exceeds iso.
func (r *FluidRenderer) DrawVolume(v *volume.Volume, iso float64) {
	if v == nil || v.Disposed() {
		return
	}
	peak := v.Max()
	if peak <= 0 {
		return
	}

	s := float32(v.VoxelSize()) * 0.9
	size := rl.Vector3{X: s, Y: s, Z: s}
	dims := v.Dims()
	for z := 0; z < dims[2]; z++ {
		for y := 0; y < dims[1]; y++ {
			for x := 0; x < dims[0]; x++ {
				f := v.At(x, y, z) / peak
				if f <= iso {
					continue
				}
				c := ramp(f)
				c.A = uint8(60 + 140*f)
				rl.DrawCubeV(vec3(v.Center(x, y, z)), size, c)
			}
		}
	}
}

// DrawSelection rings the inspected particle.
func (r *FluidRenderer) DrawSelection(pos [3]float64, radius float64) {
	p := rl.Vector3{X: float32(pos[0]), Y: float32(pos[1]), Z: float32(pos[2])}
	rl.DrawSphereWires(p, float32(2.5*radius), 6, 8, rl.Yellow)
}

// ramp maps t in [0, 1] onto rampStops.
func ramp(t float64) rl.Color {
	if !(t > 0) {
		return rampStops[0]
	}
	if t >= 1 {
		return rampStops[len(rampStops)-1]
	}
	f := t * float64(len(rampStops)-1)
	i := int(f)
	return rl.ColorLerp(rampStops[i], rampStops[i+1], float32(f-float64(i)))
}

func vec3(v r3.Vec) rl.Vector3 {
	return rl.Vector3{X: float32(v.X), Y: float32(v.Y), Z: float32(v.Z)}
}
