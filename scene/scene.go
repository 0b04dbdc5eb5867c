// Package scene describes the simulation layout as volumes in an ECS world
// and turns it into fluid and boundary particle sets.
package scene

import (
	"fmt"
	"log/slog"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fluid/components"
	"github.com/pthm-cable/fluid/config"
	"github.com/pthm-cable/fluid/particles"
	"github.com/pthm-cable/fluid/simerr"
)

// Default placement factors, as multiples of the particle radius.
const (
	DefaultShellThickness  = 1.2
	DefaultBoundarySpacing = 2.0
	DefaultFluidSpacing    = 1.8
	DefaultObstacleSpacing = 2.0
)

// Scene holds domain, fluid and obstacle volumes.
type Scene struct {
	world *ecs.World

	volumeMapper *ecs.Map3[components.Volume, components.Role, components.Lattice]
	volumeFilter *ecs.Filter3[components.Volume, components.Role, components.Lattice]
	volumeMap    *ecs.Map1[components.Volume]
}

// New creates an empty scene.
func New() *Scene {
	world := ecs.NewWorld()
	return &Scene{
		world:        world,
		volumeMapper: ecs.NewMap3[components.Volume, components.Role, components.Lattice](world),
		volumeFilter: ecs.NewFilter3[components.Volume, components.Role, components.Lattice](world),
		volumeMap:    ecs.NewMap1[components.Volume](world),
	}
}

// FromConfig creates a scene from the scene section of the config. Zero
// factors fall back to the defaults.
func FromConfig(sc config.SceneConfig) *Scene {
	s := New()
	s.AddDomain(sc.Bounds.Box(),
		orDefault(sc.ShellThickness, DefaultShellThickness),
		orDefault(sc.BoundarySpacing, DefaultBoundarySpacing))
	for _, b := range sc.Fluid {
		s.AddFluid(b.Box(), orDefault(sc.FluidSpacing, DefaultFluidSpacing))
	}
	for _, b := range sc.Obstacles {
		s.AddObstacle(b.Box(), orDefault(sc.ObstacleSpacing, DefaultObstacleSpacing))
	}
	return s
}

func orDefault(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}

// AddDomain adds walled simulation bounds.
func (s *Scene) AddDomain(box r3.Box, thickness, spacing float64) ecs.Entity {
	return s.add(box, components.KindDomain, components.Lattice{Spacing: spacing, Thickness: thickness})
}

// AddFluid adds a box to fill with fluid particles.
func (s *Scene) AddFluid(box r3.Box, spacing float64) ecs.Entity {
	return s.add(box, components.KindFluid, components.Lattice{Spacing: spacing})
}

// AddObstacle adds a solid box.
func (s *Scene) AddObstacle(box r3.Box, spacing float64) ecs.Entity {
	return s.add(box, components.KindObstacle, components.Lattice{Spacing: spacing})
}

func (s *Scene) add(box r3.Box, kind components.Kind, lattice components.Lattice) ecs.Entity {
	vol := components.Volume{Box: box.Canon()}
	role := components.Role{Kind: kind}
	return s.volumeMapper.NewEntity(&vol, &role, &lattice)
}

// Move replaces the box of a volume.
func (s *Scene) Move(e ecs.Entity, box r3.Box) {
	s.volumeMap.Get(e).Box = box.Canon()
}

// Volumes returns the boxes of the given kind in insertion order.
func (s *Scene) Volumes(kind components.Kind) []r3.Box {
	var out []r3.Box
	query := s.volumeFilter.Query()
	for query.Next() {
		vol, role, _ := query.Get()
		if role.Kind == kind {
			out = append(out, vol.Box)
		}
	}
	return out
}

// Domain returns the first domain box, or an empty box when there is none.
func (s *Scene) Domain() r3.Box {
	if d := s.Volumes(components.KindDomain); len(d) > 0 {
		return d[0]
	}
	return r3.Box{}
}

type placement struct {
	box     r3.Box
	kind    components.Kind
	lattice components.Lattice
}

func (s *Scene) placements() []placement {
	var out []placement
	query := s.volumeFilter.Query()
	for query.Next() {
		vol, role, lattice := query.Get()
		out = append(out, placement{box: vol.Box, kind: role.Kind, lattice: *lattice})
	}
	return out
}

// Positions generates the fluid and boundary particle positions for a
// particle radius. Fluid boxes are shrunk by one radius before filling and
// fluid particles inside an obstacle are dropped.
func (s *Scene) Positions(radius float64) (fluid, boundary []r3.Vec) {
	var obstacles []r3.Box
	var fluidBoxes []placement

	for _, p := range s.placements() {
		switch p.kind {
		case components.KindDomain:
			outer := particles.Grow(p.box, p.lattice.Thickness*radius)
			boundary = append(boundary, particles.Shell(p.lattice.Spacing*radius, outer, p.box)...)
		case components.KindObstacle:
			boundary = append(boundary, particles.Lattice(p.lattice.Spacing*radius, p.box)...)
			obstacles = append(obstacles, particles.Grow(p.box, radius))
		case components.KindFluid:
			fluidBoxes = append(fluidBoxes, p)
		}
	}

	for _, p := range fluidBoxes {
		for _, pos := range particles.Lattice(p.lattice.Spacing*radius, particles.Grow(p.box, -radius)) {
			if !insideAny(obstacles, pos) {
				fluid = append(fluid, pos)
			}
		}
	}
	return fluid, boundary
}

func insideAny(boxes []r3.Box, p r3.Vec) bool {
	for _, b := range boxes {
		if b.Contains(p) {
			return true
		}
	}
	return false
}

// Material is the fluid description Build needs besides the layout.
type Material struct {
	Type            particles.FluidType
	Radius          float64
	Density         float64
	BoundaryDensity float64
	Viscosity       float64
	Dampning        float64
}

// MaterialFromConfig reads the fluid section with derived densities.
func MaterialFromConfig(cfg *config.Config) Material {
	return Material{
		Type:            cfg.Fluid.Type,
		Radius:          cfg.Fluid.ParticleRadius,
		Density:         cfg.Derived.Density,
		BoundaryDensity: cfg.Derived.BoundaryDensity,
		Viscosity:       cfg.Fluid.Viscosity,
		Dampning:        cfg.Fluid.Dampning,
	}
}

// Build generates both particle sets.
func (s *Scene) Build(m Material) (*particles.FluidBody, *particles.FluidBoundary, error) {
	fluid, boundary := s.Positions(m.Radius)
	if len(fluid) == 0 {
		return nil, nil, fmt.Errorf("scene has no fluid particles at radius %v: %w", m.Radius, simerr.ErrInvalidConfiguration)
	}

	body, err := particles.NewFluidBody(fluid, m.Radius, m.Density, m.Type)
	if err != nil {
		return nil, nil, err
	}
	body.Viscosity = m.Viscosity
	body.Dampning = m.Dampning

	bnd, err := particles.NewFluidBoundary(boundary, m.Radius, m.BoundaryDensity)
	if err != nil {
		body.Dispose()
		return nil, nil, err
	}

	slog.Debug("scene built",
		"type", m.Type.String(),
		"radius", m.Radius,
		"fluid", body.NumParticles,
		"boundary", bnd.NumParticles,
	)
	return body, bnd, nil
}
