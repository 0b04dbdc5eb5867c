package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fluid/particles"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the fluid particle state at one step.
type Snapshot struct {
	Version int `json:"version"`

	Type           particles.FluidType `json:"type"`
	ParticleRadius float64             `json:"particle_radius"`
	Density        float64             `json:"density"`

	Step    int     `json:"step"`
	SimTime float64 `json:"sim_time"`

	Particles []ParticleState `json:"particles"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// ParticleState is one fluid particle.
type ParticleState struct {
	Position [3]float64 `json:"p"`
	Velocity [3]float64 `json:"v"`
	Density  float64    `json:"rho"`
	Pressure float64    `json:"pressure,omitempty"`
}

// TakeSnapshot copies the state of body. It returns nil for a nil or
// disposed body.
func TakeSnapshot(body *particles.FluidBody, step int, simTime float64) *Snapshot {
	if body == nil || body.Disposed() {
		return nil
	}
	snap := &Snapshot{
		Version:        SnapshotVersion,
		Type:           body.Type,
		ParticleRadius: body.ParticleRadius,
		Density:        body.Density,
		Step:           step,
		SimTime:        simTime,
		Particles:      make([]ParticleState, body.NumParticles),
	}
	for i := range snap.Particles {
		snap.Particles[i] = ParticleState{
			Position: array(body.Positions[i]),
			Velocity: array(body.Velocity(i)),
			Density:  body.Densities[i],
			Pressure: body.Pressures[i],
		}
	}
	return snap
}

func array(v r3.Vec) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := fmt.Sprintf("snapshot_%s_%d", snapshot.Type, snapshot.Step)
	if snapshot.Bookmark != nil {
		name += "_" + strings.ReplaceAll(string(snapshot.Bookmark.Type), " ", "_")
	}
	path := filepath.Join(dir, name+".json")

	data, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snapshot.Version, SnapshotVersion)
	}
	return &snapshot, nil
}
