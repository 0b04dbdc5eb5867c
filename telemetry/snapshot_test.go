package telemetry

import (
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fluid/particles"
)

func TestSnapshotSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()

	body, err := particles.NewFluidBody([]r3.Vec{{X: 0.1, Y: 0.2, Z: 0.3}, {X: 0.4, Y: 0.5, Z: 0.6}}, 0.1, 1, particles.WCSPH)
	if err != nil {
		t.Fatalf("NewFluidBody failed: %v", err)
	}
	defer body.Dispose()
	body.VelocitiesSPH[1] = r3.Vec{X: 1, Y: -2, Z: 3}
	body.Densities[0] = 0.9
	body.Pressures[0] = 12

	snapshot := TakeSnapshot(body, 120, 0.096)
	snapshot.Bookmark = &Bookmark{Type: BookmarkSpeedSpike, Step: 120, Description: "Test bookmark"}

	path, err := SaveSnapshot(snapshot, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("Snapshot file not created at %s", path)
	}

	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}

	if loaded.Type != particles.WCSPH {
		t.Errorf("Type mismatch: got %v, want WCSPH", loaded.Type)
	}
	if loaded.Step != 120 || loaded.SimTime != 0.096 {
		t.Errorf("Step/SimTime mismatch: got %d/%g", loaded.Step, loaded.SimTime)
	}
	if len(loaded.Particles) != 2 {
		t.Fatalf("Particles count mismatch: got %d, want 2", len(loaded.Particles))
	}
	if loaded.Particles[0].Position != [3]float64{0.1, 0.2, 0.3} {
		t.Errorf("Position mismatch: got %v", loaded.Particles[0].Position)
	}
	if loaded.Particles[1].Velocity != [3]float64{1, -2, 3} {
		t.Errorf("Velocity mismatch: got %v", loaded.Particles[1].Velocity)
	}
	if loaded.Particles[0].Density != 0.9 || loaded.Particles[0].Pressure != 12 {
		t.Errorf("Density/Pressure mismatch: got %+v", loaded.Particles[0])
	}
	if loaded.Bookmark == nil {
		t.Error("Bookmark not loaded")
	} else if loaded.Bookmark.Type != BookmarkSpeedSpike {
		t.Errorf("Bookmark type mismatch: got %s", loaded.Bookmark.Type)
	}
}

func TestSnapshotFilename(t *testing.T) {
	tmpDir := t.TempDir()

	snapshot := &Snapshot{
		Version:  SnapshotVersion,
		Type:     particles.PBD,
		Step:     5000,
		Bookmark: &Bookmark{Type: BookmarkSettled, Step: 5000},
	}
	path, err := SaveSnapshot(snapshot, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if expected := filepath.Join(tmpDir, "snapshot_PBD_5000_settled.json"); path != expected {
		t.Errorf("Path mismatch: got %s, want %s", path, expected)
	}

	path, err = SaveSnapshot(&Snapshot{Version: SnapshotVersion, Type: particles.CSPH, Step: 3000}, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if expected := filepath.Join(tmpDir, "snapshot_CSPH_3000.json"); path != expected {
		t.Errorf("Path mismatch: got %s, want %s", path, expected)
	}
}

func TestTakeSnapshotDisposed(t *testing.T) {
	if TakeSnapshot(nil, 0, 0) != nil {
		t.Error("expected nil snapshot for nil body")
	}

	body, err := particles.NewFluidBody([]r3.Vec{{}}, 0.1, 1, particles.PBD)
	if err != nil {
		t.Fatalf("NewFluidBody failed: %v", err)
	}
	body.Dispose()
	if TakeSnapshot(body, 0, 0) != nil {
		t.Error("expected nil snapshot for disposed body")
	}
}

func TestLoadSnapshotVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.json")
	if err := os.WriteFile(path, []byte(`{"version": 99}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSnapshot(path); err == nil {
		t.Error("expected version error")
	}
}
