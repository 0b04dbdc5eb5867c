package telemetry

import "testing"

func hasBookmark(bms []Bookmark, typ BookmarkType) bool {
	for _, bm := range bms {
		if bm.Type == typ {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_SpeedSpike(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{WindowEndStep: i * 60, SpeedMax: 1, KineticEnergy: 1})
	}

	bms := bd.Check(WindowStats{WindowEndStep: 300, SpeedMax: 5, KineticEnergy: 1})
	if !hasBookmark(bms, BookmarkSpeedSpike) {
		t.Error("expected speed_spike bookmark")
	}
	if bms[0].Step != 300 {
		t.Errorf("bookmark step %d, want 300", bms[0].Step)
	}
}

func TestBookmarkDetector_SpeedSpikeNeedsHistory(t *testing.T) {
	bd := NewBookmarkDetector(10)
	bd.Check(WindowStats{SpeedMax: 1})

	if bms := bd.Check(WindowStats{SpeedMax: 100}); hasBookmark(bms, BookmarkSpeedSpike) {
		t.Error("speed_spike fired without enough history")
	}
}

func TestBookmarkDetector_InvalidFiresOnce(t *testing.T) {
	bd := NewBookmarkDetector(10)

	if !hasBookmark(bd.Check(WindowStats{Invalid: 3, FluidParticles: 10}), BookmarkInvalid) {
		t.Fatal("expected invalid_particles bookmark")
	}
	if hasBookmark(bd.Check(WindowStats{Invalid: 4, FluidParticles: 10}), BookmarkInvalid) {
		t.Error("invalid_particles fired twice in a row")
	}

	// Re-arms after a clean window.
	bd.Check(WindowStats{FluidParticles: 10})
	if !hasBookmark(bd.Check(WindowStats{Invalid: 1, FluidParticles: 10}), BookmarkInvalid) {
		t.Error("expected invalid_particles to re-arm")
	}
}

func TestBookmarkDetector_Compression(t *testing.T) {
	bd := NewBookmarkDetector(10)

	if hasBookmark(bd.Check(WindowStats{DensityP90: 1.1}), BookmarkCompression) {
		t.Error("compression fired below the limit")
	}
	if !hasBookmark(bd.Check(WindowStats{DensityP90: 1.5}), BookmarkCompression) {
		t.Error("expected compression bookmark")
	}
	if hasBookmark(bd.Check(WindowStats{DensityP90: 1.6}), BookmarkCompression) {
		t.Error("compression fired twice in a row")
	}
}

func TestBookmarkDetector_Settled(t *testing.T) {
	bd := NewBookmarkDetector(10)
	bd.Check(WindowStats{KineticEnergy: 100})

	fired := 0
	for i := 1; i <= 8; i++ {
		if hasBookmark(bd.Check(WindowStats{WindowEndStep: i, KineticEnergy: 0.5}), BookmarkSettled) {
			fired++
			if i != settledWindows {
				t.Errorf("settled fired at window %d, want %d", i, settledWindows)
			}
		}
	}
	if fired != 1 {
		t.Errorf("settled fired %d times, want 1", fired)
	}

	// Motion resets the count.
	bd.Check(WindowStats{KineticEnergy: 50})
	if hasBookmark(bd.Check(WindowStats{KineticEnergy: 0.5}), BookmarkSettled) {
		t.Error("settled fired right after motion resumed")
	}
}
