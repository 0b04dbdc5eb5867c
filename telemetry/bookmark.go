package telemetry

import (
	"fmt"
	"log/slog"
	"math"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkInvalid     BookmarkType = "invalid_particles"
	BookmarkSpeedSpike  BookmarkType = "speed_spike"
	BookmarkCompression BookmarkType = "compression"
	BookmarkSettled     BookmarkType = "settled"
)

// Detection thresholds.
const (
	speedSpikeFactor   = 3.0  // max speed over rolling average
	compressionLimit   = 1.25 // P90 density over rest density
	settledEnergyRatio = 0.02 // kinetic energy over its peak
	settledWindows     = 5
)

// Bookmark marks a stats window worth a closer look.
type Bookmark struct {
	Type        BookmarkType `json:"type"`
	Step        int          `json:"step"`
	Description string       `json:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"step", b.Step,
		"description", b.Description,
	)
}

// BookmarkDetector watches successive stats windows for blow-ups,
// over-compression and the fluid coming to rest.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	peakEnergy  float64
	calmWindows int
	settled     bool
	invalidSeen bool
	compressed  bool
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 3 {
		historySize = 3
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyses the latest window and returns any triggered bookmarks.
// Each condition fires once when entered and re-arms when it clears.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var out []Bookmark

	if b := bd.checkInvalid(stats); b != nil {
		out = append(out, *b)
	}
	if b := bd.checkSpeedSpike(stats); b != nil {
		out = append(out, *b)
	}
	if b := bd.checkCompression(stats); b != nil {
		out = append(out, *b)
	}
	if b := bd.checkSettled(stats); b != nil {
		out = append(out, *b)
	}

	bd.addToHistory(stats)
	return out
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

func (bd *BookmarkDetector) checkInvalid(stats WindowStats) *Bookmark {
	if stats.Invalid == 0 {
		bd.invalidSeen = false
		return nil
	}
	if bd.invalidSeen {
		return nil
	}
	bd.invalidSeen = true
	return &Bookmark{
		Type:        BookmarkInvalid,
		Step:        stats.WindowEndStep,
		Description: fmt.Sprintf("%d of %d particles have non-finite positions", stats.Invalid, stats.FluidParticles),
	}
}

func (bd *BookmarkDetector) checkSpeedSpike(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var sum float64
	for _, h := range history {
		sum += h.SpeedMax
	}
	avg := sum / float64(len(history))
	if avg <= 0 || !(stats.SpeedMax > avg*speedSpikeFactor) {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkSpeedSpike,
		Step:        stats.WindowEndStep,
		Description: fmt.Sprintf("Max speed %.3g is %.1fx average (%.3g)", stats.SpeedMax, stats.SpeedMax/avg, avg),
	}
}

func (bd *BookmarkDetector) checkCompression(stats WindowStats) *Bookmark {
	if !(stats.DensityP90 > compressionLimit) {
		bd.compressed = false
		return nil
	}
	if bd.compressed {
		return nil
	}
	bd.compressed = true
	return &Bookmark{
		Type:        BookmarkCompression,
		Step:        stats.WindowEndStep,
		Description: fmt.Sprintf("P90 density %.3f exceeds %.2fx rest density", stats.DensityP90, compressionLimit),
	}
}

func (bd *BookmarkDetector) checkSettled(stats WindowStats) *Bookmark {
	bd.peakEnergy = math.Max(bd.peakEnergy, stats.KineticEnergy)
	if bd.peakEnergy <= 0 || stats.KineticEnergy > bd.peakEnergy*settledEnergyRatio {
		bd.calmWindows = 0
		bd.settled = false
		return nil
	}

	bd.calmWindows++
	if bd.settled || bd.calmWindows < settledWindows {
		return nil
	}
	bd.settled = true
	return &Bookmark{
		Type:        BookmarkSettled,
		Step:        stats.WindowEndStep,
		Description: fmt.Sprintf("Kinetic energy below %.0f%% of peak for %d windows", settledEnergyRatio*100, bd.calmWindows),
	}
}
