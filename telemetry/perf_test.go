package telemetry

import (
	"testing"
	"time"
)

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartStep()
		pc.StartPhase(PhaseSpatialHash)
		time.Sleep(100 * time.Microsecond)
		pc.StartPhase(PhaseDensity)
		time.Sleep(200 * time.Microsecond)
		pc.EndStep()
	}

	stats := pc.Stats()

	if stats.AvgStepDuration <= 0 {
		t.Error("expected positive average step duration")
	}
	if stats.MinStepDuration > stats.P95StepDuration || stats.P95StepDuration > stats.MaxStepDuration {
		t.Errorf("expected min <= p95 <= max, got %v %v %v",
			stats.MinStepDuration, stats.P95StepDuration, stats.MaxStepDuration)
	}
	if _, ok := stats.PhaseAvg[PhaseSpatialHash]; !ok {
		t.Error("expected spatial_hash phase to be tracked")
	}
	if _, ok := stats.PhaseAvg[PhaseDensity]; !ok {
		t.Error("expected density phase to be tracked")
	}
}

func TestPerfCollector_RepeatedPhaseAccumulates(t *testing.T) {
	pc := NewPerfCollector(4)

	pc.StartStep()
	pc.StartPhase(PhaseConstraint)
	time.Sleep(200 * time.Microsecond)
	pc.StartPhase(PhaseCollision)
	pc.StartPhase(PhaseConstraint)
	time.Sleep(200 * time.Microsecond)
	pc.EndStep()

	stats := pc.Stats()
	if stats.PhaseAvg[PhaseConstraint] < 400*time.Microsecond {
		t.Errorf("expected both constraint spans to count, got %v", stats.PhaseAvg[PhaseConstraint])
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc := NewPerfCollector(5)

	for i := 0; i < 10; i++ {
		pc.StartStep()
		pc.StartPhase(PhaseSpatialHash)
		pc.EndStep()
	}

	stats := pc.Stats()
	if stats.AvgStepDuration <= 0 {
		t.Error("expected positive average step duration after window filled")
	}
	if stats.StepsPerSecond <= 0 {
		t.Error("expected positive steps per second")
	}
}

func TestPerfCollector_PhasePercentages(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartStep()
		pc.StartPhase("fast")
		time.Sleep(10 * time.Microsecond)
		pc.StartPhase("slow")
		time.Sleep(100 * time.Microsecond)
		pc.EndStep()
	}

	stats := pc.Stats()
	if stats.PhasePct["slow"] <= stats.PhasePct["fast"] {
		t.Errorf("expected slow phase (%v%%) > fast phase (%v%%)", stats.PhasePct["slow"], stats.PhasePct["fast"])
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	pc := NewPerfCollector(10)

	stats := pc.Stats()
	if stats.AvgStepDuration != 0 {
		t.Error("expected zero avg step duration for empty collector")
	}
	if stats.PhaseAvg == nil || stats.PhasePct == nil {
		t.Error("expected non-nil phase maps")
	}
}

func TestPerfCollector_FrameTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	pc.RecordFrame()
	time.Sleep(16 * time.Millisecond)
	pc.RecordFrame()

	stats := pc.Stats()
	if stats.FrameDuration < 15*time.Millisecond {
		t.Errorf("expected frame duration >= 15ms, got %v", stats.FrameDuration)
	}
	if stats.FPS < 20 || stats.FPS > 80 {
		t.Errorf("expected FPS between 20-80 with 16ms frame time, got %v", stats.FPS)
	}
}

func TestPerfStats_ToCSV(t *testing.T) {
	s := PerfStats{
		AvgStepDuration: 1500 * time.Microsecond,
		PhasePct: map[string]float64{
			PhaseSpatialHash: 12.5,
			PhaseConstraint:  60,
		},
	}

	row := s.ToCSV(300)
	if row.WindowEnd != 300 || row.AvgStepUS != 1500 {
		t.Errorf("unexpected header fields %+v", row)
	}
	if row.SpatialHashPct != 12.5 || row.ConstraintPct != 60 || row.ForcesPct != 0 {
		t.Errorf("unexpected phase columns %+v", row)
	}
}
