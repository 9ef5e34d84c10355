package observability

import (
	"context"
	"testing"
	"time"

	"github.com/visionqc/visionqc/internal/random"
	"github.com/visionqc/visionqc/internal/schedule"
)

type recordingSink struct {
	added []AlertSeverity
	titles []string
}

func (s *recordingSink) Add(severity AlertSeverity, title, _ string) string {
	s.added = append(s.added, severity)
	s.titles = append(s.titles, title)
	return "sink-id"
}

func scriptedSimulator(ints []int, floats []float64, sink AlertSink) (*Simulator, *schedule.Manual) {
	clk := schedule.NewManual(testEpoch)
	cfg := DefaultSimulatorConfig()
	cfg.Clock = clk
	cfg.Rand = random.NewSequence(ints, floats)
	return NewSimulator(cfg, sink), clk
}

func TestStats_PassRate(t *testing.T) {
	s := Stats{TotalInspected: 1247, PassCount: 1226}
	if got := s.PassRateString(); got != "98.3" {
		t.Errorf("PassRateString() = %q, want 98.3", got)
	}
	if got := (Stats{}).PassRate(); got != 0 {
		t.Errorf("PassRate() with zero total = %v, want 0", got)
	}
	if got := (Stats{TotalInspected: 3, PassCount: 2}).PassRateString(); got != "66.7" {
		t.Errorf("PassRateString() = %q, want 66.7", got)
	}
}

func TestSimulator_TickAppliesDrawsInOrder(t *testing.T) {
	sink := &recordingSink{}
	// total +2, pass +1; fail draw 0.1 (<0.2), error draw 0.5, warning draw 0.99.
	sim, _ := scriptedSimulator([]int{2, 1}, []float64{0.1, 0.5, 0.99}, sink)

	res := sim.Tick()

	want := Stats{TotalInspected: 1249, PassCount: 1227, FailCount: 22, AvgLatency: 0.8, Uptime: "99.7%"}
	if res.After != want {
		t.Errorf("After = %+v, want %+v", res.After, want)
	}
	if res.Before != DefaultStats() {
		t.Errorf("Before = %+v, want defaults", res.Before)
	}
	if res.Severity != "" || len(sink.added) != 0 {
		t.Errorf("expected no alert, got %q (%v)", res.Severity, sink.added)
	}
	if sim.Snapshot() != want {
		t.Errorf("Snapshot() = %+v, want %+v", sim.Snapshot(), want)
	}
}

func TestSimulator_ErrorAlertSkipsWarningDraw(t *testing.T) {
	sink := &recordingSink{}
	// fail 0.9 (no), error 0.01 (yes); the next float would be a warning
	// draw but must be consumed by the following tick instead.
	sim, _ := scriptedSimulator([]int{0, 0}, []float64{0.9, 0.01, 0.9, 0.5, 0.05}, sink)

	res := sim.Tick()
	if res.Severity != SeverityError {
		t.Fatalf("expected error alert, got %q", res.Severity)
	}
	if res.AlertID != "sink-id" {
		t.Errorf("expected sink identity in result, got %q", res.AlertID)
	}
	if sink.titles[0] != AnomalyTitle {
		t.Errorf("expected %q title, got %q", AnomalyTitle, sink.titles[0])
	}

	// Second tick: fail 0.9, error 0.5 (no), warning 0.05 (yes).
	res = sim.Tick()
	if res.Severity != SeverityWarning {
		t.Fatalf("expected warning alert on second tick, got %q", res.Severity)
	}
	if sink.titles[1] != LowConfidenceTitle {
		t.Errorf("expected %q title, got %q", LowConfidenceTitle, sink.titles[1])
	}
	if res.After.FailCount != 21 {
		t.Errorf("fail count changed without a fail draw: %d", res.After.FailCount)
	}
}

func TestSimulator_DriftReproducedByDefault(t *testing.T) {
	cfg := DefaultSimulatorConfig()
	cfg.Initial = Stats{TotalInspected: 10, PassCount: 10}
	cfg.Rand = random.NewSequence([]int{0, 2}, []float64{0.0, 0.9, 0.9})
	cfg.Clock = schedule.NewManual(testEpoch)
	sim := NewSimulator(cfg, nil)

	res := sim.Tick()
	if res.After.PassCount+res.After.FailCount <= res.After.TotalInspected {
		t.Errorf("expected uncorrelated drift past total, got %+v", res.After)
	}
}

func TestSimulator_EnforceBounds(t *testing.T) {
	cfg := DefaultSimulatorConfig()
	cfg.EnforceBounds = true
	cfg.Initial = Stats{TotalInspected: 10, PassCount: 9}
	cfg.Rand = random.NewSequence([]int{1, 2}, []float64{0.0, 0.9, 0.9})
	cfg.Clock = schedule.NewManual(testEpoch)
	sim := NewSimulator(cfg, nil)

	for i := 0; i < 20; i++ {
		s := sim.Tick().After
		if s.PassCount+s.FailCount > s.TotalInspected {
			t.Fatalf("tick %d violated bounds: %+v", i, s)
		}
	}
}

func TestSimulator_StartTicksOnInterval(t *testing.T) {
	sim, clk := scriptedSimulator([]int{1, 1}, []float64{0.9, 0.9, 0.9}, nil)

	ticks := 0
	sim.OnTick(func(TickResult) { ticks++ })

	stop := sim.Start()
	clk.Advance(DefaultTickInterval*3 + time.Second)
	if ticks != 3 {
		t.Fatalf("expected 3 ticks, got %d", ticks)
	}
	if sim.Ticks() != 3 {
		t.Errorf("Ticks() = %d, want 3", sim.Ticks())
	}

	stop()
	if clk.Pending() != 0 {
		t.Errorf("tick timer still armed after stop")
	}
	clk.Advance(time.Minute)
	if ticks != 3 {
		t.Errorf("ticks continued after stop: %d", ticks)
	}
	stop()
}

func TestSimulator_RunStopsOnCancel(t *testing.T) {
	clk := schedule.NewManual(testEpoch)
	cfg := DefaultSimulatorConfig()
	cfg.Clock = clk
	sim := NewSimulator(cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sim.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for clk.Pending() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Run never armed its timer")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if clk.Pending() != 0 {
		t.Errorf("Run left its timer armed")
	}
}

func TestSimulator_FeedsAlertQueue(t *testing.T) {
	clk := schedule.NewManual(testEpoch)
	q := NewAlertQueue(QueueConfig{Clock: clk})
	cfg := DefaultSimulatorConfig()
	cfg.Clock = clk
	cfg.Rand = random.NewSequence([]int{0}, []float64{0.9, 0.0})
	sim := NewSimulator(cfg, q)

	sim.Tick()
	alerts := q.List()
	if len(alerts) != 1 || alerts[0].Severity != SeverityError {
		t.Fatalf("expected one error alert, got %+v", alerts)
	}
	if alerts[0].Message != AnomalyMessage {
		t.Errorf("unexpected message %q", alerts[0].Message)
	}
}

func TestSimulator_WritesTickEvents(t *testing.T) {
	log := newTestEventLog(t)
	cfg := DefaultSimulatorConfig()
	cfg.Clock = schedule.NewManual(testEpoch)
	cfg.Rand = random.NewSequence([]int{1}, []float64{0.9})
	cfg.Events = log
	sim := NewSimulator(cfg, nil)

	sim.Tick()
	sim.Tick()

	events, err := log.Read(EventFilter{Type: EventSimulatorTick})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 tick events, got %d", len(events))
	}
	if got := events[1].Data["total_inspected"]; got != float64(1249) {
		t.Errorf("total_inspected = %v, want 1249", got)
	}
}
