package session

import (
	"testing"

	"github.com/gpudc/simulator/internal/config"
	"github.com/gpudc/simulator/internal/evaluator"
	"github.com/gpudc/simulator/internal/simulator"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	sim, err := simulator.New(config.Default(), "")
	if err != nil {
		t.Fatalf("simulator.New() error = %v", err)
	}
	t.Cleanup(func() { sim.Close() })
	return New(sim, evaluator.New())
}

func TestStart_UnknownScenarioReturnsNotFound(t *testing.T) {
	m := testManager(t)
	if _, err := m.Start("nonexistent", "agent", nil); err == nil {
		t.Fatal("Start(unknown scenario) err = nil")
	}
}

func TestStart_SecondSessionWhileActiveIsRejected(t *testing.T) {
	m := testManager(t)
	if _, err := m.Start("steady_state", "agent-a", nil); err != nil {
		t.Fatalf("first Start() error = %v", err)
	}
	if _, err := m.Start("steady_state", "agent-b", nil); err == nil {
		t.Fatal("second concurrent Start() should fail")
	}
}

func TestStep_WithoutAnActiveSessionFails(t *testing.T) {
	m := testManager(t)
	if _, err := m.Step(); err == nil {
		t.Fatal("Step() without a session should fail")
	}
}

func TestStep_AdvancesTickAndReportsDoneAtBoundary(t *testing.T) {
	m := testManager(t)
	info, err := m.Start("steady_state", "agent", nil)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	var last StepResult
	for i := int64(0); i < info.DurationTicks; i++ {
		last, err = m.Step()
		if err != nil {
			t.Fatalf("Step() at tick %d error = %v", i, err)
		}
	}
	if !last.Done {
		t.Errorf("Done = false after stepping through all %d ticks", info.DurationTicks)
	}
	if last.Tick != info.DurationTicks {
		t.Errorf("Tick = %d, want %d", last.Tick, info.DurationTicks)
	}

	if _, err := m.Step(); err == nil {
		t.Error("Step() past max_ticks should fail")
	}
}

func TestGetStatus_RemainingTicksInvariant(t *testing.T) {
	m := testManager(t)
	info, err := m.Start("steady_state", "agent", nil)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	m.Step()
	m.Step()

	status := m.GetStatus()
	if status.RemainingTicks != status.MaxTicks-status.CurrentTick {
		t.Errorf("RemainingTicks (%d) != MaxTicks-CurrentTick (%d)", status.RemainingTicks, status.MaxTicks-status.CurrentTick)
	}
	if status.MaxTicks != info.DurationTicks {
		t.Errorf("MaxTicks = %d, want %d", status.MaxTicks, info.DurationTicks)
	}
}

func TestGetStatus_InactiveWhenNoSession(t *testing.T) {
	m := testManager(t)
	status := m.GetStatus()
	if status.Active {
		t.Errorf("Active = true with no session started")
	}
}

func TestEnd_ClearsSessionAndRestoresConfig(t *testing.T) {
	m := testManager(t)
	before := m.sim.Config()

	m.Start("thermal_crisis", "agent", nil)
	m.Step()

	var result evaluator.Result
	var err error
	if result, err = m.End(); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if result.ScenarioID != "thermal_crisis" {
		t.Errorf("ScenarioID = %q, want thermal_crisis", result.ScenarioID)
	}

	after := m.sim.Config()
	if after.RNGSeed != before.RNGSeed {
		t.Errorf("RNGSeed after End() = %d, want restored %d", after.RNGSeed, before.RNGSeed)
	}

	status := m.GetStatus()
	if status.Active {
		t.Errorf("session still active after End()")
	}
}

func TestEnd_WithoutAnActiveSessionFails(t *testing.T) {
	m := testManager(t)
	if _, err := m.End(); err == nil {
		t.Fatal("End() without a session should fail")
	}
}
