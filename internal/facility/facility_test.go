package facility

import (
	"testing"

	"github.com/gpudc/simulator/internal/config"
	"github.com/gpudc/simulator/internal/rng"
)

func testFacility() (*Facility, *rng.Streams) {
	cfg := config.Default()
	streams := rng.New(cfg.RNGSeed)
	return New(cfg, streams), streams
}

func TestStep_AdvancesEveryModelAndReturnsConsistentState(t *testing.T) {
	f, _ := testFacility()
	state := f.Step(0, 1, 60, Inputs{})

	if len(state.Power.Racks) != config.Default().Facility.NumRacks {
		t.Errorf("Power.Racks has %d entries, want %d", len(state.Power.Racks), config.Default().Facility.NumRacks)
	}
	if state.TickCount != 1 {
		t.Errorf("TickCount = %d, want 1", state.TickCount)
	}
	if state.Workload.Pending+state.Workload.Running+state.Workload.Completed < 0 {
		t.Errorf("negative workload counters: %+v", state.Workload)
	}
}

func TestThrottledRacks_ReflectsLastThermalTick(t *testing.T) {
	f, _ := testFacility()
	before := f.ThrottledRacks()
	if len(before) != 0 {
		t.Fatalf("ThrottledRacks() before any Step should be empty, got %v", before)
	}

	f.Step(0, 1, 60, Inputs{})
	after := f.ThrottledRacks()
	if len(after) != config.Default().Facility.NumRacks {
		t.Errorf("ThrottledRacks() after one Step has %d entries, want %d", len(after), config.Default().Facility.NumRacks)
	}
}

func TestAmbientTempC_DefaultsToConfiguredAmbientBeforeFirstTick(t *testing.T) {
	f, _ := testFacility()
	cfg := config.Default()
	if got := f.AmbientTempC(); got != cfg.Thermal.AmbientTempC {
		t.Errorf("AmbientTempC() = %v before any Step, want configured ambient %v", got, cfg.Thermal.AmbientTempC)
	}
}

func TestReset_RestoresInitialAmbientAndClearsQueue(t *testing.T) {
	f, streams := testFacility()
	for i := 0; i < 20; i++ {
		f.Step(float64(i)*60, int64(i), 60, Inputs{})
	}

	f.Reset(streams)
	cfg := config.Default()
	if got := f.AmbientTempC(); got != cfg.Thermal.AmbientTempC {
		t.Errorf("AmbientTempC() after Reset = %v, want %v", got, cfg.Thermal.AmbientTempC)
	}
	if len(f.Queue.Running) != 0 || len(f.Queue.Completed) != 0 {
		t.Errorf("Reset did not clear the queue: running=%d completed=%d", len(f.Queue.Running), len(f.Queue.Completed))
	}
}

func TestStep_CoolingCapacityFactorReducesCoolingPower(t *testing.T) {
	f, _ := testFacility()
	full := f.Step(0, 1, 60, Inputs{})

	f2, _ := testFacility()
	reduced := f2.Step(0, 1, 60, Inputs{CoolingCapacityFactor: map[int]float64{0: 0.0, 1: 0.0, 2: 0.0, 3: 0.0}})

	if reduced.Cooling.Plant.TotalCoolingKW > full.Cooling.Plant.TotalCoolingKW {
		t.Errorf("reduced cooling-capacity tick produced more total cooling (%v) than baseline (%v)",
			reduced.Cooling.Plant.TotalCoolingKW, full.Cooling.Plant.TotalCoolingKW)
	}
}
