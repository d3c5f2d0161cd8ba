package cooling

import (
	"math/rand"
	"testing"

	"github.com/gpudc/simulator/internal/config"
)

func testModel() *Model {
	fc := config.FacilityConfig{NumRacks: 4, ServersPerRack: 2, GPUsPerServer: 2}
	th := config.ThermalConfig{AmbientTempC: 22, CracSetpointC: 18, CracCoolingCapacityKW: 50, CracUnits: 2}
	return New(fc, th, rand.New(rand.NewSource(1)))
}

func TestStep_COPClampedToConfiguredRange(t *testing.T) {
	m := testModel()
	for _, ambient := range []float64{-10, 10, 22, 35, 60} {
		state := m.Step(80, ambient, nil, nil, nil, 0)
		if state.Tower.COP < 2.0 || state.Tower.COP > 6.0 {
			t.Errorf("ambient=%v: COP = %v, want within [2.0, 6.0]", ambient, state.Tower.COP)
		}
	}
}

func TestStep_FailedCracHasZeroCoolingAndFaultCode(t *testing.T) {
	m := testModel()
	state := m.Step(80, 22, nil, map[int]bool{0: true}, nil, 0)
	if state.Cracs[0].CoolingKW != 0 {
		t.Errorf("failed crac CoolingKW = %v, want 0", state.Cracs[0].CoolingKW)
	}
	if state.Cracs[0].FaultCode != 1 {
		t.Errorf("failed crac FaultCode = %d, want 1", state.Cracs[0].FaultCode)
	}
	if state.Summary.HealthyCracCount != 1 {
		t.Errorf("HealthyCracCount = %d, want 1 (one of two crac units failed)", state.Summary.HealthyCracCount)
	}
}

func TestStep_DegradedCracCoolsAtHalfCapacity(t *testing.T) {
	m := testModel()
	healthy := m.Step(80, 22, nil, nil, nil, 0)
	degraded := m.Step(80, 22, nil, nil, map[int]bool{0: true}, 0)

	if degraded.Cracs[0].CoolingKW >= healthy.Cracs[0].CoolingKW {
		t.Errorf("degraded crac cooling %v should be less than healthy %v", degraded.Cracs[0].CoolingKW, healthy.Cracs[0].CoolingKW)
	}
}

func TestStep_SetpointOverrideIsClampedAndApplied(t *testing.T) {
	m := testModel()
	state := m.Step(80, 22, map[int]float64{0: 100}, nil, nil, 0)
	if state.Cracs[0].SupplyAirTempC != 25 {
		t.Errorf("SupplyAirTempC = %v, want clamped to 25 (max)", state.Cracs[0].SupplyAirTempC)
	}

	state2 := m.Step(80, 22, map[int]float64{0: 1}, nil, nil, 0)
	if state2.Cracs[0].SupplyAirTempC != 12 {
		t.Errorf("SupplyAirTempC = %v, want clamped to 12 (min)", state2.Cracs[0].SupplyAirTempC)
	}
}

func TestStep_CoolingPowerEqualsTotalOverCOP(t *testing.T) {
	m := testModel()
	state := m.Step(80, 22, nil, nil, nil, 0)
	expected := state.Plant.TotalCoolingKW / state.Tower.COP
	if abs(expected-state.Plant.CoolingPowerKW) > 1e-9 {
		t.Errorf("CoolingPowerKW = %v, want TotalCoolingKW/COP = %v", state.Plant.CoolingPowerKW, expected)
	}
}

func TestStep_AllUnitsFailedFallsBackToOneHealthyDivisor(t *testing.T) {
	m := testModel()
	// Should not divide by zero or panic when every crac is failed.
	state := m.Step(80, 22, nil, map[int]bool{0: true, 1: true}, nil, 0)
	if state.Summary.HealthyCracCount != 0 {
		t.Errorf("HealthyCracCount = %d, want 0", state.Summary.HealthyCracCount)
	}
	for _, c := range state.Cracs {
		if c.CoolingKW != 0 {
			t.Errorf("crac %d cooling should be zero when failed, got %v", c.CracID, c.CoolingKW)
		}
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
