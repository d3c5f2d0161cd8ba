package thermal

import (
	"math/rand"
	"testing"

	"github.com/gpudc/simulator/internal/config"
)

func testConfig() (config.FacilityConfig, config.ThermalConfig) {
	return config.FacilityConfig{NumRacks: 4, ServersPerRack: 2, GPUsPerServer: 2},
		config.ThermalConfig{
			AmbientTempC: 22, CracSetpointC: 18, CracCoolingCapacityKW: 50,
			ThermalMassCoefficient: 0.3, MaxSafeInletTempC: 35, CriticalInletTempC: 40,
			CracUnits: 2,
		}
}

func TestNew_InitialisesInletToAmbient(t *testing.T) {
	fc, th := testConfig()
	m := New(fc, th, rand.New(rand.NewSource(1)))
	for r, v := range m.inlet {
		if v != th.AmbientTempC {
			t.Errorf("rack %d inlet = %v, want ambient %v", r, v, th.AmbientTempC)
		}
	}
}

func TestEffectiveAmbient_IsDiurnal(t *testing.T) {
	noon := EffectiveAmbient(22, 12*3600)
	midnight := EffectiveAmbient(22, 0)
	if noon == midnight {
		t.Errorf("EffectiveAmbient should vary with time of day: noon=%v midnight=%v", noon, midnight)
	}
}

func TestStep_HighHeatRaisesInletOverRepeatedTicks(t *testing.T) {
	fc, th := testConfig()
	m := New(fc, th, rand.New(rand.NewSource(1)))

	heat := map[int]float64{0: 20, 1: 0, 2: 0, 3: 0}
	cooling := map[int]float64{0: 0, 1: 1, 2: 1, 3: 1} // rack 0 has zero cooling capacity

	var last State
	for i := 0; i < 10; i++ {
		last = m.Step(heat, cooling, 60, float64(i)*60)
	}

	if last.Racks[0].InletTempC <= th.AmbientTempC {
		t.Errorf("rack 0 inlet did not rise under sustained heat with no cooling: %v", last.Racks[0].InletTempC)
	}
}

func TestStep_CriticalInletSetsThrottled(t *testing.T) {
	fc, th := testConfig()
	m := New(fc, th, rand.New(rand.NewSource(1)))
	heat := map[int]float64{0: 50, 1: 0, 2: 0, 3: 0}
	cooling := map[int]float64{0: 0, 1: 1, 2: 1, 3: 1}

	var last State
	for i := 0; i < 60; i++ {
		last = m.Step(heat, cooling, 60, float64(i)*60)
	}
	if !last.Racks[0].Throttled {
		t.Errorf("rack 0 should be throttled after sustained uncooled heat, inlet=%v critical=%v", last.Racks[0].InletTempC, th.CriticalInletTempC)
	}
}

func TestStep_InletNeverExceedsSixty(t *testing.T) {
	fc, th := testConfig()
	m := New(fc, th, rand.New(rand.NewSource(1)))
	heat := map[int]float64{0: 1000}
	cooling := map[int]float64{0: 0}
	var last State
	for i := 0; i < 200; i++ {
		last = m.Step(heat, cooling, 60, float64(i)*60)
	}
	if last.Racks[0].InletTempC > 60 {
		t.Errorf("InletTempC = %v, must be clamped to <= 60", last.Racks[0].InletTempC)
	}
}

func TestReset_RestoresInitialState(t *testing.T) {
	fc, th := testConfig()
	m := New(fc, th, rand.New(rand.NewSource(1)))
	heat := map[int]float64{0: 40}
	cooling := map[int]float64{0: 0}
	for i := 0; i < 20; i++ {
		m.Step(heat, cooling, 60, float64(i)*60)
	}

	m.Reset()
	for r, v := range m.inlet {
		if v != th.AmbientTempC {
			t.Errorf("rack %d inlet after Reset = %v, want ambient %v", r, v, th.AmbientTempC)
		}
	}
	for r, v := range m.humidity {
		if v != 45 {
			t.Errorf("rack %d humidity after Reset = %v, want 45", r, v)
		}
	}
}
