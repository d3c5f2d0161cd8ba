package storage

import (
	"math/rand"
	"testing"

	"github.com/gpudc/simulator/internal/config"
	"github.com/gpudc/simulator/internal/workload"
)

func testModel() *Model {
	return New(config.FacilityConfig{NumRacks: 2, ServersPerRack: 2, GPUsPerServer: 2}, rand.New(rand.NewSource(1)))
}

func TestStep_IdleServerGetsFloorReadIOPS(t *testing.T) {
	m := testModel()
	state := m.Step(map[string]float64{}, nil, 0, 60)
	for _, r := range state.Racks {
		if r.ReadIOPS <= 0 {
			t.Errorf("rack %d ReadIOPS = %v, want > 0 from idle floor", r.RackID, r.ReadIOPS)
		}
	}
}

func TestStep_DriveHealthDeclinesWithSustainedWrites(t *testing.T) {
	m := testModel()
	running := []*workload.Job{{ID: "j1", Type: workload.Training, AssignedServers: []string{"rack-0-srv-0"}}}
	util := map[string]float64{"rack-0-srv-0": 1.0}

	var first, last float64
	for i := 0; i < 100; i++ {
		state := m.Step(util, running, float64(i)*3600, 3600)
		if i == 0 {
			first = state.Racks[0].DriveHealthPct
		}
		last = state.Racks[0].DriveHealthPct
	}
	if last >= first {
		t.Errorf("DriveHealthPct did not decline under sustained writes: first=%v last=%v", first, last)
	}
	if last < 0 {
		t.Errorf("DriveHealthPct went negative: %v", last)
	}
}

func TestStep_UsedCapacityNeverExceedsOneHundred(t *testing.T) {
	m := testModel()
	running := []*workload.Job{{ID: "j1", Type: workload.Training, AssignedServers: []string{"rack-0-srv-0"}}}
	util := map[string]float64{"rack-0-srv-0": 1.0}

	var last float64
	for i := 0; i < 5000; i++ {
		state := m.Step(util, running, float64(i)*60, 60)
		last = state.Racks[0].UsedCapacityPct
	}
	if last > 100 {
		t.Errorf("UsedCapacityPct = %v, must be clamped to 100", last)
	}
}

func TestReset_ClearsCumulativeCounters(t *testing.T) {
	m := testModel()
	running := []*workload.Job{{ID: "j1", Type: workload.Training, AssignedServers: []string{"rack-0-srv-0"}}}
	util := map[string]float64{"rack-0-srv-0": 1.0}
	for i := 0; i < 50; i++ {
		m.Step(util, running, float64(i)*60, 60)
	}

	m.Reset()
	for _, v := range m.cumulativePB {
		if v != 0 {
			t.Fatalf("Reset did not clear cumulativePB: %v", m.cumulativePB)
		}
	}
	for _, v := range m.usedCapacityPct {
		if v != 0 {
			t.Fatalf("Reset did not clear usedCapacityPct: %v", m.usedCapacityPct)
		}
	}
}
