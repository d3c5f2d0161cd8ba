package network

import (
	"math/rand"
	"testing"

	"github.com/gpudc/simulator/internal/config"
)

func testModel() *Model {
	return New(config.FacilityConfig{NumRacks: 3, ServersPerRack: 2, GPUsPerServer: 2}, rand.New(rand.NewSource(1)))
}

func TestQueueLatency_RhoClampedBelowOne(t *testing.T) {
	avg, p99 := queueLatency(2, 1.5)
	if avg <= 0 || p99 <= avg {
		t.Errorf("queueLatency(2, 1.5) = (%v, %v), expected rho clamped and p99 > avg", avg, p99)
	}
}

func TestLossPct_ZeroBelowThreshold(t *testing.T) {
	if l := lossPct(0.5); l != 0 {
		t.Errorf("lossPct(0.5) = %v, want 0", l)
	}
}

func TestLossPct_CappedAtTwoPercent(t *testing.T) {
	if l := lossPct(1.0); l > 2 {
		t.Errorf("lossPct(1.0) = %v, want <= 2", l)
	}
}

func TestRackOf_ParsesServerID(t *testing.T) {
	if r := rackOf("rack-12-srv-3"); r != 12 {
		t.Errorf("rackOf = %d, want 12", r)
	}
	if r := rackOf("rack-0-srv-0"); r != 0 {
		t.Errorf("rackOf = %d, want 0", r)
	}
}

func TestStep_PartitionedRackHasNoTraffic(t *testing.T) {
	m := testModel()
	util := map[string]float64{"rack-0-srv-0": 1.0, "rack-1-srv-0": 1.0}
	state := m.Step(util, nil, map[int]bool{0: true}, 0)

	if !state.Racks[0].Partitioned {
		t.Fatalf("rack 0 should be marked Partitioned")
	}
	if state.Racks[0].ToRTrafficGbps != 0 {
		t.Errorf("partitioned rack should carry no traffic, got %v", state.Racks[0].ToRTrafficGbps)
	}
	if state.Racks[1].Partitioned {
		t.Errorf("rack 1 should not be partitioned")
	}
}

func TestStep_CRCErrorsAreCumulativeAcrossTicks(t *testing.T) {
	m := testModel()
	var last int64
	for i := 0; i < 20000; i++ {
		state := m.Step(nil, nil, nil, float64(i))
		if state.Racks[0].CRCErrorsCum < last {
			t.Fatalf("CRC error counter decreased: %d -> %d", last, state.Racks[0].CRCErrorsCum)
		}
		last = state.Racks[0].CRCErrorsCum
	}
	if last == 0 {
		t.Errorf("expected at least one CRC error to accumulate over 20000 ticks at p=0.0005")
	}
}

func TestReset_ClearsCRCCounters(t *testing.T) {
	m := testModel()
	for i := 0; i < 2000; i++ {
		m.Step(nil, nil, nil, float64(i))
	}
	m.Reset()
	for _, c := range m.crcCum {
		if c != 0 {
			t.Fatalf("Reset did not clear crcCum: %v", m.crcCum)
		}
	}
}
