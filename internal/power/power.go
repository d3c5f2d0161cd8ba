// Package power implements the non-linear GPU power curve, per-server and
// per-rack rollups, and the dynamic-PUE facility totals (spec.md §4.4).
package power

import (
	"github.com/gpudc/simulator/internal/config"
	"github.com/gpudc/simulator/internal/ids"
)

// RackState is the per-rack power rollup.
type RackState struct {
	RackID     int     `json:"rack_id"`
	PowerKW    float64 `json:"power_kw"`
	PDUUtilPct float64 `json:"pdu_util_pct"`
}

// State is the full power substate for one tick.
type State struct {
	Racks          []RackState `json:"racks"`
	ITPowerKW      float64     `json:"it_power_kw"`
	TotalPowerKW   float64     `json:"total_power_kw"`
	PUE            float64     `json:"pue"`
	HeadroomKW     float64     `json:"headroom_kw"`
	CapExceeded    bool        `json:"cap_exceeded"`
}

// Model is a pure function object over the power constants in config.Config.
type Model struct {
	cfg config.FacilityConfig
	pw  config.PowerConfig
}

// New creates a Model for the given facility shape and power constants.
func New(cfg config.FacilityConfig, pw config.PowerConfig) *Model {
	return &Model{cfg: cfg, pw: pw}
}

// gpuPower implements spec.md §4.4's GPU power curve:
// P = TDP * (0.05 + 0.95*(0.3u + 0.7u^2)).
func gpuPower(tdp, u float64) float64 {
	return tdp * (0.05 + 0.95*(0.3*u+0.7*u*u))
}

// Compute implements spec.md §4.4 in full. util is per-server effective
// utilisation before caps are applied; throttledRacks contains rack ids
// whose inlet is critical (caps util at 0.5); maxUtilOverrides caps specific
// servers (e.g. gpu_degraded => 0.3); powerCapPct scales specific servers by
// percent (throttle_gpu action); rackPowerMultiplier defaults to 1.0, 1.2
// under a pdu_spike.
func (m *Model) Compute(
	util map[string]float64,
	throttledRacks map[int]bool,
	maxUtilOverrides map[string]float64,
	powerCapPct map[string]float64,
	rackPowerMultiplier map[int]float64,
	ambientTempC float64,
) State {
	racks := make([]RackState, m.cfg.NumRacks)
	itPowerKW := 0.0

	for r := 0; r < m.cfg.NumRacks; r++ {
		rackPowerW := 0.0
		for s := 0; s < m.cfg.ServersPerRack; s++ {
			srv := ids.Server(r, s)
			u := util[srv]
			if throttledRacks[r] && u > 0.5 {
				u = 0.5
			}
			if cap, ok := maxUtilOverrides[srv]; ok && u > cap {
				u = cap
			}
			if pct, ok := powerCapPct[srv]; ok {
				u *= pct / 100.0
			}
			serverPowerW := m.pw.ServerBasePowerWatts
			for g := 0; g < m.cfg.GPUsPerServer; g++ {
				serverPowerW += gpuPower(m.pw.GPUTDPWatts, u)
			}
			rackPowerW += serverPowerW
		}
		mult := rackPowerMultiplier[r]
		if mult == 0 {
			mult = 1.0
		}
		rackPowerW *= mult
		rackPowerKW := rackPowerW / 1000.0
		itPowerKW += rackPowerKW

		pduUtilPct := 0.0
		if m.pw.PDUCapacityKW > 0 {
			pduUtilPct = 100.0 * rackPowerKW / m.pw.PDUCapacityKW
		}
		racks[r] = RackState{RackID: r, PowerKW: rackPowerKW, PDUUtilPct: pduUtilPct}
	}

	basePUE := m.pw.PUEOverheadFactor
	loadCeiling := m.pw.FacilityPowerCapKW / basePUE
	load := 1.0
	if loadCeiling > 0 {
		load = itPowerKW / loadCeiling
	}
	if load > 1 {
		load = 1
	}
	ambientPenalty := 0.0
	if ambientTempC > 22 {
		ambientPenalty = (ambientTempC - 22) * 0.005
	}
	pue := basePUE + 0.2*(1-load)*(1-load) + ambientPenalty

	totalPowerKW := itPowerKW * pue
	headroomKW := m.pw.FacilityPowerCapKW - totalPowerKW

	return State{
		Racks:        racks,
		ITPowerKW:    itPowerKW,
		TotalPowerKW: totalPowerKW,
		PUE:          pue,
		HeadroomKW:   headroomKW,
		CapExceeded:  totalPowerKW > m.pw.FacilityPowerCapKW,
	}
}
