// Package cooling implements the CRAC units, chilled-water plant, cooling
// tower and their compressor COP (spec.md §4.9).
package cooling

import (
	"math"
	"math/rand"

	"github.com/gpudc/simulator/internal/config"
)

// CracState is one CRAC unit's substate.
type CracState struct {
	CracID        int     `json:"crac_id"`
	CoolingKW     float64 `json:"cooling_kw"`
	FanPct        float64 `json:"fan_pct"`
	SupplyAirTempC float64 `json:"supply_air_temp_c"`
	FaultCode     int     `json:"fault_code"`
}

// TowerState is the cooling tower / chilled-water plant substate.
type TowerState struct {
	WetBulbC         float64 `json:"wet_bulb_c"`
	CondenserSupplyC float64 `json:"condenser_supply_c"`
	CondenserReturnC float64 `json:"condenser_return_c"`
	ChwSupplyC       float64 `json:"chw_supply_c"`
	ChwReturnC       float64 `json:"chw_return_c"`
	COP              float64 `json:"cop"`
}

// PlantState rolls up cooling/pump power across the whole facility.
type PlantState struct {
	TotalCoolingKW float64 `json:"total_cooling_kw"`
	CoolingPowerKW float64 `json:"cooling_power_kw"`
	PumpPowerKW    float64 `json:"pump_power_kw"`
	TotalFlowLps   float64 `json:"total_flow_lps"`
}

// FacilitySummary is the roll-up exposed at top level.
type FacilitySummary struct {
	HealthyCracCount int     `json:"healthy_crac_count"`
	AvgFanPct        float64 `json:"avg_fan_pct"`
}

// Substate bundles every CRAC, the tower/plant state and the summary.
type Substate struct {
	Cracs   []CracState     `json:"cracs"`
	Tower   TowerState      `json:"tower"`
	Plant   PlantState      `json:"plant"`
	Summary FacilitySummary `json:"summary"`
}

const cracCapacityKW = 50

// Model is a pure function object: the cooling plant keeps no cumulative
// state across ticks beyond what the caller (failure engine) already tracks.
type Model struct {
	cfg config.FacilityConfig
	th  config.ThermalConfig
	rng *rand.Rand
}

// New creates a Model for the given facility shape.
func New(cfg config.FacilityConfig, th config.ThermalConfig, rng *rand.Rand) *Model {
	return &Model{cfg: cfg, th: th, rng: rng}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Step computes the cooling plant substate for one tick. crac_setpoints maps
// crac id to a user override (°C, 0 means unset); failedUnits and
// degradedUnits map crac id to whether crac_failure/crac_degraded currently
// targets it.
func (m *Model) Step(totalITHeatKW, ambientTempC float64, cracSetpoints map[int]float64, failedUnits, degradedUnits map[int]bool, simTimeS float64) Substate {
	hour := math.Mod(simTimeS/3600+8, 24)

	wetBulb := ambientTempC - (5 + 2*math.Sin(2*math.Pi*(hour-6)/24)) + m.rng.NormFloat64()*0.3
	approach := 5 + 0.15*math.Max(0, wetBulb-18)
	condenserSupply := wetBulb + approach
	condenserReturn := condenserSupply + 5

	chwSupply := 7 + 0.2*math.Max(0, condenserSupply-28) + m.rng.NormFloat64()*0.1

	healthy := 0
	for c := 0; c < m.th.CracUnits; c++ {
		if !failedUnits[c] {
			healthy++
		}
	}
	divisor := healthy
	if divisor == 0 {
		divisor = 1
	}

	loadPerCrac := totalITHeatKW / float64(divisor)
	loadFraction := clamp(loadPerCrac/cracCapacityKW, 0, 1)
	deltaT := 3 + 4*loadFraction
	chwReturn := chwSupply + deltaT

	cop := clamp(4.5-0.08*math.Max(0, condenserSupply-28)-0.1*math.Max(0, 7-chwSupply)+0.05*math.Max(0, 28-condenserSupply), 2.0, 6.0)

	cracs := make([]CracState, m.th.CracUnits)
	totalCoolingKW := 0.0
	avgFan := 0.0

	for c := 0; c < m.th.CracUnits; c++ {
		if failedUnits[c] {
			cracs[c] = CracState{CracID: c, CoolingKW: 0, FanPct: 0, SupplyAirTempC: ambientTempC, FaultCode: 1}
			continue
		}

		coolingKW := loadPerCrac
		if degradedUnits[c] {
			coolingKW *= 0.5
		}

		fan := clamp(30+loadFraction*70, 30, 100)
		effectiveness := clamp(0.5+0.005*fan, 0.5, 1.0)
		supplyAir := chwSupply + (1-effectiveness)*(ambientTempC-chwSupply)
		if sp, ok := cracSetpoints[c]; ok && sp > 0 {
			supplyAir = clamp(sp, 12, 25)
		}

		cracs[c] = CracState{CracID: c, CoolingKW: coolingKW, FanPct: fan, SupplyAirTempC: supplyAir, FaultCode: 0}
		totalCoolingKW += coolingKW
		avgFan += fan
	}
	if m.th.CracUnits > 0 {
		avgFan /= float64(m.th.CracUnits)
	}

	totalFlowLps := totalCoolingKW / (4.186 * deltaT)
	coolingPowerKW := totalCoolingKW / cop
	pumpPowerKW := 1 + 0.15*totalFlowLps

	return Substate{
		Cracs: cracs,
		Tower: TowerState{
			WetBulbC:         wetBulb,
			CondenserSupplyC: condenserSupply,
			CondenserReturnC: condenserReturn,
			ChwSupplyC:       chwSupply,
			ChwReturnC:       chwReturn,
			COP:              cop,
		},
		Plant: PlantState{
			TotalCoolingKW: totalCoolingKW,
			CoolingPowerKW: coolingPowerKW,
			PumpPowerKW:    pumpPowerKW,
			TotalFlowLps:   totalFlowLps,
		},
		Summary: FacilitySummary{HealthyCracCount: healthy, AvgFanPct: avgFan},
	}
}
