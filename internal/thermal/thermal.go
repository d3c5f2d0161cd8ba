// Package thermal implements the per-rack inlet/outlet temperature model
// with hot-aisle recirculation, time-of-day ambient, and humidity (spec.md
// §4.5). The Model is stateful: inlet temperature and humidity persist
// across ticks and are read from the *previous* tick at the head of Step,
// which is the one-tick thermal feedback the rest of the pipeline depends on.
package thermal

import (
	"math"
	"math/rand"

	"github.com/gpudc/simulator/internal/config"
)

// RackState is the per-rack thermal substate.
type RackState struct {
	RackID      int     `json:"rack_id"`
	InletTempC  float64 `json:"inlet_temp_c"`
	OutletTempC float64 `json:"outlet_temp_c"`
	HeatKW      float64 `json:"heat_kw"`
	Throttled   bool    `json:"throttled"`
	HumidityPct float64 `json:"humidity_pct"`
	DeltaT      float64 `json:"delta_t"`
}

// State is the full thermal substate for one tick.
type State struct {
	Racks         []RackState `json:"racks"`
	AmbientTempC  float64     `json:"ambient_temp_c"` // effective (diurnal) ambient
}

// Model carries the persistent per-rack inlet/humidity state.
type Model struct {
	cfg config.FacilityConfig
	th  config.ThermalConfig
	rng *rand.Rand

	inlet    []float64
	humidity []float64
}

// New creates a Model with every rack's inlet/humidity initialised to the
// configured ambient and a neutral 45%.
func New(cfg config.FacilityConfig, th config.ThermalConfig, rng *rand.Rand) *Model {
	m := &Model{cfg: cfg, th: th, rng: rng}
	m.inlet = make([]float64, cfg.NumRacks)
	m.humidity = make([]float64, cfg.NumRacks)
	for r := range m.inlet {
		m.inlet[r] = th.AmbientTempC
		m.humidity[r] = 45
	}
	return m
}

// EffectiveAmbient implements spec.md §4.5 step 1's diurnal ambient curve.
func EffectiveAmbient(ambientTempC, simTimeS float64) float64 {
	hour := math.Mod(simTimeS/3600+8, 24)
	return ambientTempC + 4*math.Sin(2*math.Pi*(hour-4)/24)
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

// Step advances the thermal model one tick. heatKW and coolingCapacityFactor
// are keyed by rack id; coolingCapacityFactor is 1.0 healthy, 0.5 degraded,
// 0.0 failed, further scaled by the simulator's CRAC-setpoint translation
// (spec.md §4.13).
func (m *Model) Step(heatKW map[int]float64, coolingCapacityFactor map[int]float64, tickIntervalS, simTimeS float64) State {
	n := m.cfg.NumRacks
	prevInlet := append([]float64(nil), m.inlet...)
	prevHumidity := append([]float64(nil), m.humidity...)
	effAmbient := EffectiveAmbient(m.th.AmbientTempC, simTimeS)

	prevOutlet := make([]float64, n)
	for r := 0; r < n; r++ {
		prevOutlet[r] = prevInlet[r] + 5*heatKW[r]
	}

	racks := make([]RackState, n)
	for r := 0; r < n; r++ {
		recirc := 0.0
		for _, nb := range []int{r - 1, r + 1} {
			if nb >= 0 && nb < n {
				d := prevOutlet[nb] - prevInlet[r]
				if d > 0 {
					recirc += 0.08 * d
				}
			}
		}

		capFactor := coolingCapacityFactor[r]
		efficiency := 1 - math.Max(0, (prevInlet[r]-30)*0.02) - math.Max(0, (prevHumidity[r]-60)*0.005)
		efficiency = math.Max(0.7, efficiency)
		ambientPenalty := math.Max(0.8, 1-math.Max(0, (effAmbient-m.th.AmbientTempC)*0.02))
		baseCooling := (m.th.CracCoolingCapacityKW / float64(n)) * capFactor * efficiency * ambientPenalty

		heat := heatKW[r]
		netHeat := heat + recirc - baseCooling
		deltaInlet := netHeat * m.th.ThermalMassCoefficient * (tickIntervalS / 60)
		newInlet := clamp(prevInlet[r]+deltaInlet, effAmbient, 60)
		outlet := newInlet + 5*heat

		newHumidity := 45 - 1.5*math.Max(0, heat-3) + 0.8*capFactor + m.rng.NormFloat64()*0.3
		newHumidity = clamp(newHumidity, 20, 80)

		throttled := newInlet >= m.th.CriticalInletTempC

		m.inlet[r] = newInlet
		m.humidity[r] = newHumidity
		racks[r] = RackState{
			RackID:      r,
			InletTempC:  newInlet,
			OutletTempC: outlet,
			HeatKW:      heat,
			Throttled:   throttled,
			HumidityPct: newHumidity,
			DeltaT:      outlet - newInlet,
		}
	}

	return State{Racks: racks, AmbientTempC: effAmbient}
}

// Reset restores every rack's inlet/humidity to their initial values, for
// Simulator.reset().
func (m *Model) Reset() {
	for r := range m.inlet {
		m.inlet[r] = m.th.AmbientTempC
		m.humidity[r] = 45
	}
}
