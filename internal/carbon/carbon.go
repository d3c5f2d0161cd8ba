// Package carbon implements the diurnal grid carbon-intensity and
// electricity-price curves, and cumulative emissions/cost counters
// (spec.md §4.10).
package carbon

import (
	"math"
	"math/rand"
)

// State is the carbon substate for one tick.
type State struct {
	IntensityGCO2PerKWh float64 `json:"intensity_gco2_per_kwh"`
	PriceGBPPerKWh      float64 `json:"price_gbp_per_kwh"`
	CarbonRateGCO2S     float64 `json:"carbon_rate_gco2_s"`
	CostRateGBPH        float64 `json:"cost_rate_gbp_h"`
	CumulativeCarbonKg  float64 `json:"cumulative_carbon_kg"`
	CumulativeCostGBP   float64 `json:"cumulative_cost_gbp"`
}

// Model carries the cumulative emissions/cost counters across ticks.
type Model struct {
	rng *rand.Rand

	cumKg  float64
	cumGBP float64
}

// New creates a Model.
func New(rng *rand.Rand) *Model {
	return &Model{rng: rng}
}

func gaussianBump(hour, mean, stddev float64) float64 {
	d := hour - mean
	return math.Exp(-(d * d) / (2 * stddev * stddev))
}

// Step computes the carbon substate for one tick given total facility power.
func (m *Model) Step(simTimeS, totalPowerKW, tickIntervalS float64) State {
	hour := math.Mod(simTimeS/3600+8, 24)

	intensity := math.Max(50, 200+60*math.Sin(2*math.Pi*(hour-3)/24)+m.rng.NormFloat64()*5)
	price := math.Max(0.02,
		0.15+0.08*gaussianBump(hour, 8, 2)+0.06*gaussianBump(hour, 18, 2)-0.05*gaussianBump(hour, 3, 2.5)+m.rng.NormFloat64()*0.005)

	energyKWh := totalPowerKW * tickIntervalS / 3600
	m.cumKg += intensity * energyKWh / 1000
	m.cumGBP += price * energyKWh

	return State{
		IntensityGCO2PerKWh: intensity,
		PriceGBPPerKWh:      price,
		CarbonRateGCO2S:     intensity * totalPowerKW / 3600,
		CostRateGBPH:        price * totalPowerKW,
		CumulativeCarbonKg:  m.cumKg,
		CumulativeCostGBP:   m.cumGBP,
	}
}

// Reset clears the cumulative counters, for Simulator.reset().
func (m *Model) Reset() {
	m.cumKg = 0
	m.cumGBP = 0
}
