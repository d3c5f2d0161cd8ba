// Package scenario defines named, seeded scenario presets and the registry
// of the five predefined ids (spec.md §4.15 "A scenario is...").
package scenario

import "github.com/gpudc/simulator/internal/failure"

// FailureInjection is one scripted injection at a given tick.
type FailureInjection struct {
	AtTick      int64        `json:"at_tick"`
	FailureType failure.Type `json:"failure_type"`
	Target      string       `json:"target"`
	DurationS   *float64     `json:"duration_s,omitempty"`
}

// Scenario is a named, seeded, scripted run.
type Scenario struct {
	ID                      string             `json:"scenario_id"`
	Name                    string             `json:"name"`
	Description             string             `json:"description"`
	DurationTicks           int64              `json:"duration_ticks"`
	RNGSeed                 int64              `json:"rng_seed"`
	FailureInjections       []FailureInjection `json:"failure_injections"`
	MeanJobArrivalIntervalS float64            `json:"mean_job_arrival_interval_s"`
}

func durationS(v float64) *float64 { return &v }

var registry = buildRegistry()

func buildRegistry() map[string]Scenario {
	return map[string]Scenario{
		"steady_state": {
			ID: "steady_state", Name: "Steady State",
			Description:             "Nominal workload, no injected failures; baseline for comparison.",
			DurationTicks:           120,
			RNGSeed:                 1001,
			MeanJobArrivalIntervalS: 300,
		},
		"thermal_crisis": {
			ID: "thermal_crisis", Name: "Thermal Crisis",
			Description:             "A CRAC unit fails mid-run, forcing the operator to rebalance cooling and workload.",
			DurationTicks:           90,
			RNGSeed:                 2002,
			MeanJobArrivalIntervalS: 240,
			FailureInjections: []FailureInjection{
				{AtTick: 30, FailureType: failure.CracFailure, Target: "crac-0", DurationS: durationS(1800)},
			},
		},
		"carbon_valley": {
			ID: "carbon_valley", Name: "Carbon Valley",
			Description:             "A full diurnal cycle with pronounced carbon-intensity swings; rewards carbon-aware scheduling.",
			DurationTicks:           1440,
			RNGSeed:                 3003,
			MeanJobArrivalIntervalS: 360,
		},
		"overload": {
			ID: "overload", Name: "Overload",
			Description:             "Arrival rate well above steady-state capacity; exercises SLA and scheduling pressure.",
			DurationTicks:           100,
			RNGSeed:                 4004,
			MeanJobArrivalIntervalS: 60,
			FailureInjections: []FailureInjection{
				{AtTick: 40, FailureType: failure.PDUSpike, Target: "rack-2", DurationS: durationS(300)},
			},
		},
		"cascade": {
			ID: "cascade", Name: "Cascade",
			Description:             "A chain of failures across cooling, power and network, testing compounding-failure response.",
			DurationTicks:           150,
			RNGSeed:                 5005,
			MeanJobArrivalIntervalS: 200,
			FailureInjections: []FailureInjection{
				{AtTick: 20, FailureType: failure.CracDegraded, Target: "crac-0", DurationS: durationS(1200)},
				{AtTick: 25, FailureType: failure.GPUDegraded, Target: "rack-2-srv-1", DurationS: nil},
				{AtTick: 50, FailureType: failure.PDUSpike, Target: "rack-1", DurationS: durationS(300)},
				{AtTick: 80, FailureType: failure.NetworkPartition, Target: "rack-3", DurationS: durationS(0)},
				{AtTick: 110, FailureType: failure.CracFailure, Target: "crac-1", DurationS: durationS(600)},
			},
		},
	}
}

// Get looks up a scenario by id.
func Get(id string) (Scenario, bool) {
	s, ok := registry[id]
	return s, ok
}

// List returns every registered scenario, in a stable order.
func List() []Scenario {
	order := []string{"steady_state", "thermal_crisis", "carbon_valley", "overload", "cascade"}
	out := make([]Scenario, 0, len(order))
	for _, id := range order {
		out = append(out, registry[id])
	}
	return out
}
