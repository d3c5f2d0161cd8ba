// Package facility composes every physical model into one ordered per-tick
// pipeline and owns the one-tick thermal/power feedback cache (spec.md
// §4.12): workload → power → thermal → gpu → network → storage → cooling →
// carbon.
package facility

import (
	"github.com/gpudc/simulator/internal/carbon"
	"github.com/gpudc/simulator/internal/config"
	"github.com/gpudc/simulator/internal/cooling"
	"github.com/gpudc/simulator/internal/gpu"
	"github.com/gpudc/simulator/internal/network"
	"github.com/gpudc/simulator/internal/power"
	"github.com/gpudc/simulator/internal/rng"
	"github.com/gpudc/simulator/internal/storage"
	"github.com/gpudc/simulator/internal/thermal"
	"github.com/gpudc/simulator/internal/workload"
)

// WorkloadCounters summarizes the queue state for one tick (spec.md §3
// FacilityState).
type WorkloadCounters struct {
	Pending       int `json:"pending"`
	Running       int `json:"running"`
	Completed     int `json:"completed"`
	SLAViolations int `json:"sla_violations"`
}

// State is the complete per-tick FacilityState (spec.md §3).
type State struct {
	CurrentTime float64               `json:"current_time"`
	TickCount   int64                 `json:"tick_count"`
	Thermal     thermal.State         `json:"thermal"`
	Power       power.State           `json:"power"`
	Carbon      carbon.State          `json:"carbon"`
	GPU         gpu.Substate          `json:"gpu"`
	Network     network.Substate      `json:"network"`
	Storage     storage.Substate      `json:"storage"`
	Cooling     cooling.Substate      `json:"cooling"`
	Workload    WorkloadCounters      `json:"workload"`
}

// Inputs bundles everything the simulator translates from failure-engine
// effects and control actions before a tick (spec.md §4.13 step "translate").
type Inputs struct {
	CoolingCapacityFactor map[int]float64
	MaxUtilOverrides      map[string]float64
	PowerCapPct           map[string]float64
	RackPowerMultiplier   map[int]float64
	CracSetpoints         map[int]float64
	FailedCracUnits       map[int]bool
	DegradedCracUnits     map[int]bool
	NetworkPartitionRacks map[int]bool
}

// Facility owns every physical model and the Queue, plus the one-tick
// thermal cache that feeds the *next* tick's power/gpu computation.
type Facility struct {
	cfg config.Config

	Queue   *workload.Queue
	power   *power.Model
	thermal *thermal.Model
	gpu     *gpu.Model
	network *network.Model
	storage *storage.Model
	cooling *cooling.Model
	carbon  *carbon.Model

	lastThermal thermal.State
}

// New constructs a Facility with every model's RNG stream derived from the
// same Streams (spec.md §9).
func New(cfg config.Config, streams *rng.Streams) *Facility {
	f := &Facility{
		cfg:       cfg,
		Queue:     workload.New(cfg.Facility, cfg.Workload, streams.For(rng.OffsetWorkload)),
		power:     power.New(cfg.Facility, cfg.Power),
		thermal:   thermal.New(cfg.Facility, cfg.Thermal, streams.For(rng.OffsetThermal)),
		gpu:       gpu.New(cfg.Facility, cfg.Power, streams.For(rng.OffsetGPU)),
		network:   network.New(cfg.Facility, streams.For(rng.OffsetNetwork)),
		storage:   storage.New(cfg.Facility, streams.For(rng.OffsetStorage)),
		cooling:   cooling.New(cfg.Facility, cfg.Thermal, streams.For(rng.OffsetCooling)),
		carbon:    carbon.New(streams.For(rng.OffsetCarbon)),
	}
	f.lastThermal.AmbientTempC = cfg.Thermal.AmbientTempC
	return f
}

// Step advances every model exactly one tick and returns the new
// FacilityState (spec.md §4.12 steps 1-10).
func (f *Facility) Step(currentTime float64, tickCount int64, tickIntervalS float64, in Inputs) State {
	util := f.Queue.Step(currentTime, tickIntervalS)

	throttled := f.ThrottledRacks()
	ambient := f.lastThermal.AmbientTempC

	powerState := f.power.Compute(util, throttled, in.MaxUtilOverrides, in.PowerCapPct, in.RackPowerMultiplier, ambient)

	rackHeat := make(map[int]float64, len(powerState.Racks))
	for _, r := range powerState.Racks {
		rackHeat[r.RackID] = r.PowerKW
	}
	thermalState := f.thermal.Step(rackHeat, in.CoolingCapacityFactor, tickIntervalS, currentTime)
	f.lastThermal = thermalState

	rackInlet := make(map[int]float64, len(thermalState.Racks))
	newThrottled := make(map[int]bool, len(thermalState.Racks))
	for _, r := range thermalState.Racks {
		rackInlet[r.RackID] = r.InletTempC
		newThrottled[r.RackID] = r.Throttled
	}

	running := f.Queue.Running
	gpuState := f.gpu.Step(util, rackInlet, newThrottled, running)
	networkState := f.network.Step(util, running, in.NetworkPartitionRacks, currentTime)
	storageState := f.storage.Step(util, running, currentTime, tickIntervalS)
	coolingState := f.cooling.Step(powerState.ITPowerKW, ambient, in.CracSetpoints, in.FailedCracUnits, in.DegradedCracUnits, currentTime)
	carbonState := f.carbon.Step(currentTime, powerState.TotalPowerKW, tickIntervalS)

	slaViolations := 0
	for _, j := range f.Queue.AllJobs() {
		if j.SLAViolated {
			slaViolations++
		}
	}

	return State{
		CurrentTime: currentTime,
		TickCount:   tickCount,
		Thermal:     thermalState,
		Power:       powerState,
		Carbon:      carbonState,
		GPU:         gpuState,
		Network:     networkState,
		Storage:     storageState,
		Cooling:     coolingState,
		Workload: WorkloadCounters{
			Pending:       len(f.Queue.Pending),
			Running:       len(f.Queue.Running),
			Completed:     len(f.Queue.Completed),
			SLAViolations: slaViolations,
		},
	}
}

// ThrottledRacks reads the last-computed thermal throttle flags. Step calls
// it at its head, before this tick's thermal step, to build the PowerModel
// input (spec.md §4.12 step 2: "on first tick: config ambient").
func (f *Facility) ThrottledRacks() map[int]bool {
	out := make(map[int]bool, len(f.lastThermal.Racks))
	for _, r := range f.lastThermal.Racks {
		out[r.RackID] = r.Throttled
	}
	return out
}

// AmbientTempC returns the last tick's effective ambient, or the configured
// default before the first tick.
func (f *Facility) AmbientTempC() float64 {
	return f.lastThermal.AmbientTempC
}

// Reset restores every model to its initial state, for Simulator.reset().
func (f *Facility) Reset(streams *rng.Streams) {
	f.Queue = workload.New(f.cfg.Facility, f.cfg.Workload, streams.For(rng.OffsetWorkload))
	f.thermal.Reset()
	f.gpu.Reset()
	f.network.Reset()
	f.storage.Reset()
	f.carbon.Reset()
	f.lastThermal = thermal.State{AmbientTempC: f.cfg.Thermal.AmbientTempC}
}
