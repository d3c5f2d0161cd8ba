// Package failure implements the failure injection engine: random and
// scripted injection, expiry, and pure effect accessors consumed by the
// other models (spec.md §4.11).
package failure

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
)

// Type is one of the five recognized failure kinds.
type Type string

const (
	CracDegraded     Type = "crac_degraded"
	CracFailure      Type = "crac_failure"
	GPUDegraded      Type = "gpu_degraded"
	PDUSpike         Type = "pdu_spike"
	NetworkPartition Type = "network_partition"
)

var randomTypes = []Type{CracDegraded, PDUSpike, NetworkPartition}

// defaultDurationS returns the default duration_s for a manual/scripted
// inject call when the caller passes a nil duration.
func defaultDurationS(t Type) *float64 {
	var d float64
	switch t {
	case CracDegraded:
		d = 1200
	case CracFailure:
		d = 600
	case PDUSpike:
		d = 300
	case GPUDegraded:
		return nil // manual resolve only
	case NetworkPartition:
		d = 0
	default:
		return nil
	}
	return &d
}

// Active is one currently-active failure.
type Active struct {
	FailureID string   `json:"failure_id"`
	Type      Type     `json:"failure_type"`
	Target    string   `json:"target"`
	StartedAt float64  `json:"started_at"`
	DurationS *float64 `json:"duration_s"`
	Effect    string   `json:"effect"`
}

// Engine holds the active-failure set and its own RNG stream.
type Engine struct {
	cfg struct {
		NumRacks       int
		CracUnits      int
		RacksPerCrac   int
	}
	rng     *rand.Rand
	active  map[string]*Active
	now     float64 // time of the latest Tick; start time for Inject
}

// New creates an Engine for the given facility shape.
func New(numRacks, cracUnits int, rng *rand.Rand) *Engine {
	racksPerCrac := 1
	if cracUnits > 0 {
		racksPerCrac = numRacks / cracUnits
		if racksPerCrac < 1 {
			racksPerCrac = 1
		}
	}
	e := &Engine{rng: rng, active: make(map[string]*Active)}
	e.cfg.NumRacks = numRacks
	e.cfg.CracUnits = cracUnits
	e.cfg.RacksPerCrac = racksPerCrac
	return e
}

func effectLabel(t Type, target string) string {
	switch t {
	case CracDegraded:
		return fmt.Sprintf("%s cooling capacity halved", target)
	case CracFailure:
		return fmt.Sprintf("%s cooling offline", target)
	case GPUDegraded:
		return fmt.Sprintf("%s utilisation capped", target)
	case PDUSpike:
		return fmt.Sprintf("%s power draw spiked", target)
	case NetworkPartition:
		return fmt.Sprintf("%s isolated from spine", target)
	default:
		return ""
	}
}

func (e *Engine) insert(t Type, target string, durationS *float64, startedAt float64) *Active {
	a := &Active{
		FailureID: uuid.NewString(),
		Type:      t,
		Target:    target,
		StartedAt: startedAt,
		DurationS: durationS,
		Effect:    effectLabel(t, target),
	}
	e.active[a.FailureID] = a
	return a
}

// Tick advances the failure set for the current time: expires failures whose
// window has elapsed, then runs the random-injection roll. Returns the
// randomly-injected failures created this call (manual injections go
// through Inject and are not returned here).
func (e *Engine) Tick(currentTime float64) []*Active {
	e.now = currentTime
	e.expire(currentTime)
	return e.randomInject(currentTime)
}

func (e *Engine) expire(currentTime float64) {
	for id, a := range e.active {
		if a.DurationS != nil && currentTime-a.StartedAt >= *a.DurationS {
			delete(e.active, id)
		}
	}
}

func (e *Engine) randomInject(currentTime float64) []*Active {
	p := 0.005 * float64(e.cfg.NumRacks)
	if e.rng.Float64() >= p {
		return nil
	}

	rackID := e.rng.Intn(e.cfg.NumRacks)
	t := randomTypes[e.rng.Intn(len(randomTypes))]

	var target string
	var durationS float64
	switch t {
	case CracDegraded:
		cracID := rackID / e.cfg.RacksPerCrac
		if cracID >= e.cfg.CracUnits {
			cracID = e.cfg.CracUnits - 1
		}
		target = fmt.Sprintf("crac-%d", cracID)
		durationS = 600 + e.rng.Float64()*1200
	case PDUSpike:
		target = fmt.Sprintf("rack-%d", rackID)
		durationS = 300
	case NetworkPartition:
		target = fmt.Sprintf("rack-%d", rackID)
		durationS = 0
	}

	a := e.insert(t, target, &durationS, currentTime)
	return []*Active{a}
}

// Inject is the manual/scripted entry point (spec.md §4.11, §4.13, §4.15).
// It always succeeds for a recognized type and returns the created failure,
// started at the time of the latest Tick (0 before the first Tick).
// Unrecognized types return nil (caller treats as "no failures created").
func (e *Engine) Inject(t Type, target string, durationS *float64) []*Active {
	switch t {
	case CracDegraded, CracFailure, GPUDegraded, PDUSpike, NetworkPartition:
	default:
		return nil
	}
	if durationS == nil {
		durationS = defaultDurationS(t)
	}
	return []*Active{e.insert(t, target, durationS, e.now)}
}

// Resolve removes a failure by id. Returns false if it was not active.
func (e *Engine) Resolve(failureID string) bool {
	if _, ok := e.active[failureID]; !ok {
		return false
	}
	delete(e.active, failureID)
	return true
}

// ActiveFailures returns a snapshot of every currently-active failure, in no
// particular order.
func (e *Engine) ActiveFailures() []*Active {
	out := make([]*Active, 0, len(e.active))
	for _, a := range e.active {
		out = append(out, a)
	}
	return out
}

// CoolingCapacityFactor implements the cooling_capacity_factor(rack_id)
// accessor: 0.0 if the rack's CRAC has a crac_failure, else 0.5 if
// crac_degraded, else 1.0. crac_failure dominates; crac_degraded factors
// are min-accumulated at 0.5 regardless of how many target the same CRAC.
func (e *Engine) CoolingCapacityFactor(rackID int) float64 {
	cracID := rackID / e.cfg.RacksPerCrac
	if cracID >= e.cfg.CracUnits {
		cracID = e.cfg.CracUnits - 1
	}
	cracTarget := fmt.Sprintf("crac-%d", cracID)

	factor := 1.0
	for _, a := range e.active {
		switch a.Type {
		case CracFailure:
			if a.Target == cracTarget {
				return 0.0
			}
		case CracDegraded:
			if a.Target == cracTarget && factor > 0.5 {
				factor = 0.5
			}
		}
	}
	return factor
}

// FailedCracUnits returns the set of crac ids with an active crac_failure.
func (e *Engine) FailedCracUnits() map[int]bool {
	out := make(map[int]bool)
	for _, a := range e.active {
		if a.Type == CracFailure {
			var id int
			fmt.Sscanf(a.Target, "crac-%d", &id)
			out[id] = true
		}
	}
	return out
}

// DegradedCracUnits returns the set of crac ids with an active crac_degraded.
func (e *Engine) DegradedCracUnits() map[int]bool {
	out := make(map[int]bool)
	for _, a := range e.active {
		if a.Type == CracDegraded {
			var id int
			fmt.Sscanf(a.Target, "crac-%d", &id)
			out[id] = true
		}
	}
	return out
}

// PDUSpikeFactor implements pdu_spike_factor(rack_id): 1.2 if an active
// pdu_spike targets the rack, else 1.0.
func (e *Engine) PDUSpikeFactor(rackID int) float64 {
	target := fmt.Sprintf("rack-%d", rackID)
	for _, a := range e.active {
		if a.Type == PDUSpike && a.Target == target {
			return 1.2
		}
	}
	return 1.0
}

// NetworkPartitionRacks implements network_partition_racks().
func (e *Engine) NetworkPartitionRacks() map[int]bool {
	out := make(map[int]bool)
	for _, a := range e.active {
		if a.Type == NetworkPartition {
			var id int
			fmt.Sscanf(a.Target, "rack-%d", &id)
			out[id] = true
		}
	}
	return out
}

// GPUDegradedServers implements gpu_degraded_servers().
func (e *Engine) GPUDegradedServers() map[string]bool {
	out := make(map[string]bool)
	for _, a := range e.active {
		if a.Type == GPUDegraded {
			out[a.Target] = true
		}
	}
	return out
}

// Reset clears every active failure, for Simulator.reset().
func (e *Engine) Reset() {
	e.active = make(map[string]*Active)
	e.now = 0
}
