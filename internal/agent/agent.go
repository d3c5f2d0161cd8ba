// Package agent defines the Agent interface an automated operator
// implements, a Runner that drives one session's step loop, and a
// RandomAgent reference implementation used for end-to-end coverage of the
// runner and the adjust_cooling and throttle_gpu dispatch paths (spec.md §6
// "Agent interface", SPEC_FULL.md §4.22).
package agent

import (
	"math/rand"
	"time"

	"github.com/gpudc/simulator/internal/evaluator"
	"github.com/gpudc/simulator/internal/facility"
	"github.com/gpudc/simulator/internal/leaderboard"
	"github.com/gpudc/simulator/internal/scenario"
	"github.com/gpudc/simulator/internal/session"
	"github.com/gpudc/simulator/internal/simulator"
)

// ActionType is one of the five dispatchable action kinds.
type ActionType string

const (
	MigrateWorkload ActionType = "migrate_workload"
	AdjustCooling   ActionType = "adjust_cooling"
	ThrottleGPU     ActionType = "throttle_gpu"
	PreemptJob      ActionType = "preempt_job"
	ResolveFailure  ActionType = "resolve_failure"
)

// Action is one action an Agent wants dispatched this step.
type Action struct {
	Type   ActionType     `json:"action_type"`
	Params map[string]any `json:"params"`
}

// Agent is the interface an automated operator implements.
type Agent interface {
	Name() string
	Act(state facility.State) []Action
}

// Dispatch routes one Action to the matching Simulator handler, which
// records an audit entry with source "agent" whether the action succeeds or
// fails. An unrecognized action type is ignored: nil is returned and no
// audit entry is written.
func Dispatch(sim *simulator.Simulator, a Action) error {
	switch a.Type {
	case MigrateWorkload:
		jobID, _ := a.Params["job_id"].(string)
		targetRack, _ := toInt(a.Params["target_rack_id"])
		return sim.MigrateWorkload("agent", jobID, targetRack)
	case AdjustCooling:
		rackID, _ := toInt(a.Params["rack_id"])
		setpoint, _ := toFloat(a.Params["setpoint_c"])
		return sim.AdjustCooling("agent", rackID, setpoint)
	case ThrottleGPU:
		serverID, _ := a.Params["server_id"].(string)
		pct, _ := toFloat(a.Params["power_cap_pct"])
		return sim.ThrottleGPU("agent", serverID, pct)
	case PreemptJob:
		jobID, _ := a.Params["job_id"].(string)
		return sim.PreemptJob("agent", jobID)
	case ResolveFailure:
		failureID, _ := a.Params["failure_id"].(string)
		return sim.ResolveFailure("agent", failureID)
	default:
		return nil
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// RandomAgent samples a legal action roughly every few ticks. It exercises
// the Runner end-to-end through the adjust_cooling and throttle_gpu
// handlers only; it never migrates, preempts or resolves anything. It is
// deliberately not a scored reference agent.
type RandomAgent struct {
	rng *rand.Rand
}

// NewRandomAgent creates a RandomAgent seeded independently of the
// simulation's own RNG streams.
func NewRandomAgent(seed int64) *RandomAgent {
	return &RandomAgent{rng: rand.New(rand.NewSource(seed))}
}

// Name implements Agent.
func (a *RandomAgent) Name() string { return "random" }

// Act implements Agent: roughly one in five ticks it emits a single action,
// either adjust_cooling on a random rack (setpoint 14-22 °C) or, when state
// lists servers, throttle_gpu on a random server (cap 50-100%). Running jobs
// and active failures are not consulted.
func (a *RandomAgent) Act(state facility.State) []Action {
	if a.rng.Float64() > 0.2 {
		return nil
	}
	if len(state.Thermal.Racks) == 0 {
		return nil
	}

	choices := []ActionType{AdjustCooling}
	if len(state.GPU.Servers) > 0 {
		choices = append(choices, ThrottleGPU)
	}

	choice := choices[a.rng.Intn(len(choices))]
	switch choice {
	case AdjustCooling:
		rackID := a.rng.Intn(len(state.Thermal.Racks))
		setpoint := 14 + a.rng.Float64()*8
		return []Action{{Type: AdjustCooling, Params: map[string]any{"rack_id": rackID, "setpoint_c": setpoint}}}
	case ThrottleGPU:
		srv := state.GPU.Servers[a.rng.Intn(len(state.GPU.Servers))]
		pct := 50 + a.rng.Float64()*50
		return []Action{{Type: ThrottleGPU, Params: map[string]any{"server_id": srv.ServerID, "power_cap_pct": pct}}}
	}
	return nil
}

// Runner drives one session's step loop: start → {act, dispatch, step} →
// end → record (spec.md §6 "A runner drives the session loop").
type Runner struct {
	sim   *simulator.Simulator
	sess  *session.Manager
	board *leaderboard.Store
}

// NewRunner creates a Runner bound to one session Manager and leaderboard Store.
func NewRunner(sim *simulator.Simulator, sess *session.Manager, board *leaderboard.Store) *Runner {
	return &Runner{sim: sim, sess: sess, board: board}
}

// Run drives scenarioID to completion with the given Agent and records the
// result to the leaderboard. It returns the final EvaluationResult.
func (r *Runner) Run(scenarioID string, a Agent, override *scenario.Scenario) (evaluator.Result, error) {
	info, err := r.sess.Start(scenarioID, a.Name(), override)
	if err != nil {
		return evaluator.Result{}, err
	}

	var last facility.State
	for {
		step, err := r.sess.Step()
		if err != nil {
			break
		}
		last = step.State
		for _, action := range a.Act(last) {
			Dispatch(r.sim, action)
		}
		if step.Done {
			break
		}
	}

	result, err := r.sess.End()
	if err != nil {
		return evaluator.Result{}, err
	}

	runID, err := leaderboard.NewRunID()
	if err != nil {
		return result, err
	}

	var sla, energy, carbon, thermal, cost, infra, failureResp float64
	for _, d := range result.Dimensions {
		switch d.Name {
		case "sla_quality":
			sla = d.Score
		case "energy_efficiency":
			energy = d.Score
		case "carbon":
			carbon = d.Score
		case "thermal_safety":
			thermal = d.Score
		case "cost":
			cost = d.Score
		case "infra_health":
			infra = d.Score
		case "failure_response":
			failureResp = d.Score
		}
	}

	row := leaderboard.Row{
		RunID:            runID,
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		AgentName:        a.Name(),
		ScenarioID:       info.ScenarioID,
		CompositeScore:   result.CompositeScore,
		SLAQuality:       sla,
		EnergyEfficiency: energy,
		Carbon:           carbon,
		ThermalSafety:    thermal,
		Cost:             cost,
		InfraHealth:      infra,
		FailureResponse:  failureResp,
		DurationTicks:    result.DurationTicks,
		TotalSimTimeS:    result.TotalSimTimeS,
	}
	if err := r.board.Record(row); err != nil {
		return result, err
	}

	return result, nil
}
