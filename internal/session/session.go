// Package session implements the SessionManager: the scenario runner that
// borrows a Simulator for the lifetime of one scored run (spec.md §4.15).
package session

import (
	"sync"
	"time"

	"github.com/gpudc/simulator/internal/config"
	"github.com/gpudc/simulator/internal/errs"
	"github.com/gpudc/simulator/internal/evaluator"
	"github.com/gpudc/simulator/internal/facility"
	"github.com/gpudc/simulator/internal/failure"
	"github.com/gpudc/simulator/internal/metrics"
	"github.com/gpudc/simulator/internal/scenario"
	"github.com/gpudc/simulator/internal/simulator"
)

// StepResult is what Step returns to the caller (spec.md §4.15 "step()").
type StepResult struct {
	Tick            int64                `json:"tick"`
	MaxTicks        int64                `json:"max_ticks"`
	Done            bool                 `json:"done"`
	SimTimeS        float64              `json:"sim_time_s"`
	FailuresInjected []*failure.Active   `json:"failures_injected"`
	State           facility.State       `json:"state"`
	ActiveFailures  []*failure.Active    `json:"active_failures"`
}

// active holds the state of one in-progress session.
type active struct {
	scenarioInjections map[int64][]scenario.FailureInjection
	scn                scenario.Scenario
	agentName          string
	currentTick        int64
	maxTicks           int64
	startedWall        time.Time
	snapshot           config.Config
}

// Manager is the SessionManager: at most one active session per Simulator.
type Manager struct {
	mu   sync.Mutex
	sim  *simulator.Simulator
	eval *evaluator.Evaluator
	sess *active
}

// New creates a Manager bound to one Simulator.
func New(sim *simulator.Simulator, eval *evaluator.Evaluator) *Manager {
	return &Manager{sim: sim, eval: eval}
}

// ScenarioInfo is what Start returns (spec.md §4.15 "Return scenario info").
type ScenarioInfo struct {
	ScenarioID    string  `json:"scenario_id"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	DurationTicks int64   `json:"duration_ticks"`
	TickIntervalS float64 `json:"tick_interval_s"`
	FailureCount  int     `json:"failure_count"`
	AgentName     string  `json:"agent_name"`
}

// Start begins a session for the given scenario id, failing with
// errs.SessionBusy if another session is active or errs.InvalidState if the
// continuous worker is running (spec.md §4.15 "start(...)").
func (m *Manager) Start(scenarioID, agentName string, override *scenario.Scenario) (ScenarioInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sess != nil {
		return ScenarioInfo{}, errs.SessionBusy
	}
	if m.sim.IsContinuousRunning() {
		return ScenarioInfo{}, errs.InvalidState
	}

	var scn scenario.Scenario
	if override != nil {
		scn = *override
	} else {
		got, ok := scenario.Get(scenarioID)
		if !ok {
			return ScenarioInfo{}, errs.NotFound
		}
		scn = got
	}

	snapshot := m.sim.Config()

	modified := snapshot.Clone()
	modified.RNGSeed = scn.RNGSeed
	if scn.MeanJobArrivalIntervalS > 0 {
		modified.Workload.MeanJobArrivalIntervalS = scn.MeanJobArrivalIntervalS
	}
	m.sim.SetConfig(modified)
	if err := m.sim.Reset(); err != nil {
		m.sim.SetConfig(snapshot)
		return ScenarioInfo{}, err
	}

	byTick := make(map[int64][]scenario.FailureInjection)
	for _, fi := range scn.FailureInjections {
		byTick[fi.AtTick] = append(byTick[fi.AtTick], fi)
	}

	m.sess = &active{
		scenarioInjections: byTick,
		scn:                scn,
		agentName:          agentName,
		maxTicks:           scn.DurationTicks,
		startedWall:        time.Now(),
		snapshot:           snapshot,
	}

	return ScenarioInfo{
		ScenarioID:    scn.ID,
		Name:          scn.Name,
		Description:   scn.Description,
		DurationTicks: scn.DurationTicks,
		TickIntervalS: modified.Clock.TickIntervalS,
		FailureCount:  len(scn.FailureInjections),
		AgentName:     agentName,
	}, nil
}

// Step advances the session by one tick, injecting any scripted failures
// scheduled at the current tick first (spec.md §4.15 "step()").
func (m *Manager) Step() (StepResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sess == nil {
		return StepResult{}, errs.InvalidState
	}
	if m.sess.currentTick >= m.sess.maxTicks {
		return StepResult{}, errs.InvalidState
	}

	var injected []*failure.Active
	for _, fi := range m.sess.scenarioInjections[m.sess.currentTick] {
		created := m.sim.Inject("scenario", fi.FailureType, fi.Target, fi.DurationS)
		injected = append(injected, created...)
	}

	states := m.sim.Tick(1)
	state := states[0]
	m.sess.currentTick++

	return StepResult{
		Tick:             m.sess.currentTick,
		MaxTicks:         m.sess.maxTicks,
		Done:             m.sess.currentTick >= m.sess.maxTicks,
		SimTimeS:         state.CurrentTime,
		FailuresInjected: injected,
		State:            state,
		ActiveFailures:   m.sim.Failures.ActiveFailures(),
	}, nil
}

// End computes the EvaluationResult, restores the snapshotted config, and
// clears the session (spec.md §4.15 "end()"). The simulator itself is not
// reset, so the caller may still inspect its telemetry.
func (m *Manager) End() (evaluator.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sess == nil {
		return evaluator.Result{}, errs.InvalidState
	}

	states := m.sim.Telemetry.All()
	jobs := m.sim.Facility.Queue.AllJobs()
	entries := m.sim.Audit.All()
	cfg := m.sim.Config()

	result := m.eval.Compute(states, jobs, entries, m.sess.scn, cfg)
	result.RunType = "agent"
	result.AgentName = m.sess.agentName
	metrics.CompositeScore.Set(result.CompositeScore)

	m.sim.SetConfig(m.sess.snapshot)
	m.sess = nil

	return result, nil
}

// Status reflects whether a session is active, its progress, and the
// invariant remaining_ticks = max_ticks - current_tick.
type Status struct {
	Active        bool   `json:"active"`
	ScenarioID    string `json:"scenario_id,omitempty"`
	AgentName     string `json:"agent_name,omitempty"`
	CurrentTick   int64  `json:"current_tick"`
	MaxTicks      int64  `json:"max_ticks"`
	RemainingTicks int64 `json:"remaining_ticks"`
}

// GetStatus returns the current session status.
func (m *Manager) GetStatus() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return Status{Active: false}
	}
	return Status{
		Active:         true,
		ScenarioID:     m.sess.scn.ID,
		AgentName:      m.sess.agentName,
		CurrentTick:    m.sess.currentTick,
		MaxTicks:       m.sess.maxTicks,
		RemainingTicks: m.sess.maxTicks - m.sess.currentTick,
	}
}
