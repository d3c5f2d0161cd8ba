// Package simulator owns the full per-run pipeline: Clock, Facility,
// FailureEngine, Telemetry and AuditLog, the continuous-run background
// worker, and the five control-action handlers (spec.md §4.13).
package simulator

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gpudc/simulator/internal/audit"
	"github.com/gpudc/simulator/internal/clock"
	"github.com/gpudc/simulator/internal/config"
	"github.com/gpudc/simulator/internal/errs"
	"github.com/gpudc/simulator/internal/facility"
	"github.com/gpudc/simulator/internal/failure"
	"github.com/gpudc/simulator/internal/ids"
	"github.com/gpudc/simulator/internal/metrics"
	"github.com/gpudc/simulator/internal/rng"
	"github.com/gpudc/simulator/internal/telemetry"
)

const (
	telemetryCapacity = 1000
	auditCapacity     = 5000
)

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Simulator is the top-level owner described by spec.md §4.13.
type Simulator struct {
	mu sync.Mutex

	cfg         config.Config
	sinkPath    string
	Clock       *clock.Clock
	streams     *rng.Streams
	Facility    *facility.Facility
	Failures    *failure.Engine
	Telemetry   *telemetry.Buffer
	Audit       *audit.Log

	rackSetpoints map[int]float64 // rack_id -> setpoint_c, via adjust_cooling
	powerCapPct   map[string]float64 // server_id -> pct, via throttle_gpu

	stopCh  chan struct{}
	stopped sync.WaitGroup
}

// New constructs a Simulator for the given config. sinkPath, when non-empty,
// mirrors every telemetry append to that JSONL file.
func New(cfg config.Config, sinkPath string) (*Simulator, error) {
	s := &Simulator{cfg: cfg, sinkPath: sinkPath}
	if err := s.rebuild(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Simulator) rebuild() error {
	s.Clock = clock.New(s.cfg.Clock.TickIntervalS, s.cfg.Clock.RealtimeFactor)
	s.streams = rng.New(s.cfg.RNGSeed)
	s.Facility = facility.New(s.cfg, s.streams)
	s.Failures = failure.New(s.cfg.Facility.NumRacks, s.cfg.Thermal.CracUnits, s.streams.For(rng.OffsetFailure))
	if s.Telemetry == nil {
		tb, err := telemetry.New(telemetryCapacity, s.sinkPath)
		if err != nil {
			return err
		}
		s.Telemetry = tb
	} else {
		s.Telemetry.Reset()
	}
	s.Audit = audit.New(auditCapacity)
	s.rackSetpoints = make(map[int]float64)
	s.powerCapPct = make(map[string]float64)
	return nil
}

func (s *Simulator) racksPerCrac() int {
	if s.cfg.Thermal.CracUnits <= 0 {
		return s.cfg.Facility.NumRacks
	}
	r := s.cfg.Facility.NumRacks / s.cfg.Thermal.CracUnits
	if r < 1 {
		return 1
	}
	return r
}

// Config returns a copy of the active configuration.
func (s *Simulator) Config() config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Clone()
}

// buildInputs translates the failure engine's active set and any pending
// control actions into the Inputs Facility.Step needs (spec.md §4.13
// "translate"). Caller must hold s.mu.
func (s *Simulator) buildInputs() facility.Inputs {
	numRacks := s.cfg.Facility.NumRacks
	racksPerCrac := s.racksPerCrac()

	coolingFactor := make(map[int]float64, numRacks)
	rackPowerMultiplier := make(map[int]float64, numRacks)
	for r := 0; r < numRacks; r++ {
		base := s.Failures.CoolingCapacityFactor(r)
		scale := 1.0
		if sp, ok := s.rackSetpoints[r]; ok {
			scale = clamp(1+(s.cfg.Thermal.CracSetpointC-sp)*0.03, 0.8, 1.2)
		}
		coolingFactor[r] = base * scale
		rackPowerMultiplier[r] = s.Failures.PDUSpikeFactor(r)
	}

	maxUtilOverrides := make(map[string]float64)
	for srv := range s.Failures.GPUDegradedServers() {
		maxUtilOverrides[srv] = 0.3
	}

	cracSetpoints := make(map[int]float64)
	for r, sp := range s.rackSetpoints {
		cracID := r / racksPerCrac
		if cracID >= s.cfg.Thermal.CracUnits {
			cracID = s.cfg.Thermal.CracUnits - 1
		}
		cracSetpoints[cracID] = sp
	}

	return facility.Inputs{
		CoolingCapacityFactor: coolingFactor,
		MaxUtilOverrides:      maxUtilOverrides,
		PowerCapPct:           s.powerCapPct,
		RackPowerMultiplier:   rackPowerMultiplier,
		CracSetpoints:         cracSetpoints,
		FailedCracUnits:       s.Failures.FailedCracUnits(),
		DegradedCracUnits:     s.Failures.DegradedCracUnits(),
		NetworkPartitionRacks: s.Failures.NetworkPartitionRacks(),
	}
}

// Tick advances the simulator n ticks and returns the resulting states, in
// order (spec.md §4.13 "tick(n)").
func (s *Simulator) Tick(n int) []facility.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tickLocked(n)
}

func (s *Simulator) tickLocked(n int) []facility.State {
	out := make([]facility.State, 0, n)
	for i := 0; i < n; i++ {
		s.Clock.Advance(1)
		currentTime := s.Clock.CurrentTime

		newFailures := s.Failures.Tick(currentTime)
		for _, nf := range newFailures {
			if nf.Type == failure.NetworkPartition {
				var rackID int
				fmt.Sscanf(nf.Target, "rack-%d", &rackID)
				s.Facility.Queue.PreemptRack(ids.Rack(rackID) + "-")
			}
		}

		in := s.buildInputs()
		state := s.Facility.Step(currentTime, s.Clock.TickCount, s.cfg.Clock.TickIntervalS, in)
		s.Telemetry.Append(state)
		out = append(out, state)

		metrics.TickTotal.Inc()
		metrics.ActiveFailures.Set(float64(len(s.Failures.ActiveFailures())))
		metrics.PowerTotalKW.Set(state.Power.TotalPowerKW)
	}
	return out
}

// StartContinuous starts a background worker ticking once every
// realIntervalS wall-clock seconds. Idempotent: a second call while already
// running is a no-op.
func (s *Simulator) StartContinuous(realIntervalS float64) {
	s.mu.Lock()
	if s.stopCh != nil {
		s.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	s.stopCh = stop
	s.mu.Unlock()

	s.stopped.Add(1)
	go func() {
		defer s.stopped.Done()
		ticker := time.NewTicker(time.Duration(realIntervalS * float64(time.Second)))
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.mu.Lock()
				s.tickLocked(1)
				s.mu.Unlock()
			}
		}
	}()
}

// StopContinuous stops the background worker, if running. Idempotent.
func (s *Simulator) StopContinuous() {
	s.mu.Lock()
	stop := s.stopCh
	s.stopCh = nil
	s.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	s.stopped.Wait()
}

// IsContinuousRunning reports whether the background worker is active.
func (s *Simulator) IsContinuousRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopCh != nil
}

// Reset stops the worker and reconstructs every owned component from the
// active config (spec.md §4.13 "reset()"). The telemetry buffer is cleared in
// place, so its JSONL sink and broadcaster stay attached.
func (s *Simulator) Reset() error {
	s.StopContinuous()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rebuild()
}

// SetConfig swaps the active config wholesale. Used by SessionManager.start
// to install a scenario-modified copy, and by SessionManager.end to restore
// the snapshot. Does not itself reset the simulator.
func (s *Simulator) SetConfig(cfg config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}

func (s *Simulator) recordAudit(source, actionType string, params map[string]any, err error) {
	s.Audit.Append(audit.Entry{
		TickCount:  s.Clock.TickCount,
		Time:       s.Clock.CurrentTime,
		Source:     source,
		ActionType: actionType,
		Params:     params,
		Result:     errs.Result(err),
	})
}

// Inject is the manual/scripted failure-injection entry point (spec.md
// §4.13 "inject(...)"). source labels the audit entry ("api" or "scenario").
func (s *Simulator) Inject(source string, t failure.Type, target string, durationS *float64) []*failure.Active {
	s.mu.Lock()
	defer s.mu.Unlock()
	created := s.Failures.Inject(t, target, durationS)
	var failureID string
	if len(created) > 0 {
		failureID = created[0].FailureID
	}
	var err error
	if len(created) == 0 {
		err = errs.InvalidRequest
	}
	s.recordAudit(source, "inject_failure", map[string]any{
		"failure_type": t, "target": target, "duration_s": durationS, "failure_id": failureID,
	}, err)
	return created
}

// MigrateWorkload implements the migrate_workload action handler.
func (s *Simulator) MigrateWorkload(source, jobID string, targetRack int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	if !s.Facility.Queue.Migrate(jobID, targetRack) {
		err = errs.NotFound
	}
	s.recordAudit(source, "migrate_workload", map[string]any{"job_id": jobID, "target_rack_id": targetRack}, err)
	return err
}

// AdjustCooling implements the adjust_cooling action handler: always
// succeeds, recording the rack's new setpoint for the next tick's
// translation (spec.md §4.13, §6).
func (s *Simulator) AdjustCooling(source string, rackID int, setpointC float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rackSetpoints[rackID] = setpointC
	s.recordAudit(source, "adjust_cooling", map[string]any{"rack_id": rackID, "setpoint_c": setpointC}, nil)
	return nil
}

// ThrottleGPU implements the throttle_gpu action handler: always succeeds,
// recording the server's power cap percentage for the next tick.
func (s *Simulator) ThrottleGPU(source, serverID string, powerCapPct float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.powerCapPct[serverID] = powerCapPct
	s.recordAudit(source, "throttle_gpu", map[string]any{"server_id": serverID, "power_cap_pct": powerCapPct}, nil)
	return nil
}

// PreemptJob implements the preempt_job action handler.
func (s *Simulator) PreemptJob(source, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	if !s.Facility.Queue.Preempt(jobID, false) {
		err = errs.NotFound
	}
	s.recordAudit(source, "preempt_job", map[string]any{"job_id": jobID}, err)
	return err
}

// ResolveFailure implements the resolve_failure action handler.
func (s *Simulator) ResolveFailure(source, failureID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	if !s.Failures.Resolve(failureID) {
		err = errs.NotFound
	}
	s.recordAudit(source, "resolve_failure", map[string]any{"failure_id": failureID}, err)
	return err
}

// Close releases the telemetry JSONL sink, if one is open.
func (s *Simulator) Close() error {
	if err := s.Telemetry.Close(); err != nil {
		logrus.Warnf("simulator: failed to close telemetry sink: %v", err)
		return err
	}
	return nil
}
