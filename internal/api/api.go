// Package api wires every HTTP endpoint in spec.md §6 onto a gin engine:
// facility-state reads, control actions, simulator control, evaluation and
// session endpoints, the agent registry, the leaderboard, and the
// prometheus/websocket mounts (SPEC_FULL.md §4.18).
package api

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/gpudc/simulator/internal/agent"
	"github.com/gpudc/simulator/internal/cooling"
	"github.com/gpudc/simulator/internal/errs"
	"github.com/gpudc/simulator/internal/evaluator"
	"github.com/gpudc/simulator/internal/facility"
	"github.com/gpudc/simulator/internal/failure"
	"github.com/gpudc/simulator/internal/leaderboard"
	"github.com/gpudc/simulator/internal/scenario"
	"github.com/gpudc/simulator/internal/session"
	"github.com/gpudc/simulator/internal/simulator"
	"github.com/gpudc/simulator/internal/telemetry"
)

// Server bundles every component the HTTP layer dispatches to.
type Server struct {
	sim         *simulator.Simulator
	sess        *session.Manager
	eval        *evaluator.Evaluator
	board       *leaderboard.Store
	broadcaster *telemetry.Broadcaster
	agents      map[string]agent.Agent

	mu       sync.Mutex
	lastRun  map[string]evaluator.Result
	baseline map[string]evaluator.Result
}

// NewServer builds a Server around an already-constructed Simulator.
func NewServer(sim *simulator.Simulator, sess *session.Manager, eval *evaluator.Evaluator, board *leaderboard.Store, broadcaster *telemetry.Broadcaster) *Server {
	s := &Server{
		sim:         sim,
		sess:        sess,
		eval:        eval,
		board:       board,
		broadcaster: broadcaster,
		agents:      map[string]agent.Agent{},
		lastRun:     map[string]evaluator.Result{},
		baseline:    map[string]evaluator.Result{},
	}
	s.agents["random"] = agent.NewRandomAgent(7)
	return s
}

// Engine builds and returns the gin engine with every route mounted.
func (s *Server) Engine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), ginLogger())

	r.GET("/status", s.getStatus)

	r.GET("/thermal", s.getThermal)
	r.GET("/thermal/:rack_id", s.getThermalRack)
	r.GET("/power", s.getPower)
	r.GET("/power/:rack_id", s.getPowerRack)
	r.GET("/carbon", s.getCarbon)
	r.GET("/gpu", s.getGPU)
	r.GET("/gpu/:server_id", s.getGPUServer)
	r.GET("/network", s.getNetwork)
	r.GET("/network/:rack_id", s.getNetworkRack)
	r.GET("/storage", s.getStorage)
	r.GET("/storage/:rack_id", s.getStorageRack)
	r.GET("/cooling", s.getCooling)

	r.GET("/workload/queue", s.getWorkloadQueue)
	r.GET("/workload/running", s.getWorkloadRunning)
	r.GET("/workload/completed", s.getWorkloadCompleted)
	r.GET("/workload/sla_violations", s.getWorkloadSLAViolations)

	r.GET("/failures/active", s.getFailuresActive)

	r.GET("/telemetry/history", s.getTelemetryHistory)
	r.GET("/audit", s.getAudit)

	r.POST("/actions/migrate_workload", s.postMigrateWorkload)
	r.POST("/actions/adjust_cooling", s.postAdjustCooling)
	r.POST("/actions/throttle_gpu", s.postThrottleGPU)
	r.POST("/actions/preempt_job", s.postPreemptJob)
	r.POST("/actions/resolve_failure", s.postResolveFailure)

	r.POST("/sim/tick", s.postSimTick)
	r.POST("/sim/run", s.postSimRun)
	r.POST("/sim/pause", s.postSimPause)
	r.GET("/sim/status", s.getSimStatus)
	r.POST("/sim/reset", s.postSimReset)
	r.POST("/sim/inject_failure", s.postSimInjectFailure)

	r.GET("/eval/scenarios", s.getEvalScenarios)
	r.POST("/eval/run/:scenario_id", s.postEvalRun)
	r.GET("/eval/score", s.getEvalScore)
	r.GET("/eval/baseline/:id", s.getEvalBaseline)

	r.POST("/eval/session/start/:scenario_id", s.postSessionStart)
	r.POST("/eval/session/step", s.postSessionStep)
	r.POST("/eval/session/end", s.postSessionEnd)
	r.GET("/eval/session/status", s.getSessionStatus)

	r.GET("/eval/agents", s.getEvalAgents)
	r.POST("/eval/run-agent", s.postRunAgent)
	r.POST("/eval/run-baseline", s.postRunBaseline)
	r.GET("/eval/leaderboard", s.getLeaderboard)
	r.POST("/eval/leaderboard/submit", s.postLeaderboardSubmit)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ws", func(c *gin.Context) { s.broadcaster.HandleWS(c.Writer, c.Request) })

	return r
}

func ginLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logrus.Debugf("%s %s -> %d", c.Request.Method, c.Request.URL.Path, c.Writer.Status())
	}
}

func (s *Server) currentState() (facility.State, error) {
	if st, ok := s.sim.Telemetry.Latest(); ok {
		return st, nil
	}
	states := s.sim.Tick(1)
	if len(states) == 0 {
		return facility.State{}, errs.Internal
	}
	return states[0], nil
}

func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errs.Result(err) == "not_found":
		return http.StatusNotFound
	case errs.Result(err) == "session_busy":
		return http.StatusConflict
	case errs.Result(err) == "invalid_state", errs.Result(err) == "invalid_request":
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) getStatus(c *gin.Context) {
	state, err := s.currentState()
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) getThermal(c *gin.Context) {
	state, err := s.currentState()
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, state.Thermal)
}

func (s *Server) getThermalRack(c *gin.Context) {
	state, err := s.currentState()
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	rackID, err := strconv.Atoi(c.Param("rack_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": errs.NotFound.Error()})
		return
	}
	for _, r := range state.Thermal.Racks {
		if r.RackID == rackID {
			c.JSON(http.StatusOK, r)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": errs.NotFound.Error()})
}

func (s *Server) getPower(c *gin.Context) {
	state, err := s.currentState()
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, state.Power)
}

func (s *Server) getPowerRack(c *gin.Context) {
	state, err := s.currentState()
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	rackID, err := strconv.Atoi(c.Param("rack_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": errs.NotFound.Error()})
		return
	}
	for _, r := range state.Power.Racks {
		if r.RackID == rackID {
			c.JSON(http.StatusOK, r)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": errs.NotFound.Error()})
}

func (s *Server) getCarbon(c *gin.Context) {
	state, err := s.currentState()
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, state.Carbon)
}

func (s *Server) getGPU(c *gin.Context) {
	state, err := s.currentState()
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, state.GPU)
}

func (s *Server) getGPUServer(c *gin.Context) {
	state, err := s.currentState()
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	serverID := c.Param("server_id")
	for _, srv := range state.GPU.Servers {
		if srv.ServerID == serverID {
			c.JSON(http.StatusOK, srv)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": errs.NotFound.Error()})
}

func (s *Server) getNetwork(c *gin.Context) {
	state, err := s.currentState()
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, state.Network)
}

func (s *Server) getNetworkRack(c *gin.Context) {
	state, err := s.currentState()
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	rackID, err := strconv.Atoi(c.Param("rack_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": errs.NotFound.Error()})
		return
	}
	for _, r := range state.Network.Racks {
		if r.RackID == rackID {
			c.JSON(http.StatusOK, r)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": errs.NotFound.Error()})
}

func (s *Server) getStorage(c *gin.Context) {
	state, err := s.currentState()
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, state.Storage)
}

func (s *Server) getStorageRack(c *gin.Context) {
	state, err := s.currentState()
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	rackID, err := strconv.Atoi(c.Param("rack_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": errs.NotFound.Error()})
		return
	}
	for _, r := range state.Storage.Racks {
		if r.RackID == rackID {
			c.JSON(http.StatusOK, r)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": errs.NotFound.Error()})
}

func (s *Server) getCooling(c *gin.Context) {
	state, err := s.currentState()
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, state.Cooling)
}

func (s *Server) getWorkloadQueue(c *gin.Context) {
	c.JSON(http.StatusOK, s.sim.Facility.Queue.Pending)
}

func (s *Server) getWorkloadRunning(c *gin.Context) {
	c.JSON(http.StatusOK, s.sim.Facility.Queue.Running)
}

func (s *Server) getWorkloadCompleted(c *gin.Context) {
	c.JSON(http.StatusOK, s.sim.Facility.Queue.Completed)
}

func (s *Server) getWorkloadSLAViolations(c *gin.Context) {
	var out []any
	for _, j := range s.sim.Facility.Queue.AllJobs() {
		if j.SLAViolated {
			out = append(out, j)
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getFailuresActive(c *gin.Context) {
	c.JSON(http.StatusOK, s.sim.Failures.ActiveFailures())
}

func lastN[T any](items []T, n int) []T {
	if n <= 0 || n >= len(items) {
		return items
	}
	return items[len(items)-n:]
}

func (s *Server) getTelemetryHistory(c *gin.Context) {
	n, _ := strconv.Atoi(c.Query("last_n"))
	c.JSON(http.StatusOK, lastN(s.sim.Telemetry.All(), n))
}

func (s *Server) getAudit(c *gin.Context) {
	n, _ := strconv.Atoi(c.Query("last_n"))
	c.JSON(http.StatusOK, lastN(s.sim.Audit.All(), n))
}

func (s *Server) postMigrateWorkload(c *gin.Context) {
	var body struct {
		JobID        string `json:"job_id"`
		TargetRackID int    `json:"target_rack_id"`
	}
	if err := c.BindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errs.InvalidRequest.Error()})
		return
	}
	err := s.sim.MigrateWorkload("api", body.JobID, body.TargetRackID)
	c.JSON(statusFor(err), gin.H{"result": errs.Result(err)})
}

func (s *Server) postAdjustCooling(c *gin.Context) {
	var body struct {
		RackID    int     `json:"rack_id"`
		SetpointC float64 `json:"setpoint_c"`
	}
	if err := c.BindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errs.InvalidRequest.Error()})
		return
	}
	err := s.sim.AdjustCooling("api", body.RackID, body.SetpointC)
	c.JSON(statusFor(err), gin.H{"result": errs.Result(err)})
}

func (s *Server) postThrottleGPU(c *gin.Context) {
	var body struct {
		ServerID    string  `json:"server_id"`
		PowerCapPct float64 `json:"power_cap_pct"`
	}
	if err := c.BindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errs.InvalidRequest.Error()})
		return
	}
	err := s.sim.ThrottleGPU("api", body.ServerID, body.PowerCapPct)
	c.JSON(statusFor(err), gin.H{"result": errs.Result(err)})
}

func (s *Server) postPreemptJob(c *gin.Context) {
	var body struct {
		JobID string `json:"job_id"`
	}
	if err := c.BindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errs.InvalidRequest.Error()})
		return
	}
	err := s.sim.PreemptJob("api", body.JobID)
	c.JSON(statusFor(err), gin.H{"result": errs.Result(err)})
}

func (s *Server) postResolveFailure(c *gin.Context) {
	var body struct {
		FailureID string `json:"failure_id"`
	}
	if err := c.BindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errs.InvalidRequest.Error()})
		return
	}
	err := s.sim.ResolveFailure("api", body.FailureID)
	c.JSON(statusFor(err), gin.H{"result": errs.Result(err)})
}

func (s *Server) postSimTick(c *gin.Context) {
	n, _ := strconv.Atoi(c.Query("n"))
	if n <= 0 {
		n = 1
	}
	states := s.sim.Tick(n)
	c.JSON(http.StatusOK, states)
}

func (s *Server) postSimRun(c *gin.Context) {
	interval, _ := strconv.ParseFloat(c.Query("tick_interval_s"), 64)
	if interval <= 0 {
		interval = 1
	}
	s.sim.StartContinuous(interval)
	c.JSON(http.StatusOK, gin.H{"result": "ok"})
}

func (s *Server) postSimPause(c *gin.Context) {
	s.sim.StopContinuous()
	c.JSON(http.StatusOK, gin.H{"result": "ok"})
}

func (s *Server) getSimStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"running":    s.sim.IsContinuousRunning(),
		"tick_count": s.sim.Clock.TickCount,
		"sim_time_s": s.sim.Clock.CurrentTime,
	})
}

func (s *Server) postSimReset(c *gin.Context) {
	if err := s.sim.Reset(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": "ok"})
}

func (s *Server) postSimInjectFailure(c *gin.Context) {
	var body struct {
		Type      string   `json:"type"`
		Target    string   `json:"target"`
		DurationS *float64 `json:"duration_s"`
	}
	if err := c.BindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errs.InvalidRequest.Error()})
		return
	}
	created := s.sim.Inject("api", failure.Type(body.Type), body.Target, body.DurationS)
	if len(created) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": errs.InvalidRequest.Error()})
		return
	}
	c.JSON(http.StatusOK, created)
}

func (s *Server) getEvalScenarios(c *gin.Context) {
	c.JSON(http.StatusOK, scenario.List())
}

func (s *Server) postEvalRun(c *gin.Context) {
	scenarioID := c.Param("scenario_id")
	mode := c.DefaultQuery("mode", "agent")

	scn, ok := scenario.Get(scenarioID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": errs.NotFound.Error()})
		return
	}

	a, ok := s.agents["random"]
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": errs.Internal.Error()})
		return
	}

	result, err := s.runScenario(scn, a)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	if mode == "baseline" {
		s.baseline[scenarioID] = result
	} else {
		s.lastRun[scenarioID] = result
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, result)
}

func (s *Server) runScenario(scn scenario.Scenario, a agent.Agent) (evaluator.Result, error) {
	if _, err := s.sess.Start(scn.ID, a.Name(), &scn); err != nil {
		return evaluator.Result{}, err
	}
	for {
		step, err := s.sess.Step()
		if err != nil {
			break
		}
		for _, act := range a.Act(step.State) {
			agent.Dispatch(s.sim, act)
		}
		if step.Done {
			break
		}
	}
	return s.sess.End()
}

func (s *Server) getEvalScore(c *gin.Context) {
	scenarioID := c.Query("scenario_id")
	s.mu.Lock()
	defer s.mu.Unlock()
	result, ok := s.lastRun[scenarioID]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": errs.NotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) getEvalBaseline(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	result, ok := s.baseline[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": errs.NotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) postSessionStart(c *gin.Context) {
	scenarioID := c.Param("scenario_id")
	agentName := c.DefaultQuery("agent_name", "operator")
	info, err := s.sess.Start(scenarioID, agentName, nil)
	c.JSON(statusFor(err), gin.H{"info": info, "error": errString(err)})
}

func (s *Server) postSessionStep(c *gin.Context) {
	step, err := s.sess.Step()
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, step)
}

func (s *Server) postSessionEnd(c *gin.Context) {
	result, err := s.sess.End()
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) getSessionStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.sess.GetStatus())
}

func (s *Server) getEvalAgents(c *gin.Context) {
	names := make([]string, 0, len(s.agents))
	for name := range s.agents {
		names = append(names, name)
	}
	c.JSON(http.StatusOK, names)
}

func (s *Server) postRunAgent(c *gin.Context) {
	var body struct {
		AgentName               string   `json:"agent_name"`
		ScenarioID              string   `json:"scenario_id"`
		DurationTicks           *int64   `json:"duration_ticks"`
		RNGSeed                 *int64   `json:"rng_seed"`
		MeanJobArrivalIntervalS *float64 `json:"mean_job_arrival_interval_s"`
	}
	if err := c.BindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errs.InvalidRequest.Error()})
		return
	}

	a, ok := s.agents[body.AgentName]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": errs.NotFound.Error()})
		return
	}
	scn, ok := scenario.Get(body.ScenarioID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": errs.NotFound.Error()})
		return
	}
	if body.DurationTicks != nil {
		scn.DurationTicks = *body.DurationTicks
	}
	if body.RNGSeed != nil {
		scn.RNGSeed = *body.RNGSeed
	}
	if body.MeanJobArrivalIntervalS != nil {
		scn.MeanJobArrivalIntervalS = *body.MeanJobArrivalIntervalS
	}

	result, err := s.runScenario(scn, a)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	runID, err := leaderboard.NewRunID()
	if err == nil {
		_ = s.board.Record(leaderboard.Row{
			RunID: runID, AgentName: a.Name(), ScenarioID: scn.ID,
			CompositeScore: result.CompositeScore, DurationTicks: result.DurationTicks, TotalSimTimeS: result.TotalSimTimeS,
		})
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) postRunBaseline(c *gin.Context) {
	s.postRunAgent(c)
}

func (s *Server) getLeaderboard(c *gin.Context) {
	rows, err := leaderboard.Load(s.board.Path())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) postLeaderboardSubmit(c *gin.Context) {
	var row leaderboard.Row
	if err := c.BindJSON(&row); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errs.InvalidRequest.Error()})
		return
	}
	if row.RunID == "" {
		runID, err := leaderboard.NewRunID()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		row.RunID = runID
	}
	if err := s.board.Record(row); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": "ok"})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
