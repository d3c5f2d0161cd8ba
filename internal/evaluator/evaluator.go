// Package evaluator reduces a run's telemetry into seven weighted
// dimension scores and one composite 0-100 score (spec.md §4.16).
package evaluator

import (
	"math"

	"github.com/gpudc/simulator/internal/audit"
	"github.com/gpudc/simulator/internal/config"
	"github.com/gpudc/simulator/internal/facility"
	"github.com/gpudc/simulator/internal/scenario"
	"github.com/gpudc/simulator/internal/workload"
)

// DimensionScore is one weighted dimension of an EvaluationResult.
type DimensionScore struct {
	Name    string         `json:"name"`
	Score   float64        `json:"score"`
	Weight  float64        `json:"weight"`
	Metrics map[string]any `json:"metrics"`
	Notes   string         `json:"notes"`
}

// Result is the full evaluation output for one run.
type Result struct {
	CompositeScore float64          `json:"composite_score"`
	Dimensions     []DimensionScore `json:"dimensions"`
	RunType        string           `json:"run_type"`
	AgentName      string           `json:"agent_name"`
	ScenarioID     string           `json:"scenario_id"`
	DurationTicks  int64            `json:"duration_ticks"`
	TotalSimTimeS  float64          `json:"total_sim_time_s"`
}

// weights, fixed by spec.md §4.16.
var weights = map[string]float64{
	"sla_quality":       0.25,
	"energy_efficiency": 0.20,
	"carbon":            0.15,
	"thermal_safety":    0.15,
	"cost":              0.10,
	"infra_health":      0.10,
	"failure_response":  0.05,
}

func clampScore(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 100 {
		return 100
	}
	return x
}

// norm maps v into a 0-100 score where v==target scores 100 and v==worst
// scores 0 (spec.md §4.16 helper "norm").
func norm(v, target, worst float64) float64 {
	if target == worst {
		if v <= target {
			return 100
		}
		return 0
	}
	return clampScore(100 - 100*(v-target)/(worst-target))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Evaluator computes EvaluationResults from a run's raw telemetry.
type Evaluator struct{}

// New creates an Evaluator. It carries no state of its own.
func New() *Evaluator { return &Evaluator{} }

// Compute reduces one run's states, jobs and audit entries to an EvaluationResult.
func (e *Evaluator) Compute(states []facility.State, jobs []*workload.Job, entries []audit.Entry, scn scenario.Scenario, cfg config.Config) Result {
	dims := []DimensionScore{
		e.slaQuality(jobs),
		e.energyEfficiency(states, jobs, cfg),
		e.carbon(states, cfg),
		e.thermalSafety(states, cfg),
		e.cost(states, jobs),
		e.infraHealth(states),
		e.failureResponse(states, jobs, entries, scn),
	}

	composite := 0.0
	for _, d := range dims {
		composite += d.Weight * d.Score
	}

	var totalSimTimeS float64
	if len(states) > 0 {
		totalSimTimeS = states[len(states)-1].CurrentTime
	}

	return Result{
		CompositeScore: round2(composite),
		Dimensions:     dims,
		ScenarioID:     scn.ID,
		DurationTicks:  int64(len(states)),
		TotalSimTimeS:  totalSimTimeS,
	}
}

func dim(name string, score float64, metrics map[string]any, notes string) DimensionScore {
	return DimensionScore{Name: name, Score: round2(clampScore(score)), Weight: weights[name], Metrics: metrics, Notes: notes}
}

func (e *Evaluator) slaQuality(jobs []*workload.Job) DimensionScore {
	if len(jobs) == 0 {
		return dim("sla_quality", 100, map[string]any{"total_jobs": 0}, "no jobs submitted")
	}

	violated, completed := 0, 0
	var waitSum float64
	var waitCount int
	for _, j := range jobs {
		if j.SLAViolated {
			violated++
		}
		if j.Status == workload.StatusCompleted {
			completed++
		}
		if j.StartedAt != nil {
			waitSum += *j.StartedAt - j.SubmittedAt
			waitCount++
		}
	}

	violationRate := float64(violated) / float64(len(jobs))
	completionRate := float64(completed) / float64(len(jobs))
	avgWait := 0.0
	if waitCount > 0 {
		avgWait = waitSum / float64(waitCount)
	}

	score := 0.5*(100-200*violationRate) + 0.3*(100*completionRate) + 0.2*norm(avgWait, 300, 3600)
	return dim("sla_quality", score, map[string]any{
		"violation_rate": violationRate, "completion_rate": completionRate, "avg_wait_s": avgWait,
	}, "")
}

func (e *Evaluator) energyEfficiency(states []facility.State, jobs []*workload.Job, cfg config.Config) DimensionScore {
	if len(states) == 0 {
		return dim("energy_efficiency", 0, nil, "no telemetry")
	}

	var pueSum, utilSum, kWhTotal float64
	for _, st := range states {
		pueSum += st.Power.PUE
		utilSum += st.GPU.Summary.AvgSMUtilPct
		kWhTotal += st.Power.TotalPowerKW * cfg.Clock.TickIntervalS / 3600
	}
	avgPUE := pueSum / float64(len(states))
	avgUtil := utilSum / float64(len(states))

	completed := 0
	for _, j := range jobs {
		if j.Status == workload.StatusCompleted {
			completed++
		}
	}
	kWhPerJob := 0.0
	if completed > 0 {
		kWhPerJob = kWhTotal / float64(completed)
	}

	score := 0.4*norm(avgPUE, 1.2, 2.0) + 0.3*norm(kWhPerJob, 5, 50) + 0.3*clampScore(avgUtil)
	return dim("energy_efficiency", score, map[string]any{
		"avg_pue": avgPUE, "kwh_per_job": kWhPerJob, "avg_gpu_util_pct": avgUtil,
	}, "")
}

func (e *Evaluator) carbon(states []facility.State, cfg config.Config) DimensionScore {
	if len(states) == 0 {
		return dim("carbon", 0, nil, "no telemetry")
	}

	totalKg := states[len(states)-1].Carbon.CumulativeCarbonKg
	durationH := float64(len(states)) * cfg.Clock.TickIntervalS / 3600
	reference := durationH * 100 * 200 / 1000

	totalGPUs := cfg.Facility.NumRacks * cfg.Facility.ServersPerRack * cfg.Facility.GPUsPerServer
	gpuHours := durationH * float64(totalGPUs)
	gPerGPUHour := 0.0
	if gpuHours > 0 {
		gPerGPUHour = totalKg * 1000 / gpuHours
	}

	var lowSum, highSum float64
	var lowCount, highCount int
	for _, st := range states {
		if st.Carbon.IntensityGCO2PerKWh < 180 {
			lowSum += st.GPU.Summary.AvgSMUtilPct
			lowCount++
		} else if st.Carbon.IntensityGCO2PerKWh >= 250 {
			highSum += st.GPU.Summary.AvgSMUtilPct
			highCount++
		}
	}
	awareness := 50.0
	if lowCount > 0 && highCount > 0 {
		lowAvg := lowSum / float64(lowCount)
		highAvg := highSum / float64(highCount)
		awareness = clampScore(50 + (lowAvg-highAvg)/100*50)
	}

	score := 0.4*norm(totalKg, 0, reference) + 0.35*norm(gPerGPUHour, 500, 5000) + 0.25*awareness
	return dim("carbon", score, map[string]any{
		"total_kg": totalKg, "g_per_gpu_hour": gPerGPUHour, "awareness": awareness,
	}, "")
}

func (e *Evaluator) thermalSafety(states []facility.State, cfg config.Config) DimensionScore {
	if len(states) == 0 {
		return dim("thermal_safety", 0, nil, "no telemetry")
	}

	var throttledPairs, totalPairs, eventTicks int
	peakInlet := math.Inf(-1)
	for _, st := range states {
		anyThrottled := false
		for _, r := range st.Thermal.Racks {
			totalPairs++
			if r.Throttled {
				throttledPairs++
				anyThrottled = true
			}
			if r.InletTempC > peakInlet {
				peakInlet = r.InletTempC
			}
		}
		if anyThrottled {
			eventTicks++
		}
	}

	throttledFraction := 0.0
	if totalPairs > 0 {
		throttledFraction = float64(throttledPairs) / float64(totalPairs)
	}
	thermalEventRate := float64(eventTicks) / float64(len(states))

	safe := cfg.Thermal.MaxSafeInletTempC
	critical := cfg.Thermal.CriticalInletTempC
	var peakComponent float64
	switch {
	case peakInlet <= safe:
		peakComponent = 100
	case peakInlet >= critical:
		peakComponent = 0
	default:
		peakComponent = 100 * (critical - peakInlet) / (critical - safe)
	}

	score := 0.4*(100-500*throttledFraction) + 0.35*peakComponent + 0.25*(100-300*thermalEventRate)
	return dim("thermal_safety", score, map[string]any{
		"throttled_fraction": throttledFraction, "peak_inlet_c": peakInlet, "thermal_event_rate": thermalEventRate,
	}, "")
}

func (e *Evaluator) cost(states []facility.State, jobs []*workload.Job) DimensionScore {
	if len(states) == 0 {
		return dim("cost", 0, nil, "no telemetry")
	}

	totalGBP := states[len(states)-1].Carbon.CumulativeCostGBP
	durationH := states[len(states)-1].CurrentTime / 3600

	completed := 0
	for _, j := range jobs {
		if j.Status == workload.StatusCompleted {
			completed++
		}
	}
	costPerJob := 0.0
	if completed > 0 {
		costPerJob = totalGBP / float64(completed)
	}

	var lowSum, highSum float64
	var lowCount, highCount int
	for _, st := range states {
		if st.Carbon.PriceGBPPerKWh < 0.12 {
			lowSum += st.Power.ITPowerKW
			lowCount++
		} else if st.Carbon.PriceGBPPerKWh > 0.20 {
			highSum += st.Power.ITPowerKW
			highCount++
		}
	}
	priceAwareness := 50.0
	if lowCount > 0 && highCount > 0 {
		lowAvg := lowSum / float64(lowCount)
		highAvg := highSum / float64(highCount)
		priceAwareness = clampScore(50 + (lowAvg-highAvg)/10*50)
	}

	score := 0.45*norm(totalGBP, 0, durationH*100*0.20) + 0.30*norm(costPerJob, 0.50, 5.0) + 0.25*priceAwareness
	return dim("cost", score, map[string]any{
		"total_gbp": totalGBP, "cost_per_job": costPerJob, "price_awareness": priceAwareness,
	}, "")
}

func (e *Evaluator) infraHealth(states []facility.State) DimensionScore {
	if len(states) == 0 {
		return dim("infra_health", 0, nil, "no telemetry")
	}

	var eccSum, lossSum float64
	for _, st := range states {
		eccSum += float64(st.GPU.Summary.ECCErrorGPUs)
		lossSum += st.Network.Summary.AvgPacketLossPct
	}
	avgECC := eccSum / float64(len(states))
	avgLoss := lossSum / float64(len(states))

	last := states[len(states)-1]
	numRacks := len(last.Network.Racks)
	lastAvgCRC := 0.0
	if numRacks > 0 {
		lastAvgCRC = float64(last.Network.Summary.TotalCRCErrors) / float64(numRacks)
	}
	lastDriveHealth := last.Storage.Summary.AvgDriveHealthPct

	score := 0.30*(100-10*avgECC) + 0.30*(100-1000*avgLoss) + 0.20*(100-5*lastAvgCRC) + 0.20*lastDriveHealth
	return dim("infra_health", score, map[string]any{
		"avg_ecc_error_gpus": avgECC, "avg_packet_loss_pct": avgLoss, "last_avg_crc": lastAvgCRC, "last_avg_drive_health_pct": lastDriveHealth,
	}, "")
}

func (e *Evaluator) failureResponse(states []facility.State, jobs []*workload.Job, entries []audit.Entry, scn scenario.Scenario) DimensionScore {
	if len(scn.FailureInjections) == 0 {
		return dim("failure_response", 100, map[string]any{"expected": 0}, "no scripted failures")
	}

	injectTimes := make(map[string]float64)
	resolveTimes := make(map[string]float64)
	for _, entry := range entries {
		switch entry.ActionType {
		case "inject_failure":
			if id, ok := entry.Params["failure_id"].(string); ok && id != "" {
				injectTimes[id] = entry.Time
			}
		case "resolve_failure":
			if id, ok := entry.Params["failure_id"].(string); ok && entry.Result == "ok" {
				resolveTimes[id] = entry.Time
			}
		}
	}

	expected := len(scn.FailureInjections)
	var ttrSum float64
	var resolved int
	for id, injectT := range injectTimes {
		if resolveT, ok := resolveTimes[id]; ok {
			ttrSum += resolveT - injectT
			resolved++
		}
	}

	meanTTR := 0.0
	if resolved > 0 {
		meanTTR = ttrSum / float64(resolved)
	}
	unresolved := expected - resolved
	if unresolved < 0 {
		unresolved = 0
	}
	ttrScore := norm(meanTTR, 300, 3600) - 50*float64(unresolved)/float64(expected)

	// Ticks advance uniformly, so the tick interval is recovered from any
	// recorded state; with no states, AtTick is taken as seconds.
	tickIntervalS := 1.0
	if len(states) > 0 && states[0].TickCount > 0 {
		tickIntervalS = states[0].CurrentTime / float64(states[0].TickCount)
	}

	var violations int
	for _, fi := range scn.FailureInjections {
		injectT := float64(fi.AtTick) * tickIntervalS // sim time at which the scripted injection fires
		windowEnd := injectT + 3600
		if fi.DurationS != nil && *fi.DurationS > 0 {
			windowEnd = injectT + *fi.DurationS
		}
		for _, j := range jobs {
			if j.SLAViolated && j.SubmittedAt >= injectT && j.SubmittedAt <= windowEnd {
				violations++
			}
		}
	}
	failureSLAScore := 100 - 20*float64(violations)

	score := 0.7*ttrScore + 0.3*failureSLAScore
	return dim("failure_response", score, map[string]any{
		"expected": expected, "resolved": resolved, "mean_ttr_s": meanTTR, "violations_during_failures": violations,
	}, "")
}
