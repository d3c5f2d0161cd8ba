package evaluator

import (
	"testing"

	"github.com/gpudc/simulator/internal/audit"
	"github.com/gpudc/simulator/internal/config"
	"github.com/gpudc/simulator/internal/facility"
	"github.com/gpudc/simulator/internal/scenario"
	"github.com/gpudc/simulator/internal/workload"
)

func TestNorm_TargetScoresMax(t *testing.T) {
	if got := norm(10, 10, 100); got != 100 {
		t.Errorf("norm(target, target, worst) = %v, want 100", got)
	}
}

func TestNorm_WorstScoresMin(t *testing.T) {
	if got := norm(100, 10, 100); got != 0 {
		t.Errorf("norm(worst, target, worst) = %v, want 0", got)
	}
}

func TestNorm_EqualTargetAndWorstIsStepFunction(t *testing.T) {
	if got := norm(0, 10, 10); got != 100 {
		t.Errorf("norm(v<=target, target, target) = %v, want 100", got)
	}
	if got := norm(20, 10, 10); got != 0 {
		t.Errorf("norm(v>target, target, target) = %v, want 0", got)
	}
}

func TestClampScore_BoundsToZeroAndHundred(t *testing.T) {
	if clampScore(-50) != 0 {
		t.Errorf("clampScore(-50) != 0")
	}
	if clampScore(150) != 100 {
		t.Errorf("clampScore(150) != 100")
	}
	if clampScore(42) != 42 {
		t.Errorf("clampScore(42) != 42")
	}
}

func TestRound2_RoundsToTwoDecimals(t *testing.T) {
	if got := round2(1.23456); got != 1.23 {
		t.Errorf("round2(1.23456) = %v, want 1.23", got)
	}
}

func TestSLAQuality_NoJobsScoresMax(t *testing.T) {
	e := New()
	d := e.slaQuality(nil)
	if d.Score != 100 {
		t.Errorf("slaQuality with no jobs = %v, want 100", d.Score)
	}
}

func TestSLAQuality_ViolationsLowerScore(t *testing.T) {
	e := New()
	clean := []*workload.Job{{Status: workload.StatusCompleted}}
	violated := []*workload.Job{{Status: workload.StatusCompleted, SLAViolated: true}}

	cleanScore := e.slaQuality(clean).Score
	violatedScore := e.slaQuality(violated).Score
	if violatedScore >= cleanScore {
		t.Errorf("violated jobs score (%v) should be lower than clean (%v)", violatedScore, cleanScore)
	}
}

func TestCompute_CompositeIsWeightedSumOfDimensions(t *testing.T) {
	e := New()
	cfg := config.Default()
	scn := scenario.Scenario{ID: "steady_state"}
	states := []facility.State{{CurrentTime: 60}}

	result := e.Compute(states, nil, nil, scn, cfg)
	var sum float64
	for _, d := range result.Dimensions {
		sum += d.Weight * d.Score
	}
	if round2(sum) != result.CompositeScore {
		t.Errorf("CompositeScore = %v, want weighted sum %v", result.CompositeScore, round2(sum))
	}
	if len(result.Dimensions) != 7 {
		t.Errorf("Compute returned %d dimensions, want 7", len(result.Dimensions))
	}
}

func TestCompute_EmptyTelemetryStillReturnsAResult(t *testing.T) {
	e := New()
	cfg := config.Default()
	scn := scenario.Scenario{ID: "steady_state"}

	result := e.Compute(nil, nil, nil, scn, cfg)
	if result.DurationTicks != 0 {
		t.Errorf("DurationTicks = %d, want 0 for empty telemetry", result.DurationTicks)
	}
}

func TestFailureResponse_NoScriptedFailuresScoresMax(t *testing.T) {
	e := New()
	d := e.failureResponse(nil, nil, nil, scenario.Scenario{})
	if d.Score != 100 {
		t.Errorf("failureResponse with no scripted failures = %v, want 100", d.Score)
	}
}

func TestFailureResponse_ResolvedFailureScoresAboveUnresolved(t *testing.T) {
	e := New()
	scn := scenario.Scenario{FailureInjections: []scenario.FailureInjection{{AtTick: 1}}}

	resolvedEntries := []audit.Entry{
		{ActionType: "inject_failure", Time: 0, Params: map[string]any{"failure_id": "f1"}},
		{ActionType: "resolve_failure", Time: 60, Result: "ok", Params: map[string]any{"failure_id": "f1"}},
	}
	unresolvedEntries := []audit.Entry{
		{ActionType: "inject_failure", Time: 0, Params: map[string]any{"failure_id": "f1"}},
	}

	resolved := e.failureResponse(nil, nil, resolvedEntries, scn).Score
	unresolved := e.failureResponse(nil, nil, unresolvedEntries, scn).Score
	if resolved <= unresolved {
		t.Errorf("resolved score (%v) should exceed unresolved score (%v)", resolved, unresolved)
	}
}
