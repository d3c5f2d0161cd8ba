package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestTickTotal_IncrementsByOne(t *testing.T) {
	before := testutil.ToFloat64(TickTotal)
	TickTotal.Inc()
	after := testutil.ToFloat64(TickTotal)
	if after != before+1 {
		t.Errorf("TickTotal after Inc() = %v, want %v", after, before+1)
	}
}

func TestActiveFailures_SetReflectsLastValue(t *testing.T) {
	ActiveFailures.Set(3)
	if got := testutil.ToFloat64(ActiveFailures); got != 3 {
		t.Errorf("ActiveFailures = %v, want 3", got)
	}
	ActiveFailures.Set(0)
	if got := testutil.ToFloat64(ActiveFailures); got != 0 {
		t.Errorf("ActiveFailures = %v, want 0", got)
	}
}

func TestCompositeScore_SetReflectsLastValue(t *testing.T) {
	CompositeScore.Set(87.5)
	if got := testutil.ToFloat64(CompositeScore); got != 87.5 {
		t.Errorf("CompositeScore = %v, want 87.5", got)
	}
}
