package workload

import (
	"math"
	"math/rand"
)

// uniformInt samples an integer in [lo, hi] inclusive. Adapted from the
// teacher's GaussianSampler/ExponentialSampler pair in
// sim/workload/distribution.go, simplified to the bounded-uniform shape
// spec.md §3 calls for in the per-type JOB_PROFILES ranges.
func uniformInt(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.Intn(hi-lo+1)
}

// uniformFloat samples a float64 in [lo, hi].
func uniformFloat(rng *rand.Rand, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + rng.Float64()*(hi-lo)
}

// exponentialDuration samples a job duration around the per-type mean,
// grounded directly on the teacher's ExponentialSampler.Sample (sim/workload/
// distribution.go): val := rng.ExpFloat64() * mean, floored at a minimum of
// one tick-second so a job never has zero duration.
func exponentialDuration(rng *rand.Rand, mean float64) float64 {
	val := rng.ExpFloat64() * mean
	if val < 1 {
		return 1
	}
	return math.Round(val)
}
