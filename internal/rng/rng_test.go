package rng

import "testing"

func TestStreams_ForIsStable(t *testing.T) {
	s := New(42)
	a := s.For(OffsetThermal)
	b := s.For(OffsetThermal)
	if a != b {
		t.Fatalf("For(same offset) returned different *rand.Rand instances")
	}
}

func TestStreams_DifferentOffsetsDiverge(t *testing.T) {
	s := New(42)
	a := s.For(OffsetThermal).Float64()
	b := s.For(OffsetGPU).Float64()
	if a == b {
		t.Fatalf("streams at different offsets produced identical first draws: %v", a)
	}
}

func TestStreams_SameSeedReproduces(t *testing.T) {
	s1 := New(1001)
	s2 := New(1001)
	for _, off := range []int64{OffsetCarbon, OffsetThermal, OffsetGPU, OffsetNetwork, OffsetStorage, OffsetCooling, OffsetFailure, OffsetWorkload} {
		v1 := s1.For(off).Float64()
		v2 := s2.For(off).Float64()
		if v1 != v2 {
			t.Errorf("offset %d: %v != %v, streams with identical base seed diverged", off, v1, v2)
		}
	}
}

func TestStreams_ResetReproducesFromStart(t *testing.T) {
	s := New(7)
	r := s.For(OffsetWorkload)
	first := r.Float64()
	_ = r.Float64()
	_ = r.Float64()

	s.Reset()
	afterReset := s.For(OffsetWorkload).Float64()
	if first != afterReset {
		t.Fatalf("Reset did not reproduce the first draw: got %v, want %v", afterReset, first)
	}
}

func TestStreams_ResetOnlyTouchesUsedOffsets(t *testing.T) {
	s := New(7)
	s.For(OffsetThermal)
	s.Reset()
	if len(s.subs) != 1 {
		t.Fatalf("Reset should not materialize unused offsets, got %d streams", len(s.subs))
	}
}
