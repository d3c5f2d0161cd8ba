package config

import "testing"

func TestDefault_MatchesDocumentedConstants(t *testing.T) {
	cfg := Default()
	if cfg.Facility.NumRacks != 8 || cfg.Facility.ServersPerRack != 4 || cfg.Facility.GPUsPerServer != 4 {
		t.Errorf("unexpected facility layout: %+v", cfg.Facility)
	}
	if cfg.Thermal.CracUnits != 2 {
		t.Errorf("CracUnits = %d, want 2", cfg.Thermal.CracUnits)
	}
	if len(cfg.Workload.Profiles) != 3 {
		t.Errorf("expected 3 job profiles, got %d", len(cfg.Workload.Profiles))
	}
	if cfg.RNGSeed != 42 {
		t.Errorf("RNGSeed = %d, want 42", cfg.RNGSeed)
	}
}

func TestClone_ProfilesAreIndependent(t *testing.T) {
	cfg := Default()
	clone := cfg.Clone()

	clone.Workload.Profiles["training"] = JobProfile{GPUMin: 99}

	if cfg.Workload.Profiles["training"].GPUMin == 99 {
		t.Fatalf("mutating the clone's profile map mutated the original")
	}
}

func TestClone_ScalarFieldsCopyByValue(t *testing.T) {
	cfg := Default()
	clone := cfg.Clone()
	clone.RNGSeed = 999
	clone.Facility.NumRacks = 1

	if cfg.RNGSeed == 999 || cfg.Facility.NumRacks == 1 {
		t.Fatalf("mutating the clone mutated the original config")
	}
}

func TestClone_NilProfilesStayNil(t *testing.T) {
	cfg := Config{}
	clone := cfg.Clone()
	if clone.Workload.Profiles != nil {
		t.Errorf("Clone() of a zero-value Config produced a non-nil Profiles map")
	}
}
