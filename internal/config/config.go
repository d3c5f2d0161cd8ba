// Package config holds the immutable, per-run tuneable parameters for the
// facility simulation. Values are grouped the way sim/config.go groups the
// inference-sim regression/KV/batch parameters: small, focused structs
// embedded into one top-level Config.
package config

// FacilityConfig describes the physical layout of the data centre.
type FacilityConfig struct {
	NumRacks       int `yaml:"num_racks"`
	ServersPerRack int `yaml:"servers_per_rack"`
	GPUsPerServer  int `yaml:"gpus_per_server"`
}

// ClockConfig controls tick granularity and optional real-time throttling.
type ClockConfig struct {
	TickIntervalS   float64 `yaml:"tick_interval_s"`
	RealtimeFactor  float64 `yaml:"realtime_factor"` // 0 disables throttling
}

// ThermalConfig groups the thermal/cooling-adjacent constants from spec.md §3.
type ThermalConfig struct {
	AmbientTempC           float64 `yaml:"ambient_temp_c"`
	CracSetpointC          float64 `yaml:"crac_setpoint_c"`
	CracCoolingCapacityKW  float64 `yaml:"crac_cooling_capacity_kw"`
	ThermalMassCoefficient float64 `yaml:"thermal_mass_coefficient"`
	MaxSafeInletTempC      float64 `yaml:"max_safe_inlet_temp_c"`
	CriticalInletTempC     float64 `yaml:"critical_inlet_temp_c"`
	CracUnits              int     `yaml:"crac_units"`
}

// PowerConfig groups the facility/server/GPU power constants.
type PowerConfig struct {
	GPUTDPWatts          float64 `yaml:"gpu_tdp_watts"`
	ServerBasePowerWatts float64 `yaml:"server_base_power_watts"`
	PDUCapacityKW        float64 `yaml:"pdu_capacity_kw"`
	FacilityPowerCapKW   float64 `yaml:"facility_power_cap_kw"`
	PUEOverheadFactor    float64 `yaml:"pue_overhead_factor"`
}

// JobProfile is one row of JOB_PROFILES: the sampling ranges for a job type.
type JobProfile struct {
	GPUMin, GPUMax           int
	DurationMeanS            float64
	PriorityMin, PriorityMax int
	SLADeadlineS             float64
	GPUUtilTargetMin         float64
	GPUUtilTargetMax         float64
}

// WorkloadConfig groups arrival-process and per-type profile parameters.
type WorkloadConfig struct {
	MeanJobArrivalIntervalS float64               `yaml:"mean_job_arrival_interval_s"`
	Profiles                map[string]JobProfile `yaml:"-"`
}

// Config is the full, immutable-per-run tuneable set. A session copies it,
// overrides Seed and Workload.MeanJobArrivalIntervalS, and restores the
// original when the session ends (spec.md §4.2, §4.15).
type Config struct {
	Facility FacilityConfig `yaml:"facility"`
	Clock    ClockConfig    `yaml:"clock"`
	Thermal  ThermalConfig  `yaml:"thermal"`
	Power    PowerConfig    `yaml:"power"`
	Workload WorkloadConfig `yaml:"workload"`
	RNGSeed  int64          `yaml:"rng_seed"`
}

// Clone returns a deep-enough copy for a session to mutate without affecting
// the original: every field here is a value or a map that the session only
// ever replaces wholesale (never mutated in place), so a shallow copy of the
// struct plus a copy of the Profiles map is sufficient.
func (c Config) Clone() Config {
	clone := c
	if c.Workload.Profiles != nil {
		clone.Workload.Profiles = make(map[string]JobProfile, len(c.Workload.Profiles))
		for k, v := range c.Workload.Profiles {
			clone.Workload.Profiles[k] = v
		}
	}
	return clone
}

// Default returns the compiled-in default configuration, matching every
// numeric default named in spec.md §3.
func Default() Config {
	return Config{
		Facility: FacilityConfig{NumRacks: 8, ServersPerRack: 4, GPUsPerServer: 4},
		Clock:    ClockConfig{TickIntervalS: 60.0, RealtimeFactor: 0},
		Thermal: ThermalConfig{
			AmbientTempC:           22,
			CracSetpointC:          18,
			CracCoolingCapacityKW:  50,
			ThermalMassCoefficient: 0.3,
			MaxSafeInletTempC:      35,
			CriticalInletTempC:     40,
			CracUnits:              2,
		},
		Power: PowerConfig{
			GPUTDPWatts:          300,
			ServerBasePowerWatts: 200,
			PDUCapacityKW:        20,
			FacilityPowerCapKW:   120,
			PUEOverheadFactor:    1.4,
		},
		Workload: WorkloadConfig{
			MeanJobArrivalIntervalS: 300,
			Profiles: map[string]JobProfile{
				"training": {
					GPUMin: 2, GPUMax: 8, DurationMeanS: 3600,
					PriorityMin: 2, PriorityMax: 5, SLADeadlineS: 3600,
					GPUUtilTargetMin: 0.75, GPUUtilTargetMax: 0.95,
				},
				"inference": {
					GPUMin: 1, GPUMax: 2, DurationMeanS: 600,
					PriorityMin: 3, PriorityMax: 5, SLADeadlineS: 300,
					GPUUtilTargetMin: 0.3, GPUUtilTargetMax: 0.6,
				},
				"batch": {
					GPUMin: 1, GPUMax: 4, DurationMeanS: 1800,
					PriorityMin: 1, PriorityMax: 3, SLADeadlineS: 7200,
					GPUUtilTargetMin: 0.5, GPUUtilTargetMax: 0.85,
				},
			},
		},
		RNGSeed: 42,
	}
}
