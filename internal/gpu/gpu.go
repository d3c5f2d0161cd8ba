// Package gpu implements per-GPU telemetry derived from server-average
// utilisation: temperature, clocks, memory, PCIe/NVLink, ECC, throttle
// (spec.md §4.6). ECC counters persist across ticks for the run.
package gpu

import (
	"math"
	"math/rand"

	"github.com/gpudc/simulator/internal/config"
	"github.com/gpudc/simulator/internal/ids"
	"github.com/gpudc/simulator/internal/workload"
)

// State is one GPU's telemetry for one tick.
type State struct {
	GPUID           string  `json:"gpu_id"`
	TempC           float64 `json:"temp_c"`
	MemTempC        float64 `json:"mem_temp_c"`
	SMUtilPct       float64 `json:"sm_util_pct"`
	MemUtilPct      float64 `json:"mem_util_pct"`
	ThermalThrottle bool    `json:"thermal_throttle"`
	PowerThrottle   bool    `json:"power_throttle"`
	PowerW          float64 `json:"power_w"`
	SMClockMHz      float64 `json:"sm_clock_mhz"`
	MemClockMHz     float64 `json:"mem_clock_mhz"`
	FanPct          float64 `json:"fan_pct"`
	PCIeGBps        float64 `json:"pcie_gbps"`
	NVLinkGBps      float64 `json:"nvlink_gbps"`
	ECCSingleBitCum int64   `json:"ecc_single_bit_cum"`
	ECCDoubleBitCum int64   `json:"ecc_double_bit_cum"`
}

// ServerState rolls up every GPU on one server.
type ServerState struct {
	ServerID  string  `json:"server_id"`
	GPUs      []State `json:"gpus"`
	AvgTempC  float64 `json:"avg_temp_c"`
	Throttled bool    `json:"throttled"` // any GPU thermal- or rack-throttled
	PowerW    float64 `json:"power_w"`
}

// FacilitySummary rolls up every server.
type FacilitySummary struct {
	TotalGPUs      int     `json:"total_gpus"`
	HealthyGPUs    int     `json:"healthy_gpus"`
	ThrottledGPUs  int     `json:"throttled_gpus"`
	ECCErrorGPUs   int     `json:"ecc_error_gpus"` // GPUs with any double-bit error
	AvgTempC       float64 `json:"avg_temp_c"`
	AvgSMUtilPct   float64 `json:"avg_sm_util_pct"`
}

// Substate bundles per-server rollups and the facility summary.
type Substate struct {
	Servers []ServerState   `json:"servers"`
	Summary FacilitySummary `json:"summary"`
}

const (
	baseClockMHz  = 1410
	boostClockMHz = 1980
	pcieMaxGBps   = 64 // PCIe gen5 x16 approx.
)

// Model carries the per-GPU cumulative ECC counters across ticks.
type Model struct {
	cfg config.FacilityConfig
	pw  config.PowerConfig
	rng *rand.Rand

	eccSingle map[string]int64
	eccDouble map[string]int64
}

// New creates a Model for the given facility shape.
func New(cfg config.FacilityConfig, pw config.PowerConfig, rng *rand.Rand) *Model {
	return &Model{
		cfg:       cfg,
		pw:        pw,
		rng:       rng,
		eccSingle: make(map[string]int64),
		eccDouble: make(map[string]int64),
	}
}

// dominantType picks the job type to attribute a mixed-occupancy server to:
// training > inference > batch, since spec.md is silent on mixed-type
// per-server attribution and training's NVLink/memory bonuses are the ones
// worth preserving when in doubt.
func dominantType(types map[workload.JobType]bool) (workload.JobType, bool) {
	if types[workload.Training] {
		return workload.Training, true
	}
	if types[workload.Inference] {
		return workload.Inference, true
	}
	if types[workload.Batch] {
		return workload.Batch, true
	}
	return "", false
}

// Step computes per-GPU telemetry for every server, given that server's
// aggregate utilisation (0..1), the rack inlet temperatures from this tick's
// thermal output, the set of throttled racks, and the running jobs (to
// attribute a job type to each occupied server).
func (m *Model) Step(util map[string]float64, rackInlet map[int]float64, throttledRacks map[int]bool, running []*workload.Job) Substate {
	serverTypes := make(map[string]map[workload.JobType]bool)
	for _, j := range running {
		for _, srv := range j.AssignedServers {
			if serverTypes[srv] == nil {
				serverTypes[srv] = make(map[workload.JobType]bool)
			}
			serverTypes[srv][j.Type] = true
		}
	}

	servers := make([]ServerState, 0, m.cfg.NumRacks*m.cfg.ServersPerRack)
	summary := FacilitySummary{}

	for r := 0; r < m.cfg.NumRacks; r++ {
		inlet := rackInlet[r]
		rackThrottled := throttledRacks[r]
		for s := 0; s < m.cfg.ServersPerRack; s++ {
			srv := ids.Server(r, s)
			u := util[srv]
			jt, _ := dominantType(serverTypes[srv])

			gpus := make([]State, m.cfg.GPUsPerServer)
			sumTemp, sumPower := 0.0, 0.0
			anyThrottled := false

			for g := 0; g < m.cfg.GPUsPerServer; g++ {
				gid := ids.GPU(r, s, g)
				smPct := u * 100

				temp := inlet + 13 + (0.55*smPct + 0.003*math.Pow(smPct, 1.5)) + m.rng.NormFloat64()*0.8
				thermalThrottle := temp >= 83
				if thermalThrottle || rackThrottled {
					smPct = math.Min(smPct, 50)
				}

				memTemp := temp - 5
				if jt == workload.Training {
					memTemp += 3
				}

				power := m.pGpu(smPct / 100)
				powerThrottle := false
				if power >= 0.95*m.pw.GPUTDPWatts {
					power = 0.95 * m.pw.GPUTDPWatts
					powerThrottle = true
				}

				clockFrac := 1.0
				switch {
				case temp >= 83:
					clockFrac = 0.7
				case temp > 70:
					clockFrac = 1 - (temp-70)*(0.15/13)
				}
				smClock := baseClockMHz + (boostClockMHz-baseClockMHz)*clockFrac*(smPct/100)

				memUtil := m.memUtilPct(jt, smPct/100)

				fan := 30.0
				if temp > 50 {
					fan = 30 + (temp-50)*(70.0/33.0)
					if fan > 100 {
						fan = 100
					}
				}

				pcie := (smPct / 100) * 0.4 * pcieMaxGBps
				if jt == workload.Training {
					pcie *= 1.5
				}
				var nvlink float64
				if jt == workload.Training && smPct/100 > 0.1 {
					nvlink = (smPct / 100) * 0.6 * pcieMaxGBps
				}

				single, double := m.stepECC(gid, temp)

				gs := State{
					GPUID:           gid,
					TempC:           temp,
					MemTempC:        memTemp,
					SMUtilPct:       smPct,
					MemUtilPct:      memUtil,
					ThermalThrottle: thermalThrottle,
					PowerThrottle:   powerThrottle,
					PowerW:          power,
					SMClockMHz:      smClock,
					MemClockMHz:     1215,
					FanPct:          fan,
					PCIeGBps:        pcie,
					NVLinkGBps:      nvlink,
					ECCSingleBitCum: single,
					ECCDoubleBitCum: double,
				}
				gpus[g] = gs
				sumTemp += temp
				sumPower += power
				if thermalThrottle || rackThrottled {
					anyThrottled = true
				}

				summary.TotalGPUs++
				if !(thermalThrottle || rackThrottled) {
					summary.HealthyGPUs++
				} else {
					summary.ThrottledGPUs++
				}
				if double > 0 {
					summary.ECCErrorGPUs++
				}
				summary.AvgTempC += temp
				summary.AvgSMUtilPct += smPct
			}

			servers = append(servers, ServerState{
				ServerID:  srv,
				GPUs:      gpus,
				AvgTempC:  sumTemp / float64(m.cfg.GPUsPerServer),
				Throttled: anyThrottled,
				PowerW:    sumPower,
			})
		}
	}

	if summary.TotalGPUs > 0 {
		summary.AvgTempC /= float64(summary.TotalGPUs)
		summary.AvgSMUtilPct /= float64(summary.TotalGPUs)
	}

	return Substate{Servers: servers, Summary: summary}
}

// pGpu mirrors the power package's curve shape for per-GPU telemetry
// display, which spec.md §4.6 specifies independently of the facility-wide
// PowerModel (deliberately duplicated math, not a shared call, per spec).
func (m *Model) pGpu(u float64) float64 {
	return m.pw.GPUTDPWatts * (0.05 + 0.95*(0.3*u+0.7*u*u))
}

func (m *Model) memUtilPct(jt workload.JobType, u float64) float64 {
	if u < 0.01 {
		return 1
	}
	switch jt {
	case workload.Training:
		return 60 + 35*u
	case workload.Inference:
		return 20 + 30*u
	case workload.Batch:
		return 30 + 40*u
	default:
		return 1
	}
}

// stepECC samples this tick's single/double-bit errors and returns the
// updated cumulative counters.
func (m *Model) stepECC(gpuID string, tempC float64) (int64, int64) {
	factor := 1 + math.Max(0, (tempC-70)*0.02)
	singleRate := 0.0005 * factor
	doubleRate := 0.00002 * factor
	if m.rng.Float64() < singleRate {
		m.eccSingle[gpuID]++
	}
	if m.rng.Float64() < doubleRate {
		m.eccDouble[gpuID]++
	}
	return m.eccSingle[gpuID], m.eccDouble[gpuID]
}

// Reset clears every cumulative ECC counter, for Simulator.reset().
func (m *Model) Reset() {
	m.eccSingle = make(map[string]int64)
	m.eccDouble = make(map[string]int64)
}
