// Package network implements per-rack ToR and spine traffic, queuing-theory
// latency, and packet loss (spec.md §4.7).
package network

import (
	"math"
	"math/rand"

	"github.com/gpudc/simulator/internal/config"
	"github.com/gpudc/simulator/internal/ids"
	"github.com/gpudc/simulator/internal/workload"
)

// Baseline per-rack traffic by job type at 100% utilisation (Gbps).
const (
	trainingRDMAGbps  = 40
	inferenceNSGbps   = 8
	batchStorageGbps  = 15
	torCapacityGbps   = 100
	spineCapacityGbps = 100
)

// RackState is the per-rack network substate.
type RackState struct {
	RackID            int     `json:"rack_id"`
	ToRTrafficGbps    float64 `json:"tor_traffic_gbps"`
	ToRAvgLatencyUs   float64 `json:"tor_avg_latency_us"`
	ToRP99LatencyUs   float64 `json:"tor_p99_latency_us"`
	PacketLossPct     float64 `json:"packet_loss_pct"`
	ActivePorts       int     `json:"active_ports"`
	CRCErrorsCum      int64   `json:"crc_errors_cum"`
	SpineTrafficGbps  float64 `json:"spine_traffic_gbps"`
	SpineAvgLatencyUs float64 `json:"spine_avg_latency_us"`
	SpineP99LatencyUs float64 `json:"spine_p99_latency_us"`
	Partitioned       bool    `json:"partitioned"`
}

// FacilitySummary aggregates across every rack.
type FacilitySummary struct {
	TotalTrafficGbps float64 `json:"total_traffic_gbps"`
	AvgLatencyUs     float64 `json:"avg_latency_us"`
	AvgPacketLossPct float64 `json:"avg_packet_loss_pct"`
	TotalCRCErrors   int64   `json:"total_crc_errors"`
	ActivePorts      int     `json:"active_ports"`
}

// Substate bundles per-rack states and the facility summary.
type Substate struct {
	Racks   []RackState     `json:"racks"`
	Summary FacilitySummary `json:"summary"`
}

// Model carries the persistent per-rack CRC error counters.
type Model struct {
	cfg config.FacilityConfig
	rng *rand.Rand

	crcCum []int64
}

// New creates a Model for the given facility shape.
func New(cfg config.FacilityConfig, rng *rand.Rand) *Model {
	return &Model{cfg: cfg, rng: rng, crcCum: make([]int64, cfg.NumRacks)}
}

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

func baselineGbps(jt workload.JobType) float64 {
	switch jt {
	case workload.Training:
		return trainingRDMAGbps
	case workload.Inference:
		return inferenceNSGbps
	case workload.Batch:
		return batchStorageGbps
	default:
		return 0
	}
}

func queueLatency(baseUs, rho float64) (avg, p99 float64) {
	if rho >= 1 {
		rho = 0.999
	}
	avg = baseUs / (1 - rho)
	p99 = avg * (1 + 2.3*rho)
	return
}

func lossPct(rho float64) float64 {
	if rho <= 0.8 {
		return 0
	}
	loss := (rho - 0.8) * 5
	if loss > 2 {
		return 2
	}
	return loss
}

// rackOf extracts the rack id from a "rack-{r}-srv-{s}" server id.
func rackOf(serverID string) int {
	r := 0
	i := 5 // skip "rack-"
	for i < len(serverID) && serverID[i] >= '0' && serverID[i] <= '9' {
		r = r*10 + int(serverID[i]-'0')
		i++
	}
	return r
}

// Step computes the network substate for one tick.
func (m *Model) Step(util map[string]float64, running []*workload.Job, partitioned map[int]bool, simTimeS float64) Substate {
	serverTypes := make(map[string]map[workload.JobType]bool)
	for _, j := range running {
		for _, srv := range j.AssignedServers {
			if serverTypes[srv] == nil {
				serverTypes[srv] = make(map[workload.JobType]bool)
			}
			serverTypes[srv][j.Type] = true
		}
	}

	torTraffic := make([]float64, m.cfg.NumRacks)
	activePorts := make([]int, m.cfg.NumRacks)
	for r := 0; r < m.cfg.NumRacks; r++ {
		for s := 0; s < m.cfg.ServersPerRack; s++ {
			srv := ids.Server(r, s)
			jt, _ := dominantType(serverTypes[srv])
			torTraffic[r] += baselineGbps(jt) * util[srv]
			activePorts[r]++ // every non-idle-or-idle server counts (spec Open Question: count every non-partitioned server)
		}
	}

	spineTraffic := make([]float64, m.cfg.NumRacks)
	for _, j := range running {
		if j.Type != workload.Training {
			continue
		}
		rackSet := make(map[int]bool)
		for _, srv := range j.AssignedServers {
			rackSet[rackOf(srv)] = true
		}
		if len(rackSet) < 2 {
			continue
		}
		racks := make([]int, 0, len(rackSet))
		for r := range rackSet {
			racks = append(racks, r)
		}
		for originRack := range rackSet {
			jobRackTraffic := 0.0
			for _, srv := range j.AssignedServers {
				if rackOf(srv) == originRack {
					jobRackTraffic += trainingRDMAGbps * util[srv]
				}
			}
			spineShare := jobRackTraffic * 0.3
			partners := make([]int, 0, len(racks)-1)
			for _, r := range racks {
				if r != originRack {
					partners = append(partners, r)
				}
			}
			if len(partners) == 0 {
				continue
			}
			per := spineShare / float64(len(partners))
			for _, p := range partners {
				spineTraffic[p] += per
			}
		}
	}

	racks := make([]RackState, m.cfg.NumRacks)
	summary := FacilitySummary{}
	for r := 0; r < m.cfg.NumRacks; r++ {
		if partitioned[r] {
			racks[r] = RackState{RackID: r, Partitioned: true, CRCErrorsCum: m.crcCum[r]}
			continue
		}

		traffic := torTraffic[r]
		rho := math.Min(0.95, traffic/torCapacityGbps)
		avg, p99 := queueLatency(2, rho)
		loss := lossPct(rho)

		if m.rng.Float64() < 0.0005 {
			m.crcCum[r]++
		}

		spineRho := math.Min(0.95, spineTraffic[r]/spineCapacityGbps)
		spineAvg, spineP99 := queueLatency(5, spineRho)

		racks[r] = RackState{
			RackID:            r,
			ToRTrafficGbps:    traffic,
			ToRAvgLatencyUs:   avg,
			ToRP99LatencyUs:   p99,
			PacketLossPct:     loss,
			ActivePorts:       activePorts[r],
			CRCErrorsCum:      m.crcCum[r],
			SpineTrafficGbps:  spineTraffic[r],
			SpineAvgLatencyUs: spineAvg,
			SpineP99LatencyUs: spineP99,
		}

		summary.TotalTrafficGbps += traffic
		summary.AvgLatencyUs += avg
		summary.AvgPacketLossPct += loss
		summary.TotalCRCErrors += m.crcCum[r]
		summary.ActivePorts += activePorts[r]
	}
	if m.cfg.NumRacks > 0 {
		summary.AvgLatencyUs /= float64(m.cfg.NumRacks)
		summary.AvgPacketLossPct /= float64(m.cfg.NumRacks)
	}

	return Substate{Racks: racks, Summary: summary}
}

// Reset clears every cumulative CRC counter.
func (m *Model) Reset() {
	m.crcCum = make([]int64, m.cfg.NumRacks)
}
