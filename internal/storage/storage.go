// Package storage implements per-rack NVMe IOPS, throughput, latency and
// drive wear (spec.md §4.8).
package storage

import (
	"math"
	"math/rand"

	"github.com/gpudc/simulator/internal/config"
	"github.com/gpudc/simulator/internal/ids"
	"github.com/gpudc/simulator/internal/workload"
)

// profile is a per-type full-utilisation I/O profile.
type profile struct {
	readIOPS, writeIOPS       float64
	readGbps, writeGbps       float64
}

var profiles = map[workload.JobType]profile{
	workload.Training:  {readIOPS: 50000, writeIOPS: 5000, readGbps: 3.0, writeGbps: 0.5},
	workload.Inference: {readIOPS: 8000, writeIOPS: 500, readGbps: 0.3, writeGbps: 0.05},
	workload.Batch:     {readIOPS: 30000, writeIOPS: 15000, readGbps: 2.0, writeGbps: 1.0},
}

const (
	idleReadIOPS    = 100
	rackIOPSCap     = 1_000_000
	rackGbpsCap     = 25
	baseReadLatUs   = 80
	baseWriteLatUs  = 20
)

// RackState is the per-rack storage substate.
type RackState struct {
	RackID             int     `json:"rack_id"`
	ReadIOPS           float64 `json:"read_iops"`
	WriteIOPS          float64 `json:"write_iops"`
	ReadThroughputGbps float64 `json:"read_throughput_gbps"`
	WriteThroughputGbps float64 `json:"write_throughput_gbps"`
	QueueDepth         float64 `json:"queue_depth"`
	AvgReadLatencyUs   float64 `json:"avg_read_latency_us"`
	AvgWriteLatencyUs  float64 `json:"avg_write_latency_us"`
	P99ReadLatencyUs   float64 `json:"p99_read_latency_us"`
	DriveHealthPct     float64 `json:"drive_health_pct"`
	UsedCapacityPct    float64 `json:"used_capacity_pct"`
}

// FacilitySummary aggregates across every rack.
type FacilitySummary struct {
	TotalReadIOPS     float64 `json:"total_read_iops"`
	TotalWriteIOPS    float64 `json:"total_write_iops"`
	AvgDriveHealthPct float64 `json:"avg_drive_health_pct"`
}

// Substate bundles per-rack states and the facility summary.
type Substate struct {
	Racks   []RackState     `json:"racks"`
	Summary FacilitySummary `json:"summary"`
}

// Model carries cumulative writes (for drive wear) and used capacity per rack.
type Model struct {
	cfg config.FacilityConfig
	rng *rand.Rand

	cumulativePB    []float64
	usedCapacityPct []float64
}

// New creates a Model for the given facility shape.
func New(cfg config.FacilityConfig, rng *rand.Rand) *Model {
	return &Model{
		cfg:             cfg,
		rng:             rng,
		cumulativePB:    make([]float64, cfg.NumRacks),
		usedCapacityPct: make([]float64, cfg.NumRacks),
	}
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

// Step computes the storage substate for one tick.
func (m *Model) Step(util map[string]float64, running []*workload.Job, simTimeS, tickIntervalS float64) Substate {
	serverTypes := make(map[string]map[workload.JobType]bool)
	for _, j := range running {
		for _, srv := range j.AssignedServers {
			if serverTypes[srv] == nil {
				serverTypes[srv] = make(map[workload.JobType]bool)
			}
			serverTypes[srv][j.Type] = true
		}
	}

	racks := make([]RackState, m.cfg.NumRacks)
	summary := FacilitySummary{}

	for r := 0; r < m.cfg.NumRacks; r++ {
		var readIOPS, writeIOPS, readGbps, writeGbps float64
		for s := 0; s < m.cfg.ServersPerRack; s++ {
			srv := ids.Server(r, s)
			u := util[srv]
			jt, ok := dominantType(serverTypes[srv])
			noise := 1 + m.rng.NormFloat64()*0.05
			if !ok {
				readIOPS += idleReadIOPS
				continue
			}
			p := profiles[jt]
			readIOPS += p.readIOPS * u * noise
			writeIOPS += p.writeIOPS * u * noise
			readGbps += p.readGbps * u * noise
			writeGbps += p.writeGbps * u * noise
		}

		rawIOPS := readIOPS + writeIOPS
		iopsPressure := math.Min(1, rawIOPS/rackIOPSCap)

		if total := readIOPS + writeIOPS; total > rackIOPSCap {
			scale := rackIOPSCap / total
			readIOPS *= scale
			writeIOPS *= scale
		}
		if total := readGbps + writeGbps; total > rackGbpsCap {
			scale := rackGbpsCap / total
			readGbps *= scale
			writeGbps *= scale
		}

		qd := math.Max(1, math.Min(1024, (readIOPS+writeIOPS)*baseReadLatUs/1_000_000))

		pressureFactor := 1 - math.Min(0.95, 0.9*iopsPressure)
		avgRead := baseReadLatUs * (1 + 0.3*math.Log(qd)) / pressureFactor
		avgWrite := baseWriteLatUs * (1 + 0.3*math.Log(qd)) / pressureFactor
		p99Read := avgRead * 2.5

		writtenBytes := writeGbps * 1e9 / 8 * tickIntervalS
		m.cumulativePB[r] += writtenBytes / 1e15
		driveHealth := math.Max(0, 100*(1-m.cumulativePB[r]/100))

		if writeGbps > 0 {
			m.usedCapacityPct[r] += 0.1 * (writeGbps / rackGbpsCap)
			if m.usedCapacityPct[r] > 100 {
				m.usedCapacityPct[r] = 100
			}
		}

		racks[r] = RackState{
			RackID:              r,
			ReadIOPS:            readIOPS,
			WriteIOPS:           writeIOPS,
			ReadThroughputGbps:  readGbps,
			WriteThroughputGbps: writeGbps,
			QueueDepth:          qd,
			AvgReadLatencyUs:    avgRead,
			AvgWriteLatencyUs:   avgWrite,
			P99ReadLatencyUs:    p99Read,
			DriveHealthPct:      driveHealth,
			UsedCapacityPct:     m.usedCapacityPct[r],
		}

		summary.TotalReadIOPS += readIOPS
		summary.TotalWriteIOPS += writeIOPS
		summary.AvgDriveHealthPct += driveHealth
	}
	if m.cfg.NumRacks > 0 {
		summary.AvgDriveHealthPct /= float64(m.cfg.NumRacks)
	}

	return Substate{Racks: racks, Summary: summary}
}

// Reset clears every cumulative counter.
func (m *Model) Reset() {
	m.cumulativePB = make([]float64, m.cfg.NumRacks)
	m.usedCapacityPct = make([]float64, m.cfg.NumRacks)
}
