package workload

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/google/uuid"

	"github.com/gpudc/simulator/internal/config"
	"github.com/gpudc/simulator/internal/ids"
)

// typeWeights are the fixed arrival-type probabilities (spec.md §4.3 step 1).
var typeWeights = []struct {
	t JobType
	w float64
}{
	{Training, 0.2},
	{Inference, 0.5},
	{Batch, 0.3},
}

// Queue holds the three ordered job sequences and drives arrival,
// scheduling, completion and utilisation computation each tick.
type Queue struct {
	Pending   []*Job
	Running   []*Job
	Completed []*Job

	profiles    map[string]config.JobProfile
	arrivalMean float64 // mean_job_arrival_interval_s

	numRacks, serversPerRack, gpusPerServer int

	rng *rand.Rand
}

// New creates an empty Queue for the given facility shape and workload config.
func New(facility config.FacilityConfig, wl config.WorkloadConfig, rng *rand.Rand) *Queue {
	return &Queue{
		profiles:       wl.Profiles,
		arrivalMean:    wl.MeanJobArrivalIntervalS,
		numRacks:       facility.NumRacks,
		serversPerRack: facility.ServersPerRack,
		gpusPerServer:  facility.GPUsPerServer,
		rng:            rng,
	}
}

// servers returns every server id in canonical sorted order.
func (q *Queue) servers() []string {
	out := make([]string, 0, q.numRacks*q.serversPerRack)
	for r := 0; r < q.numRacks; r++ {
		for s := 0; s < q.serversPerRack; s++ {
			out = append(out, ids.Server(r, s))
		}
	}
	return out
}

// sampleType picks a job type by the fixed arrival weights.
func sampleType(rng *rand.Rand) JobType {
	x := rng.Float64()
	cum := 0.0
	for _, tw := range typeWeights {
		cum += tw.w
		if x < cum {
			return tw.t
		}
	}
	return Batch
}

// maybeArrive implements spec.md §4.3 step 1: Poisson arrival probability
// 1 - exp(-λ·tickIntervalS), λ = 1/arrivalMean.
func (q *Queue) maybeArrive(currentTime, tickIntervalS float64) {
	if q.arrivalMean <= 0 {
		return
	}
	lambda := 1.0 / q.arrivalMean
	p := 1 - math.Exp(-lambda*tickIntervalS)
	if q.rng.Float64() >= p {
		return
	}

	jt := sampleType(q.rng)
	profile, ok := q.profiles[string(jt)]
	if !ok {
		return
	}
	job := &Job{
		ID:             uuid.NewString(),
		Name:           fmt.Sprintf("%s-%s", jt, uuid.NewString()[:8]),
		Type:           jt,
		GPURequirement: uniformInt(q.rng, profile.GPUMin, profile.GPUMax),
		Priority:       uniformInt(q.rng, profile.PriorityMin, profile.PriorityMax),
		DurationS:      exponentialDuration(q.rng, profile.DurationMeanS),
		SubmittedAt:    currentTime,
		Status:         StatusQueued,
		SLADeadlineS:   profile.SLADeadlineS,
		GPUUtilTarget:  uniformFloat(q.rng, profile.GPUUtilTargetMin, profile.GPUUtilTargetMax),
	}
	q.Pending = append(q.Pending, job)
}

// checkSLA implements spec.md §4.3 step 2: SLAViolated is a monotonic
// true-once flag, set when queue wait reaches the job's deadline.
func (q *Queue) checkSLA(currentTime float64) {
	for _, j := range q.Pending {
		if !j.SLAViolated && currentTime-j.SubmittedAt >= j.SLADeadlineS {
			j.SLAViolated = true
		}
	}
}

// slot identifies one occupied GPU slot: which job owns it and the
// utilisation it contributes.
type slot struct {
	jobID string
	util  float64
}

// occupancy returns, per server, the ordered list of occupied slots.
func (q *Queue) occupancy() map[string][]slot {
	occ := make(map[string][]slot)
	for _, j := range q.Running {
		for _, srv := range j.AssignedServers {
			occ[srv] = append(occ[srv], slot{jobID: j.ID, util: j.GPUUtilTarget})
		}
	}
	return occ
}

// schedule implements spec.md §4.3 step 3: stable descending-priority sort,
// then first-fit placement iterating servers in canonical sorted order.
func (q *Queue) schedule(currentTime float64) {
	sort.SliceStable(q.Pending, func(i, j int) bool {
		return q.Pending[i].Priority > q.Pending[j].Priority
	})

	occ := q.occupancy()
	servers := q.servers()
	remaining := make([]*Job, 0, len(q.Pending))

	for _, job := range q.Pending {
		need := job.GPURequirement
		var placed []string
		for _, srv := range servers {
			for need > 0 && len(occ[srv]) < q.gpusPerServer {
				occ[srv] = append(occ[srv], slot{jobID: job.ID, util: job.GPUUtilTarget})
				placed = append(placed, srv)
				need--
			}
			if need == 0 {
				break
			}
		}
		if need == 0 {
			job.AssignedServers = placed
			job.Status = StatusRunning
			started := currentTime
			job.StartedAt = &started
			q.Running = append(q.Running, job)
		} else {
			// Roll back the partial placement; job stays pending.
			for _, srv := range placed {
				occ[srv] = occ[srv][:len(occ[srv])-1]
			}
			remaining = append(remaining, job)
		}
	}
	q.Pending = remaining
}

// complete implements spec.md §4.3 step 4.
func (q *Queue) complete(currentTime float64) {
	remaining := q.Running[:0:0]
	for _, j := range q.Running {
		if currentTime-*j.StartedAt >= j.DurationS {
			completed := currentTime
			j.CompletedAt = &completed
			j.Status = StatusCompleted
			q.Completed = append(q.Completed, j)
		} else {
			remaining = append(remaining, j)
		}
	}
	q.Running = remaining
}

// utilisation implements spec.md §4.3 step 5: mean over gpusPerServer slots,
// idle = 0.05, occupied = owning job's gpu_util_target.
func (q *Queue) utilisation() map[string]float64 {
	occ := q.occupancy()
	out := make(map[string]float64, q.numRacks*q.serversPerRack)
	for _, srv := range q.servers() {
		occupied := occ[srv]
		sum := 0.0
		for _, s := range occupied {
			sum += s.util
		}
		idle := q.gpusPerServer - len(occupied)
		if idle > 0 {
			sum += 0.05 * float64(idle)
		}
		out[srv] = sum / float64(q.gpusPerServer)
	}
	return out
}

// Step advances the queue one tick and returns the per-server GPU
// utilisation map for that tick (spec.md §4.3).
func (q *Queue) Step(currentTime, tickIntervalS float64) map[string]float64 {
	q.maybeArrive(currentTime, tickIntervalS)
	q.checkSLA(currentTime)
	q.schedule(currentTime)
	q.complete(currentTime)
	return q.utilisation()
}

// AllJobs returns pending + running + completed, for the evaluator.
func (q *Queue) AllJobs() []*Job {
	out := make([]*Job, 0, len(q.Pending)+len(q.Running)+len(q.Completed))
	out = append(out, q.Pending...)
	out = append(out, q.Running...)
	out = append(out, q.Completed...)
	return out
}
