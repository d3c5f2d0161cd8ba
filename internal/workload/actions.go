package workload

import "github.com/gpudc/simulator/internal/ids"

// FindRunning returns the running job with the given id, or nil.
func (q *Queue) FindRunning(jobID string) *Job {
	for _, j := range q.Running {
		if j.ID == jobID {
			return j
		}
	}
	return nil
}

// Migrate attempts to move a running job's placement entirely onto
// targetRack, first-fit within that rack only (spec.md §4.3 "migrate_job").
// On success the job's AssignedServers are replaced and true is returned; on
// failure the job is left unchanged and false is returned.
func (q *Queue) Migrate(jobID string, targetRack int) bool {
	job := q.FindRunning(jobID)
	if job == nil {
		return false
	}

	occ := q.occupancy()
	// Deallocate the job's current slots before computing free capacity.
	for _, srv := range job.AssignedServers {
		for i, occSlot := range occ[srv] {
			if occSlot.jobID == job.ID {
				occ[srv] = append(occ[srv][:i], occ[srv][i+1:]...)
				break
			}
		}
	}

	targetServers := make([]string, 0, q.serversPerRack)
	for s := 0; s < q.serversPerRack; s++ {
		targetServers = append(targetServers, ids.Server(targetRack, s))
	}

	need := job.GPURequirement
	var placed []string
	for _, srv := range targetServers {
		for need > 0 && len(occ[srv]) < q.gpusPerServer {
			occ[srv] = append(occ[srv], slot{jobID: job.ID, util: job.GPUUtilTarget})
			placed = append(placed, srv)
			need--
		}
		if need == 0 {
			break
		}
	}
	if need > 0 {
		return false
	}
	job.AssignedServers = placed
	return true
}

// Preempt moves a running job to Completed with status preempted (or failed
// when markAsFailed is true), freeing its slots (spec.md §4.3
// "preempt_job"). Returns false if the job is not currently running.
func (q *Queue) Preempt(jobID string, markAsFailed bool) bool {
	for i, j := range q.Running {
		if j.ID != jobID {
			continue
		}
		q.Running = append(q.Running[:i], q.Running[i+1:]...)
		if markAsFailed {
			j.Status = StatusFailed
		} else {
			j.Status = StatusPreempted
		}
		j.AssignedServers = nil
		q.Completed = append(q.Completed, j)
		return true
	}
	return false
}

// PreemptRack preempts every running job whose first assigned server begins
// with the given rack's "rack-{r}-" prefix, marking them failed. Used by the
// simulator when a network_partition targets a rack (spec.md §4.7, §4.13).
func (q *Queue) PreemptRack(rackPrefix string) []string {
	var preempted []string
	remaining := q.Running[:0:0]
	for _, j := range q.Running {
		if len(j.AssignedServers) > 0 && hasPrefix(j.AssignedServers[0], rackPrefix) {
			j.Status = StatusFailed
			j.AssignedServers = nil
			q.Completed = append(q.Completed, j)
			preempted = append(preempted, j.ID)
		} else {
			remaining = append(remaining, j)
		}
	}
	q.Running = remaining
	return preempted
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
