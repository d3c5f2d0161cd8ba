// Package workload implements the job queue: Poisson arrivals, priority
// scheduling with first-fit placement, completion, SLA flagging, migration
// and preemption (spec.md §4.3).
package workload

// JobType is one of the three JOB_PROFILES categories.
type JobType string

const (
	Training  JobType = "training"
	Inference JobType = "inference"
	Batch     JobType = "batch"
)

// Status is the job lifecycle state (spec.md §3 "Job").
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusPreempted Status = "preempted"
)

// Job is one workload unit. Invariants (spec.md §3):
//   - running ⇔ StartedAt != nil && CompletedAt == nil
//   - CompletedAt >= StartedAt + DurationS for Status == completed
//   - SLAViolated is set once queue wait exceeds SLADeadlineS and never cleared
//   - len(AssignedServers) == GPURequirement while running
type Job struct {
	ID              string
	Name            string
	Type            JobType
	GPURequirement  int
	Priority        int // 1..5, higher runs first
	DurationS       float64
	SubmittedAt     float64
	StartedAt       *float64
	CompletedAt     *float64
	AssignedServers []string // ordered multiset, len == GPURequirement while running
	Status          Status
	SLADeadlineS    float64
	SLAViolated     bool
	GPUUtilTarget   float64 // 0..1
}

// IsRunning reports whether the job currently occupies GPU slots.
func (j *Job) IsRunning() bool { return j.Status == StatusRunning }
