package domain

// JobStatus is the lifecycle state of a submitted job.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transitions follow s.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}
