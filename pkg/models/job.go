package models

import "time"

// Operation names a job kind.
type Operation string

const (
	OperationNone  Operation = ""
	OperationFill  Operation = "fill"
	OperationReset Operation = "reset"
)

// JobState is the lifecycle state of the last job.
type JobState string

const (
	JobIdle      JobState = "idle"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobStopped   JobState = "stopped" // ended before reaching the floor
	JobCancelled JobState = "cancelled"
	JobFailed    JobState = "failed"
)

// JobStatus is a snapshot of the runner.
type JobStatus struct {
	Operation  Operation  `json:"operation,omitempty"`
	State      JobState   `json:"state"`
	Remaining  int64      `json:"remaining"`
	Deleted    int        `json:"deleted"`
	FreeBytes  uint64     `json:"free_bytes"`
	FreeHuman  string     `json:"free_human"`
	Error      string     `json:"error,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
