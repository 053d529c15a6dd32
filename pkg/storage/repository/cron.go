package repository

import (
	"context"
	"time"
)

// CronSchedule describes when a job fires. Exactly one of the
// kind-specific fields is meaningful: AtMS for "at", EveryMS for
// "every", Expr (plus optional TZ) for "cron".
type CronSchedule struct {
	Kind    string `json:"kind"`
	AtMS    int64  `json:"atMs,omitempty"`
	EveryMS int64  `json:"everyMs,omitempty"`
	Expr    string `json:"expr,omitempty"`
	TZ      string `json:"tz,omitempty"`
}

// CronPayload is the outbound message a job delivers when it fires.
type CronPayload struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// CronJobState tracks run bookkeeping for a job. The JSON field names
// are part of the storage contract: the postgres backend queries
// state->>'nextRunAtMs' directly.
type CronJobState struct {
	NextRunAtMS int64  `json:"nextRunAtMs,omitempty"`
	LastRunAtMS int64  `json:"lastRunAtMs,omitempty"`
	LastStatus  string `json:"lastStatus,omitempty"`
	LastError   string `json:"lastError,omitempty"`
}

// CronJob is a scheduled outbound message.
type CronJob struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Enabled        bool         `json:"enabled"`
	Schedule       CronSchedule `json:"schedule"`
	Payload        CronPayload  `json:"payload"`
	State          CronJobState `json:"state"`
	CreatedAtMS    int64        `json:"createdAtMs"`
	UpdatedAtMS    int64        `json:"updatedAtMs"`
	DeleteAfterRun bool         `json:"deleteAfterRun,omitempty"`
}

// CronRepository defines the interface for cron job persistence.
type CronRepository interface {
	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*CronJob, error)

	// ListJobs returns all jobs, most recently updated first.
	ListJobs(ctx context.Context, includeDisabled bool) ([]CronJob, error)

	// AddJob stores a new job.
	AddJob(ctx context.Context, job *CronJob) error

	// UpdateJob replaces a stored job.
	UpdateJob(ctx context.Context, job *CronJob) error

	// DeleteJob removes a job.
	DeleteJob(ctx context.Context, jobID string) error

	// GetDueJobs returns enabled jobs whose next run time is at or
	// before now, earliest first.
	GetDueJobs(ctx context.Context, now time.Time) ([]CronJob, error)

	// UpdateJobState replaces only the run bookkeeping of a job.
	UpdateJobState(ctx context.Context, jobID string, state CronJobState) error

	// GetNextWakeTime returns the earliest next run time across all
	// enabled jobs, or nil when nothing is scheduled.
	GetNextWakeTime(ctx context.Context) (*time.Time, error)
}
