package cron

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	"github.com/google/uuid"

	"github.com/vkick/wabridge/pkg/logger"
	"github.com/vkick/wabridge/pkg/storage/repository"
)

const (
	// idlePollInterval bounds how long the scheduler sleeps, so jobs
	// added by another instance on a shared database are picked up.
	idlePollInterval = time.Minute

	deliverTimeout = 30 * time.Second

	// minEveryMS keeps interval jobs from turning into busy loops.
	minEveryMS = 1000
)

// JobHandler delivers a due job's message. The error, if any, is
// recorded in the job state; deliveries are not retried.
type JobHandler func(ctx context.Context, to, message string) error

// Service schedules outbound messages. It parks until the earliest
// next run time and wakes early when the job set changes.
type Service struct {
	repo    repository.CronRepository
	handler JobHandler
	gron    *gronx.Gronx
	wake    chan struct{}
}

func NewService(repo repository.CronRepository, handler JobHandler) *Service {
	return &Service{
		repo:    repo,
		handler: handler,
		gron:    gronx.New(),
		wake:    make(chan struct{}, 1),
	}
}

// Start launches the scheduler loop until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	go s.run(ctx)
}

// AddJob validates, stores and schedules a new job, returning it with
// ID and first run time filled in.
func (s *Service) AddJob(ctx context.Context, name string, schedule repository.CronSchedule, to, message string, deleteAfterRun bool) (*repository.CronJob, error) {
	if strings.TrimSpace(to) == "" || strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("to and message are required")
	}

	now := time.Now()
	if err := s.validateSchedule(schedule, now); err != nil {
		return nil, err
	}

	next, err := s.nextRun(schedule, now)
	if err != nil {
		return nil, err
	}

	job := &repository.CronJob{
		ID:             uuid.NewString(),
		Name:           name,
		Enabled:        true,
		Schedule:       schedule,
		Payload:        repository.CronPayload{To: to, Message: message},
		State:          repository.CronJobState{NextRunAtMS: next},
		CreatedAtMS:    now.UnixMilli(),
		UpdatedAtMS:    now.UnixMilli(),
		DeleteAfterRun: deleteAfterRun,
	}

	if err := s.repo.AddJob(ctx, job); err != nil {
		return nil, err
	}

	logger.InfoCF("cron", "Job added", map[string]interface{}{
		"job_id": job.ID,
		"name":   job.Name,
		"kind":   schedule.Kind,
	})
	s.poke()
	return job, nil
}

// RemoveJob deletes a job. Returns false when the job is unknown.
func (s *Service) RemoveJob(ctx context.Context, jobID string) bool {
	if err := s.repo.DeleteJob(ctx, jobID); err != nil {
		return false
	}
	logger.InfoCF("cron", "Job removed", map[string]interface{}{"job_id": jobID})
	s.poke()
	return true
}

// GetJob retrieves a job by ID.
func (s *Service) GetJob(ctx context.Context, jobID string) (*repository.CronJob, error) {
	return s.repo.GetJob(ctx, jobID)
}

// ListJobs returns stored jobs, most recently updated first.
func (s *Service) ListJobs(ctx context.Context, includeDisabled bool) ([]repository.CronJob, error) {
	return s.repo.ListJobs(ctx, includeDisabled)
}

func (s *Service) run(ctx context.Context) {
	logger.InfoC("cron", "Scheduler started")

	timer := time.NewTimer(idlePollInterval)
	defer timer.Stop()

	for {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(s.nextWait(ctx))

		select {
		case <-ctx.Done():
			logger.InfoC("cron", "Scheduler stopped")
			return
		case <-s.wake:
			// Job set changed, recompute the park time.
		case <-timer.C:
			s.runDue(ctx, time.Now())
		}
	}
}

func (s *Service) nextWait(ctx context.Context) time.Duration {
	next, err := s.repo.GetNextWakeTime(ctx)
	if err != nil {
		logger.WarnCF("cron", "Could not read next wake time", map[string]interface{}{
			"error": err.Error(),
		})
		return idlePollInterval
	}
	if next == nil {
		return idlePollInterval
	}

	wait := time.Until(*next)
	if wait < 0 {
		return 0
	}
	if wait > idlePollInterval {
		return idlePollInterval
	}
	return wait
}

func (s *Service) runDue(ctx context.Context, now time.Time) {
	due, err := s.repo.GetDueJobs(ctx, now)
	if err != nil {
		logger.ErrorCF("cron", "Could not list due jobs", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	for _, job := range due {
		s.fire(ctx, job, now)
	}
}

func (s *Service) fire(ctx context.Context, job repository.CronJob, now time.Time) {
	logger.InfoCF("cron", "Running job", map[string]interface{}{
		"job_id": job.ID,
		"name":   job.Name,
		"to":     job.Payload.To,
	})

	sendCtx, cancel := context.WithTimeout(ctx, deliverTimeout)
	err := s.handler(sendCtx, job.Payload.To, job.Payload.Message)
	cancel()

	state := job.State
	state.LastRunAtMS = now.UnixMilli()
	if err != nil {
		state.LastStatus = "error"
		state.LastError = err.Error()
		logger.WarnCF("cron", "Job delivery failed", map[string]interface{}{
			"job_id": job.ID,
			"error":  err.Error(),
		})
	} else {
		state.LastStatus = "ok"
		state.LastError = ""
	}

	if job.Schedule.Kind == "at" {
		s.finishOneShot(ctx, job, state, now)
		return
	}

	next, err := s.nextRun(job.Schedule, now)
	if err != nil {
		// A schedule that stops computing would otherwise fire forever.
		logger.ErrorCF("cron", "Disabling job with broken schedule", map[string]interface{}{
			"job_id": job.ID,
			"error":  err.Error(),
		})
		state.NextRunAtMS = 0
		job.Enabled = false
		job.State = state
		job.UpdatedAtMS = now.UnixMilli()
		if err := s.repo.UpdateJob(ctx, &job); err != nil {
			logger.WarnCF("cron", "Could not disable job", map[string]interface{}{
				"job_id": job.ID,
				"error":  err.Error(),
			})
		}
		return
	}

	state.NextRunAtMS = next
	if err := s.repo.UpdateJobState(ctx, job.ID, state); err != nil {
		logger.WarnCF("cron", "Could not update job state", map[string]interface{}{
			"job_id": job.ID,
			"error":  err.Error(),
		})
	}
}

func (s *Service) finishOneShot(ctx context.Context, job repository.CronJob, state repository.CronJobState, now time.Time) {
	if job.DeleteAfterRun {
		if err := s.repo.DeleteJob(ctx, job.ID); err != nil {
			logger.WarnCF("cron", "Could not delete one-shot job", map[string]interface{}{
				"job_id": job.ID,
				"error":  err.Error(),
			})
		}
		return
	}

	state.NextRunAtMS = 0
	job.Enabled = false
	job.State = state
	job.UpdatedAtMS = now.UnixMilli()
	if err := s.repo.UpdateJob(ctx, &job); err != nil {
		logger.WarnCF("cron", "Could not finish one-shot job", map[string]interface{}{
			"job_id": job.ID,
			"error":  err.Error(),
		})
	}
}

func (s *Service) validateSchedule(schedule repository.CronSchedule, now time.Time) error {
	switch schedule.Kind {
	case "at":
		if schedule.AtMS <= 0 {
			return fmt.Errorf("at schedule requires atMs")
		}
		if schedule.AtMS <= now.UnixMilli() {
			return fmt.Errorf("at time is in the past")
		}
	case "every":
		if schedule.EveryMS < minEveryMS {
			return fmt.Errorf("every interval must be at least %dms", minEveryMS)
		}
	case "cron":
		if strings.TrimSpace(schedule.Expr) == "" {
			return fmt.Errorf("cron schedule requires expr")
		}
		if !s.gron.IsValid(schedule.Expr) {
			return fmt.Errorf("invalid cron expression: %s", schedule.Expr)
		}
		if schedule.TZ != "" {
			if _, err := time.LoadLocation(schedule.TZ); err != nil {
				return fmt.Errorf("unknown timezone %q: %w", schedule.TZ, err)
			}
		}
	default:
		return fmt.Errorf("unknown schedule kind: %q", schedule.Kind)
	}
	return nil
}

func (s *Service) nextRun(schedule repository.CronSchedule, after time.Time) (int64, error) {
	switch schedule.Kind {
	case "at":
		if schedule.AtMS > after.UnixMilli() {
			return schedule.AtMS, nil
		}
		return 0, nil
	case "every":
		return after.UnixMilli() + schedule.EveryMS, nil
	case "cron":
		ref := after
		if schedule.TZ != "" {
			loc, err := time.LoadLocation(schedule.TZ)
			if err != nil {
				return 0, err
			}
			ref = after.In(loc)
		}
		next, err := gronx.NextTickAfter(schedule.Expr, ref, false)
		if err != nil {
			return 0, err
		}
		return next.UnixMilli(), nil
	default:
		return 0, fmt.Errorf("unknown schedule kind: %q", schedule.Kind)
	}
}

func (s *Service) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
