package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/vkick/wabridge/pkg/storage/repository"
)

// cronRepository is a file-backed cron job store. Jobs live in a
// single JSON file under the workspace, guarded by a mutex.
type cronRepository struct {
	mu       sync.RWMutex
	jobs     map[string]*repository.CronJob
	filePath string
}

// NewCronRepository creates a new file-based cron repository rooted at
// the workspace path.
func NewCronRepository(workspace string) repository.CronRepository {
	dir := filepath.Join(workspace, "cron")
	os.MkdirAll(dir, 0755)

	r := &cronRepository{
		jobs:     make(map[string]*repository.CronJob),
		filePath: filepath.Join(dir, "jobs.json"),
	}
	r.load()
	return r
}

func (r *cronRepository) GetJob(ctx context.Context, jobID string) (*repository.CronJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	copied := *job
	return &copied, nil
}

func (r *cronRepository) ListJobs(ctx context.Context, includeDisabled bool) ([]repository.CronJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]repository.CronJob, 0, len(r.jobs))
	for _, job := range r.jobs {
		if !includeDisabled && !job.Enabled {
			continue
		}
		result = append(result, *job)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAtMS > result[j].UpdatedAtMS
	})
	return result, nil
}

func (r *cronRepository) AddJob(ctx context.Context, job *repository.CronJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[job.ID]; ok {
		return fmt.Errorf("job already exists: %s", job.ID)
	}
	copied := *job
	r.jobs[job.ID] = &copied
	return r.saveLocked()
}

func (r *cronRepository) UpdateJob(ctx context.Context, job *repository.CronJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[job.ID]; !ok {
		return fmt.Errorf("job not found: %s", job.ID)
	}
	copied := *job
	r.jobs[job.ID] = &copied
	return r.saveLocked()
}

func (r *cronRepository) DeleteJob(ctx context.Context, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[jobID]; !ok {
		return fmt.Errorf("job not found: %s", jobID)
	}
	delete(r.jobs, jobID)
	return r.saveLocked()
}

func (r *cronRepository) GetDueJobs(ctx context.Context, now time.Time) ([]repository.CronJob, error) {
	nowMS := now.UnixMilli()

	r.mu.RLock()
	defer r.mu.RUnlock()

	var due []repository.CronJob
	for _, job := range r.jobs {
		if !job.Enabled || job.State.NextRunAtMS <= 0 {
			continue
		}
		if job.State.NextRunAtMS <= nowMS {
			due = append(due, *job)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].State.NextRunAtMS < due[j].State.NextRunAtMS
	})
	return due, nil
}

func (r *cronRepository) UpdateJobState(ctx context.Context, jobID string, state repository.CronJobState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return fmt.Errorf("job not found: %s", jobID)
	}
	job.State = state
	job.UpdatedAtMS = time.Now().UnixMilli()
	return r.saveLocked()
}

func (r *cronRepository) GetNextWakeTime(ctx context.Context) (*time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var nextMS int64
	for _, job := range r.jobs {
		if !job.Enabled || job.State.NextRunAtMS <= 0 {
			continue
		}
		if nextMS == 0 || job.State.NextRunAtMS < nextMS {
			nextMS = job.State.NextRunAtMS
		}
	}
	if nextMS == 0 {
		return nil, nil // No jobs scheduled
	}

	t := time.UnixMilli(nextMS)
	return &t, nil
}

func (r *cronRepository) load() {
	data, err := os.ReadFile(r.filePath)
	if err != nil {
		return
	}

	var items []repository.CronJob
	if err := json.Unmarshal(data, &items); err != nil {
		return
	}

	for i := range items {
		r.jobs[items[i].ID] = &items[i]
	}
}

func (r *cronRepository) saveLocked() error {
	items := make([]repository.CronJob, 0, len(r.jobs))
	for _, job := range r.jobs {
		items = append(items, *job)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAtMS < items[j].CreatedAtMS
	})

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(r.filePath, data, 0644)
}
