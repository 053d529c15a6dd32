package file

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/vkick/wabridge/pkg/storage/repository"
)

func TestFileStorageRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := NewFileStorage(""); err == nil {
		t.Error("NewFileStorage with empty path should error")
	}
}

func TestFileStorageLifecycle(t *testing.T) {
	t.Parallel()

	dir := t.TempDir() + "/nested/workspace"
	fs, err := NewFileStorage(dir)
	if err != nil {
		t.Fatalf("NewFileStorage: %v", err)
	}
	ctx := context.Background()

	if err := fs.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := fs.Ping(ctx); err != nil {
		t.Errorf("Ping after Connect: %v", err)
	}
	if err := fs.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}

	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}
	if err := fs.Ping(ctx); err == nil {
		t.Error("Ping on a removed workspace should error")
	}
}

func TestContactsRepositoryRoundTrip(t *testing.T) {
	t.Parallel()

	fs, err := NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStorage: %v", err)
	}
	ctx := context.Background()
	repo := fs.Contacts()

	got, err := repo.Get(ctx, "a@s.whatsapp.net")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Fatal("Get for unknown contact should return nil, nil")
	}

	seen := time.Now()
	err = repo.Set(ctx, repository.Contact{
		JID:          "a@s.whatsapp.net",
		DisplayName:  "Ada",
		MessageCount: 2,
		LastKind:     "image",
		FirstSeen:    seen,
		LastSeen:     seen,
	})
	if err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err = repo.Get(ctx, "a@s.whatsapp.net")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("Get returned nil after Set")
	}
	if got.DisplayName != "Ada" || got.MessageCount != 2 || got.LastKind != "image" {
		t.Errorf("got %q/%d/%q, want Ada/2/image", got.DisplayName, got.MessageCount, got.LastKind)
	}

	n, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}

	if err := repo.Delete(ctx, "a@s.whatsapp.net"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, "a@s.whatsapp.net"); err == nil {
		t.Error("Delete of unknown contact should error")
	}
}

func cronJob(id string, nextMS int64) *repository.CronJob {
	now := time.Now().UnixMilli()
	return &repository.CronJob{
		ID:      id,
		Name:    "morning greeting",
		Enabled: true,
		Schedule: repository.CronSchedule{
			Kind:    "every",
			EveryMS: 60000,
		},
		Payload: repository.CronPayload{
			To:      "15551234567",
			Message: "good morning",
		},
		State:       repository.CronJobState{NextRunAtMS: nextMS},
		CreatedAtMS: now,
		UpdatedAtMS: now,
	}
}

func TestCronRepositoryRoundTrip(t *testing.T) {
	t.Parallel()

	fs, err := NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStorage: %v", err)
	}
	ctx := context.Background()
	repo := fs.Cron()

	job := cronJob("job-1", time.Now().Add(time.Minute).UnixMilli())
	if err := repo.AddJob(ctx, job); err != nil {
		t.Fatalf("AddJob: %v", err)
	}
	if err := repo.AddJob(ctx, job); err == nil {
		t.Error("AddJob with duplicate ID should error")
	}

	got, err := repo.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Payload.To != "15551234567" || got.Payload.Message != "good morning" {
		t.Errorf("payload = %+v, want original payload", got.Payload)
	}
	if got.Schedule.Kind != "every" || got.Schedule.EveryMS != 60000 {
		t.Errorf("schedule = %+v, want every/60000", got.Schedule)
	}

	if _, err := repo.GetJob(ctx, "missing"); err == nil {
		t.Error("GetJob for unknown ID should error")
	}
}

func TestCronRepositoryListFiltersDisabled(t *testing.T) {
	t.Parallel()

	fs, err := NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStorage: %v", err)
	}
	ctx := context.Background()
	repo := fs.Cron()

	enabled := cronJob("on", 0)
	if err := repo.AddJob(ctx, enabled); err != nil {
		t.Fatalf("AddJob: %v", err)
	}
	disabled := cronJob("off", 0)
	disabled.Enabled = false
	if err := repo.AddJob(ctx, disabled); err != nil {
		t.Fatalf("AddJob: %v", err)
	}

	all, err := repo.ListJobs(ctx, true)
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("ListJobs(true) returned %d jobs, want 2", len(all))
	}

	active, err := repo.ListJobs(ctx, false)
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(active) != 1 || active[0].ID != "on" {
		t.Errorf("ListJobs(false) = %+v, want only the enabled job", active)
	}
}

func TestCronRepositoryDueJobs(t *testing.T) {
	t.Parallel()

	fs, err := NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStorage: %v", err)
	}
	ctx := context.Background()
	repo := fs.Cron()

	now := time.Now()
	past := cronJob("past", now.Add(-time.Minute).UnixMilli())
	future := cronJob("future", now.Add(time.Hour).UnixMilli())
	unscheduled := cronJob("idle", 0)

	for _, job := range []*repository.CronJob{past, future, unscheduled} {
		if err := repo.AddJob(ctx, job); err != nil {
			t.Fatalf("AddJob %s: %v", job.ID, err)
		}
	}

	due, err := repo.GetDueJobs(ctx, now)
	if err != nil {
		t.Fatalf("GetDueJobs: %v", err)
	}
	if len(due) != 1 || due[0].ID != "past" {
		t.Errorf("GetDueJobs = %+v, want only the past job", due)
	}

	wake, err := repo.GetNextWakeTime(ctx)
	if err != nil {
		t.Fatalf("GetNextWakeTime: %v", err)
	}
	if wake == nil {
		t.Fatal("GetNextWakeTime = nil, want earliest scheduled run")
	}
	if wake.UnixMilli() != past.State.NextRunAtMS {
		t.Errorf("wake = %d, want %d", wake.UnixMilli(), past.State.NextRunAtMS)
	}
}

func TestCronRepositoryUpdateState(t *testing.T) {
	t.Parallel()

	fs, err := NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStorage: %v", err)
	}
	ctx := context.Background()
	repo := fs.Cron()

	job := cronJob("job-1", time.Now().Add(time.Minute).UnixMilli())
	if err := repo.AddJob(ctx, job); err != nil {
		t.Fatalf("AddJob: %v", err)
	}

	state := repository.CronJobState{
		NextRunAtMS: time.Now().Add(2 * time.Minute).UnixMilli(),
		LastRunAtMS: time.Now().UnixMilli(),
		LastStatus:  "ok",
	}
	if err := repo.UpdateJobState(ctx, "job-1", state); err != nil {
		t.Fatalf("UpdateJobState: %v", err)
	}

	got, err := repo.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.State.LastStatus != "ok" {
		t.Errorf("LastStatus = %q, want %q", got.State.LastStatus, "ok")
	}
	if got.State.NextRunAtMS != state.NextRunAtMS {
		t.Errorf("NextRunAtMS = %d, want %d", got.State.NextRunAtMS, state.NextRunAtMS)
	}

	if err := repo.UpdateJobState(ctx, "missing", state); err == nil {
		t.Error("UpdateJobState for unknown ID should error")
	}
}

func TestCronRepositoryReload(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	fs, err := NewFileStorage(dir)
	if err != nil {
		t.Fatalf("NewFileStorage: %v", err)
	}
	ctx := context.Background()

	job := cronJob("job-1", time.Now().Add(time.Minute).UnixMilli())
	if err := fs.Cron().AddJob(ctx, job); err != nil {
		t.Fatalf("AddJob: %v", err)
	}

	reopened, err := NewFileStorage(dir)
	if err != nil {
		t.Fatalf("NewFileStorage: %v", err)
	}
	got, err := reopened.Cron().GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob after reload: %v", err)
	}
	if got.Name != "morning greeting" {
		t.Errorf("Name = %q, want %q", got.Name, "morning greeting")
	}

	if err := reopened.Cron().DeleteJob(ctx, "job-1"); err != nil {
		t.Fatalf("DeleteJob: %v", err)
	}
	if err := reopened.Cron().DeleteJob(ctx, "job-1"); err == nil {
		t.Error("DeleteJob of unknown ID should error")
	}
}
