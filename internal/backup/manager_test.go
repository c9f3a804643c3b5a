// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

package backup

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/labelkeeper/internal/models"
	"github.com/tomtom215/labelkeeper/internal/restore"
	"github.com/tomtom215/labelkeeper/internal/schedule"
	"github.com/tomtom215/labelkeeper/internal/scheduler"
	"github.com/tomtom215/labelkeeper/internal/store"
)

type mockScheduler struct {
	mu          sync.Mutex
	scheduled   map[string]string
	started     bool
	settings    *models.Settings
	scheduleErr error
	rejectExpr  string
	runNowFn    func(job *models.Job) (*models.RunRecord, error)
}

func newMockScheduler() *mockScheduler {
	return &mockScheduler{scheduled: map[string]string{}}
}

func (m *mockScheduler) Schedule(job *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.scheduled, job.ID)
	if !job.Enabled {
		return nil
	}
	if m.scheduleErr != nil {
		return m.scheduleErr
	}
	if m.rejectExpr != "" && job.Schedule == m.rejectExpr {
		return &schedule.InvalidScheduleError{Expression: job.Schedule, Reason: "backend refused"}
	}
	if err := scheduler.Validate(job.Schedule); err != nil {
		return err
	}
	m.scheduled[job.ID] = job.Schedule
	return nil
}

func (m *mockScheduler) Unschedule(id string) {
	m.mu.Lock()
	delete(m.scheduled, id)
	m.mu.Unlock()
}

func (m *mockScheduler) RunNow(_ context.Context, job *models.Job) (*models.RunRecord, error) {
	if m.runNowFn != nil {
		return m.runNowFn(job)
	}
	return &models.RunRecord{RunID: "run-1", JobID: job.ID, Label: job.Label,
		Trigger: models.TriggerManual, Status: models.RunStatusRunning}, nil
}

func (m *mockScheduler) Runs(string) []models.RunRecord { return nil }

func (m *mockScheduler) RefreshSettings(s *models.Settings) {
	m.mu.Lock()
	m.settings = s.Clone()
	m.mu.Unlock()
}

func (m *mockScheduler) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.scheduled)
}

func (m *mockScheduler) Start() { m.started = true }

func (m *mockScheduler) Stop(context.Context) error {
	m.started = false
	return nil
}

func (m *mockScheduler) Running() bool { return m.started }

func (m *mockScheduler) expr(id string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.scheduled[id]
	return e, ok
}

type mockLister struct {
	listFn func(remoteName, label string, recursive bool) ([]string, error)
}

func (m *mockLister) List(_ context.Context, remoteName, label string, recursive bool) ([]string, error) {
	return m.listFn(remoteName, label, recursive)
}

type localFunc func(label string) ([]string, error)

func (f localFunc) List(label string) ([]string, error) { return f(label) }

type restorerFunc func(req restore.Request) (*restore.Result, error)

func (f restorerFunc) Restore(_ context.Context, req restore.Request) (*restore.Result, error) {
	return f(req)
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func newTestManager(t *testing.T, d Deps) (*Manager, *mockScheduler) {
	t.Helper()
	sched := newMockScheduler()
	if d.Store == nil {
		d.Store = store.NewMemoryStore()
	}
	d.Scheduler = sched
	if d.RemoteConfig.Path == "" {
		d.RemoteConfig = store.RemoteConfigFile{Path: filepath.Join(t.TempDir(), "rclone", "rclone.conf")}
	}
	m, err := NewManager(d)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	m.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return m, sched
}

func TestNewManager_RequiresDeps(t *testing.T) {
	t.Parallel()

	if _, err := NewManager(Deps{Scheduler: newMockScheduler()}); err == nil {
		t.Error("expected error without a store")
	}
	if _, err := NewManager(Deps{Store: store.NewMemoryStore()}); err == nil {
		t.Error("expected error without a scheduler")
	}
}

func TestManager_CreateDaily(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, sched := newTestManager(t, Deps{})

	job, err := m.Create(ctx, models.JobInput{
		Label:     " photos ",
		Frequency: models.FrequencyDaily,
		TimeOfDay: "14:30",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if job.ID == "" {
		t.Error("expected an id")
	}
	if job.Label != "photos" {
		t.Errorf("Label = %q, want trimmed", job.Label)
	}
	if job.Schedule != "30 14 * * *" {
		t.Errorf("Schedule = %q", job.Schedule)
	}
	if !job.Enabled {
		t.Error("omitted enabled must default to true")
	}
	if job.RetentionCount != models.DefaultRetentionCount {
		t.Errorf("RetentionCount = %d", job.RetentionCount)
	}
	if expr, ok := sched.expr(job.ID); !ok || expr != job.Schedule {
		t.Errorf("timer = %q, %v", expr, ok)
	}

	stored, err := m.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Schedule != job.Schedule {
		t.Errorf("stored schedule = %q", stored.Schedule)
	}
}

func TestManager_CreateDisabled(t *testing.T) {
	t.Parallel()
	m, sched := newTestManager(t, Deps{})

	job, err := m.Create(context.Background(), models.JobInput{
		Label: "docs", Frequency: models.FrequencyHourly, Enabled: boolPtr(false),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if job.Enabled {
		t.Error("expected disabled job")
	}
	if sched.Len() != 0 {
		t.Errorf("disabled job must not be scheduled, have %d timers", sched.Len())
	}
}

func TestManager_CreateRejected(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		in     models.JobInput
		target error
	}{
		{"missing label", models.JobInput{Frequency: models.FrequencyHourly}, ErrValidation},
		{"label with slash", models.JobInput{Label: "a/b", Frequency: models.FrequencyHourly}, ErrValidation},
		{"unknown frequency", models.JobInput{Label: "a", Frequency: "yearly"}, ErrValidation},
		{"remote without name", models.JobInput{Label: "a", Frequency: models.FrequencyHourly, UseRemote: true}, ErrValidation},
		{"remote name as flag", models.JobInput{Label: "a", Frequency: models.FrequencyHourly, UseRemote: true, RemoteName: "--config=/tmp/evil"}, ErrValidation},
		{"remote name with path", models.JobInput{Label: "a", Frequency: models.FrequencyHourly, UseRemote: true, RemoteName: "s3:/etc"}, ErrValidation},
		{"daily without time", models.JobInput{Label: "a", Frequency: models.FrequencyDaily}, schedule.ErrInvalidSchedule},
		{"weekly without day", models.JobInput{Label: "a", Frequency: models.FrequencyWeekly, TimeOfDay: "09:00"}, schedule.ErrInvalidSchedule},
		{"monthly day 32", models.JobInput{Label: "a", Frequency: models.FrequencyMonthly, TimeOfDay: "09:00", DayOfMonth: intPtr(32)}, schedule.ErrInvalidSchedule},
		{"bad custom", models.JobInput{Label: "a", Frequency: models.FrequencyCustom, CustomSchedule: "75 9 * * *"}, schedule.ErrInvalidSchedule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			m, sched := newTestManager(t, Deps{})

			_, err := m.Create(ctx, tt.in)
			if !errors.Is(err, tt.target) {
				t.Fatalf("err = %v, want %v", err, tt.target)
			}
			jobs, _ := m.List(ctx)
			if len(jobs) != 0 {
				t.Errorf("rejected job was persisted: %+v", jobs)
			}
			if sched.Len() != 0 {
				t.Error("rejected job was scheduled")
			}
		})
	}
}

func TestManager_CreateRollsBackWhenSchedulingFails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, sched := newTestManager(t, Deps{})
	sched.scheduleErr = &schedule.InvalidScheduleError{Expression: "0 * * * *", Reason: "backend refused"}

	_, err := m.Create(ctx, models.JobInput{Label: "a", Frequency: models.FrequencyHourly})
	if !errors.Is(err, schedule.ErrInvalidSchedule) {
		t.Fatalf("err = %v", err)
	}
	jobs, _ := m.List(ctx)
	if len(jobs) != 0 {
		t.Errorf("job should have been rolled back, have %d", len(jobs))
	}
}

func TestManager_UpdateReschedules(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, sched := newTestManager(t, Deps{})

	job, err := m.Create(ctx, models.JobInput{Label: "photos", Frequency: models.FrequencyDaily, TimeOfDay: "02:00"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	created := job.CreatedAt

	m.now = func() time.Time { return time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC) }
	updated, err := m.Update(ctx, job.ID, models.JobInput{
		Label: "photos", Frequency: models.FrequencyWeekly, TimeOfDay: "03:15", DayOfWeek: intPtr(1),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.ID != job.ID || !updated.CreatedAt.Equal(created) {
		t.Error("update must preserve id and creation time")
	}
	if !updated.UpdatedAt.After(created) {
		t.Error("UpdatedAt not advanced")
	}
	if updated.Schedule != "15 3 * * 1" {
		t.Errorf("Schedule = %q", updated.Schedule)
	}
	if sched.Len() != 1 {
		t.Errorf("timers = %d, want exactly one", sched.Len())
	}
	if expr, _ := sched.expr(job.ID); expr != "15 3 * * 1" {
		t.Errorf("timer = %q", expr)
	}

	// Disabling drops the timer but keeps the job.
	if _, err := m.Update(ctx, job.ID, models.JobInput{
		Label: "photos", Frequency: models.FrequencyHourly, Enabled: boolPtr(false),
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if sched.Len() != 0 {
		t.Error("disabled job still scheduled")
	}
}

func TestManager_UpdateInvalidKeepsStoredJob(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, sched := newTestManager(t, Deps{})

	job, err := m.Create(ctx, models.JobInput{Label: "photos", Frequency: models.FrequencyHourly})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err = m.Update(ctx, job.ID, models.JobInput{Label: "photos", Frequency: models.FrequencyCustom, CustomSchedule: "not cron"})
	if !errors.Is(err, schedule.ErrInvalidSchedule) {
		t.Fatalf("err = %v", err)
	}
	stored, _ := m.Get(ctx, job.ID)
	if stored.Schedule != "0 * * * *" {
		t.Errorf("stored schedule changed to %q", stored.Schedule)
	}
	if expr, _ := sched.expr(job.ID); expr != "0 * * * *" {
		t.Errorf("timer changed to %q", expr)
	}
}

func TestManager_UpdateRollsBackWhenSchedulingFails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, sched := newTestManager(t, Deps{})

	job, err := m.Create(ctx, models.JobInput{Label: "photos", Frequency: models.FrequencyHourly, RetentionCount: 3})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	sched.mu.Lock()
	sched.rejectExpr = "15 3 * * 1"
	sched.mu.Unlock()

	_, err = m.Update(ctx, job.ID, models.JobInput{
		Label: "photos", Frequency: models.FrequencyWeekly, TimeOfDay: "03:15", DayOfWeek: intPtr(1), RetentionCount: 9,
	})
	if !errors.Is(err, schedule.ErrInvalidSchedule) {
		t.Fatalf("err = %v", err)
	}

	stored, err := m.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Schedule != "0 * * * *" || stored.RetentionCount != 3 || stored.Frequency != models.FrequencyHourly {
		t.Errorf("stored job not restored: %+v", stored)
	}
	if expr, ok := sched.expr(job.ID); !ok || expr != "0 * * * *" {
		t.Errorf("timer = %q (present %v), want previous schedule", expr, ok)
	}
}

func TestManager_NotFound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, _ := newTestManager(t, Deps{})

	if _, err := m.Get(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get: %v", err)
	}
	if _, err := m.Update(ctx, "missing", models.JobInput{Label: "a", Frequency: models.FrequencyHourly}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Update: %v", err)
	}
	if _, err := m.Delete(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Delete: %v", err)
	}
	if _, err := m.RunNow(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("RunNow: %v", err)
	}
}

func TestManager_Delete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, sched := newTestManager(t, Deps{})

	job, _ := m.Create(ctx, models.JobInput{Label: "photos", Frequency: models.FrequencyHourly})
	deleted, err := m.Delete(ctx, job.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if deleted.ID != job.ID {
		t.Errorf("deleted = %s", deleted.ID)
	}
	if sched.Len() != 0 {
		t.Error("timer survived delete")
	}
	if _, err := m.Get(ctx, job.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get after delete: %v", err)
	}
}

func TestManager_RunNow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, sched := newTestManager(t, Deps{})

	job, _ := m.Create(ctx, models.JobInput{Label: "photos", Frequency: models.FrequencyHourly, Enabled: boolPtr(false)})
	rec, err := m.RunNow(ctx, job.ID)
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if rec.JobID != job.ID || rec.Status != models.RunStatusRunning {
		t.Errorf("record = %+v", rec)
	}

	spawnErr := errors.New("spawn failed")
	sched.runNowFn = func(*models.Job) (*models.RunRecord, error) { return nil, spawnErr }
	if _, err := m.RunNow(ctx, job.ID); !errors.Is(err, spawnErr) {
		t.Errorf("err = %v", err)
	}
}

func TestManager_Labels(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, _ := newTestManager(t, Deps{})

	for i, in := range []models.JobInput{
		{Label: "photos", Frequency: models.FrequencyHourly, UseRemote: true, RemoteName: "b2"},
		{Label: "docs", Frequency: models.FrequencyHourly},
		{Label: "photos", Frequency: models.FrequencyDaily, TimeOfDay: "01:00"},
	} {
		m.now = func() time.Time { return time.Date(2026, 3, 1, i, 0, 0, 0, time.UTC) }
		if _, err := m.Create(ctx, in); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	labels, err := m.Labels(ctx)
	if err != nil {
		t.Fatalf("Labels: %v", err)
	}
	want := []models.LabelInfo{
		{Label: "docs"},
		{Label: "photos", UseRemote: true, RemoteName: "b2"},
	}
	if !reflect.DeepEqual(labels, want) {
		t.Errorf("labels = %+v, want %+v", labels, want)
	}
}

func TestManager_Start(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewMemoryStore()
	now := time.Now().UTC()

	for _, j := range []*models.Job{
		{ID: "a", Label: "a", Frequency: models.FrequencyHourly, Schedule: "0 * * * *", Enabled: true, CreatedAt: now},
		{ID: "b", Label: "b", Frequency: models.FrequencyHourly, Schedule: "0 * * * *", Enabled: false, CreatedAt: now},
		{ID: "c", Label: "c", Frequency: models.FrequencyCustom, Schedule: "bogus", Enabled: true, CreatedAt: now},
	} {
		if err := st.CreateJob(ctx, j); err != nil {
			t.Fatalf("CreateJob: %v", err)
		}
	}
	if err := st.SaveSettings(ctx, &models.Settings{IgnorePatterns: []string{"cache"}}); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	m, sched := newTestManager(t, Deps{Store: st})
	n, err := m.Start(ctx)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if n != 1 {
		t.Errorf("scheduled = %d, want 1", n)
	}
	if _, ok := sched.expr("a"); !ok {
		t.Error("enabled job a not scheduled")
	}
	if !m.SchedulerRunning() {
		t.Error("scheduler not started")
	}
	if sched.settings == nil || sched.settings.IgnorePattern() != "cache" {
		t.Errorf("scheduler settings = %+v", sched.settings)
	}
	if err := m.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if m.SchedulerRunning() {
		t.Error("scheduler still running")
	}
}

func TestManager_ListLocalArchives(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, _ := newTestManager(t, Deps{Local: localFunc(func(label string) ([]string, error) {
		return []string{label + "-20260102000000.tar.gz", label + "-20260101000000.tar.gz"}, nil
	})})

	names, err := m.ListLocalArchives(ctx, "photos")
	if err != nil {
		t.Fatalf("ListLocalArchives: %v", err)
	}
	if len(names) != 2 || names[0] != "photos-20260102000000.tar.gz" {
		t.Errorf("names = %v", names)
	}

	for _, label := range []string{"", "../etc", "a/b"} {
		if _, err := m.ListLocalArchives(ctx, label); !errors.Is(err, ErrValidation) {
			t.Errorf("label %q: err = %v", label, err)
		}
	}
}

func TestManager_ListRemoteArchives(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var gotRecursive bool
	m, _ := newTestManager(t, Deps{Remote: &mockLister{listFn: func(remoteName, label string, recursive bool) ([]string, error) {
		gotRecursive = recursive
		if remoteName != "b2" || label != "photos" {
			t.Errorf("List(%q, %q)", remoteName, label)
		}
		return []string{"photos-20260101000000.tar.gz"}, nil
	}}})

	names, err := m.ListRemoteArchives(ctx, "photos", "b2", true)
	if err != nil {
		t.Fatalf("ListRemoteArchives: %v", err)
	}
	if len(names) != 1 || !gotRecursive {
		t.Errorf("names = %v recursive = %v", names, gotRecursive)
	}
	if _, err := m.ListRemoteArchives(ctx, "photos", "", false); !errors.Is(err, ErrValidation) {
		t.Errorf("missing remote: err = %v", err)
	}
}

func TestManager_ListRemoteArchivesRejectsUnsafeRemote(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	called := false
	m, _ := newTestManager(t, Deps{Remote: &mockLister{listFn: func(string, string, bool) ([]string, error) {
		called = true
		return nil, nil
	}}})

	for _, remoteName := range []string{"--config=/tmp/attacker.conf --dump", "-v", "s3:bucket", "a/b", "my remote"} {
		if _, err := m.ListRemoteArchives(ctx, "photos", remoteName, false); !errors.Is(err, ErrValidation) {
			t.Errorf("remote %q: err = %v", remoteName, err)
		}
	}
	if called {
		t.Error("rclone listing must not run for an unsafe remote name")
	}
}

func TestManager_Restore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		m, _ := newTestManager(t, Deps{Restorer: restorerFunc(func(restore.Request) (*restore.Result, error) {
			return &restore.Result{State: restore.StateCompleted, Details: "Restore completed"}, nil
		})})
		res, err := m.Restore(ctx, restore.Request{Label: "photos", BackupFile: "photos-1.tar.gz"})
		if err != nil || res.State != restore.StateCompleted {
			t.Fatalf("res = %+v err = %v", res, err)
		}
	})

	t.Run("fetch failure", func(t *testing.T) {
		t.Parallel()
		m, _ := newTestManager(t, Deps{Restorer: restorerFunc(func(restore.Request) (*restore.Result, error) {
			return &restore.Result{
				State:    restore.StateFailed,
				ExitCode: 3,
				Stderr:   "not found",
				Transitions: []restore.Transition{
					{State: restore.StateRequested}, {State: restore.StateFetching}, {State: restore.StateFailed},
				},
			}, nil
		})})
		res, err := m.Restore(ctx, restore.Request{Label: "photos", BackupFile: "photos-1.tar.gz", IsRemote: true, RemoteName: "b2"})
		var sf *SubprocessFailure
		if !errors.As(err, &sf) {
			t.Fatalf("err = %v", err)
		}
		if sf.Op != "fetch" || sf.ExitCode != 3 || sf.Stderr != "not found" {
			t.Errorf("failure = %+v", sf)
		}
		if res == nil || res.State != restore.StateFailed {
			t.Errorf("res = %+v", res)
		}
	})

	t.Run("validation passes through", func(t *testing.T) {
		t.Parallel()
		m, _ := newTestManager(t, Deps{Restorer: restorerFunc(func(restore.Request) (*restore.Result, error) {
			return nil, &restore.ValidationError{Field: "label", Reason: "is required"}
		})})
		if _, err := m.Restore(ctx, restore.Request{}); !errors.Is(err, restore.ErrInvalidRequest) {
			t.Errorf("err = %v", err)
		}
	})
}

func TestManager_Settings(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, sched := newTestManager(t, Deps{})

	empty, err := m.GetSettings(ctx)
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if empty.RemoteConfig != "" || len(empty.IgnorePatterns) != 0 {
		t.Errorf("fresh settings = %+v", empty)
	}

	saved, err := m.SaveSettings(ctx, &models.Settings{
		IgnorePatterns: []string{"node_modules", "*.tmp"},
		RemoteConfig:   "[b2]\ntype = b2\n",
	})
	if err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	if saved.RemoteConfig != "[b2]\ntype = b2\n" {
		t.Errorf("RemoteConfig = %q", saved.RemoteConfig)
	}
	got := append([]string(nil), saved.IgnorePatterns...)
	sort.Strings(got)
	if !reflect.DeepEqual(got, []string{"*.tmp", "node_modules"}) {
		t.Errorf("IgnorePatterns = %v", saved.IgnorePatterns)
	}

	onDisk, err := m.remoteConfig.Read()
	if err != nil || onDisk != "[b2]\ntype = b2\n" {
		t.Errorf("rclone config on disk = %q, %v", onDisk, err)
	}
	stored, _ := m.store.GetSettings(ctx)
	if stored.RemoteConfig != "" {
		t.Error("remote config must not be kept in the store")
	}
	if sched.settings == nil || sched.settings.IgnorePattern() != "node_modules|*.tmp" {
		t.Errorf("scheduler settings = %+v", sched.settings)
	}
}
