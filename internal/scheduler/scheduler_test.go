// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tomtom215/labelkeeper/internal/models"
	"github.com/tomtom215/labelkeeper/internal/runner"
	"github.com/tomtom215/labelkeeper/internal/schedule"
)

// fakeCron records registrations and fires them on demand.
type fakeCron struct {
	mu      sync.Mutex
	next    cron.EntryID
	jobs    map[cron.EntryID]cron.Job
	specs   map[cron.EntryID]string
	started bool
	stopped bool
}

func newFakeCron() *fakeCron {
	return &fakeCron{jobs: make(map[cron.EntryID]cron.Job), specs: make(map[cron.EntryID]string)}
}

func (f *fakeCron) AddJob(spec string, cmd cron.Job) (cron.EntryID, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	f.jobs[f.next] = cmd
	f.specs[f.next] = spec
	return f.next, nil
}

func (f *fakeCron) Remove(id cron.EntryID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.jobs, id)
	delete(f.specs, id)
}

func (f *fakeCron) Entry(id cron.EntryID) cron.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.jobs[id]; !ok {
		return cron.Entry{}
	}
	return cron.Entry{ID: id, Next: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeCron) Start() {
	f.mu.Lock()
	f.started = true
	f.mu.Unlock()
}

func (f *fakeCron) Stop() context.Context {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

func (f *fakeCron) live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobs)
}

func (f *fakeCron) spec(id cron.EntryID) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.specs[id]
}

func (f *fakeCron) fire(id cron.EntryID) {
	f.mu.Lock()
	job := f.jobs[id]
	f.mu.Unlock()
	if job != nil {
		job.Run()
	}
}

// fakeRotator records Rotate calls.
type fakeRotator struct {
	mu    sync.Mutex
	calls []string
}

func (r *fakeRotator) Rotate(label string, keep int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, label)
	if keep <= 0 {
		return nil, nil
	}
	return []string{label + "-old.tar.gz"}, nil
}

func (r *fakeRotator) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type staticSettings struct {
	settings *models.Settings
	err      error
}

func (s staticSettings) GetSettings(context.Context) (*models.Settings, error) {
	return s.settings, s.err
}

// writeScript writes an executable shell script into dir.
func writeScript(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "backup.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o700); err != nil {
		t.Fatal(err)
	}
	return path
}

type fixture struct {
	s       *Scheduler
	cron    *fakeCron
	rotator *fakeRotator
	dir     string
}

func newFixture(t *testing.T, script string, mutate func(*Config)) *fixture {
	t.Helper()
	dir := t.TempDir()
	cfg := Config{
		Script:           writeScript(t, dir, script),
		BackupDir:        filepath.Join(dir, "backups"),
		RemoteConfigPath: filepath.Join(dir, "rclone.conf"),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	fc := newFakeCron()
	rot := &fakeRotator{}
	settings := staticSettings{settings: &models.Settings{IgnorePatterns: []string{"*.tmp", "cache"}}}
	s := New(cfg, fc, runner.New(runner.Config{}), rot, settings)
	return &fixture{s: s, cron: fc, rotator: rot, dir: dir}
}

func dailyJob(id string) *models.Job {
	return &models.Job{
		ID:             id,
		Label:          "app",
		Frequency:      models.FrequencyDaily,
		TimeOfDay:      "14:30",
		Schedule:       "30 14 * * *",
		Enabled:        true,
		RetentionCount: 5,
	}
}

func (f *fixture) entryID(t *testing.T, jobID string) cron.EntryID {
	t.Helper()
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	id, ok := f.s.entries[jobID]
	if !ok {
		t.Fatalf("job %s has no timer entry", jobID)
	}
	return id
}

// waitForRun polls until the run leaves the running state.
func waitForRun(t *testing.T, s *Scheduler, runID string) models.RunRecord {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		for _, r := range s.Runs("") {
			if r.RunID == runID && r.Status != models.RunStatusRunning {
				return r
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("run %s did not finish", runID)
	return models.RunRecord{}
}

func TestSchedule_EnabledAndDisabled(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "exit 0\n", nil)

	if err := f.s.Schedule(dailyJob("a")); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	disabled := dailyJob("b")
	disabled.Enabled = false
	if err := f.s.Schedule(disabled); err != nil {
		t.Fatalf("Schedule disabled: %v", err)
	}

	if !f.s.IsScheduled("a") {
		t.Error("enabled job should hold a timer")
	}
	if f.s.IsScheduled("b") {
		t.Error("disabled job must not hold a timer")
	}
	if f.cron.live() != 1 {
		t.Errorf("backend has %d entries, want 1", f.cron.live())
	}

	// Disabling an existing job removes its timer.
	again := dailyJob("a")
	again.Enabled = false
	if err := f.s.Schedule(again); err != nil {
		t.Fatal(err)
	}
	if f.s.IsScheduled("a") || f.cron.live() != 0 {
		t.Error("disable should cancel the timer")
	}
}

func TestSchedule_ReplaceLeavesOneTimer(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "exit 0\n", nil)
	job := dailyJob("a")
	if err := f.s.Schedule(job); err != nil {
		t.Fatal(err)
	}

	dow := 1
	job.Frequency = models.FrequencyWeekly
	job.DayOfWeek = &dow
	job.Schedule = "30 14 * * 1"
	if err := f.s.Schedule(job); err != nil {
		t.Fatal(err)
	}

	if f.cron.live() != 1 || f.s.Len() != 1 {
		t.Fatalf("expected exactly one timer, backend=%d table=%d", f.cron.live(), f.s.Len())
	}
	if got := f.cron.spec(f.entryID(t, "a")); got != "30 14 * * 1" {
		t.Errorf("active spec = %q", got)
	}
}

func TestSchedule_InvalidExpression(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "exit 0\n", nil)
	job := dailyJob("a")
	if err := f.s.Schedule(job); err != nil {
		t.Fatal(err)
	}

	job.Schedule = "75 9 * * *"
	err := f.s.Schedule(job)
	if !errors.Is(err, schedule.ErrInvalidSchedule) {
		t.Fatalf("expected ErrInvalidSchedule, got %v", err)
	}
	var ise *schedule.InvalidScheduleError
	if !errors.As(err, &ise) || ise.Expression != "75 9 * * *" {
		t.Errorf("error = %#v", err)
	}
	if f.s.IsScheduled("a") || f.cron.live() != 0 {
		t.Error("rejected job must be left unscheduled")
	}
}

func TestUnschedule(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "exit 0\n", nil)
	if err := f.s.Schedule(dailyJob("a")); err != nil {
		t.Fatal(err)
	}
	f.s.Unschedule("a")
	f.s.Unschedule("a")
	f.s.Unschedule("never-existed")

	if f.s.IsScheduled("a") || f.cron.live() != 0 {
		t.Error("Unschedule should remove the timer")
	}
}

func TestEntries(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "exit 0\n", nil)
	_ = f.s.Schedule(dailyJob("b"))
	_ = f.s.Schedule(dailyJob("a"))

	entries := f.s.Entries()
	if len(entries) != 2 || entries["a"].IsZero() {
		t.Errorf("Entries() = %v", entries)
	}
	if ids := f.s.ScheduledIDs(); !reflect.DeepEqual(ids, []string{"a", "b"}) {
		t.Errorf("ScheduledIDs() = %v", ids)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	for _, expr := range []string{"*/5 * * * *", "0 3 * * sun", "@daily"} {
		if err := Validate(expr); err != nil {
			t.Errorf("Validate(%q): %v", expr, err)
		}
	}
	for _, expr := range []string{"", "not a cron", "61 * * * *", "* * * *"} {
		if err := Validate(expr); !errors.Is(err, schedule.ErrInvalidSchedule) {
			t.Errorf("Validate(%q) = %v, want ErrInvalidSchedule", expr, err)
		}
	}
}

func TestBackupArgs(t *testing.T) {
	t.Parallel()

	job := &models.Job{Label: "db", UseRemote: true, RemoteName: "s3"}
	got := BackupArgs(job, &models.Settings{IgnorePatterns: []string{"a", "b"}}, "/backups", "/rclone/rclone.conf")
	want := []string{"db", "/backups", "/rclone/rclone.conf", "true", "s3", "a|b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("BackupArgs() = %v, want %v", got, want)
	}

	local := &models.Job{Label: "app"}
	got = BackupArgs(local, &models.Settings{}, "/b", "/c")
	if got[3] != "false" || got[4] != "" || got[5] != "." {
		t.Errorf("local args = %v", got)
	}
}

func TestScheduledFire_PassesArgsAndRotates(t *testing.T) {
	t.Parallel()

	var out string
	f := newFixture(t, "", func(cfg *Config) {
		out = filepath.Join(filepath.Dir(cfg.Script), "args.txt")
		_ = os.WriteFile(cfg.Script, []byte("#!/bin/sh\nprintf '%s\\n' \"$@\" \"$"+ArchiveNameEnv+"\" > "+out+"\n"), 0o700)
	})

	job := dailyJob("a")
	if err := f.s.Schedule(job); err != nil {
		t.Fatal(err)
	}
	f.cron.fire(f.entryID(t, "a"))

	runs := f.s.Runs("a")
	if len(runs) != 1 {
		t.Fatalf("expected one run, got %d", len(runs))
	}
	r := runs[0]
	if r.Status != models.RunStatusSucceeded || r.Trigger != models.TriggerScheduled {
		t.Errorf("run = %+v", r)
	}
	if r.ExitCode == nil || *r.ExitCode != 0 {
		t.Errorf("exit code = %v", r.ExitCode)
	}
	if f.rotator.count() != 1 || len(r.Rotated) != 1 {
		t.Errorf("expected one rotation, calls=%d rotated=%v", f.rotator.count(), r.Rotated)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("script did not run: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 7 {
		t.Fatalf("unexpected args: %q", lines)
	}
	if lines[0] != "app" || lines[3] != "false" || lines[5] != "*.tmp|cache" {
		t.Errorf("args = %q", lines)
	}
	if !strings.HasPrefix(lines[6], "app-") || !strings.HasSuffix(lines[6], ".tar.gz") {
		t.Errorf("archive name env = %q", lines[6])
	}
}

func TestScheduledFire_RemoteJobSkipsRotation(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "exit 0\n", nil)
	job := dailyJob("a")
	job.UseRemote = true
	job.RemoteName = "s3"
	_ = f.s.Schedule(job)
	f.cron.fire(f.entryID(t, "a"))

	if f.rotator.count() != 0 {
		t.Error("rotation must not run for remote jobs")
	}
	if runs := f.s.Runs("a"); len(runs) != 1 || runs[0].Status != models.RunStatusSucceeded {
		t.Errorf("runs = %+v", runs)
	}
}

func TestScheduledFire_FailureKeepsJobScheduled(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "echo 'disk full' >&2\nexit 3\n", nil)
	_ = f.s.Schedule(dailyJob("a"))
	f.cron.fire(f.entryID(t, "a"))

	r := f.s.Runs("a")[0]
	if r.Status != models.RunStatusFailed || r.ExitCode == nil || *r.ExitCode != 3 {
		t.Errorf("run = %+v", r)
	}
	if !strings.Contains(r.StderrTail, "disk full") {
		t.Errorf("stderr tail = %q", r.StderrTail)
	}
	if f.rotator.count() != 0 {
		t.Error("failed runs must not rotate")
	}
	if !f.s.IsScheduled("a") {
		t.Error("failure must not unschedule the job")
	}
}

func TestScheduledFire_ThroughShell(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "exit 0\n", func(cfg *Config) {
		cfg.Shell = "/bin/sh"
		_ = os.Chmod(cfg.Script, 0o600)
	})
	_ = f.s.Schedule(dailyJob("a"))
	f.cron.fire(f.entryID(t, "a"))

	if r := f.s.Runs("a")[0]; r.Status != models.RunStatusSucceeded {
		t.Errorf("non-executable script run through shell should succeed: %+v", r)
	}
}

func TestRunNow_SpawnError(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "exit 0\n", func(cfg *Config) {
		cfg.Script = filepath.Join(t.TempDir(), "missing.sh")
	})

	rec, err := f.s.RunNow(context.Background(), dailyJob("a"))
	if !errors.Is(err, runner.ErrSpawn) {
		t.Fatalf("expected ErrSpawn, got %v", err)
	}
	if rec == nil || rec.Status != models.RunStatusFailed {
		t.Errorf("record = %+v", rec)
	}
	if runs := f.s.Runs("a"); len(runs) != 1 || runs[0].Status != models.RunStatusFailed {
		t.Errorf("history = %+v", runs)
	}
}

func TestRunNow_ConcurrentRunsAreIndependent(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "sleep 0.2\nexit 0\n", nil)
	job := dailyJob("a")

	first, err := f.s.RunNow(context.Background(), job)
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	second, err := f.s.RunNow(context.Background(), job)
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if first.Status != models.RunStatusRunning || second.Status != models.RunStatusRunning {
		t.Errorf("RunNow should report running: %s, %s", first.Status, second.Status)
	}
	if first.RunID == second.RunID {
		t.Error("runs must have distinct ids")
	}
	if first.Trigger != models.TriggerManual {
		t.Errorf("trigger = %s", first.Trigger)
	}

	a := waitForRun(t, f.s, first.RunID)
	b := waitForRun(t, f.s, second.RunID)
	if a.Status != models.RunStatusSucceeded || b.Status != models.RunStatusSucceeded {
		t.Errorf("statuses = %s, %s", a.Status, b.Status)
	}
	if f.rotator.count() != 2 {
		t.Errorf("rotations = %d, want 2", f.rotator.count())
	}
}

func TestRunNow_OutlivesRequestContext(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "sleep 0.2\nexit 0\n", nil)
	ctx, cancel := context.WithCancel(context.Background())
	rec, err := f.s.RunNow(ctx, dailyJob("a"))
	if err != nil {
		t.Fatal(err)
	}
	cancel()

	if r := waitForRun(t, f.s, rec.RunID); r.Status != models.RunStatusSucceeded {
		t.Errorf("run killed by request cancellation: %+v", r)
	}
}

func TestSkipOverlapping(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	release := filepath.Join(dir, "release")
	script := "while [ ! -f " + release + " ]; do sleep 0.05; done\nexit 0\n"
	f := newFixture(t, script, func(cfg *Config) { cfg.SkipOverlapping = true })
	_ = f.s.Schedule(dailyJob("a"))
	entry := f.entryID(t, "a")

	done := make(chan struct{})
	go func() {
		f.cron.fire(entry)
		close(done)
	}()

	// Wait for the first run to be in flight.
	deadline := time.Now().Add(5 * time.Second)
	for len(f.s.Runs("a")) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	f.cron.fire(entry)
	runs := f.s.Runs("a")
	if len(runs) != 2 || runs[0].Status != models.RunStatusSkipped {
		t.Fatalf("second firing should be skipped: %+v", runs)
	}

	// Manual runs are never blocked.
	rec, err := f.s.RunNow(context.Background(), dailyJob("a"))
	if err != nil || rec.Status != models.RunStatusRunning {
		t.Fatalf("manual run blocked: %v %+v", err, rec)
	}

	if err := os.WriteFile(release, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	<-done
	waitForRun(t, f.s, rec.RunID)

	// The guard is released once the scheduled run completes.
	f.cron.fire(entry)
	runs = f.s.Runs("a")
	if runs[0].Trigger != models.TriggerScheduled || runs[0].Status != models.RunStatusSucceeded {
		t.Errorf("firing after completion = %+v", runs[0])
	}
}

func TestSkipOverlapping_GuardBelongsToEntry(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	release := filepath.Join(dir, "release")
	script := "while [ ! -f " + release + " ]; do sleep 0.05; done\nexit 0\n"
	f := newFixture(t, script, func(cfg *Config) { cfg.SkipOverlapping = true })
	_ = f.s.Schedule(dailyJob("a"))
	first := f.entryID(t, "a")

	done := make(chan struct{})
	go func() {
		f.cron.fire(first)
		close(done)
	}()
	deadline := time.Now().Add(5 * time.Second)
	for len(f.s.Runs("a")) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	// Unschedule drops the entry and its guard; nothing is kept per job id.
	f.s.Unschedule("a")
	if f.cron.live() != 0 {
		t.Fatalf("entries left after Unschedule: %d", f.cron.live())
	}

	if err := os.WriteFile(release, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	<-done
	runs := f.s.Runs("a")
	if len(runs) != 1 || runs[0].Status != models.RunStatusSucceeded {
		t.Errorf("in-flight run should finish after Unschedule: %+v", runs)
	}
}

func TestStop(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "exit 0\n", nil)
	_ = f.s.Schedule(dailyJob("a"))
	f.s.Start()
	if !f.s.Running() {
		t.Error("Running() should be true after Start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if f.s.Len() != 0 || f.cron.live() != 0 {
		t.Error("Stop should cancel every timer")
	}
	if !f.cron.stopped || f.s.Running() {
		t.Error("backend not stopped")
	}
}

func TestSettingsReloadFallsBackToCache(t *testing.T) {
	t.Parallel()

	s := New(Config{}, newFakeCron(), nil, nil, staticSettings{err: errors.New("store down")})
	s.RefreshSettings(&models.Settings{IgnorePatterns: []string{"x"}})

	got := s.reloadSettings(context.Background())
	if got.IgnorePattern() != "x" {
		t.Errorf("expected cached settings, got %+v", got)
	}
}

func TestHistoryBounded(t *testing.T) {
	t.Parallel()

	h := newHistory(3)
	for _, id := range []string{"1", "2", "3", "4", "5"} {
		h.add(&models.RunRecord{RunID: id, JobID: "j"})
	}
	got := h.list("")
	if len(got) != 3 || got[0].RunID != "5" || got[2].RunID != "3" {
		t.Errorf("history = %+v", got)
	}
	if len(h.list("other")) != 0 {
		t.Error("filter by job id failed")
	}
}
