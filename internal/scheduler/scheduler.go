// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

// Package scheduler owns the active timer table and fires backup runs.
//
// Each enabled job has at most one timer entry, keyed by job id. Timers are
// registered on a Cron backend (robfig/cron in production, a fake in tests).
// When an entry fires, the scheduler reloads settings, spawns the backup
// executable through the runner, waits for it, and on success rotates local
// archives for jobs that do not ship to a remote.
//
// A failed run is logged and recorded in the run history; the job stays
// scheduled and is not retried.
package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tomtom215/labelkeeper/internal/logging"
	"github.com/tomtom215/labelkeeper/internal/metrics"
	"github.com/tomtom215/labelkeeper/internal/models"
	"github.com/tomtom215/labelkeeper/internal/runner"
	"github.com/tomtom215/labelkeeper/internal/schedule"
)

// DefaultHistorySize bounds the in-memory run history.
const DefaultHistorySize = 200

// Cron is the timer backend. *cron.Cron satisfies it.
type Cron interface {
	AddJob(spec string, cmd cron.Job) (cron.EntryID, error)
	Remove(id cron.EntryID)
	Entry(id cron.EntryID) cron.Entry
	Start()
	Stop() context.Context
}

// ProcessStarter spawns a process and returns once it is running.
// *runner.Runner satisfies it.
type ProcessStarter interface {
	Start(ctx context.Context, c runner.Command) (*runner.Process, error)
}

// Rotator enforces local retention. *archive.Rotator satisfies it.
type Rotator interface {
	Rotate(label string, keep int) ([]string, error)
}

// SettingsSource supplies the current global settings.
type SettingsSource interface {
	GetSettings(ctx context.Context) (*models.Settings, error)
}

// Config configures the backup invocation and scheduler behaviour.
type Config struct {
	// Shell runs Script when set ("bash" runs "bash <script> args...").
	// When empty Script is executed directly.
	Shell  string
	Script string

	BackupDir        string
	RemoteConfigPath string
	ArchiveExt       string

	// SkipOverlapping makes a scheduled firing skip when the previous
	// scheduled run of the same timer entry is still executing. Manual runs
	// are never skipped.
	SkipOverlapping bool

	HistorySize int
}

// Scheduler is the trigger scheduler. Create it with New.
type Scheduler struct {
	cfg      Config
	cron     Cron
	runner   ProcessStarter
	rotator  Rotator
	settings SettingsSource
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]cron.EntryID
	started bool

	settingsMu    sync.RWMutex
	settingsCache *models.Settings

	history  *history
	inflight sync.WaitGroup
}

// New creates a Scheduler. Call Start to begin firing timers.
func New(cfg Config, c Cron, r ProcessStarter, rot Rotator, settings SettingsSource) *Scheduler {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultHistorySize
	}
	return &Scheduler{
		cfg:           cfg,
		cron:          c,
		runner:        r,
		rotator:       rot,
		settings:      settings,
		now:           time.Now,
		entries:       make(map[string]cron.EntryID),
		settingsCache: &models.Settings{},
		history:       newHistory(cfg.HistorySize),
	}
}

// NewCron returns the production timer backend evaluating expressions in loc.
func NewCron(loc *time.Location) *cron.Cron {
	if loc == nil {
		loc = time.Local
	}
	l := newCronLogger()
	return cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(l),
		cron.WithChain(cron.Recover(l)),
	)
}

// Validate parses expr with the parser the timer backend uses.
func Validate(expr string) error {
	if _, err := cron.ParseStandard(expr); err != nil {
		return &schedule.InvalidScheduleError{
			Frequency:  models.FrequencyCustom,
			Expression: expr,
			Reason:     err.Error(),
		}
	}
	return nil
}

// Schedule (re)registers the timer for job. Any existing entry is cancelled
// first. A disabled job ends up unscheduled. If the backend rejects the
// expression the job is left unscheduled and an *schedule.InvalidScheduleError
// is returned.
func (s *Scheduler) Schedule(job *models.Job) error {
	snapshot := job.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(snapshot.ID)
	if !snapshot.Enabled {
		logging.Debug().Str("job_id", snapshot.ID).Str("label", snapshot.Label).Msg("Job disabled, not scheduling")
		return nil
	}

	fire := cron.FuncJob(func() { s.runScheduled(snapshot) })
	id, err := s.cron.AddJob(snapshot.Schedule, s.jobChain(snapshot).Then(fire))
	if err != nil {
		metrics.ScheduleRegistrationErrors.Inc()
		logging.Warn().Err(err).Str("job_id", snapshot.ID).Str("schedule", snapshot.Schedule).Msg("Failed to register schedule")
		return &schedule.InvalidScheduleError{
			Frequency:  snapshot.Frequency,
			Expression: snapshot.Schedule,
			Reason:     err.Error(),
		}
	}
	s.entries[snapshot.ID] = id
	metrics.ScheduledJobs.Set(float64(len(s.entries)))

	logging.Info().Str("job_id", snapshot.ID).Str("label", snapshot.Label).Str("schedule", snapshot.Schedule).Msg("Job scheduled")
	return nil
}

// Unschedule cancels the timer for id. It is a no-op for unknown ids.
// A run already in progress is not interrupted.
func (s *Scheduler) Unschedule(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removeLocked(id) {
		logging.Info().Str("job_id", id).Msg("Job unscheduled")
	}
}

func (s *Scheduler) removeLocked(id string) bool {
	entry, ok := s.entries[id]
	if !ok {
		return false
	}
	s.cron.Remove(entry)
	delete(s.entries, id)
	metrics.ScheduledJobs.Set(float64(len(s.entries)))
	return true
}

// IsScheduled reports whether id holds a timer entry.
func (s *Scheduler) IsScheduled(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	return ok
}

// Len is the number of active timer entries.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Entries returns a snapshot of the timer table: job id to next fire time.
// Next times are zero until the backend is started.
func (s *Scheduler) Entries() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]time.Time, len(s.entries))
	for jobID, entry := range s.entries {
		out[jobID] = s.cron.Entry(entry).Next
	}
	return out
}

// ScheduledIDs returns the ids holding a timer entry, sorted.
func (s *Scheduler) ScheduledIDs() []string {
	s.mu.Lock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// Start starts the timer backend.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.cron.Start()
	logging.Info().Int("entries", len(s.entries)).Msg("Scheduler started")
}

// Running reports whether Start has been called and Stop has not.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Stop cancels every timer and waits for in-progress runs until ctx is done.
// Child processes are not killed.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	for id := range s.entries {
		s.removeLocked(id)
	}
	wasStarted := s.started
	s.started = false
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		if wasStarted {
			<-s.cron.Stop().Done()
		}
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info().Msg("Scheduler stopped")
		return nil
	case <-ctx.Done():
		logging.Warn().Msg("Scheduler stop timed out with runs still in progress")
		return ctx.Err()
	}
}

// Runs returns the run history, most recent first. An empty jobID returns
// every run.
func (s *Scheduler) Runs(jobID string) []models.RunRecord {
	return s.history.list(jobID)
}

// RefreshSettings replaces the cached settings after an explicit save.
func (s *Scheduler) RefreshSettings(settings *models.Settings) {
	s.settingsMu.Lock()
	s.settingsCache = settings.Clone()
	s.settingsMu.Unlock()
}

// Settings returns the cached settings.
func (s *Scheduler) Settings() *models.Settings {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	return s.settingsCache.Clone()
}

// reloadSettings refreshes the cache from the source. On failure the last
// good settings are used.
func (s *Scheduler) reloadSettings(ctx context.Context) *models.Settings {
	if s.settings != nil {
		fresh, err := s.settings.GetSettings(ctx)
		if err == nil && fresh != nil {
			s.RefreshSettings(fresh)
			return fresh.Clone()
		}
		if err != nil {
			logging.Warn().Err(err).Msg("Failed to reload settings, using cached copy")
		}
	}
	return s.Settings()
}

// jobChain wraps the timer callback of job. The overlap guard lives inside
// the wrapped job, so it is released together with the timer entry.
func (s *Scheduler) jobChain(job *models.Job) cron.Chain {
	if !s.cfg.SkipOverlapping {
		return cron.NewChain()
	}
	return cron.NewChain(s.skipIfStillRunning(job))
}

// skipIfStillRunning behaves like cron.SkipIfStillRunning but records the
// skipped firing in the run history and metrics rather than the cron logger.
func (s *Scheduler) skipIfStillRunning(job *models.Job) cron.JobWrapper {
	return func(j cron.Job) cron.Job {
		slot := make(chan struct{}, 1)
		slot <- struct{}{}
		return cron.FuncJob(func() {
			select {
			case token := <-slot:
				defer func() { slot <- token }()
				j.Run()
			default:
				s.recordSkipped(job)
			}
		})
	}
}
