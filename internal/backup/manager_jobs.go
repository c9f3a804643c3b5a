// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

/*
manager_jobs.go - Job Lifecycle

Create, Update and Delete keep the store and the timer table in step under
jobsMu. Input is prepared before the lock is taken:

	JobInput -> Normalize -> ValidateStruct -> schedule.Translate -> scheduler.Validate

A failure at any of those steps persists nothing.

Rollback:
  - Create deletes the new record when the scheduler refuses it.
  - Update writes the previous record back and re-registers its timer.

Scheduler.Schedule replaces any timer for the same id, so Update never has to
unschedule first. Disabled jobs are passed to Schedule as well; it drops
their timer.
*/

package backup

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/tomtom215/labelkeeper/internal/logging"
	"github.com/tomtom215/labelkeeper/internal/models"
	"github.com/tomtom215/labelkeeper/internal/schedule"
	"github.com/tomtom215/labelkeeper/internal/scheduler"
	"github.com/tomtom215/labelkeeper/internal/validation"
)

// prepare normalizes and validates in, and returns its cron expression.
// Nothing is persisted when it fails.
func prepare(in *models.JobInput) (string, error) {
	in.Normalize()
	if verr := validation.ValidateStruct(in); verr != nil {
		return "", newValidationError(verr)
	}

	expr, err := schedule.Translate(in.Frequency, schedule.Params{
		TimeOfDay:  in.TimeOfDay,
		DayOfWeek:  in.DayOfWeek,
		DayOfMonth: in.DayOfMonth,
	}, in.CustomSchedule)
	if err != nil {
		return "", err
	}
	if err := scheduler.Validate(expr); err != nil {
		if ise, ok := err.(*schedule.InvalidScheduleError); ok {
			ise.Frequency = in.Frequency
		}
		return "", err
	}
	return expr, nil
}

func applyInput(job *models.Job, in *models.JobInput, expr string) {
	job.Label = in.Label
	job.Frequency = in.Frequency
	job.TimeOfDay = in.TimeOfDay
	job.DayOfWeek = in.DayOfWeek
	job.DayOfMonth = in.DayOfMonth
	job.CustomSchedule = ""
	if in.Frequency == models.FrequencyCustom {
		job.CustomSchedule = in.CustomSchedule
	}
	job.Schedule = expr
	job.Enabled = in.IsEnabled()
	job.UseRemote = in.UseRemote
	job.RemoteName = in.RemoteName
	job.RetentionCount = in.RetentionCount
}

// Create validates in, persists a new job and schedules it when enabled.
func (m *Manager) Create(ctx context.Context, in models.JobInput) (*models.Job, error) {
	expr, err := prepare(&in)
	if err != nil {
		return nil, err
	}

	now := m.now().UTC()
	job := &models.Job{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	applyInput(job, &in, expr)

	m.jobsMu.Lock()
	defer m.jobsMu.Unlock()

	if err := m.store.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	if err := m.scheduler.Schedule(job); err != nil {
		if derr := m.store.DeleteJob(ctx, job.ID); derr != nil {
			logging.Error().Err(derr).Str("job_id", job.ID).Msg("Failed to roll back unschedulable job")
		}
		return nil, err
	}

	logging.Ctx(ctx).Info().Str("job_id", job.ID).Str("label", job.Label).
		Str("schedule", job.Schedule).Bool("enabled", job.Enabled).Msg("Job created")
	return job, nil
}

// Get returns the job with id, or store.ErrNotFound.
func (m *Manager) Get(ctx context.Context, id string) (*models.Job, error) {
	return m.store.GetJob(ctx, id)
}

// List returns every job.
func (m *Manager) List(ctx context.Context) ([]*models.Job, error) {
	return m.store.ListJobs(ctx)
}

// Update replaces every mutable field of job id and reschedules it. The id
// and creation time are preserved.
func (m *Manager) Update(ctx context.Context, id string, in models.JobInput) (*models.Job, error) {
	expr, err := prepare(&in)
	if err != nil {
		return nil, err
	}

	m.jobsMu.Lock()
	defer m.jobsMu.Unlock()

	job, err := m.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := job.Clone()
	applyInput(job, &in, expr)
	job.UpdatedAt = m.now().UTC()

	if err := m.store.UpdateJob(ctx, job); err != nil {
		return nil, err
	}
	if err := m.scheduler.Schedule(job); err != nil {
		m.restoreJob(ctx, previous)
		return nil, err
	}

	logging.Ctx(ctx).Info().Str("job_id", job.ID).Str("label", job.Label).
		Str("schedule", job.Schedule).Bool("enabled", job.Enabled).Msg("Job updated")
	return job, nil
}

// restoreJob puts back the record and timer an update replaced. Failures are
// logged; the caller already reports the original error.
func (m *Manager) restoreJob(ctx context.Context, previous *models.Job) {
	log := logging.Ctx(ctx).With().Str("job_id", previous.ID).Logger()
	if err := m.store.UpdateJob(ctx, previous); err != nil {
		log.Error().Err(err).Msg("Failed to roll back job update")
		return
	}
	if err := m.scheduler.Schedule(previous); err != nil {
		log.Error().Err(err).Str("schedule", previous.Schedule).Msg("Failed to restore previous schedule")
	}
}

// Delete cancels the job's timer and removes it. It returns the removed job.
func (m *Manager) Delete(ctx context.Context, id string) (*models.Job, error) {
	m.jobsMu.Lock()
	defer m.jobsMu.Unlock()

	job, err := m.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	m.scheduler.Unschedule(id)
	if err := m.store.DeleteJob(ctx, id); err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Info().Str("job_id", id).Str("label", job.Label).Msg("Job deleted")
	return job, nil
}

// RunNow spawns the job's backup immediately. The returned record is in the
// running state; a spawn failure is returned as an error.
func (m *Manager) RunNow(ctx context.Context, id string) (*models.RunRecord, error) {
	job, err := m.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.scheduler.RunNow(ctx, job)
}

// Runs returns the run history, most recent first. An empty jobID returns all runs.
func (m *Manager) Runs(jobID string) []models.RunRecord {
	return m.scheduler.Runs(jobID)
}

// Labels returns one entry per distinct label across jobs, sorted by label.
// When several jobs share a label the oldest job's remote settings win.
func (m *Manager) Labels(ctx context.Context) ([]models.LabelInfo, error) {
	jobs, err := m.store.ListJobs(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(jobs))
	labels := make([]models.LabelInfo, 0, len(jobs))
	for _, j := range jobs {
		if seen[j.Label] {
			continue
		}
		seen[j.Label] = true
		labels = append(labels, models.LabelInfo{Label: j.Label, UseRemote: j.UseRemote, RemoteName: j.RemoteName})
	}
	sort.Slice(labels, func(i, k int) bool { return labels[i].Label < labels[k].Label })
	return labels, nil
}
