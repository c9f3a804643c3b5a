// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/labelkeeper/internal/archive"
	"github.com/tomtom215/labelkeeper/internal/logging"
	"github.com/tomtom215/labelkeeper/internal/metrics"
	"github.com/tomtom215/labelkeeper/internal/models"
	"github.com/tomtom215/labelkeeper/internal/runner"
)

// ArchiveNameEnv carries the suggested archive file name to the backup executable.
const ArchiveNameEnv = "LABELKEEPER_ARCHIVE_NAME"

// stderrTailBytes is how much stderr a run record keeps.
const stderrTailBytes = 4 << 10

// BackupArgs builds the positional arguments of the backup executable:
// label, backup dir, remote config path, use-remote flag, remote name and
// the ignore pattern alternation.
func BackupArgs(job *models.Job, settings *models.Settings, backupDir, remoteConfigPath string) []string {
	return []string{
		job.Label,
		backupDir,
		remoteConfigPath,
		strconv.FormatBool(job.UseRemote),
		job.RemoteName,
		settings.IgnorePattern(),
	}
}

func (s *Scheduler) backupCommand(job *models.Job, settings *models.Settings, at time.Time) runner.Command {
	args := BackupArgs(job, settings, s.cfg.BackupDir, s.cfg.RemoteConfigPath)
	name := s.cfg.Script
	if s.cfg.Shell != "" {
		name = s.cfg.Shell
		args = append([]string{s.cfg.Script}, args...)
	}
	ext := s.cfg.ArchiveExt
	if ext == "" {
		ext = archive.DefaultExtension
	}
	return runner.Command{
		Name:  name,
		Args:  args,
		Env:   []string{ArchiveNameEnv + "=" + archive.NameWithExt(job.Label, at, ext)},
		Kind:  "backup",
		Label: job.Label,
	}
}

// RunNow fires job immediately, independent of its timer and of any run
// already in progress. It returns once the process has been spawned, with a
// record in the running state; completion is recorded in the background.
// A spawn failure is returned to the caller.
func (s *Scheduler) RunNow(ctx context.Context, job *models.Job) (*models.RunRecord, error) {
	snapshot := job.Clone()
	// The run outlives the request that triggered it.
	runCtx := context.WithoutCancel(ctx)

	rec, proc, err := s.begin(runCtx, snapshot, models.TriggerManual)
	if err != nil {
		return rec, err
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.finish(snapshot, rec, proc)
	}()
	return rec, nil
}

// runScheduled is the timer callback. It runs on the backend's goroutine and
// returns when the run is complete.
func (s *Scheduler) runScheduled(job *models.Job) {
	rec, proc, err := s.begin(context.Background(), job, models.TriggerScheduled)
	if err != nil {
		return
	}
	s.finish(job, rec, proc)
}

// begin reloads settings and spawns the backup process.
func (s *Scheduler) begin(ctx context.Context, job *models.Job, trigger models.Trigger) (*models.RunRecord, *runner.Process, error) {
	settings := s.reloadSettings(ctx)
	startedAt := s.now()

	rec := &models.RunRecord{
		RunID:     uuid.NewString(),
		JobID:     job.ID,
		Label:     job.Label,
		Trigger:   trigger,
		Status:    models.RunStatusRunning,
		StartedAt: startedAt,
	}

	log := logging.ForRun(job.ID, job.Label, rec.RunID, string(trigger))

	proc, err := s.runner.Start(ctx, s.backupCommand(job, settings, startedAt))
	if err != nil {
		finished := s.now()
		rec.Status = models.RunStatusFailed
		rec.Error = err.Error()
		rec.FinishedAt = &finished
		s.history.add(rec)
		metrics.RecordBackupRun(string(trigger), string(models.RunStatusFailed), 0)
		log.Error().Err(err).Msg("Failed to start backup")
		return cloneRecord(rec), nil, err
	}

	metrics.BackupRunsInFlight.Inc()
	s.history.add(rec)
	log.Info().Int("pid", proc.PID()).Msg("Backup started")
	return cloneRecord(rec), proc, nil
}

// finish awaits proc, applies rotation and records the outcome.
func (s *Scheduler) finish(job *models.Job, rec *models.RunRecord, proc *runner.Process) {
	res, err := proc.Wait()
	metrics.BackupRunsInFlight.Dec()

	log := logging.ForRun(job.ID, job.Label, rec.RunID, string(rec.Trigger))

	status := models.RunStatusSucceeded
	var (
		exitCode *int
		stderr   string
		errMsg   string
		rotated  []string
		duration time.Duration
	)
	if res != nil {
		code := res.ExitCode
		exitCode = &code
		stderr = tail(res.Stderr, stderrTailBytes)
		duration = res.Duration
	}

	switch {
	case err != nil:
		status = models.RunStatusFailed
		errMsg = err.Error()
		log.Error().Err(err).Str("stderr", stderr).Msg("Backup did not complete")
	case res.ExitCode != 0:
		status = models.RunStatusFailed
		errMsg = fmt.Sprintf("backup exited with code %d", res.ExitCode)
		log.Error().Int("exit_code", res.ExitCode).Str("stderr", stderr).Msg("Backup failed")
	default:
		log.Info().Dur("duration", duration).Msg("Backup completed")
		if !job.UseRemote && s.rotator != nil {
			deleted, rerr := s.rotator.Rotate(job.Label, job.RetentionCount)
			if rerr != nil {
				log.Warn().Err(rerr).Msg("Retention rotation incomplete")
			}
			rotated = deleted
		}
	}

	finished := s.now()
	s.history.update(rec.RunID, func(r *models.RunRecord) {
		r.Status = status
		r.ExitCode = exitCode
		r.Error = errMsg
		r.StderrTail = stderr
		r.Rotated = rotated
		r.FinishedAt = &finished
	})
	metrics.RecordBackupRun(string(rec.Trigger), string(status), duration)
}

func (s *Scheduler) recordSkipped(job *models.Job) {
	now := s.now()
	rec := &models.RunRecord{
		RunID:      uuid.NewString(),
		JobID:      job.ID,
		Label:      job.Label,
		Trigger:    models.TriggerScheduled,
		Status:     models.RunStatusSkipped,
		Error:      "previous run still in progress",
		StartedAt:  now,
		FinishedAt: &now,
	}
	s.history.add(rec)
	metrics.RecordBackupRun(string(models.TriggerScheduled), string(models.RunStatusSkipped), 0)
	logging.Warn().Str("job_id", job.ID).Str("label", job.Label).Msg("Skipping scheduled backup, previous run still in progress")
}

// tail returns the last n bytes of s.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
