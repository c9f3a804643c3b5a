// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

// Package restore runs restore requests to completion.
//
// A request moves through Requested, then Fetching (remote archives only),
// then Restoring, and ends Completed or Failed. Every request is awaited;
// the caller receives the terminal Result.
package restore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/tomtom215/labelkeeper/internal/logging"
	"github.com/tomtom215/labelkeeper/internal/metrics"
	"github.com/tomtom215/labelkeeper/internal/remote"
	"github.com/tomtom215/labelkeeper/internal/runner"
	"github.com/tomtom215/labelkeeper/internal/validation"
)

// State is a restore request state.
type State string

const (
	StateRequested State = "requested"
	StateFetching  State = "fetching"
	StateRestoring State = "restoring"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// ErrInvalidRequest is matched by every *ValidationError.
var ErrInvalidRequest = errors.New("invalid restore request")

// ValidationError rejects a request before any process is spawned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidRequest }

// Request asks for one archive to be restored.
type Request struct {
	Label      string `json:"label"`
	BackupFile string `json:"backup_file"`
	IsRemote   bool   `json:"is_remote"`
	RemoteName string `json:"remote_name"`
}

// Transition is one state change.
type Transition struct {
	State  State     `json:"state"`
	At     time.Time `json:"at"`
	Detail string    `json:"detail,omitempty"`
}

// Result is the terminal outcome of a request.
type Result struct {
	State       State        `json:"state"`
	Details     string       `json:"details"`
	ExitCode    int          `json:"exit_code"`
	Stdout      string       `json:"stdout"`
	Stderr      string       `json:"stderr"`
	Transitions []Transition `json:"transitions"`
}

// FailedStep names the step that failed, or "" when the restore completed.
func (r *Result) FailedStep() string {
	if r.State != StateFailed || len(r.Transitions) < 2 {
		return ""
	}
	return string(r.Transitions[len(r.Transitions)-2].State)
}

// Copier fetches an archive from a remote. *remote.Client satisfies it.
type Copier interface {
	Copy(ctx context.Context, remoteName, file, dir string) (*runner.Result, error)
}

// Executor runs a command to completion. *runner.Runner satisfies it.
type Executor interface {
	Run(ctx context.Context, c runner.Command) (*runner.Result, error)
}

// Config configures the restore executable.
type Config struct {
	Shell     string
	Script    string
	BackupDir string
}

// Orchestrator runs restore requests.
type Orchestrator struct {
	cfg    Config
	exec   Executor
	copier Copier
	now    func() time.Time
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(cfg Config, exec Executor, copier Copier) *Orchestrator {
	return &Orchestrator{cfg: cfg, exec: exec, copier: copier, now: time.Now}
}

// Validate checks a request without running anything.
func Validate(req Request) error {
	if req.Label == "" {
		return &ValidationError{Field: "label", Reason: "is required"}
	}
	if !validation.IsLabel(req.Label) {
		return &ValidationError{Field: "label", Reason: "must be a plain label without path separators"}
	}
	if req.BackupFile == "" {
		return &ValidationError{Field: "backup_file", Reason: "is required"}
	}
	if !validation.IsBaseName(req.BackupFile) {
		return &ValidationError{Field: "backup_file", Reason: "must be a file name without directories"}
	}
	if req.IsRemote && req.RemoteName == "" {
		return &ValidationError{Field: "remote_name", Reason: "is required for remote restores"}
	}
	if req.IsRemote && !validation.IsRemoteName(req.RemoteName) {
		return &ValidationError{Field: "remote_name", Reason: "must be a plain rclone remote name"}
	}
	return nil
}

// Restore runs req to a terminal state. A non-zero exit of either step is
// reported in the Result with state failed, not as an error. Invalid requests
// return a *ValidationError and no Result. Spawn failures and runner
// timeouts return the error together with the failed Result.
//
// The fetch and the restore script are detached from ctx cancellation; a
// caller that goes away mid-restore leaves them running. Only the runner's
// own timeout stops them.
func (o *Orchestrator) Restore(ctx context.Context, req Request) (*Result, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	runCtx := context.WithoutCancel(ctx)

	log := logging.Ctx(ctx).With().Str("label", req.Label).Str("file", req.BackupFile).
		Bool("remote", req.IsRemote).Logger()

	res := &Result{}
	o.enter(res, StateRequested, "")

	if req.IsRemote {
		o.enter(res, StateFetching, "copying from "+req.RemoteName)
		log.Info().Str("remote_name", req.RemoteName).Msg("Fetching archive from remote")

		fetched, err := o.copier.Copy(runCtx, req.RemoteName, req.BackupFile, o.cfg.BackupDir)
		if fetched != nil {
			res.Stdout, res.Stderr, res.ExitCode = fetched.Stdout, fetched.Stderr, fetched.ExitCode
		}
		if errors.Is(err, remote.ErrCopy) {
			return o.fail(res, req, "Failed to fetch backup from remote", err.Error()), nil
		}
		if err != nil {
			return o.fail(res, req, "Failed to fetch backup from remote", err.Error()), err
		}
	}

	o.enter(res, StateRestoring, "")
	log.Info().Msg("Restoring archive")

	run, err := o.exec.Run(runCtx, o.restoreCommand(req))
	if run != nil {
		res.Stdout, res.Stderr, res.ExitCode = run.Stdout, run.Stderr, run.ExitCode
	}
	if err != nil {
		return o.fail(res, req, "Restore did not complete", err.Error()), err
	}
	if run.ExitCode != 0 {
		return o.fail(res, req, fmt.Sprintf("Restore failed with exit code %d", run.ExitCode), ""), nil
	}

	res.Details = "Restore completed"
	o.enter(res, StateCompleted, "")
	metrics.RecordRestore(req.IsRemote, string(StateCompleted))
	log.Info().Msg("Restore completed")
	return res, nil
}

// fail moves res to Failed.
func (o *Orchestrator) fail(res *Result, req Request, details, detail string) *Result {
	res.Details = details
	o.enter(res, StateFailed, detail)
	metrics.RecordRestore(req.IsRemote, string(StateFailed))
	logging.Warn().Str("label", req.Label).Str("file", req.BackupFile).Str("detail", detail).
		Int("exit_code", res.ExitCode).Str("stderr", res.Stderr).Msg(details)
	return res
}

func (o *Orchestrator) enter(res *Result, s State, detail string) {
	res.State = s
	res.Transitions = append(res.Transitions, Transition{State: s, At: o.now(), Detail: detail})
}

func (o *Orchestrator) restoreCommand(req Request) runner.Command {
	args := []string{req.Label, filepath.Join(o.cfg.BackupDir, req.BackupFile), o.cfg.BackupDir}
	name := o.cfg.Script
	if o.cfg.Shell != "" {
		name = o.cfg.Shell
		args = append([]string{o.cfg.Script}, args...)
	}
	return runner.Command{Name: name, Args: args, Kind: "restore", Label: req.Label}
}
