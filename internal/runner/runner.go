// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

// Package runner supervises external processes: the backup and restore
// executables and the rclone client.
//
// One Start spawns exactly one OS process. Its stdout and stderr are captured
// into bounded tail buffers and streamed line by line to the logger. The
// caller awaits a single Result through Process.Wait. A non-zero exit code is
// part of the Result, not an error; only spawn failures, timeouts and I/O
// failures are returned as errors.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/tomtom215/labelkeeper/internal/logging"
	"github.com/tomtom215/labelkeeper/internal/metrics"
)

// DefaultMaxOutputBytes is the per-stream tail kept when none is configured.
const DefaultMaxOutputBytes = 1 << 20

// waitDelay bounds how long Wait blocks on output pipes held open by
// grandchildren after the child itself has exited or been killed.
const waitDelay = 10 * time.Second

var (
	// ErrSpawn is matched by every *SpawnError.
	ErrSpawn = errors.New("process spawn failed")

	// ErrTimeout is returned by Wait when the configured timeout killed the process.
	ErrTimeout = errors.New("process timed out")
)

// SpawnError means the process never started (missing executable,
// permission denied, bad working directory).
type SpawnError struct {
	Name string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %s: %v", e.Name, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrSpawn) work.
func (e *SpawnError) Is(target error) bool { return target == ErrSpawn }

// Command describes one invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	// Env entries are appended to the parent environment.
	Env []string

	// Kind ("backup", "restore", "rclone-list", ...) labels metrics and logs.
	Kind string
	// Label tags streamed output lines.
	Label string
	// Timeout overrides the runner default when non-zero.
	Timeout time.Duration
}

// Result is the terminal state of a process.
type Result struct {
	ExitCode        int           `json:"exit_code"`
	Stdout          string        `json:"stdout"`
	Stderr          string        `json:"stderr"`
	StdoutTruncated bool          `json:"stdout_truncated,omitempty"`
	StderrTruncated bool          `json:"stderr_truncated,omitempty"`
	StartedAt       time.Time     `json:"started_at"`
	Duration        time.Duration `json:"duration"`
}

// Success reports a zero exit code.
func (r *Result) Success() bool {
	return r != nil && r.ExitCode == 0
}

// Config configures a Runner.
type Config struct {
	// Timeout kills processes that run longer. Zero means no timeout.
	Timeout time.Duration
	// MaxOutputBytes is the tail kept per stream.
	MaxOutputBytes int
	// LogOutput streams child output lines to the logger.
	LogOutput bool
}

// Runner starts supervised processes. It is safe for concurrent use.
type Runner struct {
	cfg Config
}

// New creates a Runner.
func New(cfg Config) *Runner {
	if cfg.MaxOutputBytes <= 0 {
		cfg.MaxOutputBytes = DefaultMaxOutputBytes
	}
	return &Runner{cfg: cfg}
}

// Process is a started child. Wait may be called any number of times from
// any goroutine; all callers observe the same Result.
type Process struct {
	pid    int
	done   chan struct{}
	result *Result
	err    error
}

// PID returns the OS process id.
func (p *Process) PID() int { return p.pid }

// Done is closed once the process has exited and its output is drained.
func (p *Process) Done() <-chan struct{} { return p.done }

// Wait blocks until the process exits and returns its Result.
// The Result is non-nil whenever the process started.
func (p *Process) Wait() (*Result, error) {
	<-p.done
	return p.result, p.err
}

// Run starts the command and waits for it.
func (r *Runner) Run(ctx context.Context, c Command) (*Result, error) {
	p, err := r.Start(ctx, c)
	if err != nil {
		return nil, err
	}
	return p.Wait()
}

// Start spawns the command and returns once the process is running.
// Cancelling ctx kills the process.
func (r *Runner) Start(ctx context.Context, c Command) (*Process, error) {
	kind := c.Kind
	if kind == "" {
		kind = "process"
	}

	timeout := c.Timeout
	if timeout == 0 {
		timeout = r.cfg.Timeout
	}
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}

	cmd := exec.CommandContext(runCtx, c.Name, c.Args...) //nolint:gosec // commands come from server configuration
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(cmd.Environ(), c.Env...)
	}
	cmd.WaitDelay = waitDelay

	stdout := NewTailBuffer(r.cfg.MaxOutputBytes)
	stderr := NewTailBuffer(r.cfg.MaxOutputBytes)
	var stdoutLog, stderrLog *logging.LineWriter
	if r.cfg.LogOutput {
		stdoutLog, stderrLog = logging.NewProcessWriters(kind, c.Label)
		cmd.Stdout = io.MultiWriter(stdout, stdoutLog)
		cmd.Stderr = io.MultiWriter(stderr, stderrLog)
	} else {
		cmd.Stdout = stdout
		cmd.Stderr = stderr
	}

	startedAt := time.Now()
	if err := cmd.Start(); err != nil {
		cancel()
		metrics.RecordSubprocess(kind, metrics.OutcomeSpawnError, 0)
		logging.Error().Err(err).Str("kind", kind).Str("label", c.Label).Str("command", c.Name).Msg("Failed to start process")
		return nil, &SpawnError{Name: c.Name, Err: err}
	}

	p := &Process{pid: cmd.Process.Pid, done: make(chan struct{})}
	logging.Debug().Str("kind", kind).Str("label", c.Label).Int("pid", p.pid).Msg("Process started")

	go func() {
		defer close(p.done)
		defer cancel()

		waitErr := cmd.Wait()
		if stdoutLog != nil {
			stdoutLog.Flush()
			stderrLog.Flush()
		}

		res := &Result{
			ExitCode:        exitCode(cmd, waitErr),
			Stdout:          stdout.String(),
			Stderr:          stderr.String(),
			StdoutTruncated: stdout.Truncated(),
			StderrTruncated: stderr.Truncated(),
			StartedAt:       startedAt,
			Duration:        time.Since(startedAt),
		}
		p.result = res

		outcome := metrics.OutcomeSuccess
		switch {
		case errors.Is(runCtx.Err(), context.DeadlineExceeded) && timeout > 0:
			p.err = fmt.Errorf("%s after %s: %w", c.Name, timeout, ErrTimeout)
			outcome = metrics.OutcomeTimeout
		case runCtx.Err() != nil && ctx.Err() != nil:
			p.err = ctx.Err()
			outcome = metrics.OutcomeError
		case waitErr != nil && !isExitError(waitErr):
			p.err = fmt.Errorf("wait for %s: %w", c.Name, waitErr)
			outcome = metrics.OutcomeError
		case res.ExitCode != 0:
			outcome = metrics.OutcomeNonZero
		}
		metrics.RecordSubprocess(kind, outcome, res.Duration)
		if res.StdoutTruncated {
			metrics.SubprocessOutputTruncated.WithLabelValues(kind, "stdout").Inc()
		}
		if res.StderrTruncated {
			metrics.SubprocessOutputTruncated.WithLabelValues(kind, "stderr").Inc()
		}

		logging.Debug().Str("kind", kind).Str("label", c.Label).Int("pid", p.pid).
			Int("exit_code", res.ExitCode).Dur("duration", res.Duration).Msg("Process exited")
	}()

	return p, nil
}

func isExitError(err error) bool {
	var ee *exec.ExitError
	return errors.As(err, &ee)
}

// exitCode returns the child's exit status, or -1 when it was terminated by
// a signal or never reported one.
func exitCode(cmd *exec.Cmd, waitErr error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	if waitErr != nil {
		return -1
	}
	return 0
}
