// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

// Package remote drives the rclone client for listing and fetching archives
// on named remotes.
//
// Every operation is a single rclone invocation run through the shared
// process runner:
//
//	rclone lsf --config=<ConfigPath> <remote>:/          (ls when recursive)
//	rclone copy <remote>:/<file> <dir> --config=<ConfigPath>
//
// Remote names are checked with validation.IsRemoteName before any process
// starts. A name beginning with "-" would otherwise be read by rclone as a
// flag, and one carrying ":" or "/" would address a path on a different
// backend.
//
// Listing is wrapped in a gobreaker circuit breaker. After BreakerFailures
// consecutive failures, List fails fast with a *ListError naming the breaker
// state until BreakerTimeout has passed. Copy is not behind the breaker.
//
// Both operations share a token bucket (golang.org/x/time/rate) when
// RateLimit is set.
package remote

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/labelkeeper/internal/archive"
	"github.com/tomtom215/labelkeeper/internal/logging"
	"github.com/tomtom215/labelkeeper/internal/metrics"
	"github.com/tomtom215/labelkeeper/internal/runner"
	"github.com/tomtom215/labelkeeper/internal/validation"
)

const breakerName = "rclone-list"

// ErrInvalidRemote is returned before rclone is started for a remote name
// that could be parsed as a flag or a path.
var ErrInvalidRemote = errors.New("invalid remote name")

// Executor runs one command to completion. *runner.Runner satisfies it.
type Executor interface {
	Run(ctx context.Context, c runner.Command) (*runner.Result, error)
}

// Config configures a Client.
type Config struct {
	// Binary is the rclone executable.
	Binary string
	// ConfigPath is passed as --config.
	ConfigPath string
	// ArchiveExt is the archive suffix listings filter on. It must match the
	// extension the backup executable writes. Default: archive.DefaultExtension
	ArchiveExt string

	// BreakerFailures is the number of consecutive listing failures that
	// open the circuit.
	BreakerFailures uint32
	// BreakerTimeout is how long the circuit stays open before probing.
	BreakerTimeout time.Duration

	// RateLimit caps rclone invocations per second. Zero disables limiting.
	RateLimit float64
	RateBurst int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Binary:          "rclone",
		ConfigPath:      "/rclone/rclone.conf",
		ArchiveExt:      archive.DefaultExtension,
		BreakerFailures: 5,
		BreakerTimeout:  time.Minute,
		RateLimit:       2,
		RateBurst:       4,
	}
}

// Client lists and copies archives through rclone.
type Client struct {
	cfg     Config
	exec    Executor
	cb      *gobreaker.CircuitBreaker[[]string]
	limiter *rate.Limiter
}

// NewClient creates a Client.
func NewClient(cfg Config, exec Executor) *Client {
	def := DefaultConfig()
	if cfg.Binary == "" {
		cfg.Binary = def.Binary
	}
	if cfg.ArchiveExt == "" {
		cfg.ArchiveExt = def.ArchiveExt
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = def.BreakerFailures
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = def.BreakerTimeout
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	threshold := cfg.BreakerFailures
	cb := gobreaker.NewCircuitBreaker[[]string](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// Cancelled callers say nothing about the remote's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("Circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	limit := rate.Inf
	burst := cfg.RateBurst
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
		if burst <= 0 {
			burst = 1
		}
	}

	return &Client{
		cfg:     cfg,
		exec:    exec,
		cb:      cb,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// ConfigPath returns the rclone config file path.
func (c *Client) ConfigPath() string { return c.cfg.ConfigPath }

// BreakerState reports the listing circuit breaker state.
func (c *Client) BreakerState() gobreaker.State { return c.cb.State() }

// List returns the archives of label on remoteName, newest first.
// recursive switches from "lsf" to "ls" and takes the final token of each line.
func (c *Client) List(ctx context.Context, remoteName, label string, recursive bool) ([]string, error) {
	if !validation.IsRemoteName(remoteName) {
		return nil, fmt.Errorf("list %q: %w", remoteName, ErrInvalidRemote)
	}
	names, err := c.cb.Execute(func() ([]string, error) {
		return c.list(ctx, remoteName, label, recursive)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RemoteListingsTotal.WithLabelValues("rejected").Inc()
			logging.Warn().Err(err).Str("remote", remoteName).Msg("Remote listing rejected by circuit breaker")
			return nil, &ListError{
				Remote:   remoteName,
				ExitCode: -1,
				Detail:   fmt.Sprintf("circuit breaker %s", c.cb.State()),
				Err:      err,
			}
		}
		metrics.RemoteListingsTotal.WithLabelValues("failure").Inc()
		return nil, err
	}
	metrics.RemoteListingsTotal.WithLabelValues("success").Inc()
	return names, nil
}

func (c *Client) list(ctx context.Context, remoteName, label string, recursive bool) ([]string, error) {
	sub := "lsf"
	kind := "rclone-lsf"
	if recursive {
		sub = "ls"
		kind = "rclone-ls"
	}

	res, err := c.run(ctx, runner.Command{
		Name:  c.cfg.Binary,
		Args:  []string{sub, "--config=" + c.cfg.ConfigPath, remoteName + ":/"},
		Kind:  kind,
		Label: label,
	})
	if err != nil {
		return nil, &ListError{Remote: remoteName, ExitCode: -1, Detail: err.Error(), Err: err}
	}
	if res.ExitCode != 0 {
		logging.Warn().Str("remote", remoteName).Int("exit_code", res.ExitCode).Str("stderr", res.Stderr).
			Msg("Remote listing failed")
		return nil, &ListError{Remote: remoteName, ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	return ParseListing(res.Stdout, label, c.cfg.ArchiveExt), nil
}

// Copy fetches file from remoteName into dir.
func (c *Client) Copy(ctx context.Context, remoteName, file, dir string) (*runner.Result, error) {
	if !validation.IsRemoteName(remoteName) {
		return nil, fmt.Errorf("copy from %q: %w", remoteName, ErrInvalidRemote)
	}
	if !validation.IsBaseName(file) {
		return nil, fmt.Errorf("copy %q: not a plain file name", file)
	}
	res, err := c.run(ctx, runner.Command{
		Name:  c.cfg.Binary,
		Args:  []string{"copy", remoteName + ":/" + file, dir, "--config=" + c.cfg.ConfigPath},
		Kind:  "rclone-copy",
		Label: file,
	})
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return res, &CopyError{Remote: remoteName, File: file, ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	return res, nil
}

func (c *Client) run(ctx context.Context, cmd runner.Command) (*runner.Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rclone rate limit: %w", err)
	}
	return c.exec.Run(ctx, cmd)
}

// ParseListing extracts the archives of label with extension ext from rclone
// output, newest first. Each non-empty line contributes the base name of its
// final whitespace-separated token.
func ParseListing(out, label, ext string) []string {
	var names []string
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		names = append(names, path.Base(fields[len(fields)-1]))
	}
	return archive.FilterNewestFirstExt(label, ext, names)
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
