// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration loaded from defaults, an
// optional config file and environment variables.
//
// Configuration Categories:
//
//  1. Infrastructure:
//     - Server: HTTP listener and timeouts
//     - Store: Job and settings persistence
//
//  2. Backup Engine:
//     - Paths: Backup directory, rclone config file, state directory
//     - Backup: Executables invoked for backup and restore
//     - Runner: Child process limits
//     - Remote: rclone binary, circuit breaker and rate limit
//     - Scheduler: Timezone, overlap policy, run history
//
//  3. API & Security:
//     - Security: Admin password, tokens, CORS, rate limiting
//
//  4. Observability:
//     - Logging: Log levels and output formats
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Paths     PathsConfig     `koanf:"paths"`
	Backup    BackupConfig    `koanf:"backup"`
	Runner    RunnerConfig    `koanf:"runner"`
	Remote    RemoteConfig    `koanf:"remote"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Store     StoreConfig     `koanf:"store"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host         string        `koanf:"host"`
	Port         int           `koanf:"port"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"` // 0 disables; restores answer only when finished
	IdleTimeout  time.Duration `koanf:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown of the listener and the scheduler.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// PathsConfig holds filesystem locations shared with the backup executables.
type PathsConfig struct {
	BackupDir    string `koanf:"backup_dir"`
	RemoteConfig string `koanf:"remote_config"`
	DataDir      string `koanf:"data_dir"`
}

// BackupConfig names the executables that produce and restore archives.
type BackupConfig struct {
	// Shell runs the scripts when set; empty executes them directly.
	Shell            string `koanf:"shell"`
	Script           string `koanf:"script"`
	RestoreScript    string `koanf:"restore_script"`
	ArchiveExtension string `koanf:"archive_extension"`
}

// RunnerConfig holds child process limits.
type RunnerConfig struct {
	// Timeout kills a child that runs longer. 0 means no limit.
	Timeout        time.Duration `koanf:"timeout"`
	MaxOutputBytes int           `koanf:"max_output_bytes"`
	LogOutput      bool          `koanf:"log_output"`
}

// RemoteConfig holds rclone invocation settings.
type RemoteConfig struct {
	Binary          string        `koanf:"binary"`
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`
	RateLimit       float64       `koanf:"rate_limit"` // rclone invocations per second, 0 = unlimited
	RateBurst       int           `koanf:"rate_burst"`
}

// SchedulerConfig holds trigger scheduler settings.
type SchedulerConfig struct {
	// Timezone is an IANA zone name, "Local" or "UTC". Cron expressions are
	// evaluated in this zone.
	Timezone        string `koanf:"timezone"`
	SkipOverlapping bool   `koanf:"skip_overlapping"`
	HistorySize     int    `koanf:"history_size"`
}

// Location resolves Timezone.
func (s SchedulerConfig) Location() (*time.Location, error) {
	switch strings.TrimSpace(s.Timezone) {
	case "", "Local", "local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend string `koanf:"backend"` // "badger" or "memory"
	Path    string `koanf:"path"`
}

// SecurityConfig holds authentication and HTTP protection settings
type SecurityConfig struct {
	// AdminPassword enables token authentication when non-empty.
	AdminPassword   string        `koanf:"admin_password"`
	JWTSecret       string        `koanf:"jwt_secret"`
	SessionTimeout  time.Duration `koanf:"session_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	// Applies to POST /auth/login on top of the general limit.
	LoginRateLimitReqs int  `koanf:"login_rate_limit_reqs"`
	RateLimitDisabled  bool `koanf:"rate_limit_disabled"`
}

// AuthEnabled reports whether API routes require a token.
func (s SecurityConfig) AuthEnabled() bool {
	return s.AdminPassword != ""
}

// LoggingConfig holds logging configuration.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false - include caller file:line (default: false)
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	// Default: false
	Caller bool `koanf:"caller"`
}

// Load loads configuration using Koanf with layered sources.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
