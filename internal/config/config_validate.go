// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

package config

import (
	"fmt"
	"strings"
)

// minJWTSecretLength is the shortest accepted explicit JWT_SECRET.
const minJWTSecretLength = 32

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

var validStoreBackends = map[string]bool{
	"badger": true,
	"memory": true,
}

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validatePaths(); err != nil {
		return err
	}

	if err := c.validateBackup(); err != nil {
		return err
	}

	if err := c.validateRunner(); err != nil {
		return err
	}

	if err := c.validateRemote(); err != nil {
		return err
	}

	if err := c.validateScheduler(); err != nil {
		return err
	}

	if err := c.validateStore(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.IdleTimeout < 0 {
		return fmt.Errorf("HTTP timeouts must not be negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.BackupDir) == "" {
		return fmt.Errorf("BACKUP_DIR is required")
	}
	if strings.TrimSpace(c.Paths.RemoteConfig) == "" {
		return fmt.Errorf("RCLONE_CONFIG is required")
	}
	return nil
}

func (c *Config) validateBackup() error {
	if strings.TrimSpace(c.Backup.Script) == "" {
		return fmt.Errorf("BACKUP_SCRIPT is required")
	}
	if strings.TrimSpace(c.Backup.RestoreScript) == "" {
		return fmt.Errorf("RESTORE_SCRIPT is required")
	}
	if !strings.HasPrefix(c.Backup.ArchiveExtension, ".") {
		return fmt.Errorf("ARCHIVE_EXTENSION must start with '.', got %q", c.Backup.ArchiveExtension)
	}
	return nil
}

func (c *Config) validateRunner() error {
	if c.Runner.Timeout < 0 {
		return fmt.Errorf("RUNNER_TIMEOUT must not be negative")
	}
	if c.Runner.MaxOutputBytes <= 0 {
		return fmt.Errorf("RUNNER_MAX_OUTPUT_BYTES must be positive, got %d", c.Runner.MaxOutputBytes)
	}
	return nil
}

func (c *Config) validateRemote() error {
	if strings.TrimSpace(c.Remote.Binary) == "" {
		return fmt.Errorf("RCLONE_BINARY is required")
	}
	if c.Remote.BreakerFailures == 0 {
		return fmt.Errorf("REMOTE_BREAKER_FAILURES must be at least 1")
	}
	if c.Remote.BreakerTimeout <= 0 {
		return fmt.Errorf("REMOTE_BREAKER_TIMEOUT must be positive")
	}
	if c.Remote.RateLimit < 0 {
		return fmt.Errorf("REMOTE_RATE_LIMIT must not be negative")
	}
	if c.Remote.RateLimit > 0 && c.Remote.RateBurst < 1 {
		return fmt.Errorf("REMOTE_RATE_BURST must be at least 1 when a rate limit is set")
	}
	return nil
}

func (c *Config) validateScheduler() error {
	if _, err := c.Scheduler.Location(); err != nil {
		return fmt.Errorf("TZ_LOCATION: %w", err)
	}
	if c.Scheduler.HistorySize < 1 {
		return fmt.Errorf("RUN_HISTORY_SIZE must be at least 1, got %d", c.Scheduler.HistorySize)
	}
	return nil
}

func (c *Config) validateStore() error {
	if !validStoreBackends[c.Store.Backend] {
		return fmt.Errorf("STORE_BACKEND must be one of: badger, memory")
	}
	if c.Store.Backend == "badger" && strings.TrimSpace(c.Store.Path) == "" {
		return fmt.Errorf("STORE_PATH is required for the badger backend")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.JWTSecret != "" && len(c.Security.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength)
	}
	if c.Security.SessionTimeout <= 0 {
		return fmt.Errorf("SESSION_TIMEOUT must be positive")
	}
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got %d", c.Security.RateLimitReqs)
	}
	if c.Security.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	if c.Security.LoginRateLimitReqs <= 0 {
		return fmt.Errorf("LOGIN_RATE_LIMIT_REQUESTS must be positive, got %d", c.Security.LoginRateLimitReqs)
	}
	return nil
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// ShouldWarnAboutCORS reports a wildcard origin combined with authentication.
func (c *Config) ShouldWarnAboutCORS() bool {
	if !c.Security.AuthEnabled() {
		return false
	}
	for _, o := range c.Security.CORSOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}
