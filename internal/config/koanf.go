// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/labelkeeper/config.yaml",
	"/etc/labelkeeper/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    0,
			IdleTimeout:     2 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
		},
		Paths: PathsConfig{
			BackupDir:    "/backups",
			RemoteConfig: "/rclone/rclone.conf",
			DataDir:      "/data",
		},
		Backup: BackupConfig{
			Shell:            "bash",
			Script:           "/app/backup.sh",
			RestoreScript:    "/app/restore.sh",
			ArchiveExtension: ".tar.gz",
		},
		Runner: RunnerConfig{
			Timeout:        0, // Backups of large labels can take hours
			MaxOutputBytes: 1 << 20,
			LogOutput:      true,
		},
		Remote: RemoteConfig{
			Binary:          "rclone",
			BreakerFailures: 5,
			BreakerTimeout:  time.Minute,
			RateLimit:       2,
			RateBurst:       4,
		},
		Scheduler: SchedulerConfig{
			Timezone:        "Local",
			SkipOverlapping: false,
			HistorySize:     200,
		},
		Store: StoreConfig{
			Backend: "badger",
			Path:    "/data/labelkeeper",
		},
		Security: SecurityConfig{
			AdminPassword:      "",
			JWTSecret:          "",
			SessionTimeout:     24 * time.Hour,
			CORSOrigins:        []string{"*"},
			RateLimitReqs:      100,
			RateLimitWindow:    time.Minute,
			LoginRateLimitReqs: 10,
			RateLimitDisabled:  false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// BACKUP_DIR -> paths.backup_dir, TZ_LOCATION -> scheduler.timezone
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML file or defaults)
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		if strVal, ok := val.(string); ok {
			if strVal == "" {
				continue
			}
			parts := strings.Split(strVal, ",")
			trimmed := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					trimmed = append(trimmed, p)
				}
			}
			if len(trimmed) > 0 {
				if err := k.Set(path, trimmed); err != nil {
					return fmt.Errorf("failed to set %s: %w", path, err)
				}
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	// Server
	"host":               "server.host",
	"http_host":          "server.host",
	"port":               "server.port",
	"http_port":          "server.port",
	"http_read_timeout":  "server.read_timeout",
	"http_write_timeout": "server.write_timeout",
	"http_idle_timeout":  "server.idle_timeout",
	"shutdown_timeout":   "server.shutdown_timeout",

	// Paths
	"backup_dir":    "paths.backup_dir",
	"rclone_config": "paths.remote_config",
	"data_dir":      "paths.data_dir",

	// Backup executables
	"backup_shell":      "backup.shell",
	"backup_script":     "backup.script",
	"restore_script":    "backup.restore_script",
	"archive_extension": "backup.archive_extension",

	// Runner
	"runner_timeout":          "runner.timeout",
	"runner_max_output_bytes": "runner.max_output_bytes",
	"runner_log_output":       "runner.log_output",

	// Remote
	"rclone_binary":           "remote.binary",
	"remote_breaker_failures": "remote.breaker_failures",
	"remote_breaker_timeout":  "remote.breaker_timeout",
	"remote_rate_limit":       "remote.rate_limit",
	"remote_rate_burst":       "remote.rate_burst",

	// Scheduler
	"tz_location":      "scheduler.timezone",
	"skip_overlapping": "scheduler.skip_overlapping",
	"run_history_size": "scheduler.history_size",

	// Store
	"store_backend": "store.backend",
	"store_path":    "store.path",

	// Security
	"admin_password":            "security.admin_password",
	"jwt_secret":                "security.jwt_secret",
	"session_timeout":           "security.session_timeout",
	"cors_origins":              "security.cors_origins",
	"rate_limit_requests":       "security.rate_limit_reqs",
	"rate_limit_window":         "security.rate_limit_window",
	"login_rate_limit_requests": "security.login_rate_limit_reqs",
	"disable_rate_limit":        "security.rate_limit_disabled",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - BACKUP_DIR -> paths.backup_dir
//   - RCLONE_CONFIG -> paths.remote_config
//   - TZ_LOCATION -> scheduler.timezone
//   - PORT -> server.port
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	// Returning empty skips the variable so unrelated env does not pollute config
	return ""
}
