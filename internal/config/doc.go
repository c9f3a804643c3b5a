// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

/*
Package config provides centralized configuration management for Labelkeeper.

Configuration is layered with Koanf v2, lowest precedence first:

 1. Built-in defaults (defaultConfig)
 2. An optional YAML file, found through CONFIG_PATH or DefaultConfigPaths
 3. Environment variables, mapped explicitly by envTransformFunc

# Environment Variables

Server:
  - HOST: Bind address (default: 0.0.0.0)
  - PORT / HTTP_PORT: Listen port (default: 3000)
  - HTTP_READ_TIMEOUT, HTTP_WRITE_TIMEOUT, HTTP_IDLE_TIMEOUT, SHUTDOWN_TIMEOUT

Paths:
  - BACKUP_DIR: Archive directory (default: /backups)
  - RCLONE_CONFIG: rclone credential file (default: /rclone/rclone.conf)
  - DATA_DIR: State directory (default: /data)

Backup executables:
  - BACKUP_SHELL: Interpreter for the scripts (default: bash, empty runs them directly)
  - BACKUP_SCRIPT: Backup executable (default: /app/backup.sh)
  - RESTORE_SCRIPT: Restore executable (default: /app/restore.sh)
  - ARCHIVE_EXTENSION: Archive suffix (default: .tar.gz)

Runner:
  - RUNNER_TIMEOUT: Kill child processes after this long (default: 0, none)
  - RUNNER_MAX_OUTPUT_BYTES: Captured tail per stream (default: 1MiB)
  - RUNNER_LOG_OUTPUT: Log child output lines (default: true)

Remote:
  - RCLONE_BINARY: rclone executable (default: rclone)
  - REMOTE_BREAKER_FAILURES, REMOTE_BREAKER_TIMEOUT
  - REMOTE_RATE_LIMIT, REMOTE_RATE_BURST

Scheduler:
  - TZ_LOCATION: IANA zone for cron expressions (default: Local)
  - SKIP_OVERLAPPING: Skip a firing while the same job still runs (default: false)
  - RUN_HISTORY_SIZE: In-memory run records (default: 200)

Store:
  - STORE_BACKEND: badger or memory (default: badger)
  - STORE_PATH: Badger directory (default: /data/labelkeeper)

Security:
  - ADMIN_PASSWORD: Enables token auth when set
  - JWT_SECRET: HS256 signing key (random per process when empty)
  - SESSION_TIMEOUT: Token lifetime (default: 24h)
  - CORS_ORIGINS: Comma-separated origins (default: *)
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT

Logging:
  - LOG_LEVEL: trace, debug, info, warn, error (default: info)
  - LOG_FORMAT: json or console (default: json)
  - LOG_CALLER: Include file:line (default: false)

# Usage

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}
	loc, _ := cfg.Scheduler.Location()
*/
package config
