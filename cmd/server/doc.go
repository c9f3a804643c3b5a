// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

/*
Package main is the entry point for the Labelkeeper server.

Labelkeeper runs recurring backups of named labels by invoking an external
backup script, rotates old archives, optionally ships them to rclone remotes,
and restores archives on request. Jobs are managed over a JSON HTTP API.

# Application Architecture

	RootSupervisor ("labelkeeper")
	├── EngineSupervisor ("engine-layer")
	│   └── SchedulerService (cron timers, backup runs, rotation)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService (chi router, /api/v1, /metrics)

Component initialization order:

 1. Configuration: koanf v2 (defaults, config file, environment)
 2. Logging: zerolog
 3. Store: BadgerDB or in-memory job and settings persistence
 4. Runner, rotator, rclone client and restore orchestrator
 5. Scheduler and backup manager
 6. Authentication (optional admin password)
 7. HTTP router and supervisor tree

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains in-flight
requests and the scheduler waits for running backups, both bounded by
SHUTDOWN_TIMEOUT. Backup processes that outlive the timeout are not killed.

# Example Usage

	export BACKUP_DIR=/backups
	export RCLONE_CONFIG=/rclone/rclone.conf
	export ADMIN_PASSWORD=change-me
	./labelkeeper
*/
package main
