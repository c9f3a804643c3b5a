// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

/*
Package api provides the HTTP surface of Labelkeeper.

Routes are served by a chi router (see NewRouter). Every response, success or
error, is wrapped in models.APIResponse:

	{
	  "status": "success",
	  "data": {...},
	  "metadata": {"timestamp": "...", "request_id": "..."}
	}

Errors carry a machine-readable code and, for subprocess failures, the child
process diagnostics in error.details.stderr:

	{
	  "status": "error",
	  "data": null,
	  "metadata": {...},
	  "error": {"code": "SUBPROCESS_FAILED", "message": "...", "details": {"stderr": "..."}}
	}

# Endpoints

Public:

	GET  /api/v1/health
	POST /api/v1/auth/login
	GET  /api/v1/auth/check
	GET  /metrics

Protected when ADMIN_PASSWORD is set (X-Auth-Token or Authorization: Bearer):

	GET    /api/v1/jobs
	POST   /api/v1/jobs
	GET    /api/v1/jobs/{id}
	PUT    /api/v1/jobs/{id}
	DELETE /api/v1/jobs/{id}
	POST   /api/v1/jobs/{id}/run
	GET    /api/v1/jobs/{id}/runs
	GET    /api/v1/runs
	GET    /api/v1/backups/labels
	GET    /api/v1/backups/local/{label}
	GET    /api/v1/backups/remote/{label}/{remote}
	POST   /api/v1/restore
	GET    /api/v1/settings
	POST   /api/v1/settings
	PUT    /api/v1/settings

Handlers depend on the BackupService interface, which *backup.Manager
satisfies. Tests substitute a function-field mock.
*/
package api
