// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

// Package services adapts Labelkeeper components to suture.Service so the
// supervisor tree can start, restart and stop them.
//
//   - HTTPServerService: *http.Server with graceful Shutdown
//   - SchedulerService: the backup engine's timer table
package services
