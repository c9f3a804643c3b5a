// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

/*
Package supervisor runs Labelkeeper's long-lived services under suture v4.

The tree has two layers so an HTTP listener failure never tears down the
backup timers:

	RootSupervisor ("labelkeeper")
	├── EngineSupervisor ("engine-layer")
	│   └── SchedulerService (restores jobs from the store, owns the timers)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Crashed services are restarted with suture's backoff. Supervisor events are
logged through sutureslog, backed by the zerolog adapter in internal/logging.

Usage in main.go:

	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
	    ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddEngineService(services.NewSchedulerService(manager, cfg.Server.ShutdownTimeout))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Addr(), cfg.Server.ShutdownTimeout))
	err = tree.Serve(ctx)
*/
package supervisor
