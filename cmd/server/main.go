// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/labelkeeper/internal/api"
	"github.com/tomtom215/labelkeeper/internal/archive"
	"github.com/tomtom215/labelkeeper/internal/auth"
	"github.com/tomtom215/labelkeeper/internal/backup"
	"github.com/tomtom215/labelkeeper/internal/config"
	"github.com/tomtom215/labelkeeper/internal/logging"
	"github.com/tomtom215/labelkeeper/internal/remote"
	"github.com/tomtom215/labelkeeper/internal/restore"
	"github.com/tomtom215/labelkeeper/internal/runner"
	"github.com/tomtom215/labelkeeper/internal/scheduler"
	"github.com/tomtom215/labelkeeper/internal/store"
	"github.com/tomtom215/labelkeeper/internal/supervisor"
	"github.com/tomtom215/labelkeeper/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("backup_dir", cfg.Paths.BackupDir).
		Str("store_backend", cfg.Store.Backend).
		Str("timezone", cfg.Scheduler.Timezone).
		Bool("auth_enabled", cfg.Security.AuthEnabled()).
		Msg("Starting Labelkeeper")

	st, err := store.New(store.Config{
		Backend: store.Backend(cfg.Store.Backend),
		Path:    cfg.Store.Path,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	manager, err := buildManager(cfg, st)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to build backup engine")
		return
	}

	authenticator, err := buildAuthenticator(cfg.Security)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to initialize authentication")
		return
	}
	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}
	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("CORS allows any origin while authentication is enabled; set CORS_ORIGINS in production")
	}

	router := api.NewRouter(
		api.NewHandler(manager, authenticator),
		api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(cfg.Security)),
	)
	server := &http.Server{
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Error().Err(err).Msg("Failed to create supervisor tree")
		return
	}
	tree.AddEngineService(services.NewSchedulerService(manager, cfg.Server.ShutdownTimeout))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Addr(), cfg.Server.ShutdownTimeout))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
	}
	logging.Info().Msg("Labelkeeper stopped")
}

// buildManager wires the runner, archive rotator, rclone client, restore
// orchestrator and scheduler into a backup.Manager.
func buildManager(cfg *config.Config, st store.Store) (*backup.Manager, error) {
	loc, err := cfg.Scheduler.Location()
	if err != nil {
		return nil, err
	}

	procs := runner.New(runner.Config{
		Timeout:        cfg.Runner.Timeout,
		MaxOutputBytes: cfg.Runner.MaxOutputBytes,
		LogOutput:      cfg.Runner.LogOutput,
	})
	rotator := archive.NewRotator(cfg.Paths.BackupDir, cfg.Backup.ArchiveExtension)
	rclone := remote.NewClient(remote.Config{
		Binary:          cfg.Remote.Binary,
		ConfigPath:      cfg.Paths.RemoteConfig,
		ArchiveExt:      cfg.Backup.ArchiveExtension,
		BreakerFailures: cfg.Remote.BreakerFailures,
		BreakerTimeout:  cfg.Remote.BreakerTimeout,
		RateLimit:       cfg.Remote.RateLimit,
		RateBurst:       cfg.Remote.RateBurst,
	}, procs)
	restorer := restore.NewOrchestrator(restore.Config{
		Shell:     cfg.Backup.Shell,
		Script:    cfg.Backup.RestoreScript,
		BackupDir: cfg.Paths.BackupDir,
	}, procs, rclone)

	sched := scheduler.New(scheduler.Config{
		Shell:            cfg.Backup.Shell,
		Script:           cfg.Backup.Script,
		BackupDir:        cfg.Paths.BackupDir,
		RemoteConfigPath: cfg.Paths.RemoteConfig,
		ArchiveExt:       cfg.Backup.ArchiveExtension,
		SkipOverlapping:  cfg.Scheduler.SkipOverlapping,
		HistorySize:      cfg.Scheduler.HistorySize,
	}, scheduler.NewCron(loc), procs, rotator, st)

	return backup.NewManager(backup.Deps{
		Store:        st,
		Scheduler:    sched,
		Local:        rotator,
		Remote:       rclone,
		Restorer:     restorer,
		RemoteConfig: store.RemoteConfigFile{Path: cfg.Paths.RemoteConfig},
	})
}

func buildAuthenticator(sec config.SecurityConfig) (*auth.Authenticator, error) {
	if !sec.AuthEnabled() {
		logging.Warn().Msg("ADMIN_PASSWORD is not set; the API is unauthenticated")
		return auth.NewAuthenticator("", nil)
	}

	tokens, err := auth.NewTokenManager(sec.JWTSecret, sec.SessionTimeout)
	if err != nil {
		return nil, err
	}
	if tokens.Ephemeral() {
		logging.Warn().Msg("JWT_SECRET is not set; tokens are signed with a random key and expire on restart")
	}
	return auth.NewAuthenticator(sec.AdminPassword, tokens)
}
