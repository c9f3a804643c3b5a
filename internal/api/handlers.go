// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

package api

import (
	"context"
	"time"

	"github.com/tomtom215/labelkeeper/internal/auth"
	"github.com/tomtom215/labelkeeper/internal/models"
	"github.com/tomtom215/labelkeeper/internal/restore"
)

// BackupService is the engine behind the handlers. *backup.Manager
// implements it.
type BackupService interface {
	Create(ctx context.Context, in models.JobInput) (*models.Job, error)
	Get(ctx context.Context, id string) (*models.Job, error)
	List(ctx context.Context) ([]*models.Job, error)
	Update(ctx context.Context, id string, in models.JobInput) (*models.Job, error)
	Delete(ctx context.Context, id string) (*models.Job, error)
	RunNow(ctx context.Context, id string) (*models.RunRecord, error)
	Runs(jobID string) []models.RunRecord
	Labels(ctx context.Context) ([]models.LabelInfo, error)

	ListLocalArchives(ctx context.Context, label string) ([]string, error)
	ListRemoteArchives(ctx context.Context, label, remoteName string, recursive bool) ([]string, error)
	Restore(ctx context.Context, req restore.Request) (*restore.Result, error)

	GetSettings(ctx context.Context) (*models.Settings, error)
	SaveSettings(ctx context.Context, in *models.Settings) (*models.Settings, error)

	ScheduledJobs() int
	SchedulerRunning() bool
	StoreBackend() string
}

// Handler holds the HTTP handlers.
type Handler struct {
	svc       BackupService
	auth      *auth.Authenticator
	startTime time.Time
}

// NewHandler creates a Handler. A nil authenticator disables authentication.
func NewHandler(svc BackupService, authenticator *auth.Authenticator) *Handler {
	return &Handler{
		svc:       svc,
		auth:      authenticator,
		startTime: time.Now(),
	}
}
