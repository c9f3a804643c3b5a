// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/labelkeeper/internal/backup"
	"github.com/tomtom215/labelkeeper/internal/remote"
	"github.com/tomtom215/labelkeeper/internal/restore"
	"github.com/tomtom215/labelkeeper/internal/runner"
	"github.com/tomtom215/labelkeeper/internal/schedule"
	"github.com/tomtom215/labelkeeper/internal/store"
)

// Error codes for API responses
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeInvalidSchedule  = "INVALID_SCHEDULE"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS"
	ErrCodeSpawn            = "SPAWN_ERROR"
	ErrCodeSubprocessFailed = "SUBPROCESS_FAILED"
	ErrCodeRemoteList       = "REMOTE_LIST_FAILED"
	ErrCodeStore            = "STORE_ERROR"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// respondServiceError maps an error from the backup service onto a status,
// code and details. Order matters: a remote listing failure can wrap a spawn
// error, and store failures can wrap ErrNotFound.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *backup.ValidationError
		restoreErr    *restore.ValidationError
		scheduleErr   *schedule.InvalidScheduleError
		listErr       *remote.ListError
		subprocessErr *backup.SubprocessFailure
	)

	switch {
	case errors.As(err, &validationErr):
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, validationErr.Message, validationErr.Details(), nil)

	case errors.As(err, &restoreErr):
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, restoreErr.Error(),
			map[string]interface{}{"field": restoreErr.Field}, nil)

	case errors.As(err, &scheduleErr):
		details := map[string]interface{}{"frequency": string(scheduleErr.Frequency)}
		if scheduleErr.Expression != "" {
			details["expression"] = scheduleErr.Expression
		}
		respondError(w, r, http.StatusBadRequest, ErrCodeInvalidSchedule, scheduleErr.Error(), details, nil)

	case errors.Is(err, store.ErrNotFound):
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Job not found", nil, nil)

	case errors.Is(err, store.ErrExists):
		respondError(w, r, http.StatusConflict, ErrCodeConflict, "Job already exists", nil, err)

	case errors.As(err, &listErr):
		respondError(w, r, http.StatusBadGateway, ErrCodeRemoteList, listErr.Error(), map[string]interface{}{
			"remote":    listErr.Remote,
			"exit_code": listErr.ExitCode,
			"stderr":    listErr.Stderr,
		}, err)

	case errors.As(err, &subprocessErr):
		respondError(w, r, http.StatusInternalServerError, ErrCodeSubprocessFailed, subprocessErr.Error(), map[string]interface{}{
			"op":        subprocessErr.Op,
			"exit_code": subprocessErr.ExitCode,
			"stderr":    subprocessErr.Stderr,
		}, err)

	case errors.Is(err, runner.ErrSpawn):
		respondError(w, r, http.StatusInternalServerError, ErrCodeSpawn, err.Error(), nil, err)

	case errors.Is(err, runner.ErrTimeout):
		respondError(w, r, http.StatusInternalServerError, ErrCodeSubprocessFailed, err.Error(), nil, err)

	case errors.Is(err, store.ErrStore):
		respondError(w, r, http.StatusInternalServerError, ErrCodeStore, "A storage error occurred", nil, err)

	default:
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Internal server error", nil, err)
	}
}

func respondValidation(w http.ResponseWriter, r *http.Request, message string, details map[string]interface{}) {
	respondError(w, r, http.StatusBadRequest, ErrCodeValidation, message, details, nil)
}
