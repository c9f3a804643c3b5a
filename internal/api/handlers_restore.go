// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/labelkeeper/internal/backup"
	"github.com/tomtom215/labelkeeper/internal/logging"
	"github.com/tomtom215/labelkeeper/internal/restore"
)

// Restore runs a restore to completion and answers 200 with the result, or
// 500 with the failed step's diagnostics.
func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	var req restore.Request
	if err := decodeJSON(w, r, &req); err != nil {
		respondValidation(w, r, "Invalid request body: "+err.Error(), nil)
		return
	}

	logger := logging.Ctx(r.Context()).With().
		Str("label", req.Label).
		Str("backup_file", req.BackupFile).
		Bool("is_remote", req.IsRemote).
		Logger()

	res, err := h.svc.Restore(r.Context(), req)
	var failure *backup.SubprocessFailure
	switch {
	case err == nil:
		logger.Info().Msg("Restore completed")
		respondSuccess(w, r, http.StatusOK, res)

	case errors.As(err, &failure) && res != nil:
		logger.Error().
			Str("op", failure.Op).
			Int("exit_code", failure.ExitCode).
			Msg("Restore failed")
		respondError(w, r, http.StatusInternalServerError, ErrCodeSubprocessFailed, res.Details, map[string]interface{}{
			"op":          failure.Op,
			"exit_code":   failure.ExitCode,
			"stderr":      failure.Stderr,
			"stdout":      res.Stdout,
			"state":       res.State,
			"transitions": res.Transitions,
		}, nil)

	default:
		respondServiceError(w, r, err)
	}
}
