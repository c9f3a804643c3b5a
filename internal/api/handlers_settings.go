// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

package api

import (
	"net/http"

	"github.com/tomtom215/labelkeeper/internal/logging"
	"github.com/tomtom215/labelkeeper/internal/models"
	"github.com/tomtom215/labelkeeper/internal/validation"
)

// GetSettings returns the global settings, including the remote config file
// contents.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.svc.GetSettings(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, settings)
}

// SaveSettings replaces the global settings. An omitted remote_config keeps
// the current remote config file.
func (h *Handler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondValidation(w, r, "Invalid request body: "+err.Error(), nil)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, r, verr.Error(), verr.Details())
		return
	}

	settings := &models.Settings{
		ArchiveNameTemplate: req.ArchiveNameTemplate,
		IgnorePatterns:      req.IgnorePatterns,
		Preferences:         req.Preferences,
	}
	if req.RemoteConfig != nil {
		settings.RemoteConfig = *req.RemoteConfig
	} else {
		current, err := h.svc.GetSettings(r.Context())
		if err != nil {
			respondServiceError(w, r, err)
			return
		}
		settings.RemoteConfig = current.RemoteConfig
	}

	saved, err := h.svc.SaveSettings(r.Context(), settings)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Int("ignore_patterns", len(saved.IgnorePatterns)).
		Msg("Settings saved")
	respondSuccess(w, r, http.StatusOK, saved)
}
