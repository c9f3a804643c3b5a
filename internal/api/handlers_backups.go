// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/labelkeeper/internal/models"
)

// ListLabels returns the distinct labels across jobs with their remote settings.
func (h *Handler) ListLabels(w http.ResponseWriter, r *http.Request) {
	labels, err := h.svc.Labels(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if labels == nil {
		labels = []models.LabelInfo{}
	}
	respondSuccess(w, r, http.StatusOK, labels)
}

// ListLocalArchives returns the label's archives in the backup directory,
// newest first.
func (h *Handler) ListLocalArchives(w http.ResponseWriter, r *http.Request) {
	files, err := h.svc.ListLocalArchives(r.Context(), chi.URLParam(r, "label"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, nonNilStrings(files))
}

// ListRemoteArchives returns the label's archives on a remote, newest first.
// ?recursive=true lists nested paths too.
func (h *Handler) ListRemoteArchives(w http.ResponseWriter, r *http.Request) {
	recursive := false
	if raw := r.URL.Query().Get("recursive"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			respondValidation(w, r, "recursive must be true or false", map[string]interface{}{"field": "recursive"})
			return
		}
		recursive = v
	}

	files, err := h.svc.ListRemoteArchives(r.Context(), chi.URLParam(r, "label"), chi.URLParam(r, "remote"), recursive)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, nonNilStrings(files))
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
