// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/labelkeeper/internal/logging"
	"github.com/tomtom215/labelkeeper/internal/models"
)

// ListJobs returns every job.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.svc.List(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []*models.Job{}
	}
	respondSuccess(w, r, http.StatusOK, jobs)
}

// CreateJob persists and schedules a new job.
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var in models.JobInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondValidation(w, r, "Invalid request body: "+err.Error(), nil)
		return
	}

	job, err := h.svc.Create(r.Context(), in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("job_id", job.ID).
		Str("label", job.Label).
		Msg("Job created")
	respondSuccess(w, r, http.StatusCreated, job)
}

// GetJob returns one job.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, job)
}

// UpdateJob replaces a job's definition and reschedules it.
func (h *Handler) UpdateJob(w http.ResponseWriter, r *http.Request) {
	var in models.JobInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondValidation(w, r, "Invalid request body: "+err.Error(), nil)
		return
	}

	job, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	logging.Ctx(r.Context()).Info().Str("job_id", job.ID).Msg("Job updated")
	respondSuccess(w, r, http.StatusOK, job)
}

// DeleteJob unschedules and removes a job, returning the removed record.
func (h *Handler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.svc.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	logging.Ctx(r.Context()).Info().Str("job_id", job.ID).Msg("Job deleted")
	respondSuccess(w, r, http.StatusOK, job)
}

// RunJob starts a backup immediately. It answers 202 once the process has
// been spawned; the outcome lands in the run history.
func (h *Handler) RunJob(w http.ResponseWriter, r *http.Request) {
	run, err := h.svc.RunNow(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusAccepted, run)
}

// JobRuns returns the run history of one job, most recent first.
func (h *Handler) JobRuns(w http.ResponseWriter, r *http.Request) {
	job, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, nonNilRuns(h.svc.Runs(job.ID)))
}

// ListRuns returns the run history of every job, optionally filtered by
// ?job_id=.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, nonNilRuns(h.svc.Runs(r.URL.Query().Get("job_id"))))
}

func nonNilRuns(runs []models.RunRecord) []models.RunRecord {
	if runs == nil {
		return []models.RunRecord{}
	}
	return runs
}
