// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/labelkeeper/internal/middleware"
)

// NewRouter configures all HTTP routes.
func NewRouter(h *Handler, mw *ChiMiddleware) http.Handler {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	r := chi.NewRouter()

	// Global middleware, applied to every route in order
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog)
	r.Use(middleware.PrometheusMetrics)
	r.Use(chimiddleware.Recoverer)
	r.Use(mw.CORS())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Route not found", nil, nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed", nil, nil)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(mw.RateLimit())

		// Public
		r.Get("/health", h.Health)
		r.Route("/auth", func(r chi.Router) {
			r.With(mw.RateLimitLogin()).Post("/login", h.Login)
			r.Get("/check", h.AuthCheck)
		})

		// Protected when an admin password is configured
		r.Group(func(r chi.Router) {
			r.Use(RequireAuth(h.auth))

			r.Route("/jobs", func(r chi.Router) {
				r.Get("/", h.ListJobs)
				r.Post("/", h.CreateJob)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.GetJob)
					r.Put("/", h.UpdateJob)
					r.Delete("/", h.DeleteJob)
					r.Post("/run", h.RunJob)
					r.Get("/runs", h.JobRuns)
				})
			})
			r.Get("/runs", h.ListRuns)

			r.Route("/backups", func(r chi.Router) {
				r.Get("/labels", h.ListLabels)
				r.Get("/local/{label}", h.ListLocalArchives)
				r.Get("/remote/{label}/{remote}", h.ListRemoteArchives)
			})

			r.Post("/restore", h.Restore)

			r.Get("/settings", h.GetSettings)
			r.Post("/settings", h.SaveSettings)
			r.Put("/settings", h.SaveSettings)
		})
	})

	return r
}
