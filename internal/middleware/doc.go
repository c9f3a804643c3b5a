// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

/*
Package middleware provides HTTP middleware components for the API server.

Key Components:

  - RequestID: X-Request-ID propagation and request/correlation IDs on the context
  - AccessLog: one structured zerolog line per request
  - PrometheusMetrics: request counts, latency and in-flight gauge

All middleware has the func(http.Handler) http.Handler shape so it plugs
straight into chi's r.Use. The typical order is:

	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog)
	r.Use(middleware.PrometheusMetrics)

PrometheusMetrics labels requests with the chi route pattern
("/api/v1/jobs/{id}") rather than the raw path, so job ids and labels do not
create unbounded label cardinality.
*/
package middleware
