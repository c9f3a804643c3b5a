// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/labelkeeper/internal/auth"
	"github.com/tomtom215/labelkeeper/internal/logging"
	"github.com/tomtom215/labelkeeper/internal/validation"
)

// Login exchanges the admin password for a token. With authentication
// disabled any request succeeds and the token is null.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.auth.Enabled() {
		respondSuccess(w, r, http.StatusOK, loginResponse{Authenticated: true})
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondValidation(w, r, "Invalid request body: "+err.Error(), nil)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, r, verr.Error(), verr.Details())
		return
	}

	token, err := h.auth.Login(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			logging.Ctx(r.Context()).Warn().
				Str("remote_addr", r.RemoteAddr).
				Msg("Failed login attempt")
			respondError(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, "Invalid password", nil, nil)
			return
		}
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to issue token", nil, err)
		return
	}

	logging.Ctx(r.Context()).Info().Msg("Admin logged in")
	respondSuccess(w, r, http.StatusOK, loginResponse{
		Authenticated: true,
		Token:         &token,
		ExpiresIn:     int64(h.auth.TokenTTL().Seconds()),
	})
}

// AuthCheck reports whether a token is required and whether the request
// carries a valid one.
func (h *Handler) AuthCheck(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, authCheckResponse{
		RequiresAuth:    h.auth.Enabled(),
		IsAuthenticated: h.auth.Check(r) == nil,
	})
}
