// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"
)

// maxBodyBytes bounds request bodies. Settings carry the rclone config, which
// is the largest payload.
const maxBodyBytes = 1 << 20

var errEmptyBody = errors.New("request body is required")

// loginRequest is the body of POST /auth/login.
type loginRequest struct {
	Password string `json:"password" validate:"required,max=1024"`
}

// loginResponse is returned by login. Token is null when auth is disabled.
type loginResponse struct {
	Authenticated bool    `json:"authenticated"`
	Token         *string `json:"token"`
	ExpiresIn     int64   `json:"expires_in,omitempty"`
}

// authCheckResponse is returned by GET /auth/check.
type authCheckResponse struct {
	RequiresAuth    bool `json:"requires_auth"`
	IsAuthenticated bool `json:"is_authenticated"`
}

// settingsRequest is the body of POST/PUT /settings. RemoteConfig is a
// pointer so an omitted field keeps the current remote config file.
type settingsRequest struct {
	ArchiveNameTemplate string            `json:"archive_name_template" validate:"max=256"`
	IgnorePatterns      []string          `json:"ignore_patterns" validate:"max=256,dive,max=512"`
	RemoteConfig        *string           `json:"remote_config"`
	Preferences         map[string]string `json:"preferences"`
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}
