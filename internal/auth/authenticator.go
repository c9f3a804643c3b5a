// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/labelkeeper/internal/logging"
)

// TokenHeader carries the token when a client does not use Authorization.
const TokenHeader = "X-Auth-Token"

var (
	// ErrInvalidCredentials is returned by Login for a wrong password.
	ErrInvalidCredentials = errors.New("invalid password")

	// ErrMissingToken means the request carried no token.
	ErrMissingToken = errors.New("authentication token required")

	// ErrInvalidToken means the token failed validation.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Authenticator gates the API behind the admin password. The zero value and
// a nil *Authenticator are disabled.
type Authenticator struct {
	verifier *PasswordVerifier
	tokens   *TokenManager
}

// NewAuthenticator builds an Authenticator. An empty password disables
// authentication and tokens is not consulted.
func NewAuthenticator(password string, tokens *TokenManager) (*Authenticator, error) {
	if password == "" {
		return &Authenticator{}, nil
	}
	if tokens == nil {
		return nil, errors.New("token manager is required when a password is set")
	}
	verifier, err := NewPasswordVerifier(password)
	if err != nil {
		return nil, err
	}
	return &Authenticator{verifier: verifier, tokens: tokens}, nil
}

// Enabled reports whether requests need a token.
func (a *Authenticator) Enabled() bool {
	return a != nil && a.verifier != nil
}

// TokenTTL is the lifetime of issued tokens, 0 when disabled.
func (a *Authenticator) TokenTTL() time.Duration {
	if !a.Enabled() {
		return 0
	}
	return a.tokens.TTL()
}

// Login exchanges the admin password for a token. It returns an empty token
// when authentication is disabled.
func (a *Authenticator) Login(password string) (string, error) {
	if !a.Enabled() {
		return "", nil
	}
	if !a.verifier.Verify(password) {
		return "", ErrInvalidCredentials
	}
	return a.tokens.Generate(AdminSubject)
}

// Check validates the token carried by r. It returns nil when authentication
// is disabled.
func (a *Authenticator) Check(r *http.Request) error {
	if !a.Enabled() {
		return nil
	}
	token := ExtractToken(r)
	if token == "" {
		return ErrMissingToken
	}
	if _, err := a.tokens.Validate(token); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			logging.Ctx(r.Context()).Debug().Msg("Rejected expired token")
		}
		return ErrInvalidToken
	}
	return nil
}

// ExtractToken reads the token from X-Auth-Token, then from a Bearer
// Authorization header.
func ExtractToken(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get(TokenHeader)); token != "" {
		return token
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return ""
}
