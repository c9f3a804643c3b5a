// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

package auth

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AdminSubject is the subject of every token; there is a single principal.
const AdminSubject = "admin"

const (
	tokenIssuer       = "labelkeeper"
	generatedKeyBytes = 32
)

// Claims represents JWT claims
type Claims struct {
	jwt.RegisteredClaims
}

// TokenManager handles JWT token creation and validation
type TokenManager struct {
	secret    []byte
	ttl       time.Duration
	ephemeral bool
	now       func() time.Time
}

// NewTokenManager creates a token manager that signs with HMAC-SHA256.
//
// An empty secret makes the manager generate a random key. Tokens signed with
// a generated key stop validating when the process restarts.
func NewTokenManager(secret string, ttl time.Duration) (*TokenManager, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("token lifetime must be positive")
	}

	m := &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
	if secret == "" {
		key := make([]byte, generatedKeyBytes)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
		m.secret = key
		m.ephemeral = true
	}
	return m, nil
}

// Ephemeral reports whether the signing key was generated at startup.
func (m *TokenManager) Ephemeral() bool {
	return m.ephemeral
}

// TTL is the lifetime of issued tokens.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Generate issues a signed token for subject.
func (m *TokenManager) Generate(subject string) (string, error) {
	now := m.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate checks the signature, algorithm, issuer and expiry of tokenString.
// Tokens signed with anything but HS256 are rejected.
func (m *TokenManager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
