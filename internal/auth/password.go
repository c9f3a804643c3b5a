// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is the work factor for the admin password hash.
const bcryptCost = 12

// PasswordVerifier checks candidate passwords against a bcrypt hash.
type PasswordVerifier struct {
	hash []byte
}

// NewPasswordVerifier hashes password once so requests only compare.
func NewPasswordVerifier(password string) (*PasswordVerifier, error) {
	if password == "" {
		return nil, fmt.Errorf("password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return &PasswordVerifier{hash: hash}, nil
}

// Verify reports whether candidate matches. The comparison is constant-time.
func (v *PasswordVerifier) Verify(candidate string) bool {
	return bcrypt.CompareHashAndPassword(v.hash, []byte(candidate)) == nil
}
