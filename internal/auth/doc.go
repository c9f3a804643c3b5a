// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

/*
Package auth implements the optional admin password gate for the HTTP API.

When ADMIN_PASSWORD is configured, clients exchange it for a signed HS256 JWT
at POST /api/v1/auth/login and present that token on every other API request,
either in the X-Auth-Token header or as "Authorization: Bearer <token>".
When no password is configured the Authenticator is disabled and every
request is treated as authenticated.

Components:
  - TokenManager: issues and validates JWTs (golang-jwt/jwt/v5)
  - PasswordVerifier: bcrypt hash of the admin password (x/crypto/bcrypt)
  - Authenticator: ties both together for the HTTP layer

The password is hashed once at startup; it is never kept in memory in clear.
*/
package auth
