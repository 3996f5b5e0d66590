// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PulseFit Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert collides with an existing
// unique value (email or username already taken).
var ErrConflict = errors.New("already exists")

// Error codes used across the auth package. The transport layer maps
// these to status codes; nothing below the boundary knows about HTTP.
const (
	// Expected, caller-facing outcomes.
	CodeValidationFailed   = "AUTH_VALIDATION_FAILED"
	CodeAccountExists      = "AUTH_ACCOUNT_EXISTS"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeChallengeInvalid   = "CHALLENGE_INVALID"
	CodeChallengeDelivery  = "CHALLENGE_DELIVERY_FAILED"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeTokenInvalid       = "TOKEN_INVALID"

	// Internal failures, logged server-side and returned opaque.
	CodeSignupFailed        = "AUTH_SIGNUP_FAILED"
	CodeLoginFailed         = "AUTH_LOGIN_FAILED"
	CodeChallengeFailed     = "CHALLENGE_STORE_FAILED"
	CodeAccountInconsistent = "ACCOUNT_INCONSISTENT"
)
