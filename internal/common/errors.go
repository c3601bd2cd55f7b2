// Package common defines shared constants and sentinel errors used across
// the account service layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")
	ErrValidation = errors.New("validation error")

	// Credential errors.
	ErrInvalidCredentials = errors.New("invalid user credentials")
	ErrAccountNotFound    = errors.New("username or email does not exist")
	ErrDuplicateAccount   = errors.New("user with email or username already exists")

	// Auth errors.
	ErrUnauthenticated = errors.New("unauthorized request")
	ErrInvalidToken    = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired       = errors.New("token expired")
	ErrRefreshTokenReused = errors.New("refresh token is expired or used")

	// Upload errors.
	ErrUploadRequired = errors.New("file is required")
	ErrUploadFailed   = errors.New("error while uploading file")
)
