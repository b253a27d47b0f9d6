package auth

import "errors"

// Issuance errors
var (
	ErrInvalidEmail = errors.New("invalid email address")
	ErrMailDelivery = errors.New("failed to deliver login email")
)

// Verification errors. At the HTTP boundary these three collapse into one
// generic response so the API is not a token-state oracle; the precise
// reason is kept in internal logs only.
var (
	ErrTokenNotFound    = errors.New("token not found")
	ErrTokenAlreadyUsed = errors.New("token already used")
	ErrTokenExpired     = errors.New("token expired")
)

// Session errors
var (
	ErrAccountProvisioning = errors.New("failed to provision account")
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrSessionExpired      = errors.New("session expired")
	ErrForbidden           = errors.New("forbidden")
)

// ErrStoreUnavailable wraps infrastructure failures of a token store.
var ErrStoreUnavailable = errors.New("token store unavailable")
