package auth

import "errors"

// Credential-validity failures. Each is an expected, recoverable-by-the-client
// condition and is surfaced distinctly: clients redirect to login on invalid
// credentials but silently refresh on expired ones. Internal faults (store
// unreachable, misconfigured secret) are returned as ordinary wrapped errors
// and must never be mapped onto these sentinels.
var (
	ErrInvalidCredential = errors.New("auth: invalid credential")
	ErrExpiredCredential = errors.New("auth: expired credential")
	ErrMissingCredential = errors.New("auth: missing credential")
	ErrPrincipalNotFound = errors.New("auth: principal not found")
	ErrRefreshNotFound   = errors.New("auth: refresh token not found")
	ErrRefreshMismatch   = errors.New("auth: refresh token mismatch")
	ErrRefreshRevoked    = errors.New("auth: refresh token revoked")
)

// Store and account-level failures.
var (
	ErrNotFound      = errors.New("auth: not found")
	ErrAlreadyExists = errors.New("auth: already exists")
	ErrUnauthorized  = errors.New("auth: unauthorized")
)
