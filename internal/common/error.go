// Package common defines shared constants and sentinel errors used across
// CloudChat components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Store-level errors.
	ErrNotFound         = errors.New("not found")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrConflict         = errors.New("conflict")

	// Friend-request validation outcomes. These are expected results of the
	// operation, not exceptional control flow.
	ErrSelfReference     = errors.New("cannot reference own account")
	ErrTargetUnavailable = errors.New("target account unavailable")
	ErrAlreadyFriends    = errors.New("already friends")
	ErrRequestPending    = errors.New("request already pending")

	// Auth errors.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountSuspended   = errors.New("account suspended")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUnauthorized       = errors.New("unauthorized")

	// Lifecycle signals.
	ErrRootProtected = errors.New("root account is protected")
	ErrRevoked       = errors.New("session revoked")

	// Generic failure.
	ErrInternal = errors.New("internal error")
)
