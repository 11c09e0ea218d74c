package domain

import (
	"errors"
	"fmt"
)

var (
	// Configuration
	ErrConfigMissing = errors.New("missing required configuration")
	ErrInvalidConfig = errors.New("invalid configuration")

	// Upstream authorities (Aliyun, Apple, WeChat). Rejected means the
	// client's input was refused; Failed is a server-side failure.
	ErrUpstreamRejected    = errors.New("upstream authority rejected the request")
	ErrUpstreamFailed      = errors.New("upstream authority failed")
	ErrUpstreamUnreachable = errors.New("upstream authority unreachable")

	// Persistence
	ErrDuplicate = errors.New("unique constraint violated")
	ErrConflict  = errors.New("resource is owned by another account")

	// Identity store
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrAlreadyRegistered  = errors.New("user already registered")

	// Requests
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnauthorized   = errors.New("unauthorized")
)

// DuplicateError is a unique index violation. Constraint is empty when the
// driver did not report which index fired.
type DuplicateError struct {
	Constraint string
}

func (e *DuplicateError) Error() string {
	if e.Constraint == "" {
		return ErrDuplicate.Error()
	}
	return fmt.Sprintf("%s: %s", ErrDuplicate, e.Constraint)
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicate }
