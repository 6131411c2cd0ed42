package services

import (
	"errors"
	"strings"
)

// ErrAccountRestricted rejects new activity referencing an account that
// is restricted or mid-erasure.
var ErrAccountRestricted = errors.New("account is restricted")

// ErrNotFound is the generic missing-resource error for handlers.
var ErrNotFound = errors.New("not found")

// ValidationError reports rejected input for registration, rectification
// and consent updates.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Reasons, "; ")
}

// DeniedError is an authorization denial surfaced to a handler. The
// decision itself comes from the authz engine; this wraps it for
// transport after the denial has been audited.
type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string {
	return "denied: " + e.Reason
}
