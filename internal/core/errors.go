package core

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrNotConnected        = errors.New("platform not connected")
	ErrUpstreamAuthExpired = errors.New("upstream authorization expired")
	ErrUpstreamFailure     = errors.New("upstream request failed")
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrDuplicate           = errors.New("duplicate record")
)

// ValidationError describes a malformed field; it matches ErrValidation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
