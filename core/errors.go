package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

func IsValidationError(err error) bool {
	_, ok := errors.Cause(err).(*ValidationError)
	return ok
}

// NotFoundError indicates that a resource, or a link in its ownership chain,
// does not exist. Never retried.
type NotFoundError struct {
	msg string
}

func NewNotFoundError(msg string) error {
	return &NotFoundError{msg: msg}
}

func (e NotFoundError) Error() string { return e.msg }

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

// ConflictError indicates that a write lost against a uniqueness invariant:
// duplicate role grant, duplicate active enrollment, duplicate active attempt,
// duplicate link request. Callers may read-then-decide; the core never
// auto-resolves.
type ConflictError struct {
	msg string
}

func NewConflictError(msg string) error {
	return &ConflictError{msg: msg}
}

func (e ConflictError) Error() string { return e.msg }

func IsConflict(err error) bool {
	_, ok := errors.Cause(err).(*ConflictError)
	return ok
}

// InvalidStateError indicates a state transition not permitted from the
// entity's current state.
type InvalidStateError struct {
	msg string
}

func NewInvalidStateError(msg string) error {
	return &InvalidStateError{msg: msg}
}

func (e InvalidStateError) Error() string { return e.msg }

func IsInvalidState(err error) bool {
	_, ok := errors.Cause(err).(*InvalidStateError)
	return ok
}

// Authorization deny reasons.
const (
	DenyNoRoleInScope     = "no_role_in_scope"
	DenyNotSelf           = "not_self"
	DenyNotLinkedGuardian = "not_linked_guardian"
	DenyResourceNotFound  = "resource_not_found"
)

type AuthorizationError struct {
	Reason string
}

func NewAuthorizationError(reason string) error {
	return &AuthorizationError{Reason: reason}
}

func (e AuthorizationError) Error() string { return "permission denied: " + e.Reason }

func IsAuthorizationError(err error) bool {
	_, ok := errors.Cause(err).(*AuthorizationError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
