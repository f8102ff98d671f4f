package model

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced entity does not exist. It is
// deliberately distinct from AccessControlError: callers must be able to tell
// "absent" from "forbidden".
var ErrNotFound = errors.New("not found")

// AccessControlError reports that an identified caller lacks the rights to
// perform the requested action. It is always recoverable and maps to a
// forbidden response at the transport layer.
type AccessControlError struct {
	Reason string
}

func (e *AccessControlError) Error() string {
	return e.Reason
}

// NewAccessControlError builds an AccessControlError with the given reason.
func NewAccessControlError(reason string) error {
	return &AccessControlError{Reason: reason}
}

// IsAccessControlError reports whether err is an authorization failure.
func IsAccessControlError(err error) bool {
	var ace *AccessControlError
	return errors.As(err, &ace)
}

// NotUniqueError reports a violated uniqueness invariant on create
// (permission codename, workspace title per owner).
type NotUniqueError struct {
	Reason string
}

func (e *NotUniqueError) Error() string {
	return e.Reason
}

// NewNotUniqueError builds a NotUniqueError with the given reason.
func NewNotUniqueError(reason string) error {
	return &NotUniqueError{Reason: reason}
}

// IsNotUniqueError reports whether err is a uniqueness violation.
func IsNotUniqueError(err error) bool {
	var nue *NotUniqueError
	return errors.As(err, &nue)
}

// ModelError reports a domain-rule violation that is not an authorization
// failure (e.g. mutating the global workspace), and doubles as the wrapper
// for unexpected persistence failures.
type ModelError struct {
	Reason string
	Err    error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError builds a ModelError with the given reason.
func NewModelError(reason string) error {
	return &ModelError{Reason: reason}
}

// WrapModelError builds a ModelError around an underlying failure.
func WrapModelError(reason string, err error) error {
	return &ModelError{Reason: reason, Err: err}
}

// IsModelError reports whether err is a domain-rule violation.
func IsModelError(err error) bool {
	var me *ModelError
	return errors.As(err, &me)
}
