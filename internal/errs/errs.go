// Package errs defines the error taxonomy shared by the scan pipeline and
// the API layer. Stages return these types instead of using errors as flow
// control; callers inspect them to decide between aborting a run, deferring
// items to the next run, or surfacing a 404.
package errs

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates a record that does not exist or belongs to another
// user. The API layer maps it to 404.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a duplicate-key race. The persistence layer swallows
// it as success; it is exported for callers that need to recognize it.
var ErrConflict = errors.New("conflict")

// AuthError indicates invalid or expired user credentials. A scan run that
// hits one aborts without marking anything processed.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("auth error: %s", e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// TransientError indicates a network/timeout/5xx failure from an external
// dependency. Affected items are deferred to the next scheduled run.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient error in %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// ValidationError indicates a malformed payload element from an external
// service. The offending item is skipped and logged; the batch continues.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Reason)
}

// IsAuth reports whether err is an AuthError.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsTransient reports whether err is a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
