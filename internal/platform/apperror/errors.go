// Package apperror defines the error taxonomy shared by every feature:
// not-found, forbidden, field-level validation conflicts, and wrapped storage
// failures. Handlers translate these onto the wire in exactly one place.
package apperror

import (
	"errors"
	"fmt"
)

// ErrNotFound covers missing resources and resources addressed through the
// wrong product or parent. Cross-tenant addressing maps here rather than to
// ErrForbidden so responses never reveal what exists elsewhere.
var ErrNotFound = errors.New("not found")

// ErrForbidden means the caller is authenticated but lacks a sufficient role.
var ErrForbidden = errors.New("forbidden")

// ValidationError attributes a rejected write to a single input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Field, e.Reason)
}

// NewValidation returns a ValidationError for the given field.
func NewValidation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// IntegrityError wraps an unexpected storage or infrastructure failure. It is
// surfaced to callers as an internal error and never retried automatically.
type IntegrityError struct {
	Op  string
	Err error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *IntegrityError) Unwrap() error { return e.Err }

// Integrity wraps err as an IntegrityError attributed to op. A nil err passes
// through as nil so call sites can wrap unconditionally.
func Integrity(op string, err error) error {
	if err == nil {
		return nil
	}
	return &IntegrityError{Op: op, Err: err}
}

// IsIntegrity reports whether err is (or wraps) an IntegrityError.
func IsIntegrity(err error) (*IntegrityError, bool) {
	var ie *IntegrityError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}
