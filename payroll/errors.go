/*
errors.go - Error taxonomy for the payroll engine

PURPOSE:
  Every failure surfaced by the engine belongs to one of a few kinds so
  callers (HTTP handlers, CLIs) can map them without string matching.

ERROR CATEGORIES:
  1. Not found  - employee or active contract missing
  2. Validation - contract missing terms for its type, or unknown type
  3. Input      - caller-supplied hours or dates unusable
  4. Conflict   - uniqueness violations in the registry

USAGE:
  run, err := svc.RunPayrollForEmployee(ctx, req)
  var verr *payroll.ValidationError
  switch {
  case errors.As(err, &verr):
      // verr.Reason is safe to show to the user
  case payroll.IsNotFound(err):
      // 404
  }

SEE ALSO:
  - resolver.go: Produces ValidationError
  - service.go: Produces NotFoundError and InputError
*/
package payroll

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when an employee or active contract does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned when a contract cannot be resolved to a strategy.
	ErrValidation = errors.New("validation failed")

	// ErrInput is returned when caller-supplied hours or dates are unusable.
	ErrInput = errors.New("invalid input")

	// ErrDuplicateNINumber is returned when registering a second employee
	// with an NI number already on file.
	ErrDuplicateNINumber = errors.New("duplicate NI number")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError names the missing resource.
type NotFoundError struct {
	Resource string // "employee", "active contract"
	ID       int64
}

func (e *NotFoundError) Error() string {
	switch e.Resource {
	case "active contract":
		return fmt.Sprintf("no active contract for employee %d", e.ID)
	default:
		return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
	}
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// ValidationError explains why a contract cannot be paid under its type.
type ValidationError struct {
	ContractType ContractType
	Reason       string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// InputError rejects a caller-supplied field.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InputError) Unwrap() error {
	return ErrInput
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClientError returns true if the error is due to caller input or data the
// caller can correct. None of these are worth retrying.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInput) ||
		errors.Is(err, ErrDuplicateNINumber)
}
