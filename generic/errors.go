/*
errors.go - Centralized error types for the generic primitives

PURPOSE:
  All primitive-level error types in one place. Domain packages wrap these
  with additional context.

ERROR CATEGORIES:
  1. Input errors - Malformed or inverted dates
  2. Lookup errors - Missing referenced records

USAGE:
  if errors.Is(err, generic.ErrInvalidDate) {
      // caller sent a bad date, report 400
  }

SEE ALSO:
  - time.go: ParseDate returns InvalidDateError
  - leave/errors.go: Recoverable engine warnings
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidDate is returned for non-parseable dates and inverted ranges.
	// This is the only error class the engine surfaces to callers.
	ErrInvalidDate = errors.New("invalid date")

	// ErrNotFound is returned when a referenced record doesn't exist.
	ErrNotFound = errors.New("not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidDateError provides details about a malformed date or range.
type InvalidDateError struct {
	Value  string
	Reason string
	Err    error // underlying parse error, if any
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid date %q: %s", e.Value, e.Reason)
}

func (e *InvalidDateError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidDate, e.Err}
	}
	return []error{ErrInvalidDate}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidDate)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
