// Package errs defines the error taxonomy shared by the sitegrid core:
// not-found, business validation failures, and store failures. HTTP
// status mapping stays in the handlers.
package errs

import "errors"

// ErrNotFound indicates an id that does not resolve to an entity.
var ErrNotFound = errors.New("not found")

// Validation failure reasons surfaced to callers.
const (
	ReasonDuplicateFrenchDate = "only one French site can be installed per day"
	ReasonItalianWeekendOnly  = "Italian sites must be installed on weekends"
	ReasonSelfParent          = "a group cannot be its own parent"
	ReasonCycle               = "reparenting would create a cycle in the group hierarchy"
	ReasonGroupClosed         = "sites cannot be associated with a GROUP3 group"
	ReasonCountryImmutable    = "a site's country cannot be changed"
	ReasonVariantMismatch     = "field does not belong to the site's country variant"
	ReasonParentMismatch      = "the group's current parent does not match the expected parent"
	ReasonBlankName           = "name must not be empty"
	ReasonPowerBounds         = "min power must not exceed max power"
	ReasonPowerNegative       = "power values must not be negative"
	ReasonBadPagination       = "page and items_per_page must be positive"
)

// ValidationError reports a violated business invariant. The reason is
// safe to show to callers.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Validation builds a ValidationError with the given reason.
func Validation(reason string) error {
	return &ValidationError{Reason: reason}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// StoreError wraps an underlying store failure unchanged; the core never
// retries.
type StoreError struct {
	Err error
}

func (e *StoreError) Error() string { return "store: " + e.Err.Error() }

func (e *StoreError) Unwrap() error { return e.Err }

// Store wraps err as a StoreError; nil passes through.
func Store(err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Err: err}
}

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
