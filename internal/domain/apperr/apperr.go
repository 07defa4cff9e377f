// Package apperr holds the error kinds shared by every domain package.
// Domain sentinels wrap one of these so callers can branch on the kind
// without knowing which package produced the error.
package apperr

import (
	"errors"
)

// Error kinds.
var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrEligibility = errors.New("not eligible")
	ErrForbidden   = errors.New("forbidden")
)

// Kind returns the kind wrapped by err, or nil when err carries none.
func Kind(err error) error {
	for _, kind := range []error{ErrValidation, ErrNotFound, ErrConflict, ErrEligibility, ErrForbidden} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// Label is a short machine name for a kind, used for metric labels and error codes.
func Label(err error) string {
	switch Kind(err) {
	case ErrValidation:
		return "validation"
	case ErrNotFound:
		return "not_found"
	case ErrConflict:
		return "conflict"
	case ErrEligibility:
		return "not_eligible"
	case ErrForbidden:
		return "forbidden"
	default:
		return "internal"
	}
}
