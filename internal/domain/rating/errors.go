package rating

import (
	"fmt"

	"github.com/okian/kala/internal/domain/apperr"
)

// Sentinel errors. Each wraps an apperr kind.
var (
	ErrInvalidRating       = fmt.Errorf("%w: rating must be an integer from 1 to 5", apperr.ErrValidation)
	ErrInvalidReview       = fmt.Errorf("%w: order id and customer id are required", apperr.ErrValidation)
	ErrReviewTooLarge      = fmt.Errorf("%w: review title, comment or images exceed limits", apperr.ErrValidation)
	ErrOrderNotFound       = fmt.Errorf("order %w", apperr.ErrNotFound)
	ErrOrderNotEligible    = fmt.Errorf("%w: order is not a delivered purchase by this customer", apperr.ErrEligibility)
	ErrReviewAlreadyExists = fmt.Errorf("%w: a review already exists for this order", apperr.ErrConflict)
	ErrReviewNotFound      = fmt.Errorf("review %w", apperr.ErrNotFound)
)
