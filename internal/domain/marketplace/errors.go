package marketplace

import (
	"fmt"

	"github.com/okian/kala/internal/domain/apperr"
)

// Sentinel errors. Each wraps an apperr kind.
var (
	ErrInvalidOrder     = fmt.Errorf("%w: customer, artist and artwork ids are required and amount must be positive", apperr.ErrValidation)
	ErrInvalidStatus    = fmt.Errorf("%w: unknown order status", apperr.ErrValidation)
	ErrOrderNotFound    = fmt.Errorf("order %w", apperr.ErrNotFound)
	ErrTransition       = fmt.Errorf("%w: order status transition not allowed", apperr.ErrConflict)
	ErrNotOrderCustomer = fmt.Errorf("%w: only the customer may cancel a pending order", apperr.ErrForbidden)
	ErrNotOrderArtist   = fmt.Errorf("%w: only the order's artist or an admin may change its status", apperr.ErrForbidden)
	ErrSelfPurchase     = fmt.Errorf("%w: artists cannot order their own work", apperr.ErrValidation)
)
