package marketplace

import (
	"context"
	"time"

	"github.com/okian/kala/internal/domain/model"
)

// Store persists orders.
type Store interface {
	InsertOrder(ctx context.Context, o model.Order) error
	FindOrder(ctx context.Context, orderID string) (model.Order, bool, error)
	// UpdateOrderStatus moves the order from one status to another only if it is
	// still in from; otherwise it fails with apperr.ErrConflict.
	UpdateOrderStatus(ctx context.Context, orderID string, from, to model.OrderStatus, at time.Time) (model.Order, error)
}
