// Package marketplace manages artwork orders and their lifecycle.
//
// Orders move Pending -> Confirmed -> Shipped -> Delivered, and any
// non-terminal order may be Cancelled. Only delivered orders can be reviewed.
package marketplace

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/kala/internal/domain/apperr"
	"github.com/okian/kala/internal/domain/model"
	"github.com/okian/kala/pkg/logger"
	"github.com/okian/kala/pkg/metrics"
)

// PlaceOrderInput is a customer's purchase request.
type PlaceOrderInput struct {
	ArtistID  string
	ArtworkID string
	// Amount is in minor currency units.
	Amount int64
}

// Service places orders and advances their status.
type Service struct {
	store     Store
	publisher model.Publisher
	logger    logger.Logger
	tracer    trace.Tracer
	now       func() time.Time
	newID     func() string
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets where order.status.changed events go.
func WithPublisher(p model.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTracer sets the tracer used for spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides order id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// New creates an order service over store.
func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: logger.Nop(),
		tracer: otel.Tracer("github.com/okian/kala/internal/domain/marketplace"),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlaceOrder creates a Pending order for the acting customer.
func (s *Service) PlaceOrder(ctx context.Context, actor model.Actor, in PlaceOrderInput) (model.Order, error) {
	ctx, span := s.tracer.Start(ctx, "Marketplace.PlaceOrder", trace.WithAttributes(attribute.String("artist_id", in.ArtistID)))
	defer span.End()

	if actor.UserID == "" || in.ArtistID == "" || in.ArtworkID == "" || in.Amount <= 0 {
		return model.Order{}, ErrInvalidOrder
	}
	if actor.UserID == in.ArtistID {
		return model.Order{}, ErrSelfPurchase
	}

	now := s.now()
	order := model.Order{
		ID:         s.newID(),
		CustomerID: actor.UserID,
		ArtistID:   in.ArtistID,
		ArtworkID:  in.ArtworkID,
		Status:     model.OrderPending,
		Amount:     in.Amount,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.InsertOrder(ctx, order); err != nil {
		span.RecordError(err)
		return model.Order{}, fmt.Errorf("insert order: %w", err)
	}
	metrics.RecordOrderPlaced()
	s.logger.Info(ctx, "order placed",
		logger.String("order_id", order.ID),
		logger.String("customer_id", order.CustomerID),
		logger.String("artist_id", order.ArtistID),
	)
	return order, nil
}

// Order returns an order visible to the actor: its customer, its artist or an admin.
func (s *Service) Order(ctx context.Context, actor model.Actor, orderID string) (model.Order, error) {
	order, found, err := s.store.FindOrder(ctx, orderID)
	if err != nil {
		return model.Order{}, fmt.Errorf("find order %s: %w", orderID, err)
	}
	if !found {
		return model.Order{}, ErrOrderNotFound
	}
	if !actor.IsAdmin() && actor.UserID != order.CustomerID && actor.UserID != order.ArtistID {
		return model.Order{}, ErrOrderNotFound
	}
	return order, nil
}

// UpdateOrderStatus moves an order to status to. The order's artist or an
// admin may make any allowed transition; the customer may only cancel while Pending.
func (s *Service) UpdateOrderStatus(ctx context.Context, actor model.Actor, orderID string, to model.OrderStatus) (model.Order, error) {
	ctx, span := s.tracer.Start(ctx, "Marketplace.UpdateOrderStatus",
		trace.WithAttributes(attribute.String("order_id", orderID), attribute.String("to", string(to))))
	defer span.End()

	if !to.Valid() {
		return model.Order{}, ErrInvalidStatus
	}
	order, found, err := s.store.FindOrder(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		return model.Order{}, fmt.Errorf("find order %s: %w", orderID, err)
	}
	if !found {
		return model.Order{}, ErrOrderNotFound
	}
	if err := authorize(actor, order, to); err != nil {
		return model.Order{}, err
	}
	if !order.Status.CanTransition(to) {
		return model.Order{}, ErrTransition
	}

	updated, err := s.store.UpdateOrderStatus(ctx, orderID, order.Status, to, s.now())
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return model.Order{}, ErrTransition
		}
		span.RecordError(err)
		return model.Order{}, fmt.Errorf("update order %s: %w", orderID, err)
	}

	metrics.RecordOrderTransition(string(to))
	s.logger.Info(ctx, "order status changed",
		logger.String("order_id", orderID),
		logger.String("from", string(order.Status)),
		logger.String("to", string(to)),
	)
	if s.publisher != nil {
		ev := model.Event{
			Topic:      model.TopicOrderStatusChanged,
			Key:        orderID,
			OccurredAt: updated.UpdatedAt,
			Data:       model.OrderStatusChanged{OrderID: orderID, From: order.Status, To: to},
		}
		if err := s.publisher.Publish(ctx, ev); err != nil {
			s.logger.Warn(ctx, "publish event failed", logger.String("topic", ev.Topic), logger.Error(err))
		}
	}
	return updated, nil
}

func authorize(actor model.Actor, order model.Order, to model.OrderStatus) error {
	if actor.IsAdmin() || (actor.UserID != "" && actor.UserID == order.ArtistID) {
		return nil
	}
	if actor.UserID != "" && actor.UserID == order.CustomerID {
		if to == model.OrderCancelled && order.Status == model.OrderPending {
			return nil
		}
		return ErrNotOrderCustomer
	}
	return ErrNotOrderArtist
}
