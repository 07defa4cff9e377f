package model

import (
	"fmt"
	"time"
)

// OrderStatus is a marketplace order's lifecycle state.
type OrderStatus string

const (
	OrderPending   OrderStatus = "Pending"
	OrderConfirmed OrderStatus = "Confirmed"
	OrderShipped   OrderStatus = "Shipped"
	OrderDelivered OrderStatus = "Delivered"
	OrderCancelled OrderStatus = "Cancelled"
)

var nextStatus = map[OrderStatus]OrderStatus{
	OrderPending:   OrderConfirmed,
	OrderConfirmed: OrderShipped,
	OrderShipped:   OrderDelivered,
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed.
func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

// CanTransition reports whether s may move to to: one step forward, or to Cancelled from any non-terminal state.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	if s.Terminal() {
		return false
	}
	if to == OrderCancelled {
		return true
	}
	return nextStatus[s] == to
}

// Order is a purchase of one artwork from one artist.
type Order struct {
	ID         string
	CustomerID string
	ArtistID   string
	ArtworkID  string
	Status     OrderStatus
	// Amount is in minor currency units.
	Amount    int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Review is a customer's rating of a delivered order. At most one exists per order.
type Review struct {
	ID         string
	OrderID    string
	ArtistID   string
	ArtworkID  string
	CustomerID string
	Rating     int
	Title      string
	Comment    string
	Images     []string
	IsActive   bool
	Reported   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ArtistRating is the aggregate over an artist's active reviews.
// Tenths holds the rating times ten, so 4.5 is 45; this keeps the one-decimal value exact.
type ArtistRating struct {
	ArtistID     string
	Tenths       int
	TotalReviews int
}

// Value returns the rating as a float with one decimal.
func (r ArtistRating) Value() float64 {
	return float64(r.Tenths) / 10
}

// String renders the rating as "4.5".
func (r ArtistRating) String() string {
	return fmt.Sprintf("%d.%d", r.Tenths/10, r.Tenths%10)
}
