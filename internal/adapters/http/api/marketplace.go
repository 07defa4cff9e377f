package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/kala/internal/domain/marketplace"
	"github.com/okian/kala/internal/domain/model"
	"github.com/okian/kala/internal/domain/types"
)

// handlePlaceOrder handles POST /marketplace/orders.
func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	const op = "api.place_order"
	var req types.PlaceOrderRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	order, err := s.deps.Orders.PlaceOrder(r.Context(), identity(r).Actor(), marketplace.PlaceOrderInput{
		ArtistID:  req.ArtistID,
		ArtworkID: req.ArtworkID,
		Amount:    req.Amount,
	})
	if err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, types.FromOrder(order))
}

// handleGetOrder handles GET /marketplace/orders/{orderID}.
func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_order"
	order, err := s.deps.Orders.Order(r.Context(), identity(r).Actor(), chi.URLParam(r, "orderID"))
	if err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.FromOrder(order))
}

// handleUpdateOrderStatus handles PATCH /marketplace/orders/{orderID}/status.
func (s *Server) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_order_status"
	var req types.UpdateOrderStatusRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	order, err := s.deps.Orders.UpdateOrderStatus(r.Context(), identity(r).Actor(),
		chi.URLParam(r, "orderID"), model.OrderStatus(req.Status))
	if err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.FromOrder(order))
}
