package http

import (
	"net/http"

	"github.com/fjod/go_cart/luxecart/internal/domain"
	"github.com/fjod/go_cart/luxecart/internal/orders"
	"github.com/go-chi/chi/v5"
)

type OrdersHandler struct {
	base
}

type DemoOrderRequestDTO struct {
	Items  []domain.CartLineItem `json:"items,omitempty"`
	Status domain.OrderStatus    `json:"status,omitempty"`
	Reason string                `json:"reason,omitempty"`
}

type UpdateStatusRequestDTO struct {
	Status domain.OrderStatus `json:"status"`
	Reason string             `json:"reason,omitempty"`
}

// GET /api/v1/orders?status=
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, p := h.open(r)
	defer cancel()

	list := p.Orders.GetOrders(ctx, p.Session.UserID(ctx))
	respondJSON(w, http.StatusOK, orders.Filter(list, r.URL.Query().Get("status")))
}

// GET /api/v1/orders/stats
func (h *OrdersHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, p := h.open(r)
	defer cancel()

	respondJSON(w, http.StatusOK, orders.ComputeStats(p.Orders.GetOrders(ctx, p.Session.UserID(ctx))))
}

// GET /api/v1/orders/{id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, p := h.open(r)
	defer cancel()

	id, err := domain.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	order, ok := p.Orders.GetOrderByID(ctx, id)
	if !ok || order.UserID != p.Session.UserID(ctx) {
		handleError(w, orders.ErrOrderNotFound)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// POST /api/v1/orders/demo
// Items default to the current cart contents.
func (h *OrdersHandler) CreateDemoOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, p := h.open(r)
	defer cancel()

	var req DemoOrderRequestDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}
	if req.Status != "" && !req.Status.Valid() {
		respondError(w, http.StatusBadRequest, "invalid_status", "unknown order status")
		return
	}
	items := req.Items
	if len(items) == 0 {
		items = p.Cart.Items()
	}
	if len(items) == 0 {
		respondError(w, http.StatusBadRequest, "empty_cart", "no items for the order")
		return
	}

	order := p.Orders.CreateMockOrder(ctx, p.Session.UserID(ctx), items, orders.MockOptions{
		Status: req.Status,
		Reason: req.Reason,
	})
	respondJSON(w, http.StatusCreated, order)
}

// PATCH /api/v1/orders/{id}/status
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, p := h.open(r)
	defer cancel()

	id, err := domain.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	var req UpdateStatusRequestDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}
	if existing, ok := p.Orders.GetOrderByID(ctx, id); !ok || existing.UserID != p.Session.UserID(ctx) {
		handleError(w, orders.ErrOrderNotFound)
		return
	}

	order, err := p.Orders.UpdateStatus(ctx, id, req.Status, req.Reason)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// DELETE /api/v1/orders
// Wipes the order log of every user of the profile.
func (h *OrdersHandler) ClearOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, p := h.open(r)
	defer cancel()

	p.Orders.ClearOrders(ctx)
	w.WriteHeader(http.StatusNoContent)
}
