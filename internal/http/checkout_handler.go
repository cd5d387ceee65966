package http

import (
	"net/http"
	"time"

	"github.com/fjod/go_cart/luxecart/internal/checkout"
	"github.com/fjod/go_cart/luxecart/internal/domain"
)

type CheckoutHandler struct {
	base
	delay time.Duration
}

type QuoteResponse struct {
	checkout.Quote
	Items     int              `json:"items"`
	Addresses []domain.Address `json:"addresses"`
}

// GET /api/v1/checkout
func (h *CheckoutHandler) Quote(w http.ResponseWriter, r *http.Request) {
	_, cancel, p := h.open(r)
	defer cancel()

	svc := checkout.NewService(p.Orders, p.Session, h.delay, h.log)
	respondJSON(w, http.StatusOK, QuoteResponse{
		Quote:     svc.Quote(p.Cart),
		Items:     p.Cart.TotalItems(),
		Addresses: checkout.DefaultAddresses,
	})
}

// POST /api/v1/checkout
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, p := h.open(r)
	defer cancel()

	var req checkout.Request
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}
	svc := checkout.NewService(p.Orders, p.Session, h.delay, h.log)
	order, err := svc.PlaceOrder(ctx, p.Cart, req)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, order)
}
