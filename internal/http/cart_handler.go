package http

import (
	"net/http"

	"github.com/fjod/go_cart/luxecart/internal/cart"
	"github.com/fjod/go_cart/luxecart/internal/domain"
	"github.com/go-chi/chi/v5"
)

const maxQuantity = 99

type CartHandler struct {
	base
	products ProductSource
}

type AddItemRequestDTO struct {
	ProductID domain.ID       `json:"productId"`
	Product   *domain.Product `json:"product,omitempty"`
	Quantity  int             `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity *int `json:"quantity"`
}

type CartResponse struct {
	cart.Snapshot
	Notices []cart.Event `json:"notices,omitempty"`
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	_, cancel, p := h.open(r)
	defer cancel()

	respondJSON(w, http.StatusOK, CartResponse{Snapshot: p.Cart.Snapshot()})
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, p := h.open(r)
	defer cancel()

	var req AddItemRequestDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}
	if req.Quantity > maxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at most 99")
		return
	}

	product, ok := h.resolveProduct(w, r, req)
	if !ok {
		return
	}

	notices := &cart.Recorder{}
	p.Cart.AddToCart(cart.ContextWithNotifier(ctx, notices), product, req.Quantity)
	respondJSON(w, http.StatusCreated, CartResponse{Snapshot: p.Cart.Snapshot(), Notices: notices.Events()})
}

func (h *CartHandler) resolveProduct(w http.ResponseWriter, r *http.Request, req AddItemRequestDTO) (domain.Product, bool) {
	if req.Product != nil && req.Product.ID.Valid() {
		return *req.Product, true
	}
	if !req.ProductID.Valid() {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "productId or product is required")
		return domain.Product{}, false
	}
	product, err := h.products.FetchProductByID(r.Context(), req.ProductID)
	if err != nil {
		handleError(w, err)
		return domain.Product{}, false
	}
	return product, true
}

// PUT /api/v1/cart/items/{id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, p := h.open(r)
	defer cancel()

	id, err := domain.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	var req UpdateQuantityRequestDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}
	if req.Quantity == nil {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity is required")
		return
	}
	if *req.Quantity > maxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at most 99")
		return
	}

	notices := &cart.Recorder{}
	p.Cart.UpdateQuantity(cart.ContextWithNotifier(ctx, notices), id, *req.Quantity)
	respondJSON(w, http.StatusOK, CartResponse{Snapshot: p.Cart.Snapshot(), Notices: notices.Events()})
}

// DELETE /api/v1/cart/items/{id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, p := h.open(r)
	defer cancel()

	id, err := domain.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}

	notices := &cart.Recorder{}
	p.Cart.RemoveFromCart(cart.ContextWithNotifier(ctx, notices), id)
	respondJSON(w, http.StatusOK, CartResponse{Snapshot: p.Cart.Snapshot(), Notices: notices.Events()})
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, p := h.open(r)
	defer cancel()

	notices := &cart.Recorder{}
	p.Cart.ClearCart(cart.ContextWithNotifier(ctx, notices))
	respondJSON(w, http.StatusOK, CartResponse{Snapshot: p.Cart.Snapshot(), Notices: notices.Events()})
}

// POST /api/v1/cart/toggle
func (h *CartHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	_, cancel, p := h.open(r)
	defer cancel()

	open := p.Cart.ToggleVisibility()
	respondJSON(w, http.StatusOK, map[string]bool{"isOpen": open})
}
