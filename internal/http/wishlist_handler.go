package http

import (
	"net/http"

	"github.com/fjod/go_cart/luxecart/internal/domain"
	"github.com/go-chi/chi/v5"
)

type WishlistHandler struct {
	base
	products ProductSource
}

type WishlistItemRequestDTO struct {
	ProductID domain.ID       `json:"productId"`
	Product   *domain.Product `json:"product,omitempty"`
}

type ToggleResponse struct {
	Items []domain.WishlistEntry `json:"items"`
	Saved bool                   `json:"saved"`
}

// GET /api/v1/wishlist
func (h *WishlistHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, p := h.open(r)
	defer cancel()

	respondJSON(w, http.StatusOK, p.Wishlist.GetWishlist(ctx, p.Session.UserID(ctx)))
}

// POST /api/v1/wishlist
func (h *WishlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, p := h.open(r)
	defer cancel()

	var req WishlistItemRequestDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}
	product, ok := h.resolve(w, r, req.Product, req.ProductID)
	if !ok {
		return
	}
	items := p.Wishlist.AddItem(ctx, p.Session.UserID(ctx), domain.NewWishlistEntry(product))
	respondJSON(w, http.StatusCreated, items)
}

// POST /api/v1/wishlist/{id}/toggle
func (h *WishlistHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, p := h.open(r)
	defer cancel()

	id, err := domain.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	userID := p.Session.UserID(ctx)

	// removal needs no product lookup
	if p.Wishlist.Contains(ctx, userID, id) {
		items := p.Wishlist.RemoveItem(ctx, userID, id)
		respondJSON(w, http.StatusOK, ToggleResponse{Items: items, Saved: false})
		return
	}
	product, ok := h.resolve(w, r, nil, id)
	if !ok {
		return
	}
	items, saved := p.Wishlist.Toggle(ctx, userID, domain.NewWishlistEntry(product))
	respondJSON(w, http.StatusOK, ToggleResponse{Items: items, Saved: saved})
}

// DELETE /api/v1/wishlist/{id}
func (h *WishlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, p := h.open(r)
	defer cancel()

	id, err := domain.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p.Wishlist.RemoveItem(ctx, p.Session.UserID(ctx), id))
}

// DELETE /api/v1/wishlist
func (h *WishlistHandler) Clear(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, p := h.open(r)
	defer cancel()

	p.Wishlist.Clear(ctx, p.Session.UserID(ctx))
	w.WriteHeader(http.StatusNoContent)
}

func (h *WishlistHandler) resolve(w http.ResponseWriter, r *http.Request, product *domain.Product, id domain.ID) (domain.Product, bool) {
	if product != nil && product.ID.Valid() {
		return *product, true
	}
	if !id.Valid() {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "productId or product is required")
		return domain.Product{}, false
	}
	found, err := h.products.FetchProductByID(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return domain.Product{}, false
	}
	return found, true
}
