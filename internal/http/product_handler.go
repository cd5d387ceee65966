package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_cart/luxecart/internal/domain"
	"github.com/go-chi/chi/v5"
)

// ProductSource is the product catalog as seen by the handlers.
type ProductSource interface {
	FetchProducts(ctx context.Context, limit int) []domain.Product
	FetchProductByID(ctx context.Context, id domain.ID) (domain.Product, error)
	FetchCategories(ctx context.Context) ([]string, error)
	FetchByCategory(ctx context.Context, category string) ([]domain.Product, error)
}

type ProductHandler struct {
	products ProductSource
	timeout  time.Duration
}

func NewProductHandler(products ProductSource, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		products: products,
		timeout:  timeout,
	}
}

type ProductsResponse struct {
	Products []domain.Product `json:"products"`
}

// GET /api/v1/products?limit=&category=
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if category := r.URL.Query().Get("category"); category != "" {
		products, err := h.products.FetchByCategory(ctx, category)
		if err != nil {
			handleError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, &ProductsResponse{Products: products})
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	respondJSON(w, http.StatusOK, &ProductsResponse{Products: h.products.FetchProducts(ctx, limit)})
}

// GET /api/v1/products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, err := domain.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	product, err := h.products.FetchProductByID(ctx, id)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

// GET /api/v1/products/categories
func (h *ProductHandler) Categories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	categories, err := h.products.FetchCategories(ctx)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, categories)
}
