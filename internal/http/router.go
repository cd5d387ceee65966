package http

import (
	"net/http"
	"time"

	"github.com/fjod/go_cart/luxecart/internal/logger"
	"github.com/fjod/go_cart/luxecart/internal/profile"
	"github.com/fjod/go_cart/luxecart/internal/realtime"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const DefaultMaxRequestBodySize = 1 << 20 // 1MB

type Deps struct {
	Profiles       *profile.Registry
	Products       ProductSource
	Events         realtime.Opener
	RequestTimeout time.Duration
	CheckoutDelay  time.Duration
	MaxBodySize    int64
	Log            *zap.Logger
}

func NewRouter(deps Deps) http.Handler {
	log := logger.OrNop(deps.Log)
	if deps.MaxBodySize <= 0 {
		deps.MaxBodySize = DefaultMaxRequestBodySize
	}
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = 30 * time.Second
	}
	if deps.Events == nil {
		deps.Events = realtime.Unavailable
	}

	b := base{profiles: deps.Profiles, timeout: deps.RequestTimeout, maxBody: deps.MaxBodySize, log: log}
	products := NewProductHandler(deps.Products, deps.RequestTimeout)
	carts := &CartHandler{base: b, products: deps.Products}
	orders := &OrdersHandler{base: b}
	wishlist := &WishlistHandler{base: b, products: deps.Products}
	auth := &AuthHandler{base: b}
	checkout := &CheckoutHandler{base: b, delay: deps.CheckoutDelay}
	events := NewEventsHandler(deps.Profiles, deps.Events, log)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ProfileMiddleware)

		// long-lived, so outside the request timeout
		r.Get("/cart/events", events.Stream)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(deps.RequestTimeout))

			r.Route("/products", func(r chi.Router) {
				r.Get("/", products.List)
				r.Get("/categories", products.Categories)
				r.Get("/{id}", products.Get)
			})

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", carts.GetCart)
				r.Delete("/", carts.ClearCart)
				r.Post("/toggle", carts.Toggle)
				r.Post("/items", carts.AddItem)
				r.Put("/items/{id}", carts.UpdateQuantity)
				r.Delete("/items/{id}", carts.RemoveItem)
			})

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", wishlist.Get)
				r.Post("/", wishlist.Add)
				r.Delete("/", wishlist.Clear)
				r.Post("/{id}/toggle", wishlist.Toggle)
				r.Delete("/{id}", wishlist.Remove)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", orders.ListOrders)
				r.Delete("/", orders.ClearOrders)
				r.Get("/stats", orders.Stats)
				r.Post("/demo", orders.CreateDemoOrder)
				r.Get("/{id}", orders.GetOrder)
				r.Patch("/{id}/status", orders.UpdateStatus)
			})

			r.Route("/auth", func(r chi.Router) {
				r.Post("/login", auth.Login)
				r.Post("/register", auth.Register)
				r.Post("/logout", auth.Logout)
				r.Get("/me", auth.Me)
				r.Patch("/me", auth.UpdateProfile)
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Get("/", checkout.Quote)
				r.Post("/", checkout.PlaceOrder)
			})
		})
	})

	return r
}
