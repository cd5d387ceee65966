package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/luxecart/internal/profile"
	"go.uber.org/zap"
)

// base carries what every resource handler needs.
type base struct {
	profiles *profile.Registry
	timeout  time.Duration
	maxBody  int64
	log      *zap.Logger
}

func (b base) open(r *http.Request) (context.Context, context.CancelFunc, *profile.Profile) {
	ctx, cancel := context.WithTimeout(r.Context(), b.timeout)
	return ctx, cancel, b.profiles.Open(ctx, getProfileID(r.Context()))
}
