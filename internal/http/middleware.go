package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fjod/go_cart/luxecart/internal/logger"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProfileHeader selects the browsing profile a request acts on.
const ProfileHeader = "X-Profile-ID"

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	profileIDKey ctxKey = "profile_id"
)

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = fmt.Sprintf("req-%d", time.Now().UnixNano())
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ProfileMiddleware resolves the profile from the X-Profile-ID header, generating
// a new one when it is absent, and echoes it back.
func ProfileMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		profileID := r.Header.Get(ProfileHeader)
		if profileID == "" || len(profileID) > 128 {
			profileID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), profileIDKey, profileID)
		w.Header().Set(ProfileHeader, profileID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoggingMiddleware writes one structured line per request.
func LoggingMiddleware(log *zap.Logger) func(http.Handler) http.Handler {
	log = logger.OrNop(log).Named("http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.WithTrace(r.Context(), log).Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", getRequestID(r.Context())),
				zap.String("profile_id", getProfileID(r.Context())),
			)
		})
	}
}

func getRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

func getProfileID(ctx context.Context) string {
	if profileID, ok := ctx.Value(profileIDKey).(string); ok {
		return profileID
	}
	return ""
}
