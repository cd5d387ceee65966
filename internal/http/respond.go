package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/fjod/go_cart/luxecart/internal/catalog"
	"github.com/fjod/go_cart/luxecart/internal/checkout"
	"github.com/fjod/go_cart/luxecart/internal/domain"
	"github.com/fjod/go_cart/luxecart/internal/orders"
	"github.com/fjod/go_cart/luxecart/internal/session"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Details   string `json:"details,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

// handleError converts domain errors to HTTP status codes.
func handleError(w http.ResponseWriter, err error) {
	var httpStatus int
	var code string
	retryable := false

	switch {
	case errors.Is(err, catalog.ErrProductNotFound), errors.Is(err, orders.ErrOrderNotFound):
		httpStatus = http.StatusNotFound
		code = "not_found"
	case errors.Is(err, catalog.ErrUpstream):
		httpStatus = http.StatusBadGateway
		code = "upstream_unavailable"
		retryable = true
	case errors.Is(err, orders.ErrIllegalTransition):
		httpStatus = http.StatusConflict
		code = "illegal_transition"
	case errors.Is(err, orders.ErrInvalidStatus), errors.Is(err, domain.ErrInvalidID):
		httpStatus = http.StatusBadRequest
		code = "invalid_argument"
	case errors.Is(err, session.ErrInvalidCredentials):
		httpStatus = http.StatusUnauthorized
		code = "invalid_credentials"
	case errors.Is(err, session.ErrNotLoggedIn), errors.Is(err, checkout.ErrNotAuthenticated):
		httpStatus = http.StatusUnauthorized
		code = "unauthenticated"
	case errors.Is(err, checkout.ErrEmptyCart):
		httpStatus = http.StatusBadRequest
		code = "empty_cart"
	case errors.Is(err, checkout.ErrInvalidPaymentMethod), errors.Is(err, checkout.ErrInvalidAddress):
		httpStatus = http.StatusBadRequest
		code = "invalid_argument"
	case errors.Is(err, context.DeadlineExceeded):
		httpStatus = http.StatusGatewayTimeout
		code = "timeout"
		retryable = true
	case errors.Is(err, context.Canceled):
		httpStatus = http.StatusRequestTimeout
		code = "canceled"
	default:
		httpStatus = http.StatusInternalServerError
		code = "internal_error"
	}

	message := err.Error()
	if httpStatus == http.StatusInternalServerError {
		message = "internal server error"
	}
	respondJSON(w, httpStatus, ErrorResponse{Error: message, Code: code, Retryable: retryable})
}
