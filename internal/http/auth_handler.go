package http

import (
	"net/http"

	"github.com/fjod/go_cart/luxecart/internal/domain"
	"github.com/fjod/go_cart/luxecart/internal/session"
)

type AuthHandler struct {
	base
}

type LoginRequestDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequestDTO struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	User    *domain.User `json:"user,omitempty"`
	Message string       `json:"message,omitempty"`
}

// POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, p := h.open(r)
	defer cancel()

	var req LoginRequestDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}
	user, err := p.Session.Login(ctx, req.Email, req.Password)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, AuthResponse{User: &user, Message: session.WelcomeBack(user)})
}

// POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, p := h.open(r)
	defer cancel()

	var req RegisterRequestDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}
	user, err := p.Session.Register(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, AuthResponse{User: &user, Message: session.Welcome(user)})
}

// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, p := h.open(r)
	defer cancel()

	p.Session.Logout(ctx)
	respondJSON(w, http.StatusOK, AuthResponse{Message: session.GoodbyeMessage})
}

// GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, p := h.open(r)
	defer cancel()

	user, ok := p.Session.Current(ctx)
	if !ok {
		handleError(w, session.ErrNotLoggedIn)
		return
	}
	respondJSON(w, http.StatusOK, AuthResponse{User: &user})
}

// PATCH /api/v1/auth/me
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, p := h.open(r)
	defer cancel()

	var req session.Profile
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}
	user, err := p.Session.UpdateProfile(ctx, req)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, AuthResponse{User: &user, Message: session.ProfileUpdatedMessage})
}
