package api

import (
	"fmt"
	"net/http"
)

// AuthHandler serves account signup and login.
type AuthHandler struct {
	deps AuthDependencies
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(deps AuthDependencies) *AuthHandler {
	return &AuthHandler{deps: deps}
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleSignup handles POST /auth/signup.
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	const op = "api.auth.signup"
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, WrapKind(op, ErrBadRequest, fmt.Errorf("invalid JSON body: %w", err)))
		return
	}
	sess, err := h.deps.Signup(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// HandleLogin handles POST /auth/login.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	const op = "api.auth.login"
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, WrapKind(op, ErrBadRequest, fmt.Errorf("invalid JSON body: %w", err)))
		return
	}
	sess, err := h.deps.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, sess)
}
