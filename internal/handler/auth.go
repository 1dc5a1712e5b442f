package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/tractdb/tractdb-server/internal/errors"
	"github.com/tractdb/tractdb-server/internal/middleware"
	"github.com/tractdb/tractdb-server/internal/service"
)

// AuthHandler serves login/logout and the session probe.
type AuthHandler struct {
	auth         *service.AuthService
	sessionTTL   time.Duration
	isProduction bool
}

func NewAuthHandler(auth *service.AuthService, sessionTTL time.Duration, isProduction bool) *AuthHandler {
	return &AuthHandler{auth: auth, sessionTTL: sessionTTL, isProduction: isProduction}
}

func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Account  string `json:"account"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("invalid JSON body"))
		return
	}

	token, err := h.auth.Login(r.Context(), req.Account, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	middleware.SetSessionCookie(w, token, h.sessionTTL, h.isProduction)
	writeJSON(w, http.StatusOK, map[string]string{"account": req.Account})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.SessionToken(r); token != "" {
		// Best effort: logging out of a dead session is still a logout.
		h.auth.Logout(r.Context(), token)
	}

	middleware.ClearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"logged_out": true})
}

// Authenticated probes the session; it is mounted behind the auth
// middleware, so reaching it means the session resolved.
func (h *AuthHandler) Authenticated(w http.ResponseWriter, r *http.Request) {
	data := middleware.GetSession(r.Context())
	if data == nil {
		writeError(w, apperrors.NoSession())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"account": data.Account})
}
