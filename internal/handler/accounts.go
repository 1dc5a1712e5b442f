package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/tractdb/tractdb-server/internal/errors"
	"github.com/tractdb/tractdb-server/internal/service"
)

// AccountHandler is the provisioning surface: account CRUD and roles.
type AccountHandler struct {
	accounts *service.AccountService
}

func NewAccountHandler(accounts *service.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

func (h *AccountHandler) Routes() chi.Router {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes registers the provisioning routes on an existing
// router, so the caller controls the middleware chain around them.
func (h *AccountHandler) RegisterRoutes(r chi.Router) {
	r.Get("/accounts", h.List)
	r.Post("/accounts", h.Create)
	r.Delete("/account/{name}", h.Delete)
	r.Get("/account/{name}/roles", h.ListRoles)
	r.Post("/account/{name}/roles", h.AddRole)
	r.Delete("/account/{name}/role/{role}", h.RemoveRole)
}

func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Account  string `json:"account"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("invalid JSON body"))
		return
	}

	if err := h.accounts.Create(r.Context(), req.Account, req.Password); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"account": req.Account})
}

func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := h.accounts.Delete(r.Context(), name); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"account": name})
}

func (h *AccountHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	roles, err := h.accounts.ListRoles(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"roles": roles})
}

func (h *AccountHandler) AddRole(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("invalid JSON body"))
		return
	}

	if err := h.accounts.AddRole(r.Context(), name, req.Role); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"role": req.Role})
}

func (h *AccountHandler) RemoveRole(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	role := chi.URLParam(r, "role")

	if err := h.accounts.RemoveRole(r.Context(), name, role); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"role": role})
}
