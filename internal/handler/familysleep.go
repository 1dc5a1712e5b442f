package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/tractdb/tractdb-server/internal/errors"
	"github.com/tractdb/tractdb-server/internal/middleware"
	"github.com/tractdb/tractdb-server/internal/service"
)

// FamilySleepHandler serves the sleep aggregation endpoints plus the
// Fitbit plumbing (manual refresh and OAuth code configuration).
type FamilySleepHandler struct {
	familysleep *service.FamilySleepService
}

func NewFamilySleepHandler(familysleepService *service.FamilySleepService) *FamilySleepHandler {
	return &FamilySleepHandler{familysleep: familysleepService}
}

func (h *FamilySleepHandler) Routes() chi.Router {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func (h *FamilySleepHandler) RegisterRoutes(r chi.Router) {
	r.Get("/familysleep/fitbitquery", h.FitbitQuery)
	r.Get("/familysleep/familydaily/{date}", h.FamilyDaily)
	r.Get("/familysleep/familyweekly/{date}", h.FamilyWeekly)
	r.Get("/familysleep/singledaily/{pid}/{date}", h.SingleDaily)
	r.Get("/familysleep/singleweekly/{pid}/{date}", h.SingleWeekly)
	r.Post("/configure/fitbit/callback_code", h.ConfigureFitbit)
}

func (h *FamilySleepHandler) FamilyDaily(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	store := middleware.GetStore(r.Context())

	result, err := h.familysleep.FamilyDaily(r.Context(), store, date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *FamilySleepHandler) FamilyWeekly(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	store := middleware.GetStore(r.Context())

	result, err := h.familysleep.FamilyWeekly(r.Context(), store, date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *FamilySleepHandler) SingleDaily(w http.ResponseWriter, r *http.Request) {
	pid := chi.URLParam(r, "pid")
	date := chi.URLParam(r, "date")
	store := middleware.GetStore(r.Context())

	result, err := h.familysleep.SingleDaily(r.Context(), store, pid, date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *FamilySleepHandler) SingleWeekly(w http.ResponseWriter, r *http.Request) {
	pid := chi.URLParam(r, "pid")
	date := chi.URLParam(r, "date")
	store := middleware.GetStore(r.Context())

	result, err := h.familysleep.SingleWeekly(r.Context(), store, pid, date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *FamilySleepHandler) FitbitQuery(w http.ResponseWriter, r *http.Request) {
	store := middleware.GetStore(r.Context())

	logs, err := h.familysleep.RefreshFitbitData(r.Context(), store)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func (h *FamilySleepHandler) ConfigureFitbit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CallbackCode string `json:"callback_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("invalid JSON body"))
		return
	}

	store := middleware.GetStore(r.Context())
	if err := h.familysleep.ConfigureFitbit(r.Context(), store, req.CallbackCode); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"configured": true})
}
