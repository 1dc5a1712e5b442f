package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/tractdb/tractdb-server/internal/errors"
	"github.com/tractdb/tractdb-server/internal/middleware"
	"github.com/tractdb/tractdb-server/internal/model"
)

// DocumentHandler is the document CRUD surface. Every operation runs
// against the gateway the auth middleware scoped to the session's
// account; the handler itself holds no credentials.
type DocumentHandler struct{}

func NewDocumentHandler() *DocumentHandler {
	return &DocumentHandler{}
}

func (h *DocumentHandler) Routes() chi.Router {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func (h *DocumentHandler) RegisterRoutes(r chi.Router) {
	r.Get("/documents", h.ListDocuments)
	r.Post("/documents", h.CreateDocument)
	r.Get("/document/{id}", h.GetDocument)
	r.Post("/document/{id}", h.CreateDocumentWithID)
	r.Put("/document/{id}", h.PutDocument)
	r.Delete("/document/{id}", h.DeleteDocument)
}

func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	store := middleware.GetStore(r.Context())

	ids, err := store.ListDocuments(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	docs := make([]model.Document, 0, len(ids))
	for _, id := range ids {
		doc, err := store.GetDocument(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		docs = append(docs, doc)
	}

	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Document model.Document `json:"document"`
		ID       string         `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("invalid JSON body"))
		return
	}
	if req.Document == nil {
		writeError(w, apperrors.ValidationError("document is required"))
		return
	}

	store := middleware.GetStore(r.Context())
	ref, err := store.CreateDocument(r.Context(), req.Document, req.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Location", documentLocation(ref.ID))
	writeJSON(w, http.StatusCreated, ref)
}

func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "id")
	store := middleware.GetStore(r.Context())

	doc, err := store.GetDocument(r.Context(), docID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) CreateDocumentWithID(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "id")

	var doc model.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, apperrors.ValidationError("invalid JSON body"))
		return
	}

	store := middleware.GetStore(r.Context())
	ref, err := store.CreateDocument(r.Context(), doc, docID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Location", documentLocation(ref.ID))
	writeJSON(w, http.StatusCreated, ref)
}

// PutDocument creates the document when it is new, otherwise replaces
// it. Replacing requires the current revision in the body; the store
// arbitrates staleness.
func (h *DocumentHandler) PutDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "id")

	var doc model.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, apperrors.ValidationError("invalid JSON body"))
		return
	}

	store := middleware.GetStore(r.Context())

	exists, err := store.ExistsDocument(r.Context(), docID)
	if err != nil {
		writeError(w, err)
		return
	}

	if !exists {
		ref, err := store.CreateDocument(r.Context(), doc, docID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, ref)
		return
	}

	ref, err := store.UpdateDocument(r.Context(), docID, doc)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ref)
}

func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "id")
	store := middleware.GetStore(r.Context())

	if err := store.DeleteDocument(r.Context(), docID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"_id": docID})
}

func documentLocation(docID string) string {
	return fmt.Sprintf("/document/%s", docID)
}
