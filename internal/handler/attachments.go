package handler

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/tractdb/tractdb-server/internal/errors"
	"github.com/tractdb/tractdb-server/internal/middleware"
	"github.com/tractdb/tractdb-server/internal/model"
)

// AttachmentHandler serves binary attachments on documents. Writes and
// deletes carry the document's current revision as a `rev` query
// parameter; a stale revision is a conflict arbitrated by the store.
type AttachmentHandler struct{}

func NewAttachmentHandler() *AttachmentHandler {
	return &AttachmentHandler{}
}

func (h *AttachmentHandler) Routes() chi.Router {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func (h *AttachmentHandler) RegisterRoutes(r chi.Router) {
	r.Get("/document/{id}/attachments", h.ListAttachments)
	r.Get("/document/{id}/attachment/{name}", h.GetAttachment)
	r.Post("/document/{id}/attachment/{name}", h.CreateAttachment)
	r.Put("/document/{id}/attachment/{name}", h.PutAttachment)
	r.Delete("/document/{id}/attachment/{name}", h.DeleteAttachment)
}

func (h *AttachmentHandler) ListAttachments(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "id")
	store := middleware.GetStore(r.Context())

	doc, err := store.GetDocument(r.Context(), docID)
	if err != nil {
		writeError(w, err)
		return
	}

	names := doc.AttachmentNames()
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"attachments": names})
}

func (h *AttachmentHandler) GetAttachment(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "id")
	name := chi.URLParam(r, "name")
	store := middleware.GetStore(r.Context())

	att, err := store.GetAttachment(r.Context(), docID, name)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", att.ContentType)
	w.WriteHeader(http.StatusOK)
	w.Write(att.Content)
}

// CreateAttachment adds a new attachment; an attachment that already
// exists under the name is a conflict.
func (h *AttachmentHandler) CreateAttachment(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "id")
	name := chi.URLParam(r, "name")
	store := middleware.GetStore(r.Context())

	doc, err := store.GetDocument(r.Context(), docID)
	if err != nil {
		writeError(w, err)
		return
	}
	if doc.HasAttachment(name) {
		writeError(w, apperrors.Conflict("attachment already exists"))
		return
	}

	att, rev, err := readAttachment(r, name)
	if err != nil {
		writeError(w, err)
		return
	}

	ref, err := store.CreateAttachment(r.Context(), docID, rev, *att)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ref)
}

// PutAttachment creates or replaces an attachment under the name.
func (h *AttachmentHandler) PutAttachment(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "id")
	name := chi.URLParam(r, "name")
	store := middleware.GetStore(r.Context())

	att, rev, err := readAttachment(r, name)
	if err != nil {
		writeError(w, err)
		return
	}

	ref, err := store.CreateAttachment(r.Context(), docID, rev, *att)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ref)
}

func (h *AttachmentHandler) DeleteAttachment(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "id")
	name := chi.URLParam(r, "name")
	store := middleware.GetStore(r.Context())

	doc, err := store.GetDocument(r.Context(), docID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !doc.HasAttachment(name) {
		writeError(w, apperrors.NotFound("attachment"))
		return
	}

	rev := r.URL.Query().Get("rev")
	if rev == "" {
		writeError(w, apperrors.Conflict("attachment delete requires the current revision"))
		return
	}

	ref, err := store.DeleteAttachment(r.Context(), docID, name, rev)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ref)
}

func readAttachment(r *http.Request, name string) (*model.Attachment, string, error) {
	rev := r.URL.Query().Get("rev")
	if rev == "" {
		return nil, "", apperrors.Conflict("attachment write requires the current revision")
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	content, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, "", apperrors.ValidationError("unreadable request body")
	}

	return &model.Attachment{
		Name:        name,
		ContentType: contentType,
		Content:     content,
	}, rev, nil
}
