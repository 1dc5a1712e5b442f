package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tractdb/tractdb-server/internal/model"
)

func docWithAttachment(name string) model.Document {
	return model.Document{
		"_id":  "doc-1",
		"_rev": "1-a",
		"_attachments": map[string]any{
			name: map[string]any{"content_type": "image/png", "stub": true},
		},
	}
}

func TestListAttachments(t *testing.T) {
	t.Run("lists attachment names", func(t *testing.T) {
		store := &mockStore{
			getDocumentFunc: func(ctx context.Context, docID string) (model.Document, error) {
				return docWithAttachment("photo.png"), nil
			},
		}
		router := testRouter(store, NewAttachmentHandler().Routes())

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/document/doc-1/attachments", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"attachments":["photo.png"]}`, rec.Body.String())
	})

	t.Run("document without attachments yields empty list", func(t *testing.T) {
		store := &mockStore{
			getDocumentFunc: func(ctx context.Context, docID string) (model.Document, error) {
				return model.Document{"_id": "doc-1", "_rev": "1-a"}, nil
			},
		}
		router := testRouter(store, NewAttachmentHandler().Routes())

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/document/doc-1/attachments", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"attachments":[]}`, rec.Body.String())
	})

	t.Run("missing document is 404", func(t *testing.T) {
		router := testRouter(&mockStore{}, NewAttachmentHandler().Routes())

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/document/missing/attachments", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestGetAttachment(t *testing.T) {
	t.Run("serves content with its stored type", func(t *testing.T) {
		store := &mockStore{
			getAttachmentFunc: func(ctx context.Context, docID, name string) (*model.Attachment, error) {
				return &model.Attachment{
					Name:        name,
					ContentType: "image/png",
					Content:     []byte("png-bytes"),
				}, nil
			},
		}
		router := testRouter(store, NewAttachmentHandler().Routes())

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/document/doc-1/attachment/photo.png", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		assert.Equal(t, "png-bytes", rec.Body.String())
	})

	t.Run("missing attachment is 404", func(t *testing.T) {
		router := testRouter(&mockStore{}, NewAttachmentHandler().Routes())

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/document/doc-1/attachment/nope.png", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCreateAttachment(t *testing.T) {
	t.Run("stores a new attachment", func(t *testing.T) {
		store := &mockStore{
			getDocumentFunc: func(ctx context.Context, docID string) (model.Document, error) {
				return model.Document{"_id": "doc-1", "_rev": "1-a"}, nil
			},
			createAttachmentFunc: func(ctx context.Context, docID, rev string, att model.Attachment) (model.DocRef, error) {
				assert.Equal(t, "1-a", rev)
				assert.Equal(t, "photo.png", att.Name)
				assert.Equal(t, "image/png", att.ContentType)
				assert.Equal(t, []byte("png-bytes"), att.Content)
				return model.DocRef{ID: docID, Rev: "2-b"}, nil
			},
		}
		router := testRouter(store, NewAttachmentHandler().Routes())

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/document/doc-1/attachment/photo.png?rev=1-a",
			strings.NewReader("png-bytes"))
		req.Header.Set("Content-Type", "image/png")
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("existing attachment is a conflict", func(t *testing.T) {
		store := &mockStore{
			getDocumentFunc: func(ctx context.Context, docID string) (model.Document, error) {
				return docWithAttachment("photo.png"), nil
			},
		}
		router := testRouter(store, NewAttachmentHandler().Routes())

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/document/doc-1/attachment/photo.png?rev=1-a",
			strings.NewReader("png-bytes"))
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("missing rev is a conflict", func(t *testing.T) {
		store := &mockStore{
			getDocumentFunc: func(ctx context.Context, docID string) (model.Document, error) {
				return model.Document{"_id": "doc-1", "_rev": "1-a"}, nil
			},
		}
		router := testRouter(store, NewAttachmentHandler().Routes())

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/document/doc-1/attachment/photo.png",
			strings.NewReader("png-bytes"))
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestPutAttachment(t *testing.T) {
	t.Run("replaces without an existence check", func(t *testing.T) {
		store := &mockStore{
			createAttachmentFunc: func(ctx context.Context, docID, rev string, att model.Attachment) (model.DocRef, error) {
				assert.Equal(t, "2-b", rev)
				return model.DocRef{ID: docID, Rev: "3-c"}, nil
			},
		}
		router := testRouter(store, NewAttachmentHandler().Routes())

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/document/doc-1/attachment/photo.png?rev=2-b",
			strings.NewReader("new-bytes"))
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("defaults the content type", func(t *testing.T) {
		store := &mockStore{
			createAttachmentFunc: func(ctx context.Context, docID, rev string, att model.Attachment) (model.DocRef, error) {
				assert.Equal(t, "application/octet-stream", att.ContentType)
				return model.DocRef{ID: docID, Rev: "3-c"}, nil
			},
		}
		router := testRouter(store, NewAttachmentHandler().Routes())

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/document/doc-1/attachment/blob?rev=2-b",
			strings.NewReader("raw"))
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestDeleteAttachment(t *testing.T) {
	t.Run("deletes a recorded attachment", func(t *testing.T) {
		store := &mockStore{
			getDocumentFunc: func(ctx context.Context, docID string) (model.Document, error) {
				return docWithAttachment("photo.png"), nil
			},
			deleteAttachmentFunc: func(ctx context.Context, docID, name, rev string) (model.DocRef, error) {
				assert.Equal(t, "photo.png", name)
				assert.Equal(t, "1-a", rev)
				return model.DocRef{ID: docID, Rev: "2-b"}, nil
			},
		}
		router := testRouter(store, NewAttachmentHandler().Routes())

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/document/doc-1/attachment/photo.png?rev=1-a", nil)
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unrecorded attachment is 404", func(t *testing.T) {
		store := &mockStore{
			getDocumentFunc: func(ctx context.Context, docID string) (model.Document, error) {
				return model.Document{"_id": "doc-1", "_rev": "1-a"}, nil
			},
		}
		router := testRouter(store, NewAttachmentHandler().Routes())

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/document/doc-1/attachment/photo.png?rev=1-a", nil)
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing rev is a conflict", func(t *testing.T) {
		store := &mockStore{
			getDocumentFunc: func(ctx context.Context, docID string) (model.Document, error) {
				return docWithAttachment("photo.png"), nil
			},
		}
		router := testRouter(store, NewAttachmentHandler().Routes())

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/document/doc-1/attachment/photo.png", nil)
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}
