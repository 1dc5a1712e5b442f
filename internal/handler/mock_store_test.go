package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tractdb/tractdb-server/internal/couch"
	apperrors "github.com/tractdb/tractdb-server/internal/errors"
	"github.com/tractdb/tractdb-server/internal/middleware"
	"github.com/tractdb/tractdb-server/internal/model"
)

type mockStore struct {
	existsDocumentFunc   func(ctx context.Context, docID string) (bool, error)
	getDocumentFunc      func(ctx context.Context, docID string) (model.Document, error)
	listDocumentsFunc    func(ctx context.Context) ([]string, error)
	createDocumentFunc   func(ctx context.Context, doc model.Document, docID string) (model.DocRef, error)
	updateDocumentFunc   func(ctx context.Context, docID string, doc model.Document) (model.DocRef, error)
	deleteDocumentFunc   func(ctx context.Context, docID string) error
	createAttachmentFunc func(ctx context.Context, docID, rev string, att model.Attachment) (model.DocRef, error)
	getAttachmentFunc    func(ctx context.Context, docID, name string) (*model.Attachment, error)
	deleteAttachmentFunc func(ctx context.Context, docID, name, rev string) (model.DocRef, error)
}

func (m *mockStore) ExistsDocument(ctx context.Context, docID string) (bool, error) {
	if m.existsDocumentFunc != nil {
		return m.existsDocumentFunc(ctx, docID)
	}
	return false, nil
}

func (m *mockStore) GetDocument(ctx context.Context, docID string) (model.Document, error) {
	if m.getDocumentFunc != nil {
		return m.getDocumentFunc(ctx, docID)
	}
	return nil, apperrors.NotFound("document")
}

func (m *mockStore) ListDocuments(ctx context.Context) ([]string, error) {
	if m.listDocumentsFunc != nil {
		return m.listDocumentsFunc(ctx)
	}
	return nil, nil
}

func (m *mockStore) CreateDocument(ctx context.Context, doc model.Document, docID string) (model.DocRef, error) {
	if m.createDocumentFunc != nil {
		return m.createDocumentFunc(ctx, doc, docID)
	}
	return model.DocRef{ID: docID, Rev: "1-new"}, nil
}

func (m *mockStore) UpdateDocument(ctx context.Context, docID string, doc model.Document) (model.DocRef, error) {
	if m.updateDocumentFunc != nil {
		return m.updateDocumentFunc(ctx, docID, doc)
	}
	return model.DocRef{ID: docID, Rev: "2-next"}, nil
}

func (m *mockStore) DeleteDocument(ctx context.Context, docID string) error {
	if m.deleteDocumentFunc != nil {
		return m.deleteDocumentFunc(ctx, docID)
	}
	return nil
}

func (m *mockStore) CreateAttachment(ctx context.Context, docID, rev string, att model.Attachment) (model.DocRef, error) {
	if m.createAttachmentFunc != nil {
		return m.createAttachmentFunc(ctx, docID, rev, att)
	}
	return model.DocRef{ID: docID, Rev: "2-next"}, nil
}

func (m *mockStore) GetAttachment(ctx context.Context, docID, name string) (*model.Attachment, error) {
	if m.getAttachmentFunc != nil {
		return m.getAttachmentFunc(ctx, docID, name)
	}
	return nil, apperrors.NotFound("attachment")
}

func (m *mockStore) DeleteAttachment(ctx context.Context, docID, name, rev string) (model.DocRef, error) {
	if m.deleteAttachmentFunc != nil {
		return m.deleteAttachmentFunc(ctx, docID, name, rev)
	}
	return model.DocRef{ID: docID, Rev: "3-gone"}, nil
}

// testRouter mounts routes behind a middleware that injects the store,
// the way the auth middleware does on the live router.
func testRouter(store couch.Store, routes chi.Router) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := context.WithValue(req.Context(), middleware.StoreContextKey, store)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Mount("/", routes)
	return r
}
