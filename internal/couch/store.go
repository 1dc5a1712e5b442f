package couch

import (
	"bytes"
	"context"
	"io"
	"strings"

	kivik "github.com/go-kivik/kivik/v4"

	apperrors "github.com/tractdb/tractdb-server/internal/errors"
	"github.com/tractdb/tractdb-server/internal/model"
)

// Store is the document gateway for one account database. It performs no
// caching and no retries; every call is a fresh round-trip and conflicts
// are arbitrated entirely by the backing store. Cross-account isolation
// comes from the credentials the Store was built with, not from checks in
// this layer.
type Store interface {
	ExistsDocument(ctx context.Context, docID string) (bool, error)
	GetDocument(ctx context.Context, docID string) (model.Document, error)
	ListDocuments(ctx context.Context) ([]string, error)
	// CreateDocument creates a document. docID "" lets the store assign
	// one; an explicit docID that already exists is a conflict, never an
	// overwrite.
	CreateDocument(ctx context.Context, doc model.Document, docID string) (model.DocRef, error)
	// UpdateDocument replaces a document. The document must carry the
	// revision it was last read with; a stale or absent revision is a
	// conflict.
	UpdateDocument(ctx context.Context, docID string, doc model.Document) (model.DocRef, error)
	DeleteDocument(ctx context.Context, docID string) error

	CreateAttachment(ctx context.Context, docID, rev string, att model.Attachment) (model.DocRef, error)
	GetAttachment(ctx context.Context, docID, name string) (*model.Attachment, error)
	DeleteAttachment(ctx context.Context, docID, name, rev string) (model.DocRef, error)
}

type store struct {
	db *kivik.DB
}

// DialStore opens a Store over one account database with the supplied
// scoped credentials.
func DialStore(couchURL, user, password, account string) (Store, error) {
	client, err := dial(couchURL, user, password)
	if err != nil {
		return nil, err
	}
	return &store{db: client.DB(DatabaseName(account))}, nil
}

func (s *store) ExistsDocument(ctx context.Context, docID string) (bool, error) {
	_, err := s.db.GetRev(ctx, docID)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, mapError(err, "document")
	}
	return true, nil
}

func (s *store) GetDocument(ctx context.Context, docID string) (model.Document, error) {
	var doc model.Document
	if err := s.db.Get(ctx, docID).ScanDoc(&doc); err != nil {
		return nil, mapError(err, "document")
	}
	return doc, nil
}

func (s *store) ListDocuments(ctx context.Context) ([]string, error) {
	rows := s.db.AllDocs(ctx)
	defer rows.Close()

	var ids []string
	for rows.Next() {
		id, err := rows.ID()
		if err != nil {
			return nil, mapError(err, "documents")
		}
		if strings.HasPrefix(id, "_design/") {
			continue
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "documents")
	}
	return ids, nil
}

func (s *store) CreateDocument(ctx context.Context, doc model.Document, docID string) (model.DocRef, error) {
	if docID == "" {
		id, rev, err := s.db.CreateDoc(ctx, doc)
		if err != nil {
			return model.DocRef{}, mapError(err, "document")
		}
		return model.DocRef{ID: id, Rev: rev}, nil
	}

	// Creating with an explicit id must never clobber an existing
	// document, so the incoming document may not carry a revision.
	if doc.Rev() != "" {
		return model.DocRef{}, apperrors.Conflict("new document must not carry a revision")
	}
	doc.SetID(docID)

	rev, err := s.db.Put(ctx, docID, doc)
	if err != nil {
		return model.DocRef{}, mapError(err, "document")
	}
	return model.DocRef{ID: docID, Rev: rev}, nil
}

func (s *store) UpdateDocument(ctx context.Context, docID string, doc model.Document) (model.DocRef, error) {
	if doc.Rev() == "" {
		return model.DocRef{}, apperrors.Conflict("document update requires the current revision")
	}
	doc.SetID(docID)

	rev, err := s.db.Put(ctx, docID, doc)
	if err != nil {
		return model.DocRef{}, mapError(err, "document")
	}
	return model.DocRef{ID: docID, Rev: rev}, nil
}

func (s *store) DeleteDocument(ctx context.Context, docID string) error {
	rev, err := s.db.GetRev(ctx, docID)
	if err != nil {
		return mapError(err, "document")
	}
	if _, err := s.db.Delete(ctx, docID, rev); err != nil {
		return mapError(err, "document")
	}
	return nil
}

func (s *store) CreateAttachment(ctx context.Context, docID, rev string, att model.Attachment) (model.DocRef, error) {
	attachment := &kivik.Attachment{
		Filename:    att.Name,
		ContentType: att.ContentType,
		Content:     io.NopCloser(bytes.NewReader(att.Content)),
	}
	newRev, err := s.db.PutAttachment(ctx, docID, attachment, kivik.Rev(rev))
	if err != nil {
		return model.DocRef{}, mapError(err, "attachment")
	}
	return model.DocRef{ID: docID, Rev: newRev}, nil
}

func (s *store) GetAttachment(ctx context.Context, docID, name string) (*model.Attachment, error) {
	attachment, err := s.db.GetAttachment(ctx, docID, name)
	if err != nil {
		return nil, mapError(err, "attachment")
	}
	defer attachment.Content.Close()

	content, err := io.ReadAll(attachment.Content)
	if err != nil {
		return nil, apperrors.Upstream("couchdb", err)
	}
	return &model.Attachment{
		Name:        name,
		ContentType: attachment.ContentType,
		Content:     content,
	}, nil
}

func (s *store) DeleteAttachment(ctx context.Context, docID, name, rev string) (model.DocRef, error) {
	newRev, err := s.db.DeleteAttachment(ctx, docID, rev, name)
	if err != nil {
		return model.DocRef{}, mapError(err, "attachment")
	}
	return model.DocRef{ID: docID, Rev: newRev}, nil
}
