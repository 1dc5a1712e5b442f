package model

// Document is a schema-less JSON object stored in an account database.
// The keys "_id" and "_rev" are reserved: "_id" is unique within the
// database and "_rev" is the opaque revision token the backing store uses
// for optimistic concurrency.
type Document map[string]any

const (
	FieldID          = "_id"
	FieldRev         = "_rev"
	FieldAttachments = "_attachments"
)

func (d Document) ID() string {
	if id, ok := d[FieldID].(string); ok {
		return id
	}
	return ""
}

func (d Document) Rev() string {
	if rev, ok := d[FieldRev].(string); ok {
		return rev
	}
	return ""
}

func (d Document) SetID(id string) {
	d[FieldID] = id
}

func (d Document) SetRev(rev string) {
	d[FieldRev] = rev
}

// AttachmentNames lists the names of attachments recorded on the document.
func (d Document) AttachmentNames() []string {
	stubs, ok := d[FieldAttachments].(map[string]any)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(stubs))
	for name := range stubs {
		names = append(names, name)
	}
	return names
}

func (d Document) HasAttachment(name string) bool {
	stubs, ok := d[FieldAttachments].(map[string]any)
	if !ok {
		return false
	}
	_, ok = stubs[name]
	return ok
}

// DocRef identifies a document revision, returned from mutations.
type DocRef struct {
	ID  string `json:"_id"`
	Rev string `json:"_rev"`
}

// Attachment is a named binary blob on a document.
type Attachment struct {
	Name        string
	ContentType string
	Content     []byte
}
