package documents

import (
	"encoding/json"
	"time"
)

// Status is the document lifecycle: draft -> sent -> completed.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusCompleted:
		return true
	}
	return false
}

// DefaultTitle is used for new drafts created without a title.
const DefaultTitle = "Untitled document"

// Document is an owner's rich-text document.
type Document struct {
	ID        string
	OwnerID   string
	Title     string
	Content   json.RawMessage
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListFilter narrows an owner's document listing.
type ListFilter struct {
	Status Status
	Query  string
	Limit  int
	Offset int
}

// DraftPatch holds the fields an owner may change while the document is a draft.
// Nil fields are left untouched.
type DraftPatch struct {
	Title   *string
	Content json.RawMessage
}
