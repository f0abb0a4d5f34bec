package documents

import (
	"context"
	"errors"
)

var (
	ErrNotFound     = errors.New("document not found")
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotDraft is returned when an edit or send targets a document that has
	// already left the draft state.
	ErrNotDraft = errors.New("document is not a draft")
)

// Repo persists documents.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, id string) (Document, error)
	List(ctx context.Context, ownerID string, filter ListFilter) ([]Document, error)
	// UpdateDraft applies patch only while the document is a draft.
	UpdateDraft(ctx context.Context, id string, patch DraftPatch) (Document, error)
	// MarkSent moves draft -> sent and reports whether this call changed the row.
	MarkSent(ctx context.Context, id string) (bool, error)
	// MarkCompleted moves the document to completed unless it already is, and
	// reports whether this call performed the transition.
	MarkCompleted(ctx context.Context, id string) (bool, error)
	// ListIDsByStatus returns up to limit ids in the given status that sort
	// after afterID, in id order. An empty afterID starts from the beginning.
	ListIDsByStatus(ctx context.Context, status Status, afterID string, limit int) ([]string, error)
}
