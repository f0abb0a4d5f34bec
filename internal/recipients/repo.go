package recipients

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("recipient not found")
	// ErrAlreadySigned is returned by MarkSigned when the row is already signed.
	ErrAlreadySigned = errors.New("recipient already signed")
)

// Repo persists recipients.
type Repo interface {
	GetByToken(ctx context.Context, token string) (Recipient, error)
	GetByID(ctx context.Context, id string) (Recipient, error)
	ListByDocument(ctx context.Context, documentID string) ([]Recipient, error)
	CreateBatch(ctx context.Context, recipients []Recipient) error
	DeleteByIDs(ctx context.Context, ids []string) error
	// MarkViewed moves pending -> viewed and reports whether it changed the row.
	MarkViewed(ctx context.Context, id string) (bool, error)
	// MarkSigned applies the signed transition only if the row is not signed yet.
	MarkSigned(ctx context.Context, id string, upd SignedUpdate) error
}
