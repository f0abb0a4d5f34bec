package signing

import (
	"context"
	"errors"

	"esign-backend/internal/documents"
	"esign-backend/internal/recipients"
)

const (
	minTokenLen = 16
	maxTokenLen = 128
)

// Session is a recipient joined with its parent document.
type Session struct {
	Recipient recipients.Recipient
	Document  documents.Document
}

// Resolver maps signing tokens to sessions.
type Resolver struct {
	Recipients recipients.Repo
	Documents  documents.Repo
}

// Resolve looks up exactly one recipient by token and loads its document.
// Unknown and malformed tokens both yield ErrInvalidToken.
func (r *Resolver) Resolve(ctx context.Context, token string) (Session, error) {
	if !wellFormedToken(token) {
		return Session{}, ErrInvalidToken
	}
	rec, err := r.Recipients.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, recipients.ErrNotFound) {
			return Session{}, ErrInvalidToken
		}
		return Session{}, &PersistenceError{Op: opResolve, Err: err}
	}
	doc, err := r.Documents.GetByID(ctx, rec.DocumentID)
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			return Session{}, ErrInvalidToken
		}
		return Session{}, &PersistenceError{Op: opResolve, Err: err}
	}
	return Session{Recipient: rec, Document: doc}, nil
}

func wellFormedToken(token string) bool {
	if len(token) < minTokenLen || len(token) > maxTokenLen {
		return false
	}
	for i := 0; i < len(token); i++ {
		c := token[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

// CheckEligible rejects sessions whose recipient has already signed.
func CheckEligible(s Session) error {
	if s.Recipient.Status == recipients.StatusSigned {
		return ErrAlreadySigned
	}
	return nil
}
