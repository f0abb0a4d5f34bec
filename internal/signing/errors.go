package signing

import (
	"errors"
	"fmt"

	"esign-backend/internal/notify"
)

var (
	// ErrInvalidToken covers unknown, malformed and expired signing links alike.
	ErrInvalidToken = errors.New("invalid signing token")
	// ErrAlreadySigned is returned for any submission against a signed recipient.
	ErrAlreadySigned = errors.New("recipient already signed")
	// ErrEmptySignature is returned when the drawn signature decodes to nothing.
	ErrEmptySignature = errors.New("empty signature")
)

// PreconditionError reports a missing input detected before calling the renderer.
type PreconditionError struct {
	Field string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed: %s is required", e.Field)
}

// StorageError reports a failed object store write.
type StorageError struct {
	Artifact string
	Key      string
	Err      error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Artifact, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// RenderError reports a failed PDF render. Status and Body are set when the
// renderer answered with a non-2xx response.
type RenderError struct {
	Status int
	Body   string
	Err    error
}

func (e *RenderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("render pdf: upstream status %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("render pdf: %v", e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// PersistenceError reports a failed datastore read or write.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// NotificationError is re-exported so callers can match on it from this package.
type NotificationError = notify.NotificationError

const (
	opResolve    = "resolve session"
	opMarkSigned = "mark signed"
	opMarkViewed = "mark viewed"
)

const msgGeneric = "Something went wrong. Please try again."

// UserMessage maps a workflow error to the fixed text shown to the signer.
// Diagnostics never leave the server.
func UserMessage(err error) string {
	var (
		precondition *PreconditionError
		storage      *StorageError
		render       *RenderError
		persistence  *PersistenceError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidToken):
		return "This signing link is invalid or has expired."
	case errors.Is(err, ErrAlreadySigned):
		return "This document has already been signed."
	case errors.Is(err, ErrEmptySignature):
		return "Please draw your signature before submitting."
	case errors.As(err, &precondition):
		return "Could not generate the final document."
	case errors.As(err, &storage):
		if storage.Artifact == artifactSignature {
			return "Could not save the signature image."
		}
		return "Could not save the final document."
	case errors.As(err, &render):
		return "Could not generate the final document."
	case errors.As(err, &persistence):
		if persistence.Op == opMarkSigned {
			return "Could not finalize the signing process."
		}
		return msgGeneric
	default:
		return msgGeneric
	}
}

// outcome labels a workflow result for metrics.
func outcome(err error) string {
	var (
		precondition *PreconditionError
		storage      *StorageError
		render       *RenderError
		persistence  *PersistenceError
	)
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, ErrAlreadySigned):
		return "already_signed"
	case errors.Is(err, ErrEmptySignature):
		return "empty_signature"
	case errors.As(err, &precondition):
		return "precondition"
	case errors.As(err, &storage):
		return "storage"
	case errors.As(err, &render):
		return "render"
	case errors.As(err, &persistence):
		return "persistence"
	default:
		return "error"
	}
}
