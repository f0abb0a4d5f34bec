// Package workerproc turns queued notification jobs back into e-mails.
package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"esign-backend/internal/documents"
	"esign-backend/internal/notify"
	"esign-backend/internal/queue"
	"esign-backend/internal/recipients"
	"esign-backend/internal/shared/storage/object"
	"esign-backend/internal/shared/telemetry"
	"esign-backend/internal/users"
)

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

func (e ErrDecode) Unwrap() error { return e.Err }

// ErrInvalid indicates a decoded message that fails validation.
type ErrInvalid struct {
	Meta      MessageMeta
	RequestID string
	Err       error
}

func (e ErrInvalid) Error() string { return "invalid message: " + e.Err.Error() }

func (e ErrInvalid) Unwrap() error { return e.Err }

// ErrProcess indicates delivery failed after successful parsing.
type ErrProcess struct {
	Kind        string
	DocumentID  string
	RecipientID string
	RequestID   string
	Err         error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process " + e.Kind
	}
	return "process " + e.Kind + ": " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// ParseMessage decodes and validates the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}
	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if err := msg.Validate(); err != nil {
		return msg, meta, ErrInvalid{Meta: meta, RequestID: msg.RequestID, Err: err}
	}
	return msg, meta, nil
}

// Sender delivers the rebuilt notifications.
type Sender interface {
	SendSigned(ctx context.Context, n notify.SignedNotice) error
	SendInvitation(ctx context.Context, inv notify.Invitation) error
	SignURL(token string) string
}

// Processor reloads the rows a job refers to and sends the e-mails.
type Processor struct {
	Recipients recipients.Repo
	Documents  documents.Repo
	Users      notify.OwnerDirectory
	Store      object.ObjectStore
	Sender     Sender
}

// Process delivers one decoded message.
func (p *Processor) Process(ctx context.Context, msg queue.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	ctx = telemetry.WithRequestID(ctx, msg.RequestID)

	var err error
	switch msg.Kind {
	case queue.KindSigned:
		err = p.processSigned(ctx, msg)
	case queue.KindInvitation:
		err = p.processInvitation(ctx, msg)
	default:
		err = queue.ErrUnknownKind
	}
	if err != nil {
		return ErrProcess{Kind: msg.Kind, DocumentID: msg.DocumentID, RecipientID: msg.RecipientID, RequestID: msg.RequestID, Err: err}
	}
	return nil
}

func (p *Processor) load(ctx context.Context, msg queue.Message) (recipients.Recipient, documents.Document, users.User, error) {
	rec, err := p.Recipients.GetByID(ctx, msg.RecipientID)
	if err != nil {
		return recipients.Recipient{}, documents.Document{}, users.User{}, fmt.Errorf("load recipient: %w", err)
	}
	if rec.DocumentID != msg.DocumentID {
		return recipients.Recipient{}, documents.Document{}, users.User{}, fmt.Errorf("recipient %s does not belong to document %s", rec.ID, msg.DocumentID)
	}
	doc, err := p.Documents.GetByID(ctx, msg.DocumentID)
	if err != nil {
		return recipients.Recipient{}, documents.Document{}, users.User{}, fmt.Errorf("load document: %w", err)
	}
	owner, err := p.Users.GetByID(ctx, doc.OwnerID)
	if err != nil {
		telemetry.Warn("worker.owner_lookup_failed", map[string]any{
			"document_id": doc.ID,
			"owner_id":    doc.OwnerID,
			"error":       err,
		})
		owner = users.User{}
	}
	return rec, doc, owner, nil
}

func (p *Processor) processSigned(ctx context.Context, msg queue.Message) error {
	rec, doc, owner, err := p.load(ctx, msg)
	if err != nil {
		return err
	}
	if rec.Status != recipients.StatusSigned || rec.SignedDocumentPath == "" {
		return fmt.Errorf("recipient %s has no signed document", rec.ID)
	}
	rc, err := p.Store.Open(ctx, rec.SignedDocumentPath)
	if err != nil {
		return fmt.Errorf("open signed document: %w", err)
	}
	defer rc.Close()
	pdf, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("read signed document: %w", err)
	}
	return p.Sender.SendSigned(ctx, notify.SignedNotice{
		DocumentID:    doc.ID,
		RecipientID:   rec.ID,
		DocumentTitle: doc.Title,
		SignerName:    signerName(rec),
		SignerEmail:   rec.Email,
		OwnerName:     owner.DisplayName(),
		OwnerEmail:    owner.Email,
		PDF:           pdf,
	})
}

func (p *Processor) processInvitation(ctx context.Context, msg queue.Message) error {
	rec, doc, owner, err := p.load(ctx, msg)
	if err != nil {
		return err
	}
	if rec.Status == recipients.StatusSigned {
		telemetry.Info("worker.invitation_skipped", map[string]any{
			"document_id":  doc.ID,
			"recipient_id": rec.ID,
			"reason":       "already signed",
		})
		return nil
	}
	return p.Sender.SendInvitation(ctx, notify.Invitation{
		DocumentID:     doc.ID,
		RecipientID:    rec.ID,
		DocumentTitle:  doc.Title,
		RecipientName:  rec.Name,
		RecipientEmail: rec.Email,
		SenderName:     owner.DisplayName(),
		SignURL:        p.Sender.SignURL(rec.AccessToken),
	})
}

func signerName(rec recipients.Recipient) string {
	if strings.TrimSpace(rec.Name) != "" {
		return rec.Name
	}
	return rec.Email
}

// IsUnrecoverable reports whether a parse error can never succeed on retry.
func IsUnrecoverable(err error) bool {
	var (
		empty   ErrEmptyBody
		decode  ErrDecode
		invalid ErrInvalid
	)
	return errors.As(err, &empty) || errors.As(err, &decode) || errors.As(err, &invalid)
}
