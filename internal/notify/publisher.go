package notify

import (
	"context"
	"time"

	"esign-backend/internal/queue"
	"esign-backend/internal/shared/telemetry"
	"esign-backend/internal/users"
)

// SignedEvent is published once a recipient's signature is durably recorded.
type SignedEvent struct {
	DocumentID    string
	RecipientID   string
	DocumentTitle string
	OwnerID       string
	SignerName    string
	SignerEmail   string
	PDF           []byte
	RequestID     string
}

// InvitedEvent is published for each recipient created by a send.
type InvitedEvent struct {
	DocumentID     string
	RecipientID    string
	DocumentTitle  string
	OwnerID        string
	RecipientName  string
	RecipientEmail string
	AccessToken    string
	RequestID      string
}

// Publisher hands events to the notification pipeline. Publishing never
// blocks on delivery and never reports delivery failures to the caller.
type Publisher interface {
	PublishSigned(ctx context.Context, ev SignedEvent)
	PublishInvited(ctx context.Context, ev InvitedEvent)
}

// OwnerDirectory resolves document owners to their contact details.
type OwnerDirectory interface {
	GetByID(ctx context.Context, userID string) (users.User, error)
}

// InlinePublisher delivers notifications from the API process.
type InlinePublisher struct {
	dispatcher *Dispatcher
	owners     OwnerDirectory
}

func NewInlinePublisher(d *Dispatcher, owners OwnerDirectory) *InlinePublisher {
	return &InlinePublisher{dispatcher: d, owners: owners}
}

func (p *InlinePublisher) PublishSigned(ctx context.Context, ev SignedEvent) {
	p.dispatcher.Go(ctx, "signed", func(ctx context.Context) {
		owner := p.lookupOwner(ctx, ev.OwnerID, ev.DocumentID)
		_ = p.dispatcher.SendSigned(ctx, SignedNotice{
			DocumentID:    ev.DocumentID,
			RecipientID:   ev.RecipientID,
			DocumentTitle: ev.DocumentTitle,
			SignerName:    ev.SignerName,
			SignerEmail:   ev.SignerEmail,
			OwnerName:     owner.DisplayName(),
			OwnerEmail:    owner.Email,
			PDF:           ev.PDF,
		})
	})
}

func (p *InlinePublisher) PublishInvited(ctx context.Context, ev InvitedEvent) {
	p.dispatcher.Go(ctx, "invitation", func(ctx context.Context) {
		owner := p.lookupOwner(ctx, ev.OwnerID, ev.DocumentID)
		_ = p.dispatcher.SendInvitation(ctx, Invitation{
			DocumentID:     ev.DocumentID,
			RecipientID:    ev.RecipientID,
			DocumentTitle:  ev.DocumentTitle,
			RecipientName:  ev.RecipientName,
			RecipientEmail: ev.RecipientEmail,
			SenderName:     owner.DisplayName(),
			SignURL:        p.dispatcher.SignURL(ev.AccessToken),
		})
	})
}

// lookupOwner returns an empty user on failure; the owner send then fails on
// its own without affecting the signer's message.
func (p *InlinePublisher) lookupOwner(ctx context.Context, ownerID, documentID string) users.User {
	if p.owners == nil {
		return users.User{}
	}
	owner, err := p.owners.GetByID(ctx, ownerID)
	if err != nil {
		telemetry.Error("notify.owner_lookup_failed", map[string]any{
			"document_id": documentID,
			"owner_id":    ownerID,
			"error":       err,
		})
		return users.User{}
	}
	return owner
}

// QueuePublisher enqueues notification jobs for cmd/worker.
type QueuePublisher struct {
	dispatcher *Dispatcher
	client     queue.Client
	now        func() time.Time
}

func NewQueuePublisher(d *Dispatcher, client queue.Client) *QueuePublisher {
	return &QueuePublisher{dispatcher: d, client: client, now: time.Now}
}

func (p *QueuePublisher) PublishSigned(ctx context.Context, ev SignedEvent) {
	p.enqueue(ctx, queue.KindSigned, ev.DocumentID, ev.RecipientID, ev.RequestID)
}

func (p *QueuePublisher) PublishInvited(ctx context.Context, ev InvitedEvent) {
	p.enqueue(ctx, queue.KindInvitation, ev.DocumentID, ev.RecipientID, ev.RequestID)
}

func (p *QueuePublisher) enqueue(ctx context.Context, kind, documentID, recipientID, requestID string) {
	msg := queue.Message{
		Kind:        kind,
		DocumentID:  documentID,
		RecipientID: recipientID,
		RequestID:   requestID,
		EnqueuedAt:  p.now().UTC().Format(time.RFC3339),
		Version:     queue.MessageVersion,
	}
	p.dispatcher.Go(ctx, "enqueue."+kind, func(ctx context.Context) {
		if err := p.client.Send(ctx, msg); err != nil {
			telemetry.Error("notify.enqueue_failed", map[string]any{
				"kind":         kind,
				"document_id":  documentID,
				"recipient_id": recipientID,
				"request_id":   requestID,
				"error":        err,
			})
			return
		}
		telemetry.Info("notify.enqueued", map[string]any{
			"kind":         kind,
			"document_id":  documentID,
			"recipient_id": recipientID,
			"request_id":   requestID,
		})
	})
}

var (
	_ Publisher = (*InlinePublisher)(nil)
	_ Publisher = (*QueuePublisher)(nil)
)
