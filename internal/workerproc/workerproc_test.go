package workerproc

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"esign-backend/internal/documents"
	"esign-backend/internal/notify"
	"esign-backend/internal/queue"
	"esign-backend/internal/recipients"
	"esign-backend/internal/shared/storage/object"
	"esign-backend/internal/shared/storage/object/local"
	"esign-backend/internal/users"
)

type fakeSender struct {
	signed      []notify.SignedNotice
	invitations []notify.Invitation
	err         error
}

func (f *fakeSender) SendSigned(ctx context.Context, n notify.SignedNotice) error {
	f.signed = append(f.signed, n)
	return f.err
}

func (f *fakeSender) SendInvitation(ctx context.Context, inv notify.Invitation) error {
	f.invitations = append(f.invitations, inv)
	return f.err
}

func (f *fakeSender) SignURL(token string) string { return "https://app.example.com/sign/" + token }

type processorFixture struct {
	proc   *Processor
	sender *fakeSender
	recips *recipients.MemoryRepo
	store  object.ObjectStore
}

func newProcessorFixture(t *testing.T) processorFixture {
	t.Helper()
	ctx := context.Background()
	docs := documents.NewMemoryRepo()
	recips := recipients.NewMemoryRepo()
	people := users.NewMemoryRepo()
	store := local.New(t.TempDir(), "http://localhost:8080/files")
	now := time.Now().UTC()

	if err := people.Upsert(ctx, users.User{ID: "owner-1", Email: "owner@example.com", FullName: "Olivia Owner"}); err != nil {
		t.Fatalf("seed owner: %v", err)
	}
	if err := docs.Create(ctx, documents.Document{ID: "doc-1", OwnerID: "owner-1", Title: "Lease", Status: documents.StatusSent, CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("seed document: %v", err)
	}
	if err := recips.CreateBatch(ctx, []recipients.Recipient{
		{ID: "rec-1", DocumentID: "doc-1", Email: "ana@example.com", Name: "Ana", Status: recipients.StatusPending, AccessToken: "tok-aaaaaaaaaaaaaaaa", CreatedAt: now},
	}); err != nil {
		t.Fatalf("seed recipients: %v", err)
	}

	sender := &fakeSender{}
	return processorFixture{
		proc:   &Processor{Recipients: recips, Documents: docs, Users: people, Store: store, Sender: sender},
		sender: sender,
		recips: recips,
		store:  store,
	}
}

func TestParseMessageClassifiesFailures(t *testing.T) {
	if _, _, err := ParseMessage("  "); !IsUnrecoverable(err) {
		t.Fatalf("expected unrecoverable empty body, got %v", err)
	}
	_, meta, err := ParseMessage("{bad")
	var decodeErr ErrDecode
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected decode error, got %v", err)
	}
	if meta.BodyLen != 4 || meta.BodySHA == "" {
		t.Fatalf("unexpected meta %+v", meta)
	}
	_, _, err = ParseMessage(`{"kind":"signed","documentId":"doc-1","version":1}`)
	if !errors.Is(err, queue.ErrMissingRecipientID) || !IsUnrecoverable(err) {
		t.Fatalf("expected missing recipient id, got %v", err)
	}
}

func TestProcessInvitationRebuildsSignLink(t *testing.T) {
	f := newProcessorFixture(t)
	err := f.proc.Process(context.Background(), queue.Message{Kind: queue.KindInvitation, DocumentID: "doc-1", RecipientID: "rec-1", Version: queue.MessageVersion})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(f.sender.invitations) != 1 {
		t.Fatalf("expected one invitation, got %d", len(f.sender.invitations))
	}
	inv := f.sender.invitations[0]
	if inv.SignURL != "https://app.example.com/sign/tok-aaaaaaaaaaaaaaaa" {
		t.Fatalf("unexpected sign url %q", inv.SignURL)
	}
	if inv.SenderName != "Olivia Owner" || inv.RecipientEmail != "ana@example.com" || inv.DocumentTitle != "Lease" {
		t.Fatalf("unexpected invitation %+v", inv)
	}
}

func TestProcessSignedLoadsStoredPDF(t *testing.T) {
	f := newProcessorFixture(t)
	ctx := context.Background()
	pdf := []byte("%PDF-1.4 signed")
	if _, err := f.store.Put(ctx, "signed-documents/doc-1/rec-1.pdf", bytes.NewReader(pdf), object.PutOptions{ContentType: "application/pdf"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := f.recips.MarkSigned(ctx, "rec-1", recipients.SignedUpdate{SignedAt: time.Now().UTC(), SignedDocumentPath: "signed-documents/doc-1/rec-1.pdf"}); err != nil {
		t.Fatalf("mark signed: %v", err)
	}

	err := f.proc.Process(ctx, queue.Message{Kind: queue.KindSigned, DocumentID: "doc-1", RecipientID: "rec-1", Version: queue.MessageVersion})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(f.sender.signed) != 1 {
		t.Fatalf("expected one signed notice, got %d", len(f.sender.signed))
	}
	n := f.sender.signed[0]
	if !bytes.Equal(n.PDF, pdf) {
		t.Fatalf("unexpected pdf %q", n.PDF)
	}
	if n.OwnerEmail != "owner@example.com" || n.SignerName != "Ana" {
		t.Fatalf("unexpected notice %+v", n)
	}
}

func TestProcessSignedRequiresSignedRecipient(t *testing.T) {
	f := newProcessorFixture(t)
	err := f.proc.Process(context.Background(), queue.Message{Kind: queue.KindSigned, DocumentID: "doc-1", RecipientID: "rec-1", Version: queue.MessageVersion})
	var procErr ErrProcess
	if !errors.As(err, &procErr) {
		t.Fatalf("expected process error, got %v", err)
	}
	if procErr.RecipientID != "rec-1" || len(f.sender.signed) != 0 {
		t.Fatalf("unexpected result %+v sent=%d", procErr, len(f.sender.signed))
	}
}

func TestProcessRejectsRecipientFromOtherDocument(t *testing.T) {
	f := newProcessorFixture(t)
	err := f.proc.Process(context.Background(), queue.Message{Kind: queue.KindInvitation, DocumentID: "doc-2", RecipientID: "rec-1", Version: queue.MessageVersion})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(f.sender.invitations) != 0 {
		t.Fatalf("expected no invitation, got %d", len(f.sender.invitations))
	}
}

func TestProcessUnknownRecipient(t *testing.T) {
	f := newProcessorFixture(t)
	err := f.proc.Process(context.Background(), queue.Message{Kind: queue.KindInvitation, DocumentID: "doc-1", RecipientID: "missing", Version: queue.MessageVersion})
	if !errors.Is(err, recipients.ErrNotFound) {
		t.Fatalf("expected recipients.ErrNotFound, got %v", err)
	}
}
