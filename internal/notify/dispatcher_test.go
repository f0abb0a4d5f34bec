package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingMailer struct {
	mu     sync.Mutex
	sent   []Message
	failTo map[string]error
}

func (m *recordingMailer) Send(ctx context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, to := range msg.To {
		if err, ok := m.failTo[to]; ok {
			return err
		}
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) byRecipient(to string) (Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.sent {
		if len(msg.To) == 1 && msg.To[0] == to {
			return msg, true
		}
	}
	return Message{}, false
}

func testNotice() SignedNotice {
	return SignedNotice{
		DocumentID:    "doc-1",
		RecipientID:   "rec-1",
		DocumentTitle: "Service  Agreement",
		SignerName:    "Ana Souza",
		SignerEmail:   "ana@example.com",
		OwnerName:     "Bruno Lima",
		OwnerEmail:    "bruno@example.com",
		PDF:           []byte("%PDF-1.4 test"),
	}
}

func TestSendSignedSendsBothMessages(t *testing.T) {
	mailer := &recordingMailer{}
	d := NewDispatcher(mailer, Options{From: "Docs <docs@example.com>", AppBaseURL: "https://app.example.com/"})

	if err := d.SendSigned(context.Background(), testNotice()); err != nil {
		t.Fatalf("SendSigned: %v", err)
	}

	signer, ok := mailer.byRecipient("ana@example.com")
	if !ok {
		t.Fatalf("signer message not sent")
	}
	if signer.Subject != "Signed document: Service  Agreement" {
		t.Fatalf("unexpected signer subject %q", signer.Subject)
	}
	if signer.From != "Docs <docs@example.com>" {
		t.Fatalf("unexpected from %q", signer.From)
	}
	if len(signer.Attachments) != 1 || signer.Attachments[0].Filename != "Service_Agreement_signed.pdf" {
		t.Fatalf("unexpected attachments %+v", signer.Attachments)
	}
	if !strings.Contains(signer.HTML, "Hello Ana Souza") {
		t.Fatalf("signer body missing greeting")
	}

	owner, ok := mailer.byRecipient("bruno@example.com")
	if !ok {
		t.Fatalf("owner message not sent")
	}
	if owner.Subject != "Your document was signed: Service  Agreement" {
		t.Fatalf("unexpected owner subject %q", owner.Subject)
	}
	if !strings.Contains(owner.HTML, "https://app.example.com/dashboard/documents") {
		t.Fatalf("owner body missing dashboard link")
	}
	if string(owner.Attachments[0].Content) != "%PDF-1.4 test" {
		t.Fatalf("owner attachment content mismatch")
	}
}

func TestSendSignedFailuresAreIndependent(t *testing.T) {
	mailer := &recordingMailer{failTo: map[string]error{"ana@example.com": errors.New("smtp down")}}
	d := NewDispatcher(mailer, Options{})

	err := d.SendSigned(context.Background(), testNotice())
	if err == nil {
		t.Fatalf("expected error")
	}
	var nerr *NotificationError
	if !errors.As(err, &nerr) || nerr.Kind != "signer" {
		t.Fatalf("expected signer NotificationError, got %v", err)
	}
	if _, ok := mailer.byRecipient("bruno@example.com"); !ok {
		t.Fatalf("owner message should still be sent")
	}
}

func TestSendSignedMissingOwnerAddress(t *testing.T) {
	mailer := &recordingMailer{}
	d := NewDispatcher(mailer, Options{})
	n := testNotice()
	n.OwnerEmail = ""

	err := d.SendSigned(context.Background(), n)
	var nerr *NotificationError
	if !errors.As(err, &nerr) || nerr.Kind != "owner" {
		t.Fatalf("expected owner NotificationError, got %v", err)
	}
	if _, ok := mailer.byRecipient("ana@example.com"); !ok {
		t.Fatalf("signer message should still be sent")
	}
}

func TestSendInvitationEscapesContent(t *testing.T) {
	mailer := &recordingMailer{}
	d := NewDispatcher(mailer, Options{AppBaseURL: "https://app.example.com"})

	err := d.SendInvitation(context.Background(), Invitation{
		DocumentTitle:  "<b>NDA</b>",
		RecipientName:  "Carla",
		RecipientEmail: "carla@example.com",
		SenderName:     "Bruno",
		SignURL:        d.SignURL("abc123"),
	})
	if err != nil {
		t.Fatalf("SendInvitation: %v", err)
	}
	msg, ok := mailer.byRecipient("carla@example.com")
	if !ok {
		t.Fatalf("invitation not sent")
	}
	if !strings.Contains(msg.HTML, "https://app.example.com/sign/abc123") {
		t.Fatalf("invitation missing sign link")
	}
	if strings.Contains(msg.HTML, "<b>NDA</b>") {
		t.Fatalf("document title should be escaped")
	}
	if len(msg.Attachments) != 0 {
		t.Fatalf("invitation should have no attachments")
	}
}

func TestGoRunsDetachedFromCallerCancellation(t *testing.T) {
	d := NewDispatcher(&recordingMailer{}, Options{Timeout: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ranWithLiveCtx bool
	d.Go(ctx, "test", func(ctx context.Context) {
		ranWithLiveCtx = ctx.Err() == nil
	})

	waitCtx, waitCancel := context.WithTimeout(context.Background(), time.Second)
	defer waitCancel()
	if err := d.Wait(waitCtx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !ranWithLiveCtx {
		t.Fatalf("expected background task to see a live context")
	}
}

func TestGoRecoversPanics(t *testing.T) {
	d := NewDispatcher(nil, Options{})
	d.Go(context.Background(), "panics", func(context.Context) {
		panic("boom")
	})
	waitCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := d.Wait(waitCtx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}
