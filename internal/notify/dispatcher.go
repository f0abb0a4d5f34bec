package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"esign-backend/internal/shared/metrics"
	"esign-backend/internal/shared/telemetry"
	"esign-backend/internal/shared/util"
)

const defaultTimeout = 2 * time.Minute

// SignedNotice is the input for the two signed-document messages.
type SignedNotice struct {
	DocumentID    string
	RecipientID   string
	DocumentTitle string
	SignerName    string
	SignerEmail   string
	OwnerName     string
	OwnerEmail    string
	PDF           []byte
}

// Invitation asks a recipient to open their signing link.
type Invitation struct {
	DocumentID     string
	RecipientID    string
	DocumentTitle  string
	RecipientName  string
	RecipientEmail string
	SenderName     string
	SignURL        string
}

// Options configures a Dispatcher.
type Options struct {
	From       string
	AppBaseURL string
	Timeout    time.Duration
}

// Dispatcher renders and sends notifications, and runs background deliveries
// that outlive the request which triggered them.
type Dispatcher struct {
	mailer  Mailer
	from    string
	appURL  string
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(mailer Mailer, opts Options) *Dispatcher {
	if mailer == nil {
		mailer = LogMailer{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Dispatcher{
		mailer:  mailer,
		from:    opts.From,
		appURL:  strings.TrimRight(opts.AppBaseURL, "/"),
		timeout: timeout,
	}
}

// Go runs fn detached from the caller's cancellation, bounded by the dispatcher
// timeout. Values carried by ctx stay visible to fn.
func (d *Dispatcher) Go(ctx context.Context, name string, fn func(ctx context.Context)) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				telemetry.Error("notify.panic", map[string]any{"task": name, "error": rec})
			}
		}()
		bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()
		fn(bgCtx)
	}()
}

// Wait blocks until background work finishes or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendSigned sends the signer confirmation and the owner notice concurrently.
// Each send fails independently; the joined error holds one
// *NotificationError per failed send.
func (d *Dispatcher) SendSigned(ctx context.Context, n SignedNotice) error {
	filename := util.SignedFileName(n.DocumentTitle)
	attachment := []Attachment{{Filename: filename, Content: n.PDF}}

	type job struct {
		kind    string
		to      string
		subject string
		html    func() (string, error)
	}
	jobs := []job{
		{
			kind:    "signer",
			to:      n.SignerEmail,
			subject: "Signed document: " + n.DocumentTitle,
			html: func() (string, error) {
				return render(signerTemplate, n)
			},
		},
		{
			kind:    "owner",
			to:      n.OwnerEmail,
			subject: "Your document was signed: " + n.DocumentTitle,
			html: func() (string, error) {
				return render(ownerTemplate, struct {
					SignedNotice
					DashboardURL string
				}{n, d.dashboardURL()})
			},
		},
	}

	errs := make([]error, len(jobs))
	var wg sync.WaitGroup
	for i, j := range jobs {
		wg.Add(1)
		go func(i int, j job) {
			defer wg.Done()
			errs[i] = d.send(ctx, j.kind, j.to, j.subject, j.html, attachment, n.DocumentID, n.RecipientID)
		}(i, j)
	}
	wg.Wait()
	return errors.Join(errs...)
}

// SendInvitation sends the signing link to one recipient.
func (d *Dispatcher) SendInvitation(ctx context.Context, inv Invitation) error {
	html := func() (string, error) { return render(invitationTemplate, inv) }
	subject := "Signature requested: " + inv.DocumentTitle
	return d.send(ctx, "invitation", inv.RecipientEmail, subject, html, nil, inv.DocumentID, inv.RecipientID)
}

// SignURL builds the public signing link for a token.
func (d *Dispatcher) SignURL(token string) string {
	return d.appURL + "/sign/" + token
}

func (d *Dispatcher) dashboardURL() string {
	if d.appURL == "" {
		return ""
	}
	return d.appURL + "/dashboard/documents"
}

func (d *Dispatcher) send(ctx context.Context, kind, to, subject string, html func() (string, error), attachments []Attachment, documentID, recipientID string) error {
	fields := map[string]any{
		"kind":         kind,
		"document_id":  documentID,
		"recipient_id": recipientID,
	}
	if strings.TrimSpace(to) == "" {
		err := &NotificationError{Kind: kind, To: to, Err: errors.New("missing recipient address")}
		fields["error"] = err
		telemetry.Error("notify.failed", fields)
		metrics.IncNotification(kind, "failed")
		return err
	}
	body, err := html()
	if err == nil {
		err = d.mailer.Send(ctx, Message{
			From:        d.from,
			To:          []string{to},
			Subject:     subject,
			HTML:        body,
			Attachments: attachments,
		})
	}
	if err != nil {
		nerr := &NotificationError{Kind: kind, To: to, Err: err}
		fields["error"] = nerr
		telemetry.Error("notify.failed", fields)
		metrics.IncNotification(kind, "failed")
		return nerr
	}
	telemetry.Info("notify.sent", fields)
	metrics.IncNotification(kind, "sent")
	return nil
}
