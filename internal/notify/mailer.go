// Package notify delivers transactional e-mail: signing invitations and
// signed-document notices with the final PDF attached.
package notify

import (
	"context"
	"fmt"
)

// Attachment is a file attached to an outgoing message.
type Attachment struct {
	Filename string
	Content  []byte
}

// Message is one outgoing e-mail.
type Message struct {
	From        string
	To          []string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Mailer sends a single message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NotificationError reports a failed send. It is logged, never returned to signers.
type NotificationError struct {
	Kind string
	To   string
	Err  error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notify %s to %s: %v", e.Kind, e.To, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }
