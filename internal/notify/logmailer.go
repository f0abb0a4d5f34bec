package notify

import (
	"context"
	"strings"

	"esign-backend/internal/shared/telemetry"
)

// LogMailer writes messages to the structured log instead of sending them.
// Used in development when no mail provider is configured.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	names := make([]string, 0, len(msg.Attachments))
	size := 0
	for _, a := range msg.Attachments {
		names = append(names, a.Filename)
		size += len(a.Content)
	}
	telemetry.Info("mail.logged", map[string]any{
		"to":               strings.Join(msg.To, ","),
		"subject":          msg.Subject,
		"attachments":      strings.Join(names, ","),
		"attachment_bytes": size,
	})
	return nil
}
