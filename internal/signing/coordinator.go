package signing

import (
	"context"
	"errors"

	"esign-backend/internal/documents"
	"esign-backend/internal/recipients"
	"esign-backend/internal/shared/metrics"
	"esign-backend/internal/shared/telemetry"
)

// Coordinator owns the recipient signed transition and the document
// completed transition.
type Coordinator struct {
	Recipients recipients.Repo
	Documents  documents.Repo
}

// MarkSigned records the signed transition. Losing a race to another
// submission yields ErrAlreadySigned.
func (c *Coordinator) MarkSigned(ctx context.Context, recipientID string, upd recipients.SignedUpdate) error {
	err := c.Recipients.MarkSigned(ctx, recipientID, upd)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, recipients.ErrAlreadySigned):
		return ErrAlreadySigned
	default:
		return &PersistenceError{Op: opMarkSigned, Err: err}
	}
}

// CompleteIfOthersSigned reads every other recipient of the document and
// promotes the document to completed when all of them have signed. It reports
// whether this call performed the transition. Errors are logged and swallowed;
// Reconcile repairs a missed transition later.
func (c *Coordinator) CompleteIfOthersSigned(ctx context.Context, documentID, recipientID string) bool {
	recs, err := c.Recipients.ListByDocument(ctx, documentID)
	if err != nil {
		telemetry.Error("signing.completion_check_failed", map[string]any{
			"document_id":  documentID,
			"recipient_id": recipientID,
			"error":        err,
		})
		return false
	}
	for _, r := range recs {
		if r.ID == recipientID {
			continue
		}
		if r.Status != recipients.StatusSigned {
			return false
		}
	}
	return c.complete(ctx, documentID, recipientID)
}

// Reconcile recomputes the completion predicate over all recipients of a
// document and applies the completed transition if it holds. A document with
// no recipients is left alone. Safe to call repeatedly.
func (c *Coordinator) Reconcile(ctx context.Context, documentID string) (bool, error) {
	recs, err := c.Recipients.ListByDocument(ctx, documentID)
	if err != nil {
		return false, &PersistenceError{Op: "list recipients", Err: err}
	}
	if len(recs) == 0 {
		return false, nil
	}
	for _, r := range recs {
		if r.Status != recipients.StatusSigned {
			return false, nil
		}
	}
	changed, err := c.Documents.MarkCompleted(ctx, documentID)
	if err != nil {
		return false, &PersistenceError{Op: "mark completed", Err: err}
	}
	if changed {
		metrics.IncDocumentCompleted()
		telemetry.Info("signing.document_completed", map[string]any{
			"document_id":       documentID,
			"status_transition": "sent->completed",
			"source":            "reconcile",
		})
	}
	return changed, nil
}

func (c *Coordinator) complete(ctx context.Context, documentID, recipientID string) bool {
	changed, err := c.Documents.MarkCompleted(ctx, documentID)
	if err != nil {
		telemetry.Error("signing.mark_completed_failed", map[string]any{
			"document_id":  documentID,
			"recipient_id": recipientID,
			"error":        err,
		})
		return false
	}
	if changed {
		metrics.IncDocumentCompleted()
		telemetry.Info("signing.document_completed", map[string]any{
			"document_id":       documentID,
			"recipient_id":      recipientID,
			"status_transition": "sent->completed",
		})
	}
	return changed
}
