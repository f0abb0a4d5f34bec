// Package signing implements the signature-completion workflow: resolve a
// signing link, record the drawn signature, render and store the final PDF,
// commit the signed transition and notify the parties.
package signing

import (
	"context"
	"errors"
	"time"

	"esign-backend/internal/documents"
	"esign-backend/internal/notify"
	"esign-backend/internal/recipients"
	"esign-backend/internal/richtext"
	"esign-backend/internal/shared/metrics"
	"esign-backend/internal/shared/storage/object"
	"esign-backend/internal/shared/telemetry"
	"esign-backend/internal/shared/util"
)

// SubmitRequest is a signer's form submission.
type SubmitRequest struct {
	Token            string
	SignatureDataURL string
	SignerName       string
	ClientIP         string
}

// SubmitResult describes a committed signature.
type SubmitResult struct {
	DocumentID        string
	RecipientID       string
	SignedDocumentURL string
	DocumentCompleted bool
}

// SigningView is what the signing page shows before submission.
type SigningView struct {
	DocumentID     string
	DocumentTitle  string
	ContentHTML    string
	RecipientName  string
	RecipientEmail string
	Status         recipients.Status
}

// Service runs the signing workflow.
type Service struct {
	Resolver    *Resolver
	Artifacts   *Artifacts
	Renderer    *Renderer
	Coordinator *Coordinator
	Publisher   notify.Publisher

	now func() time.Time
}

// Deps groups the collaborators of NewService.
type Deps struct {
	Recipients recipients.Repo
	Documents  documents.Repo
	Store      object.ObjectStore
	PDF        PDFRenderer
	Location   *time.Location
	Publisher  notify.Publisher
}

// NewService wires a Service from its collaborators.
func NewService(d Deps) *Service {
	return &Service{
		Resolver:    &Resolver{Recipients: d.Recipients, Documents: d.Documents},
		Artifacts:   NewArtifacts(d.Store),
		Renderer:    NewRenderer(d.PDF, d.Location),
		Coordinator: &Coordinator{Recipients: d.Recipients, Documents: d.Documents},
		Publisher:   d.Publisher,
		now:         time.Now,
	}
}

// Submit runs the workflow for one submission. It is detached from the
// caller's cancellation so an abandoned request cannot stop it halfway.
// Notification delivery happens after Submit returns and never affects the result.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	ctx = context.WithoutCancel(ctx)
	start := s.now()
	fields := map[string]any{
		"token_fp":   util.TokenFingerprint(req.Token),
		"request_id": telemetry.RequestIDFromContext(ctx),
	}

	res, err := s.submit(ctx, req, fields)
	metrics.ObserveSubmission(outcome(err), s.now().Sub(start))
	fields["outcome"] = outcome(err)
	fields["duration_ms"] = s.now().Sub(start).Milliseconds()
	if err != nil {
		fields["error"] = err
		var render *RenderError
		if errors.As(err, &render) && render.Status != 0 {
			fields["upstream_status"] = render.Status
			fields["upstream_body"] = render.Body
		}
		if isSignerError(err) {
			telemetry.Warn("signing.submit_rejected", fields)
		} else {
			telemetry.Error("signing.submit_failed", fields)
		}
		return SubmitResult{}, err
	}
	telemetry.Info("signing.submitted", fields)
	return res, nil
}

func (s *Service) submit(ctx context.Context, req SubmitRequest, fields map[string]any) (SubmitResult, error) {
	sess, err := s.Resolver.Resolve(ctx, req.Token)
	if err != nil {
		return SubmitResult{}, err
	}
	rec, doc := sess.Recipient, sess.Document
	fields["recipient_id"] = rec.ID
	fields["document_id"] = doc.ID

	if err := CheckEligible(sess); err != nil {
		return SubmitResult{}, err
	}

	signerName := NormalizeSignerName(req.SignerName)
	displayName := signerName
	if displayName == "" {
		displayName = rec.Name
	}
	if displayName == "" {
		displayName = rec.Email
	}

	sig, err := s.Artifacts.StoreSignature(ctx, rec.ID, req.SignatureDataURL)
	if err != nil {
		return SubmitResult{}, err
	}
	fields["signature_key"] = sig.Key

	signedAt := s.now().UTC()
	pdf, err := s.Renderer.Render(ctx, RenderInput{
		DocumentID:    doc.ID,
		RecipientID:   rec.ID,
		DocumentTitle: doc.Title,
		Content:       doc.Content,
		SignerName:    displayName,
		SignerEmail:   rec.Email,
		SignatureURL:  sig.URL,
		ClientIP:      req.ClientIP,
		SignedAt:      signedAt,
	})
	if err != nil {
		return SubmitResult{}, err
	}

	// Re-check against a fresh read before anything legally significant is written.
	fresh, err := s.Resolver.Recipients.GetByID(ctx, rec.ID)
	if err != nil {
		return SubmitResult{}, &PersistenceError{Op: opResolve, Err: err}
	}
	if err := CheckEligible(Session{Recipient: fresh, Document: doc}); err != nil {
		return SubmitResult{}, err
	}

	final, err := s.Artifacts.StoreFinal(ctx, doc.ID, rec.ID, pdf)
	if err != nil {
		return SubmitResult{}, err
	}

	if err := s.Coordinator.MarkSigned(ctx, rec.ID, recipients.SignedUpdate{
		Name:               signerName,
		SignedAt:           signedAt,
		SignedDocumentPath: final.Key,
	}); err != nil {
		if errors.Is(err, ErrAlreadySigned) {
			// Lost the conditional update after writing the final key; the winner
			// restores its own bytes once its transition is committed.
			telemetry.Warn("signing.final_artifact_race", map[string]any{
				"recipient_id": rec.ID,
				"document_id":  doc.ID,
				"key":          final.Key,
			})
		}
		return SubmitResult{}, err
	}
	fields["status_transition"] = string(fresh.Status) + "->signed"

	// The committed row is canonical; its PDF must be this submission's render.
	restored, err := s.Artifacts.EnsureFinal(ctx, final.Key, pdf)
	if err != nil {
		telemetry.Error("signing.final_artifact_verify_failed", map[string]any{
			"recipient_id": rec.ID,
			"document_id":  doc.ID,
			"key":          final.Key,
			"error":        err,
		})
	} else if restored {
		telemetry.Warn("signing.final_artifact_restored", map[string]any{
			"recipient_id": rec.ID,
			"document_id":  doc.ID,
			"key":          final.Key,
		})
	}

	completed := s.Coordinator.CompleteIfOthersSigned(ctx, doc.ID, rec.ID)
	fields["document_completed"] = completed

	if s.Publisher != nil {
		s.Publisher.PublishSigned(ctx, notify.SignedEvent{
			DocumentID:    doc.ID,
			RecipientID:   rec.ID,
			DocumentTitle: doc.Title,
			OwnerID:       doc.OwnerID,
			SignerName:    displayName,
			SignerEmail:   rec.Email,
			PDF:           pdf,
			RequestID:     telemetry.RequestIDFromContext(ctx),
		})
	}

	return SubmitResult{
		DocumentID:        doc.ID,
		RecipientID:       rec.ID,
		SignedDocumentURL: final.URL,
		DocumentCompleted: completed,
	}, nil
}

// MarkViewed moves a pending recipient to viewed. Viewed and signed
// recipients are left untouched and still succeed.
func (s *Service) MarkViewed(ctx context.Context, token string) (Session, error) {
	sess, err := s.Resolver.Resolve(ctx, token)
	if err != nil {
		return Session{}, err
	}
	changed, err := s.Resolver.Recipients.MarkViewed(ctx, sess.Recipient.ID)
	if err != nil {
		telemetry.Error("signing.mark_viewed_failed", map[string]any{
			"recipient_id": sess.Recipient.ID,
			"document_id":  sess.Document.ID,
			"error":        err,
		})
		return Session{}, &PersistenceError{Op: opMarkViewed, Err: err}
	}
	if changed {
		sess.Recipient.Status = recipients.StatusViewed
		telemetry.Info("signing.viewed", map[string]any{
			"recipient_id":      sess.Recipient.ID,
			"document_id":       sess.Document.ID,
			"status_transition": "pending->viewed",
		})
	}
	return sess, nil
}

// View returns the data needed to show the signing page.
func (s *Service) View(ctx context.Context, token string) (SigningView, error) {
	sess, err := s.Resolver.Resolve(ctx, token)
	if err != nil {
		return SigningView{}, err
	}
	return SigningView{
		DocumentID:     sess.Document.ID,
		DocumentTitle:  sess.Document.Title,
		ContentHTML:    richtext.ToHTML(sess.Document.Content),
		RecipientName:  sess.Recipient.Name,
		RecipientEmail: sess.Recipient.Email,
		Status:         sess.Recipient.Status,
	}, nil
}

// Reconcile recomputes completion for one document.
func (s *Service) Reconcile(ctx context.Context, documentID string) (bool, error) {
	return s.Coordinator.Reconcile(ctx, documentID)
}

func isSignerError(err error) bool {
	return errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrAlreadySigned) || errors.Is(err, ErrEmptySignature)
}
