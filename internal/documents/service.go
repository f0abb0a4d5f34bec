package documents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"esign-backend/internal/notify"
	"esign-backend/internal/recipients"
	"esign-backend/internal/richtext"
	"esign-backend/internal/shared/storage/object"
	"esign-backend/internal/shared/telemetry"
	"esign-backend/internal/shared/util"
)

const (
	maxTitleLen      = 200
	maxRecipients    = 50
	maxRecipientName = 120
	defaultListLimit = 20
	maxListLimit     = 50
)

// ErrNotSigned is returned when a signed copy is requested for a recipient
// that has not signed yet.
var ErrNotSigned = errors.New("recipient has not signed")

// RecipientInput is one addressee of a send.
type RecipientInput struct {
	Name  string
	Email string
}

// Service implements owner-facing document operations. Every method takes the
// authenticated owner id explicitly; documents owned by someone else behave as
// if they did not exist.
type Service struct {
	Repo       Repo
	Recipients recipients.Repo
	Store      object.ObjectStore
	Publisher  notify.Publisher

	now      func() time.Time
	newToken func() (string, error)
}

// NewService constructs a Service.
func NewService(repo Repo, recips recipients.Repo, store object.ObjectStore, publisher notify.Publisher) *Service {
	return &Service{
		Repo:       repo,
		Recipients: recips,
		Store:      store,
		Publisher:  publisher,
		now:        time.Now,
		newToken:   util.NewAccessToken,
	}
}

// Create stores a new draft owned by ownerID.
func (s *Service) Create(ctx context.Context, ownerID, title string) (Document, error) {
	if strings.TrimSpace(ownerID) == "" {
		return Document{}, fmt.Errorf("%w: owner id is required", ErrInvalidInput)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}
	if err := validateTitle(title); err != nil {
		return Document{}, err
	}
	now := s.now().UTC()
	doc := Document{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Title:     title,
		Content:   json.RawMessage(richtext.EmptyDoc),
		Status:    StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		return Document{}, err
	}
	telemetry.Info("document.created", map[string]any{"document_id": doc.ID, "user_id": ownerID})
	return doc, nil
}

// Get returns one of the owner's documents.
func (s *Service) Get(ctx context.Context, ownerID, id string) (Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Document{}, ErrNotFound
	}
	doc, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Document{}, err
	}
	if doc.OwnerID != ownerID {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

// List returns the owner's documents, newest first.
func (s *Service) List(ctx context.Context, ownerID string, filter ListFilter) ([]Document, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, filter.Status)
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.Repo.List(ctx, ownerID, filter)
}

// UpdateDraft changes the title and/or content of a draft.
func (s *Service) UpdateDraft(ctx context.Context, ownerID, id string, patch DraftPatch) (Document, error) {
	if patch.Title == nil && patch.Content == nil {
		return Document{}, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return Document{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
		}
		if err := validateTitle(title); err != nil {
			return Document{}, err
		}
		patch.Title = &title
	}
	if patch.Content != nil {
		if err := richtext.Validate(patch.Content); err != nil {
			return Document{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return Document{}, err
	}
	return s.Repo.UpdateDraft(ctx, id, patch)
}

// Send creates one recipient per addressee, moves the draft to sent and
// publishes invitations. Invitation delivery never fails the send.
func (s *Service) Send(ctx context.Context, ownerID, id string, inputs []RecipientInput) (Document, []recipients.Recipient, error) {
	clean, err := normalizeRecipients(inputs)
	if err != nil {
		return Document{}, nil, err
	}
	doc, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return Document{}, nil, err
	}
	if doc.Status != StatusDraft {
		return Document{}, nil, ErrNotDraft
	}

	now := s.now().UTC()
	created := make([]recipients.Recipient, 0, len(clean))
	ids := make([]string, 0, len(clean))
	for _, in := range clean {
		token, err := s.newToken()
		if err != nil {
			return Document{}, nil, err
		}
		rec := recipients.Recipient{
			ID:          uuid.NewString(),
			DocumentID:  doc.ID,
			Email:       in.Email,
			Name:        in.Name,
			Status:      recipients.StatusPending,
			AccessToken: token,
			CreatedAt:   now,
		}
		created = append(created, rec)
		ids = append(ids, rec.ID)
	}
	if err := s.Recipients.CreateBatch(ctx, created); err != nil {
		return Document{}, nil, fmt.Errorf("create recipients: %w", err)
	}

	changed, err := s.Repo.MarkSent(ctx, doc.ID)
	if err != nil || !changed {
		if delErr := s.Recipients.DeleteByIDs(ctx, ids); delErr != nil {
			telemetry.Error("document.send.compensate_failed", map[string]any{
				"document_id": doc.ID,
				"error":       delErr,
			})
		}
		if err != nil {
			return Document{}, nil, err
		}
		return Document{}, nil, ErrNotDraft
	}
	doc.Status = StatusSent
	doc.UpdatedAt = now

	telemetry.Info("document.sent", map[string]any{
		"document_id":       doc.ID,
		"user_id":           ownerID,
		"recipients":        len(created),
		"status_transition": "draft->sent",
	})

	if s.Publisher != nil {
		requestID := telemetry.RequestIDFromContext(ctx)
		for _, rec := range created {
			s.Publisher.PublishInvited(ctx, notify.InvitedEvent{
				DocumentID:     doc.ID,
				RecipientID:    rec.ID,
				DocumentTitle:  doc.Title,
				OwnerID:        doc.OwnerID,
				RecipientName:  rec.Name,
				RecipientEmail: rec.Email,
				AccessToken:    rec.AccessToken,
				RequestID:      requestID,
			})
		}
	}
	return doc, created, nil
}

// ListRecipients lists the recipients of one of the owner's documents.
func (s *Service) ListRecipients(ctx context.Context, ownerID, id string) ([]recipients.Recipient, error) {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return nil, err
	}
	return s.Recipients.ListByDocument(ctx, id)
}

// SignedPDF opens the final PDF produced for a recipient. The caller closes
// the returned reader.
func (s *Service) SignedPDF(ctx context.Context, ownerID, id, recipientID string) (io.ReadCloser, string, error) {
	doc, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, "", err
	}
	rec, err := s.Recipients.GetByID(ctx, recipientID)
	if err != nil {
		if errors.Is(err, recipients.ErrNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}
	if rec.DocumentID != doc.ID {
		return nil, "", ErrNotFound
	}
	if rec.Status != recipients.StatusSigned || rec.SignedDocumentPath == "" {
		return nil, "", ErrNotSigned
	}
	rc, err := s.Store.Open(ctx, rec.SignedDocumentPath)
	if err != nil {
		return nil, "", fmt.Errorf("open signed document: %w", err)
	}
	return rc, util.SignedFileName(doc.Title), nil
}

func validateTitle(title string) error {
	if utf8.RuneCountInString(title) > maxTitleLen {
		return fmt.Errorf("%w: title must be at most %d characters", ErrInvalidInput, maxTitleLen)
	}
	return nil
}

// normalizeRecipients trims, validates and de-duplicates addressees by
// lower-cased e-mail, keeping the first occurrence.
func normalizeRecipients(inputs []RecipientInput) ([]RecipientInput, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: at least one recipient is required", ErrInvalidInput)
	}
	seen := make(map[string]bool, len(inputs))
	out := make([]RecipientInput, 0, len(inputs))
	for i, in := range inputs {
		raw := strings.TrimSpace(in.Email)
		addr, err := mail.ParseAddress(raw)
		if err != nil || addr.Address != raw {
			return nil, fmt.Errorf("%w: recipients[%d].email is not a valid address", ErrInvalidInput, i)
		}
		email := strings.ToLower(addr.Address)
		if seen[email] {
			continue
		}
		seen[email] = true
		name := strings.TrimSpace(in.Name)
		if utf8.RuneCountInString(name) > maxRecipientName {
			return nil, fmt.Errorf("%w: recipients[%d].name must be at most %d characters", ErrInvalidInput, i, maxRecipientName)
		}
		out = append(out, RecipientInput{Name: name, Email: email})
	}
	if len(out) > maxRecipients {
		return nil, fmt.Errorf("%w: at most %d recipients per document", ErrInvalidInput, maxRecipients)
	}
	return out, nil
}
