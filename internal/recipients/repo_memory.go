package recipients

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Recipient
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Recipient)}
}

func (r *MemoryRepo) GetByToken(ctx context.Context, token string) (Recipient, error) {
	if err := ctx.Err(); err != nil {
		return Recipient{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.byID {
		if rec.AccessToken == token {
			return rec, nil
		}
	}
	return Recipient{}, ErrNotFound
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Recipient, error) {
	if err := ctx.Err(); err != nil {
		return Recipient{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byID[id]
	if !ok {
		return Recipient{}, ErrNotFound
	}
	return rec, nil
}

func (r *MemoryRepo) ListByDocument(ctx context.Context, documentID string) ([]Recipient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Recipient, 0)
	for _, rec := range r.byID {
		if rec.DocumentID == documentID {
			out = append(out, rec)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepo) CreateBatch(ctx context.Context, recipients []Recipient) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range recipients {
		if _, exists := r.byID[rec.ID]; exists {
			return fmt.Errorf("recipient %s already exists", rec.ID)
		}
		for _, other := range r.byID {
			if other.AccessToken == rec.AccessToken {
				return fmt.Errorf("duplicate access token")
			}
		}
	}
	for _, rec := range recipients {
		r.byID[rec.ID] = rec
	}
	return nil
}

func (r *MemoryRepo) DeleteByIDs(ctx context.Context, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		delete(r.byID, id)
	}
	return nil
}

func (r *MemoryRepo) MarkViewed(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok || rec.Status != StatusPending {
		return false, nil
	}
	rec.Status = StatusViewed
	r.byID[id] = rec
	return true, nil
}

func (r *MemoryRepo) MarkSigned(ctx context.Context, id string, upd SignedUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	if rec.Status == StatusSigned {
		return ErrAlreadySigned
	}
	signedAt := upd.SignedAt
	rec.Status = StatusSigned
	rec.SignedAt = &signedAt
	rec.SignedDocumentPath = upd.SignedDocumentPath
	if upd.Name != "" {
		rec.Name = upd.Name
	}
	r.byID[id] = rec
	return nil
}
