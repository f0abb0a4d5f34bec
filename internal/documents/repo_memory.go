package documents

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	docs map[string]Document
	now  func() time.Time
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{docs: make(map[string]Document), now: time.Now}
}

func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = cloneDocument(doc)
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return cloneDocument(doc), nil
}

func (r *MemoryRepo) List(ctx context.Context, ownerID string, filter ListFilter) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(filter.Query))
	r.mu.RLock()
	var out []Document
	for _, doc := range r.docs {
		if doc.OwnerID != ownerID {
			continue
		}
		if filter.Status != "" && doc.Status != filter.Status {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(doc.Title), q) {
			continue
		}
		out = append(out, cloneDocument(doc))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Offset >= len(out) {
		return []Document{}, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *MemoryRepo) UpdateDraft(ctx context.Context, id string, patch DraftPatch) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	if doc.Status != StatusDraft {
		return Document{}, ErrNotDraft
	}
	if patch.Title != nil {
		doc.Title = *patch.Title
	}
	if patch.Content != nil {
		doc.Content = append([]byte(nil), patch.Content...)
	}
	doc.UpdatedAt = r.now().UTC()
	r.docs[id] = doc
	return cloneDocument(doc), nil
}

func (r *MemoryRepo) MarkSent(ctx context.Context, id string) (bool, error) {
	return r.transition(ctx, id, StatusSent, func(s Status) bool { return s == StatusDraft })
}

func (r *MemoryRepo) MarkCompleted(ctx context.Context, id string) (bool, error) {
	return r.transition(ctx, id, StatusCompleted, func(s Status) bool { return s != StatusCompleted })
}

func (r *MemoryRepo) ListIDsByStatus(ctx context.Context, status Status, afterID string, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	var ids []string
	for _, doc := range r.docs {
		if doc.Status == status && doc.ID > afterID {
			ids = append(ids, doc.ID)
		}
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (r *MemoryRepo) transition(ctx context.Context, id string, to Status, allowed func(Status) bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok || !allowed(doc.Status) {
		return false, nil
	}
	doc.Status = to
	doc.UpdatedAt = r.now().UTC()
	r.docs[id] = doc
	return true, nil
}

func cloneDocument(doc Document) Document {
	if doc.Content != nil {
		doc.Content = append([]byte(nil), doc.Content...)
	}
	return doc
}
