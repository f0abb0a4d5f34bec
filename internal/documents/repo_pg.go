package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const selectDocument = `
SELECT id, owner_id, title, content, status, created_at, updated_at
FROM documents`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var content []byte
	var status string
	if err := row.Scan(&doc.ID, &doc.OwnerID, &doc.Title, &content, &status, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return Document{}, err
	}
	doc.Status = Status(status)
	if len(content) > 0 {
		doc.Content = json.RawMessage(content)
	}
	return doc, nil
}

func nullJSON(raw json.RawMessage) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}

// Create inserts a new document.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (id, owner_id, title, content, status, created_at, updated_at)
VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7)`
	_, err := r.DB.ExecContext(ctx, query,
		doc.ID,
		doc.OwnerID,
		doc.Title,
		nullJSON(doc.Content),
		string(doc.Status),
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	return err
}

// GetByID fetches a document regardless of owner; callers enforce ownership.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Document, error) {
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, selectDocument+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

// List returns an owner's documents, newest first.
func (r *PGRepo) List(ctx context.Context, ownerID string, filter ListFilter) ([]Document, error) {
	var sb strings.Builder
	sb.WriteString(selectDocument)
	sb.WriteString(` WHERE owner_id = $1`)
	args := []any{ownerID}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		fmt.Fprintf(&sb, ` AND status = $%d`, len(args))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		fmt.Fprintf(&sb, ` AND title ILIKE $%d ESCAPE '\'`, len(args))
	}
	args = append(args, filter.Limit, filter.Offset)
	fmt.Fprintf(&sb, ` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.DB.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// UpdateDraft applies a patch guarded by status = 'draft'.
func (r *PGRepo) UpdateDraft(ctx context.Context, id string, patch DraftPatch) (Document, error) {
	const query = `
UPDATE documents
SET title = COALESCE($2, title),
    content = CASE WHEN $3::boolean THEN $4::jsonb ELSE content END,
    updated_at = now()
WHERE id = $1 AND status = 'draft'
RETURNING id, owner_id, title, content, status, created_at, updated_at`

	var title sql.NullString
	if patch.Title != nil {
		title = sql.NullString{String: *patch.Title, Valid: true}
	}
	setContent := patch.Content != nil
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, id, title, setContent, nullJSON(patch.Content)))
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Document{}, err
	}
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return Document{}, getErr
	}
	return Document{}, ErrNotDraft
}

// MarkSent moves draft -> sent.
func (r *PGRepo) MarkSent(ctx context.Context, id string) (bool, error) {
	const query = `UPDATE documents SET status = 'sent', updated_at = now() WHERE id = $1 AND status = 'draft'`
	return r.execChanged(ctx, query, id)
}

// MarkCompleted moves the document to completed if it is not already.
func (r *PGRepo) MarkCompleted(ctx context.Context, id string) (bool, error) {
	const query = `UPDATE documents SET status = 'completed', updated_at = now() WHERE id = $1 AND status <> 'completed'`
	return r.execChanged(ctx, query, id)
}

// ListIDsByStatus pages ids in the given status by id, starting after afterID.
func (r *PGRepo) ListIDsByStatus(ctx context.Context, status Status, afterID string, limit int) ([]string, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if afterID == "" {
		rows, err = r.DB.QueryContext(ctx,
			`SELECT id FROM documents WHERE status = $1 ORDER BY id LIMIT $2`,
			string(status), limit)
	} else {
		rows, err = r.DB.QueryContext(ctx,
			`SELECT id FROM documents WHERE status = $1 AND id > $2 ORDER BY id LIMIT $3`,
			string(status), afterID, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PGRepo) execChanged(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
