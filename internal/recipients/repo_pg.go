package recipients

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// PGRepo implements Repo using Postgres through sqlx.
type PGRepo struct {
	DB *sqlx.DB
}

// NewPGRepo wraps a pgx-backed *sql.DB.
func NewPGRepo(db *sql.DB) *PGRepo {
	return &PGRepo{DB: sqlx.NewDb(db, "pgx")}
}

type recipientRow struct {
	ID                 string         `db:"id"`
	DocumentID         string         `db:"document_id"`
	Email              string         `db:"email"`
	Name               sql.NullString `db:"name"`
	Status             string         `db:"status"`
	AccessToken        string         `db:"access_token"`
	SignedAt           sql.NullTime   `db:"signed_at"`
	SignedDocumentPath sql.NullString `db:"signed_document_path"`
	CreatedAt          time.Time      `db:"created_at"`
}

func (r recipientRow) toModel() Recipient {
	rec := Recipient{
		ID:                 r.ID,
		DocumentID:         r.DocumentID,
		Email:              r.Email,
		Name:               r.Name.String,
		Status:             Status(r.Status),
		AccessToken:        r.AccessToken,
		SignedDocumentPath: r.SignedDocumentPath.String,
		CreatedAt:          r.CreatedAt,
	}
	if r.SignedAt.Valid {
		t := r.SignedAt.Time
		rec.SignedAt = &t
	}
	return rec
}

const selectRecipient = `
SELECT id, document_id, email, name, status, access_token, signed_at, signed_document_path, created_at
FROM recipients`

func (r *PGRepo) GetByToken(ctx context.Context, token string) (Recipient, error) {
	var row recipientRow
	if err := r.DB.GetContext(ctx, &row, selectRecipient+` WHERE access_token = $1`, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Recipient{}, ErrNotFound
		}
		return Recipient{}, err
	}
	return row.toModel(), nil
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (Recipient, error) {
	var row recipientRow
	if err := r.DB.GetContext(ctx, &row, selectRecipient+` WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Recipient{}, ErrNotFound
		}
		return Recipient{}, err
	}
	return row.toModel(), nil
}

func (r *PGRepo) ListByDocument(ctx context.Context, documentID string) ([]Recipient, error) {
	var rows []recipientRow
	if err := r.DB.SelectContext(ctx, &rows, selectRecipient+` WHERE document_id = $1 ORDER BY created_at, id`, documentID); err != nil {
		return nil, err
	}
	out := make([]Recipient, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out, nil
}

const insertRecipient = `
INSERT INTO recipients (id, document_id, email, name, status, access_token, created_at)
VALUES (:id, :document_id, :email, :name, :status, :access_token, :created_at)`

// CreateBatch inserts all recipients in one transaction.
func (r *PGRepo) CreateBatch(ctx context.Context, recipients []Recipient) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, rec := range recipients {
		row := recipientRow{
			ID:          rec.ID,
			DocumentID:  rec.DocumentID,
			Email:       rec.Email,
			Name:        sql.NullString{String: rec.Name, Valid: rec.Name != ""},
			Status:      string(rec.Status),
			AccessToken: rec.AccessToken,
			CreatedAt:   rec.CreatedAt,
		}
		if _, err := tx.NamedExecContext(ctx, insertRecipient, row); err != nil {
			return fmt.Errorf("insert recipient %s: %w", rec.Email, err)
		}
	}
	return tx.Commit()
}

func (r *PGRepo) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM recipients WHERE id IN (?)`, ids)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, r.DB.Rebind(query), args...)
	return err
}

func (r *PGRepo) MarkViewed(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE recipients SET status = 'viewed' WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PGRepo) MarkSigned(ctx context.Context, id string, upd SignedUpdate) error {
	const query = `
UPDATE recipients
SET status = 'signed',
    signed_at = $2,
    signed_document_path = $3,
    name = COALESCE(NULLIF($4, ''), name)
WHERE id = $1 AND status <> 'signed'`
	res, err := r.DB.ExecContext(ctx, query, id, upd.SignedAt, upd.SignedDocumentPath, upd.Name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var status string
	if err := r.DB.GetContext(ctx, &status, `SELECT status FROM recipients WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if Status(status) == StatusSigned {
		return ErrAlreadySigned
	}
	return fmt.Errorf("mark signed: no rows updated for recipient %s in status %s", id, status)
}
