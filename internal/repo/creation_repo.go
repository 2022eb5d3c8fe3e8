package repo

import (
	"context"

	dom "qrstudio/internal/domain"

	"github.com/jackc/pgx/v5"
)

// CreationRepo persists creation rows. Every method except Create and
// GetVCard filters on both id and owner; a row owned by someone else is
// indistinguishable from a missing one (pgx.ErrNoRows).
type CreationRepo interface {
	Create(ctx context.Context, rec dom.CreationRecord) (dom.CreationRecord, error)
	ListByOwner(ctx context.Context, userID int64) ([]dom.CreationRecord, error)
	GetByIDAndOwner(ctx context.Context, userID, id int64) (dom.CreationRecord, error)
	// GetVCard is the public, unscoped lookup of a vcard row.
	GetVCard(ctx context.Context, id int64) (dom.CreationRecord, error)
	// Update replaces kind, blobs and photo reference of rec.ID owned by rec.UserID.
	Update(ctx context.Context, rec dom.CreationRecord) error
	Delete(ctx context.Context, userID, id int64) error
}

type PGCreationRepo struct {
	db DBTX
}

func NewPGCreationRepo(db DBTX) *PGCreationRepo {
	return &PGCreationRepo{db: db}
}

const creationColumns = `id, public_identifier, user_id, kind, fields_blob, options_blob, COALESCE(photo_ref, ''), created_at`

func scanCreation(row pgx.Row) (dom.CreationRecord, error) {
	var c dom.CreationRecord
	err := row.Scan(&c.ID, &c.PublicID, &c.UserID, &c.Kind, &c.FieldsBlob, &c.OptionsBlob, &c.PhotoRef, &c.CreatedAt)
	return c, err
}

func (r *PGCreationRepo) Create(ctx context.Context, rec dom.CreationRecord) (dom.CreationRecord, error) {
	query := `
		INSERT INTO qrs (public_identifier, user_id, kind, fields_blob, options_blob, photo_ref)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + creationColumns
	return scanCreation(r.db.QueryRow(ctx, query,
		rec.PublicID, rec.UserID, rec.Kind, rec.FieldsBlob, rec.OptionsBlob, nullable(rec.PhotoRef)))
}

func (r *PGCreationRepo) ListByOwner(ctx context.Context, userID int64) ([]dom.CreationRecord, error) {
	query := `SELECT ` + creationColumns + `
		FROM qrs WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []dom.CreationRecord
	for rows.Next() {
		c, err := scanCreation(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (r *PGCreationRepo) GetByIDAndOwner(ctx context.Context, userID, id int64) (dom.CreationRecord, error) {
	query := `SELECT ` + creationColumns + `
		FROM qrs WHERE id = $1 AND user_id = $2`
	return scanCreation(r.db.QueryRow(ctx, query, id, userID))
}

func (r *PGCreationRepo) GetVCard(ctx context.Context, id int64) (dom.CreationRecord, error) {
	query := `SELECT ` + creationColumns + `
		FROM qrs WHERE id = $1 AND kind = 'vcard'`
	return scanCreation(r.db.QueryRow(ctx, query, id))
}

func (r *PGCreationRepo) Update(ctx context.Context, rec dom.CreationRecord) error {
	query := `
		UPDATE qrs SET kind = $3, fields_blob = $4, options_blob = $5, photo_ref = $6
		WHERE id = $1 AND user_id = $2
		RETURNING id`
	var id int64
	return r.db.QueryRow(ctx, query,
		rec.ID, rec.UserID, rec.Kind, rec.FieldsBlob, rec.OptionsBlob, nullable(rec.PhotoRef),
	).Scan(&id)
}

func (r *PGCreationRepo) Delete(ctx context.Context, userID, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM qrs WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
