package repo

import (
	"context"

	dom "qrstudio/internal/domain"
)

// UserRepo provides user persistence.
type UserRepo interface {
	// GetByLogin returns the user whose username or email equals login.
	GetByLogin(ctx context.Context, login string) (dom.User, error)
	// Exists reports whether any user already has this email or username.
	Exists(ctx context.Context, email, username string) (bool, error)
	Create(ctx context.Context, u dom.User) (dom.User, error)
}

// PGUserRepo implements UserRepo with Postgres.
type PGUserRepo struct {
	db DBTX
}

// NewPGUserRepo returns a new PGUserRepo.
func NewPGUserRepo(db DBTX) *PGUserRepo {
	return &PGUserRepo{db: db}
}

// GetByLogin returns the user by username or email.
func (r *PGUserRepo) GetByLogin(ctx context.Context, login string) (dom.User, error) {
	var u dom.User
	err := r.db.QueryRow(ctx,
		`SELECT id, email, name, username, password_hash, created_at
		FROM users WHERE username = $1 OR email = $1
		ORDER BY id LIMIT 1`,
		login,
	).Scan(&u.ID, &u.Email, &u.Name, &u.Username, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

func (r *PGUserRepo) Exists(ctx context.Context, email, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 OR username = $2)`,
		email, username,
	).Scan(&exists)
	return exists, err
}

// Create inserts a new user and returns it.
func (r *PGUserRepo) Create(ctx context.Context, u dom.User) (dom.User, error) {
	query := `
		INSERT INTO users (email, name, username, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, email, name, username, password_hash, created_at`
	var out dom.User
	err := r.db.QueryRow(ctx, query, u.Email, u.Name, u.Username, u.PasswordHash).Scan(
		&out.ID, &out.Email, &out.Name, &out.Username, &out.PasswordHash, &out.CreatedAt,
	)
	return out, err
}
