package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	dom "qrstudio/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// MemUserRepo is an in-memory UserRepo with the same uniqueness and
// not-found semantics as the Postgres one.
type MemUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  []dom.User
}

func NewMemUserRepo() *MemUserRepo {
	return &MemUserRepo{}
}

func (r *MemUserRepo) GetByLogin(_ context.Context, login string) (dom.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == login || u.Email == login {
			return u, nil
		}
	}
	return dom.User{}, pgx.ErrNoRows
}

func (r *MemUserRepo) Exists(_ context.Context, email, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email || u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemUserRepo) Create(_ context.Context, u dom.User) (dom.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.users {
		if x.Email == u.Email {
			return dom.User{}, &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
		}
		if x.Username == u.Username {
			return dom.User{}, &pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"}
		}
	}
	r.nextID++
	u.ID = r.nextID
	u.CreatedAt = time.Now().UTC()
	r.users = append(r.users, u)
	return u, nil
}

// MemCreationRepo is an in-memory CreationRepo.
type MemCreationRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]dom.CreationRecord
}

func NewMemCreationRepo() *MemCreationRepo {
	return &MemCreationRepo{rows: make(map[int64]dom.CreationRecord)}
}

// Put stores rec as-is, bypassing every check. It assigns an id when rec.ID is 0.
func (r *MemCreationRepo) Put(rec dom.CreationRecord) dom.CreationRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec.ID == 0 {
		r.nextID++
		rec.ID = r.nextID
	} else if rec.ID > r.nextID {
		r.nextID = rec.ID
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	r.rows[rec.ID] = rec
	return rec
}

func (r *MemCreationRepo) Create(_ context.Context, rec dom.CreationRecord) (dom.CreationRecord, error) {
	r.mu.Lock()
	for _, x := range r.rows {
		if x.PublicID == rec.PublicID {
			r.mu.Unlock()
			return dom.CreationRecord{}, &pgconn.PgError{Code: "23505", ConstraintName: "qrs_public_identifier_key"}
		}
	}
	r.mu.Unlock()
	rec.ID = 0
	rec.CreatedAt = time.Time{}
	return r.Put(rec), nil
}

func (r *MemCreationRepo) ListByOwner(_ context.Context, userID int64) ([]dom.CreationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []dom.CreationRecord
	for _, x := range r.rows {
		if x.UserID == userID {
			list = append(list, x)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
	return list, nil
}

func (r *MemCreationRepo) GetByIDAndOwner(_ context.Context, userID, id int64) (dom.CreationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	x, ok := r.rows[id]
	if !ok || x.UserID != userID {
		return dom.CreationRecord{}, pgx.ErrNoRows
	}
	return x, nil
}

func (r *MemCreationRepo) GetVCard(_ context.Context, id int64) (dom.CreationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	x, ok := r.rows[id]
	if !ok || x.Kind != string(dom.KindVCard) {
		return dom.CreationRecord{}, pgx.ErrNoRows
	}
	return x, nil
}

func (r *MemCreationRepo) Update(_ context.Context, rec dom.CreationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	x, ok := r.rows[rec.ID]
	if !ok || x.UserID != rec.UserID {
		return pgx.ErrNoRows
	}
	x.Kind = rec.Kind
	x.FieldsBlob = rec.FieldsBlob
	x.OptionsBlob = rec.OptionsBlob
	x.PhotoRef = rec.PhotoRef
	r.rows[rec.ID] = x
	return nil
}

func (r *MemCreationRepo) Delete(_ context.Context, userID, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	x, ok := r.rows[id]
	if !ok || x.UserID != userID {
		return pgx.ErrNoRows
	}
	delete(r.rows, id)
	return nil
}
