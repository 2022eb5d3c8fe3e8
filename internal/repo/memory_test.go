package repo

import (
	"context"
	"errors"
	"testing"

	dom "qrstudio/internal/domain"
	"qrstudio/internal/utils"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemUserRepo_Uniqueness(t *testing.T) {
	ctx := context.Background()
	r := NewMemUserRepo()
	_, err := r.Create(ctx, dom.User{Email: "a@x", Username: "a"})
	require.NoError(t, err)

	_, err = r.Create(ctx, dom.User{Email: "a@x", Username: "b"})
	assert.True(t, utils.IsPGUniqueViolation(err))
	_, err = r.Create(ctx, dom.User{Email: "b@x", Username: "a"})
	assert.True(t, utils.IsPGUniqueViolation(err))

	_, err = r.GetByLogin(ctx, "nobody")
	assert.True(t, errors.Is(err, pgx.ErrNoRows))
}

func TestMemCreationRepo_OwnerScoped(t *testing.T) {
	ctx := context.Background()
	r := NewMemCreationRepo()
	rec, err := r.Create(ctx, dom.CreationRecord{PublicID: "p", UserID: 1, Kind: "text", FieldsBlob: `{"text":"x"}`})
	require.NoError(t, err)

	_, err = r.GetByIDAndOwner(ctx, 2, rec.ID)
	assert.True(t, errors.Is(err, pgx.ErrNoRows))
	assert.True(t, errors.Is(r.Update(ctx, dom.CreationRecord{ID: rec.ID, UserID: 2}), pgx.ErrNoRows))
	assert.True(t, errors.Is(r.Delete(ctx, 2, rec.ID), pgx.ErrNoRows))

	_, err = r.Create(ctx, dom.CreationRecord{PublicID: "p", UserID: 3})
	assert.True(t, utils.IsPGUniqueViolation(err))
}

func TestMemCreationRepo_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	r := NewMemCreationRepo()
	for _, p := range []string{"a", "b", "c"} {
		_, err := r.Create(ctx, dom.CreationRecord{PublicID: p, UserID: 1, Kind: "text"})
		require.NoError(t, err)
	}
	list, err := r.ListByOwner(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "c", list[0].PublicID)
	assert.Equal(t, "a", list[2].PublicID)
}
