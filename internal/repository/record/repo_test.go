package record

import (
	"context"
	"path/filepath"
	"testing"

	"alihamza/deceptron/internal/domain"
	"alihamza/deceptron/internal/recordstore"
	"alihamza/deceptron/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *recordstore.Store {
	t.Helper()
	s, err := recordstore.Open(filepath.Join(t.TempDir(), "db.json"))
	require.NoError(t, err)
	return s
}

func testAccount() *domain.Account {
	return &domain.Account{
		Username: "amara",
		Email:    "amara@example.com",
		Password: "$2a$10$fakehash",
		FullName: "Amara K",
		Title:    "Analyst",
	}
}

func TestAccountCreateAndGet(t *testing.T) {
	r := NewAccountRepository(openStore(t))
	ctx := context.Background()

	require.NoError(t, r.Create(ctx, testAccount()))

	got, err := r.GetByUsername(ctx, "amara")
	require.NoError(t, err)
	assert.Equal(t, "amara@example.com", got.Email)
	// The hash must round-trip even though the JSON tag hides it.
	assert.Equal(t, "$2a$10$fakehash", got.Password)

	_, err = r.GetByUsername(ctx, "ghost")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAccountGetByIdentity(t *testing.T) {
	r := NewAccountRepository(openStore(t))
	ctx := context.Background()
	require.NoError(t, r.Create(ctx, testAccount()))

	byEmail, err := r.GetByIdentity(ctx, "amara@example.com")
	require.NoError(t, err)
	byName, err := r.GetByIdentity(ctx, "amara")
	require.NoError(t, err)
	assert.Equal(t, byEmail.Username, byName.Username)

	_, err = r.GetByIdentity(ctx, "other@example.com")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAccountExists(t *testing.T) {
	r := NewAccountRepository(openStore(t))
	ctx := context.Background()
	require.NoError(t, r.Create(ctx, testAccount()))

	taken, err := r.ExistsEmail(ctx, "amara@example.com")
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = r.ExistsEmail(ctx, "free@example.com")
	require.NoError(t, err)
	assert.False(t, taken)

	taken, err = r.ExistsUsername(ctx, "amara")
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = r.ExistsUsername(ctx, "free")
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestAccountPatch(t *testing.T) {
	r := NewAccountRepository(openStore(t))
	ctx := context.Background()
	require.NoError(t, r.Create(ctx, testAccount()))

	err := r.Patch(ctx, "amara", map[string]any{"fullname": "Amara Khan"})
	require.NoError(t, err)

	got, err := r.GetByUsername(ctx, "amara")
	require.NoError(t, err)
	assert.Equal(t, "Amara Khan", got.FullName)
	assert.Equal(t, "Analyst", got.Title) // untouched

	err = r.Patch(ctx, "ghost", map[string]any{"fullname": "X"})
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMediaCreateAssignsIDAndTimestamp(t *testing.T) {
	r := NewMediaRepository(openStore(t))
	ctx := context.Background()

	rec := &domain.MediaRecord{
		Username: "amara",
		Filename: "clip.mov",
		Type:     domain.MediaTypeVideo,
		Size:     "300",
		Filepath: "../uploads/clip.mov",
	}
	require.NoError(t, r.Create(ctx, rec))
	assert.NotEmpty(t, rec.ID)
	assert.NotEmpty(t, rec.Timestamp)

	records, err := r.GetByOwner(ctx, "amara")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rec.ID, records[0].ID)
}

func TestMediaDeleteScopedToOwner(t *testing.T) {
	r := NewMediaRepository(openStore(t))
	ctx := context.Background()

	rec := &domain.MediaRecord{Username: "amara", Filename: "clip.mov", Filepath: "../uploads/clip.mov"}
	require.NoError(t, r.Create(ctx, rec))

	_, err := r.Delete(ctx, rec.ID, "bilal")
	require.ErrorIs(t, err, repository.ErrNotFound)

	removed, err := r.Delete(ctx, rec.ID, "amara")
	require.NoError(t, err)
	assert.Equal(t, "clip.mov", removed.Filename)

	records, err := r.GetByOwner(ctx, "amara")
	require.NoError(t, err)
	assert.Empty(t, records)
}
