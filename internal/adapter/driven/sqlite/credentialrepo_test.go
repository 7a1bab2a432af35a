package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arjunmk/dhanarjan/internal/domain/port/driven"
)

// testKey is a fixed 32-byte AES-256 key for tests.
var testKey = []byte("0123456789abcdef0123456789abcdef")

func TestCredentialRepo_SetAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, testKey)
	ctx := context.Background()

	err := repo.Set(ctx, "google_api_key", "AIzaSecret123")
	require.NoError(t, err)

	val, err := repo.Get(ctx, "google_api_key")
	require.NoError(t, err)
	assert.Equal(t, "AIzaSecret123", val)
}

func TestCredentialRepo_ValueIsEncryptedAtRest(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, testKey)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "google_api_key", "AIzaSecret123"))

	var stored string
	err := db.Reader.QueryRowContext(ctx,
		`SELECT value FROM credentials WHERE service = ?`, "google_api_key").Scan(&stored)
	require.NoError(t, err)
	assert.NotContains(t, stored, "AIzaSecret123")
}

func TestCredentialRepo_GetMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, testKey)

	val, err := repo.Get(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Equal(t, "", val)
}

func TestCredentialRepo_SetOverwrites(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, testKey)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "google_api_key", "old-value"))
	require.NoError(t, repo.Set(ctx, "google_api_key", "new-value"))

	val, err := repo.Get(ctx, "google_api_key")
	require.NoError(t, err)
	assert.Equal(t, "new-value", val)
}

func TestCredentialRepo_List(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, testKey)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "google_spreadsheet_id", "1abcDEF"))
	require.NoError(t, repo.Set(ctx, "google_api_key", "AIza123"))

	creds, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, creds, 2)

	// Ordered by service; values decrypted.
	assert.Equal(t, "google_api_key", creds[0].Service)
	assert.Equal(t, "AIza123", creds[0].Value)
	assert.Equal(t, "google_spreadsheet_id", creds[1].Service)
}

func TestCredentialRepo_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, testKey)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "google_api_key", "AIza123"))
	require.NoError(t, repo.Delete(ctx, "google_api_key"))

	val, err := repo.Get(ctx, "google_api_key")
	require.NoError(t, err)
	assert.Equal(t, "", val)
}

func TestCredentialRepo_DeleteNonexistent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, testKey)

	err := repo.Delete(context.Background(), "nonexistent")
	assert.NoError(t, err, "deleting nonexistent credential should not error")
}

func TestCredentialRepo_NoKeyConfigured(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, nil)
	ctx := context.Background()

	err := repo.Set(ctx, "google_api_key", "AIza123")
	assert.ErrorIs(t, err, driven.ErrEncryptionKeyNotSet)

	_, err = repo.Get(ctx, "google_api_key")
	assert.ErrorIs(t, err, driven.ErrEncryptionKeyNotSet)

	_, err = repo.List(ctx)
	assert.ErrorIs(t, err, driven.ErrEncryptionKeyNotSet)
}
