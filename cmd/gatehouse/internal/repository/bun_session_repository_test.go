package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/auth"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/db/models"
)

func TestBunSessionRepository(t *testing.T) {
	db := setupTestDB(t)
	users := NewBunUserRepository(db)
	repo := NewBunSessionRepository(db)
	ctx := context.Background()

	user := createTestUser(t, users, "session@example.com", "customer")

	_, hash, err := auth.GenerateSessionToken()
	require.NoError(t, err)

	sess := &models.Session{
		UserID:    user.ID,
		TokenHash: hash,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, repo.Create(ctx, sess))
	assert.NotEmpty(t, sess.ID)

	t.Run("lookup by hash", func(t *testing.T) {
		got, err := repo.GetByTokenHash(ctx, hash)
		require.NoError(t, err)
		assert.Equal(t, sess.ID, got.ID)
		assert.Equal(t, user.ID, got.UserID)
		assert.False(t, got.Revoked)
	})

	t.Run("unknown hash", func(t *testing.T) {
		_, err := repo.GetByTokenHash(ctx, auth.HashToken("nope"))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("update last used", func(t *testing.T) {
		assert.NoError(t, repo.UpdateLastUsed(ctx, sess.ID))
	})

	t.Run("revoke by user", func(t *testing.T) {
		n, err := repo.RevokeByUserID(ctx, user.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		got, err := repo.GetByTokenHash(ctx, hash)
		require.NoError(t, err)
		assert.True(t, got.Revoked)

		n, err = repo.RevokeByUserID(ctx, user.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 0, n)
	})
}
