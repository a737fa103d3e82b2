package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/db/models"
)

func TestBunProductRepository(t *testing.T) {
	db := setupTestDB(t)
	users := NewBunUserRepository(db)
	repo := NewBunProductRepository(db)
	ctx := context.Background()

	creator := createTestUser(t, users, "creator@example.com", "creator")

	p := &models.Product{CreatorID: creator.ID, Title: "Sample pack", PriceCents: 1500, Currency: "USD"}
	require.NoError(t, repo.Create(ctx, p))
	assert.NotEmpty(t, p.ID)
	assert.False(t, p.CreatedAt.IsZero())

	products, err := repo.ListByCreator(ctx, creator.ID)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Sample pack", products[0].Title)
	assert.EqualValues(t, 1500, products[0].PriceCents)
}

func TestBunMediaTranscodeRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBunMediaTranscodeRepository(db)
	ctx := context.Background()

	_, err := repo.Get(ctx, "media-1")
	assert.ErrorIs(t, err, ErrNotFound)

	failure := "ffmpeg exited 1"
	require.NoError(t, repo.Upsert(ctx, &models.MediaTranscode{MediaID: "media-1", Status: "failed", Error: &failure}))

	master := "media/media-1/master.m3u8"
	require.NoError(t, repo.Upsert(ctx, &models.MediaTranscode{
		MediaID:              "media-1",
		Status:               "completed",
		HLSMasterPlaylistKey: &master,
		ReadyVariants:        []string{"720p", "480p"},
	}))

	got, err := repo.Get(ctx, "media-1")
	require.NoError(t, err)
	assert.Equal(t, "completed", got.Status)
	require.NotNil(t, got.HLSMasterPlaylistKey)
	assert.Equal(t, master, *got.HLSMasterPlaylistKey)
	assert.Equal(t, []string{"720p", "480p"}, got.ReadyVariants)
	assert.Nil(t, got.Error)
}
