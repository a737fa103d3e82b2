package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/db/models"
	"github.com/uptrace/bun"
)

// BunMediaTranscodeRepository implements MediaTranscodeRepository using Bun ORM
type BunMediaTranscodeRepository struct {
	db *bun.DB
}

// NewBunMediaTranscodeRepository creates a new Bun-based transcode result repository
func NewBunMediaTranscodeRepository(db *bun.DB) *BunMediaTranscodeRepository {
	return &BunMediaTranscodeRepository{db: db}
}

// Upsert stores the latest worker result for a media item.
func (r *BunMediaTranscodeRepository) Upsert(ctx context.Context, t *models.MediaTranscode) error {
	t.UpdatedAt = time.Now().UTC()
	_, err := r.db.NewInsert().
		Model(t).
		On("CONFLICT (media_id) DO UPDATE").
		Set("status = EXCLUDED.status").
		Set("hls_master_playlist_key = EXCLUDED.hls_master_playlist_key").
		Set("hls_preview_key = EXCLUDED.hls_preview_key").
		Set("thumbnail_key = EXCLUDED.thumbnail_key").
		Set("waveform_key = EXCLUDED.waveform_key").
		Set("waveform_image_key = EXCLUDED.waveform_image_key").
		Set("mezzanine_key = EXCLUDED.mezzanine_key").
		Set("duration_seconds = EXCLUDED.duration_seconds").
		Set("width = EXCLUDED.width").
		Set("height = EXCLUDED.height").
		Set("ready_variants = EXCLUDED.ready_variants").
		Set("error = EXCLUDED.error").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert media transcode: %w", err)
	}
	return nil
}

// Get returns the stored result for a media item
func (r *BunMediaTranscodeRepository) Get(ctx context.Context, mediaID string) (*models.MediaTranscode, error) {
	t := new(models.MediaTranscode)
	err := r.db.NewSelect().
		Model(t).
		Where("media_id = ?", mediaID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("media transcode %s: %w", mediaID, ErrNotFound)
		}
		return nil, fmt.Errorf("get media transcode: %w", err)
	}
	return t, nil
}
