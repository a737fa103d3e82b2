package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Product is a catalog item published by a creator.
type Product struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID          string    `bun:"id,pk,type:uuid"`
	CreatorID   string    `bun:"creator_id,notnull,type:uuid"` // FK to users(id)
	Title       string    `bun:"title,notnull"`
	Description string    `bun:"description"`
	PriceCents  int64     `bun:"price_cents,notnull"`
	Currency    string    `bun:"currency,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// MediaTranscode records the last result a transcode worker reported for a
// media item. Keys point at objects in the delivery bucket.
type MediaTranscode struct {
	bun.BaseModel `bun:"table:media_transcodes,alias:mt"`

	MediaID              string    `bun:"media_id,pk"`
	Status               string    `bun:"status,notnull"` // completed | failed
	HLSMasterPlaylistKey *string   `bun:"hls_master_playlist_key"`
	HLSPreviewKey        *string   `bun:"hls_preview_key"`
	ThumbnailKey         *string   `bun:"thumbnail_key"`
	WaveformKey          *string   `bun:"waveform_key"`
	WaveformImageKey     *string   `bun:"waveform_image_key"`
	MezzanineKey         *string   `bun:"mezzanine_key"`
	DurationSeconds      *int      `bun:"duration_seconds"`
	Width                *int      `bun:"width"`
	Height               *int      `bun:"height"`
	ReadyVariants        []string  `bun:"ready_variants,type:jsonb"`
	Error                *string   `bun:"error"`
	UpdatedAt            time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}
