package models

import (
	"time"

	"github.com/google/uuid"
)

// MediaAsset represents an image or video attached to a post. Assets are
// cascade-deleted with their owning post.
type MediaAsset struct {
	ID     uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	PostID uuid.UUID `json:"post_id" db:"post_id" gorm:"index;not null;uniqueIndex:idx_media_post_content"`

	MediaURL  string `json:"media_url" db:"media_url" gorm:"not null"`
	MediaType string `json:"media_type" db:"media_type"`

	// PerceptualHash is a 64-bit dHash signature as 16 hex chars, compared by
	// Hamming distance. SHA256Hash identifies exact byte content; one post
	// carries each distinct asset at most once, so retried ingestion upserts
	// instead of duplicating.
	PerceptualHash string `json:"perceptual_hash" db:"perceptual_hash" gorm:"index"`
	SHA256Hash     string `json:"sha256_hash" db:"sha256_hash" gorm:"index;uniqueIndex:idx_media_post_content"`

	Width  int `json:"width" db:"width"`
	Height int `json:"height" db:"height"`

	FirstSeen time.Time `json:"first_seen" db:"first_seen" gorm:"index;autoCreateTime"`
}

// TableName sets the table name for the MediaAsset model
func (MediaAsset) TableName() string {
	return "media_assets"
}
