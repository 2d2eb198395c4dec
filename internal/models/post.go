package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Post represents a single ingested social media post. A post is written once
// at ingestion and treated as immutable afterwards, except for back-filled
// cross-references to posts that arrive later.
type Post struct {
	ID     uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	PostID string    `json:"post_id" db:"post_id" gorm:"uniqueIndex;not null"` // Platform identifier
	Author string    `json:"author" db:"author" gorm:"index;not null"`

	// Snapshot of the author's standing at ingestion time
	AuthorTier        string  `json:"author_tier" db:"author_tier"`
	AuthorReliability float64 `json:"author_reliability" db:"author_reliability" gorm:"default:0.5"`

	Text           string `json:"text" db:"text" gorm:"type:text;not null"`
	TextNormalized string `json:"text_normalized" db:"text_normalized" gorm:"type:text"`
	TextHash       string `json:"text_hash" db:"text_hash" gorm:"index"`
	EventHash      string `json:"event_hash" db:"event_hash" gorm:"index"` // Empty until resolved

	// The same instant in two representations
	TimestampUTC time.Time `json:"timestamp_utc" db:"timestamp_utc" gorm:"not null"`
	TimestampET  time.Time `json:"timestamp_et" db:"timestamp_et" gorm:"not null"`
	DisplayTime  string    `json:"display_time" db:"display_time"`

	Language      string     `json:"language" db:"language"`
	IsTranslation bool       `json:"is_translation" db:"is_translation" gorm:"default:false"`
	TranslationOf *uuid.UUID `json:"translation_of" db:"translation_of"`

	// Cross-references by platform identifier; these may point outside the
	// currently known set of posts
	QuotedPostID    string `json:"quoted_post_id" db:"quoted_post_id"`
	ReplyToPostID   string `json:"reply_to_post_id" db:"reply_to_post_id"`
	RetweetOfPostID string `json:"retweet_of_post_id" db:"retweet_of_post_id"`

	Hashtags pq.StringArray `json:"hashtags" db:"hashtags" gorm:"type:text[]"`

	// Set when the UTC/ET pair disagrees beyond tolerance; such posts are
	// stored but skipped by event matching
	NeedsReview bool `json:"needs_review" db:"needs_review" gorm:"default:false"`

	// Back-filled once processing reaches a terminal state; redelivered posts
	// short-circuit on it instead of repeating side effects
	ResolutionOutcome string `json:"resolution_outcome" db:"resolution_outcome" gorm:"index"`

	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`

	// Relationships
	Media    []MediaAsset    `json:"media,omitempty" gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
	Entities []EntityMention `json:"entities,omitempty" gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
	URLs     []URLReference  `json:"urls,omitempty" gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
}

// TableName sets the table name for the Post model
func (Post) TableName() string {
	return "posts"
}
