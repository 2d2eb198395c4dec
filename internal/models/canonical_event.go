package models

import (
	"time"

	"github.com/google/uuid"
)

// Verification statuses for a canonical event
const (
	VerificationUnverified = "unverified"
	VerificationConfirmed  = "confirmed"
	VerificationFalse      = "false"
	VerificationDisputed   = "disputed"
)

// CanonicalEvent represents the first-known report of a distinct claim.
// Exactly one canonical event exists per event fingerprint, and the first_*
// fields always describe the globally earliest matched post observed so far.
type CanonicalEvent struct {
	ID        uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	EventHash string    `json:"event_hash" db:"event_hash" gorm:"uniqueIndex;not null"`

	FirstPostID       uuid.UUID `json:"first_post_id" db:"first_post_id"`
	FirstTimestampUTC time.Time `json:"first_timestamp_utc" db:"first_timestamp_utc" gorm:"not null"`
	FirstTimestampET  time.Time `json:"first_timestamp_et" db:"first_timestamp_et" gorm:"not null"`
	FirstDisplayTime  string    `json:"first_display_time" db:"first_display_time"`
	FirstAuthor       string    `json:"first_author" db:"first_author" gorm:"index"`

	ClaimSummary       string `json:"claim_summary" db:"claim_summary" gorm:"type:text"`
	VerificationStatus string `json:"verification_status" db:"verification_status" gorm:"default:unverified"`

	RepostCount int `json:"repost_count" db:"repost_count" gorm:"default:0"`
	UpdateCount int `json:"update_count" db:"update_count" gorm:"default:0"`

	LastUpdated time.Time `json:"last_updated" db:"last_updated" gorm:"autoUpdateTime"`

	// Relationships
	Reposts []Repost `json:"reposts,omitempty" gorm:"foreignKey:CanonicalEventID"`
}

// TableName sets the table name for the CanonicalEvent model
func (CanonicalEvent) TableName() string {
	return "canonical_events"
}
