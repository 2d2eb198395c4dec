package models

import (
	"time"

	"github.com/google/uuid"
)

// Repost classification labels
const (
	ClassificationExactRepost       = "exact_repost"
	ClassificationNearDuplicate     = "near_duplicate"
	ClassificationUpdate            = "update"
	ClassificationCorrection        = "correction"
	ClassificationSupersededEarlier = "superseded_earlier"
)

// Repost is a directed link from a post to the canonical event it was matched
// against. Created once per matched post and never mutated afterwards, except
// to attach a late-discovered added-new-info annotation.
type Repost struct {
	ID               uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	CanonicalEventID uuid.UUID `json:"canonical_event_id" db:"canonical_event_id" gorm:"index;not null"`
	PostID           uuid.UUID `json:"post_id" db:"post_id" gorm:"uniqueIndex;not null"`

	// Signed offset from the canonical first-seen time. superseded_earlier
	// entries created by a first-post swap measure from the new first post,
	// so their delta is positive like any other repost's.
	TimeDeltaSeconds int64  `json:"time_delta_seconds" db:"time_delta_seconds"`
	TimeDeltaDisplay string `json:"time_delta_display" db:"time_delta_display"`

	Classification  string  `json:"classification" db:"classification"`
	ConfidenceScore float64 `json:"confidence_score" db:"confidence_score"` // In [0,100]

	AddedNewInfo   bool   `json:"added_new_info" db:"added_new_info" gorm:"default:false"`
	NewInfoSummary string `json:"new_info_summary" db:"new_info_summary" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
}

// TableName sets the table name for the Repost model
func (Repost) TableName() string {
	return "reposts"
}
