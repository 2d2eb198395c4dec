package models

import (
	"time"

	"github.com/google/uuid"
)

// Interaction edge types
const (
	InteractionQuote   = "quote"
	InteractionReply   = "reply"
	InteractionRetweet = "retweet"
)

// AccountInteraction is a directed edge between two accounts, unique per
// (source, target, type) triple. Repeated interactions increment Frequency
// rather than inserting duplicate rows.
type AccountInteraction struct {
	ID uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`

	SourceAccount   string `json:"source_account" db:"source_account" gorm:"uniqueIndex:idx_interaction_edge;not null"`
	TargetAccount   string `json:"target_account" db:"target_account" gorm:"uniqueIndex:idx_interaction_edge;not null"`
	InteractionType string `json:"interaction_type" db:"interaction_type" gorm:"uniqueIndex:idx_interaction_edge;not null"`

	Frequency       int       `json:"frequency" db:"frequency" gorm:"default:1"`
	LastInteraction time.Time `json:"last_interaction" db:"last_interaction"`
}

// TableName sets the table name for the AccountInteraction model
func (AccountInteraction) TableName() string {
	return "account_interactions"
}
