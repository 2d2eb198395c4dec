package models

import (
	"github.com/google/uuid"
)

// EntityMention is a typed value extracted from a post's text by the external
// entity extractor (e.g. a location or organization). The engine consumes
// these read-only; it never produces them.
type EntityMention struct {
	ID     uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	PostID uuid.UUID `json:"post_id" db:"post_id" gorm:"index;not null;uniqueIndex:idx_entity_post_value"`

	EntityType  string  `json:"entity_type" db:"entity_type" gorm:"uniqueIndex:idx_entity_post_value"`
	EntityValue string  `json:"entity_value" db:"entity_value" gorm:"uniqueIndex:idx_entity_post_value"`
	Confidence  float64 `json:"confidence" db:"confidence"` // In [0,1]
}

// TableName sets the table name for the EntityMention model
func (EntityMention) TableName() string {
	return "entity_mentions"
}
