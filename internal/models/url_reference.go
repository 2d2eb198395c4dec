package models

import (
	"github.com/google/uuid"
)

// URLReference is a link found in a post, in original, expanded and canonical
// forms, supplied by the external URL extractor.
type URLReference struct {
	ID     uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	PostID uuid.UUID `json:"post_id" db:"post_id" gorm:"index;not null;uniqueIndex:idx_url_post_original"`

	URLOriginal  string `json:"url_original" db:"url_original" gorm:"uniqueIndex:idx_url_post_original"`
	URLExpanded  string `json:"url_expanded" db:"url_expanded"`
	URLCanonical string `json:"url_canonical" db:"url_canonical" gorm:"index"`
	Domain       string `json:"domain" db:"domain"`
}

// TableName sets the table name for the URLReference model
func (URLReference) TableName() string {
	return "url_references"
}
