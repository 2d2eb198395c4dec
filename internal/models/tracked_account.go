package models

import (
	"time"

	"github.com/google/uuid"
)

// Account tiers, highest priority first
const (
	TierOSINT        = "1A_OSINT"
	TierOfficial     = "1B_OFFICIAL"
	TierWire         = "1C_WIRE"
	TierAmplifier    = "2_AMPLIFIER"
	TierSecondary    = "3_SECONDARY"
	TierVerification = "3_VERIFICATION"
)

var tierOrder = map[string]int{
	TierOSINT:        1,
	TierOfficial:     2,
	TierWire:         3,
	TierAmplifier:    4,
	TierSecondary:    5,
	TierVerification: 5,
}

// TierPriority returns the numeric priority for a tier (lower = higher
// priority). Unknown tiers sort last.
func TierPriority(tier string) int {
	if p, ok := tierOrder[tier]; ok {
		return p
	}
	return 99
}

// TrackedAccount is operator-supplied configuration describing which accounts
// are monitored, their tier and their initial reliability. The engine reads
// this when creating an account's metrics row; it never writes to it.
type TrackedAccount struct {
	ID      uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	Account string    `json:"account" db:"account" gorm:"uniqueIndex;not null"`
	Tier    string    `json:"tier" db:"tier" gorm:"not null"`

	InitialReliability float64 `json:"initial_reliability" db:"initial_reliability" gorm:"default:0.85"`

	DateAdded time.Time `json:"date_added" db:"date_added" gorm:"autoCreateTime"`
	AddedBy   string    `json:"added_by" db:"added_by" gorm:"default:manual"`
	IsActive  bool      `json:"is_active" db:"is_active" gorm:"default:true"`
	Notes     string    `json:"notes" db:"notes" gorm:"type:text"`
}

// TableName sets the table name for the TrackedAccount model
func (TrackedAccount) TableName() string {
	return "tracked_accounts"
}
