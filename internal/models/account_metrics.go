package models

import (
	"time"

	"github.com/google/uuid"
)

// AccountMetrics holds rolling per-account statistics. One row per account,
// created lazily on first observed post and continuously mutated by the
// metrics aggregator (and only by it).
type AccountMetrics struct {
	ID      uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	Account string    `json:"account" db:"account" gorm:"uniqueIndex;not null"`
	Tier    string    `json:"tier" db:"tier"`

	// Smoothed estimate of report accuracy, always in [0,1]
	ReliabilityScore float64 `json:"reliability_score" db:"reliability_score" gorm:"default:0.5"`

	TotalPostsTracked    int `json:"total_posts_tracked" db:"total_posts_tracked" gorm:"default:0"`
	TotalOriginalReports int `json:"total_original_reports" db:"total_original_reports" gorm:"default:0"`
	TotalReposts         int `json:"total_reposts" db:"total_reposts" gorm:"default:0"`
	TotalUpdates         int `json:"total_updates" db:"total_updates" gorm:"default:0"`
	TotalCorrections     int `json:"total_corrections" db:"total_corrections" gorm:"default:0"`
	FalseAlarmCount      int `json:"false_alarm_count" db:"false_alarm_count" gorm:"default:0"`

	// Running mean over originated events that have left unverified;
	// VerifiedEventCount is the running-mean denominator
	AvgTimeToVerificationSeconds int64 `json:"avg_time_to_verification_seconds" db:"avg_time_to_verification_seconds" gorm:"default:0"`
	VerifiedEventCount           int   `json:"verified_event_count" db:"verified_event_count" gorm:"default:0"`

	LastUpdated time.Time `json:"last_updated" db:"last_updated" gorm:"autoUpdateTime"`
}

// TableName sets the table name for the AccountMetrics model
func (AccountMetrics) TableName() string {
	return "account_metrics"
}
