package engine

import (
	"errors"
	"fmt"
	"time"

	"claimtrace/internal/config"
	"claimtrace/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MetricsAggregator owns all mutation of account_metrics rows. Every update
// is a single-statement atomic increment or merge so that concurrent workers
// touching the same account never race read-modify-write.
type MetricsAggregator struct {
	db  *gorm.DB
	cfg *config.EngineConfig
}

// NewMetricsAggregator creates a new account metrics aggregator
func NewMetricsAggregator(db *gorm.DB, cfg *config.EngineConfig) *MetricsAggregator {
	return &MetricsAggregator{db: db, cfg: cfg}
}

// EnsureAccount returns the metrics row for an account, creating it lazily on
// first sight. Tier and initial reliability come from tracked account config
// when present, defaults otherwise. Safe under concurrent first-sighting.
func (m *MetricsAggregator) EnsureAccount(account string) (*models.AccountMetrics, error) {
	var metrics models.AccountMetrics
	err := m.db.Where("account = ?", account).First(&metrics).Error
	if err == nil {
		return &metrics, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("metrics lookup failed: %w", err)
	}

	tier := m.cfg.DefaultTier
	reliability := m.cfg.DefaultReliability

	var tracked models.TrackedAccount
	if err := m.db.Where("account = ? AND is_active = ?", account, true).First(&tracked).Error; err == nil {
		tier = tracked.Tier
		reliability = tracked.InitialReliability
	}

	metrics = models.AccountMetrics{
		Account:          account,
		Tier:             tier,
		ReliabilityScore: reliability,
	}
	result := m.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account"}},
		DoNothing: true,
	}).Create(&metrics)
	if result.Error != nil {
		return nil, fmt.Errorf("metrics create failed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		// Concurrent first-sight; fetch the row the other worker created
		if err := m.db.Where("account = ?", account).First(&metrics).Error; err != nil {
			return nil, fmt.Errorf("metrics fetch after conflict failed: %w", err)
		}
	}
	return &metrics, nil
}

// RecordPost bumps the account's counters for one attributed post. The
// classification is empty for an original report (created or reassigned
// canonical post).
func (m *MetricsAggregator) RecordPost(account, classification string) error {
	updates := map[string]interface{}{
		"total_posts_tracked": gorm.Expr("total_posts_tracked + 1"),
		"last_updated":        time.Now().UTC(),
	}

	switch classification {
	case "":
		updates["total_original_reports"] = gorm.Expr("total_original_reports + 1")
	case models.ClassificationUpdate:
		updates["total_updates"] = gorm.Expr("total_updates + 1")
	case models.ClassificationCorrection:
		updates["total_corrections"] = gorm.Expr("total_corrections + 1")
	case models.ClassificationExactRepost, models.ClassificationNearDuplicate, models.ClassificationSupersededEarlier:
		updates["total_reposts"] = gorm.Expr("total_reposts + 1")
	}

	return m.db.Model(&models.AccountMetrics{}).
		Where("account = ?", account).
		Updates(updates).Error
}

// ApplyVerificationOutcome moves the account's reliability toward the outcome
// signal by the smoothing constant: new = old + k*(signal-old). With the
// signal in [0,1] the score stays in [0,1] for any update sequence. Applied
// as one SQL expression so concurrent updates merge instead of racing.
func (m *MetricsAggregator) ApplyVerificationOutcome(account string, signal float64) error {
	return m.db.Model(&models.AccountMetrics{}).
		Where("account = ?", account).
		Updates(map[string]interface{}{
			"reliability_score": gorm.Expr("reliability_score + ? * (? - reliability_score)", m.cfg.SmoothingK, signal),
			"last_updated":      time.Now().UTC(),
		}).Error
}

// RecordFalseAlarm increments the false alarm counter for an account whose
// canonical event was marked false
func (m *MetricsAggregator) RecordFalseAlarm(account string) error {
	return m.db.Model(&models.AccountMetrics{}).
		Where("account = ?", account).
		Updates(map[string]interface{}{
			"false_alarm_count": gorm.Expr("false_alarm_count + 1"),
			"last_updated":      time.Now().UTC(),
		}).Error
}

// RecordVerificationTime folds one event's time-to-verification into the
// account's running mean. Both the mean and its denominator move in the same
// statement.
func (m *MetricsAggregator) RecordVerificationTime(account string, seconds int64) error {
	return m.db.Model(&models.AccountMetrics{}).
		Where("account = ?", account).
		Updates(map[string]interface{}{
			"avg_time_to_verification_seconds": gorm.Expr(
				"avg_time_to_verification_seconds + (? - avg_time_to_verification_seconds) / (verified_event_count + 1)", seconds),
			"verified_event_count": gorm.Expr("verified_event_count + 1"),
			"last_updated":         time.Now().UTC(),
		}).Error
}

// Reliability returns the current reliability score for an account, or the
// configured default when the account has no metrics row yet
func (m *MetricsAggregator) Reliability(account string) float64 {
	var metrics models.AccountMetrics
	if err := m.db.Where("account = ?", account).First(&metrics).Error; err != nil {
		return m.cfg.DefaultReliability
	}
	return metrics.ReliabilityScore
}
