package services

import (
	"testing"
	"time"

	"claimtrace/internal/config"
	"claimtrace/internal/engine"
	"claimtrace/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

func testEngineConfig() *config.EngineConfig {
	return &config.EngineConfig{
		SmoothingK:         0.1,
		DefaultTier:        models.TierSecondary,
		DefaultReliability: 0.5,
	}
}

func createTestEvent(t *testing.T, db *gorm.DB, author string, firstSeen time.Time) *models.CanonicalEvent {
	t.Helper()
	event := &models.CanonicalEvent{
		EventHash:          "hash-" + author,
		FirstTimestampUTC:  firstSeen,
		FirstTimestampET:   firstSeen,
		FirstAuthor:        author,
		ClaimSummary:       "Explosion reported at the port of Beirut",
		VerificationStatus: models.VerificationUnverified,
	}
	if err := db.Create(event).Error; err != nil {
		t.Fatalf("Failed to create event: %v", err)
	}
	return event
}

func TestMarkEventConfirmed(t *testing.T) {
	db := setupTestDB(t)
	metrics := engine.NewMetricsAggregator(db, testEngineConfig())
	service := NewVerificationService(db, metrics)

	if _, err := metrics.EnsureAccount("alpha"); err != nil {
		t.Fatalf("EnsureAccount failed: %v", err)
	}
	event := createTestEvent(t, db, "alpha", time.Now().UTC().Add(-time.Hour))

	if err := service.MarkEvent(event.ID, models.VerificationConfirmed); err != nil {
		t.Fatalf("MarkEvent failed: %v", err)
	}

	var updated models.CanonicalEvent
	db.Where("id = ?", event.ID).First(&updated)
	if updated.VerificationStatus != models.VerificationConfirmed {
		t.Errorf("Expected confirmed, got %s", updated.VerificationStatus)
	}

	var account models.AccountMetrics
	db.Where("account = ?", "alpha").First(&account)
	if account.ReliabilityScore <= 0.5 {
		t.Errorf("Confirmation should raise reliability, got %f", account.ReliabilityScore)
	}
	if account.VerifiedEventCount != 1 {
		t.Errorf("Expected 1 verified event, got %d", account.VerifiedEventCount)
	}
	if account.AvgTimeToVerificationSeconds <= 0 {
		t.Errorf("Expected a recorded time to verification, got %d", account.AvgTimeToVerificationSeconds)
	}
}

func TestMarkEventFalse(t *testing.T) {
	db := setupTestDB(t)
	metrics := engine.NewMetricsAggregator(db, testEngineConfig())
	service := NewVerificationService(db, metrics)

	if _, err := metrics.EnsureAccount("alpha"); err != nil {
		t.Fatalf("EnsureAccount failed: %v", err)
	}
	event := createTestEvent(t, db, "alpha", time.Now().UTC().Add(-time.Hour))

	if err := service.MarkEvent(event.ID, models.VerificationFalse); err != nil {
		t.Fatalf("MarkEvent failed: %v", err)
	}

	var account models.AccountMetrics
	db.Where("account = ?", "alpha").First(&account)
	if account.ReliabilityScore >= 0.5 {
		t.Errorf("False verdict should lower reliability, got %f", account.ReliabilityScore)
	}
	if account.FalseAlarmCount != 1 {
		t.Errorf("Expected 1 false alarm, got %d", account.FalseAlarmCount)
	}
}

func TestMarkEventRejectsInvalidStatus(t *testing.T) {
	db := setupTestDB(t)
	metrics := engine.NewMetricsAggregator(db, testEngineConfig())
	service := NewVerificationService(db, metrics)

	event := createTestEvent(t, db, "alpha", time.Now().UTC())

	if err := service.MarkEvent(event.ID, "probably"); err == nil {
		t.Error("Expected error for invalid status")
	}
	if err := service.MarkEvent(event.ID, models.VerificationUnverified); err == nil {
		t.Error("Events cannot be marked back to unverified")
	}
}

func TestMarkEventSameStatusIsNoop(t *testing.T) {
	db := setupTestDB(t)
	metrics := engine.NewMetricsAggregator(db, testEngineConfig())
	service := NewVerificationService(db, metrics)

	if _, err := metrics.EnsureAccount("alpha"); err != nil {
		t.Fatalf("EnsureAccount failed: %v", err)
	}
	event := createTestEvent(t, db, "alpha", time.Now().UTC().Add(-time.Hour))

	if err := service.MarkEvent(event.ID, models.VerificationConfirmed); err != nil {
		t.Fatalf("MarkEvent failed: %v", err)
	}
	if err := service.MarkEvent(event.ID, models.VerificationConfirmed); err != nil {
		t.Fatalf("MarkEvent retry failed: %v", err)
	}

	var account models.AccountMetrics
	db.Where("account = ?", "alpha").First(&account)
	if account.VerifiedEventCount != 1 {
		t.Errorf("Repeated verdicts must not double-count, got %d", account.VerifiedEventCount)
	}
}

func TestOnlyFirstTransitionRecordsVerificationTime(t *testing.T) {
	db := setupTestDB(t)
	metrics := engine.NewMetricsAggregator(db, testEngineConfig())
	service := NewVerificationService(db, metrics)

	if _, err := metrics.EnsureAccount("alpha"); err != nil {
		t.Fatalf("EnsureAccount failed: %v", err)
	}
	event := createTestEvent(t, db, "alpha", time.Now().UTC().Add(-time.Hour))

	if err := service.MarkEvent(event.ID, models.VerificationDisputed); err != nil {
		t.Fatalf("MarkEvent failed: %v", err)
	}
	if err := service.MarkEvent(event.ID, models.VerificationConfirmed); err != nil {
		t.Fatalf("MarkEvent failed: %v", err)
	}

	var account models.AccountMetrics
	db.Where("account = ?", "alpha").First(&account)
	if account.VerifiedEventCount != 1 {
		t.Errorf("Only the first transition out of unverified counts, got %d", account.VerifiedEventCount)
	}
}
