package services

import (
	"fmt"
	"log"
	"time"

	"claimtrace/internal/engine"
	"claimtrace/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VerificationService applies operator verdicts to canonical events and
// propagates the outcome into the originating account's metrics
type VerificationService struct {
	db      *gorm.DB
	metrics *engine.MetricsAggregator
}

// NewVerificationService creates a new verification service
func NewVerificationService(db *gorm.DB, metrics *engine.MetricsAggregator) *VerificationService {
	return &VerificationService{db: db, metrics: metrics}
}

var validStatuses = map[string]bool{
	models.VerificationConfirmed: true,
	models.VerificationFalse:     true,
	models.VerificationDisputed:  true,
}

// MarkEvent sets an event's verification status. The first transition out of
// unverified records the event's time-to-verification against its first
// author; confirmed and false verdicts move that author's reliability.
func (s *VerificationService) MarkEvent(eventID uuid.UUID, status string) error {
	if !validStatuses[status] {
		return fmt.Errorf("invalid verification status %q", status)
	}

	var event models.CanonicalEvent
	if err := s.db.Where("id = ?", eventID).First(&event).Error; err != nil {
		return fmt.Errorf("event lookup failed: %w", err)
	}
	if event.VerificationStatus == status {
		return nil
	}

	if err := s.db.Model(&models.CanonicalEvent{}).
		Where("id = ?", event.ID).
		Updates(map[string]interface{}{
			"verification_status": status,
			"last_updated":        time.Now().UTC(),
		}).Error; err != nil {
		return fmt.Errorf("verification update failed: %w", err)
	}

	if event.VerificationStatus == models.VerificationUnverified {
		seconds := int64(time.Since(event.FirstTimestampUTC).Seconds())
		if err := s.metrics.RecordVerificationTime(event.FirstAuthor, seconds); err != nil {
			return err
		}
	}

	switch status {
	case models.VerificationConfirmed:
		if err := s.metrics.ApplyVerificationOutcome(event.FirstAuthor, 1.0); err != nil {
			return err
		}
	case models.VerificationFalse:
		if err := s.metrics.ApplyVerificationOutcome(event.FirstAuthor, 0.0); err != nil {
			return err
		}
		if err := s.metrics.RecordFalseAlarm(event.FirstAuthor); err != nil {
			return err
		}
	}

	log.Printf("Event %s marked %s (first author @%s)", event.EventHash[:12], status, event.FirstAuthor)
	return nil
}
