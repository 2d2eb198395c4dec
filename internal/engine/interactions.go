package engine

import (
	"fmt"
	"time"

	"claimtrace/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InteractionUpdater records cross-account interaction edges. It only counts:
// no classification or confidence logic lives here.
type InteractionUpdater struct {
	db *gorm.DB
}

// NewInteractionUpdater creates a new interaction graph updater
func NewInteractionUpdater(db *gorm.DB) *InteractionUpdater {
	return &InteractionUpdater{db: db}
}

// Record upserts one (source, target, type) edge: existing edges get their
// frequency bumped and last_interaction refreshed, new edges start at 1
func (u *InteractionUpdater) Record(source, target, interactionType string, at time.Time) error {
	if source == "" || target == "" || source == target {
		return nil
	}

	edge := models.AccountInteraction{
		SourceAccount:   source,
		TargetAccount:   target,
		InteractionType: interactionType,
		Frequency:       1,
		LastInteraction: at,
	}

	err := u.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "source_account"},
			{Name: "target_account"},
			{Name: "interaction_type"},
		},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"frequency":        gorm.Expr("account_interactions.frequency + 1"),
			"last_interaction": at,
		}),
	}).Create(&edge).Error
	if err != nil {
		return fmt.Errorf("interaction upsert failed: %w", err)
	}
	return nil
}
