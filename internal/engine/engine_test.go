package engine

import (
	"testing"
	"time"

	"claimtrace/internal/config"
	"claimtrace/internal/fingerprint"
	"claimtrace/internal/models"
	"claimtrace/internal/timeutil"

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

func testConfig() *config.EngineConfig {
	return &config.EngineConfig{
		HammingThreshold:      10,
		ContentDeltaThreshold: 0.35,
		SmoothingK:            0.1,
		LookbackDays:          7,
		TimeProximityCutoff:   24 * time.Hour,
		TimestampTolerance:    2 * time.Second,
		IndependentWindow:     5 * time.Minute,
		DefaultTier:           models.TierSecondary,
		DefaultReliability:    0.5,
		DisplayTimezone:       "America/New_York",
	}
}

// createPost fingerprints and stores a post the way the pipeline would,
// returning the post and its fingerprint
func createPost(t *testing.T, db *gorm.DB, postID, author, text string, at time.Time) (*models.Post, fingerprint.Fingerprint) {
	t.Helper()

	fp := fingerprint.Compute(text, nil, nil)
	post := &models.Post{
		PostID:            postID,
		Author:            author,
		AuthorTier:        models.TierSecondary,
		AuthorReliability: 0.5,
		Text:              text,
		TextNormalized:    fp.TextNormalized,
		TextHash:          fp.TextHash,
		TimestampUTC:      at,
		TimestampET:       timeutil.ToEastern(at),
		DisplayTime:       timeutil.FormatDisplayTime(at),
	}
	if err := db.Create(post).Error; err != nil {
		t.Fatalf("Failed to create test post %s: %v", postID, err)
	}
	return post, fp
}
