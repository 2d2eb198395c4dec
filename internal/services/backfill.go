package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"claimtrace/internal/engine"
	"claimtrace/internal/ingest"
	"claimtrace/internal/models"

	"gorm.io/gorm"
)

// RefreshConfig controls backfill batching and pacing
type RefreshConfig struct {
	RefreshInterval time.Duration // How stale an account may get before backfill
	BatchSize       int           // Accounts per refresh pass
	RateLimit       time.Duration // Pause between provider API calls
}

// BackfillService recovers posts the stream missed by polling the provider
// API for tracked accounts that have gone quiet
type BackfillService struct {
	db       *gorm.DB
	client   *ingest.Client
	pipeline *engine.Pipeline
}

// NewBackfillService creates a new backfill service
func NewBackfillService(db *gorm.DB, client *ingest.Client, pipeline *engine.Pipeline) *BackfillService {
	return &BackfillService{
		db:       db,
		client:   client,
		pipeline: pipeline,
	}
}

// GetAccountsNeedingBackfill returns active tracked accounts whose latest
// stored post is older than the refresh interval
func (s *BackfillService) GetAccountsNeedingBackfill(config RefreshConfig, limit int) ([]models.TrackedAccount, error) {
	var accounts []models.TrackedAccount
	if err := s.db.Where("is_active = ?", true).Limit(limit).Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("tracked account query failed: %w", err)
	}

	cutoff := time.Now().UTC().Add(-config.RefreshInterval)
	stale := make([]models.TrackedAccount, 0, len(accounts))
	for _, account := range accounts {
		latest, err := s.latestPostTime(account.Account)
		if err != nil {
			return nil, err
		}
		if latest.Before(cutoff) {
			stale = append(stale, account)
		}
	}
	return stale, nil
}

// RefreshBatch backfills one batch of stale accounts, pacing provider calls
// by the configured rate limit
func (s *BackfillService) RefreshBatch(ctx context.Context, config RefreshConfig) error {
	accounts, err := s.GetAccountsNeedingBackfill(config, config.BatchSize)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		return nil
	}

	log.Printf("Backfilling %d stale accounts", len(accounts))
	for i, account := range accounts {
		if i > 0 {
			select {
			case <-time.After(config.RateLimit):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := s.backfillAccount(ctx, account.Account, config.RefreshInterval); err != nil {
			log.Printf("❌ Backfill failed for @%s: %v", account.Account, err)
		}
	}
	return nil
}

// backfillAccount pulls an account's recent posts and runs each through the
// pipeline. Posts the stream already delivered come back as duplicates and
// are skipped by the pipeline's idempotency.
func (s *BackfillService) backfillAccount(ctx context.Context, account string, interval time.Duration) error {
	since, err := s.latestPostTime(account)
	if err != nil {
		return err
	}
	if since.IsZero() {
		since = time.Now().UTC().Add(-interval)
	}

	posts, err := s.client.FetchRecentPosts(ctx, account, since)
	if err != nil {
		return err
	}

	processed := 0
	for _, post := range posts {
		incoming := engine.IncomingPost{
			PostID:          post.PostID,
			Author:          post.Author,
			Text:            post.Text,
			CreatedAt:       post.CreatedAt,
			QuotedPostID:    post.QuotedPostID,
			ReplyToPostID:   post.ReplyToPostID,
			RetweetOfPostID: post.RetweetOfPostID,
			Entities:        post.Entities,
			URLs:            post.URLs,
		}
		if len(post.Langs) > 0 {
			incoming.Language = post.Langs[0]
		}
		result, err := s.pipeline.ProcessPost(ctx, incoming)
		if err != nil {
			log.Printf("Backfill pipeline error for post %s: %v", post.PostID, err)
			continue
		}
		if result.Outcome != engine.OutcomeDuplicate {
			processed++
		}
	}

	if processed > 0 {
		log.Printf("Backfilled %d missed posts for @%s", processed, account)
	}
	return nil
}

// latestPostTime returns the newest stored post time for an account, zero
// when the account has no posts yet
func (s *BackfillService) latestPostTime(account string) (time.Time, error) {
	var post models.Post
	err := s.db.Where("author = ?", account).
		Order("timestamp_utc DESC").
		First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("latest post lookup failed: %w", err)
	}
	return post.TimestampUTC, nil
}
