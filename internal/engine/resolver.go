package engine

import (
	"errors"
	"fmt"
	"log"
	"time"

	"claimtrace/internal/config"
	"claimtrace/internal/fingerprint"
	"claimtrace/internal/models"
	"claimtrace/internal/timeutil"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Outcome is the tagged result of resolving a post against known events
type Outcome string

const (
	// OutcomeCreated means the post is the first report of a new claim
	OutcomeCreated Outcome = "created"
	// OutcomeMatched means the post matched an existing canonical event
	OutcomeMatched Outcome = "matched"
	// OutcomeReassigned means the post matched an event but predates its
	// first post, so it took over as canonical
	OutcomeReassigned Outcome = "reassigned"
)

// Resolution is what the resolver hands back to the pipeline. Callers handle
// all outcomes uniformly.
type Resolution struct {
	Outcome Outcome
	Event   *models.CanonicalEvent
}

// Resolver decides whether a post is the first report of a claim or a repost
// of an existing canonical event. All mutations keyed by one event
// fingerprint go through the unique index on event_hash plus a
// create-or-fetch retry, so two workers first-sighting the same claim can
// never produce two canonical events.
type Resolver struct {
	db  *gorm.DB
	cfg *config.EngineConfig
}

// NewResolver creates a new canonical event resolver
func NewResolver(db *gorm.DB, cfg *config.EngineConfig) *Resolver {
	return &Resolver{db: db, cfg: cfg}
}

// Resolve finds or creates the canonical event for a fingerprinted post.
// Matching tries the exact event hash first, then perceptual near-matches
// over recent media.
func (r *Resolver) Resolve(post *models.Post, fp fingerprint.Fingerprint, media []models.MediaAsset) (*Resolution, error) {
	if !fp.Matchable(len(media)) {
		return nil, ErrUnmatchable
	}

	// Exact path: same event fingerprint
	event, err := r.findByHash(fp.EventHash)
	if err != nil {
		return nil, err
	}
	if event != nil {
		return r.handleMatch(post, event)
	}

	// Near path: same media content under a different fingerprint
	event, err = r.findByMedia(post, media)
	if err != nil {
		return nil, err
	}
	if event != nil {
		return r.handleMatch(post, event)
	}

	return r.create(post, fp)
}

func (r *Resolver) findByHash(eventHash string) (*models.CanonicalEvent, error) {
	var event models.CanonicalEvent
	err := r.db.Where("event_hash = ?", eventHash).First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("event lookup failed: %w", err)
	}
	return &event, nil
}

// findByMedia scans recent media fingerprints for a perceptual near-match.
// The scan is bounded to the lookback window; older near-duplicates are
// accepted misses.
func (r *Resolver) findByMedia(post *models.Post, media []models.MediaAsset) (*models.CanonicalEvent, error) {
	if len(media) == 0 {
		return nil, nil
	}

	cutoff := time.Now().AddDate(0, 0, -r.cfg.LookbackDays)
	var candidates []models.MediaAsset
	err := r.db.
		Where("first_seen > ? AND perceptual_hash <> '' AND post_id <> ?", cutoff, post.ID).
		Order("first_seen DESC").
		Limit(1000).
		Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("media lookback scan failed: %w", err)
	}

	for _, m := range media {
		if m.PerceptualHash == "" {
			continue
		}
		for _, cand := range candidates {
			if fingerprint.HammingDistance(m.PerceptualHash, cand.PerceptualHash) > r.cfg.HammingThreshold {
				continue
			}

			// Same media, possibly different wording. Follow the owning post
			// to its canonical event.
			event, err := r.eventForPost(cand.PostID)
			if err != nil {
				return nil, err
			}
			if event != nil {
				return event, nil
			}
		}
	}
	return nil, nil
}

// eventForPost finds the canonical event an already-resolved post belongs to
func (r *Resolver) eventForPost(postID uuid.UUID) (*models.CanonicalEvent, error) {
	var owner models.Post
	err := r.db.Where("id = ?", postID).First(&owner).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("media owner lookup failed: %w", err)
	}
	if owner.EventHash == "" {
		return nil, nil
	}
	return r.findByHash(owner.EventHash)
}

// create inserts a new canonical event for the post. If a concurrent worker
// created one for the same fingerprint first, the conflicting create resolves
// silently as a fetch and the post is treated as matched.
func (r *Resolver) create(post *models.Post, fp fingerprint.Fingerprint) (*Resolution, error) {
	event := models.CanonicalEvent{
		EventHash:          fp.EventHash,
		FirstPostID:        post.ID,
		FirstTimestampUTC:  post.TimestampUTC,
		FirstTimestampET:   post.TimestampET,
		FirstDisplayTime:   post.DisplayTime,
		FirstAuthor:        post.Author,
		ClaimSummary:       summarize(post.Text),
		VerificationStatus: models.VerificationUnverified,
	}

	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_hash"}},
		DoNothing: true,
	}).Create(&event)
	if result.Error != nil {
		return nil, fmt.Errorf("event create failed: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		// Lost the race; retry as a fetch
		existing, err := r.findByHash(fp.EventHash)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, fmt.Errorf("event for hash %s vanished after conflict", fp.EventHash)
		}
		return r.handleMatch(post, existing)
	}

	return &Resolution{Outcome: OutcomeCreated, Event: &event}, nil
}

// handleMatch applies the match side effects. The first_* fields stay
// untouched no matter what the new post's timestamp says, with one exception:
// a strictly earlier post takes over as canonical and the previous first post
// is relabeled as a superseded_earlier repost.
func (r *Resolver) handleMatch(post *models.Post, event *models.CanonicalEvent) (*Resolution, error) {
	if post.TimestampUTC.Before(event.FirstTimestampUTC) {
		return r.reassign(post, event)
	}

	err := r.db.Model(&models.CanonicalEvent{}).
		Where("id = ?", event.ID).
		Updates(map[string]interface{}{
			"repost_count": gorm.Expr("repost_count + 1"),
			"last_updated": time.Now().UTC(),
		}).Error
	if err != nil {
		return nil, fmt.Errorf("repost count update failed: %w", err)
	}

	return &Resolution{Outcome: OutcomeMatched, Event: r.reload(event)}, nil
}

// reassign makes an earlier-timestamped post the canonical first report and
// converts the previous first post into a superseded_earlier repost. This
// keeps first_* strictly earliest without rescanning history.
func (r *Resolver) reassign(post *models.Post, event *models.CanonicalEvent) (*Resolution, error) {
	prevFirstPostID := event.FirstPostID
	prevDelta := event.FirstTimestampUTC.Sub(post.TimestampUTC)

	err := r.db.Transaction(func(tx *gorm.DB) error {
		supersededRepost := models.Repost{
			CanonicalEventID: event.ID,
			PostID:           prevFirstPostID,
			TimeDeltaSeconds: int64(prevDelta.Seconds()),
			TimeDeltaDisplay: timeutil.FormatTimeDelta(int64(prevDelta.Seconds())),
			Classification:   models.ClassificationSupersededEarlier,
			ConfidenceScore:  100,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}},
			DoNothing: true,
		}).Create(&supersededRepost).Error; err != nil {
			return fmt.Errorf("superseded repost create failed: %w", err)
		}

		return tx.Model(&models.CanonicalEvent{}).
			Where("id = ?", event.ID).
			Updates(map[string]interface{}{
				"first_post_id":       post.ID,
				"first_timestamp_utc": post.TimestampUTC,
				"first_timestamp_et":  post.TimestampET,
				"first_display_time":  post.DisplayTime,
				"first_author":        post.Author,
				"claim_summary":       summarize(post.Text),
				"repost_count":        gorm.Expr("repost_count + 1"),
				"last_updated":        time.Now().UTC(),
			}).Error
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Reassigned canonical event %s to earlier post %s", event.EventHash[:12], post.PostID)
	return &Resolution{Outcome: OutcomeReassigned, Event: r.reload(event)}, nil
}

func (r *Resolver) reload(event *models.CanonicalEvent) *models.CanonicalEvent {
	var fresh models.CanonicalEvent
	if err := r.db.Where("id = ?", event.ID).First(&fresh).Error; err != nil {
		return event
	}
	return &fresh
}

// summarize truncates post text into a claim summary
func summarize(text string) string {
	if len(text) <= 200 {
		return text
	}
	return text[:200]
}
