package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"claimtrace/internal/config"
	"claimtrace/internal/fingerprint"
	"claimtrace/internal/models"
	"claimtrace/internal/timeutil"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Pipeline-level outcomes in addition to the resolver's three
const (
	// OutcomeUnmatchable means the post had no usable fingerprint and was
	// stored without event matching
	OutcomeUnmatchable Outcome = "unmatchable"
	// OutcomeFlagged means the post's timestamps were inconsistent and it
	// was stored for manual review
	OutcomeFlagged Outcome = "flagged"
	// OutcomeDuplicate means the post was already fully processed
	OutcomeDuplicate Outcome = "duplicate"
)

// IncomingMedia is one attached media asset as supplied by ingestion
type IncomingMedia struct {
	URL  string `json:"url"`
	Type string `json:"type"`
	Data []byte `json:"data,omitempty"`
}

// IncomingEntity is one typed entity mention from the external extractor
type IncomingEntity struct {
	Type       string  `json:"type"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// IncomingURL is one extracted URL record from the external extractor
type IncomingURL struct {
	Original  string `json:"original"`
	Expanded  string `json:"expanded"`
	Canonical string `json:"canonical"`
	Domain    string `json:"domain"`
}

// IncomingPost is a normalized post record handed to the engine by ingestion
type IncomingPost struct {
	PostID          string           `json:"post_id"`
	Author          string           `json:"author"`
	Text            string           `json:"text"`
	CreatedAt       time.Time        `json:"created_at"`
	TimestampET     time.Time        `json:"timestamp_et,omitempty"`
	Language        string           `json:"language"`
	IsTranslation   bool             `json:"is_translation"`
	QuotedPostID    string           `json:"quoted_post_id"`
	ReplyToPostID   string           `json:"reply_to_post_id"`
	RetweetOfPostID string           `json:"retweet_of_post_id"`
	Media           []IncomingMedia  `json:"media"`
	Entities        []IncomingEntity `json:"entities"`
	URLs            []IncomingURL    `json:"urls"`
}

// Result summarizes what processing one post did
type Result struct {
	Post           *models.Post
	Outcome        Outcome
	Event          *models.CanonicalEvent
	Classification *Classification
	Repost         *models.Repost
}

// Pipeline runs a post through the whole engine: fingerprint, store, resolve,
// classify, update metrics and the interaction graph. Processing is
// idempotent; a retried post re-enters safely because fingerprints are
// deterministic and all writes are upserts or keyed increments.
type Pipeline struct {
	db           *gorm.DB
	cfg          *config.EngineConfig
	resolver     *Resolver
	classifier   *Classifier
	metrics      *MetricsAggregator
	interactions *InteractionUpdater
}

// NewPipeline wires up the engine components over one database handle
func NewPipeline(db *gorm.DB, cfg *config.EngineConfig) *Pipeline {
	return &Pipeline{
		db:           db,
		cfg:          cfg,
		resolver:     NewResolver(db, cfg),
		classifier:   NewClassifier(cfg),
		metrics:      NewMetricsAggregator(db, cfg),
		interactions: NewInteractionUpdater(db),
	}
}

// Metrics exposes the aggregator for services that apply verification
// outcomes
func (p *Pipeline) Metrics() *MetricsAggregator {
	return p.metrics
}

// ProcessPost ingests one post end to end
func (p *Pipeline) ProcessPost(ctx context.Context, in IncomingPost) (*Result, error) {
	if in.PostID == "" || in.Author == "" {
		return nil, fmt.Errorf("post is missing required fields (post_id=%q author=%q)", in.PostID, in.Author)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	account, err := p.metrics.EnsureAccount(in.Author)
	if err != nil {
		return nil, err
	}

	fp := fingerprint.Compute(in.Text, entityValues(in.Entities), canonicalURLs(in.URLs))

	utc := in.CreatedAt.UTC()
	if utc.IsZero() {
		utc = time.Now().UTC()
	}
	et := in.TimestampET
	consistent := true
	if et.IsZero() {
		et = timeutil.ToEastern(utc)
	} else {
		consistent = timeutil.Consistent(utc, et, p.cfg.TimestampTolerance)
	}

	post := &models.Post{
		PostID:            in.PostID,
		Author:            in.Author,
		AuthorTier:        account.Tier,
		AuthorReliability: account.ReliabilityScore,
		Text:              in.Text,
		TextNormalized:    fp.TextNormalized,
		TextHash:          fp.TextHash,
		TimestampUTC:      utc,
		TimestampET:       et,
		DisplayTime:       timeutil.FormatDisplayTime(utc),
		Language:          in.Language,
		IsTranslation:     in.IsTranslation,
		QuotedPostID:      in.QuotedPostID,
		ReplyToPostID:     in.ReplyToPostID,
		RetweetOfPostID:   in.RetweetOfPostID,
		Hashtags:          fp.Hashtags,
		NeedsReview:       !consistent,
	}

	created, err := p.insertPost(post)
	if err != nil {
		return nil, err
	}
	if !created {
		if post.EventHash != "" {
			// Already resolved on a previous attempt
			event, _ := p.resolver.findByHash(post.EventHash)
			return &Result{Post: post, Outcome: OutcomeDuplicate, Event: event}, nil
		}
		if post.ResolutionOutcome == string(OutcomeFlagged) || post.ResolutionOutcome == string(OutcomeUnmatchable) {
			// Terminal without an event hash; redelivery must not repeat the
			// stores or counter bumps
			return &Result{Post: post, Outcome: OutcomeDuplicate}, nil
		}
	}

	media, err := p.storeMedia(post, in.Media)
	if err != nil {
		return nil, err
	}
	if err := p.storeEntities(post, in.Entities); err != nil {
		return nil, err
	}
	if err := p.storeURLs(post, in.URLs); err != nil {
		return nil, err
	}

	if err := p.recordInteractions(post); err != nil {
		return nil, err
	}

	if !consistent {
		log.Printf("Post %s flagged for review: %v", post.PostID, ErrInconsistentTimestamp)
		if err := p.metrics.RecordPost(post.Author, "flagged"); err != nil {
			return nil, err
		}
		if err := p.markOutcome(post, OutcomeFlagged); err != nil {
			return nil, err
		}
		return &Result{Post: post, Outcome: OutcomeFlagged}, nil
	}

	resolution, err := p.resolver.Resolve(post, fp, media)
	if errors.Is(err, ErrUnmatchable) {
		log.Printf("Post %s unmatchable, stored without event matching", post.PostID)
		if err := p.metrics.RecordPost(post.Author, "unmatchable"); err != nil {
			return nil, err
		}
		if err := p.markOutcome(post, OutcomeUnmatchable); err != nil {
			return nil, err
		}
		return &Result{Post: post, Outcome: OutcomeUnmatchable}, nil
	}
	if err != nil {
		return nil, err
	}

	// The post is resolved; remember its fingerprint so retries short-circuit
	if err := p.db.Model(post).UpdateColumns(map[string]interface{}{
		"event_hash":         fp.EventHash,
		"resolution_outcome": string(resolution.Outcome),
	}).Error; err != nil {
		return nil, fmt.Errorf("event hash backfill failed: %w", err)
	}
	post.EventHash = fp.EventHash
	post.ResolutionOutcome = string(resolution.Outcome)

	result := &Result{Post: post, Outcome: resolution.Outcome, Event: resolution.Event}

	switch resolution.Outcome {
	case OutcomeCreated, OutcomeReassigned:
		// First report of the claim (or newly earliest)
		if err := p.metrics.RecordPost(post.Author, ""); err != nil {
			return nil, err
		}
	case OutcomeMatched:
		if err := p.classifyMatch(post, fp, resolution.Event, result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// classifyMatch labels the repost, stores it and applies the classification's
// side effects to the event and the account metrics
func (p *Pipeline) classifyMatch(post *models.Post, fp fingerprint.Fingerprint, event *models.CanonicalEvent, result *Result) error {
	var first models.Post
	if err := p.db.Where("id = ?", event.FirstPostID).First(&first).Error; err != nil {
		return fmt.Errorf("first post lookup failed: %w", err)
	}

	cls := p.classifier.Classify(post, fp, event, &first)
	result.Classification = &cls

	deltaSeconds := int64(timeDelta(post, event).Seconds())
	repost := models.Repost{
		CanonicalEventID: event.ID,
		PostID:           post.ID,
		TimeDeltaSeconds: deltaSeconds,
		TimeDeltaDisplay: timeutil.FormatTimeDelta(deltaSeconds),
		Classification:   cls.Label,
		ConfidenceScore:  cls.Confidence,
		AddedNewInfo:     cls.AddedNewInfo,
		NewInfoSummary:   cls.NewInfoSummary,
	}
	if err := p.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "post_id"}},
		DoNothing: true,
	}).Create(&repost).Error; err != nil {
		return fmt.Errorf("repost create failed: %w", err)
	}
	result.Repost = &repost

	if cls.AddedNewInfo {
		if err := p.db.Model(&models.CanonicalEvent{}).
			Where("id = ?", event.ID).
			Updates(map[string]interface{}{
				"update_count": gorm.Expr("update_count + 1"),
				"last_updated": time.Now().UTC(),
			}).Error; err != nil {
			return fmt.Errorf("update count bump failed: %w", err)
		}
	}

	if cls.Label == models.ClassificationCorrection {
		status, err := p.classifier.CorrectionStatus(p.db, event, post)
		if err != nil {
			return err
		}
		if status != event.VerificationStatus {
			if err := p.db.Model(&models.CanonicalEvent{}).
				Where("id = ?", event.ID).
				Updates(map[string]interface{}{
					"verification_status": status,
					"last_updated":        time.Now().UTC(),
				}).Error; err != nil {
				return fmt.Errorf("verification status update failed: %w", err)
			}
		}
		// A corrected original counts against its author's reliability
		if err := p.metrics.ApplyVerificationOutcome(event.FirstAuthor, 0.0); err != nil {
			return err
		}
	}

	return p.metrics.RecordPost(post.Author, cls.Label)
}

// insertPost upserts the post by platform identifier. Returns false when the
// row already existed, loading the stored version into post.
func (p *Pipeline) insertPost(post *models.Post) (bool, error) {
	result := p.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "post_id"}},
		DoNothing: true,
	}).Create(post)
	if result.Error != nil {
		return false, fmt.Errorf("post insert failed: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	var existing models.Post
	if err := p.db.Where("post_id = ?", post.PostID).First(&existing).Error; err != nil {
		return false, fmt.Errorf("post fetch after conflict failed: %w", err)
	}
	*post = existing
	return false, nil
}

// markOutcome back-fills the terminal outcome onto the stored post so a
// redelivered copy short-circuits as a duplicate
func (p *Pipeline) markOutcome(post *models.Post, outcome Outcome) error {
	if err := p.db.Model(post).UpdateColumn("resolution_outcome", string(outcome)).Error; err != nil {
		return fmt.Errorf("outcome backfill failed: %w", err)
	}
	post.ResolutionOutcome = string(outcome)
	return nil
}

// The store helpers are conflict-tolerant: a retried post re-inserting the
// same media, entities or URLs hits the per-post unique indexes and does
// nothing instead of duplicating rows.

func (p *Pipeline) storeMedia(post *models.Post, incoming []IncomingMedia) ([]models.MediaAsset, error) {
	assets := make([]models.MediaAsset, 0, len(incoming))
	for _, m := range incoming {
		fp := fingerprint.FingerprintMedia(m.Data)
		asset := models.MediaAsset{
			PostID:         post.ID,
			MediaURL:       m.URL,
			MediaType:      m.Type,
			PerceptualHash: fp.PerceptualHash,
			SHA256Hash:     fp.SHA256Hash,
			Width:          fp.Width,
			Height:         fp.Height,
			FirstSeen:      time.Now().UTC(),
		}
		if err := p.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&asset).Error; err != nil {
			return nil, fmt.Errorf("media insert failed: %w", err)
		}
		assets = append(assets, asset)
	}
	return assets, nil
}

func (p *Pipeline) storeEntities(post *models.Post, incoming []IncomingEntity) error {
	for _, e := range incoming {
		mention := models.EntityMention{
			PostID:      post.ID,
			EntityType:  e.Type,
			EntityValue: e.Value,
			Confidence:  e.Confidence,
		}
		if err := p.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&mention).Error; err != nil {
			return fmt.Errorf("entity insert failed: %w", err)
		}
	}
	return nil
}

func (p *Pipeline) storeURLs(post *models.Post, incoming []IncomingURL) error {
	for _, u := range incoming {
		ref := models.URLReference{
			PostID:       post.ID,
			URLOriginal:  u.Original,
			URLExpanded:  u.Expanded,
			URLCanonical: u.Canonical,
			Domain:       u.Domain,
		}
		if err := p.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&ref).Error; err != nil {
			return fmt.Errorf("url insert failed: %w", err)
		}
	}
	return nil
}

// recordInteractions upserts the edges implied by the post's quote, reply and
// retweet references. References to posts we have never seen are skipped; a
// known target author without a metrics row gets a placeholder one.
func (p *Pipeline) recordInteractions(post *models.Post) error {
	refs := []struct {
		postID          string
		interactionType string
	}{
		{post.QuotedPostID, models.InteractionQuote},
		{post.ReplyToPostID, models.InteractionReply},
		{post.RetweetOfPostID, models.InteractionRetweet},
	}

	for _, ref := range refs {
		if ref.postID == "" {
			continue
		}
		var target models.Post
		err := p.db.Where("post_id = ?", ref.postID).First(&target).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue // May point outside the known set
		}
		if err != nil {
			return fmt.Errorf("interaction target lookup failed: %w", err)
		}

		if _, err := p.metrics.EnsureAccount(target.Author); err != nil {
			return err
		}
		if err := p.interactions.Record(post.Author, target.Author, ref.interactionType, post.TimestampUTC); err != nil {
			return err
		}
	}
	return nil
}

func entityValues(entities []IncomingEntity) []string {
	values := make([]string, 0, len(entities))
	for _, e := range entities {
		values = append(values, e.Value)
	}
	return values
}

func canonicalURLs(urls []IncomingURL) []string {
	values := make([]string, 0, len(urls))
	for _, u := range urls {
		if u.Canonical != "" {
			values = append(values, u.Canonical)
		}
	}
	return values
}
