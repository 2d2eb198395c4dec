package engine

import (
	"fmt"
	"strings"
	"time"

	"claimtrace/internal/config"
	"claimtrace/internal/fingerprint"
	"claimtrace/internal/models"

	"gorm.io/gorm"
)

// Phrases that signal a post is walking back or contradicting an earlier
// claim rather than repeating it
var correctionMarkers = []string{
	"not true",
	"untrue",
	"false",
	"fake",
	"incorrect",
	"no evidence",
	"debunked",
	"denies",
	"denied",
	"retract",
	"retraction",
	"correction",
	"deleting my earlier",
	"i was wrong",
}

// Classification is the classifier's verdict for a post matched to a
// canonical event
type Classification struct {
	Label          string
	Confidence     float64 // 0-100
	AddedNewInfo   bool
	NewInfoSummary string
}

// Classifier labels the relationship between a matched post and its canonical
// event. Classification is a pure function of the post, the event's first
// post and the account's reliability snapshot; re-running it always yields
// the same verdict.
type Classifier struct {
	cfg *config.EngineConfig
}

// NewClassifier creates a new repost classifier
func NewClassifier(cfg *config.EngineConfig) *Classifier {
	return &Classifier{cfg: cfg}
}

// Classify assigns a label and confidence to a post already matched to event.
// first is the event's current first post.
func (c *Classifier) Classify(post *models.Post, fp fingerprint.Fingerprint, event *models.CanonicalEvent, first *models.Post) Classification {
	normalizedFirst := first.TextNormalized
	if normalizedFirst == "" {
		normalizedFirst = fingerprint.Normalize(first.Text)
	}
	firstTokens := fingerprint.Tokens(normalizedFirst)

	newTokens := tokenDelta(fp.Tokens, firstTokens)
	delta := 0.0
	if len(firstTokens) > 0 {
		delta = float64(len(newTokens)) / float64(len(firstTokens))
	} else if len(newTokens) > 0 {
		delta = 1.0
	}

	var label string
	switch {
	case hasCorrectionMarker(fp.TextNormalized):
		label = models.ClassificationCorrection
	case post.TextHash != "" && post.TextHash == first.TextHash:
		label = models.ClassificationExactRepost
	case delta > c.cfg.ContentDeltaThreshold:
		label = models.ClassificationUpdate
	default:
		label = models.ClassificationNearDuplicate
	}

	cls := Classification{
		Label:      label,
		Confidence: c.confidence(post, fp, event, label),
	}

	if label == models.ClassificationUpdate || label == models.ClassificationCorrection {
		cls.AddedNewInfo = true
		cls.NewInfoSummary = summarizeNewInfo(newTokens)
	}

	return cls
}

// confidence combines fingerprint match strength, time proximity to the
// first report and the posting account's reliability into a 0-100 score
func (c *Classifier) confidence(post *models.Post, fp fingerprint.Fingerprint, event *models.CanonicalEvent, label string) float64 {
	// Match strength: exact text > same event hash > cross-modal media match
	strength := 70.0
	switch {
	case label == models.ClassificationExactRepost:
		strength = 100.0
	case fp.EventHash == event.EventHash:
		strength = 85.0
	}

	// Time proximity: closer to the first report means more confident this
	// is a repost of it, with diminishing weight past the cutoff
	delta := post.TimestampUTC.Sub(event.FirstTimestampUTC)
	if delta < 0 {
		delta = -delta
	}
	proximity := 1.0 - float64(delta)/float64(c.cfg.TimeProximityCutoff)
	if proximity < 0 {
		proximity = 0
	}

	score := strength*0.60 + proximity*100*0.25 + post.AuthorReliability*100*0.15

	// Reports nearly simultaneous with the first one may be independent
	// observations rather than reposts
	if delta < c.cfg.IndependentWindow {
		score *= 0.85
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

// CorrectionStatus decides the event's verification status after a correction
// arrives. The default outcome is disputed; an event already confirmed by a
// higher-tier first author gets a majority tier-weighted vote instead, with
// ties going to disputed.
func (c *Classifier) CorrectionStatus(db *gorm.DB, event *models.CanonicalEvent, correcting *models.Post) (string, error) {
	if event.VerificationStatus != models.VerificationConfirmed {
		return models.VerificationDisputed, nil
	}
	if models.TierPriority(correcting.AuthorTier) <= models.TierPriority(firstAuthorTier(db, event)) {
		// Correcting account is at least as authoritative as the confirmer
		return models.VerificationDisputed, nil
	}

	confirmVotes := tierWeight(firstAuthorTier(db, event))
	disputeVotes := tierWeight(correcting.AuthorTier)

	var reposts []models.Repost
	if err := db.Where("canonical_event_id = ?", event.ID).Find(&reposts).Error; err != nil {
		return "", fmt.Errorf("repost vote scan failed: %w", err)
	}
	for _, rp := range reposts {
		var voter models.Post
		if err := db.Where("id = ?", rp.PostID).First(&voter).Error; err != nil {
			continue
		}
		if rp.Classification == models.ClassificationCorrection {
			disputeVotes += tierWeight(voter.AuthorTier)
		} else {
			confirmVotes += tierWeight(voter.AuthorTier)
		}
	}

	if confirmVotes > disputeVotes {
		return models.VerificationConfirmed, nil
	}
	return models.VerificationDisputed, nil
}

func firstAuthorTier(db *gorm.DB, event *models.CanonicalEvent) string {
	var first models.Post
	if err := db.Where("id = ?", event.FirstPostID).First(&first).Error; err != nil {
		return ""
	}
	return first.AuthorTier
}

// tierWeight converts tier priority into a vote weight (higher tier, heavier
// vote)
func tierWeight(tier string) int {
	p := models.TierPriority(tier)
	if p > 6 {
		p = 6
	}
	return 6 - p
}

func hasCorrectionMarker(normalized string) bool {
	for _, marker := range correctionMarkers {
		if strings.Contains(normalized, marker) {
			return true
		}
	}
	return false
}

// tokenDelta returns tokens present in new but absent from old
func tokenDelta(newTokens, oldTokens []string) []string {
	old := make(map[string]bool, len(oldTokens))
	for _, t := range oldTokens {
		old[t] = true
	}
	var added []string
	for _, t := range newTokens {
		if !old[t] {
			added = append(added, t)
		}
	}
	return added
}

func summarizeNewInfo(newTokens []string) string {
	if len(newTokens) == 0 {
		return ""
	}
	if len(newTokens) > 8 {
		newTokens = newTokens[:8]
	}
	return "adds: " + strings.Join(newTokens, " ")
}

// timeDelta is the signed offset of a post from the event's first-seen time
func timeDelta(post *models.Post, event *models.CanonicalEvent) time.Duration {
	return post.TimestampUTC.Sub(event.FirstTimestampUTC)
}
