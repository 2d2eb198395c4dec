package engine

import (
	"errors"
	"testing"
	"time"

	"claimtrace/internal/fingerprint"
	"claimtrace/internal/models"
)

func TestResolveCreatesCanonicalEvent(t *testing.T) {
	db := setupTestDB(t)
	resolver := NewResolver(db, testConfig())

	at := time.Date(2026, 2, 5, 14, 32, 0, 0, time.UTC)
	post, fp := createPost(t, db, "p1", "OSINTdefender", "Explosion reported at the port of Beirut", at)

	res, err := resolver.Resolve(post, fp, nil)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if res.Outcome != OutcomeCreated {
		t.Errorf("Expected outcome created, got %s", res.Outcome)
	}
	if res.Event.EventHash != fp.EventHash {
		t.Errorf("Event hash mismatch: %s != %s", res.Event.EventHash, fp.EventHash)
	}
	if res.Event.FirstPostID != post.ID {
		t.Error("Expected new post to be the first post")
	}
	if res.Event.FirstAuthor != "OSINTdefender" {
		t.Errorf("Expected first author OSINTdefender, got %s", res.Event.FirstAuthor)
	}
	if !res.Event.FirstTimestampUTC.Equal(at) {
		t.Errorf("First timestamp mismatch: %v", res.Event.FirstTimestampUTC)
	}
	if res.Event.VerificationStatus != models.VerificationUnverified {
		t.Errorf("New events start unverified, got %s", res.Event.VerificationStatus)
	}
	if res.Event.RepostCount != 0 {
		t.Errorf("New event should have no reposts, got %d", res.Event.RepostCount)
	}
}

func TestResolveSameFingerprintMatchesOneEvent(t *testing.T) {
	db := setupTestDB(t)
	resolver := NewResolver(db, testConfig())

	at := time.Date(2026, 2, 5, 14, 32, 0, 0, time.UTC)
	first, fp1 := createPost(t, db, "p1", "alpha", "Explosion reported at the port of Beirut", at)
	firstRes, err := resolver.Resolve(first, fp1, nil)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// Different author and punctuation, same claim content
	second, fp2 := createPost(t, db, "p2", "beta", "explosion reported at the port of beirut!!", at.Add(45*time.Minute))
	secondRes, err := resolver.Resolve(second, fp2, nil)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if secondRes.Outcome != OutcomeMatched {
		t.Errorf("Expected outcome matched, got %s", secondRes.Outcome)
	}
	if secondRes.Event.ID != firstRes.Event.ID {
		t.Error("Same fingerprint must resolve to the same canonical event")
	}
	if secondRes.Event.RepostCount != 1 {
		t.Errorf("Expected repost count 1, got %d", secondRes.Event.RepostCount)
	}
	if secondRes.Event.FirstAuthor != "alpha" {
		t.Errorf("First author must not change on a later match, got %s", secondRes.Event.FirstAuthor)
	}

	var count int64
	db.Model(&models.CanonicalEvent{}).Count(&count)
	if count != 1 {
		t.Errorf("Expected exactly one canonical event, got %d", count)
	}
}

func TestResolveEarlierPostTakesOver(t *testing.T) {
	db := setupTestDB(t)
	resolver := NewResolver(db, testConfig())

	at := time.Date(2026, 2, 5, 14, 32, 0, 0, time.UTC)
	late, fpLate := createPost(t, db, "p-late", "amplifier", "Explosion reported at the port of Beirut", at)
	if _, err := resolver.Resolve(late, fpLate, nil); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// Arrives second but was posted 10 minutes earlier
	early, fpEarly := createPost(t, db, "p-early", "original", "Explosion reported at the port of Beirut", at.Add(-10*time.Minute))
	res, err := resolver.Resolve(early, fpEarly, nil)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if res.Outcome != OutcomeReassigned {
		t.Fatalf("Expected outcome reassigned, got %s", res.Outcome)
	}
	if res.Event.FirstPostID != early.ID {
		t.Error("Earlier post should take over as first post")
	}
	if res.Event.FirstAuthor != "original" {
		t.Errorf("Expected first author original, got %s", res.Event.FirstAuthor)
	}
	if !res.Event.FirstTimestampUTC.Equal(early.TimestampUTC) {
		t.Errorf("First timestamp should move to the earlier post, got %v", res.Event.FirstTimestampUTC)
	}
	if res.Event.RepostCount != 1 {
		t.Errorf("Old first post should now count as a repost, got %d", res.Event.RepostCount)
	}

	// The superseded post gets a repost entry with a positive delta
	var superseded models.Repost
	if err := db.Where("post_id = ?", late.ID).First(&superseded).Error; err != nil {
		t.Fatalf("Expected a repost entry for the superseded post: %v", err)
	}
	if superseded.Classification != models.ClassificationSupersededEarlier {
		t.Errorf("Expected superseded_earlier, got %s", superseded.Classification)
	}
	if superseded.TimeDeltaSeconds != 600 {
		t.Errorf("Expected delta 600s, got %d", superseded.TimeDeltaSeconds)
	}
}

func TestResolveUnmatchablePost(t *testing.T) {
	db := setupTestDB(t)
	resolver := NewResolver(db, testConfig())

	post, fp := createPost(t, db, "p1", "alpha", "", time.Now().UTC())

	_, err := resolver.Resolve(post, fp, nil)
	if !errors.Is(err, ErrUnmatchable) {
		t.Fatalf("Expected ErrUnmatchable, got %v", err)
	}

	var count int64
	db.Model(&models.CanonicalEvent{}).Count(&count)
	if count != 0 {
		t.Errorf("Unmatchable posts must not create events, got %d", count)
	}
}

func TestResolveStopWordsOnlyTextWithMediaIsMatchable(t *testing.T) {
	db := setupTestDB(t)
	resolver := NewResolver(db, testConfig())

	post, fp := createPost(t, db, "p1", "alpha", "this is it", time.Now().UTC())
	media := []models.MediaAsset{{PostID: post.ID, PerceptualHash: "8f00ff00aa55cc33"}}

	res, err := resolver.Resolve(post, fp, media)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Outcome != OutcomeCreated {
		t.Errorf("Expected outcome created, got %s", res.Outcome)
	}
}

func TestResolvePerceptualNearMatch(t *testing.T) {
	db := setupTestDB(t)
	resolver := NewResolver(db, testConfig())

	at := time.Now().UTC().Add(-2 * time.Hour)
	first, fp1 := createPost(t, db, "p1", "alpha", "Explosion reported at the port of Beirut", at)
	firstRes, err := resolver.Resolve(first, fp1, nil)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	// The pipeline backfills the fingerprint after resolution
	if err := db.Model(first).UpdateColumn("event_hash", fp1.EventHash).Error; err != nil {
		t.Fatalf("Failed to backfill event hash: %v", err)
	}

	firstAsset := models.MediaAsset{
		PostID:         first.ID,
		MediaURL:       "https://cdn.example.com/a.jpg",
		MediaType:      "photo",
		PerceptualHash: "8f00ff00aa55cc33",
		FirstSeen:      at,
	}
	if err := db.Create(&firstAsset).Error; err != nil {
		t.Fatalf("Failed to create media asset: %v", err)
	}

	// Entirely different wording, nearly identical image (2 bits apart)
	second, fp2 := createPost(t, db, "p2", "beta", "Huge blast seen from the harbor district", at.Add(20*time.Minute))
	secondMedia := []models.MediaAsset{{
		PostID:         second.ID,
		PerceptualHash: "8f00ff00aa55cc30",
	}}

	res, err := resolver.Resolve(second, fp2, secondMedia)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Outcome != OutcomeMatched {
		t.Fatalf("Expected perceptual near-match, got %s", res.Outcome)
	}
	if res.Event.ID != firstRes.Event.ID {
		t.Error("Near-matched media must resolve to the original event")
	}
}

func TestResolvePerceptualMatchRespectsThreshold(t *testing.T) {
	db := setupTestDB(t)
	resolver := NewResolver(db, testConfig())

	at := time.Now().UTC().Add(-2 * time.Hour)
	first, fp1 := createPost(t, db, "p1", "alpha", "Explosion reported at the port of Beirut", at)
	if _, err := resolver.Resolve(first, fp1, nil); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	db.Model(first).UpdateColumn("event_hash", fp1.EventHash)
	db.Create(&models.MediaAsset{PostID: first.ID, PerceptualHash: "0000000000000000", FirstSeen: at})

	// Unrelated image, far beyond the Hamming threshold
	second, fp2 := createPost(t, db, "p2", "beta", "Completely unrelated story about sports", at.Add(time.Hour))
	secondMedia := []models.MediaAsset{{PostID: second.ID, PerceptualHash: "ffffffffffffffff"}}

	res, err := resolver.Resolve(second, fp2, secondMedia)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Outcome != OutcomeCreated {
		t.Errorf("Distant media must not match, got %s", res.Outcome)
	}
}

func TestResolveExistingEventViaDirectInsert(t *testing.T) {
	db := setupTestDB(t)
	resolver := NewResolver(db, testConfig())

	at := time.Date(2026, 2, 5, 14, 32, 0, 0, time.UTC)
	post, fp := createPost(t, db, "p1", "alpha", "Explosion reported at the port of Beirut", at)

	// Simulate a concurrent worker having created the event already
	existing := models.CanonicalEvent{
		EventHash:          fp.EventHash,
		FirstPostID:        post.ID,
		FirstTimestampUTC:  at.Add(-time.Minute),
		FirstTimestampET:   at.Add(-time.Minute),
		FirstAuthor:        "other-worker",
		VerificationStatus: models.VerificationUnverified,
	}
	if err := db.Create(&existing).Error; err != nil {
		t.Fatalf("Failed to create existing event: %v", err)
	}

	res, err := resolver.Resolve(post, fp, nil)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Outcome != OutcomeMatched {
		t.Errorf("Expected outcome matched, got %s", res.Outcome)
	}

	var count int64
	db.Model(&models.CanonicalEvent{}).Count(&count)
	if count != 1 {
		t.Errorf("Expected one canonical event, got %d", count)
	}
}

func TestResolveIsDeterministicAcrossRuns(t *testing.T) {
	text := "BREAKING: Explosion reported at the port of Beirut https://example.com/x @someone"
	fp1 := fingerprint.Compute(text, []string{"Beirut"}, []string{"https://news.example.com/a"})
	fp2 := fingerprint.Compute(text, []string{"beirut"}, []string{"https://news.example.com/a"})

	if fp1.EventHash != fp2.EventHash {
		t.Error("Entity casing must not change the event fingerprint")
	}
}
