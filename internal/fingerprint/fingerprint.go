// Package fingerprint derives the stable content hashes used for event
// deduplication: an exact text hash, a near-duplicate-tolerant event hash and
// perceptual signatures for attached media. Everything here is a pure
// function of its input so re-fingerprinting is always idempotent.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"
)

var (
	urlPattern     = regexp.MustCompile(`https?://\S+|www\.\S+`)
	mentionPattern = regexp.MustCompile(`@\w+`)
	hashtagPattern = regexp.MustCompile(`#(\w+)`)
	punctPattern   = regexp.MustCompile(`[^\w\s]`)
)

// Short function words that carry no claim content. Dropping them keeps the
// event hash stable across rephrasings like "building collapses downtown" vs
// "a building collapse in downtown".
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "being": true, "am": true,
	"in": true, "on": true, "at": true, "to": true, "of": true, "for": true,
	"from": true, "by": true, "with": true, "about": true, "into": true,
	"and": true, "or": true, "but": true, "so": true, "as": true, "if": true,
	"it": true, "its": true, "this": true, "that": true, "these": true,
	"those": true, "there": true, "here": true, "has": true, "have": true,
	"had": true, "will": true, "would": true, "can": true, "could": true,
	"just": true, "now": true, "via": true,
}

// Fingerprint holds all derived identifiers for one post's text
type Fingerprint struct {
	TextNormalized string
	TextHash       string
	EventHash      string
	Tokens         []string
	Hashtags       []string
}

// Normalize prepares text for comparison: URLs and @mentions removed,
// hashtags kept as bare words, lowercased, punctuation stripped, whitespace
// collapsed.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	text = urlPattern.ReplaceAllString(text, "")
	text = mentionPattern.ReplaceAllString(text, "")
	text = hashtagPattern.ReplaceAllString(text, "$1")
	text = strings.ToLower(text)
	text = punctPattern.ReplaceAllString(text, "")

	return strings.Join(strings.Fields(text), " ")
}

// Tokens returns the sorted, deduplicated, stop-word-reduced tokens of
// normalized text. Token order in the source text does not matter.
func Tokens(normalized string) []string {
	seen := make(map[string]bool)
	var tokens []string
	for _, tok := range strings.Fields(normalized) {
		if stopWords[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		tokens = append(tokens, tok)
	}
	sort.Strings(tokens)
	return tokens
}

// ExtractHashtags returns the hashtag words found in raw text
func ExtractHashtags(text string) []string {
	var tags []string
	for _, m := range hashtagPattern.FindAllStringSubmatch(text, -1) {
		tags = append(tags, m[1])
	}
	return tags
}

// Compute builds the full fingerprint for a post. Entity values and canonical
// URLs come from the external extractor; both contribute to the event hash so
// that posts about the same claim converge even when wording differs.
func Compute(text string, entityValues []string, canonicalURLs []string) Fingerprint {
	normalized := Normalize(text)
	tokens := Tokens(normalized)

	entities := make([]string, 0, len(entityValues))
	for _, v := range entityValues {
		entities = append(entities, strings.ToLower(v))
	}
	sort.Strings(entities)

	urls := append([]string(nil), canonicalURLs...)
	sort.Strings(urls)

	var b strings.Builder
	b.WriteString(strings.Join(tokens, " "))
	b.WriteString("|")
	b.WriteString(strings.Join(entities, "|"))
	b.WriteString("|")
	b.WriteString(strings.Join(urls, "|"))

	return Fingerprint{
		TextNormalized: normalized,
		TextHash:       hashString(normalized),
		EventHash:      hashString(b.String()),
		Tokens:         tokens,
		Hashtags:       ExtractHashtags(text),
	}
}

// Matchable reports whether a fingerprint can participate in event matching.
// A post with no usable tokens and no media cannot be matched and is skipped
// by the resolver.
func (f Fingerprint) Matchable(mediaCount int) bool {
	return len(f.Tokens) > 0 || mediaCount > 0
}

func hashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
