package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercases", "BREAKING News", "breaking news"},
		{"strips urls", "explosion reported https://example.com/a?x=1", "explosion reported"},
		{"strips mentions", "@reporter explosion downtown", "explosion downtown"},
		{"keeps hashtag word", "#Breaking explosion downtown", "breaking explosion downtown"},
		{"strips punctuation", "building collapses, downtown!", "building collapses downtown"},
		{"collapses whitespace", "  two   words  ", "two words"},
		{"empty input", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Normalize(tt.input)
			if result != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestComputeDeterminism(t *testing.T) {
	text := "BREAKING: Building collapses downtown, multiple injuries reported https://example.com/story"
	entities := []string{"Downtown", "Fire Department"}
	urls := []string{"https://example.com/story"}

	a := Compute(text, entities, urls)
	b := Compute(text, entities, urls)

	assert.Equal(t, a.TextHash, b.TextHash, "text hash must be deterministic")
	assert.Equal(t, a.EventHash, b.EventHash, "event hash must be deterministic")
	assert.NotEmpty(t, a.TextHash)
	assert.NotEmpty(t, a.EventHash)
	assert.NotEqual(t, a.TextHash, a.EventHash)
}

func TestEventHashOrderInsensitive(t *testing.T) {
	// Same claim content, different word order and function words
	a := Compute("Building collapses downtown", nil, nil)
	b := Compute("Downtown building collapses", nil, nil)

	assert.Equal(t, a.EventHash, b.EventHash, "token order must not change the event hash")
	assert.NotEqual(t, a.TextHash, b.TextHash, "exact text hash should still differ")
}

func TestEventHashStopWordReduced(t *testing.T) {
	a := Compute("missile strike on the port", nil, nil)
	b := Compute("missile strike at a port", nil, nil)

	assert.Equal(t, a.EventHash, b.EventHash)
}

func TestEventHashDiffersForDifferentClaims(t *testing.T) {
	a := Compute("building collapses downtown", nil, nil)
	b := Compute("wildfire spreads north of the city", nil, nil)

	assert.NotEqual(t, a.EventHash, b.EventHash)
}

func TestEventHashIncludesEntitiesAndURLs(t *testing.T) {
	base := Compute("explosion reported", nil, nil)
	withEntity := Compute("explosion reported", []string{"Tehran"}, nil)
	withURL := Compute("explosion reported", nil, []string{"https://example.com/a"})

	assert.NotEqual(t, base.EventHash, withEntity.EventHash)
	assert.NotEqual(t, base.EventHash, withURL.EventHash)

	// Entity order must not matter
	ab := Compute("explosion reported", []string{"Tehran", "IRGC"}, nil)
	ba := Compute("explosion reported", []string{"IRGC", "Tehran"}, nil)
	assert.Equal(t, ab.EventHash, ba.EventHash)
}

func TestMatchable(t *testing.T) {
	t.Run("text only", func(t *testing.T) {
		fp := Compute("building collapses", nil, nil)
		assert.True(t, fp.Matchable(0))
	})

	t.Run("media only", func(t *testing.T) {
		fp := Compute("", nil, nil)
		assert.True(t, fp.Matchable(1))
	})

	t.Run("nothing usable", func(t *testing.T) {
		// Only stop words and a mention survive nothing
		fp := Compute("@someone is the", nil, nil)
		assert.False(t, fp.Matchable(0))
	})
}

func TestExtractHashtags(t *testing.T) {
	tags := ExtractHashtags("#Breaking news from #Tehran")
	assert.Equal(t, []string{"Breaking", "Tehran"}, tags)
	assert.Empty(t, ExtractHashtags("no tags here"))
}
