package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatTimeDelta(t *testing.T) {
	tests := []struct {
		name     string
		seconds  int64
		expected string
	}{
		{"negative delta", -30, "In the future"},
		{"just now", 45, "Just now"},
		{"minutes only", 420, "7m ago"},
		{"hours and minutes", 3*3600 + 47*60, "3h 47m ago"},
		{"days and hours", 2*86400 + 5*3600, "2d 5h ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatTimeDelta(tt.seconds)
			if result != tt.expected {
				t.Errorf("Expected %q, got %q for %d seconds", tt.expected, result, tt.seconds)
			}
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Run("classic platform format", func(t *testing.T) {
		parsed, err := ParseTimestamp("Wed Oct 10 20:19:24 +0000 2018")
		assert.NoError(t, err)
		assert.Equal(t, time.Date(2018, 10, 10, 20, 19, 24, 0, time.UTC), parsed)
	})

	t.Run("RFC 3339", func(t *testing.T) {
		parsed, err := ParseTimestamp("2024-02-05T14:32:00Z")
		assert.NoError(t, err)
		assert.Equal(t, time.Date(2024, 2, 5, 14, 32, 0, 0, time.UTC), parsed)
	})

	t.Run("garbage input", func(t *testing.T) {
		_, err := ParseTimestamp("not a timestamp")
		assert.Error(t, err)
	})
}

func TestToEastern(t *testing.T) {
	// 14:32 UTC in February is 9:32 AM Eastern (EST, UTC-5)
	utc := time.Date(2024, 2, 5, 14, 32, 0, 0, time.UTC)
	et := ToEastern(utc)
	assert.Equal(t, 9, et.Hour())
	assert.Equal(t, 32, et.Minute())
	assert.True(t, utc.Equal(et), "conversion must preserve the instant")
}

func TestFormatDisplayTime(t *testing.T) {
	utc := time.Date(2024, 2, 5, 14, 32, 0, 0, time.UTC)
	assert.Equal(t, "Feb 5 at 9:32 AM ET", FormatDisplayTime(utc))
	assert.Equal(t, "Unknown", FormatDisplayTime(time.Time{}))
}

func TestConsistent(t *testing.T) {
	utc := time.Date(2024, 2, 5, 14, 32, 0, 0, time.UTC)

	assert.True(t, Consistent(utc, ToEastern(utc), 2*time.Second))
	assert.True(t, Consistent(utc, utc.Add(time.Second), 2*time.Second))
	assert.False(t, Consistent(utc, utc.Add(time.Hour), 2*time.Second))
}
