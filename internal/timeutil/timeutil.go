// Package timeutil converts between UTC and the fixed display timezone and
// formats timestamps and deltas for output. All display times are Eastern.
package timeutil

import (
	"fmt"
	"time"
)

// DisplayLocation is the fixed local zone used for display timestamps
var DisplayLocation *time.Location

func init() {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		// LoadLocation only fails without tzdata; fall back to a fixed offset
		loc = time.FixedZone("ET", -5*60*60)
	}
	DisplayLocation = loc
}

// ToEastern converts a UTC timestamp to Eastern Time
func ToEastern(utc time.Time) time.Time {
	return utc.In(DisplayLocation)
}

// FormatDisplayTime formats a timestamp like "Feb 5 at 9:32 AM ET"
func FormatDisplayTime(utc time.Time) string {
	if utc.IsZero() {
		return "Unknown"
	}
	et := ToEastern(utc)
	return et.Format("Jan 2 at 3:04 PM") + " ET"
}

// FormatTimeDelta formats a duration in seconds into a human readable string
// like "3h 47m ago" or "2d 5h ago"
func FormatTimeDelta(seconds int64) string {
	if seconds < 0 {
		return "In the future"
	}
	if seconds < 60 {
		return "Just now"
	}

	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	if days > 0 {
		return fmt.Sprintf("%dd %dh ago", days, hours%24)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm ago", hours, minutes%60)
	}
	return fmt.Sprintf("%dm ago", minutes)
}

// ParseTimestamp parses a platform timestamp into UTC. It accepts the classic
// "Wed Oct 10 20:19:24 +0000 2018" format and RFC 3339.
func ParseTimestamp(value string) (time.Time, error) {
	if t, err := time.Parse("Mon Jan 2 15:04:05 -0700 2006", value); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format: %q", value)
}

// Consistent reports whether a UTC/ET timestamp pair denotes the same instant
// within the given tolerance
func Consistent(utc, et time.Time, tolerance time.Duration) bool {
	diff := utc.Sub(et)
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}
