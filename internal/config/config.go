// Package config holds the tunable engine parameters. Thresholds are explicit
// configuration, loaded from the environment with sensible defaults, never
// hard-coded at call sites.
package config

import (
	"os"
	"strconv"
	"time"
)

// EngineConfig holds the matching and scoring parameters for the dedup engine
type EngineConfig struct {
	// Maximum Hamming distance (out of 64 bits) for two perceptual hashes to
	// count as the same media
	HammingThreshold int

	// Minimum ratio of new tokens for a matched post to classify as update
	// rather than near_duplicate
	ContentDeltaThreshold float64

	// EMA smoothing constant for reliability score updates
	SmoothingK float64

	// How far back the perceptual-hash near-match scan looks
	LookbackDays int

	// Time-proximity weighting stops increasing confidence past this cutoff
	TimeProximityCutoff time.Duration

	// Maximum allowed disagreement between a post's UTC and ET timestamps
	TimestampTolerance time.Duration

	// Reports closer together than this may be independent observations and
	// get their confidence reduced
	IndependentWindow time.Duration

	// Defaults for accounts not present in tracked account config
	DefaultTier        string
	DefaultReliability float64

	// Display timezone for local timestamps
	DisplayTimezone string
}

// LoadEngineConfig loads engine configuration from environment variables
func LoadEngineConfig() *EngineConfig {
	return &EngineConfig{
		HammingThreshold:      getEnvInt("HAMMING_THRESHOLD", 10),
		ContentDeltaThreshold: getEnvFloat("CONTENT_DELTA_THRESHOLD", 0.35),
		SmoothingK:            getEnvFloat("RELIABILITY_SMOOTHING_K", 0.1),
		LookbackDays:          getEnvInt("LOOKBACK_DAYS", 7),
		TimeProximityCutoff:   getEnvDuration("TIME_PROXIMITY_CUTOFF", 24*time.Hour),
		TimestampTolerance:    getEnvDuration("TIMESTAMP_TOLERANCE", 2*time.Second),
		IndependentWindow:     getEnvDuration("INDEPENDENT_WINDOW", 5*time.Minute),
		DefaultTier:           GetEnv("DEFAULT_TIER", "3_SECONDARY"),
		DefaultReliability:    getEnvFloat("DEFAULT_RELIABILITY", 0.5),
		DisplayTimezone:       GetEnv("DISPLAY_TIMEZONE", "America/New_York"),
	}
}

// GetEnv returns an environment variable's value, or the default when unset.
// Shared by the other configuration loaders.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
