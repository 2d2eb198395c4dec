package engine

import "errors"

var (
	// ErrUnmatchable means a post yields no usable text or media fingerprint.
	// The post is still stored; only event matching is skipped.
	ErrUnmatchable = errors.New("post has no usable text or media fingerprint")

	// ErrInconsistentTimestamp means a post's UTC and local timestamps
	// disagree beyond tolerance. The post is stored and flagged for review.
	ErrInconsistentTimestamp = errors.New("utc and local timestamps disagree beyond tolerance")
)
