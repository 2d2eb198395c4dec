package ingest

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"claimtrace/internal/engine"
)

func TestExtractURLsFromText(t *testing.T) {
	text := "Footage here https://example.com/video. Also reported by https://news.example.com/a, https://example.com/video"

	urls := extractURLsFromText(text)
	if len(urls) != 2 {
		t.Fatalf("Expected 2 unique URLs, got %d: %v", len(urls), urls)
	}
	if urls[0] != "https://example.com/video" {
		t.Errorf("Trailing punctuation should be stripped, got %q", urls[0])
	}
}

func TestExtractURLsFromTextWithoutLinks(t *testing.T) {
	if urls := extractURLsFromText("no links in this post at all"); len(urls) != 0 {
		t.Errorf("Expected no URLs, got %v", urls)
	}
}

func TestDomainOf(t *testing.T) {
	if d := domainOf("https://news.example.com/a/b?c=1"); d != "news.example.com" {
		t.Errorf("Expected news.example.com, got %q", d)
	}
}

func TestToIncomingPostMapsFields(t *testing.T) {
	sc := &StreamConsumer{client: NewClient("", "")}

	at := time.Date(2026, 2, 5, 14, 32, 0, 0, time.UTC)
	post := &StreamPost{
		PostID:        "post-1",
		Author:        "alpha",
		Text:          "Explosion reported, footage https://example.com/clip",
		CreatedAt:     at,
		Langs:         []string{"en", "ar"},
		ReplyToPostID: "post-0",
	}

	incoming := sc.toIncomingPost(context.Background(), post)

	if incoming.PostID != "post-1" || incoming.Author != "alpha" {
		t.Errorf("Identity fields not mapped: %+v", incoming)
	}
	if incoming.Language != "en" {
		t.Errorf("Expected first language, got %q", incoming.Language)
	}
	if incoming.ReplyToPostID != "post-0" {
		t.Errorf("Reply reference not mapped, got %q", incoming.ReplyToPostID)
	}
	if len(incoming.URLs) != 1 || incoming.URLs[0].Domain != "example.com" {
		t.Errorf("Text URL should be promoted to a URL record, got %+v", incoming.URLs)
	}
}

func TestToIncomingPostDoesNotDuplicateExplicitURLs(t *testing.T) {
	sc := &StreamConsumer{client: NewClient("", "")}

	post := &StreamPost{
		PostID:    "post-1",
		Author:    "alpha",
		Text:      "Report https://example.com/a",
		CreatedAt: time.Now(),
	}
	post.URLs = append(post.URLs, engine.IncomingURL{
		Original:  "https://example.com/a",
		Expanded:  "https://example.com/a",
		Canonical: "https://example.com/a",
		Domain:    "example.com",
	})

	incoming := sc.toIncomingPost(context.Background(), post)
	if len(incoming.URLs) != 1 {
		t.Errorf("Explicit URL records must not be duplicated, got %+v", incoming.URLs)
	}
}

func TestStreamEventUnmarshal(t *testing.T) {
	payload := `{"kind":"post","time_us":1700000000000,"post":{"post_id":"p1","author":"alpha","text":"hello","created_at":"2026-02-05T14:32:00Z"}}`

	var event StreamEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if event.Kind != "post" || event.Post == nil {
		t.Fatalf("Unexpected event: %+v", event)
	}
	if event.Post.Author != "alpha" {
		t.Errorf("Expected author alpha, got %q", event.Post.Author)
	}
}
