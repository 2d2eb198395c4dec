package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"claimtrace/internal/engine"

	"github.com/gorilla/websocket"
	"gorm.io/gorm"
)

// StreamConsumer handles the upstream post firehose connection and feeds
// every received post through the processing pipeline
type StreamConsumer struct {
	db       *gorm.DB
	pipeline *engine.Pipeline
	client   *Client
	dialer   *websocket.Dialer
	url      string
}

// NewStreamConsumer creates a new stream consumer
func NewStreamConsumer(db *gorm.DB, pipeline *engine.Pipeline, client *Client, streamURL string) *StreamConsumer {
	return &StreamConsumer{
		db:       db,
		pipeline: pipeline,
		client:   client,
		dialer:   websocket.DefaultDialer,
		url:      streamURL,
	}
}

// StreamEvent is one envelope from the upstream post stream
type StreamEvent struct {
	Kind   string        `json:"kind"`
	TimeUS int64         `json:"time_us"`
	Post   *StreamPost   `json:"post,omitempty"`
	Delete *StreamDelete `json:"delete,omitempty"`
}

// StreamPost is the post payload inside a stream event
type StreamPost struct {
	PostID          string                  `json:"post_id"`
	Author          string                  `json:"author"`
	Text            string                  `json:"text"`
	CreatedAt       time.Time               `json:"created_at"`
	Langs           []string                `json:"langs,omitempty"`
	QuotedPostID    string                  `json:"quoted_post_id,omitempty"`
	ReplyToPostID   string                  `json:"reply_to_post_id,omitempty"`
	RetweetOfPostID string                  `json:"retweet_of_post_id,omitempty"`
	Media           []StreamMedia           `json:"media,omitempty"`
	Entities        []engine.IncomingEntity `json:"entities,omitempty"`
	URLs            []engine.IncomingURL    `json:"urls,omitempty"`
}

// StreamMedia is one media attachment reference in a stream post
type StreamMedia struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

// StreamDelete is a post deletion notice. Deletions are ignored: the first
// report stands even if its source pulls it.
type StreamDelete struct {
	PostID string `json:"post_id"`
}

// StartConsuming starts consuming the upstream post stream
func (sc *StreamConsumer) StartConsuming(ctx context.Context) error {
	log.Printf("Connecting to post stream: %s", sc.url)

	// Retry logic for connection
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := sc.connectAndConsume(ctx); err != nil {
				log.Printf("Stream connection error: %v. Reconnecting in 10 seconds...", err)

				// Wait before reconnecting
				select {
				case <-time.After(10 * time.Second):
					continue
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}

// connectAndConsume handles a single connection to the stream
func (sc *StreamConsumer) connectAndConsume(ctx context.Context) error {
	conn, _, err := sc.dialer.DialContext(ctx, sc.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to stream: %w", err)
	}
	defer conn.Close()

	log.Println("Successfully connected to post stream")

	// Set up ping/pong handler to keep connection alive
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	// Start ping ticker
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	// Ping goroutine
	go func() {
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					log.Printf("Failed to send ping: %v", err)
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// Message reading loop
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))

			_, message, err := conn.ReadMessage()
			if err != nil {
				return fmt.Errorf("failed to read message: %w", err)
			}

			if err := sc.processStreamMessage(ctx, message); err != nil {
				log.Printf("Error processing stream message: %v", err)
				// Continue processing other messages even if one fails
			}
		}
	}
}

// processStreamMessage processes a single message from the stream
func (sc *StreamConsumer) processStreamMessage(ctx context.Context, data []byte) error {
	var event StreamEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("failed to unmarshal stream event: %w", err)
	}

	// Only post events feed the pipeline
	if event.Kind != "post" || event.Post == nil {
		return nil
	}

	incoming := sc.toIncomingPost(ctx, event.Post)
	result, err := sc.pipeline.ProcessPost(ctx, incoming)
	if err != nil {
		return fmt.Errorf("pipeline failed for post %s: %w", event.Post.PostID, err)
	}

	if result.Outcome == engine.OutcomeCreated {
		log.Printf("New canonical event from @%s: %s", incoming.Author, result.Event.ClaimSummary)
	}
	return nil
}

// toIncomingPost maps a stream post onto the pipeline's input shape. URLs
// embedded in the raw text supplement any explicit URL records, and media
// bytes are fetched so attachments can be perceptually hashed.
func (sc *StreamConsumer) toIncomingPost(ctx context.Context, post *StreamPost) engine.IncomingPost {
	urls := post.URLs
	for _, raw := range extractURLsFromText(post.Text) {
		if containsURL(urls, raw) {
			continue
		}
		urls = append(urls, engine.IncomingURL{
			Original:  raw,
			Expanded:  raw,
			Canonical: raw,
			Domain:    domainOf(raw),
		})
	}

	media := make([]engine.IncomingMedia, 0, len(post.Media))
	for _, m := range post.Media {
		data, err := sc.client.FetchMedia(ctx, m.URL)
		if err != nil {
			log.Printf("Media fetch failed for %s: %v", m.URL, err)
		}
		media = append(media, engine.IncomingMedia{URL: m.URL, Type: m.Type, Data: data})
	}

	language := ""
	if len(post.Langs) > 0 {
		language = post.Langs[0]
	}

	return engine.IncomingPost{
		PostID:          post.PostID,
		Author:          post.Author,
		Text:            post.Text,
		CreatedAt:       post.CreatedAt,
		Language:        language,
		QuotedPostID:    post.QuotedPostID,
		ReplyToPostID:   post.ReplyToPostID,
		RetweetOfPostID: post.RetweetOfPostID,
		Media:           media,
		Entities:        post.Entities,
		URLs:            urls,
	}
}

// extractURLsFromText pulls plain http(s) URLs out of post text
func extractURLsFromText(text string) []string {
	var links []string

	words := strings.Fields(text)
	for _, word := range words {
		// Clean up common trailing punctuation
		word = strings.TrimRight(word, ".,!?;:")

		if strings.HasPrefix(word, "http://") || strings.HasPrefix(word, "https://") {
			// Validate URL
			if _, err := url.Parse(word); err == nil {
				links = append(links, word)
			}
		}
	}

	// Remove duplicates
	uniqueLinks := make([]string, 0, len(links))
	seen := make(map[string]bool)
	for _, link := range links {
		if !seen[link] {
			seen[link] = true
			uniqueLinks = append(uniqueLinks, link)
		}
	}

	return uniqueLinks
}

func containsURL(urls []engine.IncomingURL, raw string) bool {
	for _, u := range urls {
		if u.Original == raw || u.Expanded == raw || u.Canonical == raw {
			return true
		}
	}
	return false
}

func domainOf(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}
