package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client talks to the upstream post provider's REST API. It backfills recent
// posts for tracked accounts and downloads media bytes for hashing.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

// NewClient creates a new upstream API client
func NewClient(baseURL, authToken string) *Client {
	return &Client{
		baseURL:   baseURL,
		authToken: authToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// maxMediaBytes caps a single media download
const maxMediaBytes = 10 << 20

// RecentPostsResponse is the provider's paginated recent-posts payload
type RecentPostsResponse struct {
	Posts  []StreamPost `json:"posts"`
	Cursor string       `json:"cursor,omitempty"`
}

// FetchRecentPosts returns posts authored by an account since the given time.
// Used by the backfill worker to recover from stream gaps.
func (c *Client) FetchRecentPosts(ctx context.Context, account string, since time.Time) ([]StreamPost, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("no provider API configured")
	}

	endpoint := fmt.Sprintf("%s/v1/accounts/%s/posts?since=%s",
		c.baseURL, url.PathEscape(account), url.QueryEscape(since.UTC().Format(time.RFC3339)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch posts for %s: %w", account, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("provider API returned %d: %s", resp.StatusCode, string(body))
	}

	var payload RecentPostsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode posts response: %w", err)
	}
	return payload.Posts, nil
}

// FetchMedia downloads one media attachment, capped at maxMediaBytes
func (c *Client) FetchMedia(ctx context.Context, mediaURL string) ([]byte, error) {
	if mediaURL == "" {
		return nil, fmt.Errorf("empty media URL")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("media download returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read media body: %w", err)
	}
	return data, nil
}
