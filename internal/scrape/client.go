// Package scrape is a thin client for the scraping collaborator. The
// collaborator is opaque: given {platform, username} targets and a limit it
// returns raw post arrays per platform, or a per-platform error. Mechanics of
// how posts are actually collected live entirely on the other side of the
// HTTP boundary.
package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/voicemirror/go-voice-backend/internal/domain"
	"github.com/voicemirror/go-voice-backend/internal/ingest"
)

const defaultBaseURL = "http://localhost:9102"

// HTTPClient interface for making HTTP requests (allows injection for testing).
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithBaseURL sets a custom base URL (useful for testing).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// Target names one account to scrape.
type Target struct {
	Platform domain.Platform `json:"platform"`
	Username string          `json:"username"`
}

// Result is the outcome for one platform: either raw posts or an error,
// never both.
type Result struct {
	Posts []ingest.RawPost
	Err   error
}

// Client talks to the scraping collaborator.
type Client struct {
	baseURL    string
	httpClient HTTPClient
}

// NewClient creates a scraping client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type scrapeRequest struct {
	Targets []Target `json:"targets"`
	Limit   int      `json:"limit"`
}

type scrapeResponse struct {
	Results map[string]struct {
		Posts []ingest.RawPost `json:"posts"`
		Error string           `json:"error,omitempty"`
	} `json:"results"`
}

// Fetch scrapes every target and returns one Result per requested platform.
// A transport-level failure is fanned out to all requested platforms so the
// caller still gets a complete per-platform map.
func (c *Client) Fetch(ctx context.Context, targets []Target, limit int) map[domain.Platform]Result {
	out := make(map[domain.Platform]Result, len(targets))

	body, err := json.Marshal(scrapeRequest{Targets: targets, Limit: limit})
	if err != nil {
		return fanOutErr(targets, fmt.Errorf("scrape: encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/scrape", bytes.NewReader(body))
	if err != nil {
		return fanOutErr(targets, fmt.Errorf("scrape: build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fanOutErr(targets, fmt.Errorf("scrape: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fanOutErr(targets, fmt.Errorf("scrape: collaborator returned %d: %s", resp.StatusCode, bytes.TrimSpace(b)))
	}

	var decoded scrapeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fanOutErr(targets, fmt.Errorf("scrape: parse response: %w", err))
	}

	for _, t := range targets {
		res, ok := decoded.Results[string(t.Platform)]
		if !ok {
			out[t.Platform] = Result{Err: fmt.Errorf("scrape: no result for %s", t.Platform)}
			continue
		}
		if res.Error != "" {
			out[t.Platform] = Result{Err: fmt.Errorf("scrape: %s: %s", t.Platform, res.Error)}
			continue
		}
		out[t.Platform] = Result{Posts: res.Posts}
	}
	return out
}

func fanOutErr(targets []Target, err error) map[domain.Platform]Result {
	out := make(map[domain.Platform]Result, len(targets))
	for _, t := range targets {
		out[t.Platform] = Result{Err: err}
	}
	return out
}
