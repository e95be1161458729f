package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/brieflyhq/briefly/pkg/models"
)

// Depth values accepted by the Tavily API.
const (
	DepthBasic    = "basic"
	DepthAdvanced = "advanced"
)

// Client calls the Tavily search and extract endpoints.
type Client struct {
	apiKey         string
	baseURL        string
	depth          string
	maxResults     int
	excludeDomains []string
	client         *http.Client
	limiter        *RateLimiter
	pageFallback   bool
}

// ClientOption configures the Tavily client.
type ClientOption func(*Client)

// WithBaseURL overrides the API base URL (used in tests).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithDepth sets the search depth ("basic" or "advanced").
func WithDepth(depth string) ClientOption {
	return func(c *Client) { c.depth = depth }
}

// WithMaxResults caps how many results a search returns.
func WithMaxResults(n int) ClientOption {
	return func(c *Client) { c.maxResults = n }
}

// WithExcludeDomains sets domains the API should skip.
func WithExcludeDomains(domains []string) ClientOption {
	return func(c *Client) { c.excludeDomains = domains }
}

// WithHTTPClient sets a custom HTTP client (controls the per-call timeout).
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) { c.client = client }
}

// WithPageFallback enables fetching the page directly when the extract
// endpoint fails.
func WithPageFallback(enabled bool) ClientOption {
	return func(c *Client) { c.pageFallback = enabled }
}

// NewClient creates a Tavily API client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:         apiKey,
		baseURL:        "https://api.tavily.com",
		depth:          DepthAdvanced,
		maxResults:     5,
		excludeDomains: []string{"youtube.com"},
		client:         &http.Client{Timeout: 30 * time.Second},
		limiter:        NewRateLimiter(2, time.Second), // conservative: 2 req/s
		pageFallback:   true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ── Wire types ──

type searchRequest struct {
	Query          string   `json:"query"`
	SearchDepth    string   `json:"search_depth,omitempty"`
	Topic          string   `json:"topic,omitempty"`
	TimeRange      string   `json:"time_range,omitempty"`
	MaxResults     int      `json:"max_results,omitempty"`
	ExcludeDomains []string `json:"exclude_domains,omitempty"`
}

type searchResponse struct {
	Query   string `json:"query"`
	Results []struct {
		Title         string  `json:"title"`
		URL           string  `json:"url"`
		Content       string  `json:"content"`
		Score         float64 `json:"score"`
		PublishedDate string  `json:"published_date"`
	} `json:"results"`
}

type extractRequest struct {
	URLs         []string `json:"urls"`
	ExtractDepth string   `json:"extract_depth,omitempty"`
	Format       string   `json:"format,omitempty"`
}

type extractResponse struct {
	Results []struct {
		URL        string `json:"url"`
		RawContent string `json:"raw_content"`
	} `json:"results"`
	FailedResults []struct {
		URL   string `json:"url"`
		Error string `json:"error"`
	} `json:"failed_results"`
}

// Search runs a ranked web search scoped to the given time window.
// Zero results yields an empty slice and a nil error; transport and API
// failures wrap ErrSearchUnavailable.
func (c *Client) Search(ctx context.Context, query string, window models.TimeWindow) ([]models.SearchResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req := searchRequest{
		Query:          query,
		SearchDepth:    c.depth,
		TimeRange:      string(window),
		MaxResults:     c.maxResults,
		ExcludeDomains: c.excludeDomains,
	}

	var resp searchResponse
	if err := c.post(ctx, "/search", req, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}

	results := make([]models.SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		sr := models.SearchResult{
			URL:            r.URL,
			Title:          r.Title,
			Snippet:        r.Content,
			RelevanceScore: r.Score,
		}
		if t, err := time.Parse("2006-01-02", r.PublishedDate); err == nil {
			sr.PublishedAt = t
		}
		results = append(results, sr)
	}
	return results, nil
}

// Extract fetches the full article text for a URL. When the extract
// endpoint fails and page fallback is enabled, the page itself is fetched
// and stripped to text. All failure paths wrap ErrExtractionFailed.
func (c *Client) Extract(ctx context.Context, url string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req := extractRequest{
		URLs:         []string{url},
		ExtractDepth: DepthAdvanced,
		Format:       "text",
	}

	var resp extractResponse
	err := c.post(ctx, "/extract", req, &resp)
	if err == nil {
		for _, r := range resp.Results {
			if r.RawContent != "" {
				return r.RawContent, nil
			}
		}
		err = fmt.Errorf("no content extracted")
	}

	if c.pageFallback {
		if text, ferr := c.extractPage(ctx, url); ferr == nil {
			return text, nil
		}
	}
	return "", fmt.Errorf("%w: %s: %v", ErrExtractionFailed, url, err)
}

// post sends a JSON request to a Tavily endpoint and decodes the response.
func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("tavily api error (status %d): %s", res.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
