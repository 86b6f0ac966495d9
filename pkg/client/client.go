// Package client is the Go client for the PromptVault API. It provides a
// thin HTTP client for the read endpoints and a ListController that manages
// an incrementally loaded, searchable prompt list the way the web frontend
// does: load-more merges by ID, search replaces, stale responses are dropped.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// defaultTimeout bounds each API request when the caller's context carries
// no deadline of its own.
const defaultTimeout = 30 * time.Second

// Prompt mirrors the prompt JSON returned by the API.
type Prompt struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Description *string   `json:"description"`
	Version     string    `json:"version"`
	IsPublic    bool      `json:"isPublic"`
	CreatorID   string    `json:"creatorId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Tags        []TagRef  `json:"tags"`
	Creator     Creator   `json:"creator"`
}

// TagRef is the embedded tag reference on a prompt.
type TagRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Creator is the embedded owner reference on a prompt.
type Creator struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Tag mirrors the tag JSON returned by the catalog endpoint.
type Tag struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	CreatorID string    `json:"creator_id"`
	CreatedAt time.Time `json:"created_at"`
	Creator   Creator   `json:"creator"`
}

// PromptPage is the paginated envelope returned by ListPrompts.
type PromptPage struct {
	Prompts     []Prompt `json:"prompts"`
	HasMore     bool     `json:"hasMore"`
	TotalCount  int      `json:"totalCount"`
	CurrentPage int      `json:"currentPage"`
}

// TagPage is the paginated envelope returned by ListTags.
type TagPage struct {
	Tags        []Tag `json:"tags"`
	HasMore     bool  `json:"hasMore"`
	TotalCount  int   `json:"totalCount"`
	CurrentPage int   `json:"currentPage"`
}

// ListOptions carries the query parameters for the list endpoints. Zero
// values are omitted and the server applies its defaults.
type ListOptions struct {
	Page   int
	Limit  int
	Search string
}

// Client talks to a PromptVault server. The zero value is not usable;
// construct with New.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the server at baseURL (e.g. "https://vault.example.com").
// A nil httpClient uses a default with a 30 second timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// ListPrompts fetches one page of the prompt list.
func (c *Client) ListPrompts(ctx context.Context, opts ListOptions) (*PromptPage, error) {
	var page PromptPage
	if err := c.getJSON(ctx, "/api/prompts", opts, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ListTags fetches one page of the tag catalog.
func (c *Client) ListTags(ctx context.Context, opts ListOptions) (*TagPage, error) {
	var page TagPage
	if err := c.getJSON(ctx, "/api/tags", opts, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// getJSON performs a GET against the given path and decodes the response.
// Any transport or status failure surfaces as a single wrapped error; the
// client never retries on its own.
func (c *Client) getJSON(ctx context.Context, path string, opts ListOptions, out any) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("building request URL: %w", err)
	}

	q := u.Query()
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Search != "" {
		q.Set("search", opts.Search)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching %s: unexpected status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}

	return nil
}
