// Package search provides the web-search client adapter. It wraps a
// Serper-style JSON search API, normalizing results into (title, snippet,
// url) triples and applying the shared resilient-call policy.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/crediscan/crediscan/internal/faults"
	"github.com/crediscan/crediscan/internal/resilient"
)

// DefaultBaseURL is the production search API endpoint.
const DefaultBaseURL = "https://google.serper.dev/search"

// Result is one normalized search hit.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// Client is the search call contract used by the discovery stage.
type Client interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// HTTPClient implements Client against the search API.
type HTTPClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	policy  resilient.Policy
	logger  *zap.Logger
}

// Option customizes an HTTPClient.
type Option func(*HTTPClient)

// WithBaseURL overrides the API endpoint. Used by tests.
func WithBaseURL(url string) Option {
	return func(c *HTTPClient) { c.baseURL = url }
}

// WithPolicy overrides the retry policy.
func WithPolicy(policy resilient.Policy) Option {
	return func(c *HTTPClient) { c.policy = policy }
}

// WithLogger sets the logger for retry warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(c *HTTPClient) { c.logger = logger }
}

// NewHTTPClient creates a search client. The API key must be non-empty.
func NewHTTPClient(apiKey string, opts ...Option) (*HTTPClient, error) {
	if apiKey == "" {
		return nil, faults.Configuration("search", "API key is required")
	}

	c := &HTTPClient{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger != nil {
		c.policy.Logger = c.logger
	}
	return c, nil
}

// searchRequest is the API request body.
type searchRequest struct {
	Query string `json:"q"`
}

// searchResponse is the subset of the API response we consume.
type searchResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
	} `json:"organic"`
}

// Search issues one logical search with bounded retries. Rate limits and
// server errors are retried; bad requests and auth failures are not.
func (c *HTTPClient) Search(ctx context.Context, query string) ([]Result, error) {
	return resilient.Do(ctx, c.policy, "search.query", func(ctx context.Context) ([]Result, error) {
		return c.searchOnce(ctx, query)
	})
}

func (c *HTTPClient) searchOnce(ctx context.Context, query string) ([]Result, error) {
	body, err := json.Marshal(searchRequest{Query: query})
	if err != nil {
		return nil, faults.Permanent("search.query", "failed to encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, faults.Permanent("search.query", "failed to create request", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, faults.Transient("search.query", "request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if f := faults.FromStatusCode("search.query", resp.StatusCode); f != nil {
		return nil, f
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, faults.Transient("search.query", "failed to read response", err)
	}

	var parsed searchResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, faults.Permanent("search.query", "failed to decode response", err)
	}

	results := make([]Result, 0, len(parsed.Organic))
	for _, item := range parsed.Organic {
		if item.Link == "" {
			continue
		}
		results = append(results, Result{
			Title:   item.Title,
			Snippet: item.Snippet,
			URL:     item.Link,
		})
	}
	return results, nil
}

// JobPageQueries returns the search queries used to find job-listing pages
// for a company.
func JobPageQueries(company, domain string) []string {
	queries := []string{
		fmt.Sprintf("%s careers open positions", company),
		fmt.Sprintf("%s jobs", company),
	}
	if domain != "" {
		queries = append(queries, fmt.Sprintf("site:%s careers", domain))
	}
	return queries
}
