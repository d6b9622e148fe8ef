// Package aggregate implements the aggregation stage: querying a third-party
// research aggregation service with a fixed-order token list and merging its
// answers into the analysis report without overriding analysis content.
package aggregate

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/crediscan/crediscan/internal/faults"
	"github.com/crediscan/crediscan/internal/resilient"
)

// Service is the call contract against the aggregation provider. One call
// carries one bearer token; token rotation is the stage's concern.
type Service interface {
	Query(ctx context.Context, token, prompt string) (string, error)
}

// HTTPService talks to a chat-completions style aggregation endpoint.
type HTTPService struct {
	baseURL string
	model   string
	client  *http.Client
	policy  resilient.Policy
	logger  *zap.Logger
}

// ServiceOption configures an HTTPService.
type ServiceOption func(*HTTPService)

// WithModel overrides the provider model name.
func WithModel(model string) ServiceOption {
	return func(s *HTTPService) { s.model = model }
}

// WithPolicy overrides the retry policy.
func WithPolicy(policy resilient.Policy) ServiceOption {
	return func(s *HTTPService) { s.policy = policy }
}

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) ServiceOption {
	return func(s *HTTPService) { s.logger = logger }
}

// NewHTTPService builds a service client for the given endpoint URL.
func NewHTTPService(baseURL string, opts ...ServiceOption) (*HTTPService, error) {
	if baseURL == "" {
		return nil, faults.Configuration("aggregate.service", "endpoint URL is required")
	}
	s := &HTTPService{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   "deep-research",
		client:  &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger != nil {
		s.policy.Logger = s.logger
	}
	return s, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Query sends one prompt under one bearer token and returns the raw answer
// content. Transient provider errors are retried under the service policy;
// auth failures are permanent so the stage can move on to the next token.
func (s *HTTPService) Query(ctx context.Context, token, prompt string) (string, error) {
	return resilient.Do(ctx, s.policy, "aggregate.query", func(ctx context.Context) (string, error) {
		return s.queryOnce(ctx, token, prompt)
	})
}

func (s *HTTPService) queryOnce(ctx context.Context, token, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:    s.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", faults.Permanent("aggregate.query", "request encoding failed", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", faults.Permanent("aggregate.query", "request build failed", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", faults.Transient("aggregate.query", "provider unreachable", err)
	}
	defer resp.Body.Close()

	if f := faults.FromStatusCode("aggregate.query", resp.StatusCode); f != nil {
		io.Copy(io.Discard, resp.Body)
		return "", f
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", faults.Transient("aggregate.query", "response decoding failed", err)
	}
	if len(parsed.Choices) == 0 {
		return "", faults.Transient("aggregate.query", "provider returned no choices", nil)
	}
	return parsed.Choices[0].Message.Content, nil
}

// Watermark noise the provider appends to answers.
var (
	markdownLink = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	citationRef  = regexp.MustCompile(`\[\d+\]`)
)

// promoMarkers identify whole lines of provider self-promotion to drop.
var promoMarkers = []string{
	"metaso.cn",
	"powered by",
	"generated by",
}

// CleanContent strips provider watermark links and promo lines from answer
// content, keeping link anchor text.
func CleanContent(content string) string {
	content = markdownLink.ReplaceAllString(content, "$1")
	content = citationRef.ReplaceAllString(content, "")

	lines := strings.Split(content, "\n")
	kept := lines[:0]
	for _, line := range lines {
		lower := strings.ToLower(line)
		drop := false
		for _, marker := range promoMarkers {
			if strings.Contains(lower, marker) {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, line)
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
