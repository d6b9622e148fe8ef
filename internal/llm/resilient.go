package llm

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/crediscan/crediscan/internal/resilient"
)

// RetryPolicy configures the retry behavior of a RetryingClient.
type RetryPolicy struct {
	MaxAttempts  int
	CallDeadline time.Duration
}

// RetryingClient wraps a Client with the shared resilient-call policy.
// Transient vendor failures (rate limits, 5xx, network) are retried with
// backoff; auth and quota failures are not. All attempts of one call share
// one deadline.
type RetryingClient struct {
	inner  Client
	policy resilient.Policy
}

// NewRetryingClient wraps inner with retries. logger may be nil.
func NewRetryingClient(inner Client, policy RetryPolicy, logger *zap.Logger) *RetryingClient {
	return &RetryingClient{
		inner: inner,
		policy: resilient.Policy{
			MaxAttempts:  policy.MaxAttempts,
			CallDeadline: policy.CallDeadline,
			Logger:       logger,
		},
	}
}

// GenerateContent generates text with retries.
func (c *RetryingClient) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return resilient.Do(ctx, c.policy, "llm.generate", func(ctx context.Context) (string, error) {
		return c.inner.GenerateContent(ctx, prompt, tier)
	})
}

// GenerateJSON generates JSON with retries.
func (c *RetryingClient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return resilient.Do(ctx, c.policy, "llm.generate_json", func(ctx context.Context) (string, error) {
		return c.inner.GenerateJSON(ctx, prompt, tier)
	})
}

// Close closes the wrapped client.
func (c *RetryingClient) Close() error {
	return c.inner.Close()
}
