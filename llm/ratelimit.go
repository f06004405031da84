package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedClient wraps a Client with a token-bucket limiter so callers
// can bound request rate to a provider without threading limiter state
// through every adapter. One call consumes one token; Call blocks until a
// token is available or ctx is cancelled.
type RateLimitedClient struct {
	client  Client
	limiter *rate.Limiter
}

// NewRateLimitedClient wraps client with a limiter allowing at most rps
// requests per second, with burst allowed immediately.
func NewRateLimitedClient(client Client, rps float64, burst int) *RateLimitedClient {
	return &RateLimitedClient{client: client, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (c *RateLimitedClient) Call(ctx context.Context, req Request) (Stream, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("llm: rate limit wait: %w", err)
	}
	return c.client.Call(ctx, req)
}

var _ Client = (*RateLimitedClient)(nil)
