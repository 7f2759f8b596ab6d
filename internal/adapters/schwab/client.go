package schwab

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.schwabapi.com"

	// Schwab allows 120 requests/minute per token; run at half that to
	// leave headroom for other consumers of the same token.
	requestsPerSec = 1

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// Client talks to the Schwab market-data REST API with rate limiting and
// retries. It implements ports.MarketData.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
	limiter *rate.Limiter
}

// NewClient creates a Client. An empty baseURL uses production.
func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		http:    &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		token:   token,
		limiter: rate.NewLimiter(requestsPerSec, 5),
	}
}

// get performs a GET with auth, rate limiting and exponential backoff.
func (c *Client) get(ctx context.Context, url string, out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("schwab: GET %s: %w", url, err)
			}
			c.backoff(ctx, attempt, url, err)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("schwab: read body: %w", readErr)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("schwab: decode %s: %w", url, err)
			}
			return nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			if attempt == maxRetries {
				return fmt.Errorf("schwab: GET %s: status %d: %s", url, resp.StatusCode, truncate(body, 200))
			}
			c.backoff(ctx, attempt, url, fmt.Errorf("status %d", resp.StatusCode))
		default:
			// 4xx other than 429 will not improve on retry.
			return fmt.Errorf("schwab: GET %s: status %d: %s", url, resp.StatusCode, truncate(body, 200))
		}
	}
	return fmt.Errorf("schwab: GET %s: retries exhausted", url)
}

func (c *Client) backoff(ctx context.Context, attempt int, url string, cause error) {
	wait := time.Duration(float64(baseRetryWait) * math.Pow(2, float64(attempt)))
	wait += time.Duration(rand.Int63n(int64(wait / 2)))
	slog.Debug("schwab retrying", "url", url, "attempt", attempt+1, "wait", wait, "cause", cause)
	select {
	case <-ctx.Done():
	case <-time.After(wait):
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
