// Package graphapi wraps the third-party metadata-graph query API behind
// a shared rate budget, bounded retries and structured errors.
package graphapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 5 * time.Second
	// The upstream allows 100 calls per minute.
	defaultRate  = rate.Limit(100.0 / 60.0)
	defaultBurst = 5
)

// Client talks to the metadata-graph GraphQL endpoint. The limiter is a
// single token bucket shared by every caller of this client, so workers
// draw from one rate budget.
type Client struct {
	baseURL     string
	clientID    string
	apiKey      string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	baseDelay   time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

func WithRetry(attempts int, baseDelay time.Duration) Option {
	return func(c *Client) {
		c.maxAttempts = attempts
		c.baseDelay = baseDelay
	}
}

func NewClient(baseURL, clientID, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:     baseURL,
		clientID:    clientID,
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		limiter:     rate.NewLimiter(defaultRate, defaultBurst),
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type graphResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// execute runs one query with up to maxAttempts tries and linearly
// increasing delay between them. 429 responses and network errors retry
// on the same budget; any other failure is returned to the caller
// immediately.
func (c *Client) execute(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	var lastKind ErrorKind
	var lastDetail string

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		body, err := json.Marshal(map[string]any{"query": query, "variables": variables})
		if err != nil {
			return nil, fmt.Errorf("marshal query: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Client-ID", c.clientID)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastKind, lastDetail = KindNetwork, err.Error()
			log.Printf("graph api: network error on attempt %d/%d: %v", attempt, c.maxAttempts, err)
			if waitErr := c.backoff(ctx, attempt); waitErr != nil {
				return nil, waitErr
			}
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			lastKind, lastDetail = KindRateLimited, string(respBody)
			log.Printf("graph api: rate limited, waiting before attempt %d/%d", attempt+1, c.maxAttempts)
			if waitErr := c.backoff(ctx, attempt); waitErr != nil {
				return nil, waitErr
			}
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, newAPIError(KindHTTP, "query failed", resp.StatusCode, string(respBody), query)
		}
		if readErr != nil {
			return nil, newAPIError(KindNetwork, "read response", resp.StatusCode, readErr.Error(), query)
		}

		var parsed graphResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return nil, newAPIError(KindDecode, "invalid JSON response", resp.StatusCode, string(respBody), query)
		}
		if len(parsed.Errors) > 0 {
			msgs := make([]string, 0, len(parsed.Errors))
			for _, e := range parsed.Errors {
				msgs = append(msgs, e.Message)
			}
			return nil, newAPIError(KindRemote, "query returned errors", resp.StatusCode, strings.Join(msgs, "; "), query)
		}
		return parsed.Data, nil
	}

	return nil, newAPIError(lastKind,
		fmt.Sprintf("giving up after %d attempts", c.maxAttempts), 0, lastDetail, query)
}

// backoff sleeps attempt*baseDelay, honoring cancellation.
func (c *Client) backoff(ctx context.Context, attempt int) error {
	delay := time.Duration(attempt) * c.baseDelay
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
