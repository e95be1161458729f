// Package search wraps the Tavily web search/extract API, plus a curated
// RSS fallback source for when the search API is unreachable.
package search

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/brieflyhq/briefly/pkg/models"
)

// Conditions a caller can test with errors.Is.
var (
	// ErrSearchUnavailable marks network or API failure of the search
	// endpoint. Zero results is NOT an error.
	ErrSearchUnavailable = errors.New("search: unavailable")

	// ErrExtractionFailed marks a failed full-text extraction for a URL.
	ErrExtractionFailed = errors.New("search: extraction failed")
)

// Source is anything that can run a ranked web search and extract full
// article text. The orchestrator and deep-dive depend on this, tests
// substitute stubs.
type Source interface {
	Search(ctx context.Context, query string, window models.TimeWindow) ([]models.SearchResult, error)
	Extract(ctx context.Context, url string) (string, error)
}

// --- Rate limiter ---

// RateLimiter provides simple token-bucket rate limiting for outbound
// API calls.
type RateLimiter struct {
	mu         sync.Mutex
	tokens     int
	maxTokens  int
	refillRate time.Duration
	lastRefill time.Time
}

// NewRateLimiter creates a rate limiter that allows maxTokens requests
// per refillRate duration.
func NewRateLimiter(maxTokens int, refillRate time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Wait blocks until a token is available or context is cancelled.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		rl.mu.Lock()
		rl.refill()
		if rl.tokens > 0 {
			rl.tokens--
			rl.mu.Unlock()
			return nil
		}
		rl.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
			// Check again after a short sleep.
		}
	}
}

// refill adds tokens based on elapsed time. Must be called with mu held.
func (rl *RateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(rl.lastRefill)
	if elapsed >= rl.refillRate {
		periods := int(elapsed / rl.refillRate)
		rl.tokens += periods
		if rl.tokens > rl.maxTokens {
			rl.tokens = rl.maxTokens
		}
		rl.lastRefill = rl.lastRefill.Add(time.Duration(periods) * rl.refillRate)
	}
}
