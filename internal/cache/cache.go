// Package cache stores generated newsletters keyed by (profession, window)
// with a window-dependent TTL. The cache is advisory: callers treat any
// backend error as a miss and never fail the newsletter flow on it.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/brieflyhq/briefly/pkg/models"
)

// ErrMiss is returned by Get when no live entry exists for the key.
var ErrMiss = errors.New("cache: miss")

// Stats reports cache backend health and occupancy.
type Stats struct {
	Backend     string `json:"backend"`
	Connected   bool   `json:"connected"`
	Newsletters int64  `json:"newsletters"`
}

// Store is the newsletter cache contract. Implementations must honor the
// per-window TTL from models.TimeWindow.TTL and treat keys as opaque.
type Store interface {
	// Get returns the cached newsletter, or ErrMiss.
	Get(ctx context.Context, profession string, window models.TimeWindow) (*models.Newsletter, error)

	// Put stores the newsletter under its (profession, window) key with the
	// window's TTL, overwriting any existing entry.
	Put(ctx context.Context, n *models.Newsletter) error

	// Delete removes the entry for the key, if any.
	Delete(ctx context.Context, profession string, window models.TimeWindow) error

	// Ping checks backend reachability.
	Ping(ctx context.Context) error

	// Stats reports backend health and the number of cached newsletters.
	Stats(ctx context.Context) Stats
}

const keyPrefix = "newsletter_"

// Key builds the cache key for a (profession, window) pair.
func Key(profession string, window models.TimeWindow) string {
	return fmt.Sprintf("%s%s_%s", keyPrefix, strings.ToLower(profession), window)
}
