// Package models defines the shared data types for briefly:
// search results, newsletter points, newsletters, and deep-dives.
package models

import (
	"fmt"
	"time"
)

// TimeWindow is the lookback range for a newsletter.
type TimeWindow string

const (
	WindowDay   TimeWindow = "day"
	WindowWeek  TimeWindow = "week"
	WindowMonth TimeWindow = "month"
)

// ParseTimeWindow validates a raw window string.
func ParseTimeWindow(s string) (TimeWindow, error) {
	switch TimeWindow(s) {
	case WindowDay, WindowWeek, WindowMonth:
		return TimeWindow(s), nil
	}
	return "", fmt.Errorf("invalid time window %q (want day, week, or month)", s)
}

// TTL returns how long a cached newsletter for this window stays valid:
// day → 8h, week → 48h, month → 168h.
func (w TimeWindow) TTL() time.Duration {
	switch w {
	case WindowWeek:
		return 48 * time.Hour
	case WindowMonth:
		return 168 * time.Hour
	default:
		return 8 * time.Hour
	}
}

// Label returns a human-readable description of the window.
func (w TimeWindow) Label() string {
	switch w {
	case WindowWeek:
		return "last 7 days"
	case WindowMonth:
		return "last 30 days"
	default:
		return "last 24 hours"
	}
}

// Category distinguishes the two newsletter branches.
type Category string

const (
	CategoryNews  Category = "news"
	CategoryTools Category = "tools"
)

// SearchResult is a single ranked result from the search API.
// Immutable; discarded after filtering and summarization.
type SearchResult struct {
	URL            string    `json:"url"`
	Title          string    `json:"title"`
	Snippet        string    `json:"snippet"`
	RelevanceScore float64   `json:"relevance_score"` // 0.0 – 1.0
	PublishedAt    time.Time `json:"published_at,omitempty"`
}

// NewsletterPoint is one curated highlight in a newsletter.
type NewsletterPoint struct {
	Rank      int      `json:"rank"` // 1..MaxPoints within the final newsletter
	Summary   string   `json:"summary"`
	SourceURL string   `json:"source_url"`
	Category  Category `json:"category"`
	Relevance float64  `json:"relevance"` // carried from the source result for merge ordering
}

// MaxPoints caps how many points a newsletter may contain.
const MaxPoints = 5

// Newsletter is the cached unit of output: up to MaxPoints deduplicated
// highlights for one (profession, window) pair.
type Newsletter struct {
	Profession string            `json:"profession"` // normalized
	Window     TimeWindow        `json:"window"`
	Points     []NewsletterPoint `json:"points"`
	Partial    bool              `json:"partial"` // one branch failed but the other produced points
	CreatedAt  time.Time         `json:"created_at"`
}

// PointByRank returns the point with the given rank, or nil.
func (n *Newsletter) PointByRank(rank int) *NewsletterPoint {
	for i := range n.Points {
		if n.Points[i].Rank == rank {
			return &n.Points[i]
		}
	}
	return nil
}

// DeepDive is an on-demand detailed explanation of one newsletter point.
// Transient: produced for display and discarded, never cached.
type DeepDive struct {
	PointRank       int    `json:"point_rank"`
	SourceURL       string `json:"source_url"`
	FullText        string `json:"-"`
	DetailedSummary string `json:"detailed_summary"`
}
