package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/brieflyhq/briefly/pkg/models"
	"github.com/brieflyhq/briefly/pkg/utils"
)

// FeedSource lists an AI news RSS feed.
type FeedSource struct {
	Name string
	URL  string
}

// DefaultFeedSources are the curated AI news feeds used when the search
// API is unreachable.
var DefaultFeedSources = []FeedSource{
	{Name: "MIT Technology Review AI", URL: "https://www.technologyreview.com/topic/artificial-intelligence/feed"},
	{Name: "VentureBeat AI", URL: "https://venturebeat.com/category/ai/feed/"},
	{Name: "The Verge AI", URL: "https://www.theverge.com/rss/ai-artificial-intelligence/index.xml"},
	{Name: "Ars Technica AI", URL: "https://arstechnica.com/ai/feed/"},
}

// FeedFallback serves the news branch from RSS feeds when the primary
// search source is down. Scores are heuristic: recency plus keyword
// overlap with the query, so results still pass the relevance filter.
type FeedFallback struct {
	sources []FeedSource
	parser  *gofeed.Parser
	limiter *RateLimiter
}

// NewFeedFallback creates an RSS fallback over the given feeds
// (DefaultFeedSources when none are provided).
func NewFeedFallback(sources []FeedSource) *FeedFallback {
	if len(sources) == 0 {
		sources = DefaultFeedSources
	}
	return &FeedFallback{
		sources: sources,
		parser:  gofeed.NewParser(),
		limiter: NewRateLimiter(4, time.Second),
	}
}

// Search fetches all feeds concurrently and scores items against the query.
// Feed fetch errors are skipped; only an empty total yields an empty slice.
func (f *FeedFallback) Search(ctx context.Context, query string, window models.TimeWindow) ([]models.SearchResult, error) {
	cutoff := time.Now().Add(-windowDuration(window))
	keywords := queryKeywords(query)

	var mu sync.Mutex
	var results []models.SearchResult
	var wg sync.WaitGroup

	for _, src := range f.sources {
		wg.Add(1)
		go func(src FeedSource) {
			defer wg.Done()
			if err := f.limiter.Wait(ctx); err != nil {
				return
			}
			feed, err := f.parser.ParseURLWithContext(src.URL, ctx)
			if err != nil {
				return
			}
			for _, item := range feed.Items {
				published := itemTime(item)
				if published.Before(cutoff) {
					continue
				}
				score := scoreItem(item, keywords, published, cutoff)
				mu.Lock()
				results = append(results, models.SearchResult{
					URL:            item.Link,
					Title:          item.Title,
					Snippet:        utils.Snippet(item.Description, 280),
					RelevanceScore: score,
					PublishedAt:    published,
				})
				mu.Unlock()
			}
		}(src)
	}
	wg.Wait()

	return results, nil
}

func windowDuration(w models.TimeWindow) time.Duration {
	switch w {
	case models.WindowWeek:
		return 7 * 24 * time.Hour
	case models.WindowMonth:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

func itemTime(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return time.Now()
}

// queryKeywords splits a query into lowercase terms worth matching,
// dropping short stopword-like tokens.
func queryKeywords(query string) []string {
	var kws []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		w = strings.Trim(w, "?.,!")
		if len(w) > 3 {
			kws = append(kws, w)
		}
	}
	return kws
}

// scoreItem produces a 0..1 relevance estimate: a 0.5 base for being a
// fresh item from a curated AI feed, boosted by keyword hits and recency.
func scoreItem(item *gofeed.Item, keywords []string, published, cutoff time.Time) float64 {
	score := 0.5
	haystack := strings.ToLower(item.Title + " " + item.Description)
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			score += 0.08
		}
	}

	span := time.Since(cutoff)
	if span > 0 {
		age := time.Since(published)
		score += 0.1 * (1 - float64(age)/float64(span))
	}

	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}
