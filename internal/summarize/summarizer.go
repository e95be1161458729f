// Package summarize turns filtered search results into newsletter points
// with an LLM, deduplicates points by semantic similarity, and produces
// detailed deep-dive explanations.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/brieflyhq/briefly/internal/llm"
	"github.com/brieflyhq/briefly/pkg/models"
	"github.com/brieflyhq/briefly/pkg/utils"
)

// ErrSummarizationFailed marks an LLM call that failed or returned
// unusable output. Callers fall back to raw titles/snippets.
var ErrSummarizationFailed = errors.New("summarize: summarization failed")

// maxDeepDiveChars bounds how much article text a deep-dive prompt carries.
const maxDeepDiveChars = 8000

// Summarizer produces newsletter points and deep-dive summaries.
type Summarizer struct {
	provider llm.Provider
	opts     *llm.ChatOptions
	checker  *similarityChecker
}

// Option configures a Summarizer.
type Option func(*Summarizer)

// WithChatOptions sets model parameters for the underlying LLM calls.
func WithChatOptions(opts *llm.ChatOptions) Option {
	return func(s *Summarizer) { s.opts = opts }
}

// WithSimilarityCutoff sets the trigram Jaccard cutoff above which two
// points count as duplicates.
func WithSimilarityCutoff(cutoff float64) Option {
	return func(s *Summarizer) { s.checker = newSimilarityChecker(cutoff) }
}

// New creates a Summarizer over the given LLM provider.
func New(provider llm.Provider, opts ...Option) *Summarizer {
	s := &Summarizer{
		provider: provider,
		checker:  newSimilarityChecker(0.6),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// pointURLPattern recovers the trailing source URL from a generated point.
var pointURLPattern = regexp.MustCompile(`(?i)read more at:\s*(https?://[^\s)]+)`)

// numberedLinePattern matches the start of a numbered point.
var numberedLinePattern = regexp.MustCompile(`^\s*(\d+)[.)]\s+(.*)$`)

// Summarize turns up to models.MaxPoints filtered results into one
// numbered point each. Points are deduplicated within the category and
// carry the relevance score of their source result. Empty input yields an
// empty slice; LLM failure wraps ErrSummarizationFailed.
func (s *Summarizer) Summarize(ctx context.Context, profession string, category models.Category, results []models.SearchResult) ([]models.NewsletterPoint, error) {
	if len(results) == 0 {
		return nil, nil
	}
	if len(results) > models.MaxPoints {
		results = results[:models.MaxPoints]
	}

	resp, err := s.provider.Chat(ctx, []llm.Message{
		llm.SystemMessage(summarizeSystemPrompt(profession, category)),
		llm.UserMessage(summarizeUserPrompt(profession, category, results)),
	}, s.opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSummarizationFailed, err)
	}

	points := parsePoints(resp.Content, category, results)
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no usable points in completion", ErrSummarizationFailed)
	}
	return s.Deduplicate(points), nil
}

// FallbackPoints builds points directly from titles and snippets. Used when
// the LLM is down so a search-only degradation still yields a newsletter.
func (s *Summarizer) FallbackPoints(category models.Category, results []models.SearchResult) []models.NewsletterPoint {
	if len(results) > models.MaxPoints {
		results = results[:models.MaxPoints]
	}
	points := make([]models.NewsletterPoint, 0, len(results))
	for i, r := range results {
		summary := r.Title
		if snip := utils.Snippet(r.Snippet, 160); snip != "" {
			summary += " — " + snip
		}
		points = append(points, models.NewsletterPoint{
			Rank:      i + 1,
			Summary:   summary + " read more at: " + r.URL,
			SourceURL: r.URL,
			Category:  category,
			Relevance: r.RelevanceScore,
		})
	}
	return s.Deduplicate(points)
}

// DeepSummarize produces a detailed, profession-specific explanation of one
// article. Article text is truncated before it reaches the prompt.
func (s *Summarizer) DeepSummarize(ctx context.Context, url, fullText, profession string) (string, error) {
	fullText = utils.Truncate(fullText, maxDeepDiveChars)

	resp, err := s.provider.Chat(ctx, []llm.Message{
		llm.SystemMessage(deepSummarizeSystemPrompt(profession)),
		llm.UserMessage(deepSummarizeUserPrompt(url, fullText, profession)),
	}, s.opts)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSummarizationFailed, err)
	}
	if resp.Content == "" {
		return "", fmt.Errorf("%w: empty completion", ErrSummarizationFailed)
	}
	return resp.Content, nil
}

// Deduplicate drops points whose summaries describe the same story as an
// earlier point (or share its source URL), keeping the higher-relevance
// one in place. Input order is preserved; ranks are not reassigned here.
func (s *Summarizer) Deduplicate(points []models.NewsletterPoint) []models.NewsletterPoint {
	var kept []models.NewsletterPoint
	for _, p := range points {
		dup := false
		for i := range kept {
			if kept[i].SourceURL != p.SourceURL && !s.checker.similar(kept[i].Summary, p.Summary) {
				continue
			}
			dup = true
			if p.Relevance > kept[i].Relevance {
				kept[i] = p
			}
			break
		}
		if !dup {
			kept = append(kept, p)
		}
	}
	return kept
}

// parsePoints splits a numbered-points completion into NewsletterPoints,
// resolving each point's source URL and relevance. Points without a
// recoverable URL fall back to the result at the same ordinal; points that
// still have no URL are dropped (every point must support a deep-dive).
func parsePoints(content string, category models.Category, results []models.SearchResult) []models.NewsletterPoint {
	relevanceByURL := make(map[string]float64, len(results))
	for _, r := range results {
		relevanceByURL[r.URL] = r.RelevanceScore
	}

	var points []models.NewsletterPoint
	var current *models.NewsletterPoint

	flush := func() {
		if current == nil {
			return
		}
		current.Summary = strings.TrimSpace(current.Summary)
		if m := pointURLPattern.FindStringSubmatch(current.Summary); m != nil {
			current.SourceURL = strings.TrimRight(m[1], ".,;")
		} else if idx := len(points); idx < len(results) {
			current.SourceURL = results[idx].URL
		}
		if current.SourceURL != "" && current.Summary != "" {
			current.Relevance = relevanceByURL[current.SourceURL]
			points = append(points, *current)
		}
		current = nil
	}

	for _, line := range strings.Split(content, "\n") {
		if m := numberedLinePattern.FindStringSubmatch(line); m != nil {
			flush()
			current = &models.NewsletterPoint{
				Rank:     len(points) + 1,
				Summary:  m[2],
				Category: category,
			}
			continue
		}
		if current != nil && strings.TrimSpace(line) != "" {
			current.Summary += " " + strings.TrimSpace(line)
		}
	}
	flush()

	if len(points) > models.MaxPoints {
		points = points[:models.MaxPoints]
	}
	return points
}
