// Package brief orchestrates newsletter generation: two concurrent
// search→filter→summarize branches (news, tools) joined at a barrier,
// merged, deduplicated, and written through an advisory cache.
package brief

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/brieflyhq/briefly/internal/cache"
	"github.com/brieflyhq/briefly/internal/search"
	"github.com/brieflyhq/briefly/internal/telemetry"
	"github.com/brieflyhq/briefly/pkg/models"
	"github.com/brieflyhq/briefly/pkg/utils"
)

// ErrInsufficientResults means both branches yielded zero usable points.
var ErrInsufficientResults = errors.New("brief: insufficient results")

// Stage names the orchestrator's states, reported to progress observers.
type Stage string

const (
	StageIdle     Stage = "idle"
	StageFetching Stage = "fetching"
	StageMerging  Stage = "merging"
	StageDone     Stage = "done"
	StageFailed   Stage = "failed"
)

// Source labels where a newsletter came from.
const (
	SourceCache = "cache"
	SourceFresh = "fresh"
)

// Summarizer is the slice of the summarize package the orchestrator needs.
// Tests substitute stubs.
type Summarizer interface {
	Summarize(ctx context.Context, profession string, category models.Category, results []models.SearchResult) ([]models.NewsletterPoint, error)
	FallbackPoints(category models.Category, results []models.SearchResult) []models.NewsletterPoint
	DeepSummarize(ctx context.Context, url, fullText, profession string) (string, error)
	Deduplicate(points []models.NewsletterPoint) []models.NewsletterPoint
}

// Fallback is a secondary search source tried when the primary is down.
type Fallback interface {
	Search(ctx context.Context, query string, window models.TimeWindow) ([]models.SearchResult, error)
}

// Generator runs the newsletter pipeline.
type Generator struct {
	source     search.Source
	fallback   Fallback // optional; news branch only
	summarizer Summarizer
	store      cache.Store
	threshold  float64
	emitter    *telemetry.Emitter
	log        *logrus.Logger
}

// GeneratorConfig holds dependencies for creating a Generator.
type GeneratorConfig struct {
	Source     search.Source
	Fallback   Fallback
	Summarizer Summarizer
	Store      cache.Store
	Threshold  float64
	Emitter    *telemetry.Emitter
	Logger     *logrus.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(cfg GeneratorConfig) *Generator {
	g := &Generator{
		source:     cfg.Source,
		fallback:   cfg.Fallback,
		summarizer: cfg.Summarizer,
		store:      cfg.Store,
		threshold:  cfg.Threshold,
		emitter:    cfg.Emitter,
		log:        cfg.Logger,
	}
	if g.threshold <= 0 {
		g.threshold = DefaultRelevanceThreshold
	}
	if g.store == nil {
		g.store = cache.NewMemoryStore()
	}
	if g.log == nil {
		g.log = logrus.StandardLogger()
	}
	return g
}

// Options tunes a single generation request.
type Options struct {
	// Fresh bypasses the cache read and overwrites any existing entry.
	Fresh bool
	// Progress, when set, observes stage transitions.
	Progress func(Stage)
}

// Result pairs a newsletter with where it came from.
type Result struct {
	Newsletter *models.Newsletter `json:"newsletter"`
	Source     string             `json:"source"` // "cache" or "fresh"
}

// Cached returns a live cache entry for the key, if one exists. The chat
// loop uses this to offer cached-vs-fresh before generating.
func (g *Generator) Cached(ctx context.Context, profession string, window models.TimeWindow) (*models.Newsletter, bool) {
	profession = utils.NormalizeProfession(profession)
	n, err := g.store.Get(ctx, profession, window)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			g.log.WithError(err).Warn("cache read failed, treating as miss")
		}
		return nil, false
	}
	return n, true
}

// Generate produces a newsletter for (profession, window), consulting the
// cache unless opts.Fresh. A cancelled context aborts without touching the
// cache.
func (g *Generator) Generate(ctx context.Context, profession string, window models.TimeWindow, opts Options) (*Result, error) {
	profession = utils.NormalizeProfession(profession)
	start := time.Now()
	report := func(s Stage) {
		if opts.Progress != nil {
			opts.Progress(s)
		}
	}

	if opts.Fresh {
		// Drop the stale entry up front so a crash mid-generation cannot
		// leave the old newsletter looking current.
		if err := g.store.Delete(ctx, profession, window); err != nil {
			g.log.WithError(err).Warn("cache delete failed")
		}
	} else if n, ok := g.Cached(ctx, profession, window); ok {
		report(StageDone)
		g.emitRun(profession, window, n, SourceCache, opts.Fresh, nil, nil, start, nil)
		return &Result{Newsletter: n, Source: SourceCache}, nil
	}

	report(StageFetching)
	newsOut, toolsOut := g.fanOut(ctx, profession, window)

	// The join barrier is behind us; a caller that walked away gets no
	// merge and no cache write.
	if err := ctx.Err(); err != nil {
		report(StageFailed)
		return nil, err
	}

	report(StageMerging)
	points := g.mergePoints(newsOut.points, toolsOut.points)
	if len(points) == 0 {
		report(StageFailed)
		err := insufficientResults(newsOut.err, toolsOut.err)
		g.emitRun(profession, window, nil, SourceFresh, opts.Fresh, newsOut.err, toolsOut.err, start, err)
		return nil, err
	}

	n := &models.Newsletter{
		Profession: profession,
		Window:     window,
		Points:     points,
		Partial:    newsOut.err != nil || toolsOut.err != nil,
		CreatedAt:  time.Now(),
	}

	if err := g.store.Put(ctx, n); err != nil {
		g.log.WithError(err).Warn("cache write failed, continuing without cache")
	}

	report(StageDone)
	g.emitRun(profession, window, n, SourceFresh, opts.Fresh, newsOut.err, toolsOut.err, start, nil)
	return &Result{Newsletter: n, Source: SourceFresh}, nil
}

// branchOutcome is what one branch delivers to the merge stage.
type branchOutcome struct {
	points []models.NewsletterPoint
	err    error
}

// fanOut runs the news and tools branches concurrently and waits for both.
// Branch failures are captured per branch, never propagated through the
// group: the barrier always sees both outcomes.
func (g *Generator) fanOut(ctx context.Context, profession string, window models.TimeWindow) (news, tools branchOutcome) {
	eg, gctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		news = g.runBranch(gctx, profession, models.CategoryNews, window)
		return nil
	})
	eg.Go(func() error {
		tools = g.runBranch(gctx, profession, models.CategoryTools, window)
		return nil
	})

	_ = eg.Wait() // branches never return errors through the group
	return news, tools
}

// runBranch executes Search → Filter → Summarize for one category.
func (g *Generator) runBranch(ctx context.Context, profession string, category models.Category, window models.TimeWindow) branchOutcome {
	query := branchQuery(profession, category)
	log := g.log.WithFields(logrus.Fields{"category": category, "profession": profession})

	results, err := g.source.Search(ctx, query, window)
	if err != nil {
		if g.fallback == nil || category != models.CategoryNews {
			log.WithError(err).Warn("branch search failed")
			return branchOutcome{err: err}
		}
		log.WithError(err).Warn("primary search failed, trying RSS fallback")
		results, err = g.fallback.Search(ctx, query, window)
		if err != nil {
			return branchOutcome{err: err}
		}
	}

	filtered := Filter(results, g.threshold)
	if len(filtered) == 0 {
		log.WithField("raw", len(results)).Debug("no results above threshold")
		return branchOutcome{}
	}

	points, err := g.summarizer.Summarize(ctx, profession, category, filtered)
	if err != nil {
		if ctx.Err() != nil {
			return branchOutcome{err: ctx.Err()}
		}
		// Degrade to raw titles/snippets rather than losing the branch.
		log.WithError(err).Warn("summarization failed, using raw snippets")
		return branchOutcome{points: g.summarizer.FallbackPoints(category, filtered)}
	}
	return branchOutcome{points: points}
}

// mergePoints concatenates both branches, re-deduplicates across
// categories, orders by relevance descending with news before tools on
// ties, truncates to the cap, and re-ranks 1..N.
func (g *Generator) mergePoints(news, tools []models.NewsletterPoint) []models.NewsletterPoint {
	merged := make([]models.NewsletterPoint, 0, len(news)+len(tools))
	merged = append(merged, news...)
	merged = append(merged, tools...)
	merged = g.summarizer.Deduplicate(merged)

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Relevance != merged[j].Relevance {
			return merged[i].Relevance > merged[j].Relevance
		}
		return merged[i].Category == models.CategoryNews && merged[j].Category == models.CategoryTools
	})

	if len(merged) > models.MaxPoints {
		merged = merged[:models.MaxPoints]
	}
	for i := range merged {
		merged[i].Rank = i + 1
	}
	return merged
}

// DeepDive extracts the full article behind one newsletter point and
// produces a detailed summary. The newsletter itself is never modified.
func (g *Generator) DeepDive(ctx context.Context, n *models.Newsletter, rank int) (*models.DeepDive, error) {
	point := n.PointByRank(rank)
	if point == nil {
		return nil, fmt.Errorf("brief: no point with rank %d", rank)
	}

	fullText, err := g.source.Extract(ctx, point.SourceURL)
	if err != nil {
		return nil, err
	}

	detailed, err := g.summarizer.DeepSummarize(ctx, point.SourceURL, fullText, n.Profession)
	if err != nil {
		return nil, err
	}

	return &models.DeepDive{
		PointRank:       rank,
		SourceURL:       point.SourceURL,
		FullText:        fullText,
		DetailedSummary: detailed,
	}, nil
}

// CacheStats exposes cache backend health for the status surfaces.
func (g *Generator) CacheStats(ctx context.Context) cache.Stats {
	return g.store.Stats(ctx)
}

// InvalidateCache drops the cached newsletter for a key.
func (g *Generator) InvalidateCache(ctx context.Context, profession string, window models.TimeWindow) {
	profession = utils.NormalizeProfession(profession)
	if err := g.store.Delete(ctx, profession, window); err != nil {
		g.log.WithError(err).Warn("cache delete failed")
	}
}

// branchQuery phrases the search for one category.
func branchQuery(profession string, category models.Category) string {
	return fmt.Sprintf("what are the latest ai %s for %ss?", category, profession)
}

// insufficientResults wraps the branch errors, when any, under the
// user-facing condition.
func insufficientResults(newsErr, toolsErr error) error {
	switch {
	case newsErr != nil && toolsErr != nil:
		return fmt.Errorf("%w: news: %v; tools: %v", ErrInsufficientResults, newsErr, toolsErr)
	case newsErr != nil:
		return fmt.Errorf("%w: news: %v", ErrInsufficientResults, newsErr)
	case toolsErr != nil:
		return fmt.Errorf("%w: tools: %v", ErrInsufficientResults, toolsErr)
	default:
		return ErrInsufficientResults
	}
}

// emitRun records telemetry for one generation, when enabled.
func (g *Generator) emitRun(profession string, window models.TimeWindow, n *models.Newsletter, source string, fresh bool, newsErr, toolsErr error, start time.Time, runErr error) {
	ev := telemetry.RunEvent{
		Profession: profession,
		Window:     string(window),
		Source:     source,
		Fresh:      fresh,
		DurationMS: time.Since(start).Milliseconds(),
	}
	if n != nil {
		ev.Partial = n.Partial
		ev.Points = len(n.Points)
	}
	if newsErr != nil {
		ev.NewsErr = newsErr.Error()
	}
	if toolsErr != nil {
		ev.ToolsErr = toolsErr.Error()
	}
	if runErr != nil {
		ev.Err = runErr.Error()
	}
	g.emitter.EmitRun(ev)
}
