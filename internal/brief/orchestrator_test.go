package brief

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/brieflyhq/briefly/internal/cache"
	"github.com/brieflyhq/briefly/internal/search"
	"github.com/brieflyhq/briefly/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Test doubles
// ════════════════════════════════════════════════════════════════════

// stubSource serves canned results per category, keyed off the query text.
type stubSource struct {
	news       []models.SearchResult
	tools      []models.SearchResult
	newsErr    error
	toolsErr   error
	extract    string
	extractErr error
	onSearch   func() // hook, e.g. to cancel the context mid-flight
}

func (s *stubSource) Search(ctx context.Context, query string, window models.TimeWindow) ([]models.SearchResult, error) {
	if s.onSearch != nil {
		s.onSearch()
	}
	if strings.Contains(query, "news") {
		return s.news, s.newsErr
	}
	return s.tools, s.toolsErr
}

func (s *stubSource) Extract(ctx context.Context, url string) (string, error) {
	return s.extract, s.extractErr
}

// stubFallback is a canned RSS-style secondary source.
type stubFallback struct {
	results []models.SearchResult
	err     error
	calls   int
}

func (f *stubFallback) Search(ctx context.Context, query string, window models.TimeWindow) ([]models.SearchResult, error) {
	f.calls++
	return f.results, f.err
}

// stubSummarizer turns each result into one point; Deduplicate collapses
// same-URL points keeping the higher relevance.
type stubSummarizer struct {
	err     error
	deepErr error
}

func (s *stubSummarizer) Summarize(ctx context.Context, profession string, category models.Category, results []models.SearchResult) ([]models.NewsletterPoint, error) {
	if s.err != nil {
		return nil, s.err
	}
	points := make([]models.NewsletterPoint, 0, len(results))
	for i, r := range results {
		points = append(points, models.NewsletterPoint{
			Rank:      i + 1,
			Summary:   r.Title + " read more at: " + r.URL,
			SourceURL: r.URL,
			Category:  category,
			Relevance: r.RelevanceScore,
		})
	}
	return points, nil
}

func (s *stubSummarizer) FallbackPoints(category models.Category, results []models.SearchResult) []models.NewsletterPoint {
	points := make([]models.NewsletterPoint, 0, len(results))
	for i, r := range results {
		points = append(points, models.NewsletterPoint{
			Rank:      i + 1,
			Summary:   "fallback: " + r.Title + " read more at: " + r.URL,
			SourceURL: r.URL,
			Category:  category,
			Relevance: r.RelevanceScore,
		})
	}
	return points
}

func (s *stubSummarizer) DeepSummarize(ctx context.Context, url, fullText, profession string) (string, error) {
	if s.deepErr != nil {
		return "", s.deepErr
	}
	return "detailed explanation of " + url, nil
}

func (s *stubSummarizer) Deduplicate(points []models.NewsletterPoint) []models.NewsletterPoint {
	var kept []models.NewsletterPoint
	for _, p := range points {
		dup := false
		for i := range kept {
			if kept[i].SourceURL == p.SourceURL {
				dup = true
				if p.Relevance > kept[i].Relevance {
					kept[i] = p
				}
				break
			}
		}
		if !dup {
			kept = append(kept, p)
		}
	}
	return kept
}

func result(url string, score float64) models.SearchResult {
	return models.SearchResult{URL: url, Title: "story " + url, Snippet: "snippet", RelevanceScore: score}
}

func newTestGenerator(src *stubSource, sum *stubSummarizer, store cache.Store, fb Fallback) *Generator {
	return NewGenerator(GeneratorConfig{
		Source:     src,
		Fallback:   fb,
		Summarizer: sum,
		Store:      store,
		Threshold:  0.5,
	})
}

// ════════════════════════════════════════════════════════════════════
// Filter
// ════════════════════════════════════════════════════════════════════

func TestFilterStrictThreshold(t *testing.T) {
	results := []models.SearchResult{
		result("https://a.com", 0.9),
		result("https://b.com", 0.5), // exactly at threshold: dropped
		result("https://c.com", 0.51),
		result("https://d.com", 0.1),
	}

	got := Filter(results, 0.5)
	if len(got) != 2 {
		t.Fatalf("want 2 results, got %d", len(got))
	}
	if got[0].URL != "https://a.com" || got[1].URL != "https://c.com" {
		t.Fatalf("order not preserved: %+v", got)
	}
	if len(results) != 4 {
		t.Fatal("Filter must not modify its input")
	}
}

// ════════════════════════════════════════════════════════════════════
// Generate — happy path, cache, fresh
// ════════════════════════════════════════════════════════════════════

func TestGenerateMergesBothBranches(t *testing.T) {
	src := &stubSource{
		news:  []models.SearchResult{result("https://n1.com", 0.9), result("https://n2.com", 0.6)},
		tools: []models.SearchResult{result("https://t1.com", 0.8)},
	}
	store := cache.NewMemoryStore()
	g := newTestGenerator(src, &stubSummarizer{}, store, nil)

	var stages []Stage
	res, err := g.Generate(context.Background(), "Accountant", models.WindowDay, Options{
		Progress: func(s Stage) { stages = append(stages, s) },
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	n := res.Newsletter
	if res.Source != SourceFresh {
		t.Fatalf("source = %q", res.Source)
	}
	if n.Profession != "accountant" {
		t.Fatalf("profession not normalized: %q", n.Profession)
	}
	if n.Partial {
		t.Fatal("both branches succeeded; newsletter must not be partial")
	}
	if len(n.Points) != 3 {
		t.Fatalf("want 3 points, got %d", len(n.Points))
	}

	// Relevance-descending with ranks 1..N.
	wantOrder := []string{"https://n1.com", "https://t1.com", "https://n2.com"}
	for i, url := range wantOrder {
		if n.Points[i].SourceURL != url || n.Points[i].Rank != i+1 {
			t.Fatalf("point %d: %+v, want %s", i, n.Points[i], url)
		}
	}

	// The newsletter landed in the cache.
	if _, err := store.Get(context.Background(), "accountant", models.WindowDay); err != nil {
		t.Fatalf("newsletter not cached: %v", err)
	}

	// Progress observed fetching → merging → done.
	joined := ""
	for _, s := range stages {
		joined += string(s) + " "
	}
	if !strings.Contains(joined, string(StageFetching)) || !strings.Contains(joined, string(StageDone)) {
		t.Fatalf("unexpected stages: %v", stages)
	}
}

func TestGenerateServesFromCache(t *testing.T) {
	src := &stubSource{news: []models.SearchResult{result("https://n1.com", 0.9)}}
	store := cache.NewMemoryStore()
	g := newTestGenerator(src, &stubSummarizer{}, store, nil)

	first, err := g.Generate(context.Background(), "nurse", models.WindowWeek, Options{})
	if err != nil {
		t.Fatalf("first Generate: %v", err)
	}

	// Break the source; the cache must answer.
	src.newsErr = errors.New("search down")
	src.toolsErr = errors.New("search down")

	second, err := g.Generate(context.Background(), "nurse", models.WindowWeek, Options{})
	if err != nil {
		t.Fatalf("second Generate: %v", err)
	}
	if second.Source != SourceCache {
		t.Fatalf("want cache hit, got %q", second.Source)
	}
	if second.Newsletter.CreatedAt != first.Newsletter.CreatedAt {
		t.Fatal("cache must return the stored newsletter")
	}
}

func TestGenerateFreshBypassesAndOverwrites(t *testing.T) {
	src := &stubSource{news: []models.SearchResult{result("https://old.com", 0.9)}}
	store := cache.NewMemoryStore()
	g := newTestGenerator(src, &stubSummarizer{}, store, nil)

	if _, err := g.Generate(context.Background(), "chef", models.WindowDay, Options{}); err != nil {
		t.Fatalf("seed Generate: %v", err)
	}

	src.news = []models.SearchResult{result("https://new.com", 0.9)}
	res, err := g.Generate(context.Background(), "chef", models.WindowDay, Options{Fresh: true})
	if err != nil {
		t.Fatalf("fresh Generate: %v", err)
	}
	if res.Source != SourceFresh {
		t.Fatalf("fresh must not serve the cache, got %q", res.Source)
	}
	if res.Newsletter.Points[0].SourceURL != "https://new.com" {
		t.Fatalf("fresh run should regenerate: %+v", res.Newsletter.Points)
	}

	cached, err := store.Get(context.Background(), "chef", models.WindowDay)
	if err != nil {
		t.Fatalf("Get after fresh: %v", err)
	}
	if cached.Points[0].SourceURL != "https://new.com" {
		t.Fatal("fresh run must overwrite the cached entry")
	}
}

// ════════════════════════════════════════════════════════════════════
// Generate — degradation paths
// ════════════════════════════════════════════════════════════════════

func TestGeneratePartialWhenOneBranchFails(t *testing.T) {
	src := &stubSource{
		news:     []models.SearchResult{result("https://n1.com", 0.9)},
		toolsErr: errors.New("tools search down"),
	}
	g := newTestGenerator(src, &stubSummarizer{}, cache.NewMemoryStore(), nil)

	res, err := g.Generate(context.Background(), "lawyer", models.WindowDay, Options{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !res.Newsletter.Partial {
		t.Fatal("one failed branch must mark the newsletter partial")
	}
	if len(res.Newsletter.Points) != 1 {
		t.Fatalf("surviving branch points expected, got %d", len(res.Newsletter.Points))
	}
}

func TestGenerateInsufficientResults(t *testing.T) {
	src := &stubSource{
		newsErr:  errors.New("news down"),
		toolsErr: errors.New("tools down"),
	}
	store := cache.NewMemoryStore()
	g := newTestGenerator(src, &stubSummarizer{}, store, nil)

	_, err := g.Generate(context.Background(), "pilot", models.WindowMonth, Options{})
	if !errors.Is(err, ErrInsufficientResults) {
		t.Fatalf("want ErrInsufficientResults, got %v", err)
	}
	if _, err := store.Get(context.Background(), "pilot", models.WindowMonth); !errors.Is(err, cache.ErrMiss) {
		t.Fatal("failed run must not be cached")
	}
}

func TestGenerateEmptyBranchesWithoutErrors(t *testing.T) {
	// Searches succeed but nothing clears the relevance filter.
	src := &stubSource{
		news:  []models.SearchResult{result("https://n1.com", 0.2)},
		tools: []models.SearchResult{result("https://t1.com", 0.3)},
	}
	g := newTestGenerator(src, &stubSummarizer{}, cache.NewMemoryStore(), nil)

	_, err := g.Generate(context.Background(), "farmer", models.WindowDay, Options{})
	if !errors.Is(err, ErrInsufficientResults) {
		t.Fatalf("want ErrInsufficientResults, got %v", err)
	}
}

func TestGenerateNewsFallsBackToRSS(t *testing.T) {
	fb := &stubFallback{results: []models.SearchResult{result("https://rss.com/a", 0.7)}}
	src := &stubSource{
		newsErr: errors.New("tavily down"),
		tools:   []models.SearchResult{result("https://t1.com", 0.8)},
	}
	g := newTestGenerator(src, &stubSummarizer{}, cache.NewMemoryStore(), fb)

	res, err := g.Generate(context.Background(), "writer", models.WindowDay, Options{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if fb.calls == 0 {
		t.Fatal("news branch should have tried the RSS fallback")
	}
	if res.Newsletter.Partial {
		t.Fatal("fallback success means the branch did not fail")
	}

	urls := map[string]bool{}
	for _, p := range res.Newsletter.Points {
		urls[p.SourceURL] = true
	}
	if !urls["https://rss.com/a"] || !urls["https://t1.com"] {
		t.Fatalf("expected both branches in output: %+v", res.Newsletter.Points)
	}
}

func TestGenerateSummarizerFailureDegradesToSnippets(t *testing.T) {
	src := &stubSource{
		news: []models.SearchResult{result("https://n1.com", 0.9)},
	}
	sum := &stubSummarizer{err: errors.New("llm down")}
	g := newTestGenerator(src, sum, cache.NewMemoryStore(), nil)

	res, err := g.Generate(context.Background(), "doctor", models.WindowDay, Options{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.Newsletter.Points) != 1 {
		t.Fatalf("want 1 fallback point, got %d", len(res.Newsletter.Points))
	}
	if !strings.HasPrefix(res.Newsletter.Points[0].Summary, "fallback:") {
		t.Fatalf("expected raw-snippet fallback, got %q", res.Newsletter.Points[0].Summary)
	}
	if res.Newsletter.Partial {
		t.Fatal("snippet degradation is not a branch failure")
	}
}

func TestGenerateCancelledContextSkipsCacheWrite(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &stubSource{
		news:     []models.SearchResult{result("https://n1.com", 0.9)},
		onSearch: cancel, // caller walks away while branches run
	}
	store := cache.NewMemoryStore()
	g := newTestGenerator(src, &stubSummarizer{}, store, nil)

	_, err := g.Generate(ctx, "banker", models.WindowDay, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if _, err := store.Get(context.Background(), "banker", models.WindowDay); !errors.Is(err, cache.ErrMiss) {
		t.Fatal("cancelled run must not write to the cache")
	}
}

// ════════════════════════════════════════════════════════════════════
// mergePoints
// ════════════════════════════════════════════════════════════════════

func TestMergePointsCapAndTieBreak(t *testing.T) {
	g := newTestGenerator(&stubSource{}, &stubSummarizer{}, cache.NewMemoryStore(), nil)

	news := []models.NewsletterPoint{
		{SourceURL: "https://n1.com", Category: models.CategoryNews, Relevance: 0.8},
		{SourceURL: "https://n2.com", Category: models.CategoryNews, Relevance: 0.6},
		{SourceURL: "https://n3.com", Category: models.CategoryNews, Relevance: 0.55},
	}
	tools := []models.NewsletterPoint{
		{SourceURL: "https://t1.com", Category: models.CategoryTools, Relevance: 0.8},
		{SourceURL: "https://t2.com", Category: models.CategoryTools, Relevance: 0.9},
		{SourceURL: "https://t3.com", Category: models.CategoryTools, Relevance: 0.52},
	}

	merged := g.mergePoints(news, tools)
	if len(merged) != models.MaxPoints {
		t.Fatalf("want %d points, got %d", models.MaxPoints, len(merged))
	}

	// t2 (0.9) first; on the 0.8 tie news precedes tools.
	wantOrder := []string{"https://t2.com", "https://n1.com", "https://t1.com", "https://n2.com", "https://n3.com"}
	for i, url := range wantOrder {
		if merged[i].SourceURL != url {
			t.Fatalf("position %d: got %s, want %s", i, merged[i].SourceURL, url)
		}
		if merged[i].Rank != i+1 {
			t.Fatalf("position %d: rank %d", i, merged[i].Rank)
		}
	}
}

func TestMergePointsDeduplicatesAcrossCategories(t *testing.T) {
	g := newTestGenerator(&stubSource{}, &stubSummarizer{}, cache.NewMemoryStore(), nil)

	news := []models.NewsletterPoint{
		{SourceURL: "https://same.com", Category: models.CategoryNews, Relevance: 0.7},
	}
	tools := []models.NewsletterPoint{
		{SourceURL: "https://same.com", Category: models.CategoryTools, Relevance: 0.9},
	}

	merged := g.mergePoints(news, tools)
	if len(merged) != 1 {
		t.Fatalf("cross-category duplicate should collapse, got %d", len(merged))
	}
	if merged[0].Relevance != 0.9 {
		t.Fatalf("higher-relevance duplicate should win: %+v", merged[0])
	}
}

// ════════════════════════════════════════════════════════════════════
// DeepDive
// ════════════════════════════════════════════════════════════════════

func TestDeepDive(t *testing.T) {
	src := &stubSource{
		news:    []models.SearchResult{result("https://n1.com", 0.9)},
		extract: "full article text",
	}
	g := newTestGenerator(src, &stubSummarizer{}, cache.NewMemoryStore(), nil)

	res, err := g.Generate(context.Background(), "editor", models.WindowDay, Options{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	dd, err := g.DeepDive(context.Background(), res.Newsletter, 1)
	if err != nil {
		t.Fatalf("DeepDive: %v", err)
	}
	if dd.PointRank != 1 || dd.SourceURL != "https://n1.com" {
		t.Fatalf("unexpected deep dive: %+v", dd)
	}
	if !strings.Contains(dd.DetailedSummary, "https://n1.com") {
		t.Fatalf("detailed summary = %q", dd.DetailedSummary)
	}
}

func TestDeepDiveUnknownRank(t *testing.T) {
	g := newTestGenerator(&stubSource{}, &stubSummarizer{}, cache.NewMemoryStore(), nil)
	n := &models.Newsletter{Points: []models.NewsletterPoint{{Rank: 1, SourceURL: "https://a.com"}}}

	if _, err := g.DeepDive(context.Background(), n, 7); err == nil {
		t.Fatal("unknown rank must error")
	}
}

func TestDeepDiveExtractFailureLeavesNewsletterIntact(t *testing.T) {
	src := &stubSource{extractErr: search.ErrExtractionFailed}
	g := newTestGenerator(src, &stubSummarizer{}, cache.NewMemoryStore(), nil)

	n := &models.Newsletter{
		Profession: "editor",
		Points:     []models.NewsletterPoint{{Rank: 1, SourceURL: "https://a.com", Summary: "point"}},
	}

	_, err := g.DeepDive(context.Background(), n, 1)
	if !errors.Is(err, search.ErrExtractionFailed) {
		t.Fatalf("want ErrExtractionFailed, got %v", err)
	}
	if len(n.Points) != 1 || n.Points[0].Summary != "point" {
		t.Fatal("a failed deep dive must not modify the newsletter")
	}
}
