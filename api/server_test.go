package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/brieflyhq/briefly/internal/brief"
	"github.com/brieflyhq/briefly/internal/cache"
	"github.com/brieflyhq/briefly/internal/config"
	"github.com/brieflyhq/briefly/internal/llm"
	"github.com/brieflyhq/briefly/internal/validate"
	"github.com/brieflyhq/briefly/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Test doubles
// ════════════════════════════════════════════════════════════════════

// fakeLLM always answers with a fixed completion.
type fakeLLM struct {
	content string
}

func (p *fakeLLM) Name() string { return "fake" }
func (p *fakeLLM) Chat(ctx context.Context, messages []llm.Message, opts *llm.ChatOptions) (*llm.Response, error) {
	return &llm.Response{Content: p.content, Provider: "fake"}, nil
}
func (p *fakeLLM) Ping(ctx context.Context) error { return nil }

// fakeSource serves the same canned results for both branches.
type fakeSource struct {
	results []models.SearchResult
	err     error
	extract string
}

func (s *fakeSource) Search(ctx context.Context, query string, window models.TimeWindow) ([]models.SearchResult, error) {
	return s.results, s.err
}
func (s *fakeSource) Extract(ctx context.Context, url string) (string, error) {
	if s.extract == "" {
		return "", errors.New("no extract configured")
	}
	return s.extract, nil
}

// fakeSummarizer maps results straight to points.
type fakeSummarizer struct{}

func (fakeSummarizer) Summarize(ctx context.Context, profession string, category models.Category, results []models.SearchResult) ([]models.NewsletterPoint, error) {
	points := make([]models.NewsletterPoint, 0, len(results))
	for i, r := range results {
		points = append(points, models.NewsletterPoint{
			Rank: i + 1, Summary: r.Title + " read more at: " + r.URL,
			SourceURL: r.URL, Category: category, Relevance: r.RelevanceScore,
		})
	}
	return points, nil
}

func (fakeSummarizer) FallbackPoints(category models.Category, results []models.SearchResult) []models.NewsletterPoint {
	points, _ := fakeSummarizer{}.Summarize(context.Background(), "", category, results)
	return points
}

func (fakeSummarizer) DeepSummarize(ctx context.Context, url, fullText, profession string) (string, error) {
	return "a detailed look at " + url, nil
}

func (fakeSummarizer) Deduplicate(points []models.NewsletterPoint) []models.NewsletterPoint {
	var kept []models.NewsletterPoint
	seen := map[string]bool{}
	for _, p := range points {
		if seen[p.SourceURL] {
			continue
		}
		seen[p.SourceURL] = true
		kept = append(kept, p)
	}
	return kept
}

func newTestServer(t *testing.T, src *fakeSource, verdict string) (*Server, cache.Store) {
	t.Helper()

	store := cache.NewMemoryStore()
	gen := brief.NewGenerator(brief.GeneratorConfig{
		Source:     src,
		Summarizer: fakeSummarizer{},
		Store:      store,
		Threshold:  0.5,
	})

	validator := validate.New(&fakeLLM{content: verdict}, nil, nil)

	router := llm.NewRouter("fake")
	router.RegisterProvider(&fakeLLM{content: "ok"})

	cfg := &config.Config{}
	cfg.API.CORSOrigins = []string{"*"}

	return NewServer(cfg, gen, validator, router, nil), store
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("%s %s: response not JSON: %v\n%s", method, path, err, rec.Body.String())
	}
	return rec, resp
}

const acceptVerdict = "VALID: yes\nCORRECTED: NONE\nREASON:"

func sampleSource() *fakeSource {
	return &fakeSource{
		results: []models.SearchResult{
			{URL: "https://a.com", Title: "Story A", Snippet: "sa", RelevanceScore: 0.9},
			{URL: "https://b.com", Title: "Story B", Snippet: "sb", RelevanceScore: 0.7},
		},
		extract: "full article body",
	}
}

// ════════════════════════════════════════════════════════════════════
// Handlers
// ════════════════════════════════════════════════════════════════════

func TestHandleHealth(t *testing.T) {
	s, _ := newTestServer(t, sampleSource(), acceptVerdict)

	rec, resp := doJSON(t, s.Router(), http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("health: %d %+v", rec.Code, resp)
	}
}

func TestHandleBrief(t *testing.T) {
	s, store := newTestServer(t, sampleSource(), acceptVerdict)

	rec, resp := doJSON(t, s.Router(), http.MethodPost, "/api/v1/brief",
		BriefRequest{Profession: "Accountant", Window: "day"})
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("brief: %d %+v", rec.Code, resp)
	}

	data, _ := json.Marshal(resp.Data)
	var result brief.Result
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Source != brief.SourceFresh {
		t.Fatalf("source = %q", result.Source)
	}
	if result.Newsletter.Profession != "accountant" || len(result.Newsletter.Points) != 2 {
		t.Fatalf("newsletter = %+v", result.Newsletter)
	}

	// The run is now cached; a second call serves the cache.
	if _, err := store.Get(context.Background(), "accountant", models.WindowDay); err != nil {
		t.Fatalf("not cached: %v", err)
	}
	_, resp2 := doJSON(t, s.Router(), http.MethodPost, "/api/v1/brief",
		BriefRequest{Profession: "Accountant", Window: "day"})
	data2, _ := json.Marshal(resp2.Data)
	var result2 brief.Result
	_ = json.Unmarshal(data2, &result2)
	if result2.Source != brief.SourceCache {
		t.Fatalf("second call should hit cache, got %q", result2.Source)
	}
}

func TestHandleBriefBadRequests(t *testing.T) {
	s, _ := newTestServer(t, sampleSource(), acceptVerdict)

	rec, _ := doJSON(t, s.Router(), http.MethodPost, "/api/v1/brief",
		BriefRequest{Profession: "accountant", Window: "decade"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad window: %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/brief", strings.NewReader("{not json"))
	rec2 := httptest.NewRecorder()
	s.Router().ServeHTTP(rec2, req)
	if rec2.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: %d", rec2.Code)
	}
}

func TestHandleBriefRejectedProfession(t *testing.T) {
	s, _ := newTestServer(t, sampleSource(),
		"VALID: no\nCORRECTED: NONE\nREASON: That is a couch, not a career.")

	rec, resp := doJSON(t, s.Router(), http.MethodPost, "/api/v1/brief",
		BriefRequest{Profession: "sofa", Window: "day"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("rejected profession: %d", rec.Code)
	}
	if !strings.Contains(resp.Error, "couch") {
		t.Fatalf("error should carry the reason: %q", resp.Error)
	}
}

func TestHandleBriefInsufficientResults(t *testing.T) {
	s, _ := newTestServer(t, &fakeSource{err: errors.New("everything down")}, acceptVerdict)

	rec, resp := doJSON(t, s.Router(), http.MethodPost, "/api/v1/brief",
		BriefRequest{Profession: "accountant", Window: "day"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d: %+v", rec.Code, resp)
	}
}

func TestHandleDeepDive(t *testing.T) {
	s, _ := newTestServer(t, sampleSource(), acceptVerdict)

	// No newsletter yet.
	rec, _ := doJSON(t, s.Router(), http.MethodPost, "/api/v1/deepdive",
		DeepDiveRequest{Profession: "accountant", Window: "day", Rank: 1})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("deepdive without newsletter: %d", rec.Code)
	}

	// Generate, then dive.
	doJSON(t, s.Router(), http.MethodPost, "/api/v1/brief",
		BriefRequest{Profession: "accountant", Window: "day"})

	rec2, resp := doJSON(t, s.Router(), http.MethodPost, "/api/v1/deepdive",
		DeepDiveRequest{Profession: "accountant", Window: "day", Rank: 1})
	if rec2.Code != http.StatusOK || !resp.Success {
		t.Fatalf("deepdive: %d %+v", rec2.Code, resp)
	}

	data, _ := json.Marshal(resp.Data)
	var dive models.DeepDive
	_ = json.Unmarshal(data, &dive)
	if dive.PointRank != 1 || !strings.Contains(dive.DetailedSummary, "detailed look") {
		t.Fatalf("dive = %+v", dive)
	}
}

func TestHandleCacheStatsAndDelete(t *testing.T) {
	s, store := newTestServer(t, sampleSource(), acceptVerdict)

	doJSON(t, s.Router(), http.MethodPost, "/api/v1/brief",
		BriefRequest{Profession: "accountant", Window: "week"})

	rec, resp := doJSON(t, s.Router(), http.MethodGet, "/api/v1/cache/stats", nil)
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("cache stats: %d %+v", rec.Code, resp)
	}

	rec2, _ := doJSON(t, s.Router(), http.MethodDelete, "/api/v1/cache/accountant/week", nil)
	if rec2.Code != http.StatusOK {
		t.Fatalf("cache delete: %d", rec2.Code)
	}
	if _, err := store.Get(context.Background(), "accountant", models.WindowWeek); !errors.Is(err, cache.ErrMiss) {
		t.Fatal("delete endpoint should invalidate the entry")
	}

	rec3, _ := doJSON(t, s.Router(), http.MethodDelete, "/api/v1/cache/accountant/decade", nil)
	if rec3.Code != http.StatusBadRequest {
		t.Fatalf("bad window in delete: %d", rec3.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	s, _ := newTestServer(t, sampleSource(), acceptVerdict)

	rec, resp := doJSON(t, s.Router(), http.MethodGet, "/api/v1/status", nil)
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("status: %d %+v", rec.Code, resp)
	}
}
