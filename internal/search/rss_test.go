package search

import (
	"testing"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/brieflyhq/briefly/pkg/models"
)

func TestQueryKeywords(t *testing.T) {
	kws := queryKeywords("what are the latest ai tools for accountants?")
	want := map[string]bool{"what": true, "latest": true, "tools": true, "accountants": true}
	if len(kws) != len(want) {
		t.Fatalf("keywords = %v", kws)
	}
	for _, kw := range kws {
		if !want[kw] {
			t.Fatalf("unexpected keyword %q in %v", kw, kws)
		}
	}
}

func TestWindowDuration(t *testing.T) {
	if windowDuration(models.WindowDay) != 24*time.Hour {
		t.Fatal("day window")
	}
	if windowDuration(models.WindowWeek) != 7*24*time.Hour {
		t.Fatal("week window")
	}
	if windowDuration(models.WindowMonth) != 30*24*time.Hour {
		t.Fatal("month window")
	}
}

func TestScoreItem(t *testing.T) {
	cutoff := time.Now().Add(-24 * time.Hour)
	fresh := time.Now().Add(-time.Hour)
	keywords := []string{"accountants", "tools"}

	matching := &gofeed.Item{
		Title:       "New AI tools reshape work for accountants",
		Description: "A roundup of agents and copilots.",
	}
	unrelated := &gofeed.Item{
		Title:       "Chip maker posts record quarter",
		Description: "Earnings beat expectations.",
	}

	ms := scoreItem(matching, keywords, fresh, cutoff)
	us := scoreItem(unrelated, keywords, fresh, cutoff)

	if ms <= us {
		t.Fatalf("keyword match should score higher: %v vs %v", ms, us)
	}
	if ms > 1 || us < 0 {
		t.Fatalf("scores must stay in [0,1]: %v, %v", ms, us)
	}
	// Base score keeps fresh curated items above the default filter cutoff.
	if us <= 0.5 {
		t.Fatalf("fresh feed item should clear base score, got %v", us)
	}
}

func TestItemTimePrefersPublished(t *testing.T) {
	pub := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	upd := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	item := &gofeed.Item{PublishedParsed: &pub, UpdatedParsed: &upd}
	if !itemTime(item).Equal(pub) {
		t.Fatal("published date should win")
	}
	item = &gofeed.Item{UpdatedParsed: &upd}
	if !itemTime(item).Equal(upd) {
		t.Fatal("updated date is the fallback")
	}
}
