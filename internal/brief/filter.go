package brief

import "github.com/brieflyhq/briefly/pkg/models"

// DefaultRelevanceThreshold is the cutoff below which search results are
// dropped before summarization.
const DefaultRelevanceThreshold = 0.5

// Filter keeps results whose relevance score is strictly greater than
// threshold, preserving input order. Pure: the input slice is not modified.
func Filter(results []models.SearchResult, threshold float64) []models.SearchResult {
	filtered := make([]models.SearchResult, 0, len(results))
	for _, r := range results {
		if r.RelevanceScore > threshold {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
