package summarize

import (
	"strings"
	"unicode"
)

// similarityChecker judges whether two summaries describe the same
// underlying story via character-trigram Jaccard overlap. Embedding-free:
// deterministic and cheap enough to run on every merge.
type similarityChecker struct {
	cutoff    float64
	ngramSize int
}

func newSimilarityChecker(cutoff float64) *similarityChecker {
	if cutoff <= 0 {
		cutoff = 0.6
	}
	return &similarityChecker{cutoff: cutoff, ngramSize: 3}
}

// normalize lowercases, removes punctuation, and collapses whitespace.
func (c *similarityChecker) normalize(text string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			prevSpace = false
		} else if !prevSpace {
			sb.WriteRune(' ')
			prevSpace = true
		}
	}
	return strings.TrimSpace(sb.String())
}

// trigrams extracts all character n-grams from the text.
func (c *similarityChecker) trigrams(text string) map[string]struct{} {
	normalized := c.normalize(text)
	set := make(map[string]struct{})
	runes := []rune(normalized)
	for i := 0; i <= len(runes)-c.ngramSize; i++ {
		set[string(runes[i:i+c.ngramSize])] = struct{}{}
	}
	return set
}

// similar reports whether the Jaccard index of the two trigram sets
// reaches the cutoff.
func (c *similarityChecker) similar(a, b string) bool {
	sa := c.trigrams(a)
	sb := c.trigrams(b)
	if len(sa) == 0 || len(sb) == 0 {
		return false
	}

	intersection := 0
	for g := range sa {
		if _, ok := sb[g]; ok {
			intersection++
		}
	}
	union := len(sa) + len(sb) - intersection
	if union == 0 {
		return false
	}
	return float64(intersection)/float64(union) >= c.cutoff
}
