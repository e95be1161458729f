package summarize

import (
	"fmt"
	"strings"

	"github.com/brieflyhq/briefly/pkg/models"
)

// summarizeSystemPrompt frames the per-category summarization call.
func summarizeSystemPrompt(profession string, category models.Category) string {
	return fmt.Sprintf("You are a professional AI %s summarizer. Create one numbered point for each search result provided. Use plain text formatting only, no markdown links.", category)
}

// summarizeUserPrompt lists the results and asks for one point per result,
// each ending with its source URL in a fixed plain-text form the parser
// can recover.
func summarizeUserPrompt(profession string, category models.Category, results []models.SearchResult) string {
	var content strings.Builder
	for i, r := range results {
		fmt.Fprintf(&content, "\n%d. %s\n", i+1, r.Title)
		fmt.Fprintf(&content, "   %s\n", r.Snippet)
		fmt.Fprintf(&content, "   Source: %s\n", r.URL)
	}

	return fmt.Sprintf(`Based on the following search results about AI %[1]s for %[2]s,
create a numbered point for EACH result provided. Each point should be:
- Numbered sequentially (1., 2., 3., etc.)
- Concise but informative summary of that specific result
- Specifically relevant to %[2]s
- Based SOLELY on the provided search results
- MUST end with exactly "read more at: [URL]" (plain text, no markdown links)

Create one numbered point for each of the %[3]d results provided.

Search Results:
%[4]s

Please provide your response as numbered points, one for each result, ensuring each point ends with exactly "read more at: [URL]" in plain text format:`,
		category, profession, len(results), content.String())
}

// deepSummarizeSystemPrompt frames the deep-dive explanation call.
func deepSummarizeSystemPrompt(profession string) string {
	return fmt.Sprintf("You are an expert analyst providing detailed explanations for %ss. Be thorough and insightful while remaining accessible.", profession)
}

// deepSummarizeUserPrompt asks for a detailed, profession-specific
// explanation of one article.
func deepSummarizeUserPrompt(url, content, profession string) string {
	return fmt.Sprintf(`Based on the following article content, provide a detailed and thorough explanation specifically for a %[1]s.

Focus on:
- Key insights and takeaways relevant to %[1]ss
- Practical applications and implications
- Important details and context
- How this relates to their work or industry

Keep the explanation comprehensive but accessible. Use clear paragraphs and structure.

Article URL: %[2]s

Article Content:
%[3]s

Please provide a detailed explanation:`, profession, url, content)
}
