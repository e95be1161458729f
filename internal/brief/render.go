package brief

import (
	"fmt"
	"strings"

	"github.com/brieflyhq/briefly/pkg/models"
)

// Render formats a newsletter for terminal display.
func Render(n *models.Newsletter) string {
	var sb strings.Builder

	title := fmt.Sprintf("AI Updates for %ss", titleCase(n.Profession))
	sb.WriteString(title + "\n")
	sb.WriteString(strings.Repeat("=", len(title)) + "\n\n")

	if len(n.Points) == 0 {
		sb.WriteString("No relevant AI updates found.\n")
	}
	for _, p := range n.Points {
		fmt.Fprintf(&sb, "%d. %s\n\n", p.Rank, p.Summary)
	}

	sb.WriteString("---\n")
	fmt.Fprintf(&sb, "Generated on: %s\n", n.CreatedAt.Format("January 2, 2006"))
	fmt.Fprintf(&sb, "Tailored for: %ss\n", n.Profession)
	fmt.Fprintf(&sb, "Time range: %s\n", n.Window.Label())
	if n.Partial {
		sb.WriteString("Note: one source was unavailable; this edition is partial.\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// titleCase uppercases the first letter of each word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
