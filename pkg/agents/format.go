package agents

import (
	"fmt"
	"strings"

	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
)

const separator = "**********"

// formatResearch renders research results as prompt context: the summary of
// each query, or a note that its search failed.
func formatResearch(results []domain.ResearchResult) string {
	if len(results) == 0 {
		return "No research results yet."
	}
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n" + separator + "\n\n")
		}
		fmt.Fprintf(&b, "Query %d: %s\n", i+1, r.Query)
		switch {
		case r.Failed():
			fmt.Fprintf(&b, "Search failed: %s\n", r.Error)
		case r.Summary != "":
			b.WriteString(r.Summary + "\n")
		default:
			b.WriteString("No findings.\n")
		}
	}
	return strings.TrimSpace(b.String())
}

// formatHits renders the raw search hits of one query for summarisation.
func formatHits(hits []domain.SearchHit) string {
	var b strings.Builder
	for i, h := range hits {
		if i > 0 {
			b.WriteString("\n" + separator + "\n\n")
		}
		fmt.Fprintf(&b, "Source %d: %s\nURL: %s\n\n%s\n", i+1, h.Title, h.URL, h.Content)
	}
	return strings.TrimSpace(b.String())
}

// wordCount counts whitespace separated words.
func wordCount(s string) int {
	return len(strings.Fields(s))
}
