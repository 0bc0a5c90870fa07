package usecase

import (
	"fmt"
	"strings"
)

// BuildDigest renders a plain-text summary of a batch run for chat channels.
func BuildDigest(res BatchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Feedback digest (%d items, %d urgent, sentiment %d/100)\n",
		len(res.Classified), res.Insights.UrgentCount, res.Insights.SentimentScore)

	if len(res.Insights.TopIssues) > 0 {
		b.WriteString("\nTop issues:\n")
	}
	for _, ci := range res.Insights.TopIssues {
		title := ci.Item.Title
		if title == "" {
			title = truncate(ci.Item.Content, 120)
		}
		fmt.Fprintf(&b, "- [%s/%s] %s\n", ci.Classification.Priority, ci.Classification.Category, title)
		if ci.Item.SourceURL != "" {
			fmt.Fprintf(&b, "  %s\n", ci.Item.SourceURL)
		}
	}

	if len(res.Warnings) > 0 {
		fmt.Fprintf(&b, "\n%d warnings during the run\n", len(res.Warnings))
	}
	return b.String()
}

func truncate(s string, max int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= max {
		return string(runes)
	}
	return string(runes[:max]) + "..."
}
