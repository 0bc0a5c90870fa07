package usecase

import (
	"math"

	"FeedbackScanner/internal/domain"
	"FeedbackScanner/internal/ranker"
)

// Stats counts what happened to items over one run.
type Stats struct {
	Fetched          int                      `json:"fetched"`
	Skipped          int                      `json:"skipped"`
	Duplicates       int                      `json:"duplicates"`
	Total            int                      `json:"total"`
	Truncated        int                      `json:"truncated"`
	Classified       int                      `json:"classified"`
	Drafted          int                      `json:"drafted"`
	FetchFailures    int                      `json:"fetchFailures"`
	ClassifyFailures int                      `json:"classifyFailures"`
	DraftFailures    int                      `json:"draftFailures"`
	ByCategory       map[domain.Category]int  `json:"byCategory"`
	ByPriority       map[domain.Priority]int  `json:"byPriority"`
	BySentiment      map[domain.Sentiment]int `json:"bySentiment"`
	BySource         map[domain.Source]int    `json:"bySource"`
}

func newStats() Stats {
	return Stats{
		ByCategory:  map[domain.Category]int{},
		ByPriority:  map[domain.Priority]int{},
		BySentiment: map[domain.Sentiment]int{},
		BySource:    map[domain.Source]int{},
	}
}

func (s *Stats) countClassified(cls domain.ClassificationResult) {
	s.Classified++
	s.ByCategory[cls.Category]++
	s.ByPriority[cls.Priority]++
	s.BySentiment[cls.Sentiment]++
}

// Insights summarizes a set of classified items.
type Insights struct {
	TopIssues      []domain.ClassifiedItem `json:"topIssues"`
	UrgentCount    int                     `json:"urgentCount"`
	SentimentScore int                     `json:"sentimentScore"`
}

const topIssueLimit = 5

var issueCategories = map[domain.Category]bool{
	domain.CategoryBug:            true,
	domain.CategoryComplaint:      true,
	domain.CategoryFeatureRequest: true,
}

// BuildInsights ranks classified items and picks the top actionable issues.
func BuildInsights(items []domain.ClassifiedItem) Insights {
	out := Insights{TopIssues: []domain.ClassifiedItem{}}

	var positive, negative int
	for _, ci := range items {
		switch ci.Classification.Sentiment {
		case domain.SentimentPositive:
			positive++
		case domain.SentimentNegative:
			negative++
		}
		if ci.Classification.Priority == domain.PriorityUrgent {
			out.UrgentCount++
		}
	}
	out.SentimentScore = SentimentScore(positive, negative, len(items))

	for _, ci := range ranker.RankClassified(items) {
		if len(out.TopIssues) == topIssueLimit {
			break
		}
		if issueCategories[ci.Classification.Category] {
			out.TopIssues = append(out.TopIssues, ci)
		}
	}
	return out
}

// SentimentScore maps the positive/negative balance onto 0..100; 50 is neutral.
func SentimentScore(positive, negative, total int) int {
	if total <= 0 {
		return 50
	}
	score := (float64(positive-negative)/float64(total) + 1) * 50
	return domain.Clamp(int(math.Round(score)), 0, 100)
}
