package domain

import (
	"fmt"
	"time"
)

// Source tags the platform a piece of feedback came from.
type Source string

const (
	SourceReddit  Source = "reddit"
	SourceTwitter Source = "twitter"
	SourceSlack   Source = "slack"
	SourceSupport Source = "support"
	SourceCall    Source = "call"
	SourceFile    Source = "file"
)

// Valid reports whether s is one of the known origin tags.
func (s Source) Valid() bool {
	switch s {
	case SourceReddit, SourceTwitter, SourceSlack, SourceSupport, SourceCall, SourceFile:
		return true
	}
	return false
}

// FeedbackItem is the canonical normalized unit of customer feedback.
type FeedbackItem struct {
	ID              string         `json:"id"`
	Source          Source         `json:"source"`
	SourceID        string         `json:"sourceId"`
	SourceURL       string         `json:"sourceUrl"`
	Title           string         `json:"title,omitempty"`
	Content         string         `json:"content"`
	Author          string         `json:"author"`
	AuthorHandle    string         `json:"authorHandle,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	FetchedAt       time.Time      `json:"fetchedAt"`
	EngagementScore int            `json:"engagementScore"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// ItemID derives the run-stable identifier of an item.
func ItemID(source Source, sourceID string) string {
	return fmt.Sprintf("%s:%s", source, sourceID)
}

// Key identifies the logical item; equal keys always collapse during dedup.
func (f FeedbackItem) Key() string {
	return ItemID(f.Source, f.SourceID)
}

// Category is the classifier's verdict on what the feedback is about.
type Category string

const (
	CategoryBug            Category = "bug"
	CategoryFeatureRequest Category = "feature_request"
	CategoryPraise         Category = "praise"
	CategoryQuestion       Category = "question"
	CategoryComplaint      Category = "complaint"
	CategoryOther          Category = "other"
)

// Categories lists every category in reporting order.
var Categories = []Category{
	CategoryBug, CategoryFeatureRequest, CategoryPraise,
	CategoryQuestion, CategoryComplaint, CategoryOther,
}

// Priority orders how urgently feedback needs attention.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Priorities lists every priority from most to least urgent.
var Priorities = []Priority{PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow}

// Rank maps a priority onto an ordinal; unknown values rank below low.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// Sentiment is the emotional tone of the feedback.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// ClassificationResult is produced by the classifier collaborator.
type ClassificationResult struct {
	Category        Category  `json:"category"`
	Priority        Priority  `json:"priority"`
	Sentiment       Sentiment `json:"sentiment"`
	Confidence      int       `json:"confidence"`
	CustomerSegment string    `json:"customerSegment,omitempty"`
	DuplicateOf     string    `json:"duplicateOf,omitempty"`
}

// Sanitize coerces out-of-range collaborator output into valid values.
func (c ClassificationResult) Sanitize() ClassificationResult {
	switch c.Category {
	case CategoryBug, CategoryFeatureRequest, CategoryPraise, CategoryQuestion, CategoryComplaint, CategoryOther:
	default:
		c.Category = CategoryOther
	}
	if c.Priority.Rank() == 0 {
		c.Priority = PriorityMedium
	}
	switch c.Sentiment {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
	default:
		c.Sentiment = SentimentNeutral
	}
	c.Confidence = Clamp(c.Confidence, 0, 100)
	return c
}

// ClassifiedItem pairs an item with its classification.
type ClassifiedItem struct {
	Item           FeedbackItem         `json:"item"`
	Classification ClassificationResult `json:"classification"`
}

// Draft is the drafter collaborator's proposal for a ticket.
type Draft struct {
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	SuggestedLabels   []string `json:"suggestedLabels"`
	SuggestedPriority Priority `json:"suggestedPriority"`
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
