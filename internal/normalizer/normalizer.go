// Package normalizer maps source-specific raw records onto domain.FeedbackItem.
package normalizer

import (
	"fmt"
	"strings"
	"time"

	"FeedbackScanner/internal/domain"
)

// Skip records a raw record that could not be normalized.
type Skip struct {
	Source domain.Source
	Reason string
}

// Result is the outcome of normalizing one batch.
type Result struct {
	Items   []domain.FeedbackItem
	Skipped []Skip
}

// Normalize converts each record into one FeedbackItem. Malformed records and
// records without usable content are skipped; the batch never fails as a whole.
func Normalize(records []domain.RawRecord, fetchedAt time.Time) Result {
	res := Result{Items: make([]domain.FeedbackItem, 0, len(records))}
	for _, rec := range records {
		item, err := normalizeOne(rec, fetchedAt)
		if err != nil {
			res.Skipped = append(res.Skipped, Skip{Source: rec.Source, Reason: err.Error()})
			continue
		}
		res.Items = append(res.Items, item)
	}
	return res
}

func normalizeOne(rec domain.RawRecord, fetchedAt time.Time) (domain.FeedbackItem, error) {
	var (
		item domain.FeedbackItem
		err  error
	)

	switch {
	case rec.Source == domain.SourceReddit && rec.Reddit != nil:
		item, err = fromReddit(rec.Reddit)
	case rec.Source == domain.SourceTwitter && rec.Tweet != nil:
		item, err = fromTweet(rec.Tweet)
	case rec.Source == domain.SourceSlack && rec.Slack != nil:
		item, err = fromSlack(rec.Slack)
	case rec.Source == domain.SourceSupport && rec.Forum != nil:
		item, err = fromForum(rec.Forum)
	case (rec.Source == domain.SourceFile || rec.Source == domain.SourceCall) && rec.Text != nil:
		item, err = fromText(rec.Source, rec.Text)
	default:
		return domain.FeedbackItem{}, fmt.Errorf("%w: no %s payload", domain.ErrMalformedRecord, rec.Source)
	}
	if err != nil {
		return domain.FeedbackItem{}, err
	}

	item.Content = strings.TrimSpace(item.Content)
	if item.Content == "" {
		return domain.FeedbackItem{}, fmt.Errorf("%w: %s record %s has no content", domain.ErrMalformedRecord, rec.Source, item.SourceID)
	}
	if item.SourceID == "" {
		return domain.FeedbackItem{}, fmt.Errorf("%w: %s record has no id", domain.ErrMalformedRecord, rec.Source)
	}

	item.Source = rec.Source
	item.ID = domain.ItemID(item.Source, item.SourceID)
	item.FetchedAt = fetchedAt.UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = item.FetchedAt
	}
	item.EngagementScore = domain.Clamp(item.EngagementScore, 0, 100)
	return item, nil
}
