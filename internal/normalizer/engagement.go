package normalizer

import (
	"math"

	"FeedbackScanner/internal/domain"
)

// Interaction totals treated as "very high engagement" (score 100).
const (
	redditCeiling  = 1000.0
	twitterCeiling = 1000.0
)

// RedditEngagement scores a post from its net upvotes and comment count.
func RedditEngagement(score, comments int) int {
	raw := float64(score) + 2*float64(comments)
	if raw <= 0 {
		return 0
	}
	return scale(raw, redditCeiling)
}

// TwitterEngagement weights likes x1, retweets x2, replies x1.5 and quotes x2.5.
func TwitterEngagement(m domain.TweetMetrics) int {
	weighted := float64(m.LikeCount) +
		2*float64(m.RetweetCount) +
		1.5*float64(m.ReplyCount) +
		2.5*float64(m.QuoteCount)
	if weighted <= 0 {
		return 0
	}
	return scale(weighted, twitterCeiling)
}

// SlackEngagement favours threads over emoji reactions.
func SlackEngagement(reactions, replies int) int {
	return domain.Clamp(5*reactions+10*replies, 0, 100)
}

// ForumEngagement scores a support thread from replies and views.
func ForumEngagement(replies, views int) int {
	return domain.Clamp(2*replies+views/50, 0, 100)
}

func scale(value, ceiling float64) int {
	return domain.Clamp(int(math.Round(value/ceiling*100)), 0, 100)
}
