package normalizer

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FeedbackScanner/internal/domain"
)

var fetched = time.Date(2025, time.November, 8, 12, 0, 0, 0, time.UTC)

func TestTwitterEngagementFormula(t *testing.T) {
	t.Parallel()

	score := TwitterEngagement(domain.TweetMetrics{LikeCount: 100, RetweetCount: 50, ReplyCount: 20})
	assert.Equal(t, 23, score)
	assert.LessOrEqual(t, score, 100)

	assert.Equal(t, 100, TwitterEngagement(domain.TweetMetrics{LikeCount: 90000, QuoteCount: 4000}))
	assert.Equal(t, 0, TwitterEngagement(domain.TweetMetrics{}))
}

func TestRedditEngagementMonotonicAndClamped(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, RedditEngagement(-20, 0))
	assert.Equal(t, 5, RedditEngagement(30, 10))
	assert.LessOrEqual(t, RedditEngagement(30, 10), RedditEngagement(31, 10))
	assert.Less(t, RedditEngagement(30, 10), RedditEngagement(130, 10))
	assert.Less(t, RedditEngagement(30, 10), RedditEngagement(30, 60))
	assert.Equal(t, 100, RedditEngagement(5000, 900))
}

func TestOtherEngagementFormulas(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 35, SlackEngagement(3, 2))
	assert.Equal(t, 100, SlackEngagement(30, 30))
	assert.Equal(t, 12, ForumEngagement(5, 100))
}

func TestNormalizeReddit(t *testing.T) {
	t.Parallel()

	res := Normalize([]domain.RawRecord{{
		Source: domain.SourceReddit,
		Reddit: &domain.RedditPost{
			ID:          "abc",
			Title:       "Dark mode please",
			Selftext:    "  The app burns my eyes at night.  ",
			Author:      "nightowl",
			Subreddit:   "productivity",
			Permalink:   "/r/productivity/comments/abc/dark_mode_please/",
			Score:       120,
			NumComments: 40,
			CreatedUTC:  1762560000,
		},
	}}, fetched)

	require.Len(t, res.Items, 1)
	assert.Empty(t, res.Skipped)

	item := res.Items[0]
	assert.Equal(t, "reddit:abc", item.ID)
	assert.Equal(t, domain.SourceReddit, item.Source)
	assert.Equal(t, "The app burns my eyes at night.", item.Content)
	assert.Equal(t, "https://www.reddit.com/r/productivity/comments/abc/dark_mode_please/", item.SourceURL)
	assert.Equal(t, "u/nightowl", item.AuthorHandle)
	assert.Equal(t, 20, item.EngagementScore)
	assert.Equal(t, time.Unix(1762560000, 0).UTC(), item.CreatedAt)
	assert.Equal(t, fetched, item.FetchedAt)
	assert.Equal(t, "productivity", item.Metadata["subreddit"])
}

func TestNormalizeRedditFallbacks(t *testing.T) {
	t.Parallel()

	res := Normalize([]domain.RawRecord{
		{Source: domain.SourceReddit, Reddit: &domain.RedditPost{ID: "t1", Title: "Sync keeps failing"}},
		{Source: domain.SourceReddit, Reddit: &domain.RedditPost{ID: "t2", SelftextHTML: "&lt;div class=&quot;md&quot;&gt;&lt;p&gt;First line&lt;/p&gt;&lt;p&gt;Second   line&lt;/p&gt;&lt;/div&gt;"}},
		{Source: domain.SourceReddit, Reddit: &domain.RedditPost{ID: "t3"}},
		{Source: domain.SourceReddit, Reddit: &domain.RedditPost{Title: "no id"}},
	}, fetched)

	require.Len(t, res.Items, 2)
	assert.Equal(t, "Sync keeps failing", res.Items[0].Content)
	assert.Equal(t, "First line\nSecond line", res.Items[1].Content)
	assert.Equal(t, fetched, res.Items[0].CreatedAt)
	assert.Len(t, res.Skipped, 2)
}

func TestNormalizeTweet(t *testing.T) {
	t.Parallel()

	res := Normalize([]domain.RawRecord{{
		Source: domain.SourceTwitter,
		Tweet: &domain.Tweet{
			ID:             "1850",
			Text:           "Love the new #roadmap view, but #export is slow",
			AuthorName:     "Dana",
			AuthorUsername: "dana_pm",
			CreatedAt:      fetched.Add(-time.Hour),
			Metrics:        domain.TweetMetrics{LikeCount: 100, RetweetCount: 50, ReplyCount: 20},
		},
	}}, fetched)

	require.Len(t, res.Items, 1)
	item := res.Items[0]
	assert.Equal(t, "twitter:1850", item.ID)
	assert.Equal(t, "https://x.com/dana_pm/status/1850", item.SourceURL)
	assert.Equal(t, "@dana_pm", item.AuthorHandle)
	assert.Equal(t, 23, item.EngagementScore)
	assert.Equal(t, []string{"roadmap", "export"}, item.Metadata["hashtags"])
}

func TestNormalizeSlackAndText(t *testing.T) {
	t.Parallel()

	res := Normalize([]domain.RawRecord{
		{Source: domain.SourceSlack, Slack: &domain.SlackMessage{
			Channel: "C01", TS: "1762560000.000200", User: "U42",
			Text: "<@U99> the <https://app.example.com/reports|reports page> times out", Reactions: 2,
		}},
		{Source: domain.SourceFile, Text: &domain.TextEntry{FileName: "survey.csv", Index: 3, Content: "Pricing is confusing"}},
		{Source: domain.SourceCall, Text: &domain.TextEntry{FileName: "call-17.txt", Index: 0, Content: "   "}},
		{Source: domain.SourceSlack},
	}, fetched)

	require.Len(t, res.Items, 2)
	assert.Equal(t, "slack:C01-1762560000.000200", res.Items[0].ID)
	assert.Equal(t, "U99 the reports page times out", res.Items[0].Content)
	assert.Equal(t, 10, res.Items[0].EngagementScore)
	assert.Equal(t, "file:"+TextSourceID("survey.csv", "Pricing is confusing"), res.Items[1].ID)
	assert.Equal(t, 3, res.Items[1].Metadata["entry"])
	assert.Empty(t, res.Items[1].SourceURL)
	assert.Len(t, res.Skipped, 2)
}

func TestNormalizeForumPost(t *testing.T) {
	t.Parallel()

	res := Normalize([]domain.RawRecord{{
		Source: domain.SourceSupport,
		Forum: &domain.ForumPost{
			ID: "thread-9", URL: "https://community.example.com/t/9", Title: "Webhooks stopped",
			BodyHTML: "<p>Since Monday our webhooks <b>never</b> fire.</p><script>track()</script>",
			Replies:  4, Views: 300,
		},
	}}, fetched)

	require.Len(t, res.Items, 1)
	assert.Equal(t, "Since Monday our webhooks never fire.", res.Items[0].Content)
	assert.Equal(t, 14, res.Items[0].EngagementScore)
}

func TestHTMLTextPlainInput(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", HTMLText("   "))
	assert.Equal(t, "just text", HTMLText("just   text"))
	assert.Equal(t, "a\nb", HTMLText("a<br>b"))
}

func TestTextSourceIDFollowsContent(t *testing.T) {
	t.Parallel()

	a := TextSourceID("feedback.txt", "export fails on large projects")
	assert.True(t, strings.HasPrefix(a, "feedback.txt#"))
	assert.Equal(t, a, TextSourceID("feedback.txt", "  export fails\n on   large projects "))
	assert.NotEqual(t, a, TextSourceID("feedback.txt", "search is slow on mobile"))
	assert.NotEqual(t, a, TextSourceID("other.txt", "export fails on large projects"))

	res := Normalize([]domain.RawRecord{
		{Source: domain.SourceFile, Text: &domain.TextEntry{FileName: "feedback.txt", Index: 0, Content: "export fails on large projects"}},
		{Source: domain.SourceFile, Text: &domain.TextEntry{FileName: "feedback.txt", Index: 0, Content: "search is slow on mobile"}},
	}, fetched)
	require.Len(t, res.Items, 2)
	assert.NotEqual(t, res.Items[0].ID, res.Items[1].ID)
	assert.Equal(t, "feedback.txt", res.Items[1].Metadata["file_name"])
}
