package normalizer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"FeedbackScanner/internal/domain"
)

const (
	redditBaseURL  = "https://www.reddit.com"
	twitterBaseURL = "https://x.com"
)

var (
	hashtagExpr   = regexp.MustCompile(`#(\w+)`)
	slackLinkExpr = regexp.MustCompile(`<([^<>|]+)\|([^<>]+)>`)
	slackRefExpr  = regexp.MustCompile(`<[@#!]?([^<>]+)>`)
)

func fromReddit(p *domain.RedditPost) (domain.FeedbackItem, error) {
	if strings.TrimSpace(p.ID) == "" {
		return domain.FeedbackItem{}, fmt.Errorf("%w: reddit post without id", domain.ErrMalformedRecord)
	}

	content := strings.TrimSpace(p.Selftext)
	if content == "" && p.SelftextHTML != "" {
		content = HTMLText(p.SelftextHTML)
	}
	if content == "" {
		content = strings.TrimSpace(p.Title)
	}

	url := ""
	if p.Permalink != "" {
		url = redditBaseURL + p.Permalink
	}

	handle := ""
	if p.Author != "" {
		handle = "u/" + p.Author
	}

	return domain.FeedbackItem{
		SourceID:        p.ID,
		SourceURL:       url,
		Title:           strings.TrimSpace(p.Title),
		Content:         content,
		Author:          p.Author,
		AuthorHandle:    handle,
		CreatedAt:       unixSeconds(p.CreatedUTC),
		EngagementScore: RedditEngagement(p.Score, p.NumComments),
		Metadata: map[string]any{
			"subreddit":    p.Subreddit,
			"score":        p.Score,
			"num_comments": p.NumComments,
			"upvote_ratio": p.UpvoteRatio,
		},
	}, nil
}

func fromTweet(t *domain.Tweet) (domain.FeedbackItem, error) {
	if strings.TrimSpace(t.ID) == "" {
		return domain.FeedbackItem{}, fmt.Errorf("%w: tweet without id", domain.ErrMalformedRecord)
	}

	hashtags := t.Hashtags
	if len(hashtags) == 0 {
		for _, m := range hashtagExpr.FindAllStringSubmatch(t.Text, -1) {
			hashtags = append(hashtags, m[1])
		}
	}

	author := t.AuthorName
	if author == "" {
		author = t.AuthorUsername
	}
	url, handle := "", ""
	if t.AuthorUsername != "" {
		handle = "@" + t.AuthorUsername
		url = fmt.Sprintf("%s/%s/status/%s", twitterBaseURL, t.AuthorUsername, t.ID)
	}

	return domain.FeedbackItem{
		SourceID:        t.ID,
		SourceURL:       url,
		Content:         t.Text,
		Author:          author,
		AuthorHandle:    handle,
		CreatedAt:       t.CreatedAt.UTC(),
		EngagementScore: TwitterEngagement(t.Metrics),
		Metadata: map[string]any{
			"hashtags":      hashtags,
			"like_count":    t.Metrics.LikeCount,
			"retweet_count": t.Metrics.RetweetCount,
			"reply_count":   t.Metrics.ReplyCount,
			"quote_count":   t.Metrics.QuoteCount,
			"lang":          t.Lang,
		},
	}, nil
}

func fromSlack(m *domain.SlackMessage) (domain.FeedbackItem, error) {
	if m.Channel == "" || m.TS == "" {
		return domain.FeedbackItem{}, fmt.Errorf("%w: slack message without channel or ts", domain.ErrMalformedRecord)
	}

	created := slackTimestamp(m.TS)
	if created.IsZero() {
		created = m.ReceivedAt
	}

	return domain.FeedbackItem{
		SourceID:        m.Channel + "-" + m.TS,
		SourceURL:       m.Permalink,
		Content:         SlackText(m.Text),
		Author:          m.User,
		AuthorHandle:    m.User,
		CreatedAt:       created.UTC(),
		EngagementScore: SlackEngagement(m.Reactions, m.ReplyCount),
		Metadata: map[string]any{
			"channel":     m.Channel,
			"thread_ts":   m.ThreadTS,
			"reactions":   m.Reactions,
			"reply_count": m.ReplyCount,
		},
	}, nil
}

func fromForum(p *domain.ForumPost) (domain.FeedbackItem, error) {
	if p.ID == "" {
		return domain.FeedbackItem{}, fmt.Errorf("%w: forum post without id", domain.ErrMalformedRecord)
	}

	content := HTMLText(p.BodyHTML)
	if content == "" {
		content = strings.TrimSpace(p.Title)
	}

	return domain.FeedbackItem{
		SourceID:        p.ID,
		SourceURL:       p.URL,
		Title:           strings.TrimSpace(p.Title),
		Content:         content,
		Author:          p.Author,
		CreatedAt:       p.PostedAt.UTC(),
		EngagementScore: ForumEngagement(p.Replies, p.Views),
		Metadata: map[string]any{
			"replies": p.Replies,
			"views":   p.Views,
		},
	}, nil
}

func fromText(source domain.Source, e *domain.TextEntry) (domain.FeedbackItem, error) {
	if e.FileName == "" {
		return domain.FeedbackItem{}, fmt.Errorf("%w: %s entry without file name", domain.ErrMalformedRecord, source)
	}

	return domain.FeedbackItem{
		SourceID:  TextSourceID(e.FileName, e.Content),
		Title:     strings.TrimSpace(e.Title),
		Content:   e.Content,
		Author:    e.Author,
		CreatedAt: e.Recorded.UTC(),
		Metadata: map[string]any{
			"file_name": e.FileName,
			"entry":     e.Index,
		},
	}, nil
}

// TextSourceID keys an uploaded entry by its file name and a digest of its
// whitespace-normalized content, so re-uploads under the same name only collide
// when the text is the same.
func TextSourceID(fileName, content string) string {
	sum := sha256.Sum256([]byte(strings.Join(strings.Fields(content), " ")))
	return fileName + "#" + hex.EncodeToString(sum[:8])
}

// SlackText flattens Slack mrkdwn links and mentions into plain text.
func SlackText(text string) string {
	text = slackLinkExpr.ReplaceAllString(text, "$2")
	text = slackRefExpr.ReplaceAllString(text, "$1")
	return strings.TrimSpace(text)
}

func unixSeconds(v float64) time.Time {
	if v <= 0 {
		return time.Time{}
	}
	sec, frac := math.Modf(v)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}

func slackTimestamp(ts string) time.Time {
	v, err := strconv.ParseFloat(ts, 64)
	if err != nil {
		return time.Time{}
	}
	return unixSeconds(v)
}
