package domain

import "time"

// RawRecord is a source adapter's output before normalization.
// Exactly one payload matching Source is expected to be set.
type RawRecord struct {
	Source Source

	Reddit *RedditPost
	Tweet  *Tweet
	Slack  *SlackMessage
	Forum  *ForumPost
	Text   *TextEntry
}

// RedditPost mirrors the fields of a Reddit listing child the normalizer uses.
type RedditPost struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Selftext     string  `json:"selftext"`
	SelftextHTML string  `json:"selftext_html"`
	Author       string  `json:"author"`
	Subreddit    string  `json:"subreddit"`
	Permalink    string  `json:"permalink"`
	Score        int     `json:"score"`
	NumComments  int     `json:"num_comments"`
	UpvoteRatio  float64 `json:"upvote_ratio"`
	CreatedUTC   float64 `json:"created_utc"`
}

// TweetMetrics holds the public interaction counters of a tweet.
type TweetMetrics struct {
	LikeCount    int `json:"like_count"`
	RetweetCount int `json:"retweet_count"`
	ReplyCount   int `json:"reply_count"`
	QuoteCount   int `json:"quote_count"`
}

// Tweet is a recent-search result joined with its author expansion.
type Tweet struct {
	ID             string
	Text           string
	AuthorID       string
	AuthorName     string
	AuthorUsername string
	CreatedAt      time.Time
	Lang           string
	Hashtags       []string
	Metrics        TweetMetrics
}

// SlackMessage is a message captured by the Slack events webhook.
type SlackMessage struct {
	EventID    string
	Channel    string
	User       string
	Text       string
	TS         string
	ThreadTS   string
	ReplyCount int
	Reactions  int
	Permalink  string
	ReceivedAt time.Time
}

// ForumPost is a support-forum thread scraped from an HTML listing.
type ForumPost struct {
	ID       string
	URL      string
	Title    string
	BodyHTML string
	Author   string
	Replies  int
	Views    int
	PostedAt time.Time
}

// TextEntry is one feedback entry extracted from an uploaded file or call transcript.
type TextEntry struct {
	FileName string
	Index    int
	Title    string
	Author   string
	Content  string
	Recorded time.Time
}
