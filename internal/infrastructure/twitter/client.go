// Package twitter queries the X/Twitter v2 recent-search endpoint.
package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"FeedbackScanner/internal/config"
	"FeedbackScanner/internal/domain"
	"FeedbackScanner/internal/scanner"
)

const (
	defaultBaseURL = "https://api.twitter.com/2"
	minResults     = 10
	maxResults     = 100
)

// Client implements scanner.Scanner with app-only bearer authentication.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ scanner.Scanner = (*Client)(nil)

// NewClient builds a client from configuration.
func NewClient(cfg config.TwitterConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 30
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.BearerToken, TokenType: "Bearer"})
	tc := oauth2.NewClient(context.Background(), ts)
	tc.Timeout = 15 * time.Second

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    tc,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		logger:  logger,
	}
}

// Source implements scanner.Scanner.
func (c *Client) Source() domain.Source {
	return domain.SourceTwitter
}

// Search runs one recent search. Subreddit is ignored; Time is not supported
// by recent search and is ignored as well.
func (c *Client) Search(ctx context.Context, req scanner.Request) (scanner.Result, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return scanner.Result{}, fmt.Errorf("%w: twitter search needs a query", domain.ErrInvalidInput)
	}

	limit := req.Limit
	if limit < minResults {
		limit = minResults
	}
	if limit > maxResults {
		limit = maxResults
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("max_results", strconv.Itoa(limit))
	params.Set("tweet.fields", "created_at,public_metrics,lang,entities,author_id")
	params.Set("expansions", "author_id")
	params.Set("user.fields", "name,username")

	if err := c.limiter.Wait(ctx); err != nil {
		return scanner.Result{}, fmt.Errorf("rate limit wait: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/tweets/search/recent?"+params.Encode(), nil)
	if err != nil {
		return scanner.Result{}, fmt.Errorf("new request: %w", err)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return scanner.Result{}, fmt.Errorf("twitter search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return scanner.Result{}, fmt.Errorf("twitter error %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return scanner.Result{}, fmt.Errorf("decode search: %w", err)
	}

	users := make(map[string]user, len(payload.Includes.Users))
	for _, u := range payload.Includes.Users {
		users[u.ID] = u
	}

	records := make([]domain.RawRecord, 0, len(payload.Data))
	for _, t := range payload.Data {
		author := users[t.AuthorID]
		tags := make([]string, 0, len(t.Entities.Hashtags))
		for _, h := range t.Entities.Hashtags {
			tags = append(tags, h.Tag)
		}
		records = append(records, domain.RawRecord{Source: domain.SourceTwitter, Tweet: &domain.Tweet{
			ID:             t.ID,
			Text:           t.Text,
			AuthorID:       t.AuthorID,
			AuthorName:     author.Name,
			AuthorUsername: author.Username,
			CreatedAt:      t.CreatedAt,
			Lang:           t.Lang,
			Hashtags:       tags,
			Metrics:        t.PublicMetrics,
		}})
	}

	c.logger.Debug("twitter search", "query", query, "tweets", len(records))
	return scanner.Result{
		Records: records,
		Meta:    map[string]any{"next_token": payload.Meta.NextToken, "result_count": payload.Meta.ResultCount},
	}, nil
}

type searchResponse struct {
	Data     []tweet `json:"data"`
	Includes struct {
		Users []user `json:"users"`
	} `json:"includes"`
	Meta struct {
		NextToken   string `json:"next_token"`
		ResultCount int    `json:"result_count"`
	} `json:"meta"`
}

type tweet struct {
	ID            string              `json:"id"`
	Text          string              `json:"text"`
	AuthorID      string              `json:"author_id"`
	CreatedAt     time.Time           `json:"created_at"`
	Lang          string              `json:"lang"`
	PublicMetrics domain.TweetMetrics `json:"public_metrics"`
	Entities      struct {
		Hashtags []struct {
			Tag string `json:"tag"`
		} `json:"hashtags"`
	} `json:"entities"`
}

type user struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}
