// Package reddit searches Reddit listings for feedback posts.
package reddit

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
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"FeedbackScanner/internal/config"
	"FeedbackScanner/internal/domain"
	"FeedbackScanner/internal/scanner"
)

const (
	publicBaseURL   = "https://www.reddit.com"
	oauthBaseURL    = "https://oauth.reddit.com"
	defaultTokenURL = "https://www.reddit.com/api/v1/access_token"
	maxLimit        = 100
)

// Client implements scanner.Scanner on top of the Reddit JSON API.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	logger    *slog.Logger
}

var _ scanner.Scanner = (*Client)(nil)

// NewClient builds a client. With a client id and secret it authenticates as
// an app (client credentials grant) against the OAuth host; otherwise it reads
// the public listings.
func NewClient(cfg config.RedditConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	baseURL := cfg.BaseURL
	httpClient := &http.Client{Timeout: 15 * time.Second}
	if cfg.ClientID != "" {
		tokenURL := cfg.TokenURL
		if tokenURL == "" {
			tokenURL = defaultTokenURL
		}
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		httpClient = cc.Client(context.WithValue(context.Background(), oauth2.HTTPClient, httpClient))
		httpClient.Timeout = 15 * time.Second
		if baseURL == "" {
			baseURL = oauthBaseURL
		}
	}
	if baseURL == "" {
		baseURL = publicBaseURL
	}

	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}

	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: cfg.UserAgent,
		http:      httpClient,
		limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		logger:    logger,
	}
}

// Source implements scanner.Scanner.
func (c *Client) Source() domain.Source {
	return domain.SourceReddit
}

// Search runs one (query, subreddit) search. An empty query lists the newest
// posts of the subreddit.
func (c *Client) Search(ctx context.Context, req scanner.Request) (scanner.Result, error) {
	endpoint, err := c.buildURL(req)
	if err != nil {
		return scanner.Result{}, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return scanner.Result{}, fmt.Errorf("rate limit wait: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return scanner.Result{}, fmt.Errorf("new request: %w", err)
	}
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return scanner.Result{}, fmt.Errorf("reddit search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return scanner.Result{}, fmt.Errorf("reddit error %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var payload listing
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return scanner.Result{}, fmt.Errorf("decode listing: %w", err)
	}

	records := make([]domain.RawRecord, 0, len(payload.Data.Children))
	for _, child := range payload.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		post := child.Data
		records = append(records, domain.RawRecord{Source: domain.SourceReddit, Reddit: &post})
	}

	c.logger.Debug("reddit search", "query", req.Query, "subreddit", req.Subreddit, "posts", len(records))
	return scanner.Result{
		Records: records,
		Meta:    map[string]any{"after": payload.Data.After},
	}, nil
}

func (c *Client) buildURL(req scanner.Request) (string, error) {
	query := strings.TrimSpace(req.Query)
	sub := strings.TrimPrefix(strings.TrimSpace(req.Subreddit), "r/")
	if query == "" && sub == "" {
		return "", fmt.Errorf("%w: reddit search needs a query or a subreddit", domain.ErrInvalidInput)
	}

	limit := req.Limit
	if limit <= 0 || limit > maxLimit {
		limit = maxLimit
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("raw_json", "1")

	var path string
	switch {
	case query == "":
		path = "/r/" + url.PathEscape(sub) + "/new.json"
	case sub == "":
		path = "/search.json"
		params.Set("q", query)
		params.Set("sort", "new")
		params.Set("type", "link")
	default:
		path = "/r/" + url.PathEscape(sub) + "/search.json"
		params.Set("q", query)
		params.Set("sort", "new")
		params.Set("restrict_sr", "1")
	}
	if req.Time != "" && query != "" {
		params.Set("t", req.Time)
	}

	return c.baseURL + path + "?" + params.Encode(), nil
}

type listing struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Kind string            `json:"kind"`
			Data domain.RedditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}
