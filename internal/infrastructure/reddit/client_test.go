package reddit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FeedbackScanner/internal/config"
	"FeedbackScanner/internal/domain"
	"FeedbackScanner/internal/scanner"
)

const listingJSON = `{"kind":"Listing","data":{"after":"t3_next","children":[
  {"kind":"t3","data":{"id":"abc","title":"Export broken","selftext":"csv export fails","author":"jane","subreddit":"acme","permalink":"/r/acme/comments/abc/export_broken/","score":12,"num_comments":3,"created_utc":1731067200}},
  {"kind":"t1","data":{"id":"comment"}}
]}}`

func TestSearchWithAppCredentials(t *testing.T) {
	t.Parallel()

	var tokenCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/access_token":
			tokenCalls++
			user, pass, ok := r.BasicAuth()
			if !ok || user != "cid" || pass != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":3600}`))
		case "/r/acme/search.json":
			if r.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			q := r.URL.Query()
			if q.Get("q") != "export" || q.Get("restrict_sr") != "1" || q.Get("limit") != "10" || q.Get("t") != "week" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if r.Header.Get("User-Agent") != "test-agent" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			_, _ = w.Write([]byte(listingJSON))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(config.RedditConfig{
		ClientID:          "cid",
		ClientSecret:      "secret",
		UserAgent:         "test-agent",
		BaseURL:           srv.URL,
		TokenURL:          srv.URL + "/api/v1/access_token",
		RequestsPerMinute: 6000,
	}, nil)

	res, err := c.Search(context.Background(), scanner.Request{Query: "export", Subreddit: "acme", Limit: 10, Time: "week"})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, domain.SourceReddit, res.Records[0].Source)
	assert.Equal(t, "abc", res.Records[0].Reddit.ID)
	assert.Equal(t, 3, res.Records[0].Reddit.NumComments)
	assert.Equal(t, "t3_next", res.Meta["after"])

	_, err = c.Search(context.Background(), scanner.Request{Query: "export", Subreddit: "acme", Limit: 10, Time: "week"})
	require.NoError(t, err)
	assert.Equal(t, 1, tokenCalls)
}

func TestBuildURL(t *testing.T) {
	t.Parallel()

	c := NewClient(config.RedditConfig{BaseURL: "https://example.test/", UserAgent: "ua"}, nil)

	u, err := c.buildURL(scanner.Request{Subreddit: "r/acme", Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/r/acme/new.json?limit=100&raw_json=1", u)

	u, err = c.buildURL(scanner.Request{Query: "dark mode"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/search.json?limit=100&q=dark+mode&raw_json=1&sort=new&type=link", u)

	_, err = c.buildURL(scanner.Request{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSearchReportsHTTPErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(config.RedditConfig{BaseURL: srv.URL, UserAgent: "ua", RequestsPerMinute: 6000}, nil)
	_, err := c.Search(context.Background(), scanner.Request{Query: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
