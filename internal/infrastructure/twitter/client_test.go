package twitter

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

const searchJSON = `{
  "data": [{
    "id": "1850",
    "text": "Checkout keeps failing on iOS #acme #bug",
    "author_id": "u1",
    "created_at": "2025-11-07T10:00:00.000Z",
    "lang": "en",
    "public_metrics": {"like_count": 100, "retweet_count": 50, "reply_count": 20, "quote_count": 0},
    "entities": {"hashtags": [{"tag": "acme"}, {"tag": "bug"}]}
  }],
  "includes": {"users": [{"id": "u1", "name": "Jane Doe", "username": "jane"}]},
  "meta": {"result_count": 1, "next_token": "nt"}
}`

func TestSearchJoinsAuthors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tweets/search/recent" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("max_results") != "10" || r.URL.Query().Get("expansions") != "author_id" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searchJSON))
	}))
	defer srv.Close()

	c := NewClient(config.TwitterConfig{BearerToken: "secret", BaseURL: srv.URL, RequestsPerMinute: 6000}, nil)
	res, err := c.Search(context.Background(), scanner.Request{Query: "acme checkout", Limit: 5})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)

	tw := res.Records[0].Tweet
	require.NotNil(t, tw)
	assert.Equal(t, domain.SourceTwitter, res.Records[0].Source)
	assert.Equal(t, "jane", tw.AuthorUsername)
	assert.Equal(t, "Jane Doe", tw.AuthorName)
	assert.Equal(t, []string{"acme", "bug"}, tw.Hashtags)
	assert.Equal(t, 50, tw.Metrics.RetweetCount)
	assert.Equal(t, 2025, tw.CreatedAt.Year())
	assert.Equal(t, "nt", res.Meta["next_token"])
}

func TestSearchRequiresQuery(t *testing.T) {
	t.Parallel()

	c := NewClient(config.TwitterConfig{BearerToken: "x"}, nil)
	_, err := c.Search(context.Background(), scanner.Request{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSearchSurfacesAPIErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"title":"Unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(config.TwitterConfig{BearerToken: "bad", BaseURL: srv.URL, RequestsPerMinute: 6000}, nil)
	_, err := c.Search(context.Background(), scanner.Request{Query: "acme"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
