package ml

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FeedbackScanner/internal/config"
	"FeedbackScanner/internal/domain"
)

func TestClientClassifyAndDraft(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/classify", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"category": "feature_request", "priority": "low", "sentiment": "positive", "confidence": 77,
		})
	})
	mux.HandleFunc("/draft", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body, "classification")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"title": "Add dark mode", "description": "Requested on forum", "suggestedLabels": []string{"enhancement"},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(config.MLConfig{InferenceURL: srv.URL + "/", APIKey: "secret"}, 0)
	item := domain.FeedbackItem{ID: "support:1", Content: "please add dark mode"}

	cls, err := c.Classify(context.Background(), item)
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryFeatureRequest, cls.Category)
	assert.Equal(t, 77, cls.Confidence)

	draft, err := c.Draft(context.Background(), item, cls)
	require.NoError(t, err)
	assert.Equal(t, "Add dark mode", draft.Title)
	assert.Equal(t, []string{"enhancement"}, draft.SuggestedLabels)
}

func TestClientErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(config.MLConfig{InferenceURL: srv.URL}, 0).Classify(context.Background(), domain.FeedbackItem{})
	assert.ErrorContains(t, err, "503")

	_, err = NewClient(config.MLConfig{}, 0).Classify(context.Background(), domain.FeedbackItem{})
	assert.ErrorContains(t, err, "not configured")
}
