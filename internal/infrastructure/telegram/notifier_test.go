package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FeedbackScanner/internal/config"
)

func TestPublishDigest(t *testing.T) {
	t.Parallel()

	var text, chat string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bot123:abc/sendMessage" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		require.NoError(t, r.ParseForm())
		text, chat = r.PostForm.Get("text"), r.PostForm.Get("chat_id")
	}))
	defer srv.Close()

	n := NewNotifier(config.TelegramConfig{BotToken: "123:abc", ChatID: "-100", BaseURL: srv.URL})
	require.NoError(t, n.PublishDigest(context.Background(), strings.Repeat("é", 5000)))

	assert.Equal(t, "-100", chat)
	assert.Equal(t, maxMessageLen, utf8.RuneCountInString(text))
}

func TestPublishDigestErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	err := NewNotifier(config.TelegramConfig{BotToken: "t", ChatID: "c", BaseURL: srv.URL}).PublishDigest(context.Background(), "hi")
	assert.ErrorContains(t, err, "403")

	err = NewNotifier(config.TelegramConfig{}).PublishDigest(context.Background(), "hi")
	assert.ErrorContains(t, err, "misconfigured")
}
