package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FeedbackScanner/internal/domain"
	"FeedbackScanner/internal/infrastructure/cache"
	"FeedbackScanner/internal/infrastructure/slack"
	"FeedbackScanner/internal/infrastructure/storage"
	"FeedbackScanner/internal/scanner"
	"FeedbackScanner/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubClassifier struct{}

func (stubClassifier) Classify(_ context.Context, item domain.FeedbackItem) (domain.ClassificationResult, error) {
	if strings.Contains(item.Content, "broken") {
		return domain.ClassificationResult{Category: domain.CategoryBug, Priority: domain.PriorityHigh, Sentiment: domain.SentimentNegative, Confidence: 90}, nil
	}
	return domain.ClassificationResult{Category: domain.CategoryPraise, Priority: domain.PriorityLow, Sentiment: domain.SentimentPositive, Confidence: 80}, nil
}

type stubDrafter struct{}

func (stubDrafter) Draft(_ context.Context, item domain.FeedbackItem, _ domain.ClassificationResult) (domain.Draft, error) {
	return domain.Draft{Title: "Ticket: " + item.Content, Description: item.Content, SuggestedLabels: []string{"feedback"}}, nil
}

type testEnv struct {
	router *gin.Engine
	inbox  *slack.Inbox
	repo   *storage.SQLRepository
}

const signingSecret = "8f742231b10e8888abcd99yyyzzz85a5"

func newTestEnv(t *testing.T) testEnv {
	t.Helper()

	db, err := storage.Open(context.Background(), "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	repo := storage.NewSQLRepository(db, "sqlite")

	inbox := slack.NewInbox(10, nil)
	seen, err := cache.NewLRUEventSet(10)
	require.NoError(t, err)

	registry := scanner.NewRegistry()
	registry.Register(inbox)

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Registry:   registry,
		Classifier: stubClassifier{},
		Drafter:    stubDrafter{},
		Items:      repo,
		Tickets:    repo,
	})
	reviews := usecase.NewReviewService(repo, nil, nil)
	hook := slack.NewWebhook(inbox, seen, signingSecret, nil)

	return testEnv{router: NewRouter(NewHandler(pipeline, reviews, hook, nil)), inbox: inbox, repo: repo}
}

const uploadRequest = `{"sources":[],"uploads":[{"fileName":"notes.txt","content":"export is broken again\n\nlove the new dashboard"}]}`

func doJSON(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func readEvents(t *testing.T, srvURL, body string) []string {
	t.Helper()
	resp, err := http.Post(srvURL+"/v1/pipeline/stream", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var out []string
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		if line := sc.Text(); strings.HasPrefix(line, "data: ") {
			out = append(out, strings.TrimPrefix(line, "data: "))
		}
	}
	require.NoError(t, sc.Err())
	return out
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	w := doJSON(t, newTestEnv(t).router, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRunPipelineBatch(t *testing.T) {
	t.Parallel()

	w := doJSON(t, newTestEnv(t).router, http.MethodPost, "/v1/pipeline/run", uploadRequest)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Status string              `json:"status"`
		Data   usecase.BatchResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	require.Len(t, resp.Data.Classified, 2)
	assert.Equal(t, domain.CategoryBug, resp.Data.Classified[0].Classification.Category)
	assert.Len(t, resp.Data.Insights.TopIssues, 1)
	assert.Equal(t, 0, resp.Data.Insights.UrgentCount)
	assert.Equal(t, 50, resp.Data.Insights.SentimentScore)
}

func TestRunPipelineErrors(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	w := doJSON(t, env.router, http.MethodPost, "/v1/pipeline/run", `{"sources":[{"source":"twitter","queries":["acme"]}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"source_not_configured"`)

	w = doJSON(t, env.router, http.MethodPost, "/v1/pipeline/run", `{"uploads":[{"fileName":"empty.txt","content":"  \n\n "}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"empty_upload"`)

	w = doJSON(t, env.router, http.MethodPost, "/v1/pipeline/run", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"error"`)
}

func TestStreamPipeline(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	events := readEvents(t, srv.URL, uploadRequest)
	require.NotEmpty(t, events)
	assert.Equal(t, usecase.StreamDone, events[len(events)-1])

	var last usecase.Event
	require.NoError(t, json.Unmarshal([]byte(events[len(events)-2]), &last))
	assert.Equal(t, usecase.EventComplete, last.Type)
	require.NotNil(t, last.Completion)
	require.Len(t, last.Items, 2)
	assert.Equal(t, domain.PriorityHigh, last.Items[0].SuggestedPriority)

	var drafted int
	for _, raw := range events[:len(events)-1] {
		var ev usecase.Event
		require.NoError(t, json.Unmarshal([]byte(raw), &ev))
		if ev.Type == usecase.EventDrafted {
			drafted++
		}
	}
	assert.Equal(t, 2, drafted)
}

func TestStreamPipelineConfigError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(newTestEnv(t).router)
	defer srv.Close()

	events := readEvents(t, srv.URL, `{"sources":[{"source":"reddit","queries":["acme"]}]}`)
	require.Len(t, events, 3)

	var ev usecase.Event
	require.NoError(t, json.Unmarshal([]byte(events[1]), &ev))
	assert.Equal(t, usecase.EventError, ev.Type)
	assert.Contains(t, ev.Error, "source not configured")
	assert.Equal(t, usecase.StreamDone, events[2])
}

func TestTicketReviewFlow(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()
	readEvents(t, srv.URL, uploadRequest)

	w := doJSON(t, env.router, http.MethodGet, "/v1/tickets?status=pending", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Data []domain.DraftedTicket `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Data, 2)
	id := list.Data[0].ID

	w = doJSON(t, env.router, http.MethodGet, "/v1/tickets/"+id, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, env.router, http.MethodPost, "/v1/tickets/"+id+"/review", `{"action":"merge"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, env.router, http.MethodPost, "/v1/tickets/"+id+"/review", `{"action":"approve","createIssue":true}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "tracker_unavailable")

	w = doJSON(t, env.router, http.MethodPost, "/v1/tickets/"+id+"/review", `{"action":"reject"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"rejected"`)

	w = doJSON(t, env.router, http.MethodPost, "/v1/tickets/"+id+"/review", `{"action":"approve"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, env.router, http.MethodGet, "/v1/tickets/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, env.router, http.MethodGet, "/v1/tickets?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func slackRequest(body string, ts time.Time, secret string) *http.Request {
	stamp := strconv.FormatInt(ts.Unix(), 10)
	req := httptest.NewRequest(http.MethodPost, "/v1/slack/events", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Slack-Request-Timestamp", stamp)
	req.Header.Set("X-Slack-Signature", slack.Sign(secret, stamp, []byte(body)))
	return req
}

func TestSlackEvents(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, slackRequest(`{"type":"url_verification","challenge":"abc123"}`, time.Now(), signingSecret))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"challenge":"abc123"}`, w.Body.String())

	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, slackRequest(`{"type":"url_verification","challenge":"abc123"}`, time.Now(), "wrong"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, slackRequest(`{"type":"url_verification","challenge":"abc123"}`, time.Now().Add(-time.Hour), signingSecret))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	msg := `{"type":"event_callback","event_id":"Ev1","event":{"type":"message","channel":"C1","user":"U1","text":"the app keeps logging me out","ts":"1700000000.000100"}}`
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, slackRequest(msg, time.Now(), signingSecret))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"duplicate":false,"stored":true}`, w.Body.String())

	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, slackRequest(msg, time.Now(), signingSecret))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"duplicate":true,"stored":false}`, w.Body.String())
	assert.Equal(t, 1, env.inbox.Len())
}
