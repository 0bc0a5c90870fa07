package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"FeedbackScanner/internal/config"
	"FeedbackScanner/internal/domain"
	"FeedbackScanner/internal/ports"
)

const (
	defaultClassifyPrompt = `You triage customer feedback. Reply with a JSON object with keys ` +
		`category (bug, feature_request, praise, question, complaint, other), ` +
		`priority (low, medium, high, urgent), sentiment (positive, negative, neutral), ` +
		`confidence (0-100) and customerSegment.`
	defaultDraftPrompt = `You write issue tracker tickets from customer feedback. Reply with a JSON object ` +
		`with keys title, description, suggestedLabels (array of strings) and suggestedPriority.`
)

// ChatGPTClient classifies and drafts through an OpenAI-compatible chat completions API.
type ChatGPTClient struct {
	endpoint       string
	model          string
	apiKey         string
	classifyPrompt string
	draftPrompt    string
	httpClient     *http.Client
}

var (
	_ ports.Classifier = (*ChatGPTClient)(nil)
	_ ports.Drafter    = (*ChatGPTClient)(nil)
)

// NewChatGPTClient builds a client from configuration.
func NewChatGPTClient(cfg config.LLMConfig) *ChatGPTClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ChatGPTClient{
		endpoint:       cfg.Endpoint,
		model:          cfg.Model,
		apiKey:         cfg.APIKey,
		classifyPrompt: promptOr(cfg.ClassifyPrompt, defaultClassifyPrompt),
		draftPrompt:    promptOr(cfg.DraftPrompt, defaultDraftPrompt),
		httpClient:     &http.Client{Timeout: timeout},
	}
}

// Classify asks the model for a classification of item.
func (c *ChatGPTClient) Classify(ctx context.Context, item domain.FeedbackItem) (domain.ClassificationResult, error) {
	user, err := json.Marshal(feedbackPrompt(item))
	if err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("marshal item: %w", err)
	}

	var out domain.ClassificationResult
	if err := c.complete(ctx, c.classifyPrompt, string(user), &out); err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("classify %s: %w", item.ID, err)
	}
	return out.Sanitize(), nil
}

// Draft asks the model for a ticket proposal.
func (c *ChatGPTClient) Draft(ctx context.Context, item domain.FeedbackItem, cls domain.ClassificationResult) (domain.Draft, error) {
	user, err := json.Marshal(map[string]any{
		"feedback":       feedbackPrompt(item),
		"classification": cls,
	})
	if err != nil {
		return domain.Draft{}, fmt.Errorf("marshal item: %w", err)
	}

	var out domain.Draft
	if err := c.complete(ctx, c.draftPrompt, string(user), &out); err != nil {
		return domain.Draft{}, fmt.Errorf("draft %s: %w", item.ID, err)
	}
	if strings.TrimSpace(out.Title) == "" {
		return domain.Draft{}, fmt.Errorf("draft %s: model returned no title", item.ID)
	}
	return out, nil
}

func (c *ChatGPTClient) complete(ctx context.Context, system, user string, v any) error {
	if c == nil {
		return errors.New("chatgpt client is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return errors.New("chatgpt client misconfigured")
	}

	body, err := json.Marshal(map[string]any{
		"model":           c.model,
		"temperature":     0,
		"response_format": map[string]string{"type": "json_object"},
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
	})
	if err != nil {
		return fmt.Errorf("marshal chatgpt payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("chatgpt error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return fmt.Errorf("decode completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return errors.New("completion has no choices")
	}

	content := stripFence(completion.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), v); err != nil {
		return fmt.Errorf("decode model answer: %w", err)
	}
	return nil
}

func feedbackPrompt(item domain.FeedbackItem) map[string]any {
	return map[string]any{
		"source":     item.Source,
		"title":      item.Title,
		"content":    item.Content,
		"author":     item.Author,
		"engagement": item.EngagementScore,
	}
}

// stripFence removes a markdown code fence some models wrap JSON answers in.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func promptOr(prompt, fallback string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return fallback
	}
	return prompt
}
