package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"FeedbackScanner/internal/config"
	"FeedbackScanner/internal/domain"
	"FeedbackScanner/internal/ports"
)

// Client talks to a self-hosted inference service exposing /classify and /draft.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.Classifier = (*Client)(nil)
var _ ports.Drafter = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(cfg config.MLConfig, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(cfg.InferenceURL, "/"),
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: timeout},
	}
}

// Classify sends the item text for labelling.
func (c *Client) Classify(ctx context.Context, item domain.FeedbackItem) (domain.ClassificationResult, error) {
	payload := map[string]any{
		"id":      item.ID,
		"source":  item.Source,
		"title":   item.Title,
		"content": item.Content,
	}

	var result domain.ClassificationResult
	if err := c.post(ctx, "/classify", payload, &result); err != nil {
		return domain.ClassificationResult{}, err
	}
	return result.Sanitize(), nil
}

// Draft requests a ticket proposal for a classified item.
func (c *Client) Draft(ctx context.Context, item domain.FeedbackItem, cls domain.ClassificationResult) (domain.Draft, error) {
	payload := map[string]any{
		"id":             item.ID,
		"title":          item.Title,
		"content":        item.Content,
		"sourceUrl":      item.SourceURL,
		"classification": cls,
	}

	var draft domain.Draft
	if err := c.post(ctx, "/draft", payload, &draft); err != nil {
		return domain.Draft{}, err
	}
	return draft, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	if c.endpoint == "" {
		return fmt.Errorf("inference url is not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %s", path, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
