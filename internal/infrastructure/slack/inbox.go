// Package slack keeps messages delivered by the Slack Events API and serves
// them to the pipeline as a source.
package slack

import (
	"context"
	"strings"
	"sync"

	"FeedbackScanner/internal/domain"
	"FeedbackScanner/internal/scanner"
)

// Inbox is a bounded FIFO of captured messages; the oldest message is evicted
// when it is full.
type Inbox struct {
	mu       sync.Mutex
	capacity int
	messages []domain.SlackMessage
	channels map[string]bool
}

var _ scanner.Scanner = (*Inbox)(nil)

// NewInbox keeps at most capacity messages. A non-empty channels list restricts
// which channels are accepted.
func NewInbox(capacity int, channels []string) *Inbox {
	if capacity <= 0 {
		capacity = 1000
	}
	allowed := make(map[string]bool, len(channels))
	for _, ch := range channels {
		if ch = strings.TrimSpace(ch); ch != "" {
			allowed[ch] = true
		}
	}
	return &Inbox{capacity: capacity, channels: allowed}
}

// Add stores msg and reports whether it was accepted.
func (in *Inbox) Add(msg domain.SlackMessage) bool {
	if len(in.channels) > 0 && !in.channels[msg.Channel] {
		return false
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	for i := range in.messages {
		if in.messages[i].Channel == msg.Channel && in.messages[i].TS == msg.TS {
			in.messages[i] = msg
			return true
		}
	}
	if len(in.messages) == in.capacity {
		in.messages = append(in.messages[:0], in.messages[1:]...)
	}
	in.messages = append(in.messages, msg)
	return true
}

// Len reports the number of stored messages.
func (in *Inbox) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.messages)
}

// Source implements scanner.Scanner.
func (in *Inbox) Source() domain.Source {
	return domain.SourceSlack
}

// Search returns the newest messages whose text contains the query
// (case-insensitive). Subreddit, when set, filters by channel id.
func (in *Inbox) Search(_ context.Context, req scanner.Request) (scanner.Result, error) {
	query := strings.ToLower(strings.TrimSpace(req.Query))
	channel := strings.TrimSpace(req.Subreddit)

	in.mu.Lock()
	defer in.mu.Unlock()

	var records []domain.RawRecord
	for i := len(in.messages) - 1; i >= 0; i-- {
		msg := in.messages[i]
		if channel != "" && msg.Channel != channel {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(msg.Text), query) {
			continue
		}
		records = append(records, domain.RawRecord{Source: domain.SourceSlack, Slack: &msg})
		if req.Limit > 0 && len(records) == req.Limit {
			break
		}
	}
	return scanner.Result{Records: records, Meta: map[string]any{"stored": len(in.messages)}}, nil
}
