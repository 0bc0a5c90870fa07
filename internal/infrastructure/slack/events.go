package slack

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"FeedbackScanner/internal/domain"
	"FeedbackScanner/internal/ports"
)

const (
	typeURLVerification = "url_verification"
	typeEventCallback   = "event_callback"

	maxClockSkew = 5 * time.Minute
)

// Envelope is the outer payload of an Events API request.
type Envelope struct {
	Type      string       `json:"type"`
	Token     string       `json:"token"`
	Challenge string       `json:"challenge"`
	TeamID    string       `json:"team_id"`
	EventID   string       `json:"event_id"`
	EventTime int64        `json:"event_time"`
	Event     MessageEvent `json:"event"`
}

// MessageEvent is the inner event; only message events are kept.
type MessageEvent struct {
	Type       string     `json:"type"`
	Subtype    string     `json:"subtype"`
	Channel    string     `json:"channel"`
	User       string     `json:"user"`
	BotID      string     `json:"bot_id"`
	Text       string     `json:"text"`
	TS         string     `json:"ts"`
	ThreadTS   string     `json:"thread_ts"`
	ReplyCount int        `json:"reply_count"`
	Reactions  []reaction `json:"reactions"`
}

type reaction struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Outcome tells the HTTP layer how an event was handled.
type Outcome struct {
	Challenge string
	Duplicate bool
	Stored    bool
}

// Webhook verifies and dispatches Events API deliveries into an Inbox.
type Webhook struct {
	inbox         *Inbox
	seen          ports.EventSet
	signingSecret string
	logger        *slog.Logger
	now           func() time.Time
}

// NewWebhook wires the inbox with the processed-event set. An empty signing
// secret disables signature checks.
func NewWebhook(inbox *Inbox, seen ports.EventSet, signingSecret string, logger *slog.Logger) *Webhook {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Webhook{inbox: inbox, seen: seen, signingSecret: signingSecret, logger: logger, now: time.Now}
}

// Verify checks the X-Slack-Signature of body.
func (w *Webhook) Verify(timestamp, signature string, body []byte) error {
	if w.signingSecret == "" {
		return nil
	}
	sec, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad slack timestamp", domain.ErrInvalidInput)
	}
	if skew := w.now().Sub(time.Unix(sec, 0)); math.Abs(float64(skew)) > float64(maxClockSkew) {
		return fmt.Errorf("%w: stale slack request", domain.ErrInvalidInput)
	}
	if !hmac.Equal([]byte(Sign(w.signingSecret, timestamp, body)), []byte(signature)) {
		return fmt.Errorf("%w: slack signature mismatch", domain.ErrInvalidInput)
	}
	return nil
}

// Sign computes the v0 request signature Slack sends for body.
func Sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("v0:" + timestamp + ":"))
	mac.Write(body)
	return "v0=" + hex.EncodeToString(mac.Sum(nil))
}

// Handle processes one delivery.
func (w *Webhook) Handle(ctx context.Context, body []byte) (Outcome, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Outcome{}, fmt.Errorf("%w: decode slack event: %v", domain.ErrInvalidInput, err)
	}

	switch env.Type {
	case typeURLVerification:
		return Outcome{Challenge: env.Challenge}, nil
	case typeEventCallback:
	default:
		return Outcome{}, fmt.Errorf("%w: unsupported slack payload %q", domain.ErrInvalidInput, env.Type)
	}

	if env.EventID == "" {
		return Outcome{}, fmt.Errorf("%w: slack event without event_id", domain.ErrInvalidInput)
	}
	if w.seen != nil {
		fresh, err := w.seen.MarkSeen(ctx, env.EventID)
		if err != nil {
			return Outcome{}, fmt.Errorf("mark event %s: %w", env.EventID, err)
		}
		if !fresh {
			w.logger.Debug("duplicate slack event", "event_id", env.EventID)
			return Outcome{Duplicate: true}, nil
		}
	}

	ev := env.Event
	if ev.Type != "message" || ev.BotID != "" || (ev.Subtype != "" && ev.Subtype != "thread_broadcast") {
		return Outcome{}, nil
	}

	reactions := 0
	for _, r := range ev.Reactions {
		reactions += r.Count
	}
	stored := w.inbox.Add(domain.SlackMessage{
		EventID:    env.EventID,
		Channel:    ev.Channel,
		User:       ev.User,
		Text:       ev.Text,
		TS:         ev.TS,
		ThreadTS:   ev.ThreadTS,
		ReplyCount: ev.ReplyCount,
		Reactions:  reactions,
		ReceivedAt: w.now().UTC(),
	})
	w.logger.Debug("slack message received", "event_id", env.EventID, "channel", ev.Channel, "stored", stored)
	return Outcome{Stored: stored}, nil
}
