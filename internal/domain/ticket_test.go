package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTicket(t *testing.T) DraftedTicket {
	t.Helper()
	item := FeedbackItem{ID: "reddit:abc", Source: SourceReddit, SourceID: "abc", Content: "Export to CSV is broken since the last update"}
	cls := ClassificationResult{Category: CategoryBug, Priority: PriorityHigh, Sentiment: SentimentNegative, Confidence: 88}
	return NewDraftedTicket("t-1", item, cls, Draft{Description: "CSV export fails"}, time.Unix(100, 0))
}

func TestNewDraftedTicketDefaults(t *testing.T) {
	t.Parallel()

	ticket := newTicket(t)
	assert.Equal(t, StatusPending, ticket.Status)
	assert.Equal(t, "Export to CSV is broken since the last update", ticket.Title)
	assert.Equal(t, PriorityHigh, ticket.SuggestedPriority)
	assert.NotNil(t, ticket.Labels)
	assert.False(t, ticket.Terminal())
}

func TestTicketApproveThenAttach(t *testing.T) {
	t.Parallel()

	ticket := newTicket(t)
	require.NoError(t, ticket.Approve(time.Unix(200, 0)))
	assert.False(t, ticket.Terminal())

	require.NoError(t, ticket.AttachTicket(TicketRef{Platform: "github", Number: 7, URL: "https://github.com/acme/app/issues/7"}, time.Unix(300, 0)))
	assert.True(t, ticket.Terminal())
	assert.Equal(t, time.Unix(300, 0), ticket.UpdatedAt)

	err := ticket.AttachTicket(TicketRef{Platform: "github"}, time.Unix(400, 0))
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.True(t, errors.Is(ticket.Reject(time.Unix(400, 0)), ErrInvalidTransition))
}

func TestTicketEditKeepsReviewable(t *testing.T) {
	t.Parallel()

	ticket := newTicket(t)
	require.NoError(t, ticket.Edit("CSV export crashes", "", []string{"export"}, time.Unix(200, 0)))
	assert.Equal(t, StatusEdited, ticket.Status)
	assert.Equal(t, "CSV export crashes", ticket.Title)
	assert.Equal(t, "CSV export fails", ticket.Description)
	assert.Equal(t, []string{"export"}, ticket.Labels)

	require.NoError(t, ticket.Edit("", "again", nil, time.Unix(250, 0)))
	require.NoError(t, ticket.Reject(time.Unix(300, 0)))
	assert.True(t, ticket.Terminal())
	assert.ErrorIs(t, ticket.Approve(time.Unix(400, 0)), ErrInvalidTransition)
}

func TestAttachRequiresApproval(t *testing.T) {
	t.Parallel()

	ticket := newTicket(t)
	assert.ErrorIs(t, ticket.AttachTicket(TicketRef{Platform: "github"}, time.Unix(1, 0)), ErrInvalidTransition)
}

func TestClassificationSanitize(t *testing.T) {
	t.Parallel()

	got := ClassificationResult{Category: "rant", Priority: "p0", Sentiment: "angry", Confidence: 140}.Sanitize()
	assert.Equal(t, CategoryOther, got.Category)
	assert.Equal(t, PriorityMedium, got.Priority)
	assert.Equal(t, SentimentNeutral, got.Sentiment)
	assert.Equal(t, 100, got.Confidence)

	kept := ClassificationResult{Category: CategoryPraise, Priority: PriorityLow, Sentiment: SentimentPositive, Confidence: -3}.Sanitize()
	assert.Equal(t, CategoryPraise, kept.Category)
	assert.Equal(t, PriorityLow, kept.Priority)
	assert.Equal(t, 0, kept.Confidence)
}

func TestPriorityRankOrder(t *testing.T) {
	t.Parallel()

	assert.Greater(t, PriorityUrgent.Rank(), PriorityHigh.Rank())
	assert.Greater(t, PriorityHigh.Rank(), PriorityMedium.Rank())
	assert.Greater(t, PriorityMedium.Rank(), PriorityLow.Rank())
	assert.Greater(t, PriorityLow.Rank(), Priority("").Rank())
}

func TestSourceValid(t *testing.T) {
	t.Parallel()

	assert.True(t, SourceCall.Valid())
	assert.False(t, Source("mastodon").Valid())
	assert.Equal(t, "twitter:42", ItemID(SourceTwitter, "42"))
}
