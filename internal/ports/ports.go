package ports

import (
	"context"
	"time"

	"FeedbackScanner/internal/domain"
)

// Classifier labels one feedback item; implementations call an LLM or inference service.
type Classifier interface {
	Classify(ctx context.Context, item domain.FeedbackItem) (domain.ClassificationResult, error)
}

// Drafter turns a classified item into a ticket proposal.
type Drafter interface {
	Draft(ctx context.Context, item domain.FeedbackItem, cls domain.ClassificationResult) (domain.Draft, error)
}

// FeedbackRepository remembers items from previous runs for deduplication.
type FeedbackRepository interface {
	ItemsByID(ctx context.Context, ids []string) ([]domain.FeedbackItem, error)
	RecentItems(ctx context.Context, since time.Time, limit int) ([]domain.FeedbackItem, error)
	SaveItems(ctx context.Context, items []domain.FeedbackItem) error
}

// TicketRepository persists drafted tickets for the review workflow.
type TicketRepository interface {
	SaveTicket(ctx context.Context, ticket domain.DraftedTicket) error
	GetTicket(ctx context.Context, id string) (domain.DraftedTicket, error)
	ListTickets(ctx context.Context, status domain.TicketStatus, limit int) ([]domain.DraftedTicket, error)
}

// EventSet tracks webhook event IDs that were already handled.
type EventSet interface {
	// MarkSeen records id and reports whether it is new.
	MarkSeen(ctx context.Context, id string) (bool, error)
}

// TicketTracker creates issues on an external tracker (GitHub, etc.).
type TicketTracker interface {
	CreateIssue(ctx context.Context, ticket domain.DraftedTicket) (domain.TicketRef, error)
}

// Notifier streams run summaries to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when recurring runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
