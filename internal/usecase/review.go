package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"FeedbackScanner/internal/domain"
	"FeedbackScanner/internal/ports"
)

// ReviewAction names a reviewer decision on a drafted ticket.
type ReviewAction string

const (
	ActionApprove ReviewAction = "approve"
	ActionReject  ReviewAction = "reject"
	ActionEdit    ReviewAction = "edit"
)

// ReviewRequest carries one reviewer decision.
type ReviewRequest struct {
	Action      ReviewAction `json:"action" binding:"required,oneof=approve reject edit"`
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Labels      []string     `json:"labels,omitempty"`
	// CreateIssue asks an approval to open an issue on the tracker.
	CreateIssue bool `json:"createIssue,omitempty"`
}

// ReviewService applies the human review workflow to stored tickets.
type ReviewService struct {
	tickets ports.TicketRepository
	tracker ports.TicketTracker
	logger  *slog.Logger
	clock   func() time.Time
}

// NewReviewService builds the service; tracker may be nil.
func NewReviewService(tickets ports.TicketRepository, tracker ports.TicketTracker, logger *slog.Logger) *ReviewService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ReviewService{tickets: tickets, tracker: tracker, logger: logger, clock: time.Now}
}

// Get loads one ticket.
func (s *ReviewService) Get(ctx context.Context, id string) (domain.DraftedTicket, error) {
	if s.tickets == nil {
		return domain.DraftedTicket{}, fmt.Errorf("%w: ticket %s", domain.ErrNotFound, id)
	}
	return s.tickets.GetTicket(ctx, id)
}

// List returns stored tickets, optionally filtered by status.
func (s *ReviewService) List(ctx context.Context, status domain.TicketStatus, limit int) ([]domain.DraftedTicket, error) {
	if s.tickets == nil {
		return []domain.DraftedTicket{}, nil
	}
	tickets, err := s.tickets.ListTickets(ctx, status, limit)
	if err != nil {
		return nil, err
	}
	if tickets == nil {
		tickets = []domain.DraftedTicket{}
	}
	return tickets, nil
}

// Review applies req to the ticket and persists the result. An approval with
// CreateIssue opens a tracker issue and attaches its reference.
func (s *ReviewService) Review(ctx context.Context, id string, req ReviewRequest) (domain.DraftedTicket, error) {
	ticket, err := s.Get(ctx, id)
	if err != nil {
		return domain.DraftedTicket{}, err
	}

	now := s.clock().UTC()
	switch req.Action {
	case ActionApprove:
		if req.CreateIssue && s.tracker == nil {
			return domain.DraftedTicket{}, domain.ErrTrackerUnavailable
		}
		if req.CreateIssue && ticket.Status == domain.StatusApproved && ticket.TicketRef == nil {
			// An earlier approval whose issue creation failed; retry the issue only.
			return s.createIssue(ctx, ticket)
		}
		err = ticket.Approve(now)
	case ActionReject:
		err = ticket.Reject(now)
	case ActionEdit:
		err = ticket.Edit(req.Title, req.Description, req.Labels, now)
	default:
		return domain.DraftedTicket{}, fmt.Errorf("%w: unknown review action %q", domain.ErrInvalidInput, req.Action)
	}
	if err != nil {
		return domain.DraftedTicket{}, err
	}

	if err := s.tickets.SaveTicket(ctx, ticket); err != nil {
		return domain.DraftedTicket{}, fmt.Errorf("save ticket %s: %w", id, err)
	}
	s.logger.Info("ticket reviewed", "ticket_id", id, "action", req.Action, "status", ticket.Status)

	if req.Action != ActionApprove || !req.CreateIssue {
		return ticket, nil
	}
	return s.createIssue(ctx, ticket)
}

func (s *ReviewService) createIssue(ctx context.Context, ticket domain.DraftedTicket) (domain.DraftedTicket, error) {
	ref, err := s.tracker.CreateIssue(ctx, ticket)
	if err != nil {
		return ticket, fmt.Errorf("create issue for ticket %s: %w", ticket.ID, err)
	}
	if err := ticket.AttachTicket(ref, s.clock().UTC()); err != nil {
		return ticket, err
	}
	if err := s.tickets.SaveTicket(ctx, ticket); err != nil {
		return ticket, fmt.Errorf("save ticket %s: %w", ticket.ID, err)
	}
	s.logger.Info("issue created", "ticket_id", ticket.ID, "platform", ref.Platform, "url", ref.URL)
	return ticket, nil
}
