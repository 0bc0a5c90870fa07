package domain

import (
	"fmt"
	"strings"
	"time"
)

// TicketStatus enumerates review workflow milestones.
type TicketStatus string

const (
	StatusPending  TicketStatus = "pending"
	StatusApproved TicketStatus = "approved"
	StatusRejected TicketStatus = "rejected"
	StatusEdited   TicketStatus = "edited"
)

// TicketRef points at the issue created on an external tracker.
type TicketRef struct {
	Platform string `json:"platform"`
	Number   int    `json:"number,omitempty"`
	URL      string `json:"url"`
}

// DraftedTicket is one surviving feedback item turned into a reviewable ticket.
type DraftedTicket struct {
	ID                string               `json:"id"`
	Item              FeedbackItem         `json:"item"`
	Classification    ClassificationResult `json:"classification"`
	Title             string               `json:"title"`
	Description       string               `json:"description"`
	Labels            []string             `json:"labels"`
	SuggestedPriority Priority             `json:"suggestedPriority"`
	Status            TicketStatus         `json:"status"`
	TicketRef         *TicketRef           `json:"ticketRef,omitempty"`
	CreatedAt         time.Time            `json:"createdAt"`
	UpdatedAt         time.Time            `json:"updatedAt"`
}

// NewDraftedTicket builds a pending ticket from a classified item and its draft.
func NewDraftedTicket(id string, item FeedbackItem, cls ClassificationResult, draft Draft, now time.Time) DraftedTicket {
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		title = fallbackTitle(item)
	}
	priority := draft.SuggestedPriority
	if priority.Rank() == 0 {
		priority = cls.Priority
	}
	labels := draft.SuggestedLabels
	if labels == nil {
		labels = []string{}
	}
	return DraftedTicket{
		ID:                id,
		Item:              item,
		Classification:    cls,
		Title:             title,
		Description:       strings.TrimSpace(draft.Description),
		Labels:            labels,
		SuggestedPriority: priority,
		Status:            StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func fallbackTitle(item FeedbackItem) string {
	if t := strings.TrimSpace(item.Title); t != "" {
		return t
	}
	runes := []rune(strings.TrimSpace(item.Content))
	if len(runes) > 80 {
		return string(runes[:80]) + "..."
	}
	return string(runes)
}

// Terminal reports whether no further review action is possible.
func (t DraftedTicket) Terminal() bool {
	return t.Status == StatusRejected || (t.Status == StatusApproved && t.TicketRef != nil)
}

func (t *DraftedTicket) canReview() error {
	if t.Status == StatusPending || t.Status == StatusEdited {
		return nil
	}
	return fmt.Errorf("%w: ticket %s is %s", ErrInvalidTransition, t.ID, t.Status)
}

// Approve marks the ticket approved.
func (t *DraftedTicket) Approve(now time.Time) error {
	if err := t.canReview(); err != nil {
		return err
	}
	t.Status = StatusApproved
	t.UpdatedAt = now
	return nil
}

// Reject marks the ticket rejected; rejected tickets are terminal.
func (t *DraftedTicket) Reject(now time.Time) error {
	if err := t.canReview(); err != nil {
		return err
	}
	t.Status = StatusRejected
	t.UpdatedAt = now
	return nil
}

// Edit replaces the reviewer-facing fields; empty values keep the current ones.
func (t *DraftedTicket) Edit(title, description string, labels []string, now time.Time) error {
	if err := t.canReview(); err != nil {
		return err
	}
	if s := strings.TrimSpace(title); s != "" {
		t.Title = s
	}
	if s := strings.TrimSpace(description); s != "" {
		t.Description = s
	}
	if labels != nil {
		t.Labels = labels
	}
	t.Status = StatusEdited
	t.UpdatedAt = now
	return nil
}

// AttachTicket records the tracker issue created for an approved ticket.
func (t *DraftedTicket) AttachTicket(ref TicketRef, now time.Time) error {
	if t.Status != StatusApproved || t.TicketRef != nil {
		return fmt.Errorf("%w: ticket %s cannot take a tracker reference while %s", ErrInvalidTransition, t.ID, t.Status)
	}
	t.TicketRef = &ref
	t.UpdatedAt = now
	return nil
}
