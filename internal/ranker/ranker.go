// Package ranker orders feedback so the most actionable items come first.
package ranker

import (
	"sort"

	"FeedbackScanner/internal/domain"
)

// RankItems returns a stably sorted copy of items. priorities maps item IDs to
// their classified priority; items without one rank below low.
func RankItems(items []domain.FeedbackItem, priorities map[string]domain.Priority) []domain.FeedbackItem {
	out := make([]domain.FeedbackItem, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		return less(priorities[out[i].ID], out[i], priorities[out[j].ID], out[j])
	})
	return out
}

// RankTickets orders drafted tickets by their classification priority.
func RankTickets(tickets []domain.DraftedTicket) []domain.DraftedTicket {
	out := make([]domain.DraftedTicket, len(tickets))
	copy(out, tickets)
	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i].Classification.Priority, out[i].Item, out[j].Classification.Priority, out[j].Item)
	})
	return out
}

// RankClassified orders classified items by priority.
func RankClassified(items []domain.ClassifiedItem) []domain.ClassifiedItem {
	out := make([]domain.ClassifiedItem, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i].Classification.Priority, out[i].Item, out[j].Classification.Priority, out[j].Item)
	})
	return out
}

// less orders by priority, then engagement score, then recency.
func less(pa domain.Priority, a domain.FeedbackItem, pb domain.Priority, b domain.FeedbackItem) bool {
	if ra, rb := pa.Rank(), pb.Rank(); ra != rb {
		return ra > rb
	}
	if a.EngagementScore != b.EngagementScore {
		return a.EngagementScore > b.EngagementScore
	}
	return a.CreatedAt.After(b.CreatedAt)
}
