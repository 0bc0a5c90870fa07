package usecase

import (
	"sync"

	"FeedbackScanner/internal/domain"
)

// EventType tags every streamed event.
type EventType string

const (
	EventStatus     EventType = "status"
	EventProgress   EventType = "progress"
	EventPhase      EventType = "phase"
	EventClassified EventType = "classified"
	EventDrafted    EventType = "drafted"
	EventWarning    EventType = "warning"
	EventError      EventType = "error"
	EventComplete   EventType = "complete"
)

// StreamDone is the sentinel written after the last event.
const StreamDone = "[DONE]"

// Event is one incremental progress notification of a run.
type Event struct {
	Type      EventType             `json:"type"`
	RunID     string                `json:"runId,omitempty"`
	Phase     Phase                 `json:"phase,omitempty"`
	Message   string                `json:"message,omitempty"`
	Source    domain.Source         `json:"source,omitempty"`
	Query     string                `json:"query,omitempty"`
	Subreddit string                `json:"subreddit,omitempty"`
	Count     int                   `json:"count,omitempty"`
	Index     int                   `json:"index,omitempty"`
	Total     int                   `json:"total,omitempty"`
	ItemID    string                `json:"itemId,omitempty"`
	Category  domain.Category       `json:"category,omitempty"`
	Priority  domain.Priority       `json:"priority,omitempty"`
	Ticket    *domain.DraftedTicket `json:"ticket,omitempty"`
	Error     string                `json:"error,omitempty"`

	*Completion
}

// Completion is the payload of the final complete event.
type Completion struct {
	Items []domain.DraftedTicket `json:"items"`
	Stats Stats                  `json:"stats"`
}

// Stream delivers the events of one run. The producer closes the channel when
// the run ends; a consumer that stops reading calls Close and the run keeps
// going with its remaining events discarded.
type Stream struct {
	RunID string

	events  chan Event
	stopped chan struct{}
	once    sync.Once
}

func newStream(runID string, buffer int) *Stream {
	if buffer <= 0 {
		buffer = 1
	}
	return &Stream{
		RunID:   runID,
		events:  make(chan Event, buffer),
		stopped: make(chan struct{}),
	}
}

// Events returns the receive side of the event channel.
func (s *Stream) Events() <-chan Event {
	return s.events
}

// Close detaches the consumer. It is safe to call more than once.
func (s *Stream) Close() {
	s.once.Do(func() { close(s.stopped) })
}

func (s *Stream) emit(ev Event) {
	select {
	case <-s.stopped:
		return
	default:
	}
	select {
	case s.events <- ev:
	case <-s.stopped:
	}
}

func (s *Stream) finish() {
	close(s.events)
}
