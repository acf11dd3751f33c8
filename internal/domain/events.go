package domain

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RatingEventType names what caused a rating change.
type RatingEventType string

const (
	EventAttemptScored       RatingEventType = "attempt_scored"
	EventInterviewFinalized  RatingEventType = "interview_finalized"
	EventDiagnosticCompleted RatingEventType = "diagnostic_completed"
)

// RatingEvent records one change to a user's rating.
type RatingEvent struct {
	ID          string          `json:"id"`
	Type        RatingEventType `json:"type"`
	UserID      string          `json:"user_id"`
	ProblemID   string          `json:"problem_id,omitempty"`
	InterviewID string          `json:"interview_id,omitempty"`
	Field       Field           `json:"field,omitempty"`
	Category    Category        `json:"category,omitempty"`
	IsCorrect   bool            `json:"is_correct"`
	RatingDelta int             `json:"rating_delta"`
	OldRating   int             `json:"old_rating"`
	NewRating   int             `json:"new_rating"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// NewRatingEvent creates an event of the given type with a fresh ID.
func NewRatingEvent(eventType RatingEventType, userID string) *RatingEvent {
	return &RatingEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
	}
}

// -----------------------------------------------------------------------------
// Event Handler and Dispatcher
// -----------------------------------------------------------------------------

// EventHandler processes rating events. Handlers must not block for long;
// publishing happens after the rating transaction commits.
type EventHandler func(ctx context.Context, event *RatingEvent)

// EventPublisher is implemented by anything that accepts rating events.
type EventPublisher interface {
	Publish(ctx context.Context, event *RatingEvent)
}

// EventDispatcher manages event subscriptions and publishing
type EventDispatcher struct {
	mu          sync.RWMutex
	handlers    map[RatingEventType][]EventHandler
	allHandlers []EventHandler
}

// NewEventDispatcher creates a new event dispatcher
func NewEventDispatcher() *EventDispatcher {
	return &EventDispatcher{
		handlers: make(map[RatingEventType][]EventHandler),
	}
}

// Subscribe registers a handler for a specific event type
func (d *EventDispatcher) Subscribe(eventType RatingEventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventType] = append(d.handlers[eventType], handler)
}

// SubscribeAll registers a handler for all event types
func (d *EventDispatcher) SubscribeAll(handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.allHandlers = append(d.allHandlers, handler)
}

// Publish dispatches an event to all registered handlers
func (d *EventDispatcher) Publish(ctx context.Context, event *RatingEvent) {
	if event == nil {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, h := range d.handlers[event.Type] {
		h(ctx, event)
	}
	for _, h := range d.allHandlers {
		h(ctx, event)
	}
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, *RatingEvent) {}
