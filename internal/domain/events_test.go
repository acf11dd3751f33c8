package domain

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestNewRatingEvent(t *testing.T) {
	event := NewRatingEvent(EventAttemptScored, "user-1")

	if event.ID == "" {
		t.Error("ID should not be empty")
	}
	if event.Type != EventAttemptScored {
		t.Errorf("Type = %q, want %q", event.Type, EventAttemptScored)
	}
	if event.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", event.UserID)
	}
	if event.OccurredAt.IsZero() || event.OccurredAt.After(time.Now().Add(time.Second)) {
		t.Errorf("OccurredAt = %v, want roughly now", event.OccurredAt)
	}
	if other := NewRatingEvent(EventAttemptScored, "user-1"); other.ID == event.ID {
		t.Error("event IDs should be unique")
	}
}

func TestEventDispatcher(t *testing.T) {
	ctx := context.Background()

	t.Run("Subscribe and Publish", func(t *testing.T) {
		dispatcher := NewEventDispatcher()
		var received *RatingEvent

		dispatcher.Subscribe(EventInterviewFinalized, func(_ context.Context, e *RatingEvent) {
			received = e
		})

		dispatcher.Publish(ctx, NewRatingEvent(EventInterviewFinalized, "u"))

		if received == nil {
			t.Fatal("Event handler was not called")
		}
		if received.Type != EventInterviewFinalized {
			t.Errorf("Received event type = %q, want %q", received.Type, EventInterviewFinalized)
		}
	})

	t.Run("Multiple handlers for same event type", func(t *testing.T) {
		dispatcher := NewEventDispatcher()
		callCount := 0
		mu := sync.Mutex{}

		for i := 0; i < 3; i++ {
			dispatcher.Subscribe(EventAttemptScored, func(context.Context, *RatingEvent) {
				mu.Lock()
				callCount++
				mu.Unlock()
			})
		}

		dispatcher.Publish(ctx, NewRatingEvent(EventAttemptScored, "u"))

		if callCount != 3 {
			t.Errorf("Handler call count = %d, want 3", callCount)
		}
	})

	t.Run("SubscribeAll receives all events", func(t *testing.T) {
		dispatcher := NewEventDispatcher()
		var received []RatingEventType

		dispatcher.SubscribeAll(func(_ context.Context, e *RatingEvent) {
			received = append(received, e.Type)
		})

		dispatcher.Publish(ctx, NewRatingEvent(EventAttemptScored, "u"))
		dispatcher.Publish(ctx, NewRatingEvent(EventDiagnosticCompleted, "u"))

		if len(received) != 2 {
			t.Errorf("Received events count = %d, want 2", len(received))
		}
	})

	t.Run("Unsubscribed events are ignored", func(t *testing.T) {
		dispatcher := NewEventDispatcher()
		called := false

		dispatcher.Subscribe(EventDiagnosticCompleted, func(context.Context, *RatingEvent) {
			called = true
		})

		dispatcher.Publish(ctx, NewRatingEvent(EventAttemptScored, "u"))

		if called {
			t.Error("Handler should not be called for unsubscribed event type")
		}
	})

	t.Run("nil event is dropped", func(t *testing.T) {
		dispatcher := NewEventDispatcher()
		dispatcher.SubscribeAll(func(context.Context, *RatingEvent) {
			t.Error("handler called for nil event")
		})
		dispatcher.Publish(ctx, nil)
	})
}
