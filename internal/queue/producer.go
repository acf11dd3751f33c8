package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/rehearse/internal/domain"
)

// publishTimeout bounds a single publish so a stalled broker never slows the
// request that produced the event.
const publishTimeout = 3 * time.Second

// Producer publishes rating events to the event queue.
type Producer struct {
	conn *Connection
}

// NewProducer creates a new queue producer
func NewProducer(conn *Connection) *Producer {
	return &Producer{conn: conn}
}

// PublishEvent publishes a rating event, filling in a missing ID and time.
func (p *Producer) PublishEvent(ctx context.Context, e *domain.RatingEvent) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	if err := p.conn.PublishJSON(ctx, EventQueueName, e.ID, e); err != nil {
		return fmt.Errorf("failed to publish rating event: %w", err)
	}

	slog.Debug("published rating event",
		"event_id", e.ID,
		"type", e.Type,
		"user_id", e.UserID,
	)
	return nil
}

// Publish implements domain.EventPublisher. Failures are logged, never
// returned, because the rating change has already committed.
func (p *Producer) Publish(ctx context.Context, e *domain.RatingEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := p.PublishEvent(ctx, e); err != nil {
		slog.Warn("rating event not queued",
			"event_id", e.ID,
			"type", e.Type,
			"error", err,
		)
	}
}

var _ domain.EventPublisher = (*Producer)(nil)
