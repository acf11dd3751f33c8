package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/rehearse/internal/domain"
)

// EventStore records rating events backed by SQLite.
type EventStore struct {
	db *DB
}

// NewEventStore creates a new SQLite-backed rating event store.
func NewEventStore(db *DB) *EventStore {
	return &EventStore{db: db}
}

// Record stores an event. Recording the same event ID twice is a no-op so
// redelivered queue messages are harmless.
func (s *EventStore) Record(ctx context.Context, e *domain.RatingEvent) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal rating event: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO rating_events (id, event_type, user_id, data, occurred_at)
		VALUES (?, ?, ?, ?, ?) ON CONFLICT(id) DO NOTHING`,
		e.ID, string(e.Type), e.UserID, string(payload), e.OccurredAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert rating event: %w", err)
	}
	return nil
}

// ListByUser returns the user's events, newest first.
func (s *EventStore) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.RatingEvent, error) {
	query := "SELECT data FROM rating_events WHERE user_id = ? ORDER BY occurred_at DESC"
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rating events: %w", err)
	}
	defer rows.Close()

	events := make([]*domain.RatingEvent, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan rating event: %w", err)
		}
		var e domain.RatingEvent
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			return nil, fmt.Errorf("unmarshal rating event: %w", err)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

// Count returns the number of events of the given type.
func (s *EventStore) Count(ctx context.Context, eventType domain.RatingEventType) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM rating_events WHERE event_type = ?", string(eventType),
	).Scan(&count)
	return count, err
}

// Prune deletes events older than the given duration.
func (s *EventStore) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	result, err := s.db.ExecContext(ctx, "DELETE FROM rating_events WHERE occurred_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune rating events: %w", err)
	}
	return result.RowsAffected()
}

// Publish records the event and logs failures instead of returning them.
func (s *EventStore) Publish(ctx context.Context, e *domain.RatingEvent) {
	if err := s.Record(ctx, e); err != nil {
		slog.Warn("failed to record rating event", "event_id", e.ID, "error", err)
	}
}
