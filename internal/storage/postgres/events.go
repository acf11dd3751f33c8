package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"

	"github.com/felixgeelhaar/rehearse/internal/domain"
)

// EventLog records rating events through database/sql and the lib/pq driver.
// The queue worker owns its own connection so a slow consumer never holds
// pool connections the request path needs.
type EventLog struct {
	db *sql.DB
}

// OpenEventLog opens a database/sql handle on dsn.
func OpenEventLog(dsn string) (*EventLog, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping event log: %w", err)
	}
	db.SetMaxOpenConns(5)
	return &EventLog{db: db}, nil
}

// Close closes the underlying handle.
func (l *EventLog) Close() error {
	return l.db.Close()
}

// Record stores an event. Recording the same event ID twice is a no-op.
func (l *EventLog) Record(ctx context.Context, e *domain.RatingEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal rating event: %w", err)
	}
	payload := pqtype.NullRawMessage{RawMessage: data, Valid: true}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO rating_events (id, event_type, user_id, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5) ON CONFLICT (id) DO NOTHING`,
		e.ID, string(e.Type), e.UserID, payload, e.OccurredAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert rating event: %w", err)
	}
	return nil
}

// ListByUser returns the user's events, newest first.
func (l *EventLog) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.RatingEvent, error) {
	return l.list(ctx, userID, nil, limit)
}

// ListByTypes returns the user's events of the given types, newest first.
func (l *EventLog) ListByTypes(ctx context.Context, userID string, types []domain.RatingEventType, limit int) ([]*domain.RatingEvent, error) {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return l.list(ctx, userID, names, limit)
}

func (l *EventLog) list(ctx context.Context, userID string, types []string, limit int) ([]*domain.RatingEvent, error) {
	query := "SELECT payload FROM rating_events WHERE user_id = $1"
	args := []any{userID}
	if len(types) > 0 {
		args = append(args, pq.Array(types))
		query += fmt.Sprintf(" AND event_type = ANY($%d)", len(args))
	}
	query += " ORDER BY occurred_at DESC"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rating events: %w", err)
	}
	defer rows.Close()

	events := make([]*domain.RatingEvent, 0)
	for rows.Next() {
		var payload pqtype.NullRawMessage
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan rating event: %w", err)
		}
		if !payload.Valid {
			continue
		}
		var e domain.RatingEvent
		if err := json.Unmarshal(payload.RawMessage, &e); err != nil {
			return nil, fmt.Errorf("unmarshal rating event: %w", err)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

// Publish records the event and logs failures instead of returning them.
func (l *EventLog) Publish(ctx context.Context, e *domain.RatingEvent) {
	if err := l.Record(ctx, e); err != nil {
		slog.Warn("failed to record rating event", "event_id", e.ID, "error", err)
	}
}

var _ domain.RatingEventStore = (*EventLog)(nil)
