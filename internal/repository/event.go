package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mudanzasalegre/Dripio/internal/domain"
)

const eventColumns = `id, stream_id, event_type, actor, payload, created_at`

type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Create(ctx context.Context, tx *sql.Tx, e *domain.StreamEvent) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO stream_events (id, stream_id, event_type, actor, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.StreamID, e.EventType, e.Actor, e.Payload, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *EventRepository) ListByStream(ctx context.Context, streamID int64) ([]domain.StreamEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM stream_events
		WHERE stream_id = $1 ORDER BY created_at`, streamID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByStream: %w", err)
	}
	defer rows.Close()

	var events []domain.StreamEvent
	for rows.Next() {
		var e domain.StreamEvent
		if err := rows.Scan(&e.ID, &e.StreamID, &e.EventType, &e.Actor, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListByStream: scan: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByStream: rows: %w", err)
	}
	return events, nil
}
