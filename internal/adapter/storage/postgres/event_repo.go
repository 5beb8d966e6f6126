package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"custody-bridge/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// EventRepo implements ports.EventRepository.
type EventRepo struct {
	pool Pool
}

// NewEventRepo creates a new EventRepo.
func NewEventRepo(pool Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

// Create persists an event within the transaction that produced it.
func (r *EventRepo) Create(ctx context.Context, tx pgx.Tx, ev *domain.BridgeEvent) error {
	fields, err := json.Marshal(ev.Fields)
	if err != nil {
		return fmt.Errorf("marshal event fields: %w", err)
	}

	query := `INSERT INTO bridge_events (id, name, topic, fields, created_at) VALUES ($1, $2, $3, $4, $5)`

	_, err = tx.Exec(ctx, query, ev.ID, string(ev.Name), ev.Topic, fields, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// List returns the newest events first, optionally filtered by name.
func (r *EventRepo) List(ctx context.Context, name domain.EventName, limit int) ([]domain.BridgeEvent, error) {
	query := `SELECT id, name, topic, fields, created_at FROM bridge_events
		WHERE ($1 = '' OR name = $1)
		ORDER BY seq DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, string(name), limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []domain.BridgeEvent
	for rows.Next() {
		var (
			ev     domain.BridgeEvent
			evName string
			fields []byte
		)
		if err := rows.Scan(&ev.ID, &evName, &ev.Topic, &fields, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Name = domain.EventName(evName)
		if err := json.Unmarshal(fields, &ev.Fields); err != nil {
			return nil, fmt.Errorf("unmarshal event fields: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
