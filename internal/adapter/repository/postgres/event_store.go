package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moneyflow/ledger/internal/domain"
	"github.com/moneyflow/ledger/internal/usecase"
)

// EventStore persists domain events into the ledger_events outbox table.
// AppendBatch always runs on the caller's transaction so events commit or
// roll back together with the state change they describe.
type EventStore struct {
	pool *pgxpool.Pool
}

// NewEventStore creates a new EventStore.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

const insertEventSQL = `
INSERT INTO ledger_events (
	id, event_type, aggregate_id, aggregate_type, version, user_id,
	occurred_on, payload, published, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false, $9)`

// AppendBatch appends all events inside the given transaction.
func (s *EventStore) AppendBatch(ctx context.Context, tx usecase.Transaction, events []domain.DomainEvent) error {
	pgxTx := tx.(*Tx).PgxTx()

	now := time.Now().UTC()
	for _, event := range events {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return fmt.Errorf("marshal event %s payload: %w", event.EventID, err)
		}

		_, err = pgxTx.Exec(ctx, insertEventSQL,
			event.EventID,
			event.EventType,
			event.AggregateID,
			event.AggregateType,
			event.Version,
			nullableString(event.UserID),
			event.OccurredOn,
			payload,
			now,
		)
		if err != nil {
			return fmt.Errorf("append event %s: %w", event.EventID, err)
		}
	}

	return nil
}

const selectUnpublishedSQL = `
SELECT id, event_type, aggregate_id, aggregate_type, version, user_id,
	occurred_on, payload
FROM ledger_events
WHERE published = false
ORDER BY created_at, id
LIMIT $1`

// GetUnpublished returns committed events that have not been relayed yet.
func (s *EventStore) GetUnpublished(ctx context.Context, limit int) ([]domain.DomainEvent, error) {
	rows, err := s.pool.Query(ctx, selectUnpublishedSQL, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.DomainEvent
	for rows.Next() {
		var (
			event   domain.DomainEvent
			userID  *string
			payload []byte
		)

		err := rows.Scan(
			&event.EventID,
			&event.EventType,
			&event.AggregateID,
			&event.AggregateType,
			&event.Version,
			&userID,
			&event.OccurredOn,
			&payload,
		)
		if err != nil {
			return nil, err
		}

		event.UserID = derefString(userID)

		var data map[string]any
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &data); err != nil {
				return nil, fmt.Errorf("unmarshal event %s payload: %w", event.EventID, err)
			}
		}
		event.Data = data

		events = append(events, event)
	}

	return events, rows.Err()
}

// MarkPublished records that an event has been relayed.
func (s *EventStore) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		"UPDATE ledger_events SET published = true, published_at = $2 WHERE id = $1",
		id, publishedAt,
	)

	return err
}

// DeletePublished removes relayed events older than the given time.
func (s *EventStore) DeletePublished(ctx context.Context, before time.Time) error {
	_, err := s.pool.Exec(ctx,
		"DELETE FROM ledger_events WHERE published = true AND published_at < $1",
		before,
	)

	return err
}
