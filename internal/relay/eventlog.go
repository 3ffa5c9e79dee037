package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const eventLogSchema = `
CREATE TABLE IF NOT EXISTS payment_events (
	id           UUID PRIMARY KEY,
	type         TEXT NOT NULL,
	payment_hash TEXT,
	amount_sat   BIGINT,
	external_id  TEXT,
	payload      JSONB NOT NULL,
	received_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type StoredEvent struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	PaymentHash string    `json:"paymentHash,omitempty"`
	AmountSat   *int64    `json:"amountSat,omitempty"`
	ExternalID  string    `json:"externalId,omitempty"`
	ReceivedAt  time.Time `json:"receivedAt"`
}

// EventLog is the Postgres audit trail of webhook events.
type EventLog struct {
	pool *pgxpool.Pool
}

func OpenEventLog(ctx context.Context, databaseURL string) (*EventLog, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, eventLogSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &EventLog{pool: pool}, nil
}

func (l *EventLog) Close() { l.pool.Close() }

func (l *EventLog) Record(ctx context.Context, p Payload, raw []byte) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO payment_events (id, type, payment_hash, amount_sat, external_id, payload)
		VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, ''), $6)`,
		uuid.NewString(), p.Type, p.PaymentHash, p.AmountSat, p.ExternalID, string(raw),
	)
	if err != nil {
		return fmt.Errorf("insert payment event: %w", err)
	}
	return nil
}

// Recent lists the latest events, newest first.
func (l *EventLog) Recent(ctx context.Context, limit int) ([]StoredEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := l.pool.Query(ctx, `
		SELECT id::text, type, COALESCE(payment_hash, ''), amount_sat, COALESCE(external_id, ''), received_at
		FROM payment_events
		ORDER BY received_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query payment events: %w", err)
	}
	defer rows.Close()

	var out []StoredEvent
	for rows.Next() {
		var e StoredEvent
		if err := rows.Scan(&e.ID, &e.Type, &e.PaymentHash, &e.AmountSat, &e.ExternalID, &e.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scan payment event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
