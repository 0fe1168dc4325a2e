package postgres

import (
	"context"
	"errors"

	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/models"

	"github.com/jackc/pgx/v5"
)

// outboxLockKey serializes transactions that append payment events.
const outboxLockKey int64 = 0x62616e6b6f7574

// lockOutbox must be taken before a transaction's first payment event insert.
// Holding it until commit makes seq order equal commit order, so a relay that
// has seen seq N can never later find a committed event below N.
func lockOutbox(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, outboxLockKey)
	return err
}

// ListOutboxEvents returns committed events after afterSeq in seq order.
func (s *Store) ListOutboxEvents(ctx context.Context, afterSeq int64, limit int) ([]models.PaymentEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT seq, payment_id, type, actor_id, payload, created_at
		FROM payment_events
		WHERE seq > $1
		ORDER BY seq ASC
		LIMIT $2
	`, afterSeq, limit)
	if err != nil {
		return nil, err
	}
	return collectEvents(rows)
}

func (s *Store) GetRelayOffset(ctx context.Context, consumer string) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var seq int64
	row := s.pool.QueryRow(ctx, `SELECT last_seq FROM relay_offsets WHERE consumer = $1`, consumer)
	if err := row.Scan(&seq); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return seq, nil
}

func (s *Store) UpdateRelayOffset(ctx context.Context, consumer string, seq int64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO relay_offsets (consumer, last_seq, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (consumer) DO UPDATE SET last_seq = EXCLUDED.last_seq, updated_at = NOW()
	`, consumer, seq)
	return err
}

func collectEvents(rows pgx.Rows) ([]models.PaymentEvent, error) {
	defer rows.Close()

	events := make([]models.PaymentEvent, 0)
	for rows.Next() {
		var event models.PaymentEvent
		var payload []byte
		if err := rows.Scan(&event.Seq, &event.PaymentID, &event.Type, &event.ActorID, &payload, &event.CreatedAt); err != nil {
			return nil, err
		}
		event.Payload = payload
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
