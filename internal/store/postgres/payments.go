package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/models"
	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const paymentColumns = `payment_id, customer_id, amount::text, currency, payee_account, swift_code, provider, status, version, created_at, verified_at, verified_by, submitted_at, submitted_by`

func (s *Store) CreatePayment(ctx context.Context, input store.CreatePaymentInput) (payment models.Payment, err error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Payment{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	row := tx.QueryRow(ctx, `
		INSERT INTO payments (payment_id, customer_id, amount, currency, payee_account, swift_code, provider, status, version, created_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6, $7, $8, 0, $9)
		RETURNING `+paymentColumns,
		uuid.NewString(), input.CustomerID, input.Amount.StringFixed(2), input.Currency, input.PayeeAccount, input.SwiftCode,
		models.ProviderSWIFT, models.StatusPending, createdAt)
	payment, err = scanPayment(row)
	if err != nil {
		return models.Payment{}, err
	}

	if err = lockOutbox(ctx, tx); err != nil {
		return models.Payment{}, err
	}
	if err = insertPaymentEvent(ctx, tx, models.EventPaymentCreated, input.CustomerID, payment); err != nil {
		return models.Payment{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.Payment{}, err
	}
	return payment, nil
}

func (s *Store) GetPayment(ctx context.Context, paymentID string) (models.Payment, error) {
	if _, err := uuid.Parse(paymentID); err != nil {
		return models.Payment{}, store.ErrPaymentNotFound
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := s.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE payment_id = $1`, paymentID)
	return scanPayment(row)
}

func (s *Store) ListPayments(ctx context.Context, limit int) ([]models.Payment, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		ORDER BY created_at DESC, payment_id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return collectPayments(rows)
}

func (s *Store) ListCustomerPayments(ctx context.Context, customerID string, limit int) ([]models.Payment, error) {
	if _, err := uuid.Parse(customerID); err != nil {
		return []models.Payment{}, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE customer_id = $1
		ORDER BY created_at DESC, payment_id
		LIMIT $2
	`, customerID, limit)
	if err != nil {
		return nil, err
	}
	return collectPayments(rows)
}

func (s *Store) TransitionPayments(ctx context.Context, input store.TransitionInput) (moved []models.Payment, err error) {
	from, to, ok := store.Transition(input.Action)
	if !ok {
		return nil, fmt.Errorf("unknown payment action %q", input.Action)
	}
	if len(input.PaymentIDs) == 0 {
		return []models.Payment{}, nil
	}
	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// The status predicate makes the update a compare-and-set: of two
	// concurrent callers only one sees the row in the prior status.
	var query string
	switch input.Action {
	case store.ActionVerify:
		query = `
			UPDATE payments
			SET status = $1, version = version + 1, verified_at = $2, verified_by = $3
			WHERE payment_id = ANY(CAST($4::text[] AS uuid[])) AND status = $5
			RETURNING ` + paymentColumns
	case store.ActionSubmit:
		query = `
			UPDATE payments
			SET status = $1, version = version + 1, submitted_at = $2, submitted_by = $3
			WHERE payment_id = ANY(CAST($4::text[] AS uuid[])) AND status = $5
			RETURNING ` + paymentColumns
	}

	rows, err := tx.Query(ctx, query, to, occurredAt, input.ActorID, input.PaymentIDs, from)
	if err != nil {
		return nil, err
	}
	moved, err = collectPayments(rows)
	if err != nil {
		return nil, err
	}

	if len(moved) > 0 {
		if err = lockOutbox(ctx, tx); err != nil {
			return nil, err
		}
	}
	eventType := store.EventType(input.Action)
	for _, payment := range moved {
		if err = insertPaymentEvent(ctx, tx, eventType, input.ActorID, payment); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return moved, nil
}

func (s *Store) ListPaymentEvents(ctx context.Context, paymentID string) ([]models.PaymentEvent, error) {
	if _, err := uuid.Parse(paymentID); err != nil {
		return nil, store.ErrPaymentNotFound
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT seq, payment_id, type, actor_id, payload, created_at
		FROM payment_events
		WHERE payment_id = $1
		ORDER BY seq ASC
	`, paymentID)
	if err != nil {
		return nil, err
	}
	return collectEvents(rows)
}

func insertPaymentEvent(ctx context.Context, tx pgx.Tx, eventType, actorID string, payment models.Payment) error {
	payload, err := json.Marshal(payment)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO payment_events (payment_id, type, actor_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, payment.PaymentID, eventType, actorID, payload, time.Now().UTC())
	return err
}

func collectPayments(rows pgx.Rows) ([]models.Payment, error) {
	defer rows.Close()

	payments := make([]models.Payment, 0)
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}

func scanPayment(row pgx.Row) (models.Payment, error) {
	var payment models.Payment
	var amount string
	var verifiedAtNull sql.NullTime
	var verifiedByNull sql.NullString
	var submittedAtNull sql.NullTime
	var submittedByNull sql.NullString
	if err := row.Scan(&payment.PaymentID, &payment.CustomerID, &amount, &payment.Currency, &payment.PayeeAccount, &payment.SwiftCode,
		&payment.Provider, &payment.Status, &payment.Version, &payment.CreatedAt,
		&verifiedAtNull, &verifiedByNull, &submittedAtNull, &submittedByNull); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Payment{}, store.ErrPaymentNotFound
		}
		return models.Payment{}, err
	}
	value, err := decimal.NewFromString(amount)
	if err != nil {
		return models.Payment{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	payment.Amount = value
	payment.VerifiedAt = nullTimePtr(verifiedAtNull)
	payment.VerifiedBy = nullStringPtr(verifiedByNull)
	payment.SubmittedAt = nullTimePtr(submittedAtNull)
	payment.SubmittedBy = nullStringPtr(submittedByNull)
	return payment, nil
}

func nullTimePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	return &value.Time
}

func nullStringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	return &value.String
}
