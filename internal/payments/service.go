// Package payments runs the payment workflow: customers create payments,
// staff verify them one at a time and submit verified payments to SWIFT in batches.
package payments

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"time"

	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/models"
	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/store"
	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/validate"

	"github.com/google/uuid"
)

const (
	DefaultListLimit    = 100
	DefaultMaxBatchSize = 100
)

var ErrInvalidIDs = errors.New("invalid IDs")

var transitionsTotal = expvar.NewInt("payments_transitions_total")

type CreateInput struct {
	Amount       string
	Currency     string
	PayeeAccount string
	SwiftCode    string
}

type Options struct {
	ListLimit    int
	MaxBatchSize int
}

type Service struct {
	store        store.PaymentStore
	listLimit    int
	maxBatchSize int
	now          func() time.Time
}

func NewService(st store.PaymentStore, options Options) *Service {
	listLimit := options.ListLimit
	if listLimit <= 0 || listLimit > DefaultListLimit {
		listLimit = DefaultListLimit
	}
	maxBatch := options.MaxBatchSize
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatchSize
	}
	return &Service{
		store:        st,
		listLimit:    listLimit,
		maxBatchSize: maxBatch,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Create records a pending payment owned by customer.
func (s *Service) Create(ctx context.Context, customer models.User, input CreateInput) (models.Payment, error) {
	input.Amount = validate.Sanitize(input.Amount)
	input.Currency = validate.Sanitize(input.Currency)
	input.PayeeAccount = validate.Sanitize(input.PayeeAccount)
	input.SwiftCode = validate.Sanitize(input.SwiftCode)

	if err := validate.Payment(input.Amount, input.Currency, input.PayeeAccount, input.SwiftCode); err != nil {
		return models.Payment{}, err
	}
	amount, err := validate.Amount(input.Amount)
	if err != nil {
		return models.Payment{}, err
	}

	payment, err := s.store.CreatePayment(ctx, store.CreatePaymentInput{
		CustomerID:   customer.UserID,
		Amount:       amount,
		Currency:     input.Currency,
		PayeeAccount: input.PayeeAccount,
		SwiftCode:    input.SwiftCode,
		CreatedAt:    s.now(),
	})
	if err != nil {
		return models.Payment{}, fmt.Errorf("create payment: %w", err)
	}
	return payment, nil
}

// Verify moves a pending payment to verified. A payment that does not exist
// and one that is no longer pending both return store.ErrPaymentNotFound.
func (s *Service) Verify(ctx context.Context, staff models.User, paymentID string) (models.Payment, error) {
	if _, err := uuid.Parse(paymentID); err != nil {
		return models.Payment{}, store.ErrPaymentNotFound
	}
	moved, err := s.store.TransitionPayments(ctx, store.TransitionInput{
		Action:     store.ActionVerify,
		PaymentIDs: []string{paymentID},
		ActorID:    staff.UserID,
		OccurredAt: s.now(),
	})
	if err != nil {
		return models.Payment{}, fmt.Errorf("verify payment: %w", err)
	}
	if len(moved) == 0 {
		return models.Payment{}, store.ErrPaymentNotFound
	}
	transitionsTotal.Add(1)
	return moved[0], nil
}

// SubmitBatch submits every verified payment among ids and skips the rest.
// It returns the submitted payments, or store.ErrPaymentNotFound when none qualified.
func (s *Service) SubmitBatch(ctx context.Context, staff models.User, ids []string) ([]models.Payment, error) {
	if len(ids) == 0 || len(ids) > s.maxBatchSize {
		return nil, ErrInvalidIDs
	}
	unique := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, ErrInvalidIDs
		}
		key := parsed.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, key)
	}

	moved, err := s.store.TransitionPayments(ctx, store.TransitionInput{
		Action:     store.ActionSubmit,
		PaymentIDs: unique,
		ActorID:    staff.UserID,
		OccurredAt: s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("submit payments: %w", err)
	}
	if len(moved) == 0 {
		return nil, store.ErrPaymentNotFound
	}
	transitionsTotal.Add(int64(len(moved)))
	return moved, nil
}

// List returns the newest payments, capped at the service list limit.
func (s *Service) List(ctx context.Context, limit int) ([]models.Payment, error) {
	return s.store.ListPayments(ctx, s.clampLimit(limit))
}

func (s *Service) ListForCustomer(ctx context.Context, customer models.User, limit int) ([]models.Payment, error) {
	return s.store.ListCustomerPayments(ctx, customer.UserID, s.clampLimit(limit))
}

// Events returns the audit trail of one payment, oldest first.
func (s *Service) Events(ctx context.Context, paymentID string) ([]models.PaymentEvent, error) {
	if _, err := uuid.Parse(paymentID); err != nil {
		return nil, store.ErrPaymentNotFound
	}
	events, err := s.store.ListPaymentEvents(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, store.ErrPaymentNotFound
	}
	return events, nil
}

func (s *Service) clampLimit(limit int) int {
	if limit <= 0 || limit > s.listLimit {
		return s.listLimit
	}
	return limit
}
