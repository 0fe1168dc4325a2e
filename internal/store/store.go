package store

import (
	"context"
	"time"

	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/models"

	"github.com/shopspring/decimal"
)

// UserLookup identifies a user at login. Empty AccountNumber is not matched.
type UserLookup struct {
	Username      string
	AccountNumber string
	Role          models.Role
}

type UserStore interface {
	// UserExists reports whether any user already holds username, accountNumber or idNumber.
	UserExists(ctx context.Context, username, accountNumber, idNumber string) (bool, error)
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindUser(ctx context.Context, lookup UserLookup) (models.User, error)
	GetUser(ctx context.Context, userID string) (models.User, error)
	ListUsers(ctx context.Context, limit int) ([]models.User, error)
}

type SessionStore interface {
	CreateSession(ctx context.Context, session models.Session) error
	GetSession(ctx context.Context, sessionID string) (models.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
	PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type CreatePaymentInput struct {
	CustomerID   string
	Amount       decimal.Decimal
	Currency     string
	PayeeAccount string
	SwiftCode    string
	CreatedAt    time.Time
}

// TransitionInput describes a conditional status change applied by a staff member.
type TransitionInput struct {
	Action     string
	PaymentIDs []string
	ActorID    string
	OccurredAt time.Time
}

type PaymentStore interface {
	CreatePayment(ctx context.Context, input CreatePaymentInput) (models.Payment, error)
	GetPayment(ctx context.Context, paymentID string) (models.Payment, error)
	ListPayments(ctx context.Context, limit int) ([]models.Payment, error)
	ListCustomerPayments(ctx context.Context, customerID string, limit int) ([]models.Payment, error)
	// TransitionPayments moves every listed payment currently in the action's
	// prior status to its next status in one atomic statement and returns the
	// payments that moved. Payments in any other state are left untouched.
	TransitionPayments(ctx context.Context, input TransitionInput) ([]models.Payment, error)
	ListPaymentEvents(ctx context.Context, paymentID string) ([]models.PaymentEvent, error)
}

// OutboxStore feeds the event relay.
type OutboxStore interface {
	ListOutboxEvents(ctx context.Context, afterSeq int64, limit int) ([]models.PaymentEvent, error)
	GetRelayOffset(ctx context.Context, consumer string) (int64, error)
	UpdateRelayOffset(ctx context.Context, consumer string, seq int64) error
}
