package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending   = "pending"
	StatusVerified  = "verified"
	StatusSubmitted = "submitted"
)

// ProviderSWIFT is the only settlement provider payments are routed through.
const ProviderSWIFT = "SWIFT"

type Payment struct {
	PaymentID    string          `json:"id"`
	CustomerID   string          `json:"customerId"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	PayeeAccount string          `json:"payeeAccount"`
	SwiftCode    string          `json:"swiftCode"`
	Provider     string          `json:"provider"`
	Status       string          `json:"status"`
	Version      int             `json:"version"`
	CreatedAt    time.Time       `json:"createdAt"`
	VerifiedAt   *time.Time      `json:"verifiedAt,omitempty"`
	VerifiedBy   *string         `json:"verifiedBy,omitempty"`
	SubmittedAt  *time.Time      `json:"submittedAt,omitempty"`
	SubmittedBy  *string         `json:"submittedBy,omitempty"`
}

const (
	EventPaymentCreated   = "payment.created"
	EventPaymentVerified  = "payment.verified"
	EventPaymentSubmitted = "payment.submitted"
)

type PaymentEvent struct {
	Seq       int64           `json:"seq"`
	PaymentID string          `json:"payment_id"`
	Type      string          `json:"type"`
	ActorID   string          `json:"actor_id"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}
