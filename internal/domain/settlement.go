package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Settlement kinds: early full closure vs an out-of-cycle installment payment.
const (
	SettlementKindForeclosure = "foreclosure"
	SettlementKindPrePayment  = "prepayment"
)

const (
	SettlementStatusPending  = "pending"
	SettlementStatusApproved = "approved"
	SettlementStatusRejected = "rejected"
)

const (
	PaymentStatusCreated = "created"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// Settlement is one foreclosure or prepayment request against a subscription.
// It owns exactly one PaymentDetail.
type Settlement struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	SubscriptionID uuid.UUID       `json:"subscription_id" db:"subscription_id"`
	LoanID         string          `json:"loan_id" db:"loan_id"`
	Kind           string          `json:"kind" db:"kind"`
	Amount         decimal.Decimal `json:"amount" db:"amount"`
	EMINumber      int             `json:"emi_number" db:"emi_number"`
	Status         string          `json:"status" db:"status"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// PaymentDetail records the payment-link attempt backing a settlement.
// Exactly one of ForeclosureID/PrepaymentID is set, never both, never neither
// (mirrors the table check constraint). PaymentID holds the gateway payment
// link id until a capture replaces it with the payment id.
type PaymentDetail struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	PaymentID     string          `json:"payment_id" db:"payment_id"`
	ReferenceID   string          `json:"reference_id" db:"reference_id"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Status        string          `json:"status" db:"status"`
	ForeclosureID *uuid.UUID      `json:"foreclosure_id,omitempty" db:"foreclosure_id"`
	PrepaymentID  *uuid.UUID      `json:"prepayment_id,omitempty" db:"prepayment_id"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// Owner returns the settlement id the detail belongs to.
func (p *PaymentDetail) Owner() uuid.UUID {
	if p.ForeclosureID != nil {
		return *p.ForeclosureID
	}
	if p.PrepaymentID != nil {
		return *p.PrepaymentID
	}
	return uuid.Nil
}

// Valid enforces the exactly-one-owner invariant.
func (p *PaymentDetail) Valid() bool {
	return (p.ForeclosureID != nil) != (p.PrepaymentID != nil)
}
