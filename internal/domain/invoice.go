package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice types. Regular installments are numbered sequentially from 1;
// foreclosure and prepayment invoices are singular events numbered 1.
const (
	InvoiceTypeEMI         = "EMI"
	InvoiceTypeForeclosure = "FORECLOSURE"
	InvoiceTypePrePayment  = "PRE_PAYMENT"
)

const (
	InvoiceStatusIssued = "issued"
	InvoiceStatusPaid   = "paid"
)

// Invoice is one billing event against a subscription. external_invoice_id is
// unique among live rows; re-delivery of the same remote invoice updates the
// existing row.
type Invoice struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	SubscriptionID    uuid.UUID       `json:"subscription_id" db:"subscription_id"`
	ExternalInvoiceID string          `json:"external_invoice_id" db:"external_invoice_id"`
	EMINumber         int             `json:"emi_number" db:"emi_number"`
	Amount            decimal.Decimal `json:"amount" db:"amount"`
	Status            string          `json:"status" db:"status"`
	InvoiceType       string          `json:"invoice_type" db:"invoice_type"`
	ShortURL          string          `json:"short_url" db:"short_url"`
	PaidAt            *time.Time      `json:"paid_at,omitempty" db:"paid_at"`
	IsDeleted         bool            `json:"is_deleted" db:"is_deleted"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// InvoiceUpsert carries the fields of an incoming remote invoice payload.
// Nil pointers mean the remote payload did not include the field; a partial
// payload must never null out a previously known value.
type InvoiceUpsert struct {
	ExternalInvoiceID string
	SubscriptionID    uuid.UUID
	InvoiceType       string
	EMINumber         int
	Amount            *decimal.Decimal
	Status            *string
	ShortURL          *string
	PaidAt            *time.Time
}
