package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Subscription states, mirroring the remote gateway's lifecycle.
const (
	SubscriptionStatusCreated       = "created"
	SubscriptionStatusAuthenticated = "authenticated"
	SubscriptionStatusActive        = "active"
	SubscriptionStatusPaused        = "paused"
	SubscriptionStatusCancelled     = "cancelled"
	SubscriptionStatusCompleted     = "completed"
)

// IsTerminalSubscriptionStatus reports whether status can never be left again.
// A terminal status must not be overwritten by a late non-terminal webhook.
func IsTerminalSubscriptionStatus(status string) bool {
	return status == SubscriptionStatusCancelled || status == SubscriptionStatusCompleted
}

// Plan is the local record of a remote billing plan. One per loan account,
// immutable after creation except soft-delete.
type Plan struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	LoanID         string          `json:"loan_id" db:"loan_id"`
	ExternalPlanID string          `json:"external_plan_id" db:"external_plan_id"`
	Period         string          `json:"period" db:"period"`
	Interval       int             `json:"interval" db:"interval"`
	ItemAmount     decimal.Decimal `json:"item_amount" db:"item_amount"`
	ItemCurrency   string          `json:"item_currency" db:"item_currency"`
	IsDeleted      bool            `json:"is_deleted" db:"is_deleted"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// Subscription is the local record of the remote recurring subscription.
// paid_count + remaining_count == total_count whenever both are known.
type Subscription struct {
	ID                     uuid.UUID  `json:"id" db:"id"`
	PlanID                 uuid.UUID  `json:"plan_id" db:"plan_id"`
	LoanID                 string     `json:"loan_id" db:"loan_id"`
	ExternalSubscriptionID string     `json:"external_subscription_id" db:"external_subscription_id"`
	Status                 string     `json:"status" db:"status"`
	TotalCount             int        `json:"total_count" db:"total_count"`
	PaidCount              int        `json:"paid_count" db:"paid_count"`
	RemainingCount         int        `json:"remaining_count" db:"remaining_count"`
	StartAt                *time.Time `json:"start_at,omitempty" db:"start_at"`
	ShortURL               string     `json:"short_url" db:"short_url"`
	// CancelPending marks subscriptions that reached a local terminal state
	// but whose best-effort remote cancel has not succeeded yet.
	CancelPending bool      `json:"cancel_pending" db:"cancel_pending"`
	IsDeleted     bool      `json:"is_deleted" db:"is_deleted"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

type SubscriptionResponse struct {
	LoanID         string `json:"loan_id"`
	SubscriptionID string `json:"subscription_id"`
	Status         string `json:"status"`
	ShortURL       string `json:"short_url"`
	TotalCount     int    `json:"total_count"`
}
