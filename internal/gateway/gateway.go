package gateway

import (
	"context"
)

// SubscriptionGateway abstracts the remote recurring-payment service. It is
// constructed once at process start and injected into everything that talks
// to the gateway, so tests can substitute a double.
type SubscriptionGateway interface {
	CreatePlan(ctx context.Context, req *CreatePlanRequest) (*Plan, error)
	CreateSubscription(ctx context.Context, req *CreateSubscriptionRequest) (*Subscription, error)
	CancelSubscription(ctx context.Context, externalSubscriptionID string) error
	CreatePaymentLink(ctx context.Context, req *CreatePaymentLinkRequest) (*PaymentLink, error)
	FetchPayment(ctx context.Context, paymentID string) (*Payment, error)
}

// PlanItem is the billed line item of a plan. Amount is in minor currency
// units (paise).
type PlanItem struct {
	Name        string `json:"name"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description,omitempty"`
}

type CreatePlanRequest struct {
	Period   string   `json:"period"`
	Interval int      `json:"interval"`
	Item     PlanItem `json:"item"`
}

type Plan struct {
	ID       string   `json:"id"`
	Period   string   `json:"period"`
	Interval int      `json:"interval"`
	Item     PlanItem `json:"item"`
}

type CreateSubscriptionRequest struct {
	PlanID         string `json:"plan_id"`
	TotalCount     int    `json:"total_count"`
	Quantity       int    `json:"quantity"`
	CustomerNotify bool   `json:"customer_notify"`
	StartAt        int64  `json:"start_at,omitempty"`
}

type Subscription struct {
	ID             string `json:"id"`
	PlanID         string `json:"plan_id"`
	Status         string `json:"status"`
	TotalCount     int    `json:"total_count"`
	PaidCount      int    `json:"paid_count"`
	RemainingCount int    `json:"remaining_count"`
	ShortURL       string `json:"short_url"`
}

// CreatePaymentLinkRequest creates a one-off link for foreclosure or
// prepayment collection. Amount is in minor units.
type CreatePaymentLinkRequest struct {
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	ReferenceID string `json:"reference_id"`
	CallbackURL string `json:"callback_url,omitempty"`
}

type PaymentLink struct {
	ID          string `json:"id"`
	ReferenceID string `json:"reference_id"`
	ShortURL    string `json:"short_url"`
	Status      string `json:"status"`
}

type Payment struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
	Status string `json:"status"`
}
