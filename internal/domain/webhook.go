package domain

import "encoding/json"

// Webhook event names emitted by the gateway. Anything else is acknowledged
// and ignored so the gateway does not keep retrying events we never handle.
const (
	EventSubscriptionAuthenticated = "subscription.authenticated"
	EventSubscriptionActivated     = "subscription.activated"
	EventSubscriptionPaused        = "subscription.paused"
	EventSubscriptionCancelled     = "subscription.cancelled"
	EventSubscriptionCompleted     = "subscription.completed"
	EventInvoicePaid               = "invoice.paid"
	EventPaymentLinkPaid           = "payment_link.paid"
)

// WebhookEnvelope is the signed body of a gateway webhook.
type WebhookEnvelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// WebhookSubscription is the subscription entity inside event payloads.
// Amounts and counters reflect the gateway's view at emission time.
type WebhookSubscription struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	TotalCount     int    `json:"total_count"`
	PaidCount      int    `json:"paid_count"`
	RemainingCount int    `json:"remaining_count"`
	ShortURL       string `json:"short_url"`
}

// WebhookInvoice is the invoice entity inside invoice events. Amount is in
// minor currency units.
type WebhookInvoice struct {
	ID             string `json:"id"`
	SubscriptionID string `json:"subscription_id"`
	Amount         int64  `json:"amount"`
	Status         string `json:"status"`
	ShortURL       string `json:"short_url"`
	PaidAt         int64  `json:"paid_at"`
}

// WebhookPaymentLink is the payment-link entity inside payment_link events.
type WebhookPaymentLink struct {
	ID          string `json:"id"`
	ReferenceID string `json:"reference_id"`
	Status      string `json:"status"`
}

// WebhookPayment is the payment entity inside capture events. Amount is in
// minor currency units.
type WebhookPayment struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
	Status string `json:"status"`
}

type SubscriptionEventPayload struct {
	Subscription WebhookSubscription `json:"subscription"`
}

type InvoiceEventPayload struct {
	Invoice      WebhookInvoice      `json:"invoice"`
	Subscription WebhookSubscription `json:"subscription"`
}

type PaymentLinkEventPayload struct {
	PaymentLink WebhookPaymentLink `json:"payment_link"`
	Payment     WebhookPayment     `json:"payment"`
}
