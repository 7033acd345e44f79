package handler

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lendstack/lending-engine/internal/config"
	"github.com/lendstack/lending-engine/internal/domain"
	"github.com/lendstack/lending-engine/internal/service"
	"github.com/lendstack/lending-engine/pkg/utils"
)

// Webhook protocol headers.
const (
	HeaderSignature = "X-Signature"
	HeaderEventID   = "X-Webhook-Event-Id"
)

type eventHandler func(ctx context.Context, payload json.RawMessage) error

// dedupeStore tracks successfully processed webhook event ids so redeliveries
// can be acknowledged without re-dispatching. Best effort: all handlers are
// idempotent anyway, so a missed mark just means re-applying a no-op.
type dedupeStore interface {
	Seen(ctx context.Context, eventID string) bool
	MarkProcessed(ctx context.Context, eventID string)
}

// WebhookHandler verifies and routes gateway webhooks. The signature check
// runs over the raw body before any parsing or database access; events
// without a table entry are acknowledged with no side effects so the gateway
// stops retrying them.
type WebhookHandler struct {
	secret     string
	reconciler *service.SubscriptionReconciler
	dedupe     dedupeStore
	handlers   map[string]eventHandler
}

func NewWebhookHandler(reconciler *service.SubscriptionReconciler, redisClient *redis.Client, cfg *config.Config) *WebhookHandler {
	h := &WebhookHandler{
		secret:     cfg.Gateway.WebhookSecret,
		reconciler: reconciler,
	}
	if redisClient != nil {
		h.dedupe = &redisDedupe{client: redisClient, ttl: cfg.GetWebhookDedupeTTL()}
	}

	h.handlers = map[string]eventHandler{
		domain.EventSubscriptionAuthenticated: h.subscriptionEvent(domain.SubscriptionStatusAuthenticated),
		domain.EventSubscriptionActivated:     h.subscriptionEvent(domain.SubscriptionStatusActive),
		domain.EventSubscriptionPaused:        h.subscriptionEvent(domain.SubscriptionStatusPaused),
		domain.EventSubscriptionCancelled:     h.subscriptionEvent(domain.SubscriptionStatusCancelled),
		domain.EventSubscriptionCompleted:     h.subscriptionEvent(domain.SubscriptionStatusCompleted),
		domain.EventInvoicePaid:               h.invoicePaid,
		domain.EventPaymentLinkPaid:           h.paymentLinkPaid,
	}

	return h
}

// Handle implements POST /webhook.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeWebhookStatus(w, http.StatusInternalServerError, "error")
		return
	}

	if !utils.VerifySignature(h.secret, body, r.Header.Get(HeaderSignature)) {
		writeWebhookStatus(w, http.StatusBadRequest, "invalid signature")
		return
	}

	var envelope domain.WebhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		log.Printf("webhook body unparseable after valid signature: %v", err)
		writeWebhookStatus(w, http.StatusInternalServerError, "error")
		return
	}

	eventID := r.Header.Get(HeaderEventID)
	if h.dedupe != nil && eventID != "" && h.dedupe.Seen(r.Context(), eventID) {
		writeWebhookStatus(w, http.StatusOK, "success")
		return
	}

	handle, ok := h.handlers[envelope.Event]
	if !ok {
		// Intentionally ignored event types still get a success ack.
		writeWebhookStatus(w, http.StatusOK, "success")
		return
	}

	if err := handle(r.Context(), envelope.Payload); err != nil {
		log.Printf("webhook %s failed: %v", envelope.Event, err)
		writeWebhookStatus(w, http.StatusInternalServerError, "error")
		return
	}

	// Marked only after the handler succeeds: a failed handler leaves the id
	// unseen so the gateway's retry of the same event is re-dispatched.
	if h.dedupe != nil && eventID != "" {
		h.dedupe.MarkProcessed(r.Context(), eventID)
	}

	writeWebhookStatus(w, http.StatusOK, "success")
}

func (h *WebhookHandler) subscriptionEvent(target string) eventHandler {
	return func(ctx context.Context, payload json.RawMessage) error {
		var event domain.SubscriptionEventPayload
		if err := json.Unmarshal(payload, &event); err != nil {
			return err
		}
		return h.reconciler.HandleSubscriptionEvent(ctx, &event, target)
	}
}

func (h *WebhookHandler) invoicePaid(ctx context.Context, payload json.RawMessage) error {
	var event domain.InvoiceEventPayload
	if err := json.Unmarshal(payload, &event); err != nil {
		return err
	}
	return h.reconciler.HandleInvoicePaid(ctx, &event)
}

func (h *WebhookHandler) paymentLinkPaid(ctx context.Context, payload json.RawMessage) error {
	var event domain.PaymentLinkEventPayload
	if err := json.Unmarshal(payload, &event); err != nil {
		return err
	}
	return h.reconciler.HandlePaymentLinkPaid(ctx, &event)
}

// redisDedupe is the redis-backed dedupe store. Errors degrade to treating
// the event as unseen.
type redisDedupe struct {
	client *redis.Client
	ttl    time.Duration
}

func dedupeKey(eventID string) string {
	return "webhook:event:" + eventID
}

func (d *redisDedupe) Seen(ctx context.Context, eventID string) bool {
	seen, err := d.client.Exists(ctx, dedupeKey(eventID)).Result()
	if err != nil {
		log.Printf("webhook dedupe check failed for %s: %v", eventID, err)
		return false
	}
	return seen > 0
}

func (d *redisDedupe) MarkProcessed(ctx context.Context, eventID string) {
	if err := d.client.Set(ctx, dedupeKey(eventID), 1, d.ttl).Err(); err != nil {
		log.Printf("webhook dedupe mark failed for %s: %v", eventID, err)
	}
}

// writeWebhookStatus emits the gateway's expected bare status body, distinct
// from the API response envelope.
func writeWebhookStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(map[string]string{"status": status}); err != nil {
		log.Printf("Error encoding webhook response: %v", err)
	}
}
