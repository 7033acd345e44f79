package gateway

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/shopspring/decimal"

	customError "github.com/lendstack/lending-engine/pkg/errors"
	"github.com/lendstack/lending-engine/pkg/utils"
)

// PaymentLinkCreator wraps payment-link creation with the reference-id retry
// policy: a collision on the generated reference regenerates it and retries,
// bounded at maxAttempts total; every other error class propagates
// immediately.
type PaymentLinkCreator struct {
	gateway     SubscriptionGateway
	maxAttempts int
	now         func() time.Time
}

// NewPaymentLinkCreator builds the retry policy around a gateway.
func NewPaymentLinkCreator(gw SubscriptionGateway, maxAttempts int) *PaymentLinkCreator {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &PaymentLinkCreator{
		gateway:     gw,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// Create issues a payment link for the given subscription. The reference id
// is {subscription_id}+{epoch_millis}; collisions regenerate it. Exhausting
// all attempts yields ErrReferenceExhausted so callers can surface a
// retry-later message instead of a generic failure.
func (p *PaymentLinkCreator) Create(
	ctx context.Context,
	subscriptionID string,
	amount decimal.Decimal,
	currency string,
	description string,
	callbackURL string,
) (*PaymentLink, error) {
	var lastMillis int64
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		// A collision answered within the same millisecond would regenerate
		// the identical reference and collide forever; bump past the previous
		// attempt's timestamp so every retry sends a fresh reference.
		millis := p.now().UnixMilli()
		if millis <= lastMillis {
			millis = lastMillis + 1
		}
		lastMillis = millis

		referenceID := utils.PaymentLinkReference(subscriptionID, time.UnixMilli(millis))

		link, err := p.gateway.CreatePaymentLink(ctx, &CreatePaymentLinkRequest{
			Amount:      utils.ToMinorUnits(amount),
			Currency:    currency,
			Description: description,
			ReferenceID: referenceID,
			CallbackURL: callbackURL,
		})
		if err == nil {
			if link.ReferenceID == "" {
				link.ReferenceID = referenceID
			}
			return link, nil
		}

		if !errors.Is(err, customError.ErrReferenceExists) {
			return nil, customError.WrapGatewayError("payment link create", err)
		}

		log.Printf("payment link reference %s collided (attempt %d/%d)", referenceID, attempt, p.maxAttempts)
	}

	return nil, customError.WrapReferenceExhausted(subscriptionID, p.maxAttempts)
}
