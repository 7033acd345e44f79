package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lendstack/lending-engine/internal/domain"
	"github.com/lendstack/lending-engine/internal/gateway"
	"github.com/lendstack/lending-engine/internal/repository"
	customError "github.com/lendstack/lending-engine/pkg/errors"
	"github.com/lendstack/lending-engine/pkg/utils"
)

// InvoiceLedger keeps the local invoice table aligned with the gateway's
// billing events. All writes are idempotent upserts keyed on the remote
// invoice id.
type InvoiceLedger struct {
	InvoiceRepo repository.InvoiceRepository
	Gateway     gateway.SubscriptionGateway
}

func NewInvoiceLedger(invoiceRepo repository.InvoiceRepository, gw gateway.SubscriptionGateway) *InvoiceLedger {
	return &InvoiceLedger{
		InvoiceRepo: invoiceRepo,
		Gateway:     gw,
	}
}

// UpsertInvoice creates the invoice if the remote id is unseen, otherwise
// updates only the fields present in the incoming payload. A partial remote
// payload never nulls out a previously known field.
func (l *InvoiceLedger) UpsertInvoice(ctx context.Context, up *domain.InvoiceUpsert) (*domain.Invoice, error) {
	if up.ExternalInvoiceID == "" {
		return nil, customError.WrapValidation("external invoice id is required")
	}

	existing, err := l.InvoiceRepo.GetByExternalID(ctx, up.ExternalInvoiceID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapDatabaseError(err)
	}

	if existing == nil {
		invoice := &domain.Invoice{
			ID:                uuid.New(),
			SubscriptionID:    up.SubscriptionID,
			ExternalInvoiceID: up.ExternalInvoiceID,
			EMINumber:         up.EMINumber,
			InvoiceType:       up.InvoiceType,
			Status:            domain.InvoiceStatusIssued,
			CreatedAt:         time.Now(),
			UpdatedAt:         time.Now(),
		}
		applyInvoiceFields(invoice, up)

		if err := l.InvoiceRepo.Create(ctx, invoice); err != nil {
			return nil, customError.WrapDatabaseError(err)
		}
		return invoice, nil
	}

	if up.EMINumber > 0 {
		existing.EMINumber = up.EMINumber
	}
	applyInvoiceFields(existing, up)

	if err := l.InvoiceRepo.Update(ctx, existing); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return existing, nil
}

// RecordSettlementInvoice writes the singular invoice for a foreclosure or
// prepayment capture. It verifies the remote payment is actually in paid
// state first; invoices are never created for pending or failed attempts.
func (l *InvoiceLedger) RecordSettlementInvoice(
	ctx context.Context,
	subscriptionID uuid.UUID,
	invoiceType string,
	paymentID string,
) (*domain.Invoice, error) {
	payment, err := l.Gateway.FetchPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if payment.Status != domain.PaymentStatusPaid {
		return nil, customError.NewBusinessError(
			customError.ErrCodePaymentNotCaptured,
			fmt.Sprintf("payment %s is %s, not paid", paymentID, payment.Status),
			customError.ErrPaymentNotCaptured,
		)
	}

	amount := utils.FromMinorUnits(payment.Amount)
	status := domain.InvoiceStatusPaid
	paidAt := time.Now()

	// Foreclosure and prepayment invoices are singular events, numbered 1.
	return l.UpsertInvoice(ctx, &domain.InvoiceUpsert{
		ExternalInvoiceID: paymentID,
		SubscriptionID:    subscriptionID,
		InvoiceType:       invoiceType,
		EMINumber:         1,
		Amount:            &amount,
		Status:            &status,
		PaidAt:            &paidAt,
	})
}

// NextEMINumber returns the sequence number for the next regular installment
// invoice when the gateway's paid counter is not usable.
func (l *InvoiceLedger) NextEMINumber(ctx context.Context, subscriptionID uuid.UUID) (int, error) {
	count, err := l.InvoiceRepo.CountBySubscription(ctx, subscriptionID, domain.InvoiceTypeEMI)
	if err != nil {
		return 0, customError.WrapDatabaseError(err)
	}
	return count + 1, nil
}

func applyInvoiceFields(invoice *domain.Invoice, up *domain.InvoiceUpsert) {
	if up.Amount != nil {
		invoice.Amount = *up.Amount
	}
	if up.Status != nil {
		invoice.Status = *up.Status
	}
	if up.ShortURL != nil {
		invoice.ShortURL = *up.ShortURL
	}
	if up.PaidAt != nil {
		invoice.PaidAt = up.PaidAt
	}
}

// StringPtr is a small helper for building partial upserts.
func StringPtr(s string) *string { return &s }
