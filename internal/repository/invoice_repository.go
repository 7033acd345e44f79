package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lendstack/lending-engine/internal/domain"
)

type invoiceRepository struct {
	db *sqlx.DB
}

func NewInvoiceRepository(db *sqlx.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) GetByExternalID(ctx context.Context, externalInvoiceID string) (*domain.Invoice, error) {
	query := `
		SELECT id, subscription_id, external_invoice_id, emi_number, amount, status, invoice_type, short_url, paid_at, is_deleted, created_at, updated_at
		FROM invoices
		WHERE external_invoice_id = $1 AND is_deleted = false
	`

	var invoice domain.Invoice
	err := r.db.GetContext(ctx, &invoice, query, externalInvoiceID)
	if err != nil {
		return nil, err
	}

	return &invoice, nil
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *domain.Invoice) error {
	query := `
		INSERT INTO invoices (id, subscription_id, external_invoice_id, emi_number, amount, status, invoice_type, short_url, paid_at, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, false, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		invoice.ID,
		invoice.SubscriptionID,
		invoice.ExternalInvoiceID,
		invoice.EMINumber,
		invoice.Amount,
		invoice.Status,
		invoice.InvoiceType,
		invoice.ShortURL,
		invoice.PaidAt,
		invoice.CreatedAt,
		invoice.UpdatedAt,
	)

	return err
}

func (r *invoiceRepository) Update(ctx context.Context, invoice *domain.Invoice) error {
	query := `
		UPDATE invoices
		SET emi_number = $2, amount = $3, status = $4, short_url = $5, paid_at = $6, updated_at = $7
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		invoice.ID,
		invoice.EMINumber,
		invoice.Amount,
		invoice.Status,
		invoice.ShortURL,
		invoice.PaidAt,
		time.Now(),
	)

	return err
}

func (r *invoiceRepository) CountBySubscription(ctx context.Context, subscriptionID uuid.UUID, invoiceType string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM invoices
		WHERE subscription_id = $1 AND invoice_type = $2 AND is_deleted = false
	`

	var count int
	if err := r.db.GetContext(ctx, &count, query, subscriptionID, invoiceType); err != nil {
		return 0, err
	}

	return count, nil
}
