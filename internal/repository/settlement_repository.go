package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lendstack/lending-engine/internal/domain"
)

type settlementRepository struct {
	db *sqlx.DB
}

func NewSettlementRepository(db *sqlx.DB) SettlementRepository {
	return &settlementRepository{db: db}
}

func (r *settlementRepository) Create(ctx context.Context, settlement *domain.Settlement) error {
	query := `
		INSERT INTO settlements (id, subscription_id, loan_id, kind, amount, emi_number, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		settlement.ID,
		settlement.SubscriptionID,
		settlement.LoanID,
		settlement.Kind,
		settlement.Amount,
		settlement.EMINumber,
		settlement.Status,
		settlement.CreatedAt,
		settlement.UpdatedAt,
	)

	return err
}

func (r *settlementRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Settlement, error) {
	query := `
		SELECT id, subscription_id, loan_id, kind, amount, emi_number, status, created_at, updated_at
		FROM settlements
		WHERE id = $1
	`

	var settlement domain.Settlement
	if err := r.db.GetContext(ctx, &settlement, query, id); err != nil {
		return nil, err
	}

	return &settlement, nil
}

func (r *settlementRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `
		UPDATE settlements
		SET status = $2, updated_at = $3
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, status, time.Now())
	return err
}

func (r *settlementRepository) ListStalePending(ctx context.Context, cutoff time.Time) ([]*domain.Settlement, error) {
	query := `
		SELECT id, subscription_id, loan_id, kind, amount, emi_number, status, created_at, updated_at
		FROM settlements
		WHERE status = 'pending' AND created_at < $1
		ORDER BY created_at
	`

	var settlements []*domain.Settlement
	if err := r.db.SelectContext(ctx, &settlements, query, cutoff); err != nil {
		return nil, err
	}

	return settlements, nil
}

// CreatePaymentDetail writes the detail row owned by exactly one settlement.
// The table carries a check constraint enforcing that exactly one of
// foreclosure_id/prepayment_id is set; Valid mirrors it before the round trip.
func (r *settlementRepository) CreatePaymentDetail(ctx context.Context, detail *domain.PaymentDetail) error {
	query := `
		INSERT INTO payment_details (id, payment_id, reference_id, amount, status, foreclosure_id, prepayment_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		detail.ID,
		detail.PaymentID,
		detail.ReferenceID,
		detail.Amount,
		detail.Status,
		detail.ForeclosureID,
		detail.PrepaymentID,
		detail.CreatedAt,
		detail.UpdatedAt,
	)

	return err
}

func (r *settlementRepository) GetPaymentDetailByPaymentID(ctx context.Context, paymentID string) (*domain.PaymentDetail, error) {
	query := `
		SELECT id, payment_id, reference_id, amount, status, foreclosure_id, prepayment_id, created_at, updated_at
		FROM payment_details
		WHERE payment_id = $1
	`

	var detail domain.PaymentDetail
	if err := r.db.GetContext(ctx, &detail, query, paymentID); err != nil {
		return nil, err
	}

	return &detail, nil
}

func (r *settlementRepository) UpdatePaymentDetail(ctx context.Context, detail *domain.PaymentDetail) error {
	query := `
		UPDATE payment_details
		SET payment_id = $2, amount = $3, status = $4, updated_at = $5
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		detail.ID,
		detail.PaymentID,
		detail.Amount,
		detail.Status,
		time.Now(),
	)

	return err
}
