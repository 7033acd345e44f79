package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lendstack/lending-engine/internal/domain"
)

type planRepository struct {
	db *sqlx.DB
}

func NewPlanRepository(db *sqlx.DB) PlanRepository {
	return &planRepository{db: db}
}

// Create relies on the unique index on (loan_id) WHERE is_deleted = false to
// close the duplicate-create race: ON CONFLICT DO NOTHING makes the insert an
// idempotent create-if-absent guard.
func (r *planRepository) Create(ctx context.Context, plan *domain.Plan) (bool, error) {
	query := `
		INSERT INTO plans (id, loan_id, external_plan_id, period, interval, item_amount, item_currency, is_deleted, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8)
		ON CONFLICT (loan_id) WHERE is_deleted = false DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		plan.ID,
		plan.LoanID,
		plan.ExternalPlanID,
		plan.Period,
		plan.Interval,
		plan.ItemAmount,
		plan.ItemCurrency,
		plan.CreatedAt,
	)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}

func (r *planRepository) GetByLoanID(ctx context.Context, loanID string) (*domain.Plan, error) {
	query := `
		SELECT id, loan_id, external_plan_id, period, interval, item_amount, item_currency, is_deleted, created_at
		FROM plans
		WHERE loan_id = $1 AND is_deleted = false
	`

	var plan domain.Plan
	err := r.db.GetContext(ctx, &plan, query, loanID)
	if err != nil {
		return nil, err
	}

	return &plan, nil
}

func (r *planRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE plans SET is_deleted = true WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

type subscriptionRepository struct {
	db *sqlx.DB
}

func NewSubscriptionRepository(db *sqlx.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

const subscriptionColumns = `
	id, plan_id, loan_id, external_subscription_id, status, total_count,
	paid_count, remaining_count, start_at, short_url, cancel_pending,
	is_deleted, created_at, updated_at
`

func (r *subscriptionRepository) Create(ctx context.Context, sub *domain.Subscription) (bool, error) {
	query := `
		INSERT INTO subscriptions (id, plan_id, loan_id, external_subscription_id, status, total_count, paid_count, remaining_count, start_at, short_url, cancel_pending, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, false, false, $11, $12)
		ON CONFLICT (loan_id) WHERE is_deleted = false DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		sub.ID,
		sub.PlanID,
		sub.LoanID,
		sub.ExternalSubscriptionID,
		sub.Status,
		sub.TotalCount,
		sub.PaidCount,
		sub.RemainingCount,
		sub.StartAt,
		sub.ShortURL,
		sub.CreatedAt,
		sub.UpdatedAt,
	)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}

func (r *subscriptionRepository) GetByLoanID(ctx context.Context, loanID string) (*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE loan_id = $1 AND is_deleted = false`

	var sub domain.Subscription
	if err := r.db.GetContext(ctx, &sub, query, loanID); err != nil {
		return nil, err
	}

	return &sub, nil
}

func (r *subscriptionRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE external_subscription_id = $1 AND is_deleted = false`

	var sub domain.Subscription
	if err := r.db.GetContext(ctx, &sub, query, externalID); err != nil {
		return nil, err
	}

	return &sub, nil
}

func (r *subscriptionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1 AND is_deleted = false`

	var sub domain.Subscription
	if err := r.db.GetContext(ctx, &sub, query, id); err != nil {
		return nil, err
	}

	return &sub, nil
}

func (r *subscriptionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `
		UPDATE subscriptions
		SET status = $2, updated_at = $3
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, status, time.Now())
	return err
}

func (r *subscriptionRepository) UpdateCounts(ctx context.Context, id uuid.UUID, paidCount, remainingCount int) error {
	query := `
		UPDATE subscriptions
		SET paid_count = $2, remaining_count = $3, updated_at = $4
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, paidCount, remainingCount, time.Now())
	return err
}

func (r *subscriptionRepository) SetCancelPending(ctx context.Context, id uuid.UUID, pending bool) error {
	query := `
		UPDATE subscriptions
		SET cancel_pending = $2, updated_at = $3
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, pending, time.Now())
	return err
}

func (r *subscriptionRepository) ListCancelPending(ctx context.Context) ([]*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE cancel_pending = true AND is_deleted = false ORDER BY updated_at`

	var subs []*domain.Subscription
	if err := r.db.SelectContext(ctx, &subs, query); err != nil {
		return nil, err
	}

	return subs, nil
}
