package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/lendstack/lending-engine/internal/domain"
)

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	query := `
		INSERT INTO loans (id, loan_id, amount, annual_rate, tenure_months, monthly_emi, loan_type, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		loan.ID,
		loan.LoanID,
		loan.Amount,
		loan.AnnualRate,
		loan.TenureMonths,
		loan.MonthlyEMI,
		loan.LoanType,
		loan.Status,
		loan.CreatedAt,
		loan.UpdatedAt,
	)

	return err
}

func (r *loanRepository) GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error) {
	query := `
		SELECT id, loan_id, amount, annual_rate, tenure_months, monthly_emi, loan_type, status, created_at, updated_at
		FROM loans
		WHERE loan_id = $1
	`

	var loan domain.Loan
	err := r.db.GetContext(ctx, &loan, query, loanID)
	if err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) UpdateStatus(ctx context.Context, loanID string, status string) error {
	query := `
		UPDATE loans
		SET status = $2, updated_at = $3
		WHERE loan_id = $1
	`

	_, err := r.db.ExecContext(ctx, query, loanID, status, time.Now())
	return err
}
