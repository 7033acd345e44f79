package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	LoanStatusActive    = "active"
	LoanStatusCompleted = "completed"
	LoanStatusClosed    = "closed"
)

// Loan types drive fee treatment on disbursal.
const (
	LoanTypePersonal = "personal"
	LoanTypeBusiness = "business"
)

// Loan represents a loan entity
type Loan struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	LoanID       string          `json:"loan_id" db:"loan_id"`
	Amount       decimal.Decimal `json:"amount" db:"amount"`
	AnnualRate   decimal.Decimal `json:"annual_rate" db:"annual_rate"`
	TenureMonths int             `json:"tenure_months" db:"tenure_months"`
	MonthlyEMI   decimal.Decimal `json:"monthly_emi" db:"monthly_emi"`
	LoanType     string          `json:"loan_type" db:"loan_type"`
	Status       string          `json:"status" db:"status"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	LoanID            string          `json:"loan_id" validate:"required"`
	Amount            decimal.Decimal `json:"loan_amount" validate:"required"`
	TenureMonths      int             `json:"tenure_months" validate:"required,gt=0"`
	AnnualRate        decimal.Decimal `json:"annual_interest_rate"`
	ProcessingFee     decimal.Decimal `json:"processing_fee"`
	IsFeePercentage   bool            `json:"is_fee_percentage"`
	LoanType          string          `json:"loan_type" validate:"required,oneof=personal business"`
	ScheduleAnchorDay int             `json:"schedule_anchor_day" validate:"omitempty,min=1,max=28"`
}

type EMIRequest struct {
	Amount            decimal.Decimal `json:"loan_amount" validate:"required"`
	TenureMonths      int             `json:"tenure_months" validate:"required,gt=0"`
	AnnualRate        decimal.Decimal `json:"annual_interest_rate"`
	ProcessingFee     decimal.Decimal `json:"processing_fee"`
	IsFeePercentage   bool            `json:"is_fee_percentage"`
	LoanType          string          `json:"loan_type" validate:"required,oneof=personal business"`
	ScheduleAnchorDay int             `json:"schedule_anchor_day" validate:"omitempty,min=1,max=28"`
}

type SettlementRequest struct {
	CallbackURL string `json:"callback_url" validate:"omitempty,url"`
}

type SettlementResponse struct {
	Kind     string          `json:"kind"`
	Amount   decimal.Decimal `json:"amount"`
	ShortURL string          `json:"short_url"`
	Status   string          `json:"status"`
}
