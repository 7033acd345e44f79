package amortization

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lendstack/lending-engine/internal/domain"
	customError "github.com/lendstack/lending-engine/pkg/errors"
)

var hundred = decimal.NewFromInt(100)

// Entry is one period of a computed schedule. Balance is the outstanding
// principal after the period's payment; the final entry's balance is exactly
// zero because the last period absorbs all rounding drift into its principal
// component.
type Entry struct {
	PeriodIndex   int             `json:"period_index"`
	EMIAmount     decimal.Decimal `json:"emi_amount"`
	PrincipalPaid decimal.Decimal `json:"principal_paid"`
	InterestPaid  decimal.Decimal `json:"interest_paid"`
	Balance       decimal.Decimal `json:"balance"`
	DueDate       time.Time       `json:"due_date"`
}

// Schedule is the full result of an EMI calculation.
type Schedule struct {
	Principal     decimal.Decimal `json:"principal"`
	MonthlyEMI    decimal.Decimal `json:"monthly_emi"`
	ProcessingFee decimal.Decimal `json:"processing_fee"`
	Disbursed     decimal.Decimal `json:"disbursed_amount"`
	Entries       []Entry         `json:"schedule"`
}

// Terms are the loan parameters feeding a calculation. AnnualRate is a
// percentage (12 means 12% p.a.).
type Terms struct {
	Amount            decimal.Decimal
	TenureMonths      int
	AnnualRate        decimal.Decimal
	ProcessingFee     decimal.Decimal
	IsFeePercentage   bool
	LoanType          string
	ScheduleAnchorDay int
}

// Calculate produces a reducing-balance EMI schedule for the given terms.
// Pure function: validation failures are rejected synchronously and nothing
// is retried.
func Calculate(terms Terms) (*Schedule, error) {
	if terms.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, customError.WrapValidation("loan amount must be greater than zero")
	}
	if terms.TenureMonths <= 0 {
		return nil, customError.WrapValidation("tenure must be greater than zero")
	}
	if terms.AnnualRate.IsNegative() {
		return nil, customError.WrapValidation("interest rate cannot be negative")
	}

	monthlyRate := terms.AnnualRate.InexactFloat64() / 12.0 / 100.0
	emi := monthlyEMI(terms.Amount, monthlyRate, terms.TenureMonths)

	monthlyRateDec := decimal.NewFromFloat(monthlyRate)
	anchor := scheduleAnchor(terms.ScheduleAnchorDay)

	entries := make([]Entry, 0, terms.TenureMonths)
	remaining := terms.Amount

	for period := 1; period <= terms.TenureMonths; period++ {
		interest := remaining.Mul(monthlyRateDec).Round(2)
		principal := emi.Sub(interest)
		total := emi

		// Last period drives the balance to exactly zero, absorbing rounding
		// drift into the principal component rather than spreading it.
		if period == terms.TenureMonths {
			principal = remaining
			total = principal.Add(interest)
		}

		remaining = remaining.Sub(principal)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}

		entries = append(entries, Entry{
			PeriodIndex:   period,
			EMIAmount:     total,
			PrincipalPaid: principal,
			InterestPaid:  interest,
			Balance:       remaining,
			DueDate:       anchor.AddDate(0, period, 0),
		})
	}

	fee := processingFee(terms)

	return &Schedule{
		Principal:     terms.Amount,
		MonthlyEMI:    emi,
		ProcessingFee: fee,
		Disbursed:     disbursedAmount(terms, fee),
		Entries:       entries,
	}, nil
}

// monthlyEMI applies the standard reducing-balance formula
// EMI = P*r*(1+r)^n / ((1+r)^n - 1), falling back to a straight-line split
// for zero-rate loans.
func monthlyEMI(principal decimal.Decimal, monthlyRate float64, tenure int) decimal.Decimal {
	if monthlyRate == 0 {
		return principal.Div(decimal.NewFromInt(int64(tenure))).Round(2)
	}

	factor := math.Pow(1+monthlyRate, float64(tenure))
	emi := principal.InexactFloat64() * monthlyRate * factor / (factor - 1)
	return decimal.NewFromFloat(emi).Round(2)
}

// processingFee is informational: it never alters the EMI.
func processingFee(terms Terms) decimal.Decimal {
	if terms.IsFeePercentage {
		return terms.Amount.Mul(terms.ProcessingFee).Div(hundred).Round(2)
	}
	return terms.ProcessingFee.Round(2)
}

// disbursedAmount deducts the fee upfront for business loans; personal loans
// collect it separately.
func disbursedAmount(terms Terms, fee decimal.Decimal) decimal.Decimal {
	if terms.LoanType == domain.LoanTypeBusiness {
		return terms.Amount.Sub(fee)
	}
	return terms.Amount
}

// scheduleAnchor pins the first due date one month after the anchor day of
// the current month, or after today when no anchor day is given.
func scheduleAnchor(anchorDay int) time.Time {
	now := time.Now().Truncate(24 * time.Hour)
	if anchorDay <= 0 {
		return now
	}
	return time.Date(now.Year(), now.Month(), anchorDay, 0, 0, 0, 0, time.UTC)
}
