package amortization

import (
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	customError "github.com/lendstack/lending-engine/pkg/errors"
)

// Resolver derives outstanding amounts for early closure or prepayment from
// a computed schedule and the gateway's paid count.
type Resolver struct {
	// FallbackToPrincipal restores the legacy behavior of treating a computed
	// zero foreclosure amount as "charge the full principal" when
	// installments remain. Off by default because it can mask a genuine
	// zero-balance state; when off, the condition is only logged.
	FallbackToPrincipal bool
}

// PaidCount derives how many periods the gateway has billed. A negative
// result means the remote counters are corrupt and is rejected outright,
// never clamped.
func PaidCount(totalCount, remainingCount int) (int, error) {
	paid := totalCount - remainingCount
	if paid < 0 {
		return 0, customError.NewBusinessError(
			customError.ErrCodeValidation,
			fmt.Sprintf("derived paid count is negative (total=%d remaining=%d)", totalCount, remainingCount),
			customError.ErrInvalidPaidCount,
		)
	}
	return paid, nil
}

// ForeclosureAmount returns the balance owed to settle the loan in full after
// paidCount periods have been billed.
func (r *Resolver) ForeclosureAmount(schedule *Schedule, paidCount, remainingCount int) (decimal.Decimal, error) {
	if paidCount < 0 {
		return decimal.Zero, customError.NewBusinessError(
			customError.ErrCodeValidation,
			"paid count cannot be negative",
			customError.ErrInvalidPaidCount,
		)
	}
	if paidCount > len(schedule.Entries) {
		// Stale or mismatched schedule data. Fatal, not retryable.
		return decimal.Zero, customError.WrapConsistency(
			fmt.Sprintf("schedule has %d entries but paid count is %d", len(schedule.Entries), paidCount),
			customError.ErrScheduleMismatch,
		)
	}

	var amount decimal.Decimal
	switch {
	case paidCount == 0:
		amount = schedule.Principal
	case paidCount == len(schedule.Entries):
		amount = decimal.Zero
	default:
		amount = schedule.Entries[paidCount-1].Balance
	}

	if amount.IsZero() && remainingCount > 0 && paidCount != len(schedule.Entries) {
		if r.FallbackToPrincipal {
			return schedule.Principal, nil
		}
		log.Printf("foreclosure amount computed as zero with %d installments remaining (paid=%d); principal fallback disabled", remainingCount, paidCount)
	}

	return amount, nil
}

// NextDue returns the EMI of the next unpaid period plus its 1-based stepper
// index, used for out-of-cycle prepayments.
func (r *Resolver) NextDue(schedule *Schedule, paidCount int) (decimal.Decimal, int, error) {
	if paidCount < 0 {
		return decimal.Zero, 0, customError.NewBusinessError(
			customError.ErrCodeValidation,
			"paid count cannot be negative",
			customError.ErrInvalidPaidCount,
		)
	}
	if paidCount > len(schedule.Entries) {
		return decimal.Zero, 0, customError.WrapConsistency(
			fmt.Sprintf("schedule has %d entries but paid count is %d", len(schedule.Entries), paidCount),
			customError.ErrScheduleMismatch,
		)
	}
	// All installments billed is a legitimate state, not corrupt data: there
	// is simply nothing left to prepay.
	if paidCount == len(schedule.Entries) {
		return decimal.Zero, 0, customError.WrapValidation("all installments are already paid, nothing due to prepay")
	}

	stepper := paidCount + 1
	return schedule.Entries[paidCount].EMIAmount, stepper, nil
}
