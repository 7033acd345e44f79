package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ToMinorUnits converts a rupee amount to paise for the gateway wire format.
// The gateway only accepts integral minor units, so the amount is rounded to
// two decimal places first.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Round(2).Mul(decimal.NewFromInt(100)).IntPart()
}

// FromMinorUnits converts paise back to a rupee amount.
func FromMinorUnits(paise int64) decimal.Decimal {
	return decimal.NewFromInt(paise).Div(decimal.NewFromInt(100))
}

// ComputeSignature returns the hex HMAC-SHA256 digest of body under secret.
func ComputeSignature(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares a provided hex digest against the expected one in
// constant time.
func VerifySignature(secret string, body []byte, provided string) bool {
	expected := ComputeSignature(secret, body)
	return hmac.Equal([]byte(expected), []byte(provided))
}

// PaymentLinkReference builds the reference id for a payment link attempt.
// Format: {subscription_id}+{epoch_millis}.
func PaymentLinkReference(subscriptionID string, now time.Time) string {
	return fmt.Sprintf("%s+%d", subscriptionID, now.UnixMilli())
}

// NextDueDate calculates the due date of a schedule period. Period 1 is due
// one month after the anchor.
func NextDueDate(anchor time.Time, period int) time.Time {
	return anchor.AddDate(0, period, 0)
}

// DecimalFromString converts string to decimal.Decimal
func DecimalFromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
