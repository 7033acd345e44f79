package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrLoanNotFound         = errors.New("loan not found")
	ErrLoanAlreadyExists    = errors.New("loan already exists")
	ErrLoanAlreadyCompleted = errors.New("loan is already completed")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrSubscriptionExists   = errors.New("subscription already exists for loan")
	ErrInvalidLoanTerms     = errors.New("invalid loan terms")
	ErrInvalidPaidCount     = errors.New("paid count cannot be negative")
	ErrScheduleMismatch     = errors.New("schedule is shorter than paid count")
	ErrReferenceExists      = errors.New("payment link reference id already exists")
	ErrReferenceExhausted   = errors.New("could not allocate a unique payment link reference")
	ErrGatewayUnavailable   = errors.New("payment gateway request failed")
	ErrPaymentNotCaptured   = errors.New("payment is not in paid state")
	ErrInvalidSignature     = errors.New("webhook signature mismatch")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeLoanNotFound         = "LOAN_NOT_FOUND"
	ErrCodeLoanAlreadyExists    = "LOAN_ALREADY_EXISTS"
	ErrCodeLoanAlreadyCompleted = "LOAN_ALREADY_COMPLETED"
	ErrCodeSubscriptionNotFound = "SUBSCRIPTION_NOT_FOUND"
	ErrCodeSubscriptionExists   = "SUBSCRIPTION_EXISTS"
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeConsistency          = "CONSISTENCY_ERROR"
	ErrCodeGatewayError         = "GATEWAY_ERROR"
	ErrCodeGatewayTimeout       = "GATEWAY_TIMEOUT"
	ErrCodeReferenceExists      = "REFERENCE_ID_EXISTS"
	ErrCodeReferenceExhausted   = "REFERENCE_ID_EXHAUSTED"
	ErrCodePaymentNotCaptured   = "PAYMENT_NOT_CAPTURED"
	ErrCodeInvalidSignature     = "INVALID_SIGNATURE"
	ErrCodeDatabaseError        = "DATABASE_ERROR"
	ErrCodeCacheError           = "CACHE_ERROR"
)

// Wrap common errors with business context
func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapLoanAlreadyExists(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanAlreadyExists,
		fmt.Sprintf("Loan with ID %s already exists", loanID),
		ErrLoanAlreadyExists,
	)
}

func WrapSubscriptionExists(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeSubscriptionExists,
		fmt.Sprintf("Loan with ID %s already has an active subscription", loanID),
		ErrSubscriptionExists,
	)
}

func WrapSubscriptionNotFound(id string) *BusinessError {
	return NewBusinessError(
		ErrCodeSubscriptionNotFound,
		fmt.Sprintf("Subscription %s not found", id),
		ErrSubscriptionNotFound,
	)
}

// WrapValidation marks bad input. Validation errors are never retried.
func WrapValidation(message string) *BusinessError {
	return NewBusinessError(ErrCodeValidation, message, ErrInvalidLoanTerms)
}

// WrapConsistency marks a local/remote state mismatch. Fatal, never retried;
// callers log the full context for manual reconciliation.
func WrapConsistency(message string, err error) *BusinessError {
	return NewBusinessError(ErrCodeConsistency, message, err)
}

func WrapGatewayError(operation string, err error) *BusinessError {
	return NewBusinessError(
		ErrCodeGatewayError,
		fmt.Sprintf("gateway %s failed", operation),
		err,
	)
}

func WrapReferenceExhausted(subscriptionID string, attempts int) *BusinessError {
	return NewBusinessError(
		ErrCodeReferenceExhausted,
		fmt.Sprintf("gave up allocating a payment link reference for subscription %s after %d attempts", subscriptionID, attempts),
		ErrReferenceExhausted,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}

// IsValidation reports whether err is a synchronous bad-input rejection.
func IsValidation(err error) bool {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code == ErrCodeValidation
	}
	return false
}

// IsConsistency reports whether err is a fatal local/remote mismatch.
func IsConsistency(err error) bool {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code == ErrCodeConsistency
	}
	return false
}
