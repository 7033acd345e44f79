package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lendstack/lending-engine/internal/domain"
)

// LoanRepository defines the interface for loan data operations
type LoanRepository interface {
	// Create creates a new loan
	Create(ctx context.Context, loan *domain.Loan) error

	// GetByLoanID retrieves a loan by its loan ID
	GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error)

	// UpdateStatus updates the loan status
	UpdateStatus(ctx context.Context, loanID string, status string) error
}

// PlanRepository defines the interface for local plan records
type PlanRepository interface {
	// Create inserts a plan if none exists for the loan yet. Returns false
	// when a concurrent writer won the race.
	Create(ctx context.Context, plan *domain.Plan) (bool, error)

	// GetByLoanID retrieves the live plan for a loan
	GetByLoanID(ctx context.Context, loanID string) (*domain.Plan, error)

	// SoftDelete marks a plan deleted
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// SubscriptionRepository defines the interface for local subscription records
type SubscriptionRepository interface {
	// Create inserts a subscription if the loan has none. Returns false when
	// a concurrent writer won the race.
	Create(ctx context.Context, sub *domain.Subscription) (bool, error)

	// GetByLoanID retrieves the live subscription for a loan
	GetByLoanID(ctx context.Context, loanID string) (*domain.Subscription, error)

	// GetByExternalID retrieves a subscription by the gateway's id
	GetByExternalID(ctx context.Context, externalID string) (*domain.Subscription, error)

	// GetByID retrieves a subscription by local id
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Subscription, error)

	// UpdateStatus sets the subscription status
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error

	// UpdateCounts records the gateway's paid/remaining counters
	UpdateCounts(ctx context.Context, id uuid.UUID, paidCount, remainingCount int) error

	// SetCancelPending flags or clears a pending best-effort remote cancel
	SetCancelPending(ctx context.Context, id uuid.UUID, pending bool) error

	// ListCancelPending returns subscriptions whose remote cancel still owes
	ListCancelPending(ctx context.Context) ([]*domain.Subscription, error)
}

// InvoiceRepository defines the interface for the invoice ledger
type InvoiceRepository interface {
	// GetByExternalID retrieves a live invoice by the gateway's invoice id
	GetByExternalID(ctx context.Context, externalInvoiceID string) (*domain.Invoice, error)

	// Create creates a new invoice row
	Create(ctx context.Context, invoice *domain.Invoice) error

	// Update rewrites the mutable fields of an invoice
	Update(ctx context.Context, invoice *domain.Invoice) error

	// CountBySubscription counts live EMI invoices for a subscription
	CountBySubscription(ctx context.Context, subscriptionID uuid.UUID, invoiceType string) (int, error)
}

// SettlementRepository defines the interface for foreclosure/prepayment rows
type SettlementRepository interface {
	// Create creates a settlement request row
	Create(ctx context.Context, settlement *domain.Settlement) error

	// GetByID retrieves a settlement
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Settlement, error)

	// UpdateStatus resolves a settlement to approved or rejected
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error

	// ListStalePending returns pending settlements created before cutoff
	ListStalePending(ctx context.Context, cutoff time.Time) ([]*domain.Settlement, error)

	// CreatePaymentDetail stores the payment-link detail owned by a settlement
	CreatePaymentDetail(ctx context.Context, detail *domain.PaymentDetail) error

	// GetPaymentDetailByPaymentID looks a detail up by gateway payment/link id
	GetPaymentDetailByPaymentID(ctx context.Context, paymentID string) (*domain.PaymentDetail, error)

	// UpdatePaymentDetail rewrites a payment detail's id, amount and status
	UpdatePaymentDetail(ctx context.Context, detail *domain.PaymentDetail) error
}
