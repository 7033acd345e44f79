package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/lendstack/lending-engine/internal/domain"
)

type MockLoanRepository struct {
	mock.Mock
}

func (m *MockLoanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) UpdateStatus(ctx context.Context, loanID string, status string) error {
	args := m.Called(ctx, loanID, status)
	return args.Error(0)
}

type MockPlanRepository struct {
	mock.Mock
}

func (m *MockPlanRepository) Create(ctx context.Context, plan *domain.Plan) (bool, error) {
	args := m.Called(ctx, plan)
	return args.Bool(0), args.Error(1)
}

func (m *MockPlanRepository) GetByLoanID(ctx context.Context, loanID string) (*domain.Plan, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Plan), args.Error(1)
}

func (m *MockPlanRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) Create(ctx context.Context, sub *domain.Subscription) (bool, error) {
	args := m.Called(ctx, sub)
	return args.Bool(0), args.Error(1)
}

func (m *MockSubscriptionRepository) GetByLoanID(ctx context.Context, loanID string) (*domain.Subscription, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Subscription, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) UpdateCounts(ctx context.Context, id uuid.UUID, paidCount, remainingCount int) error {
	args := m.Called(ctx, id, paidCount, remainingCount)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) SetCancelPending(ctx context.Context, id uuid.UUID, pending bool) error {
	args := m.Called(ctx, id, pending)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) ListCancelPending(ctx context.Context) ([]*domain.Subscription, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Subscription), args.Error(1)
}

type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) GetByExternalID(ctx context.Context, externalInvoiceID string) (*domain.Invoice, error) {
	args := m.Called(ctx, externalInvoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) Create(ctx context.Context, invoice *domain.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) Update(ctx context.Context, invoice *domain.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) CountBySubscription(ctx context.Context, subscriptionID uuid.UUID, invoiceType string) (int, error) {
	args := m.Called(ctx, subscriptionID, invoiceType)
	return args.Int(0), args.Error(1)
}

type MockSettlementRepository struct {
	mock.Mock
}

func (m *MockSettlementRepository) Create(ctx context.Context, settlement *domain.Settlement) error {
	args := m.Called(ctx, settlement)
	return args.Error(0)
}

func (m *MockSettlementRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Settlement, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Settlement), args.Error(1)
}

func (m *MockSettlementRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockSettlementRepository) ListStalePending(ctx context.Context, cutoff time.Time) ([]*domain.Settlement, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Settlement), args.Error(1)
}

func (m *MockSettlementRepository) CreatePaymentDetail(ctx context.Context, detail *domain.PaymentDetail) error {
	args := m.Called(ctx, detail)
	return args.Error(0)
}

func (m *MockSettlementRepository) GetPaymentDetailByPaymentID(ctx context.Context, paymentID string) (*domain.PaymentDetail, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentDetail), args.Error(1)
}

func (m *MockSettlementRepository) UpdatePaymentDetail(ctx context.Context, detail *domain.PaymentDetail) error {
	args := m.Called(ctx, detail)
	return args.Error(0)
}
