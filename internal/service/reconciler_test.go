package service_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lendstack/lending-engine/internal/config"
	"github.com/lendstack/lending-engine/internal/domain"
	"github.com/lendstack/lending-engine/internal/gateway"
	"github.com/lendstack/lending-engine/internal/service"
	customError "github.com/lendstack/lending-engine/pkg/errors"
	"github.com/lendstack/lending-engine/tests/mocks"
)

type reconcilerFixture struct {
	loanRepo       *mocks.MockLoanRepository
	planRepo       *mocks.MockPlanRepository
	subRepo        *mocks.MockSubscriptionRepository
	settlementRepo *mocks.MockSettlementRepository
	invoiceRepo    *mocks.MockInvoiceRepository
	gateway        *mocks.MockGateway
	reconciler     *service.SubscriptionReconciler
}

func newReconcilerFixture() *reconcilerFixture {
	f := &reconcilerFixture{
		loanRepo:       &mocks.MockLoanRepository{},
		planRepo:       &mocks.MockPlanRepository{},
		subRepo:        &mocks.MockSubscriptionRepository{},
		settlementRepo: &mocks.MockSettlementRepository{},
		invoiceRepo:    &mocks.MockInvoiceRepository{},
		gateway:        &mocks.MockGateway{},
	}

	cfg := &config.Config{
		Business: config.BusinessConfig{
			Currency:            "INR",
			PaymentLinkAttempts: 3,
		},
	}

	ledger := service.NewInvoiceLedger(f.invoiceRepo, f.gateway)
	links := gateway.NewPaymentLinkCreator(f.gateway, cfg.Business.PaymentLinkAttempts)
	f.reconciler = service.NewSubscriptionReconciler(
		f.loanRepo, f.planRepo, f.subRepo, f.settlementRepo, ledger, f.gateway, links, cfg,
	)

	return f
}

func activeLoan(loanID string) *domain.Loan {
	return &domain.Loan{
		ID:           uuid.New(),
		LoanID:       loanID,
		Amount:       decimal.NewFromInt(100000),
		AnnualRate:   decimal.NewFromInt(12),
		TenureMonths: 12,
		LoanType:     domain.LoanTypePersonal,
		Status:       domain.LoanStatusActive,
	}
}

func TestCreateSubscription_Saga(t *testing.T) {
	f := newReconcilerFixture()
	loanID := "LN-1001"

	f.loanRepo.On("GetByLoanID", mock.Anything, loanID).Return(activeLoan(loanID), nil)
	f.subRepo.On("GetByLoanID", mock.Anything, loanID).Return(nil, sql.ErrNoRows)

	f.gateway.On("CreatePlan", mock.Anything, mock.MatchedBy(func(req *gateway.CreatePlanRequest) bool {
		// 8884.88 in minor units
		return req.Period == "monthly" && req.Item.Amount == 888488
	})).Return(&gateway.Plan{ID: "plan_remote_1", Period: "monthly", Interval: 1}, nil)

	f.gateway.On("CreateSubscription", mock.Anything, mock.MatchedBy(func(req *gateway.CreateSubscriptionRequest) bool {
		return req.PlanID == "plan_remote_1" && req.TotalCount == 12
	})).Return(&gateway.Subscription{
		ID:             "sub_remote_1",
		Status:         "created",
		TotalCount:     12,
		PaidCount:      0,
		RemainingCount: 12,
		ShortURL:       "https://sub.test/xyz",
	}, nil)

	f.planRepo.On("Create", mock.Anything, mock.MatchedBy(func(plan *domain.Plan) bool {
		return plan.ExternalPlanID == "plan_remote_1" && plan.LoanID == loanID
	})).Return(true, nil)

	f.subRepo.On("Create", mock.Anything, mock.MatchedBy(func(sub *domain.Subscription) bool {
		return sub.ExternalSubscriptionID == "sub_remote_1" &&
			sub.Status == domain.SubscriptionStatusCreated
	})).Return(true, nil)

	sub, err := f.reconciler.CreateSubscription(context.Background(), loanID)

	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusCreated, sub.Status)
	assert.Equal(t, "https://sub.test/xyz", sub.ShortURL)
	f.planRepo.AssertExpectations(t)
	f.subRepo.AssertExpectations(t)
}

func TestCreateSubscription_ExistingSubscriptionRejected(t *testing.T) {
	f := newReconcilerFixture()
	loanID := "LN-1002"

	f.loanRepo.On("GetByLoanID", mock.Anything, loanID).Return(activeLoan(loanID), nil)
	f.subRepo.On("GetByLoanID", mock.Anything, loanID).Return(&domain.Subscription{LoanID: loanID}, nil)

	_, err := f.reconciler.CreateSubscription(context.Background(), loanID)

	assert.True(t, errors.Is(err, customError.ErrSubscriptionExists))
	f.gateway.AssertNotCalled(t, "CreatePlan", mock.Anything, mock.Anything)
}

func TestCreateSubscription_EMIFailureAbortsBeforeRemoteCall(t *testing.T) {
	f := newReconcilerFixture()
	loanID := "LN-1003"

	broken := activeLoan(loanID)
	broken.TenureMonths = 0

	f.loanRepo.On("GetByLoanID", mock.Anything, loanID).Return(broken, nil)
	f.subRepo.On("GetByLoanID", mock.Anything, loanID).Return(nil, sql.ErrNoRows)

	_, err := f.reconciler.CreateSubscription(context.Background(), loanID)

	assert.True(t, customError.IsValidation(err))
	f.gateway.AssertNotCalled(t, "CreatePlan", mock.Anything, mock.Anything)
	f.subRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateSubscription_RemoteFailureLeavesNoLocalRow(t *testing.T) {
	f := newReconcilerFixture()
	loanID := "LN-1004"

	f.loanRepo.On("GetByLoanID", mock.Anything, loanID).Return(activeLoan(loanID), nil)
	f.subRepo.On("GetByLoanID", mock.Anything, loanID).Return(nil, sql.ErrNoRows)
	f.gateway.On("CreatePlan", mock.Anything, mock.Anything).Return(nil, errors.New("gateway timeout"))

	_, err := f.reconciler.CreateSubscription(context.Background(), loanID)

	require.Error(t, err)
	f.planRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.subRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestHandleSubscriptionEvent_Transitions(t *testing.T) {
	tests := []struct {
		name         string
		current      string
		target       string
		expectUpdate bool
	}{
		{
			name:         "created to authenticated",
			current:      domain.SubscriptionStatusCreated,
			target:       domain.SubscriptionStatusAuthenticated,
			expectUpdate: true,
		},
		{
			name:         "authenticated to active",
			current:      domain.SubscriptionStatusAuthenticated,
			target:       domain.SubscriptionStatusActive,
			expectUpdate: true,
		},
		{
			name:         "authenticated arriving after activated is applied last-writer-wins",
			current:      domain.SubscriptionStatusActive,
			target:       domain.SubscriptionStatusAuthenticated,
			expectUpdate: true,
		},
		{
			name:         "replayed activation is a no-op success",
			current:      domain.SubscriptionStatusActive,
			target:       domain.SubscriptionStatusActive,
			expectUpdate: false,
		},
		{
			name:         "cancelled is never resurrected",
			current:      domain.SubscriptionStatusCancelled,
			target:       domain.SubscriptionStatusActive,
			expectUpdate: false,
		},
		{
			name:         "completed is never resurrected",
			current:      domain.SubscriptionStatusCompleted,
			target:       domain.SubscriptionStatusActive,
			expectUpdate: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newReconcilerFixture()
			sub := &domain.Subscription{
				ID:                     uuid.New(),
				LoanID:                 "LN-2001",
				ExternalSubscriptionID: "sub_remote_2",
				Status:                 tt.current,
			}

			f.subRepo.On("GetByExternalID", mock.Anything, "sub_remote_2").Return(sub, nil)
			if tt.expectUpdate {
				f.subRepo.On("UpdateStatus", mock.Anything, sub.ID, tt.target).Return(nil)
			}

			err := f.reconciler.HandleSubscriptionEvent(context.Background(), &domain.SubscriptionEventPayload{
				Subscription: domain.WebhookSubscription{ID: "sub_remote_2"},
			}, tt.target)

			require.NoError(t, err)
			if tt.expectUpdate {
				f.subRepo.AssertCalled(t, "UpdateStatus", mock.Anything, sub.ID, tt.target)
			} else {
				f.subRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestHandleSubscriptionEvent_UnknownSubscriptionAcknowledged(t *testing.T) {
	f := newReconcilerFixture()
	f.subRepo.On("GetByExternalID", mock.Anything, "sub_ghost").Return(nil, sql.ErrNoRows)

	err := f.reconciler.HandleSubscriptionEvent(context.Background(), &domain.SubscriptionEventPayload{
		Subscription: domain.WebhookSubscription{ID: "sub_ghost"},
	}, domain.SubscriptionStatusActive)

	assert.NoError(t, err)
}

func TestHandleSubscriptionEvent_CounterInvariantEnforced(t *testing.T) {
	f := newReconcilerFixture()
	sub := &domain.Subscription{
		ID:                     uuid.New(),
		ExternalSubscriptionID: "sub_remote_3",
		Status:                 domain.SubscriptionStatusActive,
		TotalCount:             12,
	}

	f.subRepo.On("GetByExternalID", mock.Anything, "sub_remote_3").Return(sub, nil)

	// paid + remaining != total: counters are skipped, event still succeeds
	err := f.reconciler.HandleSubscriptionEvent(context.Background(), &domain.SubscriptionEventPayload{
		Subscription: domain.WebhookSubscription{
			ID:             "sub_remote_3",
			TotalCount:     12,
			PaidCount:      3,
			RemainingCount: 5,
		},
	}, domain.SubscriptionStatusActive)

	require.NoError(t, err)
	f.subRepo.AssertNotCalled(t, "UpdateCounts", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleInvoicePaid_UpsertsEMIInvoice(t *testing.T) {
	f := newReconcilerFixture()
	sub := &domain.Subscription{
		ID:                     uuid.New(),
		ExternalSubscriptionID: "sub_remote_4",
		Status:                 domain.SubscriptionStatusActive,
		TotalCount:             12,
		PaidCount:              2,
		RemainingCount:         10,
	}

	f.subRepo.On("GetByExternalID", mock.Anything, "sub_remote_4").Return(sub, nil)
	f.subRepo.On("UpdateCounts", mock.Anything, sub.ID, 3, 9).Return(nil)
	f.invoiceRepo.On("GetByExternalID", mock.Anything, "inv_301").Return(nil, sql.ErrNoRows)
	f.invoiceRepo.On("Create", mock.Anything, mock.MatchedBy(func(inv *domain.Invoice) bool {
		return inv.ExternalInvoiceID == "inv_301" &&
			inv.InvoiceType == domain.InvoiceTypeEMI &&
			inv.EMINumber == 3 &&
			inv.Amount.Equal(decimal.NewFromFloat(8884.88))
	})).Return(nil)

	err := f.reconciler.HandleInvoicePaid(context.Background(), &domain.InvoiceEventPayload{
		Invoice: domain.WebhookInvoice{
			ID:     "inv_301",
			Amount: 888488,
			Status: "paid",
		},
		Subscription: domain.WebhookSubscription{
			ID:             "sub_remote_4",
			TotalCount:     12,
			PaidCount:      3,
			RemainingCount: 9,
		},
	})

	require.NoError(t, err)
	f.invoiceRepo.AssertExpectations(t)
}

func TestHandleInvoicePaid_InvalidCountersFallBackToLedgerNumbering(t *testing.T) {
	f := newReconcilerFixture()
	sub := &domain.Subscription{
		ID:                     uuid.New(),
		ExternalSubscriptionID: "sub_remote_9",
		Status:                 domain.SubscriptionStatusActive,
		TotalCount:             12,
		PaidCount:              2,
		RemainingCount:         10,
	}

	f.subRepo.On("GetByExternalID", mock.Anything, "sub_remote_9").Return(sub, nil)
	f.invoiceRepo.On("CountBySubscription", mock.Anything, sub.ID, domain.InvoiceTypeEMI).Return(4, nil)
	f.invoiceRepo.On("GetByExternalID", mock.Anything, "inv_302").Return(nil, sql.ErrNoRows)
	f.invoiceRepo.On("Create", mock.Anything, mock.MatchedBy(func(inv *domain.Invoice) bool {
		return inv.ExternalInvoiceID == "inv_302" && inv.EMINumber == 5
	})).Return(nil)

	// paid + remaining != total: the counters are rejected, so the paid count
	// must not number the installment either.
	err := f.reconciler.HandleInvoicePaid(context.Background(), &domain.InvoiceEventPayload{
		Invoice: domain.WebhookInvoice{
			ID:     "inv_302",
			Amount: 888488,
			Status: "paid",
		},
		Subscription: domain.WebhookSubscription{
			ID:             "sub_remote_9",
			TotalCount:     12,
			PaidCount:      3,
			RemainingCount: 5,
		},
	})

	require.NoError(t, err)
	f.subRepo.AssertNotCalled(t, "UpdateCounts", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.invoiceRepo.AssertExpectations(t)
}

func TestHandlePaymentLinkPaid_ForeclosureClosesLoan(t *testing.T) {
	f := newReconcilerFixture()

	subID := uuid.New()
	settlementID := uuid.New()
	sub := &domain.Subscription{
		ID:                     subID,
		LoanID:                 "LN-3001",
		ExternalSubscriptionID: "sub_remote_5",
		Status:                 domain.SubscriptionStatusActive,
	}
	settlement := &domain.Settlement{
		ID:             settlementID,
		SubscriptionID: subID,
		LoanID:         "LN-3001",
		Kind:           domain.SettlementKindForeclosure,
		Amount:         decimal.NewFromInt(45000),
		Status:         domain.SettlementStatusPending,
	}
	detail := &domain.PaymentDetail{
		ID:            uuid.New(),
		PaymentID:     "plink_9",
		Amount:        decimal.NewFromInt(45000),
		Status:        domain.PaymentStatusCreated,
		ForeclosureID: &settlementID,
	}

	f.settlementRepo.On("GetPaymentDetailByPaymentID", mock.Anything, "plink_9").Return(detail, nil)
	f.settlementRepo.On("GetByID", mock.Anything, settlementID).Return(settlement, nil)
	f.gateway.On("FetchPayment", mock.Anything, "pay_901").Return(&gateway.Payment{
		ID: "pay_901", Amount: 4500000, Status: "paid",
	}, nil)
	f.invoiceRepo.On("GetByExternalID", mock.Anything, "pay_901").Return(nil, sql.ErrNoRows)
	f.invoiceRepo.On("Create", mock.Anything, mock.MatchedBy(func(inv *domain.Invoice) bool {
		return inv.InvoiceType == domain.InvoiceTypeForeclosure && inv.EMINumber == 1
	})).Return(nil)
	f.settlementRepo.On("UpdatePaymentDetail", mock.Anything, mock.MatchedBy(func(d *domain.PaymentDetail) bool {
		return d.PaymentID == "pay_901" && d.Status == domain.PaymentStatusPaid
	})).Return(nil)
	f.settlementRepo.On("UpdateStatus", mock.Anything, settlementID, domain.SettlementStatusApproved).Return(nil)
	f.subRepo.On("GetByID", mock.Anything, subID).Return(sub, nil)
	f.subRepo.On("UpdateStatus", mock.Anything, subID, domain.SubscriptionStatusCancelled).Return(nil)
	f.loanRepo.On("UpdateStatus", mock.Anything, "LN-3001", domain.LoanStatusCompleted).Return(nil)
	f.gateway.On("CancelSubscription", mock.Anything, "sub_remote_5").Return(nil)
	f.subRepo.On("SetCancelPending", mock.Anything, subID, false).Return(nil)

	err := f.reconciler.HandlePaymentLinkPaid(context.Background(), &domain.PaymentLinkEventPayload{
		PaymentLink: domain.WebhookPaymentLink{ID: "plink_9", Status: "paid"},
		Payment:     domain.WebhookPayment{ID: "pay_901", Amount: 4500000, Status: "paid"},
	})

	require.NoError(t, err)
	f.settlementRepo.AssertExpectations(t)
	f.loanRepo.AssertExpectations(t)
}

func TestHandlePaymentLinkPaid_RemoteCancelFailureIsNotFatal(t *testing.T) {
	f := newReconcilerFixture()

	subID := uuid.New()
	settlementID := uuid.New()
	sub := &domain.Subscription{
		ID:                     subID,
		LoanID:                 "LN-3002",
		ExternalSubscriptionID: "sub_remote_6",
		Status:                 domain.SubscriptionStatusActive,
	}
	settlement := &domain.Settlement{
		ID:             settlementID,
		SubscriptionID: subID,
		LoanID:         "LN-3002",
		Kind:           domain.SettlementKindForeclosure,
		Status:         domain.SettlementStatusPending,
	}
	detail := &domain.PaymentDetail{
		ID:            uuid.New(),
		PaymentID:     "plink_10",
		Status:        domain.PaymentStatusCreated,
		ForeclosureID: &settlementID,
	}

	f.settlementRepo.On("GetPaymentDetailByPaymentID", mock.Anything, "plink_10").Return(detail, nil)
	f.settlementRepo.On("GetByID", mock.Anything, settlementID).Return(settlement, nil)
	f.gateway.On("FetchPayment", mock.Anything, "pay_902").Return(&gateway.Payment{
		ID: "pay_902", Amount: 100000, Status: "paid",
	}, nil)
	f.invoiceRepo.On("GetByExternalID", mock.Anything, "pay_902").Return(nil, sql.ErrNoRows)
	f.invoiceRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.settlementRepo.On("UpdatePaymentDetail", mock.Anything, mock.Anything).Return(nil)
	f.settlementRepo.On("UpdateStatus", mock.Anything, settlementID, domain.SettlementStatusApproved).Return(nil)
	f.subRepo.On("GetByID", mock.Anything, subID).Return(sub, nil)
	f.subRepo.On("UpdateStatus", mock.Anything, subID, domain.SubscriptionStatusCancelled).Return(nil)
	f.loanRepo.On("UpdateStatus", mock.Anything, "LN-3002", domain.LoanStatusCompleted).Return(nil)

	// Local state is authoritative: the failed remote cancel is flagged for
	// the scheduler instead of failing the webhook.
	f.gateway.On("CancelSubscription", mock.Anything, "sub_remote_6").Return(errors.New("gateway down"))
	f.subRepo.On("SetCancelPending", mock.Anything, subID, true).Return(nil)

	err := f.reconciler.HandlePaymentLinkPaid(context.Background(), &domain.PaymentLinkEventPayload{
		PaymentLink: domain.WebhookPaymentLink{ID: "plink_10", Status: "paid"},
		Payment:     domain.WebhookPayment{ID: "pay_902", Amount: 100000, Status: "paid"},
	})

	require.NoError(t, err)
	f.subRepo.AssertCalled(t, "SetCancelPending", mock.Anything, subID, true)
}

func TestHandlePaymentLinkPaid_ReplayIsNoOp(t *testing.T) {
	f := newReconcilerFixture()

	settlementID := uuid.New()
	detail := &domain.PaymentDetail{
		ID:            uuid.New(),
		PaymentID:     "pay_903",
		Status:        domain.PaymentStatusPaid,
		ForeclosureID: &settlementID,
	}
	settlement := &domain.Settlement{
		ID:     settlementID,
		Kind:   domain.SettlementKindForeclosure,
		Status: domain.SettlementStatusApproved,
	}

	// Re-delivery after capture: lookup by link id misses, payment id hits.
	f.settlementRepo.On("GetPaymentDetailByPaymentID", mock.Anything, "plink_11").Return(nil, sql.ErrNoRows)
	f.settlementRepo.On("GetPaymentDetailByPaymentID", mock.Anything, "pay_903").Return(detail, nil)
	f.settlementRepo.On("GetByID", mock.Anything, settlementID).Return(settlement, nil)

	err := f.reconciler.HandlePaymentLinkPaid(context.Background(), &domain.PaymentLinkEventPayload{
		PaymentLink: domain.WebhookPaymentLink{ID: "plink_11", Status: "paid"},
		Payment:     domain.WebhookPayment{ID: "pay_903", Amount: 100000, Status: "paid"},
	})

	require.NoError(t, err)
	f.gateway.AssertNotCalled(t, "FetchPayment", mock.Anything, mock.Anything)
	f.settlementRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestInitiateForeclosure_CreatesLinkThenRows(t *testing.T) {
	f := newReconcilerFixture()
	loanID := "LN-4001"

	sub := &domain.Subscription{
		ID:                     uuid.New(),
		LoanID:                 loanID,
		ExternalSubscriptionID: "sub_remote_7",
		Status:                 domain.SubscriptionStatusActive,
		TotalCount:             12,
		PaidCount:              3,
		RemainingCount:         9,
	}

	f.loanRepo.On("GetByLoanID", mock.Anything, loanID).Return(activeLoan(loanID), nil)
	f.subRepo.On("GetByLoanID", mock.Anything, loanID).Return(sub, nil)

	f.gateway.On("CreatePaymentLink", mock.Anything, mock.MatchedBy(func(req *gateway.CreatePaymentLinkRequest) bool {
		return req.Currency == "INR" && req.ReferenceID != ""
	})).Return(&gateway.PaymentLink{
		ID: "plink_20", ShortURL: "https://pay.test/fc", Status: "created",
	}, nil)

	f.settlementRepo.On("Create", mock.Anything, mock.MatchedBy(func(s *domain.Settlement) bool {
		return s.Kind == domain.SettlementKindForeclosure && s.LoanID == loanID
	})).Return(nil)
	f.settlementRepo.On("CreatePaymentDetail", mock.Anything, mock.MatchedBy(func(d *domain.PaymentDetail) bool {
		return d.PaymentID == "plink_20" && d.Valid() && d.ForeclosureID != nil
	})).Return(nil)

	result, err := f.reconciler.InitiateForeclosure(context.Background(), loanID, "")

	require.NoError(t, err)
	assert.Equal(t, domain.SettlementKindForeclosure, result.Kind)
	assert.Equal(t, "https://pay.test/fc", result.ShortURL)
	// Balance after 3 of 12 paid periods on 100000 @ 12%
	assert.True(t, result.Amount.GreaterThan(decimal.NewFromInt(70000)))
	assert.True(t, result.Amount.LessThan(decimal.NewFromInt(80000)))
	f.settlementRepo.AssertExpectations(t)
}

func TestInitiateForeclosure_TerminalSubscriptionRejected(t *testing.T) {
	f := newReconcilerFixture()
	loanID := "LN-4002"

	f.loanRepo.On("GetByLoanID", mock.Anything, loanID).Return(activeLoan(loanID), nil)
	f.subRepo.On("GetByLoanID", mock.Anything, loanID).Return(&domain.Subscription{
		ID:     uuid.New(),
		LoanID: loanID,
		Status: domain.SubscriptionStatusCancelled,
	}, nil)

	_, err := f.reconciler.InitiateForeclosure(context.Background(), loanID, "")

	assert.True(t, errors.Is(err, customError.ErrLoanAlreadyCompleted))
	f.gateway.AssertNotCalled(t, "CreatePaymentLink", mock.Anything, mock.Anything)
}

func TestInitiatePrePayment_UsesNextDueEMI(t *testing.T) {
	f := newReconcilerFixture()
	loanID := "LN-4003"

	sub := &domain.Subscription{
		ID:                     uuid.New(),
		LoanID:                 loanID,
		ExternalSubscriptionID: "sub_remote_8",
		Status:                 domain.SubscriptionStatusActive,
		TotalCount:             12,
		PaidCount:              5,
		RemainingCount:         7,
	}

	f.loanRepo.On("GetByLoanID", mock.Anything, loanID).Return(activeLoan(loanID), nil)
	f.subRepo.On("GetByLoanID", mock.Anything, loanID).Return(sub, nil)
	f.gateway.On("CreatePaymentLink", mock.Anything, mock.Anything).Return(&gateway.PaymentLink{
		ID: "plink_21", ShortURL: "https://pay.test/pp", Status: "created",
	}, nil)
	f.settlementRepo.On("Create", mock.Anything, mock.MatchedBy(func(s *domain.Settlement) bool {
		return s.Kind == domain.SettlementKindPrePayment && s.EMINumber == 6
	})).Return(nil)
	f.settlementRepo.On("CreatePaymentDetail", mock.Anything, mock.MatchedBy(func(d *domain.PaymentDetail) bool {
		return d.PrepaymentID != nil && d.Valid()
	})).Return(nil)

	result, err := f.reconciler.InitiatePrePayment(context.Background(), loanID, "")

	require.NoError(t, err)
	assert.Equal(t, domain.SettlementKindPrePayment, result.Kind)
	assert.True(t, result.Amount.Equal(decimal.NewFromFloat(8884.88)))
	f.settlementRepo.AssertExpectations(t)
}

func TestRetryPendingCancels(t *testing.T) {
	f := newReconcilerFixture()

	okID := uuid.New()
	failID := uuid.New()
	f.subRepo.On("ListCancelPending", mock.Anything).Return([]*domain.Subscription{
		{ID: okID, ExternalSubscriptionID: "sub_ok"},
		{ID: failID, ExternalSubscriptionID: "sub_fail"},
	}, nil)

	f.gateway.On("CancelSubscription", mock.Anything, "sub_ok").Return(nil)
	f.gateway.On("CancelSubscription", mock.Anything, "sub_fail").Return(errors.New("still down"))
	f.subRepo.On("SetCancelPending", mock.Anything, okID, false).Return(nil)

	retried, err := f.reconciler.RetryPendingCancels(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, retried)
	f.subRepo.AssertNotCalled(t, "SetCancelPending", mock.Anything, failID, mock.Anything)
}
