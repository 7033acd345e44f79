package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lendstack/lending-engine/internal/amortization"
	"github.com/lendstack/lending-engine/internal/config"
	"github.com/lendstack/lending-engine/internal/domain"
	"github.com/lendstack/lending-engine/internal/gateway"
	"github.com/lendstack/lending-engine/internal/repository"
	customError "github.com/lendstack/lending-engine/pkg/errors"
	"github.com/lendstack/lending-engine/pkg/utils"
)

// SubscriptionReconciler keeps local Plan/Subscription/Invoice state aligned
// with the remote gateway. It is the only writer of subscription status:
// webhook-triggered and request-triggered paths both go through its
// transition function.
type SubscriptionReconciler struct {
	LoanRepo       repository.LoanRepository
	PlanRepo       repository.PlanRepository
	SubRepo        repository.SubscriptionRepository
	SettlementRepo repository.SettlementRepository
	Ledger         *InvoiceLedger
	Gateway        gateway.SubscriptionGateway
	Links          *gateway.PaymentLinkCreator
	Resolver       *amortization.Resolver
	config         *config.Config
}

func NewSubscriptionReconciler(
	loanRepo repository.LoanRepository,
	planRepo repository.PlanRepository,
	subRepo repository.SubscriptionRepository,
	settlementRepo repository.SettlementRepository,
	ledger *InvoiceLedger,
	gw gateway.SubscriptionGateway,
	links *gateway.PaymentLinkCreator,
	cfg *config.Config,
) *SubscriptionReconciler {
	return &SubscriptionReconciler{
		LoanRepo:       loanRepo,
		PlanRepo:       planRepo,
		SubRepo:        subRepo,
		SettlementRepo: settlementRepo,
		Ledger:         ledger,
		Gateway:        gw,
		Links:          links,
		Resolver:       &amortization.Resolver{FallbackToPrincipal: cfg.Business.ForeclosePrincipalFallback},
		config:         cfg,
	}
}

// CreateSubscription runs the creation saga for an approved loan:
// check-local-absent, create remote plan and subscription, then persist the
// local rows. The remote call cannot be rolled back, so the local row is only
// written after remote success and the insert itself is an idempotent
// create-if-absent guard against concurrent requests for the same loan.
func (r *SubscriptionReconciler) CreateSubscription(ctx context.Context, loanID string) (*domain.Subscription, error) {
	loan, err := r.LoanRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(loanID)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	if loan.Status != domain.LoanStatusActive {
		return nil, customError.NewBusinessError(
			customError.ErrCodeLoanAlreadyCompleted,
			fmt.Sprintf("Loan %s is %s", loanID, loan.Status),
			customError.ErrLoanAlreadyCompleted,
		)
	}

	// Check-local-absent before the remote create. A unique constraint plus
	// the ON CONFLICT insert below closes the remaining race window.
	if _, err := r.SubRepo.GetByLoanID(ctx, loanID); err == nil {
		return nil, customError.WrapSubscriptionExists(loanID)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapDatabaseError(err)
	}

	// A failed EMI calculation aborts before any remote call is made.
	schedule, err := amortization.Calculate(amortization.Terms{
		Amount:       loan.Amount,
		TenureMonths: loan.TenureMonths,
		AnnualRate:   loan.AnnualRate,
		LoanType:     loan.LoanType,
	})
	if err != nil {
		return nil, err
	}

	remotePlan, err := r.Gateway.CreatePlan(ctx, &gateway.CreatePlanRequest{
		Period:   "monthly",
		Interval: 1,
		Item: gateway.PlanItem{
			Name:        fmt.Sprintf("Loan %s EMI", loanID),
			Amount:      utils.ToMinorUnits(schedule.MonthlyEMI),
			Currency:    r.config.Business.Currency,
			Description: fmt.Sprintf("Monthly installment for loan %s", loanID),
		},
	})
	if err != nil {
		return nil, err
	}

	remoteSub, err := r.Gateway.CreateSubscription(ctx, &gateway.CreateSubscriptionRequest{
		PlanID:         remotePlan.ID,
		TotalCount:     loan.TenureMonths,
		Quantity:       1,
		CustomerNotify: true,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	plan := &domain.Plan{
		ID:             uuid.New(),
		LoanID:         loanID,
		ExternalPlanID: remotePlan.ID,
		Period:         remotePlan.Period,
		Interval:       remotePlan.Interval,
		ItemAmount:     schedule.MonthlyEMI,
		ItemCurrency:   r.config.Business.Currency,
		CreatedAt:      now,
	}

	created, err := r.PlanRepo.Create(ctx, plan)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if !created {
		// A concurrent request won the insert race after our existence check.
		// The remote plan we just created is now orphaned; log it for manual
		// cleanup rather than failing the winner's state.
		log.Printf("plan insert lost race for loan %s; orphaned remote plan %s", loanID, remotePlan.ID)
		return nil, customError.WrapSubscriptionExists(loanID)
	}

	sub := &domain.Subscription{
		ID:                     uuid.New(),
		PlanID:                 plan.ID,
		LoanID:                 loanID,
		ExternalSubscriptionID: remoteSub.ID,
		Status:                 domain.SubscriptionStatusCreated,
		TotalCount:             remoteSub.TotalCount,
		PaidCount:              remoteSub.PaidCount,
		RemainingCount:         remoteSub.RemainingCount,
		ShortURL:               remoteSub.ShortURL,
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	created, err = r.SubRepo.Create(ctx, sub)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if !created {
		log.Printf("subscription insert lost race for loan %s; orphaned remote subscription %s", loanID, remoteSub.ID)
		return nil, customError.WrapSubscriptionExists(loanID)
	}

	return sub, nil
}

// Transition moves a subscription to target status. Already-in-target is a
// successful no-op, and a terminal status is never overwritten: a late
// non-terminal webhook after cancellation or completion must not resurrect
// the subscription.
func (r *SubscriptionReconciler) Transition(ctx context.Context, sub *domain.Subscription, target string) error {
	if sub.Status == target {
		return nil
	}

	if domain.IsTerminalSubscriptionStatus(sub.Status) {
		log.Printf("ignoring transition of subscription %s from terminal %s to %s", sub.ID, sub.Status, target)
		return nil
	}

	if err := r.SubRepo.UpdateStatus(ctx, sub.ID, target); err != nil {
		return customError.WrapDatabaseError(err)
	}

	sub.Status = target
	return nil
}

// HandleSubscriptionEvent applies a remote lifecycle event. Unknown
// subscriptions are logged and acknowledged; failing the webhook would only
// make the gateway retry an event we can never apply.
func (r *SubscriptionReconciler) HandleSubscriptionEvent(ctx context.Context, payload *domain.SubscriptionEventPayload, target string) error {
	sub, err := r.SubRepo.GetByExternalID(ctx, payload.Subscription.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("webhook for unknown subscription %s (target %s); ignoring", payload.Subscription.ID, target)
			return nil
		}
		return customError.WrapDatabaseError(err)
	}

	if err := r.Transition(ctx, sub, target); err != nil {
		return err
	}

	r.applyCounts(ctx, sub, payload.Subscription)
	return nil
}

// HandleInvoicePaid records a regular installment charge: counters first,
// then the idempotent ledger upsert.
func (r *SubscriptionReconciler) HandleInvoicePaid(ctx context.Context, payload *domain.InvoiceEventPayload) error {
	sub, err := r.SubRepo.GetByExternalID(ctx, payload.Subscription.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("invoice %s for unknown subscription %s; ignoring", payload.Invoice.ID, payload.Subscription.ID)
			return nil
		}
		return customError.WrapDatabaseError(err)
	}

	countersOK := r.applyCounts(ctx, sub, payload.Subscription)

	// The payload's paid count only numbers the installment when the counters
	// passed the invariant check; otherwise the ledger's own count decides.
	emiNumber := payload.Subscription.PaidCount
	if !countersOK || emiNumber <= 0 {
		emiNumber, err = r.Ledger.NextEMINumber(ctx, sub.ID)
		if err != nil {
			return err
		}
	}

	amount := utils.FromMinorUnits(payload.Invoice.Amount)
	up := &domain.InvoiceUpsert{
		ExternalInvoiceID: payload.Invoice.ID,
		SubscriptionID:    sub.ID,
		InvoiceType:       domain.InvoiceTypeEMI,
		EMINumber:         emiNumber,
		Amount:            &amount,
	}
	if payload.Invoice.Status != "" {
		up.Status = StringPtr(payload.Invoice.Status)
	}
	if payload.Invoice.ShortURL != "" {
		up.ShortURL = StringPtr(payload.Invoice.ShortURL)
	}
	if payload.Invoice.PaidAt > 0 {
		paidAt := time.Unix(payload.Invoice.PaidAt, 0)
		up.PaidAt = &paidAt
	}

	if _, err := r.Ledger.UpsertInvoice(ctx, up); err != nil {
		return err
	}

	return nil
}

// InitiateForeclosure computes the outstanding balance and issues a payment
// link for early full settlement.
func (r *SubscriptionReconciler) InitiateForeclosure(ctx context.Context, loanID, callbackURL string) (*domain.SettlementResponse, error) {
	return r.initiateSettlement(ctx, loanID, callbackURL, domain.SettlementKindForeclosure)
}

// InitiatePrePayment issues a payment link for the next unpaid installment.
func (r *SubscriptionReconciler) InitiatePrePayment(ctx context.Context, loanID, callbackURL string) (*domain.SettlementResponse, error) {
	return r.initiateSettlement(ctx, loanID, callbackURL, domain.SettlementKindPrePayment)
}

func (r *SubscriptionReconciler) initiateSettlement(ctx context.Context, loanID, callbackURL, kind string) (*domain.SettlementResponse, error) {
	loan, err := r.LoanRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(loanID)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	sub, err := r.SubRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapSubscriptionNotFound(loanID)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	if domain.IsTerminalSubscriptionStatus(sub.Status) {
		return nil, customError.NewBusinessError(
			customError.ErrCodeLoanAlreadyCompleted,
			fmt.Sprintf("Subscription for loan %s is already %s", loanID, sub.Status),
			customError.ErrLoanAlreadyCompleted,
		)
	}

	schedule, err := amortization.Calculate(amortization.Terms{
		Amount:       loan.Amount,
		TenureMonths: loan.TenureMonths,
		AnnualRate:   loan.AnnualRate,
		LoanType:     loan.LoanType,
	})
	if err != nil {
		return nil, err
	}

	paidCount, err := amortization.PaidCount(sub.TotalCount, sub.RemainingCount)
	if err != nil {
		return nil, err
	}

	var amount decimal.Decimal
	emiNumber := 1
	description := fmt.Sprintf("Loan %s foreclosure", loanID)

	if kind == domain.SettlementKindForeclosure {
		amount, err = r.Resolver.ForeclosureAmount(schedule, paidCount, sub.RemainingCount)
		if err != nil {
			return nil, err
		}
		if amount.IsZero() {
			return nil, customError.WrapValidation("nothing outstanding to foreclose")
		}
	} else {
		var stepper int
		amount, stepper, err = r.Resolver.NextDue(schedule, paidCount)
		if err != nil {
			return nil, err
		}
		emiNumber = stepper
		description = fmt.Sprintf("Loan %s installment %d prepayment", loanID, stepper)
	}

	if callbackURL == "" {
		callbackURL = r.config.Gateway.CallbackURL
	}

	// Remote link first; the settlement row is only written after remote
	// success so a gateway failure leaves no orphaned local state.
	link, err := r.Links.Create(ctx, sub.ExternalSubscriptionID, amount, r.config.Business.Currency, description, callbackURL)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	settlement := &domain.Settlement{
		ID:             uuid.New(),
		SubscriptionID: sub.ID,
		LoanID:         loanID,
		Kind:           kind,
		Amount:         amount,
		EMINumber:      emiNumber,
		Status:         domain.SettlementStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := r.SettlementRepo.Create(ctx, settlement); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	detail := &domain.PaymentDetail{
		ID:          uuid.New(),
		PaymentID:   link.ID,
		ReferenceID: link.ReferenceID,
		Amount:      amount,
		Status:      domain.PaymentStatusCreated,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if kind == domain.SettlementKindForeclosure {
		detail.ForeclosureID = &settlement.ID
	} else {
		detail.PrepaymentID = &settlement.ID
	}

	if err := r.SettlementRepo.CreatePaymentDetail(ctx, detail); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return &domain.SettlementResponse{
		Kind:     kind,
		Amount:   amount,
		ShortURL: link.ShortURL,
		Status:   domain.SettlementStatusPending,
	}, nil
}

// HandlePaymentLinkPaid closes the loop on a captured settlement payment:
// invoice, payment detail and settlement are updated, the subscription is
// cancelled locally and the loan marked completed, then the remote cancel is
// issued best-effort. Local state is authoritative; a failed remote cancel is
// flagged for the scheduler's retry sweep instead of failing the webhook.
func (r *SubscriptionReconciler) HandlePaymentLinkPaid(ctx context.Context, payload *domain.PaymentLinkEventPayload) error {
	detail, err := r.SettlementRepo.GetPaymentDetailByPaymentID(ctx, payload.PaymentLink.ID)
	if errors.Is(err, sql.ErrNoRows) {
		// Re-delivery after a capture already replaced the link id with the
		// payment id.
		detail, err = r.SettlementRepo.GetPaymentDetailByPaymentID(ctx, payload.Payment.ID)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("payment link %s has no local payment detail; ignoring", payload.PaymentLink.ID)
			return nil
		}
		return customError.WrapDatabaseError(err)
	}

	settlement, err := r.SettlementRepo.GetByID(ctx, detail.Owner())
	if err != nil {
		return customError.WrapDatabaseError(err)
	}

	if settlement.Status == domain.SettlementStatusApproved {
		return nil
	}

	invoiceType := domain.InvoiceTypeForeclosure
	if settlement.Kind == domain.SettlementKindPrePayment {
		invoiceType = domain.InvoiceTypePrePayment
	}

	// The ledger verifies the remote payment is actually paid before any row
	// is written.
	if _, err := r.Ledger.RecordSettlementInvoice(ctx, settlement.SubscriptionID, invoiceType, payload.Payment.ID); err != nil {
		return err
	}

	detail.PaymentID = payload.Payment.ID
	detail.Status = domain.PaymentStatusPaid
	if payload.Payment.Amount > 0 {
		detail.Amount = utils.FromMinorUnits(payload.Payment.Amount)
	}
	if err := r.SettlementRepo.UpdatePaymentDetail(ctx, detail); err != nil {
		return customError.WrapDatabaseError(err)
	}

	if err := r.SettlementRepo.UpdateStatus(ctx, settlement.ID, domain.SettlementStatusApproved); err != nil {
		return customError.WrapDatabaseError(err)
	}

	sub, err := r.SubRepo.GetByID(ctx, settlement.SubscriptionID)
	if err != nil {
		return customError.WrapDatabaseError(err)
	}

	if err := r.Transition(ctx, sub, domain.SubscriptionStatusCancelled); err != nil {
		return err
	}

	if err := r.LoanRepo.UpdateStatus(ctx, settlement.LoanID, domain.LoanStatusCompleted); err != nil {
		return customError.WrapDatabaseError(err)
	}

	r.cancelRemote(ctx, sub)
	return nil
}

// cancelRemote issues the gateway cancel. Local state is already terminal,
// so failure is logged and queued for the scheduler, never surfaced.
func (r *SubscriptionReconciler) cancelRemote(ctx context.Context, sub *domain.Subscription) {
	if err := r.Gateway.CancelSubscription(ctx, sub.ExternalSubscriptionID); err != nil {
		log.Printf("remote cancel of subscription %s failed (will retry): %v", sub.ExternalSubscriptionID, err)
		if err := r.SubRepo.SetCancelPending(ctx, sub.ID, true); err != nil {
			log.Printf("failed to flag subscription %s for cancel retry: %v", sub.ID, err)
		}
		return
	}

	if err := r.SubRepo.SetCancelPending(ctx, sub.ID, false); err != nil {
		log.Printf("failed to clear cancel flag on subscription %s: %v", sub.ID, err)
	}
}

// RetryPendingCancels re-issues remote cancels that failed after a local
// terminal transition. Called from the scheduler.
func (r *SubscriptionReconciler) RetryPendingCancels(ctx context.Context) (int, error) {
	subs, err := r.SubRepo.ListCancelPending(ctx)
	if err != nil {
		return 0, customError.WrapDatabaseError(err)
	}

	retried := 0
	for _, sub := range subs {
		if err := r.Gateway.CancelSubscription(ctx, sub.ExternalSubscriptionID); err != nil {
			log.Printf("cancel retry for subscription %s failed: %v", sub.ExternalSubscriptionID, err)
			continue
		}
		if err := r.SubRepo.SetCancelPending(ctx, sub.ID, false); err != nil {
			log.Printf("failed to clear cancel flag on subscription %s: %v", sub.ID, err)
			continue
		}
		retried++
	}

	return retried, nil
}

// ExpireStaleSettlements rejects pending settlements whose payment link was
// never paid. Called from the scheduler.
func (r *SubscriptionReconciler) ExpireStaleSettlements(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	settlements, err := r.SettlementRepo.ListStalePending(ctx, cutoff)
	if err != nil {
		return 0, customError.WrapDatabaseError(err)
	}

	expired := 0
	for _, settlement := range settlements {
		if err := r.SettlementRepo.UpdateStatus(ctx, settlement.ID, domain.SettlementStatusRejected); err != nil {
			log.Printf("failed to expire settlement %s: %v", settlement.ID, err)
			continue
		}
		expired++
	}

	return expired, nil
}

// applyCounts stores the gateway's counters when they satisfy the
// paid+remaining==total invariant; mismatches are logged for manual
// reconciliation and skipped rather than persisted. Returns whether the
// incoming counters were usable.
func (r *SubscriptionReconciler) applyCounts(ctx context.Context, sub *domain.Subscription, remote domain.WebhookSubscription) bool {
	if remote.TotalCount == 0 && remote.PaidCount == 0 && remote.RemainingCount == 0 {
		return false
	}

	if remote.TotalCount > 0 && remote.PaidCount+remote.RemainingCount != remote.TotalCount {
		log.Printf("subscription %s counters violate invariant (total=%d paid=%d remaining=%d); skipping",
			remote.ID, remote.TotalCount, remote.PaidCount, remote.RemainingCount)
		return false
	}

	if sub.PaidCount == remote.PaidCount && sub.RemainingCount == remote.RemainingCount {
		return true
	}

	if err := r.SubRepo.UpdateCounts(ctx, sub.ID, remote.PaidCount, remote.RemainingCount); err != nil {
		log.Printf("failed to update counters for subscription %s: %v", sub.ID, err)
		return true
	}

	sub.PaidCount = remote.PaidCount
	sub.RemainingCount = remote.RemainingCount
	return true
}
