package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/lendstack/lending-engine/internal/domain"
	"github.com/lendstack/lending-engine/internal/service"
	customError "github.com/lendstack/lending-engine/pkg/errors"
	"github.com/lendstack/lending-engine/pkg/response"
)

type LoanHandler struct {
	loans      *service.LoanService
	reconciler *service.SubscriptionReconciler
	validator  *validator.Validate
}

func NewLoanHandler(loans *service.LoanService, reconciler *service.SubscriptionReconciler) *LoanHandler {
	return &LoanHandler{
		loans:      loans,
		reconciler: reconciler,
		validator:  validator.New(),
	}
}

// CreateLoan handles POST /api/v1/loans
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var request domain.CreateLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "invalid loan request", err)
		return
	}

	loan, schedule, err := h.loans.CreateLoan(r.Context(), &request)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Created(w, map[string]interface{}{
		"loan":        loan,
		"monthly_emi": schedule.MonthlyEMI,
		"schedule":    schedule.Entries,
	})
}

// CalculateEMI handles POST /api/v1/loans/emi
func (h *LoanHandler) CalculateEMI(w http.ResponseWriter, r *http.Request) {
	var request domain.EMIRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "invalid EMI request", err)
		return
	}

	schedule, err := h.loans.CalculateEMI(&request)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, map[string]interface{}{
		"monthly_emi":      schedule.MonthlyEMI,
		"processing_fee":   schedule.ProcessingFee,
		"disbursed_amount": schedule.Disbursed,
		"schedule":         schedule.Entries,
	})
}

// GetSchedule handles GET /api/v1/loans/{loanId}/schedule
func (h *LoanHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	schedule, err := h.loans.ScheduleForLoan(r.Context(), loanID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, map[string]interface{}{
		"loan_id":     loanID,
		"monthly_emi": schedule.MonthlyEMI,
		"schedule":    schedule.Entries,
	})
}

// CreateSubscription handles POST /api/v1/loans/{loanId}/subscription
func (h *LoanHandler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	sub, err := h.reconciler.CreateSubscription(r.Context(), loanID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Created(w, &domain.SubscriptionResponse{
		LoanID:         sub.LoanID,
		SubscriptionID: sub.ExternalSubscriptionID,
		Status:         sub.Status,
		ShortURL:       sub.ShortURL,
		TotalCount:     sub.TotalCount,
	})
}

// Foreclose handles POST /api/v1/loans/{loanId}/foreclosure
func (h *LoanHandler) Foreclose(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, h.reconciler.InitiateForeclosure)
}

// PrePay handles POST /api/v1/loans/{loanId}/prepayment
func (h *LoanHandler) PrePay(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, h.reconciler.InitiatePrePayment)
}

func (h *LoanHandler) settle(
	w http.ResponseWriter,
	r *http.Request,
	initiate func(ctx context.Context, loanID, callbackURL string) (*domain.SettlementResponse, error),
) {
	loanID := mux.Vars(r)["loanId"]

	var request domain.SettlementRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			response.BadRequest(w, "invalid request body", err)
			return
		}
		if err := h.validator.Struct(&request); err != nil {
			response.BadRequest(w, "invalid settlement request", err)
			return
		}
	}

	result, err := initiate(r.Context(), loanID, request.CallbackURL)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Created(w, result)
}

// writeServiceError translates the error taxonomy into HTTP responses.
// Business messages are safe to echo; anything else gets a generic message
// with the detail kept in server-side logs.
func writeServiceError(w http.ResponseWriter, err error) {
	var be *customError.BusinessError
	if !errors.As(err, &be) {
		response.InternalServerError(w, "internal error", err)
		return
	}

	switch be.Code {
	case customError.ErrCodeValidation:
		response.BadRequest(w, be.Message, nil)
	case customError.ErrCodeLoanNotFound, customError.ErrCodeSubscriptionNotFound:
		response.NotFound(w, be.Message)
	case customError.ErrCodeLoanAlreadyExists, customError.ErrCodeSubscriptionExists, customError.ErrCodeLoanAlreadyCompleted:
		response.Conflict(w, be.Message)
	case customError.ErrCodeReferenceExhausted:
		response.JSON(w, http.StatusServiceUnavailable, "could not allocate a payment reference, please retry later", nil)
	case customError.ErrCodeConsistency:
		// Logged with full context upstream; the caller only sees that a
		// manual check is needed.
		response.InternalServerError(w, "inconsistent subscription state, manual reconciliation required", err)
	default:
		response.InternalServerError(w, "internal error", err)
	}
}
