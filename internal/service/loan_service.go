package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/lendstack/lending-engine/internal/amortization"
	"github.com/lendstack/lending-engine/internal/config"
	"github.com/lendstack/lending-engine/internal/domain"
	"github.com/lendstack/lending-engine/internal/repository"
	customError "github.com/lendstack/lending-engine/pkg/errors"
)

// LoanService owns loan intake and schedule reads.
type LoanService struct {
	LoanRepo repository.LoanRepository
	redis    *redis.Client
	config   *config.Config
}

func NewLoanService(loanRepo repository.LoanRepository, redisClient *redis.Client, cfg *config.Config) *LoanService {
	return &LoanService{
		LoanRepo: loanRepo,
		redis:    redisClient,
		config:   cfg,
	}
}

// CreateLoan validates the terms, computes the EMI schedule and persists the
// loan. The schedule itself is never persisted; it is recomputed (and cached)
// on demand.
func (s *LoanService) CreateLoan(ctx context.Context, request *domain.CreateLoanRequest) (*domain.Loan, *amortization.Schedule, error) {
	existingLoan, err := s.LoanRepo.GetByLoanID(ctx, request.LoanID)
	if err == nil && existingLoan != nil {
		return nil, nil, customError.WrapLoanAlreadyExists(request.LoanID)
	}

	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, nil, customError.WrapDatabaseError(err)
	}

	schedule, err := amortization.Calculate(amortization.Terms{
		Amount:            request.Amount,
		TenureMonths:      request.TenureMonths,
		AnnualRate:        request.AnnualRate,
		ProcessingFee:     request.ProcessingFee,
		IsFeePercentage:   request.IsFeePercentage,
		LoanType:          request.LoanType,
		ScheduleAnchorDay: request.ScheduleAnchorDay,
	})
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	loan := &domain.Loan{
		ID:           uuid.New(),
		LoanID:       request.LoanID,
		Amount:       request.Amount,
		AnnualRate:   request.AnnualRate,
		TenureMonths: request.TenureMonths,
		MonthlyEMI:   schedule.MonthlyEMI,
		LoanType:     request.LoanType,
		Status:       domain.LoanStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err = s.LoanRepo.Create(ctx, loan); err != nil {
		return nil, nil, customError.WrapDatabaseError(err)
	}

	return loan, schedule, nil
}

// CalculateEMI computes a schedule without touching any loan record.
func (s *LoanService) CalculateEMI(request *domain.EMIRequest) (*amortization.Schedule, error) {
	return amortization.Calculate(amortization.Terms{
		Amount:            request.Amount,
		TenureMonths:      request.TenureMonths,
		AnnualRate:        request.AnnualRate,
		ProcessingFee:     request.ProcessingFee,
		IsFeePercentage:   request.IsFeePercentage,
		LoanType:          request.LoanType,
		ScheduleAnchorDay: request.ScheduleAnchorDay,
	})
}

// ScheduleForLoan returns the loan's amortization schedule, serving from the
// redis cache when possible. Cache failures degrade to recomputation.
func (s *LoanService) ScheduleForLoan(ctx context.Context, loanID string) (*amortization.Schedule, error) {
	cacheKey := fmt.Sprintf("schedule:%s", loanID)

	if s.redis != nil {
		cached, err := s.redis.Get(ctx, cacheKey).Result()
		if err == nil {
			var schedule amortization.Schedule
			if err := json.Unmarshal([]byte(cached), &schedule); err == nil {
				return &schedule, nil
			}
			log.Printf("discarding unreadable schedule cache entry for %s", loanID)
		} else if !errors.Is(err, redis.Nil) {
			log.Printf("schedule cache read failed for %s: %v", loanID, err)
		}
	}

	loan, err := s.LoanRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(loanID)
		}
		return nil, customError.WrapDatabaseError(err)
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

	if s.redis != nil {
		if payload, err := json.Marshal(schedule); err == nil {
			if err := s.redis.Set(ctx, cacheKey, payload, s.config.GetScheduleCacheTTL()).Err(); err != nil {
				log.Printf("schedule cache write failed for %s: %v", loanID, err)
			}
		}
	}

	return schedule, nil
}
