package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/joho/godotenv/autoload"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"

	"github.com/lendstack/lending-engine/internal/config"
	"github.com/lendstack/lending-engine/internal/gateway"
	"github.com/lendstack/lending-engine/internal/repository"
	"github.com/lendstack/lending-engine/internal/service"
)

func main() {
	log.Println("Starting reconciliation scheduler...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	gatewayClient := gateway.NewClient(cfg)
	links := gateway.NewPaymentLinkCreator(gatewayClient, cfg.Business.PaymentLinkAttempts)

	loanRepo := repository.NewLoanRepository(db)
	planRepo := repository.NewPlanRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	settlementRepo := repository.NewSettlementRepository(db)

	ledger := service.NewInvoiceLedger(invoiceRepo, gatewayClient)
	reconciler := service.NewSubscriptionReconciler(loanRepo, planRepo, subRepo, settlementRepo, ledger, gatewayClient, links, cfg)

	// Initialize cron scheduler
	c := cron.New(cron.WithSeconds())

	setupCronJobs(c, reconciler)

	// Start the scheduler
	c.Start()
	log.Println("Scheduler started successfully")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down scheduler...")
	c.Stop()
	log.Println("Scheduler stopped")
}

func setupCronJobs(c *cron.Cron, reconciler *service.SubscriptionReconciler) {
	// Every 15 minutes: re-issue remote cancels that failed after a local
	// terminal transition. Local state is authoritative, the gateway just
	// needs to catch up.
	_, err := c.AddFunc("0 */15 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		retried, err := reconciler.RetryPendingCancels(ctx)
		if err != nil {
			log.Printf("Cancel retry sweep failed: %v", err)
			return
		}
		if retried > 0 {
			log.Printf("Cancel retry sweep completed: %d subscriptions cancelled remotely", retried)
		}
	})
	if err != nil {
		log.Printf("Error scheduling cancel retry sweep: %v", err)
	}

	// Daily at midnight: reject pending foreclosure/prepayment requests whose
	// payment link was never paid.
	_, err = c.AddFunc("0 0 0 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		expired, err := reconciler.ExpireStaleSettlements(ctx, 24*time.Hour)
		if err != nil {
			log.Printf("Stale settlement sweep failed: %v", err)
			return
		}
		if expired > 0 {
			log.Printf("Stale settlement sweep completed: %d settlements rejected", expired)
		}
	})
	if err != nil {
		log.Printf("Error scheduling stale settlement sweep: %v", err)
	}

	log.Println("Cron jobs scheduled successfully")
}
