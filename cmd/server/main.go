package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	_ "github.com/joho/godotenv/autoload"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/lendstack/lending-engine/internal/config"
	"github.com/lendstack/lending-engine/internal/gateway"
	"github.com/lendstack/lending-engine/internal/handler"
	"github.com/lendstack/lending-engine/internal/repository"
	"github.com/lendstack/lending-engine/internal/service"
	"github.com/lendstack/lending-engine/pkg/response"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database
	db, err := initDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Initialize Redis
	redisClient := initRedis(cfg)
	defer redisClient.Close()

	// Initialize gateway client
	gatewayClient := gateway.NewClient(cfg)
	links := gateway.NewPaymentLinkCreator(gatewayClient, cfg.Business.PaymentLinkAttempts)

	// Initialize repositories
	loanRepo := repository.NewLoanRepository(db)
	planRepo := repository.NewPlanRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	settlementRepo := repository.NewSettlementRepository(db)

	// Initialize services
	ledger := service.NewInvoiceLedger(invoiceRepo, gatewayClient)
	reconciler := service.NewSubscriptionReconciler(loanRepo, planRepo, subRepo, settlementRepo, ledger, gatewayClient, links, cfg)
	loanService := service.NewLoanService(loanRepo, redisClient, cfg)

	loanHandler := handler.NewLoanHandler(loanService, reconciler)
	webhookHandler := handler.NewWebhookHandler(reconciler, redisClient, cfg)
	healthHandler := handler.NewHealthHandler(db, redisClient, cfg)

	// Setup routes
	router := setupRoutes(loanHandler, webhookHandler, healthHandler)

	// Start server
	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.GetConnMaxLifetime())

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func setupRoutes(loanHandler *handler.LoanHandler, webhookHandler *handler.WebhookHandler, healthHandler *handler.HealthHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware)

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	// Gateway webhook: raw body, signature-verified, no envelope middleware
	router.HandleFunc("/webhook", webhookHandler.Handle).Methods("POST")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/loans", loanHandler.CreateLoan).Methods("POST")
	api.HandleFunc("/loans/emi", loanHandler.CalculateEMI).Methods("POST")
	api.HandleFunc("/loans/{loanId}/schedule", loanHandler.GetSchedule).Methods("GET")
	api.HandleFunc("/loans/{loanId}/subscription", loanHandler.CreateSubscription).Methods("POST")
	api.HandleFunc("/loans/{loanId}/foreclosure", loanHandler.Foreclose).Methods("POST")
	api.HandleFunc("/loans/{loanId}/prepayment", loanHandler.PrePay).Methods("POST")

	return router
}
