package main

import (
	"database/sql"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	httpapi "telecare-backend/internal/api/http"
	"telecare-backend/internal/billing"
	"telecare-backend/internal/config"
	"telecare-backend/internal/domain"
	"telecare-backend/internal/gateway"
	"telecare-backend/internal/idempotency"
	"telecare-backend/internal/logger"
	"telecare-backend/internal/repository/postgres"
	"telecare-backend/internal/security"
	"telecare-backend/internal/service"

	_ "github.com/lib/pq"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// .env is optional; real deployments set environment variables directly
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting telecare backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress())
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)

	// Initialize Database
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Redis (idempotency and locking)
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	idemStore := idempotency.NewStore(rdb,
		time.Duration(cfg.Redis.DedupeTTLDays)*24*time.Hour,
		time.Duration(cfg.Redis.LockTTLSecs)*time.Second)

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry, cfg.JWT.RefreshTokenExpiry)

	// Initialize Payment Gateway
	var gw gateway.GatewayInterface
	if cfg.Gateway.Type == "" || cfg.Gateway.Type == "mock" {
		logger.Info("Using mock payment gateway")
		gw = gateway.NewMockGatewayService()
	} else {
		logger.Info("Using stripe payment gateway")
		gw = gateway.NewStripeService(cfg.Gateway.StripeAPIKey)
	}

	// Initialize Email Service
	var emailSvc service.EmailService
	if cfg.SendGrid.APIKey == "" {
		logger.Info("No SendGrid key configured; email delivery disabled")
		emailSvc = service.NewNoopEmailService()
	} else {
		emailSvc = service.NewSendGridEmailService(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)
	}

	// Initialize Services
	verifier := billing.NewVerifier(gw)
	noteSvc := service.NewNotificationService(store.NotificationRepository)
	authSvc := service.NewAuthService(store.UserRepository, tokenManager)
	balanceSvc := service.NewBalanceService(store.BalanceRepository)
	paymentSvc := service.NewPaymentService(store.AppointmentRepository, store.PaymentRepository, store.BalanceRepository, verifier)
	refundSvc := service.NewRefundService(
		store.AppointmentRepository,
		store.PaymentRepository,
		store.BalanceRepository,
		store.UserRepository,
		gw,
		idemStore,
		noteSvc,
		emailSvc,
		decimal.NewFromFloat(cfg.Payout.RefundStep),
	)
	apptSvc := service.NewAppointmentService(store.AppointmentRepository, store.UserRepository, refundSvc, noteSvc, emailSvc)
	payoutSvc := service.NewPayoutService(
		store.PayoutRepository,
		store.AppointmentRepository,
		store.UserRepository,
		noteSvc,
		emailSvc,
		tierPercents(cfg),
		cfg.Payout.Currency,
	)

	// Initialize HTTP server
	server := httpapi.NewServer(authSvc, apptSvc, paymentSvc, refundSvc, payoutSvc, balanceSvc, noteSvc,
		tokenManager, cfg.Gateway.WebhookSecret)

	logger.Info("HTTP server listening", "address", cfg.GetServerAddress())
	if err := http.ListenAndServe(cfg.GetServerAddress(), server.Router()); err != nil {
		logger.Error("HTTP server exited", "error", err)
		log.Fatalf("HTTP server exited: %v", err)
	}
}

func tierPercents(cfg *config.Config) map[domain.TherapistTier]decimal.Decimal {
	return map[domain.TherapistTier]decimal.Decimal{
		domain.TherapistTierStandard: decimal.NewFromFloat(cfg.Payout.StandardTierPercent),
		domain.TherapistTierSenior:   decimal.NewFromFloat(cfg.Payout.SeniorTierPercent),
		domain.TherapistTierExpert:   decimal.NewFromFloat(cfg.Payout.ExpertTierPercent),
	}
}
