package main

import (
	"database/sql"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	_ "github.com/lib/pq"

	"telecare-backend/internal/billing"
	"telecare-backend/internal/config"
	"telecare-backend/internal/domain"
	"telecare-backend/internal/gateway"
	"telecare-backend/internal/jobs"
	"telecare-backend/internal/logger"
	"telecare-backend/internal/repository/postgres"
	"telecare-backend/internal/scheduler"
	"telecare-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'reconcile-payments', 'run-payouts', 'send-reminders', 'all-nightly', 'all-monthly')")
	flag.Parse()

	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting telecare cronjob runner...", "log_level", cfg.Log.Level)

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
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

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize Payment Gateway
	var gw gateway.GatewayInterface
	if cfg.Gateway.Type == "" || cfg.Gateway.Type == "mock" {
		gw = gateway.NewMockGatewayService()
	} else {
		gw = gateway.NewStripeService(cfg.Gateway.StripeAPIKey)
	}

	// Initialize Email Service
	var emailSvc service.EmailService
	if cfg.SendGrid.APIKey == "" {
		emailSvc = service.NewNoopEmailService()
	} else {
		emailSvc = service.NewSendGridEmailService(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)
	}

	// Initialize Services
	noteSvc := service.NewNotificationService(store.NotificationRepository)
	paymentSvc := service.NewPaymentService(store.AppointmentRepository, store.PaymentRepository, store.BalanceRepository, billing.NewVerifier(gw))
	payoutSvc := service.NewPayoutService(
		store.PayoutRepository,
		store.AppointmentRepository,
		store.UserRepository,
		noteSvc,
		emailSvc,
		map[domain.TherapistTier]decimal.Decimal{
			domain.TherapistTierStandard: decimal.NewFromFloat(cfg.Payout.StandardTierPercent),
			domain.TherapistTierSenior:   decimal.NewFromFloat(cfg.Payout.SeniorTierPercent),
			domain.TherapistTierExpert:   decimal.NewFromFloat(cfg.Payout.ExpertTierPercent),
		},
		cfg.Payout.Currency,
	)

	jobServices := &jobs.Services{
		Email:        emailSvc,
		Payment:      paymentSvc,
		Payout:       payoutSvc,
		Notification: noteSvc,
	}

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(db, store, jobServices, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		runJobOnce(jobRunner, *runOnce)
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler := scheduler.NewScheduler(jobRunner)

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	cronScheduler.Stop()
}

func runJobOnce(jr *jobs.JobRunner, name string) {
	switch name {
	case "reconcile-payments":
		jr.ReconcilePendingPayments()
	case "run-payouts":
		jr.RunTherapistPayouts()
	case "send-reminders":
		jr.SendSessionReminders()
	case "all-nightly":
		jr.RunAllNightlyJobs()
	case "all-monthly":
		jr.RunAllMonthlyJobs()
	default:
		logger.Error("Unknown job name", "job", name)
	}
}
