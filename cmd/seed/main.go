package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	_ "github.com/lib/pq"

	"telecare-backend/internal/config"
	"telecare-backend/internal/domain"
	"telecare-backend/internal/logger"
	"telecare-backend/internal/repository/postgres"
)

// Seeds a development database with a realistic mix of accounts and
// appointments, including pre-migration rows whose recurring list still holds
// bare date strings.
func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	patients := flag.Int("patients", 10, "Number of patients to create")
	therapists := flag.Int("therapists", 4, "Number of therapists to create")
	seed := flag.Uint64("seed", 0, "Deterministic seed (0 for random)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)

	if *seed != 0 {
		if err := gofakeit.Seed(*seed); err != nil {
			log.Fatalf("Failed to seed faker: %v", err)
		}
	}

	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	store := postgres.NewStore(db)
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		log.Fatalf("Failed to hash seed password: %v", err)
	}

	tiers := []domain.TherapistTier{
		domain.TherapistTierStandard,
		domain.TherapistTierSenior,
		domain.TherapistTierExpert,
	}
	specialties := []string{"CBT", "Family therapy", "Trauma", "Anxiety and depression", "Adolescent care"}

	var therapistIDs []string
	for i := 0; i < *therapists; i++ {
		t := &domain.User{
			ID:           uuid.NewString(),
			Email:        fmt.Sprintf("therapist%d@%s", i+1, gofakeit.DomainName()),
			PhoneNumber:  gofakeit.Phone(),
			PasswordHash: string(hash),
			Name:         "Dr. " + gofakeit.Name(),
			Role:         domain.UserRoleTherapist,
			Tier:         tiers[i%len(tiers)],
			Specialty:    specialties[i%len(specialties)],
		}
		if err := store.UserRepository.Create(ctx, t); err != nil {
			log.Fatalf("Failed to create therapist: %v", err)
		}
		therapistIDs = append(therapistIDs, t.ID)
	}
	logger.Info("Seeded therapists", "count", len(therapistIDs))

	var patientIDs []string
	for i := 0; i < *patients; i++ {
		p := &domain.User{
			ID:           uuid.NewString(),
			Email:        fmt.Sprintf("patient%d@%s", i+1, gofakeit.DomainName()),
			PhoneNumber:  gofakeit.Phone(),
			PasswordHash: string(hash),
			Name:         gofakeit.Name(),
			Role:         domain.UserRolePatient,
		}
		if err := store.UserRepository.Create(ctx, p); err != nil {
			log.Fatalf("Failed to create patient: %v", err)
		}
		patientIDs = append(patientIDs, p.ID)
	}
	logger.Info("Seeded patients", "count", len(patientIDs))

	seeded := 0
	legacy := 0
	for _, patientID := range patientIDs {
		for i := 0; i < gofakeit.Number(1, 3); i++ {
			appt, isLegacy := buildAppointment(patientID, therapistIDs[gofakeit.Number(0, len(therapistIDs)-1)])
			if err := store.AppointmentRepository.Create(ctx, appt); err != nil {
				log.Fatalf("Failed to create appointment: %v", err)
			}

			if isLegacy {
				// Rewrite the recurring column into the pre-migration shape:
				// a bare array of date strings.
				if err := downgradeRecurring(ctx, db, appt); err != nil {
					log.Fatalf("Failed to downgrade recurring column: %v", err)
				}
				legacy++
			}

			if appt.IsBalance {
				credit := &domain.BalanceTransaction{
					PatientID:   patientID,
					Amount:      appt.Price,
					Units:       decimal.NewFromInt(int64(appt.TotalSessions)),
					Currency:    "usd",
					Type:        domain.TransactionTypePurchaseCredit,
					Description: "Seeded prepaid package",
				}
				apptID := appt.ID
				debit := &domain.BalanceTransaction{
					PatientID:            patientID,
					Amount:               appt.Price.Neg(),
					Units:                decimal.NewFromInt(int64(appt.TotalSessions)).Neg(),
					Currency:             "usd",
					Type:                 domain.TransactionTypeSessionDebit,
					RelatedAppointmentID: &apptID,
					Description:          "Seeded balance purchase",
				}
				if err := store.BalanceRepository.CreateTransaction(ctx, credit); err != nil {
					log.Fatalf("Failed to create balance credit: %v", err)
				}
				if err := store.BalanceRepository.CreateTransaction(ctx, debit); err != nil {
					log.Fatalf("Failed to create balance debit: %v", err)
				}
			}
			seeded++
		}
	}

	logger.Info("Seed complete",
		"appointments", seeded,
		"legacy_recurring", legacy,
		"password", "password123")
}

func buildAppointment(patientID, therapistID string) (*domain.Appointment, bool) {
	total := gofakeit.Number(1, 6)
	start := gofakeit.DateRange(time.Now().AddDate(0, -3, 0), time.Now().AddDate(0, 1, 0)).UTC().Truncate(time.Hour)

	recurring := make([]domain.SessionRecord, 0, total-1)
	completed := 0
	for i := 1; i < total; i++ {
		date := start.AddDate(0, 0, 7*i)
		status := domain.SessionStatusInProgress
		if date.Before(time.Now()) {
			status = domain.SessionStatusCompleted
			completed++
		}
		recurring = append(recurring, domain.SessionRecord{
			Date:    date.Format(time.RFC3339),
			Status:  status,
			Payment: domain.SessionPaymentNotPaid,
		})
	}
	if start.Before(time.Now()) {
		completed++
	}

	isBalance := gofakeit.Bool()
	appt := &domain.Appointment{
		ID:                uuid.NewString(),
		PatientID:         patientID,
		TherapistID:       therapistID,
		MainDate:          start.Format(time.RFC3339),
		Recurring:         recurring,
		TotalSessions:     total,
		CompletedSessions: completed,
		Price:             decimal.NewFromInt(int64(gofakeit.Number(8, 30) * 10 * total)),
		Currency:          "usd",
		Status:            domain.AppointmentStatusScheduled,
		PaymentStatus:     domain.PaymentStatusCompleted,
		IsBalance:         isBalance,
		Notes:             gofakeit.Sentence(8),
	}
	if !isBalance {
		appt.IsStripeVerified = true
		appt.CheckoutSessionID = "cs_seed_" + uuid.NewString()
		appt.PaymentIntentID = "pi_seed_" + uuid.NewString()
	}

	// Roughly a fifth of multi-session rows keep the pre-migration shape.
	isLegacy := total > 1 && gofakeit.Number(1, 5) == 1
	return appt, isLegacy
}

func downgradeRecurring(ctx context.Context, db *sql.DB, appt *domain.Appointment) error {
	dates := make([]string, len(appt.Recurring))
	for i, rec := range appt.Recurring {
		dates[i] = rec.Date
	}
	raw, err := json.Marshal(dates)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `UPDATE appointments SET recurring = $2 WHERE id = $1`, appt.ID, raw)
	return err
}
