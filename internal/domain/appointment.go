package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "SCHEDULED"
	AppointmentStatusActive    AppointmentStatus = "ACTIVE"
	AppointmentStatusCompleted AppointmentStatus = "COMPLETED"
	AppointmentStatusCancelled AppointmentStatus = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusUnpaid    PaymentStatus = "unpaid"
)

type SessionStatus string

const (
	SessionStatusUnscheduled SessionStatus = "unscheduled"
	SessionStatusInProgress  SessionStatus = "in_progress"
	SessionStatusCompleted   SessionStatus = "completed"
	SessionStatusCancelled   SessionStatus = "cancelled"
	SessionStatusNoShow      SessionStatus = "no_show"
	SessionStatusRescheduled SessionStatus = "rescheduled"
)

type SessionPayment string

const (
	SessionPaymentNotPaid SessionPayment = "not_paid"
	SessionPaymentPaid    SessionPayment = "paid"
	SessionPaymentPaidOut SessionPayment = "paid_out"
)

// Appointment is a booked package of one or more therapy sessions. The first
// session is MainDate; Recurring holds the sessions after it, so
// Recurring[i] is overall session index i+1.
type Appointment struct {
	ID                string            `json:"id"`
	PatientID         string            `json:"patient_id"`
	TherapistID       string            `json:"therapist_id"`
	MainDate          string            `json:"main_date"`
	Recurring         []SessionRecord   `json:"recurring"`
	TotalSessions     int               `json:"total_sessions"`
	CompletedSessions int               `json:"completed_sessions"`
	Price             decimal.Decimal   `json:"price"`
	Currency          string            `json:"currency"`
	Status            AppointmentStatus `json:"status"`
	PaymentStatus     PaymentStatus     `json:"payment_status"`
	IsStripeVerified  bool              `json:"is_stripe_verified"`
	IsBalance         bool              `json:"is_balance"`
	CheckoutSessionID string            `json:"checkout_session_id,omitempty"`
	PaymentIntentID   string            `json:"payment_intent_id,omitempty"`
	Notes             string            `json:"notes,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`

	// LegacyRecurring is set on read when the stored recurring list still
	// held bare-string entries, so the caller can persist the structured
	// upgrade once. Never serialized.
	LegacyRecurring bool `json:"-"`
}

// SessionRecord is one element of an appointment's recurring list. Rows
// created before the session-object migration stored a bare date string;
// UnmarshalJSON upgrades those on read so nothing past the decode boundary
// ever sees the legacy shape.
type SessionRecord struct {
	Date          string           `json:"date"`
	Status        SessionStatus    `json:"status"`
	Payment       SessionPayment   `json:"payment"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	PayoutPercent *decimal.Decimal `json:"payout_percent,omitempty"`
}

func (s *SessionRecord) UnmarshalJSON(data []byte) error {
	var legacy string
	if err := json.Unmarshal(data, &legacy); err == nil {
		// A bare string is a historical entry: the session happened but was
		// never individually marked paid. Downstream payout math relies on
		// this convention.
		*s = SessionRecord{
			Date:    legacy,
			Status:  SessionStatusCompleted,
			Payment: SessionPaymentNotPaid,
		}
		return nil
	}

	type plain SessionRecord
	var rec plain
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	*s = SessionRecord(rec)
	return nil
}

// Session is the normalized, uniformly priced view of one session-unit.
// Key is "<appointmentID>-<index>" and is the join key used when marking
// individual sessions paid or paid out.
type Session struct {
	Key           string           `json:"key"`
	Index         int              `json:"index"`
	Date          string           `json:"date"`
	Status        SessionStatus    `json:"status"`
	Payment       SessionPayment   `json:"payment"`
	Price         decimal.Decimal  `json:"price"`
	PayoutPercent *decimal.Decimal `json:"payout_percent,omitempty"`
}
