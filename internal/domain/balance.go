package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeSessionDebit   TransactionType = "SESSION_DEBIT"
	TransactionTypePurchaseCredit TransactionType = "PURCHASE_CREDIT"
	TransactionTypeRefundCredit   TransactionType = "REFUND_CREDIT"
	TransactionTypeAdjustment     TransactionType = "ADJUSTMENT"
)

// BalanceTransaction is one entry in a patient's prepaid credit ledger.
// Amount is money (positive for credit, negative for debit); Units is the
// equivalent number of session-units, carried separately because refunds
// return units to the ledger rather than money.
type BalanceTransaction struct {
	ID                   int64           `json:"id"`
	PatientID            string          `json:"patient_id"`
	Amount               decimal.Decimal `json:"amount"`
	Units                decimal.Decimal `json:"units"`
	Currency             string          `json:"currency"`
	Type                 TransactionType `json:"type"`
	RelatedAppointmentID *string         `json:"related_appointment_id,omitempty"`
	Description          string          `json:"description"`
	CreatedAt            time.Time       `json:"created_at"`
}
