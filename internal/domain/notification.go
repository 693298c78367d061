package domain

import "time"

type NotificationType string

const (
	NotificationTypeBookingConfirmed NotificationType = "BOOKING_CONFIRMED"
	NotificationTypeSessionReminder  NotificationType = "SESSION_REMINDER"
	NotificationTypeRefundProcessed  NotificationType = "REFUND_PROCESSED"
	NotificationTypePayoutSent       NotificationType = "PAYOUT_SENT"
)

type Notification struct {
	ID         int64             `json:"id"`
	UserID     string            `json:"user_id"`
	Type       NotificationType  `json:"type"`
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	IsRead     bool              `json:"is_read"`
	Attributes map[string]string `json:"attributes,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}
