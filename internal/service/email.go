package service

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/shopspring/decimal"

	"telecare-backend/internal/domain"
	"telecare-backend/internal/logger"
)

type sendGridEmailService struct {
	apiKey    string
	fromEmail string
	fromName  string
}

func NewSendGridEmailService(apiKey, fromEmail, fromName string) EmailService {
	return &sendGridEmailService{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (s *sendGridEmailService) send(to, toName, subject, plainText, htmlContent string) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	recipient := mail.NewEmail(toName, to)
	message := mail.NewSingleEmail(from, subject, recipient, plainText, htmlContent)

	client := sendgrid.NewSendClient(s.apiKey)
	logger.ExternalServiceCall("sendgrid", "Send", "to", to, "subject", subject)
	response, err := client.Send(message)
	if err != nil {
		logger.ExternalServiceResult("sendgrid", "Send", err)
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		err := fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
		logger.ExternalServiceResult("sendgrid", "Send", err)
		return err
	}
	logger.ExternalServiceResult("sendgrid", "Send", nil)
	return nil
}

func (s *sendGridEmailService) SendBookingConfirmation(_ context.Context, email, name string, appt *domain.Appointment) error {
	subject := "Your appointment is booked"
	plainText := fmt.Sprintf("Hi %s, your package of %d sessions starting %s is booked.",
		name, appt.TotalSessions, appt.MainDate)
	htmlContent := fmt.Sprintf(`<p>Hi %s,</p><p>Your package of <strong>%d sessions</strong> starting %s is booked.</p>`,
		name, appt.TotalSessions, appt.MainDate)
	return s.send(email, name, subject, plainText, htmlContent)
}

func (s *sendGridEmailService) SendRefundNotice(_ context.Context, email, name string, result domain.RefundResult, currency string) error {
	subject := "Your refund has been processed"
	plainText := fmt.Sprintf("Hi %s, %s session units were refunded: %s %s to your card and %s units to your balance.",
		name, result.SessionUnitsRefunded, result.MoneyRefund, currency, result.FromBalance)
	htmlContent := fmt.Sprintf(`<p>Hi %s,</p><p>%s session units were refunded: <strong>%s %s</strong> to your card and <strong>%s units</strong> to your balance.</p>`,
		name, result.SessionUnitsRefunded, result.MoneyRefund, currency, result.FromBalance)
	return s.send(email, name, subject, plainText, htmlContent)
}

func (s *sendGridEmailService) SendPayoutNotice(_ context.Context, email, name string, amount decimal.Decimal, currency string) error {
	subject := "Payout scheduled"
	plainText := fmt.Sprintf("Hi %s, a payout of %s %s for your completed sessions has been scheduled.",
		name, amount, currency)
	htmlContent := fmt.Sprintf(`<p>Hi %s,</p><p>A payout of <strong>%s %s</strong> for your completed sessions has been scheduled.</p>`,
		name, amount, currency)
	return s.send(email, name, subject, plainText, htmlContent)
}

func (s *sendGridEmailService) SendSessionReminder(_ context.Context, email, name, date string) error {
	subject := "Session reminder"
	plainText := fmt.Sprintf("Hi %s, this is a reminder for your therapy session on %s.", name, date)
	htmlContent := fmt.Sprintf(`<p>Hi %s,</p><p>This is a reminder for your therapy session on <strong>%s</strong>.</p>`,
		name, date)
	return s.send(email, name, subject, plainText, htmlContent)
}

// noopEmailService is wired when no SendGrid key is configured, so local
// environments never hit the real API.
type noopEmailService struct{}

func NewNoopEmailService() EmailService { return noopEmailService{} }

func (noopEmailService) SendBookingConfirmation(context.Context, string, string, *domain.Appointment) error {
	return nil
}
func (noopEmailService) SendRefundNotice(context.Context, string, string, domain.RefundResult, string) error {
	return nil
}
func (noopEmailService) SendPayoutNotice(context.Context, string, string, decimal.Decimal, string) error {
	return nil
}
func (noopEmailService) SendSessionReminder(context.Context, string, string, string) error {
	return nil
}
