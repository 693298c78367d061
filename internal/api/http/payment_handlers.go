package http

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"telecare-backend/internal/domain"
	"telecare-backend/internal/logger"
)

func (s *Server) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	res, err := s.payments.VerifyAppointment(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handlePurchaseWithBalance(w http.ResponseWriter, r *http.Request) {
	requireRole(domain.UserRolePatient)(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := claimsFrom(r.Context())
		if err := s.payments.PurchaseWithBalance(r.Context(), claims.UserID, mux.Vars(r)["id"]); err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "paid"})
	})(w, r)
}

// handleStripeWebhook records asynchronous gateway confirmations. The
// appointment id travels in the checkout session's metadata, set when the
// session is created client-side.
func (s *Server) handleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	const maxBodyBytes = 65536
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusRequestEntityTooLarge, "body too large")
		return
	}

	event, err := webhook.ConstructEvent(body, r.Header.Get("Stripe-Signature"), s.webhookSecret)
	if err != nil {
		logger.Warn("webhook signature verification failed", "error", err)
		respondError(w, http.StatusBadRequest, "invalid signature")
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			respondError(w, http.StatusBadRequest, "malformed event payload")
			return
		}
		appointmentID := sess.Metadata["appointment_id"]
		if appointmentID == "" {
			logger.Warn("checkout session completed without appointment metadata", "session_id", sess.ID)
			break
		}
		paymentIntentID := ""
		if sess.PaymentIntent != nil {
			paymentIntentID = sess.PaymentIntent.ID
		}
		if err := s.payments.RecordWebhookConfirmation(r.Context(), appointmentID, paymentIntentID); err != nil {
			// Non-2xx makes Stripe retry the delivery.
			respondServiceError(w, err)
			return
		}

	default:
		logger.Debug("ignoring webhook event", "type", event.Type)
	}

	respondJSON(w, http.StatusOK, map[string]string{"received": "true"})
}
