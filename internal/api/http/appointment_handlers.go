package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"telecare-backend/internal/billing"
	"telecare-backend/internal/domain"
	"telecare-backend/internal/service"
)

type bookAppointmentRequest struct {
	TherapistID       string          `json:"therapist_id"`
	MainDate          string          `json:"main_date"`
	RecurringDates    []string        `json:"recurring_dates"`
	TotalSessions     int             `json:"total_sessions"`
	Price             decimal.Decimal `json:"price"`
	Currency          string          `json:"currency"`
	CheckoutSessionID string          `json:"checkout_session_id"`
	Notes             string          `json:"notes"`
}

type appointmentResponse struct {
	Appointment *domain.Appointment `json:"appointment"`
	Sessions    []domain.Session    `json:"sessions"`
}

type listResponse[T any] struct {
	Items    []T   `json:"items"`
	Total    int32 `json:"total"`
	Page     int32 `json:"page"`
	PageSize int32 `json:"page_size"`
}

func (s *Server) handleBookAppointment(w http.ResponseWriter, r *http.Request) {
	requireRole(domain.UserRolePatient)(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := claimsFrom(r.Context())

		var req bookAppointmentRequest
		if err := decodeBody(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Currency == "" {
			req.Currency = "usd"
		}

		appt, sessions, err := s.appointments.BookAppointment(r.Context(), service.BookAppointmentRequest{
			PatientID:         claims.UserID,
			TherapistID:       req.TherapistID,
			MainDate:          req.MainDate,
			RecurringDates:    req.RecurringDates,
			TotalSessions:     req.TotalSessions,
			Price:             req.Price,
			Currency:          req.Currency,
			CheckoutSessionID: req.CheckoutSessionID,
			Notes:             req.Notes,
		})
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, appointmentResponse{Appointment: appt, Sessions: sessions})
	})(w, r)
}

func (s *Server) handleGetAppointment(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	appt, sessions, err := s.appointments.GetAppointment(r.Context(), claims.UserID, claims.Role, mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, appointmentResponse{Appointment: appt, Sessions: sessions})
}

// handleListAppointments lists the caller's own appointments; the view is
// chosen by role.
func (s *Server) handleListAppointments(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	page, pageSize := parsePaging(r)
	status := r.URL.Query().Get("status")

	var (
		appts []domain.Appointment
		total int32
		err   error
	)
	if claims.Role == domain.UserRoleTherapist {
		appts, total, err = s.appointments.ListByTherapist(r.Context(), claims.UserID, status, page, pageSize)
	} else {
		appts, total, err = s.appointments.ListByPatient(r.Context(), claims.UserID, status, page, pageSize)
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, listResponse[domain.Appointment]{
		Items: appts, Total: total, Page: page, PageSize: pageSize,
	})
}

func (s *Server) handleUpdateSessionStatus(w http.ResponseWriter, r *http.Request) {
	requireRole(domain.UserRoleTherapist)(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := claimsFrom(r.Context())
		vars := mux.Vars(r)

		var req struct {
			Status domain.SessionStatus `json:"status"`
		}
		if err := decodeBody(r, &req); err != nil || req.Status == "" {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		sessions, err := s.appointments.UpdateSessionStatus(r.Context(), claims.UserID, vars["id"], vars["key"], req.Status)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
	})(w, r)
}

func (s *Server) handleCancelAppointment(w http.ResponseWriter, r *http.Request) {
	requireRole(domain.UserRolePatient)(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := claimsFrom(r.Context())

		var req struct {
			Policy billing.RefundPolicy `json:"refund_policy"`
		}
		if err := decodeBody(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Policy == "" {
			req.Policy = billing.RefundPolicyFull
		}

		result, err := s.appointments.CancelAppointment(r.Context(), claims.UserID, mux.Vars(r)["id"], req.Policy)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"refund": result})
	})(w, r)
}

// handleRefundAppointment runs a refund without cancelling, for single-slot
// refunds and admin-driven adjustments.
func (s *Server) handleRefundAppointment(w http.ResponseWriter, r *http.Request) {
	requireRole(domain.UserRoleAdmin)(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Policy billing.RefundPolicy `json:"refund_policy"`
			SlotID string               `json:"slot_id"`
		}
		if err := decodeBody(r, &req); err != nil || req.Policy == "" {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := s.refunds.RefundAppointment(r.Context(), mux.Vars(r)["id"], req.Policy, req.SlotID)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"refund": result})
	})(w, r)
}
