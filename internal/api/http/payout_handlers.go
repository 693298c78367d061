package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"telecare-backend/internal/domain"
)

func (s *Server) handleListPayouts(w http.ResponseWriter, r *http.Request) {
	requireRole(domain.UserRoleTherapist)(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := claimsFrom(r.Context())

		therapistID := claims.UserID
		if claims.Role == domain.UserRoleAdmin {
			if v := r.URL.Query().Get("therapist_id"); v != "" {
				therapistID = v
			}
		}

		page, pageSize := parsePaging(r)
		payouts, total, err := s.payouts.ListPayouts(r.Context(), therapistID, r.URL.Query().Get("status"), page, pageSize)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, listResponse[domain.Payout]{
			Items: payouts, Total: total, Page: page, PageSize: pageSize,
		})
	})(w, r)
}

func (s *Server) handleRunPayouts(w http.ResponseWriter, r *http.Request) {
	requireRole(domain.UserRoleAdmin)(func(w http.ResponseWriter, r *http.Request) {
		summary, err := s.payouts.RunPayouts(r.Context())
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, summary)
	})(w, r)
}

func (s *Server) handleMarkPayoutPaid(w http.ResponseWriter, r *http.Request) {
	requireRole(domain.UserRoleAdmin)(func(w http.ResponseWriter, r *http.Request) {
		if err := s.payouts.MarkPayoutPaid(r.Context(), mux.Vars(r)["id"]); err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": string(domain.PayoutStatusPaid)})
	})(w, r)
}
