package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"telecare-backend/internal/domain"
)

type balanceResponse struct {
	Money    decimal.Decimal `json:"money"`
	Units    decimal.Decimal `json:"units"`
	Currency string          `json:"currency"`
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	requireRole(domain.UserRolePatient)(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := claimsFrom(r.Context())

		money, units, err := s.balances.GetBalance(r.Context(), claims.UserID)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, balanceResponse{Money: money, Units: units, Currency: "usd"})
	})(w, r)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	requireRole(domain.UserRolePatient)(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := claimsFrom(r.Context())

		page, pageSize := parsePaging(r)
		txs, total, err := s.balances.GetTransactions(r.Context(), claims.UserID, page, pageSize)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, listResponse[domain.BalanceTransaction]{
			Items: txs, Total: total, Page: page, PageSize: pageSize,
		})
	})(w, r)
}
