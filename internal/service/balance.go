package service

import (
	"context"

	"github.com/shopspring/decimal"

	"telecare-backend/internal/domain"
	"telecare-backend/internal/repository"
)

type balanceService struct {
	balanceRepo repository.BalanceRepository
}

func NewBalanceService(balanceRepo repository.BalanceRepository) BalanceService {
	return &balanceService{balanceRepo: balanceRepo}
}

func (s *balanceService) GetBalance(ctx context.Context, patientID string) (decimal.Decimal, decimal.Decimal, error) {
	return s.balanceRepo.GetBalance(ctx, patientID)
}

func (s *balanceService) GetTransactions(ctx context.Context, patientID string, page, pageSize int32) ([]domain.BalanceTransaction, int32, error) {
	return s.balanceRepo.ListTransactions(ctx, patientID, page, pageSize)
}
