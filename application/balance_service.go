package application

import (
	"context"

	"auctioneer/auctionerrors"
	"auctioneer/models"
	"auctioneer/service"

	log "github.com/sirupsen/logrus"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// BalanceService exposes ledger reads and deposits
type BalanceService struct {
	uowFactory UnitOfWorkFactory
}

// NewBalanceService creates a new balance service
func NewBalanceService(uowFactory UnitOfWorkFactory) *BalanceService {
	return &BalanceService{uowFactory: uowFactory}
}

// GetBalance returns the user's available and blocked funds
func (s *BalanceService) GetBalance(ctx context.Context, userID string) (*models.Balance, error) {
	var balance *models.Balance
	err := runInUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
		var err error
		balance, err = ledgerFor(uow).GetBalance(ctx, userID)
		return err
	})
	return balance, err
}

// Deposit credits available funds
func (s *BalanceService) Deposit(ctx context.Context, userID string, amount int64) (*models.Balance, error) {
	var balance *models.Balance
	err := runInUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
		var err error
		balance, err = ledgerFor(uow).Deposit(ctx, userID, amount)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"userID":    userID,
		"amount":    amount,
		"available": balance.Available,
	}).Info("Deposit credited")

	return balance, nil
}

// History returns the user's most recent balance movements
func (s *BalanceService) History(ctx context.Context, userID string, limit int) ([]*models.BalanceHistory, error) {
	if userID == "" {
		return nil, auctionerrors.NewValidationError("user id is required")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	var history []*models.BalanceHistory
	err := runInUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
		var err error
		history, err = uow.BalanceHistoryRepository().GetByUser(ctx, userID, limit)
		return err
	})
	return history, err
}

func ledgerFor(uow UnitOfWork) service.BalanceLedger {
	return service.NewBalanceLedger(
		uow.BalanceRepository(),
		uow.ReservationRepository(),
		uow.BalanceHistoryRepository(),
	)
}
