package service

import (
	"context"
	"fmt"

	"auctioneer/auctionerrors"
	"auctioneer/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type balanceLedger struct {
	balanceRepo        BalanceRepository
	reservationRepo    ReservationRepository
	balanceHistoryRepo BalanceHistoryRepository
}

// NewBalanceLedger creates a ledger bound to the repositories of one unit of work
func NewBalanceLedger(
	balanceRepo BalanceRepository,
	reservationRepo ReservationRepository,
	balanceHistoryRepo BalanceHistoryRepository,
) BalanceLedger {
	return &balanceLedger{
		balanceRepo:        balanceRepo,
		reservationRepo:    reservationRepo,
		balanceHistoryRepo: balanceHistoryRepo,
	}
}

// Reserve blocks amount for the pair. Only the difference to an existing
// reservation moves between available and blocked.
func (l *balanceLedger) Reserve(ctx context.Context, userID string, auctionID uuid.UUID, amount int64) error {
	if amount <= 0 {
		return auctionerrors.NewValidationError("reservation amount must be positive, got %d", amount)
	}

	existing, err := l.reservationRepo.GetForUpdate(ctx, userID, auctionID)
	if err != nil {
		return fmt.Errorf("failed to get reservation: %w", err)
	}

	var previous int64
	if existing != nil {
		previous = existing.Amount
	}

	delta := amount - previous
	if delta == 0 {
		return nil
	}

	after, err := l.balanceRepo.Block(ctx, userID, delta)
	if err != nil {
		return fmt.Errorf("failed to block funds: %w", err)
	}
	if after == nil {
		return fmt.Errorf("%w: user %s cannot reserve %d more", auctionerrors.ErrInsufficientFunds, userID, delta)
	}

	if err := l.reservationRepo.Upsert(ctx, &models.BalanceReservation{
		UserID:    userID,
		AuctionID: auctionID,
		Amount:    amount,
	}); err != nil {
		return fmt.Errorf("failed to store reservation: %w", err)
	}

	if err := l.record(ctx, userID, auctionID, after, after.Available+delta, after.Blocked-delta, delta,
		models.TransactionTypeReserve, map[string]any{
			"reserved":             amount,
			"previous_reservation": previous,
		}); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"userID":    userID,
		"auctionID": auctionID,
		"amount":    amount,
		"delta":     delta,
	}).Debug("Reserved funds")

	return nil
}

// Release returns the reserved funds for the pair to available
func (l *balanceLedger) Release(ctx context.Context, userID string, auctionID uuid.UUID) (int64, error) {
	existing, err := l.reservationRepo.GetForUpdate(ctx, userID, auctionID)
	if err != nil {
		return 0, fmt.Errorf("failed to get reservation: %w", err)
	}
	if existing == nil {
		return 0, nil
	}

	after, err := l.balanceRepo.Unblock(ctx, userID, existing.Amount)
	if err != nil {
		return 0, fmt.Errorf("failed to unblock funds: %w", err)
	}
	if after == nil {
		return 0, fmt.Errorf("balance for user %s cannot release reservation of %d", userID, existing.Amount)
	}

	if err := l.reservationRepo.Delete(ctx, userID, auctionID); err != nil {
		return 0, fmt.Errorf("failed to delete reservation: %w", err)
	}

	if err := l.record(ctx, userID, auctionID, after, after.Available-existing.Amount, after.Blocked+existing.Amount,
		existing.Amount, models.TransactionTypeRelease, nil); err != nil {
		return 0, err
	}

	return existing.Amount, nil
}

// Commit deducts the reserved funds for the pair permanently
func (l *balanceLedger) Commit(ctx context.Context, userID string, auctionID uuid.UUID) (int64, error) {
	existing, err := l.reservationRepo.GetForUpdate(ctx, userID, auctionID)
	if err != nil {
		return 0, fmt.Errorf("failed to get reservation: %w", err)
	}
	if existing == nil {
		return 0, nil
	}

	after, err := l.balanceRepo.DeductBlocked(ctx, userID, existing.Amount)
	if err != nil {
		return 0, fmt.Errorf("failed to deduct blocked funds: %w", err)
	}
	if after == nil {
		return 0, fmt.Errorf("balance for user %s cannot commit reservation of %d", userID, existing.Amount)
	}

	if err := l.reservationRepo.Delete(ctx, userID, auctionID); err != nil {
		return 0, fmt.Errorf("failed to delete reservation: %w", err)
	}

	if err := l.record(ctx, userID, auctionID, after, after.Available, after.Blocked+existing.Amount,
		-existing.Amount, models.TransactionTypeCommit, nil); err != nil {
		return 0, err
	}

	return existing.Amount, nil
}

// Deposit credits available funds, creating the balance on first use
func (l *balanceLedger) Deposit(ctx context.Context, userID string, amount int64) (*models.Balance, error) {
	if userID == "" {
		return nil, auctionerrors.NewValidationError("user id is required")
	}
	if amount <= 0 {
		return nil, auctionerrors.NewValidationError("deposit amount must be positive, got %d", amount)
	}

	after, err := l.balanceRepo.Credit(ctx, userID, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to credit balance: %w", err)
	}

	history := &models.BalanceHistory{
		UserID:          userID,
		AvailableBefore: after.Available - amount,
		AvailableAfter:  after.Available,
		BlockedBefore:   after.Blocked,
		BlockedAfter:    after.Blocked,
		ChangeAmount:    amount,
		TransactionType: models.TransactionTypeDeposit,
	}
	if err := l.balanceHistoryRepo.Record(ctx, history); err != nil {
		return nil, fmt.Errorf("failed to record balance history: %w", err)
	}

	return after, nil
}

// GetBalance returns the user's balance, or a zero balance if none exists
func (l *balanceLedger) GetBalance(ctx context.Context, userID string) (*models.Balance, error) {
	if userID == "" {
		return nil, auctionerrors.NewValidationError("user id is required")
	}

	balance, err := l.balanceRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	if balance == nil {
		return &models.Balance{UserID: userID}, nil
	}
	return balance, nil
}

func (l *balanceLedger) record(
	ctx context.Context,
	userID string,
	auctionID uuid.UUID,
	after *models.Balance,
	availableBefore, blockedBefore, change int64,
	transactionType models.TransactionType,
	metadata map[string]any,
) error {
	relatedAuction := auctionID
	history := &models.BalanceHistory{
		UserID:              userID,
		AuctionID:           &relatedAuction,
		AvailableBefore:     availableBefore,
		AvailableAfter:      after.Available,
		BlockedBefore:       blockedBefore,
		BlockedAfter:        after.Blocked,
		ChangeAmount:        change,
		TransactionType:     transactionType,
		TransactionMetadata: metadata,
	}
	if err := l.balanceHistoryRepo.Record(ctx, history); err != nil {
		return fmt.Errorf("failed to record balance history: %w", err)
	}
	return nil
}
