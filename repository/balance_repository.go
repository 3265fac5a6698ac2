package repository

import (
	"context"
	"errors"
	"fmt"

	"auctioneer/database"
	"auctioneer/models"

	"github.com/jackc/pgx/v5"
)

// BalanceRepository implements the BalanceRepository interface.
// Every mutation is a single conditional UPDATE so available and blocked
// can never be driven negative by concurrent writers.
type BalanceRepository struct {
	q queryable
}

// NewBalanceRepository creates a new balance repository
func NewBalanceRepository(db *database.DB) *BalanceRepository {
	return &BalanceRepository{q: db.Pool}
}

// newBalanceRepositoryWithTx creates a new balance repository with a transaction
func newBalanceRepositoryWithTx(tx queryable) *BalanceRepository {
	return &BalanceRepository{q: tx}
}

// GetByUserID retrieves a balance by user ID
func (r *BalanceRepository) GetByUserID(ctx context.Context, userID string) (*models.Balance, error) {
	query := `
		SELECT user_id, available, blocked, version, updated_at
		FROM balances
		WHERE user_id = $1
	`

	balance, err := scanBalance(r.q.QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get balance for user %s: %w", userID, err)
	}

	return balance, nil
}

// Credit adds to available, creating the balance row on first deposit
func (r *BalanceRepository) Credit(ctx context.Context, userID string, amount int64) (*models.Balance, error) {
	query := `
		INSERT INTO balances (user_id, available)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET available = balances.available + EXCLUDED.available,
		    version = balances.version + 1,
		    updated_at = NOW()
		RETURNING user_id, available, blocked, version, updated_at
	`

	balance, err := scanBalance(r.q.QueryRow(ctx, query, userID, amount))
	if err != nil {
		return nil, translateError(fmt.Sprintf("failed to credit user %s", userID), err)
	}

	return balance, nil
}

// Block moves delta from available to blocked when enough is available
func (r *BalanceRepository) Block(ctx context.Context, userID string, delta int64) (*models.Balance, error) {
	query := `
		UPDATE balances
		SET available = available - $2,
		    blocked = blocked + $2,
		    version = version + 1,
		    updated_at = NOW()
		WHERE user_id = $1 AND available >= $2 AND blocked + $2 >= 0
		RETURNING user_id, available, blocked, version, updated_at
	`

	return r.conditionalUpdate(ctx, query, userID, delta, "block funds for")
}

// Unblock moves amount from blocked back to available
func (r *BalanceRepository) Unblock(ctx context.Context, userID string, amount int64) (*models.Balance, error) {
	query := `
		UPDATE balances
		SET available = available + $2,
		    blocked = blocked - $2,
		    version = version + 1,
		    updated_at = NOW()
		WHERE user_id = $1 AND blocked >= $2
		RETURNING user_id, available, blocked, version, updated_at
	`

	return r.conditionalUpdate(ctx, query, userID, amount, "unblock funds for")
}

// DeductBlocked removes amount from blocked permanently
func (r *BalanceRepository) DeductBlocked(ctx context.Context, userID string, amount int64) (*models.Balance, error) {
	query := `
		UPDATE balances
		SET blocked = blocked - $2,
		    version = version + 1,
		    updated_at = NOW()
		WHERE user_id = $1 AND blocked >= $2
		RETURNING user_id, available, blocked, version, updated_at
	`

	return r.conditionalUpdate(ctx, query, userID, amount, "deduct blocked funds for")
}

// conditionalUpdate runs a guarded UPDATE and returns nil when the guard failed
func (r *BalanceRepository) conditionalUpdate(ctx context.Context, query, userID string, amount int64, op string) (*models.Balance, error) {
	balance, err := scanBalance(r.q.QueryRow(ctx, query, userID, amount))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translateError(fmt.Sprintf("failed to %s user %s", op, userID), err)
	}
	return balance, nil
}

func scanBalance(row pgx.Row) (*models.Balance, error) {
	var balance models.Balance
	if err := row.Scan(
		&balance.UserID,
		&balance.Available,
		&balance.Blocked,
		&balance.Version,
		&balance.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &balance, nil
}
