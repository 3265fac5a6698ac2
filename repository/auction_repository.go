package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auctioneer/auctionerrors"
	"auctioneer/database"
	"auctioneer/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const auctionColumns = `
	id, seller_id, title, start_price, current_price, min_increment,
	current_winner_id, current_bid_id, start_time, end_time, status,
	version, bid_count, cancel_reason, created_at, updated_at`

// AuctionRepository implements the AuctionRepository interface
type AuctionRepository struct {
	q queryable
}

// NewAuctionRepository creates a new auction repository
func NewAuctionRepository(db *database.DB) *AuctionRepository {
	return &AuctionRepository{q: db.Pool}
}

// newAuctionRepositoryWithTx creates a new auction repository with a transaction
func newAuctionRepositoryWithTx(tx queryable) *AuctionRepository {
	return &AuctionRepository{q: tx}
}

// Create stores a new auction
func (r *AuctionRepository) Create(ctx context.Context, auction *models.Auction) error {
	query := `
		INSERT INTO auctions (id, seller_id, title, start_price, current_price, min_increment,
		                      start_time, end_time, status, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		auction.ID,
		auction.SellerID,
		auction.Title,
		auction.StartPrice,
		auction.CurrentPrice,
		auction.MinIncrement,
		auction.StartTime,
		auction.EndTime,
		auction.Status,
		auction.Version,
	).Scan(&auction.CreatedAt, &auction.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create auction %s: %w", auction.ID, err)
	}

	return nil
}

// GetByID retrieves an auction by ID
func (r *AuctionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1`

	auction, err := scanAuction(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translateError(fmt.Sprintf("failed to get auction %s", id), err)
	}

	return auction, nil
}

// UpdateVersioned applies the update if the stored version still matches
func (r *AuctionRepository) UpdateVersioned(ctx context.Context, update *models.AuctionUpdate) error {
	query := `
		UPDATE auctions
		SET status = $3,
		    current_price = $4,
		    current_winner_id = $5,
		    current_bid_id = $6,
		    bid_count = $7,
		    cancel_reason = $8,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $1 AND version = $2
	`

	result, err := r.q.Exec(ctx, query,
		update.ID,
		update.ExpectedVersion,
		update.Status,
		update.CurrentPrice,
		update.CurrentWinnerID,
		update.CurrentBidID,
		update.BidCount,
		update.CancelReason,
	)
	if err != nil {
		return translateError(fmt.Sprintf("failed to update auction %s", update.ID), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: auction %s is no longer at version %d",
			auctionerrors.ErrVersionConflict, update.ID, update.ExpectedVersion)
	}

	return nil
}

// ListDueTransitions returns auctions whose start or end time has passed,
// earliest deadline first
func (r *AuctionRepository) ListDueTransitions(ctx context.Context, now time.Time, limit int) ([]*models.DueTransition, error) {
	query := `
		SELECT id, target FROM (
			SELECT id, 'live' AS target, start_time AS deadline
			FROM auctions
			WHERE status = 'scheduled' AND start_time <= $1
			UNION ALL
			SELECT id, 'ended' AS target, end_time AS deadline
			FROM auctions
			WHERE status = 'live' AND end_time <= $1
		) due
		ORDER BY deadline ASC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due transitions: %w", err)
	}
	defer rows.Close()

	var due []*models.DueTransition
	for rows.Next() {
		var transition models.DueTransition
		if err := rows.Scan(&transition.AuctionID, &transition.Target); err != nil {
			return nil, fmt.Errorf("failed to scan due transition: %w", err)
		}
		due = append(due, &transition)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate due transitions: %w", err)
	}

	return due, nil
}

func scanAuction(row pgx.Row) (*models.Auction, error) {
	var auction models.Auction
	err := row.Scan(
		&auction.ID,
		&auction.SellerID,
		&auction.Title,
		&auction.StartPrice,
		&auction.CurrentPrice,
		&auction.MinIncrement,
		&auction.CurrentWinnerID,
		&auction.CurrentBidID,
		&auction.StartTime,
		&auction.EndTime,
		&auction.Status,
		&auction.Version,
		&auction.BidCount,
		&auction.CancelReason,
		&auction.CreatedAt,
		&auction.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &auction, nil
}
