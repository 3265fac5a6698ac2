package repository

import (
	"context"
	"fmt"

	"auctioneer/database"
	"auctioneer/models"

	"github.com/google/uuid"
)

// BidRepository implements the BidRepository interface
type BidRepository struct {
	q queryable
}

// NewBidRepository creates a new bid repository
func NewBidRepository(db *database.DB) *BidRepository {
	return &BidRepository{q: db.Pool}
}

func newBidRepositoryWithTx(tx queryable) *BidRepository {
	return &BidRepository{q: tx}
}

// Create appends a bid
func (r *BidRepository) Create(ctx context.Context, bid *models.Bid) error {
	query := `
		INSERT INTO bids (id, auction_id, bidder_id, amount, outcome, reject_reason, placed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.Exec(ctx, query,
		bid.ID,
		bid.AuctionID,
		bid.BidderID,
		bid.Amount,
		bid.Outcome,
		bid.RejectReason,
		bid.PlacedAt,
	)
	if err != nil {
		return translateError(fmt.Sprintf("failed to create bid for auction %s", bid.AuctionID), err)
	}

	return nil
}

// ListByAuction returns all bids for an auction in placement order
func (r *BidRepository) ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*models.Bid, error) {
	query := `
		SELECT id, auction_id, bidder_id, amount, outcome, reject_reason, placed_at
		FROM bids
		WHERE auction_id = $1
		ORDER BY position ASC
	`

	rows, err := r.q.Query(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids for auction %s: %w", auctionID, err)
	}
	defer rows.Close()

	var bids []*models.Bid
	for rows.Next() {
		var bid models.Bid
		err := rows.Scan(
			&bid.ID,
			&bid.AuctionID,
			&bid.BidderID,
			&bid.Amount,
			&bid.Outcome,
			&bid.RejectReason,
			&bid.PlacedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		bids = append(bids, &bid)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bids: %w", err)
	}

	return bids, nil
}
