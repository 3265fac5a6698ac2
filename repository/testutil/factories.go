package testutil

import (
	"time"

	"auctioneer/models"

	"github.com/google/uuid"
)

// CreateTestAuction creates a live auction that opened a minute ago and runs for an hour
func CreateTestAuction(sellerID string) *models.Auction {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Auction{
		ID:           uuid.New(),
		SellerID:     sellerID,
		Title:        "Test lot",
		StartPrice:   100,
		CurrentPrice: 100,
		MinIncrement: 10,
		StartTime:    now.Add(-time.Minute),
		EndTime:      now.Add(time.Hour),
		Status:       models.AuctionStatusLive,
		Version:      1,
	}
}

// CreateTestAuctionWithWindow creates an auction with a specific status and window
func CreateTestAuctionWithWindow(sellerID string, status models.AuctionStatus, start, end time.Time) *models.Auction {
	auction := CreateTestAuction(sellerID)
	auction.Status = status
	auction.StartTime = start.UTC().Truncate(time.Microsecond)
	auction.EndTime = end.UTC().Truncate(time.Microsecond)
	return auction
}

// CreateTestBid creates an accepted bid
func CreateTestBid(auctionID uuid.UUID, bidderID string, amount int64) *models.Bid {
	return &models.Bid{
		ID:        uuid.New(),
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		Outcome:   models.BidOutcomeAccepted,
		PlacedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
}

// CreateTestRejectedBid creates a rejected bid with the given reason
func CreateTestRejectedBid(auctionID uuid.UUID, bidderID string, amount int64, reason models.RejectReason) *models.Bid {
	bid := CreateTestBid(auctionID, bidderID, amount)
	bid.Outcome = models.BidOutcomeRejected
	bid.RejectReason = &reason
	return bid
}

// CreateTestBalanceHistory creates a test balance history entry
func CreateTestBalanceHistory(userID string, transactionType models.TransactionType) *models.BalanceHistory {
	return &models.BalanceHistory{
		UserID:          userID,
		AvailableBefore: 1000,
		AvailableAfter:  900,
		BlockedBefore:   0,
		BlockedAfter:    100,
		ChangeAmount:    100,
		TransactionType: transactionType,
		TransactionMetadata: map[string]any{
			"test": true,
		},
	}
}
