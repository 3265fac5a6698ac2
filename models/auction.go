package models

import (
	"time"

	"github.com/google/uuid"
)

// AuctionStatus represents the lifecycle state of an auction
type AuctionStatus string

const (
	AuctionStatusScheduled AuctionStatus = "scheduled"
	AuctionStatusLive      AuctionStatus = "live"
	AuctionStatusEnded     AuctionStatus = "ended"
	AuctionStatusCancelled AuctionStatus = "cancelled"
)

// IsTerminal returns true for states that accept no further transitions
func (s AuctionStatus) IsTerminal() bool {
	return s == AuctionStatusEnded || s == AuctionStatusCancelled
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next
func (s AuctionStatus) CanTransitionTo(next AuctionStatus) bool {
	switch s {
	case AuctionStatusScheduled:
		return next == AuctionStatusLive || next == AuctionStatusCancelled
	case AuctionStatusLive:
		return next == AuctionStatusEnded || next == AuctionStatusCancelled
	default:
		return false
	}
}

// Auction represents a time-bound auction for a single lot.
// Amounts are stored in minor units.
type Auction struct {
	ID              uuid.UUID     `db:"id"`
	SellerID        string        `db:"seller_id"`
	Title           string        `db:"title"`
	StartPrice      int64         `db:"start_price"`
	CurrentPrice    int64         `db:"current_price"`
	MinIncrement    int64         `db:"min_increment"`
	CurrentWinnerID *string       `db:"current_winner_id"`
	CurrentBidID    *uuid.UUID    `db:"current_bid_id"`
	StartTime       time.Time     `db:"start_time"`
	EndTime         time.Time     `db:"end_time"`
	Status          AuctionStatus `db:"status"`
	Version         int64         `db:"version"`
	BidCount        int64         `db:"bid_count"`
	CancelReason    *string       `db:"cancel_reason"`
	CreatedAt       time.Time     `db:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at"`
}

// MinimumNextBid returns the lowest amount that can currently be accepted
func (a *Auction) MinimumNextBid() int64 {
	return a.CurrentPrice + a.MinIncrement
}

// IsBiddingOpen reports whether bids may be admitted at the given instant.
// The window is half open: [StartTime, EndTime).
func (a *Auction) IsBiddingOpen(now time.Time) bool {
	return a.Status == AuctionStatusLive && !now.Before(a.StartTime) && now.Before(a.EndTime)
}

// IsStartDue reports whether a scheduled auction has reached its start time
func (a *Auction) IsStartDue(now time.Time) bool {
	return a.Status == AuctionStatusScheduled && !now.Before(a.StartTime)
}

// IsEndDue reports whether a live auction has reached its end time
func (a *Auction) IsEndDue(now time.Time) bool {
	return a.Status == AuctionStatusLive && !now.Before(a.EndTime)
}

// HasWinner returns true if a bid currently holds the price
func (a *Auction) HasWinner() bool {
	return a.CurrentWinnerID != nil && a.BidCount > 0
}

// AuctionUpdate carries the fields written by a version-guarded update.
// ExpectedVersion is the version read before the change; the stored version
// becomes ExpectedVersion+1 on success.
type AuctionUpdate struct {
	ID              uuid.UUID
	ExpectedVersion int64
	Status          AuctionStatus
	CurrentPrice    int64
	CurrentWinnerID *string
	CurrentBidID    *uuid.UUID
	BidCount        int64
	CancelReason    *string
}

// NewAuctionUpdate seeds an update from the auction as it was read
func NewAuctionUpdate(a *Auction) *AuctionUpdate {
	return &AuctionUpdate{
		ID:              a.ID,
		ExpectedVersion: a.Version,
		Status:          a.Status,
		CurrentPrice:    a.CurrentPrice,
		CurrentWinnerID: a.CurrentWinnerID,
		CurrentBidID:    a.CurrentBidID,
		BidCount:        a.BidCount,
		CancelReason:    a.CancelReason,
	}
}

// Apply copies the update onto the auction, including the bumped version
func (u *AuctionUpdate) Apply(a *Auction) {
	a.Status = u.Status
	a.CurrentPrice = u.CurrentPrice
	a.CurrentWinnerID = u.CurrentWinnerID
	a.CurrentBidID = u.CurrentBidID
	a.BidCount = u.BidCount
	a.CancelReason = u.CancelReason
	a.Version = u.ExpectedVersion + 1
}

// CreateAuctionRequest holds the seller-supplied fields for a new auction
type CreateAuctionRequest struct {
	SellerID     string
	Title        string
	StartPrice   int64
	MinIncrement int64
	StartTime    time.Time
	EndTime      time.Time
}

// DueTransition identifies an auction whose time-based transition is due
type DueTransition struct {
	AuctionID uuid.UUID
	Target    AuctionStatus
}
