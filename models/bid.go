package models

import (
	"time"

	"github.com/google/uuid"
)

// BidOutcome is the recorded or derived result of a bid attempt
type BidOutcome string

const (
	BidOutcomeAccepted BidOutcome = "accepted"
	BidOutcomeRejected BidOutcome = "rejected"

	// Derived at read time, never stored
	BidOutcomeOutbid BidOutcome = "outbid"
	BidOutcomeFinal  BidOutcome = "final"
)

// RejectReason explains why a bid was not admitted
type RejectReason string

const (
	RejectReasonNotLive           RejectReason = "auction_not_live"
	RejectReasonTooLow            RejectReason = "bid_too_low"
	RejectReasonInsufficientFunds RejectReason = "insufficient_funds"
)

// Bid represents an append-only record of a single bid attempt
type Bid struct {
	ID           uuid.UUID     `db:"id"`
	AuctionID    uuid.UUID     `db:"auction_id"`
	BidderID     string        `db:"bidder_id"`
	Amount       int64         `db:"amount"`
	Outcome      BidOutcome    `db:"outcome"`
	RejectReason *RejectReason `db:"reject_reason"`
	PlacedAt     time.Time     `db:"placed_at"`
}

// EffectiveOutcome derives the outcome of a stored bid against the auction's
// current state. An accepted bid that no longer holds the price is outbid;
// the holding bid of an ended auction is final.
func (b *Bid) EffectiveOutcome(a *Auction) BidOutcome {
	if b.Outcome != BidOutcomeAccepted {
		return b.Outcome
	}
	if a.CurrentBidID == nil || *a.CurrentBidID != b.ID {
		return BidOutcomeOutbid
	}
	if a.Status == AuctionStatusEnded {
		return BidOutcomeFinal
	}
	return BidOutcomeAccepted
}

// PlaceBidRequest is the input to bid admission
type PlaceBidRequest struct {
	AuctionID uuid.UUID
	BidderID  string
	Amount    int64
}

// BidResult describes an accepted bid
type BidResult struct {
	Bid      *Bid
	NewPrice int64
	Version  int64
	// Attempts is the number of optimistic attempts used, starting at 1
	Attempts int
}
