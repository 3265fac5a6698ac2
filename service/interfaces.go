package service

import (
	"context"
	"encoding/json"
	"time"

	"auctioneer/events"
	"auctioneer/models"

	"github.com/google/uuid"
)

// AuctionRepository defines the interface for auction data access
type AuctionRepository interface {
	// Create stores a new auction at version 1
	Create(ctx context.Context, auction *models.Auction) error

	// GetByID retrieves an auction, returning nil if it does not exist
	GetByID(ctx context.Context, id uuid.UUID) (*models.Auction, error)

	// UpdateVersioned writes the update only if the stored version still equals
	// update.ExpectedVersion, bumping the version by one. Returns
	// auctionerrors.ErrVersionConflict when the guard fails.
	UpdateVersioned(ctx context.Context, update *models.AuctionUpdate) error

	// ListDueTransitions returns scheduled auctions whose start time has passed and
	// live auctions whose end time has passed, oldest deadline first
	ListDueTransitions(ctx context.Context, now time.Time, limit int) ([]*models.DueTransition, error)
}

// BidRepository defines the interface for the append-only bid log
type BidRepository interface {
	// Create appends a bid record
	Create(ctx context.Context, bid *models.Bid) error

	// ListByAuction returns every bid for an auction in placement order
	ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*models.Bid, error)
}

// BalanceRepository defines atomic, per-user balance mutations.
// Each method is a single conditional statement on the user's row and
// returns the balance after the change.
type BalanceRepository interface {
	// GetByUserID retrieves a balance, returning nil if the user has none
	GetByUserID(ctx context.Context, userID string) (*models.Balance, error)

	// Credit adds funds to available, creating the row when missing
	Credit(ctx context.Context, userID string, amount int64) (*models.Balance, error)

	// Block moves delta from available to blocked if available >= delta.
	// A negative delta moves funds back. Returns nil when funds are insufficient
	// or the user has no balance.
	Block(ctx context.Context, userID string, delta int64) (*models.Balance, error)

	// Unblock moves amount from blocked back to available
	Unblock(ctx context.Context, userID string, amount int64) (*models.Balance, error)

	// DeductBlocked removes amount from blocked permanently
	DeductBlocked(ctx context.Context, userID string, amount int64) (*models.Balance, error)
}

// ReservationRepository defines the interface for per-auction fund reservations
type ReservationRepository interface {
	// GetForUpdate returns the reservation for the pair and locks it for the
	// rest of the transaction. Returns nil if none exists.
	GetForUpdate(ctx context.Context, userID string, auctionID uuid.UUID) (*models.BalanceReservation, error)

	// Upsert creates or replaces the reservation amount for the pair
	Upsert(ctx context.Context, reservation *models.BalanceReservation) error

	// Delete removes the reservation for the pair
	Delete(ctx context.Context, userID string, auctionID uuid.UUID) error

	// ListByUser returns a user's outstanding reservations
	ListByUser(ctx context.Context, userID string) ([]*models.BalanceReservation, error)
}

// BalanceHistoryRepository defines the interface for balance history tracking
type BalanceHistoryRepository interface {
	// Record creates a new balance history entry
	Record(ctx context.Context, history *models.BalanceHistory) error

	// GetByUser returns the most recent balance history for a user
	GetByUser(ctx context.Context, userID string, limit int) ([]*models.BalanceHistory, error)
}

// AuctionEventRepository defines the interface for the append-only event log
type AuctionEventRepository interface {
	// Append stores an event with the next sequence number for its auction
	Append(ctx context.Context, auctionID uuid.UUID, eventType string, payload json.RawMessage) (*models.AuctionEvent, error)

	// ListByAuction returns events with seq > afterSeq in ascending order
	ListByAuction(ctx context.Context, auctionID uuid.UUID, afterSeq int64, limit int) ([]*models.AuctionEvent, error)
}

// EventOutbox hands unpublished events to a relay
type EventOutbox interface {
	// RelayPending claims up to limit unpublished events, oldest first, calls
	// publish for each and marks it published on success. Failures are
	// recorded on the event and left for the next call.
	RelayPending(ctx context.Context, limit int, publish func(ctx context.Context, event *models.AuctionEvent) error) (published int, failed int, err error)
}

// EventPublisher defines the interface for publishing events inside a unit of work
type EventPublisher interface {
	Publish(event events.Event)
}

// BalanceLedger tracks available and blocked funds per user
type BalanceLedger interface {
	// Reserve blocks amount for the user's bid on an auction, replacing any
	// earlier reservation for the same pair. Fails with ErrInsufficientFunds.
	Reserve(ctx context.Context, userID string, auctionID uuid.UUID, amount int64) error

	// Release returns the pair's reserved funds to available. No-op if none.
	Release(ctx context.Context, userID string, auctionID uuid.UUID) (int64, error)

	// Commit permanently deducts the pair's reserved funds. No-op if none.
	Commit(ctx context.Context, userID string, auctionID uuid.UUID) (int64, error)

	// Deposit credits available funds
	Deposit(ctx context.Context, userID string, amount int64) (*models.Balance, error)

	// GetBalance returns the user's balance; unknown users read as zero
	GetBalance(ctx context.Context, userID string) (*models.Balance, error)
}

// EventRecorder appends domain events to the event log and queues them for in-process delivery
type EventRecorder interface {
	Record(ctx context.Context, event events.Event) (*models.AuctionEvent, error)
}

// BidAdmissionService evaluates one bid attempt inside a single transaction
type BidAdmissionService interface {
	// Attempt admits the bid or returns *auctionerrors.BidRejection for a
	// terminal rejection, auctionerrors.ErrVersionConflict when another writer
	// won the race, or auctionerrors.ErrAuctionNotFound.
	Attempt(ctx context.Context, req *models.PlaceBidRequest) (*models.BidResult, error)

	// RecordRejection appends the rejected bid and its BidRejected event
	RecordRejection(ctx context.Context, req *models.PlaceBidRequest, reason models.RejectReason, minimumBid int64) (*models.Bid, error)
}

// AuctionStateMachine owns the auction lifecycle status
type AuctionStateMachine interface {
	// Create stores a new scheduled auction
	Create(ctx context.Context, req *models.CreateAuctionRequest) (*models.Auction, error)

	// Start moves a scheduled auction to live once its start time has passed
	Start(ctx context.Context, auctionID uuid.UUID) (*models.Auction, error)

	// End finalizes a live auction once its end time has passed
	End(ctx context.Context, auctionID uuid.UUID) (*models.Auction, error)

	// Cancel withdraws a scheduled or live auction and releases any reservation
	Cancel(ctx context.Context, auctionID uuid.UUID, reason string) (*models.Auction, error)
}
