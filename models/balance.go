package models

import (
	"time"

	"github.com/google/uuid"
)

// Balance represents a user's spending capacity split into free and reserved funds
type Balance struct {
	UserID    string    `db:"user_id"`
	Available int64     `db:"available"`
	Blocked   int64     `db:"blocked"`
	Version   int64     `db:"version"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Total returns available plus blocked funds
func (b *Balance) Total() int64 {
	return b.Available + b.Blocked
}

// BalanceReservation holds funds blocked for a user's winning bid on one auction
type BalanceReservation struct {
	UserID    string    `db:"user_id"`
	AuctionID uuid.UUID `db:"auction_id"`
	Amount    int64     `db:"amount"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// TransactionType represents the type of balance movement
type TransactionType string

const (
	TransactionTypeDeposit TransactionType = "deposit"
	TransactionTypeReserve TransactionType = "reserve"
	TransactionTypeRelease TransactionType = "release"
	TransactionTypeCommit  TransactionType = "commit"
)

// BalanceHistory represents a historical balance movement
type BalanceHistory struct {
	ID                  int64           `db:"id"`
	UserID              string          `db:"user_id"`
	AuctionID           *uuid.UUID      `db:"auction_id"`
	AvailableBefore     int64           `db:"available_before"`
	AvailableAfter      int64           `db:"available_after"`
	BlockedBefore       int64           `db:"blocked_before"`
	BlockedAfter        int64           `db:"blocked_after"`
	ChangeAmount        int64           `db:"change_amount"`
	TransactionType     TransactionType `db:"transaction_type"`
	TransactionMetadata map[string]any  `db:"transaction_metadata"`
	CreatedAt           time.Time       `db:"created_at"`
}
