package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuctionEvent is a stored domain event. Seq is gap-free and strictly
// increasing per auction; ID is global and orders events across auctions.
type AuctionEvent struct {
	ID        int64           `db:"id" json:"id"`
	AuctionID uuid.UUID       `db:"auction_id" json:"auction_id"`
	Seq       int64           `db:"seq" json:"seq"`
	EventType string          `db:"event_type" json:"event_type"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`

	// Relay bookkeeping; does not alter the event itself
	PublishedAt      *time.Time `db:"published_at" json:"-"`
	PublishAttempts  int        `db:"publish_attempts" json:"-"`
	LastPublishError *string    `db:"last_publish_error" json:"-"`
}
