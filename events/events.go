package events

import (
	"context"
	"sync"
	"time"

	"auctioneer/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBidAccepted      EventType = "bid_accepted"
	EventTypeBidRejected      EventType = "bid_rejected"
	EventTypeAuctionStarted   EventType = "auction_started"
	EventTypeAuctionEnded     EventType = "auction_ended"
	EventTypeAuctionCancelled EventType = "auction_cancelled"
)

// AllEventTypes lists every event type emitted by the engine
var AllEventTypes = []EventType{
	EventTypeBidAccepted,
	EventTypeBidRejected,
	EventTypeAuctionStarted,
	EventTypeAuctionEnded,
	EventTypeAuctionCancelled,
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
	Auction() uuid.UUID
}

// BidAcceptedEvent is emitted once per admitted bid
type BidAcceptedEvent struct {
	AuctionID        uuid.UUID `json:"auction_id"`
	BidID            uuid.UUID `json:"bid_id"`
	BidderID         string    `json:"bidder_id"`
	Amount           int64     `json:"amount"`
	PreviousWinnerID *string   `json:"previous_winner_id,omitempty"`
	PreviousPrice    int64     `json:"previous_price"`
	Version          int64     `json:"version"`
	OccurredAt       time.Time `json:"occurred_at"`
}

func (e BidAcceptedEvent) Type() EventType    { return EventTypeBidAccepted }
func (e BidAcceptedEvent) Auction() uuid.UUID { return e.AuctionID }

// BidRejectedEvent is emitted when a bid attempt is turned down
type BidRejectedEvent struct {
	AuctionID  uuid.UUID           `json:"auction_id"`
	BidID      uuid.UUID           `json:"bid_id"`
	BidderID   string              `json:"bidder_id"`
	Amount     int64               `json:"amount"`
	Reason     models.RejectReason `json:"reason"`
	MinimumBid int64               `json:"minimum_bid,omitempty"`
	OccurredAt time.Time           `json:"occurred_at"`
}

func (e BidRejectedEvent) Type() EventType    { return EventTypeBidRejected }
func (e BidRejectedEvent) Auction() uuid.UUID { return e.AuctionID }

// AuctionStartedEvent is emitted when an auction goes live
type AuctionStartedEvent struct {
	AuctionID  uuid.UUID `json:"auction_id"`
	StartPrice int64     `json:"start_price"`
	EndTime    time.Time `json:"end_time"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (e AuctionStartedEvent) Type() EventType    { return EventTypeAuctionStarted }
func (e AuctionStartedEvent) Auction() uuid.UUID { return e.AuctionID }

// AuctionEndedEvent is emitted at finalization. NoWinner is set when the
// auction closed without any accepted bid, in which case WinnerID is nil.
type AuctionEndedEvent struct {
	AuctionID    uuid.UUID  `json:"auction_id"`
	WinnerID     *string    `json:"winner_id,omitempty"`
	WinningBidID *uuid.UUID `json:"winning_bid_id,omitempty"`
	FinalPrice   int64      `json:"final_price"`
	NoWinner     bool       `json:"no_winner"`
	BidCount     int64      `json:"bid_count"`
	OccurredAt   time.Time  `json:"occurred_at"`
}

func (e AuctionEndedEvent) Type() EventType    { return EventTypeAuctionEnded }
func (e AuctionEndedEvent) Auction() uuid.UUID { return e.AuctionID }

// AuctionCancelledEvent is emitted when an auction is withdrawn
type AuctionCancelledEvent struct {
	AuctionID        uuid.UUID            `json:"auction_id"`
	Reason           string               `json:"reason"`
	PreviousStatus   models.AuctionStatus `json:"previous_status"`
	ReleasedBidderID *string              `json:"released_bidder_id,omitempty"`
	ReleasedAmount   int64                `json:"released_amount,omitempty"`
	OccurredAt       time.Time            `json:"occurred_at"`
}

func (e AuctionCancelledEvent) Type() EventType    { return EventTypeAuctionCancelled }
func (e AuctionCancelledEvent) Auction() uuid.UUID { return e.AuctionID }

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// SubscribeAll adds a handler for every known event type
func (b *Bus) SubscribeAll(handler Handler) {
	for _, eventType := range AllEventTypes {
		b.Subscribe(eventType, handler)
	}
}

// Emit publishes an event to all registered handlers.
// Handlers run asynchronously and a panicking handler is logged and dropped.
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"auctionID":    event.Auction(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event")

	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus holds events raised inside a unit of work until the
// transaction commits, then flushes them to the underlying bus.
type TransactionalBus struct {
	real    *Bus
	mu      sync.Mutex
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

// Publish queues an event until Flush or Discard
func (b *TransactionalBus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending = append(b.pending, e)
	log.WithFields(log.Fields{
		"eventType":    e.Type(),
		"pendingCount": len(b.pending),
	}).Debug("Queued event on transactional bus")
}

// Pending returns a copy of the queued events
func (b *TransactionalBus) Pending() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Event, len(b.pending))
	copy(out, b.pending)
	return out
}

// Flush is called after a successful commit
func (b *TransactionalBus) Flush(ctx context.Context) error {
	b.mu.Lock()
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()

	// Handlers outlive the request that committed the transaction
	eventCtx := context.WithoutCancel(ctx)

	for _, ev := range pending {
		if b.real != nil {
			b.real.Emit(eventCtx, ev)
		}
	}

	log.WithField("flushedCount", len(pending)).Debug("Flushed transactional bus")
	return nil
}

// Discard is called after a rollback
func (b *TransactionalBus) Discard() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = nil
}
