package infrastructure

import (
	"context"

	"auctioneer/models"

	log "github.com/sirupsen/logrus"
)

// NoopEventBroker accepts every event without sending it anywhere.
// Used when EVENT_BROKER=none; the relay still marks events published.
type NoopEventBroker struct{}

// NewNoopEventBroker creates a new no-op event broker
func NewNoopEventBroker() *NoopEventBroker {
	return &NoopEventBroker{}
}

// PublishAuctionEvent does nothing with the event
func (n *NoopEventBroker) PublishAuctionEvent(ctx context.Context, event *models.AuctionEvent) error {
	log.WithFields(log.Fields{
		"auctionID": event.AuctionID,
		"seq":       event.Seq,
		"eventType": event.EventType,
	}).Debug("Dropping auction event (no broker configured)")
	return nil
}

func (n *NoopEventBroker) Close() error {
	return nil
}
