package infrastructure

import (
	"context"
	"fmt"

	"auctioneer/models"

	log "github.com/sirupsen/logrus"
)

// NATSEventBroker publishes relayed auction events to JetStream
type NATSEventBroker struct {
	client        *NATSClient
	subjectMapper *EventSubjectMapper
}

// NewNATSEventBroker creates a new NATS event broker
func NewNATSEventBroker(client *NATSClient, subjectMapper *EventSubjectMapper) *NATSEventBroker {
	return &NATSEventBroker{
		client:        client,
		subjectMapper: subjectMapper,
	}
}

// EnsureAuctionEventStream ensures the AUCTION_EVENTS stream exists
func (b *NATSEventBroker) EnsureAuctionEventStream() error {
	return b.client.EnsureStream(AuctionEventStream, b.subjectMapper.StreamSubjects(), "Auction lifecycle and bid events")
}

// PublishAuctionEvent publishes one stored event under auctions.events.<type>
func (b *NATSEventBroker) PublishAuctionEvent(ctx context.Context, event *models.AuctionEvent) error {
	envelope := NewEventEnvelope(event)
	data, err := envelope.marshal()
	if err != nil {
		return err
	}

	subject := b.subjectMapper.MapEventTypeToSubject(event.EventType)
	if err := b.client.Publish(ctx, subject, data, envelope.EventID); err != nil {
		return fmt.Errorf("failed to publish event to NATS: %w", err)
	}

	log.WithFields(log.Fields{
		"eventType": event.EventType,
		"eventId":   envelope.EventID,
		"auctionID": event.AuctionID,
		"seq":       event.Seq,
		"subject":   subject,
	}).Debug("Successfully published event to NATS")

	return nil
}

// Close closes the underlying NATS client
func (b *NATSEventBroker) Close() error {
	return b.client.Close()
}
