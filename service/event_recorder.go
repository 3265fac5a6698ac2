package service

import (
	"context"
	"fmt"

	"auctioneer/events"
	"auctioneer/models"
)

type eventRecorder struct {
	eventRepo      AuctionEventRepository
	eventPublisher EventPublisher
}

// NewEventRecorder creates a recorder that writes to the event log of the
// current transaction and queues the event on its transactional bus
func NewEventRecorder(eventRepo AuctionEventRepository, eventPublisher EventPublisher) EventRecorder {
	return &eventRecorder{
		eventRepo:      eventRepo,
		eventPublisher: eventPublisher,
	}
}

// Record appends the event with the next per-auction sequence number
func (r *eventRecorder) Record(ctx context.Context, event events.Event) (*models.AuctionEvent, error) {
	payload, err := events.Encode(event)
	if err != nil {
		return nil, err
	}

	stored, err := r.eventRepo.Append(ctx, event.Auction(), string(event.Type()), payload)
	if err != nil {
		return nil, fmt.Errorf("failed to append %s event: %w", event.Type(), err)
	}

	if r.eventPublisher != nil {
		r.eventPublisher.Publish(event)
	}

	return stored, nil
}
