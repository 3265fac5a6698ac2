package application

import (
	"context"

	"auctioneer/models"

	"github.com/google/uuid"
)

// EventBroker delivers committed auction events to an external message broker
type EventBroker interface {
	PublishAuctionEvent(ctx context.Context, event *models.AuctionEvent) error
	Close() error
}

// Metrics receives counters that cannot be derived from domain events
type Metrics interface {
	RecordBidConflict(ctx context.Context, auctionID uuid.UUID)
	RecordTransitionFailure(ctx context.Context, target models.AuctionStatus)
	RecordRelay(ctx context.Context, published, failed int)
}

type noopMetrics struct{}

func (noopMetrics) RecordBidConflict(context.Context, uuid.UUID)                   {}
func (noopMetrics) RecordTransitionFailure(context.Context, models.AuctionStatus) {}
func (noopMetrics) RecordRelay(context.Context, int, int)                         {}

// NoopMetrics returns a Metrics implementation that records nothing
func NoopMetrics() Metrics {
	return noopMetrics{}
}
