package application

import (
	"context"
	"sync"
	"time"

	"auctioneer/models"
	"auctioneer/service"

	log "github.com/sirupsen/logrus"
)

// EventRelay moves committed events from the outbox to the broker.
// Delivery is at least once; consumers deduplicate on (auction_id, seq).
type EventRelay struct {
	outbox    service.EventOutbox
	broker    EventBroker
	metrics   Metrics
	interval  time.Duration
	batchSize int

	mu       sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
}

// NewEventRelay creates a relay
func NewEventRelay(outbox service.EventOutbox, broker EventBroker, metrics Metrics, interval time.Duration, batchSize int) *EventRelay {
	if metrics == nil {
		metrics = NoopMetrics()
	}
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &EventRelay{
		outbox:    outbox,
		broker:    broker,
		metrics:   metrics,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Start drains the outbox immediately and then on every interval.
// Returns the stop function.
func (r *EventRelay) Start(ctx context.Context) func() {
	r.mu.Lock()
	if r.stopChan != nil {
		r.mu.Unlock()
		return r.Stop
	}
	stopChan := make(chan struct{})
	done := make(chan struct{})
	r.stopChan = stopChan
	r.done = done
	r.mu.Unlock()

	ticker := time.NewTicker(r.interval)

	go func() {
		defer close(done)
		defer r.clearRunning(done)
		defer ticker.Stop()

		log.WithField("interval", r.interval).Info("Event relay started")
		r.drain(ctx)

		for {
			select {
			case <-ctx.Done():
				log.Info("Event relay shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Event relay shutting down (stop requested)...")
				return
			case <-ticker.C:
				r.drain(ctx)
			}
		}
	}()

	return r.Stop
}

// clearRunning forgets a loop that exited on its own so a later Start can run
func (r *EventRelay) clearRunning(done chan struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done == done {
		r.stopChan, r.done = nil, nil
	}
}

// Stop halts the relay and waits for the current batch
func (r *EventRelay) Stop() {
	r.mu.Lock()
	stopChan, done := r.stopChan, r.done
	r.stopChan, r.done = nil, nil
	r.mu.Unlock()

	if stopChan == nil {
		return
	}
	close(stopChan)
	<-done
}

// drain relays full batches until the outbox is empty or a batch has failures
func (r *EventRelay) drain(ctx context.Context) {
	for ctx.Err() == nil {
		published, failed, err := r.RelayOnce(ctx)
		if err != nil || failed > 0 || published < r.batchSize {
			return
		}
	}
}

// RelayOnce relays a single batch
func (r *EventRelay) RelayOnce(ctx context.Context) (int, int, error) {
	published, failed, err := r.outbox.RelayPending(ctx, r.batchSize, func(ctx context.Context, event *models.AuctionEvent) error {
		return r.broker.PublishAuctionEvent(ctx, event)
	})
	if err != nil {
		log.WithError(err).Error("Failed to relay auction events")
		return published, failed, err
	}

	r.metrics.RecordRelay(ctx, published, failed)
	if published > 0 || failed > 0 {
		log.WithFields(log.Fields{
			"published": published,
			"failed":    failed,
		}).Debug("Relayed auction events")
	}

	return published, failed, nil
}
