package repository

import (
	"context"
	"fmt"

	"auctioneer/database"
	"auctioneer/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

// maxPublishErrorLength bounds the stored error text
const maxPublishErrorLength = 1000

// EventOutbox relays committed auction events to an external broker
type EventOutbox struct {
	db *database.DB
}

// NewEventOutbox creates a new event outbox
func NewEventOutbox(db *database.DB) *EventOutbox {
	return &EventOutbox{db: db}
}

// RelayPending claims a batch of unpublished events and hands each to publish.
// Claimed rows are locked with SKIP LOCKED so concurrent relays never deliver
// the same batch, and a failed publish leaves the row for the next pass.
// After a failure the auction's later events in the batch are left pending so
// each auction's stream stays in seq order.
func (o *EventOutbox) RelayPending(
	ctx context.Context,
	limit int,
	publish func(ctx context.Context, event *models.AuctionEvent) error,
) (published int, failed int, err error) {
	err = o.db.WithTransaction(ctx, database.ReadCommitted, func(tx pgx.Tx) error {
		published, failed = 0, 0

		rows, err := tx.Query(ctx, `SELECT `+auctionEventColumns+`
			FROM auction_events
			WHERE published_at IS NULL
			ORDER BY id ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		`, limit)
		if err != nil {
			return fmt.Errorf("failed to claim unpublished events: %w", err)
		}
		pending, err := collectAuctionEvents(rows)
		rows.Close()
		if err != nil {
			return err
		}

		stalled := make(map[uuid.UUID]struct{})
		for _, event := range pending {
			if _, ok := stalled[event.AuctionID]; ok {
				continue
			}
			if pubErr := publish(ctx, event); pubErr != nil {
				failed++
				message := pubErr.Error()
				if len(message) > maxPublishErrorLength {
					message = message[:maxPublishErrorLength]
				}
				log.WithFields(log.Fields{
					"eventID":   event.ID,
					"auctionID": event.AuctionID,
					"seq":       event.Seq,
					"attempts":  event.PublishAttempts + 1,
					"error":     pubErr,
				}).Warn("Failed to publish auction event")

				if _, err := tx.Exec(ctx, `
					UPDATE auction_events
					SET publish_attempts = publish_attempts + 1,
					    last_publish_error = $2
					WHERE id = $1
				`, event.ID, message); err != nil {
					return fmt.Errorf("failed to record publish failure for event %d: %w", event.ID, err)
				}
				stalled[event.AuctionID] = struct{}{}
				continue
			}

			if _, err := tx.Exec(ctx, `
				UPDATE auction_events
				SET published_at = NOW(),
				    publish_attempts = publish_attempts + 1,
				    last_publish_error = NULL
				WHERE id = $1
			`, event.ID); err != nil {
				return fmt.Errorf("failed to mark event %d published: %w", event.ID, err)
			}
			published++
		}

		return nil
	})

	return published, failed, err
}
