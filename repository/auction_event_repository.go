package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"auctioneer/database"
	"auctioneer/models"

	"github.com/google/uuid"
)

const auctionEventColumns = `
	id, auction_id, seq, event_type, payload, created_at,
	published_at, publish_attempts, last_publish_error`

// AuctionEventRepository implements the append-only auction event log
type AuctionEventRepository struct {
	q queryable
}

// NewAuctionEventRepository creates a new auction event repository
func NewAuctionEventRepository(db *database.DB) *AuctionEventRepository {
	return &AuctionEventRepository{q: db.Pool}
}

func newAuctionEventRepositoryWithTx(tx queryable) *AuctionEventRepository {
	return &AuctionEventRepository{q: tx}
}

// Append stores an event with the next sequence number for its auction.
// The counter row is locked until the surrounding transaction ends, which
// serializes appends per auction and keeps seq free of gaps.
func (r *AuctionEventRepository) Append(ctx context.Context, auctionID uuid.UUID, eventType string, payload json.RawMessage) (*models.AuctionEvent, error) {
	var seq int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO auction_event_sequences (auction_id, last_seq)
		VALUES ($1, 1)
		ON CONFLICT (auction_id) DO UPDATE
		SET last_seq = auction_event_sequences.last_seq + 1
		RETURNING last_seq
	`, auctionID).Scan(&seq)
	if err != nil {
		return nil, translateError(fmt.Sprintf("failed to allocate event sequence for auction %s", auctionID), err)
	}

	event := &models.AuctionEvent{
		AuctionID: auctionID,
		Seq:       seq,
		EventType: eventType,
		Payload:   payload,
	}

	err = r.q.QueryRow(ctx, `
		INSERT INTO auction_events (auction_id, seq, event_type, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, auctionID, seq, eventType, []byte(payload)).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return nil, translateError(fmt.Sprintf("failed to append %s event for auction %s", eventType, auctionID), err)
	}

	return event, nil
}

// ListByAuction returns events with seq greater than afterSeq in ascending order
func (r *AuctionEventRepository) ListByAuction(ctx context.Context, auctionID uuid.UUID, afterSeq int64, limit int) ([]*models.AuctionEvent, error) {
	query := `SELECT ` + auctionEventColumns + `
		FROM auction_events
		WHERE auction_id = $1 AND seq > $2
		ORDER BY seq ASC
		LIMIT $3
	`

	rows, err := r.q.Query(ctx, query, auctionID, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events for auction %s: %w", auctionID, err)
	}
	defer rows.Close()

	return collectAuctionEvents(rows)
}

type eventRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func collectAuctionEvents(rows eventRows) ([]*models.AuctionEvent, error) {
	var out []*models.AuctionEvent
	for rows.Next() {
		var (
			event   models.AuctionEvent
			payload []byte
		)
		err := rows.Scan(
			&event.ID,
			&event.AuctionID,
			&event.Seq,
			&event.EventType,
			&payload,
			&event.CreatedAt,
			&event.PublishedAt,
			&event.PublishAttempts,
			&event.LastPublishError,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auction event: %w", err)
		}
		event.Payload = json.RawMessage(payload)
		out = append(out, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate auction events: %w", err)
	}

	return out, nil
}
