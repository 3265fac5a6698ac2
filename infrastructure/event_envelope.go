package infrastructure

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"auctioneer/models"

	"github.com/google/uuid"
)

const sourceService = "auctioneer"

// eventIDNamespace scopes the deterministic envelope ids
var eventIDNamespace = uuid.MustParse("4f1c2b7e-8a39-4d55-9a5e-0c6d2f3b8e11")

// EventEnvelope is the wire format shared by every broker
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	AuctionID     uuid.UUID       `json:"auction_id"`
	Seq           int64           `json:"seq"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"source_service"`
	Payload       json.RawMessage `json:"payload"`
}

// EventID derives a stable id from (auction, seq) so a redelivered event
// carries the same id as the first delivery.
func EventID(auctionID uuid.UUID, seq int64) string {
	return uuid.NewSHA1(eventIDNamespace, []byte(auctionID.String()+":"+strconv.FormatInt(seq, 10))).String()
}

// NewEventEnvelope wraps a stored auction event for publication
func NewEventEnvelope(event *models.AuctionEvent) *EventEnvelope {
	return &EventEnvelope{
		EventID:       EventID(event.AuctionID, event.Seq),
		EventType:     event.EventType,
		AuctionID:     event.AuctionID,
		Seq:           event.Seq,
		Timestamp:     event.CreatedAt.UTC(),
		SourceService: sourceService,
		Payload:       event.Payload,
	}
}

func (e *EventEnvelope) marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event envelope: %w", err)
	}
	return data, nil
}
