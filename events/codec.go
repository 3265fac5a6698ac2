package events

import (
	"encoding/json"
	"fmt"
)

// Encode serializes an event payload for storage in the event log
func Encode(e Event) (json.RawMessage, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event: %w", e.Type(), err)
	}
	return payload, nil
}

// Decode rebuilds a typed event from its stored type and payload
func Decode(eventType string, payload []byte) (Event, error) {
	var (
		event Event
		err   error
	)

	switch EventType(eventType) {
	case EventTypeBidAccepted:
		var e BidAcceptedEvent
		err = json.Unmarshal(payload, &e)
		event = e
	case EventTypeBidRejected:
		var e BidRejectedEvent
		err = json.Unmarshal(payload, &e)
		event = e
	case EventTypeAuctionStarted:
		var e AuctionStartedEvent
		err = json.Unmarshal(payload, &e)
		event = e
	case EventTypeAuctionEnded:
		var e AuctionEndedEvent
		err = json.Unmarshal(payload, &e)
		event = e
	case EventTypeAuctionCancelled:
		var e AuctionCancelledEvent
		err = json.Unmarshal(payload, &e)
		event = e
	default:
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s event: %w", eventType, err)
	}
	return event, nil
}
