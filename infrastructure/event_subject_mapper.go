package infrastructure

import (
	"fmt"
	"strings"

	"auctioneer/events"
)

const (
	// AuctionEventStream is the JetStream stream holding relayed auction events
	AuctionEventStream = "AUCTION_EVENTS"

	subjectPrefix = "auctions.events."
)

// EventSubjectMapper handles mapping between auction event types and broker subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventTypeToSubject converts an event type to its NATS subject
func (m *EventSubjectMapper) MapEventTypeToSubject(eventType string) string {
	return subjectPrefix + eventType
}

// MapSubjectToEventType converts a NATS subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) (events.EventType, error) {
	if !strings.HasPrefix(subject, subjectPrefix) {
		return "", fmt.Errorf("subject %q is not an auction event subject", subject)
	}
	return events.EventType(strings.TrimPrefix(subject, subjectPrefix)), nil
}

// MapEventTypeToRoutingKey returns the RabbitMQ routing key for an event type
func (m *EventSubjectMapper) MapEventTypeToRoutingKey(eventType string) string {
	return eventType
}

// GetAllSubjects returns all subjects that this service publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	subjects := make([]string, 0, len(events.AllEventTypes))
	for _, eventType := range events.AllEventTypes {
		subjects = append(subjects, m.MapEventTypeToSubject(string(eventType)))
	}
	return subjects
}

// StreamSubjects returns the wildcard subject bound to the event stream
func (m *EventSubjectMapper) StreamSubjects() []string {
	return []string{subjectPrefix + "*"}
}
