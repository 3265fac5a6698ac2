package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"auctioneer/models"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

// AuctionEventExchange is the durable topic exchange events are published to
const AuctionEventExchange = "auction.events"

var errPublishNacked = errors.New("message was nacked by broker")

// amqpChannel is the subset of *amqp.Channel the broker uses
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Confirm(noWait bool) error
	PublishWithDeferredConfirmWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (*amqp.DeferredConfirmation, error)
	IsClosed() bool
	Close() error
}

// channelDialer opens a fresh channel and returns it with a closer for the
// connection that owns it
type channelDialer func() (amqpChannel, func() error, error)

// RabbitMQEventBroker publishes relayed auction events to a topic exchange
// with publisher confirms. A broken channel is dropped and re-dialed on
// the next publish.
type RabbitMQEventBroker struct {
	dial          channelDialer
	subjectMapper *EventSubjectMapper
	exchange      string

	mu        sync.Mutex
	ch        amqpChannel
	closeConn func() error
	closed    bool
}

// NewRabbitMQEventBroker creates a broker that dials url on first use
func NewRabbitMQEventBroker(url string, subjectMapper *EventSubjectMapper) *RabbitMQEventBroker {
	return newRabbitMQEventBroker(dialAMQP(url), subjectMapper)
}

func newRabbitMQEventBroker(dial channelDialer, subjectMapper *EventSubjectMapper) *RabbitMQEventBroker {
	return &RabbitMQEventBroker{
		dial:          dial,
		subjectMapper: subjectMapper,
		exchange:      AuctionEventExchange,
	}
}

func dialAMQP(url string) channelDialer {
	return func() (amqpChannel, func() error, error) {
		conn, err := amqp.Dial(url)
		if err != nil {
			return nil, nil, fmt.Errorf("rabbitmq dial failed: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("rabbitmq channel open failed: %w", err)
		}
		return ch, conn.Close, nil
	}
}

// Connect dials the broker and declares the exchange, retrying with backoff
func (b *RabbitMQEventBroker) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.channel(ctx)
	return err
}

// channel returns the live channel, dialing a new one when needed. Caller holds mu.
func (b *RabbitMQEventBroker) channel(ctx context.Context) (amqpChannel, error) {
	if b.closed {
		return nil, errors.New("rabbitmq broker is closed")
	}
	if b.ch != nil && !b.ch.IsClosed() {
		return b.ch, nil
	}
	b.dropChannel()

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = 200 * time.Millisecond
	expo.MaxInterval = 2 * time.Second
	policy := backoff.WithContext(backoff.WithMaxRetries(expo, 3), ctx)

	err := backoff.RetryNotify(func() error {
		ch, closeConn, err := b.dial()
		if err != nil {
			return err
		}
		if err := ch.ExchangeDeclare(b.exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = closeConn()
			return fmt.Errorf("rabbitmq exchange declare failed: %w", err)
		}
		if err := ch.Confirm(false); err != nil {
			_ = ch.Close()
			_ = closeConn()
			return fmt.Errorf("rabbitmq confirm mode unavailable: %w", err)
		}
		b.ch = ch
		b.closeConn = closeConn
		return nil
	}, policy, func(err error, wait time.Duration) {
		log.WithFields(log.Fields{
			"error": err,
			"retry": wait,
		}).Warn("RabbitMQ connection attempt failed")
	})
	if err != nil {
		return nil, err
	}

	log.WithField("exchange", b.exchange).Info("Connected to RabbitMQ")
	return b.ch, nil
}

func (b *RabbitMQEventBroker) dropChannel() {
	if b.ch != nil {
		_ = b.ch.Close()
		b.ch = nil
	}
	if b.closeConn != nil {
		_ = b.closeConn()
		b.closeConn = nil
	}
}

// PublishAuctionEvent publishes one stored event with routing key <type>
// and waits for the broker's confirmation
func (b *RabbitMQEventBroker) PublishAuctionEvent(ctx context.Context, event *models.AuctionEvent) error {
	envelope := NewEventEnvelope(event)
	body, err := envelope.marshal()
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	ch, err := b.channel(ctx)
	if err != nil {
		return err
	}

	routingKey := b.subjectMapper.MapEventTypeToRoutingKey(event.EventType)
	confirmation, err := ch.PublishWithDeferredConfirmWithContext(ctx, b.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    envelope.EventID,
		Timestamp:    envelope.Timestamp,
		Type:         event.EventType,
		AppId:        sourceService,
		Headers: amqp.Table{
			"auction_id": event.AuctionID.String(),
			"seq":        event.Seq,
		},
		Body: body,
	})
	if err != nil {
		b.dropChannel()
		return fmt.Errorf("failed to publish event to RabbitMQ: %w", err)
	}

	if confirmation != nil {
		acked, err := confirmation.WaitContext(ctx)
		if err != nil {
			return fmt.Errorf("failed waiting for RabbitMQ confirmation: %w", err)
		}
		if !acked {
			return errPublishNacked
		}
	}

	log.WithFields(log.Fields{
		"eventType":  event.EventType,
		"eventId":    envelope.EventID,
		"auctionID":  event.AuctionID,
		"seq":        event.Seq,
		"routingKey": routingKey,
	}).Debug("Successfully published event to RabbitMQ")

	return nil
}

// Close closes the channel and connection
func (b *RabbitMQEventBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.dropChannel()
	return nil
}
