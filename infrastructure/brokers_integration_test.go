package infrastructure

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"auctioneer/models"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcrabbit "github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"
)

const brokerStartupTimeout = 60 * time.Second

func setupNATS(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping NATS test in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "nats:2.10-alpine",
			Cmd:          []string{"-js"},
			ExposedPorts: []string{"4222/tcp"},
			WaitingFor:   wait.ForLog("Server is ready").WithStartupTimeout(brokerStartupTimeout),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: failed to terminate NATS container: %v", err)
		}
	})

	endpoint, err := container.PortEndpoint(ctx, "4222/tcp", "nats")
	require.NoError(t, err)
	return endpoint
}

func setupRabbitMQ(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping RabbitMQ test in short mode")
	}
	ctx := context.Background()

	container, err := tcrabbit.Run(ctx,
		"rabbitmq:3-management-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").WithStartupTimeout(brokerStartupTimeout),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: failed to terminate RabbitMQ container: %v", err)
		}
	})

	url, err := container.AmqpURL(ctx)
	require.NoError(t, err)
	return url
}

func TestNATSEventBroker_PublishesToStream(t *testing.T) {
	url := setupNATS(t)
	ctx := context.Background()

	client := NewNATSClient(url)
	require.NoError(t, client.Connect())
	broker := NewNATSEventBroker(client, NewEventSubjectMapper())
	t.Cleanup(func() { _ = broker.Close() })

	require.NoError(t, broker.EnsureAuctionEventStream())
	// A second call finds the existing stream
	require.NoError(t, broker.EnsureAuctionEventStream())

	event := &models.AuctionEvent{
		AuctionID: uuid.New(),
		Seq:       1,
		EventType: "auction_ended",
		Payload:   json.RawMessage(`{"no_winner":true}`),
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, broker.PublishAuctionEvent(ctx, event))
	// Redelivery falls inside the duplicate window and is dropped by the stream
	require.NoError(t, broker.PublishAuctionEvent(ctx, event))

	js, err := client.nc.JetStream()
	require.NoError(t, err)
	info, err := js.StreamInfo(AuctionEventStream)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), info.State.Msgs)

	sub, err := js.SubscribeSync("auctions.events.auction_ended", nats.DeliverAll())
	require.NoError(t, err)
	msg, err := sub.NextMsg(5 * time.Second)
	require.NoError(t, err)

	var envelope EventEnvelope
	require.NoError(t, json.Unmarshal(msg.Data, &envelope))
	assert.Equal(t, event.AuctionID, envelope.AuctionID)
	assert.Equal(t, "auction_ended", envelope.EventType)
	assert.Equal(t, EventID(event.AuctionID, 1), msg.Header.Get(nats.MsgIdHdr))
}

func TestRabbitMQEventBroker_PublishesToTopicExchange(t *testing.T) {
	url := setupRabbitMQ(t)
	ctx := context.Background()

	broker := NewRabbitMQEventBroker(url, NewEventSubjectMapper())
	require.NoError(t, broker.Connect(ctx))
	t.Cleanup(func() { _ = broker.Close() })

	conn, err := amqp.Dial(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	ch, err := conn.Channel()
	require.NoError(t, err)

	queue, err := ch.QueueDeclare("", false, true, true, false, nil)
	require.NoError(t, err)
	require.NoError(t, ch.QueueBind(queue.Name, "#", AuctionEventExchange, false, nil))
	deliveries, err := ch.Consume(queue.Name, "", true, true, false, false, nil)
	require.NoError(t, err)

	event := &models.AuctionEvent{
		AuctionID: uuid.New(),
		Seq:       4,
		EventType: "bid_rejected",
		Payload:   json.RawMessage(`{"reason":"bid_too_low"}`),
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, broker.PublishAuctionEvent(ctx, event))

	select {
	case delivery := <-deliveries:
		assert.Equal(t, "bid_rejected", delivery.RoutingKey)
		assert.Equal(t, EventID(event.AuctionID, 4), delivery.MessageId)

		var envelope EventEnvelope
		require.NoError(t, json.Unmarshal(delivery.Body, &envelope))
		assert.Equal(t, int64(4), envelope.Seq)
	case <-time.After(10 * time.Second):
		t.Fatal("event was not routed to the bound queue")
	}
}
