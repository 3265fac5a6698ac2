package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"auctioneer/application"
	"auctioneer/config"
	"auctioneer/events"
	"auctioneer/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

var _ application.Metrics = (*MetricsProvider)(nil)

// MetricsProvider manages OpenTelemetry metrics for the auction engine
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	mu            sync.RWMutex

	// Metric instruments
	eventsEmittedCounter      metric.Int64Counter
	bidsAcceptedCounter       metric.Int64Counter
	bidsRejectedCounter       metric.Int64Counter
	bidConflictsCounter       metric.Int64Counter
	bidAmountHist             metric.Int64Histogram
	transitionsCounter        metric.Int64Counter
	transitionFailuresCounter metric.Int64Counter
	relayPublishedCounter     metric.Int64Counter
	relayFailedCounter        metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		log.Debug("Metrics provider already initialized")
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdkmetric.Exporter
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "none":
		log.Info("Metrics export disabled (exporter_type='none')")
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	reader := sdkmetric.NewPeriodicReader(
		exporter,
		sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
	)
	if err := mp.install(sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(reader))); err != nil {
		return err
	}
	otel.SetMeterProvider(mp.meterProvider)

	log.Info("Metrics provider initialized successfully")
	return nil
}

// install binds the provider to a meter provider and creates the instruments. Caller holds mu.
func (mp *MetricsProvider) install(provider *sdkmetric.MeterProvider) error {
	mp.meterProvider = provider
	mp.meter = provider.Meter(MetricPrefix)

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	return nil
}

// createInstruments creates all metric instruments
func (mp *MetricsProvider) createInstruments() error {
	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
	}{
		{&mp.eventsEmittedCounter, EventsEmittedTotal, "Total number of auction events emitted"},
		{&mp.bidsAcceptedCounter, BidsAcceptedTotal, "Total number of accepted bids"},
		{&mp.bidsRejectedCounter, BidsRejectedTotal, "Total number of rejected bids"},
		{&mp.bidConflictsCounter, BidConflictsTotal, "Total number of bid attempts that lost a version race"},
		{&mp.transitionsCounter, TransitionsTotal, "Total number of auction lifecycle transitions"},
		{&mp.transitionFailuresCounter, TransitionFailuresTotal, "Total number of failed scheduled transitions"},
		{&mp.relayPublishedCounter, RelayPublishedTotal, "Total number of events delivered to the broker"},
		{&mp.relayFailedCounter, RelayFailedTotal, "Total number of failed broker deliveries"},
	}

	for _, c := range counters {
		counter, err := mp.meter.Int64Counter(c.name,
			metric.WithDescription(c.description),
			metric.WithUnit("1"),
		)
		if err != nil {
			return fmt.Errorf("failed to create %s counter: %w", c.name, err)
		}
		*c.target = counter
	}

	var err error
	mp.bidAmountHist, err = mp.meter.Int64Histogram(
		BidAcceptedAmount,
		metric.WithDescription("Accepted bid amounts in minor units"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create bid amount histogram: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// SubscribeToBus counts every committed domain event
func (mp *MetricsProvider) SubscribeToBus(bus *events.Bus) {
	bus.SubscribeAll(mp.RecordEvent)
}

// RecordEvent records one emitted domain event
func (mp *MetricsProvider) RecordEvent(ctx context.Context, event events.Event) {
	if !mp.isEnabled() {
		return
	}

	mp.eventsEmittedCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String(LabelEventType, string(event.Type()))),
	)

	switch e := event.(type) {
	case events.BidAcceptedEvent:
		mp.bidsAcceptedCounter.Add(ctx, 1)
		mp.bidAmountHist.Record(ctx, e.Amount)
	case events.BidRejectedEvent:
		mp.bidsRejectedCounter.Add(ctx, 1,
			metric.WithAttributes(attribute.String(LabelReason, string(e.Reason))),
		)
	case events.AuctionStartedEvent:
		mp.transitionsCounter.Add(ctx, 1,
			metric.WithAttributes(attribute.String(LabelTarget, string(models.AuctionStatusLive))),
		)
	case events.AuctionEndedEvent:
		outcome := OutcomeSold
		if e.NoWinner {
			outcome = OutcomeNoWinner
		}
		mp.transitionsCounter.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String(LabelTarget, string(models.AuctionStatusEnded)),
				attribute.String(LabelOutcome, outcome),
			),
		)
	case events.AuctionCancelledEvent:
		mp.transitionsCounter.Add(ctx, 1,
			metric.WithAttributes(attribute.String(LabelTarget, string(models.AuctionStatusCancelled))),
		)
	}
}

// RecordBidConflict records a bid attempt that lost the version race
func (mp *MetricsProvider) RecordBidConflict(ctx context.Context, auctionID uuid.UUID) {
	if !mp.isEnabled() {
		return
	}
	mp.bidConflictsCounter.Add(ctx, 1)
}

// RecordTransitionFailure records a scheduled transition that failed
func (mp *MetricsProvider) RecordTransitionFailure(ctx context.Context, target models.AuctionStatus) {
	if !mp.isEnabled() {
		return
	}
	mp.transitionFailuresCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String(LabelTarget, string(target))),
	)
}

// RecordRelay records the outcome of one relay batch
func (mp *MetricsProvider) RecordRelay(ctx context.Context, published, failed int) {
	if !mp.isEnabled() {
		return
	}
	if published > 0 {
		mp.relayPublishedCounter.Add(ctx, int64(published))
	}
	if failed > 0 {
		mp.relayFailedCounter.Add(ctx, int64(failed))
	}
}

// isEnabled checks if metrics are enabled and initialized
func (mp *MetricsProvider) isEnabled() bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.meter != nil
}
