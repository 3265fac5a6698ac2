package observability

// Metric name prefixes
const (
	MetricPrefix = "auctioneer"
)

// Metric names
const (
	// Event metrics
	EventsEmittedTotal = MetricPrefix + ".events.emitted_total"

	// Bid metrics
	BidsAcceptedTotal = MetricPrefix + ".bids.accepted_total"
	BidsRejectedTotal = MetricPrefix + ".bids.rejected_total"
	BidConflictsTotal = MetricPrefix + ".bids.version_conflicts_total"
	BidAcceptedAmount = MetricPrefix + ".bids.accepted_amount"

	// Lifecycle metrics
	TransitionsTotal        = MetricPrefix + ".auctions.transitions_total"
	TransitionFailuresTotal = MetricPrefix + ".auctions.transition_failures_total"

	// Relay metrics
	RelayPublishedTotal = MetricPrefix + ".relay.published_total"
	RelayFailedTotal    = MetricPrefix + ".relay.failed_total"
)

// Label keys
const (
	LabelEventType = "event_type"
	LabelReason    = "reason"
	LabelTarget    = "target"
	LabelOutcome   = "outcome"
)

// Auction outcome labels on ended auctions
const (
	OutcomeSold     = "sold"
	OutcomeNoWinner = "no_winner"
)
