package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auctioneer/auctionerrors"
	"auctioneer/models"
	"auctioneer/service"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// BiddingConfig controls the optimistic retry loop
type BiddingConfig struct {
	MaxAttempts    int
	RetryBaseDelay time.Duration
}

// BidView is a stored bid with its outcome derived from the auction's current state
type BidView struct {
	*models.Bid
	EffectiveOutcome models.BidOutcome
}

// BiddingService admits bids. Each attempt runs in its own unit of work;
// attempts that lose the version race are retried with backoff.
type BiddingService struct {
	uowFactory UnitOfWorkFactory
	clock      service.Clock
	metrics    Metrics
	cfg        BiddingConfig
}

// NewBiddingService creates a new bidding service
func NewBiddingService(uowFactory UnitOfWorkFactory, clock service.Clock, metrics Metrics, cfg BiddingConfig) *BiddingService {
	if clock == nil {
		clock = service.SystemClock
	}
	if metrics == nil {
		metrics = NoopMetrics()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 5
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 10 * time.Millisecond
	}
	return &BiddingService{
		uowFactory: uowFactory,
		clock:      clock,
		metrics:    metrics,
		cfg:        cfg,
	}
}

// PlaceBid admits the bid or returns the reason it was not admitted.
// Terminal rejections are recorded as a rejected bid plus a BidRejected
// event before *auctionerrors.BidRejection is returned. When every attempt
// loses the version race, ErrConcurrencyExhausted is returned and nothing
// is recorded.
func (s *BiddingService) PlaceBid(ctx context.Context, req *models.PlaceBidRequest) (*models.BidResult, error) {
	if err := service.ValidatePlaceBid(req); err != nil {
		return nil, err
	}

	var (
		result   *models.BidResult
		attempts int
	)

	operation := func() error {
		attempts++
		res, err := s.attempt(ctx, req)
		if err == nil {
			result = res
			return nil
		}
		if errors.Is(err, auctionerrors.ErrVersionConflict) {
			s.metrics.RecordBidConflict(ctx, req.AuctionID)
			log.WithFields(log.Fields{
				"auctionID": req.AuctionID,
				"bidderID":  req.BidderID,
				"attempt":   attempts,
			}).Debug("Bid attempt lost version race")
			return err
		}
		return backoff.Permanent(err)
	}

	err := backoff.Retry(operation, s.retryPolicy(ctx))
	if err == nil {
		result.Attempts = attempts
		return result, nil
	}

	if errors.Is(err, auctionerrors.ErrVersionConflict) {
		log.WithFields(log.Fields{
			"auctionID": req.AuctionID,
			"bidderID":  req.BidderID,
			"attempts":  attempts,
		}).Warn("Bid retries exhausted")
		return nil, fmt.Errorf("%w: gave up after %d attempts", auctionerrors.ErrConcurrencyExhausted, attempts)
	}

	var rejection *auctionerrors.BidRejection
	if errors.As(err, &rejection) {
		if recErr := s.recordRejection(ctx, req, rejection); recErr != nil {
			return nil, recErr
		}
		return nil, rejection
	}

	return nil, err
}

func (s *BiddingService) retryPolicy(ctx context.Context) backoff.BackOffContext {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = s.cfg.RetryBaseDelay
	expo.MaxInterval = 20 * s.cfg.RetryBaseDelay
	expo.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(expo, uint64(s.cfg.MaxAttempts-1)), ctx)
}

// attempt runs one optimistic attempt in a fresh transaction
func (s *BiddingService) attempt(ctx context.Context, req *models.PlaceBidRequest) (*models.BidResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	admission := s.newAdmission(uow)

	result, err := admission.Attempt(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *BiddingService) recordRejection(ctx context.Context, req *models.PlaceBidRequest, rejection *auctionerrors.BidRejection) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if _, err := s.newAdmission(uow).RecordRejection(ctx, req, rejection.Reason, rejection.MinimumBid); err != nil {
		return fmt.Errorf("failed to record bid rejection: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit bid rejection: %w", err)
	}

	log.WithFields(log.Fields{
		"auctionID": req.AuctionID,
		"bidderID":  req.BidderID,
		"amount":    req.Amount,
		"reason":    rejection.Reason,
	}).Info("Bid rejected")

	return nil
}

func (s *BiddingService) newAdmission(uow UnitOfWork) service.BidAdmissionService {
	recorder := service.NewEventRecorder(uow.AuctionEventRepository(), uow.EventBus())
	return service.NewBidAdmissionService(uow.AuctionRepository(), uow.BidRepository(), ledgerFor(uow), recorder, s.clock)
}

// ListBids returns an auction's bids in placement order with derived outcomes
func (s *BiddingService) ListBids(ctx context.Context, auctionID uuid.UUID) ([]*BidView, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	auction, err := uow.AuctionRepository().GetByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if auction == nil {
		return nil, fmt.Errorf("%w: %s", auctionerrors.ErrAuctionNotFound, auctionID)
	}

	bids, err := uow.BidRepository().ListByAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	views := make([]*BidView, 0, len(bids))
	for _, bid := range bids {
		views = append(views, &BidView{Bid: bid, EffectiveOutcome: bid.EffectiveOutcome(auction)})
	}
	return views, nil
}
