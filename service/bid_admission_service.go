package service

import (
	"context"
	"errors"
	"fmt"

	"auctioneer/auctionerrors"
	"auctioneer/events"
	"auctioneer/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type bidAdmissionService struct {
	auctionRepo AuctionRepository
	bidRepo     BidRepository
	ledger      BalanceLedger
	recorder    EventRecorder
	clock       Clock
}

// NewBidAdmissionService creates a bid admission service for one unit of work
func NewBidAdmissionService(
	auctionRepo AuctionRepository,
	bidRepo BidRepository,
	ledger BalanceLedger,
	recorder EventRecorder,
	clock Clock,
) BidAdmissionService {
	if clock == nil {
		clock = SystemClock
	}
	return &bidAdmissionService{
		auctionRepo: auctionRepo,
		bidRepo:     bidRepo,
		ledger:      ledger,
		recorder:    recorder,
		clock:       clock,
	}
}

// ValidatePlaceBid checks the request shape before any data is read
func ValidatePlaceBid(req *models.PlaceBidRequest) error {
	if req == nil {
		return auctionerrors.NewValidationError("bid request is required")
	}
	if req.AuctionID == uuid.Nil {
		return auctionerrors.NewValidationError("auction id is required")
	}
	if req.BidderID == "" {
		return auctionerrors.NewValidationError("bidder id is required")
	}
	if req.Amount <= 0 {
		return auctionerrors.NewValidationError("bid amount must be positive, got %d", req.Amount)
	}
	return nil
}

// Attempt runs one optimistic attempt. The version-guarded auction update is
// issued before any balance row is touched, so every writer locks the
// auction row first.
func (s *bidAdmissionService) Attempt(ctx context.Context, req *models.PlaceBidRequest) (*models.BidResult, error) {
	if err := ValidatePlaceBid(req); err != nil {
		return nil, err
	}

	auction, err := s.auctionRepo.GetByID(ctx, req.AuctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}
	if auction == nil {
		return nil, fmt.Errorf("%w: %s", auctionerrors.ErrAuctionNotFound, req.AuctionID)
	}

	now := s.clock()
	if !auction.IsBiddingOpen(now) {
		return nil, &auctionerrors.BidRejection{
			Reason: models.RejectReasonNotLive,
			Detail: fmt.Sprintf("auction is %s", auction.Status),
		}
	}

	minimum := auction.MinimumNextBid()
	if req.Amount < minimum {
		return nil, &auctionerrors.BidRejection{
			Reason:     models.RejectReasonTooLow,
			MinimumBid: minimum,
			Detail:     fmt.Sprintf("minimum acceptable bid is %d", minimum),
		}
	}

	previousWinner := auction.CurrentWinnerID
	previousPrice := auction.CurrentPrice
	bidID := uuid.New()
	bidderID := req.BidderID

	update := models.NewAuctionUpdate(auction)
	update.CurrentPrice = req.Amount
	update.CurrentWinnerID = &bidderID
	update.CurrentBidID = &bidID
	update.BidCount = auction.BidCount + 1

	if err := s.auctionRepo.UpdateVersioned(ctx, update); err != nil {
		return nil, err
	}

	if err := s.ledger.Reserve(ctx, req.BidderID, req.AuctionID, req.Amount); err != nil {
		if errors.Is(err, auctionerrors.ErrInsufficientFunds) {
			return nil, &auctionerrors.BidRejection{
				Reason: models.RejectReasonInsufficientFunds,
				Detail: err.Error(),
			}
		}
		return nil, fmt.Errorf("failed to reserve funds: %w", err)
	}

	// A bidder raising their own bid keeps a single, replaced reservation
	if previousWinner != nil && *previousWinner != req.BidderID {
		if _, err := s.ledger.Release(ctx, *previousWinner, req.AuctionID); err != nil {
			return nil, fmt.Errorf("failed to release outbid reservation: %w", err)
		}
	}

	bid := &models.Bid{
		ID:        bidID,
		AuctionID: req.AuctionID,
		BidderID:  req.BidderID,
		Amount:    req.Amount,
		Outcome:   models.BidOutcomeAccepted,
		PlacedAt:  now,
	}
	if err := s.bidRepo.Create(ctx, bid); err != nil {
		return nil, fmt.Errorf("failed to record bid: %w", err)
	}

	update.Apply(auction)

	if _, err := s.recorder.Record(ctx, events.BidAcceptedEvent{
		AuctionID:        req.AuctionID,
		BidID:            bidID,
		BidderID:         req.BidderID,
		Amount:           req.Amount,
		PreviousWinnerID: previousWinner,
		PreviousPrice:    previousPrice,
		Version:          auction.Version,
		OccurredAt:       now,
	}); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"auctionID": req.AuctionID,
		"bidID":     bidID,
		"bidderID":  req.BidderID,
		"amount":    req.Amount,
		"version":   auction.Version,
	}).Debug("Bid admitted")

	return &models.BidResult{
		Bid:      bid,
		NewPrice: req.Amount,
		Version:  auction.Version,
	}, nil
}

// RecordRejection appends a rejected bid and its event
func (s *bidAdmissionService) RecordRejection(ctx context.Context, req *models.PlaceBidRequest, reason models.RejectReason, minimumBid int64) (*models.Bid, error) {
	now := s.clock()
	rejectReason := reason

	bid := &models.Bid{
		ID:           uuid.New(),
		AuctionID:    req.AuctionID,
		BidderID:     req.BidderID,
		Amount:       req.Amount,
		Outcome:      models.BidOutcomeRejected,
		RejectReason: &rejectReason,
		PlacedAt:     now,
	}
	if err := s.bidRepo.Create(ctx, bid); err != nil {
		return nil, fmt.Errorf("failed to record rejected bid: %w", err)
	}

	if _, err := s.recorder.Record(ctx, events.BidRejectedEvent{
		AuctionID:  req.AuctionID,
		BidID:      bid.ID,
		BidderID:   req.BidderID,
		Amount:     req.Amount,
		Reason:     reason,
		MinimumBid: minimumBid,
		OccurredAt: now,
	}); err != nil {
		return nil, err
	}

	return bid, nil
}
