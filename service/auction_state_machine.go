package service

import (
	"context"
	"fmt"
	"strings"

	"auctioneer/auctionerrors"
	"auctioneer/events"
	"auctioneer/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	maxTitleLength        = 200
	defaultCancelReason   = "cancelled"
	maxCancelReasonLength = 500
)

type auctionStateMachine struct {
	auctionRepo AuctionRepository
	ledger      BalanceLedger
	recorder    EventRecorder
	clock       Clock
}

// NewAuctionStateMachine creates a state machine for one unit of work
func NewAuctionStateMachine(
	auctionRepo AuctionRepository,
	ledger BalanceLedger,
	recorder EventRecorder,
	clock Clock,
) AuctionStateMachine {
	if clock == nil {
		clock = SystemClock
	}
	return &auctionStateMachine{
		auctionRepo: auctionRepo,
		ledger:      ledger,
		recorder:    recorder,
		clock:       clock,
	}
}

// ValidateCreateAuction checks seller input for a new auction
func ValidateCreateAuction(req *models.CreateAuctionRequest) error {
	if req == nil {
		return auctionerrors.NewValidationError("auction request is required")
	}
	if strings.TrimSpace(req.SellerID) == "" {
		return auctionerrors.NewValidationError("seller id is required")
	}
	if len(req.Title) > maxTitleLength {
		return auctionerrors.NewValidationError("title must be at most %d characters", maxTitleLength)
	}
	if req.StartPrice <= 0 {
		return auctionerrors.NewValidationError("start price must be positive, got %d", req.StartPrice)
	}
	if req.MinIncrement <= 0 {
		return auctionerrors.NewValidationError("minimum increment must be positive, got %d", req.MinIncrement)
	}
	if req.StartTime.IsZero() || req.EndTime.IsZero() {
		return auctionerrors.NewValidationError("start and end time are required")
	}
	if !req.EndTime.After(req.StartTime) {
		return auctionerrors.NewValidationError("end time must be after start time")
	}
	return nil
}

// Create stores a new scheduled auction
func (m *auctionStateMachine) Create(ctx context.Context, req *models.CreateAuctionRequest) (*models.Auction, error) {
	if err := ValidateCreateAuction(req); err != nil {
		return nil, err
	}

	auction := &models.Auction{
		ID:           uuid.New(),
		SellerID:     strings.TrimSpace(req.SellerID),
		Title:        strings.TrimSpace(req.Title),
		StartPrice:   req.StartPrice,
		CurrentPrice: req.StartPrice,
		MinIncrement: req.MinIncrement,
		StartTime:    req.StartTime.UTC(),
		EndTime:      req.EndTime.UTC(),
		Status:       models.AuctionStatusScheduled,
		Version:      1,
	}

	if err := m.auctionRepo.Create(ctx, auction); err != nil {
		return nil, fmt.Errorf("failed to create auction: %w", err)
	}

	return auction, nil
}

// Start moves a scheduled auction to live
func (m *auctionStateMachine) Start(ctx context.Context, auctionID uuid.UUID) (*models.Auction, error) {
	auction, err := m.load(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	if !auction.Status.CanTransitionTo(models.AuctionStatusLive) {
		return nil, fmt.Errorf("%w: cannot start auction in status %s", auctionerrors.ErrInvalidTransition, auction.Status)
	}

	now := m.clock()
	if !auction.IsStartDue(now) {
		return nil, fmt.Errorf("%w: auction starts at %s", auctionerrors.ErrTransitionNotDue, auction.StartTime.Format("2006-01-02T15:04:05Z07:00"))
	}

	update := models.NewAuctionUpdate(auction)
	update.Status = models.AuctionStatusLive
	if err := m.auctionRepo.UpdateVersioned(ctx, update); err != nil {
		return nil, err
	}
	update.Apply(auction)

	if _, err := m.recorder.Record(ctx, events.AuctionStartedEvent{
		AuctionID:  auction.ID,
		StartPrice: auction.StartPrice,
		EndTime:    auction.EndTime,
		OccurredAt: now,
	}); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"auctionID": auction.ID,
		"version":   auction.Version,
	}).Info("Auction started")

	return auction, nil
}

// End finalizes a live auction, committing the winner's reservation
func (m *auctionStateMachine) End(ctx context.Context, auctionID uuid.UUID) (*models.Auction, error) {
	auction, err := m.load(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	if !auction.Status.CanTransitionTo(models.AuctionStatusEnded) {
		return nil, fmt.Errorf("%w: cannot end auction in status %s", auctionerrors.ErrInvalidTransition, auction.Status)
	}

	now := m.clock()
	if !auction.IsEndDue(now) {
		return nil, fmt.Errorf("%w: auction ends at %s", auctionerrors.ErrTransitionNotDue, auction.EndTime.Format("2006-01-02T15:04:05Z07:00"))
	}

	update := models.NewAuctionUpdate(auction)
	update.Status = models.AuctionStatusEnded
	if err := m.auctionRepo.UpdateVersioned(ctx, update); err != nil {
		return nil, err
	}
	update.Apply(auction)

	ended := events.AuctionEndedEvent{
		AuctionID:  auction.ID,
		BidCount:   auction.BidCount,
		OccurredAt: now,
	}

	if auction.HasWinner() {
		committed, err := m.ledger.Commit(ctx, *auction.CurrentWinnerID, auction.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to commit winner reservation: %w", err)
		}
		if committed != auction.CurrentPrice {
			log.WithFields(log.Fields{
				"auctionID":  auction.ID,
				"winnerID":   *auction.CurrentWinnerID,
				"committed":  committed,
				"finalPrice": auction.CurrentPrice,
			}).Warn("Committed reservation differs from final price")
		}
		ended.WinnerID = auction.CurrentWinnerID
		ended.WinningBidID = auction.CurrentBidID
		ended.FinalPrice = auction.CurrentPrice
	} else {
		ended.NoWinner = true
	}

	if _, err := m.recorder.Record(ctx, ended); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"auctionID":  auction.ID,
		"noWinner":   ended.NoWinner,
		"finalPrice": ended.FinalPrice,
		"bidCount":   auction.BidCount,
	}).Info("Auction ended")

	return auction, nil
}

// Cancel withdraws a scheduled or live auction
func (m *auctionStateMachine) Cancel(ctx context.Context, auctionID uuid.UUID, reason string) (*models.Auction, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultCancelReason
	}
	if len(reason) > maxCancelReasonLength {
		return nil, auctionerrors.NewValidationError("cancel reason must be at most %d characters", maxCancelReasonLength)
	}

	auction, err := m.load(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	if !auction.Status.CanTransitionTo(models.AuctionStatusCancelled) {
		return nil, fmt.Errorf("%w: cannot cancel auction in status %s", auctionerrors.ErrInvalidTransition, auction.Status)
	}

	previousStatus := auction.Status
	update := models.NewAuctionUpdate(auction)
	update.Status = models.AuctionStatusCancelled
	update.CancelReason = &reason
	if err := m.auctionRepo.UpdateVersioned(ctx, update); err != nil {
		return nil, err
	}
	update.Apply(auction)

	cancelled := events.AuctionCancelledEvent{
		AuctionID:      auction.ID,
		Reason:         reason,
		PreviousStatus: previousStatus,
		OccurredAt:     m.clock(),
	}

	if auction.CurrentWinnerID != nil {
		released, err := m.ledger.Release(ctx, *auction.CurrentWinnerID, auction.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to release reservation: %w", err)
		}
		cancelled.ReleasedBidderID = auction.CurrentWinnerID
		cancelled.ReleasedAmount = released
	}

	if _, err := m.recorder.Record(ctx, cancelled); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"auctionID":      auction.ID,
		"previousStatus": previousStatus,
		"reason":         reason,
	}).Info("Auction cancelled")

	return auction, nil
}

func (m *auctionStateMachine) load(ctx context.Context, auctionID uuid.UUID) (*models.Auction, error) {
	auction, err := m.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}
	if auction == nil {
		return nil, fmt.Errorf("%w: %s", auctionerrors.ErrAuctionNotFound, auctionID)
	}
	return auction, nil
}
