package application

import (
	"context"
	"fmt"

	"auctioneer/auctionerrors"
	"auctioneer/models"
	"auctioneer/service"

	"github.com/google/uuid"
)

const (
	defaultEventPageSize = 100
	maxEventPageSize     = 1000
)

// AuctionService exposes auction lifecycle operations to callers
type AuctionService struct {
	uowFactory UnitOfWorkFactory
	clock      service.Clock
}

// NewAuctionService creates a new auction service
func NewAuctionService(uowFactory UnitOfWorkFactory, clock service.Clock) *AuctionService {
	if clock == nil {
		clock = service.SystemClock
	}
	return &AuctionService{
		uowFactory: uowFactory,
		clock:      clock,
	}
}

// Create stores a new scheduled auction
func (s *AuctionService) Create(ctx context.Context, req *models.CreateAuctionRequest) (*models.Auction, error) {
	var auction *models.Auction
	err := s.inTransaction(ctx, func(uow UnitOfWork) error {
		var err error
		auction, err = s.stateMachine(uow).Create(ctx, req)
		return err
	})
	return auction, err
}

// Get returns an auction by ID
func (s *AuctionService) Get(ctx context.Context, auctionID uuid.UUID) (*models.Auction, error) {
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
	return auction, nil
}

// Start moves a due scheduled auction to live
func (s *AuctionService) Start(ctx context.Context, auctionID uuid.UUID) (*models.Auction, error) {
	var auction *models.Auction
	err := s.inTransaction(ctx, func(uow UnitOfWork) error {
		var err error
		auction, err = s.stateMachine(uow).Start(ctx, auctionID)
		return err
	})
	return auction, err
}

// End finalizes a due live auction
func (s *AuctionService) End(ctx context.Context, auctionID uuid.UUID) (*models.Auction, error) {
	var auction *models.Auction
	err := s.inTransaction(ctx, func(uow UnitOfWork) error {
		var err error
		auction, err = s.stateMachine(uow).End(ctx, auctionID)
		return err
	})
	return auction, err
}

// Cancel withdraws an auction on behalf of its seller
func (s *AuctionService) Cancel(ctx context.Context, auctionID uuid.UUID, requesterID, reason string) (*models.Auction, error) {
	var auction *models.Auction
	err := s.inTransaction(ctx, func(uow UnitOfWork) error {
		existing, err := uow.AuctionRepository().GetByID(ctx, auctionID)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("%w: %s", auctionerrors.ErrAuctionNotFound, auctionID)
		}
		if existing.SellerID != requesterID {
			return fmt.Errorf("%w: only the seller can cancel auction %s", auctionerrors.ErrForbidden, auctionID)
		}

		auction, err = s.stateMachine(uow).Cancel(ctx, auctionID, reason)
		return err
	})
	return auction, err
}

// ListEvents returns an auction's events with seq greater than afterSeq
func (s *AuctionService) ListEvents(ctx context.Context, auctionID uuid.UUID, afterSeq int64, limit int) ([]*models.AuctionEvent, error) {
	if afterSeq < 0 {
		return nil, auctionerrors.NewValidationError("after_seq must not be negative")
	}
	if limit <= 0 {
		limit = defaultEventPageSize
	}
	if limit > maxEventPageSize {
		limit = maxEventPageSize
	}

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

	return uow.AuctionEventRepository().ListByAuction(ctx, auctionID, afterSeq, limit)
}

func (s *AuctionService) stateMachine(uow UnitOfWork) service.AuctionStateMachine {
	return newStateMachine(uow, s.clock)
}

func (s *AuctionService) inTransaction(ctx context.Context, fn func(uow UnitOfWork) error) error {
	return runInUnitOfWork(ctx, s.uowFactory, fn)
}

// newStateMachine wires a state machine to the repositories of uow
func newStateMachine(uow UnitOfWork, clock service.Clock) service.AuctionStateMachine {
	recorder := service.NewEventRecorder(uow.AuctionEventRepository(), uow.EventBus())
	return service.NewAuctionStateMachine(uow.AuctionRepository(), ledgerFor(uow), recorder, clock)
}

// runInUnitOfWork commits when fn succeeds and rolls back otherwise
func runInUnitOfWork(ctx context.Context, factory UnitOfWorkFactory, fn func(uow UnitOfWork) error) error {
	uow := factory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := fn(uow); err != nil {
		return err
	}

	return uow.Commit()
}
