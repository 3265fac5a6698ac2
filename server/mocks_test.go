package server

import (
	"context"

	"auctioneer/application"
	"auctioneer/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockAuctionAPI struct {
	mock.Mock
}

func (m *mockAuctionAPI) Create(ctx context.Context, req *models.CreateAuctionRequest) (*models.Auction, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Auction), args.Error(1)
}

func (m *mockAuctionAPI) Get(ctx context.Context, auctionID uuid.UUID) (*models.Auction, error) {
	args := m.Called(ctx, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Auction), args.Error(1)
}

func (m *mockAuctionAPI) Cancel(ctx context.Context, auctionID uuid.UUID, requesterID, reason string) (*models.Auction, error) {
	args := m.Called(ctx, auctionID, requesterID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Auction), args.Error(1)
}

func (m *mockAuctionAPI) ListEvents(ctx context.Context, auctionID uuid.UUID, afterSeq int64, limit int) ([]*models.AuctionEvent, error) {
	args := m.Called(ctx, auctionID, afterSeq, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AuctionEvent), args.Error(1)
}

type mockBiddingAPI struct {
	mock.Mock
}

func (m *mockBiddingAPI) PlaceBid(ctx context.Context, req *models.PlaceBidRequest) (*models.BidResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BidResult), args.Error(1)
}

func (m *mockBiddingAPI) ListBids(ctx context.Context, auctionID uuid.UUID) ([]*application.BidView, error) {
	args := m.Called(ctx, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*application.BidView), args.Error(1)
}

type mockBalanceAPI struct {
	mock.Mock
}

func (m *mockBalanceAPI) GetBalance(ctx context.Context, userID string) (*models.Balance, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Balance), args.Error(1)
}

func (m *mockBalanceAPI) History(ctx context.Context, userID string, limit int) ([]*models.BalanceHistory, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BalanceHistory), args.Error(1)
}

type mockSweepTrigger struct {
	mock.Mock
}

func (m *mockSweepTrigger) TriggerSweep(ctx context.Context) (application.SweepResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(application.SweepResult), args.Error(1)
}
