package service

import (
	"context"
	"encoding/json"
	"time"

	"auctioneer/events"
	"auctioneer/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockAuctionRepository is a mock implementation of AuctionRepository
type MockAuctionRepository struct {
	mock.Mock
}

func (m *MockAuctionRepository) Create(ctx context.Context, auction *models.Auction) error {
	args := m.Called(ctx, auction)
	return args.Error(0)
}

func (m *MockAuctionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Auction), args.Error(1)
}

func (m *MockAuctionRepository) UpdateVersioned(ctx context.Context, update *models.AuctionUpdate) error {
	args := m.Called(ctx, update)
	return args.Error(0)
}

func (m *MockAuctionRepository) ListDueTransitions(ctx context.Context, now time.Time, limit int) ([]*models.DueTransition, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DueTransition), args.Error(1)
}

// MockBidRepository is a mock implementation of BidRepository
type MockBidRepository struct {
	mock.Mock
}

func (m *MockBidRepository) Create(ctx context.Context, bid *models.Bid) error {
	args := m.Called(ctx, bid)
	return args.Error(0)
}

func (m *MockBidRepository) ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*models.Bid, error) {
	args := m.Called(ctx, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Bid), args.Error(1)
}

// MockBalanceRepository is a mock implementation of BalanceRepository
type MockBalanceRepository struct {
	mock.Mock
}

func (m *MockBalanceRepository) GetByUserID(ctx context.Context, userID string) (*models.Balance, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Balance), args.Error(1)
}

func (m *MockBalanceRepository) Credit(ctx context.Context, userID string, amount int64) (*models.Balance, error) {
	args := m.Called(ctx, userID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Balance), args.Error(1)
}

func (m *MockBalanceRepository) Block(ctx context.Context, userID string, delta int64) (*models.Balance, error) {
	args := m.Called(ctx, userID, delta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Balance), args.Error(1)
}

func (m *MockBalanceRepository) Unblock(ctx context.Context, userID string, amount int64) (*models.Balance, error) {
	args := m.Called(ctx, userID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Balance), args.Error(1)
}

func (m *MockBalanceRepository) DeductBlocked(ctx context.Context, userID string, amount int64) (*models.Balance, error) {
	args := m.Called(ctx, userID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Balance), args.Error(1)
}

// MockReservationRepository is a mock implementation of ReservationRepository
type MockReservationRepository struct {
	mock.Mock
}

func (m *MockReservationRepository) GetForUpdate(ctx context.Context, userID string, auctionID uuid.UUID) (*models.BalanceReservation, error) {
	args := m.Called(ctx, userID, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BalanceReservation), args.Error(1)
}

func (m *MockReservationRepository) Upsert(ctx context.Context, reservation *models.BalanceReservation) error {
	args := m.Called(ctx, reservation)
	return args.Error(0)
}

func (m *MockReservationRepository) Delete(ctx context.Context, userID string, auctionID uuid.UUID) error {
	args := m.Called(ctx, userID, auctionID)
	return args.Error(0)
}

func (m *MockReservationRepository) ListByUser(ctx context.Context, userID string) ([]*models.BalanceReservation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BalanceReservation), args.Error(1)
}

// MockBalanceHistoryRepository is a mock implementation of BalanceHistoryRepository
type MockBalanceHistoryRepository struct {
	mock.Mock
}

func (m *MockBalanceHistoryRepository) Record(ctx context.Context, history *models.BalanceHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

func (m *MockBalanceHistoryRepository) GetByUser(ctx context.Context, userID string, limit int) ([]*models.BalanceHistory, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BalanceHistory), args.Error(1)
}

// MockAuctionEventRepository is a mock implementation of AuctionEventRepository
type MockAuctionEventRepository struct {
	mock.Mock
}

func (m *MockAuctionEventRepository) Append(ctx context.Context, auctionID uuid.UUID, eventType string, payload json.RawMessage) (*models.AuctionEvent, error) {
	args := m.Called(ctx, auctionID, eventType, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuctionEvent), args.Error(1)
}

func (m *MockAuctionEventRepository) ListByAuction(ctx context.Context, auctionID uuid.UUID, afterSeq int64, limit int) ([]*models.AuctionEvent, error) {
	args := m.Called(ctx, auctionID, afterSeq, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AuctionEvent), args.Error(1)
}

// MockEventOutbox is a mock implementation of EventOutbox
type MockEventOutbox struct {
	mock.Mock
}

func (m *MockEventOutbox) RelayPending(ctx context.Context, limit int, publish func(ctx context.Context, event *models.AuctionEvent) error) (int, int, error) {
	args := m.Called(ctx, limit, publish)
	return args.Int(0), args.Int(1), args.Error(2)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockBalanceLedger is a mock implementation of BalanceLedger
type MockBalanceLedger struct {
	mock.Mock
}

func (m *MockBalanceLedger) Reserve(ctx context.Context, userID string, auctionID uuid.UUID, amount int64) error {
	args := m.Called(ctx, userID, auctionID, amount)
	return args.Error(0)
}

func (m *MockBalanceLedger) Release(ctx context.Context, userID string, auctionID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID, auctionID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBalanceLedger) Commit(ctx context.Context, userID string, auctionID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID, auctionID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBalanceLedger) Deposit(ctx context.Context, userID string, amount int64) (*models.Balance, error) {
	args := m.Called(ctx, userID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Balance), args.Error(1)
}

func (m *MockBalanceLedger) GetBalance(ctx context.Context, userID string) (*models.Balance, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Balance), args.Error(1)
}

// MockEventRecorder is a mock implementation of EventRecorder
type MockEventRecorder struct {
	mock.Mock
}

func (m *MockEventRecorder) Record(ctx context.Context, event events.Event) (*models.AuctionEvent, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuctionEvent), args.Error(1)
}
