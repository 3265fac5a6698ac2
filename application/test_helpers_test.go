package application

import (
	"context"
	"sync"
	"time"

	"auctioneer/models"
	"auctioneer/service"

	"github.com/google/uuid"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// testRepos holds the mocks shared by every unit of work a factory creates
type testRepos struct {
	Auctions     *service.MockAuctionRepository
	Bids         *service.MockBidRepository
	Balances     *service.MockBalanceRepository
	Reservations *service.MockReservationRepository
	History      *service.MockBalanceHistoryRepository
	Events       *service.MockAuctionEventRepository
	Publisher    *service.MockEventPublisher
}

func newTestRepos() *testRepos {
	return &testRepos{
		Auctions:     new(service.MockAuctionRepository),
		Bids:         new(service.MockBidRepository),
		Balances:     new(service.MockBalanceRepository),
		Reservations: new(service.MockReservationRepository),
		History:      new(service.MockBalanceHistoryRepository),
		Events:       new(service.MockAuctionEventRepository),
		Publisher:    new(service.MockEventPublisher),
	}
}

// MockUnitOfWorkFactory hands out units of work backed by shared mocks and
// counts their lifecycle calls
type MockUnitOfWorkFactory struct {
	repos *testRepos

	mu        sync.Mutex
	created   int
	commits   int
	rollbacks int
	commitErr error
}

func newMockUnitOfWorkFactory(repos *testRepos) *MockUnitOfWorkFactory {
	return &MockUnitOfWorkFactory{repos: repos}
}

func (f *MockUnitOfWorkFactory) Create() UnitOfWork {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	return &MockUnitOfWork{factory: f}
}

func (f *MockUnitOfWorkFactory) counts() (created, commits, rollbacks int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created, f.commits, f.rollbacks
}

// MockUnitOfWork implements UnitOfWork over the factory's mocks
type MockUnitOfWork struct {
	factory *MockUnitOfWorkFactory
	active  bool
}

func (u *MockUnitOfWork) Begin(ctx context.Context) error {
	u.active = true
	return nil
}

func (u *MockUnitOfWork) Commit() error {
	u.factory.mu.Lock()
	defer u.factory.mu.Unlock()
	if u.factory.commitErr != nil {
		return u.factory.commitErr
	}
	u.active = false
	u.factory.commits++
	return nil
}

func (u *MockUnitOfWork) Rollback() error {
	if !u.active {
		return nil
	}
	u.active = false
	u.factory.mu.Lock()
	defer u.factory.mu.Unlock()
	u.factory.rollbacks++
	return nil
}

func (u *MockUnitOfWork) AuctionRepository() service.AuctionRepository {
	return u.factory.repos.Auctions
}

func (u *MockUnitOfWork) BidRepository() service.BidRepository {
	return u.factory.repos.Bids
}

func (u *MockUnitOfWork) BalanceRepository() service.BalanceRepository {
	return u.factory.repos.Balances
}

func (u *MockUnitOfWork) ReservationRepository() service.ReservationRepository {
	return u.factory.repos.Reservations
}

func (u *MockUnitOfWork) BalanceHistoryRepository() service.BalanceHistoryRepository {
	return u.factory.repos.History
}

func (u *MockUnitOfWork) AuctionEventRepository() service.AuctionEventRepository {
	return u.factory.repos.Events
}

func (u *MockUnitOfWork) EventBus() service.EventPublisher {
	return u.factory.repos.Publisher
}

func liveAuction(version int64) *models.Auction {
	return &models.Auction{
		ID:           uuid.MustParse("7d7e3c4e-5a0f-4b8a-9a55-6c1f1d2b3e01"),
		SellerID:     "seller-1",
		StartPrice:   100,
		CurrentPrice: 100,
		MinIncrement: 10,
		StartTime:    testNow.Add(-time.Hour),
		EndTime:      testNow.Add(time.Hour),
		Status:       models.AuctionStatusLive,
		Version:      version,
	}
}
