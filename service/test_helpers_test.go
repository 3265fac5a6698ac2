package service

import (
	"testing"
	"time"

	"auctioneer/models"

	"github.com/google/uuid"
)

// Test IDs and amounts
const (
	TestSellerID    = "seller-1"
	TestAliceID     = "alice"
	TestBobID       = "bob"
	TestCarolID     = "carol"
	TestStartPrice  = 100
	TestIncrement   = 10
	TestUserBalance = 1000
)

// testNow is the pinned clock used across service tests
var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// TestMocks holds all mock dependencies for easy access
type TestMocks struct {
	AuctionRepo     *MockAuctionRepository
	BidRepo         *MockBidRepository
	BalanceRepo     *MockBalanceRepository
	ReservationRepo *MockReservationRepository
	HistoryRepo     *MockBalanceHistoryRepository
	EventRepo       *MockAuctionEventRepository
	EventPublisher  *MockEventPublisher
	Ledger          *MockBalanceLedger
	Recorder        *MockEventRecorder
}

// NewTestMocks creates a new set of mocks
func NewTestMocks() *TestMocks {
	return &TestMocks{
		AuctionRepo:     new(MockAuctionRepository),
		BidRepo:         new(MockBidRepository),
		BalanceRepo:     new(MockBalanceRepository),
		ReservationRepo: new(MockReservationRepository),
		HistoryRepo:     new(MockBalanceHistoryRepository),
		EventRepo:       new(MockAuctionEventRepository),
		EventPublisher:  new(MockEventPublisher),
		Ledger:          new(MockBalanceLedger),
		Recorder:        new(MockEventRecorder),
	}
}

// AssertAllExpectations asserts all mock expectations
func (m *TestMocks) AssertAllExpectations(t *testing.T) {
	m.AuctionRepo.AssertExpectations(t)
	m.BidRepo.AssertExpectations(t)
	m.BalanceRepo.AssertExpectations(t)
	m.ReservationRepo.AssertExpectations(t)
	m.HistoryRepo.AssertExpectations(t)
	m.EventRepo.AssertExpectations(t)
	m.EventPublisher.AssertExpectations(t)
	m.Ledger.AssertExpectations(t)
	m.Recorder.AssertExpectations(t)
}

// AuctionBuilder builds auctions for test scenarios fluently
type AuctionBuilder struct {
	auction *models.Auction
}

// NewAuctionBuilder starts from a live auction at the start price, opened an hour ago
func NewAuctionBuilder() *AuctionBuilder {
	return &AuctionBuilder{
		auction: &models.Auction{
			ID:           uuid.New(),
			SellerID:     TestSellerID,
			Title:        "Test lot",
			StartPrice:   TestStartPrice,
			CurrentPrice: TestStartPrice,
			MinIncrement: TestIncrement,
			StartTime:    testNow.Add(-time.Hour),
			EndTime:      testNow.Add(time.Hour),
			Status:       models.AuctionStatusLive,
			Version:      2,
		},
	}
}

// WithStatus sets the lifecycle status
func (b *AuctionBuilder) WithStatus(status models.AuctionStatus) *AuctionBuilder {
	b.auction.Status = status
	return b
}

// WithWindow sets start and end time
func (b *AuctionBuilder) WithWindow(start, end time.Time) *AuctionBuilder {
	b.auction.StartTime = start
	b.auction.EndTime = end
	return b
}

// WithLeader sets the current winning bid
func (b *AuctionBuilder) WithLeader(bidderID string, price int64, bidCount int64) *AuctionBuilder {
	bidID := uuid.New()
	b.auction.CurrentWinnerID = &bidderID
	b.auction.CurrentBidID = &bidID
	b.auction.CurrentPrice = price
	b.auction.BidCount = bidCount
	return b
}

// WithVersion sets the version
func (b *AuctionBuilder) WithVersion(version int64) *AuctionBuilder {
	b.auction.Version = version
	return b
}

// Build returns a copy of the auction so a scenario can reuse the builder
func (b *AuctionBuilder) Build() *models.Auction {
	auction := *b.auction
	return &auction
}

func strPtr(s string) *string {
	return &s
}
