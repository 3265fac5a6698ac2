package application

import (
	"context"

	"auctioneer/service"
)

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	AuctionRepository() service.AuctionRepository
	BidRepository() service.BidRepository
	BalanceRepository() service.BalanceRepository
	ReservationRepository() service.ReservationRepository
	BalanceHistoryRepository() service.BalanceHistoryRepository
	AuctionEventRepository() service.AuctionEventRepository
	EventBus() service.EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	// Create creates a new UnitOfWork instance
	Create() UnitOfWork
}
