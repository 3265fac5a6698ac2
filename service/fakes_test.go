package service

import (
	"context"
	"sync"
	"time"

	"auctioneer/auctionerrors"
	"auctioneer/events"
	"auctioneer/models"

	"github.com/google/uuid"
)

// In-memory repositories used by ledger property tests

type reservationKey struct {
	userID    string
	auctionID uuid.UUID
}

type fakeBalanceStore struct {
	mu           sync.Mutex
	balances     map[string]*models.Balance
	reservations map[reservationKey]*models.BalanceReservation
	history      []*models.BalanceHistory
}

func newFakeBalanceStore() *fakeBalanceStore {
	return &fakeBalanceStore{
		balances:     make(map[string]*models.Balance),
		reservations: make(map[reservationKey]*models.BalanceReservation),
	}
}

func (s *fakeBalanceStore) ledger() BalanceLedger {
	return NewBalanceLedger(&fakeBalanceRepo{s}, &fakeReservationRepo{s}, &fakeHistoryRepo{s})
}

func (s *fakeBalanceStore) snapshot(userID string) models.Balance {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.balances[userID]; ok {
		return *b
	}
	return models.Balance{UserID: userID}
}

type fakeBalanceRepo struct{ s *fakeBalanceStore }

func (r *fakeBalanceRepo) GetByUserID(ctx context.Context, userID string) (*models.Balance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.balances[userID]
	if !ok {
		return nil, nil
	}
	copied := *b
	return &copied, nil
}

func (r *fakeBalanceRepo) Credit(ctx context.Context, userID string, amount int64) (*models.Balance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.balances[userID]
	if !ok {
		b = &models.Balance{UserID: userID}
		r.s.balances[userID] = b
	}
	b.Available += amount
	b.Version++
	copied := *b
	return &copied, nil
}

func (r *fakeBalanceRepo) Block(ctx context.Context, userID string, delta int64) (*models.Balance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.balances[userID]
	if !ok || b.Available < delta {
		return nil, nil
	}
	b.Available -= delta
	b.Blocked += delta
	b.Version++
	copied := *b
	return &copied, nil
}

func (r *fakeBalanceRepo) Unblock(ctx context.Context, userID string, amount int64) (*models.Balance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.balances[userID]
	if !ok || b.Blocked < amount {
		return nil, nil
	}
	b.Blocked -= amount
	b.Available += amount
	b.Version++
	copied := *b
	return &copied, nil
}

func (r *fakeBalanceRepo) DeductBlocked(ctx context.Context, userID string, amount int64) (*models.Balance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.balances[userID]
	if !ok || b.Blocked < amount {
		return nil, nil
	}
	b.Blocked -= amount
	b.Version++
	copied := *b
	return &copied, nil
}

type fakeReservationRepo struct{ s *fakeBalanceStore }

func (r *fakeReservationRepo) GetForUpdate(ctx context.Context, userID string, auctionID uuid.UUID) (*models.BalanceReservation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	res, ok := r.s.reservations[reservationKey{userID, auctionID}]
	if !ok {
		return nil, nil
	}
	copied := *res
	return &copied, nil
}

func (r *fakeReservationRepo) Upsert(ctx context.Context, reservation *models.BalanceReservation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	copied := *reservation
	r.s.reservations[reservationKey{reservation.UserID, reservation.AuctionID}] = &copied
	return nil
}

func (r *fakeReservationRepo) Delete(ctx context.Context, userID string, auctionID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.reservations, reservationKey{userID, auctionID})
	return nil
}

func (r *fakeReservationRepo) ListByUser(ctx context.Context, userID string) ([]*models.BalanceReservation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.BalanceReservation
	for key, res := range r.s.reservations {
		if key.userID == userID {
			copied := *res
			out = append(out, &copied)
		}
	}
	return out, nil
}

type fakeHistoryRepo struct{ s *fakeBalanceStore }

func (r *fakeHistoryRepo) Record(ctx context.Context, history *models.BalanceHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.history = append(r.s.history, history)
	return nil
}

func (r *fakeHistoryRepo) GetByUser(ctx context.Context, userID string, limit int) ([]*models.BalanceHistory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.BalanceHistory
	for i := len(r.s.history) - 1; i >= 0 && len(out) < limit; i-- {
		if r.s.history[i].UserID == userID {
			out = append(out, r.s.history[i])
		}
	}
	return out, nil
}

// In-memory auction side used by bidding scenarios

type fakeAuctionRepo struct {
	mu       sync.Mutex
	auctions map[uuid.UUID]*models.Auction
}

func newFakeAuctionRepo(auctions ...*models.Auction) *fakeAuctionRepo {
	r := &fakeAuctionRepo{auctions: make(map[uuid.UUID]*models.Auction)}
	for _, a := range auctions {
		copied := *a
		r.auctions[a.ID] = &copied
	}
	return r
}

func (r *fakeAuctionRepo) Create(ctx context.Context, auction *models.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *auction
	r.auctions[auction.ID] = &copied
	return nil
}

func (r *fakeAuctionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.auctions[id]
	if !ok {
		return nil, nil
	}
	copied := *a
	return &copied, nil
}

func (r *fakeAuctionRepo) UpdateVersioned(ctx context.Context, update *models.AuctionUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.auctions[update.ID]
	if !ok || a.Version != update.ExpectedVersion {
		return auctionerrors.ErrVersionConflict
	}
	update.Apply(a)
	return nil
}

func (r *fakeAuctionRepo) ListDueTransitions(ctx context.Context, now time.Time, limit int) ([]*models.DueTransition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.DueTransition
	for _, a := range r.auctions {
		switch {
		case a.IsStartDue(now):
			out = append(out, &models.DueTransition{AuctionID: a.ID, Target: models.AuctionStatusLive})
		case a.IsEndDue(now):
			out = append(out, &models.DueTransition{AuctionID: a.ID, Target: models.AuctionStatusEnded})
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeBidRepo struct {
	mu   sync.Mutex
	bids []*models.Bid
}

func (r *fakeBidRepo) Create(ctx context.Context, bid *models.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *bid
	r.bids = append(r.bids, &copied)
	return nil
}

func (r *fakeBidRepo) ListByAuction(ctx context.Context, auctionID uuid.UUID) ([]*models.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Bid
	for _, b := range r.bids {
		if b.AuctionID == auctionID {
			out = append(out, b)
		}
	}
	return out, nil
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *fakeRecorder) Record(ctx context.Context, event events.Event) (*models.AuctionEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return &models.AuctionEvent{AuctionID: event.Auction(), Seq: int64(len(r.events)), EventType: string(event.Type())}, nil
}

func (r *fakeRecorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type())
	}
	return out
}
