package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"auctioneer/auctionerrors"
	"auctioneer/events"
	"auctioneer/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestStateMachine(m *TestMocks) AuctionStateMachine {
	return NewAuctionStateMachine(m.AuctionRepo, m.Ledger, m.Recorder, FixedClock(testNow))
}

func validCreateRequest() *models.CreateAuctionRequest {
	return &models.CreateAuctionRequest{
		SellerID:     TestSellerID,
		Title:        "  Vintage camera  ",
		StartPrice:   TestStartPrice,
		MinIncrement: TestIncrement,
		StartTime:    testNow.Add(time.Minute),
		EndTime:      testNow.Add(time.Hour),
	}
}

func TestAuctionStateMachine_Create(t *testing.T) {
	ctx := context.Background()
	m := NewTestMocks()
	m.AuctionRepo.On("Create", ctx, mock.MatchedBy(func(a *models.Auction) bool {
		return a.Status == models.AuctionStatusScheduled && a.Version == 1 &&
			a.CurrentPrice == TestStartPrice && a.Title == "Vintage camera"
	})).Return(nil)

	auction, err := newTestStateMachine(m).Create(ctx, validCreateRequest())

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, auction.ID)
	assert.Nil(t, auction.CurrentWinnerID)
	m.AssertAllExpectations(t)
}

func TestAuctionStateMachine_CreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *models.CreateAuctionRequest)
	}{
		{"missing seller", func(r *models.CreateAuctionRequest) { r.SellerID = " " }},
		{"title too long", func(r *models.CreateAuctionRequest) { r.Title = strings.Repeat("x", maxTitleLength+1) }},
		{"zero start price", func(r *models.CreateAuctionRequest) { r.StartPrice = 0 }},
		{"negative increment", func(r *models.CreateAuctionRequest) { r.MinIncrement = -1 }},
		{"missing start", func(r *models.CreateAuctionRequest) { r.StartTime = time.Time{} }},
		{"end before start", func(r *models.CreateAuctionRequest) { r.EndTime = r.StartTime.Add(-time.Second) }},
		{"end equals start", func(r *models.CreateAuctionRequest) { r.EndTime = r.StartTime }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewTestMocks()
			req := validCreateRequest()
			tt.mutate(req)

			_, err := newTestStateMachine(m).Create(context.Background(), req)

			assert.ErrorIs(t, err, auctionerrors.ErrValidation)
			m.AuctionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestAuctionStateMachine_Start(t *testing.T) {
	tests := []struct {
		name     string
		auction  *models.Auction
		conflict bool
		wantErr  error
	}{
		{
			name: "due scheduled auction goes live",
			auction: NewAuctionBuilder().WithStatus(models.AuctionStatusScheduled).
				WithWindow(testNow, testNow.Add(time.Hour)).WithVersion(1).Build(),
		},
		{
			name: "start time not reached",
			auction: NewAuctionBuilder().WithStatus(models.AuctionStatusScheduled).
				WithWindow(testNow.Add(time.Second), testNow.Add(time.Hour)).WithVersion(1).Build(),
			wantErr: auctionerrors.ErrTransitionNotDue,
		},
		{
			name:    "already live",
			auction: NewAuctionBuilder().Build(),
			wantErr: auctionerrors.ErrInvalidTransition,
		},
		{
			name:    "cancelled",
			auction: NewAuctionBuilder().WithStatus(models.AuctionStatusCancelled).Build(),
			wantErr: auctionerrors.ErrInvalidTransition,
		},
		{
			name: "lost race to another writer",
			auction: NewAuctionBuilder().WithStatus(models.AuctionStatusScheduled).
				WithWindow(testNow.Add(-time.Minute), testNow.Add(time.Hour)).WithVersion(1).Build(),
			conflict: true,
			wantErr:  auctionerrors.ErrVersionConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			m := NewTestMocks()
			m.AuctionRepo.On("GetByID", ctx, tt.auction.ID).Return(tt.auction, nil)

			if tt.wantErr == nil || tt.conflict {
				var updateErr error
				if tt.conflict {
					updateErr = auctionerrors.ErrVersionConflict
				}
				m.AuctionRepo.On("UpdateVersioned", ctx, mock.MatchedBy(func(u *models.AuctionUpdate) bool {
					return u.Status == models.AuctionStatusLive && u.ExpectedVersion == 1
				})).Return(updateErr)
			}
			if tt.wantErr == nil {
				m.Recorder.On("Record", ctx, mock.MatchedBy(func(e events.Event) bool {
					_, ok := e.(events.AuctionStartedEvent)
					return ok
				})).Return(&models.AuctionEvent{Seq: 1}, nil)
			}

			auction, err := newTestStateMachine(m).Start(ctx, tt.auction.ID)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				m.Recorder.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				assert.Equal(t, models.AuctionStatusLive, auction.Status)
				assert.Equal(t, int64(2), auction.Version)
			}
			m.AssertAllExpectations(t)
		})
	}
}

func TestAuctionStateMachine_EndWithWinnerCommits(t *testing.T) {
	ctx := context.Background()
	m := NewTestMocks()
	auction := NewAuctionBuilder().
		WithWindow(testNow.Add(-time.Hour), testNow).
		WithLeader(TestBobID, 135, 3).
		WithVersion(5).
		Build()
	winningBid := *auction.CurrentBidID

	m.AuctionRepo.On("GetByID", ctx, auction.ID).Return(auction, nil)
	m.AuctionRepo.On("UpdateVersioned", ctx, mock.MatchedBy(func(u *models.AuctionUpdate) bool {
		return u.Status == models.AuctionStatusEnded && u.ExpectedVersion == 5 && u.CurrentPrice == 135
	})).Return(nil)
	m.Ledger.On("Commit", ctx, TestBobID, auction.ID).Return(int64(135), nil)
	m.Recorder.On("Record", ctx, mock.MatchedBy(func(e events.Event) bool {
		ended, ok := e.(events.AuctionEndedEvent)
		return ok && !ended.NoWinner && *ended.WinnerID == TestBobID &&
			*ended.WinningBidID == winningBid && ended.FinalPrice == 135 && ended.BidCount == 3
	})).Return(&models.AuctionEvent{Seq: 5}, nil)

	ended, err := newTestStateMachine(m).End(ctx, auction.ID)

	require.NoError(t, err)
	assert.Equal(t, models.AuctionStatusEnded, ended.Status)
	assert.Equal(t, int64(6), ended.Version)
	m.AssertAllExpectations(t)
}

func TestAuctionStateMachine_EndWithoutBidsHasNoWinner(t *testing.T) {
	ctx := context.Background()
	m := NewTestMocks()
	auction := NewAuctionBuilder().WithWindow(testNow.Add(-time.Hour), testNow.Add(-time.Second)).Build()

	m.AuctionRepo.On("GetByID", ctx, auction.ID).Return(auction, nil)
	m.AuctionRepo.On("UpdateVersioned", ctx, mock.Anything).Return(nil)
	m.Recorder.On("Record", ctx, mock.MatchedBy(func(e events.Event) bool {
		ended, ok := e.(events.AuctionEndedEvent)
		return ok && ended.NoWinner && ended.WinnerID == nil && ended.FinalPrice == 0
	})).Return(&models.AuctionEvent{Seq: 2}, nil)

	_, err := newTestStateMachine(m).End(ctx, auction.ID)

	require.NoError(t, err)
	m.Ledger.AssertNotCalled(t, "Commit", mock.Anything, mock.Anything, mock.Anything)
	m.AssertAllExpectations(t)
}

func TestAuctionStateMachine_EndBeforeEndTimeIsNotDue(t *testing.T) {
	ctx := context.Background()
	m := NewTestMocks()
	auction := NewAuctionBuilder().Build()
	m.AuctionRepo.On("GetByID", ctx, auction.ID).Return(auction, nil)

	_, err := newTestStateMachine(m).End(ctx, auction.ID)

	assert.ErrorIs(t, err, auctionerrors.ErrTransitionNotDue)
	m.AuctionRepo.AssertNotCalled(t, "UpdateVersioned", mock.Anything, mock.Anything)
}

func TestAuctionStateMachine_CancelLiveReleasesLeader(t *testing.T) {
	ctx := context.Background()
	m := NewTestMocks()
	auction := NewAuctionBuilder().WithLeader(TestAliceID, 110, 1).Build()

	m.AuctionRepo.On("GetByID", ctx, auction.ID).Return(auction, nil)
	m.AuctionRepo.On("UpdateVersioned", ctx, mock.MatchedBy(func(u *models.AuctionUpdate) bool {
		return u.Status == models.AuctionStatusCancelled && *u.CancelReason == "item damaged"
	})).Return(nil)
	m.Ledger.On("Release", ctx, TestAliceID, auction.ID).Return(int64(110), nil)
	m.Recorder.On("Record", ctx, mock.MatchedBy(func(e events.Event) bool {
		cancelled, ok := e.(events.AuctionCancelledEvent)
		return ok && cancelled.PreviousStatus == models.AuctionStatusLive &&
			*cancelled.ReleasedBidderID == TestAliceID && cancelled.ReleasedAmount == 110
	})).Return(&models.AuctionEvent{Seq: 3}, nil)

	cancelled, err := newTestStateMachine(m).Cancel(ctx, auction.ID, "  item damaged ")

	require.NoError(t, err)
	assert.Equal(t, models.AuctionStatusCancelled, cancelled.Status)
	assert.Equal(t, "item damaged", *cancelled.CancelReason)
	m.AssertAllExpectations(t)
}

func TestAuctionStateMachine_CancelScheduledUsesDefaultReason(t *testing.T) {
	ctx := context.Background()
	m := NewTestMocks()
	auction := NewAuctionBuilder().WithStatus(models.AuctionStatusScheduled).WithVersion(1).Build()

	m.AuctionRepo.On("GetByID", ctx, auction.ID).Return(auction, nil)
	m.AuctionRepo.On("UpdateVersioned", ctx, mock.MatchedBy(func(u *models.AuctionUpdate) bool {
		return *u.CancelReason == defaultCancelReason
	})).Return(nil)
	m.Recorder.On("Record", ctx, mock.MatchedBy(func(e events.Event) bool {
		cancelled, ok := e.(events.AuctionCancelledEvent)
		return ok && cancelled.ReleasedBidderID == nil
	})).Return(&models.AuctionEvent{Seq: 1}, nil)

	_, err := newTestStateMachine(m).Cancel(ctx, auction.ID, "")

	require.NoError(t, err)
	m.Ledger.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything)
	m.AssertAllExpectations(t)
}

func TestAuctionStateMachine_CancelTerminalIsInvalid(t *testing.T) {
	for _, status := range []models.AuctionStatus{models.AuctionStatusEnded, models.AuctionStatusCancelled} {
		t.Run(string(status), func(t *testing.T) {
			ctx := context.Background()
			m := NewTestMocks()
			auction := NewAuctionBuilder().WithStatus(status).Build()
			m.AuctionRepo.On("GetByID", ctx, auction.ID).Return(auction, nil)

			_, err := newTestStateMachine(m).Cancel(ctx, auction.ID, "too late")

			assert.ErrorIs(t, err, auctionerrors.ErrInvalidTransition)
			m.AuctionRepo.AssertNotCalled(t, "UpdateVersioned", mock.Anything, mock.Anything)
		})
	}
}

func TestAuctionStateMachine_CancelReasonTooLong(t *testing.T) {
	m := NewTestMocks()
	_, err := newTestStateMachine(m).Cancel(context.Background(), uuid.New(), strings.Repeat("r", maxCancelReasonLength+1))
	assert.ErrorIs(t, err, auctionerrors.ErrValidation)
}

func TestAuctionStateMachine_UnknownAuction(t *testing.T) {
	ctx := context.Background()
	m := NewTestMocks()
	id := uuid.New()
	m.AuctionRepo.On("GetByID", ctx, id).Return(nil, nil)

	sm := newTestStateMachine(m)
	_, err := sm.Start(ctx, id)
	assert.ErrorIs(t, err, auctionerrors.ErrAuctionNotFound)
	_, err = sm.End(ctx, id)
	assert.ErrorIs(t, err, auctionerrors.ErrAuctionNotFound)
	_, err = sm.Cancel(ctx, id, "gone")
	assert.ErrorIs(t, err, auctionerrors.ErrAuctionNotFound)
}
