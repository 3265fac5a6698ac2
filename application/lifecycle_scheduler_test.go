package application

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"auctioneer/auctionerrors"
	"auctioneer/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(factory UnitOfWorkFactory, metrics Metrics) *LifecycleScheduler {
	return NewLifecycleScheduler(factory, func() time.Time { return testNow }, metrics, SchedulerConfig{
		Interval:          20 * time.Millisecond,
		TransitionTimeout: time.Second,
		BatchSize:         100,
		Concurrency:       4,
	})
}

type failureMetrics struct {
	noopMetrics
	failures atomic.Int32
}

func (m *failureMetrics) RecordTransitionFailure(context.Context, models.AuctionStatus) {
	m.failures.Add(1)
}

func TestLifecycleScheduler_SweepOnce(t *testing.T) {
	repos := newTestRepos()
	factory := newMockUnitOfWorkFactory(repos)
	metrics := &failureMetrics{}

	toStart := liveAuction(1)
	toStart.ID = uuid.New()
	toStart.Status = models.AuctionStatusScheduled
	toStart.StartTime = testNow.Add(-time.Minute)

	toEnd := liveAuction(3)
	toEnd.ID = uuid.New()
	toEnd.EndTime = testNow.Add(-time.Second)

	contended := liveAuction(5)
	contended.ID = uuid.New()
	contended.EndTime = testNow

	broken := uuid.New()

	repos.Auctions.On("ListDueTransitions", mock.Anything, testNow, 100).Return([]*models.DueTransition{
		{AuctionID: toStart.ID, Target: models.AuctionStatusLive},
		{AuctionID: toEnd.ID, Target: models.AuctionStatusEnded},
		{AuctionID: contended.ID, Target: models.AuctionStatusEnded},
		{AuctionID: broken, Target: models.AuctionStatusEnded},
	}, nil).Once()

	repos.Auctions.On("GetByID", mock.Anything, toStart.ID).Return(toStart, nil)
	repos.Auctions.On("GetByID", mock.Anything, toEnd.ID).Return(toEnd, nil)
	repos.Auctions.On("GetByID", mock.Anything, contended.ID).Return(contended, nil)
	repos.Auctions.On("GetByID", mock.Anything, broken).Return(nil, errors.New("connection reset"))

	repos.Auctions.On("UpdateVersioned", mock.Anything, mock.MatchedBy(func(u *models.AuctionUpdate) bool {
		return u.ID == toStart.ID && u.Status == models.AuctionStatusLive
	})).Return(nil)
	repos.Auctions.On("UpdateVersioned", mock.Anything, mock.MatchedBy(func(u *models.AuctionUpdate) bool {
		return u.ID == toEnd.ID && u.Status == models.AuctionStatusEnded
	})).Return(nil)
	repos.Auctions.On("UpdateVersioned", mock.Anything, mock.MatchedBy(func(u *models.AuctionUpdate) bool {
		return u.ID == contended.ID
	})).Return(auctionerrors.ErrVersionConflict)

	repos.Events.On("Append", mock.Anything, toStart.ID, "auction_started", mock.Anything).
		Return(&models.AuctionEvent{Seq: 1}, nil)
	repos.Events.On("Append", mock.Anything, toEnd.ID, "auction_ended", mock.Anything).
		Return(&models.AuctionEvent{Seq: 1}, nil)
	repos.Publisher.On("Publish", mock.Anything).Return()

	result, err := newTestScheduler(factory, metrics).SweepOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, SweepResult{Due: 4, Started: 1, Ended: 1, Skipped: 1, Failed: 1}, result)
	assert.Equal(t, int32(1), metrics.failures.Load())

	// Zero-bid auction ends without touching the ledger
	repos.Balances.AssertNotCalled(t, "DeductBlocked", mock.Anything, mock.Anything, mock.Anything)
	repos.Events.AssertExpectations(t)
}

func TestLifecycleScheduler_SweepListFailure(t *testing.T) {
	repos := newTestRepos()
	factory := newMockUnitOfWorkFactory(repos)
	repos.Auctions.On("ListDueTransitions", mock.Anything, testNow, 100).Return(nil, errors.New("db down"))

	_, err := newTestScheduler(factory, nil).TriggerSweep(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list due transitions")
}

func TestLifecycleScheduler_StartRunsImmediateSweep(t *testing.T) {
	repos := newTestRepos()
	factory := newMockUnitOfWorkFactory(repos)

	var sweeps atomic.Int32
	repos.Auctions.On("ListDueTransitions", mock.Anything, testNow, 100).
		Run(func(args mock.Arguments) { sweeps.Add(1) }).
		Return([]*models.DueTransition{}, nil)

	scheduler := NewLifecycleScheduler(factory, func() time.Time { return testNow }, nil, SchedulerConfig{
		Interval: time.Hour,
	})

	stop := scheduler.Start(context.Background())
	assert.Eventually(t, func() bool { return sweeps.Load() == 1 }, time.Second, 5*time.Millisecond)

	stop()
	// Stop is idempotent
	scheduler.Stop()
	assert.Equal(t, int32(1), sweeps.Load())
}

func TestLifecycleScheduler_PeriodicSweepsUntilContextCancelled(t *testing.T) {
	repos := newTestRepos()
	factory := newMockUnitOfWorkFactory(repos)

	var sweeps atomic.Int32
	repos.Auctions.On("ListDueTransitions", mock.Anything, testNow, 100).
		Run(func(args mock.Arguments) { sweeps.Add(1) }).
		Return([]*models.DueTransition{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	scheduler := newTestScheduler(factory, nil)
	stop := scheduler.Start(ctx)

	assert.Eventually(t, func() bool { return sweeps.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	stop()
}

func TestLifecycleScheduler_SlowTransitionDoesNotStallSweep(t *testing.T) {
	repos := newTestRepos()
	factory := newMockUnitOfWorkFactory(repos)
	metrics := &failureMetrics{}

	slow := uuid.New()
	toStart := liveAuction(1)
	toStart.ID = uuid.New()
	toStart.Status = models.AuctionStatusScheduled
	toStart.StartTime = testNow.Add(-time.Minute)

	// The hung auction is first so a shared deadline would starve the second
	repos.Auctions.On("ListDueTransitions", mock.Anything, testNow, 100).Return([]*models.DueTransition{
		{AuctionID: slow, Target: models.AuctionStatusLive},
		{AuctionID: toStart.ID, Target: models.AuctionStatusLive},
	}, nil).Once()

	repos.Auctions.On("GetByID", mock.Anything, slow).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded)
	repos.Auctions.On("GetByID", mock.Anything, toStart.ID).Return(toStart, nil)
	repos.Auctions.On("UpdateVersioned", mock.Anything, mock.MatchedBy(func(u *models.AuctionUpdate) bool {
		return u.ID == toStart.ID && u.Status == models.AuctionStatusLive
	})).Return(nil)
	repos.Events.On("Append", mock.Anything, toStart.ID, "auction_started", mock.Anything).
		Return(&models.AuctionEvent{Seq: 1}, nil)
	repos.Publisher.On("Publish", mock.Anything).Return()

	const timeout = 50 * time.Millisecond
	scheduler := NewLifecycleScheduler(factory, func() time.Time { return testNow }, metrics, SchedulerConfig{
		Interval:          time.Hour,
		TransitionTimeout: timeout,
		BatchSize:         100,
		Concurrency:       1,
	})

	begin := time.Now()
	result, err := scheduler.SweepOnce(context.Background())
	elapsed := time.Since(begin)

	require.NoError(t, err)
	assert.Equal(t, SweepResult{Due: 2, Started: 1, Failed: 1}, result)
	assert.Equal(t, int32(1), metrics.failures.Load())
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, 10*timeout, "sweep waited on the hung transition past its timeout")
	repos.Events.AssertExpectations(t)
}

func TestLifecycleScheduler_RestartsAfterContextCancelled(t *testing.T) {
	repos := newTestRepos()
	factory := newMockUnitOfWorkFactory(repos)

	var sweeps atomic.Int32
	repos.Auctions.On("ListDueTransitions", mock.Anything, testNow, 100).
		Run(func(args mock.Arguments) { sweeps.Add(1) }).
		Return([]*models.DueTransition{}, nil)

	scheduler := NewLifecycleScheduler(factory, func() time.Time { return testNow }, nil, SchedulerConfig{
		Interval: time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	scheduler.Start(ctx)
	require.Eventually(t, func() bool { return sweeps.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	// Once the loop has exited a new Start runs its own immediate sweep
	var stop func()
	require.Eventually(t, func() bool {
		if sweeps.Load() == 1 {
			stop = scheduler.Start(context.Background())
		}
		return sweeps.Load() == 2
	}, time.Second, 5*time.Millisecond)
	stop()
}
