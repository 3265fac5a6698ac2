package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"auctioneer/auctionerrors"
	"auctioneer/models"
	"auctioneer/service"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// SchedulerConfig controls sweep cadence and fan-out
type SchedulerConfig struct {
	Interval          time.Duration
	TransitionTimeout time.Duration
	BatchSize         int
	Concurrency       int
}

// SweepResult summarizes one sweep
type SweepResult struct {
	Due     int `json:"due"`
	Started int `json:"started"`
	Ended   int `json:"ended"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// LifecycleScheduler advances auctions through time. Several instances may
// sweep at once: a duplicate transition fails its version guard and is skipped.
type LifecycleScheduler struct {
	uowFactory UnitOfWorkFactory
	clock      service.Clock
	metrics    Metrics
	cfg        SchedulerConfig

	sweepMu sync.Mutex

	mu       sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
}

// NewLifecycleScheduler creates a scheduler; call Start to begin sweeping
func NewLifecycleScheduler(uowFactory UnitOfWorkFactory, clock service.Clock, metrics Metrics, cfg SchedulerConfig) *LifecycleScheduler {
	if clock == nil {
		clock = service.SystemClock
	}
	if metrics == nil {
		metrics = NoopMetrics()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.TransitionTimeout <= 0 {
		cfg.TransitionTimeout = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &LifecycleScheduler{
		uowFactory: uowFactory,
		clock:      clock,
		metrics:    metrics,
		cfg:        cfg,
	}
}

// Start runs one sweep immediately, then sweeps on every interval until ctx
// is cancelled or Stop is called. Returns the stop function.
func (s *LifecycleScheduler) Start(ctx context.Context) func() {
	s.mu.Lock()
	if s.stopChan != nil {
		s.mu.Unlock()
		log.Warn("Lifecycle scheduler already running")
		return s.Stop
	}
	stopChan := make(chan struct{})
	done := make(chan struct{})
	s.stopChan = stopChan
	s.done = done
	s.mu.Unlock()

	ticker := time.NewTicker(s.cfg.Interval)

	go func() {
		defer close(done)
		defer s.clearRunning(done)
		defer ticker.Stop()

		log.WithFields(log.Fields{
			"interval":    s.cfg.Interval,
			"batchSize":   s.cfg.BatchSize,
			"concurrency": s.cfg.Concurrency,
		}).Info("Lifecycle scheduler started")

		// Catch transitions missed while the process was down
		s.sweepAndLog(ctx)

		for {
			select {
			case <-ctx.Done():
				log.Info("Lifecycle scheduler shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Lifecycle scheduler shutting down (stop requested)...")
				return
			case <-ticker.C:
				s.sweepAndLog(ctx)
			}
		}
	}()

	return s.Stop
}

// clearRunning forgets a loop that exited on its own so a later Start can run
func (s *LifecycleScheduler) clearRunning(done chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == done {
		s.stopChan, s.done = nil, nil
	}
}

// Stop halts the periodic loop and waits for an in-flight sweep to finish
func (s *LifecycleScheduler) Stop() {
	s.mu.Lock()
	stopChan, done := s.stopChan, s.done
	s.stopChan, s.done = nil, nil
	s.mu.Unlock()

	if stopChan == nil {
		return
	}
	close(stopChan)
	<-done
}

// TriggerSweep runs a sweep immediately, independent of the periodic loop
func (s *LifecycleScheduler) TriggerSweep(ctx context.Context) (SweepResult, error) {
	return s.SweepOnce(ctx)
}

func (s *LifecycleScheduler) sweepAndLog(ctx context.Context) {
	result, err := s.SweepOnce(ctx)
	if err != nil {
		log.WithError(err).Error("Lifecycle sweep failed")
		return
	}
	if result.Due > 0 {
		log.WithFields(log.Fields{
			"due":     result.Due,
			"started": result.Started,
			"ended":   result.Ended,
			"skipped": result.Skipped,
			"failed":  result.Failed,
		}).Info("Completed lifecycle sweep")
	}
}

// SweepOnce finds due transitions and applies each in its own unit of work.
// Per-auction failures are counted and logged; only a failure to list due
// auctions is returned.
func (s *LifecycleScheduler) SweepOnce(ctx context.Context) (SweepResult, error) {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	var result SweepResult

	due, err := s.listDue(ctx)
	if err != nil {
		return result, err
	}
	result.Due = len(due)
	if len(due) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Concurrency)

	for _, transition := range due {
		g.Go(func() error {
			outcome := s.apply(ctx, transition)

			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case transitionStarted:
				result.Started++
			case transitionEnded:
				result.Ended++
			case transitionSkipped:
				result.Skipped++
			default:
				result.Failed++
			}
			return nil
		})
	}
	_ = g.Wait()

	return result, nil
}

func (s *LifecycleScheduler) listDue(ctx context.Context) ([]*models.DueTransition, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	due, err := uow.AuctionRepository().ListDueTransitions(ctx, s.clock(), s.cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list due transitions: %w", err)
	}
	return due, nil
}

type transitionOutcome int

const (
	transitionFailed transitionOutcome = iota
	transitionStarted
	transitionEnded
	transitionSkipped
)

func (s *LifecycleScheduler) apply(ctx context.Context, transition *models.DueTransition) transitionOutcome {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.TransitionTimeout)
	defer cancel()

	err := runInUnitOfWork(ctx, s.uowFactory, func(uow UnitOfWork) error {
		sm := newStateMachine(uow, s.clock)
		var err error
		switch transition.Target {
		case models.AuctionStatusLive:
			_, err = sm.Start(ctx, transition.AuctionID)
		case models.AuctionStatusEnded:
			_, err = sm.End(ctx, transition.AuctionID)
		default:
			err = fmt.Errorf("unsupported scheduled transition to %s", transition.Target)
		}
		return err
	})

	fields := log.Fields{
		"auctionID": transition.AuctionID,
		"target":    transition.Target,
	}

	switch {
	case err == nil:
		if transition.Target == models.AuctionStatusLive {
			return transitionStarted
		}
		return transitionEnded
	case errors.Is(err, auctionerrors.ErrVersionConflict),
		errors.Is(err, auctionerrors.ErrInvalidTransition),
		errors.Is(err, auctionerrors.ErrTransitionNotDue):
		// Another writer got there first; the next sweep re-evaluates
		log.WithFields(fields).WithError(err).Debug("Skipped scheduled transition")
		return transitionSkipped
	default:
		s.metrics.RecordTransitionFailure(ctx, transition.Target)
		log.WithFields(fields).WithError(err).Error("Scheduled transition failed")
		return transitionFailed
	}
}
