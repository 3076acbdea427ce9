package squareoff

import (
	"context"
	"sync"
	"time"

	"vstocks/internal/markethours"
	"vstocks/internal/metrics"
	"vstocks/internal/trading"

	"github.com/sirupsen/logrus"
)

// Engine is the forced-close entry point of the order execution engine.
type Engine interface {
	ForceSquareOff(ctx context.Context, positionID string) error
}

// Store is the slice of position storage the scheduler needs.
type Store interface {
	SquareOffCandidates(ctx context.Context, now time.Time) ([]trading.SquareOffCandidate, error)
	SetSquareOffAt(ctx context.Context, positionID string, at time.Time) error
}

// Scheduler keeps intraday positions from outliving their trading day. A
// one-shot timer armed at the next market close does the bulk close; a
// periodic recovery sweep retries anything the timer missed, including
// positions whose deadline registration was lost.
type Scheduler struct {
	engine        Engine
	store         Store
	met           *metrics.Metrics
	log           *logrus.Entry
	sweepInterval time.Duration

	now func() time.Time

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

func New(engine Engine, store Store, met *metrics.Metrics, log *logrus.Entry, sweepInterval time.Duration) *Scheduler {
	return &Scheduler{
		engine:        engine,
		store:         store,
		met:           met,
		log:           log,
		sweepInterval: sweepInterval,
		now:           time.Now,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Register records the square-off deadline for a freshly opened intraday
// position. Called off the order path; a failed write only logs because the
// sweep also picks up positions with no deadline at all.
func (s *Scheduler) Register(positionID string, openedAt time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	deadline := markethours.CloseFor(openedAt)
	if err := s.store.SetSquareOffAt(ctx, positionID, deadline); err != nil {
		s.log.WithField("position", positionID).WithError(err).Error("square-off registration failed, sweep will catch it")
	}
}

// Start launches the close timer and the recovery sweep. It runs an initial
// sweep immediately to drain positions left over from before a restart.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		go s.run()
	})
}

func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	<-s.done
}

func (s *Scheduler) run() {
	defer close(s.done)

	s.sweep()

	closeTimer := time.NewTimer(time.Until(markethours.NextClose(s.now())))
	defer closeTimer.Stop()
	sweepTicker := time.NewTicker(s.sweepInterval)
	defer sweepTicker.Stop()

	for {
		select {
		case <-closeTimer.C:
			s.sweep()
			closeTimer.Reset(time.Until(markethours.NextClose(s.now())))
		case <-sweepTicker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

// sweep closes every due intraday position. Failures are left open for the
// next run; a square-off is retried until it lands, never dropped.
func (s *Scheduler) sweep() {
	s.met.SweepRuns.Inc()
	now := s.now()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	candidates, err := s.store.SquareOffCandidates(ctx, now)
	if err != nil {
		s.log.WithError(err).Error("square-off sweep query failed")
		return
	}

	for _, c := range candidates {
		if c.SquareOffAt == nil {
			// Registration never landed. Derive the deadline from the open
			// time and only close once it has actually passed.
			deadline := markethours.CloseFor(c.CreatedAt)
			if now.Before(deadline) {
				if err := s.store.SetSquareOffAt(ctx, c.PositionID, deadline); err != nil {
					s.log.WithField("position", c.PositionID).WithError(err).Warn("square-off re-registration failed")
				}
				continue
			}
		}
		if err := s.engine.ForceSquareOff(ctx, c.PositionID); err != nil {
			s.log.WithField("position", c.PositionID).WithError(err).Warn("forced square-off failed, will retry")
		}
	}
}
