package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/teetime-scheduler/internal/teetime"
)

// Runs executes one booking run. Implemented by runner.Runner; tests fake it.
type Runs interface {
	Run(ctx context.Context) teetime.Outcome
}

// Store answers whether a target date already has a persisted booking.
type Store interface {
	ExistsForDate(ctx context.Context, date string) (bool, error)
}

// Scheduler triggers at most one booking run per target date. A date counts
// as handled once a booking row exists for it or a run for it has finished
// this process lifetime, whatever the outcome; runs are never retried.
type Scheduler struct {
	Runner   Runs
	Store    Store
	Weekday  time.Weekday
	Interval time.Duration
	Log      *zap.Logger

	// Gate serializes runs with other callers (the web API shares it). The
	// portal session is single-user, so overlapping runs are never allowed.
	Gate *sync.Mutex

	mu        sync.Mutex
	attempted string // last target date a run finished for

	// now is swappable for tests; nil means time.Now.
	now func() time.Time
}

func (s *Scheduler) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func (s *Scheduler) Run(ctx context.Context) error {
	t := time.NewTicker(s.Interval)
	defer t.Stop()

	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	date := teetime.FormatDate(teetime.NextTargetDate(s.clock(), s.Weekday))

	s.mu.Lock()
	done := s.attempted == date
	s.mu.Unlock()
	if done {
		return
	}

	exists, err := s.Store.ExistsForDate(ctx, date)
	if err != nil {
		s.Log.Error("scheduler: booking lookup failed", zap.Error(err))
		return
	}
	if exists {
		s.markAttempted(date)
		return
	}

	if s.Gate != nil {
		if !s.Gate.TryLock() {
			s.Log.Info("scheduler: run already in flight, skipping tick")
			return
		}
		defer s.Gate.Unlock()
	}

	s.Log.Info("scheduler: triggering booking run", zap.String("date", date))
	out := s.Runner.Run(ctx)
	s.markAttempted(date)
	s.Log.Info("scheduler: run finished",
		zap.String("date", date), zap.String("status", string(out.Status)))
}

func (s *Scheduler) markAttempted(date string) {
	s.mu.Lock()
	s.attempted = date
	s.mu.Unlock()
}
