package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/example/teetime-scheduler/internal/teetime"
)

type fakeRunner struct {
	runs    int
	outcome teetime.Outcome
}

func (r *fakeRunner) Run(context.Context) teetime.Outcome {
	r.runs++
	return r.outcome
}

type fakeStore struct {
	exists bool
	err    error
	asked  []string
}

func (s *fakeStore) ExistsForDate(_ context.Context, date string) (bool, error) {
	s.asked = append(s.asked, date)
	return s.exists, s.err
}

func newScheduler(r *fakeRunner, st *fakeStore) *Scheduler {
	return &Scheduler{
		Runner:   r,
		Store:    st,
		Weekday:  time.Wednesday,
		Interval: time.Hour,
		Gate:     &sync.Mutex{},
		Log:      zap.NewNop(),
		now: func() time.Time {
			return time.Date(2025, 6, 9, 8, 0, 0, 0, time.UTC) // a Monday
		},
	}
}

func TestTick_RunsOncePerTargetDate(t *testing.T) {
	r := &fakeRunner{outcome: teetime.NoMatch("2025-06-11", "nothing")}
	st := &fakeStore{}
	s := newScheduler(r, st)

	s.tick(context.Background())
	s.tick(context.Background())
	s.tick(context.Background())

	assert.Equal(t, 1, r.runs, "one run per target date regardless of outcome")
	assert.Equal(t, []string{"2025-06-11"}, st.asked)
}

func TestTick_SkipsAlreadyBookedDate(t *testing.T) {
	r := &fakeRunner{}
	st := &fakeStore{exists: true}
	s := newScheduler(r, st)

	s.tick(context.Background())

	assert.Zero(t, r.runs)
}

func TestTick_StoreErrorDoesNotMarkAttempted(t *testing.T) {
	r := &fakeRunner{outcome: teetime.NoMatch("2025-06-11", "nothing")}
	st := &fakeStore{err: errors.New("db down")}
	s := newScheduler(r, st)

	s.tick(context.Background())
	assert.Zero(t, r.runs)

	// Store recovers; the date is still eligible.
	st.err = nil
	s.tick(context.Background())
	assert.Equal(t, 1, r.runs)
}

func TestTick_NewTargetDateRunsAgain(t *testing.T) {
	r := &fakeRunner{outcome: teetime.NoMatch("", "nothing")}
	st := &fakeStore{}
	s := newScheduler(r, st)

	s.tick(context.Background())
	assert.Equal(t, 1, r.runs)

	// A week later the target date moved on.
	s.now = func() time.Time {
		return time.Date(2025, 6, 16, 8, 0, 0, 0, time.UTC)
	}
	s.tick(context.Background())
	assert.Equal(t, 2, r.runs)
}

func TestTick_GateHeldSkipsRun(t *testing.T) {
	r := &fakeRunner{}
	st := &fakeStore{}
	s := newScheduler(r, st)

	s.Gate.Lock()
	defer s.Gate.Unlock()
	s.tick(context.Background())

	assert.Zero(t, r.runs, "overlapping runs are never allowed")
}
