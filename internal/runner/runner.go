package runner

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/teetime-scheduler/internal/bookings"
	"github.com/example/teetime-scheduler/internal/portal"
	"github.com/example/teetime-scheduler/internal/teetime"
)

// Store persists booked outcomes.
type Store interface {
	Insert(ctx context.Context, b teetime.Booking, status string) (int64, error)
}

// Notifier reports the outcome to a human, best-effort.
type Notifier interface {
	Notify(o teetime.Outcome) bool
}

// BrowserFactory opens a fresh automation session for one run.
type BrowserFactory func(ctx context.Context) (portal.Browser, error)

// Runner executes one end-to-end booking run: resolve the target date, drive
// the portal session, persist a booked result, notify. Exactly one Outcome
// per run, never a bare error to the caller.
type Runner struct {
	OpenBrowser BrowserFactory
	Store       Store
	Notifier    Notifier
	Creds       portal.CredentialProvider
	Policy      teetime.Policy

	PortalURL string
	League    string
	Weekday   time.Weekday
	Players   int
	Holes     int
	Cart      string

	Settle  time.Duration
	Timeout time.Duration

	Log *zap.Logger

	// Now is swappable for tests; nil means time.Now.
	Now func() time.Time
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Run produces the run's single outcome. The session is torn down on every
// exit path, and a confirmed slot is always persisted before notification is
// attempted.
func (r *Runner) Run(ctx context.Context) teetime.Outcome {
	log := r.Log.With(zap.String("run_id", uuid.NewString()))

	date := teetime.NextTargetDate(r.now(), r.Weekday)
	dateStr := teetime.FormatDate(date)
	req := teetime.Request{
		Date:    date,
		Players: r.Players,
		Holes:   r.Holes,
		Cart:    r.Cart,
		League:  r.League,
	}
	log.Info("starting booking run",
		zap.String("date", dateStr), zap.Int("players", req.Players), zap.Int("holes", req.Holes))

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	browser, err := r.OpenBrowser(ctx)
	if err != nil {
		log.Error("session open failed", zap.Error(err))
		return r.finish(ctx, log, teetime.Failed(dateStr, err.Error()))
	}
	defer func() {
		if cerr := browser.Close(); cerr != nil {
			log.Warn("session teardown", zap.Error(cerr))
		}
	}()

	drv := &portal.Driver{
		Browser: browser,
		Creds:   r.Creds,
		Policy:  r.Policy,
		URL:     r.PortalURL,
		Settle:  r.Settle,
		Log:     log,
	}

	booking, reason, err := drv.FindAndBook(ctx, req)
	switch {
	case err != nil:
		detail := err.Error()
		if ctx.Err() == context.DeadlineExceeded {
			detail = "run deadline exceeded: " + detail
		}
		log.Error("booking run failed", zap.Error(err))
		return r.finish(ctx, log, teetime.Failed(dateStr, detail))
	case booking == nil:
		log.Info("no acceptable slot", zap.String("reason", reason))
		return r.finish(ctx, log, teetime.NoMatch(dateStr, reason))
	default:
		log.Info("booking confirmed", zap.String("time", booking.Time))
		return r.finish(ctx, log, teetime.Booked(*booking))
	}
}

// finish persists (booked outcomes only) and notifies. Persistence runs even
// when the run context already expired: the portal confirmation happened and
// the record must follow it.
func (r *Runner) finish(ctx context.Context, log *zap.Logger, out teetime.Outcome) teetime.Outcome {
	ctx = context.WithoutCancel(ctx)
	if out.Status == teetime.StatusBooked {
		id, err := r.Store.Insert(ctx, *out.Booking, bookings.StatusConfirmed)
		if err != nil {
			// The external booking exists regardless; report Booked and make
			// noise about the missing row.
			log.Error("persisting confirmed booking failed", zap.Error(err))
		} else {
			log.Info("booking persisted", zap.Int64("booking_id", id))
		}
	}
	r.Notifier.Notify(out)
	return out
}
