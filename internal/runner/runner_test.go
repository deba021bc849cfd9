package runner

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/teetime-scheduler/internal/notify"
	"github.com/example/teetime-scheduler/internal/portal"
	"github.com/example/teetime-scheduler/internal/teetime"
)

// --- fakes ---------------------------------------------------------------

type fakeElement struct {
	text   string
	tag    string
	clicks int
}

func (e *fakeElement) Text(context.Context) (string, error) { return e.text, nil }
func (e *fakeElement) Click(context.Context) error          { e.clicks++; return nil }
func (e *fakeElement) TagName(context.Context) (string, error) {
	if e.tag == "" {
		return "select", nil
	}
	return e.tag, nil
}
func (e *fakeElement) Clear(context.Context) error               { return nil }
func (e *fakeElement) SetValue(context.Context, string) error    { return nil }
func (e *fakeElement) SelectValue(context.Context, string) error { return nil }
func (e *fakeElement) SelectLabel(context.Context, string) error { return nil }

type fakeBrowser struct {
	page   map[string][]*fakeElement
	closes int
	events *[]string
}

func (b *fakeBrowser) lookup(q string) []*fakeElement {
	for key, els := range b.page {
		if strings.Contains(q, key) {
			return els
		}
	}
	return nil
}

func (b *fakeBrowser) Navigate(context.Context, string) error { return nil }

func (b *fakeBrowser) Find(_ context.Context, sel portal.Selector) (portal.Element, error) {
	els := b.lookup(sel.Query)
	if len(els) == 0 {
		return nil, errors.Mark(errors.Newf("find %q", sel.Query), portal.ErrNoElement)
	}
	return els[0], nil
}

func (b *fakeBrowser) FindAll(_ context.Context, sel portal.Selector) ([]portal.Element, error) {
	els := b.lookup(sel.Query)
	out := make([]portal.Element, 0, len(els))
	for _, e := range els {
		out = append(out, e)
	}
	return out, nil
}

func (b *fakeBrowser) WaitReady(_ context.Context, sel portal.Selector, _ time.Duration) bool {
	return len(b.lookup(sel.Query)) > 0
}

func (b *fakeBrowser) Settle(context.Context, time.Duration) error { return nil }

func (b *fakeBrowser) Close() error {
	b.closes++
	*b.events = append(*b.events, "close")
	return nil
}

type fakeStore struct {
	events   *[]string
	inserted []teetime.Booking
	statuses []string
	err      error
}

func (s *fakeStore) Insert(_ context.Context, b teetime.Booking, status string) (int64, error) {
	*s.events = append(*s.events, "insert")
	if s.err != nil {
		return 0, s.err
	}
	s.inserted = append(s.inserted, b)
	s.statuses = append(s.statuses, status)
	return int64(len(s.inserted)), nil
}

type fakeMailer struct {
	events   *[]string
	subjects []string
	bodies   []string
	err      error
}

func (m *fakeMailer) Send(to, subject, body string) error {
	*m.events = append(*m.events, "send")
	if m.err != nil {
		return m.err
	}
	m.subjects = append(m.subjects, subject)
	m.bodies = append(m.bodies, body)
	return nil
}

// --- fixtures ------------------------------------------------------------

const testLeague = "Maple Hills League"

func fullPage(slots ...string) map[string][]*fakeElement {
	page := map[string][]*fakeElement{
		`type="date"`: {{tag: "input"}},
		testLeague:    {{tag: "button"}},
		"players":     {{tag: "select"}},
		"holes":       {{tag: "select"}},
		"cart":        {{tag: "select"}},
		"'Select'":    {{tag: "button"}},
	}
	var els []*fakeElement
	for _, s := range slots {
		els = append(els, &fakeElement{text: s})
	}
	if len(els) > 0 {
		page[".time-slot"] = els
	}
	return page
}

type harness struct {
	runner  *Runner
	browser *fakeBrowser
	store   *fakeStore
	mailer  *fakeMailer
	events  []string
}

func newHarness(t *testing.T, page map[string][]*fakeElement) *harness {
	t.Helper()
	h := &harness{}
	h.browser = &fakeBrowser{page: page, events: &h.events}
	h.store = &fakeStore{events: &h.events}
	h.mailer = &fakeMailer{events: &h.events}

	log := zap.NewNop()
	h.runner = &Runner{
		OpenBrowser: func(context.Context) (portal.Browser, error) { return h.browser, nil },
		Store:       h.store,
		Notifier: &notify.Notifier{
			Mailer: h.mailer,
			To:     "league@example.com",
			Course: "Maple Hills",
			League: testLeague,
			Log:    log,
		},
		Creds:     portal.NoCredentials{},
		Policy:    teetime.DefaultPolicy(),
		PortalURL: "https://portal.test/teetimes",
		League:    testLeague,
		Weekday:   time.Wednesday,
		Players:   4,
		Holes:     9,
		Cart:      "Any",
		Settle:    time.Millisecond,
		Timeout:   time.Minute,
		Log:       log,
		Now: func() time.Time {
			return time.Date(2025, 6, 9, 8, 0, 0, 0, time.UTC) // a Monday
		},
	}
	return h
}

// --- scenarios -----------------------------------------------------------

func TestRun_ZeroSlotsIsNoMatch(t *testing.T) {
	h := newHarness(t, fullPage())

	out := h.runner.Run(context.Background())

	assert.Equal(t, teetime.StatusNoMatch, out.Status)
	assert.Equal(t, "2025-06-11", out.Date)
	assert.Empty(t, h.store.inserted, "no row persisted on no-match")
	require.Len(t, h.mailer.subjects, 1)
	assert.Contains(t, h.mailer.subjects[0], "No Preferred Times Available")
	assert.Contains(t, h.mailer.bodies[0], "2025-06-11")
	assert.Equal(t, 1, h.browser.closes, "session torn down exactly once")
}

func TestRun_BooksAndPersistsConfirmedRow(t *testing.T) {
	h := newHarness(t, fullPage("6:00 PM", "4:45 PM"))

	out := h.runner.Run(context.Background())

	require.Equal(t, teetime.StatusBooked, out.Status)
	require.NotNil(t, out.Booking)
	assert.Equal(t, "4:45 PM", out.Booking.Time)
	assert.Equal(t, "2025-06-11", out.Booking.Date)

	require.Len(t, h.store.inserted, 1)
	assert.Equal(t, "4:45 PM", h.store.inserted[0].Time)
	assert.Equal(t, []string{"confirmed"}, h.store.statuses)

	require.Len(t, h.mailer.subjects, 1)
	assert.Contains(t, h.mailer.subjects[0], "Golf Booking Confirmed")
	assert.Equal(t, 1, h.browser.closes)
}

func TestRun_MissingDateControlFails(t *testing.T) {
	page := fullPage("4:45 PM")
	delete(page, `type="date"`)
	h := newHarness(t, page)

	out := h.runner.Run(context.Background())

	assert.Equal(t, teetime.StatusFailed, out.Status)
	assert.Contains(t, out.ErrorDetail, "date input")
	assert.Empty(t, h.store.inserted, "no row persisted on failure")
	require.Len(t, h.mailer.subjects, 1)
	assert.Contains(t, h.mailer.subjects[0], "Error")
	assert.Equal(t, 1, h.browser.closes, "session torn down exactly once")
}

func TestRun_SessionOpenFailure(t *testing.T) {
	h := newHarness(t, fullPage())
	h.runner.OpenBrowser = func(context.Context) (portal.Browser, error) {
		return nil, errors.Mark(errors.New("chrome did not start"), portal.ErrSession)
	}

	out := h.runner.Run(context.Background())

	assert.Equal(t, teetime.StatusFailed, out.Status)
	assert.Contains(t, out.ErrorDetail, "chrome did not start")
	assert.Zero(t, h.browser.closes, "no session was opened, nothing to tear down")
	assert.Empty(t, h.store.inserted)
}

func TestRun_PersistPrecedesNotification(t *testing.T) {
	h := newHarness(t, fullPage("4:30 PM"))

	out := h.runner.Run(context.Background())

	require.Equal(t, teetime.StatusBooked, out.Status)
	insertIdx, sendIdx := -1, -1
	for i, e := range h.events {
		switch e {
		case "insert":
			insertIdx = i
		case "send":
			sendIdx = i
		}
	}
	require.GreaterOrEqual(t, insertIdx, 0)
	require.GreaterOrEqual(t, sendIdx, 0)
	assert.Less(t, insertIdx, sendIdx, "row written before notification is attempted")
}

func TestRun_NotificationFailureDoesNotFlipOutcome(t *testing.T) {
	h := newHarness(t, fullPage("4:30 PM"))
	h.mailer.err = errors.New("smtp down")

	out := h.runner.Run(context.Background())

	assert.Equal(t, teetime.StatusBooked, out.Status)
	require.Len(t, h.store.inserted, 1, "row persisted even though mail failed")
}

func TestRun_StoreFailureStillReportsBooked(t *testing.T) {
	h := newHarness(t, fullPage("4:30 PM"))
	h.store.err = errors.New("db down")

	out := h.runner.Run(context.Background())

	// The portal confirmation already happened; the outcome reflects it.
	assert.Equal(t, teetime.StatusBooked, out.Status)
	require.Len(t, h.mailer.subjects, 1)
	assert.Contains(t, h.mailer.subjects[0], "Confirmed")
}

func TestRun_TargetsNextWednesday(t *testing.T) {
	h := newHarness(t, fullPage())
	h.runner.Now = func() time.Time {
		// A Wednesday: the run must target the following week.
		return time.Date(2025, 6, 11, 6, 0, 0, 0, time.UTC)
	}

	out := h.runner.Run(context.Background())
	assert.Equal(t, "2025-06-18", out.Date)
}
