package portal

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/example/teetime-scheduler/internal/teetime"
)

// Selector strategies, in priority order. The portal markup is not ours, so
// each control gets a list of guesses tried front to back.
var (
	loginFormSel = CSS(`form[action*="login"]`)

	dateSels = []Selector{
		CSS(`input[type="date"]`),
		CSS(`input[name*="date"]`),
		CSS(`.datepicker input`),
	}

	playersSels = []Selector{
		CSS(`select[name*="players"]`),
		CSS(`select[id*="players"]`),
		CSS(`input[name*="players"]`),
	}

	holesSels = []Selector{
		CSS(`select[name*="holes"]`),
		CSS(`select[id*="holes"]`),
		CSS(`input[name*="holes"]`),
	}

	cartSels = []Selector{
		CSS(`select[name*="cart"]`),
		CSS(`select[id*="cart"]`),
	}

	slotSel = CSS(`.time-slot, .tee-time, [data-time], button[data-time]`)

	confirmSel = XPath(`//button[contains(text(), 'Select')] | //input[@value='Select']`)
)

// Driver owns one run's walk through the portal UI: filters, slot scan,
// confirmation. It never opens or closes the session; the caller scopes that.
type Driver struct {
	Browser Browser
	Creds   CredentialProvider
	Policy  teetime.Policy
	URL     string
	// Settle is the base fixed delay used when readiness polling gives up.
	Settle time.Duration
	Log    *zap.Logger
}

const defaultSettle = 3 * time.Second

func (d *Driver) settle() time.Duration {
	if d.Settle > 0 {
		return d.Settle
	}
	return defaultSettle
}

// FindAndBook applies the request's filters, scans the rendered slots and
// commits the best acceptable one. A nil booking with a non-empty reason
// means the scan completed and nothing met the policy; that is a valid
// terminal state, not an error.
func (d *Driver) FindAndBook(ctx context.Context, req teetime.Request) (*teetime.Booking, string, error) {
	if err := d.Browser.Navigate(ctx, d.URL); err != nil {
		return nil, "", err
	}
	if !d.Browser.WaitReady(ctx, dateSels[0], d.settle()) {
		if err := d.Browser.Settle(ctx, d.settle()); err != nil {
			return nil, "", err
		}
	}

	d.probeLogin(ctx)

	if err := d.selectDate(ctx, req.Date); err != nil {
		return nil, "", err
	}
	if err := d.applyFilters(ctx, req); err != nil {
		return nil, "", err
	}

	slots, err := d.discoverSlots(ctx)
	if err != nil {
		return nil, "", err
	}
	if len(slots) == 0 {
		d.Log.Info("no time slots rendered", zap.String("date", teetime.FormatDate(req.Date)))
		return nil, "No time slots found on the page", nil
	}

	best, label := d.pick(ctx, slots)
	if best == nil {
		return nil, "No preferred times available", nil
	}

	if err := d.confirm(ctx, best); err != nil {
		return nil, "", err
	}

	return &teetime.Booking{
		Date:     teetime.FormatDate(req.Date),
		Time:     label,
		Players:  req.Players,
		Holes:    req.Holes,
		CartType: req.Cart,
	}, "", nil
}

// probeLogin is best-effort: the real credential flow is out of scope, so a
// detected login form is logged and skipped.
func (d *Driver) probeLogin(ctx context.Context) {
	_, err := d.Browser.Find(ctx, loginFormSel)
	if err != nil {
		d.Log.Debug("no login form detected, proceeding")
		return
	}
	if _, _, ok := d.Creds.Credentials(ctx); ok {
		d.Log.Warn("login form detected; credential submission not implemented, proceeding")
		return
	}
	d.Log.Warn("login form detected and no credentials configured, proceeding")
}

func (d *Driver) selectDate(ctx context.Context, date time.Time) error {
	el, err := d.findFirst(ctx, "date input", dateSels...)
	if err != nil {
		return err
	}
	if err := el.Clear(ctx); err != nil {
		return controlNotFound("date input", err)
	}
	if err := el.SetValue(ctx, teetime.FormatDate(date)); err != nil {
		return controlNotFound("date input", err)
	}
	d.Log.Info("selected date", zap.String("date", teetime.FormatDate(date)))
	return d.Browser.Settle(ctx, d.settle()/3)
}

// applyFilters sets league, players, holes and cart. Filters are mandatory:
// when a primary strategy and its fallback both fail, the run fails.
func (d *Driver) applyFilters(ctx context.Context, req teetime.Request) error {
	if err := d.clickLeague(ctx, req.League); err != nil {
		return err
	}
	if err := d.setPlayers(ctx, req.Players); err != nil {
		return err
	}
	if err := d.setHoles(ctx, req.Holes); err != nil {
		return err
	}
	if err := d.setCart(ctx, req.Cart); err != nil {
		return err
	}
	d.Log.Info("filters applied")
	return d.Browser.Settle(ctx, d.settle()/3)
}

func (d *Driver) clickLeague(ctx context.Context, league string) error {
	lit := xpathLiteral(league)
	sel := XPath(fmt.Sprintf("//button[contains(text(), %s)] | //div[contains(text(), %s)]", lit, lit))
	el, err := d.findFirst(ctx, "league filter", sel)
	if err != nil {
		return err
	}
	if err := el.Click(ctx); err != nil {
		return controlNotFound("league filter", err)
	}
	return d.Browser.Settle(ctx, d.settle()/3)
}

func (d *Driver) setPlayers(ctx context.Context, players int) error {
	el, err := d.findFirst(ctx, "players filter", playersSels...)
	if err != nil {
		return err
	}
	v := strconv.Itoa(players)
	tag, _ := el.TagName(ctx)
	if tag == "select" {
		if err := el.SelectValue(ctx, v); err != nil {
			return controlNotFound("players filter", err)
		}
	} else {
		if err := el.Clear(ctx); err != nil {
			return controlNotFound("players filter", err)
		}
		if err := el.SetValue(ctx, v); err != nil {
			return controlNotFound("players filter", err)
		}
	}
	return d.Browser.Settle(ctx, d.settle()/6)
}

func (d *Driver) setHoles(ctx context.Context, holes int) error {
	v := strconv.Itoa(holes)
	el, err := d.findFirst(ctx, "holes filter", holesSels...)
	if err != nil && !errors.Is(err, ErrControlNotFound) {
		return err
	}
	if err == nil {
		if tag, _ := el.TagName(ctx); tag == "select" {
			if serr := el.SelectValue(ctx, v); serr != nil {
				return controlNotFound("holes filter", serr)
			}
			return d.Browser.Settle(ctx, d.settle()/6)
		}
	}
	// Fallback: a radio group or labeled button.
	fb := XPath(fmt.Sprintf("//input[@type='radio' and @value='%s'] | //button[contains(text(), '%s')]", v, v))
	btn, ferr := d.findFirst(ctx, "holes filter", fb)
	if ferr != nil {
		return ferr
	}
	if err := btn.Click(ctx); err != nil {
		return controlNotFound("holes filter", err)
	}
	return d.Browser.Settle(ctx, d.settle()/6)
}

func (d *Driver) setCart(ctx context.Context, cart string) error {
	el, err := d.findFirst(ctx, "cart filter", cartSels...)
	if err != nil && !errors.Is(err, ErrControlNotFound) {
		return err
	}
	if err == nil {
		if serr := el.SelectLabel(ctx, cart); serr == nil {
			return d.Browser.Settle(ctx, d.settle()/3)
		}
	}
	// Fallback: a radio group or labeled button.
	fb := XPath(fmt.Sprintf("//input[@type='radio' and contains(@value, '%s')] | //button[contains(text(), '%s')]",
		strings.ToLower(cart), cart))
	btn, err := d.findFirst(ctx, "cart filter", fb)
	if err != nil {
		return err
	}
	if err := btn.Click(ctx); err != nil {
		return controlNotFound("cart filter", err)
	}
	return d.Browser.Settle(ctx, d.settle()/3)
}

func (d *Driver) discoverSlots(ctx context.Context) ([]Element, error) {
	if !d.Browser.WaitReady(ctx, slotSel, d.settle()) {
		if err := d.Browser.Settle(ctx, d.settle()); err != nil {
			return nil, err
		}
	}
	return d.Browser.FindAll(ctx, slotSel)
}

// pick scores every discovered slot and tracks the running best. Strict
// greater-than keeps the first slot seen at the top tier; scan order is the
// tie-break and must stay that way for parity with observed behavior.
func (d *Driver) pick(ctx context.Context, slots []Element) (Element, string) {
	var (
		best      Element
		bestLabel string
		bestTier  teetime.Tier
	)
	for _, s := range slots {
		label, err := s.Text(ctx)
		if err != nil {
			// Unreadable slot text skips the slot, never aborts the scan.
			d.Log.Debug("skipping unreadable slot", zap.Error(err))
			continue
		}
		if tier := d.Policy.Score(label); tier > bestTier {
			bestTier = tier
			best = s
			bestLabel = label
		}
	}
	if bestTier == teetime.TierNone {
		return nil, ""
	}
	d.Log.Info("found preferred time slot",
		zap.String("time", bestLabel), zap.Stringer("tier", bestTier))
	return best, bestLabel
}

// confirm commits the chosen slot. Any failure here is ConfirmationFailed: a
// good slot existed but could not be committed, which is not "no match".
func (d *Driver) confirm(ctx context.Context, slot Element) error {
	if err := slot.Click(ctx); err != nil {
		return errors.Mark(errors.Wrap(err, "click slot"), ErrConfirmationFailed)
	}
	if err := d.Browser.Settle(ctx, d.settle()/3); err != nil {
		return err
	}
	btn, err := d.Browser.Find(ctx, confirmSel)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "locate Select control"), ErrConfirmationFailed)
	}
	if err := btn.Click(ctx); err != nil {
		return errors.Mark(errors.Wrap(err, "click Select control"), ErrConfirmationFailed)
	}
	return nil
}

// findFirst walks the selector strategies in order; the first hit wins. All
// misses roll up to ErrControlNotFound, session errors propagate immediately.
func (d *Driver) findFirst(ctx context.Context, what string, sels ...Selector) (Element, error) {
	var last error
	for _, sel := range sels {
		el, err := d.Browser.Find(ctx, sel)
		if err == nil {
			return el, nil
		}
		if !errors.Is(err, ErrNoElement) {
			return nil, err
		}
		last = err
	}
	return nil, controlNotFound(what, last)
}

// xpathLiteral quotes s as an XPath string literal, handling embedded
// apostrophes (league names contain them) via concat().
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		quoted = append(quoted, "'"+p+"'")
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
