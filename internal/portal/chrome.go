package portal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Chrome is the chromedp-backed Browser. One Chrome value owns one headless
// browser session; Close must be called on every exit path.
type Chrome struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    *zap.Logger
}

// ChromeOptions controls session launch.
type ChromeOptions struct {
	Headless bool
}

// OpenChrome launches a browser session with the anti-automation and
// sandboxing flags the portal tolerates.
func OpenChrome(ctx context.Context, opts ChromeOptions, log *zap.Logger) (*Chrome, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.NoSandbox,
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	cancel := func() {
		cancelBrowser()
		cancelAlloc()
	}

	// Force the browser process to start now so open failures surface here
	// rather than on the first navigation.
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		return nil, errors.Mark(errors.Wrap(err, "launch browser"), ErrSession)
	}

	return &Chrome{ctx: browserCtx, cancel: cancel, log: log}, nil
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	if err := chromedp.Run(c.ctx, chromedp.Navigate(url)); err != nil {
		return errors.Mark(errors.Wrapf(err, "navigate %s", url), ErrSession)
	}
	return nil
}

func (c *Chrome) Find(ctx context.Context, sel Selector) (Element, error) {
	nodes, err := c.nodes(sel)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, errors.Mark(errors.Newf("find %q", sel.Query), ErrNoElement)
	}
	return &chromeElement{c: c, node: nodes[0]}, nil
}

func (c *Chrome) FindAll(ctx context.Context, sel Selector) ([]Element, error) {
	nodes, err := c.nodes(sel)
	if err != nil {
		return nil, err
	}
	out := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &chromeElement{c: c, node: n})
	}
	return out, nil
}

func (c *Chrome) WaitReady(ctx context.Context, sel Selector, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if nodes, err := c.nodes(sel); err == nil && len(nodes) > 0 {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(250 * time.Millisecond):
		}
	}
}

func (c *Chrome) Settle(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func (c *Chrome) Close() error {
	// Graceful shutdown first so the browser process exits cleanly; the
	// cancels reap it regardless.
	if err := chromedp.Cancel(c.ctx); err != nil {
		c.log.Warn("browser cancel", zap.Error(err))
	}
	c.cancel()
	return nil
}

func (c *Chrome) nodes(sel Selector) ([]*cdp.Node, error) {
	var nodes []*cdp.Node
	opt := chromedp.ByQueryAll
	if sel.By == ByXPath {
		opt = chromedp.BySearch
	}
	err := chromedp.Run(c.ctx, chromedp.Nodes(sel.Query, &nodes, opt, chromedp.AtLeast(0)))
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "query %q", sel.Query), ErrSession)
	}
	return nodes, nil
}

// chromeElement addresses its node by full XPath on each operation; node IDs
// go stale across renders but the path survives a re-query.
type chromeElement struct {
	c    *Chrome
	node *cdp.Node
}

func (e *chromeElement) xpath() string { return e.node.FullXPath() }

func (e *chromeElement) Text(ctx context.Context) (string, error) {
	var s string
	if err := chromedp.Run(e.c.ctx, chromedp.Text(e.xpath(), &s, chromedp.BySearch)); err != nil {
		return "", errors.Wrap(err, "read text")
	}
	return s, nil
}

func (e *chromeElement) Click(ctx context.Context) error {
	return chromedp.Run(e.c.ctx, chromedp.Click(e.xpath(), chromedp.BySearch))
}

func (e *chromeElement) TagName(ctx context.Context) (string, error) {
	return strings.ToLower(e.node.NodeName), nil
}

func (e *chromeElement) Clear(ctx context.Context) error {
	return chromedp.Run(e.c.ctx, chromedp.Clear(e.xpath(), chromedp.BySearch))
}

func (e *chromeElement) SetValue(ctx context.Context, value string) error {
	return chromedp.Run(e.c.ctx, chromedp.SendKeys(e.xpath(), value, chromedp.BySearch))
}

func (e *chromeElement) SelectValue(ctx context.Context, value string) error {
	return chromedp.Run(e.c.ctx,
		chromedp.SetValue(e.xpath(), value, chromedp.BySearch),
		chromedp.Evaluate(fireChangeJS(e.xpath()), nil),
	)
}

func (e *chromeElement) SelectLabel(ctx context.Context, label string) error {
	var ok bool
	if err := chromedp.Run(e.c.ctx, chromedp.Evaluate(selectLabelJS(e.xpath(), label), &ok)); err != nil {
		return err
	}
	if !ok {
		return errors.Mark(errors.Newf("option %q not present", label), ErrNoElement)
	}
	return nil
}

func fireChangeJS(xp string) string {
	return fmt.Sprintf(`(function(xp){
	var el = document.evaluate(xp, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
	if (el) { el.dispatchEvent(new Event('change', {bubbles: true})); }
})(%q)`, xp)
}

func selectLabelJS(xp, label string) string {
	return fmt.Sprintf(`(function(xp, label){
	var el = document.evaluate(xp, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
	if (!el || !el.options) { return false; }
	for (var i = 0; i < el.options.length; i++) {
		if (el.options[i].text.trim() === label) {
			el.selectedIndex = i;
			el.dispatchEvent(new Event('change', {bubbles: true}));
			return true;
		}
	}
	return false;
})(%q, %q)`, xp, label)
}
