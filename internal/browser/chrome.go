// internal/browser/chrome.go
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"renewal-bot/internal/common/logger"
)

const pollInterval = 250 * time.Millisecond

// Chrome drives an already-running Chrome session over the DevTools protocol.
// The session is attached, never launched: the operator signs in manually and
// the bot takes over the tab, which is why all element access goes through
// in-page JavaScript rather than node handles that die on re-render.
type Chrome struct {
	ctx         context.Context
	cancelCtx   context.CancelFunc
	cancelAlloc context.CancelFunc
	logger      logger.Logger
}

// Attach connects to the Chrome instance listening on debuggerURL
// (e.g. http://localhost:9222).
func Attach(parent context.Context, debuggerURL string, log logger.Logger) (*Chrome, error) {
	allocCtx, cancelAlloc := chromedp.NewRemoteAllocator(parent, debuggerURL)
	ctx, cancelCtx := chromedp.NewContext(allocCtx)

	// Force target resolution now so a dead debugger port fails Attach
	// instead of the first workflow step.
	var location string
	if err := chromedp.Run(ctx, chromedp.Location(&location)); err != nil {
		cancelCtx()
		cancelAlloc()
		return nil, fmt.Errorf("attach to chrome at %s: %w", debuggerURL, err)
	}

	log.Info("attached to chrome session", map[string]interface{}{
		"debugger": debuggerURL,
		"location": location,
	})

	return &Chrome{ctx: ctx, cancelCtx: cancelCtx, cancelAlloc: cancelAlloc, logger: log}, nil
}

func (c *Chrome) Close() {
	c.cancelCtx()
	c.cancelAlloc()
}

// finderJS returns a JavaScript expression that evaluates to the index-th
// element matching loc, or null.
func finderJS(loc Locator, index int) string {
	switch loc.Strategy {
	case ByXPath:
		return fmt.Sprintf(
			`document.evaluate(%q, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null).snapshotItem(%d)`,
			loc.Value, index)
	case ByID:
		return fmt.Sprintf(`document.getElementById(%q)`, loc.Value)
	default:
		return fmt.Sprintf(`document.querySelectorAll(%q)[%d] || null`, loc.Value, index)
	}
}

func countJS(loc Locator) string {
	switch loc.Strategy {
	case ByXPath:
		return fmt.Sprintf(
			`document.evaluate(%q, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null).snapshotLength`,
			loc.Value)
	case ByID:
		return fmt.Sprintf(`document.getElementById(%q) ? 1 : 0`, loc.Value)
	default:
		return fmt.Sprintf(`document.querySelectorAll(%q).length`, loc.Value)
	}
}

// clickableJS reports whether the element is rendered, visible and enabled.
func clickableJS(loc Locator, index int) string {
	return fmt.Sprintf(`(function(){
		var el = %s;
		if (!el) return false;
		var r = el.getBoundingClientRect();
		var s = window.getComputedStyle(el);
		return r.width > 0 && r.height > 0 && s.visibility !== 'hidden' && s.display !== 'none' && !el.disabled;
	})()`, finderJS(loc, index))
}

func (c *Chrome) eval(ctx context.Context, js string, out interface{}) error {
	runCtx := c.ctx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(c.ctx, deadline)
		defer cancel()
	}
	return chromedp.Run(runCtx, chromedp.Evaluate(js, out))
}

func (c *Chrome) matchCount(ctx context.Context, loc Locator) (int, error) {
	var n int
	if err := c.eval(ctx, countJS(loc), &n); err != nil {
		return 0, err
	}
	return n, nil
}

// FindElement polls until loc matches an element satisfying cond, or the
// timeout elapses. Timeout maps to ErrNotFound; the driver connection being
// gone surfaces as the underlying transport error.
func (c *Chrome) FindElement(ctx context.Context, loc Locator, cond Condition, timeout time.Duration) (Element, error) {
	deadline := time.Now().Add(timeout)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, err := c.matchCount(ctx, loc)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			if cond == CondPresent {
				return &chromeElement{chrome: c, loc: loc}, nil
			}
			var clickable bool
			if err := c.eval(ctx, clickableJS(loc, 0), &clickable); err != nil {
				return nil, err
			}
			if clickable {
				return &chromeElement{chrome: c, loc: loc}, nil
			}
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, loc.Label)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// FindElements returns a handle per current match without waiting beyond the
// first non-empty poll.
func (c *Chrome) FindElements(ctx context.Context, loc Locator, timeout time.Duration) ([]Element, error) {
	deadline := time.Now().Add(timeout)
	for {
		n, err := c.matchCount(ctx, loc)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			els := make([]Element, 0, n)
			for i := 0; i < n; i++ {
				els = append(els, &chromeElement{chrome: c, loc: loc, index: i})
			}
			return els, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, loc.Label)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (c *Chrome) CurrentLocation(ctx context.Context) (string, error) {
	var location string
	err := chromedp.Run(c.ctx, chromedp.Location(&location))
	return location, err
}

func (c *Chrome) WaitFor(ctx context.Context, pred func(context.Context) (bool, error), timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		ok, err := pred(ctx)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	return chromedp.Run(c.ctx, chromedp.Navigate(url))
}

func (c *Chrome) Refresh(ctx context.Context) error {
	return chromedp.Run(c.ctx, chromedp.Reload())
}

// Eval runs a statement in the page with no result marshalling.
func (c *Chrome) Eval(ctx context.Context, js string) error {
	return c.eval(ctx, js, nil)
}

func (c *Chrome) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := chromedp.Run(c.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().WithFormat(page.CaptureScreenshotFormatPng).Do(ctx)
		return err
	}))
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// chromeElement addresses its element by locator and index on every action so
// a re-rendered page yields a clean ErrStale instead of acting on a corpse.
type chromeElement struct {
	chrome *Chrome
	loc    Locator
	index  int
}

func (e *chromeElement) Locator() Locator { return e.loc }

type elementResult struct {
	Found bool   `json:"found"`
	Value string `json:"value"`
}

func (e *chromeElement) run(ctx context.Context, body string) (elementResult, error) {
	js := fmt.Sprintf(`(function(){
		var el = %s;
		if (!el) return {found:false, value:""};
		%s
	})()`, finderJS(e.loc, e.index), body)

	var res elementResult
	if err := e.chrome.eval(ctx, js, &res); err != nil {
		return res, err
	}
	if !res.Found {
		return res, fmt.Errorf("%w: %s", ErrStale, e.loc.Label)
	}
	return res, nil
}

func (e *chromeElement) Click(ctx context.Context) error {
	_, err := e.run(ctx, `el.scrollIntoView({block:'center'}); el.click(); return {found:true, value:""};`)
	return err
}

func (e *chromeElement) Type(ctx context.Context, text string) error {
	body := fmt.Sprintf(`
		el.scrollIntoView({block:'center'});
		el.focus();
		var setter = Object.getOwnPropertyDescriptor(window.HTMLInputElement.prototype, 'value').set;
		setter.call(el, %q);
		el.dispatchEvent(new Event('input', {bubbles:true}));
		el.dispatchEvent(new Event('change', {bubbles:true}));
		return {found:true, value: el.value};`, text)
	_, err := e.run(ctx, body)
	return err
}

func (e *chromeElement) Clear(ctx context.Context) error {
	return e.Type(ctx, "")
}

func (e *chromeElement) Text(ctx context.Context) (string, error) {
	res, err := e.run(ctx, `return {found:true, value: (el.innerText || el.textContent || '').trim()};`)
	if err != nil {
		return "", err
	}
	return res.Value, nil
}

func (e *chromeElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	// For "value" the content attribute goes stale the moment anything types
	// into the input; the live property is what the form would submit.
	body := fmt.Sprintf(`
		if (%q === 'value' && 'value' in el) return {found:true, value: String(el.value)};
		var v = el.getAttribute(%q);
		if (v === null) return {found:true, value:"\x00missing"};
		return {found:true, value:v};`, name, name)
	res, err := e.run(ctx, body)
	if err != nil {
		return "", false, err
	}
	if res.Value == "\x00missing" {
		return "", false, nil
	}
	return res.Value, true, nil
}

func (e *chromeElement) Selected(ctx context.Context) (bool, error) {
	res, err := e.run(ctx, `
		if (el.checked !== undefined && el.type !== 'text') return {found:true, value: el.checked ? 'true' : 'false'};
		return {found:true, value: el.getAttribute('aria-checked') === 'true' ? 'true' : 'false'};`)
	if err != nil {
		return false, err
	}
	return res.Value == "true", nil
}
