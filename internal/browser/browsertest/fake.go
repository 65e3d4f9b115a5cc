// Package browsertest provides a scriptable in-memory Driver for tests.
package browsertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"renewal-bot/internal/browser"
)

// FakeElement is one scripted element. FailuresLeft/FailWith inject action
// errors (e.g. browser.ErrStale) that clear as they are consumed, and OnClick
// lets a test mutate the page the way a real click would.
type FakeElement struct {
	Loc         browser.Locator
	TextValue   string
	Attrs       map[string]string
	Checked     bool
	Unclickable bool

	FailuresLeft int
	FailWith     error

	OnClick func(d *FakeDriver)

	driver *FakeDriver
	Clicks int
}

// FakeDriver implements browser.Driver over an in-memory element map keyed by
// locator value. Lookups are immediate; "appears later" is scripted by adding
// elements from an OnClick hook.
type FakeDriver struct {
	mu       sync.Mutex
	elements map[string][]*FakeElement

	Location    string
	Navigations []string
	Refreshes   int
	PNG         []byte
	Scripts     []string

	Err error // returned from every driver call when set
}

func NewFakeDriver() *FakeDriver {
	return &FakeDriver{elements: make(map[string][]*FakeElement), PNG: []byte("png")}
}

func (d *FakeDriver) Add(el *FakeElement) {
	d.mu.Lock()
	defer d.mu.Unlock()
	el.driver = d
	if el.Attrs == nil {
		el.Attrs = make(map[string]string)
	}
	d.elements[el.Loc.Value] = append(d.elements[el.Loc.Value], el)
}

func (d *FakeDriver) Remove(value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.elements, value)
}

func (d *FakeDriver) lookup(value string) []*FakeElement {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.elements[value]
}

func (d *FakeDriver) present(el *FakeElement) bool {
	for _, cur := range d.lookup(el.Loc.Value) {
		if cur == el {
			return true
		}
	}
	return false
}

func (d *FakeDriver) FindElement(ctx context.Context, loc browser.Locator, cond browser.Condition, timeout time.Duration) (browser.Element, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, el := range d.lookup(loc.Value) {
		if cond == browser.CondClickable && el.Unclickable {
			continue
		}
		return el, nil
	}
	return nil, fmt.Errorf("%w: %s", browser.ErrNotFound, loc.Label)
}

func (d *FakeDriver) FindElements(ctx context.Context, loc browser.Locator, timeout time.Duration) ([]browser.Element, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	matches := d.lookup(loc.Value)
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %s", browser.ErrNotFound, loc.Label)
	}
	els := make([]browser.Element, len(matches))
	for i, el := range matches {
		els[i] = el
	}
	return els, nil
}

func (d *FakeDriver) CurrentLocation(ctx context.Context) (string, error) {
	return d.Location, d.Err
}

func (d *FakeDriver) WaitFor(ctx context.Context, pred func(context.Context) (bool, error), timeout time.Duration) (bool, error) {
	if d.Err != nil {
		return false, d.Err
	}
	// A couple of immediate rounds stand in for polling.
	for i := 0; i < 3; i++ {
		ok, err := pred(ctx)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

func (d *FakeDriver) Navigate(ctx context.Context, url string) error {
	d.Navigations = append(d.Navigations, url)
	d.Location = url
	return d.Err
}

func (d *FakeDriver) Refresh(ctx context.Context) error {
	d.Refreshes++
	return d.Err
}

func (d *FakeDriver) Screenshot(ctx context.Context) ([]byte, error) {
	return d.PNG, d.Err
}

func (d *FakeDriver) Eval(ctx context.Context, js string) error {
	d.Scripts = append(d.Scripts, js)
	return d.Err
}

func (e *FakeElement) fail() error {
	if e.FailuresLeft > 0 {
		e.FailuresLeft--
		if e.FailWith != nil {
			return e.FailWith
		}
		return fmt.Errorf("%w: %s", browser.ErrStale, e.Loc.Label)
	}
	if e.driver != nil && !e.driver.present(e) {
		return fmt.Errorf("%w: %s", browser.ErrStale, e.Loc.Label)
	}
	return nil
}

func (e *FakeElement) Click(ctx context.Context) error {
	if err := e.fail(); err != nil {
		return err
	}
	e.Clicks++
	if e.OnClick != nil {
		e.OnClick(e.driver)
	}
	return nil
}

func (e *FakeElement) Type(ctx context.Context, text string) error {
	if err := e.fail(); err != nil {
		return err
	}
	e.Attrs["value"] = text
	return nil
}

func (e *FakeElement) Clear(ctx context.Context) error {
	if err := e.fail(); err != nil {
		return err
	}
	e.Attrs["value"] = ""
	return nil
}

func (e *FakeElement) Text(ctx context.Context) (string, error) {
	if err := e.fail(); err != nil {
		return "", err
	}
	return e.TextValue, nil
}

func (e *FakeElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := e.fail(); err != nil {
		return "", false, err
	}
	v, ok := e.Attrs[name]
	return v, ok, nil
}

func (e *FakeElement) Selected(ctx context.Context) (bool, error) {
	if err := e.fail(); err != nil {
		return false, err
	}
	return e.Checked, nil
}

func (e *FakeElement) Locator() browser.Locator { return e.Loc }
