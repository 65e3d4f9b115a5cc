// internal/browser/driver.go
package browser

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors surfaced by Driver implementations. Callers rely on the
// distinction: a stale element was resolved once and then invalidated by a
// page update, a not-found element never matched within the timeout.
var (
	ErrNotFound = errors.New("ELEMENT_NOT_FOUND")
	ErrStale    = errors.New("ELEMENT_STALE")
)

// Strategy names how a locator value is interpreted.
type Strategy string

const (
	ByCSS   Strategy = "css"
	ByXPath Strategy = "xpath"
	ByID    Strategy = "id"
)

// Locator is one way of finding one logical element. Resolution code works
// with ordered lists of these; Label is what ends up in logs and failures.
type Locator struct {
	Strategy Strategy
	Value    string
	Label    string
}

// Condition an element must satisfy before FindElement returns it.
type Condition int

const (
	CondPresent Condition = iota
	CondClickable
)

// Element is a handle to a resolved page element. Actions return ErrStale
// when the element has been detached since resolution.
type Element interface {
	Click(ctx context.Context) error
	Type(ctx context.Context, text string) error
	Clear(ctx context.Context) error
	Text(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (string, bool, error)
	Selected(ctx context.Context) (bool, error)
	Locator() Locator
}

// ScriptRunner is the optional escape hatch for page mutations no element
// action covers, such as hiding a processed row. Drivers that support it are
// detected by type assertion.
type ScriptRunner interface {
	Eval(ctx context.Context, js string) error
}

// Driver is the UI-control surface the engine runs against. Implementations
// must keep ErrStale distinguishable from ErrNotFound and must bound every
// wait with the given timeout.
type Driver interface {
	FindElement(ctx context.Context, loc Locator, cond Condition, timeout time.Duration) (Element, error)
	FindElements(ctx context.Context, loc Locator, timeout time.Duration) ([]Element, error)
	CurrentLocation(ctx context.Context) (string, error)
	WaitFor(ctx context.Context, pred func(context.Context) (bool, error), timeout time.Duration) (bool, error)
	Navigate(ctx context.Context, url string) error
	Refresh(ctx context.Context) error
	Screenshot(ctx context.Context) ([]byte, error)
}
