// internal/resolver/resolver.go
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"renewal-bot/internal/browser"
	"renewal-bot/internal/common/logger"
	"renewal-bot/internal/common/metrics"
)

// Failure is returned when every descriptor in the fallback list was tried
// and none matched. It carries the tried labels for operator diagnosis and is
// an expected outcome, never a crash.
type Failure struct {
	Tried []string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("no element resolved, tried: %v", f.Tried)
}

// IsFailure reports whether err is a resolution failure.
func IsFailure(err error) bool {
	var f *Failure
	return errors.As(err, &f)
}

// Resolver finds one logical element given an ordered list of fallback
// locators. The target UI's markup is not controlled by this system and
// drifts; a single brittle locator would be a single point of failure for
// every client in the batch.
type Resolver struct {
	driver     browser.Driver
	logger     logger.Logger
	perDescMax time.Duration
}

func New(driver browser.Driver, log logger.Logger, perDescriptor time.Duration) *Resolver {
	return &Resolver{
		driver:     driver,
		logger:     log,
		perDescMax: perDescriptor,
	}
}

// Resolve tries each locator in order, polling the driver until the element
// satisfies cond or the per-descriptor share of timeout elapses, then
// advances. The first success wins. A driver transport fault aborts
// immediately; ErrNotFound just moves to the next descriptor.
func (r *Resolver) Resolve(ctx context.Context, locs []browser.Locator, cond browser.Condition, timeout time.Duration) (browser.Element, error) {
	if len(locs) == 0 {
		return nil, &Failure{}
	}

	per := timeout / time.Duration(len(locs))
	if r.perDescMax > 0 && per > r.perDescMax {
		per = r.perDescMax
	}
	if per <= 0 {
		per = timeout
	}

	tried := make([]string, 0, len(locs))
	for i, loc := range locs {
		tried = append(tried, loc.Label)

		el, err := r.driver.FindElement(ctx, loc, cond, per)
		if err == nil {
			if i > 0 {
				r.logger.Debug("element resolved via fallback", map[string]interface{}{
					"element": loc.Label,
					"depth":   i,
				})
			}
			metrics.ResolverFallbacks.WithLabelValues(loc.Label).Observe(float64(i))
			return el, nil
		}
		if errors.Is(err, browser.ErrNotFound) {
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// Anything other than not-found is a driver fault, not markup drift.
		return nil, err
	}

	return nil, &Failure{Tried: tried}
}
