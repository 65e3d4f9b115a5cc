// internal/step/executor.go
package step

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"renewal-bot/internal/browser"
	"renewal-bot/internal/common/logger"
	"renewal-bot/internal/common/metrics"
	"renewal-bot/internal/resolver"
)

// Action is what a step does to its resolved element.
type Action int

const (
	Click Action = iota
	Type
	Check
	ReadText
)

// Spec bundles one workflow step: the fallback descriptors to resolve, the
// action, and an optional post-condition that must become true before the
// step counts as done.
type Spec struct {
	Name     string
	Target   []browser.Locator
	Action   Action
	Value    string // typed text for Type
	Post     []browser.Locator
	Optional bool // "not present" is SoftFail, not HardFail

	// Zero values fall back to the executor defaults.
	Timeout     time.Duration
	PostTimeout time.Duration
}

type Outcome int

const (
	Success Outcome = iota
	SoftFail
	HardFail
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case SoftFail:
		return "soft_fail"
	default:
		return "hard_fail"
	}
}

// Result is the typed outcome of one step. No fault escapes Execute as an
// error; everything is folded into the result.
type Result struct {
	Outcome Outcome
	Reason  string
	Text    string // populated for ReadText
}

func success(text string) Result { return Result{Outcome: Success, Text: text} }
func softFail(r string) Result   { return Result{Outcome: SoftFail, Reason: r} }
func hardFail(r string) Result   { return Result{Outcome: HardFail, Reason: r} }

// Executor performs steps against the UI driver. Transient inconsistency
// (stale element, post-condition not yet true) triggers a bounded
// re-resolve-and-retry before escalating to HardFail.
type Executor struct {
	driver      browser.Driver
	resolver    *resolver.Resolver
	logger      logger.Logger
	maxAttempts int
	backoff     time.Duration
	timeout     time.Duration
	postTimeout time.Duration
	dryRun      bool
}

type Options struct {
	MaxAttempts int
	Backoff     time.Duration
	Timeout     time.Duration
	PostTimeout time.Duration
	DryRun      bool
}

func NewExecutor(driver browser.Driver, res *resolver.Resolver, log logger.Logger, opts Options) *Executor {
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 3
	}
	if opts.Backoff == 0 {
		opts.Backoff = 600 * time.Millisecond
	}
	if opts.Timeout == 0 {
		opts.Timeout = 8 * time.Second
	}
	if opts.PostTimeout == 0 {
		opts.PostTimeout = 8 * time.Second
	}
	return &Executor{
		driver:      driver,
		resolver:    res,
		logger:      log,
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.Backoff,
		timeout:     opts.Timeout,
		postTimeout: opts.PostTimeout,
		dryRun:      opts.DryRun,
	}
}

// DryRun reports whether mutating actions are suppressed.
func (e *Executor) DryRun() bool { return e.dryRun }

// Execute runs one step to a typed result. Re-invoking after a SoftFail is
// safe: Check only clicks an unchecked box, Type verifies the committed
// value, and optional steps tolerate the element being gone.
func (e *Executor) Execute(ctx context.Context, spec Spec) Result {
	start := time.Now()
	defer func() {
		metrics.StepDuration.WithLabelValues(spec.Name).Observe(time.Since(start).Seconds())
	}()

	timeout := spec.Timeout
	if timeout == 0 {
		timeout = e.timeout
	}

	cond := browser.CondPresent
	if spec.Action == Click || spec.Action == Check {
		cond = browser.CondClickable
	}

	var lastReason string
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return hardFail("cancelled: " + err.Error())
		}
		if attempt > 1 {
			metrics.StepRetries.WithLabelValues(spec.Name).Inc()
			select {
			case <-ctx.Done():
				return hardFail("cancelled: " + ctx.Err().Error())
			case <-time.After(e.backoff):
			}
		}

		el, err := e.resolver.Resolve(ctx, spec.Target, cond, timeout)
		if err != nil {
			if resolver.IsFailure(err) {
				if spec.Optional {
					e.logger.Debug("optional step target not present", map[string]interface{}{
						"step": spec.Name,
					})
					return softFail("not present: " + err.Error())
				}
				lastReason = err.Error()
				continue
			}
			return hardFail(fmt.Sprintf("driver fault resolving %s: %v", spec.Name, err))
		}

		text, err := e.act(ctx, spec, el)
		if err != nil {
			if errors.Is(err, browser.ErrStale) {
				e.logger.Warn("element went stale, re-resolving", map[string]interface{}{
					"step":    spec.Name,
					"element": el.Locator().Label,
					"attempt": attempt,
				})
				lastReason = err.Error()
				continue
			}
			return hardFail(fmt.Sprintf("action failed on %s: %v", spec.Name, err))
		}

		if ok, reason := e.checkPost(ctx, spec); !ok {
			lastReason = reason
			continue
		}

		return success(text)
	}

	return hardFail(fmt.Sprintf("step %s exhausted %d attempts: %s", spec.Name, e.maxAttempts, lastReason))
}

func (e *Executor) act(ctx context.Context, spec Spec, el browser.Element) (string, error) {
	if e.dryRun && spec.Action != ReadText {
		e.logger.Info("dry-run: action suppressed", map[string]interface{}{
			"step":   spec.Name,
			"action": spec.Action,
		})
		return "", nil
	}

	switch spec.Action {
	case Click:
		return "", el.Click(ctx)

	case Type:
		if err := el.Clear(ctx); err != nil {
			return "", err
		}
		if err := el.Type(ctx, spec.Value); err != nil {
			return "", err
		}
		// Read back so a swallowed keystroke retries instead of
		// submitting a half-typed value.
		committed, ok, err := el.Attribute(ctx, "value")
		if err != nil {
			return "", err
		}
		if !ok || !strings.Contains(committed, spec.Value) {
			return "", fmt.Errorf("%w: typed value not committed on %s", browser.ErrStale, el.Locator().Label)
		}
		return "", nil

	case Check:
		selected, err := el.Selected(ctx)
		if err != nil {
			return "", err
		}
		if selected {
			return "", nil // already checked, safe re-entry
		}
		if err := el.Click(ctx); err != nil {
			return "", err
		}
		selected, err = el.Selected(ctx)
		if err != nil {
			return "", err
		}
		if !selected {
			return "", fmt.Errorf("%w: checkbox click did not register on %s", browser.ErrStale, el.Locator().Label)
		}
		return "", nil

	case ReadText:
		return el.Text(ctx)

	default:
		return "", fmt.Errorf("unknown action %d", spec.Action)
	}
}

// checkPost waits for the step's readiness marker. A missing post-condition
// in dry-run mode is ignored since suppressed actions never advance the page.
func (e *Executor) checkPost(ctx context.Context, spec Spec) (bool, string) {
	if len(spec.Post) == 0 || e.dryRun {
		return true, ""
	}
	timeout := spec.PostTimeout
	if timeout == 0 {
		timeout = e.postTimeout
	}

	ok, err := e.driver.WaitFor(ctx, func(ctx context.Context) (bool, error) {
		for _, loc := range spec.Post {
			if _, err := e.driver.FindElement(ctx, loc, browser.CondPresent, 300*time.Millisecond); err == nil {
				return true, nil
			} else if !errors.Is(err, browser.ErrNotFound) {
				return false, err
			}
		}
		return false, nil
	}, timeout)
	if err != nil {
		return false, "post-condition check failed: " + err.Error()
	}
	if !ok {
		return false, fmt.Sprintf("post-condition for %s not met within %s", spec.Name, timeout)
	}
	return true, ""
}
