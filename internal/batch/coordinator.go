// Package batch iterates the worklist and guarantees every row is retired
// exactly once, no matter how its workflow run ends.
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"renewal-bot/internal/audit"
	"renewal-bot/internal/browser"
	commonerrors "renewal-bot/internal/common/errors"
	"renewal-bot/internal/common/logger"
	"renewal-bot/internal/common/metrics"
	"renewal-bot/internal/common/observability"
	"renewal-bot/internal/exclusion"
	"renewal-bot/internal/models"
	"renewal-bot/internal/source"
	"renewal-bot/internal/workflow"
)

// retireTimeout bounds the retirement work that runs after cancellation; it
// must not inherit the cancelled batch context.
const retireTimeout = 10 * time.Second

// Runner is the per-client flow. Satisfied by *workflow.Machine.
type Runner interface {
	Run(ctx context.Context, wc *workflow.Context, client *models.ClientRecord) *commonerrors.StandardError
}

// Coordinator owns the batch loop. The exclusion set and audit trail are the
// only state shared across clients, both append-only from here.
type Coordinator struct {
	source     source.Provider
	runner     Runner
	exclusions exclusion.Set
	sink       audit.Sink
	driver     browser.Driver
	shots      *audit.ScreenshotStore
	obs        *observability.Observability
	logger     logger.Logger
	batchID    string
}

type Options struct {
	Source      source.Provider
	Runner      Runner
	Exclusions  exclusion.Set
	Sink        audit.Sink
	Driver      browser.Driver
	Screenshots *audit.ScreenshotStore
	Obs         *observability.Observability
	Logger      logger.Logger
}

func NewCoordinator(opts Options) *Coordinator {
	if opts.Exclusions == nil {
		opts.Exclusions = exclusion.NewMemorySet()
	}
	if opts.Sink == nil {
		opts.Sink = audit.NopSink{}
	}
	return &Coordinator{
		source:     opts.Source,
		runner:     opts.Runner,
		exclusions: opts.Exclusions,
		sink:       opts.Sink,
		driver:     opts.Driver,
		shots:      opts.Screenshots,
		obs:        opts.Obs,
		logger:     opts.Logger,
		batchID:    uuid.New().String(),
	}
}

// Run processes the whole worklist and always returns a summary, even after
// partial failures: every attempted client carries a terminal status by the
// time the batch ends.
func (c *Coordinator) Run(ctx context.Context) (*Summary, error) {
	rows, err := c.source.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("read worklist: %w", err)
	}

	summary := newSummary(c.batchID, len(rows))
	c.logger.Info("batch started", map[string]interface{}{
		"batch": c.batchID,
		"rows":  len(rows),
	})

	for i := range rows {
		client := &rows[i]

		if err := ctx.Err(); err != nil {
			summary.NotAttempted++
			continue
		}

		excluded, exErr := c.exclusions.Contains(ctx, clientKey(client))
		if exErr != nil {
			c.logger.Error("exclusion check failed, attempting client anyway", map[string]interface{}{
				"client": client.FullName,
				"error":  exErr.Error(),
			})
		}
		if excluded {
			c.logger.Warn("client permanently excluded, skipping", map[string]interface{}{
				"client": client.FullName,
			})
			summary.Excluded++
			continue
		}

		c.processOne(ctx, client)
		summary.record(client)
	}

	summary.finish()
	c.logger.Info("batch finished", summary.Fields())
	return summary, nil
}

// processOne runs one client to a terminal status. The deferred finalizer is
// the retirement guarantee: it runs on success, handled failure, panic, and
// cancellation alike.
func (c *Coordinator) processOne(ctx context.Context, client *models.ClientRecord) {
	start := time.Now()
	var screenshotRef string

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("workflow panicked", map[string]interface{}{
				"client": client.FullName,
				"panic":  fmt.Sprint(r),
			})
			client.Finalize(models.StatusError, fmt.Sprintf("panic: %v", r))
		}
		// A run that returned without finalizing is itself a defect;
		// the row still retires with an Error status.
		if !client.Status.Terminal() {
			client.Finalize(models.StatusError, "workflow returned without terminal status")
		}

		c.retire(client)
		c.record(client, screenshotRef, time.Since(start))
	}()

	wc := &workflow.Context{}
	stdErr := c.runner.Run(ctx, wc, client)
	if stdErr != nil && client.Status == models.StatusError {
		screenshotRef = c.captureScreenshot(client)
	}
}

// retire removes the row from the worklist. It runs on a fresh context so a
// cancelled batch still retires its in-flight client; if retirement itself
// fails, the client enters the permanent exclusion set.
func (c *Coordinator) retire(client *models.ClientRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), retireTimeout)
	defer cancel()

	if err := c.source.Retire(ctx, client); err != nil {
		c.logger.Error("row retirement failed, excluding client permanently", map[string]interface{}{
			"client": client.FullName,
			"error":  err.Error(),
		})
		if exErr := c.exclusions.Add(ctx, clientKey(client)); exErr != nil {
			c.logger.Error("exclusion set add failed", map[string]interface{}{
				"client": client.FullName,
				"error":  exErr.Error(),
			})
		}
	}
}

func (c *Coordinator) record(client *models.ClientRecord, screenshotRef string, elapsed time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), retireTimeout)
	defer cancel()

	ev := audit.NewEvent(c.batchID, client)
	ev.ScreenshotRef = screenshotRef
	if err := c.sink.Write(ctx, ev); err != nil {
		c.logger.Error("audit write failed", map[string]interface{}{
			"client": client.FullName,
			"error":  err.Error(),
		})
	}

	metrics.ClientsProcessed.WithLabelValues(string(client.Status)).Inc()
	if c.obs != nil {
		c.obs.RecordClientProcessed(ctx, string(client.Status))
		c.obs.RecordClientDuration(ctx, elapsed, string(client.Status))
	}
}

func (c *Coordinator) captureScreenshot(client *models.ClientRecord) string {
	if c.shots == nil || c.driver == nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(context.Background(), retireTimeout)
	defer cancel()

	png, err := c.driver.Screenshot(ctx)
	if err != nil {
		c.logger.Warn("error screenshot capture failed", map[string]interface{}{
			"client": client.FullName,
			"error":  err.Error(),
		})
		return ""
	}
	ref, err := c.shots.Save(client.FullName, png)
	if err != nil {
		c.logger.Warn("error screenshot save failed", map[string]interface{}{
			"client": client.FullName,
			"error":  err.Error(),
		})
		return ""
	}
	return ref
}

func clientKey(client *models.ClientRecord) string {
	return fmt.Sprintf("%d:%s", client.RowIndex, client.FullName)
}
