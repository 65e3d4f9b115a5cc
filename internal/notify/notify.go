// Package notify delivers the per-batch summary and critical-failure alerts.
// Delivery is config-gated and best-effort: a failed send is logged, never
// propagated, because notifications must not affect batch bookkeeping.
package notify

import (
	"context"
	"fmt"
	"time"

	"renewal-bot/internal/batch"
	"renewal-bot/internal/common/config"
	"renewal-bot/internal/common/logger"
	"renewal-bot/internal/models"
)

// Mailer sends the batch summary. Satisfied by *aws.SESClient.
type Mailer interface {
	SendBatchSummary(ctx context.Context, from string, to []string, subject, body string) error
}

// Alerter publishes critical alerts. Satisfied by *aws.SNSClient.
type Alerter interface {
	PublishAlert(ctx context.Context, topicARN, message string) error
}

type Notifier struct {
	cfg     config.NotificationsConfig
	mailer  Mailer
	alerter Alerter
	logger  logger.Logger
}

func New(cfg config.NotificationsConfig, mailer Mailer, alerter Alerter, log logger.Logger) *Notifier {
	return &Notifier{cfg: cfg, mailer: mailer, alerter: alerter, logger: log}
}

// BatchFinished emails the summary and, when the error rate warrants
// operator attention, publishes an alert.
func (n *Notifier) BatchFinished(ctx context.Context, summary *batch.Summary) {
	if n.cfg.AWS.SES.Enabled && n.mailer != nil {
		subject := fmt.Sprintf("Renewal batch %s: %d attempted, %d errors",
			shortID(summary.BatchID), summary.Attempted(), summary.Counts[models.StatusError])
		err := n.mailer.SendBatchSummary(ctx, n.cfg.AWS.SES.FromEmail, n.cfg.AWS.SES.Recipients, subject, summary.Text())
		if err != nil {
			n.logger.Error("summary email failed", map[string]interface{}{
				"batch": summary.BatchID,
				"error": err.Error(),
			})
		}
	}

	errorCount := summary.Counts[models.StatusError]
	if n.cfg.AWS.SNS.Enabled && n.alerter != nil && errorCount > 0 && errorCount >= summary.Attempted()/2 {
		msg := fmt.Sprintf("renewal batch %s: %d of %d clients errored at %s",
			shortID(summary.BatchID), errorCount, summary.Attempted(), time.Now().UTC().Format(time.RFC3339))
		if err := n.alerter.PublishAlert(ctx, n.cfg.AWS.SNS.TopicARN, msg); err != nil {
			n.logger.Error("alert publish failed", map[string]interface{}{
				"batch": summary.BatchID,
				"error": err.Error(),
			})
		}
	}
}

// DriverLost alerts on the one failure that stops a batch outright.
func (n *Notifier) DriverLost(ctx context.Context, detail string) {
	if !n.cfg.AWS.SNS.Enabled || n.alerter == nil {
		return
	}
	msg := "renewal bot lost the browser session: " + detail
	if err := n.alerter.PublishAlert(ctx, n.cfg.AWS.SNS.TopicARN, msg); err != nil {
		n.logger.Error("alert publish failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
