// Package audit records one event per retired client. Sinks are append-only
// and a write failure never aborts the workflow; it is logged and dropped.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"renewal-bot/internal/common/logger"
	"renewal-bot/internal/models"
)

// Event is one finalized client outcome.
type Event struct {
	EventID       string        `json:"event_id"`
	BatchID       string        `json:"batch_id,omitempty"`
	ClientID      string        `json:"client_id"`
	FullName      string        `json:"full_name"`
	Status        models.Status `json:"status"`
	Detail        string        `json:"detail,omitempty"`
	ScreenshotRef string        `json:"screenshot_ref,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
}

// NewEvent stamps identity and time; callers fill the outcome fields.
func NewEvent(batchID string, client *models.ClientRecord) Event {
	return Event{
		EventID:   uuid.New().String(),
		BatchID:   batchID,
		ClientID:  clientID(client),
		FullName:  client.FullName,
		Status:    client.Status,
		Detail:    client.ErrorDetail,
		Timestamp: time.Now().UTC(),
	}
}

func clientID(client *models.ClientRecord) string {
	return client.FullName
}

// Sink accepts audit events.
type Sink interface {
	Write(ctx context.Context, ev Event) error
	Close() error
}

// MultiSink fans out to every backend. Individual failures are logged and
// swallowed so one broken backend cannot block the others or the batch.
type MultiSink struct {
	sinks  []Sink
	logger logger.Logger
}

func NewMultiSink(log logger.Logger, sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks, logger: log}
}

func (m *MultiSink) Write(ctx context.Context, ev Event) error {
	for _, s := range m.sinks {
		if err := s.Write(ctx, ev); err != nil {
			m.logger.Error("audit sink write failed", map[string]interface{}{
				"client": ev.ClientID,
				"error":  err.Error(),
			})
		}
	}
	return nil
}

func (m *MultiSink) Close() error {
	for _, s := range m.sinks {
		_ = s.Close()
	}
	return nil
}

// NopSink discards events; used in dry runs and tests.
type NopSink struct{}

func (NopSink) Write(context.Context, Event) error { return nil }
func (NopSink) Close() error                       { return nil }
