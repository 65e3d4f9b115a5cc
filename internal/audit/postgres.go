package audit

import (
	"context"
	"database/sql"
	"fmt"
)

const insertEventQuery = `
	INSERT INTO renewal_audit (event_id, batch_id, client_id, full_name, status, detail, screenshot_ref, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// PostgresSink writes events to the renewal_audit table.
type PostgresSink struct {
	db *sql.DB
}

func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

func (s *PostgresSink) Write(ctx context.Context, ev Event) error {
	_, err := s.db.ExecContext(ctx, insertEventQuery,
		ev.EventID, ev.BatchID, ev.ClientID, ev.FullName,
		string(ev.Status), ev.Detail, ev.ScreenshotRef, ev.Timestamp)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *PostgresSink) Close() error { return nil }
