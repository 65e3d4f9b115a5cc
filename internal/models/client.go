// internal/models/client.go
package models

import "time"

// Status is the outcome of processing one client row. Exactly one terminal
// status holds when a record is retired; Pending and InProgress are transient
// and must never reach the audit trail.
type Status string

const (
	StatusPending                  Status = "pending"
	StatusInProgress               Status = "in_progress"
	StatusCompleted                Status = "completed"
	StatusSkippedFamilyPolicy      Status = "skipped_family_policy"
	StatusSkippedFollowups         Status = "skipped_followups"
	StatusSkippedNoIdentifier      Status = "skipped_no_identifier"
	StatusSkippedNoZeroPremiumPlan Status = "skipped_no_zero_premium_plan"
	StatusError                    Status = "error"
)

// Terminal reports whether s is a final outcome.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted,
		StatusSkippedFamilyPolicy,
		StatusSkippedFollowups,
		StatusSkippedNoIdentifier,
		StatusSkippedNoZeroPremiumPlan,
		StatusError:
		return true
	}
	return false
}

// Skip reports whether s is a designed policy skip rather than a failure.
func (s Status) Skip() bool {
	switch s {
	case StatusSkippedFamilyPolicy,
		StatusSkippedFollowups,
		StatusSkippedNoIdentifier,
		StatusSkippedNoZeroPremiumPlan:
		return true
	}
	return false
}

// ClientRecord is one row of the renewal worklist. It is created by the batch
// coordinator, mutated only by the workflow run that owns it, and frozen once
// a terminal status is set.
type ClientRecord struct {
	RowIndex  int    `json:"row_index"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	FullName  string `json:"full_name"`

	// Derived during the flow, not input.
	IsFemale      *bool  `json:"is_female,omitempty"`
	HouseholdSize int    `json:"household_size,omitempty"`
	Carrier       string `json:"carrier,omitempty"`
	PremiumCents  int64  `json:"premium_cents"`
	PlanName      string `json:"plan_name,omitempty"`

	// Assigned by the engine during the income edit.
	ModifiedIncome int `json:"modified_income,omitempty"`

	Status      Status     `json:"status"`
	ErrorDetail string     `json:"error,omitempty"`
	StartedAt   *time.Time `json:"start,omitempty"`
	FinishedAt  *time.Time `json:"end,omitempty"`
}

// Finalize sets a terminal status exactly once. Later calls are ignored so a
// deferred finalizer cannot overwrite the outcome a handler already set.
func (c *ClientRecord) Finalize(s Status, detail string) {
	if c.Status.Terminal() {
		return
	}
	c.Status = s
	if detail != "" {
		c.ErrorDetail = detail
	}
	now := time.Now().UTC()
	c.FinishedAt = &now
}
