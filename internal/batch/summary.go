package batch

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"renewal-bot/internal/models"
)

// Summary aggregates one batch run. It is always producible, even after
// partial failures, because every attempted client is finalized before the
// batch ends.
type Summary struct {
	BatchID      string
	InputRows    int
	Counts       map[models.Status]int
	Excluded     int
	NotAttempted int
	StartedAt    time.Time
	Elapsed      time.Duration
}

func newSummary(batchID string, inputRows int) *Summary {
	return &Summary{
		BatchID:   batchID,
		InputRows: inputRows,
		Counts:    make(map[models.Status]int),
		StartedAt: time.Now().UTC(),
	}
}

func (s *Summary) record(client *models.ClientRecord) {
	s.Counts[client.Status]++
}

func (s *Summary) finish() {
	s.Elapsed = time.Since(s.StartedAt)
}

// Attempted is the number of clients that ran to a terminal status.
func (s *Summary) Attempted() int {
	n := 0
	for _, c := range s.Counts {
		n += c
	}
	return n
}

func (s *Summary) Fields() map[string]interface{} {
	fields := map[string]interface{}{
		"batch":         s.BatchID,
		"input_rows":    s.InputRows,
		"attempted":     s.Attempted(),
		"excluded":      s.Excluded,
		"not_attempted": s.NotAttempted,
		"elapsed":       s.Elapsed.Round(time.Second).String(),
	}
	for status, count := range s.Counts {
		fields[string(status)] = count
	}
	return fields
}

// Text renders the operator-facing report used in the summary email.
func (s *Summary) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Batch %s\n", s.BatchID)
	fmt.Fprintf(&b, "Input rows: %d, attempted: %d, excluded: %d, not attempted: %d\n",
		s.InputRows, s.Attempted(), s.Excluded, s.NotAttempted)

	statuses := make([]string, 0, len(s.Counts))
	for status := range s.Counts {
		statuses = append(statuses, string(status))
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		fmt.Fprintf(&b, "  %-30s %d\n", status, s.Counts[models.Status(status)])
	}
	fmt.Fprintf(&b, "Elapsed: %s\n", s.Elapsed.Round(time.Second))
	return b.String()
}
