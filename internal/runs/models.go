package runs

import (
	"strings"
	"time"
)

// Status tracks a draft run through the archive lifecycle.
type Status string

const (
	StatusPending     Status = "pending"
	StatusProvisioned Status = "provisioned"
	StatusFetching    Status = "fetching"
	StatusFinalized   Status = "finalized"
	StatusArchived    Status = "archived"
	StatusUploaded    Status = "uploaded"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
)

// DaemonStopReason is the error message recorded when runs are failed because
// the daemon shut down mid-flight.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusPending,
	StatusProvisioned,
	StatusFetching,
	StatusFinalized,
	StatusArchived,
	StatusUploaded,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusProvisioned: {},
	StatusFetching:    {},
	StatusFinalized:   {},
	StatusArchived:    {},
	StatusUploaded:    {},
}

// Run is a draft archive run persisted in SQLite.
type Run struct {
	ID           int64
	DraftID      string
	Template     string
	JobJSON      string
	Status       Status
	ErrorMessage string
	ReceiptJSON  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	FinishedAt   *time.Time
}

// HealthSummary aggregates run counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing reports whether the run reflects an in-flight lifecycle.
func (r Run) IsProcessing() bool {
	_, ok := processingStatuses[r.Status]
	return ok
}

// IsTerminal reports whether the run has reached a final state.
func (r Run) IsTerminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

// SetFailed marks the run as failed with the given message.
func (r *Run) SetFailed(message string) {
	r.Status = StatusFailed
	r.ErrorMessage = message
}
