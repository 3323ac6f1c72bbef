package control

import (
	"os"
	"strconv"
	"time"
)

// Status is the derived deadline-health of a request. It is a cache over
// (due date, workflow status, now) — recomputed on reads and by the sweep,
// never edited by hand.
type Status string

const (
	StatusNone        Status = "no"
	StatusNormal      Status = "normal"
	StatusApproaching Status = "approaching"
	StatusOverdue     Status = "overdue"
)

// DefaultApproachingHours is the flat global warning window; override with
// CONTROL_APPROACHING_HOURS. There are no per-category thresholds.
const DefaultApproachingHours = 48

// ApproachingWindow returns the configured warning window.
func ApproachingWindow() time.Duration {
	if v := os.Getenv("CONTROL_APPROACHING_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Hour
		}
	}
	return DefaultApproachingHours * time.Hour
}

// Compute maps (due date, now) to a control status. Rules in priority order:
// no due date → no; past due → overdue; due within the warning window →
// approaching; else normal. For a fixed due date the result is monotonic as
// now advances (normal → approaching → overdue, never backwards).
func Compute(due *time.Time, now time.Time) Status {
	return ComputeWithWindow(due, now, ApproachingWindow())
}

// ComputeWithWindow is Compute with an explicit warning window.
func ComputeWithWindow(due *time.Time, now time.Time, window time.Duration) Status {
	if due == nil || due.IsZero() {
		return StatusNone
	}
	if now.After(*due) {
		return StatusOverdue
	}
	if due.Sub(now) <= window {
		return StatusApproaching
	}
	return StatusNormal
}

// ComputeRaw parses an RFC3339 timestamp and computes the status. An empty or
// unparsable value yields StatusNone rather than an error: a corrupt stored
// date must never break a read path.
func ComputeRaw(raw string, now time.Time) Status {
	if raw == "" {
		return StatusNone
	}
	due, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return StatusNone
	}
	return Compute(&due, now)
}

// Severity orders statuses for monotonicity checks: no < normal < approaching < overdue.
func Severity(s Status) int {
	switch s {
	case StatusNormal:
		return 1
	case StatusApproaching:
		return 2
	case StatusOverdue:
		return 3
	default:
		return 0
	}
}
