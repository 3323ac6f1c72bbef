package models

import (
	"fmt"

	"civicdesk-backend/apperrors"
)

// Status is the closed set of workflow states a request moves through.
type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in_progress"
	StatusPaused     Status = "paused"
	StatusCompleted  Status = "completed"
	StatusArchived   Status = "archived"
	StatusCancelled  Status = "cancelled"
	StatusRemoved    Status = "removed"
)

// Priority of a request; defaults to medium on intake.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var allStatuses = map[Status]bool{
	StatusNew: true, StatusInProgress: true, StatusPaused: true,
	StatusCompleted: true, StatusArchived: true, StatusCancelled: true,
	StatusRemoved: true,
}

var allPriorities = map[Priority]bool{
	PriorityLow: true, PriorityMedium: true, PriorityHigh: true,
}

// ValidStatus reports whether s is a known workflow status.
func ValidStatus(s Status) bool { return allStatuses[s] }

// ValidPriority reports whether p is a known priority.
func ValidPriority(p Priority) bool { return allPriorities[p] }

// Terminal reports whether no further deadline monitoring or notification
// applies to a request in status s.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusArchived, StatusCancelled, StatusRemoved:
		return true
	}
	return false
}

// ValidateTransition is the single place the workflow rules live. Terminal
// statuses are frozen; everything else may move freely (this is a
// human-approval workflow, not a strict pipeline). Entering `removed` must go
// through ValidateRemoval instead.
func ValidateTransition(from, to Status) error {
	if !allStatuses[to] {
		return &apperrors.Validation{Field: "status", Reason: fmt.Sprintf("unknown status %q", to)}
	}
	if from == to {
		return nil
	}
	if from.Terminal() {
		return &apperrors.StateConflict{Reason: fmt.Sprintf("request is %s and can no longer change status", from)}
	}
	if to == StatusRemoved {
		return &apperrors.StateConflict{Reason: "use remove-from-control to remove a request"}
	}
	return nil
}

// ValidateRemoval checks the remove-from-control preconditions for a request
// currently in status from.
func ValidateRemoval(from Status) error {
	if from == StatusRemoved {
		return &apperrors.StateConflict{Reason: "request already removed from control"}
	}
	if from == StatusCompleted || from == StatusArchived {
		return &apperrors.StateConflict{Reason: fmt.Sprintf("cannot remove a %s request from control", from)}
	}
	return nil
}
