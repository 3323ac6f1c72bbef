package models

import (
	"errors"
	"testing"

	"civicdesk-backend/apperrors"
)

func TestTerminalStatuses(t *testing.T) {
	terminal := []Status{StatusCompleted, StatusArchived, StatusCancelled, StatusRemoved}
	open := []Status{StatusNew, StatusInProgress, StatusPaused}

	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range open {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestValidateTransition(t *testing.T) {
	if err := ValidateTransition(StatusNew, StatusInProgress); err != nil {
		t.Fatalf("new -> in_progress: %v", err)
	}
	if err := ValidateTransition(StatusPaused, StatusCompleted); err != nil {
		t.Fatalf("paused -> completed: %v", err)
	}

	var sc *apperrors.StateConflict
	if err := ValidateTransition(StatusCompleted, StatusInProgress); !errors.As(err, &sc) {
		t.Fatalf("completed is frozen, got %v", err)
	}
	if err := ValidateTransition(StatusNew, StatusRemoved); !errors.As(err, &sc) {
		t.Fatalf("direct move to removed must be rejected, got %v", err)
	}

	var ve *apperrors.Validation
	if err := ValidateTransition(StatusNew, Status("bogus")); !errors.As(err, &ve) {
		t.Fatalf("unknown status must be a validation error, got %v", err)
	}
}

func TestValidateRemoval(t *testing.T) {
	for _, s := range []Status{StatusNew, StatusInProgress, StatusPaused, StatusCancelled} {
		if err := ValidateRemoval(s); err != nil {
			t.Errorf("removal from %s should be allowed: %v", s, err)
		}
	}

	var sc *apperrors.StateConflict
	for _, s := range []Status{StatusRemoved, StatusCompleted, StatusArchived} {
		if err := ValidateRemoval(s); !errors.As(err, &sc) {
			t.Errorf("removal from %s should conflict, got %v", s, err)
		}
	}
}
