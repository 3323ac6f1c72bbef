package apperrors

import "fmt"

// Validation reports a bad or missing input field (including unparsable dates).
// Synchronous, never retried.
type Validation struct {
	Field  string
	Reason string
}

func (e *Validation) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// Reference reports a foreign key that does not exist or is inactive.
type Reference struct {
	Kind string
	ID   uint
}

func (e *Reference) Error() string {
	return fmt.Sprintf("reference: %s %d not found or inactive", e.Kind, e.ID)
}

// ResourceLimit reports a violated ceiling (e.g. attachments per request).
type ResourceLimit struct {
	Resource string
	Limit    int
}

func (e *ResourceLimit) Error() string {
	return fmt.Sprintf("limit exceeded: at most %d %s allowed", e.Limit, e.Resource)
}

// NotFound reports an unknown entity id.
type NotFound struct {
	Entity string
	ID     string
}

func (e *NotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// StateConflict reports a mutation rejected by the workflow rules
// (e.g. removing an already-removed request from control).
type StateConflict struct {
	Reason string
}

func (e *StateConflict) Error() string {
	return "state conflict: " + e.Reason
}
