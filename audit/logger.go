package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"civicdesk-backend/models"
)

// Actions recorded against a request.
const (
	ActionCreate            = "create"
	ActionUpdate            = "update"
	ActionRemoveFromControl = "remove_from_control"
)

// Event is one logical lifecycle mutation. It is written to two independent
// sinks: a structured audit entry for compliance and a free-text proceeding
// note for the UI timeline.
type Event struct {
	RequestId string
	Action    string
	Actor     models.Actor
	Payload   map[string]any
	Note      string
}

type Logger struct {
	Now func() time.Time
}

func (l Logger) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// Record writes the event to both sinks. A failed sink does not stop the
// other one; all failures are returned joined so the caller can log them
// without unwinding the primary mutation.
func (l Logger) Record(db *gorm.DB, ev Event) error {
	if ev.Payload == nil {
		ev.Payload = map[string]any{}
	}
	raw, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	ts := l.now()

	auditErr := db.Create(&models.AuditEntry{
		RequestId: ev.RequestId,
		Action:    ev.Action,
		ActorId:   ev.Actor.UserId,
		ActorName: ev.Actor.Name,
		Payload:   raw,
		CreatedAt: ts,
	}).Error
	if auditErr != nil {
		auditErr = fmt.Errorf("audit sink: %w", auditErr)
	}

	note := ev.Note
	if note == "" {
		note = defaultNote(ev.Action)
	}
	procErr := db.Create(&models.ProceedingEntry{
		RequestId:  ev.RequestId,
		AuthorId:   ev.Actor.UserId,
		AuthorName: ev.Actor.Name,
		Text:       note,
		CreatedAt:  ts,
	}).Error
	if procErr != nil {
		procErr = fmt.Errorf("proceeding sink: %w", procErr)
	}

	return errors.Join(auditErr, procErr)
}

func defaultNote(action string) string {
	switch action {
	case ActionCreate:
		return "Request registered"
	case ActionUpdate:
		return "Request updated"
	default:
		return action
	}
}
